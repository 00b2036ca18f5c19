package tabs

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/lens/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/lens/internal/render"
	"github.com/GriffinCanCode/lens/internal/shared/types"
)

func doc(path string) types.Document {
	return types.Document{Path: path, Name: path, Kind: types.KindMarkdown, Content: "# " + path}
}

func open(t *testing.T, s *Store, path string) OpenResult {
	t.Helper()
	res, err := s.Open(doc(path))
	require.NoError(t, err)
	return res
}

func activeID(s *Store) string {
	tab, _ := s.Active()
	return tab.ID
}

func TestOpenDeduplicatesByPath(t *testing.T) {
	s := NewStore(5)

	first := open(t, s, "/a.md")
	open(t, s, "/b.md")
	s.SetRendered(first.Tab.ID, &render.Fragment{HTML: "<h1>a</h1>"})

	again, err := s.Open(types.Document{Path: "/a.md", Content: "changed"})
	require.NoError(t, err)

	assert.True(t, again.Reopened)
	assert.Nil(t, again.Evicted)
	assert.Equal(t, first.Tab.ID, again.Tab.ID)
	assert.Equal(t, "changed", again.Tab.Content)
	assert.True(t, again.Tab.Dirty)
	assert.False(t, again.Tab.Cached())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, first.Tab.ID, activeID(s))
}

func TestIDIsDeterministic(t *testing.T) {
	a := NewStore(3)
	b := NewStore(3)
	assert.Equal(t, open(t, a, "/docs/x.md").Tab.ID, open(t, b, "/docs/x.md").Tab.ID)
	assert.Equal(t, IDFor("/docs/x.md"), open(t, b, "/docs/x.md").Tab.ID)
	assert.Regexp(t, `^tab-[0-9a-z]+$`, IDFor("/docs/x.md"))
}

func TestEvictsLeastRecentlyActivatedInactive(t *testing.T) {
	s := NewStore(3)
	a := open(t, s, "/a.md").Tab
	b := open(t, s, "/b.md").Tab
	c := open(t, s, "/c.md").Tab

	// a becomes more recent than b
	require.True(t, s.Activate(a.ID))
	require.True(t, s.Activate(c.ID))

	res := open(t, s, "/d.md")
	require.NotNil(t, res.Evicted)
	assert.Equal(t, b.ID, res.Evicted.ID)
	assert.Empty(t, res.Evicted.Content)
	assert.Nil(t, res.Evicted.Rendered)
	assert.Equal(t, 3, s.Len())

	_, ok := s.Get(b.ID)
	assert.False(t, ok)
	assert.Equal(t, res.Tab.ID, activeID(s))
}

func TestNeverEvictsActiveTab(t *testing.T) {
	s := NewStore(1)
	only := open(t, s, "/a.md").Tab

	_, err := s.Open(doc("/b.md"))
	assert.ErrorIs(t, err, ErrNoEvictableTab)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, only.ID, activeID(s))

	// Reopening the admitted path still works at capacity.
	res, err := s.Open(doc("/a.md"))
	require.NoError(t, err)
	assert.True(t, res.Reopened)
}

func TestCapacityClamped(t *testing.T) {
	assert.Equal(t, 1, NewStore(0).MaxTabs())
	assert.Equal(t, 1, NewStore(-3).MaxTabs())
}

func TestCloseActivatesNeighbor(t *testing.T) {
	s := NewStore(5)
	a := open(t, s, "/a.md").Tab
	b := open(t, s, "/b.md").Tab
	c := open(t, s, "/c.md").Tab

	require.True(t, s.Activate(b.ID))
	closed, ok := s.Close(b.ID)
	require.True(t, ok)
	assert.Empty(t, closed.Content)
	assert.Equal(t, c.ID, activeID(s), "tab now at the same index")

	_, ok = s.Close(c.ID)
	require.True(t, ok)
	assert.Equal(t, a.ID, activeID(s), "falls back to the last tab")

	_, ok = s.Close(a.ID)
	require.True(t, ok)
	_, ok = s.Active()
	assert.False(t, ok)
	assert.Zero(t, s.Len())

	_, ok = s.Close("tab-missing")
	assert.False(t, ok)
}

func TestCloseInactiveKeepsActive(t *testing.T) {
	s := NewStore(5)
	a := open(t, s, "/a.md").Tab
	b := open(t, s, "/b.md").Tab

	_, ok := s.Close(a.ID)
	require.True(t, ok)
	assert.Equal(t, b.ID, activeID(s))
}

func TestAtMostOneActive(t *testing.T) {
	s := NewStore(4)
	for i := 0; i < 4; i++ {
		open(t, s, fmt.Sprintf("/%d.md", i))
	}
	ids := s.Tabs()
	s.Activate(ids[1].ID)
	s.Activate(ids[3].ID)

	active := 0
	for _, tab := range s.Tabs() {
		if tab.Active {
			active++
			assert.Equal(t, ids[3].ID, tab.ID)
		}
	}
	assert.Equal(t, 1, active)
	assert.False(t, s.Activate("tab-missing"))
}

func TestUpdateContentKeepsActivation(t *testing.T) {
	s := NewStore(3)
	a := open(t, s, "/a.md").Tab
	b := open(t, s, "/b.md").Tab
	s.SetRendered(a.ID, &render.Fragment{})

	updated, ok := s.UpdateContent("/a.md", "new")
	require.True(t, ok)
	assert.Equal(t, "new", updated.Content)
	assert.True(t, updated.Dirty)
	assert.False(t, updated.Active)
	assert.Equal(t, b.ID, activeID(s))

	_, ok = s.UpdateContent("/missing.md", "x")
	assert.False(t, ok)
}

func TestSetMaxTabsEvicts(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 5; i++ {
		open(t, s, fmt.Sprintf("/%d.md", i))
	}
	active := activeID(s)

	evicted := s.SetMaxTabs(2)
	require.Len(t, evicted, 3)
	assert.Equal(t, IDFor("/0.md"), evicted[0].ID)
	assert.Equal(t, IDFor("/1.md"), evicted[1].ID)
	assert.Equal(t, IDFor("/2.md"), evicted[2].ID)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, active, activeID(s))

	evicted = s.SetMaxTabs(0)
	require.Len(t, evicted, 1)
	assert.Equal(t, IDFor("/3.md"), evicted[0].ID)
	assert.Equal(t, 1, s.MaxTabs())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, active, activeID(s))
}

func TestSaveScrollAndRendered(t *testing.T) {
	s := NewStore(2)
	a := open(t, s, "/a.md").Tab

	frag := &render.Fragment{HTML: "<p>x</p>"}
	require.True(t, s.SetRendered(a.ID, frag))
	require.True(t, s.SaveScroll(a.ID, 120))

	got, ok := s.FindByPath("/a.md")
	require.True(t, ok)
	assert.True(t, got.Cached())
	assert.Equal(t, 120.0, got.ScrollOffset)

	require.True(t, s.MarkDirty(a.ID))
	got, _ = s.Get(a.ID)
	assert.False(t, got.Cached())

	assert.False(t, s.SaveScroll("tab-missing", 1))
}

func TestCollidingIDsAreSalted(t *testing.T) {
	s := NewStore(3)
	a := open(t, s, "/a.md").Tab

	// a's id is taken, so any other path hashing to it gets a suffix.
	s.mu.Lock()
	got := s.uniqueIDLocked("/a.md")
	s.mu.Unlock()
	assert.Equal(t, a.ID+"-1", got)
}

func TestMetrics(t *testing.T) {
	m := monitoring.NewMetrics()
	s := NewStore(2).WithMetrics(m)

	open(t, s, "/a.md")
	open(t, s, "/b.md")
	open(t, s, "/c.md")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TabsOpen))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TabEvictions))

	s.Close(activeID(s))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TabsOpen))
}
