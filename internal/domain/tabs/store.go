package tabs

import (
	"errors"
	"strconv"
	"sync"

	"github.com/GriffinCanCode/lens/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/lens/internal/render"
	"github.com/GriffinCanCode/lens/internal/shared/types"
)

// ErrNoEvictableTab is returned when the store is full and every tab is
// active, so a new document cannot be admitted.
var ErrNoEvictableTab = errors.New("no inactive tab to evict")

// DefaultMaxTabs is the capacity used when none is configured.
const DefaultMaxTabs = 10

// OpenResult describes the effect of Open.
type OpenResult struct {
	Tab      Tab
	Evicted  *Tab
	Reopened bool
}

// Store holds the open tabs in display order. At most one tab is active and
// the store never grows past its capacity.
type Store struct {
	mu       sync.RWMutex
	tabs     []*Tab          // Protected by mu
	byID     map[string]*Tab // Protected by mu
	activeID string          // Protected by mu
	maxTabs  int
	clock    uint64
	metrics  *monitoring.Metrics
}

// NewStore creates a store holding at most maxTabs tabs. Capacity is at
// least one.
func NewStore(maxTabs int) *Store {
	return &Store{
		byID:    make(map[string]*Tab),
		maxTabs: max(maxTabs, 1),
	}
}

// WithMetrics adds metrics tracking to the store.
func (s *Store) WithMetrics(metrics *monitoring.Metrics) *Store {
	s.metrics = metrics
	return s
}

// Open activates the tab for doc.Path, creating it if needed. A reopened tab
// gets the new content and is marked dirty. A new tab evicts the least
// recently activated inactive tab when the store is full.
func (s *Store) Open(doc types.Document) (OpenResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findByPathLocked(doc.Path); existing != nil {
		existing.Content = doc.Content
		existing.Dirty = true
		if doc.BaseURI != "" {
			existing.BaseURI = doc.BaseURI
		}
		s.activateLocked(existing.ID)
		return OpenResult{Tab: *existing, Reopened: true}, nil
	}

	var evicted *Tab
	if len(s.tabs) >= s.maxTabs {
		victim := s.lruLocked()
		if victim == nil {
			return OpenResult{}, ErrNoEvictableTab
		}
		evicted = s.evictLocked(victim)
	}

	kind := doc.Kind
	if !kind.Valid() {
		kind = types.KindMarkdown
	}
	tab := &Tab{
		ID:      s.uniqueIDLocked(doc.Path),
		Path:    doc.Path,
		Name:    doc.Name,
		Kind:    kind,
		Content: doc.Content,
		BaseURI: doc.BaseURI,
		Dirty:   true,
	}
	s.tabs = append(s.tabs, tab)
	s.byID[tab.ID] = tab
	s.activateLocked(tab.ID)
	s.metrics.AddTabs(1)

	return OpenResult{Tab: *tab, Evicted: evicted}, nil
}

// Close removes a tab and releases its state. When the active tab is closed
// the tab now at its index becomes active, or the last tab if it was last.
func (s *Store) Close(id string) (Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, ok := s.byID[id]
	if !ok {
		return Tab{}, false
	}
	s.removeLocked(tab)
	return *tab, true
}

// Activate makes id the only active tab.
func (s *Store) Activate(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return false
	}
	s.activateLocked(id)
	return true
}

// UpdateContent replaces the content of the tab for path and marks it dirty.
// Activation is unchanged.
func (s *Store) UpdateContent(path, content string) (Tab, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab := s.findByPathLocked(path)
	if tab == nil {
		return Tab{}, false
	}
	tab.Content = content
	tab.Dirty = true
	return *tab, true
}

// MarkDirty invalidates the cached fragment of a tab.
func (s *Store) MarkDirty(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, ok := s.byID[id]
	if ok {
		tab.Dirty = true
	}
	return ok
}

// SetRendered caches a fragment for a tab and clears its dirty flag.
func (s *Store) SetRendered(id string, fragment *render.Fragment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, ok := s.byID[id]
	if !ok {
		return false
	}
	tab.Rendered = fragment
	tab.Dirty = false
	return true
}

// SaveScroll records the scroll offset of a tab.
func (s *Store) SaveScroll(id string, offset float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tab, ok := s.byID[id]
	if ok {
		tab.ScrollOffset = offset
	}
	return ok
}

// SetMaxTabs changes the capacity, clamped to at least one, and evicts least
// recently activated inactive tabs until the store fits.
func (s *Store) SetMaxTabs(n int) []Tab {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxTabs = max(n, 1)
	var evicted []Tab
	for len(s.tabs) > s.maxTabs {
		victim := s.lruLocked()
		if victim == nil {
			break
		}
		evicted = append(evicted, *s.evictLocked(victim))
	}
	return evicted
}

// MaxTabs returns the capacity.
func (s *Store) MaxTabs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxTabs
}

// Get retrieves a tab by id.
func (s *Store) Get(id string) (Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tab, ok := s.byID[id]
	if !ok {
		return Tab{}, false
	}
	return *tab, true
}

// FindByPath retrieves the tab for a document path.
func (s *Store) FindByPath(path string) (Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tab := s.findByPathLocked(path)
	if tab == nil {
		return Tab{}, false
	}
	return *tab, true
}

// Active returns the active tab.
func (s *Store) Active() (Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tab, ok := s.byID[s.activeID]
	if !ok {
		return Tab{}, false
	}
	return *tab, true
}

// Tabs returns copies of all tabs in display order.
func (s *Store) Tabs() []Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Tab, len(s.tabs))
	for i, tab := range s.tabs {
		out[i] = *tab
	}
	return out
}

// Len returns the number of open tabs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tabs)
}

func (s *Store) activateLocked(id string) {
	s.clock++
	for _, tab := range s.tabs {
		tab.Active = tab.ID == id
		if tab.Active {
			tab.LastActivated = s.clock
		}
	}
	s.activeID = id
}

// lruLocked returns the inactive tab activated least recently.
func (s *Store) lruLocked() *Tab {
	var oldest *Tab
	for _, tab := range s.tabs {
		if tab.ID == s.activeID {
			continue
		}
		if oldest == nil || tab.LastActivated < oldest.LastActivated {
			oldest = tab
		}
	}
	return oldest
}

func (s *Store) evictLocked(tab *Tab) *Tab {
	s.removeLocked(tab)
	s.metrics.RecordEviction()
	evicted := *tab
	return &evicted
}

func (s *Store) removeLocked(tab *Tab) {
	idx := s.indexLocked(tab.ID)
	wasActive := tab.ID == s.activeID

	s.tabs = append(s.tabs[:idx], s.tabs[idx+1:]...)
	delete(s.byID, tab.ID)
	tab.release()
	s.metrics.AddTabs(-1)

	switch {
	case len(s.tabs) == 0:
		s.activeID = ""
	case wasActive:
		s.activateLocked(s.tabs[min(idx, len(s.tabs)-1)].ID)
	}
}

func (s *Store) indexLocked(id string) int {
	for i, tab := range s.tabs {
		if tab.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) findByPathLocked(path string) *Tab {
	for _, tab := range s.tabs {
		if tab.Path == path {
			return tab
		}
	}
	return nil
}

// uniqueIDLocked returns the id for path, salted when another open path
// already hashes to it.
func (s *Store) uniqueIDLocked(path string) string {
	base := IDFor(path)
	id := base
	for n := 1; ; n++ {
		if _, taken := s.byID[id]; !taken {
			return id
		}
		id = base + "-" + strconv.Itoa(n)
	}
}
