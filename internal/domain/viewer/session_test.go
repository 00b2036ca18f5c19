package viewer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/lens/internal/blocks"
	"github.com/GriffinCanCode/lens/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/lens/internal/render"
	"github.com/GriffinCanCode/lens/internal/settings"
	"github.com/GriffinCanCode/lens/internal/theme"
)

type fakeDiagrams struct {
	themes []string
}

func (f *fakeDiagrams) Render(_ context.Context, _, _ string, opts blocks.DiagramOptions) (string, error) {
	f.themes = append(f.themes, opts.Theme)
	return `<svg viewBox="0 0 10 10"><circle r="4"></circle></svg>`, nil
}

func newSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s := New(render.NewPipeline(render.DefaultOptions(), nil), opts)
	t.Cleanup(s.Close)
	return s
}

func drain(s *Session) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.EventType()
	}
	return out
}

func lastView(t *testing.T, events []Event) View {
	t.Helper()
	for i := len(events) - 1; i >= 0; i-- {
		if v, ok := events[i].(View); ok {
			return v
		}
	}
	t.Fatal("no view event")
	return View{}
}

func handle(t *testing.T, s *Session, cmd Command) []Event {
	t.Helper()
	require.NoError(t, s.Handle(context.Background(), cmd))
	return drain(s)
}

func openDoc(path, content string) OpenDocument {
	return OpenDocument{Path: path, Name: filepath.Base(path), Kind: "markdown", Content: content, BaseURI: "/resource/0/"}
}

func TestStartAnnouncesReady(t *testing.T) {
	s := newSession(t, Options{})
	require.NoError(t, s.Start(context.Background()))

	events := drain(s)
	assert.Equal(t, []string{TypeReady, TypeView}, eventTypes(events))
	assert.Equal(t, s.ID().String(), events[0].(Ready).SessionID)
	assert.True(t, lastView(t, events).Empty)
}

func TestOpenDocumentDisplays(t *testing.T) {
	s := newSession(t, Options{})

	events := handle(t, s, openDoc("/docs/a.md", "# Title\n\n## Part\n\n![x](img.png)"))
	assert.Equal(t, []string{TypeTabActivated, TypeView}, eventTypes(events))
	assert.Equal(t, "a.md", events[0].(TabActivated).Name)

	view := lastView(t, events)
	assert.False(t, view.Empty)
	require.Len(t, view.Tabs, 1)
	assert.Equal(t, view.Tabs[0].ID, view.ActiveID)
	assert.Contains(t, view.Content, `<h1 id="heading-0">Title</h1>`)
	assert.Contains(t, view.Content, `src="/resource/0/img.png"`)
	assert.Contains(t, view.Outline, "toc-entry")
	require.Len(t, view.Entries, 2)
	assert.Equal(t, 1, view.Entries[1].Indent)
}

func TestAllTabsClosedOnlyAfterOpen(t *testing.T) {
	s := newSession(t, Options{})
	require.NoError(t, s.Start(context.Background()))
	assert.NotContains(t, eventTypes(drain(s)), TypeAllTabsClosed)

	handle(t, s, openDoc("/a.md", "a"))
	events := handle(t, s, CloseDocument{Path: "/a.md"})
	assert.Equal(t, []string{TypeAllTabsClosed, TypeView}, eventTypes(events))
	assert.True(t, lastView(t, events).Empty)
	assert.Empty(t, lastView(t, events).Content)
}

func TestCloseActivatesNeighbor(t *testing.T) {
	s := newSession(t, Options{})
	handle(t, s, openDoc("/a.md", "# A"))
	handle(t, s, openDoc("/b.md", "# B"))
	handle(t, s, openDoc("/c.md", "# C"))

	view := s.Snapshot()
	a, b, c := view.Tabs[0].ID, view.Tabs[1].ID, view.Tabs[2].ID
	handle(t, s, ActivateTab{ID: b})

	events := handle(t, s, CloseTab{ID: b})
	view = lastView(t, events)
	assert.Equal(t, c, view.ActiveID)
	assert.Contains(t, view.Content, ">C</h1>")

	// Closing a background tab keeps the attached content.
	events = handle(t, s, CloseTab{ID: a})
	assert.Equal(t, []string{TypeView}, eventTypes(events))
	assert.Contains(t, lastView(t, events).Content, ">C</h1>")
}

func TestCachedFragmentReused(t *testing.T) {
	m := monitoring.NewMetrics()
	s := newSession(t, Options{Metrics: m})
	handle(t, s, openDoc("/a.md", "# A"))
	handle(t, s, openDoc("/b.md", "# B"))

	a := s.Snapshot().Tabs[0].ID
	handle(t, s, ActivateTab{ID: a})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses))

	// An update to the active document invalidates the cache.
	events := handle(t, s, UpdateDocument{Path: "/a.md", Content: "# A2"})
	assert.Contains(t, lastView(t, events).Content, "A2")
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CacheMisses))
}

func TestUpdateBackgroundDocument(t *testing.T) {
	s := newSession(t, Options{})
	handle(t, s, openDoc("/a.md", "# A"))
	handle(t, s, openDoc("/b.md", "# B"))

	events := handle(t, s, UpdateDocument{Path: "/a.md", Content: "# A2"})
	assert.Empty(t, events)
}

func TestEvictionThroughSession(t *testing.T) {
	s := newSession(t, Options{MaxTabs: 2})
	handle(t, s, openDoc("/a.md", "a"))
	handle(t, s, openDoc("/b.md", "b"))
	events := handle(t, s, openDoc("/c.md", "c"))

	view := lastView(t, events)
	require.Len(t, view.Tabs, 2)
	assert.Equal(t, "/b.md", view.Tabs[0].Path)
	assert.Equal(t, "/c.md", view.Tabs[1].Path)
}

func TestBlocksMaterialized(t *testing.T) {
	diagrams := &fakeDiagrams{}
	s := newSession(t, Options{Diagrams: diagrams})

	md := "```mermaid\ngraph TD; A-->B\n```\n\n```chart\n{\"type\":\"bar\",\"data\":{\"labels\":[\"a\"]}}\n```\n\n```chart\n{\"type\":\"pie3d\",\"data\":{}}\n```\n"
	view := lastView(t, handle(t, s, openDoc("/a.md", md)))

	assert.Contains(t, view.Content, render.DiagramClass+render.RenderedSuffix)
	assert.Contains(t, view.Content, "<svg")
	assert.Contains(t, view.Content, blocks.CanvasClass)
	assert.Contains(t, view.Content, "Chart: unsupported chart type: pie3d")
	assert.Equal(t, []string{theme.DiagramDark}, diagrams.themes)
}

func TestThemeToggleRerenders(t *testing.T) {
	diagrams := &fakeDiagrams{}
	s := newSession(t, Options{Diagrams: diagrams})
	handle(t, s, openDoc("/a.md", "```mermaid\ngraph TD; A-->B\n```"))

	events := handle(t, s, ThemeToggle{})
	assert.Equal(t, []string{TypeSettingChanged, TypeTabActivated, TypeView}, eventTypes(events))
	assert.Equal(t, SettingChanged{Type: TypeSettingChanged, Key: "theme", Value: "light"}, events[0])
	assert.Equal(t, theme.ModeLight, lastView(t, events).Theme)
	assert.Equal(t, []string{theme.DiagramDark, theme.DiagramDefault}, diagrams.themes)
}

func TestHostThemeDrivesAuto(t *testing.T) {
	diagrams := &fakeDiagrams{}
	s := newSession(t, Options{Diagrams: diagrams})
	handle(t, s, openDoc("/a.md", "```mermaid\ngraph TD; A-->B\n```"))

	view := lastView(t, handle(t, s, InitSettings{Settings: map[string]any{"theme": "auto"}, HostTheme: "light"}))
	assert.Equal(t, theme.ModeLight, view.Theme)
	assert.Equal(t, theme.ModeLight, view.Palette.Mode)
	assert.Equal(t, "#ffffff", view.Palette.Colors["background"])
	assert.Equal(t, []string{theme.DiagramDark, theme.DiagramDefault}, diagrams.themes)

	events := handle(t, s, ThemeToggle{})
	assert.Equal(t, SettingChanged{Type: TypeSettingChanged, Key: "theme", Value: "dark"}, events[0])
	assert.Equal(t, theme.ModeDark, lastView(t, events).Theme)
}

func TestHostThemeChange(t *testing.T) {
	diagrams := &fakeDiagrams{}
	s := newSession(t, Options{Diagrams: diagrams})
	handle(t, s, openDoc("/a.md", "```mermaid\ngraph TD; A-->B\n```"))

	events := handle(t, s, HostTheme{Mode: "light"})
	assert.Equal(t, theme.ModeLight, lastView(t, events).Theme)
	assert.Equal(t, []string{theme.DiagramDark, theme.DiagramDefault}, diagrams.themes)

	// Unchanged or unknown host themes only resend the view.
	events = handle(t, s, HostTheme{Mode: "light"})
	assert.Equal(t, []string{TypeView}, eventTypes(events))
	events = handle(t, s, HostTheme{Mode: "sepia"})
	assert.Equal(t, []string{TypeView}, eventTypes(events))
	assert.Equal(t, theme.ModeLight, lastView(t, events).Theme)
	assert.Len(t, diagrams.themes, 2)

	// An explicit preference ignores the host.
	handle(t, s, ChangeSetting{Key: "theme", Value: "dark"})
	events = handle(t, s, HostTheme{Mode: "light"})
	assert.Equal(t, theme.ModeDark, lastView(t, events).Theme)
}

func TestChangeSetting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := settings.NewFileStore(path)
	require.NoError(t, err)
	s := newSession(t, Options{Settings: store})

	events := handle(t, s, ChangeSetting{Key: "fontSize", Value: float64(20)})
	assert.Equal(t, SettingChanged{Type: TypeSettingChanged, Key: "fontSize", Value: 20}, events[0])
	assert.Equal(t, "20px", lastView(t, events).Style.FontSize)

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 20, persisted.FontSize)

	err = s.Handle(context.Background(), ChangeSetting{Key: "fontSize", Value: float64(40)})
	assert.ErrorIs(t, err, settings.ErrInvalidSetting)
	err = s.Handle(context.Background(), ChangeSetting{Key: "zoom", Value: float64(2)})
	assert.ErrorIs(t, err, settings.ErrUnknownSetting)
	assert.Equal(t, 20, s.Settings().FontSize)
}

func TestStartLoadsPersistedSettings(t *testing.T) {
	store, err := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	saved := settings.Defaults()
	saved.Theme = "light"
	saved.TocVisible = false
	require.NoError(t, store.Save(saved))

	s := newSession(t, Options{Settings: store})
	require.NoError(t, s.Start(context.Background()))

	view := lastView(t, drain(s))
	assert.Equal(t, theme.ModeLight, view.Theme)
	assert.False(t, view.TocVisible)
}

func TestInitSettings(t *testing.T) {
	s := newSession(t, Options{})
	handle(t, s, openDoc("/a.md", "a"))
	handle(t, s, openDoc("/b.md", "b"))
	handle(t, s, openDoc("/c.md", "c"))

	events := handle(t, s, InitSettings{Settings: map[string]any{
		"theme":      "dark",
		"maxTabs":    float64(1),
		"tocVisible": false,
		"fontSize":   "huge",
	}})

	view := lastView(t, events)
	assert.Len(t, view.Tabs, 1)
	assert.Equal(t, "/c.md", view.Tabs[0].Path)
	assert.False(t, view.TocVisible)
	assert.Equal(t, "16px", view.Style.FontSize)
}

func TestToggleOutline(t *testing.T) {
	s := newSession(t, Options{})
	events := handle(t, s, ToggleOutline{})

	assert.Equal(t, SettingChanged{Type: TypeSettingChanged, Key: "tocVisible", Value: false}, events[0])
	assert.False(t, lastView(t, events).TocVisible)
	assert.False(t, s.Settings().TocVisible)
}

func TestNavigateAndViewport(t *testing.T) {
	s := newSession(t, Options{})
	handle(t, s, openDoc("/a.md", "# One\n\n# Two"))

	events := handle(t, s, Navigate{ID: "heading-1"})
	assert.Equal(t, []Event{ScrollTo{Type: TypeScrollTo, ID: "heading-1", Behavior: "smooth"}}, events)
	assert.Empty(t, handle(t, s, Navigate{ID: "nope"}))

	events = handle(t, s, Viewport{
		ScrollTop: 400,
		Height:    1000,
		Offsets:   map[string]float64{"heading-0": 0, "heading-1": 520},
	})
	assert.Equal(t, []Event{OutlineActive{Type: TypeOutlineActive, ID: "heading-1"}}, events)

	// Scroll position survives a tab switch.
	handle(t, s, openDoc("/b.md", "b"))
	a := s.Snapshot().Tabs[0].ID
	view := lastView(t, handle(t, s, ActivateTab{ID: a}))
	assert.Equal(t, 400.0, view.ScrollTop)
}

func TestUnknownCommandsIgnored(t *testing.T) {
	s := newSession(t, Options{})
	assert.Empty(t, handle(t, s, OpenPath{Path: "x.md"}))
	assert.Empty(t, handle(t, s, CloseDocument{Path: "/missing.md"}))
	assert.Empty(t, handle(t, s, ActivateTab{ID: "tab-missing"}))
}

func TestHandleAfterClose(t *testing.T) {
	s := New(render.NewPipeline(render.DefaultOptions(), nil), Options{})
	s.Close()
	s.Close()

	assert.ErrorIs(t, s.Handle(context.Background(), ThemeToggle{}), ErrClosed)
	_, ok := <-s.Events()
	assert.False(t, ok)
}
