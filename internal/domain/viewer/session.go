package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/lens/internal/blocks"
	"github.com/GriffinCanCode/lens/internal/dom"
	"github.com/GriffinCanCode/lens/internal/domain/tabs"
	"github.com/GriffinCanCode/lens/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/lens/internal/logging"
	"github.com/GriffinCanCode/lens/internal/render"
	"github.com/GriffinCanCode/lens/internal/settings"
	"github.com/GriffinCanCode/lens/internal/shared/id"
	"github.com/GriffinCanCode/lens/internal/theme"
	"github.com/GriffinCanCode/lens/internal/toc"
)

// ErrClosed is returned by Handle after Close.
var ErrClosed = errors.New("session closed")

const defaultEventBuffer = 64

// Options configures a Session.
type Options struct {
	// MaxTabs overrides the maxTabs setting default when positive.
	MaxTabs     int
	Diagrams    blocks.DiagramEngine
	Charts      blocks.ChartEngine
	Settings    settings.Store
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
	EventBuffer int
}

// Session is one viewer: its tabs, live document, outline and theme.
// Commands are handled one at a time and every display pass completes
// before the next command starts.
type Session struct {
	id       id.SessionID
	pipeline *render.Pipeline
	store    *tabs.Store
	doc      *dom.Document
	viewport *dom.Viewport
	outline  *toc.Index
	diagrams *blocks.DiagramRenderer
	charts   *blocks.ChartRenderer
	theme    *theme.Manager
	persist  settings.Store
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	events   chan Event

	mu        sync.Mutex
	settings  settings.Settings // Protected by mu
	pending   []Event           // Protected by mu
	scrollTop float64           // Protected by mu
	opened    bool              // Protected by mu
	closed    bool              // Protected by mu
}

// New creates a session rendering through pipeline.
func New(pipeline *render.Pipeline, opts Options) *Session {
	sid := id.NewSessionID()
	logger := logging.OrNop(opts.Logger).Named("viewer").With(zap.String("session", sid.String()))

	current := settings.Defaults()
	if opts.MaxTabs > 0 {
		current.MaxTabs = opts.MaxTabs
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	s := &Session{
		id:       sid,
		pipeline: pipeline,
		store:    tabs.NewStore(current.MaxTabs).WithMetrics(opts.Metrics),
		doc:      dom.NewDocument(),
		viewport: dom.NewViewport(),
		diagrams: blocks.NewDiagramRenderer(opts.Diagrams, pipeline.Sanitizer(), logger),
		charts:   blocks.NewChartRenderer(opts.Charts, logger),
		theme:    theme.NewManager(),
		persist:  opts.Settings,
		metrics:  opts.Metrics,
		logger:   logger,
		events:   make(chan Event, buffer),
		settings: current,
	}
	s.outline = toc.New(s.doc.Content(), s.doc.Sidebar(), s.viewport, s,
		toc.WithActiveHandler(s.outlineActive),
		toc.WithLogger(logger))
	return s
}

// ID returns the session id.
func (s *Session) ID() id.SessionID { return s.id }

// Events returns the outbound message stream. It is closed by Close.
func (s *Session) Events() <-chan Event { return s.events }

// Start loads persisted settings and announces the session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.persist != nil {
		loaded, err := s.persist.Load()
		if err != nil {
			s.logger.Warn("Failed to load settings, using defaults", zap.Error(err))
		}
		s.applySettings(loaded)
	}

	s.emit(Ready{Type: TypeReady, SessionID: s.id.String()})
	s.emit(s.snapshot())
	return s.flush(ctx)
}

// Handle applies one command and publishes the resulting events.
func (s *Session) Handle(ctx context.Context, cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	err := s.dispatch(ctx, cmd)
	if ferr := s.flush(ctx); err == nil {
		err = ferr
	}
	return err
}

// Snapshot returns the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Settings returns the current settings.
func (s *Session) Settings() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Close releases the session and closes the event stream.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.outline.Close()
	s.charts.DestroyAll()
	close(s.events)
}

// ScrollTo implements toc.Navigator.
func (s *Session) ScrollTo(id, behavior string) {
	s.emit(ScrollTo{Type: TypeScrollTo, ID: id, Behavior: behavior})
}

func (s *Session) outlineActive(id string) {
	s.emit(OutlineActive{Type: TypeOutlineActive, ID: id})
}

func (s *Session) dispatch(ctx context.Context, cmd Command) error {
	switch c := cmd.(type) {
	case OpenDocument:
		s.opened = true
		s.saveScroll()
		res, err := s.store.Open(c.Document())
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", c.Path, err)
		}
		if res.Evicted != nil {
			s.logger.Info("Evicted tab", zap.String("tab", res.Evicted.ID), zap.String("path", res.Evicted.Path))
		}
		return s.display(ctx)

	case UpdateDocument:
		tab, ok := s.store.UpdateContent(c.Path, c.Content)
		if ok && tab.Active {
			return s.display(ctx)
		}

	case CloseDocument:
		if tab, ok := s.store.FindByPath(c.Path); ok {
			return s.closeTab(ctx, tab.ID)
		}

	case CloseTab:
		return s.closeTab(ctx, c.ID)

	case ActivateTab:
		s.saveScroll()
		if s.store.Activate(c.ID) {
			return s.display(ctx)
		}

	case Viewport:
		s.scrollTop = c.ScrollTop
		if tab, ok := s.store.Active(); ok {
			s.store.SaveScroll(tab.ID, c.ScrollTop)
		}
		s.viewport.Update(c.ScrollTop, c.Height, c.Offsets)

	case Navigate:
		if !s.outline.Navigate(c.ID) {
			s.logger.Debug("Ignored navigation to unknown heading", zap.String("id", c.ID))
		}

	case ToggleOutline:
		visible := s.outline.Toggle()
		s.settings.TocVisible = visible
		s.persistSettings()
		s.emit(SettingChanged{Type: TypeSettingChanged, Key: settings.KeyTocVisible, Value: visible})
		s.emit(s.snapshot())

	case ThemeToggle:
		pref := s.theme.Toggle()
		s.settings.Theme = string(pref)
		s.persistSettings()
		s.emit(SettingChanged{Type: TypeSettingChanged, Key: settings.KeyTheme, Value: string(pref)})
		return s.redisplay(ctx)

	case InitSettings:
		loaded, err := settings.FromMap(c.Settings)
		if err != nil {
			s.logger.Warn("Ignored invalid settings", zap.Error(err))
		}
		s.applySettings(loaded)
		s.setHost(c.HostTheme)
		return s.redisplay(ctx)

	case HostTheme:
		before := s.theme.Effective()
		s.setHost(c.Mode)
		if s.theme.Effective() != before {
			return s.redisplay(ctx)
		}
		s.emit(s.snapshot())

	case ChangeSetting:
		next := s.settings
		if err := next.Set(c.Key, c.Value); err != nil {
			return err
		}
		s.applySettings(next)
		s.persistSettings()
		value, _ := next.Get(c.Key)
		s.emit(SettingChanged{Type: TypeSettingChanged, Key: c.Key, Value: value})
		if c.Key == settings.KeyTheme {
			return s.redisplay(ctx)
		}
		s.emit(s.snapshot())

	default:
		s.logger.Debug("Ignored command", zap.String("type", cmd.CommandType()))
	}
	return nil
}

// setHost records the host theme. Unknown values keep the current one.
func (s *Session) setHost(value string) {
	if value == "" {
		return
	}
	mode, ok := theme.ParseMode(value)
	if !ok {
		s.logger.Debug("Ignored host theme", zap.String("value", value))
		return
	}
	s.theme.SetHost(mode)
}

// display renders the active tab into the document, materializes its
// blocks and rebuilds the outline.
func (s *Session) display(ctx context.Context) error {
	tab, ok := s.store.Active()
	if !ok {
		s.showEmpty()
		return nil
	}

	fragment := tab.Rendered
	cached := tab.Cached()
	s.metrics.RecordCache(cached)
	if !cached {
		start := time.Now()
		var err error
		fragment, err = s.pipeline.Render(render.Input{
			Content:  tab.Content,
			Kind:     tab.Kind,
			BasePath: tab.BaseURI,
		})
		s.metrics.RecordRender(tab.Kind.String(), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", tab.Path, err)
		}
		s.store.SetRendered(tab.ID, fragment)
	}

	s.doc.Attach(fragment.HTML)
	s.scrollTop = tab.ScrollOffset
	s.renderBlocks(ctx)
	s.outline.Rebuild()

	s.emit(TabActivated{Type: TypeTabActivated, Name: tab.Name})
	s.emit(s.snapshot())
	return nil
}

func (s *Session) renderBlocks(ctx context.Context) {
	diagrams := s.diagrams.Render(ctx, s.doc, s.theme.DiagramTheme())
	s.metrics.RecordBlocks(string(render.BlockDiagram), diagrams.Rendered, diagrams.Failed, diagrams.Stale)
	if diagrams.Superseded() {
		return
	}
	charts := s.charts.Render(ctx, s.doc, s.theme.IsDark())
	s.metrics.RecordBlocks(string(render.BlockChart), charts.Rendered, charts.Failed, charts.Stale)
}

// redisplay re-renders the active tab, for changes that alter rendered
// output such as the theme.
func (s *Session) redisplay(ctx context.Context) error {
	tab, ok := s.store.Active()
	if !ok {
		s.emit(s.snapshot())
		return nil
	}
	s.saveScroll()
	s.store.MarkDirty(tab.ID)
	return s.display(ctx)
}

func (s *Session) closeTab(ctx context.Context, id string) error {
	active, hadActive := s.store.Active()
	if _, ok := s.store.Close(id); !ok {
		return nil
	}
	// Closing a background tab leaves the attached document as is.
	if hadActive && active.ID != id {
		s.emit(s.snapshot())
		return nil
	}
	return s.display(ctx)
}

func (s *Session) showEmpty() {
	s.doc.Clear()
	s.charts.DestroyAll()
	s.outline.Rebuild()
	s.scrollTop = 0
	if s.opened {
		s.emit(AllTabsClosed{Type: TypeAllTabsClosed})
	}
	s.emit(s.snapshot())
}

func (s *Session) saveScroll() {
	if tab, ok := s.store.Active(); ok {
		s.store.SaveScroll(tab.ID, s.scrollTop)
	}
}

func (s *Session) applySettings(next settings.Settings) {
	s.settings = next
	s.theme.Initialize(next.Theme)
	s.outline.SetVisible(next.TocVisible)
	for _, tab := range s.store.SetMaxTabs(next.MaxTabs) {
		s.logger.Info("Evicted tab", zap.String("tab", tab.ID), zap.String("path", tab.Path))
	}
}

func (s *Session) persistSettings() {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(s.settings); err != nil {
		s.logger.Warn("Failed to persist settings", zap.Error(err))
	}
}

func (s *Session) snapshot() View {
	all := s.store.Tabs()
	view := View{
		Type:       TypeView,
		Empty:      len(all) == 0,
		Tabs:       make([]TabView, len(all)),
		Content:    s.doc.HTML(),
		Outline:    s.doc.Sidebar().HTML(),
		Entries:    s.outline.Entries(),
		TocVisible: s.outline.Visible(),
		ScrollTop:  s.scrollTop,
		Theme:      s.theme.Effective(),
		Palette:    s.theme.Palette(),
		Style:      s.settings.Style(),
	}
	for i, tab := range all {
		view.Tabs[i] = TabView{ID: tab.ID, Name: tab.Name, Path: tab.Path, Kind: tab.Kind, Active: tab.Active}
		if tab.Active {
			view.ActiveID = tab.ID
		}
	}
	return view
}

// emit queues an event. Callers hold s.mu; the queue is published by flush.
func (s *Session) emit(ev Event) {
	s.pending = append(s.pending, ev)
}

func (s *Session) flush(ctx context.Context) error {
	pending := s.pending
	s.pending = nil
	for _, ev := range pending {
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
