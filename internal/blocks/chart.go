package blocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/lens/internal/logging"
	"github.com/GriffinCanCode/lens/internal/render"
)

// Dark theme defaults for chart text and gridlines.
const (
	DarkTextColor = "#c9d1d9"
	DarkGridColor = "#30363d"
)

// CanvasClass marks the drawing surface created for a chart.
const CanvasClass = "lens-chart-canvas"

var allowedChartTypes = map[string]struct{}{
	"bar": {}, "line": {}, "pie": {}, "doughnut": {},
	"radar": {}, "polarArea": {}, "bubble": {}, "scatter": {},
}

var errMissingFields = errors.New(`chart config must have "type" and "data" properties`)

// ChartConfig is the whitelisted configuration handed to a chart engine.
// Fields outside it never reach the engine.
type ChartConfig struct {
	Type    string         `json:"type"`
	Data    map[string]any `json:"data"`
	Options ChartOptions   `json:"options"`
}

// ChartOptions holds the accepted option subset and fixed presentation
// settings.
type ChartOptions struct {
	Responsive          bool           `json:"responsive"`
	MaintainAspectRatio bool           `json:"maintainAspectRatio"`
	Animation           ChartAnimation `json:"animation"`
	Color               string         `json:"color,omitempty"`
	Scales              map[string]any `json:"scales"`
	Plugins             ChartPlugins   `json:"plugins"`
	IndexAxis           string         `json:"indexAxis,omitempty"`
}

type ChartAnimation struct {
	Duration int `json:"duration"`
}

type ChartPlugins struct {
	Legend map[string]any `json:"legend"`
	Title  map[string]any `json:"title"`
}

// ChartInstance is a live chart bound to a canvas.
type ChartInstance interface {
	Destroy()
}

// ChartEngine draws a chart onto a freshly created canvas element.
type ChartEngine interface {
	Create(id string, canvas *html.Node, cfg ChartConfig) (ChartInstance, error)
}

type chartRecord struct {
	inst   ChartInstance
	canvas *html.Node
}

// ChartRenderer materializes chart placeholders and owns the chart
// instances it created, keyed by container id.
type ChartRenderer struct {
	engine ChartEngine
	logger *zap.Logger

	mu        sync.Mutex
	instances map[string]chartRecord
}

// NewChartRenderer creates a chart renderer. A nil engine uses the
// hydration engine.
func NewChartRenderer(engine ChartEngine, logger *zap.Logger) *ChartRenderer {
	if engine == nil {
		engine = HydrationEngine{}
	}
	return &ChartRenderer{
		engine:    engine,
		logger:    logging.OrNop(logger).Named("chart"),
		instances: make(map[string]chartRecord),
	}
}

// Render processes every pending chart container in document order.
func (r *ChartRenderer) Render(ctx context.Context, s Surface, dark bool) Report {
	var report Report
	token := s.Token()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(s)

	for i, n := range s.Find(pendingSelector(render.ChartClass)) {
		if ctx.Err() != nil {
			break
		}
		id := containerID(n, render.ChartIDAttr, "chart", i)

		configNode := htmlquery.FindOne(n, `.//*[contains(concat(" ", normalize-space(@class), " "), " `+render.ChartConfigClass+` ")]`)
		if configNode == nil {
			report.Skipped++
			continue
		}
		raw := htmlquery.InnerText(configNode)

		var (
			write   func(*goquery.Selection)
			failed  bool
			skipped bool
		)
		if strings.TrimSpace(raw) == "" {
			skipped = true
			write = func(sel *goquery.Selection) { markRendered(sel, render.ChartClass) }
		} else if cfg, err := BuildChartConfig(raw, dark); err != nil {
			failed = true
			msg := "Chart: " + err.Error()
			write = func(sel *goquery.Selection) { writeError(sel, render.ChartClass, msg) }
		} else {
			write = func(sel *goquery.Selection) {
				if err := r.createLocked(sel, id, cfg); err != nil {
					failed = true
					writeError(sel, render.ChartClass, "Chart: "+err.Error())
					return
				}
				markRendered(sel, render.ChartClass)
			}
		}

		if !s.Commit(token, n, write) {
			r.logger.Debug("Discarded stale chart write", zap.String("id", id))
			report.Stale = 1
			return report
		}
		switch {
		case skipped:
			report.Skipped++
		case failed:
			r.logger.Debug("Chart failed", zap.String("id", id))
			report.Failed++
		default:
			report.Rendered++
		}
	}
	return report
}

// createLocked disposes any prior instance with the same id, then draws a
// new chart into a fresh canvas.
func (r *ChartRenderer) createLocked(sel *goquery.Selection, id string, cfg ChartConfig) error {
	r.destroyLocked(id)

	canvas := &html.Node{
		Type:     html.ElementNode,
		Data:     "canvas",
		DataAtom: atom.Canvas,
		Attr: []html.Attribute{
			{Key: "id", Val: id},
			{Key: "class", Val: CanvasClass},
		},
	}
	sel.Empty()
	sel.AppendNodes(canvas)

	inst, err := r.engine.Create(id, canvas, cfg)
	if err != nil {
		return err
	}
	r.instances[id] = chartRecord{inst: inst, canvas: canvas}
	return nil
}

func (r *ChartRenderer) destroyLocked(id string) {
	if rec, ok := r.instances[id]; ok {
		rec.inst.Destroy()
		delete(r.instances, id)
	}
}

// pruneLocked destroys instances whose canvas is no longer in the tree.
func (r *ChartRenderer) pruneLocked(s Surface) {
	for id, rec := range r.instances {
		if !s.Contains(rec.canvas) {
			rec.inst.Destroy()
			delete(r.instances, id)
		}
	}
}

// DestroyAll disposes every live instance.
func (r *ChartRenderer) DestroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.instances {
		rec.inst.Destroy()
		delete(r.instances, id)
	}
}

// Live returns the number of live instances.
func (r *ChartRenderer) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// BuildChartConfig parses raw chart source and keeps only the whitelisted
// fields. With dark set, text and grid colors the source leaves unspecified
// get dark theme defaults.
func BuildChartConfig(raw string, dark bool) (ChartConfig, error) {
	var src map[string]any
	if err := sonic.UnmarshalString(raw, &src); err != nil {
		return ChartConfig{}, fmt.Errorf("invalid chart config: %w", err)
	}

	kind, _ := src["type"].(string)
	data, hasData := src["data"]
	if kind == "" || !hasData || data == nil {
		return ChartConfig{}, errMissingFields
	}
	if _, ok := allowedChartTypes[kind]; !ok {
		return ChartConfig{}, fmt.Errorf("unsupported chart type: %s", kind)
	}
	dataObj, ok := data.(map[string]any)
	if !ok {
		return ChartConfig{}, errors.New(`chart "data" must be an object`)
	}

	opts, _ := src["options"].(map[string]any)
	plugins, _ := opts["plugins"].(map[string]any)

	cfg := ChartConfig{
		Type: kind,
		Data: dataObj,
		Options: ChartOptions{
			Responsive:          true,
			MaintainAspectRatio: true,
			Animation:           ChartAnimation{Duration: 300},
			Scales:              objects(opts["scales"]),
			Plugins: ChartPlugins{
				Legend: object(plugins["legend"]),
				Title:  object(plugins["title"]),
			},
		},
	}
	if axis, _ := opts["indexAxis"].(string); axis == "x" || axis == "y" {
		cfg.Options.IndexAxis = axis
	}

	if dark {
		cfg.Options.Color = DarkTextColor
		applyDarkScales(cfg.Options.Scales)
		setDefault(cfg.Options.Plugins.Legend, "labels", "color", DarkTextColor)
		if len(cfg.Options.Plugins.Title) > 0 {
			if _, ok := cfg.Options.Plugins.Title["color"]; !ok {
				cfg.Options.Plugins.Title["color"] = DarkTextColor
			}
		}
	}
	return cfg, nil
}

func applyDarkScales(scales map[string]any) {
	for _, axis := range []string{"x", "y"} {
		if _, ok := scales[axis]; !ok {
			scales[axis] = map[string]any{}
		}
	}
	for _, v := range scales {
		scale := v.(map[string]any)
		setDefault(scale, "ticks", "color", DarkTextColor)
		setDefault(scale, "grid", "color", DarkGridColor)
	}
}

// setDefault sets m[outer][key] = value unless already present. A missing
// or null outer entry becomes an object; any other non-object value is the
// author's and stays as it is.
func setDefault(m map[string]any, outer, key, value string) {
	if m[outer] == nil {
		m[outer] = map[string]any{}
	}
	inner, ok := m[outer].(map[string]any)
	if !ok {
		return
	}
	if _, ok := inner[key]; !ok {
		inner[key] = value
	}
}

func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// objects keeps the object-valued entries of v.
func objects(v any) map[string]any {
	out := map[string]any{}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, entry := range m {
		if obj, ok := entry.(map[string]any); ok {
			out[k] = obj
		}
	}
	return out
}
