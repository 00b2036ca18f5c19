package blocks

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/lens/internal/logging"
	"github.com/GriffinCanCode/lens/internal/render"
)

// ErrNoDiagramEngine is reported in place when no engine is configured.
var ErrNoDiagramEngine = errors.New("diagram rendering is not available")

// DiagramOptions configures one engine call.
type DiagramOptions struct {
	Theme         string `json:"theme"`
	SecurityLevel string `json:"securityLevel"`
	FontFamily    string `json:"fontFamily"`
	HTMLLabels    bool   `json:"htmlLabels"`
}

// DiagramEngine lays out diagram source into vector markup. Its output is
// treated as untrusted.
type DiagramEngine interface {
	Render(ctx context.Context, id, source string, opts DiagramOptions) (string, error)
}

// SVGSanitizer cleans engine output before insertion.
type SVGSanitizer interface {
	SanitizeSVG(markup string) string
}

// DiagramRenderer materializes diagram placeholders.
type DiagramRenderer struct {
	engine    DiagramEngine
	sanitizer SVGSanitizer
	logger    *zap.Logger
}

// NewDiagramRenderer creates a diagram renderer. A nil engine renders every
// container as an error.
func NewDiagramRenderer(engine DiagramEngine, sanitizer SVGSanitizer, logger *zap.Logger) *DiagramRenderer {
	return &DiagramRenderer{
		engine:    engine,
		sanitizer: sanitizer,
		logger:    logging.OrNop(logger).Named("diagram"),
	}
}

// Render processes every pending diagram container in document order. theme
// is the engine theme name for the active light or dark mode.
func (r *DiagramRenderer) Render(ctx context.Context, s Surface, theme string) Report {
	var report Report
	token := s.Token()
	opts := DiagramOptions{
		Theme:         theme,
		SecurityLevel: "strict",
		FontFamily:    "inherit",
	}

	for i, n := range s.Find(pendingSelector(render.DiagramClass)) {
		id := containerID(n, render.DiagramIDAttr, "mermaid", i)
		source := strings.TrimSpace(htmlquery.InnerText(n))

		var (
			write  func(*goquery.Selection)
			failed bool
		)
		switch {
		case source == "":
			write = func(sel *goquery.Selection) { markRendered(sel, render.DiagramClass) }
			report.Skipped++
		default:
			svg, err := r.render(ctx, id, source, opts)
			if err != nil {
				failed = true
				r.logger.Debug("Diagram failed", zap.String("id", id), zap.Error(err))
				msg := "Mermaid: " + err.Error()
				write = func(sel *goquery.Selection) { writeError(sel, render.DiagramClass, msg) }
			} else {
				clean := r.sanitizer.SanitizeSVG(svg)
				write = func(sel *goquery.Selection) {
					sel.SetHtml(clean)
					markRendered(sel, render.DiagramClass)
				}
			}
		}

		if !s.Commit(token, n, write) {
			r.logger.Debug("Discarded stale diagram write", zap.String("id", id))
			report.Stale = 1
			return report
		}
		switch {
		case failed:
			report.Failed++
		case source != "":
			report.Rendered++
		}
	}
	return report
}

func (r *DiagramRenderer) render(ctx context.Context, id, source string, opts DiagramOptions) (string, error) {
	if r.engine == nil {
		return "", ErrNoDiagramEngine
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.engine.Render(ctx, id, source, opts)
}
