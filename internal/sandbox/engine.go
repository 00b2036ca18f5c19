package sandbox

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/lens/internal/blocks"
	"github.com/GriffinCanCode/lens/internal/logging"
)

// RenderFunc is the global the diagram library must define:
//
//	renderDiagram(id, source, config) -> string | {svg} | Promise of either
const RenderFunc = "renderDiagram"

// DiagramEngine runs diagram layout inside pooled goja runtimes.
type DiagramEngine struct {
	pool    *Pool
	breaker *breaker
	logger  *zap.Logger
}

// EngineOption configures a DiagramEngine.
type EngineOption func(*DiagramEngine)

// WithBreaker sets how many consecutive engine faults open the breaker and
// how long it stays open.
func WithBreaker(threshold int, cooldown time.Duration) EngineOption {
	return func(e *DiagramEngine) {
		e.breaker = newBreaker(threshold, cooldown)
	}
}

// NewDiagramEngine creates an engine over pool.
func NewDiagramEngine(pool *Pool, logger *zap.Logger, opts ...EngineOption) *DiagramEngine {
	e := &DiagramEngine{
		pool:    pool,
		breaker: newBreaker(0, 0),
		logger:  logging.OrNop(logger).Named("sandbox"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.breaker.onChange = func(from, to BreakerState) {
		e.logger.Warn("Diagram engine breaker changed state",
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	}
	return e
}

// State reports the breaker position.
func (e *DiagramEngine) State() BreakerState {
	return e.breaker.current()
}

// Render lays out source and returns the engine's vector markup.
func (e *DiagramEngine) Render(ctx context.Context, id, source string, opts blocks.DiagramOptions) (string, error) {
	config := map[string]any{
		"theme":         opts.Theme,
		"securityLevel": opts.SecurityLevel,
		"fontFamily":    opts.FontFamily,
		"htmlLabels":    opts.HTMLLabels,
	}

	if err := e.breaker.allow(time.Now()); err != nil {
		return "", err
	}
	res, err := e.pool.Call(ctx, RenderFunc, id, source, config)
	e.breaker.record(time.Now(), err)
	if res != nil {
		for _, entry := range res.Console {
			e.logger.Debug("Diagram console",
				zap.String("id", id),
				zap.String("level", entry.Level),
				zap.String("message", entry.Message))
		}
	}
	if err != nil {
		return "", err
	}

	switch v := res.Value.(type) {
	case string:
		return v, nil
	case map[string]any:
		if svg, ok := v["svg"].(string); ok {
			return svg, nil
		}
	}
	return "", fmt.Errorf("%s returned %T, want svg markup", RenderFunc, res.Value)
}

// Close releases the runtimes.
func (e *DiagramEngine) Close() error {
	if e == nil {
		return nil
	}
	return e.pool.Close()
}
