package blocks

import (
	"fmt"

	"github.com/bytedance/sonic"
	"golang.org/x/net/html"
)

// ChartSpecAttr carries the serialized config on a hydration canvas.
const ChartSpecAttr = "data-chart-spec"

// HydrationEngine defers drawing to the host: it serializes the whitelisted
// config onto the canvas, where the host's chart library picks it up.
type HydrationEngine struct{}

func (HydrationEngine) Create(id string, canvas *html.Node, cfg ChartConfig) (ChartInstance, error) {
	spec, err := sonic.ConfigStd.MarshalToString(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart %s: %w", id, err)
	}
	canvas.Attr = append(canvas.Attr, html.Attribute{Key: ChartSpecAttr, Val: spec})
	return &hydratedChart{canvas: canvas}, nil
}

type hydratedChart struct {
	canvas *html.Node
}

// Destroy detaches the canvas so the host tears down its chart.
func (c *hydratedChart) Destroy() {
	if c.canvas.Parent != nil {
		c.canvas.Parent.RemoveChild(c.canvas)
	}
}
