package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/cespare/xxhash/v2"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// newMarkdown builds the markdown transformer: GFM with attribute-based table
// alignment (style attributes never survive sanitization), typographic
// punctuation, hard line breaks and raw HTML passthrough. Diagram and chart
// fences are intercepted before any code block renderer sees them.
func newMarkdown(opts Options) goldmark.Markdown {
	htmlOpts := []renderer.Option{
		html.WithHardWraps(),
		html.WithUnsafe(),
	}

	var code renderer.NodeRenderer
	if opts.Highlight {
		code = highlighting.NewHTMLRenderer(
			highlighting.WithStyle(opts.HighlightStyle),
			highlighting.WithFormatOptions(
				chromahtml.WithClasses(true),
			),
		)
	} else {
		code = html.NewRenderer(html.WithHardWraps(), html.WithUnsafe())
	}

	htmlOpts = append(htmlOpts, renderer.WithNodeRenderers(
		util.Prioritized(&fenceRenderer{fallback: captureFence(code)}, 100),
	))

	return goldmark.New(
		goldmark.WithExtensions(
			extension.Linkify,
			extension.NewTable(
				extension.WithTableCellAlignMethod(extension.TableCellAlignAttribute),
			),
			extension.Strikethrough,
			extension.TaskList,
			extension.Typographer,
		),
		goldmark.WithRendererOptions(htmlOpts...),
	)
}

// funcCapture records the fenced code block function a renderer registers.
type funcCapture struct {
	fn renderer.NodeRendererFunc
}

func (c *funcCapture) Register(kind ast.NodeKind, fn renderer.NodeRendererFunc) {
	if kind == ast.KindFencedCodeBlock {
		c.fn = fn
	}
}

func captureFence(r renderer.NodeRenderer) renderer.NodeRendererFunc {
	c := &funcCapture{}
	r.RegisterFuncs(c)
	return c.fn
}

// fenceRenderer turns diagram and chart fences into inert placeholders and
// hands every other fence to the code block renderer.
type fenceRenderer struct {
	fallback renderer.NodeRendererFunc
}

func (r *fenceRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *fenceRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.FencedCodeBlock)
	// Only the first word of the info string names the language, so
	// "mermaid title" is still a diagram.
	lang := strings.ToLower(string(n.Language(source)))

	switch {
	case isDiagramLang(lang):
		if entering {
			body := fenceBody(n, source)
			_, _ = fmt.Fprintf(w, `<div class="%s" %s="%s">`, DiagramClass, DiagramIDAttr, blockID("mermaid", n, body))
			_, _ = w.Write(util.EscapeHTML(body))
			_, _ = w.WriteString("</div>\n")
		}
		return ast.WalkContinue, nil
	case isChartLang(lang):
		if entering {
			body := fenceBody(n, source)
			_, _ = fmt.Fprintf(w, `<div class="%s" %s="%s"><pre class="%s">`, ChartClass, ChartIDAttr, blockID("chart", n, body), ChartConfigClass)
			_, _ = w.Write(util.EscapeHTML(body))
			_, _ = w.WriteString("</pre></div>\n")
		}
		return ast.WalkContinue, nil
	default:
		return r.fallback(w, source, node, entering)
	}
}

func fenceBody(n *ast.FencedCodeBlock, source []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.Bytes()
}

// blockID is derived from the fence position and body so that the same
// document always yields the same ids while two identical fences still differ.
func blockID(prefix string, n *ast.FencedCodeBlock, body []byte) string {
	offset := 0
	if n.Info != nil {
		offset = n.Info.Segment.Start
	}
	sum := strconv.FormatUint(xxhash.Sum64(body)&0xffffffff, 36)
	return prefix + "-" + strconv.Itoa(offset) + "-" + sum
}
