package blocks

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/lens/internal/dom"
	"github.com/GriffinCanCode/lens/internal/render"
)

// Surface is the live tree a renderer materializes containers in. Every
// write goes through Commit so that a pass superseded by a new attachment
// cannot touch the new content.
type Surface interface {
	Token() dom.Token
	Find(selector string) []*html.Node
	Contains(node *html.Node) bool
	Commit(token dom.Token, node *html.Node, fn func(*goquery.Selection)) bool
}

// Report summarizes one rendering pass.
type Report struct {
	Rendered int
	Failed   int
	Skipped  int
	// Stale is 1 when the pass stopped because its tree was replaced.
	Stale int
}

// Superseded reports whether the pass stopped early.
func (r Report) Superseded() bool { return r.Stale > 0 }

// pendingSelector matches containers of the given class that have not
// settled yet.
func pendingSelector(class string) string {
	return "." + class +
		":not(." + class + render.RenderedSuffix + ")" +
		":not(." + class + render.FailedSuffix + ")"
}

// containerID returns the block id of n, or a positional fallback for
// hand-written containers that lack one.
func containerID(n *html.Node, attr, prefix string, index int) string {
	if id := htmlquery.SelectAttr(n, attr); id != "" {
		return id
	}
	return prefix + "-anon-" + strconv.Itoa(index)
}

// markRendered settles a container successfully.
func markRendered(sel *goquery.Selection, class string) {
	sel.AddClass(class + render.RenderedSuffix)
}

// writeError replaces the container's content with an escaped message and
// settles it as failed.
func writeError(sel *goquery.Selection, class, msg string) {
	div := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: render.ErrorClass}},
	}
	div.AppendChild(&html.Node{Type: html.TextNode, Data: msg})
	sel.Empty()
	sel.AppendNodes(div)
	sel.AddClass(class + render.FailedSuffix)
}
