package render

import (
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/lens/internal/shared/paths"
)

var defaultSkipPrefixes = []string{"http://", "https://", "data:", "mailto:", "/", "#"}

// Resolver rewrites relative src, href and poster references against a document's
// base-directory identifier.
type Resolver struct {
	skip []string
}

// NewResolver returns a resolver that leaves references with any of the
// default prefixes or the given resource schemes untouched.
func NewResolver(resourceSchemes []string) *Resolver {
	skip := append([]string{}, defaultSkipPrefixes...)
	for _, s := range resourceSchemes {
		skip = append(skip, strings.ToLower(s)+":")
	}
	return &Resolver{skip: skip}
}

// Resolve returns the rewritten reference, or ref unchanged when it is
// absolute, already a resource, malformed or escapes the base.
func (r *Resolver) Resolve(ref, base string) string {
	if base == "" || ref == "" {
		return ref
	}
	lower := strings.ToLower(ref)
	for _, prefix := range r.skip {
		if strings.HasPrefix(lower, prefix) {
			return ref
		}
	}

	decoded, err := url.PathUnescape(ref)
	if err != nil {
		return ref
	}
	if paths.IsTraversal(decoded) {
		return ref
	}
	ref = strings.TrimPrefix(ref, "./")
	if !strings.HasSuffix(base, "/") {
		return base + "/" + ref
	}
	return base + ref
}

// finish parses sanitized markup into an inert fragment tree, resolves
// references, hardens form controls, collects block placeholders and
// serializes the result.
func (r *Resolver) finish(markup, base string) (*Fragment, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, err
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	var drop []*html.Node
	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if n.DataAtom == atom.Input {
			if !hardenInput(n) {
				drop = append(drop, n)
			}
			return
		}
		for i := range n.Attr {
			if n.Attr[i].Namespace == "" && isReference(n.Attr[i].Key) {
				n.Attr[i].Val = r.Resolve(n.Attr[i].Val, base)
			}
		}
	})
	for _, n := range drop {
		n.Parent.RemoveChild(n)
	}

	frag := &Fragment{Blocks: collectBlocks(root)}

	var b strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return nil, err
		}
	}
	frag.HTML = b.String()
	return frag, nil
}

func isReference(key string) bool {
	return key == "src" || key == "href" || key == "poster"
}

// hardenInput keeps only checkboxes and forces them disabled. It reports
// whether the element should stay.
func hardenInput(n *html.Node) bool {
	if !strings.EqualFold(htmlquery.SelectAttr(n, "type"), "checkbox") {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "disabled" {
			return true
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "disabled"})
	return true
}

func collectBlocks(root *html.Node) []Block {
	var blocks []Block
	for _, n := range htmlquery.Find(root, blockContainerPath) {
		if id := htmlquery.SelectAttr(n, DiagramIDAttr); id != "" {
			blocks = append(blocks, Block{Kind: BlockDiagram, ID: id, Source: htmlquery.InnerText(n)})
			continue
		}
		id := htmlquery.SelectAttr(n, ChartIDAttr)
		if id == "" {
			continue
		}
		src := n
		if pre := htmlquery.FindOne(n, chartConfigXPath); pre != nil {
			src = pre
		}
		blocks = append(blocks, Block{Kind: BlockChart, ID: id, Source: htmlquery.InnerText(src)})
	}
	return blocks
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
