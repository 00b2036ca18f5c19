package dom

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Region ids of the viewer shell.
const (
	ContentID    = "content"
	SidebarID    = "toc-sidebar"
	ScrollAreaID = "content-area"
)

const shell = `<!DOCTYPE html><html><head></head><body>` +
	`<div id="` + ScrollAreaID + `"><main id="` + ContentID + `"></main></div>` +
	`<nav id="` + SidebarID + `"></nav>` +
	`</body></html>`

// Token identifies one attachment of content. Writes carrying an older token
// are stale.
type Token uint64

// Document is the live viewer tree. All access is serialized by the document
// lock, which regions share.
type Document struct {
	mu      sync.Mutex
	doc     *goquery.Document
	token   Token
	content *Region
	sidebar *Region
}

// NewDocument builds an empty viewer shell.
func NewDocument() *Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(shell))
	if err != nil {
		// The shell is a constant; parsing it cannot fail.
		panic(err)
	}
	d := &Document{doc: doc}
	d.content = &Region{doc: d, id: ContentID, sel: doc.Find("#" + ContentID)}
	d.sidebar = &Region{doc: d, id: SidebarID, sel: doc.Find("#" + SidebarID)}
	return d
}

// Content is the region fragments are attached to.
func (d *Document) Content() *Region { return d.content }

// Sidebar is the region the outline is rendered into.
func (d *Document) Sidebar() *Region { return d.sidebar }

// Attach replaces the content region with markup and invalidates every
// token issued before.
func (d *Document) Attach(markup string) Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content.sel.SetHtml(markup)
	d.token++
	return d.token
}

// Clear empties the content and sidebar regions.
func (d *Document) Clear() Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content.sel.Empty()
	d.sidebar.sel.Empty()
	d.token++
	return d.token
}

// Token returns the current attachment token.
func (d *Document) Token() Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.token
}

// Find returns the content nodes matching selector in document order.
func (d *Document) Find(selector string) []*html.Node {
	return d.content.Find(selector)
}

// Contains reports whether node is currently attached under the content
// region.
func (d *Document) Contains(node *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.containsLocked(node)
}

// Commit runs fn on node only if token is still current and node is still
// attached. It reports whether the write happened.
func (d *Document) Commit(token Token, node *html.Node, fn func(*goquery.Selection)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if token != d.token || !d.containsLocked(node) {
		return false
	}
	fn(d.content.sel.FindNodes(node))
	return true
}

// HTML serializes the content region.
func (d *Document) HTML() string {
	return d.content.HTML()
}

func (d *Document) containsLocked(node *html.Node) bool {
	root := d.content.sel.Get(0)
	for n := node; n != nil; n = n.Parent {
		if n == root {
			return node != root
		}
	}
	return false
}

// Region is one fixed subtree of the shell.
type Region struct {
	doc *Document
	id  string
	sel *goquery.Selection
}

// ID returns the element id of the region root.
func (r *Region) ID() string { return r.id }

// Find returns the region's descendants matching selector.
func (r *Region) Find(selector string) []*html.Node {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.sel.Find(selector).Nodes
}

// Update runs fn with the region root under the document lock.
func (r *Region) Update(fn func(*goquery.Selection)) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	fn(r.sel)
}

// HTML serializes the region's children.
func (r *Region) HTML() string {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	out, err := r.sel.Html()
	if err != nil {
		return ""
	}
	return out
}
