package toc

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/GriffinCanCode/lens/internal/dom"
	"github.com/GriffinCanCode/lens/internal/logging"
)

const (
	headingSelector = "h1, h2, h3, h4, h5, h6"
	hiddenClass     = "hidden"
	activeClass     = "active"
	// ScrollSmooth is the only scroll behavior the outline requests.
	ScrollSmooth = "smooth"
)

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._:-]`)

// SanitizeID strips characters that are unsafe in a fragment link or
// attribute value.
func SanitizeID(id string) string {
	return unsafeIDChars.ReplaceAllString(id, "")
}

// Entry is one heading in the outline.
type Entry struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Level  int    `json:"level"`
	Indent int    `json:"indent"`
}

// Navigator performs in-document scrolling. Implementations must not push
// navigation history.
type Navigator interface {
	ScrollTo(id, behavior string)
}

// Index derives the outline from the content region and tracks the current
// heading through the viewport.
type Index struct {
	content  *dom.Region
	sidebar  *dom.Region
	viewport *dom.Viewport
	nav      Navigator
	onActive func(id string)
	logger   *zap.Logger

	mu      sync.Mutex
	entries []Entry
	dispose dom.Disposer
	current string
	visible bool
}

// Option configures an Index.
type Option func(*Index)

// WithActiveHandler registers fn to be called with the sanitized id of the
// entry that becomes current.
func WithActiveHandler(fn func(id string)) Option {
	return func(x *Index) { x.onActive = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(x *Index) { x.logger = logger }
}

// New creates an index over the given regions. The outline starts visible.
func New(content, sidebar *dom.Region, viewport *dom.Viewport, nav Navigator, opts ...Option) *Index {
	x := &Index{
		content:  content,
		sidebar:  sidebar,
		viewport: viewport,
		nav:      nav,
		visible:  true,
	}
	for _, opt := range opts {
		opt(x)
	}
	x.logger = logging.OrNop(x.logger).Named("toc")
	return x
}

// Rebuild rescans headings, renders the outline and re-observes the
// headings. It returns the new entries.
func (x *Index) Rebuild() []Entry {
	var entries []Entry
	x.content.Update(func(sel *goquery.Selection) {
		sel.Find(headingSelector).Each(func(i int, h *goquery.Selection) {
			id, _ := h.Attr("id")
			if id == "" {
				id = "heading-" + strconv.Itoa(i)
				h.SetAttr("id", id)
			}
			entries = append(entries, Entry{
				ID:    id,
				Text:  strings.TrimSpace(h.Text()),
				Level: int(goquery.NodeName(h)[1] - '0'),
			})
		})
	})

	if len(entries) > 0 {
		minLevel := entries[0].Level
		for _, e := range entries[1:] {
			minLevel = min(minLevel, e.Level)
		}
		for i := range entries {
			entries[i].Indent = entries[i].Level - minLevel
		}
	}

	nodes := outline(entries)
	x.sidebar.Update(func(sel *goquery.Selection) {
		sel.Empty()
		sel.AppendNodes(nodes...)
	})

	x.mu.Lock()
	if x.dispose != nil {
		x.dispose()
	}
	x.entries = entries
	x.current = ""
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	x.dispose = x.viewport.Observe(ids, x.SetCurrent)
	x.mu.Unlock()

	x.logger.Debug("Rebuilt outline", zap.Int("entries", len(entries)))
	return entries
}

// Entries returns the current outline.
func (x *Index) Entries() []Entry {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]Entry(nil), x.entries...)
}

// Navigate scrolls to the heading behind an outline entry. It reports false
// for ids not in the outline.
func (x *Index) Navigate(id string) bool {
	safe := SanitizeID(id)
	x.mu.Lock()
	found := false
	for _, e := range x.entries {
		if SanitizeID(e.ID) == safe {
			found = true
			break
		}
	}
	x.mu.Unlock()

	if !found || safe == "" {
		return false
	}
	x.nav.ScrollTo(safe, ScrollSmooth)
	return true
}

// SetCurrent marks the entry for heading id as current.
func (x *Index) SetCurrent(id string) {
	safe := SanitizeID(id)
	x.mu.Lock()
	if x.current == safe {
		x.mu.Unlock()
		return
	}
	x.current = safe
	onActive := x.onActive
	x.mu.Unlock()

	x.sidebar.Update(func(sel *goquery.Selection) {
		sel.Find("a.toc-entry").Each(func(_ int, a *goquery.Selection) {
			if tocID, _ := a.Attr("data-toc-id"); tocID == safe {
				a.AddClass(activeClass)
			} else {
				a.RemoveClass(activeClass)
			}
		})
	})

	if onActive != nil {
		onActive(safe)
	}
}

// Current returns the sanitized id of the current entry, if any.
func (x *Index) Current() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.current
}

// SetVisible shows or hides the outline sidebar.
func (x *Index) SetVisible(visible bool) {
	x.mu.Lock()
	x.visible = visible
	x.mu.Unlock()

	x.sidebar.Update(func(sel *goquery.Selection) {
		if visible {
			sel.RemoveClass(hiddenClass)
		} else {
			sel.AddClass(hiddenClass)
		}
	})
}

// Toggle flips sidebar visibility and returns the new state.
func (x *Index) Toggle() bool {
	x.mu.Lock()
	visible := !x.visible
	x.mu.Unlock()

	x.SetVisible(visible)
	return visible
}

// Visible reports whether the sidebar is shown.
func (x *Index) Visible() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.visible
}

// Close disposes the viewport watch.
func (x *Index) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.dispose != nil {
		x.dispose()
		x.dispose = nil
	}
}

// outline builds the sidebar nodes for entries.
func outline(entries []Entry) []*html.Node {
	if len(entries) == 0 {
		p := element(atom.P, "p", "toc-empty")
		p.AppendChild(text("No headings"))
		return []*html.Node{p}
	}

	title := element(atom.Div, "div", "toc-title")
	title.AppendChild(text("Contents"))

	nav := element(atom.Nav, "nav", "toc-nav")
	for _, e := range entries {
		safe := SanitizeID(e.ID)
		a := element(atom.A, "a", "toc-entry toc-level-"+strconv.Itoa(e.Indent))
		a.Attr = append(a.Attr,
			html.Attribute{Key: "href", Val: "#" + safe},
			html.Attribute{Key: "data-toc-id", Val: safe},
			html.Attribute{Key: "title", Val: e.Text},
		)
		a.AppendChild(text(e.Text))
		nav.AppendChild(a)
	}
	return []*html.Node{title, nav}
}

func element(a atom.Atom, tag, class string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     tag,
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
