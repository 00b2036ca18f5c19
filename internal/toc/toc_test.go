package toc

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/lens/internal/dom"
)

type recordingNavigator struct {
	calls [][2]string
}

func (n *recordingNavigator) ScrollTo(id, behavior string) {
	n.calls = append(n.calls, [2]string{id, behavior})
}

func newIndex(t *testing.T, markup string, opts ...Option) (*Index, *dom.Document, *dom.Viewport, *recordingNavigator) {
	t.Helper()
	doc := dom.NewDocument()
	doc.Attach(markup)
	vp := dom.NewViewport()
	nav := &recordingNavigator{}
	return New(doc.Content(), doc.Sidebar(), vp, nav, opts...), doc, vp, nav
}

func TestRebuildAssignsPositionalIDs(t *testing.T) {
	x, doc, _, _ := newIndex(t, `<h2>Intro</h2><p>x</p><h3 id="kept">Details</h3><h3>  More  </h3>`)

	entries := x.Rebuild()

	assert.Equal(t, []Entry{
		{ID: "heading-0", Text: "Intro", Level: 2, Indent: 0},
		{ID: "kept", Text: "Details", Level: 3, Indent: 1},
		{ID: "heading-2", Text: "More", Level: 3, Indent: 1},
	}, entries)
	assert.Contains(t, doc.HTML(), `<h2 id="heading-0">Intro</h2>`)
	assert.Contains(t, doc.HTML(), `<h3 id="heading-2">`)
}

func TestRebuildIsDeterministic(t *testing.T) {
	markup := `<h1>A</h1><h4>B</h4>`
	a, _, _, _ := newIndex(t, markup)
	b, _, _, _ := newIndex(t, markup)
	assert.Equal(t, a.Rebuild(), b.Rebuild())
}

func TestOutlineMarkup(t *testing.T) {
	x, doc, _, _ := newIndex(t, `<h3 id="a b&quot;c">Title &lt;x&gt;</h3><h4>Sub</h4>`)
	x.Rebuild()

	side := doc.Sidebar().HTML()
	assert.Contains(t, side, `<div class="toc-title">Contents</div>`)
	assert.Contains(t, side, `<nav class="toc-nav">`)
	assert.Contains(t, side, `class="toc-entry toc-level-0" href="#abc" data-toc-id="abc"`)
	assert.Contains(t, side, `class="toc-entry toc-level-1" href="#heading-1"`)
	assert.Contains(t, side, "Title &lt;x&gt;")
}

func TestOutlineEmpty(t *testing.T) {
	x, doc, _, _ := newIndex(t, `<p>no headings here</p>`)
	assert.Empty(t, x.Rebuild())
	assert.Equal(t, `<p class="toc-empty">No headings</p>`, doc.Sidebar().HTML())
}

func TestSanitizeID(t *testing.T) {
	tests := map[string]string{
		"intro":                  "intro",
		"a.b:c_d-e":              "a.b:c_d-e",
		`x" onmouseover="alert(1)`: "xonmouseoveralert1",
		"héllo wörld":            "hllowrld",
		"#frag":                  "frag",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeID(in), in)
	}
}

func TestRebuildReplacesViewportWatch(t *testing.T) {
	x, _, vp, _ := newIndex(t, `<h1>A</h1>`)

	x.Rebuild()
	x.Rebuild()
	x.Rebuild()
	assert.Equal(t, 1, vp.Watching())

	x.Close()
	assert.Zero(t, vp.Watching())
}

func TestViewportMarksCurrentEntry(t *testing.T) {
	var active []string
	x, doc, vp, _ := newIndex(t, `<h1>A</h1><h2>B</h2>`, WithActiveHandler(func(id string) {
		active = append(active, id)
	}))
	x.Rebuild()

	vp.Update(0, 1000, map[string]float64{"heading-0": 0, "heading-1": 150})

	assert.Equal(t, []string{"heading-1"}, active)
	assert.Equal(t, "heading-1", x.Current())
	assert.Contains(t, doc.Sidebar().HTML(), `class="toc-entry toc-level-1 active"`)
	assert.NotContains(t, doc.Sidebar().HTML(), `class="toc-entry toc-level-0 active"`)
}

func TestNavigate(t *testing.T) {
	x, _, _, nav := newIndex(t, `<h1 id="top">A</h1>`)
	x.Rebuild()

	assert.True(t, x.Navigate("top"))
	assert.False(t, x.Navigate("missing"))
	require.Len(t, nav.calls, 1)
	assert.Equal(t, [2]string{"top", ScrollSmooth}, nav.calls[0])
}

func TestVisibility(t *testing.T) {
	x, doc, _, _ := newIndex(t, ``)
	assert.True(t, x.Visible())

	assert.False(t, x.Toggle())
	assert.True(t, sidebarHidden(doc))

	x.SetVisible(true)
	assert.True(t, x.Visible())
	assert.False(t, sidebarHidden(doc))
}

func sidebarHidden(doc *dom.Document) bool {
	var hidden bool
	doc.Sidebar().Update(func(s *goquery.Selection) { hidden = s.HasClass("hidden") })
	return hidden
}
