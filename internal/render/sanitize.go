package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	idPattern      = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._:-]*$`)
	fragmentRef    = regexp.MustCompile(`^#[A-Za-z][A-Za-z0-9._:-]*$`)
	blockIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	linePattern    = regexp.MustCompile(`^[0-9]+(-[0-9]+)?$`)
	checkbox       = regexp.MustCompile(`(?i)^checkbox$`)
)

var markdownElements = []string{
	"a", "abbr", "address", "article", "aside", "audio", "b", "blockquote",
	"br", "caption", "cite", "code", "col", "colgroup", "dd", "del",
	"details", "dfn", "div", "dl", "dt", "em", "figcaption", "figure",
	"footer", "h1", "h2", "h3", "h4", "h5", "h6", "header", "hr", "i", "img",
	"input", "ins", "kbd", "li", "main", "mark", "nav", "ol", "p", "picture",
	"pre", "q", "s", "samp", "section", "small", "source", "span", "strong",
	"sub", "summary", "sup", "table", "tbody", "td", "tfoot", "th", "thead",
	"time", "tr", "u", "ul", "var", "video",
}

var tableParts = []string{"td", "th", "tr", "thead", "tbody", "tfoot", "col", "colgroup"}

var htmlExtraElements = []string{
	"ruby", "rt", "rp", "bdi", "bdo", "wbr", "map", "area",
}

// Names are lowercase: bluemonday matches against tokenizer output.
var svgElements = []string{
	"svg", "g", "path", "circle", "ellipse", "line", "polyline", "polygon",
	"rect", "text", "tspan", "defs", "marker", "lineargradient",
	"radialgradient", "stop", "clippath", "title", "desc", "use",
}

var svgAttrs = []string{
	"viewbox", "width", "height", "xmlns", "fill", "fill-opacity",
	"fill-rule", "stroke", "stroke-width", "stroke-dasharray",
	"stroke-linecap", "stroke-linejoin", "stroke-opacity", "opacity", "d",
	"cx", "cy", "r", "rx", "ry", "x", "y", "x1", "y1", "x2", "y2", "dx",
	"dy", "points", "transform", "text-anchor", "dominant-baseline",
	"alignment-baseline", "font-size", "font-family", "font-weight",
	"marker-start", "marker-mid", "marker-end", "refx", "refy",
	"markerwidth", "markerheight", "markerunits", "orient", "offset",
	"stop-color", "stop-opacity", "gradientunits", "gradienttransform",
	"preserveaspectratio", "clip-path", "mask", "role",
}

// Content of these elements is dropped along with the element.
var skipContent = []string{
	"script", "style", "iframe", "object", "embed", "noembed", "noframes",
	"noscript", "template", "textarea", "select", "button", "foreignobject",
	"canvas", "head",
}

// Sanitizer holds the allow-list policies. Policies are immutable once built
// and safe for concurrent use.
type Sanitizer struct {
	markdown *bluemonday.Policy
	html     *bluemonday.Policy
	svg      *bluemonday.Policy
}

// NewSanitizer builds the markdown, html and svg policies. resourceSchemes
// are accepted in links and image sources alongside http, https and mailto.
func NewSanitizer(resourceSchemes []string) *Sanitizer {
	return &Sanitizer{
		markdown: newDocumentPolicy(ProfileMarkdown, resourceSchemes),
		html:     newDocumentPolicy(ProfileHTML, resourceSchemes),
		svg:      newSVGPolicy(),
	}
}

// Sanitize applies the profile's allow-list. ProfileAuto uses the markdown
// policy, the narrower of the two.
func (s *Sanitizer) Sanitize(markup string, profile Profile) string {
	if profile == ProfileHTML {
		return s.html.Sanitize(markup)
	}
	return s.markdown.Sanitize(markup)
}

// SanitizeSVG applies the vector-graphics-only allow-list used for diagram
// engine output.
func (s *Sanitizer) SanitizeSVG(markup string) string {
	return s.svg.Sanitize(markup)
}

func newDocumentPolicy(profile Profile, resourceSchemes []string) *bluemonday.Policy {
	elements := make([]string, 0, len(markdownElements)+len(svgElements)+len(htmlExtraElements))
	elements = append(elements, markdownElements...)
	elements = append(elements, svgElements...)
	if profile == ProfileHTML {
		elements = append(elements, htmlExtraElements...)
	}

	p := bluemonday.NewPolicy()
	p.AllowElements(elements...)
	p.AllowNoAttrs().OnElements(elements...)
	p.AllowStyling()

	p.AllowAttrs("id").Matching(idPattern).Globally()
	p.AllowAttrs("title").Globally()
	p.AllowAttrs("aria-label").Globally()
	p.AllowAttrs("aria-hidden").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	p.AllowAttrs(DiagramIDAttr, ChartIDAttr).Matching(blockIDPattern).Globally()
	p.AllowAttrs(LineAttr).Matching(linePattern).Globally()

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowAttrs("align", "colspan", "rowspan").OnElements("td", "th")
	p.AllowAttrs("valign").OnElements(tableParts...)
	p.AllowAttrs("src", "controls", "autoplay", "loop", "muted").OnElements("video", "audio")
	p.AllowAttrs("poster", "width", "height").OnElements("video")
	p.AllowAttrs("src", "type").OnElements("source")
	p.AllowAttrs("span").OnElements("col", "colgroup")
	p.AllowAttrs("start", "reversed").OnElements("ol")
	p.AllowAttrs("cite").OnElements("blockquote", "q", "del", "ins")
	p.AllowAttrs("open").OnElements("details")
	p.AllowAttrs("type").Matching(checkbox).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	p.AllowAttrs(svgAttrs...).OnElements(svgElements...)
	p.AllowAttrs("href").Matching(fragmentRef).OnElements("use")

	if profile == ProfileHTML {
		p.AllowAttrs("lang", "dir", "tabindex").Globally()
		p.AllowAttrs("headers", "scope").OnElements("td", "th")
		p.AllowAttrs("datetime").OnElements("time", "del", "ins")
		p.AllowAttrs("name").OnElements("map")
		p.AllowAttrs("href", "alt", "shape", "coords").OnElements("area")
	}

	schemes := append([]string{"http", "https", "mailto"}, resourceSchemes...)
	p.AllowURLSchemes(schemes...)
	p.AllowRelativeURLs(true)
	p.AllowDataURIImages()
	p.SkipElementsContent(skipContent...)

	return p
}

func newSVGPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(svgElements...)
	p.AllowNoAttrs().OnElements(svgElements...)
	p.AllowStyling()
	p.AllowAttrs("id").Matching(idPattern).Globally()
	p.AllowAttrs(svgAttrs...).OnElements(svgElements...)
	p.AllowAttrs("href").Matching(fragmentRef).OnElements("use")
	p.SkipElementsContent(skipContent...)
	return p
}
