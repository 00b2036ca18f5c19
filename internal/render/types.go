package render

import "github.com/GriffinCanCode/lens/internal/shared/types"

// Profile selects the sanitizer allow-list.
type Profile int

const (
	// ProfileAuto derives the profile from the input kind.
	ProfileAuto Profile = iota
	// ProfileMarkdown is the allow-list for markdown-sourced markup.
	ProfileMarkdown
	// ProfileHTML extends ProfileMarkdown with a few semantic and inline
	// tags that only hand-written HTML uses.
	ProfileHTML
)

func (p Profile) String() string {
	switch p {
	case ProfileMarkdown:
		return "markdown"
	case ProfileHTML:
		return "html"
	default:
		return "auto"
	}
}

// BlockKind identifies the embedded sub-language of a placeholder.
type BlockKind string

const (
	BlockDiagram BlockKind = "diagram"
	BlockChart   BlockKind = "chart"
)

// Placeholder conventions shared with the block renderers.
const (
	DiagramClass       = "lens-mermaid"
	ChartClass         = "lens-chart"
	ChartConfigClass   = "lens-chart-config"
	ErrorClass         = "lens-render-error"
	RenderedSuffix     = "-rendered"
	FailedSuffix       = "-error"
	DiagramIDAttr      = "data-mermaid-id"
	ChartIDAttr        = "data-chart-id"
	LineAttr           = "data-line"
	chartConfigXPath   = `.//pre[contains(concat(" ", normalize-space(@class), " "), " lens-chart-config ")]`
	blockContainerPath = "//*[@data-mermaid-id or @data-chart-id]"
)

// Input is one pipeline invocation.
type Input struct {
	Content  string
	Kind     types.Kind
	BasePath string
	Profile  Profile
}

// Fragment is sanitized, path-resolved markup plus the embedded block
// placeholders it contains.
type Fragment struct {
	HTML   string
	Blocks []Block
}

// Block describes one embedded block placeholder in a fragment.
type Block struct {
	Kind   BlockKind
	ID     string
	Source string
}

// Options configures a Pipeline.
type Options struct {
	// Highlight enables class-based syntax highlighting of code fences.
	Highlight bool
	// HighlightStyle names the chroma style used for class names.
	HighlightStyle string
	// ResourceSchemes are URL schemes (without ":") of backend resources.
	// References using them are kept by the sanitizer and never rewritten.
	ResourceSchemes []string
}

// DefaultOptions returns the pipeline defaults.
func DefaultOptions() Options {
	return Options{
		Highlight:      true,
		HighlightStyle: "github",
	}
}

func isDiagramLang(lang string) bool {
	return lang == "mermaid"
}

func isChartLang(lang string) bool {
	switch lang {
	case "chart", "chartjs", "chart-js":
		return true
	}
	return false
}
