package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/lens/internal/logging"
	"github.com/GriffinCanCode/lens/internal/shared/types"
)

// Pipeline turns raw document text into a sanitized, path-resolved
// fragment. It holds no per-call state: identical inputs always yield
// identical fragments, and Render is safe for concurrent use.
type Pipeline struct {
	md        goldmark.Markdown
	sanitizer *Sanitizer
	resolver  *Resolver
	logger    *zap.Logger
}

// NewPipeline creates a pipeline with the given options.
func NewPipeline(opts Options, logger *zap.Logger) *Pipeline {
	if opts.HighlightStyle == "" {
		opts.HighlightStyle = DefaultOptions().HighlightStyle
	}
	return &Pipeline{
		md:        newMarkdown(opts),
		sanitizer: NewSanitizer(opts.ResourceSchemes),
		resolver:  NewResolver(opts.ResourceSchemes),
		logger:    logging.OrNop(logger).Named("render"),
	}
}

// Sanitizer exposes the pipeline's policies for renderers that insert
// engine output after the fact.
func (p *Pipeline) Sanitizer() *Sanitizer {
	return p.sanitizer
}

// Render runs extraction, sanitization and path resolution.
func (p *Pipeline) Render(in Input) (*Fragment, error) {
	profile := in.Profile
	if profile == ProfileAuto {
		profile = ProfileMarkdown
		if in.Kind == types.KindHTML {
			profile = ProfileHTML
		}
	}

	markup, err := p.extract(in)
	if err != nil {
		return nil, err
	}

	clean := p.sanitizer.Sanitize(markup, profile)

	frag, err := p.resolver.finish(clean, in.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fragment paths: %w", err)
	}

	p.logger.Debug("Rendered fragment",
		zap.String("kind", in.Kind.String()),
		zap.String("profile", profile.String()),
		zap.Int("input_bytes", len(in.Content)),
		zap.Int("output_bytes", len(frag.HTML)),
		zap.Int("blocks", len(frag.Blocks)))

	return frag, nil
}

func (p *Pipeline) extract(in Input) (string, error) {
	if in.Kind == types.KindHTML {
		return extractBody(in.Content)
	}
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(in.Content), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

// extractBody returns the inner markup of the document body, discarding the
// doctype, head and anything the parser relocates there.
func extractBody(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse html document: %w", err)
	}
	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to extract html body: %w", err)
	}
	return body, nil
}
