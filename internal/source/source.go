package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/lens/internal/logging"
	"github.com/GriffinCanCode/lens/internal/shared/paths"
	"github.com/GriffinCanCode/lens/internal/shared/types"
)

var (
	// ErrOutsideRoots is returned for paths that resolve outside every root.
	ErrOutsideRoots = errors.New("path is outside the document roots")
	// ErrUnsupportedDocument is returned for files that are neither markdown
	// nor html.
	ErrUnsupportedDocument = errors.New("unsupported document")
	// ErrTooLarge is returned for files over the size limit.
	ErrTooLarge = errors.New("document exceeds size limit")
	// ErrInvalidPattern is returned by List for malformed glob patterns.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// DefaultMaxBytes is the document size limit used when none is set.
const DefaultMaxBytes = 10 << 20

// DefaultResourcePrefix is the URL prefix of served document resources.
const DefaultResourcePrefix = "/resource/"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var extensionKinds = map[string]types.Kind{
	".md":       types.KindMarkdown,
	".markdown": types.KindMarkdown,
	".mdown":    types.KindMarkdown,
	".mkd":      types.KindMarkdown,
	".html":     types.KindHTML,
	".htm":      types.KindHTML,
}

// FileSource loads documents from a fixed set of root directories.
type FileSource struct {
	roots    []string
	prefix   string
	maxBytes int64
	logger   *zap.Logger
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithResourcePrefix sets the URL prefix used for base URIs.
func WithResourcePrefix(prefix string) Option {
	return func(f *FileSource) { f.prefix = prefix }
}

// WithMaxBytes sets the document size limit.
func WithMaxBytes(n int64) Option {
	return func(f *FileSource) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *FileSource) { f.logger = logger }
}

// NewFileSource creates a source over roots. Every root must be an existing
// directory; symlinks are resolved once here.
func NewFileSource(roots []string, opts ...Option) (*FileSource, error) {
	if len(roots) == 0 {
		return nil, errors.New("at least one document root is required")
	}

	f := &FileSource{prefix: DefaultResourcePrefix, maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(f)
	}
	if !strings.HasSuffix(f.prefix, "/") {
		f.prefix += "/"
	}
	f.logger = logging.OrNop(f.logger).Named("source")

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return nil, fmt.Errorf("failed to stat root %q: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("root %q is not a directory", root)
		}
		f.roots = append(f.roots, resolved)
	}
	return f, nil
}

// Roots returns the resolved root directories.
func (f *FileSource) Roots() []string {
	return append([]string(nil), f.roots...)
}

// Load reads the document at path. Relative paths are tried against each
// root in order.
func (f *FileSource) Load(path string) (types.Document, error) {
	root, abs, err := f.locate(path)
	if err != nil {
		return types.Document{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return types.Document{}, fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		return types.Document{}, fmt.Errorf("%w: %s is a directory", ErrUnsupportedDocument, path)
	}
	if info.Size() > f.maxBytes {
		return types.Document{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return types.Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	kind, err := Classify(abs, data)
	if err != nil {
		return types.Document{}, err
	}

	rel, err := filepath.Rel(f.roots[root], abs)
	if err != nil {
		return types.Document{}, fmt.Errorf("failed to relativize document: %w", err)
	}

	f.logger.Debug("Loaded document",
		zap.String("path", abs),
		zap.String("kind", kind.String()),
		zap.Int("bytes", len(data)))

	return types.Document{
		Path:    abs,
		Name:    filepath.Base(abs),
		Kind:    kind,
		Content: Decode(data),
		BaseURI: f.BaseURI(root, rel),
	}, nil
}

// BaseURI is the resource URL of the directory holding rel under root.
func (f *FileSource) BaseURI(root int, rel string) string {
	return f.prefix + strconv.Itoa(root) + "/" + paths.ToSlashDir(rel)
}

// Resolve maps a resource request onto a file inside root.
func (f *FileSource) Resolve(root int, rel string) (string, error) {
	if root < 0 || root >= len(f.roots) {
		return "", ErrOutsideRoots
	}
	joined, ok := paths.Join(f.roots[root], rel)
	if !ok {
		return "", ErrOutsideRoots
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("failed to resolve resource: %w", err)
	}
	if !paths.Within(f.roots[root], resolved) {
		return "", ErrOutsideRoots
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to stat resource: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("failed to resolve resource: %w", fs.ErrNotExist)
	}
	return resolved, nil
}

// locate finds the root holding path and the path with symlinks resolved.
func (f *FileSource) locate(path string) (int, string, error) {
	if filepath.IsAbs(path) {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return 0, "", fmt.Errorf("failed to resolve document: %w", err)
		}
		for i, root := range f.roots {
			if paths.Within(root, resolved) {
				return i, resolved, nil
			}
		}
		return 0, "", ErrOutsideRoots
	}

	if paths.IsTraversal(filepath.ToSlash(path)) {
		return 0, "", ErrOutsideRoots
	}
	for i, root := range f.roots {
		joined, ok := paths.Join(root, path)
		if !ok {
			continue
		}
		resolved, err := filepath.EvalSymlinks(joined)
		if err != nil {
			continue
		}
		if !paths.Within(root, resolved) {
			return 0, "", ErrOutsideRoots
		}
		return i, resolved, nil
	}
	return 0, "", fmt.Errorf("failed to resolve document %q: %w", path, fs.ErrNotExist)
}

// Classify picks the document kind from the extension. Only the extensions
// List serves are documents, and the content must sniff as text so a
// renamed binary is refused too.
func Classify(path string, data []byte) (types.Kind, error) {
	kind, ok := extensionKinds[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, filepath.Ext(path))
	}
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, mtype.String())
}

// DetectCharset returns the most likely charset of data.
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// Decode converts document bytes to UTF-8 text. Valid UTF-8 is kept as is
// minus a byte order mark; anything else is decoded from the detected
// charset.
func Decode(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	r, err := charset.NewReader(bytes.NewReader(data), "text/plain; charset="+DetectCharset(data))
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}
