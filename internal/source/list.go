package source

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/lens/internal/shared/types"
)

// DefaultPattern matches every supported document.
const DefaultPattern = "**/*.{md,markdown,mdown,mkd,html,htm}"

// Entry is one listed document.
type Entry struct {
	Root int        `json:"root"`
	Path string     `json:"path"`
	Rel  string     `json:"rel"`
	Name string     `json:"name"`
	Kind types.Kind `json:"kind"`
	Size int64      `json:"size"`
}

// List walks every root and returns the supported documents whose
// slash-separated root-relative path matches pattern. Hidden directories are
// skipped and symlinks are not followed.
func (f *FileSource) List(ctx context.Context, pattern string) ([]Entry, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	var (
		mu      sync.Mutex
		entries []Entry
	)
	for i, root := range f.roots {
		conf := fastwalk.Config{Follow: false}
		err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if p != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			kind, ok := extensionKinds[strings.ToLower(filepath.Ext(p))]
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if matched, _ := doublestar.Match(pattern, rel); !matched {
				return nil
			}

			var size int64
			if info, err := d.Info(); err == nil {
				size = info.Size()
			}

			mu.Lock()
			entries = append(entries, Entry{Root: i, Path: p, Rel: rel, Name: d.Name(), Kind: kind, Size: size})
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", root, err)
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Root, b.Root); c != 0 {
			return c
		}
		return strings.Compare(a.Rel, b.Rel)
	})
	return entries, nil
}
