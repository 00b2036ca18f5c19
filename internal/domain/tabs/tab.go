package tabs

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/GriffinCanCode/lens/internal/render"
	"github.com/GriffinCanCode/lens/internal/shared/types"
)

// IDPrefix starts every tab id.
const IDPrefix = "tab-"

// Tab is one open document.
type Tab struct {
	ID            string           `json:"id"`
	Path          string           `json:"path"`
	Name          string           `json:"name"`
	Kind          types.Kind       `json:"kind"`
	Content       string           `json:"-"`
	BaseURI       string           `json:"baseUri,omitempty"`
	Rendered      *render.Fragment `json:"-"`
	Dirty         bool             `json:"dirty"`
	ScrollOffset  float64          `json:"scrollOffset"`
	Active        bool             `json:"active"`
	LastActivated uint64           `json:"lastActivated"`
}

// Cached reports whether the tab holds a fragment that is still valid.
func (t Tab) Cached() bool {
	return t.Rendered != nil && !t.Dirty
}

// Document returns the tab's source document.
func (t Tab) Document() types.Document {
	return types.Document{
		Path:    t.Path,
		Name:    t.Name,
		Kind:    t.Kind,
		Content: t.Content,
		BaseURI: t.BaseURI,
	}
}

// release drops everything a closed tab must not keep.
func (t *Tab) release() {
	t.Rendered = nil
	t.ScrollOffset = 0
	t.Content = ""
	t.Active = false
	t.Dirty = false
}

// IDFor derives the tab id of path. Distinct paths may collide; the store
// salts the later one.
func IDFor(path string) string {
	return IDPrefix + strconv.FormatUint(xxhash.Sum64String(path), 36)
}
