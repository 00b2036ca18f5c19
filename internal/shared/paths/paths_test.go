package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTraversal(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"../secret", true},
		{`..\secret`, true},
		{"a/../b", true},
		{`a\..\b`, true},
		{"a/..", true},
		{"..", true},
		{"./img.png", false},
		{"..hidden/file", false},
		{"a/..b/c", false},
		{"img.png", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTraversal(tt.ref), tt.ref)
	}
}

func TestJoinStaysInsideRoot(t *testing.T) {
	root := filepath.FromSlash("/srv/docs")

	got, ok := Join(root, "guide/intro.md")
	assert.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/srv/docs/guide/intro.md"), got)

	got, ok = Join(root, "/abs/looking.md")
	assert.True(t, ok)
	assert.Equal(t, filepath.FromSlash("/srv/docs/abs/looking.md"), got)

	_, ok = Join(root, "../etc/passwd")
	assert.False(t, ok)

	_, ok = Join(root, "guide/../../etc/passwd")
	assert.False(t, ok)
}

func TestWithin(t *testing.T) {
	root := filepath.FromSlash("/srv/docs")
	assert.True(t, Within(root, root))
	assert.True(t, Within(root, filepath.FromSlash("/srv/docs/a")))
	assert.False(t, Within(root, filepath.FromSlash("/srv/docs-other")))
	assert.False(t, Within(root, filepath.FromSlash("/srv")))
}

func TestToSlashDir(t *testing.T) {
	assert.Equal(t, "", ToSlashDir("readme.md"))
	assert.Equal(t, "guide/", ToSlashDir(filepath.FromSlash("guide/intro.md")))
	assert.Equal(t, "a/b/", ToSlashDir(filepath.FromSlash("a/b/c.md")))
}
