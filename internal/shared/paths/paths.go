package paths

import (
	"path/filepath"
	"regexp"
	"strings"
)

// A relative reference climbs out of its base with a leading "../" or an
// inner or trailing "/.." under either separator.
var (
	leadingParent = regexp.MustCompile(`^\.\.[\\/]`)
	innerParent   = regexp.MustCompile(`[\\/]\.\.([\\/]|$)`)
)

// IsTraversal reports whether a relative reference escapes its base.
func IsTraversal(ref string) bool {
	return ref == ".." || leadingParent.MatchString(ref) || innerParent.MatchString(ref)
}

// Within reports whether target, once cleaned, lies inside root. Both must
// be absolute.
func Within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Join resolves an untrusted relative path against root and reports whether
// the result stays inside it.
func Join(root, rel string) (string, bool) {
	rel = filepath.FromSlash(strings.TrimLeft(rel, `/\`))
	joined := filepath.Join(root, rel)
	if !Within(root, joined) {
		return "", false
	}
	return joined, true
}

// ToSlashDir returns the slash-separated directory of rel with a trailing
// slash, or "" for the root itself.
func ToSlashDir(rel string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if dir == "." || dir == "/" {
		return ""
	}
	return strings.TrimPrefix(dir, "/") + "/"
}
