/*
Package source loads documents from the configured root directories.

Paths are resolved with symlinks evaluated and must stay inside a root.
Files are classified as markdown or html by extension, falling back to
content sniffing, and decoded to UTF-8 from their detected charset. The
base URI of a document points at its directory under the resource route so
that relative images and links resolve against the server.

Watcher reports edits with a short debounce and List enumerates the
documents under every root.
*/
package source
