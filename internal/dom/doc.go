// Package dom models the viewer's live document tree.
//
// A Document is a fixed shell with three regions: the scroll area, the
// content region fragments are attached to, and the outline sidebar.
// Components receive the regions they own instead of reaching into a global
// tree, so tests can hand them a fresh Document.
//
// Each Attach issues a new Token. Writes that complete after the content was
// replaced go through Commit, which discards them when the token is stale or
// the target node is no longer attached.
package dom
