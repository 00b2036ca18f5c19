// Package paths holds the filesystem containment and traversal checks shared
// by the document source and the resource endpoint.
package paths
