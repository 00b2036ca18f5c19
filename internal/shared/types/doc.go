// Package types provides the document vocabulary shared by the source,
// pipeline, tab store and viewer session.
package types
