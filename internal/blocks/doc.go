// Package blocks materializes embedded diagram and chart placeholders once
// a fragment is attached to the live tree.
//
// Containers move from pending to rendered or error exactly once. A failure
// replaces only its own container with an escaped message; the pass then
// continues with the next container. Each pass captures the tree token up
// front, and a write rejected as stale ends the pass.
package blocks
