// Package main is the entry point for the Lens viewer backend.
//
// Lens renders untrusted Markdown and HTML documents into sanitized markup
// for a multi-document viewer. Clients connect over a websocket, open
// documents by content or by path under the configured roots, and receive
// view snapshots with the rendered document, its outline and the tab strip.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Serve the docs directory with a diagram library
//	./server -roots ./docs -diagram-script ./mermaid.min.js
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
