// Package server wires the viewer's HTTP surface.
//
// Routes:
//   - GET /health: liveness and feature flags
//   - GET /metrics: Prometheus exposition
//   - GET /stream: the websocket host channel, one viewer session per connection
//   - GET /documents: supported documents under the configured roots
//   - GET /resource/:root/*path: files referenced by documents, contained to
//     their root and gzip-compressed when large enough
//
// Every route passes through recovery, request ids, metrics, CORS and,
// when enabled, per-IP rate limiting.
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.Run()
//	defer srv.Shutdown(ctx)
package server
