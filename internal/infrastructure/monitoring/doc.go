// Package monitoring exposes Prometheus metrics for the viewer.
//
// Collectors live on a private registry so several servers (and tests) can
// coexist in one process. Series cover HTTP requests, pipeline runs and
// cache reuse, embedded block outcomes, open tabs and evictions, and the
// websocket host channel.
//
// All recording methods accept a nil *Metrics and do nothing.
package monitoring
