// Package middleware provides the gin middleware chain for the HTTP
// surface: CORS, per-client rate limiting and request ids.
package middleware
