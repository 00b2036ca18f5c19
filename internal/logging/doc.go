// Package logging provides structured logging using uber/zap.
//
// Two output modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *zap.Logger at construction and name it after
// themselves, so every line carries its origin:
//
//	logger := logging.NewDefault()
//	pipeline := render.NewPipeline(render.Options{Logger: logger.Component("render")})
//	logger.Info("Server starting", zap.String("port", "8000"))
//
// A nil logger passed to any component is replaced by a no-op logger.
package logging
