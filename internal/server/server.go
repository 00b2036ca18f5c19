package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/lens/internal/api/middleware"
	"github.com/GriffinCanCode/lens/internal/domain/viewer"
	"github.com/GriffinCanCode/lens/internal/infrastructure/config"
	"github.com/GriffinCanCode/lens/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/lens/internal/logging"
	"github.com/GriffinCanCode/lens/internal/render"
	"github.com/GriffinCanCode/lens/internal/sandbox"
	"github.com/GriffinCanCode/lens/internal/settings"
	"github.com/GriffinCanCode/lens/internal/source"
	"github.com/GriffinCanCode/lens/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	source   *source.FileSource
	pipeline *render.Pipeline
	diagrams *sandbox.DiagramEngine
	settings settings.Store
	gzip     func(http.Handler) http.HandlerFunc
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	logger.Info("Initializing Lens server",
		zap.String("port", cfg.Server.Port),
		zap.Strings("roots", cfg.Source.Roots),
	)

	metrics := monitoring.NewMetrics()

	src, err := source.NewFileSource(cfg.Source.Roots,
		source.WithResourcePrefix(cfg.Viewer.ResourcePrefix),
		source.WithMaxBytes(cfg.Source.MaxDocumentBytes),
		source.WithLogger(logger.Component("source")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open document roots: %w", err)
	}

	opts := render.DefaultOptions()
	opts.Highlight = cfg.Viewer.Highlight
	opts.HighlightStyle = cfg.Viewer.HighlightStyle
	pipeline := render.NewPipeline(opts, logger.Component("render"))

	diagrams, err := newDiagramEngine(cfg.Diagram, logger)
	if err != nil {
		return nil, err
	}

	var store settings.Store
	if cfg.Viewer.SettingsPath != "" {
		fs, err := settings.NewFileStore(cfg.Viewer.SettingsPath)
		if err != nil {
			diagrams.Close()
			return nil, fmt.Errorf("failed to open settings store: %w", err)
		}
		store = fs
		logger.Info("Settings persistence enabled", zap.String("path", fs.Path()))
	}

	gzip, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		diagrams.Close()
		return nil, fmt.Errorf("failed to create gzip wrapper: %w", err)
	}

	s := &Server{
		source:   src,
		pipeline: pipeline,
		diagrams: diagrams,
		settings: store,
		gzip:     gzip,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

// newDiagramEngine builds the sandbox pool around the configured diagram
// library. No script means no engine, and diagram blocks fail in place.
func newDiagramEngine(cfg config.DiagramConfig, logger *logging.Logger) (*sandbox.DiagramEngine, error) {
	if cfg.Script == "" {
		logger.Warn("No diagram script configured, diagrams will render as errors")
		return nil, nil
	}
	library, err := os.ReadFile(cfg.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to read diagram script: %w", err)
	}

	sbCfg := sandbox.DefaultConfig()
	sbCfg.Timeout = cfg.Timeout
	sbCfg.Library = string(library)
	pool, err := sandbox.NewPool(sbCfg, cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagram sandbox: %w", err)
	}
	logger.Info("Diagram sandbox ready",
		zap.String("script", cfg.Script),
		zap.Int("pool", cfg.PoolSize),
	)
	return sandbox.NewDiagramEngine(pool, logger.Component("sandbox")), nil
}

func (s *Server) routes() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(s.logger.Component("http")))
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(s.config.Server.CORSOrigins)))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(s.rateLimit()))
	}

	wsHandler := ws.NewHandler(s.newSession, s.source, s.channelConfig(), s.logger.Component("ws")).
		WithMetrics(s.metrics)
	if s.config.Source.Watch {
		wsHandler.WithWatcher(func() (ws.Watcher, error) {
			return source.NewWatcher(source.DefaultDebounce, s.logger.Component("watch"))
		})
	}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(monitoring.Handler(s.metrics)))
	router.GET("/stream", wsHandler.HandleConnection)
	router.GET("/documents", s.listDocuments)
	router.GET(resourceRoute(s.config.Viewer.ResourcePrefix), s.serveResource)

	return router
}

func (s *Server) rateLimit() middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = s.config.RateLimit.RequestsPerSecond
	rl.Burst = s.config.RateLimit.Burst
	return rl
}

func (s *Server) channelConfig() ws.Config {
	cfg := ws.DefaultConfig()
	cfg.AllowedOrigins = s.config.Server.CORSOrigins
	cfg.MaxMessageBytes = s.config.Source.MaxDocumentBytes + 64<<10
	if s.config.RateLimit.Enabled {
		cfg.RateLimit = s.rateLimit()
	} else {
		cfg.RateLimit.RequestsPerSecond = 0
	}
	return cfg
}

func (s *Server) newSession() *viewer.Session {
	opts := viewer.Options{
		MaxTabs:  s.config.Viewer.MaxTabs,
		Settings: s.settings,
		Metrics:  s.metrics,
		Logger:   s.logger.Logger,
	}
	if s.diagrams != nil {
		opts.Diagrams = s.diagrams
	}
	return viewer.New(s.pipeline, opts)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and releases the sandbox.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	if s.diagrams != nil {
		if cerr := s.diagrams.Close(); cerr != nil {
			s.logger.Error("Failed to close diagram sandbox", zap.Error(cerr))
			err = errors.Join(err, cerr)
		}
	}

	_ = s.logger.Sync()
	return err
}
