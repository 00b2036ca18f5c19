package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/lens/internal/api/middleware"
	"github.com/GriffinCanCode/lens/internal/domain/viewer"
	"github.com/GriffinCanCode/lens/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/lens/internal/logging"
	"github.com/GriffinCanCode/lens/internal/shared/types"
)

const writeTimeout = 10 * time.Second

// Loader reads documents by path for openPath requests and file watching.
type Loader interface {
	Load(path string) (types.Document, error)
}

// Watcher reports edits to loaded documents.
type Watcher interface {
	Add(path string) error
	Run(ctx context.Context, fn func(path string)) error
	Close() error
}

// Config configures the host channel.
type Config struct {
	// AllowedOrigins lists accepted foreign Origin headers; "*" accepts any.
	// Same-origin and origin-less clients are always accepted.
	AllowedOrigins []string
	// RateLimit bounds inbound messages per connection. A zero rate
	// disables the limit.
	RateLimit       middleware.RateLimitConfig
	MaxMessageBytes int64
}

// DefaultConfig returns the channel defaults.
func DefaultConfig() Config {
	return Config{
		RateLimit:       middleware.DefaultRateLimitConfig(),
		MaxMessageBytes: 16 << 20,
	}
}

// Handler serves one viewer session per websocket connection.
type Handler struct {
	newSession func() *viewer.Session
	loader     Loader
	newWatcher func() (Watcher, error)
	config     Config
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// NewHandler creates a handler. loader may be nil, in which case openPath is
// ignored.
func NewHandler(newSession func() *viewer.Session, loader Loader, config Config, logger *zap.Logger) *Handler {
	h := &Handler{
		newSession: newSession,
		loader:     loader,
		config:     config,
		logger:     logging.OrNop(logger).Named("ws"),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// WithMetrics adds connection and message metrics.
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// WithWatcher enables reloading documents opened by path when they change.
func (h *Handler) WithWatcher(factory func() (Watcher, error)) *Handler {
	h.newWatcher = factory
	return h
}

// HandleConnection upgrades the request and runs the session until the
// client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	if h.config.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.config.MaxMessageBytes)
	}

	h.metrics.RecordWSConnection(1)
	defer h.metrics.RecordWSConnection(-1)

	session := h.newSession()
	logger := h.logger.With(zap.String("session", session.ID().String()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(conn, session.Events(), logger)
	}()
	defer func() { <-done }()
	defer session.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	watcher := h.startWatcher(ctx, session, logger)
	if watcher != nil {
		defer watcher.Close()
	}

	if err := session.Start(ctx); err != nil {
		logger.Warn("Failed to start session", zap.Error(err))
		return
	}
	logger.Info("Session connected")

	var limiter *rate.Limiter
	if h.config.RateLimit.RequestsPerSecond > 0 {
		limiter = h.config.RateLimit.NewLimiter()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			break
		}
		if limiter != nil && !limiter.Allow() {
			logger.Debug("Dropped message over rate limit")
			continue
		}
		h.handleMessage(ctx, session, watcher, data, logger)
	}
	logger.Info("Session disconnected")
}

func (h *Handler) handleMessage(ctx context.Context, session *viewer.Session, watcher Watcher, data []byte, logger *zap.Logger) {
	cmd, err := viewer.DecodeCommand(data)
	if errors.Is(err, viewer.ErrUnknownCommand) {
		h.metrics.RecordWSMessage("in", "unknown")
		return
	}
	if err != nil {
		logger.Debug("Ignored malformed message", zap.Error(err))
		return
	}
	h.metrics.RecordWSMessage("in", cmd.CommandType())

	if req, ok := cmd.(viewer.OpenPath); ok {
		open, err := h.openPath(req.Path)
		if err != nil {
			logger.Warn("Failed to open path", zap.String("path", req.Path), zap.Error(err))
			return
		}
		if watcher != nil {
			if err := watcher.Add(open.Path); err != nil {
				logger.Warn("Failed to watch document", zap.String("path", open.Path), zap.Error(err))
			}
		}
		cmd = open
	}

	if err := session.Handle(ctx, cmd); err != nil {
		logger.Warn("Command failed", zap.String("type", cmd.CommandType()), zap.Error(err))
	}
}

func (h *Handler) openPath(path string) (viewer.OpenDocument, error) {
	if h.loader == nil {
		return viewer.OpenDocument{}, errors.New("no document source configured")
	}
	doc, err := h.loader.Load(path)
	if err != nil {
		return viewer.OpenDocument{}, err
	}
	return viewer.OpenDocument{
		Path:    doc.Path,
		Name:    doc.Name,
		Kind:    doc.Kind,
		Content: doc.Content,
		BaseURI: doc.BaseURI,
	}, nil
}

func (h *Handler) startWatcher(ctx context.Context, session *viewer.Session, logger *zap.Logger) Watcher {
	if h.newWatcher == nil || h.loader == nil {
		return nil
	}
	watcher, err := h.newWatcher()
	if err != nil {
		logger.Warn("Document watching disabled", zap.Error(err))
		return nil
	}

	go func() {
		err := watcher.Run(ctx, func(path string) {
			doc, err := h.loader.Load(path)
			if err != nil {
				logger.Warn("Failed to reload document", zap.String("path", path), zap.Error(err))
				return
			}
			err = session.Handle(ctx, viewer.UpdateDocument{Path: doc.Path, Content: doc.Content})
			if err != nil && !errors.Is(err, viewer.ErrClosed) {
				logger.Warn("Failed to apply document update", zap.String("path", path), zap.Error(err))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Watcher stopped", zap.Error(err))
		}
	}()
	return watcher
}

// writeLoop sends events until the session closes the stream. After a write
// failure it keeps draining so the session never blocks.
func (h *Handler) writeLoop(conn *websocket.Conn, events <-chan viewer.Event, logger *zap.Logger) {
	failed := false
	for ev := range events {
		if failed {
			continue
		}
		data, err := viewer.EncodeEvent(ev)
		if err != nil {
			logger.Error("Failed to encode event", zap.Error(err))
			continue
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			failed = true
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("WebSocket write failed", zap.Error(err))
			failed = true
			continue
		}
		h.metrics.RecordWSMessage("out", ev.EventType())
	}
}

// checkOrigin refuses browsers on foreign pages unless their origin is
// listed. A page served elsewhere must never drive openPath.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(h.config.AllowedOrigins, "*") || slices.Contains(h.config.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
