package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		m.RecordRender("markdown", time.Millisecond, nil)
		m.RecordCache(true)
		m.RecordBlocks("chart", 1, 1, 1)
		m.AddTabs(1)
		m.RecordEviction()
		m.RecordWSConnection(1)
		m.RecordWSMessage("in", "ready")
	})
	assert.Nil(t, m.Registry())
}

func TestRecorders(t *testing.T) {
	m := NewMetrics()

	m.RecordRender("markdown", time.Millisecond, errors.New("boom"))
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordBlocks("diagram", 2, 1, 3)
	m.AddTabs(2)
	m.AddTabs(-1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RenderErrors.WithLabelValues("markdown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BlocksRendered.WithLabelValues("diagram")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.StaleWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TabsOpen))
}

func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	r := gin.New()
	r.Use(Middleware(m))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", gin.WrapH(Handler(m)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lens_http_requests_total")
	assert.Contains(t, w.Body.String(), "lens_uptime_seconds")
}
