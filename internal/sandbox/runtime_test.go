package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/lens/internal/blocks"
)

const stubLibrary = `
function renderDiagram(id, source, config) {
	if (source === "boom") { throw new Error("syntax error at line 1"); }
	if (source === "loop") { while (true) {} }
	if (source === "async") { return Promise.resolve({ svg: "<svg id=\"" + id + "\"></svg>" }); }
	if (source === "reject") { return Promise.reject(new Error("async failure")); }
	if (source === "pending") { return new Promise(function (resolve) { setTimeout(resolve, 1); }); }
	if (source === "number") { return 42; }
	console.log("rendering", id);
	return "<svg data-theme=\"" + config.theme + "\" data-level=\"" + config.securityLevel + "\"><text>" + source + "</text></svg>";
}
`

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Timeout = 200 * time.Millisecond
	cfg.Library = stubLibrary
	return cfg
}

func TestDangerousGlobalsRemoved(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)
	defer rt.Close()

	tests := []string{"require", "process", "module", "exports"}
	for _, name := range tests {
		res, err := rt.Execute(context.Background(), "typeof "+name)
		require.NoError(t, err)
		assert.Equal(t, "undefined", res.Value, name)
	}
}

func TestTimersNeverFire(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)

	res, err := rt.Execute(context.Background(), `var fired = false; setTimeout(function () { fired = true; }, 0); fired`)
	require.NoError(t, err)
	assert.Equal(t, false, res.Value)
}

func TestConsoleCapture(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)

	res, err := rt.Execute(context.Background(), `console.log("a", 1); console.warn("b"); 7`)
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Value)
	require.Len(t, res.Console, 2)
	assert.Equal(t, "a 1", res.Console[0].Message)
	assert.Equal(t, "warn", res.Console[1].Level)
}

func TestExecutionTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	rt, err := New(cfg)
	require.NoError(t, err)

	_, err = rt.Execute(context.Background(), `while (true) {}`)
	assert.True(t, errors.Is(err, ErrExecutionTimeout), "got %v", err)
	assert.True(t, rt.Tainted())

	// The interrupt does not leak into the next call.
	res, err := rt.Execute(context.Background(), `1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Value)
}

func TestContextCancellation(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = rt.Execute(ctx, `while (true) {}`)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestCallUnknownFunction(t *testing.T) {
	rt, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = rt.Call(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotCallable))
}

func TestBrokenLibraryFailsConstruction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Library = `function (`
	_, err := New(cfg)
	assert.Error(t, err)

	_, err = NewPool(cfg, 2)
	assert.Error(t, err)
}

func TestPoolLifecycle(t *testing.T) {
	pool, err := NewPool(testConfig(), 2)
	require.NoError(t, err)

	rt, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PoolStats{Size: 2, Available: 1, InUse: 1}, pool.Stats())

	require.NoError(t, pool.Release(rt))
	assert.Equal(t, 2, pool.Stats().Available)

	require.NoError(t, pool.Close())
	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.True(t, pool.Stats().Closed)
}

func TestPoolAcquireTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.AcquireTimeout = 20 * time.Millisecond
	pool, err := NewPool(cfg, 1)
	require.NoError(t, err)
	defer pool.Close()

	rt, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(rt)

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDiagramEngine(t *testing.T) {
	pool, err := NewPool(testConfig(), 1)
	require.NoError(t, err)
	engine := NewDiagramEngine(pool, nil)
	defer engine.Close()

	ctx := context.Background()
	opts := blocks.DiagramOptions{Theme: "dark", SecurityLevel: "strict", FontFamily: "inherit"}

	tests := []struct {
		name    string
		source  string
		want    string
		wantErr string
	}{
		{name: "string result", source: "graph", want: `<svg data-theme="dark" data-level="strict"><text>graph</text></svg>`},
		{name: "promise of object", source: "async", want: `<svg id="m1"></svg>`},
		{name: "thrown error", source: "boom", wantErr: "syntax error at line 1"},
		{name: "rejected promise", source: "reject", wantErr: "async failure"},
		{name: "never settles", source: "pending", wantErr: ErrPending.Error()},
		{name: "wrong type", source: "number", wantErr: "want svg markup"},
		{name: "runaway layout", source: "loop", wantErr: ErrExecutionTimeout.Error()},
		{name: "usable after timeout", source: "graph", want: `<svg data-theme="dark" data-level="strict"><text>graph</text></svg>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Render(ctx, "m1", tt.source, opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
