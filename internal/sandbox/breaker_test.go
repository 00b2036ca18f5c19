package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/lens/internal/blocks"
)

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", BreakerClosed.String())
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
	assert.Equal(t, "open", BreakerOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}

func TestBreakerTrips(t *testing.T) {
	b := newBreaker(3, time.Minute)
	now := time.Now()

	for i := 0; i < 2; i++ {
		require.NoError(t, b.allow(now))
		b.record(now, ErrExecutionTimeout)
	}
	assert.Equal(t, BreakerClosed, b.current())

	require.NoError(t, b.allow(now))
	b.record(now, ErrTimeout)
	assert.Equal(t, BreakerOpen, b.current())
	assert.ErrorIs(t, b.allow(now), ErrEngineUnavailable)
}

func TestBreakerIgnoresDocumentErrors(t *testing.T) {
	b := newBreaker(2, time.Minute)
	now := time.Now()

	b.record(now, ErrExecutionTimeout)
	b.record(now, errors.New("syntax error at line 1"))
	b.record(now, ErrExecutionTimeout)
	assert.Equal(t, BreakerClosed, b.current())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	var transitions []string
	b := newBreaker(1, time.Second)
	b.onChange = func(from, to BreakerState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	now := time.Now()

	b.record(now, ErrPending)
	require.Equal(t, BreakerOpen, b.current())

	later := now.Add(time.Second)
	require.NoError(t, b.allow(later))
	assert.ErrorIs(t, b.allow(later), ErrEngineUnavailable, "only one probe in half-open")

	b.record(later, ErrExecutionTimeout)
	assert.Equal(t, BreakerOpen, b.current())

	again := later.Add(time.Second)
	require.NoError(t, b.allow(again))
	b.record(again, nil)
	assert.Equal(t, BreakerClosed, b.current())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func TestDiagramEngineBreaker(t *testing.T) {
	pool, err := NewPool(testConfig(), 1)
	require.NoError(t, err)
	engine := NewDiagramEngine(pool, nil, WithBreaker(2, 50*time.Millisecond))
	defer engine.Close()

	ctx := context.Background()
	opts := blocks.DiagramOptions{Theme: "default", SecurityLevel: "strict"}

	for i := 0; i < 2; i++ {
		_, err := engine.Render(ctx, "m1", "loop", opts)
		require.ErrorIs(t, err, ErrExecutionTimeout)
	}
	assert.Equal(t, BreakerOpen, engine.State())

	_, err = engine.Render(ctx, "m1", "graph", opts)
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	time.Sleep(60 * time.Millisecond)
	_, err = engine.Render(ctx, "m1", "graph", opts)
	require.NoError(t, err)
	assert.Equal(t, BreakerClosed, engine.State())
}
