package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// Runtime wraps a goja VM with security controls. A runtime runs one call at
// a time.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console   []LogEntry
	consoleMu sync.Mutex

	// tainted is set once a call was interrupted; the pool rebuilds the VM.
	tainted bool
}

// New creates a sandboxed runtime and evaluates the configured library.
func New(config Config) (*Runtime, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	r := &Runtime{config: config}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runtime) init() error {
	r.vm = goja.New()
	r.console = nil
	r.tainted = false

	if r.config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}
	r.setupGlobals()

	if r.config.Library == "" {
		return nil
	}
	stop := r.guard(context.Background())
	_, err := r.vm.RunString(r.config.Library)
	stop()
	if err != nil {
		return fmt.Errorf("failed to load sandbox library: %w", r.translate(err))
	}
	return nil
}

// Execute runs script and returns its exported completion value.
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.run(ctx, func() (goja.Value, error) {
		return r.vm.RunString(script)
	})
}

// Call invokes the global function name with args converted to JS values.
// A returned promise is unwrapped once the job queue drains.
func (r *Runtime) Call(ctx context.Context, name string, args ...any) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := goja.AssertFunction(r.vm.Get(name))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCallable, name)
	}
	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = r.vm.ToValue(a)
	}
	return r.run(ctx, func() (goja.Value, error) {
		return fn(goja.Undefined(), values...)
	})
}

func (r *Runtime) run(ctx context.Context, body func() (goja.Value, error)) (*Result, error) {
	start := time.Now()

	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()

	stop := r.guard(ctx)
	val, err := body()
	stop()

	result := &Result{Duration: time.Since(start)}
	r.consoleMu.Lock()
	result.Console = append([]LogEntry(nil), r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		return result, r.translate(err)
	}

	val, err = settle(val)
	if err != nil {
		return result, err
	}
	result.Value = exportValue(val)
	return result, nil
}

// guard interrupts the VM when the timeout fires or ctx ends. The returned
// stop waits for the watcher to exit before clearing any interrupt, so a
// late interrupt cannot leak into the next call.
func (r *Runtime) guard(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	timer := time.NewTimer(r.config.Timeout)

	go func() {
		defer close(exited)
		defer timer.Stop()
		select {
		case <-timer.C:
			r.vm.Interrupt(ErrExecutionTimeout)
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	return func() {
		close(done)
		<-exited
		r.vm.ClearInterrupt()
	}
}

// translate maps goja errors to sandbox errors.
func (r *Runtime) translate(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		r.tainted = true
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return fmt.Errorf("sandbox interrupted: %v", interrupted.Value())
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return errors.New(exceptionMessage(ex.Value()))
	}
	return err
}

func settle(val goja.Value) (goja.Value, error) {
	if val == nil {
		return val, nil
	}
	p, ok := val.Export().(*goja.Promise)
	if !ok {
		return val, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, errors.New(exceptionMessage(p.Result()))
	default:
		return nil, ErrPending
	}
}

// exceptionMessage prefers the message of thrown Error objects.
func exceptionMessage(v goja.Value) string {
	if v == nil {
		return "unknown error"
	}
	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) && !goja.IsNull(msg) {
			return msg.String()
		}
	}
	return v.String()
}

func exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() {
	// Remove dangerous globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		_ = r.vm.Set(name, goja.Undefined())
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "warn", "error", "info", "debug"} {
			_ = console.Set(level, r.makeConsoleFunc(level))
		}
		_ = r.vm.Set("console", console)
	}

	// Timers never fire.
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "setImmediate", "clearTimeout", "clearInterval"} {
		_ = r.vm.Set(name, noop)
	}
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// Reset rebuilds the VM from scratch.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.init()
}

// Tainted reports whether a call was interrupted since the last reset.
func (r *Runtime) Tainted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tainted
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm = nil
	r.console = nil
	return nil
}
