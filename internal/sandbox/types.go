package sandbox

import (
	"errors"
	"time"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
	// ErrExecutionTimeout is returned when a script exceeds Config.Timeout.
	ErrExecutionTimeout = errors.New("sandbox execution timeout")
	// ErrNotCallable is returned when the requested global is not a function.
	ErrNotCallable = errors.New("sandbox global is not a function")
	// ErrPending is returned when a call returns a promise that never settles.
	ErrPending = errors.New("sandbox promise did not settle")
)

// Config defines sandbox configuration
type Config struct {
	Timeout        time.Duration // Per-call execution timeout
	AcquireTimeout time.Duration // How long Acquire waits for a free runtime
	MaxCallStack   int           // Maximum JS call stack depth
	EnableConsole  bool          // Capture console.log/warn/error/info
	// Library is script source evaluated into every fresh runtime before
	// any call, e.g. a bundled diagram layout library.
	Library string
}

// Result holds execution result
type Result struct {
	Value    any           // Exported return value, promises resolved
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, warn, error, info
	Message string    // Log message
	Time    time.Time // Timestamp
}

// DefaultConfig returns the default sandbox configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		AcquireTimeout: 5 * time.Second,
		MaxCallStack:   1024,
		EnableConsole:  true,
	}
}
