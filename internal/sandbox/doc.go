// Package sandbox runs untrusted-input JavaScript in goja runtimes.
//
// Runtimes expose no module loader, process object or working timers. Every
// call runs under a timeout and the caller's context; an interrupted runtime
// is rebuilt before it is reused. A host-supplied library (for example a
// bundled diagram layout engine) is evaluated into each runtime when it is
// created.
//
// DiagramEngine adapts a Pool to the block renderer's engine interface. A
// breaker in front of the pool fails calls fast after repeated timeouts, so
// a hanging library cannot stall every display pass.
package sandbox
