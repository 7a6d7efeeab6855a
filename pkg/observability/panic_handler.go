package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with the stack. Call it in
// a defer from goroutines that must not take the process down, such as
// scheduled jobs.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", where).
			Error("PANIC recovered")
	}
}
