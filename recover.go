package bulkudp

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// LogPanic is the last resort for faults nobody handled. Deferred at the top
// of main (or of a goroutine), it recovers a panic, logs it with its stack
// trace at ERROR through l, and panics again with the same value, so the
// process still terminates.
//
//	func main() {
//		logger := slog.New(h)
//		defer bulkudp.LogPanic(logger)
//		...
//	}
//
// The Handler sends synchronously, so the record is on the wire before the
// process dies. Go has no process wide hook: a panic in a goroutine without
// its own deferred LogPanic is not captured.
func LogPanic(l *slog.Logger) {
	r := recover()
	if r == nil {
		return
	}

	l.Error(fmt.Sprintf("Uncaught exception: %v\n%s", r, debug.Stack()))
	panic(r)
}
