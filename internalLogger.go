package bulkudp

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

var internalLogger atomic.Pointer[log.Logger]

func init() {
	internalLogger.Store(log.New(os.Stderr, "[bulkudp] ", log.LstdFlags))
}

// InternalLogger returns the Logger used to write out internal logs: records
// that could not be sent, and debug output when Verbose is set. It must not
// be backed by a bulkudp Handler.
func InternalLogger() *log.Logger { return internalLogger.Load() }

// SetInternalLogger makes l the internal logger. A nil l discards internal
// logs.
func SetInternalLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	internalLogger.Store(l)
}
