package bulkudp

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is the severity of a Record, as both the number sent in the
// `severity` field and the name sent in the `level` field.
type Level struct {
	Number int
	Name   string
}

// LevelFromSlog maps a slog.Level onto the ingestion numbering: DEBUG is 10,
// INFO is 20, WARN is 30, ERROR is 40, and every 4 slog steps add 10. The
// name is the slog name, e.g. "WARN" or "ERROR+2".
func LevelFromSlog(l slog.Level) Level {
	return Level{
		Number: 20 + int(l)*10/4,
		Name:   l.String(),
	}
}

// Record is one log event, as consumed by the Handler. Records built by the
// slog integration are created by the Handler itself; other logging front
// ends (see the bulkudplogrus and bulkudpzap packages) build them with
// NewRecord and pass them to Handler.Emit.
//
// A Record must not be modified while it is being emitted.
type Record struct {

	// Message is the rendered log message.
	Message string

	// Fields holds the structured message, when the message was logged as a
	// mapping rather than a string. It is sent as `@fields`, and its "message"
	// entry, of any kind, replaces Message in the `message` field.
	Fields []slog.Attr

	Level      Level
	LoggerName string

	// Created is when the event happened. It is sent in UTC.
	Created time.Time

	// source location
	PathName string
	Line     int
	FuncName string

	PID        int
	ThreadName string

	// ProcessName is optional; the empty string means it is unknown.
	ProcessName string

	// Extras are the caller supplied attributes, in the order they were
	// added. They are sent with a `_` prefix on the key.
	Extras []slog.Attr
}

// goroutines have no names; this stands in for the thread name
const threadName = "goroutine"

// NewRecord returns a Record with the process level attributes (pid, thread
// and process names) filled in.
func NewRecord(level Level, msg string, created time.Time) *Record {
	return &Record{
		Message:     msg,
		Level:       level,
		Created:     created,
		PID:         os.Getpid(),
		ThreadName:  threadName,
		ProcessName: ProcessName(),
	}
}

// message returns the value for the `message` field: the "message" entry of
// the structured message when there is one, of any kind, else Message.
func (r *Record) message() slog.Value {
	for _, a := range r.Fields {
		if a.Key == messageKey {
			return a.Value
		}
	}
	return slog.StringValue(r.Message)
}

var processName = sync.OnceValue(func() string {
	if len(os.Args) == 0 || len(os.Args[0]) == 0 {
		return ""
	}
	return filepath.Base(os.Args[0])
})

// ProcessName returns the base name of the running executable, or "" if it
// cannot be determined.
func ProcessName() string { return processName() }
