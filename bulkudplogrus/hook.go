// Package bulkudplogrus sends logrus entries through a bulkudp.Handler.
//
//	h, err := bulkudp.NewHandler(elkHost, 9700, nil)
//	if err != nil {
//		log.Fatalln(err)
//	}
//	logrus.AddHook(bulkudplogrus.NewHook(h, logrus.InfoLevel))
package bulkudplogrus

import (
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"github.com/bitdabbler/bulkudp"
	"github.com/sirupsen/logrus"
)

var severities = map[logrus.Level]int{
	logrus.TraceLevel: 5,
	logrus.DebugLevel: 10,
	logrus.InfoLevel:  20,
	logrus.WarnLevel:  30,
	logrus.ErrorLevel: 40,
	logrus.FatalLevel: 50,
	logrus.PanicLevel: 50,
}

// Hook is a logrus.Hook that emits every entry it fires for as one packet.
type Hook struct {
	h      *bulkudp.Handler
	levels []logrus.Level
}

// NewHook returns a Hook that fires for entries at minLevel or more severe.
func NewHook(h *bulkudp.Handler, minLevel logrus.Level) *Hook {
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, l := range logrus.AllLevels {
		// logrus levels count down as severity goes up
		if l <= minLevel {
			levels = append(levels, l)
		}
	}
	return &Hook{h: h, levels: levels}
}

// Levels implements logrus.Hook.
func (hook *Hook) Levels() []logrus.Level {
	return hook.levels
}

// Fire implements logrus.Hook. It never fails; send errors are reported by
// the Handler.
func (hook *Hook) Fire(entry *logrus.Entry) error {
	hook.h.Emit(newRecord(entry, hook.h.Name))
	return nil
}

// Level maps a logrus level onto the ingestion numbering. Trace, which has
// no counterpart there, is 5.
func Level(l logrus.Level) bulkudp.Level {
	n, ok := severities[l]
	if !ok {
		n = severities[logrus.InfoLevel]
	}
	return bulkudp.Level{Number: n, Name: strings.ToUpper(l.String())}
}

func newRecord(entry *logrus.Entry, name string) *bulkudp.Record {
	r := bulkudp.NewRecord(Level(entry.Level), entry.Message, entry.Time)
	r.LoggerName = name

	if entry.HasCaller() {
		r.PathName = entry.Caller.File
		r.Line = entry.Caller.Line
		r.FuncName = entry.Caller.Function
	} else if f, ok := callerFrame(); ok {
		r.PathName = f.File
		r.Line = f.Line
		r.FuncName = f.Function
	}

	// Data is a map; sort it so packets are stable
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	r.Extras = make([]slog.Attr, 0, len(keys)+2)
	for _, k := range keys {
		r.Extras = append(r.Extras, slog.Any(k, entry.Data[k]))
	}
	r.Extras = append(r.Extras, bulkudp.TraceAttrs(entry.Context)...)

	return r
}

// callerFrame finds the first frame outside of logrus and this package.
func callerFrame() (runtime.Frame, bool) {
	pcs := make([]uintptr, 25)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !strings.Contains(f.Function, "github.com/sirupsen/logrus") &&
			!strings.Contains(f.Function, "bulkudp/bulkudplogrus.") {
			return f, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}
