package bulkudp

import (
	"iter"
	"log/slog"
	"strings"
)

// field keys
const (
	versionKey     = "@version"
	fieldsKey      = "@fields"
	messageKey     = "message"
	logSourceKey   = "logsource"
	severityKey    = "severity"
	timestampKey   = "@timestamp"
	levelKey       = "level"
	nameKey        = "name"
	serviceKey     = "service"
	fileKey        = "file"
	lineKey        = "line"
	functionKey    = "_function"
	pidKey         = "_pid"
	threadNameKey  = "_thread_name"
	processNameKey = "_process_name"

	extraPrefix = "_"
	version     = "1"
)

// reservedKeys are never sent as extra fields. They name the standard record
// attributes of the Python logging module, which feeds the same ingestion
// pipeline, so that a Go attribute can not shadow one of them downstream.
var reservedKeys = map[string]struct{}{
	"args":            {},
	"asctime":         {},
	"created":         {},
	"exc_info":        {},
	"exc_text":        {},
	"filename":        {},
	"funcName":        {},
	"id":              {},
	"levelname":       {},
	"levelno":         {},
	"lineno":          {},
	"module":          {},
	"msecs":           {},
	"message":         {},
	"msg":             {},
	"name":            {},
	"pathname":        {},
	"process":         {},
	"processName":     {},
	"relativeCreated": {},
	"stack_info":      {},
	"taskName":        {},
	"thread":          {},
	"threadName":      {},
}

// isExtraKey reports whether an attribute with key k is sent as an extra
// field.
func isExtraKey(k string) bool {
	if len(k) == 0 || strings.HasPrefix(k, extraPrefix) {
		return false
	}
	_, reserved := reservedKeys[k]
	return !reserved
}

// fields returns every candidate field for r, highest priority first. The
// sequence is lazy, so the packet builder can stop pulling as soon as the
// budget runs out, and it can be ranged over any number of times.
func (h *Handler) fields(r *Record) iter.Seq2[string, slog.Value] {
	return func(yield func(string, slog.Value) bool) {
		mandatory := [...]struct {
			k string
			v slog.Value
		}{
			{versionKey, slog.StringValue(version)},
			{fieldsKey, slog.GroupValue(r.Fields...)},
			{messageKey, r.message()},
			{logSourceKey, slog.StringValue(h.logSource)},
			{severityKey, slog.IntValue(r.Level.Number)},
			{timestampKey, slog.StringValue(formatTimestamp(r.Created))},
			{levelKey, slog.StringValue(r.Level.Name)},
			{nameKey, slog.StringValue(r.LoggerName)},
			{serviceKey, slog.StringValue(h.Service)},
		}
		for _, f := range mandatory {
			if !yield(f.k, f.v) {
				return
			}
		}

		if h.DebuggingFields {
			if !yield(fileKey, slog.StringValue(r.PathName)) ||
				!yield(lineKey, slog.IntValue(r.Line)) ||
				!yield(functionKey, slog.StringValue(r.FuncName)) ||
				!yield(pidKey, slog.IntValue(r.PID)) ||
				!yield(threadNameKey, slog.StringValue(r.ThreadName)) {
				return
			}
			if len(r.ProcessName) > 0 && !yield(processNameKey, slog.StringValue(r.ProcessName)) {
				return
			}
		}

		if h.SkipExtraFields {
			return
		}
		for _, a := range r.Extras {
			if !isExtraKey(a.Key) {
				continue
			}
			if !yield(extraPrefix+a.Key, a.Value) {
				return
			}
		}
	}
}
