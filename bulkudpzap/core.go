// Package bulkudpzap sends zap entries through a bulkudp.Handler.
//
//	h, err := bulkudp.NewHandler(elkHost, 9700, nil)
//	if err != nil {
//		log.Fatalln(err)
//	}
//	logger := zap.New(bulkudpzap.NewCore(h, zapcore.InfoLevel))
package bulkudpzap

import (
	"log/slog"
	"slices"

	"github.com/bitdabbler/bulkudp"
	"go.uber.org/zap/zapcore"
)

var severities = map[zapcore.Level]int{
	zapcore.DebugLevel:  10,
	zapcore.InfoLevel:   20,
	zapcore.WarnLevel:   30,
	zapcore.ErrorLevel:  40,
	zapcore.DPanicLevel: 50,
	zapcore.PanicLevel:  50,
	zapcore.FatalLevel:  50,
}

// Core is a zapcore.Core that emits every entry it writes as one packet.
// Fields are sent as extras in the order they were added, With fields
// first.
type Core struct {
	zapcore.LevelEnabler
	h      *bulkudp.Handler
	fields []zapcore.Field
}

// NewCore returns a Core that writes entries enabled by enab.
func NewCore(h *bulkudp.Handler, enab zapcore.LevelEnabler) *Core {
	return &Core{LevelEnabler: enab, h: h}
}

// Level maps a zap level onto the ingestion numbering.
func Level(l zapcore.Level) bulkudp.Level {
	n, ok := severities[l]
	if !ok {
		n = severities[zapcore.InfoLevel]
	}
	return bulkudp.Level{Number: n, Name: l.CapitalString()}
}

// With implements zapcore.Core.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	c2 := *c
	c2.fields = append(slices.Clip(c.fields), fields...)
	return &c2
}

// Check implements zapcore.Core.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write implements zapcore.Core. It never fails; send errors are reported
// by the Handler.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	r := bulkudp.NewRecord(Level(ent.Level), ent.Message, ent.Time)

	r.LoggerName = ent.LoggerName
	if len(r.LoggerName) == 0 {
		r.LoggerName = c.h.Name
	}

	if ent.Caller.Defined {
		r.PathName = ent.Caller.File
		r.Line = ent.Caller.Line
		r.FuncName = ent.Caller.Function
	}

	r.Extras = make([]slog.Attr, 0, len(c.fields)+len(fields)+1)
	r.Extras = appendFields(r.Extras, c.fields)
	r.Extras = appendFields(r.Extras, fields)
	if len(ent.Stack) > 0 {
		r.Extras = append(r.Extras, slog.String("stack", ent.Stack))
	}

	c.h.Emit(r)
	return nil
}

// Sync implements zapcore.Core. Packets are sent as they are written, so
// there is nothing to flush.
func (c *Core) Sync() error {
	return nil
}

// appendFields converts zap fields to attrs, one field at a time so that
// their order survives. A field that adds several keys (an inlined object)
// has them sorted.
func appendFields(attrs []slog.Attr, fields []zapcore.Field) []slog.Attr {
	for _, f := range fields {
		if f.Type == zapcore.NamespaceType || f.Type == zapcore.SkipType {
			continue
		}

		enc := zapcore.NewMapObjectEncoder()
		f.AddTo(enc)

		keys := make([]string, 0, len(enc.Fields))
		for k := range enc.Fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, enc.Fields[k]))
		}
	}
	return attrs
}
