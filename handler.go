package bulkudp

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// FieldsKey is the key of the slog group that carries a structured message.
// See Fields.
const FieldsKey = fieldsKey

// Fields returns an Attr carrying a structured message, the counterpart of
// logging a mapping instead of a string. Its attrs are sent as `@fields`,
// and a "message" attr, of any kind, replaces the record message.
//
//	logger.Info("payment failed", bulkudp.Fields(
//		"message", "card declined",
//		"code", 7,
//	))
//
// It is only recognized at the top level of a record, not inside a group.
func Fields(args ...any) slog.Attr {
	return slog.Group(FieldsKey, args...)
}

// Sink interface defines the transport API. Send must not retain p after it
// returns, and must be safe for concurrent use.
type Sink interface {
	Send(p []byte) error
	Shutdown(context.Context) error
}

// groupOrAttrs holds either a group name or a list of attrs, as added by
// WithGroup and WithAttrs.
type groupOrAttrs struct {
	group string
	attrs []slog.Attr
}

// Handler turns log records into size-bounded JSON packets and hands each of
// them to a Sink, synchronously, in the goroutine that logged.
//
//	// Example of basic usage
//	h, err := bulkudp.NewHandler(elkHost, 9700, nil)
//	if err != nil {
//	   log.Fatalln(err)
//	}
//
//	logger := slog.New(h)
//	slog.SetDefault(logger)
//
//	slog.Info("unrecognized user", "user_id", user_id)
type Handler struct {
	*HandlerOptions
	client    Sink
	pool      *EncoderPool
	logSource string
	goas      []groupOrAttrs
}

// NewHandler creates a Handler that sends to host:port over UDP, using an
// EncoderPool and a Client with default options.
//
// For complete control over the `bulkudp.Client` and the `bulkudp.Encoder`
// buffers, use the `NewHandlerCustom` constructor.
func NewHandler(host string, port int, opts *HandlerOptions) (*Handler, error) {
	c, err := NewClient(host, &ClientOptions{Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulkudp.NewClient: %w", err)
	}

	return NewHandlerCustom(c, NewEncoderPool(nil), opts), nil
}

// NewHandlerCustom creates a Handler that wraps a Sink and an EncoderPool
// that are fully customizable by the caller.
func NewHandlerCustom(client Sink, pool *EncoderPool, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = DefaultHandlerOptions()
	} else {
		opts.resolve()
	}

	if pool == nil {
		pool = NewEncoderPool(nil)
	}

	return &Handler{
		HandlerOptions: opts,
		client:         client,
		pool:           pool,
		logSource:      resolveLogSource(opts),
	}
}

// Shutdown releases the Sink. You MUST NOT call any other logger methods
// after calling Shutdown.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.debug("shutting down the logging stack")
	return h.client.Shutdown(ctx)
}

// Named returns a copy of the Handler that sends name in the `name` field.
func (h *Handler) Named(name string) *Handler {
	h2 := h.clone()
	opts := *h.HandlerOptions
	opts.Name = name
	h2.HandlerOptions = &opts
	return h2
}

// clone makes a copy of the Handler that can be extended without affecting
// the handler it derives from.
func (h *Handler) clone() *Handler {
	h2 := *h
	h2.goas = slices.Clip(h.goas)
	return &h2
}

func (h *Handler) debug(format string, args ...any) {
	if !h.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}

// handleError reports a record that could not be sent, or could only partly
// be sent. It never fails.
func (h *Handler) handleError(r *Record, err error) {
	InternalLogger().Printf("failed to emit record: logger: %s: message: %q: %v", r.LoggerName, r.Message, err)
}

// Enabled reports whether the handler handles records at the given level. The
// handler ignores records whose level is lower.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.Level.Level()
}

// Handle converts the slog.Record and emits it. It always returns nil:
// delivery is best effort, and failures are reported through the internal
// logger instead.
//
// The slog rules are followed, with one exception. If r.Time is the zero
// time, time.Now() is used, because `@timestamp` can not be left out. If
// the context carries a valid OpenTelemetry span context, its trace and span
// ids are added as extra fields.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	h.Emit(h.newRecord(ctx, r))
	return nil
}

// Emit serializes r into one packet and sends it. Fields are dropped, lowest
// priority first, to fit the packet into MaxPacketSize. Nothing escapes
// Emit: panics and errors during serialization, and errors from the Sink,
// are reported through the internal logger and the packet is dropped.
func (h *Handler) Emit(r *Record) {
	enc := h.pool.Get()

	defer func() {
		if p := recover(); p != nil {
			// the encoder is in an unknown state; leave it to the GC
			h.handleError(r, fmt.Errorf("panic while emitting: %v", p))
			return
		}
		enc.Free()
	}()

	skipped := enc.buildPacket(h.fields(r), h.MaxPacketSize, h.TimeFormat)
	if skipped > 0 {
		h.debug("packet budget of %d bytes exceeded: %d fields left out", h.MaxPacketSize, skipped)
	}

	if err := h.client.Send(enc.Bytes()); err != nil {
		h.handleError(r, fmt.Errorf("failed to send packet: %w", err))
	}
}

// newRecord builds the Record for one slog.Record. The attrs added with
// WithAttrs and WithGroup, then the record's own attrs, become the extras;
// a top level FieldsKey group becomes the structured message.
func (h *Handler) newRecord(ctx context.Context, r slog.Record) *Record {

	// rule: ignore record time if zero
	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	rec := NewRecord(LevelFromSlog(r.Level), r.Message, t)
	rec.LoggerName = h.Name

	// rule: ignore source if no program counter
	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		rec.PathName = f.File
		rec.Line = f.Line
		rec.FuncName = f.Function
	}

	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	// wrap from the innermost group outwards
	for i := len(h.goas) - 1; i >= 0; i-- {
		goa := h.goas[i]
		if len(goa.group) == 0 {
			attrs = append(slices.Clip(goa.attrs), attrs...)
			continue
		}
		// rule: a group with no attrs is ignored
		if len(attrs) > 0 {
			attrs = []slog.Attr{{Key: goa.group, Value: slog.GroupValue(attrs...)}}
		}
	}

	attrs = append(attrs, TraceAttrs(ctx)...)

	for _, a := range flatten(attrs) {
		if a.Key == FieldsKey && a.Value.Kind() == slog.KindGroup {
			rec.Fields = a.Value.Group()
			continue
		}
		rec.Extras = append(rec.Extras, a)
	}

	return rec
}

// TraceAttrs returns the trace_id and span_id attrs of the OpenTelemetry span
// context carried by ctx, or nil if there is no valid one.
func TraceAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []slog.Attr{
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	}
}

// flatten resolves attrs and applies the slog rules at the top level: empty
// attrs are dropped, groups with empty keys are inlined, and empty groups
// are dropped. Where a key repeats, the attr keeps its first position and
// takes the last value.
func flatten(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	idx := make(map[string]int, len(attrs))

	var add func([]slog.Attr)
	add = func(as []slog.Attr) {
		for _, a := range as {
			a.Value = a.Value.Resolve()
			if a.Equal(slog.Attr{}) {
				continue
			}

			if a.Value.Kind() == slog.KindGroup {
				if len(a.Value.Group()) == 0 {
					continue
				}
				if len(a.Key) == 0 {
					add(a.Value.Group())
					continue
				}
			} else if len(a.Key) == 0 {
				// rule: ignore non-group attrs with empty keys
				continue
			}

			if i, ok := idx[a.Key]; ok {
				out[i] = a
				continue
			}
			idx[a.Key] = len(out)
			out = append(out, a)
		}
	}
	add(attrs)

	return out
}

// WithAttrs returns a new Handler whose attributes consist of both the
// receiver's attributes and the arguments.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {

	// rule: skip if no attrs
	if len(attrs) == 0 {
		return h
	}

	h2 := h.clone()
	h2.goas = append(h2.goas, groupOrAttrs{attrs: slices.Clone(attrs)})
	return h2
}

// WithGroup returns a new Handler with the given group appended to the
// receiver's existing groups. Attrs added later are sent nested inside the
// group, in one extra field named after the outermost group.
//
// If the name is empty, WithGroup returns the receiver, which results in the
// nested attributes being inlined into the parent scope.
func (h *Handler) WithGroup(name string) slog.Handler {

	// rule: ignore if name is empty (true for any attr)
	if len(name) == 0 {
		return h
	}

	h2 := h.clone()
	h2.goas = append(h2.goas, groupOrAttrs{group: name})
	return h2
}
