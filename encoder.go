package bulkudp

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
)

// every packet is a JSON object
const (
	prelude    = '{'
	preludeLen = 1
	terminator = "}\n"
)

const (
	// quotes around the key, the colon, the separator or closing brace, and
	// room for the closing newline
	fieldOverhead = 5

	// once fewer bytes than this remain, no more fields are considered
	exhaustedBudget = 16
)

// EncoderPool defines a shared *Encoder pool, used to minimize heap
// allocations.
type EncoderPool struct {
	p sync.Pool
	*EncoderOptions
}

// NewEncoderPool creates a shared *Encoder pool that returns Encoders with
// the opening brace of the packet already written.
func NewEncoderPool(opts *EncoderOptions) *EncoderPool {
	if opts == nil {
		opts = DefaultEncoderOptions()
	} else {
		opts.resolve()
	}

	ep := &EncoderPool{EncoderOptions: opts}

	ep.p = sync.Pool{
		New: func() any {
			enc := NewEncoder(opts.NewBufferCap)
			enc.p = ep
			enc.WriteByte(prelude)
			return enc
		},
	}

	return ep
}

// Get returns an Encoder with the prelude pre-rendered.
func (p *EncoderPool) Get() *Encoder {
	return p.p.Get().(*Encoder)
}

// Put resets an Encoder and returns it to the shared pool.
func (p *EncoderPool) Put(e *Encoder) {

	// drop if the buffer got too large
	if e.Buffer.Cap() > p.MaxBufferCap {
		return
	}

	// reset for the next usage
	e.Buffer.Truncate(preludeLen)
	e.field.Reset()

	p.p.Put(e)
}

// Encoder holds one packet while it is being built. The embedded
// bytes.Buffer is the packet itself; each field is first serialized to a
// separate buffer, so it can be measured before it is committed.
type Encoder struct {
	*bytes.Buffer
	field *bytes.Buffer
	json  *json.Encoder
	p     *EncoderPool
}

// NewEncoder returns a newly allocated Encoder.
func NewEncoder(bufferCap int) *Encoder {
	buf := bytes.NewBuffer(make([]byte, 0, bufferCap))
	field := bytes.NewBuffer(make([]byte, 0, minBufferCap))

	je := json.NewEncoder(field)
	je.SetEscapeHTML(false)

	return &Encoder{
		Buffer: buf,
		field:  field,
		json:   je,
	}
}

// Free returns the encoder to the shared pool after eagerly resetting it.
// It is a no-op for Encoders that did not come from a pool.
func (e *Encoder) Free() {
	if e.p == nil {
		return
	}
	e.p.Put(e)
}

// buildPacket serializes fields, in order, into the packet. A field whose
// cost is not below the bytes left is skipped; once fewer than
// exhaustedBudget bytes are left, the rest of the sequence is abandoned. The
// packet is terminated in every case, and never grows beyond maxSize.
//
// It returns the number of fields that were generated but not sent.
func (e *Encoder) buildPacket(fields iter.Seq2[string, slog.Value], maxSize int, timeFormat string) (skipped int) {
	if e.Len() == 0 {
		e.WriteByte(prelude)
	}

	first := true
	for k, v := range fields {
		left := maxSize - e.Len()

		if cost := e.encodeField(k, v, timeFormat); cost < left {
			if !first {
				e.WriteByte(',')
			}
			first = false
			e.Write(e.field.Bytes())
			continue
		}

		skipped++
		if left < exhaustedBudget {
			break
		}
	}

	e.WriteString(terminator)
	return skipped
}

// encodeField serializes one `"key":value` pair into the field buffer, and
// returns what it costs against the packet budget: the escaped key, the
// value, and fieldOverhead.
func (e *Encoder) encodeField(key string, v slog.Value, timeFormat string) int {
	e.field.Reset()

	e.encodeString(key)
	keyLen := e.field.Len() - 2

	e.field.WriteByte(':')
	valStart := e.field.Len()
	e.encodeValue(v, timeFormat)

	return keyLen + e.field.Len() - valStart + fieldOverhead
}

// encodeValue never fails; values with no JSON form are written as their
// string representation.
func (e *Encoder) encodeValue(v slog.Value, timeFormat string) {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		e.encodeString(v.String())
	case slog.KindInt64:
		e.field.Write(strconv.AppendInt(e.field.AvailableBuffer(), v.Int64(), 10))
	case slog.KindUint64:
		e.field.Write(strconv.AppendUint(e.field.AvailableBuffer(), v.Uint64(), 10))
	case slog.KindFloat64:
		f := v.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			e.encodeString(strconv.FormatFloat(f, 'g', -1, 64))
		} else {
			e.encodeAny(f)
		}
	case slog.KindBool:
		e.field.Write(strconv.AppendBool(e.field.AvailableBuffer(), v.Bool()))
	case slog.KindDuration:
		e.encodeString(v.Duration().String())
	case slog.KindTime:
		e.encodeString(v.Time().Format(timeFormat))
	case slog.KindGroup:
		e.field.WriteByte('{')
		e.encodeMembers(v.Group(), timeFormat, true)
		e.field.WriteByte('}')
	case slog.KindAny:
		e.encodeAny(v.Any())
	default:
		e.encodeString(v.String())
	}
}

// encodeMembers writes the attrs of a group as object members. Empty attrs
// are ignored, and the attrs of groups with empty keys are inlined. It
// reports whether no member has been written yet.
func (e *Encoder) encodeMembers(attrs []slog.Attr, timeFormat string, first bool) bool {
	for _, a := range attrs {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			continue
		}

		if a.Value.Kind() == slog.KindGroup && len(a.Key) == 0 {
			first = e.encodeMembers(a.Value.Group(), timeFormat, first)
			continue
		}

		if !first {
			e.field.WriteByte(',')
		}
		first = false

		e.encodeString(a.Key)
		e.field.WriteByte(':')
		e.encodeValue(a.Value, timeFormat)
	}
	return first
}

func (e *Encoder) encodeAny(x any) {
	switch x := x.(type) {
	case nil:
		e.field.WriteString("null")
		return
	case error:
		e.encodeString(x.Error())
		return
	}

	if err := e.encodeJSON(x); err != nil {
		e.encodeString(fallbackString(x, err))
	}
}

// fallbackString is the string form of a value with no JSON form. It never
// walks x itself, which may be cyclic.
func fallbackString(x any, err error) string {
	if s, ok := x.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("<%T: %v>", x, err)
}

func (e *Encoder) encodeString(s string) {
	if err := e.encodeJSON(s); err != nil {
		e.field.WriteString(`""`)
	}
}

// encodeJSON appends the JSON text of x to the field buffer, without the
// newline json.Encoder adds. Nothing is appended on failure.
func (e *Encoder) encodeJSON(x any) error {
	mark := e.field.Len()
	if err := e.json.Encode(x); err != nil {
		e.field.Truncate(mark)
		return err
	}
	if b := e.field.Bytes(); len(b) > mark && b[len(b)-1] == '\n' {
		e.field.Truncate(len(b) - 1)
	}
	return nil
}
