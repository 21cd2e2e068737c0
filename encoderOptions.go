package bulkudp

// EncoderOptions are used to customize the Encoders and the Encoder pool.
//
// NB: The struct pointer options approach is used to be consistent with the
// options used for the Handler, which uses the struct pointer approach to be
// consistent with the `HandlerOptions` used by log/slog.
type EncoderOptions struct {

	// NewBufferCap sets the capacity, in bytes, for newly created Encoder
	// buffers. The minimum value is 64 bytes. The default is 1KiB (1<<10).
	NewBufferCap int

	// MaxBufferCap sets the maximum buffer capacity, in bytes, beyond which an
	// Encoder will not be returned to the shared Encoder pool, to prevent rare,
	// unusually large buffers from staying resident in memory. The minimum
	// value is the `NewBufferCap`. The default is 64KiB (1<<16), which holds
	// a packet of the default maximum size.
	MaxBufferCap int
}

const (
	minBufferCap        = 64
	defaultNewBufferCap = 1 << 10
	defaultMaxBufferCap = 1 << 16
)

// DefaultEncoderOptions returns *EncoderOptions with all default values.
func DefaultEncoderOptions() *EncoderOptions {
	return &EncoderOptions{
		NewBufferCap: defaultNewBufferCap,
		MaxBufferCap: defaultMaxBufferCap,
	}
}

// resolve ensures that all options have valid values.
func (o *EncoderOptions) resolve() {
	if o.NewBufferCap == 0 {
		o.NewBufferCap = defaultNewBufferCap
	}
	if o.MaxBufferCap == 0 {
		o.MaxBufferCap = defaultMaxBufferCap
	}
	o.NewBufferCap = max(o.NewBufferCap, minBufferCap)
	o.MaxBufferCap = max(o.NewBufferCap, o.MaxBufferCap)
}
