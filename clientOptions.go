package bulkudp

import "time"

// ClientOptions are used to customize the Client.
//
// # Invalid options are coerced
//
// NB: The struct pointer options approach is used to be consistent with the
// options used for the Handler, which uses the struct pointer approach to be
// consistent with the `HandlerOptions` used by log/slog.
type ClientOptions struct {

	// Port of the bulk UDP server. The default is 9700.
	Port int

	// DialTimeout sets the timeout for dialing the server, which for UDP
	// covers resolving its address. The default is 30s.
	DialTimeout time.Duration

	// MaxEagerDialTries limits the number of times the constructor tries to
	// dial the server before giving up. It is not used if `SkipEagerDial` is
	// true. If the value is < 0, the constructor will not return until the
	// dial succeeds or its Context is done. The default is 10.
	MaxEagerDialTries int

	// SkipEagerDial enables returning clients that dial the server lazily, on
	// the first Send.
	SkipEagerDial bool

	// WriteTimeout controls the timeout for each Write to the server. If
	// WriteTimeout < 0, then no timeout will be set. The default is 1 second.
	WriteTimeout time.Duration

	// RateLimit caps the number of packets sent per second. Packets over the
	// limit are dropped, which trades log completeness for predictable load
	// on the network and the server. The default, 0, is no limit.
	RateLimit float64

	// RateBurst is the number of packets that may be sent at once above
	// RateLimit. It is only used with a RateLimit. The default is 1.
	RateBurst int

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const (
	defaultPort           = 9700
	defaultDialTimeout    = time.Second * 30
	defaultEagerDialTries = 10
	defaultWriteTimeout   = time.Second
	defaultRateBurst      = 1
)

// DefaultClientOptions returns *ClientOptions with all default values.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Port:              defaultPort,
		DialTimeout:       defaultDialTimeout,
		MaxEagerDialTries: defaultEagerDialTries,
		WriteTimeout:      defaultWriteTimeout,
		RateBurst:         defaultRateBurst,
	}
}

// resolve ensures that all options have valid values.
func (o *ClientOptions) resolve() {

	// constrain to valid range
	if o.Port < 1 || o.Port > 65535 {
		o.Port = defaultPort
	}

	// must be positive
	if o.DialTimeout < 1 {
		o.DialTimeout = defaultDialTimeout
	}

	// can be negative (infinity) or positive, but not 0
	if o.MaxEagerDialTries == 0 {
		o.MaxEagerDialTries = defaultEagerDialTries
	}

	// can be negative (no timeout) or positive, but not 0
	if o.WriteTimeout == 0 {
		o.WriteTimeout = defaultWriteTimeout
	}

	// negative means unlimited, as does 0
	if o.RateLimit < 0 {
		o.RateLimit = 0
	}

	// must be positive
	if o.RateBurst < 1 {
		o.RateBurst = defaultRateBurst
	}
}
