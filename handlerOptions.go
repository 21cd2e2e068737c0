package bulkudp

import (
	"errors"
	"log/slog"
	"time"
)

// HandlerOptions are used to customize the bulkudp slog.Handler.
//
// NB: The struct pointer options approach is used to be consistent with the
// approach used in the standard library for `HandlerOptions`.
type HandlerOptions struct {

	// Level reports the minimum record level that will be logged. The handler
	// discards records with lower levels. If Level is nil, the handler assumes
	// LevelInfo. The handler calls Level.Level for each record processed; to
	// adjust the minimum level dynamically, use a LevelVar.
	Level slog.Leveler

	// TimeFormat controls how time values inside the log attributes get
	// serialized. It does not change the `@timestamp` field, which always
	// uses ISO-8601 in UTC with a trailing `Z`. The default is
	// time.RFC3339Nano.
	TimeFormat string

	// MaxPacketSize is the maximum size, in bytes, of one serialized log
	// packet, including the trailing newline. Fields are dropped, lowest
	// priority first, to stay within it. The default is 64KiB. Values below
	// 3 (the size of an empty object) are raised to 3.
	MaxPacketSize int

	// DebuggingFields adds the source location, process and thread details
	// (`file`, `line`, `_function`, `_pid`, `_thread_name` and
	// `_process_name`) to every packet.
	DebuggingFields bool

	// SkipExtraFields stops the caller supplied attributes from being sent.
	// The default is false, so extra attributes are sent with their keys
	// prefixed by `_`.
	SkipExtraFields bool

	// FQDN uses the fully qualified domain name of this host as the
	// `logsource`. It takes precedence over LocalName.
	FQDN bool

	// LocalName, if set, is used as the `logsource` instead of the hostname.
	LocalName string

	// Service is sent in the `service` field. The default is "logstash".
	Service string

	// Type is the document type of the log messages. It is carried for
	// configuration compatibility, and is not sent. The default is "logs".
	Type string

	// Name is the logger name sent in the `name` field for slog records. The
	// default is "root". See Handler.Named.
	Name string

	// Verbose controls whether debug logs are written to the internal logger.
	Verbose bool
}

const (
	defaultTimeFormat    = time.RFC3339Nano
	defaultMaxPacketSize = 64 << 10
	minPacketSize        = len("{}\n")
	defaultService       = "logstash"
	defaultType          = "logs"
	defaultLoggerName    = "root"
)

// DefaultHandlerOptions returns *HandlerOptions with all default values.
func DefaultHandlerOptions() *HandlerOptions {
	return &HandlerOptions{
		Level:         slog.LevelInfo,
		TimeFormat:    defaultTimeFormat,
		MaxPacketSize: defaultMaxPacketSize,
		Service:       defaultService,
		Type:          defaultType,
		Name:          defaultLoggerName,
	}
}

// resolve ensures that all options have valid values.
func (o *HandlerOptions) resolve() {

	// set default log level if not provided
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}

	// set time format if missing, otherwise validate user provided one
	if len(o.TimeFormat) == 0 {
		o.TimeFormat = defaultTimeFormat
	} else {
		ref := time.Date(2009, time.November, 10, 23, 4, 5, 0, time.UTC)
		formatted := ref.Format(o.TimeFormat)
		_, err := time.Parse(o.TimeFormat, formatted)
		if err == nil && formatted == o.TimeFormat {
			err = errors.New("layout has no time elements")
		}
		if err != nil {
			InternalLogger().Printf("HandlerOptions.TimeFormat is invalid, using %q: %v", defaultTimeFormat, err)
			o.TimeFormat = defaultTimeFormat
		}
	}

	// not set -> default; too small for even an empty object -> minimum
	if o.MaxPacketSize <= 0 {
		o.MaxPacketSize = defaultMaxPacketSize
	} else if o.MaxPacketSize < minPacketSize {
		o.MaxPacketSize = minPacketSize
	}

	if len(o.Service) == 0 {
		o.Service = defaultService
	}

	if len(o.Type) == 0 {
		o.Type = defaultType
	}

	if len(o.Name) == 0 {
		o.Name = defaultLoggerName
	}
}
