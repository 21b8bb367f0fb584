package hosting

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbukum/gohost/logger"
)

// Option configures the Host during creation.
type Option func(*hostOptions)

// hostOptions collects all option values before applying to Host.
type hostOptions struct {
	logger             *logger.Logger
	loggerFactory      logger.Factory
	shutdownTimeout    *time.Duration
	signals            []SignalSource
	startup            Startup
	startupConstructor interface{}
	startupName        string
	registerer         prometheus.Registerer
	summaryOutput      io.Writer
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *hostOptions {
	o := &hostOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the host's logger.
// If not set, the logger is initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *hostOptions) {
		o.logger = l
	}
}

// WithLoggerFactory sets the factory handed to the Startup. Defaults to a
// logger.Registry rooted at the host logger.
func WithLoggerFactory(f logger.Factory) Option {
	return func(o *hostOptions) {
		o.loggerFactory = f
	}
}

// WithShutdownTimeout overrides the configured shutdown timeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *hostOptions) {
		o.shutdownTimeout = &d
	}
}

// WithSignalSource adds a termination signal source. Repeatable. Setting any
// source replaces the default SIGINT/SIGTERM listener.
func WithSignalSource(s SignalSource) Option {
	return func(o *hostOptions) {
		if s != nil {
			o.signals = append(o.signals, s)
		}
	}
}

// WithStartup uses s instead of a registered Startup.
func WithStartup(s Startup) Option {
	return func(o *hostOptions) {
		o.startup = s
	}
}

// WithStartupConstructor uses constructor instead of a registered Startup.
// It accepts the same forms as RegisterStartup.
func WithStartupConstructor(constructor interface{}) Option {
	return func(o *hostOptions) {
		o.startupConstructor = constructor
	}
}

// WithStartupName selects a registered Startup by name.
func WithStartupName(name string) Option {
	return func(o *hostOptions) {
		o.startupName = name
	}
}

// WithMetricsRegisterer exports host lifecycle metrics to reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *hostOptions) {
		o.registerer = reg
	}
}

// WithSummaryOutput prints the human-readable startup summary to w in
// addition to the structured summary log line.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *hostOptions) {
		o.summaryOutput = w
	}
}
