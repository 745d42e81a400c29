package workshop

import (
	"log/slog"
	"time"
)

type options struct {
	logger       *slog.Logger
	metrics      Metrics
	hooks        *Hooks
	guard        Guard
	pollInterval time.Duration
	timeout      time.Duration
	drainTimeout time.Duration
	prefix       string
	inline       bool
	installDir   string
	restartCheck bool
	purgeOnOpen  bool
}

func defaultOptions() options {
	return options{
		logger:       slog.Default(),
		metrics:      NoopMetrics{},
		guard:        DefaultGuard,
		pollInterval: DefaultPollInterval,
		drainTimeout: DefaultDrainTimeout,
		prefix:       DefaultStagingPrefix,
		purgeOnOpen:  true,
	}
}

// Option represents a functional option for configuring a Session
type Option func(*options)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithHooks installs pipeline hooks
func WithHooks(h *Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithGuard replaces DefaultGuard. Use NoGuard to disable the check.
func WithGuard(g Guard) Option {
	return func(o *options) {
		if g != nil {
			o.guard = g
		}
	}
}

// WithPollInterval sets the event pump cadence
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithOperationTimeout bounds every asynchronous call. Zero waits forever.
func WithOperationTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithDrainTimeout bounds how long Close waits for the late completions of
// timed-out calls before reaping staging files.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.drainTimeout = d
		}
	}
}

// WithStagingPrefix sets the namespace of staged remote file names
func WithStagingPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithInlinePump drives the event queue from each wait instead of a
// background loop. Suited to sessions that issue a single call.
func WithInlinePump() Option {
	return func(o *options) {
		o.inline = true
	}
}

// WithInstallDir sets where downloaded items are placed
func WithInstallDir(dir string) Option {
	return func(o *options) {
		o.installDir = dir
	}
}

// WithRestartCheck polls RestartAppIfNecessary on every background tick
func WithRestartCheck() Option {
	return func(o *options) {
		o.restartCheck = true
	}
}

// WithoutStalePurge skips reaping temporary files when the session opens
func WithoutStalePurge() Option {
	return func(o *options) {
		o.purgeOnOpen = false
	}
}
