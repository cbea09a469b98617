package kernel

import (
	"context"
	"log/slog"
	"time"

	"ex-wechaty/internal/cache"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultBusInbox        = 256
	defaultMailboxBuffer   = 256
)

// config stores resolved kernel runtime settings after option application.
type config struct {
	shutdownTimeout     time.Duration
	busInbox            int
	mailboxBuffer       int
	mailboxBackpressure BackpressurePolicy
	capacities          cache.Capacities
	singleFlight        bool
	messageHistory      int
	logger              *slog.Logger
	onAsyncError        func(context.Context, string, error)
}

// Option mutates kernel construction configuration.
type Option func(*config)

// defaultConfig returns production-safe defaults for kernel runtime controls.
func defaultConfig() config {
	logger := slog.Default()

	return config{
		shutdownTimeout:     defaultShutdownTimeout,
		busInbox:            defaultBusInbox,
		mailboxBuffer:       defaultMailboxBuffer,
		mailboxBackpressure: BackpressureDropNewest,
		capacities:          cache.DefaultCapacities(),
		logger:              logger,
		onAsyncError:        asyncErrorLogger(logger),
	}
}

func asyncErrorLogger(logger *slog.Logger) func(context.Context, string, error) {
	return func(ctx context.Context, scope string, err error) {
		logger.ErrorContext(ctx, "wechaty async error", "scope", scope, "error", err)
	}
}

// WithShutdownTimeout configures the overall shutdown timeout of Run.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.shutdownTimeout = timeout
		}
	}
}

// WithBusInbox configures the command inbox depth of every bus bucket.
func WithBusInbox(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.busInbox = size
		}
	}
}

// WithMailboxBuffer configures the default subscriber mailbox depth.
func WithMailboxBuffer(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.mailboxBuffer = size
		}
	}
}

// WithMailboxBackpressure configures the default subscriber mailbox policy.
func WithMailboxBackpressure(policy BackpressurePolicy) Option {
	return func(cfg *config) {
		if policy == BackpressureDropNewest || policy == BackpressureDropOldest {
			cfg.mailboxBackpressure = policy
		}
	}
}

// WithCacheCapacities overrides per-kind cache limits. Zero fields keep defaults.
func WithCacheCapacities(capacities cache.Capacities) Option {
	return func(cfg *config) {
		cfg.capacities = capacities
	}
}

// WithSingleFlight de-duplicates concurrent cache misses for the same id.
func WithSingleFlight() Option {
	return func(cfg *config) {
		cfg.singleFlight = true
	}
}

// WithMessageHistory widens the message search universe to the last size
// message ids observed, including ids already evicted from the cache.
func WithMessageHistory(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.messageHistory = size
		}
	}
}

// WithLogger configures logger used by kernel and default async error sink.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			return
		}

		cfg.logger = logger
		cfg.onAsyncError = asyncErrorLogger(logger)
	}
}

// WithAsyncErrorHandler configures asynchronous delivery error reporting.
func WithAsyncErrorHandler(handler func(context.Context, string, error)) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.onAsyncError = handler
		}
	}
}
