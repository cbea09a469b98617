package wechaty

import (
	"context"
	"log/slog"
	"time"

	"ex-wechaty/internal/kernel"
)

// config stores resolved bot settings after option application.
type config struct {
	name          string
	logger        *slog.Logger
	kernelOptions []kernel.Option
	onAsyncError  func(context.Context, string, error)
}

// Option mutates bot construction configuration.
type Option func(*config)

// WithName configures the name of the default listener.
func WithName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithLogger configures the logger shared by the bot and its kernel.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithAsyncErrorHandler configures reporting of failures that happen off the
// caller goroutine, such as dropped deliveries and failed hydration.
func WithAsyncErrorHandler(handler func(context.Context, string, error)) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.onAsyncError = handler
		}
	}
}

// WithMailboxBuffer configures the queue depth of every listener.
func WithMailboxBuffer(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.kernelOptions = append(cfg.kernelOptions, kernel.WithMailboxBuffer(size))
		}
	}
}

// WithDropOldest makes full listener queues evict their oldest event instead
// of rejecting the newest one.
func WithDropOldest() Option {
	return func(cfg *config) {
		cfg.kernelOptions = append(cfg.kernelOptions, kernel.WithMailboxBackpressure(kernel.BackpressureDropOldest))
	}
}

// WithShutdownTimeout bounds the shutdown phase of Run.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		if timeout > 0 {
			cfg.kernelOptions = append(cfg.kernelOptions, kernel.WithShutdownTimeout(timeout))
		}
	}
}

// WithSingleFlight collapses concurrent loads of one id into a single remote fetch.
func WithSingleFlight() Option {
	return func(cfg *config) {
		cfg.kernelOptions = append(cfg.kernelOptions, kernel.WithSingleFlight())
	}
}

// WithMessageHistory lets message searches see the last size observed ids,
// including messages no longer cached.
func WithMessageHistory(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.kernelOptions = append(cfg.kernelOptions, kernel.WithMessageHistory(size))
		}
	}
}

// WithKernelOptions passes low-level options to the kernel.
func WithKernelOptions(options ...kernel.Option) Option {
	return func(cfg *config) {
		cfg.kernelOptions = append(cfg.kernelOptions, options...)
	}
}
