package wechaty

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ex-wechaty/internal/kernel"
	"ex-wechaty/pkg/puppet"
)

const defaultModuleHookTimeout = 10 * time.Second

// Module is a lifecycle-aware bot plugin.
//
// Handlers registered from OnRegister run on listener workers, so modules must
// be safe for concurrent use.
type Module interface {
	// Name returns a stable module identifier.
	Name() string
	// OnRegister is called once when the module is added to the bot.
	OnRegister(ctx context.Context, bot *Bot) error
	// OnStart is called when the bot begins running.
	OnStart(ctx context.Context) error
	// OnShutdown is called during orderly shutdown.
	OnShutdown(ctx context.Context) error
}

// Bot drives one account through a driver. It embeds a default listener, so
// handlers can be registered on the bot directly.
type Bot struct {
	*Listener

	kernel  *kernel.Kernel
	context *Context
	logger  *slog.Logger

	mu      sync.Mutex
	modules []Module
}

// New creates a bot around driver.
func New(driver puppet.Driver, options ...Option) (*Bot, error) {
	cfg := config{logger: slog.Default()}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.name == "" {
		cfg.name = "wechaty-" + uuid.NewString()
	}

	kernelOptions := append([]kernel.Option{kernel.WithLogger(cfg.logger)}, cfg.kernelOptions...)
	if cfg.onAsyncError != nil {
		kernelOptions = append(kernelOptions, kernel.WithAsyncErrorHandler(cfg.onAsyncError))
	}
	k, err := kernel.New(driver, kernelOptions...)
	if err != nil {
		return nil, fmt.Errorf("new bot: %w", err)
	}

	c := newContext(k, cfg.logger)
	listener := newListener(cfg.name, c, k)
	listener.track(puppet.EventKindLogin, puppet.EventKindLogout)

	return &Bot{
		Listener: listener,
		kernel:   k,
		context:  c,
		logger:   cfg.logger,
	}, nil
}

// Context returns the context shared by every listener of the bot.
func (b *Bot) Context() *Context {
	return b.context
}

// NewListener creates an additional listener. Each listener handles its
// events on its own worker. An empty name is replaced by a generated one.
func (b *Bot) NewListener(name string) *Listener {
	if name == "" {
		name = "listener-" + uuid.NewString()
	}

	return newListener(name, b.context, b.kernel)
}

// Use registers modules in order. Registration stops at the first failure.
func (b *Bot) Use(ctx context.Context, modules ...Module) error {
	for _, module := range modules {
		if err := b.use(ctx, module); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bot) use(ctx context.Context, module Module) error {
	if module == nil {
		return fmt.Errorf("use module: nil module")
	}
	name := module.Name()
	if name == "" {
		return fmt.Errorf("use module: empty module name")
	}

	b.mu.Lock()
	for _, registered := range b.modules {
		if registered.Name() == name {
			b.mu.Unlock()
			return fmt.Errorf("use module %s: already registered", name)
		}
	}
	b.mu.Unlock()

	hookCtx, cancel := context.WithTimeout(ctx, defaultModuleHookTimeout)
	defer cancel()
	if err := runHook("module "+name+" OnRegister", func() error {
		return module.OnRegister(hookCtx, b)
	}); err != nil {
		return fmt.Errorf("use module %s: %w", name, err)
	}

	b.mu.Lock()
	b.modules = append(b.modules, module)
	b.mu.Unlock()

	return nil
}

// Run starts modules and the driver and blocks until ctx is cancelled or the
// driver stops. Modules are shut down in reverse order afterwards.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	modules := append([]Module(nil), b.modules...)
	b.mu.Unlock()

	started, startErr := startModules(ctx, modules)
	if startErr != nil {
		shutdownCtx := context.WithoutCancel(ctx)
		return errors.Join(
			startErr,
			shutdownModules(shutdownCtx, started),
			b.kernel.Close(shutdownCtx),
		)
	}

	b.logger.InfoContext(ctx, "bot running", "driver", b.kernel.DriverName(), "modules", len(modules))
	runErr := b.kernel.Run(ctx)
	shutdownErr := shutdownModules(context.WithoutCancel(ctx), started)

	return errors.Join(runErr, shutdownErr)
}

// Close releases the bus and listener workers of a bot that is not running.
func (b *Bot) Close(ctx context.Context) error {
	return b.kernel.Close(ctx)
}

// startModules invokes OnStart in registration order and returns the modules
// that started.
func startModules(ctx context.Context, modules []Module) ([]Module, error) {
	started := make([]Module, 0, len(modules))
	for _, module := range modules {
		name := module.Name()
		hookCtx, cancel := context.WithTimeout(ctx, defaultModuleHookTimeout)
		err := runHook("module "+name+" OnStart", func() error {
			return module.OnStart(hookCtx)
		})
		cancel()
		if err != nil {
			return started, fmt.Errorf("start module %s: %w", name, err)
		}
		started = append(started, module)
	}

	return started, nil
}

// shutdownModules invokes OnShutdown in reverse order.
func shutdownModules(ctx context.Context, modules []Module) error {
	var shutdownErr error
	for idx := len(modules) - 1; idx >= 0; idx-- {
		module := modules[idx]
		name := module.Name()
		hookCtx, cancel := context.WithTimeout(ctx, defaultModuleHookTimeout)
		err := runHook("module "+name+" OnShutdown", func() error {
			return module.OnShutdown(hookCtx)
		})
		cancel()
		if err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown module %s: %w", name, err))
		}
	}

	return shutdownErr
}

// runHook executes fn and converts panics into errors.
func runHook(scope string, fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%s panic: %v", scope, recovered)
		}
	}()

	return fn()
}
