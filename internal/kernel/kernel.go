package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ex-wechaty/internal/cache"
	"ex-wechaty/pkg/puppet"
)

// InvalidationHook observes every payload id the kernel drops from its caches.
type InvalidationHook func(payloadType puppet.PayloadType, id string)

// Kernel is the puppet core: it owns the driver handle, the event bus and the
// entity caches, and fronts every remote read with the cache.
type Kernel struct {
	cfg config

	driver  puppet.Driver
	bus     *EventBus
	store   *cache.Store
	history *idHistory

	mu        sync.RWMutex
	hooks     []InvalidationHook
	mailboxes []*Mailbox

	runMu   sync.Mutex
	running bool
}

// New creates a kernel around driver.
func New(driver puppet.Driver, options ...Option) (*Kernel, error) {
	if driver == nil {
		return nil, fmt.Errorf("new kernel: nil driver")
	}

	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}

	k := &Kernel{
		cfg:     cfg,
		driver:  driver,
		bus:     NewEventBus(cfg.busInbox, cfg.logger, cfg.onAsyncError),
		history: newIDHistory(cfg.messageHistory),
	}

	cacheOptions := []cache.Option{cache.WithDropObserver(k.dropped)}
	if cfg.singleFlight {
		cacheOptions = append(cacheOptions, cache.WithSingleFlight())
	}
	store, err := cache.NewStore(cfg.capacities, cacheOptions...)
	if err != nil {
		_ = k.bus.Close(context.Background())
		return nil, fmt.Errorf("new kernel: %w", err)
	}
	k.store = store

	return k, nil
}

// dropped forwards every cache removal, LRU eviction included, to the
// invalidation hooks so snapshots never outlive their cache entry.
func (k *Kernel) dropped(cacheName string, id string) {
	k.cfg.logger.Debug("cache entry dropped", "cache", cacheName, "id", id)

	payloadType := puppet.ParsePayloadType(cacheName)
	if payloadType == puppet.PayloadTypeUnknown {
		return
	}
	k.notifyInvalidation(payloadType, id)
}

// Logger returns the kernel logger.
func (k *Kernel) Logger() *slog.Logger {
	return k.cfg.logger
}

// DriverName returns the name of the wrapped driver.
func (k *Kernel) DriverName() string {
	return k.driver.Name()
}

// Store exposes the entity caches.
func (k *Kernel) Store() *cache.Store {
	return k.store
}

// EventBus exposes the kernel event bus.
func (k *Kernel) EventBus() *EventBus {
	return k.bus
}

// Cached reports whether the payload id is currently resident in its cache.
func (k *Kernel) Cached(payloadType puppet.PayloadType, id string) bool {
	return k.store.Contains(payloadType, id)
}

// AddInvalidationHook registers hook for every subsequent cache invalidation
// and LRU eviction. Hooks must be idempotent.
func (k *Kernel) AddInvalidationHook(hook InvalidationHook) {
	if hook == nil {
		return
	}

	k.mu.Lock()
	k.hooks = append(k.hooks, hook)
	k.mu.Unlock()
}

// NewMailbox creates a subscriber mailbox owned by the kernel.
// It is closed when the kernel closes.
func (k *Kernel) NewMailbox(name string, handler MailboxHandler) (*Mailbox, error) {
	mailbox, err := NewMailbox(MailboxSpec{
		Name:         name,
		Buffer:       k.cfg.mailboxBuffer,
		Backpressure: k.cfg.mailboxBackpressure,
	}, handler, k.cfg.onAsyncError)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	k.mailboxes = append(k.mailboxes, mailbox)
	k.mu.Unlock()

	return mailbox, nil
}

// Subscribe registers sink under name for kind on the event bus.
//
// Sinks other than kernel mailboxes are wrapped in a fresh mailbox, so a sink
// that blocks delays only its own events.
func (k *Kernel) Subscribe(ctx context.Context, kind puppet.EventKind, name string, sink puppet.Sink) {
	if sink != nil {
		if _, queued := sink.(*Mailbox); !queued {
			mailbox, err := k.NewMailbox(name, sink.Deliver)
			if err != nil {
				k.cfg.logger.WarnContext(ctx, "subscribe failed", "kind", kind, "subscriber", name, "error", err)
				return
			}
			sink = mailbox
		}
	}
	k.bus.Subscribe(ctx, kind, name, sink)
}

// Unsubscribe removes name from kind on the event bus.
func (k *Kernel) Unsubscribe(ctx context.Context, kind puppet.EventKind, name string) {
	k.bus.Unsubscribe(ctx, kind, name)
}

// Publish accepts one driver event: dirty events invalidate caches, all other
// kinds are dispatched to subscribers.
func (k *Kernel) Publish(ctx context.Context, event *puppet.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	switch event.Kind {
	case puppet.EventKindDirty:
		if err := k.Dirty(ctx, event.Dirty.PayloadType, event.Dirty.PayloadID); err != nil {
			return fmt.Errorf("publish event %s: %w", event.Kind, err)
		}
		return nil
	case puppet.EventKindMessage:
		k.history.remember(event.MessageID)
	}

	if err := k.bus.Dispatch(ctx, event); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Kind, err)
	}

	return nil
}

// Dirty drops one payload so the next read re-fetches it.
//
// Room ids also drop every member entry of the room, using a remote member
// list. Room member dirties take a room id and drop that room's members.
func (k *Kernel) Dirty(ctx context.Context, payloadType puppet.PayloadType, id string) error {
	switch payloadType {
	case puppet.PayloadTypeRoom:
		k.invalidate(puppet.PayloadTypeRoom, id)
		if err := k.dirtyRoomMembers(ctx, id); err != nil {
			return fmt.Errorf("dirty room %s: %w", id, err)
		}
		return nil
	case puppet.PayloadTypeRoomMember:
		if err := k.dirtyRoomMembers(ctx, id); err != nil {
			return fmt.Errorf("dirty room members %s: %w", id, err)
		}
		return nil
	case puppet.PayloadTypeContact,
		puppet.PayloadTypeMessage,
		puppet.PayloadTypeFriendship,
		puppet.PayloadTypeRoomInvitation:
		k.invalidate(payloadType, id)
		return nil
	default:
		k.cfg.logger.ErrorContext(ctx, "dirty unknown payload type", "payload_type", payloadType, "id", id)
		return fmt.Errorf("dirty %s: %w", id, puppet.ErrUnknownPayloadType)
	}
}

// dirtyRoomMembers drops all member entries of roomID.
func (k *Kernel) dirtyRoomMembers(ctx context.Context, roomID string) error {
	if err := k.store.InvalidateRoomMembers(ctx, roomID, k.driver.RoomMemberList); err != nil {
		return err
	}
	k.notifyInvalidation(puppet.PayloadTypeRoomMember, roomID)

	return nil
}

// invalidate drops one entry and notifies hooks. Hooks also run when the id
// was not resident, so callers holding a snapshot still hear about it; a
// resident id is reported twice, once through dropped.
func (k *Kernel) invalidate(payloadType puppet.PayloadType, id string) {
	if err := k.store.Invalidate(payloadType, id); err != nil {
		k.cfg.logger.Error("invalidate payload", "payload_type", payloadType, "id", id, "error", err)
		return
	}
	k.notifyInvalidation(payloadType, id)
}

func (k *Kernel) notifyInvalidation(payloadType puppet.PayloadType, id string) {
	k.mu.RLock()
	hooks := append([]InvalidationHook(nil), k.hooks...)
	k.mu.RUnlock()

	for _, hook := range hooks {
		if err := runSafely("invalidation hook", func() error {
			hook(payloadType, id)
			return nil
		}); err != nil {
			k.cfg.onAsyncError(context.Background(), "invalidation hook", err)
		}
	}
}

// Run starts the driver and blocks until ctx is cancelled or the driver stops,
// then shuts the driver, the bus and all mailboxes down.
func (k *Kernel) Run(ctx context.Context) error {
	if err := k.startRun(); err != nil {
		return err
	}
	defer k.finishRun()

	runCtx, runCancel := context.WithCancel(ctx)
	driverDone := make(chan error, 1)
	go func() {
		driverDone <- runSafely("driver "+k.driver.Name()+" Start", func() error {
			return k.driver.Start(runCtx, k)
		})
	}()

	var runErr error
	driverExited := false
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-driverDone:
		driverExited = true
		if err != nil {
			runErr = fmt.Errorf("run driver %s: %w", k.driver.Name(), err)
		}
	}

	runCancel()
	if !driverExited {
		select {
		case <-driverDone:
		case <-time.After(k.cfg.shutdownTimeout):
		}
	}

	shutdownErr := k.shutdown(ctx)

	if isContextCancellation(runErr) {
		runErr = nil
	}
	if runErr != nil && shutdownErr != nil {
		return errors.Join(runErr, shutdownErr)
	}
	if runErr != nil {
		return runErr
	}

	return shutdownErr
}

// startRun serializes Run invocations and rejects concurrent starts.
func (k *Kernel) startRun() error {
	k.runMu.Lock()
	defer k.runMu.Unlock()

	if k.running {
		return fmt.Errorf("kernel run: already running")
	}
	k.running = true

	return nil
}

// finishRun releases the single-run guard set by startRun.
func (k *Kernel) finishRun() {
	k.runMu.Lock()
	k.running = false
	k.runMu.Unlock()
}

// shutdown tears down the driver and then closes bus and mailboxes in a
// bounded window that survives parent cancellation.
func (k *Kernel) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.cfg.shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := runSafely("driver "+k.driver.Name()+" Shutdown", func() error {
		return k.driver.Shutdown(shutdownCtx)
	}); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}
	if err := k.Close(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, err)
	}

	if shutdownErr != nil {
		return fmt.Errorf("kernel shutdown: %w", shutdownErr)
	}

	return nil
}

// Close stops the event bus and every kernel-owned mailbox.
func (k *Kernel) Close(ctx context.Context) error {
	var closeErr error
	if err := k.bus.Close(ctx); err != nil {
		closeErr = errors.Join(closeErr, err)
	}

	k.mu.RLock()
	mailboxes := append([]*Mailbox(nil), k.mailboxes...)
	k.mu.RUnlock()
	for _, mailbox := range mailboxes {
		if err := mailbox.Close(ctx); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
	}

	return closeErr
}
