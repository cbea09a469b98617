package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"ex-wechaty/pkg/puppet"
)

type busCommandType int

const (
	busCommandSubscribe busCommandType = iota
	busCommandUnsubscribe
	busCommandDispatch
)

// busCommand is one message sent to a bucket owner.
type busCommand struct {
	commandType busCommandType
	ctx         context.Context
	name        string
	sink        puppet.Sink
	event       *puppet.Event
}

// EventBus routes raw domain events to named subscribers per event kind.
//
// Each kind has a bucket whose subscriber map is owned by a single goroutine;
// Subscribe, Unsubscribe and Dispatch are sends on that bucket's inbox, so
// commands for one kind apply in the order they were sent.
type EventBus struct {
	buckets      map[puppet.EventKind]*busBucket
	logger       *slog.Logger
	onAsyncError func(context.Context, string, error)
	closed       atomic.Bool
	closeOnce    sync.Once
}

// NewEventBus creates a bus with one running bucket per subscribable kind.
func NewEventBus(
	inboxSize int,
	logger *slog.Logger,
	onAsyncError func(context.Context, string, error),
) *EventBus {
	if inboxSize <= 0 {
		inboxSize = defaultBusInbox
	}
	if logger == nil {
		logger = slog.Default()
	}

	bus := &EventBus{
		buckets:      make(map[puppet.EventKind]*busBucket),
		logger:       logger,
		onAsyncError: onAsyncError,
	}
	for _, kind := range puppet.KnownEventKinds() {
		bucket := newBusBucket(kind, inboxSize, bus)
		bus.buckets[kind] = bucket
		go bucket.run()
	}

	return bus
}

// Subscribe inserts or replaces the sink registered under name for kind.
//
// Unknown kinds and nil sinks are logged and ignored.
func (b *EventBus) Subscribe(ctx context.Context, kind puppet.EventKind, name string, sink puppet.Sink) {
	if sink == nil {
		b.logger.WarnContext(ctx, "subscribe ignored nil sink", "kind", kind, "subscriber", name)
		return
	}

	bucket, known := b.buckets[kind]
	if !known {
		b.logger.WarnContext(ctx, "subscribe ignored unknown event kind", "kind", kind, "subscriber", name)
		return
	}

	if err := bucket.send(ctx, busCommand{
		commandType: busCommandSubscribe,
		name:        name,
		sink:        sink,
	}); err != nil {
		b.logger.WarnContext(ctx, "subscribe failed", "kind", kind, "subscriber", name, "error", err)
	}
}

// Unsubscribe removes the sink registered under name for kind, if any.
func (b *EventBus) Unsubscribe(ctx context.Context, kind puppet.EventKind, name string) {
	bucket, known := b.buckets[kind]
	if !known {
		b.logger.WarnContext(ctx, "unsubscribe ignored unknown event kind", "kind", kind, "subscriber", name)
		return
	}

	if err := bucket.send(ctx, busCommand{
		commandType: busCommandUnsubscribe,
		name:        name,
	}); err != nil {
		b.logger.WarnContext(ctx, "unsubscribe failed", "kind", kind, "subscriber", name, "error", err)
	}
}

// Dispatch hands event to the bucket of its kind and returns without waiting
// for subscribers.
func (b *EventBus) Dispatch(ctx context.Context, event *puppet.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("dispatch event: %w", err)
	}

	bucket, known := b.buckets[event.Kind]
	if !known {
		return fmt.Errorf("dispatch event %s: %w: kind is not routable", event.Kind, puppet.ErrInvalidEvent)
	}

	if err := bucket.send(ctx, busCommand{
		commandType: busCommandDispatch,
		ctx:         context.WithoutCancel(ctx),
		event:       event.Clone(),
	}); err != nil {
		return fmt.Errorf("dispatch event %s: %w", event.Kind, err)
	}

	return nil
}

// Close stops every bucket owner. Queued commands are discarded.
func (b *EventBus) Close(ctx context.Context) error {
	var closeErrs []error
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		for _, bucket := range b.buckets {
			bucket.cancel()
		}
		for _, bucket := range b.buckets {
			select {
			case <-bucket.done:
			case <-ctx.Done():
				closeErrs = append(closeErrs, fmt.Errorf("close bucket %s: %w", bucket.kind, ctx.Err()))
			}
		}
	})

	if len(closeErrs) > 0 {
		return fmt.Errorf("close event bus: %w", errors.Join(closeErrs...))
	}

	return nil
}

// reportAsyncError forwards delivery failures to the configured error sink.
func (b *EventBus) reportAsyncError(ctx context.Context, scope string, err error) {
	if b.onAsyncError != nil {
		b.onAsyncError(ctx, scope, err)
	}
}

// busBucket owns the subscriber map of one event kind.
type busBucket struct {
	kind   puppet.EventKind
	inbox  chan busCommand
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	bus    *EventBus

	// sinks is only touched by run.
	sinks map[string]puppet.Sink
}

func newBusBucket(kind puppet.EventKind, inboxSize int, bus *EventBus) *busBucket {
	bucketCtx, cancel := context.WithCancel(context.Background())

	return &busBucket{
		kind:   kind,
		inbox:  make(chan busCommand, inboxSize),
		ctx:    bucketCtx,
		cancel: cancel,
		done:   make(chan struct{}),
		bus:    bus,
		sinks:  make(map[string]puppet.Sink),
	}
}

// send enqueues one command, waiting for inbox capacity.
func (b *busBucket) send(ctx context.Context, command busCommand) error {
	if b.bus.closed.Load() {
		return puppet.ErrBusClosed
	}

	select {
	case b.inbox <- command:
		return nil
	case <-b.ctx.Done():
		return puppet.ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run applies commands until the bucket is cancelled.
func (b *busBucket) run() {
	defer close(b.done)

	for {
		select {
		case <-b.ctx.Done():
			return
		case command := <-b.inbox:
			b.apply(command)
		}
	}
}

func (b *busBucket) apply(command busCommand) {
	switch command.commandType {
	case busCommandSubscribe:
		b.sinks[command.name] = command.sink
	case busCommandUnsubscribe:
		delete(b.sinks, command.name)
	case busCommandDispatch:
		b.fanOut(command.ctx, command.event)
	}
}

// fanOut delivers a private copy of event to every sink. A failing sink does
// not affect the others.
func (b *busBucket) fanOut(ctx context.Context, event *puppet.Event) {
	for name, sink := range b.sinks {
		scope := fmt.Sprintf("event bus %s subscriber %s", b.kind, name)
		if err := runSafely(scope, func() error {
			return sink.Deliver(ctx, event.Clone())
		}); err != nil {
			b.bus.reportAsyncError(ctx, scope, err)
		}
	}
}
