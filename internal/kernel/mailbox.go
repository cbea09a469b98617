package kernel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"ex-wechaty/pkg/puppet"
)

// BackpressurePolicy defines how a mailbox behaves when its queue is full.
type BackpressurePolicy string

const (
	// BackpressureDropNewest drops the incoming event when full.
	BackpressureDropNewest BackpressurePolicy = "drop_newest"
	// BackpressureDropOldest evicts the oldest queued event before enqueue.
	BackpressureDropOldest BackpressurePolicy = "drop_oldest"
)

// MailboxHandler processes one delivered event.
type MailboxHandler func(ctx context.Context, event *puppet.Event) error

// MailboxSpec configures one subscriber mailbox.
type MailboxSpec struct {
	Name         string
	Buffer       int
	Backpressure BackpressurePolicy
}

// Mailbox is a bus subscriber with a bounded queue drained by one worker, so
// events are handled one at a time in delivery order.
type Mailbox struct {
	spec         MailboxSpec
	handler      MailboxHandler
	queue        chan mailboxItem
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	closed       atomic.Bool
	once         sync.Once
	onAsyncError func(context.Context, string, error)
}

type mailboxItem struct {
	ctx   context.Context
	event *puppet.Event
}

// NewMailbox creates a mailbox and starts its worker immediately.
func NewMailbox(
	spec MailboxSpec,
	handler MailboxHandler,
	onAsyncError func(context.Context, string, error),
) (*Mailbox, error) {
	if handler == nil {
		return nil, fmt.Errorf("new mailbox %s: nil handler", spec.Name)
	}
	if spec.Buffer <= 0 {
		spec.Buffer = defaultMailboxBuffer
	}
	if spec.Backpressure == "" {
		spec.Backpressure = BackpressureDropNewest
	}
	if spec.Backpressure != BackpressureDropNewest && spec.Backpressure != BackpressureDropOldest {
		return nil, fmt.Errorf("new mailbox %s: unsupported backpressure %q", spec.Name, spec.Backpressure)
	}

	mailboxCtx, cancel := context.WithCancel(context.Background())
	mailbox := &Mailbox{
		spec:         spec,
		handler:      handler,
		queue:        make(chan mailboxItem, spec.Buffer),
		ctx:          mailboxCtx,
		cancel:       cancel,
		done:         make(chan struct{}),
		onAsyncError: onAsyncError,
	}
	go mailbox.runWorker()

	return mailbox, nil
}

// Name returns the subscriber name.
func (m *Mailbox) Name() string {
	return m.spec.Name
}

// Deliver enqueues event according to the backpressure policy without waiting
// for it to be handled.
func (m *Mailbox) Deliver(ctx context.Context, event *puppet.Event) error {
	if m.closed.Load() {
		return fmt.Errorf("deliver to %s: %w", m.spec.Name, puppet.ErrSubscriptionClosed)
	}

	item := mailboxItem{ctx: context.WithoutCancel(ctx), event: event}
	switch m.spec.Backpressure {
	case BackpressureDropOldest:
		return m.enqueueDropOldest(item)
	default:
		return m.enqueueDropNewest(item)
	}
}

// enqueueDropNewest drops the incoming event when the queue is full.
func (m *Mailbox) enqueueDropNewest(item mailboxItem) error {
	select {
	case m.queue <- item:
		return nil
	default:
		return fmt.Errorf("deliver to %s: %w", m.spec.Name, puppet.ErrEventDropped)
	}
}

// enqueueDropOldest evicts one queued event before enqueueing the new event.
func (m *Mailbox) enqueueDropOldest(item mailboxItem) error {
	select {
	case m.queue <- item:
		return nil
	default:
	}

	select {
	case <-m.queue:
	default:
	}

	select {
	case m.queue <- item:
		return nil
	default:
		return fmt.Errorf("deliver to %s: %w", m.spec.Name, puppet.ErrEventDropped)
	}
}

// runWorker drains the queue until the mailbox is closed.
func (m *Mailbox) runWorker() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			return
		case item := <-m.queue:
			scope := "mailbox " + m.spec.Name
			if err := runSafely(scope, func() error {
				return m.handler(item.ctx, item.event)
			}); err != nil && m.onAsyncError != nil {
				m.onAsyncError(item.ctx, scope, fmt.Errorf("handle event %s: %w", item.event.Kind, err))
			}
		}
	}
}

// Close stops the worker and waits for it to exit or for ctx to expire.
// Queued events that were not started are discarded.
func (m *Mailbox) Close(ctx context.Context) error {
	m.once.Do(func() {
		m.closed.Store(true)
		m.cancel()
	})

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close mailbox %s: %w", m.spec.Name, ctx.Err())
	}
}
