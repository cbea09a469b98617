package wechaty

import (
	"context"
	"fmt"
	"sync"

	"ex-wechaty/pkg/puppet"
)

// entity is the shared part of every handle: an id and the payload snapshot
// loaded through the kernel cache.
type entity[P any] struct {
	c           *Context
	id          string
	payloadType puppet.PayloadType
	fetch       func(ctx context.Context, id string) (P, error)

	mu      sync.RWMutex
	payload P
	ready   bool
}

func newEntity[P any](
	c *Context,
	payloadType puppet.PayloadType,
	id string,
	fetch func(ctx context.Context, id string) (P, error),
) entity[P] {
	return entity[P]{
		c:           c,
		id:          id,
		payloadType: payloadType,
		fetch:       fetch,
	}
}

// ID returns the entity id.
func (e *entity[P]) ID() string {
	return e.id
}

// Context returns the context the handle belongs to.
func (e *entity[P]) Context() *Context {
	return e.c
}

// IsReady reports whether a payload was loaded.
func (e *entity[P]) IsReady() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.ready
}

// Payload returns the loaded payload, or ErrNoPayload.
func (e *entity[P]) Payload() (P, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.ready {
		var zero P
		return zero, fmt.Errorf("%s %s: %w", e.payloadType, e.id, ErrNoPayload)
	}

	return e.payload, nil
}

// snapshot returns the loaded payload, or the zero value when none was loaded.
func (e *entity[P]) snapshot() P {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.payload
}

// Ready loads the payload unless it is already present. With force, the
// cached payload is dropped first so the remote is consulted again.
func (e *entity[P]) Ready(ctx context.Context, force bool) error {
	if !force && e.IsReady() {
		return nil
	}
	if force {
		if err := e.c.kernel.Dirty(ctx, e.payloadType, e.id); err != nil {
			return fmt.Errorf("sync %s %s: %w", e.payloadType, e.id, err)
		}
	}

	return e.reload(ctx)
}

// reload fetches the payload through the cache.
func (e *entity[P]) reload(ctx context.Context) error {
	payload, err := e.fetch(ctx, e.id)
	if err != nil {
		return fmt.Errorf("load %s %s: %w", e.payloadType, e.id, err)
	}

	e.mu.Lock()
	e.payload = payload
	e.ready = true
	e.mu.Unlock()

	return nil
}

// Sync re-fetches the payload from the remote.
func (e *entity[P]) Sync(ctx context.Context) error {
	return e.Ready(ctx, true)
}
