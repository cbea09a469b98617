package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ex-wechaty/pkg/puppet"
)

func newBusForTest(t *testing.T, onAsyncError func(context.Context, string, error)) *EventBus {
	t.Helper()

	bus := NewEventBus(8, slog.Default(), onAsyncError)
	t.Cleanup(func() {
		_ = bus.Close(context.Background())
	})

	return bus
}

// TestEventBusDeliversToEverySubscriberInOrder verifies fan-out and per-subscriber FIFO.
func TestEventBusDeliversToEverySubscriberInOrder(t *testing.T) {
	t.Parallel()

	bus := newBusForTest(t, nil)
	first := &recordingSink{}
	second := &recordingSink{}
	bus.Subscribe(context.Background(), puppet.EventKindMessage, "first", first)
	bus.Subscribe(context.Background(), puppet.EventKindMessage, "second", second)

	want := []string{"m1", "m2", "m3", "m4"}
	for _, messageID := range want {
		if err := bus.Dispatch(context.Background(), messageEvent(messageID)); err != nil {
			t.Fatalf("dispatch %s failed: %v", messageID, err)
		}
	}

	eventually(t, 2*time.Second, func() bool {
		return first.count() == len(want) && second.count() == len(want)
	})
	if diff := cmp.Diff(want, first.messageIDs()); diff != "" {
		t.Fatalf("first subscriber order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, second.messageIDs()); diff != "" {
		t.Fatalf("second subscriber order mismatch (-want +got):\n%s", diff)
	}
}

// TestEventBusSubscribersReceivePrivateCopies verifies that sinks cannot observe each other's mutations.
func TestEventBusSubscribersReceivePrivateCopies(t *testing.T) {
	t.Parallel()

	bus := newBusForTest(t, nil)
	mutator := puppet.SinkFunc(func(_ context.Context, event *puppet.Event) error {
		event.RoomJoin.InviteeIDs[0] = "mutated"
		return nil
	})
	observer := &recordingSink{}
	bus.Subscribe(context.Background(), puppet.EventKindRoomJoin, "mutator", mutator)
	bus.Subscribe(context.Background(), puppet.EventKindRoomJoin, "observer", observer)

	source := &puppet.Event{
		Kind:     puppet.EventKindRoomJoin,
		RoomJoin: &puppet.RoomJoin{RoomID: "r1", InviteeIDs: []string{"c1"}},
	}
	if err := bus.Dispatch(context.Background(), source); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	eventually(t, 2*time.Second, func() bool { return observer.count() == 1 })
	observer.mu.Lock()
	got := observer.events[0].RoomJoin.InviteeIDs[0]
	observer.mu.Unlock()
	if got != "c1" {
		t.Fatalf("observer invitee = %q, want c1", got)
	}
	if source.RoomJoin.InviteeIDs[0] != "c1" {
		t.Fatalf("source invitee = %q, want c1", source.RoomJoin.InviteeIDs[0])
	}
}

// TestEventBusSubscribeOverwritesByName verifies name-keyed replacement and unsubscribe.
func TestEventBusSubscribeOverwritesByName(t *testing.T) {
	t.Parallel()

	bus := newBusForTest(t, nil)
	replaced := &recordingSink{}
	current := &recordingSink{}
	bus.Subscribe(context.Background(), puppet.EventKindMessage, "listener", replaced)
	bus.Subscribe(context.Background(), puppet.EventKindMessage, "listener", current)

	if err := bus.Dispatch(context.Background(), messageEvent("m1")); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	eventually(t, 2*time.Second, func() bool { return current.count() == 1 })

	bus.Unsubscribe(context.Background(), puppet.EventKindMessage, "listener")
	bus.Unsubscribe(context.Background(), puppet.EventKindMessage, "absent")
	if err := bus.Dispatch(context.Background(), messageEvent("m2")); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	probe := &recordingSink{}
	bus.Subscribe(context.Background(), puppet.EventKindMessage, "probe", probe)
	if err := bus.Dispatch(context.Background(), messageEvent("m3")); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	eventually(t, 2*time.Second, func() bool { return probe.count() == 1 })

	if replaced.count() != 0 {
		t.Fatalf("replaced sink deliveries = %d, want 0", replaced.count())
	}
	if diff := cmp.Diff([]string{"m1"}, current.messageIDs()); diff != "" {
		t.Fatalf("current sink deliveries mismatch (-want +got):\n%s", diff)
	}
}

// TestEventBusIgnoresUnknownKinds verifies that routing rejects non-bus kinds without failing subscribe.
func TestEventBusIgnoresUnknownKinds(t *testing.T) {
	t.Parallel()

	bus := newBusForTest(t, nil)
	sink := &recordingSink{}
	bus.Subscribe(context.Background(), puppet.EventKind("bogus"), "sink", sink)
	bus.Subscribe(context.Background(), puppet.EventKindDirty, "sink", sink)

	err := bus.Dispatch(context.Background(), &puppet.Event{
		Kind:  puppet.EventKindDirty,
		Dirty: &puppet.Dirty{PayloadType: puppet.PayloadTypeContact, PayloadID: "c1"},
	})
	if !errors.Is(err, puppet.ErrInvalidEvent) {
		t.Fatalf("dispatch dirty error = %v, want ErrInvalidEvent", err)
	}
	if err := bus.Dispatch(context.Background(), &puppet.Event{Kind: puppet.EventKindMessage}); !errors.Is(err, puppet.ErrInvalidEvent) {
		t.Fatalf("dispatch invalid message error = %v, want ErrInvalidEvent", err)
	}
	if err := bus.Dispatch(context.Background(), nil); !errors.Is(err, puppet.ErrInvalidEvent) {
		t.Fatalf("dispatch nil error = %v, want ErrInvalidEvent", err)
	}
	if sink.count() != 0 {
		t.Fatalf("deliveries = %d, want 0", sink.count())
	}
}

// TestEventBusIsolatesFailingSubscribers verifies that errors and panics in one sink do not affect others.
func TestEventBusIsolatesFailingSubscribers(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	scopes := make([]string, 0, 2)
	bus := newBusForTest(t, func(_ context.Context, scope string, _ error) {
		mu.Lock()
		scopes = append(scopes, scope)
		mu.Unlock()
	})

	healthy := &recordingSink{}
	bus.Subscribe(context.Background(), puppet.EventKindHeartbeat, "failing", &recordingSink{err: fmt.Errorf("boom")})
	bus.Subscribe(context.Background(), puppet.EventKindHeartbeat, "panicking", puppet.SinkFunc(
		func(context.Context, *puppet.Event) error {
			panic("sink panic")
		},
	))
	bus.Subscribe(context.Background(), puppet.EventKindHeartbeat, "healthy", healthy)

	if err := bus.Dispatch(context.Background(), &puppet.Event{Kind: puppet.EventKindHeartbeat, Data: "beat"}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	eventually(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return healthy.count() == 1 && len(scopes) == 2
	})
}

// TestEventBusCloseRejectsDispatch verifies dispatch rejection after bus closure.
func TestEventBusCloseRejectsDispatch(t *testing.T) {
	t.Parallel()

	bus := NewEventBus(1, nil, nil)
	if err := bus.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := bus.Close(context.Background()); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	err := bus.Dispatch(context.Background(), messageEvent("m1"))
	if !errors.Is(err, puppet.ErrBusClosed) {
		t.Fatalf("dispatch error = %v, want ErrBusClosed", err)
	}
}
