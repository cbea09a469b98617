package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ex-wechaty/pkg/puppet"
)

// countingContactSource serves contact payloads and records fetches per id.
type countingContactSource struct {
	mu      sync.Mutex
	calls   map[string]int
	failing map[string]error
}

func newCountingContactSource() *countingContactSource {
	return &countingContactSource{
		calls:   make(map[string]int),
		failing: make(map[string]error),
	}
}

func (s *countingContactSource) fetch(_ context.Context, id string) (puppet.ContactPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[id]++
	if err, failing := s.failing[id]; failing {
		return puppet.ContactPayload{}, err
	}

	return puppet.ContactPayload{ID: id, Name: "name-" + id, Phone: []string{"100"}}, nil
}

func (s *countingContactSource) callsFor(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[id]
}

func TestCacheGetHitsAfterFirstFetch(t *testing.T) {
	t.Parallel()

	source := newCountingContactSource()
	contacts, err := New[puppet.ContactPayload]("contact", 4)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}

	first, err := contacts.Get(context.Background(), "c1", source.fetch)
	if err != nil {
		t.Fatalf("first get failed: %v", err)
	}
	second, err := contacts.Get(context.Background(), "c1", source.fetch)
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}

	want := puppet.ContactPayload{ID: "c1", Name: "name-c1", Phone: []string{"100"}}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("first payload mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Fatalf("second payload mismatch (-want +got):\n%s", diff)
	}
	if calls := source.callsFor("c1"); calls != 1 {
		t.Fatalf("remote calls = %d, want 1", calls)
	}
}

func TestCacheReturnsPrivateCopies(t *testing.T) {
	t.Parallel()

	source := newCountingContactSource()
	contacts, err := New[puppet.ContactPayload]("contact", 4)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}

	first, err := contacts.Get(context.Background(), "c1", source.fetch)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	first.Phone[0] = "mutated"
	first.Name = "mutated"

	cached, ok := contacts.Peek("c1")
	if !ok {
		t.Fatal("peek missed after get")
	}
	if cached.Phone[0] != "100" || cached.Name != "name-c1" {
		t.Fatalf("cached payload mutated through caller copy: %+v", cached)
	}
}

func TestCacheInvalidateForcesExactlyOneRefetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prefill bool
	}{
		{name: "resident entry", prefill: true},
		{name: "absent entry", prefill: false},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			source := newCountingContactSource()
			contacts, err := New[puppet.ContactPayload]("contact", 4)
			if err != nil {
				t.Fatalf("new cache failed: %v", err)
			}
			if testCase.prefill {
				if _, err := contacts.Get(context.Background(), "c1", source.fetch); err != nil {
					t.Fatalf("prefill failed: %v", err)
				}
			}
			before := source.callsFor("c1")

			contacts.Invalidate("c1")
			if _, err := contacts.Get(context.Background(), "c1", source.fetch); err != nil {
				t.Fatalf("get after invalidate failed: %v", err)
			}
			if _, err := contacts.Get(context.Background(), "c1", source.fetch); err != nil {
				t.Fatalf("second get after invalidate failed: %v", err)
			}

			if got := source.callsFor("c1") - before; got != 1 {
				t.Fatalf("remote calls after invalidate = %d, want 1", got)
			}
		})
	}
}

func TestCacheFetchFailureIsNotCached(t *testing.T) {
	t.Parallel()

	source := newCountingContactSource()
	remoteErr := puppet.NetworkError("contact_raw_payload", errors.New("reset by peer"))
	source.failing["c1"] = remoteErr
	contacts, err := New[puppet.ContactPayload]("contact", 4)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}

	_, err = contacts.Get(context.Background(), "c1", source.fetch)
	if !errors.Is(err, remoteErr) {
		t.Fatalf("get error = %v, want remote error", err)
	}
	if !errors.Is(err, puppet.ErrNetwork) {
		t.Fatalf("get error = %v, want ErrNetwork", err)
	}
	if contacts.Len() != 0 {
		t.Fatalf("cache len = %d, want 0", contacts.Len())
	}

	delete(source.failing, "c1")
	if _, err := contacts.Get(context.Background(), "c1", source.fetch); err != nil {
		t.Fatalf("get after recovery failed: %v", err)
	}
	if calls := source.callsFor("c1"); calls != 2 {
		t.Fatalf("remote calls = %d, want 2", calls)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	const capacity = 3
	source := newCountingContactSource()
	dropped := make([]string, 0, 1)
	var droppedMu sync.Mutex
	contacts, err := New[puppet.ContactPayload]("contact", capacity, WithDropObserver(func(_ string, id string) {
		droppedMu.Lock()
		dropped = append(dropped, id)
		droppedMu.Unlock()
	}))
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}

	for index := 0; index < capacity; index++ {
		if _, err := contacts.Get(context.Background(), fmt.Sprintf("c%d", index), source.fetch); err != nil {
			t.Fatalf("fill c%d failed: %v", index, err)
		}
	}
	// Touch c0 so c1 becomes the least recently used entry.
	if _, err := contacts.Get(context.Background(), "c0", source.fetch); err != nil {
		t.Fatalf("touch c0 failed: %v", err)
	}
	if _, err := contacts.Get(context.Background(), "c3", source.fetch); err != nil {
		t.Fatalf("overflow get failed: %v", err)
	}

	if contacts.Len() != capacity {
		t.Fatalf("cache len = %d, want %d", contacts.Len(), capacity)
	}
	if _, ok := contacts.Peek("c1"); ok {
		t.Fatal("c1 still resident, want evicted")
	}
	droppedMu.Lock()
	if diff := cmp.Diff([]string{"c1"}, dropped); diff != "" {
		droppedMu.Unlock()
		t.Fatalf("dropped ids mismatch (-want +got):\n%s", diff)
	}
	droppedMu.Unlock()

	if _, err := contacts.Get(context.Background(), "c1", source.fetch); err != nil {
		t.Fatalf("refetch c1 failed: %v", err)
	}
	if calls := source.callsFor("c1"); calls != 2 {
		t.Fatalf("c1 remote calls = %d, want 2", calls)
	}
	if calls := source.callsFor("c0"); calls != 1 {
		t.Fatalf("c0 remote calls = %d, want 1", calls)
	}
}

func TestCacheSingleFlightCollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()

	contacts, err := New[puppet.ContactPayload]("contact", 4, WithSingleFlight())
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(_ context.Context, id string) (puppet.ContactPayload, error) {
		calls.Add(1)
		<-release
		return puppet.ContactPayload{ID: id}, nil
	}

	const callers = 8
	var started sync.WaitGroup
	var finished sync.WaitGroup
	errs := make(chan error, callers)
	for index := 0; index < callers; index++ {
		started.Add(1)
		finished.Add(1)
		go func() {
			defer finished.Done()
			started.Done()
			_, err := contacts.Get(context.Background(), "c1", fetch)
			errs <- err
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	finished.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent get failed: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("remote calls = %d, want 1", got)
	}
}

func TestCacheSingleFlightSurvivesFirstCallerCancel(t *testing.T) {
	t.Parallel()

	contacts, err := New[puppet.ContactPayload]("contact", 4, WithSingleFlight())
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}

	var calls atomic.Int32
	var fetchingOnce sync.Once
	fetching := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context, id string) (puppet.ContactPayload, error) {
		calls.Add(1)
		fetchingOnce.Do(func() { close(fetching) })
		<-release
		if err := ctx.Err(); err != nil {
			return puppet.ContactPayload{}, err
		}
		return puppet.ContactPayload{ID: id, Name: "alice"}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := contacts.Get(firstCtx, "c1", fetch)
		firstErr <- err
	}()
	<-fetching

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller error = %v, want context.Canceled", err)
	}

	type result struct {
		payload puppet.ContactPayload
		err     error
	}
	second := make(chan result, 1)
	go func() {
		payload, err := contacts.Get(context.Background(), "c1", fetch)
		second <- result{payload: payload, err: err}
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	got := <-second
	if got.err != nil {
		t.Fatalf("second caller failed: %v", got.err)
	}
	if got.payload.Name != "alice" {
		t.Fatalf("name = %q, want alice", got.payload.Name)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("remote calls = %d, want 1", n)
	}
}

func TestCacheSingleFlightRecoversFetchPanic(t *testing.T) {
	t.Parallel()

	contacts, err := New[puppet.ContactPayload]("contact", 4, WithSingleFlight())
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}

	_, err = contacts.Get(context.Background(), "c1", func(context.Context, string) (puppet.ContactPayload, error) {
		panic("remote exploded")
	})
	if err == nil || !strings.Contains(err.Error(), "remote exploded") {
		t.Fatalf("error = %v, want recovered panic", err)
	}
	if contacts.Contains("c1") {
		t.Fatal("panicking fetch left an entry behind")
	}
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	if _, err := New[puppet.ContactPayload]("contact", 0); err == nil {
		t.Fatal("expected capacity error")
	}
}
