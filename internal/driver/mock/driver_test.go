package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"ex-wechaty/pkg/puppet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingEventSink struct {
	mu     sync.Mutex
	events []*puppet.Event
}

func (s *recordingEventSink) Publish(_ context.Context, event *puppet.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event.Clone())

	return nil
}

func (s *recordingEventSink) kinds() []puppet.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()

	kinds := make([]puppet.EventKind, 0, len(s.events))
	for _, event := range s.events {
		kinds = append(kinds, event.Kind)
	}

	return kinds
}

func (s *recordingEventSink) last() *puppet.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return nil
	}

	return s.events[len(s.events)-1]
}

func startDriver(t *testing.T, driver *Driver) *recordingEventSink {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingEventSink{}
	done := make(chan error, 1)
	go func() {
		done <- driver.Start(ctx, sink)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("start returned error: %v", err)
		}
	})

	eventually(t, time.Second, func() bool {
		kinds := sink.kinds()
		return len(kinds) > 0 && kinds[len(kinds)-1] == puppet.EventKindReady
	})

	return sink
}

func TestDriverStartLogsInSelf(t *testing.T) {
	t.Parallel()

	driver := NewDriver(WithSelf(puppet.ContactPayload{ID: "self", Name: "bot"}))
	sink := startDriver(t, driver)

	if diff := cmp.Diff([]puppet.EventKind{puppet.EventKindLogin, puppet.EventKindReady}, sink.kinds()); diff != "" {
		t.Fatalf("startup events mismatch (-want +got):\n%s", diff)
	}
	self, err := driver.ContactRawPayload(context.Background(), "self")
	if err != nil {
		t.Fatalf("self payload failed: %v", err)
	}
	if self.Name != "bot" {
		t.Fatalf("self name = %q, want bot", self.Name)
	}
}

func TestDriverEmitBeforeStart(t *testing.T) {
	t.Parallel()

	driver := NewDriver()
	_, err := driver.ReceiveMessage(context.Background(), puppet.MessagePayload{Text: "hi"})
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("receive error = %v, want ErrNotStarted", err)
	}
}

func TestDriverReceiveAndSendMessages(t *testing.T) {
	t.Parallel()

	driver := NewDriver(WithSelf(puppet.ContactPayload{ID: "self"}))
	driver.SeedContact(puppet.ContactPayload{ID: "alice"})
	driver.SeedRoom(puppet.RoomPayload{ID: "room1"}, puppet.RoomMemberPayload{ID: "alice"})
	sink := startDriver(t, driver)
	ctx := context.Background()

	messageID, err := driver.ReceiveMessage(ctx, puppet.MessagePayload{
		Type:   puppet.MessageTypeText,
		Text:   "ding",
		FromID: "alice",
	})
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if last := sink.last(); last.Kind != puppet.EventKindMessage || last.MessageID != messageID {
		t.Fatalf("last event = %+v, want message %s", last, messageID)
	}

	if _, err := driver.MessageSendText(ctx, "alice", "dong", nil); err != nil {
		t.Fatalf("send direct failed: %v", err)
	}
	if _, err := driver.MessageSendText(ctx, "room1", "hello room", []string{"alice"}); err != nil {
		t.Fatalf("send room failed: %v", err)
	}

	sent := driver.SentMessages()
	if len(sent) != 2 {
		t.Fatalf("sent = %d, want 2", len(sent))
	}
	if sent[0].ToID != "alice" || sent[0].RoomID != "" || sent[0].FromID != "self" {
		t.Fatalf("direct message = %+v", sent[0])
	}
	if sent[1].RoomID != "room1" || sent[1].ToID != "" {
		t.Fatalf("room message = %+v", sent[1])
	}

	recalled, err := driver.MessageRecall(ctx, sent[0].ID)
	if err != nil || !recalled {
		t.Fatalf("recall = %v, %v, want true", recalled, err)
	}
	recalled, err = driver.MessageRecall(ctx, sent[0].ID)
	if err != nil || recalled {
		t.Fatalf("second recall = %v, %v, want false", recalled, err)
	}
}

func TestDriverRoomLifecycle(t *testing.T) {
	t.Parallel()

	driver := NewDriver(WithSelf(puppet.ContactPayload{ID: "self", Name: "bot"}))
	driver.SeedContact(puppet.ContactPayload{ID: "alice", Name: "Alice"})
	driver.SeedContact(puppet.ContactPayload{ID: "bob", Name: "Bob"})
	sink := startDriver(t, driver)
	ctx := context.Background()

	roomID, err := driver.RoomCreate(ctx, []string{"alice"}, "team")
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if err := driver.RoomAdd(ctx, roomID, "bob"); err != nil {
		t.Fatalf("room add failed: %v", err)
	}
	if err := driver.RoomDel(ctx, roomID, "alice"); err != nil {
		t.Fatalf("room del failed: %v", err)
	}

	memberIDs, err := driver.RoomMemberList(ctx, roomID)
	if err != nil {
		t.Fatalf("member list failed: %v", err)
	}
	if diff := cmp.Diff([]string{"self", "bob"}, memberIDs); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
	member, err := driver.RoomMemberRawPayload(ctx, roomID, "bob")
	if err != nil {
		t.Fatalf("member payload failed: %v", err)
	}
	if member.Name != "Bob" || member.InviterID != "self" {
		t.Fatalf("member = %+v", member)
	}

	if err := driver.RoomTopic(ctx, roomID, "renamed"); err != nil {
		t.Fatalf("room topic failed: %v", err)
	}
	last := sink.last()
	if last.Kind != puppet.EventKindRoomTopic {
		t.Fatalf("last event kind = %s, want room-topic", last.Kind)
	}
	if last.RoomTopic.OldTopic != "team" || last.RoomTopic.NewTopic != "renamed" {
		t.Fatalf("topic change = %+v", last.RoomTopic)
	}
}

func TestDriverFriendshipSearch(t *testing.T) {
	t.Parallel()

	driver := NewDriver()
	driver.SeedContact(puppet.ContactPayload{ID: "alice", Phone: []string{"555"}, Weixin: "alice_wx"})

	tests := []struct {
		name   string
		search func(context.Context) (string, error)
		want   string
	}{
		{
			name:   "phone hit",
			search: func(ctx context.Context) (string, error) { return driver.FriendshipSearchPhone(ctx, "555") },
			want:   "alice",
		},
		{
			name:   "weixin hit",
			search: func(ctx context.Context) (string, error) { return driver.FriendshipSearchWeixin(ctx, "alice_wx") },
			want:   "alice",
		},
		{
			name:   "miss is empty",
			search: func(ctx context.Context) (string, error) { return driver.FriendshipSearchPhone(ctx, "000") },
			want:   "",
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := testCase.search(context.Background())
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if got != testCase.want {
				t.Fatalf("contact id = %q, want %q", got, testCase.want)
			}
		})
	}
}

func TestBuildRuntimeFromConfig(t *testing.T) {
	t.Parallel()

	driver, err := BuildRuntimeFromConfig("demo", nil, []byte(`{
		"self": {"id": "self", "name": "bot"},
		"contacts": [{"id": "alice", "name": "Alice"}],
		"rooms": [{"id": "room1", "topic": "team", "members": [{"id": "alice", "name": "Alice"}]}],
		"ding_from": "alice",
		"ding_interval": "1m"
	}`))
	if err != nil {
		t.Fatalf("build runtime failed: %v", err)
	}
	if driver.Name() != "demo" {
		t.Fatalf("name = %q, want demo", driver.Name())
	}
	room, err := driver.RoomRawPayload(context.Background(), "room1")
	if err != nil {
		t.Fatalf("room payload failed: %v", err)
	}
	if diff := cmp.Diff([]string{"alice"}, room.MemberIDs); diff != "" {
		t.Fatalf("room members mismatch (-want +got):\n%s", diff)
	}

	invalid := []string{
		`{"heartbeat_interval": "soon"}`,
		`{"ding_interval": "-1s"}`,
		`{"contacts": [{"name": "nameless"}]}`,
		`{`,
	}
	for _, raw := range invalid {
		if _, err := BuildRuntimeFromConfig("demo", nil, []byte(raw)); err == nil {
			t.Fatalf("expected error for config %s", raw)
		}
	}
}

func eventually(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("condition not met before timeout")
}
