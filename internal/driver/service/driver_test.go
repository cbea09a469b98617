package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"ex-wechaty/pkg/puppet"
)

// fakePuppet answers every method of the puppet service from canned responses.
type fakePuppet struct {
	mu             sync.Mutex
	requests       map[string][]*structpb.Struct
	authorizations []string
	responses      map[string]*structpb.Struct
	failures       map[string]error
	events         []*structpb.Struct
}

func newFakePuppet() *fakePuppet {
	return &fakePuppet{
		requests:  make(map[string][]*structpb.Struct),
		responses: make(map[string]*structpb.Struct),
		failures:  make(map[string]error),
	}
}

func (f *fakePuppet) respond(t *testing.T, method string, fields map[string]any) {
	t.Helper()

	response, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("new response for %s failed: %v", method, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = response
}

func (f *fakePuppet) fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = err
}

func (f *fakePuppet) stream(t *testing.T, kind string, payload string) {
	t.Helper()

	event, err := structpb.NewStruct(map[string]any{"type": kind, "payload": payload})
	if err != nil {
		t.Fatalf("new event failed: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakePuppet) requestsFor(method string) []*structpb.Struct {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*structpb.Struct(nil), f.requests[method]...)
}

func (f *fakePuppet) lastAuthorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.authorizations) == 0 {
		return ""
	}

	return f.authorizations[len(f.authorizations)-1]
}

func (f *fakePuppet) handle(_ any, stream grpc.ServerStream) error {
	fullMethod, ok := grpc.MethodFromServerStream(stream)
	if !ok {
		return status.Error(codes.Internal, "missing method")
	}
	method := strings.TrimPrefix(fullMethod, servicePath)

	request := &structpb.Struct{}
	if err := stream.RecvMsg(request); err != nil {
		return err
	}

	f.mu.Lock()
	f.requests[method] = append(f.requests[method], request)
	if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
		f.authorizations = append(f.authorizations, strings.Join(md.Get("authorization"), ","))
	}
	failure := f.failures[method]
	response := f.responses[method]
	events := append([]*structpb.Struct(nil), f.events...)
	f.mu.Unlock()

	if failure != nil {
		return failure
	}
	if method == "Event" {
		for _, event := range events {
			if err := stream.SendMsg(event); err != nil {
				return err
			}
		}
		return nil
	}
	if response == nil {
		response = &structpb.Struct{}
	}

	return stream.SendMsg(response)
}

// newTestDriver starts fake behind an in-memory listener and returns a driver over it.
func newTestDriver(t *testing.T, fake *fakePuppet, options ...Option) *Driver {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnknownServiceHandler(fake.handle))
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(tokenCredentials{token: "secret"}),
	)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})

	driver, err := NewDriver(conn, options...)
	if err != nil {
		t.Fatalf("new driver failed: %v", err)
	}

	return driver
}

type recordingEventSink struct {
	mu     sync.Mutex
	events []*puppet.Event
}

func (s *recordingEventSink) Publish(_ context.Context, event *puppet.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)

	return nil
}

func (s *recordingEventSink) snapshot() []*puppet.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*puppet.Event(nil), s.events...)
}

func TestDriverFetchesPayloads(t *testing.T) {
	t.Parallel()

	fake := newFakePuppet()
	fake.respond(t, "ContactPayload", map[string]any{
		"id":     "c1",
		"name":   "Alice",
		"type":   1,
		"friend": true,
		"phone":  []any{"123"},
	})
	fake.respond(t, "RoomPayload", map[string]any{
		"id":             "r1@chatroom",
		"topic":          "ding",
		"member_id_list": []any{"c1", "c2"},
	})
	driver := newTestDriver(t, fake)
	ctx := context.Background()

	contact, err := driver.ContactRawPayload(ctx, "c1")
	if err != nil {
		t.Fatalf("ContactRawPayload failed: %v", err)
	}
	wantContact := puppet.ContactPayload{
		ID:     "c1",
		Name:   "Alice",
		Type:   puppet.ContactTypeIndividual,
		Friend: true,
		Phone:  []string{"123"},
	}
	if diff := cmp.Diff(wantContact, contact); diff != "" {
		t.Fatalf("contact mismatch (-want +got):\n%s", diff)
	}

	room, err := driver.RoomRawPayload(ctx, "r1@chatroom")
	if err != nil {
		t.Fatalf("RoomRawPayload failed: %v", err)
	}
	if diff := cmp.Diff([]string{"c1", "c2"}, room.MemberIDs); diff != "" {
		t.Fatalf("room members mismatch (-want +got):\n%s", diff)
	}

	requests := fake.requestsFor("ContactPayload")
	if len(requests) != 1 {
		t.Fatalf("ContactPayload requests = %d, want 1", len(requests))
	}
	if got := stringField(requests[0], "id"); got != "c1" {
		t.Fatalf("request id = %q, want c1", got)
	}
	if got := fake.lastAuthorization(); got != "Wechaty secret" {
		t.Fatalf("authorization = %q, want %q", got, "Wechaty secret")
	}
}

func TestDriverListsAndSends(t *testing.T) {
	t.Parallel()

	fake := newFakePuppet()
	fake.respond(t, "ContactList", map[string]any{"ids": []any{"c1", "c2"}})
	fake.respond(t, "MessageSendText", map[string]any{"id": "m1"})
	fake.respond(t, "MessageRecall", map[string]any{"success": true})
	fake.respond(t, "FriendshipSearchPhone", map[string]any{"contact_id": "c9"})
	driver := newTestDriver(t, fake)
	ctx := context.Background()

	ids, err := driver.ContactList(ctx)
	if err != nil {
		t.Fatalf("ContactList failed: %v", err)
	}
	if diff := cmp.Diff([]string{"c1", "c2"}, ids); diff != "" {
		t.Fatalf("contact ids mismatch (-want +got):\n%s", diff)
	}

	messageID, err := driver.MessageSendText(ctx, "r1@chatroom", "dong", []string{"c1"})
	if err != nil {
		t.Fatalf("MessageSendText failed: %v", err)
	}
	if messageID != "m1" {
		t.Fatalf("message id = %q, want m1", messageID)
	}
	sent := fake.requestsFor("MessageSendText")
	if len(sent) != 1 {
		t.Fatalf("MessageSendText requests = %d, want 1", len(sent))
	}
	if got := stringField(sent[0], "conversation_id"); got != "r1@chatroom" {
		t.Fatalf("conversation id = %q, want r1@chatroom", got)
	}
	if diff := cmp.Diff([]string{"c1"}, stringListField(sent[0], "mention_id_list")); diff != "" {
		t.Fatalf("mentions mismatch (-want +got):\n%s", diff)
	}

	recalled, err := driver.MessageRecall(ctx, "m1")
	if err != nil {
		t.Fatalf("MessageRecall failed: %v", err)
	}
	if !recalled {
		t.Fatal("recalled = false, want true")
	}

	contactID, err := driver.FriendshipSearchPhone(ctx, "555")
	if err != nil {
		t.Fatalf("FriendshipSearchPhone failed: %v", err)
	}
	if contactID != "c9" {
		t.Fatalf("contact id = %q, want c9", contactID)
	}

	link := puppet.URLLinkPayload{Title: "t", URL: "https://example.com"}
	if _, err := driver.MessageSendURL(ctx, "c1", link); err != nil {
		t.Fatalf("MessageSendURL failed: %v", err)
	}
	links := fake.requestsFor("MessageSendUrl")
	if len(links) != 1 {
		t.Fatalf("MessageSendUrl requests = %d, want 1", len(links))
	}
	if got := links[0].GetFields()["url_link"].GetStructValue().GetFields()["url"].GetStringValue(); got != "https://example.com" {
		t.Fatalf("url = %q, want https://example.com", got)
	}
}

func TestDriverMapsStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		failure  error
		want     error
		wantCode int
	}{
		{
			name:     "unimplemented is unsupported",
			failure:  status.Error(codes.Unimplemented, "nope"),
			want:     puppet.ErrUnsupported,
			wantCode: int(codes.Unimplemented),
		},
		{
			name:     "invalid argument is unknown payload type",
			failure:  status.Error(codes.InvalidArgument, "bad type"),
			want:     puppet.ErrUnknownPayloadType,
			wantCode: int(codes.InvalidArgument),
		},
		{
			name:     "unavailable is network",
			failure:  status.Error(codes.Unavailable, "down"),
			want:     puppet.ErrNetwork,
			wantCode: int(codes.Unavailable),
		},
		{
			name:     "not found is network",
			failure:  status.Error(codes.NotFound, "missing"),
			want:     puppet.ErrNetwork,
			wantCode: int(codes.NotFound),
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			fake := newFakePuppet()
			fake.fail("RoomTopic", testCase.failure)
			driver := newTestDriver(t, fake)

			err := driver.RoomTopic(context.Background(), "r1@chatroom", "new")
			if !errors.Is(err, testCase.want) {
				t.Fatalf("error = %v, want %v", err, testCase.want)
			}
			remoteErr, ok := puppet.AsRemoteError(err)
			if !ok {
				t.Fatalf("error %v is not a remote error", err)
			}
			if remoteErr.Operation != "room_topic" {
				t.Fatalf("operation = %q, want room_topic", remoteErr.Operation)
			}
			if remoteErr.Code != testCase.wantCode {
				t.Fatalf("code = %d, want %d", remoteErr.Code, testCase.wantCode)
			}
		})
	}
}

func TestDriverStartRelaysEvents(t *testing.T) {
	t.Parallel()

	fake := newFakePuppet()
	fake.stream(t, "login", `{"contact_id":"self"}`)
	fake.stream(t, "bogus", `{}`)
	fake.stream(t, "message", `{"message_id":"m1"}`)
	fake.stream(t, "message", `{not json`)
	fake.stream(t, "dirty", `{"payload_type":3,"payload_id":"r1@chatroom"}`)

	var asyncMu sync.Mutex
	var asyncErrs []error
	driver := newTestDriver(t, fake, WithErrorHandler(func(_ context.Context, err error) {
		asyncMu.Lock()
		defer asyncMu.Unlock()
		asyncErrs = append(asyncErrs, err)
	}))
	sink := &recordingEventSink{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := driver.Start(ctx, sink); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if got := len(fake.requestsFor("Start")); got != 1 {
		t.Fatalf("Start calls = %d, want 1", got)
	}
	want := []*puppet.Event{
		{Kind: puppet.EventKindLogin, ContactID: "self"},
		{Kind: puppet.EventKindMessage, MessageID: "m1"},
		{
			Kind:  puppet.EventKindDirty,
			Dirty: &puppet.Dirty{PayloadType: puppet.PayloadTypeRoom, PayloadID: "r1@chatroom"},
		},
	}
	if diff := cmp.Diff(want, sink.snapshot()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	asyncMu.Lock()
	defer asyncMu.Unlock()
	if len(asyncErrs) != 2 {
		t.Fatalf("async errors = %v, want 2 decode failures", asyncErrs)
	}
	if !errors.Is(asyncErrs[0], puppet.ErrInvalidEvent) {
		t.Fatalf("first async error = %v, want %v", asyncErrs[0], puppet.ErrInvalidEvent)
	}
}

func TestDriverStartFailsWhenServiceRejectsStart(t *testing.T) {
	t.Parallel()

	fake := newFakePuppet()
	fake.fail("Start", status.Error(codes.Unavailable, "offline"))
	driver := newTestDriver(t, fake)

	err := driver.Start(context.Background(), &recordingEventSink{})
	if !errors.Is(err, puppet.ErrNetwork) {
		t.Fatalf("Start error = %v, want %v", err, puppet.ErrNetwork)
	}
	if got := len(fake.requestsFor("Event")); got != 0 {
		t.Fatalf("Event calls = %d, want 0", got)
	}
}

func TestDriverShutdownStopsPuppet(t *testing.T) {
	t.Parallel()

	fake := newFakePuppet()
	driver := newTestDriver(t, fake)

	if err := driver.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got := len(fake.requestsFor("Stop")); got != 1 {
		t.Fatalf("Stop calls = %d, want 1", got)
	}

	if _, err := driver.ContactList(context.Background()); err == nil {
		t.Fatal("ContactList after shutdown succeeded, want error")
	}
}

func TestNewDriverRejectsNilConnection(t *testing.T) {
	t.Parallel()

	if _, err := NewDriver(nil); err == nil {
		t.Fatal("NewDriver(nil) succeeded, want error")
	}
}
