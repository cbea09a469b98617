package puppet

import "context"

// EventSink accepts raw domain events from a driver.
type EventSink interface {
	// Publish submits an event to the core.
	Publish(ctx context.Context, event *Event) error
}

// Sink is the delivery address of one bus subscriber.
//
// Deliver runs on the goroutine that fans an event out to every subscriber of
// its kind. It must not block on event processing; implementations queue the
// event and return. The kernel queues sinks it does not own on their behalf.
type Sink interface {
	Deliver(ctx context.Context, event *Event) error
}

// SinkFunc adapts a function into a Sink. The function is subject to the
// same no-blocking rule as Deliver.
type SinkFunc func(ctx context.Context, event *Event) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// ContactSource fetches and mutates contacts on the remote data source.
type ContactSource interface {
	ContactRawPayload(ctx context.Context, contactID string) (ContactPayload, error)
	ContactList(ctx context.Context) ([]string, error)
	ContactAlias(ctx context.Context, contactID string, alias string) error
	ContactAvatar(ctx context.Context, contactID string, avatar FileBox) error
	ContactPhone(ctx context.Context, contactID string, phones []string) error
	ContactDescription(ctx context.Context, contactID string, description string) error
	ContactSelfName(ctx context.Context, name string) error
	ContactSelfSignature(ctx context.Context, signature string) error
}

// TagSource manages contact tags.
type TagSource interface {
	TagContactAdd(ctx context.Context, tagID string, contactID string) error
	TagContactRemove(ctx context.Context, tagID string, contactID string) error
	TagContactDelete(ctx context.Context, tagID string) error
	// TagContactList returns tags of contactID, or every tag when contactID is empty.
	TagContactList(ctx context.Context, contactID string) ([]string, error)
}

// MessageSource fetches and sends messages. Send methods return the new
// message id, or an empty id when the remote does not report one.
type MessageSource interface {
	MessageRawPayload(ctx context.Context, messageID string) (MessagePayload, error)
	MessageSendText(ctx context.Context, conversationID string, text string, mentionIDs []string) (string, error)
	MessageSendContact(ctx context.Context, conversationID string, contactID string) (string, error)
	MessageSendFile(ctx context.Context, conversationID string, file FileBox) (string, error)
	MessageSendURL(ctx context.Context, conversationID string, link URLLinkPayload) (string, error)
	MessageSendMiniProgram(ctx context.Context, conversationID string, program MiniProgramPayload) (string, error)
	MessageForward(ctx context.Context, conversationID string, messageID string) (string, error)
	MessageRecall(ctx context.Context, messageID string) (bool, error)
}

// RoomSource fetches and mutates rooms and their members.
type RoomSource interface {
	RoomRawPayload(ctx context.Context, roomID string) (RoomPayload, error)
	RoomList(ctx context.Context) ([]string, error)
	RoomMemberList(ctx context.Context, roomID string) ([]string, error)
	RoomMemberRawPayload(ctx context.Context, roomID string, contactID string) (RoomMemberPayload, error)
	RoomCreate(ctx context.Context, contactIDs []string, topic string) (string, error)
	RoomAdd(ctx context.Context, roomID string, contactID string) error
	RoomDel(ctx context.Context, roomID string, contactID string) error
	RoomQuit(ctx context.Context, roomID string) error
	RoomTopic(ctx context.Context, roomID string, topic string) error
}

// FriendshipSource fetches and acts on friendships.
type FriendshipSource interface {
	FriendshipRawPayload(ctx context.Context, friendshipID string) (FriendshipPayload, error)
	FriendshipAccept(ctx context.Context, friendshipID string) error
	FriendshipAdd(ctx context.Context, contactID string, hello string) error
	// FriendshipSearchPhone returns the matching contact id, or "" when nobody matches.
	FriendshipSearchPhone(ctx context.Context, phone string) (string, error)
	// FriendshipSearchWeixin returns the matching contact id, or "" when nobody matches.
	FriendshipSearchWeixin(ctx context.Context, weixin string) (string, error)
}

// RoomInvitationSource fetches and accepts room invitations.
type RoomInvitationSource interface {
	RoomInvitationRawPayload(ctx context.Context, invitationID string) (RoomInvitationPayload, error)
	RoomInvitationAccept(ctx context.Context, invitationID string) error
}

// Driver is the remote data source: a lifecycle plus the full capability set.
//
// Drivers own transport and session concerns and publish only Event values.
type Driver interface {
	// Name returns a stable driver identifier.
	Name() string
	// Start consumes remote updates and publishes events into sink.
	// It should return only after context cancellation or fatal error.
	Start(ctx context.Context, sink EventSink) error
	// Shutdown stops external resources that are not tied to Start context alone.
	Shutdown(ctx context.Context) error

	ContactSource
	TagSource
	MessageSource
	RoomSource
	FriendshipSource
	RoomInvitationSource
}
