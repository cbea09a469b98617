package wechaty

import (
	"context"
	"fmt"

	"ex-wechaty/pkg/puppet"
)

// Friendship is a handle to one friend request or confirmation.
type Friendship struct {
	entity[puppet.FriendshipPayload]

	contact *Contact
}

func newFriendship(c *Context, id string) *Friendship {
	return &Friendship{
		entity: newEntity(c, puppet.PayloadTypeFriendship, id, c.kernel.FriendshipPayload),
	}
}

// Contact returns the other side of the friendship.
func (f *Friendship) Contact() *Contact {
	return f.contact
}

// Type returns the friendship variant.
func (f *Friendship) Type() puppet.FriendshipType {
	return f.snapshot().Type
}

// Hello returns the greeting sent with the request.
func (f *Friendship) Hello() string {
	return f.snapshot().Hello
}

// Accept accepts an incoming request and re-syncs the contact.
func (f *Friendship) Accept(ctx context.Context) error {
	if f.Type() != puppet.FriendshipTypeReceive {
		return fmt.Errorf("accept friendship %s: type %d is not a received request", f.id, f.Type())
	}
	if err := f.c.kernel.FriendshipAccept(ctx, f.id); err != nil {
		return fmt.Errorf("accept friendship %s: %w", f.id, err)
	}
	if f.contact == nil {
		return nil
	}

	return f.contact.Sync(ctx)
}

// RoomInvitation is a handle to one pending room invitation.
type RoomInvitation struct {
	entity[puppet.RoomInvitationPayload]
}

func newRoomInvitation(c *Context, id string) *RoomInvitation {
	return &RoomInvitation{
		entity: newEntity(c, puppet.PayloadTypeRoomInvitation, id, c.kernel.RoomInvitationPayload),
	}
}

// Topic returns the topic of the room the invitation is for.
func (i *RoomInvitation) Topic() string {
	return i.snapshot().Topic
}

// MemberCount returns the room size announced by the invitation.
func (i *RoomInvitation) MemberCount() int {
	return i.snapshot().MemberCount
}

// Inviter loads the contact that sent the invitation.
func (i *RoomInvitation) Inviter(ctx context.Context) (*Contact, error) {
	return i.c.LoadContact(ctx, i.snapshot().InviterID)
}

// Accept joins the room.
func (i *RoomInvitation) Accept(ctx context.Context) error {
	if err := i.c.kernel.RoomInvitationAccept(ctx, i.id); err != nil {
		return fmt.Errorf("accept room invitation %s: %w", i.id, err)
	}

	return nil
}
