package cache

import (
	"context"
	"fmt"

	"ex-wechaty/pkg/puppet"
)

// roomMemberKeySeparator joins contact and room ids in room member keys.
const roomMemberKeySeparator = "@@@"

// Capacities holds the per-kind entry limits of a Store.
type Capacities struct {
	Contact        int
	Friendship     int
	Message        int
	Room           int
	RoomMember     int
	RoomInvitation int
}

// DefaultCapacities returns the production entry limits per entity kind.
func DefaultCapacities() Capacities {
	return Capacities{
		Contact:        3000,
		Friendship:     300,
		Message:        500,
		Room:           500,
		RoomMember:     30000,
		RoomInvitation: 100,
	}
}

// withDefaults fills zero or negative limits from DefaultCapacities.
func (c Capacities) withDefaults() Capacities {
	defaults := DefaultCapacities()
	if c.Contact <= 0 {
		c.Contact = defaults.Contact
	}
	if c.Friendship <= 0 {
		c.Friendship = defaults.Friendship
	}
	if c.Message <= 0 {
		c.Message = defaults.Message
	}
	if c.Room <= 0 {
		c.Room = defaults.Room
	}
	if c.RoomMember <= 0 {
		c.RoomMember = defaults.RoomMember
	}
	if c.RoomInvitation <= 0 {
		c.RoomInvitation = defaults.RoomInvitation
	}

	return c
}

// MemberLister lists the current member ids of one room from the remote.
type MemberLister func(ctx context.Context, roomID string) ([]string, error)

// Store owns one cache per entity kind. Key spaces are disjoint per kind.
type Store struct {
	Contacts        *Cache[puppet.ContactPayload]
	Friendships     *Cache[puppet.FriendshipPayload]
	Messages        *Cache[puppet.MessagePayload]
	Rooms           *Cache[puppet.RoomPayload]
	RoomMembers     *Cache[puppet.RoomMemberPayload]
	RoomInvitations *Cache[puppet.RoomInvitationPayload]
}

// NewStore builds all six caches, each named after its payload type token.
// Zero capacities fall back to defaults.
func NewStore(capacities Capacities, options ...Option) (*Store, error) {
	capacities = capacities.withDefaults()

	contacts, err := New[puppet.ContactPayload](puppet.PayloadTypeContact.String(), capacities.Contact, options...)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	friendships, err := New[puppet.FriendshipPayload](puppet.PayloadTypeFriendship.String(), capacities.Friendship, options...)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	messages, err := New[puppet.MessagePayload](puppet.PayloadTypeMessage.String(), capacities.Message, options...)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	rooms, err := New[puppet.RoomPayload](puppet.PayloadTypeRoom.String(), capacities.Room, options...)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	roomMembers, err := New[puppet.RoomMemberPayload](puppet.PayloadTypeRoomMember.String(), capacities.RoomMember, options...)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}
	roomInvitations, err := New[puppet.RoomInvitationPayload](
		puppet.PayloadTypeRoomInvitation.String(),
		capacities.RoomInvitation,
		options...,
	)
	if err != nil {
		return nil, fmt.Errorf("new store: %w", err)
	}

	return &Store{
		Contacts:        contacts,
		Friendships:     friendships,
		Messages:        messages,
		Rooms:           rooms,
		RoomMembers:     roomMembers,
		RoomInvitations: roomInvitations,
	}, nil
}

// RoomMemberKey builds the composite key of one contact inside one room.
// The argument order is significant.
func RoomMemberKey(contactID string, roomID string) string {
	return contactID + roomMemberKeySeparator + roomID
}

// Invalidate drops one payload id from the cache selected by payloadType.
//
// Room member ids must already be composite keys; use InvalidateRoomMembers to
// drop a whole room.
func (s *Store) Invalidate(payloadType puppet.PayloadType, id string) error {
	switch payloadType {
	case puppet.PayloadTypeContact:
		s.Contacts.Invalidate(id)
	case puppet.PayloadTypeFriendship:
		s.Friendships.Invalidate(id)
	case puppet.PayloadTypeMessage:
		s.Messages.Invalidate(id)
	case puppet.PayloadTypeRoom:
		s.Rooms.Invalidate(id)
	case puppet.PayloadTypeRoomMember:
		s.RoomMembers.Invalidate(id)
	case puppet.PayloadTypeRoomInvitation:
		s.RoomInvitations.Invalidate(id)
	default:
		return fmt.Errorf("invalidate %s %s: %w", payloadType, id, puppet.ErrUnknownPayloadType)
	}

	return nil
}

// Contains reports whether id is resident in the cache selected by payloadType.
func (s *Store) Contains(payloadType puppet.PayloadType, id string) bool {
	switch payloadType {
	case puppet.PayloadTypeContact:
		return s.Contacts.Contains(id)
	case puppet.PayloadTypeFriendship:
		return s.Friendships.Contains(id)
	case puppet.PayloadTypeMessage:
		return s.Messages.Contains(id)
	case puppet.PayloadTypeRoom:
		return s.Rooms.Contains(id)
	case puppet.PayloadTypeRoomMember:
		return s.RoomMembers.Contains(id)
	case puppet.PayloadTypeRoomInvitation:
		return s.RoomInvitations.Contains(id)
	default:
		return false
	}
}

// InvalidateRoomMembers lists the room's current members remotely and drops
// each member entry.
//
// A list failure is returned as is. Entries dropped before a failure stay dropped.
func (s *Store) InvalidateRoomMembers(ctx context.Context, roomID string, list MemberLister) error {
	if list == nil {
		return fmt.Errorf("invalidate room %s members: nil lister", roomID)
	}

	memberIDs, err := list(ctx, roomID)
	if err != nil {
		return err
	}
	for _, contactID := range memberIDs {
		s.RoomMembers.Invalidate(RoomMemberKey(contactID, roomID))
	}

	return nil
}
