package kernel

import (
	"context"
	"fmt"

	"ex-wechaty/internal/cache"
	"ex-wechaty/internal/query"
	"ex-wechaty/pkg/puppet"
)

// ContactPayload returns the cached contact, fetching it on a miss.
func (k *Kernel) ContactPayload(ctx context.Context, contactID string) (puppet.ContactPayload, error) {
	payload, err := k.store.Contacts.Get(ctx, contactID, k.driver.ContactRawPayload)
	if err != nil {
		return puppet.ContactPayload{}, fmt.Errorf("load contact %s: %w", contactID, err)
	}

	return payload, nil
}

// MessagePayload returns the cached message, fetching it on a miss.
func (k *Kernel) MessagePayload(ctx context.Context, messageID string) (puppet.MessagePayload, error) {
	payload, err := k.store.Messages.Get(ctx, messageID, k.driver.MessageRawPayload)
	if err != nil {
		return puppet.MessagePayload{}, fmt.Errorf("load message %s: %w", messageID, err)
	}
	k.history.remember(messageID)

	return payload, nil
}

// RoomPayload returns the cached room, fetching it on a miss.
func (k *Kernel) RoomPayload(ctx context.Context, roomID string) (puppet.RoomPayload, error) {
	payload, err := k.store.Rooms.Get(ctx, roomID, k.driver.RoomRawPayload)
	if err != nil {
		return puppet.RoomPayload{}, fmt.Errorf("load room %s: %w", roomID, err)
	}

	return payload, nil
}

// RoomMemberPayload returns the cached member entry of contactID inside roomID.
func (k *Kernel) RoomMemberPayload(
	ctx context.Context,
	roomID string,
	contactID string,
) (puppet.RoomMemberPayload, error) {
	key := cache.RoomMemberKey(contactID, roomID)
	payload, err := k.store.RoomMembers.Get(ctx, key, func(ctx context.Context, _ string) (puppet.RoomMemberPayload, error) {
		return k.driver.RoomMemberRawPayload(ctx, roomID, contactID)
	})
	if err != nil {
		return puppet.RoomMemberPayload{}, fmt.Errorf("load room %s member %s: %w", roomID, contactID, err)
	}

	return payload, nil
}

// FriendshipPayload returns the cached friendship, fetching it on a miss.
func (k *Kernel) FriendshipPayload(ctx context.Context, friendshipID string) (puppet.FriendshipPayload, error) {
	payload, err := k.store.Friendships.Get(ctx, friendshipID, k.driver.FriendshipRawPayload)
	if err != nil {
		return puppet.FriendshipPayload{}, fmt.Errorf("load friendship %s: %w", friendshipID, err)
	}

	return payload, nil
}

// RoomInvitationPayload returns the cached room invitation, fetching it on a miss.
func (k *Kernel) RoomInvitationPayload(
	ctx context.Context,
	invitationID string,
) (puppet.RoomInvitationPayload, error) {
	payload, err := k.store.RoomInvitations.Get(ctx, invitationID, k.driver.RoomInvitationRawPayload)
	if err != nil {
		return puppet.RoomInvitationPayload{}, fmt.Errorf("load room invitation %s: %w", invitationID, err)
	}

	return payload, nil
}

// ContactList returns every contact id known to the remote.
func (k *Kernel) ContactList(ctx context.Context) ([]string, error) {
	contactIDs, err := k.driver.ContactList(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	return contactIDs, nil
}

// RoomList returns every room id known to the remote.
func (k *Kernel) RoomList(ctx context.Context) ([]string, error) {
	roomIDs, err := k.driver.RoomList(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	return roomIDs, nil
}

// RoomMemberList returns the member contact ids of roomID.
func (k *Kernel) RoomMemberList(ctx context.Context, roomID string) ([]string, error) {
	memberIDs, err := k.driver.RoomMemberList(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list room %s members: %w", roomID, err)
	}

	return memberIDs, nil
}

// MessageKnownIDs returns the message search universe: remembered history ids
// followed by cache-resident ids, without duplicates.
func (k *Kernel) MessageKnownIDs() []string {
	return query.Union(k.history.snapshot(), k.store.Messages.Keys())
}

// TagList returns the tags of contactID, or every tag when contactID is empty.
func (k *Kernel) TagList(ctx context.Context, contactID string) ([]string, error) {
	tagIDs, err := k.driver.TagContactList(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("list tags of %q: %w", contactID, err)
	}

	return tagIDs, nil
}
