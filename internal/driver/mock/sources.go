package mock

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"ex-wechaty/pkg/puppet"
)

// ContactRawPayload returns the stored contact.
func (d *Driver) ContactRawPayload(_ context.Context, contactID string) (puppet.ContactPayload, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	payload, exists := d.contacts[contactID]
	if !exists {
		return puppet.ContactPayload{}, notFound("contact", contactID)
	}

	return payload.Clone(), nil
}

// ContactList returns every stored contact id in sorted order.
func (d *Driver) ContactList(context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return sortedKeys(d.contacts), nil
}

// ContactAlias sets the alias of a stored contact.
func (d *Driver) ContactAlias(_ context.Context, contactID string, alias string) error {
	return d.updateContact(contactID, func(payload *puppet.ContactPayload) {
		payload.Alias = alias
	})
}

// ContactAvatar stores the avatar file name as the contact avatar.
func (d *Driver) ContactAvatar(_ context.Context, contactID string, avatar puppet.FileBox) error {
	return d.updateContact(contactID, func(payload *puppet.ContactPayload) {
		payload.Avatar = avatar.Name
	})
}

// ContactPhone replaces the phone list of a stored contact.
func (d *Driver) ContactPhone(_ context.Context, contactID string, phones []string) error {
	return d.updateContact(contactID, func(payload *puppet.ContactPayload) {
		payload.Phone = append([]string(nil), phones...)
	})
}

// ContactDescription sets the description of a stored contact.
func (d *Driver) ContactDescription(_ context.Context, contactID string, description string) error {
	return d.updateContact(contactID, func(payload *puppet.ContactPayload) {
		payload.Description = description
	})
}

// ContactSelfName renames the self contact.
func (d *Driver) ContactSelfName(_ context.Context, name string) error {
	return d.updateContact(d.cfg.self.ID, func(payload *puppet.ContactPayload) {
		payload.Name = name
	})
}

// ContactSelfSignature sets the self contact signature.
func (d *Driver) ContactSelfSignature(_ context.Context, signature string) error {
	return d.updateContact(d.cfg.self.ID, func(payload *puppet.ContactPayload) {
		payload.Signature = signature
	})
}

func (d *Driver) updateContact(contactID string, update func(*puppet.ContactPayload)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload, exists := d.contacts[contactID]
	if !exists {
		return notFound("contact", contactID)
	}
	update(&payload)
	d.contacts[contactID] = payload

	return nil
}

// TagContactAdd tags a contact.
func (d *Driver) TagContactAdd(_ context.Context, tagID string, contactID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.contacts[contactID]; !exists {
		return notFound("contact", contactID)
	}
	if d.tags[tagID] == nil {
		d.tags[tagID] = make(map[string]struct{})
	}
	d.tags[tagID][contactID] = struct{}{}

	return nil
}

// TagContactRemove untags a contact.
func (d *Driver) TagContactRemove(_ context.Context, tagID string, contactID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.tags[tagID], contactID)

	return nil
}

// TagContactDelete deletes a tag everywhere.
func (d *Driver) TagContactDelete(_ context.Context, tagID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tags[tagID]; !exists {
		return notFound("tag", tagID)
	}
	delete(d.tags, tagID)

	return nil
}

// TagContactList lists tags of contactID, or every tag when contactID is empty.
func (d *Driver) TagContactList(_ context.Context, contactID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tagIDs := make([]string, 0, len(d.tags))
	for tagID, contacts := range d.tags {
		if contactID == "" {
			tagIDs = append(tagIDs, tagID)
			continue
		}
		if _, tagged := contacts[contactID]; tagged {
			tagIDs = append(tagIDs, tagID)
		}
	}
	sort.Strings(tagIDs)

	return tagIDs, nil
}

// MessageRawPayload returns the stored message.
func (d *Driver) MessageRawPayload(_ context.Context, messageID string) (puppet.MessagePayload, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	payload, exists := d.messages[messageID]
	if !exists {
		return puppet.MessagePayload{}, notFound("message", messageID)
	}

	return payload.Clone(), nil
}

// MessageSendText stores an outbound text message.
func (d *Driver) MessageSendText(
	_ context.Context,
	conversationID string,
	text string,
	mentionIDs []string,
) (string, error) {
	return d.send(conversationID, puppet.MessagePayload{
		Type:       puppet.MessageTypeText,
		Text:       text,
		MentionIDs: append([]string(nil), mentionIDs...),
	}), nil
}

// MessageSendContact stores an outbound contact card.
func (d *Driver) MessageSendContact(_ context.Context, conversationID string, contactID string) (string, error) {
	return d.send(conversationID, puppet.MessagePayload{Type: puppet.MessageTypeContact, Text: contactID}), nil
}

// MessageSendFile stores an outbound file message.
func (d *Driver) MessageSendFile(_ context.Context, conversationID string, file puppet.FileBox) (string, error) {
	return d.send(conversationID, puppet.MessagePayload{Type: puppet.MessageTypeAttachment, Filename: file.Name}), nil
}

// MessageSendURL stores an outbound link card.
func (d *Driver) MessageSendURL(
	_ context.Context,
	conversationID string,
	link puppet.URLLinkPayload,
) (string, error) {
	return d.send(conversationID, puppet.MessagePayload{Type: puppet.MessageTypeURL, Text: link.URL}), nil
}

// MessageSendMiniProgram stores an outbound mini program card.
func (d *Driver) MessageSendMiniProgram(
	_ context.Context,
	conversationID string,
	program puppet.MiniProgramPayload,
) (string, error) {
	return d.send(conversationID, puppet.MessagePayload{Type: puppet.MessageTypeMiniProgram, Text: program.Title}), nil
}

// MessageForward copies a stored message into conversationID.
func (d *Driver) MessageForward(_ context.Context, conversationID string, messageID string) (string, error) {
	d.mu.RLock()
	original, exists := d.messages[messageID]
	d.mu.RUnlock()
	if !exists {
		return "", notFound("message", messageID)
	}

	return d.send(conversationID, puppet.MessagePayload{
		Type:     original.Type,
		Text:     original.Text,
		Filename: original.Filename,
	}), nil
}

// MessageRecall marks a stored message recalled. Recalling twice reports false.
func (d *Driver) MessageRecall(_ context.Context, messageID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload, exists := d.messages[messageID]
	if !exists {
		return false, notFound("message", messageID)
	}
	if _, recalled := d.recalled[messageID]; recalled {
		return false, nil
	}
	d.recalled[messageID] = struct{}{}
	payload.Type = puppet.MessageTypeRecalled
	d.messages[messageID] = payload

	return true, nil
}

// send stores an outbound message from self addressed to conversationID.
func (d *Driver) send(conversationID string, payload puppet.MessagePayload) string {
	payload.ID = uuid.NewString()
	payload.FromID = d.cfg.self.ID

	d.mu.Lock()
	if _, isRoom := d.rooms[conversationID]; isRoom {
		payload.RoomID = conversationID
	} else {
		payload.ToID = conversationID
	}
	d.mu.Unlock()

	messageID := d.storeMessage(payload)

	d.mu.Lock()
	d.sent = append(d.sent, messageID)
	d.mu.Unlock()

	return messageID
}

// RoomRawPayload returns the stored room.
func (d *Driver) RoomRawPayload(_ context.Context, roomID string) (puppet.RoomPayload, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	payload, exists := d.rooms[roomID]
	if !exists {
		return puppet.RoomPayload{}, notFound("room", roomID)
	}

	return payload.Clone(), nil
}

// RoomList returns every stored room id in sorted order.
func (d *Driver) RoomList(context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return sortedKeys(d.rooms), nil
}

// RoomMemberList returns the member ids of a stored room.
func (d *Driver) RoomMemberList(_ context.Context, roomID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	payload, exists := d.rooms[roomID]
	if !exists {
		return nil, notFound("room", roomID)
	}

	return append([]string(nil), payload.MemberIDs...), nil
}

// RoomMemberRawPayload returns one stored member entry.
func (d *Driver) RoomMemberRawPayload(
	_ context.Context,
	roomID string,
	contactID string,
) (puppet.RoomMemberPayload, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	member, exists := d.members[roomID][contactID]
	if !exists {
		return puppet.RoomMemberPayload{}, notFound("room member", contactID+"@"+roomID)
	}

	return member.Clone(), nil
}

// RoomCreate stores a new room containing self and contactIDs.
func (d *Driver) RoomCreate(_ context.Context, contactIDs []string, topic string) (string, error) {
	roomID := uuid.NewString() + "@chatroom"
	members := make([]puppet.RoomMemberPayload, 0, len(contactIDs)+1)
	if d.cfg.self.ID != "" {
		members = append(members, puppet.RoomMemberPayload{ID: d.cfg.self.ID, Name: d.cfg.self.Name})
	}
	for _, contactID := range contactIDs {
		members = append(members, d.memberFromContact(contactID, d.cfg.self.ID))
	}
	d.SeedRoom(puppet.RoomPayload{ID: roomID, Topic: topic, OwnerID: d.cfg.self.ID}, members...)

	return roomID, nil
}

// RoomAdd adds contactID to a stored room.
func (d *Driver) RoomAdd(_ context.Context, roomID string, contactID string) error {
	member := d.memberFromContact(contactID, d.cfg.self.ID)

	d.mu.Lock()
	defer d.mu.Unlock()

	room, exists := d.rooms[roomID]
	if !exists {
		return notFound("room", roomID)
	}
	if _, joined := d.members[roomID][contactID]; !joined {
		room.MemberIDs = append(room.MemberIDs, contactID)
	}
	d.rooms[roomID] = room
	d.members[roomID][contactID] = member

	return nil
}

// RoomDel removes contactID from a stored room.
func (d *Driver) RoomDel(_ context.Context, roomID string, contactID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, exists := d.rooms[roomID]
	if !exists {
		return notFound("room", roomID)
	}
	room.MemberIDs = removeID(room.MemberIDs, contactID)
	d.rooms[roomID] = room
	delete(d.members[roomID], contactID)

	return nil
}

// RoomQuit removes self from a stored room.
func (d *Driver) RoomQuit(ctx context.Context, roomID string) error {
	return d.RoomDel(ctx, roomID, d.cfg.self.ID)
}

// RoomTopic changes the topic of a stored room and emits room-topic when running.
func (d *Driver) RoomTopic(ctx context.Context, roomID string, topic string) error {
	d.mu.Lock()
	room, exists := d.rooms[roomID]
	if !exists {
		d.mu.Unlock()
		return notFound("room", roomID)
	}
	oldTopic := room.Topic
	room.Topic = topic
	d.rooms[roomID] = room
	d.mu.Unlock()

	d.emitAsync(ctx, &puppet.Event{
		Kind: puppet.EventKindRoomTopic,
		RoomTopic: &puppet.RoomTopic{
			ChangerID: d.cfg.self.ID,
			OldTopic:  oldTopic,
			NewTopic:  topic,
			RoomID:    roomID,
		},
	})

	return nil
}

func (d *Driver) memberFromContact(contactID string, inviterID string) puppet.RoomMemberPayload {
	d.mu.RLock()
	defer d.mu.RUnlock()

	contact := d.contacts[contactID]

	return puppet.RoomMemberPayload{
		ID:        contactID,
		InviterID: inviterID,
		Avatar:    contact.Avatar,
		Name:      contact.Name,
	}
}

// FriendshipRawPayload returns the stored friendship.
func (d *Driver) FriendshipRawPayload(_ context.Context, friendshipID string) (puppet.FriendshipPayload, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	payload, exists := d.friendships[friendshipID]
	if !exists {
		return puppet.FriendshipPayload{}, notFound("friendship", friendshipID)
	}

	return payload.Clone(), nil
}

// FriendshipAccept confirms a stored friendship and marks its contact a friend.
func (d *Driver) FriendshipAccept(_ context.Context, friendshipID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	payload, exists := d.friendships[friendshipID]
	if !exists {
		return notFound("friendship", friendshipID)
	}
	payload.Type = puppet.FriendshipTypeConfirm
	d.friendships[friendshipID] = payload
	if contact, known := d.contacts[payload.ContactID]; known {
		contact.Friend = true
		d.contacts[payload.ContactID] = contact
	}

	return nil
}

// FriendshipAdd records an outgoing friend request as a verify friendship.
func (d *Driver) FriendshipAdd(_ context.Context, contactID string, hello string) error {
	d.SeedFriendship(puppet.FriendshipPayload{
		ID:        uuid.NewString(),
		ContactID: contactID,
		Hello:     hello,
		Type:      puppet.FriendshipTypeVerify,
	})

	return nil
}

// FriendshipSearchPhone finds a stored contact carrying phone.
func (d *Driver) FriendshipSearchPhone(_ context.Context, phone string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, contactID := range sortedKeys(d.contacts) {
		for _, candidate := range d.contacts[contactID].Phone {
			if candidate == phone {
				return contactID, nil
			}
		}
	}

	return "", nil
}

// FriendshipSearchWeixin finds a stored contact by weixin id.
func (d *Driver) FriendshipSearchWeixin(_ context.Context, weixin string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, contactID := range sortedKeys(d.contacts) {
		if d.contacts[contactID].Weixin == weixin {
			return contactID, nil
		}
	}

	return "", nil
}

// RoomInvitationRawPayload returns the stored room invitation.
func (d *Driver) RoomInvitationRawPayload(
	_ context.Context,
	invitationID string,
) (puppet.RoomInvitationPayload, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	payload, exists := d.roomInvitations[invitationID]
	if !exists {
		return puppet.RoomInvitationPayload{}, notFound("room invitation", invitationID)
	}

	return payload.Clone(), nil
}

// RoomInvitationAccept joins self into a room named after the invitation topic.
func (d *Driver) RoomInvitationAccept(_ context.Context, invitationID string) error {
	d.mu.RLock()
	invitation, exists := d.roomInvitations[invitationID]
	d.mu.RUnlock()
	if !exists {
		return notFound("room invitation", invitationID)
	}

	d.SeedRoom(
		puppet.RoomPayload{ID: invitationID + "@chatroom", Topic: invitation.Topic, OwnerID: invitation.InviterID},
		puppet.RoomMemberPayload{ID: d.cfg.self.ID, Name: d.cfg.self.Name, InviterID: invitation.InviterID},
	)

	return nil
}

func sortedKeys[V any](entries map[string]V) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func removeID(ids []string, id string) []string {
	kept := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			kept = append(kept, candidate)
		}
	}

	return kept
}
