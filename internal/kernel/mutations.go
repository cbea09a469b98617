package kernel

import (
	"context"
	"fmt"

	"ex-wechaty/internal/cache"
	"ex-wechaty/pkg/puppet"
)

// ContactAlias sets the alias of contactID and drops its cached payload.
func (k *Kernel) ContactAlias(ctx context.Context, contactID string, alias string) error {
	if err := k.driver.ContactAlias(ctx, contactID, alias); err != nil {
		return fmt.Errorf("set contact %s alias: %w", contactID, err)
	}
	k.invalidate(puppet.PayloadTypeContact, contactID)

	return nil
}

// ContactAvatar sets the avatar of contactID and drops its cached payload.
func (k *Kernel) ContactAvatar(ctx context.Context, contactID string, avatar puppet.FileBox) error {
	if err := k.driver.ContactAvatar(ctx, contactID, avatar); err != nil {
		return fmt.Errorf("set contact %s avatar: %w", contactID, err)
	}
	k.invalidate(puppet.PayloadTypeContact, contactID)

	return nil
}

// ContactPhone sets the phone list of contactID and drops its cached payload.
func (k *Kernel) ContactPhone(ctx context.Context, contactID string, phones []string) error {
	if err := k.driver.ContactPhone(ctx, contactID, phones); err != nil {
		return fmt.Errorf("set contact %s phone: %w", contactID, err)
	}
	k.invalidate(puppet.PayloadTypeContact, contactID)

	return nil
}

// ContactDescription sets the description of contactID and drops its cached payload.
func (k *Kernel) ContactDescription(ctx context.Context, contactID string, description string) error {
	if err := k.driver.ContactDescription(ctx, contactID, description); err != nil {
		return fmt.Errorf("set contact %s description: %w", contactID, err)
	}
	k.invalidate(puppet.PayloadTypeContact, contactID)

	return nil
}

// ContactSelfName renames the logged-in account selfID.
func (k *Kernel) ContactSelfName(ctx context.Context, selfID string, name string) error {
	if err := k.driver.ContactSelfName(ctx, name); err != nil {
		return fmt.Errorf("set self name: %w", err)
	}
	k.invalidate(puppet.PayloadTypeContact, selfID)

	return nil
}

// ContactSelfSignature sets the signature of the logged-in account selfID.
func (k *Kernel) ContactSelfSignature(ctx context.Context, selfID string, signature string) error {
	if err := k.driver.ContactSelfSignature(ctx, signature); err != nil {
		return fmt.Errorf("set self signature: %w", err)
	}
	k.invalidate(puppet.PayloadTypeContact, selfID)

	return nil
}

// TagContactAdd tags contactID with tagID.
func (k *Kernel) TagContactAdd(ctx context.Context, tagID string, contactID string) error {
	if err := k.driver.TagContactAdd(ctx, tagID, contactID); err != nil {
		return fmt.Errorf("add tag %s to %s: %w", tagID, contactID, err)
	}
	k.invalidate(puppet.PayloadTypeContact, contactID)

	return nil
}

// TagContactRemove removes tagID from contactID.
func (k *Kernel) TagContactRemove(ctx context.Context, tagID string, contactID string) error {
	if err := k.driver.TagContactRemove(ctx, tagID, contactID); err != nil {
		return fmt.Errorf("remove tag %s from %s: %w", tagID, contactID, err)
	}
	k.invalidate(puppet.PayloadTypeContact, contactID)

	return nil
}

// TagContactDelete deletes tagID from every contact.
func (k *Kernel) TagContactDelete(ctx context.Context, tagID string) error {
	if err := k.driver.TagContactDelete(ctx, tagID); err != nil {
		return fmt.Errorf("delete tag %s: %w", tagID, err)
	}

	return nil
}

// MessageSendText sends text to conversationID, mentioning mentionIDs in rooms.
func (k *Kernel) MessageSendText(
	ctx context.Context,
	conversationID string,
	text string,
	mentionIDs []string,
) (string, error) {
	messageID, err := k.driver.MessageSendText(ctx, conversationID, text, mentionIDs)
	if err != nil {
		return "", fmt.Errorf("send text to %s: %w", conversationID, err)
	}
	k.history.remember(messageID)

	return messageID, nil
}

// MessageSendContact shares contactID as a card into conversationID.
func (k *Kernel) MessageSendContact(ctx context.Context, conversationID string, contactID string) (string, error) {
	messageID, err := k.driver.MessageSendContact(ctx, conversationID, contactID)
	if err != nil {
		return "", fmt.Errorf("send contact to %s: %w", conversationID, err)
	}
	k.history.remember(messageID)

	return messageID, nil
}

// MessageSendFile sends file into conversationID.
func (k *Kernel) MessageSendFile(ctx context.Context, conversationID string, file puppet.FileBox) (string, error) {
	messageID, err := k.driver.MessageSendFile(ctx, conversationID, file)
	if err != nil {
		return "", fmt.Errorf("send file to %s: %w", conversationID, err)
	}
	k.history.remember(messageID)

	return messageID, nil
}

// MessageSendURL sends a link card into conversationID.
func (k *Kernel) MessageSendURL(
	ctx context.Context,
	conversationID string,
	link puppet.URLLinkPayload,
) (string, error) {
	messageID, err := k.driver.MessageSendURL(ctx, conversationID, link)
	if err != nil {
		return "", fmt.Errorf("send url to %s: %w", conversationID, err)
	}
	k.history.remember(messageID)

	return messageID, nil
}

// MessageSendMiniProgram sends a mini program card into conversationID.
func (k *Kernel) MessageSendMiniProgram(
	ctx context.Context,
	conversationID string,
	program puppet.MiniProgramPayload,
) (string, error) {
	messageID, err := k.driver.MessageSendMiniProgram(ctx, conversationID, program)
	if err != nil {
		return "", fmt.Errorf("send mini program to %s: %w", conversationID, err)
	}
	k.history.remember(messageID)

	return messageID, nil
}

// MessageForward forwards messageID into conversationID.
//
// Only sendable message types can be forwarded; others fail with ErrUnsupported
// before the remote is called.
func (k *Kernel) MessageForward(ctx context.Context, conversationID string, messageID string) (string, error) {
	message, err := k.MessagePayload(ctx, messageID)
	if err != nil {
		return "", fmt.Errorf("forward message %s: %w", messageID, err)
	}
	if !message.Type.Sendable() {
		return "", fmt.Errorf(
			"forward message %s of type %s: %w",
			messageID,
			message.Type,
			puppet.Unsupported("message_forward"),
		)
	}

	forwardedID, err := k.driver.MessageForward(ctx, conversationID, messageID)
	if err != nil {
		return "", fmt.Errorf("forward message %s to %s: %w", messageID, conversationID, err)
	}
	k.history.remember(forwardedID)

	return forwardedID, nil
}

// MessageRecall recalls messageID and reports whether the remote accepted it.
func (k *Kernel) MessageRecall(ctx context.Context, messageID string) (bool, error) {
	recalled, err := k.driver.MessageRecall(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("recall message %s: %w", messageID, err)
	}
	if recalled {
		k.invalidate(puppet.PayloadTypeMessage, messageID)
	}

	return recalled, nil
}

// RoomCreate creates a room with contactIDs and returns its id.
func (k *Kernel) RoomCreate(ctx context.Context, contactIDs []string, topic string) (string, error) {
	roomID, err := k.driver.RoomCreate(ctx, contactIDs, topic)
	if err != nil {
		return "", fmt.Errorf("create room %q: %w", topic, err)
	}

	return roomID, nil
}

// RoomAdd adds contactID to roomID and drops the cached room.
func (k *Kernel) RoomAdd(ctx context.Context, roomID string, contactID string) error {
	if err := k.driver.RoomAdd(ctx, roomID, contactID); err != nil {
		return fmt.Errorf("add %s to room %s: %w", contactID, roomID, err)
	}
	k.invalidate(puppet.PayloadTypeRoom, roomID)

	return nil
}

// RoomDel removes contactID from roomID and drops the cached room and the
// member entry.
func (k *Kernel) RoomDel(ctx context.Context, roomID string, contactID string) error {
	if err := k.driver.RoomDel(ctx, roomID, contactID); err != nil {
		return fmt.Errorf("remove %s from room %s: %w", contactID, roomID, err)
	}
	k.invalidate(puppet.PayloadTypeRoom, roomID)
	k.invalidate(puppet.PayloadTypeRoomMember, cache.RoomMemberKey(contactID, roomID))

	return nil
}

// RoomQuit leaves roomID and drops the cached room.
func (k *Kernel) RoomQuit(ctx context.Context, roomID string) error {
	if err := k.driver.RoomQuit(ctx, roomID); err != nil {
		return fmt.Errorf("quit room %s: %w", roomID, err)
	}
	k.invalidate(puppet.PayloadTypeRoom, roomID)

	return nil
}

// RoomTopic sets the topic of roomID and drops the cached room.
func (k *Kernel) RoomTopic(ctx context.Context, roomID string, topic string) error {
	if err := k.driver.RoomTopic(ctx, roomID, topic); err != nil {
		return fmt.Errorf("set room %s topic: %w", roomID, err)
	}
	k.invalidate(puppet.PayloadTypeRoom, roomID)

	return nil
}

// FriendshipAccept accepts friendshipID and drops its cached payload.
func (k *Kernel) FriendshipAccept(ctx context.Context, friendshipID string) error {
	if err := k.driver.FriendshipAccept(ctx, friendshipID); err != nil {
		return fmt.Errorf("accept friendship %s: %w", friendshipID, err)
	}
	k.invalidate(puppet.PayloadTypeFriendship, friendshipID)

	return nil
}

// FriendshipAdd sends a friend request to contactID.
func (k *Kernel) FriendshipAdd(ctx context.Context, contactID string, hello string) error {
	if err := k.driver.FriendshipAdd(ctx, contactID, hello); err != nil {
		return fmt.Errorf("add friend %s: %w", contactID, err)
	}

	return nil
}

// RoomInvitationAccept accepts invitationID and drops its cached payload.
func (k *Kernel) RoomInvitationAccept(ctx context.Context, invitationID string) error {
	if err := k.driver.RoomInvitationAccept(ctx, invitationID); err != nil {
		return fmt.Errorf("accept room invitation %s: %w", invitationID, err)
	}
	k.invalidate(puppet.PayloadTypeRoomInvitation, invitationID)

	return nil
}
