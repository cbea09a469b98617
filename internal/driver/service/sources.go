package service

import (
	"context"
	"fmt"

	"ex-wechaty/pkg/puppet"
)

// ContactRawPayload fetches one contact.
func (d *Driver) ContactRawPayload(ctx context.Context, contactID string) (puppet.ContactPayload, error) {
	var payload puppet.ContactPayload
	if err := d.fetch(ctx, "ContactPayload", "contact_raw_payload", map[string]any{"id": contactID}, &payload); err != nil {
		return puppet.ContactPayload{}, err
	}

	return payload, nil
}

// ContactList lists every contact id.
func (d *Driver) ContactList(ctx context.Context) ([]string, error) {
	return d.list(ctx, "ContactList", "contact_list", nil)
}

// ContactAlias sets the remark name of one contact.
func (d *Driver) ContactAlias(ctx context.Context, contactID string, alias string) error {
	return d.exec(ctx, "ContactAlias", "contact_alias", map[string]any{"id": contactID, "alias": alias})
}

// ContactAvatar replaces the avatar of one contact.
func (d *Driver) ContactAvatar(ctx context.Context, contactID string, avatar puppet.FileBox) error {
	fileBox, err := structFromPayload(avatar)
	if err != nil {
		return fmt.Errorf("contact_avatar: %w", err)
	}

	return d.exec(ctx, "ContactAvatar", "contact_avatar", map[string]any{"id": contactID, "file_box": fileBox})
}

// ContactPhone replaces the phone list of one contact.
func (d *Driver) ContactPhone(ctx context.Context, contactID string, phones []string) error {
	return d.exec(ctx, "ContactPhone", "contact_phone", map[string]any{"id": contactID, "phone_list": phones})
}

// ContactDescription sets the description of one contact.
func (d *Driver) ContactDescription(ctx context.Context, contactID string, description string) error {
	return d.exec(ctx, "ContactDescription", "contact_description", map[string]any{
		"id":          contactID,
		"description": description,
	})
}

// ContactSelfName renames the logged-in account.
func (d *Driver) ContactSelfName(ctx context.Context, name string) error {
	return d.exec(ctx, "ContactSelfName", "contact_self_name", map[string]any{"name": name})
}

// ContactSelfSignature sets the signature of the logged-in account.
func (d *Driver) ContactSelfSignature(ctx context.Context, signature string) error {
	return d.exec(ctx, "ContactSelfSignature", "contact_self_signature", map[string]any{"signature": signature})
}

// TagContactAdd attaches a tag to a contact.
func (d *Driver) TagContactAdd(ctx context.Context, tagID string, contactID string) error {
	return d.exec(ctx, "TagContactAdd", "tag_contact_add", map[string]any{"id": tagID, "contact_id": contactID})
}

// TagContactRemove detaches a tag from a contact.
func (d *Driver) TagContactRemove(ctx context.Context, tagID string, contactID string) error {
	return d.exec(ctx, "TagContactRemove", "tag_contact_remove", map[string]any{"id": tagID, "contact_id": contactID})
}

// TagContactDelete removes a tag everywhere.
func (d *Driver) TagContactDelete(ctx context.Context, tagID string) error {
	return d.exec(ctx, "TagContactDelete", "tag_contact_delete", map[string]any{"id": tagID})
}

// TagContactList lists tags of one contact, or every tag when contactID is empty.
func (d *Driver) TagContactList(ctx context.Context, contactID string) ([]string, error) {
	fields := map[string]any{}
	if contactID != "" {
		fields["contact_id"] = contactID
	}

	return d.list(ctx, "TagContactList", "tag_contact_list", fields)
}

// MessageRawPayload fetches one message.
func (d *Driver) MessageRawPayload(ctx context.Context, messageID string) (puppet.MessagePayload, error) {
	var payload puppet.MessagePayload
	if err := d.fetch(ctx, "MessagePayload", "message_raw_payload", map[string]any{"id": messageID}, &payload); err != nil {
		return puppet.MessagePayload{}, err
	}

	return payload, nil
}

// MessageSendText sends text with optional mentions.
func (d *Driver) MessageSendText(
	ctx context.Context,
	conversationID string,
	text string,
	mentionIDs []string,
) (string, error) {
	fields := map[string]any{"conversation_id": conversationID, "text": text}
	if len(mentionIDs) > 0 {
		fields["mention_id_list"] = mentionIDs
	}

	return d.create(ctx, "MessageSendText", "message_send_text", fields)
}

// MessageSendContact shares a contact card.
func (d *Driver) MessageSendContact(ctx context.Context, conversationID string, contactID string) (string, error) {
	return d.create(ctx, "MessageSendContact", "message_send_contact", map[string]any{
		"conversation_id": conversationID,
		"contact_id":      contactID,
	})
}

// MessageSendFile sends a file.
func (d *Driver) MessageSendFile(ctx context.Context, conversationID string, file puppet.FileBox) (string, error) {
	fileBox, err := structFromPayload(file)
	if err != nil {
		return "", fmt.Errorf("message_send_file: %w", err)
	}

	return d.create(ctx, "MessageSendFile", "message_send_file", map[string]any{
		"conversation_id": conversationID,
		"file_box":        fileBox,
	})
}

// MessageSendURL sends a link card.
func (d *Driver) MessageSendURL(ctx context.Context, conversationID string, link puppet.URLLinkPayload) (string, error) {
	urlLink, err := structFromPayload(link)
	if err != nil {
		return "", fmt.Errorf("message_send_url: %w", err)
	}

	return d.create(ctx, "MessageSendUrl", "message_send_url", map[string]any{
		"conversation_id": conversationID,
		"url_link":        urlLink,
	})
}

// MessageSendMiniProgram sends a mini program card.
func (d *Driver) MessageSendMiniProgram(
	ctx context.Context,
	conversationID string,
	program puppet.MiniProgramPayload,
) (string, error) {
	miniProgram, err := structFromPayload(program)
	if err != nil {
		return "", fmt.Errorf("message_send_mini_program: %w", err)
	}

	return d.create(ctx, "MessageSendMiniProgram", "message_send_mini_program", map[string]any{
		"conversation_id": conversationID,
		"mini_program":    miniProgram,
	})
}

// MessageForward forwards one message into a conversation.
func (d *Driver) MessageForward(ctx context.Context, conversationID string, messageID string) (string, error) {
	return d.create(ctx, "MessageForward", "message_forward", map[string]any{
		"conversation_id": conversationID,
		"message_id":      messageID,
	})
}

// MessageRecall recalls one sent message.
func (d *Driver) MessageRecall(ctx context.Context, messageID string) (bool, error) {
	response, err := d.call(ctx, "MessageRecall", "message_recall", map[string]any{"id": messageID})
	if err != nil {
		return false, err
	}

	return boolField(response, "success"), nil
}

// RoomRawPayload fetches one room.
func (d *Driver) RoomRawPayload(ctx context.Context, roomID string) (puppet.RoomPayload, error) {
	var payload puppet.RoomPayload
	if err := d.fetch(ctx, "RoomPayload", "room_raw_payload", map[string]any{"id": roomID}, &payload); err != nil {
		return puppet.RoomPayload{}, err
	}

	return payload, nil
}

// RoomList lists every room id.
func (d *Driver) RoomList(ctx context.Context) ([]string, error) {
	return d.list(ctx, "RoomList", "room_list", nil)
}

// RoomMemberList lists member contact ids of one room.
func (d *Driver) RoomMemberList(ctx context.Context, roomID string) ([]string, error) {
	return d.list(ctx, "RoomMemberList", "room_member_list", map[string]any{"id": roomID})
}

// RoomMemberRawPayload fetches one membership.
func (d *Driver) RoomMemberRawPayload(
	ctx context.Context,
	roomID string,
	contactID string,
) (puppet.RoomMemberPayload, error) {
	var payload puppet.RoomMemberPayload
	fields := map[string]any{"id": roomID, "member_id": contactID}
	if err := d.fetch(ctx, "RoomMemberPayload", "room_member_raw_payload", fields, &payload); err != nil {
		return puppet.RoomMemberPayload{}, err
	}

	return payload, nil
}

// RoomCreate creates a room and returns its id.
func (d *Driver) RoomCreate(ctx context.Context, contactIDs []string, topic string) (string, error) {
	return d.create(ctx, "RoomCreate", "room_create", map[string]any{
		"contact_ids": contactIDs,
		"topic":       topic,
	})
}

// RoomAdd invites one contact into a room.
func (d *Driver) RoomAdd(ctx context.Context, roomID string, contactID string) error {
	return d.exec(ctx, "RoomAdd", "room_add", map[string]any{"id": roomID, "contact_id": contactID})
}

// RoomDel removes one contact from a room.
func (d *Driver) RoomDel(ctx context.Context, roomID string, contactID string) error {
	return d.exec(ctx, "RoomDel", "room_del", map[string]any{"id": roomID, "contact_id": contactID})
}

// RoomQuit leaves a room.
func (d *Driver) RoomQuit(ctx context.Context, roomID string) error {
	return d.exec(ctx, "RoomQuit", "room_quit", map[string]any{"id": roomID})
}

// RoomTopic renames a room.
func (d *Driver) RoomTopic(ctx context.Context, roomID string, topic string) error {
	return d.exec(ctx, "RoomTopic", "room_topic", map[string]any{"id": roomID, "topic": topic})
}

// FriendshipRawPayload fetches one friendship.
func (d *Driver) FriendshipRawPayload(ctx context.Context, friendshipID string) (puppet.FriendshipPayload, error) {
	var payload puppet.FriendshipPayload
	fields := map[string]any{"id": friendshipID}
	if err := d.fetch(ctx, "FriendshipPayload", "friendship_raw_payload", fields, &payload); err != nil {
		return puppet.FriendshipPayload{}, err
	}

	return payload, nil
}

// FriendshipAccept accepts one friendship request.
func (d *Driver) FriendshipAccept(ctx context.Context, friendshipID string) error {
	return d.exec(ctx, "FriendshipAccept", "friendship_accept", map[string]any{"id": friendshipID})
}

// FriendshipAdd sends a friend request.
func (d *Driver) FriendshipAdd(ctx context.Context, contactID string, hello string) error {
	return d.exec(ctx, "FriendshipAdd", "friendship_add", map[string]any{"contact_id": contactID, "hello": hello})
}

// FriendshipSearchPhone resolves a phone number to a contact id.
func (d *Driver) FriendshipSearchPhone(ctx context.Context, phone string) (string, error) {
	response, err := d.call(ctx, "FriendshipSearchPhone", "friendship_search_phone", map[string]any{"phone": phone})
	if err != nil {
		return "", err
	}

	return stringField(response, "contact_id"), nil
}

// FriendshipSearchWeixin resolves a weixin handle to a contact id.
func (d *Driver) FriendshipSearchWeixin(ctx context.Context, weixin string) (string, error) {
	response, err := d.call(ctx, "FriendshipSearchWeixin", "friendship_search_weixin", map[string]any{"weixin": weixin})
	if err != nil {
		return "", err
	}

	return stringField(response, "contact_id"), nil
}

// RoomInvitationRawPayload fetches one room invitation.
func (d *Driver) RoomInvitationRawPayload(
	ctx context.Context,
	invitationID string,
) (puppet.RoomInvitationPayload, error) {
	var payload puppet.RoomInvitationPayload
	fields := map[string]any{"id": invitationID}
	if err := d.fetch(ctx, "RoomInvitationPayload", "room_invitation_raw_payload", fields, &payload); err != nil {
		return puppet.RoomInvitationPayload{}, err
	}

	return payload, nil
}

// RoomInvitationAccept accepts one room invitation.
func (d *Driver) RoomInvitationAccept(ctx context.Context, invitationID string) error {
	return d.exec(ctx, "RoomInvitationAccept", "room_invitation_accept", map[string]any{"id": invitationID})
}

// fetch decodes a payload response into target.
func (d *Driver) fetch(ctx context.Context, method string, operation string, fields map[string]any, target any) error {
	response, err := d.call(ctx, method, operation, fields)
	if err != nil {
		return err
	}
	if err := decodePayload(response, target); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	return nil
}

// list reads the "ids" field of a response.
func (d *Driver) list(ctx context.Context, method string, operation string, fields map[string]any) ([]string, error) {
	response, err := d.call(ctx, method, operation, fields)
	if err != nil {
		return nil, err
	}

	return stringListField(response, "ids"), nil
}

// create reads the "id" field of a response.
func (d *Driver) create(ctx context.Context, method string, operation string, fields map[string]any) (string, error) {
	response, err := d.call(ctx, method, operation, fields)
	if err != nil {
		return "", err
	}

	return stringField(response, "id"), nil
}

// exec performs a call whose response carries nothing.
func (d *Driver) exec(ctx context.Context, method string, operation string, fields map[string]any) error {
	_, err := d.call(ctx, method, operation, fields)
	return err
}
