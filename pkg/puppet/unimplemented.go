package puppet

import "context"

// Unimplemented answers every capability with an unsupported error.
//
// Drivers embed it so that they only implement what their backend supports.
// It does not implement the lifecycle methods.
type Unimplemented struct{}

// ContactRawPayload is unsupported.
func (Unimplemented) ContactRawPayload(context.Context, string) (ContactPayload, error) {
	return ContactPayload{}, Unsupported("contact_raw_payload")
}

// ContactList is unsupported.
func (Unimplemented) ContactList(context.Context) ([]string, error) {
	return nil, Unsupported("contact_list")
}

// ContactAlias is unsupported.
func (Unimplemented) ContactAlias(context.Context, string, string) error {
	return Unsupported("contact_alias")
}

// ContactAvatar is unsupported.
func (Unimplemented) ContactAvatar(context.Context, string, FileBox) error {
	return Unsupported("contact_avatar")
}

// ContactPhone is unsupported.
func (Unimplemented) ContactPhone(context.Context, string, []string) error {
	return Unsupported("contact_phone")
}

// ContactDescription is unsupported.
func (Unimplemented) ContactDescription(context.Context, string, string) error {
	return Unsupported("contact_description")
}

// ContactSelfName is unsupported.
func (Unimplemented) ContactSelfName(context.Context, string) error {
	return Unsupported("contact_self_name")
}

// ContactSelfSignature is unsupported.
func (Unimplemented) ContactSelfSignature(context.Context, string) error {
	return Unsupported("contact_self_signature")
}

// TagContactAdd is unsupported.
func (Unimplemented) TagContactAdd(context.Context, string, string) error {
	return Unsupported("tag_contact_add")
}

// TagContactRemove is unsupported.
func (Unimplemented) TagContactRemove(context.Context, string, string) error {
	return Unsupported("tag_contact_remove")
}

// TagContactDelete is unsupported.
func (Unimplemented) TagContactDelete(context.Context, string) error {
	return Unsupported("tag_contact_delete")
}

// TagContactList is unsupported.
func (Unimplemented) TagContactList(context.Context, string) ([]string, error) {
	return nil, Unsupported("tag_contact_list")
}

// MessageRawPayload is unsupported.
func (Unimplemented) MessageRawPayload(context.Context, string) (MessagePayload, error) {
	return MessagePayload{}, Unsupported("message_raw_payload")
}

// MessageSendText is unsupported.
func (Unimplemented) MessageSendText(context.Context, string, string, []string) (string, error) {
	return "", Unsupported("message_send_text")
}

// MessageSendContact is unsupported.
func (Unimplemented) MessageSendContact(context.Context, string, string) (string, error) {
	return "", Unsupported("message_send_contact")
}

// MessageSendFile is unsupported.
func (Unimplemented) MessageSendFile(context.Context, string, FileBox) (string, error) {
	return "", Unsupported("message_send_file")
}

// MessageSendURL is unsupported.
func (Unimplemented) MessageSendURL(context.Context, string, URLLinkPayload) (string, error) {
	return "", Unsupported("message_send_url")
}

// MessageSendMiniProgram is unsupported.
func (Unimplemented) MessageSendMiniProgram(context.Context, string, MiniProgramPayload) (string, error) {
	return "", Unsupported("message_send_mini_program")
}

// MessageForward is unsupported.
func (Unimplemented) MessageForward(context.Context, string, string) (string, error) {
	return "", Unsupported("message_forward")
}

// MessageRecall is unsupported.
func (Unimplemented) MessageRecall(context.Context, string) (bool, error) {
	return false, Unsupported("message_recall")
}

// RoomRawPayload is unsupported.
func (Unimplemented) RoomRawPayload(context.Context, string) (RoomPayload, error) {
	return RoomPayload{}, Unsupported("room_raw_payload")
}

// RoomList is unsupported.
func (Unimplemented) RoomList(context.Context) ([]string, error) {
	return nil, Unsupported("room_list")
}

// RoomMemberList is unsupported.
func (Unimplemented) RoomMemberList(context.Context, string) ([]string, error) {
	return nil, Unsupported("room_member_list")
}

// RoomMemberRawPayload is unsupported.
func (Unimplemented) RoomMemberRawPayload(context.Context, string, string) (RoomMemberPayload, error) {
	return RoomMemberPayload{}, Unsupported("room_member_raw_payload")
}

// RoomCreate is unsupported.
func (Unimplemented) RoomCreate(context.Context, []string, string) (string, error) {
	return "", Unsupported("room_create")
}

// RoomAdd is unsupported.
func (Unimplemented) RoomAdd(context.Context, string, string) error {
	return Unsupported("room_add")
}

// RoomDel is unsupported.
func (Unimplemented) RoomDel(context.Context, string, string) error {
	return Unsupported("room_del")
}

// RoomQuit is unsupported.
func (Unimplemented) RoomQuit(context.Context, string) error {
	return Unsupported("room_quit")
}

// RoomTopic is unsupported.
func (Unimplemented) RoomTopic(context.Context, string, string) error {
	return Unsupported("room_topic")
}

// FriendshipRawPayload is unsupported.
func (Unimplemented) FriendshipRawPayload(context.Context, string) (FriendshipPayload, error) {
	return FriendshipPayload{}, Unsupported("friendship_raw_payload")
}

// FriendshipAccept is unsupported.
func (Unimplemented) FriendshipAccept(context.Context, string) error {
	return Unsupported("friendship_accept")
}

// FriendshipAdd is unsupported.
func (Unimplemented) FriendshipAdd(context.Context, string, string) error {
	return Unsupported("friendship_add")
}

// FriendshipSearchPhone is unsupported.
func (Unimplemented) FriendshipSearchPhone(context.Context, string) (string, error) {
	return "", Unsupported("friendship_search_phone")
}

// FriendshipSearchWeixin is unsupported.
func (Unimplemented) FriendshipSearchWeixin(context.Context, string) (string, error) {
	return "", Unsupported("friendship_search_weixin")
}

// RoomInvitationRawPayload is unsupported.
func (Unimplemented) RoomInvitationRawPayload(context.Context, string) (RoomInvitationPayload, error) {
	return RoomInvitationPayload{}, Unsupported("room_invitation_raw_payload")
}

// RoomInvitationAccept is unsupported.
func (Unimplemented) RoomInvitationAccept(context.Context, string) error {
	return Unsupported("room_invitation_accept")
}
