package puppet

import "strings"

// PayloadType identifies which entity cache a payload id belongs to.
type PayloadType int

const (
	// PayloadTypeUnknown is an unroutable payload type.
	PayloadTypeUnknown PayloadType = iota
	// PayloadTypeMessage selects message payloads.
	PayloadTypeMessage
	// PayloadTypeContact selects contact payloads.
	PayloadTypeContact
	// PayloadTypeRoom selects room payloads.
	PayloadTypeRoom
	// PayloadTypeRoomMember selects room member payloads.
	PayloadTypeRoomMember
	// PayloadTypeFriendship selects friendship payloads.
	PayloadTypeFriendship
	// PayloadTypeRoomInvitation selects room invitation payloads.
	PayloadTypeRoomInvitation
)

var payloadTypeNames = map[PayloadType]string{
	PayloadTypeUnknown:        "unknown",
	PayloadTypeMessage:        "message",
	PayloadTypeContact:        "contact",
	PayloadTypeRoom:           "room",
	PayloadTypeRoomMember:     "room_member",
	PayloadTypeFriendship:     "friendship",
	PayloadTypeRoomInvitation: "room_invitation",
}

// String returns the stable lowercase token for t.
func (t PayloadType) String() string {
	if name, ok := payloadTypeNames[t]; ok {
		return name
	}

	return "unknown"
}

// ParsePayloadType resolves a lowercase token back to a PayloadType.
func ParsePayloadType(raw string) PayloadType {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for payloadType, name := range payloadTypeNames {
		if name == normalized {
			return payloadType
		}
	}

	return PayloadTypeUnknown
}

// ContactGender is the self-reported contact gender.
type ContactGender int

const (
	// ContactGenderUnknown is unset.
	ContactGenderUnknown ContactGender = iota
	// ContactGenderMale is male.
	ContactGenderMale
	// ContactGenderFemale is female.
	ContactGenderFemale
)

// ContactType distinguishes personal accounts from official ones.
type ContactType int

const (
	// ContactTypeUnknown is unset.
	ContactTypeUnknown ContactType = iota
	// ContactTypeIndividual is a personal account.
	ContactTypeIndividual
	// ContactTypeOfficial is an official account.
	ContactTypeOfficial
	// ContactTypeCorporation is a corporation account.
	ContactTypeCorporation
)

// ContactPayload is the last-known snapshot of one contact.
type ContactPayload struct {
	ID          string        `json:"id"`
	Gender      ContactGender `json:"gender"`
	Type        ContactType   `json:"type"`
	Name        string        `json:"name"`
	Avatar      string        `json:"avatar"`
	Address     string        `json:"address,omitempty"`
	Alias       string        `json:"alias,omitempty"`
	City        string        `json:"city,omitempty"`
	Province    string        `json:"province,omitempty"`
	Friend      bool          `json:"friend,omitempty"`
	Star        bool          `json:"star,omitempty"`
	Weixin      string        `json:"weixin,omitempty"`
	Corporation string        `json:"corporation,omitempty"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Coworker    bool          `json:"coworker,omitempty"`
	Signature   string        `json:"signature,omitempty"`
	Phone       []string      `json:"phone,omitempty"`
}

// Clone returns a deep copy of p.
func (p ContactPayload) Clone() ContactPayload {
	p.Phone = cloneStrings(p.Phone)
	return p
}

// MessagePayload is the immutable snapshot of one message.
//
// A message is room-addressed when RoomID is set and direct-addressed otherwise.
type MessagePayload struct {
	ID         string      `json:"id"`
	Filename   string      `json:"filename,omitempty"`
	Text       string      `json:"text,omitempty"`
	Timestamp  uint64      `json:"timestamp"`
	Type       MessageType `json:"type"`
	FromID     string      `json:"from_id,omitempty"`
	ToID       string      `json:"to_id,omitempty"`
	RoomID     string      `json:"room_id,omitempty"`
	MentionIDs []string    `json:"mention_id_list,omitempty"`
}

// Clone returns a deep copy of p.
func (p MessagePayload) Clone() MessagePayload {
	p.MentionIDs = cloneStrings(p.MentionIDs)
	return p
}

// InRoom reports whether the message was posted into a room.
func (p MessagePayload) InRoom() bool {
	return p.RoomID != ""
}

// ConversationID returns the room id for room messages, otherwise the peer contact id.
func (p MessagePayload) ConversationID() string {
	if p.InRoom() {
		return p.RoomID
	}

	return p.FromID
}

// RoomPayload is the last-known snapshot of one room.
type RoomPayload struct {
	ID        string   `json:"id"`
	Topic     string   `json:"topic"`
	Avatar    string   `json:"avatar,omitempty"`
	MemberIDs []string `json:"member_id_list,omitempty"`
	OwnerID   string   `json:"owner_id,omitempty"`
	AdminIDs  []string `json:"admin_id_list,omitempty"`
}

// Clone returns a deep copy of p.
func (p RoomPayload) Clone() RoomPayload {
	p.MemberIDs = cloneStrings(p.MemberIDs)
	p.AdminIDs = cloneStrings(p.AdminIDs)
	return p
}

// RoomMemberPayload is one contact as seen inside one room.
type RoomMemberPayload struct {
	ID        string `json:"id"`
	RoomAlias string `json:"room_alias,omitempty"`
	InviterID string `json:"inviter_id,omitempty"`
	Avatar    string `json:"avatar"`
	Name      string `json:"name"`
}

// Clone returns a copy of p.
func (p RoomMemberPayload) Clone() RoomMemberPayload {
	return p
}

// FriendshipType selects the friendship payload variant.
type FriendshipType int

const (
	// FriendshipTypeUnknown is unset.
	FriendshipTypeUnknown FriendshipType = iota
	// FriendshipTypeConfirm is a confirmed friendship.
	FriendshipTypeConfirm
	// FriendshipTypeReceive is an incoming friend request.
	FriendshipTypeReceive
	// FriendshipTypeVerify asks the account to verify itself to the peer.
	FriendshipTypeVerify
)

// FriendshipScene records where an incoming friend request originated.
type FriendshipScene int

// Friend request scenes as numbered by the chat network.
const (
	FriendshipSceneUnknown  FriendshipScene = 0
	FriendshipSceneQQ       FriendshipScene = 1
	FriendshipSceneEmail    FriendshipScene = 2
	FriendshipSceneWeixin   FriendshipScene = 3
	FriendshipSceneQQtbd    FriendshipScene = 12
	FriendshipSceneRoom     FriendshipScene = 14
	FriendshipScenePhone    FriendshipScene = 15
	FriendshipSceneCard     FriendshipScene = 17
	FriendshipSceneLocation FriendshipScene = 18
	FriendshipSceneBottle   FriendshipScene = 25
	FriendshipSceneShaking  FriendshipScene = 29
	FriendshipSceneQRCode   FriendshipScene = 30
)

// FriendshipPayload is the snapshot of one friendship event.
//
// Scene, Stranger and Ticket are only meaningful for FriendshipTypeReceive.
type FriendshipPayload struct {
	ID        string          `json:"id"`
	ContactID string          `json:"contact_id"`
	Hello     string          `json:"hello,omitempty"`
	Timestamp uint64          `json:"timestamp"`
	Type      FriendshipType  `json:"type"`
	Scene     FriendshipScene `json:"scene,omitempty"`
	Stranger  string          `json:"stranger,omitempty"`
	Ticket    string          `json:"ticket,omitempty"`
}

// Clone returns a copy of p.
func (p FriendshipPayload) Clone() FriendshipPayload {
	return p
}

// RoomInvitationPayload is the snapshot of one pending room invitation.
type RoomInvitationPayload struct {
	ID          string   `json:"id"`
	InviterID   string   `json:"inviter_id"`
	Topic       string   `json:"topic"`
	Avatar      string   `json:"avatar,omitempty"`
	Invitation  string   `json:"invitation"`
	MemberCount int      `json:"member_count"`
	MemberIDs   []string `json:"member_id_list,omitempty"`
	Timestamp   uint64   `json:"timestamp"`
	ReceiverID  string   `json:"receiver_id"`
}

// Clone returns a deep copy of p.
func (p RoomInvitationPayload) Clone() RoomInvitationPayload {
	p.MemberIDs = cloneStrings(p.MemberIDs)
	return p
}

// URLLinkPayload is a rich link card.
type URLLinkPayload struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// MiniProgramPayload is a mini program card.
type MiniProgramPayload struct {
	AppID       string `json:"appid,omitempty"`
	Description string `json:"description,omitempty"`
	PagePath    string `json:"page_path,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
	ShareID     string `json:"share_id,omitempty"`
	ThumbURL    string `json:"thumb_url,omitempty"`
	Title       string `json:"title,omitempty"`
	Username    string `json:"username,omitempty"`
	ThumbKey    string `json:"thumb_key,omitempty"`
}

// FileBox carries an outbound file attachment.
type FileBox struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Data     []byte `json:"data"`
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}

	return append([]string(nil), values...)
}
