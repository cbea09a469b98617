package puppet

import "strings"

// MessageType classifies message content.
type MessageType int

// Message types in wire order.
const (
	MessageTypeUnknown MessageType = iota
	MessageTypeAttachment
	MessageTypeAudio
	MessageTypeContact
	MessageTypeChatHistory
	MessageTypeEmoticon
	MessageTypeImage
	MessageTypeText
	MessageTypeLocation
	MessageTypeMiniProgram
	MessageTypeGroupNote
	MessageTypeTransfer
	MessageTypeRedEnvelope
	MessageTypeRecalled
	MessageTypeURL
	MessageTypeVideo
)

var messageTypeNames = [...]string{
	MessageTypeUnknown:     "unknown",
	MessageTypeAttachment:  "attachment",
	MessageTypeAudio:       "audio",
	MessageTypeContact:     "contact",
	MessageTypeChatHistory: "chat_history",
	MessageTypeEmoticon:    "emoticon",
	MessageTypeImage:       "image",
	MessageTypeText:        "text",
	MessageTypeLocation:    "location",
	MessageTypeMiniProgram: "mini_program",
	MessageTypeGroupNote:   "group_note",
	MessageTypeTransfer:    "transfer",
	MessageTypeRedEnvelope: "red_envelope",
	MessageTypeRecalled:    "recalled",
	MessageTypeURL:         "url",
	MessageTypeVideo:       "video",
}

// String returns the stable lowercase token for t.
func (t MessageType) String() string {
	if t < 0 || int(t) >= len(messageTypeNames) {
		return messageTypeNames[MessageTypeUnknown]
	}

	return messageTypeNames[t]
}

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t >= 0 && int(t) < len(messageTypeNames)
}

// Sendable reports whether messages of this type can be sent or forwarded.
func (t MessageType) Sendable() bool {
	switch t {
	case MessageTypeAttachment,
		MessageTypeAudio,
		MessageTypeContact,
		MessageTypeEmoticon,
		MessageTypeImage,
		MessageTypeText,
		MessageTypeMiniProgram,
		MessageTypeURL,
		MessageTypeVideo:
		return true
	default:
		return false
	}
}

// ParseMessageType resolves a token produced by String.
//
// Unknown tokens return MessageTypeUnknown and false.
func ParseMessageType(raw string) (MessageType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for index, name := range messageTypeNames {
		if name == normalized {
			return MessageType(index), true
		}
	}

	return MessageTypeUnknown, false
}
