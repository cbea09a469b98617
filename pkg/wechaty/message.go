package wechaty

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"ex-wechaty/pkg/puppet"
)

// maxDisplayRunes bounds the text shown by Message.String.
const maxDisplayRunes = 70

// Message is a handle to one message together with its sender, receiver and
// room, whichever apply.
type Message struct {
	entity[puppet.MessagePayload]

	from *Contact
	to   *Contact
	room *Room
}

func newMessage(c *Context, id string) *Message {
	return &Message{
		entity: newEntity(c, puppet.PayloadTypeMessage, id, c.kernel.MessagePayload),
	}
}

// loadRelated loads the contacts and room referenced by the payload.
func (m *Message) loadRelated(ctx context.Context) error {
	payload := m.snapshot()
	if payload.FromID != "" {
		from, err := m.c.LoadContact(ctx, payload.FromID)
		if err != nil {
			return fmt.Errorf("load message %s sender: %w", m.id, err)
		}
		m.from = from
	}
	if payload.ToID != "" {
		to, err := m.c.LoadContact(ctx, payload.ToID)
		if err != nil {
			return fmt.Errorf("load message %s receiver: %w", m.id, err)
		}
		m.to = to
	}
	if payload.RoomID != "" {
		room, err := m.c.LoadRoom(ctx, payload.RoomID)
		if err != nil {
			return fmt.Errorf("load message %s room: %w", m.id, err)
		}
		m.room = room
	}

	return nil
}

// From returns the sender, or nil when unknown.
func (m *Message) From() *Contact {
	return m.from
}

// To returns the receiver of a direct message, or nil.
func (m *Message) To() *Contact {
	return m.to
}

// Room returns the room of a room message, or nil.
func (m *Message) Room() *Room {
	return m.room
}

// Text returns the message text.
func (m *Message) Text() string {
	return m.snapshot().Text
}

// Type returns the message type.
func (m *Message) Type() puppet.MessageType {
	return m.snapshot().Type
}

// Date returns the send time.
func (m *Message) Date() time.Time {
	return time.UnixMilli(int64(m.snapshot().Timestamp))
}

// IsSelf reports whether the logged-in account sent the message.
func (m *Message) IsSelf() bool {
	selfID := m.c.SelfID()
	return selfID != "" && m.snapshot().FromID == selfID
}

// MentionSelf reports whether the logged-in account is mentioned.
func (m *Message) MentionSelf() bool {
	selfID := m.c.SelfID()
	if selfID == "" {
		return false
	}
	for _, id := range m.snapshot().MentionIDs {
		if id == selfID {
			return true
		}
	}

	return false
}

// MentionList loads the mentioned contacts.
func (m *Message) MentionList(ctx context.Context) []*Contact {
	return m.c.LoadContactBatch(ctx, m.snapshot().MentionIDs)
}

// conversationID is where replies go: the room, else the peer.
func (m *Message) conversationID() string {
	payload := m.snapshot()
	switch {
	case payload.RoomID != "":
		return payload.RoomID
	case m.IsSelf():
		return payload.ToID
	default:
		return payload.FromID
	}
}

// Say replies with text into the conversation of the message.
func (m *Message) Say(ctx context.Context, text string) (*Message, error) {
	return m.c.sayText(ctx, m.conversationID(), text, nil)
}

// SayFile replies with a file into the conversation of the message.
func (m *Message) SayFile(ctx context.Context, file puppet.FileBox) (*Message, error) {
	return m.c.sayFile(ctx, m.conversationID(), file)
}

// Forward forwards the message into the conversation identified by
// conversationID. Messages that cannot be sent fail with puppet.ErrUnsupported.
func (m *Message) Forward(ctx context.Context, conversationID string) (*Message, error) {
	messageID, err := m.c.kernel.MessageForward(ctx, conversationID, m.id)
	if err != nil {
		return nil, fmt.Errorf("forward message %s: %w", m.id, err)
	}

	return m.c.sent(ctx, messageID)
}

// Recall recalls the message.
func (m *Message) Recall(ctx context.Context) (bool, error) {
	recalled, err := m.c.kernel.MessageRecall(ctx, m.id)
	if err != nil {
		return false, fmt.Errorf("recall message %s: %w", m.id, err)
	}

	return recalled, nil
}

// String renders the message for logs.
func (m *Message) String() string {
	sender := ""
	if m.from != nil {
		sender = m.from.String()
	}
	if m.room != nil {
		sender += "@" + m.room.String()
	}

	return fmt.Sprintf("Message#%s[%s]\t%s", m.Type(), sender, truncateRunes(m.Text(), maxDisplayRunes))
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

// sent loads a message the account just sent. Drivers that do not report
// ids yield a nil message.
func (c *Context) sent(ctx context.Context, messageID string) (*Message, error) {
	if messageID == "" {
		return nil, nil
	}

	return c.LoadMessage(ctx, messageID)
}

func (c *Context) sayText(ctx context.Context, conversationID string, text string, mentionIDs []string) (*Message, error) {
	messageID, err := c.kernel.MessageSendText(ctx, conversationID, text, mentionIDs)
	if err != nil {
		return nil, fmt.Errorf("say text to %s: %w", conversationID, err)
	}

	return c.sent(ctx, messageID)
}

func (c *Context) sayContact(ctx context.Context, conversationID string, card *Contact) (*Message, error) {
	messageID, err := c.kernel.MessageSendContact(ctx, conversationID, card.ID())
	if err != nil {
		return nil, fmt.Errorf("say contact to %s: %w", conversationID, err)
	}

	return c.sent(ctx, messageID)
}

func (c *Context) sayFile(ctx context.Context, conversationID string, file puppet.FileBox) (*Message, error) {
	messageID, err := c.kernel.MessageSendFile(ctx, conversationID, file)
	if err != nil {
		return nil, fmt.Errorf("say file to %s: %w", conversationID, err)
	}

	return c.sent(ctx, messageID)
}

func (c *Context) sayURL(ctx context.Context, conversationID string, link puppet.URLLinkPayload) (*Message, error) {
	messageID, err := c.kernel.MessageSendURL(ctx, conversationID, link)
	if err != nil {
		return nil, fmt.Errorf("say url to %s: %w", conversationID, err)
	}

	return c.sent(ctx, messageID)
}

func (c *Context) sayMiniProgram(
	ctx context.Context,
	conversationID string,
	program puppet.MiniProgramPayload,
) (*Message, error) {
	messageID, err := c.kernel.MessageSendMiniProgram(ctx, conversationID, program)
	if err != nil {
		return nil, fmt.Errorf("say mini program to %s: %w", conversationID, err)
	}

	return c.sent(ctx, messageID)
}
