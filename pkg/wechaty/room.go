package wechaty

import (
	"context"
	"fmt"
	"slices"

	"ex-wechaty/pkg/puppet"
)

// Room is a handle to one group chat.
type Room struct {
	entity[puppet.RoomPayload]
}

func newRoom(c *Context, id string) *Room {
	return &Room{
		entity: newEntity(c, puppet.PayloadTypeRoom, id, c.kernel.RoomPayload),
	}
}

// Topic returns the room topic.
func (r *Room) Topic() string {
	return r.snapshot().Topic
}

// OwnerID returns the id of the room owner.
func (r *Room) OwnerID() string {
	return r.snapshot().OwnerID
}

// MemberIDs returns the member ids known from the last sync.
func (r *Room) MemberIDs() []string {
	return slices.Clone(r.snapshot().MemberIDs)
}

// String returns the topic, or the id while the topic is unknown.
func (r *Room) String() string {
	if topic := r.Topic(); topic != "" {
		return topic
	}

	return r.id
}

// SetTopic renames the room.
func (r *Room) SetTopic(ctx context.Context, topic string) error {
	if err := r.c.kernel.RoomTopic(ctx, r.id, topic); err != nil {
		return fmt.Errorf("set room %s topic: %w", r.id, err)
	}

	return r.reload(ctx)
}

// Add invites contact into the room.
func (r *Room) Add(ctx context.Context, contact *Contact) error {
	if err := r.c.kernel.RoomAdd(ctx, r.id, contact.ID()); err != nil {
		return fmt.Errorf("add %s to room %s: %w", contact.ID(), r.id, err)
	}

	return r.reload(ctx)
}

// Del removes contact from the room.
func (r *Room) Del(ctx context.Context, contact *Contact) error {
	if err := r.c.kernel.RoomDel(ctx, r.id, contact.ID()); err != nil {
		return fmt.Errorf("remove %s from room %s: %w", contact.ID(), r.id, err)
	}

	return r.reload(ctx)
}

// Quit leaves the room.
func (r *Room) Quit(ctx context.Context) error {
	if err := r.c.kernel.RoomQuit(ctx, r.id); err != nil {
		return fmt.Errorf("quit room %s: %w", r.id, err)
	}

	return nil
}

// Has reports whether contact is a member according to the last sync.
func (r *Room) Has(contact *Contact) bool {
	return slices.Contains(r.snapshot().MemberIDs, contact.ID())
}

// MemberList loads every member of the room.
func (r *Room) MemberList(ctx context.Context) ([]*Contact, error) {
	ids, err := r.c.kernel.RoomMemberList(ctx, r.id)
	if err != nil {
		return nil, fmt.Errorf("list room %s members: %w", r.id, err)
	}

	return r.c.LoadContactBatch(ctx, ids), nil
}

// Member returns the first member whose room alias, name or contact alias
// equals text, or nil.
func (r *Room) Member(ctx context.Context, text string) (*Contact, error) {
	ids, err := r.c.kernel.RoomMemberSearchByString(ctx, r.id, text)
	if err != nil {
		return nil, fmt.Errorf("find room %s member %q: %w", r.id, text, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	return r.c.LoadContact(ctx, ids[0])
}

// MemberAll returns every member matching query.
func (r *Room) MemberAll(ctx context.Context, query puppet.RoomMemberQueryFilter) ([]*Contact, error) {
	ids, err := r.c.kernel.RoomMemberSearch(ctx, r.id, query.Filter())
	if err != nil {
		return nil, fmt.Errorf("find room %s members: %w", r.id, err)
	}

	return r.c.LoadContactBatch(ctx, ids), nil
}

// Alias returns the name contact uses inside the room.
func (r *Room) Alias(ctx context.Context, contact *Contact) (string, error) {
	member, err := r.c.kernel.RoomMemberPayload(ctx, r.id, contact.ID())
	if err != nil {
		return "", fmt.Errorf("room %s alias of %s: %w", r.id, contact.ID(), err)
	}

	return member.RoomAlias, nil
}

// Say sends text into the room, mentioning mentions.
func (r *Room) Say(ctx context.Context, text string, mentions ...*Contact) (*Message, error) {
	mentionIDs := make([]string, 0, len(mentions))
	for _, contact := range mentions {
		mentionIDs = append(mentionIDs, contact.ID())
	}

	return r.c.sayText(ctx, r.id, text, mentionIDs)
}

// SayFile sends file into the room.
func (r *Room) SayFile(ctx context.Context, file puppet.FileBox) (*Message, error) {
	return r.c.sayFile(ctx, r.id, file)
}

// SayURL sends a link card into the room.
func (r *Room) SayURL(ctx context.Context, link puppet.URLLinkPayload) (*Message, error) {
	return r.c.sayURL(ctx, r.id, link)
}
