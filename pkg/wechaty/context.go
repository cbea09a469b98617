package wechaty

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"ex-wechaty/internal/kernel"
	"ex-wechaty/pkg/puppet"
)

// batchLoadWidth bounds concurrent loads of one batch.
const batchLoadWidth = 16

// Context is shared by every listener and entity handle of one bot. It holds
// the logged-in identity and snapshots of loaded contacts, messages and rooms.
// A snapshot is kept only while its payload is resident in the kernel cache.
type Context struct {
	kernel *kernel.Kernel
	logger *slog.Logger

	mu       sync.RWMutex
	selfID   string
	contacts map[string]*Contact
	messages map[string]*Message
	rooms    map[string]*Room
}

func newContext(k *kernel.Kernel, logger *slog.Logger) *Context {
	c := &Context{
		kernel:   k,
		logger:   logger,
		contacts: make(map[string]*Contact),
		messages: make(map[string]*Message),
		rooms:    make(map[string]*Room),
	}
	k.AddInvalidationHook(c.forget)

	return c
}

// forget drops the snapshot of an invalidated or evicted payload.
func (c *Context) forget(payloadType puppet.PayloadType, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch payloadType {
	case puppet.PayloadTypeContact:
		delete(c.contacts, id)
	case puppet.PayloadTypeMessage:
		delete(c.messages, id)
	case puppet.PayloadTypeRoom:
		delete(c.rooms, id)
	}
}

// Logger returns the bot logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// IsLoggedIn reports whether an account is logged in.
func (c *Context) IsLoggedIn() bool {
	return c.SelfID() != ""
}

// SelfID returns the logged-in contact id, or "" when logged out.
func (c *Context) SelfID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.selfID
}

func (c *Context) setSelfID(id string) {
	c.mu.Lock()
	c.selfID = id
	c.mu.Unlock()
}

// requireLogin returns the logged-in id or ErrNotLoggedIn.
func (c *Context) requireLogin(operation string) (string, error) {
	selfID := c.SelfID()
	if selfID == "" {
		return "", fmt.Errorf("%s: %w", operation, ErrNotLoggedIn)
	}

	return selfID, nil
}

// ContactSelf returns the logged-in account.
func (c *Context) ContactSelf(ctx context.Context) (*ContactSelf, error) {
	selfID, err := c.requireLogin("contact self")
	if err != nil {
		return nil, err
	}

	contact, err := c.LoadContact(ctx, selfID)
	if err != nil {
		return nil, err
	}

	return &ContactSelf{Contact: contact}, nil
}

// LoadContact returns the contact snapshot, loading it when absent.
func (c *Context) LoadContact(ctx context.Context, id string) (*Contact, error) {
	c.mu.RLock()
	contact, ok := c.contacts[id]
	c.mu.RUnlock()
	if ok {
		return contact, nil
	}

	contact = newContact(c, id)
	if err := contact.Ready(ctx, false); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.kernel.Cached(puppet.PayloadTypeContact, id) {
		c.contacts[id] = contact
	}
	c.mu.Unlock()

	return contact, nil
}

// LoadMessage returns the message snapshot, loading it together with its
// sender, receiver and room when absent.
func (c *Context) LoadMessage(ctx context.Context, id string) (*Message, error) {
	c.mu.RLock()
	message, ok := c.messages[id]
	c.mu.RUnlock()
	if ok {
		return message, nil
	}

	message = newMessage(c, id)
	if err := message.Ready(ctx, false); err != nil {
		return nil, err
	}
	if err := message.loadRelated(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.kernel.Cached(puppet.PayloadTypeMessage, id) {
		c.messages[id] = message
	}
	c.mu.Unlock()

	return message, nil
}

// LoadRoom returns the room snapshot, loading it when absent.
func (c *Context) LoadRoom(ctx context.Context, id string) (*Room, error) {
	c.mu.RLock()
	room, ok := c.rooms[id]
	c.mu.RUnlock()
	if ok {
		return room, nil
	}

	room = newRoom(c, id)
	if err := room.Ready(ctx, false); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.kernel.Cached(puppet.PayloadTypeRoom, id) {
		c.rooms[id] = room
	}
	c.mu.Unlock()

	return room, nil
}

// LoadFriendship loads one friendship together with its contact.
func (c *Context) LoadFriendship(ctx context.Context, id string) (*Friendship, error) {
	friendship := newFriendship(c, id)
	if err := friendship.Ready(ctx, false); err != nil {
		return nil, err
	}

	payload := friendship.snapshot()
	contact, err := c.LoadContact(ctx, payload.ContactID)
	if err != nil {
		return nil, fmt.Errorf("load friendship %s contact: %w", id, err)
	}
	friendship.contact = contact

	return friendship, nil
}

// LoadRoomInvitation loads one room invitation.
func (c *Context) LoadRoomInvitation(ctx context.Context, id string) (*RoomInvitation, error) {
	invitation := newRoomInvitation(c, id)
	if err := invitation.Ready(ctx, false); err != nil {
		return nil, err
	}

	return invitation, nil
}

// LoadContactBatch loads ids concurrently. Ids that fail to load are logged
// and left out; the result keeps the order of ids.
func (c *Context) LoadContactBatch(ctx context.Context, ids []string) []*Contact {
	return loadBatch(ctx, c, "contact", ids, c.LoadContact)
}

// LoadMessageBatch loads ids concurrently, dropping failures.
func (c *Context) LoadMessageBatch(ctx context.Context, ids []string) []*Message {
	return loadBatch(ctx, c, "message", ids, c.LoadMessage)
}

// LoadRoomBatch loads ids concurrently, dropping failures.
func (c *Context) LoadRoomBatch(ctx context.Context, ids []string) []*Room {
	return loadBatch(ctx, c, "room", ids, c.LoadRoom)
}

func loadBatch[T any](
	ctx context.Context,
	c *Context,
	kind string,
	ids []string,
	load func(context.Context, string) (*T, error),
) []*T {
	loaded := make([]*T, len(ids))

	var group errgroup.Group
	group.SetLimit(batchLoadWidth)
	for index, id := range ids {
		group.Go(func() error {
			entity, err := load(ctx, id)
			if err != nil {
				c.logger.WarnContext(ctx, "batch load dropped id", "kind", kind, "id", id, "error", err)
				return nil
			}
			loaded[index] = entity

			return nil
		})
	}
	_ = group.Wait()

	result := make([]*T, 0, len(loaded))
	for _, entity := range loaded {
		if entity != nil {
			result = append(result, entity)
		}
	}

	return result
}

// ContactFind returns the first contact matching query, or nil.
func (c *Context) ContactFind(ctx context.Context, query puppet.ContactQueryFilter) (*Contact, error) {
	contacts, err := c.ContactFindAll(ctx, query)
	if err != nil || len(contacts) == 0 {
		return nil, err
	}

	return contacts[0], nil
}

// ContactFindAll returns every contact matching query.
func (c *Context) ContactFindAll(ctx context.Context, query puppet.ContactQueryFilter) ([]*Contact, error) {
	if _, err := c.requireLogin("contact find"); err != nil {
		return nil, err
	}

	ids, err := c.kernel.ContactSearch(ctx, query.Filter(), nil)
	if err != nil {
		return nil, fmt.Errorf("contact find: %w", err)
	}

	return c.LoadContactBatch(ctx, ids), nil
}

// ContactFindAllByString returns contacts whose id or alias equals text.
func (c *Context) ContactFindAllByString(ctx context.Context, text string) ([]*Contact, error) {
	if _, err := c.requireLogin("contact find"); err != nil {
		return nil, err
	}

	ids, err := c.kernel.ContactSearchByString(ctx, text, nil)
	if err != nil {
		return nil, fmt.Errorf("contact find %q: %w", text, err)
	}

	return c.LoadContactBatch(ctx, ids), nil
}

// MessageFind returns the first known message matching query, or nil.
func (c *Context) MessageFind(ctx context.Context, query puppet.MessageQueryFilter) (*Message, error) {
	messages, err := c.MessageFindAll(ctx, query)
	if err != nil || len(messages) == 0 {
		return nil, err
	}

	return messages[0], nil
}

// MessageFindAll returns every known message matching query.
func (c *Context) MessageFindAll(ctx context.Context, query puppet.MessageQueryFilter) ([]*Message, error) {
	if _, err := c.requireLogin("message find"); err != nil {
		return nil, err
	}

	ids, err := c.kernel.MessageSearch(ctx, query.Filter())
	if err != nil {
		return nil, fmt.Errorf("message find: %w", err)
	}

	return c.LoadMessageBatch(ctx, ids), nil
}

// RoomFind returns the first room matching query, or nil.
func (c *Context) RoomFind(ctx context.Context, query puppet.RoomQueryFilter) (*Room, error) {
	rooms, err := c.RoomFindAll(ctx, query)
	if err != nil || len(rooms) == 0 {
		return nil, err
	}

	return rooms[0], nil
}

// RoomFindAll returns every room matching query.
func (c *Context) RoomFindAll(ctx context.Context, query puppet.RoomQueryFilter) ([]*Room, error) {
	if _, err := c.requireLogin("room find"); err != nil {
		return nil, err
	}

	ids, err := c.kernel.RoomSearch(ctx, query.Filter())
	if err != nil {
		return nil, fmt.Errorf("room find: %w", err)
	}

	return c.LoadRoomBatch(ctx, ids), nil
}

// RoomCreate creates a room with contacts and the logged-in account.
func (c *Context) RoomCreate(ctx context.Context, contacts []*Contact, topic string) (*Room, error) {
	if _, err := c.requireLogin("room create"); err != nil {
		return nil, err
	}
	if len(contacts) < 2 {
		return nil, fmt.Errorf("room create: need at least 2 contacts, got %d", len(contacts))
	}

	ids := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		ids = append(ids, contact.ID())
	}
	roomID, err := c.kernel.RoomCreate(ctx, ids, topic)
	if err != nil {
		return nil, fmt.Errorf("room create: %w", err)
	}

	return c.LoadRoom(ctx, roomID)
}

// FriendshipAdd sends a friend request to contact.
func (c *Context) FriendshipAdd(ctx context.Context, contact *Contact, hello string) error {
	if _, err := c.requireLogin("friendship add"); err != nil {
		return err
	}
	if err := c.kernel.FriendshipAdd(ctx, contact.ID(), hello); err != nil {
		return fmt.Errorf("friendship add %s: %w", contact.ID(), err)
	}

	return nil
}

// FriendshipSearch resolves a phone number or weixin id to a contact, or nil
// when nobody matches.
func (c *Context) FriendshipSearch(
	ctx context.Context,
	query puppet.FriendshipSearchQueryFilter,
) (*Contact, error) {
	if _, err := c.requireLogin("friendship search"); err != nil {
		return nil, err
	}

	contactID, err := c.kernel.FriendshipSearch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("friendship search: %w", err)
	}
	if contactID == "" {
		return nil, nil
	}

	return c.LoadContact(ctx, contactID)
}

// TagList lists every tag of the account.
func (c *Context) TagList(ctx context.Context) ([]string, error) {
	if _, err := c.requireLogin("tag list"); err != nil {
		return nil, err
	}

	tags, err := c.kernel.TagList(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("tag list: %w", err)
	}

	return tags, nil
}

// TagDelete removes tag from every contact.
func (c *Context) TagDelete(ctx context.Context, tag string) error {
	if _, err := c.requireLogin("tag delete"); err != nil {
		return err
	}
	if err := c.kernel.TagContactDelete(ctx, tag); err != nil {
		return fmt.Errorf("tag delete %s: %w", tag, err)
	}

	return nil
}
