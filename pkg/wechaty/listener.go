package wechaty

import (
	"context"
	"fmt"
	"sync"

	"ex-wechaty/internal/kernel"
	"ex-wechaty/pkg/puppet"
)

// Handler receives one hydrated event payload.
type Handler[T any] func(ctx context.Context, payload T, c *Context)

// Unlimited is the budget of handlers registered without a limit.
const Unlimited = -1

// RoomJoin is a hydrated room-join event.
type RoomJoin struct {
	Room      *Room
	Invitees  []*Contact
	Inviter   *Contact
	Timestamp uint64
}

// RoomLeave is a hydrated room-leave event.
type RoomLeave struct {
	Room      *Room
	Removees  []*Contact
	Remover   *Contact
	Timestamp uint64
}

// RoomTopic is a hydrated room-topic event.
type RoomTopic struct {
	Room      *Room
	Changer   *Contact
	OldTopic  string
	NewTopic  string
	Timestamp uint64
}

// registration is one handler with its remaining invocation budget.
type registration struct {
	invoke    func(ctx context.Context, payload any, c *Context)
	remaining int
}

// Listener owns handlers for every event kind. All events of one listener
// are handled by a single worker in delivery order.
type Listener struct {
	name   string
	c      *Context
	kernel *kernel.Kernel

	mu         sync.Mutex
	mailbox    *kernel.Mailbox
	handlers   map[puppet.EventKind][]*registration
	subscribed map[puppet.EventKind]bool
}

func newListener(name string, c *Context, k *kernel.Kernel) *Listener {
	return &Listener{
		name:       name,
		c:          c,
		kernel:     k,
		handlers:   make(map[puppet.EventKind][]*registration),
		subscribed: make(map[puppet.EventKind]bool),
	}
}

// Name returns the subscriber name of the listener.
func (l *Listener) Name() string {
	return l.name
}

// register appends handler for kind and subscribes the listener on first use.
func register[T any](l *Listener, kind puppet.EventKind, handler Handler[T], limit int) int {
	if handler == nil {
		return -1
	}
	if limit < Unlimited {
		limit = 0
	}

	entry := &registration{
		invoke: func(ctx context.Context, payload any, c *Context) {
			typed, ok := payload.(T)
			if !ok {
				return
			}
			handler(ctx, typed, c)
		},
		remaining: limit,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.handlers[kind] = append(l.handlers[kind], entry)
	l.subscribeLocked(kind)

	return len(l.handlers[kind]) - 1
}

// track subscribes kinds without handlers so their hydration side effects,
// such as login state, apply even when nobody listens.
func (l *Listener) track(kinds ...puppet.EventKind) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, kind := range kinds {
		l.subscribeLocked(kind)
	}
}

// subscribeLocked subscribes the listener mailbox for kind once. Failures are
// logged only.
func (l *Listener) subscribeLocked(kind puppet.EventKind) {
	if l.subscribed[kind] {
		return
	}
	ctx := context.Background()
	if l.mailbox == nil {
		mailbox, err := l.kernel.NewMailbox(l.name, l.deliver)
		if err != nil {
			l.c.logger.ErrorContext(ctx, "listener mailbox unavailable", "listener", l.name, "error", err)
			return
		}
		l.mailbox = mailbox
	}

	l.kernel.Subscribe(ctx, kind, l.name, l.mailbox)
	l.subscribed[kind] = true
}

// reserve takes one invocation from every handler of kind with budget left.
func (l *Listener) reserve(kind puppet.EventKind) []*registration {
	l.mu.Lock()
	defer l.mu.Unlock()

	registered := l.handlers[kind]
	reserved := make([]*registration, 0, len(registered))
	for _, entry := range registered {
		switch {
		case entry.remaining == Unlimited:
			reserved = append(reserved, entry)
		case entry.remaining > 0:
			entry.remaining--
			reserved = append(reserved, entry)
		}
	}

	return reserved
}

// deliver hydrates event and runs the handlers of its kind in registration order.
func (l *Listener) deliver(ctx context.Context, event *puppet.Event) error {
	payload, err := l.hydrate(ctx, event)
	if err != nil {
		l.c.logger.WarnContext(ctx, "event hydration failed, handlers skipped",
			"listener", l.name,
			"kind", event.Kind,
			"error", err,
		)
		return nil
	}

	for _, entry := range l.reserve(event.Kind) {
		l.invokeSafely(ctx, event.Kind, entry, payload)
	}

	return nil
}

// invokeSafely keeps one panicking handler from skipping the rest.
func (l *Listener) invokeSafely(ctx context.Context, kind puppet.EventKind, entry *registration, payload any) {
	defer func() {
		if recovered := recover(); recovered != nil {
			l.c.logger.ErrorContext(ctx, "handler panic",
				"listener", l.name,
				"kind", kind,
				"panic", fmt.Sprint(recovered),
			)
		}
	}()

	entry.invoke(ctx, payload, l.c)
}

// hydrate resolves the ids carried by event into entity handles.
func (l *Listener) hydrate(ctx context.Context, event *puppet.Event) (any, error) {
	c := l.c
	switch event.Kind {
	case puppet.EventKindLogin:
		c.setSelfID(event.ContactID)
		contact, err := c.LoadContact(ctx, event.ContactID)
		if err != nil {
			return nil, err
		}
		if err := contact.Sync(ctx); err != nil {
			return nil, err
		}
		return &ContactSelf{Contact: contact}, nil
	case puppet.EventKindLogout:
		c.setSelfID("")
		contact, err := c.LoadContact(ctx, event.ContactID)
		if err != nil {
			return nil, err
		}
		return &ContactSelf{Contact: contact}, nil
	case puppet.EventKindMessage:
		return c.LoadMessage(ctx, event.MessageID)
	case puppet.EventKindFriendship:
		return c.LoadFriendship(ctx, event.FriendshipID)
	case puppet.EventKindRoomInvite:
		return c.LoadRoomInvitation(ctx, event.RoomInvitationID)
	case puppet.EventKindRoomJoin:
		return l.hydrateRoomJoin(ctx, event.RoomJoin)
	case puppet.EventKindRoomLeave:
		return l.hydrateRoomLeave(ctx, event.RoomLeave)
	case puppet.EventKindRoomTopic:
		return l.hydrateRoomTopic(ctx, event.RoomTopic)
	case puppet.EventKindScan:
		return *event.Scan, nil
	default:
		return event.Data, nil
	}
}

// syncedRoom loads the room and re-fetches it with its members.
func (l *Listener) syncedRoom(ctx context.Context, roomID string) (*Room, error) {
	room, err := l.c.LoadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := room.Sync(ctx); err != nil {
		return nil, err
	}

	return room, nil
}

// optionalContact loads id, or returns nil when the event leaves it unset.
func (l *Listener) optionalContact(ctx context.Context, id string) (*Contact, error) {
	if id == "" {
		return nil, nil
	}

	return l.c.LoadContact(ctx, id)
}

func (l *Listener) hydrateRoomJoin(ctx context.Context, join *puppet.RoomJoin) (RoomJoin, error) {
	room, err := l.syncedRoom(ctx, join.RoomID)
	if err != nil {
		return RoomJoin{}, err
	}
	inviter, err := l.optionalContact(ctx, join.InviterID)
	if err != nil {
		return RoomJoin{}, err
	}

	return RoomJoin{
		Room:      room,
		Invitees:  l.c.LoadContactBatch(ctx, join.InviteeIDs),
		Inviter:   inviter,
		Timestamp: join.Timestamp,
	}, nil
}

func (l *Listener) hydrateRoomLeave(ctx context.Context, leave *puppet.RoomLeave) (RoomLeave, error) {
	room, err := l.syncedRoom(ctx, leave.RoomID)
	if err != nil {
		return RoomLeave{}, err
	}
	remover, err := l.optionalContact(ctx, leave.RemoverID)
	if err != nil {
		return RoomLeave{}, err
	}

	return RoomLeave{
		Room:      room,
		Removees:  l.c.LoadContactBatch(ctx, leave.RemoveeIDs),
		Remover:   remover,
		Timestamp: leave.Timestamp,
	}, nil
}

func (l *Listener) hydrateRoomTopic(ctx context.Context, topic *puppet.RoomTopic) (RoomTopic, error) {
	room, err := l.syncedRoom(ctx, topic.RoomID)
	if err != nil {
		return RoomTopic{}, err
	}
	changer, err := l.optionalContact(ctx, topic.ChangerID)
	if err != nil {
		return RoomTopic{}, err
	}

	return RoomTopic{
		Room:      room,
		Changer:   changer,
		OldTopic:  topic.OldTopic,
		NewTopic:  topic.NewTopic,
		Timestamp: topic.Timestamp,
	}, nil
}
