package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ex-wechaty/pkg/puppet"
)

// DriverType is the registry token of the in-memory driver.
const DriverType = "mock"

// ErrNotStarted indicates an emit before Start handed the driver a sink.
var ErrNotStarted = errors.New("mock driver: not started")

// driverConfig contains runtime controls of the in-memory driver.
type driverConfig struct {
	name              string
	self              puppet.ContactPayload
	heartbeatInterval time.Duration
	dingInterval      time.Duration
	dingFromID        string
	onAsyncError      func(context.Context, error)
}

// Option mutates mock driver configuration.
type Option func(*driverConfig)

// WithName configures the driver identity exposed to the kernel.
func WithName(name string) Option {
	return func(cfg *driverConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithSelf logs self in as soon as Start runs.
func WithSelf(self puppet.ContactPayload) Option {
	return func(cfg *driverConfig) {
		if self.ID != "" {
			cfg.self = self
		}
	}
}

// WithHeartbeat emits a heartbeat event every interval while running.
func WithHeartbeat(interval time.Duration) Option {
	return func(cfg *driverConfig) {
		if interval > 0 {
			cfg.heartbeatInterval = interval
		}
	}
}

// WithDing makes fromID send a "ding" text to self every interval while running.
func WithDing(fromID string, interval time.Duration) Option {
	return func(cfg *driverConfig) {
		if fromID != "" && interval > 0 {
			cfg.dingFromID = fromID
			cfg.dingInterval = interval
		}
	}
}

// WithErrorHandler configures async emit failures.
func WithErrorHandler(handler func(context.Context, error)) Option {
	return func(cfg *driverConfig) {
		if handler != nil {
			cfg.onAsyncError = handler
		}
	}
}

// Driver is an in-memory remote data source. State is seeded by tests or
// config, mutated by source calls and observable through events.
type Driver struct {
	cfg driverConfig

	mu              sync.RWMutex
	sink            puppet.EventSink
	contacts        map[string]puppet.ContactPayload
	messages        map[string]puppet.MessagePayload
	rooms           map[string]puppet.RoomPayload
	members         map[string]map[string]puppet.RoomMemberPayload
	friendships     map[string]puppet.FriendshipPayload
	roomInvitations map[string]puppet.RoomInvitationPayload
	tags            map[string]map[string]struct{}
	recalled        map[string]struct{}
	sent            []string
}

// NewDriver creates an empty in-memory driver.
func NewDriver(options ...Option) *Driver {
	cfg := driverConfig{
		name:         DriverType,
		onAsyncError: func(context.Context, error) {},
	}
	for _, option := range options {
		option(&cfg)
	}

	driver := &Driver{
		cfg:             cfg,
		contacts:        make(map[string]puppet.ContactPayload),
		messages:        make(map[string]puppet.MessagePayload),
		rooms:           make(map[string]puppet.RoomPayload),
		members:         make(map[string]map[string]puppet.RoomMemberPayload),
		friendships:     make(map[string]puppet.FriendshipPayload),
		roomInvitations: make(map[string]puppet.RoomInvitationPayload),
		tags:            make(map[string]map[string]struct{}),
		recalled:        make(map[string]struct{}),
	}
	if cfg.self.ID != "" {
		driver.contacts[cfg.self.ID] = cfg.self.Clone()
	}

	return driver
}

// Name returns the stable driver identifier.
func (d *Driver) Name() string {
	return d.cfg.name
}

// Start keeps sink for Emit, logs in the configured self and runs the
// scripted timers until ctx is cancelled.
func (d *Driver) Start(ctx context.Context, sink puppet.EventSink) error {
	if sink == nil {
		return fmt.Errorf("start mock driver: nil sink")
	}

	d.mu.Lock()
	d.sink = sink
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.sink = nil
		d.mu.Unlock()
	}()

	if d.cfg.self.ID != "" {
		if err := d.Emit(ctx, &puppet.Event{Kind: puppet.EventKindLogin, ContactID: d.cfg.self.ID}); err != nil {
			return fmt.Errorf("start mock driver: %w", err)
		}
	}
	if err := d.Emit(ctx, &puppet.Event{Kind: puppet.EventKindReady, Data: "ready"}); err != nil {
		return fmt.Errorf("start mock driver: %w", err)
	}

	heartbeat := newOptionalTicker(d.cfg.heartbeatInterval)
	defer heartbeat.stop()
	ding := newOptionalTicker(d.cfg.dingInterval)
	defer ding.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case tick := <-heartbeat.channel():
			d.emitAsync(ctx, &puppet.Event{Kind: puppet.EventKindHeartbeat, Data: tick.UTC().Format(time.RFC3339)})
		case <-ding.channel():
			if _, err := d.ReceiveMessage(ctx, puppet.MessagePayload{
				Type:   puppet.MessageTypeText,
				Text:   "ding",
				FromID: d.cfg.dingFromID,
				ToID:   d.cfg.self.ID,
			}); err != nil {
				d.cfg.onAsyncError(ctx, err)
			}
		}
	}
}

// Shutdown releases nothing; state lives until the driver is dropped.
func (d *Driver) Shutdown(context.Context) error {
	return nil
}

// Emit publishes event through the sink handed to Start.
func (d *Driver) Emit(ctx context.Context, event *puppet.Event) error {
	d.mu.RLock()
	sink := d.sink
	d.mu.RUnlock()
	if sink == nil {
		return fmt.Errorf("emit %s: %w", eventKind(event), ErrNotStarted)
	}

	if err := sink.Publish(ctx, event); err != nil {
		return fmt.Errorf("emit %s: %w", eventKind(event), err)
	}

	return nil
}

// emitAsync emits and reports failures instead of returning them.
func (d *Driver) emitAsync(ctx context.Context, event *puppet.Event) {
	if err := d.Emit(ctx, event); err != nil && !errors.Is(err, ErrNotStarted) {
		d.cfg.onAsyncError(ctx, err)
	}
}

// ReceiveMessage stores payload as an inbound message and emits its message
// event. An empty id is replaced by a generated one.
func (d *Driver) ReceiveMessage(ctx context.Context, payload puppet.MessagePayload) (string, error) {
	messageID := d.storeMessage(payload)
	if err := d.Emit(ctx, &puppet.Event{Kind: puppet.EventKindMessage, MessageID: messageID}); err != nil {
		return "", err
	}

	return messageID, nil
}

// SelfID returns the configured self contact id.
func (d *Driver) SelfID() string {
	return d.cfg.self.ID
}

// SentMessages returns every message sent through the driver, oldest first.
func (d *Driver) SentMessages() []puppet.MessagePayload {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sent := make([]puppet.MessagePayload, 0, len(d.sent))
	for _, messageID := range d.sent {
		sent = append(sent, d.messages[messageID].Clone())
	}

	return sent
}

// SeedContact inserts or replaces one contact.
func (d *Driver) SeedContact(payload puppet.ContactPayload) {
	d.mu.Lock()
	d.contacts[payload.ID] = payload.Clone()
	d.mu.Unlock()
}

// SeedRoom inserts or replaces one room and its member entries. The room
// member id list is derived from members when empty.
func (d *Driver) SeedRoom(payload puppet.RoomPayload, members ...puppet.RoomMemberPayload) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byContact := make(map[string]puppet.RoomMemberPayload, len(members))
	for _, member := range members {
		byContact[member.ID] = member.Clone()
	}
	room := payload.Clone()
	if len(room.MemberIDs) == 0 {
		for _, member := range members {
			room.MemberIDs = append(room.MemberIDs, member.ID)
		}
	}
	d.rooms[room.ID] = room
	d.members[room.ID] = byContact
}

// SeedFriendship inserts or replaces one friendship.
func (d *Driver) SeedFriendship(payload puppet.FriendshipPayload) {
	d.mu.Lock()
	d.friendships[payload.ID] = payload.Clone()
	d.mu.Unlock()
}

// SeedRoomInvitation inserts or replaces one room invitation.
func (d *Driver) SeedRoomInvitation(payload puppet.RoomInvitationPayload) {
	d.mu.Lock()
	d.roomInvitations[payload.ID] = payload.Clone()
	d.mu.Unlock()
}

// storeMessage stores payload, assigning id and timestamp when missing.
func (d *Driver) storeMessage(payload puppet.MessagePayload) string {
	message := payload.Clone()
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp == 0 {
		message.Timestamp = uint64(time.Now().UnixMilli())
	}

	d.mu.Lock()
	d.messages[message.ID] = message
	d.mu.Unlock()

	return message.ID
}

func eventKind(event *puppet.Event) puppet.EventKind {
	if event == nil {
		return ""
	}

	return event.Kind
}

func notFound(kind string, id string) error {
	return fmt.Errorf("mock %s %s: not found", kind, id)
}

// optionalTicker is a ticker that never fires when interval is not positive.
type optionalTicker struct {
	ticker *time.Ticker
}

func newOptionalTicker(interval time.Duration) optionalTicker {
	if interval <= 0 {
		return optionalTicker{}
	}

	return optionalTicker{ticker: time.NewTicker(interval)}
}

func (t optionalTicker) channel() <-chan time.Time {
	if t.ticker == nil {
		return nil
	}

	return t.ticker.C
}

func (t optionalTicker) stop() {
	if t.ticker != nil {
		t.ticker.Stop()
	}
}
