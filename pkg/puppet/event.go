package puppet

import "fmt"

// EventKind identifies a raw domain event type emitted by a driver.
type EventKind string

const (
	// EventKindDong answers a ding probe.
	EventKindDong EventKind = "dong"
	// EventKindError reports a driver-side failure.
	EventKindError EventKind = "error"
	// EventKindFriendship announces a friendship change.
	EventKindFriendship EventKind = "friendship"
	// EventKindHeartbeat is a periodic liveness signal.
	EventKindHeartbeat EventKind = "heartbeat"
	// EventKindLogin announces that an account logged in.
	EventKindLogin EventKind = "login"
	// EventKindLogout announces that the account logged out.
	EventKindLogout EventKind = "logout"
	// EventKindMessage announces a new message.
	EventKindMessage EventKind = "message"
	// EventKindReady reports that the driver finished its initial sync.
	EventKindReady EventKind = "ready"
	// EventKindReset asks consumers to drop session state.
	EventKindReset EventKind = "reset"
	// EventKindRoomInvite announces a pending room invitation.
	EventKindRoomInvite EventKind = "room-invite"
	// EventKindRoomJoin announces contacts joining a room.
	EventKindRoomJoin EventKind = "room-join"
	// EventKindRoomLeave announces contacts leaving a room.
	EventKindRoomLeave EventKind = "room-leave"
	// EventKindRoomTopic announces a room topic change.
	EventKindRoomTopic EventKind = "room-topic"
	// EventKindScan carries login QR code progress.
	EventKindScan EventKind = "scan"
	// EventKindDirty asks the core to invalidate one cached payload.
	// It is consumed by the core and never routed to subscribers.
	EventKindDirty EventKind = "dirty"
)

var knownEventKinds = []EventKind{
	EventKindDong,
	EventKindError,
	EventKindFriendship,
	EventKindHeartbeat,
	EventKindLogin,
	EventKindLogout,
	EventKindMessage,
	EventKindReady,
	EventKindReset,
	EventKindRoomInvite,
	EventKindRoomJoin,
	EventKindRoomLeave,
	EventKindRoomTopic,
	EventKindScan,
}

// KnownEventKinds returns every kind that can be subscribed to.
func KnownEventKinds() []EventKind {
	return append([]EventKind(nil), knownEventKinds...)
}

// Subscribable reports whether k can be routed to subscribers.
func (k EventKind) Subscribable() bool {
	for _, known := range knownEventKinds {
		if k == known {
			return true
		}
	}

	return false
}

// ScanStatus reports login QR code progress.
type ScanStatus int

const (
	// ScanStatusUnknown is unset.
	ScanStatusUnknown ScanStatus = iota
	// ScanStatusCancel means the scan was cancelled on the phone.
	ScanStatusCancel
	// ScanStatusWaiting means the QR code awaits scanning.
	ScanStatusWaiting
	// ScanStatusScanned means the QR code was scanned but not confirmed.
	ScanStatusScanned
	// ScanStatusConfirmed means the login was confirmed.
	ScanStatusConfirmed
	// ScanStatusTimeout means the QR code expired.
	ScanStatusTimeout
)

var scanStatusNames = [...]string{"unknown", "cancel", "waiting", "scanned", "confirmed", "timeout"}

// String returns the lowercase status token.
func (s ScanStatus) String() string {
	if s < 0 || int(s) >= len(scanStatusNames) {
		return scanStatusNames[ScanStatusUnknown]
	}

	return scanStatusNames[s]
}

// Event is the raw domain event envelope drivers publish into the core.
//
// Payload branches are optional and selected by Kind: id-only kinds use the
// plain string fields, room transitions use their struct branches.
type Event struct {
	// Kind selects which payload branch is expected.
	Kind EventKind
	// Data carries free-form text for dong, error, heartbeat, ready, reset and logout.
	Data string
	// ContactID identifies the account for login and logout.
	ContactID string
	// MessageID identifies the message for message events.
	MessageID string
	// FriendshipID identifies the friendship for friendship events.
	FriendshipID string
	// RoomInvitationID identifies the invitation for room-invite events.
	RoomInvitationID string
	// RoomJoin carries room-join details.
	RoomJoin *RoomJoin
	// RoomLeave carries room-leave details.
	RoomLeave *RoomLeave
	// RoomTopic carries room-topic details.
	RoomTopic *RoomTopic
	// Scan carries scan details.
	Scan *Scan
	// Dirty names the payload to invalidate for dirty events.
	Dirty *Dirty
}

// RoomJoin describes contacts joining a room.
type RoomJoin struct {
	InviteeIDs []string
	InviterID  string
	RoomID     string
	Timestamp  uint64
}

// RoomLeave describes contacts leaving or being removed from a room.
type RoomLeave struct {
	RemoveeIDs []string
	RemoverID  string
	RoomID     string
	Timestamp  uint64
}

// RoomTopic describes a topic change.
type RoomTopic struct {
	ChangerID string
	OldTopic  string
	NewTopic  string
	RoomID    string
	Timestamp uint64
}

// Scan describes login QR code progress.
type Scan struct {
	Status ScanStatus
	QRCode string
	Data   string
}

// Dirty names one cached payload that must be re-fetched.
type Dirty struct {
	PayloadType PayloadType
	PayloadID   string
}

// Validate checks that the payload branch required by Kind is present.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}

	switch e.Kind {
	case EventKindDong, EventKindError, EventKindHeartbeat, EventKindReady, EventKindReset:
		return nil
	case EventKindLogin, EventKindLogout:
		return requireField(e.Kind, "contact id", e.ContactID)
	case EventKindMessage:
		return requireField(e.Kind, "message id", e.MessageID)
	case EventKindFriendship:
		return requireField(e.Kind, "friendship id", e.FriendshipID)
	case EventKindRoomInvite:
		return requireField(e.Kind, "room invitation id", e.RoomInvitationID)
	case EventKindRoomJoin:
		if e.RoomJoin == nil {
			return fmt.Errorf("%w: %s missing room join payload", ErrInvalidEvent, e.Kind)
		}
		return requireField(e.Kind, "room id", e.RoomJoin.RoomID)
	case EventKindRoomLeave:
		if e.RoomLeave == nil {
			return fmt.Errorf("%w: %s missing room leave payload", ErrInvalidEvent, e.Kind)
		}
		return requireField(e.Kind, "room id", e.RoomLeave.RoomID)
	case EventKindRoomTopic:
		if e.RoomTopic == nil {
			return fmt.Errorf("%w: %s missing room topic payload", ErrInvalidEvent, e.Kind)
		}
		return requireField(e.Kind, "room id", e.RoomTopic.RoomID)
	case EventKindScan:
		if e.Scan == nil {
			return fmt.Errorf("%w: %s missing scan payload", ErrInvalidEvent, e.Kind)
		}
		return nil
	case EventKindDirty:
		if e.Dirty == nil {
			return fmt.Errorf("%w: %s missing dirty payload", ErrInvalidEvent, e.Kind)
		}
		return requireField(e.Kind, "payload id", e.Dirty.PayloadID)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
}

func requireField(kind EventKind, field string, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s missing %s", ErrInvalidEvent, kind, field)
	}

	return nil
}

// Clone returns a deep copy so subscribers never share mutable branches.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}

	cloned := *e
	if e.RoomJoin != nil {
		join := *e.RoomJoin
		join.InviteeIDs = cloneStrings(join.InviteeIDs)
		cloned.RoomJoin = &join
	}
	if e.RoomLeave != nil {
		leave := *e.RoomLeave
		leave.RemoveeIDs = cloneStrings(leave.RemoveeIDs)
		cloned.RoomLeave = &leave
	}
	if e.RoomTopic != nil {
		topic := *e.RoomTopic
		cloned.RoomTopic = &topic
	}
	if e.Scan != nil {
		scan := *e.Scan
		cloned.Scan = &scan
	}
	if e.Dirty != nil {
		dirty := *e.Dirty
		cloned.Dirty = &dirty
	}

	return &cloned
}
