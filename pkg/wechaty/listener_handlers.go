package wechaty

import "ex-wechaty/pkg/puppet"

// OnDong registers handler for the data of dong events.
func (l *Listener) OnDong(handler Handler[string]) {
	register(l, puppet.EventKindDong, handler, Unlimited)
}

// OnDongWithHandle is OnDong with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnDongWithHandle(handler Handler[string], limit int) int {
	return register(l, puppet.EventKindDong, handler, limit)
}

// OnError registers handler for the data of driver error events.
func (l *Listener) OnError(handler Handler[string]) {
	register(l, puppet.EventKindError, handler, Unlimited)
}

// OnErrorWithHandle is OnError with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnErrorWithHandle(handler Handler[string], limit int) int {
	return register(l, puppet.EventKindError, handler, limit)
}

// OnFriendship registers handler for friendship events.
func (l *Listener) OnFriendship(handler Handler[*Friendship]) {
	register(l, puppet.EventKindFriendship, handler, Unlimited)
}

// OnFriendshipWithHandle is OnFriendship with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnFriendshipWithHandle(handler Handler[*Friendship], limit int) int {
	return register(l, puppet.EventKindFriendship, handler, limit)
}

// OnHeartbeat registers handler for the data of heartbeat events.
func (l *Listener) OnHeartbeat(handler Handler[string]) {
	register(l, puppet.EventKindHeartbeat, handler, Unlimited)
}

// OnHeartbeatWithHandle is OnHeartbeat with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnHeartbeatWithHandle(handler Handler[string], limit int) int {
	return register(l, puppet.EventKindHeartbeat, handler, limit)
}

// OnLogin registers handler for logins.
func (l *Listener) OnLogin(handler Handler[*ContactSelf]) {
	register(l, puppet.EventKindLogin, handler, Unlimited)
}

// OnLoginWithHandle is OnLogin with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnLoginWithHandle(handler Handler[*ContactSelf], limit int) int {
	return register(l, puppet.EventKindLogin, handler, limit)
}

// OnLogout registers handler for logouts.
func (l *Listener) OnLogout(handler Handler[*ContactSelf]) {
	register(l, puppet.EventKindLogout, handler, Unlimited)
}

// OnLogoutWithHandle is OnLogout with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnLogoutWithHandle(handler Handler[*ContactSelf], limit int) int {
	return register(l, puppet.EventKindLogout, handler, limit)
}

// OnMessage registers handler for messages.
func (l *Listener) OnMessage(handler Handler[*Message]) {
	register(l, puppet.EventKindMessage, handler, Unlimited)
}

// OnMessageWithHandle is OnMessage with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnMessageWithHandle(handler Handler[*Message], limit int) int {
	return register(l, puppet.EventKindMessage, handler, limit)
}

// OnReady registers handler for the data of ready events.
func (l *Listener) OnReady(handler Handler[string]) {
	register(l, puppet.EventKindReady, handler, Unlimited)
}

// OnReadyWithHandle is OnReady with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnReadyWithHandle(handler Handler[string], limit int) int {
	return register(l, puppet.EventKindReady, handler, limit)
}

// OnReset registers handler for the data of reset events.
func (l *Listener) OnReset(handler Handler[string]) {
	register(l, puppet.EventKindReset, handler, Unlimited)
}

// OnResetWithHandle is OnReset with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnResetWithHandle(handler Handler[string], limit int) int {
	return register(l, puppet.EventKindReset, handler, limit)
}

// OnRoomInvite registers handler for room invitations.
func (l *Listener) OnRoomInvite(handler Handler[*RoomInvitation]) {
	register(l, puppet.EventKindRoomInvite, handler, Unlimited)
}

// OnRoomInviteWithHandle is OnRoomInvite with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnRoomInviteWithHandle(handler Handler[*RoomInvitation], limit int) int {
	return register(l, puppet.EventKindRoomInvite, handler, limit)
}

// OnRoomJoin registers handler for room joins.
func (l *Listener) OnRoomJoin(handler Handler[RoomJoin]) {
	register(l, puppet.EventKindRoomJoin, handler, Unlimited)
}

// OnRoomJoinWithHandle is OnRoomJoin with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnRoomJoinWithHandle(handler Handler[RoomJoin], limit int) int {
	return register(l, puppet.EventKindRoomJoin, handler, limit)
}

// OnRoomLeave registers handler for room leaves.
func (l *Listener) OnRoomLeave(handler Handler[RoomLeave]) {
	register(l, puppet.EventKindRoomLeave, handler, Unlimited)
}

// OnRoomLeaveWithHandle is OnRoomLeave with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnRoomLeaveWithHandle(handler Handler[RoomLeave], limit int) int {
	return register(l, puppet.EventKindRoomLeave, handler, limit)
}

// OnRoomTopic registers handler for room topic changes.
func (l *Listener) OnRoomTopic(handler Handler[RoomTopic]) {
	register(l, puppet.EventKindRoomTopic, handler, Unlimited)
}

// OnRoomTopicWithHandle is OnRoomTopic with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnRoomTopicWithHandle(handler Handler[RoomTopic], limit int) int {
	return register(l, puppet.EventKindRoomTopic, handler, limit)
}

// OnScan registers handler for login QR code progress.
func (l *Listener) OnScan(handler Handler[puppet.Scan]) {
	register(l, puppet.EventKindScan, handler, Unlimited)
}

// OnScanWithHandle is OnScan with an invocation budget of limit.
// It returns the handler index.
func (l *Listener) OnScanWithHandle(handler Handler[puppet.Scan], limit int) int {
	return register(l, puppet.EventKindScan, handler, limit)
}
