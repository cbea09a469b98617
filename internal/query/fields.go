package query

import "ex-wechaty/pkg/puppet"

// ContactFields exposes contact payload fields to filters.
var ContactFields = FieldSet[puppet.ContactPayload]{
	puppet.FieldID:     func(p puppet.ContactPayload) string { return p.ID },
	puppet.FieldName:   func(p puppet.ContactPayload) string { return p.Name },
	puppet.FieldAlias:  func(p puppet.ContactPayload) string { return p.Alias },
	puppet.FieldWeixin: func(p puppet.ContactPayload) string { return p.Weixin },
}

// MessageFields exposes message payload fields to filters.
var MessageFields = FieldSet[puppet.MessagePayload]{
	puppet.FieldID:     func(p puppet.MessagePayload) string { return p.ID },
	puppet.FieldFromID: func(p puppet.MessagePayload) string { return p.FromID },
	puppet.FieldToID:   func(p puppet.MessagePayload) string { return p.ToID },
	puppet.FieldRoomID: func(p puppet.MessagePayload) string { return p.RoomID },
	puppet.FieldText:   func(p puppet.MessagePayload) string { return p.Text },
	puppet.FieldType:   func(p puppet.MessagePayload) string { return p.Type.String() },
}

// RoomFields exposes room payload fields to filters.
var RoomFields = FieldSet[puppet.RoomPayload]{
	puppet.FieldID:      func(p puppet.RoomPayload) string { return p.ID },
	puppet.FieldTopic:   func(p puppet.RoomPayload) string { return p.Topic },
	puppet.FieldOwnerID: func(p puppet.RoomPayload) string { return p.OwnerID },
}

// RoomMember joins a member payload with the member's contact payload so
// filters can address the contact alias.
type RoomMember struct {
	Member  puppet.RoomMemberPayload
	Contact puppet.ContactPayload
}

// RoomMemberFields exposes joined room member fields to filters.
var RoomMemberFields = FieldSet[RoomMember]{
	puppet.FieldID:           func(m RoomMember) string { return m.Member.ID },
	puppet.FieldName:         func(m RoomMember) string { return m.Member.Name },
	puppet.FieldRoomAlias:    func(m RoomMember) string { return m.Member.RoomAlias },
	puppet.FieldContactAlias: func(m RoomMember) string { return m.Contact.Alias },
}
