package puppet

// FilterOp selects how a condition compares its value against a payload field.
type FilterOp string

const (
	// FilterOpEqual requires exact string equality.
	FilterOpEqual FilterOp = "eq"
	// FilterOpRegex requires the field to match a regular expression.
	FilterOpRegex FilterOp = "regex"
)

// Payload field names understood by the query engine.
const (
	FieldID           = "id"
	FieldName         = "name"
	FieldAlias        = "alias"
	FieldWeixin       = "weixin"
	FieldFromID       = "from_id"
	FieldToID         = "to_id"
	FieldRoomID       = "room_id"
	FieldText         = "text"
	FieldType         = "type"
	FieldTopic        = "topic"
	FieldOwnerID      = "owner_id"
	FieldRoomAlias    = "room_alias"
	FieldContactAlias = "contact_alias"
)

// Condition is one field/operator/value triple.
type Condition struct {
	Field string   `json:"field"`
	Op    FilterOp `json:"op"`
	Value string   `json:"value"`
}

// Filter is a declarative conjunction of conditions. An empty filter matches everything.
type Filter struct {
	Conditions []Condition `json:"conditions,omitempty"`
}

// Empty reports whether f imposes no constraint.
func (f Filter) Empty() bool {
	return len(f.Conditions) == 0
}

// Equal returns a copy of f with an additional equality condition.
func (f Filter) Equal(field string, value string) Filter {
	return f.with(Condition{Field: field, Op: FilterOpEqual, Value: value})
}

// Regex returns a copy of f with an additional pattern condition.
func (f Filter) Regex(field string, pattern string) Filter {
	return f.with(Condition{Field: field, Op: FilterOpRegex, Value: pattern})
}

func (f Filter) with(condition Condition) Filter {
	conditions := make([]Condition, 0, len(f.Conditions)+1)
	conditions = append(conditions, f.Conditions...)
	conditions = append(conditions, condition)

	return Filter{Conditions: conditions}
}

// optionalEqual appends an equality condition when value is populated.
func (f Filter) optionalEqual(field string, value string) Filter {
	if value == "" {
		return f
	}

	return f.Equal(field, value)
}

// optionalRegex appends a pattern condition when pattern is populated.
func (f Filter) optionalRegex(field string, pattern string) Filter {
	if pattern == "" {
		return f
	}

	return f.Regex(field, pattern)
}

// ContactQueryFilter selects contacts. Empty fields impose no constraint.
type ContactQueryFilter struct {
	ID         string
	Name       string
	NameRegex  string
	Alias      string
	AliasRegex string
	Weixin     string
}

// Filter converts q into its declarative form.
func (q ContactQueryFilter) Filter() Filter {
	return Filter{}.
		optionalEqual(FieldID, q.ID).
		optionalEqual(FieldName, q.Name).
		optionalRegex(FieldName, q.NameRegex).
		optionalEqual(FieldAlias, q.Alias).
		optionalRegex(FieldAlias, q.AliasRegex).
		optionalEqual(FieldWeixin, q.Weixin)
}

// MessageQueryFilter selects messages. Empty fields impose no constraint.
type MessageQueryFilter struct {
	ID        string
	FromID    string
	ToID      string
	RoomID    string
	Text      string
	TextRegex string
	// Type restricts the message type when non-nil.
	Type *MessageType
}

// Filter converts q into its declarative form.
func (q MessageQueryFilter) Filter() Filter {
	filter := Filter{}.
		optionalEqual(FieldID, q.ID).
		optionalEqual(FieldFromID, q.FromID).
		optionalEqual(FieldToID, q.ToID).
		optionalEqual(FieldRoomID, q.RoomID).
		optionalEqual(FieldText, q.Text).
		optionalRegex(FieldText, q.TextRegex)
	if q.Type != nil {
		filter = filter.Equal(FieldType, q.Type.String())
	}

	return filter
}

// RoomQueryFilter selects rooms. Empty fields impose no constraint.
type RoomQueryFilter struct {
	ID         string
	Topic      string
	TopicRegex string
}

// Filter converts q into its declarative form.
func (q RoomQueryFilter) Filter() Filter {
	return Filter{}.
		optionalEqual(FieldID, q.ID).
		optionalEqual(FieldTopic, q.Topic).
		optionalRegex(FieldTopic, q.TopicRegex)
}

// RoomMemberQueryFilter selects members of one room. Empty fields impose no constraint.
type RoomMemberQueryFilter struct {
	Name         string
	RoomAlias    string
	ContactAlias string
}

// Filter converts q into its declarative form.
func (q RoomMemberQueryFilter) Filter() Filter {
	return Filter{}.
		optionalEqual(FieldName, q.Name).
		optionalEqual(FieldRoomAlias, q.RoomAlias).
		optionalEqual(FieldContactAlias, q.ContactAlias)
}

// FriendshipSearchQueryFilter looks up a stranger by phone or weixin id.
// Phone takes precedence when both are set.
type FriendshipSearchQueryFilter struct {
	Phone  string
	Weixin string
}
