package service

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"google.golang.org/protobuf/types/known/structpb"

	"ex-wechaty/pkg/puppet"
)

// newRequest builds one request message from plain fields. String slices are
// widened because structpb only accepts []any lists.
func newRequest(fields map[string]any) (*structpb.Struct, error) {
	normalized := make(map[string]any, len(fields))
	for key, value := range fields {
		switch typed := value.(type) {
		case []string:
			list := make([]any, 0, len(typed))
			for _, item := range typed {
				list = append(list, item)
			}
			normalized[key] = list
		default:
			normalized[key] = value
		}
	}

	request, err := structpb.NewStruct(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	return request, nil
}

// structFromPayload encodes a payload value through its JSON shape.
func structFromPayload(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	return fields, nil
}

// decodePayload fills target from the JSON shape of message.
func decodePayload(message *structpb.Struct, target any) error {
	if message == nil {
		return fmt.Errorf("decode payload: empty response")
	}

	raw, err := json.Marshal(message.AsMap())
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	return nil
}

// stringField reads one string field of a response.
func stringField(message *structpb.Struct, name string) string {
	if message == nil {
		return ""
	}

	return message.GetFields()[name].GetStringValue()
}

// boolField reads one bool field of a response.
func boolField(message *structpb.Struct, name string) bool {
	if message == nil {
		return false
	}

	return message.GetFields()[name].GetBoolValue()
}

// stringListField reads one string list field of a response.
func stringListField(message *structpb.Struct, name string) []string {
	if message == nil {
		return nil
	}

	values := message.GetFields()[name].GetListValue().GetValues()
	list := make([]string, 0, len(values))
	for _, value := range values {
		list = append(list, value.GetStringValue())
	}

	return list
}

// decodeEvent maps one streamed event message into a domain event.
//
// The message carries the event kind in "type" and a JSON document in "payload".
func decodeEvent(message *structpb.Struct) (*puppet.Event, error) {
	kind := puppet.EventKind(stringField(message, "type"))
	payload := stringField(message, "payload")
	if payload != "" && !gjson.Valid(payload) {
		return nil, fmt.Errorf("decode event %s: malformed payload", kind)
	}
	document := gjson.Parse(payload)

	event := &puppet.Event{Kind: kind}
	switch kind {
	case puppet.EventKindDong,
		puppet.EventKindError,
		puppet.EventKindHeartbeat,
		puppet.EventKindReady,
		puppet.EventKindReset:
		event.Data = document.Get("data").String()
	case puppet.EventKindLogin, puppet.EventKindLogout:
		event.ContactID = document.Get("contact_id").String()
		event.Data = document.Get("data").String()
	case puppet.EventKindMessage:
		event.MessageID = document.Get("message_id").String()
	case puppet.EventKindFriendship:
		event.FriendshipID = document.Get("friendship_id").String()
	case puppet.EventKindRoomInvite:
		event.RoomInvitationID = document.Get("room_invitation_id").String()
	case puppet.EventKindRoomJoin:
		event.RoomJoin = &puppet.RoomJoin{
			InviteeIDs: stringList(document.Get("invitee_id_list")),
			InviterID:  document.Get("inviter_id").String(),
			RoomID:     document.Get("room_id").String(),
			Timestamp:  document.Get("timestamp").Uint(),
		}
	case puppet.EventKindRoomLeave:
		event.RoomLeave = &puppet.RoomLeave{
			RemoveeIDs: stringList(document.Get("removee_id_list")),
			RemoverID:  document.Get("remover_id").String(),
			RoomID:     document.Get("room_id").String(),
			Timestamp:  document.Get("timestamp").Uint(),
		}
	case puppet.EventKindRoomTopic:
		event.RoomTopic = &puppet.RoomTopic{
			ChangerID: document.Get("changer_id").String(),
			OldTopic:  document.Get("old_topic").String(),
			NewTopic:  document.Get("new_topic").String(),
			RoomID:    document.Get("room_id").String(),
			Timestamp: document.Get("timestamp").Uint(),
		}
	case puppet.EventKindScan:
		event.Scan = &puppet.Scan{
			Status: puppet.ScanStatus(document.Get("status").Int()),
			QRCode: document.Get("qrcode").String(),
			Data:   document.Get("data").String(),
		}
	case puppet.EventKindDirty:
		event.Dirty = &puppet.Dirty{
			PayloadType: puppet.PayloadType(document.Get("payload_type").Int()),
			PayloadID:   document.Get("payload_id").String(),
		}
	default:
		return nil, fmt.Errorf("decode event: %w: unknown kind %q", puppet.ErrInvalidEvent, kind)
	}

	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", kind, err)
	}

	return event, nil
}

func stringList(result gjson.Result) []string {
	items := result.Array()
	if len(items) == 0 {
		return nil
	}

	list := make([]string, 0, len(items))
	for _, item := range items {
		list = append(list, item.String())
	}

	return list
}
