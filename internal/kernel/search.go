package kernel

import (
	"context"
	"fmt"

	"ex-wechaty/internal/query"
	"ex-wechaty/pkg/puppet"
)

// ContactSearch returns contact ids matching filter.
//
// A nil universe searches every remote contact; ids that fail to load are skipped.
func (k *Kernel) ContactSearch(ctx context.Context, filter puppet.Filter, universe []string) ([]string, error) {
	match, err := query.Compile(filter, query.ContactFields)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	if universe == nil {
		universe, err = k.ContactList(ctx)
		if err != nil {
			return nil, fmt.Errorf("search contacts: %w", err)
		}
	}

	contactIDs, err := query.Search(ctx, universe, match, k.ContactPayload, k.cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}

	return contactIDs, nil
}

// ContactSearchByString matches text against contact id and alias
// independently and returns the de-duplicated union.
func (k *Kernel) ContactSearchByString(ctx context.Context, text string, universe []string) ([]string, error) {
	if universe == nil {
		var err error
		universe, err = k.ContactList(ctx)
		if err != nil {
			return nil, fmt.Errorf("search contacts by string: %w", err)
		}
	}

	byID, err := k.ContactSearch(ctx, puppet.Filter{}.Equal(puppet.FieldID, text), universe)
	if err != nil {
		return nil, fmt.Errorf("search contacts by string: %w", err)
	}
	byAlias, err := k.ContactSearch(ctx, puppet.Filter{}.Equal(puppet.FieldAlias, text), universe)
	if err != nil {
		return nil, fmt.Errorf("search contacts by string: %w", err)
	}

	return query.Union(byID, byAlias), nil
}

// MessageSearch returns known message ids matching filter.
func (k *Kernel) MessageSearch(ctx context.Context, filter puppet.Filter) ([]string, error) {
	match, err := query.Compile(filter, query.MessageFields)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	messageIDs, err := query.Search(ctx, k.MessageKnownIDs(), match, k.MessagePayload, k.cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	return messageIDs, nil
}

// RoomSearch returns room ids matching filter among every remote room.
func (k *Kernel) RoomSearch(ctx context.Context, filter puppet.Filter) ([]string, error) {
	match, err := query.Compile(filter, query.RoomFields)
	if err != nil {
		return nil, fmt.Errorf("search rooms: %w", err)
	}
	roomIDs, err := k.RoomList(ctx)
	if err != nil {
		return nil, fmt.Errorf("search rooms: %w", err)
	}

	matched, err := query.Search(ctx, roomIDs, match, k.RoomPayload, k.cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("search rooms: %w", err)
	}

	return matched, nil
}

// RoomMemberSearch returns member contact ids of roomID matching filter.
//
// The member's contact payload is joined best effort so contact_alias
// conditions can match; a failed contact load leaves it empty.
func (k *Kernel) RoomMemberSearch(ctx context.Context, roomID string, filter puppet.Filter) ([]string, error) {
	match, err := query.Compile(filter, query.RoomMemberFields)
	if err != nil {
		return nil, fmt.Errorf("search room %s members: %w", roomID, err)
	}
	memberIDs, err := k.RoomMemberList(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("search room %s members: %w", roomID, err)
	}

	load := func(ctx context.Context, contactID string) (query.RoomMember, error) {
		member, err := k.RoomMemberPayload(ctx, roomID, contactID)
		if err != nil {
			return query.RoomMember{}, err
		}
		joined := query.RoomMember{Member: member}
		contact, err := k.ContactPayload(ctx, contactID)
		if err != nil {
			k.cfg.logger.DebugContext(ctx, "room member contact join skipped", "room_id", roomID, "contact_id", contactID, "error", err)
			return joined, nil
		}
		joined.Contact = contact

		return joined, nil
	}

	matched, err := query.Search(ctx, memberIDs, match, load, k.cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("search room %s members: %w", roomID, err)
	}

	return matched, nil
}

// RoomMemberSearchByString matches text against room alias, name and contact
// alias independently and returns the de-duplicated union.
func (k *Kernel) RoomMemberSearchByString(ctx context.Context, roomID string, text string) ([]string, error) {
	fields := []string{puppet.FieldRoomAlias, puppet.FieldName, puppet.FieldContactAlias}
	results := make([][]string, 0, len(fields))
	for _, field := range fields {
		matched, err := k.RoomMemberSearch(ctx, roomID, puppet.Filter{}.Equal(field, text))
		if err != nil {
			return nil, err
		}
		results = append(results, matched)
	}

	return query.Union(results...), nil
}

// FriendshipSearch looks up one stranger by phone or weixin id. Phone wins
// when both are set. An empty id means nobody matched.
func (k *Kernel) FriendshipSearch(ctx context.Context, filter puppet.FriendshipSearchQueryFilter) (string, error) {
	switch {
	case filter.Phone != "":
		contactID, err := k.driver.FriendshipSearchPhone(ctx, filter.Phone)
		if err != nil {
			return "", fmt.Errorf("search friendship by phone: %w", err)
		}
		return contactID, nil
	case filter.Weixin != "":
		contactID, err := k.driver.FriendshipSearchWeixin(ctx, filter.Weixin)
		if err != nil {
			return "", fmt.Errorf("search friendship by weixin: %w", err)
		}
		return contactID, nil
	default:
		return "", fmt.Errorf("search friendship: %w: phone or weixin required", puppet.ErrInvalidFilter)
	}
}
