package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ex-wechaty/pkg/puppet"
)

type runtimeConfig struct {
	Self              puppet.ContactPayload   `json:"self"`
	Contacts          []puppet.ContactPayload `json:"contacts"`
	Rooms             []roomConfig            `json:"rooms"`
	HeartbeatInterval string                  `json:"heartbeat_interval"`
	DingFrom          string                  `json:"ding_from"`
	DingInterval      string                  `json:"ding_interval"`
}

type roomConfig struct {
	puppet.RoomPayload
	Members []puppet.RoomMemberPayload `json:"members"`
}

// BuildRuntimeFromConfig builds one seeded in-memory driver from config payload.
// An empty payload yields an empty driver.
func BuildRuntimeFromConfig(name string, logger *slog.Logger, rawConfig []byte) (*Driver, error) {
	var parsed runtimeConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &parsed); err != nil {
			return nil, fmt.Errorf("parse mock runtime config: unmarshal: %w", err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	heartbeat, err := parseOptionalDuration("heartbeat_interval", parsed.HeartbeatInterval)
	if err != nil {
		return nil, fmt.Errorf("parse mock runtime config: %w", err)
	}
	ding, err := parseOptionalDuration("ding_interval", parsed.DingInterval)
	if err != nil {
		return nil, fmt.Errorf("parse mock runtime config: %w", err)
	}

	driver := NewDriver(
		WithName(name),
		WithSelf(parsed.Self),
		WithHeartbeat(heartbeat),
		WithDing(strings.TrimSpace(parsed.DingFrom), ding),
		WithErrorHandler(func(ctx context.Context, err error) {
			logger.ErrorContext(ctx, "mock driver async error", "error", err)
		}),
	)
	for _, contact := range parsed.Contacts {
		if contact.ID == "" {
			return nil, fmt.Errorf("parse mock runtime config: contact without id")
		}
		driver.SeedContact(contact)
	}
	for _, room := range parsed.Rooms {
		if room.ID == "" {
			return nil, fmt.Errorf("parse mock runtime config: room without id")
		}
		driver.SeedRoom(room.RoomPayload, room.Members...)
	}

	return driver, nil
}

func parseOptionalDuration(field string, raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}

	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", field, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("parse %s: must be > 0", field)
	}

	return parsed, nil
}

var _ puppet.Driver = (*Driver)(nil)
