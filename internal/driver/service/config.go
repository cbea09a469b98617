package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// DriverType is the registry token of the remote puppet service driver.
	DriverType = "service"
	// TokenEnv overrides the configured token when set.
	TokenEnv = "WECHATY_PUPPET_SERVICE_TOKEN"

	defaultDiscoveryURL     = "https://api.chatie.io/v0/hosties"
	defaultCallTimeout      = 30 * time.Second
	defaultPublishTimeout   = 2 * time.Second
	defaultDiscoveryTimeout = 10 * time.Second
)

type runtimeConfig struct {
	Endpoint         string `json:"endpoint"`
	Token            string `json:"token"`
	DiscoveryURL     string `json:"discovery_url"`
	DiscoveryTimeout string `json:"discovery_timeout"`
	CallTimeout      string `json:"call_timeout"`
	PublishTimeout   string `json:"publish_timeout"`
}

type parsedRuntimeConfig struct {
	endpoint         string
	token            string
	discoveryURL     string
	discoveryTimeout time.Duration
	callTimeout      time.Duration
	publishTimeout   time.Duration
}

// parseRuntimeConfig decodes the driver section. lookupEnv supplies the token
// override; it may be nil.
func parseRuntimeConfig(raw []byte, lookupEnv func(string) (string, bool)) (parsedRuntimeConfig, error) {
	var parsed runtimeConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return parsedRuntimeConfig{}, fmt.Errorf("unmarshal: %w", err)
		}
	}

	cfg := parsedRuntimeConfig{
		endpoint:         strings.TrimSpace(parsed.Endpoint),
		token:            strings.TrimSpace(parsed.Token),
		discoveryURL:     strings.TrimRight(strings.TrimSpace(parsed.DiscoveryURL), "/"),
		discoveryTimeout: defaultDiscoveryTimeout,
		callTimeout:      defaultCallTimeout,
		publishTimeout:   defaultPublishTimeout,
	}
	if lookupEnv != nil {
		if token, ok := lookupEnv(TokenEnv); ok && strings.TrimSpace(token) != "" {
			cfg.token = strings.TrimSpace(token)
		}
	}
	if cfg.discoveryURL == "" {
		cfg.discoveryURL = defaultDiscoveryURL
	}

	durations := []struct {
		field  string
		raw    string
		target *time.Duration
	}{
		{field: "discovery_timeout", raw: parsed.DiscoveryTimeout, target: &cfg.discoveryTimeout},
		{field: "call_timeout", raw: parsed.CallTimeout, target: &cfg.callTimeout},
		{field: "publish_timeout", raw: parsed.PublishTimeout, target: &cfg.publishTimeout},
	}
	for _, duration := range durations {
		trimmed := strings.TrimSpace(duration.raw)
		if trimmed == "" {
			continue
		}
		parsedDuration, err := time.ParseDuration(trimmed)
		if err != nil {
			return parsedRuntimeConfig{}, fmt.Errorf("parse %s: %w", duration.field, err)
		}
		if parsedDuration <= 0 {
			return parsedRuntimeConfig{}, fmt.Errorf("parse %s: must be > 0", duration.field)
		}
		*duration.target = parsedDuration
	}

	if cfg.endpoint == "" && cfg.token == "" {
		return parsedRuntimeConfig{}, fmt.Errorf("endpoint or token is required")
	}

	return cfg, nil
}
