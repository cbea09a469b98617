package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"ex-wechaty/internal/driver"
	"ex-wechaty/modules/dingdong"
	"ex-wechaty/pkg/wechaty"
)

const (
	envConfigFile           = "WECHATY_CONFIG_FILE"
	defaultConfigFilePath   = "config/bot.json"
	alternateConfigFilePath = "bin/config/bot.json"
	defaultShutdownTimeout  = 10 * time.Second
	defaultMailboxBuffer    = 256
	defaultLogMaxSizeMB     = 100
	defaultLogMaxBackups    = 3
	defaultLogMaxAgeDays    = 28
)

type appConfig struct {
	logLevel slog.Level
	logFile  logFileConfig

	botName         string
	mailboxBuffer   int
	dropOldest      bool
	singleFlight    bool
	messageHistory  int
	shutdownTimeout time.Duration

	drivers []driver.Definition
}

type logFileConfig struct {
	path       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
}

type fileConfig struct {
	LogLevel string            `json:"log_level"`
	Log      fileLogConfig     `json:"log"`
	Bot      fileBotConfig     `json:"bot"`
	Drivers  []fileDriverEntry `json:"drivers"`
}

type fileLogConfig struct {
	File       string `json:"file"`
	MaxSizeMB  *int   `json:"max_size_mb"`
	MaxBackups *int   `json:"max_backups"`
	MaxAgeDays *int   `json:"max_age_days"`
}

type fileBotConfig struct {
	Name            string `json:"name"`
	MailboxBuffer   *int   `json:"mailbox_buffer"`
	DropOldest      bool   `json:"drop_oldest"`
	SingleFlight    bool   `json:"single_flight"`
	MessageHistory  *int   `json:"message_history"`
	ShutdownTimeout string `json:"shutdown_timeout"`
}

type fileDriverEntry struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Enabled *bool           `json:"enabled"`
	Config  json.RawMessage `json:"config"`
}

func run(args []string) error {
	flags := pflag.NewFlagSet("dingdong", pflag.ContinueOnError)
	configFlag := flags.StringP("config", "c", "", "path to the bot config file (json, yaml or toml)")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	registry, err := driver.NewBuiltinRegistry()
	if err != nil {
		return fmt.Errorf("new builtin driver registry: %w", err)
	}

	cfg, err := loadConfig(*configFlag, registry)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	output, closeOutput := logOutput(cfg.logFile)
	defer closeOutput()
	logger := slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: cfg.logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := buildBot(ctx, logger, cfg, registry)
	if err != nil {
		return err
	}

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run bot: %w", err)
	}

	return nil
}

// buildBot builds the configured driver and a bot running the dingdong module.
func buildBot(ctx context.Context, logger *slog.Logger, cfg appConfig, registry *driver.Registry) (*wechaty.Bot, error) {
	runtime, err := registry.BuildSingle(ctx, cfg.drivers, logger)
	if err != nil {
		return nil, fmt.Errorf("build driver: %w", err)
	}

	options := []wechaty.Option{
		wechaty.WithName(cfg.botName),
		wechaty.WithLogger(logger.With("driver", runtime.Name)),
		wechaty.WithMailboxBuffer(cfg.mailboxBuffer),
		wechaty.WithShutdownTimeout(cfg.shutdownTimeout),
		wechaty.WithMessageHistory(cfg.messageHistory),
	}
	if cfg.dropOldest {
		options = append(options, wechaty.WithDropOldest())
	}
	if cfg.singleFlight {
		options = append(options, wechaty.WithSingleFlight())
	}

	bot, err := wechaty.New(runtime.Driver, options...)
	if err != nil {
		return nil, fmt.Errorf("new bot: %w", err)
	}
	if err := bot.Use(ctx, dingdong.New()); err != nil {
		return nil, errors.Join(fmt.Errorf("use dingdong module: %w", err), bot.Close(ctx))
	}

	return bot, nil
}

// logOutput returns stdout, or a rotating file when a log file is configured.
func logOutput(cfg logFileConfig) (io.Writer, func()) {
	if cfg.path == "" {
		return os.Stdout, func() {}
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.path,
		MaxSize:    cfg.maxSizeMB,
		MaxBackups: cfg.maxBackups,
		MaxAge:     cfg.maxAgeDays,
	}

	return rotating, func() {
		_ = rotating.Close()
	}
}

func loadConfig(flagPath string, registry *driver.Registry) (appConfig, error) {
	cfg := defaultAppConfig()
	configFile, err := resolveConfigFilePath(flagPath)
	if err != nil {
		return appConfig{}, err
	}

	if err := applyConfigFile(&cfg, configFile); err != nil {
		return appConfig{}, err
	}
	if err := validateAppConfig(&cfg, registry); err != nil {
		return appConfig{}, fmt.Errorf("validate config file %s: %w", configFile, err)
	}

	return cfg, nil
}

func resolveConfigFilePath(flagPath string) (string, error) {
	if configFile := strings.TrimSpace(flagPath); configFile != "" {
		return configFile, nil
	}
	if configFile := strings.TrimSpace(os.Getenv(envConfigFile)); configFile != "" {
		return configFile, nil
	}

	candidates := []string{defaultConfigFilePath, alternateConfigFilePath}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config file %s is a directory", candidate)
			}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}

	return "", fmt.Errorf(
		"config file not found; create %s or %s, pass --config, or set %s",
		defaultConfigFilePath,
		alternateConfigFilePath,
		envConfigFile,
	)
}

func defaultAppConfig() appConfig {
	return appConfig{
		logLevel: slog.LevelInfo,
		logFile: logFileConfig{
			maxSizeMB:  defaultLogMaxSizeMB,
			maxBackups: defaultLogMaxBackups,
			maxAgeDays: defaultLogMaxAgeDays,
		},

		mailboxBuffer:   defaultMailboxBuffer,
		shutdownTimeout: defaultShutdownTimeout,

		drivers: make([]driver.Definition, 0),
	}
}

// normalizeConfig converts a YAML or TOML document into JSON so every format
// shares one decoding path. JSON input is returned unchanged.
func normalizeConfig(path string, data []byte) ([]byte, error) {
	var document map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", "":
		return data, nil
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &document); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	normalized, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}

	return normalized, nil
}

func applyConfigFile(cfg *appConfig, path string) error {
	if cfg == nil {
		return fmt.Errorf("apply config file: nil config")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	data, err = normalizeConfig(path, data)
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	var parsed fileConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if rawLevel := strings.TrimSpace(parsed.LogLevel); rawLevel != "" {
		level, err := parseLogLevel(rawLevel)
		if err != nil {
			return fmt.Errorf("parse log_level: %w", err)
		}
		cfg.logLevel = level
	}

	cfg.logFile.path = strings.TrimSpace(parsed.Log.File)
	for _, field := range []struct {
		name   string
		value  *int
		target *int
	}{
		{name: "log.max_size_mb", value: parsed.Log.MaxSizeMB, target: &cfg.logFile.maxSizeMB},
		{name: "log.max_backups", value: parsed.Log.MaxBackups, target: &cfg.logFile.maxBackups},
		{name: "log.max_age_days", value: parsed.Log.MaxAgeDays, target: &cfg.logFile.maxAgeDays},
		{name: "bot.mailbox_buffer", value: parsed.Bot.MailboxBuffer, target: &cfg.mailboxBuffer},
		{name: "bot.message_history", value: parsed.Bot.MessageHistory, target: &cfg.messageHistory},
	} {
		if field.value == nil {
			continue
		}
		if *field.value <= 0 {
			return fmt.Errorf("parse %s: must be > 0", field.name)
		}
		*field.target = *field.value
	}

	cfg.botName = strings.TrimSpace(parsed.Bot.Name)
	cfg.dropOldest = parsed.Bot.DropOldest
	cfg.singleFlight = parsed.Bot.SingleFlight
	if rawTimeout := strings.TrimSpace(parsed.Bot.ShutdownTimeout); rawTimeout != "" {
		timeout, err := time.ParseDuration(rawTimeout)
		if err != nil {
			return fmt.Errorf("parse bot.shutdown_timeout: %w", err)
		}
		if timeout <= 0 {
			return fmt.Errorf("parse bot.shutdown_timeout: must be > 0")
		}
		cfg.shutdownTimeout = timeout
	}

	cfg.drivers = make([]driver.Definition, 0, len(parsed.Drivers))
	for index, entry := range parsed.Drivers {
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		if len(entry.Config) == 0 {
			return fmt.Errorf("parse drivers[%d].config: required", index)
		}
		cfg.drivers = append(cfg.drivers, driver.Definition{
			Name:    strings.TrimSpace(entry.Name),
			Type:    strings.TrimSpace(entry.Type),
			Enabled: enabled,
			Config:  append([]byte(nil), entry.Config...),
		})
	}

	return nil
}

func validateAppConfig(cfg *appConfig, registry *driver.Registry) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if registry == nil {
		return fmt.Errorf("nil driver registry")
	}

	seen := make(map[string]struct{}, len(cfg.drivers))
	enabled := 0
	for _, definition := range cfg.drivers {
		if definition.Name == "" {
			return fmt.Errorf("drivers[].name is required")
		}
		if definition.Type == "" {
			return fmt.Errorf("drivers[%s].type is required", definition.Name)
		}
		if _, exists := seen[definition.Name]; exists {
			return fmt.Errorf("drivers[%s]: duplicate name", definition.Name)
		}
		seen[definition.Name] = struct{}{}
		if !definition.Enabled {
			continue
		}
		if !registry.Supports(definition.Type) {
			return fmt.Errorf("drivers[%s].type: unsupported type %s", definition.Name, definition.Type)
		}
		enabled++
	}
	if enabled != 1 {
		return fmt.Errorf("exactly one enabled driver is required, got %d", enabled)
	}

	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}
