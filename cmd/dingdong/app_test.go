package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ex-wechaty/internal/driver"
)

func writeConfigFile(t *testing.T, path string, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func newRegistryForTest(t *testing.T) *driver.Registry {
	t.Helper()

	registry, err := driver.NewBuiltinRegistry()
	if err != nil {
		t.Fatalf("new builtin registry failed: %v", err)
	}

	return registry
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    slog.Level
		wantErr bool
	}{
		{name: "debug", input: "debug", want: slog.LevelDebug},
		{name: "info", input: "info", want: slog.LevelInfo},
		{name: "warn", input: "warn", want: slog.LevelWarn},
		{name: "warning", input: " WARNING ", want: slog.LevelWarn},
		{name: "error", input: "error", want: slog.LevelError},
		{name: "invalid", input: "trace", wantErr: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			got, err := parseLogLevel(testCase.input)
			if testCase.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !testCase.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if testCase.wantErr {
				return
			}
			if got != testCase.want {
				t.Fatalf("level = %v, want %v", got, testCase.want)
			}
		})
	}
}

const jsonConfig = `{
	"log_level": "debug",
	"log": {"file": "logs/bot.log", "max_size_mb": 10},
	"bot": {
		"name": "dingdong",
		"mailbox_buffer": 32,
		"drop_oldest": true,
		"single_flight": true,
		"message_history": 500,
		"shutdown_timeout": "3s"
	},
	"drivers": [
		{"name": "local", "type": "mock", "config": {"self": {"id": "bot", "name": "Bot"}}},
		{"name": "remote", "type": "service", "enabled": false, "config": {"token": "t"}}
	]
}`

const yamlConfig = `
log_level: debug
log:
  file: logs/bot.log
  max_size_mb: 10
bot:
  name: dingdong
  mailbox_buffer: 32
  drop_oldest: true
  single_flight: true
  message_history: 500
  shutdown_timeout: 3s
drivers:
  - name: local
    type: mock
    config:
      self:
        id: bot
        name: Bot
  - name: remote
    type: service
    enabled: false
    config:
      token: t
`

const tomlConfig = `
log_level = "debug"

[log]
file = "logs/bot.log"
max_size_mb = 10

[bot]
name = "dingdong"
mailbox_buffer = 32
drop_oldest = true
single_flight = true
message_history = 500
shutdown_timeout = "3s"

[[drivers]]
name = "local"
type = "mock"
[drivers.config.self]
id = "bot"
name = "Bot"

[[drivers]]
name = "remote"
type = "service"
enabled = false
[drivers.config]
token = "t"
`

func TestLoadConfigFormats(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{name: "json", file: "bot.json", contents: jsonConfig},
		{name: "yaml", file: "bot.yaml", contents: yamlConfig},
		{name: "yml", file: "bot.yml", contents: yamlConfig},
		{name: "toml", file: "bot.toml", contents: tomlConfig},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), testCase.file)
			writeConfigFile(t, configPath, testCase.contents)

			cfg, err := loadConfig(configPath, newRegistryForTest(t))
			if err != nil {
				t.Fatalf("load config failed: %v", err)
			}

			if cfg.logLevel != slog.LevelDebug {
				t.Fatalf("log level = %v, want debug", cfg.logLevel)
			}
			wantLog := logFileConfig{
				path:       "logs/bot.log",
				maxSizeMB:  10,
				maxBackups: defaultLogMaxBackups,
				maxAgeDays: defaultLogMaxAgeDays,
			}
			if cfg.logFile != wantLog {
				t.Fatalf("log file = %+v, want %+v", cfg.logFile, wantLog)
			}
			if cfg.botName != "dingdong" || cfg.mailboxBuffer != 32 || cfg.messageHistory != 500 {
				t.Fatalf("bot config = %+v", cfg)
			}
			if !cfg.dropOldest || !cfg.singleFlight {
				t.Fatalf("drop oldest = %v, single flight = %v, want both true", cfg.dropOldest, cfg.singleFlight)
			}
			if cfg.shutdownTimeout != 3*time.Second {
				t.Fatalf("shutdown timeout = %s, want 3s", cfg.shutdownTimeout)
			}

			type definition struct {
				Name    string
				Type    string
				Enabled bool
			}
			got := make([]definition, 0, len(cfg.drivers))
			for _, entry := range cfg.drivers {
				got = append(got, definition{Name: entry.Name, Type: entry.Type, Enabled: entry.Enabled})
			}
			want := []definition{
				{Name: "local", Type: "mock", Enabled: true},
				{Name: "remote", Type: "service"},
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("drivers mismatch (-want +got):\n%s", diff)
			}
			if !strings.Contains(string(cfg.drivers[0].Config), `"id":"bot"`) {
				t.Fatalf("driver config = %s, want self id", cfg.drivers[0].Config)
			}
		})
	}
}

func TestLoadConfigRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		contents string
		wantErr  string
	}{
		{
			name:     "unknown extension",
			file:     "bot.ini",
			contents: "log_level=info",
			wantErr:  "unsupported config format",
		},
		{
			name:     "bad level",
			file:     "bot.json",
			contents: `{"log_level":"trace","drivers":[{"name":"local","type":"mock","config":{}}]}`,
			wantErr:  "log_level",
		},
		{
			name:     "non-positive buffer",
			file:     "bot.json",
			contents: `{"bot":{"mailbox_buffer":0},"drivers":[{"name":"local","type":"mock","config":{}}]}`,
			wantErr:  "bot.mailbox_buffer",
		},
		{
			name:     "bad timeout",
			file:     "bot.yaml",
			contents: "bot:\n  shutdown_timeout: soon\ndrivers:\n  - name: local\n    type: mock\n    config: {}\n",
			wantErr:  "bot.shutdown_timeout",
		},
		{
			name:     "missing driver config",
			file:     "bot.json",
			contents: `{"drivers":[{"name":"local","type":"mock"}]}`,
			wantErr:  "drivers[0].config",
		},
		{
			name:     "no enabled driver",
			file:     "bot.json",
			contents: `{"drivers":[{"name":"local","type":"mock","enabled":false,"config":{}}]}`,
			wantErr:  "exactly one enabled driver",
		},
		{
			name: "two enabled drivers",
			file: "bot.json",
			contents: `{"drivers":[
				{"name":"a","type":"mock","config":{}},
				{"name":"b","type":"mock","config":{}}
			]}`,
			wantErr: "exactly one enabled driver",
		},
		{
			name:     "unknown driver type",
			file:     "bot.json",
			contents: `{"drivers":[{"name":"local","type":"telegram","config":{}}]}`,
			wantErr:  "unsupported type telegram",
		},
		{
			name: "duplicate driver name",
			file: "bot.toml",
			contents: "[[drivers]]\nname = \"local\"\ntype = \"mock\"\n[drivers.config]\n" +
				"[[drivers]]\nname = \"local\"\ntype = \"mock\"\nenabled = false\n[drivers.config]\n",
			wantErr: "duplicate name",
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), testCase.file)
			writeConfigFile(t, configPath, testCase.contents)

			_, err := loadConfig(configPath, newRegistryForTest(t))
			if err == nil || !strings.Contains(err.Error(), testCase.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, testCase.wantErr)
			}
		})
	}
}

func TestResolveConfigFilePathPrefersFlag(t *testing.T) {
	t.Setenv(envConfigFile, "from-env.yaml")

	got, err := resolveConfigFilePath(" from-flag.toml ")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "from-flag.toml" {
		t.Fatalf("path = %q, want from-flag.toml", got)
	}

	got, err = resolveConfigFilePath("")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != "from-env.yaml" {
		t.Fatalf("path = %q, want from-env.yaml", got)
	}
}

func TestBuildBotFromMockConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bot.json")
	writeConfigFile(t, configPath, `{
		"bot": {"name": "dingdong"},
		"drivers": [{"name": "local", "type": "mock", "config": {"self": {"id": "bot", "name": "Bot"}}}]
	}`)

	registry := newRegistryForTest(t)
	cfg, err := loadConfig(configPath, registry)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bot, err := buildBot(context.Background(), logger, cfg, registry)
	if err != nil {
		t.Fatalf("build bot failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- bot.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !bot.Context().IsLoggedIn() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("bot did not log in")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := bot.Name(); got != "dingdong" {
		t.Fatalf("bot name = %q, want dingdong", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestLogOutputWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	output, closeOutput := logOutput(logFileConfig{path: path, maxSizeMB: 1, maxBackups: 1, maxAgeDays: 1})

	logger := slog.New(slog.NewJSONHandler(output, nil))
	logger.Info("hello", "module", "dingdong")
	closeOutput()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"module":"dingdong"`) {
		t.Fatalf("log file = %s, want module attribute", data)
	}

	stdout, closeStdout := logOutput(logFileConfig{})
	defer closeStdout()
	if stdout != os.Stdout {
		t.Fatal("empty log path did not select stdout")
	}
}
