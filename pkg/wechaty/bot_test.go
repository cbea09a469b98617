package wechaty

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type stubModule struct {
	name        string
	calls       *recorder[string]
	registerErr error
	startErr    error
	panicOn     string
}

func (m *stubModule) Name() string {
	return m.name
}

func (m *stubModule) OnRegister(context.Context, *Bot) error {
	return m.record("register", m.registerErr)
}

func (m *stubModule) OnStart(context.Context) error {
	return m.record("start", m.startErr)
}

func (m *stubModule) OnShutdown(context.Context) error {
	return m.record("shutdown", nil)
}

func (m *stubModule) record(hook string, err error) error {
	if m.panicOn == hook {
		panic(m.name + " " + hook)
	}
	m.calls.add(m.name + "." + hook)

	return err
}

var _ Module = (*stubModule)(nil)

func TestBotUseValidatesModules(t *testing.T) {
	t.Parallel()

	calls := &recorder[string]{}
	tests := []struct {
		name    string
		modules []Module
		wantErr string
	}{
		{name: "nil module", modules: []Module{nil}, wantErr: "nil module"},
		{name: "empty name", modules: []Module{&stubModule{calls: calls}}, wantErr: "empty module name"},
		{
			name: "duplicate name",
			modules: []Module{
				&stubModule{name: "echo", calls: calls},
				&stubModule{name: "echo", calls: calls},
			},
			wantErr: "already registered",
		},
		{
			name:    "register failure",
			modules: []Module{&stubModule{name: "echo", calls: calls, registerErr: errors.New("no config")}},
			wantErr: "no config",
		},
		{
			name:    "register panic",
			modules: []Module{&stubModule{name: "echo", calls: calls, panicOn: "register"}},
			wantErr: "OnRegister panic",
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			bot := newBotForTest(t, newMockDriver())
			closeBot(t, bot)

			err := bot.Use(context.Background(), testCase.modules...)
			if err == nil || !strings.Contains(err.Error(), testCase.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, testCase.wantErr)
			}
		})
	}
}

func TestBotRunsModuleLifecycleInOrder(t *testing.T) {
	t.Parallel()

	calls := &recorder[string]{}
	bot := newBotForTest(t, newMockDriver())
	if err := bot.Use(
		context.Background(),
		&stubModule{name: "first", calls: calls},
		&stubModule{name: "second", calls: calls},
	); err != nil {
		t.Fatalf("use failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- bot.Run(ctx)
	}()
	waitForLogin(t, bot)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}

	want := []string{
		"first.register",
		"second.register",
		"first.start",
		"second.start",
		"second.shutdown",
		"first.shutdown",
	}
	if diff := cmp.Diff(want, calls.snapshot()); diff != "" {
		t.Fatalf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestBotRunStopsStartedModulesWhenStartFails(t *testing.T) {
	t.Parallel()

	calls := &recorder[string]{}
	bot := newBotForTest(t, newMockDriver())
	if err := bot.Use(
		context.Background(),
		&stubModule{name: "first", calls: calls},
		&stubModule{name: "second", calls: calls, startErr: errors.New("port in use")},
		&stubModule{name: "third", calls: calls},
	); err != nil {
		t.Fatalf("use failed: %v", err)
	}

	err := bot.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "start module second") {
		t.Fatalf("run error = %v, want start failure of second", err)
	}

	want := []string{
		"first.register",
		"second.register",
		"third.register",
		"first.start",
		"second.start",
		"first.shutdown",
	}
	if diff := cmp.Diff(want, calls.snapshot()); diff != "" {
		t.Fatalf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestNewBotNamesDefaultListener(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		options []Option
		check   func(string) bool
	}{
		{
			name:    "explicit",
			options: []Option{WithName("echo-bot")},
			check:   func(name string) bool { return name == "echo-bot" },
		},
		{
			name:  "generated",
			check: func(name string) bool { return strings.HasPrefix(name, "wechaty-") },
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			bot := newBotForTest(t, newMockDriver(), testCase.options...)
			closeBot(t, bot)

			if !testCase.check(bot.Name()) {
				t.Fatalf("bot listener name = %q", bot.Name())
			}
		})
	}
}

func TestNewBotRejectsNilDriver(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, WithLogger(discardLogger())); err == nil {
		t.Fatal("new bot with nil driver succeeded, want error")
	}
}
