package wechaty

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/goleak"

	"ex-wechaty/internal/driver/mock"
	"ex-wechaty/pkg/puppet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	selfPayload  = puppet.ContactPayload{ID: "U1", Name: "Bot", Friend: true}
	alicePayload = puppet.ContactPayload{ID: "alice", Name: "Alice", Alias: "Al", Friend: true}
	bobPayload   = puppet.ContactPayload{ID: "bob", Name: "Bob", Friend: true}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMockDriver returns a driver seeded with the self account, alice and bob.
func newMockDriver() *mock.Driver {
	driver := mock.NewDriver(mock.WithSelf(selfPayload))
	driver.SeedContact(alicePayload)
	driver.SeedContact(bobPayload)

	return driver
}

// newBotForTest creates a bot that is closed when the test ends. Use runBot
// instead for bots that run.
func newBotForTest(t *testing.T, driver puppet.Driver, options ...Option) *Bot {
	t.Helper()

	bot, err := New(driver, append([]Option{WithLogger(discardLogger())}, options...)...)
	if err != nil {
		t.Fatalf("new bot failed: %v", err)
	}

	return bot
}

func closeBot(t *testing.T, bot *Bot) {
	t.Helper()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bot.Close(ctx); err != nil {
			t.Errorf("close bot failed: %v", err)
		}
	})
}

// runBot runs bot until the test ends.
func runBot(t *testing.T, bot *Bot) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- bot.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("bot run failed: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("bot did not stop")
		}
	})
}

// waitForLogin blocks until the bot context reports the self account.
func waitForLogin(t *testing.T, bot *Bot) {
	t.Helper()

	eventually(t, 2*time.Second, func() bool {
		return bot.Context().SelfID() == selfPayload.ID
	})
}

func eventually(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("condition not met within %s", timeout)
}
