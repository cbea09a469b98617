package dingdong

import (
	"context"
	"fmt"
	"log/slog"

	"ex-wechaty/pkg/puppet"
	"ex-wechaty/pkg/wechaty"
)

const (
	dingText = "ding"
	dongText = "dong"
)

// Module replies "dong" to every "ding" text message sent by someone else.
type Module struct {
	logger *slog.Logger
}

// New creates a ding-dong module with default configuration.
func New() *Module {
	return &Module{logger: slog.Default()}
}

// Name returns the stable module identifier.
func (m *Module) Name() string {
	return "dingdong"
}

// OnRegister installs the module handlers on the default listener of bot.
func (m *Module) OnRegister(_ context.Context, bot *wechaty.Bot) error {
	if bot == nil {
		return fmt.Errorf("dingdong register: nil bot")
	}

	m.logger = bot.Context().Logger().With("module", m.Name())
	bot.OnScan(m.handleScan)
	bot.OnLogin(m.handleLogin)
	bot.OnLogout(m.handleLogout)
	bot.OnMessage(m.handleMessage)

	return nil
}

// OnStart starts the module lifecycle.
func (m *Module) OnStart(_ context.Context) error {
	return nil
}

// OnShutdown stops the module lifecycle.
func (m *Module) OnShutdown(_ context.Context) error {
	return nil
}

func (m *Module) handleScan(ctx context.Context, scan puppet.Scan, _ *wechaty.Context) {
	m.logger.InfoContext(ctx, "scan to log in", "status", scan.Status, "qrcode", scan.QRCode)
}

func (m *Module) handleLogin(ctx context.Context, self *wechaty.ContactSelf, _ *wechaty.Context) {
	m.logger.InfoContext(ctx, "logged in", "contact", self.String(), "id", self.ID())
}

func (m *Module) handleLogout(ctx context.Context, self *wechaty.ContactSelf, _ *wechaty.Context) {
	m.logger.InfoContext(ctx, "logged out", "contact", self.String(), "id", self.ID())
}

func (m *Module) handleMessage(ctx context.Context, message *wechaty.Message, _ *wechaty.Context) {
	if reason := discardReason(message.IsSelf(), message.Type(), message.Text()); reason != "" {
		m.logger.DebugContext(ctx, "message discarded",
			"message", message.String(),
			"reason", reason,
		)
		return
	}

	if _, err := message.Say(ctx, dongText); err != nil {
		m.logger.ErrorContext(ctx, "dingdong reply failed", "message_id", message.ID(), "error", err)
		return
	}
	m.logger.InfoContext(ctx, "replied dong", "message_id", message.ID())
}

// discardReason explains why a message gets no reply, or returns "".
func discardReason(self bool, messageType puppet.MessageType, text string) string {
	switch {
	case self:
		return "sent by self"
	case messageType != puppet.MessageTypeText:
		return "not a text message"
	case text != dingText:
		return "text is not ding"
	default:
		return ""
	}
}

var _ wechaty.Module = (*Module)(nil)
