// Package notify announces community events to the moderation Telegram chat.
// Delivery is best effort: failures are logged and never reach the caller.
package notify

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"storyforge.app/api/internal/config"
)

// Publication describes a new gallery item.
type Publication struct {
	ItemID   int64
	ItemType string
	Title    string
	UserID   string
	ImageURL string
}

type Notifier interface {
	Published(ctx context.Context, p Publication)
}

// New returns the Telegram notifier when configured, a no-op otherwise.
func New(cfg *config.Config) (Notifier, error) {
	if !cfg.TelegramEnabled() {
		return Noop{}, nil
	}
	bot, err := telego.NewBot(cfg.TelegramBotToken, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{sender: bot, chatID: cfg.TelegramModerationChatID, timeout: 10 * time.Second}, nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Published(context.Context, Publication) {}

// messageSender is the part of *telego.Bot the notifier uses.
type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

type Telegram struct {
	sender  messageSender
	chatID  int64
	timeout time.Duration
}

// Published sends asynchronously so publishing never waits on Telegram.
func (t *Telegram) Published(ctx context.Context, p Publication) {
	msg := tu.Message(tu.ID(t.chatID), formatPublication(p)).WithParseMode(telego.ModeHTML)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		if _, err := t.sender.SendMessage(sendCtx, msg); err != nil {
			log.WithFields(log.Fields{
				"item_id": p.ItemID,
				"chat_id": t.chatID,
			}).WithError(err).Warn("Moderation notification failed")
		}
	}()
}

func formatPublication(p Publication) string {
	text := fmt.Sprintf("<b>New gallery item</b> #%d\n%s: %s\nby <code>%s</code>",
		p.ItemID, html.EscapeString(p.ItemType), html.EscapeString(p.Title), html.EscapeString(p.UserID))
	if p.ImageURL != "" && len(p.ImageURL) < 2048 && p.ImageURL[:4] == "http" {
		text += fmt.Sprintf("\n<a href=\"%s\">image</a>", html.EscapeString(p.ImageURL))
	}
	return text
}
