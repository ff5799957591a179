// File: internal/infra/adapters/notify/telegram.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vpn-subscription/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*Telegram)(nil)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram messages admin chats about operator-relevant events.
type Telegram struct {
	bot      Sender
	adminIDs []int64
	only     map[adapter.EventCategory]struct{}
}

func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.New("telegram token empty")
	}
	return tgbotapi.NewBotAPI(token)
}

// NewTelegram notifies adminIDs. With categories given, other events are
// skipped.
func NewTelegram(bot Sender, adminIDs []int64, categories ...adapter.EventCategory) *Telegram {
	t := &Telegram{bot: bot, adminIDs: adminIDs}
	if len(categories) > 0 {
		t.only = make(map[adapter.EventCategory]struct{}, len(categories))
		for _, c := range categories {
			t.only[c] = struct{}{}
		}
	}
	return t
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, ev adapter.Event) error {
	if t.only != nil {
		if _, ok := t.only[ev.Category]; !ok {
			return nil
		}
	}
	text := formatEvent(ev)
	var errs []error
	for _, id := range t.adminIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func formatEvent(ev adapter.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(ev.Outcome), ev.Category)
	if ev.SubscriberID != "" {
		fmt.Fprintf(&b, "\nsubscriber: %s", ev.SubscriberID)
	}
	if ev.Server != "" {
		fmt.Fprintf(&b, "\nserver: %s", ev.Server)
	}
	if ev.Detail != "" {
		fmt.Fprintf(&b, "\n%s", ev.Detail)
	}
	if !ev.At.IsZero() {
		fmt.Fprintf(&b, "\nat: %s", ev.At.UTC().Format("2006-01-02 15:04:05Z"))
	}
	return b.String()
}
