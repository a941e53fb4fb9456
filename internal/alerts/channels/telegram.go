package channels

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"optix/internal/adapters/ratelimit"
	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

// Sender is the part of *tgbotapi.BotAPI the channel needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts HTML alert messages to one chat
type Telegram struct {
	bot     Sender
	chatID  int64
	limiter *ratelimit.Limiter
	now     func() time.Time
	log     *logger.Logger
}

// NewTelegramBot authorizes token and returns the bot API client
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	return api, nil
}

// NewTelegram creates a telegram channel. Telegram allows about 20 messages
// per minute into a single group.
func NewTelegram(bot Sender, chatID int64) *Telegram {
	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		limiter: ratelimit.NewLimiter("telegram", 20.0/60.0, 3),
		now:     time.Now,
		log:     logger.Component("alert_telegram"),
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, a alert.Alert) alerts.DeliveryResult {
	if err := t.limiter.Wait(ctx); err != nil {
		return alerts.Failed(t.Name(), a, 0, err)
	}

	msg := tgbotapi.NewMessage(t.chatID, RenderHTML(a, t.now()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		t.log.Errorw("Failed to send alert", "chat_id", t.chatID, "alert_id", a.ID, "error", err)
		return alerts.Failed(t.Name(), a, 1, errors.Tag(errors.ErrDeliveryFailed, err))
	}
	return alerts.Delivered(t.Name(), a, 1)
}
