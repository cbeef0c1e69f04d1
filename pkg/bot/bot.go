package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const defaultPollTimeout = 30

// Bot runs the Telegram long-polling loop and forwards messages to the
// dispatcher.
type Bot struct {
	api         *tgbotapi.BotAPI
	dispatcher  *Dispatcher
	logger      *zap.Logger
	pollTimeout int
}

// Option configures a Bot.
type Option func(*Bot)

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(b *Bot) {
		if seconds > 0 {
			b.pollTimeout = seconds
		}
	}
}

// WithDebug enables Telegram API request logging.
func WithDebug(debug bool) Option {
	return func(b *Bot) {
		b.api.Debug = debug
	}
}

// New authenticates against the Telegram API and creates the bot.
func New(token string, dispatcher *Dispatcher, logger *zap.Logger, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate bot: %w", err)
	}

	b := &Bot{
		api:         api,
		dispatcher:  dispatcher,
		logger:      logger,
		pollTimeout: defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	logger.Info("Bot authenticated", zap.String("username", api.Self.UserName))
	return b, nil
}

// Run polls for updates until the context is cancelled. Messages are handled
// sequentially in arrival order.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Bot shutting down")
			return nil
		case update := <-updates:
			msg := update.Message
			if msg == nil || msg.Text == "" {
				continue
			}

			b.dispatcher.Dispatch(ctx, msg.Text, func(text string) {
				reply := tgbotapi.NewMessage(msg.Chat.ID, text)
				if _, err := b.api.Send(reply); err != nil {
					b.logger.Error("Failed to send reply",
						zap.Int64("chat_id", msg.Chat.ID),
						zap.Error(err))
				}
			})
		}
	}
}
