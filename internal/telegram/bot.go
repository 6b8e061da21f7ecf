package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"calbot/internal/calendar"
	"calbot/internal/config"
	"calbot/internal/database"
	"calbot/internal/enrollment"
	"calbot/internal/formatter"
)

// Bot represents the Telegram bot
type Bot struct {
	bot       *bot.Bot
	db        *database.DB
	machine   *enrollment.Machine
	gateway   calendar.Gateway
	formatter *formatter.EventFormatter
	limiter   *rate.Limiter
	logger    *slog.Logger
	config    *config.Config
}

// BotDeps dependencies for creating a bot
type BotDeps struct {
	Config    *config.Config
	DB        *database.DB
	Machine   *enrollment.Machine
	Gateway   calendar.Gateway
	Formatter *formatter.EventFormatter
	Logger    *slog.Logger
}

// NewBot creates a new Telegram bot
func NewBot(deps BotDeps) (*Bot, error) {
	b := &Bot{
		db:        deps.DB,
		machine:   deps.Machine,
		gateway:   deps.Gateway,
		formatter: deps.Formatter,
		logger:    deps.Logger.With("component", "telegram_bot"),
		config:    deps.Config,
		// Telegram throttles bots around 30 messages per second overall
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
	}

	tgBot, err := bot.New(deps.Config.TelegramToken, opts...)
	if err != nil {
		return nil, err
	}

	b.bot = tgBot
	b.registerHandlers()

	return b, nil
}

// registerHandlers registers command handlers
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/next", bot.MatchTypePrefix, b.handleNext)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, b.handleCancel)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, b.handleCallback)
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("starting telegram bot")
	b.bot.Start(ctx)
}

// SendPlain delivers a plain-text message to a chat, rate-limited. This is
// the notification sink the sync scheduler writes to. No parse mode: event
// titles and descriptions are untrusted free text.
func (b *Bot) SendPlain(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}

// defaultHandler routes plain text messages into the enrollment dialog
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if update.Message.Text[0] == '/' {
		b.logger.Debug("unknown command", "text", update.Message.Text)
		return
	}

	b.handleDialogInput(ctx, update.Message.Chat.ID, update.Message.Text)
}
