package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"calbot/internal/calendar"
	"calbot/internal/database"
	"calbot/internal/enrollment"
	"calbot/internal/formatter"
	appmodels "calbot/pkg/models"
)

const (
	upcomingWindow = 30 * 24 * time.Hour
	upcomingLimit  = 3
)

const instructionsText = `Отлично! Для подключения к вашему календарю нам понадобятся следующие данные:

📋 Инструкция по получению App-Specific Password:

1. Перейдите на https://appleid.apple.com
2. Войдите в свой аккаунт Apple ID
3. В разделе 'Безопасность' найдите 'Пароли приложений'
4. Создайте новый пароль приложения для 'Другое' или 'Почта'
5. Скопируйте сгенерированный пароль (16 символов без пробелов)

⚠️ Важно: Используйте именно App-Specific Password, а не обычный пароль!

Готовы предоставить данные? Нажмите кнопку ниже.`

const enrolledText = `✅ Отлично! Данные успешно сохранены и календарь подключен.

Теперь я буду автоматически проверять ваш календарь и отправлять уведомления о новых событиях.

Доступные команды:
/next - показать ближайшие 3 события
/start - обновить настройки`

const verifyFailedText = `❌ Ошибка при подключении к календарю.

Проверьте правильность Apple ID и App-Specific Password.
Попробуйте отправить Apple ID снова:`

const askUsernameText = "Пожалуйста, отправьте ваш Apple ID (email):"

// handleStart handles /start: menu for enrolled chats, consent question
// for everyone else
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	prompt, account, err := b.machine.Start(ctx, chatID)
	if err != nil {
		b.logger.Error("failed to start enrollment", "chat_id", chatID, "error", err)
		b.sendMessage(ctx, chatID, "Произошла ошибка, попробуйте позже.")
		return
	}

	switch prompt {
	case enrollment.PromptMenu:
		text := fmt.Sprintf("Привет! Ваш календарь уже настроен.\n\nApple ID: %s\n\nЧто вы хотите сделать?",
			account.CalDAVUsername.String)
		b.sendMessageWithKeyboard(ctx, chatID, text, formatter.BuildMenuKeyboard())
	case enrollment.PromptConsent:
		text := "Привет! Я бот для мониторинга событий из Apple Calendar.\n\n" +
			"Хотите ли Вы получать события из своего календаря в этом чате?"
		b.sendMessageWithKeyboard(ctx, chatID, text, formatter.BuildConsentKeyboard())
	}
}

// handleCancel handles /cancel: discards the dialog session at any point
func (b *Bot) handleCancel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	b.machine.Cancel(chatID)
	b.sendMessage(ctx, chatID, "Операция отменена. Используйте /start для начала.")
}

// handleNext handles /next
func (b *Bot) handleNext(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	b.sendMessage(ctx, chatID, b.upcomingEventsText(ctx, chatID))
}

// handleCallback handles inline button callbacks
func (b *Bot) handleCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}
	b.answerCallback(ctx, callback.ID)

	chatID := callback.From.ID
	msg := callback.Message.Message

	switch appmodels.CallbackAction(callback.Data) {
	case appmodels.CallbackConsentYes:
		if b.machine.Consent(chatID, true) == enrollment.PromptInstructions {
			b.editMessageWithKeyboard(ctx, msg, instructionsText, formatter.BuildProvideKeyboard())
		}

	case appmodels.CallbackConsentNo:
		if b.machine.Consent(chatID, false) == enrollment.PromptDeclined {
			b.editMessage(ctx, msg, "Хорошо, если передумаете - просто отправьте команду /start снова.")
		}

	case appmodels.CallbackProvideData:
		if b.machine.StateOf(chatID) == enrollment.StateAwaitUsername {
			b.editMessage(ctx, msg, "Отлично! Начнем настройку.\n\n"+askUsernameText)
		}

	case appmodels.CallbackUpdateData:
		b.machine.BeginUpdate(chatID)
		b.editMessage(ctx, msg, "Давайте обновим ваши данные.\n\n"+askUsernameText)

	case appmodels.CallbackNextEvents:
		b.editMessage(ctx, msg, "Получаю события из календаря...")
		b.editMessage(ctx, msg, b.upcomingEventsText(ctx, chatID))

	default:
		b.logger.Debug("unknown callback", "data", callback.Data)
	}
}

// handleDialogInput feeds plain text into the enrollment machine and
// renders the resulting prompt
func (b *Bot) handleDialogInput(ctx context.Context, chatID int64, text string) {
	// The connectivity check on the secret step is a live network
	// round-trip; let the user know it is in progress.
	if b.machine.StateOf(chatID) == enrollment.StateAwaitSecret {
		b.sendMessage(ctx, chatID, "Проверяю подключение к календарю...")
	}

	prompt, err := b.machine.Input(ctx, chatID, text)
	if err != nil {
		b.logger.Error("enrollment input failed", "chat_id", chatID, "error", err)
		b.sendMessage(ctx, chatID, "Произошла ошибка, попробуйте позже.")
		return
	}

	switch prompt {
	case enrollment.PromptAskSecret:
		b.sendMessage(ctx, chatID, fmt.Sprintf(
			"Отлично! Apple ID: %s\n\nТеперь отправьте App-Specific Password (16 символов без пробелов):", text))
	case enrollment.PromptAskUsername:
		b.sendMessage(ctx, chatID, askUsernameText)
	case enrollment.PromptVerifyFailed:
		b.sendMessage(ctx, chatID, verifyFailedText)
	case enrollment.PromptEnrolled:
		b.sendMessage(ctx, chatID, enrolledText)
	}
}

// upcomingEventsText builds the /next reply: up to the first three events
// starting strictly after now within a 30-day window.
func (b *Bot) upcomingEventsText(ctx context.Context, chatID int64) string {
	account, err := b.db.GetAccountByChatID(ctx, chatID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && !account.Enrolled()) {
		return "❌ Календарь не настроен. Используйте /start для настройки."
	}
	if err != nil {
		b.logger.Error("failed to get account", "chat_id", chatID, "error", err)
		return "Произошла ошибка, попробуйте позже."
	}

	creds := calendar.Credentials{
		Username: account.CalDAVUsername.String,
		Password: account.CalDAVPassword.String,
		URL:      account.CalDAVURL,
	}

	now := time.Now()
	events, err := b.gateway.Events(ctx, creds, now, now.Add(upcomingWindow))
	if err != nil {
		b.logger.Error("failed to fetch upcoming events", "chat_id", chatID, "error", err)
		return fmt.Sprintf("Произошла ошибка: %v", err)
	}

	if len(events) == 0 {
		return "Событий не найдено."
	}

	var upcoming []*calendar.Event
	for i := range events {
		if events[i].StartsAt.After(now) {
			upcoming = append(upcoming, &events[i])
			if len(upcoming) == upcomingLimit {
				break
			}
		}
	}
	if len(upcoming) == 0 {
		return "Ближайших событий не найдено."
	}

	return b.formatter.FormatUpcoming(upcoming)
}
