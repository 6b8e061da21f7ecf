package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// sendMessage sends a dialog message to a chat
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// sendMessageWithKeyboard sends a dialog message with an inline keyboard
func (b *Bot) sendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// editMessage replaces the text of a previously sent message, dropping any
// keyboard it carried
func (b *Bot) editMessage(ctx context.Context, msg *models.Message, text string) {
	if msg == nil {
		return
	}
	_, err := b.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	})
	if err != nil {
		b.logger.Error("failed to edit message", "chat_id", msg.Chat.ID, "error", err)
	}
}

// editMessageWithKeyboard replaces the text and keyboard of a message
func (b *Bot) editMessageWithKeyboard(ctx context.Context, msg *models.Message, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg == nil {
		return
	}
	_, err := b.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		b.logger.Error("failed to edit message", "chat_id", msg.Chat.ID, "error", err)
	}
}

// answerCallback acknowledges a callback query
func (b *Bot) answerCallback(ctx context.Context, callbackID string) {
	_, err := b.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	if err != nil {
		b.logger.Error("failed to answer callback", "error", err)
	}
}
