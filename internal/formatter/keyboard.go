package formatter

import (
	"github.com/go-telegram/bot/models"

	appmodels "calbot/pkg/models"
)

// BuildConsentKeyboard creates the yes/no keyboard for the monitoring
// consent question
func BuildConsentKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "✅ Да", CallbackData: string(appmodels.CallbackConsentYes)}},
			{{Text: "❌ Нет", CallbackData: string(appmodels.CallbackConsentNo)}},
		},
	}
}

// BuildProvideKeyboard creates the single "provide data" button shown under
// the setup instructions
func BuildProvideKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "📝 Предоставить данные", CallbackData: string(appmodels.CallbackProvideData)}},
		},
	}
}

// BuildMenuKeyboard creates the menu for an already-enrolled chat
func BuildMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "🔄 Обновить данные", CallbackData: string(appmodels.CallbackUpdateData)}},
			{{Text: "📅 Ближайшие события", CallbackData: string(appmodels.CallbackNextEvents)}},
		},
	}
}
