package handlers

import (
	"github.com/go-telegram/bot/models"

	"github.com/partnerdesk/partnerbot/internal/documents"
)

// Reply keyboard button labels. The default handler matches these literally.
const (
	btnDocuments    = "📄 Документы"
	btnConsultation = "📅 Записаться на консультацию"
)

// Callback data values for inline keyboards.
const (
	cbDocuments    = "action:documents"
	cbConsultation = "action:consultation"
	cbDocPrefix    = "doc:"
	cbConsentYes   = "consent_yes"
	cbConsentNo    = "consent_no"
)

func mainKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: btnDocuments}},
			{{Text: btnConsultation}},
		},
		ResizeKeyboard: true,
	}
}

func consentKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Согласен", CallbackData: cbConsentYes},
				{Text: "❌ Не согласен", CallbackData: cbConsentNo},
			},
		},
	}
}

func phoneKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: "📱 Поделиться контактом", RequestContact: true}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

func documentsKeyboard(docs []documents.Descriptor) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: d.Title, CallbackData: cbDocPrefix + d.ID},
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
