package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/partnerdesk/partnerbot/internal/bot/conversation"
	"github.com/partnerdesk/partnerbot/internal/documents"
)

// respond translates a machine outcome into the configured message and
// keyboard for one chat. Handlers stay thin: they extract the event, call
// the machine, and hand the outcome here.
func respond(ctx context.Context, b *bot.Bot, log *slog.Logger, deps HandlerDeps, chatID int64, o conversation.Outcome) {
	msgs := deps.Config.Messages

	var text string
	var markup models.ReplyMarkup

	switch o.Kind {
	case conversation.OutUsage:
		text = msgs.Usage
	case conversation.OutWelcome:
		text = fmt.Sprintf(msgs.Welcome, o.PartnerCode)
		markup = mainKeyboard()
	case conversation.OutAlreadyRegistered:
		text = msgs.AlreadyRegistered
		markup = mainKeyboard()
	case conversation.OutCancelled:
		text = msgs.Cancelled
		markup = mainKeyboard()
	case conversation.OutDocsUnavailable:
		text = msgs.DocsUnavailable
	case conversation.OutDocsList:
		text = msgs.DocsPrompt
		markup = documentsKeyboard(o.Documents)
	case conversation.OutDocMissing:
		text = msgs.DocMissing
	case conversation.OutDocument:
		sendDocument(ctx, b, log, deps, chatID, o.Document)
		sendText(ctx, b, log, chatID, msgs.WhatsNext, mainKeyboard())
		return
	case conversation.OutAskConsent:
		text = msgs.AskConsent
		markup = consentKeyboard()
	case conversation.OutConsentDeclined:
		text = msgs.ConsentDeclined
		markup = mainKeyboard()
	case conversation.OutAskName:
		text = msgs.AskName
	case conversation.OutNameInvalid:
		text = msgs.NameInvalid
	case conversation.OutAskPhone:
		text = msgs.AskPhone
		markup = phoneKeyboard()
	case conversation.OutPhoneInvalid:
		text = msgs.PhoneInvalid
	case conversation.OutSubmitted:
		text = fmt.Sprintf(msgs.Submitted, o.EntityID, o.Phone)
		markup = mainKeyboard()
	case conversation.OutSubmitDeferred:
		text = msgs.SubmitDeferred
		markup = mainKeyboard()
	case conversation.OutError:
		text = msgs.GeneralError
	default:
		text = msgs.Unknown
		markup = mainKeyboard()
	}

	sendText(ctx, b, log, chatID, text, markup)
}

func sendText(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string, markup models.ReplyMarkup) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// sendDocument delivers one catalog document: text documents as a message,
// file documents as an upload.
func sendDocument(ctx context.Context, b *bot.Bot, log *slog.Logger, deps HandlerDeps, chatID int64, doc documents.Descriptor) {
	if doc.Kind == documents.KindText {
		sendText(ctx, b, log, chatID, doc.Title+"\n\n"+doc.Content, nil)
		return
	}

	f, err := os.Open(doc.Path)
	if err != nil {
		log.ErrorContext(ctx, "Failed to open document file", "error", err, "doc_id", doc.ID, "path", doc.Path)
		sendText(ctx, b, log, chatID, deps.Config.Messages.DocMissing, nil)
		return
	}
	defer f.Close()

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: filepath.Base(doc.Path), Data: f},
		Caption:  doc.Title,
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send document", "error", err, "doc_id", doc.ID, "chat_id", chatID)
	}
}

// answerCallback acknowledges a callback query so the client stops showing
// the progress indicator.
func answerCallback(ctx context.Context, b *bot.Bot, log *slog.Logger, queryID string) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: queryID})
	if err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}
}

// callbackChatID extracts the originating chat of a callback query; zero
// when the message is inaccessible.
func callbackChatID(update *models.Update) int64 {
	if update.CallbackQuery == nil || update.CallbackQuery.Message.Message == nil {
		return 0
	}
	return update.CallbackQuery.Message.Message.Chat.ID
}
