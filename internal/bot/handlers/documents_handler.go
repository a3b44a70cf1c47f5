package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewDocumentsHandler returns a callback handler for the document list.
func NewDocumentsHandler(deps HandlerDeps) bot.HandlerFunc {
	return documentsHandler{deps}.HandleList
}

// NewDocumentHandler returns a callback handler for a single document
// selection ("doc:<id>").
func NewDocumentHandler(deps HandlerDeps) bot.HandlerFunc {
	return documentsHandler{deps}.HandleOne
}

type documentsHandler struct {
	deps HandlerDeps
}

func (h documentsHandler) HandleList(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "documents")

	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, log, update.CallbackQuery.ID)

	chatID := callbackChatID(update)
	if chatID == 0 {
		log.WarnContext(ctx, "Callback without accessible message", "update_id", update.ID)
		return
	}

	outcome, err := h.deps.Machine.Documents(ctx, update.CallbackQuery.From.ID)
	if err != nil {
		log.ErrorContext(ctx, "Documents event failed", "error", err, "user_id", update.CallbackQuery.From.ID)
	}
	respond(ctx, b, log, h.deps, chatID, outcome)
}

func (h documentsHandler) HandleOne(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "document")

	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, log, update.CallbackQuery.ID)

	chatID := callbackChatID(update)
	if chatID == 0 {
		log.WarnContext(ctx, "Callback without accessible message", "update_id", update.ID)
		return
	}

	docID := strings.TrimPrefix(update.CallbackQuery.Data, cbDocPrefix)
	outcome, err := h.deps.Machine.Document(ctx, update.CallbackQuery.From.ID, docID)
	if err != nil {
		log.ErrorContext(ctx, "Document event failed", "error", err, "doc_id", docID)
	}
	respond(ctx, b, log, h.deps, chatID, outcome)
}
