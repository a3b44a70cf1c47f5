package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/partnerdesk/partnerbot/internal/bot/conversation"
)

// NewTextHandler returns the default handler for everything the command and
// callback registrations do not match: reply-keyboard buttons, shared
// contacts, and free text feeding the active sub-flow.
func NewTextHandler(deps HandlerDeps) bot.HandlerFunc {
	return textHandler{deps}.Handle
}

type textHandler struct {
	deps HandlerDeps
}

func (h textHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "text")

	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	var outcome conversation.Outcome
	var err error

	switch {
	case update.Message.Contact != nil:
		// A shared contact carries the phone for the consultation flow.
		outcome, err = h.deps.Machine.Input(ctx, userID, update.Message.Contact.PhoneNumber)
	case update.Message.Text == btnDocuments:
		outcome, err = h.deps.Machine.Documents(ctx, userID)
	case update.Message.Text == btnConsultation:
		outcome, err = h.deps.Machine.Consultation(ctx, userID)
	default:
		outcome, err = h.deps.Machine.Input(ctx, userID, update.Message.Text)
	}

	if err != nil {
		log.ErrorContext(ctx, "Text event failed", "error", err, "user_id", userID)
	}
	respond(ctx, b, log, h.deps, chatID, outcome)
}
