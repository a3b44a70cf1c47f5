package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewConsultationHandler returns a callback handler opening the
// consultation flow.
func NewConsultationHandler(deps HandlerDeps) bot.HandlerFunc {
	return consultationHandler{deps}.Handle
}

// NewConsentHandler returns a callback handler for one consent answer.
func NewConsentHandler(deps HandlerDeps, yes bool) bot.HandlerFunc {
	return consentHandler{deps: deps, yes: yes}.Handle
}

type consultationHandler struct {
	deps HandlerDeps
}

func (h consultationHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "consultation")

	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, log, update.CallbackQuery.ID)

	chatID := callbackChatID(update)
	if chatID == 0 {
		log.WarnContext(ctx, "Callback without accessible message", "update_id", update.ID)
		return
	}

	outcome, err := h.deps.Machine.Consultation(ctx, update.CallbackQuery.From.ID)
	if err != nil {
		log.ErrorContext(ctx, "Consultation event failed", "error", err, "user_id", update.CallbackQuery.From.ID)
	}
	respond(ctx, b, log, h.deps, chatID, outcome)
}

type consentHandler struct {
	deps HandlerDeps
	yes  bool
}

func (h consentHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "consent")

	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, log, update.CallbackQuery.ID)

	chatID := callbackChatID(update)
	if chatID == 0 {
		log.WarnContext(ctx, "Callback without accessible message", "update_id", update.ID)
		return
	}

	userID := update.CallbackQuery.From.ID
	log.InfoContext(ctx, "Consent answer received", "user_id", userID, "consent", h.yes)

	outcome, err := h.deps.Machine.Consent(ctx, userID, h.yes)
	if err != nil {
		log.ErrorContext(ctx, "Consent event failed", "error", err, "user_id", userID)
	}
	respond(ctx, b, log, h.deps, chatID, outcome)
}
