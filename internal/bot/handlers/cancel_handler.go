package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCancelHandler returns a handler for the /cancel command.
func NewCancelHandler(deps HandlerDeps) bot.HandlerFunc {
	return cancelHandler{deps}.Handle
}

type cancelHandler struct {
	deps HandlerDeps
}

func (h cancelHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "cancel")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Cancel handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	outcome, err := h.deps.Machine.Cancel(ctx, update.Message.From.ID)
	if err != nil {
		log.ErrorContext(ctx, "Cancel event failed", "error", err, "user_id", update.Message.From.ID)
	}
	respond(ctx, b, log, h.deps, update.Message.Chat.ID, outcome)
}
