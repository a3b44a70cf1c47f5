// Package handlers contains Telegram update handlers for the partner bot,
// along with their registration logic.
package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command. The deep-link
// payload after the command is the partner attribution code.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	// "/start CODE"; anything after the first space is the opaque code.
	code := ""
	if _, rest, found := strings.Cut(update.Message.Text, " "); found {
		code = strings.TrimSpace(rest)
	}

	log.InfoContext(ctx, "Handling /start command", "chat_id", chatID, "user_id", userID, "has_code", code != "")

	outcome, err := h.deps.Machine.Start(ctx, userID, code)
	if err != nil {
		log.ErrorContext(ctx, "Start event failed", "error", err, "user_id", userID)
	}
	respond(ctx, b, log, h.deps, chatID, outcome)
}
