package handlers

import (
	"log/slog"

	"github.com/partnerdesk/partnerbot/internal/bot/conversation"
	"github.com/partnerdesk/partnerbot/internal/config"
)

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Machine *conversation.Machine
}
