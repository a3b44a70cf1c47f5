package tasks

import (
	"log/slog"

	"github.com/partnerdesk/partnerbot/internal/bot/conversation"
	"github.com/partnerdesk/partnerbot/internal/config"
	"github.com/partnerdesk/partnerbot/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Submitter conversation.Submitter
	Config    *config.Config
}
