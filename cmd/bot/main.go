// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/partnerdesk/partnerbot/internal/bitrix"
	"github.com/partnerdesk/partnerbot/internal/bot"
	"github.com/partnerdesk/partnerbot/internal/bot/conversation"
	"github.com/partnerdesk/partnerbot/internal/bot/handlers"
	"github.com/partnerdesk/partnerbot/internal/bot/tasks"
	"github.com/partnerdesk/partnerbot/internal/config"
	"github.com/partnerdesk/partnerbot/internal/database"
	"github.com/partnerdesk/partnerbot/internal/documents"
	"github.com/partnerdesk/partnerbot/internal/logger"
	"github.com/partnerdesk/partnerbot/internal/telegram"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// CRM client, bot, scheduler), handles graceful shutdown, and returns an exit
// code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	crmClient, err := bitrix.NewClient(bitrix.Config{
		WebhookURL: cfg.Bitrix.WebhookURL,
		Timeout:    cfg.Bitrix.Timeout,
		Fields: bitrix.Fields{
			ContactCode:     cfg.Bitrix.Fields.ContactCode,
			CompanyCode:     cfg.Bitrix.Fields.CompanyCode,
			DealPartnerRef:  cfg.Bitrix.Fields.DealPartnerRef,
			LeadPartnerRef:  cfg.Bitrix.Fields.LeadPartnerRef,
			DealPartnerCode: cfg.Bitrix.Fields.DealPartnerCode,
		},
	}, log)
	if err != nil {
		log.Error("Failed to initialize CRM client", "error", err)
		return 1
	}

	catalog, err := documents.Load(cfg.Documents.Path)
	if err != nil {
		log.Error("Failed to load document catalog", "path", cfg.Documents.Path, "error", err)
		return 1
	}
	log.Info("Document catalog loaded", "count", len(catalog.All()))

	submitter := bot.NewCRMSubmitter(crmClient, bitrix.EntityKind(cfg.Bitrix.EntityKind))
	machine := conversation.NewMachine(conversation.NewMemorySessions(), store, submitter, catalog, log)

	hDeps := handlers.HandlerDeps{
		Logger:  log,
		Config:  cfg,
		Machine: machine,
	}
	tDeps := tasks.TaskDeps{
		Logger:    log,
		Store:     store,
		Submitter: submitter,
		Config:    cfg,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewTextHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllHandlers(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, cfg, db, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
