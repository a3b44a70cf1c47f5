// Package main contains the entrypoint for the UTM partner binding webhook service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/partnerdesk/partnerbot/internal/bindsvc"
	"github.com/partnerdesk/partnerbot/internal/bitrix"
	"github.com/partnerdesk/partnerbot/internal/config"
	"github.com/partnerdesk/partnerbot/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

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

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           bindsvc.NewServer(crmClient, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting binding webhook service", "addr", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
			return 1
		}
	}

	log.Info("Binding webhook service stopped gracefully.")
	return 0
}
