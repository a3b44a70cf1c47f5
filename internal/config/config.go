// Package config provides configuration loading, validation, and defaults
// for the partner bot and the UTM binding service. Values come from an
// optional YAML file overridden by BOT_* environment variables.
package config

import (
	"time"
)

// Config defines the application configuration for both binaries.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bitrix    BitrixConfig    `mapstructure:"bitrix"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Server    ServerConfig    `mapstructure:"server"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot transport settings.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// BitrixConfig holds the CRM webhook endpoint and the user-field codes the
// partner integration depends on. EntityKind selects which CRM record the
// consultation flow creates.
type BitrixConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" validate:"required,url"`
	Timeout    time.Duration `mapstructure:"timeout"     validate:"min=1s,max=5m"`
	EntityKind string        `mapstructure:"entity_kind" validate:"oneof=lead deal"`
	Fields     BitrixFields  `mapstructure:"fields"`
}

// BitrixFields names the CRM user fields carrying partner attribution.
type BitrixFields struct {
	ContactCode     string `mapstructure:"contact_code"      validate:"required"`
	CompanyCode     string `mapstructure:"company_code"      validate:"required"`
	DealPartnerRef  string `mapstructure:"deal_partner_ref"  validate:"required"`
	LeadPartnerRef  string `mapstructure:"lead_partner_ref"  validate:"required"`
	DealPartnerCode string `mapstructure:"deal_partner_code" validate:"required"`
}

// DocumentsConfig points at the JSON document catalog. An empty or missing
// path yields an empty catalog.
type DocumentsConfig struct {
	Path string `mapstructure:"path"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig holds per-task schedules keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// ServerConfig holds the binding webhook service listen settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// MessagesConfig holds all user-facing bot texts.
type MessagesConfig struct {
	Usage             string `mapstructure:"usage"`
	Welcome           string `mapstructure:"welcome"`
	AlreadyRegistered string `mapstructure:"already_registered"`
	DocsUnavailable   string `mapstructure:"docs_unavailable"`
	DocsPrompt        string `mapstructure:"docs_prompt"`
	DocMissing        string `mapstructure:"doc_missing"`
	WhatsNext         string `mapstructure:"whats_next"`
	AskConsent        string `mapstructure:"ask_consent"`
	ConsentDeclined   string `mapstructure:"consent_declined"`
	AskName           string `mapstructure:"ask_name"`
	NameInvalid       string `mapstructure:"name_invalid"`
	AskPhone          string `mapstructure:"ask_phone"`
	PhoneInvalid      string `mapstructure:"phone_invalid"`
	Submitted         string `mapstructure:"submitted"`
	SubmitDeferred    string `mapstructure:"submit_deferred"`
	Cancelled         string `mapstructure:"cancelled"`
	Unknown           string `mapstructure:"unknown"`
	GeneralError      string `mapstructure:"general_error"`
}
