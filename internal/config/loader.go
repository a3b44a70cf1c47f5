package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. The YAML file at path (optional; defaults to ./config.yaml when empty)
// 3. BOT_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine, defaults plus env still apply.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("database.path", "storage.db")

	v.SetDefault("bitrix.timeout", 30*time.Second)
	v.SetDefault("bitrix.entity_kind", "lead")
	v.SetDefault("bitrix.fields.contact_code", "UF_CRM_1763459353553")
	v.SetDefault("bitrix.fields.company_code", "UF_CRM_1763552640092")
	v.SetDefault("bitrix.fields.deal_partner_ref", "UF_CRM_691F06D06BCAE")
	v.SetDefault("bitrix.fields.lead_partner_ref", "UF_CRM_1763569075")
	v.SetDefault("bitrix.fields.deal_partner_code", "UF_CRM_PARTNER_CODE")

	v.SetDefault("server.addr", ":8002")

	v.SetDefault("scheduler.tasks.consultation_resubmit.enabled", false)
	v.SetDefault("scheduler.tasks.consultation_resubmit.schedule", "0 */10 * * * *")

	v.SetDefault("messages.usage", "Используйте /start <код_партнера> для начала работы.")
	v.SetDefault("messages.welcome", "Привет! Вы пришли от партнера с кодом %s. Выберите действие:")
	v.SetDefault("messages.already_registered", "Вы уже зарегистрированы. Используйте кнопки ниже для действий.")
	v.SetDefault("messages.docs_unavailable", "Документы не настроены.")
	v.SetDefault("messages.docs_prompt", "Выберите документ:")
	v.SetDefault("messages.doc_missing", "Документ не найден.")
	v.SetDefault("messages.whats_next", "Что дальше?")
	v.SetDefault("messages.ask_consent",
		"Для записи на консультацию нужно предоставить персональные данные (имя, телефон). "+
			"Вы согласны на обработку данных в соответствии с политикой конфиденциальности?")
	v.SetDefault("messages.consent_declined", "Запись отменена. Выберите другое действие:")
	v.SetDefault("messages.ask_name", "Введите ваше имя:")
	v.SetDefault("messages.name_invalid", "Имя должно содержать 2-50 символов (буквы, пробелы, дефис). Попробуйте снова.")
	v.SetDefault("messages.ask_phone", "Введите номер телефона (можно поделиться контактом):")
	v.SetDefault("messages.phone_invalid", "Неверный формат телефона. Укажите 10-15 цифр.")
	v.SetDefault("messages.submitted", "Заявка создана! Номер заявки в CRM: %d\nМенеджер свяжется с вами по телефону %s.")
	v.SetDefault("messages.submit_deferred",
		"Заявка сохранена, но пока не отправлена в CRM. Менеджер свяжется с вами после обработки.")
	v.SetDefault("messages.cancelled", "Действие отменено.")
	v.SetDefault("messages.unknown", "Неизвестная команда. Используйте /start <код_партнера> для начала.")
	v.SetDefault("messages.general_error", "Произошла ошибка. Попробуйте позже.")
}
