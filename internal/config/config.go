package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"ENV"`
	DBDSN       string `mapstructure:"DB_DSN"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	TelegramToken     string `mapstructure:"TELEGRAM_TOKEN"`
	SendGridAPIKey    string `mapstructure:"SENDGRID_API_KEY"`
	SendGridFromEmail string `mapstructure:"SENDGRID_FROM_EMAIL"`
	SendGridFromName  string `mapstructure:"SENDGRID_FROM_NAME"`

	Timezone          string        `mapstructure:"TIMEZONE"`
	ReminderInterval  time.Duration `mapstructure:"REMINDER_INTERVAL"`
	ReminderLead      time.Duration `mapstructure:"REMINDER_LEAD"`
	MigrationsEnabled bool          `mapstructure:"MIGRATIONS_ENABLED"`
}

var defaults = map[string]any{
	"ENV":                 "development",
	"DB_DSN":              "",
	"HTTP_ADDR":           ":8080",
	"REDIS_ADDR":          "",
	"REDIS_PASSWORD":      "",
	"REDIS_DB":            0,
	"TELEGRAM_TOKEN":      "",
	"SENDGRID_API_KEY":    "",
	"SENDGRID_FROM_EMAIL": "",
	"SENDGRID_FROM_NAME":  "Guidance Office",
	"TIMEZONE":            "UTC",
	"REMINDER_INTERVAL":   "60s",
	"REMINDER_LEAD":       "30m",
	"MIGRATIONS_ENABLED":  true,
}

// Load читает .env (если есть), затем переменные окружения.
// Переменные окружения имеют приоритет над .env.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Println("No .env file found, using environment variables")
		} else {
			log.Println("Loaded configuration from", envFile)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required but not set")
	}
	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive, got %s", c.ReminderInterval)
	}
	if c.ReminderLead <= 0 {
		return fmt.Errorf("REMINDER_LEAD must be positive, got %s", c.ReminderLead)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location часовой пояс, в котором интерпретируются метки слотов
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EmailEnabled настроена ли отправка писем
func (c *Config) EmailEnabled() bool {
	return c.SendGridAPIKey != "" && c.SendGridFromEmail != ""
}
