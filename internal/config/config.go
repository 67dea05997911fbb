package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type TelegramConfig struct {
	Token         string `yaml:"token"`
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
	// APIEndpoint is a tgbotapi endpoint template, e.g. "https://api.telegram.org/bot%s/%s".
	APIEndpoint string `yaml:"api_endpoint"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RemindersConfig uses pointers where 0 is meaningful: a max_pending_per_chat of 0
// disables the cap and a retention_days of 0 keeps finished tasks forever.
type RemindersConfig struct {
	Timezone          string        `yaml:"timezone"`
	MaxPendingPerChat *int          `yaml:"max_pending_per_chat"`
	CleanupSchedule   string        `yaml:"cleanup_schedule"`
	RetentionDays     *int          `yaml:"retention_days"`
	SendTimeout       time.Duration `yaml:"send_timeout"`
}

const (
	defaultMaxPending    = 50
	defaultRetentionDays = 7
)

// MaxPending is the pending reminder cap per chat; 0 means no cap.
func (r RemindersConfig) MaxPending() int {
	if r.MaxPendingPerChat == nil {
		return defaultMaxPending
	}
	return *r.MaxPendingPerChat
}

// Retention is how long finished tasks are kept; 0 means forever.
func (r RemindersConfig) Retention() time.Duration {
	days := defaultRetentionDays
	if r.RetentionDays != nil {
		days = *r.RetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Reminders RemindersConfig `yaml:"reminders"`
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// fills defaults. A missing file is not an error so the bot can run from env alone.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&c.Telegram.Token, "BOT_TOKEN")
	setString(&c.Telegram.WebhookURL, "WEBHOOK_URL")
	setString(&c.Telegram.WebhookSecret, "WEBHOOK_SECRET")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "tasknova.db"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Gemini.Timeout <= 0 {
		c.Gemini.Timeout = 10 * time.Second
	}
	if c.Reminders.Timezone == "" {
		c.Reminders.Timezone = "Asia/Kolkata"
	}
	if c.Reminders.MaxPendingPerChat == nil {
		n := defaultMaxPending
		c.Reminders.MaxPendingPerChat = &n
	}
	if c.Reminders.CleanupSchedule == "" {
		c.Reminders.CleanupSchedule = "@every 1h"
	}
	if c.Reminders.RetentionDays == nil {
		n := defaultRetentionDays
		c.Reminders.RetentionDays = &n
	}
	if c.Reminders.SendTimeout <= 0 {
		c.Reminders.SendTimeout = 15 * time.Second
	}
}

// Validate checks values that would otherwise only fail at first use.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.url is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("reminders.timezone: %w", err)
	}
	if _, err := cron.ParseStandard(c.Reminders.CleanupSchedule); err != nil {
		return fmt.Errorf("reminders.cleanup_schedule: %w", err)
	}
	if c.Reminders.RetentionDays != nil && *c.Reminders.RetentionDays < 0 {
		return errors.New("reminders.retention_days must not be negative")
	}
	if c.Reminders.MaxPendingPerChat != nil && *c.Reminders.MaxPendingPerChat < 0 {
		return errors.New("reminders.max_pending_per_chat must not be negative")
	}
	return nil
}

// Location is the timezone used when showing times back to the user.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Reminders.Timezone)
}
