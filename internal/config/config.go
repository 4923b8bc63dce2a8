// Package config provides YAML-based configuration loading for Leadyard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level Leadyard configuration, loaded from leadyard.yaml.
type Config struct {
	Timezone        string              `yaml:"timezone"`
	DefaultLanguage string              `yaml:"default_language"`
	Admins          []string            `yaml:"admins"`    // identities allowed to run operator commands
	Operators       []string            `yaml:"operators"` // notification recipients
	Services        map[string][]string `yaml:"services"`  // per-language catalog override
	Database        DatabaseConfig      `yaml:"database"`
	Classifier      ClassifierConfig    `yaml:"classifier"`
	Intake          IntakeConfig        `yaml:"intake"`
	Escalation      EscalationConfig    `yaml:"escalation"`
	Notify          NotifyConfig        `yaml:"notify"`
	Telegraph       TelegraphConfig     `yaml:"telegraph"`
	Dashboard       DashboardConfig     `yaml:"dashboard"`
	Events          EventsConfig        `yaml:"events"`
}

// DatabaseConfig selects the storage engine backing the lead store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ClassifierConfig holds the urgency keyword lists.
type ClassifierConfig struct {
	HotKeywords  []string `yaml:"hot_keywords"`
	WarmKeywords []string `yaml:"warm_keywords"`
}

// IntakeConfig tunes the conversation layer.
type IntakeConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// EscalationConfig tunes the reminder scheduler.
type EscalationConfig struct {
	Interval    time.Duration `yaml:"interval"`
	FirstAfter  time.Duration `yaml:"first_after"`
	SecondAfter time.Duration `yaml:"second_after"`
	Lock        LockConfig    `yaml:"lock"`
}

// LockConfig enables the optional Redis single-runner lock.
type LockConfig struct {
	RedisURL string        `yaml:"redis_url"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
}

// NotifyConfig tunes operator notification delivery.
type NotifyConfig struct {
	Language string        `yaml:"language"`
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
	Email    EmailConfig   `yaml:"email"`
}

// EmailConfig holds SMTP settings for email:<addr> recipients.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// TelegraphConfig configures the chat platform bridge.
type TelegraphConfig struct {
	Platform string        `yaml:"platform"` // "slack" or "discord"
	Channel  string        `yaml:"channel"`  // operator channel
	Slack    SlackConfig   `yaml:"slack"`
	Discord  DiscordConfig `yaml:"discord"`
	Digest   DigestConfig  `yaml:"digest"`
}

// SlackConfig holds Slack Socket Mode tokens.
type SlackConfig struct {
	AppToken string `yaml:"app_token"`
	BotToken string `yaml:"bot_token"`
}

// DiscordConfig holds the Discord bot token.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
}

// DigestConfig schedules the daily statistics digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// DashboardConfig configures the operator HTTP API.
type DashboardConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

// EventsConfig configures the optional AMQP event publisher.
type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// Load reads a YAML config file from path, overlays environment secrets
// and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return finish(cfg)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "leadyard.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Database == "" {
			c.Database.Database = "leadyard"
		}
	}
	if len(c.Classifier.HotKeywords) == 0 {
		c.Classifier.HotKeywords = []string{"urgent", "asap", "immediately", "срочно", "важно", "быстро"}
	}
	if len(c.Classifier.WarmKeywords) == 0 {
		c.Classifier.WarmKeywords = []string{"soon", "planning", "interested", "скоро", "планирую", "интересует"}
	}
	if c.Intake.IdleTimeout == 0 {
		c.Intake.IdleTimeout = 30 * time.Minute
	}
	if c.Escalation.Interval == 0 {
		c.Escalation.Interval = 10 * time.Minute
	}
	if c.Escalation.FirstAfter == 0 {
		c.Escalation.FirstAfter = time.Hour
	}
	if c.Escalation.SecondAfter == 0 {
		c.Escalation.SecondAfter = 24 * time.Hour
	}
	if c.Escalation.Lock.Key == "" {
		c.Escalation.Lock.Key = "leadyard:escalation"
	}
	if c.Escalation.Lock.TTL == 0 {
		c.Escalation.Lock.TTL = 5 * time.Minute
	}
	if c.Notify.Language == "" {
		c.Notify.Language = c.DefaultLanguage
	}
	if c.Notify.Attempts == 0 {
		c.Notify.Attempts = 3
	}
	if c.Notify.Backoff == 0 {
		c.Notify.Backoff = 500 * time.Millisecond
	}
	if c.Notify.Email.Port == 0 {
		c.Notify.Email.Port = 587
	}
	if c.Telegraph.Digest.Cron == "" {
		c.Telegraph.Digest.Cron = "0 9 * * *"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "leadyard.events"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is invalid", c.Timezone))
	}
	if len(c.Operators) == 0 {
		errs = append(errs, "at least one operator recipient is required")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Escalation.Interval < 0 {
		errs = append(errs, "escalation.interval must be positive")
	}
	if c.Escalation.FirstAfter < 0 || c.Escalation.SecondAfter < 0 {
		errs = append(errs, "escalation thresholds must be positive")
	}
	if c.Escalation.SecondAfter <= c.Escalation.FirstAfter {
		errs = append(errs, "escalation.second_after must be greater than escalation.first_after")
	}
	if c.Notify.Attempts < 0 {
		errs = append(errs, "notify.attempts must not be negative")
	}
	for lang, services := range c.Services {
		if len(services) == 0 {
			errs = append(errs, fmt.Sprintf("services.%s must list at least one service", lang))
		}
	}
	switch c.Telegraph.Platform {
	case "":
	case "slack":
		if c.Telegraph.Slack.AppToken == "" || c.Telegraph.Slack.BotToken == "" {
			errs = append(errs, "telegraph.slack.app_token and telegraph.slack.bot_token are required")
		}
	case "discord":
		if c.Telegraph.Discord.BotToken == "" {
			errs = append(errs, "telegraph.discord.bot_token is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("telegraph.platform %q is not supported (slack, discord)", c.Telegraph.Platform))
	}
	if c.Telegraph.Digest.Enabled {
		if _, err := cron.ParseStandard(c.Telegraph.Digest.Cron); err != nil {
			errs = append(errs, fmt.Sprintf("telegraph.digest.cron %q is invalid: %v", c.Telegraph.Digest.Cron, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location returns the configured time zone. Callers rely on validate
// having rejected unknown zones.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdmin reports whether identity may run operator commands.
func (c *Config) IsAdmin(identity string) bool {
	for _, a := range c.Admins {
		if a == identity {
			return true
		}
	}
	return false
}
