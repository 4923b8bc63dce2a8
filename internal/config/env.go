package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// envPrefix namespaces the secret overrides, e.g. LEADYARD_SLACK_BOT_TOKEN.
const envPrefix = "leadyard"

// secrets are the values that should not live in leadyard.yaml. Non-empty
// environment values replace whatever the file provided.
type secrets struct {
	SlackAppToken   string `envconfig:"slack_app_token"`
	SlackBotToken   string `envconfig:"slack_bot_token"`
	DiscordBotToken string `envconfig:"discord_bot_token"`
	DatabasePass    string `envconfig:"database_password"`
	JWTSecret       string `envconfig:"jwt_secret"`
	SMTPPassword    string `envconfig:"smtp_password"`
	AMQPURL         string `envconfig:"amqp_url"`
	RedisURL        string `envconfig:"redis_url"`
}

// applyEnv loads an optional .env file and overlays secrets from the
// environment onto cfg.
func applyEnv(cfg *Config) error {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var s secrets
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return errors.WithStack(err)
	}

	override(&cfg.Telegraph.Slack.AppToken, s.SlackAppToken)
	override(&cfg.Telegraph.Slack.BotToken, s.SlackBotToken)
	override(&cfg.Telegraph.Discord.BotToken, s.DiscordBotToken)
	override(&cfg.Database.Password, s.DatabasePass)
	override(&cfg.Dashboard.JWTSecret, s.JWTSecret)
	override(&cfg.Notify.Email.Password, s.SMTPPassword)
	override(&cfg.Events.AMQPURL, s.AMQPURL)
	override(&cfg.Escalation.Lock.RedisURL, s.RedisURL)
	return nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
