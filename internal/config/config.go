package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                   int     `env:"PORT" envDefault:"8080"`
	DatabaseURL            string  `env:"DATABASE_URL,required"`
	RedisURL               string  `env:"REDIS_URL,required"`
	WebhookSignatureSecret string  `env:"WEBHOOK_SIGNATURE_SECRET"`
	TransportBaseURL       string  `env:"TRANSPORT_BASE_URL"`
	TransportToken         string  `env:"TRANSPORT_TOKEN"`
	OpenAIAPIKey           string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL          string  `env:"OPENAI_BASE_URL" envDefault:""`
	OpenAIModel            string  `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	SessionTTLMinutes      int     `env:"SESSION_TTL_MINUTES" envDefault:"30"`
	WebChatTTLHours        int     `env:"WEBCHAT_TTL_HOURS" envDefault:"24"`
	BookingIntentThreshold float64 `env:"BOOKING_INTENT_THRESHOLD" envDefault:"0.75"`
	ReminderCronSpec       string  `env:"REMINDER_CRON_SPEC" envDefault:"0 18 * * *"`
	LogLevel               string  `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) WebChatTTL() time.Duration {
	return time.Duration(c.WebChatTTLHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}
	if c.BookingIntentThreshold < 0 || c.BookingIntentThreshold > 1 {
		return fmt.Errorf("BOOKING_INTENT_THRESHOLD must be between 0 and 1")
	}

	if isProduction {
		if err := validateSecret("WEBHOOK_SIGNATURE_SECRET", c.WebhookSignatureSecret); err != nil {
			return err
		}
		if c.OpenAIAPIKey == "" {
			log.Warn().Msg("OPENAI_API_KEY is empty in production: AI replies will use static fallbacks only")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
