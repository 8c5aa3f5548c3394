// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Secrets and tokens are
// threaded into components at construction rather than read from the
// environment inside business logic.
type Config struct {
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	Port           int           `mapstructure:"PORT"`
	DBURL          string        `mapstructure:"DB_URL"`
	GithubToken    string        `mapstructure:"GITHUB_TOKEN"`
	GithubUsername string        `mapstructure:"GITHUB_USERNAME"`
	WebhookSecret  string        `mapstructure:"GITHUB_WEBHOOK_SECRET"`
	SyncSecret     string        `mapstructure:"SYNC_SECRET"`
	ResendAPIKey   string        `mapstructure:"RESEND_API_KEY"`
	MailFrom       string        `mapstructure:"MAIL_FROM"`
	ContactEmail   string        `mapstructure:"CONTACT_EMAIL"`
	FrontendURL    string        `mapstructure:"FRONTEND_URL"`
	SyncItemDelay  time.Duration `mapstructure:"SYNC_ITEM_DELAY"`
	RepoListLimit  int           `mapstructure:"REPO_LIST_LIMIT"`
}

// LoadConfig reads configuration from a .env file and/or environment
// variables. GITHUB_TOKEN, GITHUB_WEBHOOK_SECRET, and SYNC_SECRET are
// deliberately optional: an unauthenticated GitHub client just runs under a
// lower rate ceiling, and a missing webhook secret disables signature
// verification for development.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 4000)
	viper.SetDefault("MAIL_FROM", "onboarding@resend.dev")
	viper.SetDefault("SYNC_ITEM_DELAY", "0s")
	viper.SetDefault("REPO_LIST_LIMIT", 100)

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.GithubUsername == "" {
		return nil, errors.New("GITHUB_USERNAME is a required configuration field")
	}
	if cfg.ResendAPIKey != "" && cfg.ContactEmail == "" {
		return nil, errors.New("CONTACT_EMAIL is required when RESEND_API_KEY is set")
	}
	if cfg.RepoListLimit <= 0 {
		return nil, errors.New("REPO_LIST_LIMIT must be a positive integer")
	}

	return &cfg, nil
}
