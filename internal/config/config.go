// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server needs to run. Values come from
// environment variables; a local .env file is honored when present.
type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	GoogleClientID     string `env:"AUTH_GOOGLE_ID"`
	GoogleClientSecret string `env:"AUTH_GOOGLE_SECRET"`
	GitHubClientID     string `env:"AUTH_GITHUB_ID"`
	GitHubClientSecret string `env:"AUTH_GITHUB_SECRET"`

	GitHubOwner string `env:"GITHUB_OWNER" envDefault:"chrisschwer"`
	GitHubRepo  string `env:"GITHUB_REPO" envDefault:"CS-Style-Guides"`
	GitHubToken string `env:"GITHUB_TOKEN"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	MailFromName   string `env:"MAIL_FROM_NAME" envDefault:"KI Style Guides"`
	MailFromAddr   string `env:"MAIL_FROM_ADDR" envDefault:"noreply@ki-styleguides.de"`

	ExclusionsFile string        `env:"CONTRIBUTORS_EXCLUSIONS_FILE" envDefault:".contributors-exclusions"`
	CacheDir       string        `env:"CACHE_DIR" envDefault:".cache"`
	CacheTTL       time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	VersionsFile  string `env:"VERSIONS_FILE" envDefault:"versions.json"`
	StyleguideDir string `env:"STYLEGUIDE_DIR" envDefault:"Styleguides"`

	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"false"`
}

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// GoogleEnabled reports whether Google OAuth credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GitHubEnabled reports whether GitHub OAuth credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
