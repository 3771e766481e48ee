// Package config loads runtime configuration from a YAML file and the
// environment, environment winning.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Models   ModelsConfig   `mapstructure:"models"`
	Objects  ObjectsConfig  `mapstructure:"objects"`
	Mail     MailConfig     `mapstructure:"mail"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	// URL is a postgres DSN. An empty URL with a non-empty SQLitePath
	// selects SQLite, used for local development.
	URL        string `mapstructure:"url"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// AuthConfig configures token issuance and the bootstrap admin account.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminEmail    string        `mapstructure:"admin_email"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// ModelsConfig holds provider API keys and catalog settings.
type ModelsConfig struct {
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	CatalogTTL      time.Duration `mapstructure:"catalog_ttl"`
	// VisionProvider picks the backend used for image file analysis.
	VisionProvider string `mapstructure:"vision_provider"`
	VisionModel    string `mapstructure:"vision_model"`
}

// ObjectsConfig configures the MinIO object store.
type ObjectsConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MailConfig holds the Gmail OAuth credentials for the mail tool.
type MailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	From         string `mapstructure:"from"`
}

// ChatConfig tunes the message pipeline.
type ChatConfig struct {
	// Timeout bounds one full turn including model and tool calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// DisplayTimezone renders run log timestamps for operators.
	DisplayTimezone string `mapstructure:"display_timezone"`
}

// Load reads configuration from the given file (optional) and environment
// variables prefixed PERSONAHUB_, with dots mapped to underscores
// (PERSONAHUB_DATABASE_URL overrides database.url).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "personahub.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_email", "admin@example.com")
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("models.catalog_ttl", 10*time.Minute)
	v.SetDefault("models.vision_provider", "openai")
	v.SetDefault("models.vision_model", "gpt-4o-mini")
	v.SetDefault("objects.endpoint", "localhost:9000")
	v.SetDefault("objects.bucket", "personahub-files")
	v.SetDefault("objects.use_ssl", false)
	v.SetDefault("chat.timeout", 2*time.Minute)
	v.SetDefault("chat.display_timezone", "Asia/Kolkata")

	v.SetEnvPrefix("PERSONAHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// DisplayLocation resolves the configured display timezone, falling back to
// UTC when the name does not resolve.
func (c *Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.Chat.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
