// Package config assembles the typed application configuration from the
// environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/OrgPilot/internal/pkg/env"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Webhook  WebhookConfig
	GitHub   GitHubConfig
	Admin    AdminConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`
}

type DatabaseConfig struct {
	User        string
	Password    string
	Host        string `validate:"required"`
	Port        string `validate:"required,numeric"`
	Name        string
	AutoMigrate bool
}

// DSN returns the go-sql-driver/mysql connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// MigrateURL returns the golang-migrate database URL.
func (c DatabaseConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type CacheConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Password string
}

// Addr returns host:port.
func (c CacheConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type WebhookConfig struct {
	// Secret may be empty at boot; ingestion then answers 500.
	Secret          string
	ProcessInterval time.Duration `validate:"gte=1s"`
}

type GitHubConfig struct {
	Token               string
	Org                 string
	Enterprise          string
	APIURL              string `validate:"omitempty,url"`
	DefaultCostCenterID string
	RequestsPerSecond   float64 `validate:"gte=0"`
}

type AdminConfig struct {
	TokenHash string
}

type MetricsConfig struct {
	User     string
	Password string
}

// Load reads the configuration from the environment and validates it. Call
// env.SetupEnvFile first to include a .env file.
func Load() (*Config, error) {
	interval, err := parseDuration("WEBHOOK_PROCESS_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	rps, err := strconv.ParseFloat(env.GetEnv("GITHUB_REQUESTS_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("GITHUB_REQUESTS_PER_SECOND: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Host: env.GetEnv("APP_HOST", "localhost"),
			Port: env.GetEnv("APP_PORT", "4000"),
		},
		Database: DatabaseConfig{
			User:        env.GetEnv("DB_USER", ""),
			Password:    env.GetEnv("DB_PASSWORD", ""),
			Host:        env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:        env.GetEnv("DB_PORT", "3306"),
			Name:        env.GetEnv("DB_NAME", ""),
			AutoMigrate: parseBool(env.GetEnv("DB_AUTO_MIGRATE", "false")),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		Webhook: WebhookConfig{
			Secret:          strings.TrimSpace(env.GetEnv("WEBHOOK_SECRET", "")),
			ProcessInterval: interval,
		},
		GitHub: GitHubConfig{
			Token:               env.GetEnv("GITHUB_TOKEN", ""),
			Org:                 env.GetEnv("GITHUB_ORG", ""),
			Enterprise:          env.GetEnv("GITHUB_ENTERPRISE", ""),
			APIURL:              env.GetEnv("GITHUB_API_URL", ""),
			DefaultCostCenterID: strings.TrimSpace(env.GetEnv("DEFAULT_COST_CENTER_ID", "")),
			RequestsPerSecond:   rps,
		},
		Admin: AdminConfig{
			TokenHash: env.GetEnv("ADMIN_TOKEN_HASH", ""),
		},
		Metrics: MetricsConfig{
			User:     env.GetEnv("METRICS_USER", "admin"),
			Password: env.GetEnv("METRICS_PASSWORD", ""),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
