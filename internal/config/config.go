package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Storage backends selectable with STORAGE
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Storage        string
	DatabaseURL    string
	MigrationsPath string
	LogLevel       string
	LogFormat      string
	Port           string
	PrometheusPort string
	PublicBaseURL  string
	SecureCookies  bool
	TrustedProxies []netip.Prefix

	SessionSecret  string
	IdentitySecret string
	SessionTTL     time.Duration

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RateLimitPerMinute int

	SendGridAPIKey string
	MailFrom       string
	MailFromName   string

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	TelegramToken    string
	TelegramScanners []int64
}

// Load reads the configuration from the environment, after merging a .env
// file when one exists. Every problem is reported at once.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Storage:            strings.ToLower(getEnvOrDefault("STORAGE", StoragePostgres)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MigrationsPath:     getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "text"),
		Port:               getEnvOrDefault("PORT", "8080"),
		PrometheusPort:     getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		IdentitySecret:     os.Getenv("IDENTITY_SECRET"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		SendGridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
		MailFrom:           os.Getenv("MAIL_FROM"),
		MailFromName:       getEnvOrDefault("MAIL_FROM_NAME", "ResidentHub"),
		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
	}
	cfg.PublicBaseURL = strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")
	cfg.SecureCookies = strings.HasPrefix(cfg.PublicBaseURL, "https://")

	var result *multierror.Error
	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			result = multierror.Append(result, errors.New("DATABASE_URL environment variable is required"))
		}
	case StorageMemory:
	default:
		result = multierror.Append(result, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage))
	}
	if cfg.SessionSecret == "" {
		result = multierror.Append(result, errors.New("SESSION_SECRET environment variable is required"))
	}
	if cfg.IdentitySecret == "" {
		result = multierror.Append(result, errors.New("IDENTITY_SECRET environment variable is required"))
	}

	var err error
	if cfg.SessionTTL, err = time.ParseDuration(getEnvOrDefault("SESSION_TTL", "720h")); err != nil || cfg.SessionTTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("SESSION_TTL must be a positive duration"))
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnvOrDefault("REDIS_DB", "0")); err != nil || cfg.RedisDB < 0 {
		result = multierror.Append(result, fmt.Errorf("REDIS_DB must be a non-negative integer"))
	}
	if cfg.RateLimitPerMinute, err = strconv.Atoi(getEnvOrDefault("RATE_LIMIT_PER_MINUTE", "30")); err != nil || cfg.RateLimitPerMinute <= 0 {
		result = multierror.Append(result, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be a positive integer"))
	}
	if cfg.TelegramScanners, err = parseIDs(os.Getenv("TELEGRAM_SCANNERS")); err != nil {
		result = multierror.Append(result, fmt.Errorf("TELEGRAM_SCANNERS: %w", err))
	}
	if cfg.TrustedProxies, err = parsePrefixes(os.Getenv("TRUSTED_PROXIES")); err != nil {
		result = multierror.Append(result, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if cfg.SendGridAPIKey != "" && cfg.MailFrom == "" {
		result = multierror.Append(result, errors.New("MAIL_FROM is required when SENDGRID_API_KEY is set"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EmailEnabled reports whether pass emails can be sent
func (c *Config) EmailEnabled() bool {
	return c.SendGridAPIKey != ""
}

// WhatsAppEnabled reports whether WhatsApp passes can be sent
func (c *Config) WhatsAppEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppFrom != ""
}

// RedisEnabled reports whether rate limits are shared through Redis
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// parseIDs parses a comma-separated list of Telegram user ids
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parsePrefixes parses a comma-separated list of IPs and CIDR ranges
func parsePrefixes(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q", part)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("invalid IP %q", part)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
