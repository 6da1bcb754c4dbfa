package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config aggregates runtime configuration for the bot and supporting services.
type Config struct {
	BotToken          string
	MySQLDSN          string
	AdminTelegramID   int64
	OwnerTelegramID   int64
	TrialDays         int
	SubscriptionDays  int
	SubscriptionPrice string
	Mode              string
	WebhookBaseURL    string
	AdminListenAddr   string
	AdminUsername     string
	AdminPassword     string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	loadEnvFile()

	cfg := Config{
		TrialDays:         getInt("TRIAL_DAYS", 2),
		SubscriptionDays:  getInt("SUBSCRIPTION_DAYS", 30),
		SubscriptionPrice: getEnv("SUBSCRIPTION_PRICE", "150₽/месяц"),
		Mode:              strings.ToLower(getEnv("BOT_MODE", ModePolling)),
		WebhookBaseURL:    strings.TrimRight(getEnv("WEBHOOK_BASE_URL", ""), "/"),
		AdminListenAddr:   getEnv("ADMIN_LISTEN_ADDR", ":8080"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", "change-me"),
	}

	cfg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.AdminTelegramID = getInt64("ADMIN_TG_ID", 0)
	cfg.OwnerTelegramID = getInt64("OWNER_TG_ID", 0)

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.AdminTelegramID == 0 {
		missing = append(missing, "ADMIN_TG_ID")
	}
	if cfg.OwnerTelegramID == 0 {
		missing = append(missing, "OWNER_TG_ID")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if cfg.Mode != ModePolling && cfg.Mode != ModeWebhook {
		return Config{}, fmt.Errorf("unknown BOT_MODE %q, expected %q or %q", cfg.Mode, ModePolling, ModeWebhook)
	}
	if cfg.Mode == ModeWebhook && cfg.WebhookBaseURL == "" {
		return Config{}, fmt.Errorf("WEBHOOK_BASE_URL is required when BOT_MODE=webhook")
	}
	if cfg.TrialDays <= 0 {
		return Config{}, fmt.Errorf("TRIAL_DAYS must be positive, got %d", cfg.TrialDays)
	}
	if cfg.SubscriptionDays <= 0 {
		return Config{}, fmt.Errorf("SUBSCRIPTION_DAYS must be positive, got %d", cfg.SubscriptionDays)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

// loadEnvFile loads the first .env file it finds. Absence is not an error:
// in production everything comes from the real environment.
func loadEnvFile() {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err == nil {
			return
		}
	}
}
