package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/forwarded?parseTime=true")
	t.Setenv("ADMIN_TG_ID", "111")
	t.Setenv("OWNER_TG_ID", "222")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.TrialDays)
	assert.Equal(t, 30, cfg.SubscriptionDays)
	assert.Equal(t, ModePolling, cfg.Mode)
	assert.Equal(t, ":8080", cfg.AdminListenAddr)
	assert.Equal(t, int64(111), cfg.AdminTelegramID)
	assert.Equal(t, int64(222), cfg.OwnerTelegramID)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	assert.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN")
}

func TestLoadWebhookMode(t *testing.T) {
	setRequired(t)
	t.Setenv("BOT_MODE", "webhook")

	_, err := Load()
	assert.ErrorContains(t, err, "WEBHOOK_BASE_URL")

	t.Setenv("WEBHOOK_BASE_URL", "https://bot.example.com/")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeWebhook, cfg.Mode)
	assert.Equal(t, "https://bot.example.com", cfg.WebhookBaseURL, "trailing slash is trimmed")
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	setRequired(t)
	t.Setenv("BOT_MODE", "carrier-pigeon")

	_, err := Load()
	assert.ErrorContains(t, err, "BOT_MODE")
}
