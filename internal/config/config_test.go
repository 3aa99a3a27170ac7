package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsAndLegacyEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_IDS", "1, 2,3")
	t.Setenv("PRICE_UAH", "150")
	t.Setenv("SALES_ENABLED", "false")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, []int64{1, 2, 3}, cfg.Bot.AdminIDs)
	assert.Equal(t, int64(150), cfg.Guide.PriceUAH)
	assert.Equal(t, int64(699), cfg.Guide.OldPriceUAH)
	assert.Equal(t, 0.55, cfg.Guide.UAHPerStar)
	assert.Equal(t, "guide_500", cfg.Guide.Payload)
	assert.False(t, cfg.Guide.SalesEnabled)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("logs", "app.log"), cfg.Storage.LogFile())
	assert.Equal(t, time.Second, cfg.Jobs.OutboxInterval)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bot:
  token: file-token
  admin_ids: [10, 20]
guide:
  url: https://example.com/guide.pdf
kafka:
  enabled: true
  brokers: ["kafka:9092"]
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Bot.Token)
	assert.Equal(t, []int64{10, 20}, cfg.Bot.AdminIDs)
	assert.Equal(t, "https://example.com/guide.pdf", cfg.Guide.URL)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "payment_events", cfg.Kafka.Topic.PaymentEvents)
}

func TestLoadConfigRequiresToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, ErrMissingBotToken)
}

func TestParseIDsRejectsGarbage(t *testing.T) {
	_, err := parseIDs("1,x")
	assert.Error(t, err)
}
