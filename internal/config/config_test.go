package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 5, cfg.Sync.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Sync.ResyncInterval)
	assert.Equal(t, time.Second, cfg.Outbox.PollInterval)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STOCKSYNC_SERVER_PORT", "9090")
	t.Setenv("STOCKSYNC_SYNC_MAX_ATTEMPTS", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Sync.MaxAttempts)
}

func TestLoadEnvOnlyRedisAndAdapterKeys(t *testing.T) {
	t.Setenv("STOCKSYNC_REDIS_ADDR", "redis-prod:6379")
	t.Setenv("STOCKSYNC_REDIS_DB", "3")
	t.Setenv("STOCKSYNC_ADAPTERS_OZON_CLIENT_ID", "client-42")
	t.Setenv("STOCKSYNC_ADAPTERS_OZON_API_KEY", "secret-key")
	t.Setenv("STOCKSYNC_ADAPTERS_WILDBERRIES_TOKEN", "wb-token")
	t.Setenv("STOCKSYNC_ADAPTERS_YANDEX_MARKET_CAMPAIGN_ID", "77")
	t.Setenv("STOCKSYNC_ADAPTERS_LOCAL_SITE_BASE_URL", "http://shop.internal")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "redis-prod:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "client-42", cfg.Adapters.Ozon.ClientID)
	assert.Equal(t, "secret-key", cfg.Adapters.Ozon.APIKey)
	assert.Equal(t, "wb-token", cfg.Adapters.Wildberries.Token)
	assert.Equal(t, "77", cfg.Adapters.YandexMarket.CampaignID)
	assert.Equal(t, "http://shop.internal", cfg.Adapters.LocalSite.BaseURL)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyMongoURI(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.MongoDB.URI = ""
	require.Error(t, cfg.Validate())
}
