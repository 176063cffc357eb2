package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Campaign.BatchSize)
	assert.Equal(t, 0.9, cfg.Campaign.SuccessProbability)
	assert.Equal(t, time.Minute, cfg.Campaign.EngagementDelay)
	assert.Equal(t, 10*time.Second, cfg.Vendor.CallTimeout)
	assert.Equal(t, StorageMongoDB, cfg.Storage)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("CAMPAIGN_BATCHSIZE", "25")
	t.Setenv("STORAGE", "memory")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	assert.Equal(t, 25, cfg.Campaign.BatchSize)
	assert.Equal(t, StorageMemory, cfg.Storage)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	dir := t.TempDir()
	yaml := "campaign:\n  batchsize: 3\n  engagementdelay: 5s\nloglevel: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Campaign.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Campaign.EngagementDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_RejectsInvalidBatchSize(t *testing.T) {
	t.Setenv("CAMPAIGN_BATCHSIZE", "0")

	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "batchsize")
}

func TestLoadConfig_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig(t.TempDir())
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Vendor:   VendorConfig{Mode: "simulated", CallTimeout: time.Second, SuccessProbability: 0.95},
			Campaign: CampaignConfig{BatchSize: 10, SuccessProbability: 0.9, OpenRate: 0.8, ClickRate: 0.4},
			JWT:      JWTConfig{Secret: "test-secret"},
			Storage:  StorageMemory,
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Campaign.SuccessProbability = 1.5
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Vendor.Mode = "http"
	assert.ErrorContains(t, cfg.Validate(), "baseurl")

	cfg = valid()
	cfg.Vendor.Mode = "http"
	cfg.Vendor.BaseURL = "http://vendor.local"
	assert.ErrorContains(t, cfg.Validate(), "apikey")

	cfg = valid()
	cfg.JWT.Secret = ""
	assert.ErrorContains(t, cfg.Validate(), "jwt.secret")

	cfg = valid()
	cfg.Storage = "postgres"
	assert.Error(t, cfg.Validate())
}
