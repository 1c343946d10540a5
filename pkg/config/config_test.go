package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferret-index/ferret/pkg/types"
)

// TestLoadDefaults tests the configuration defaults with a clean
// environment
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, 8000, cfg.CoordinatorPort)
	assert.Equal(t, types.LanguageEnglish, cfg.Language)
	assert.Equal(t, "./uploads", cfg.UploadsPath)
	assert.Equal(t, "./data/index.json.gz", cfg.IndexStoragePath)
	assert.Equal(t, "worker", cfg.WorkerIDPrefix)
	assert.Equal(t, 2*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 6*time.Second, cfg.HeartbeatTTL())
}

// TestLoadFromEnvironment tests environment variable overrides
func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("COORDINATOR_PORT", "9000")
	t.Setenv("PROCESSING_LANGUAGE", "spanish")
	t.Setenv("LOCAL_UPLOADS_PATH", "/srv/uploads")
	t.Setenv("WORKER_ID_PREFIX", "indexer")
	t.Setenv("HEARTBEAT_INTERVAL_SECONDS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr())
	assert.Equal(t, 9000, cfg.CoordinatorPort)
	assert.Equal(t, types.LanguageSpanish, cfg.Language)
	assert.Equal(t, "/srv/uploads", cfg.UploadsPath)
	assert.Equal(t, "indexer", cfg.WorkerIDPrefix)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 15*time.Second, cfg.HeartbeatTTL())
}

// TestLoadCoordinatorLanguageWins tests that the coordinator-specific
// language variable overrides the shared one
func TestLoadCoordinatorLanguageWins(t *testing.T) {
	t.Setenv("PROCESSING_LANGUAGE", "english")
	t.Setenv("COORDINATOR_PROCESSING_LANGUAGE", "spanish")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, types.LanguageSpanish, cfg.Language)
}

// TestLoadUnknownLanguageFallsBack tests the English fallback for
// unrecognized language names
func TestLoadUnknownLanguageFallsBack(t *testing.T) {
	t.Setenv("PROCESSING_LANGUAGE", "latin")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, types.LanguageEnglish, cfg.Language)
}

// TestValidate tests rejection of unusable configurations
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RedisHost:         "localhost",
			RedisPort:         6379,
			CoordinatorPort:   8000,
			HeartbeatInterval: 2 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "redis port zero",
			mutate:  func(c *Config) { c.RedisPort = 0 },
			wantErr: ErrInvalidRedisPort,
		},
		{
			name:    "redis port too large",
			mutate:  func(c *Config) { c.RedisPort = 70000 },
			wantErr: ErrInvalidRedisPort,
		},
		{
			name:    "coordinator port negative",
			mutate:  func(c *Config) { c.CoordinatorPort = -1 },
			wantErr: ErrInvalidPort,
		},
		{
			name:    "zero heartbeat interval",
			mutate:  func(c *Config) { c.HeartbeatInterval = 0 },
			wantErr: ErrInvalidHeartbeat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

// TestLoadRejectsBadPort tests that Load surfaces validation failures
func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("COORDINATOR_PORT", "-5")

	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidPort)
}
