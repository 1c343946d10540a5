// Package config provides environment-driven configuration for the ferret
// coordinator and worker processes.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ferret-index/ferret/pkg/types"
)

// Sentinel validation errors.
var (
	ErrInvalidPort      = errors.New("invalid coordinator port")
	ErrInvalidRedisPort = errors.New("invalid redis port")
	ErrInvalidHeartbeat = errors.New("heartbeat interval must be positive")
)

// Default configuration values.
const (
	defaultRedisHost         = "localhost"
	defaultRedisPort         = 6379
	defaultCoordinatorPort   = 8000
	defaultLanguage          = "english"
	defaultUploadsPath       = "./uploads"
	defaultIndexStoragePath  = "./data/index.json.gz"
	defaultWorkerIDPrefix    = "worker"
	defaultHeartbeatInterval = 2
	maxPort                  = 65535
)

// Config holds all configuration for a ferret process. Both the
// coordinator and the worker read the same struct; each uses the fields
// relevant to its role.
type Config struct {
	RedisHost        string
	RedisPort        int
	CoordinatorPort  int
	Language         types.Language
	UploadsPath      string
	IndexStoragePath string
	LogLevel         string
	WorkerIDPrefix   string

	// HeartbeatInterval is the worker status reporting period. The
	// heartbeat key TTL is always three intervals.
	HeartbeatInterval time.Duration
}

// RedisAddr returns the broker endpoint in host:port form.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// HeartbeatTTL returns the liveness window derived from the heartbeat
// interval.
func (c *Config) HeartbeatTTL() time.Duration {
	return 3 * c.HeartbeatInterval
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("REDIS_HOST", defaultRedisHost)
	v.SetDefault("REDIS_PORT", defaultRedisPort)
	v.SetDefault("COORDINATOR_PORT", defaultCoordinatorPort)
	v.SetDefault("LOCAL_UPLOADS_PATH", defaultUploadsPath)
	v.SetDefault("INDEX_FILE_STORAGE_PATH", defaultIndexStoragePath)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WORKER_ID_PREFIX", defaultWorkerIDPrefix)
	v.SetDefault("HEARTBEAT_INTERVAL_SECONDS", defaultHeartbeatInterval)
	v.SetDefault("COORDINATOR_PROCESSING_LANGUAGE", "")
	v.SetDefault("PROCESSING_LANGUAGE", "")
	v.AutomaticEnv()

	// COORDINATOR_PROCESSING_LANGUAGE wins over PROCESSING_LANGUAGE;
	// both fall back to english. Workers typically set only the latter.
	lang := v.GetString("COORDINATOR_PROCESSING_LANGUAGE")
	if lang == "" {
		lang = v.GetString("PROCESSING_LANGUAGE")
	}
	if lang == "" {
		lang = defaultLanguage
	}

	cfg := &Config{
		RedisHost:         v.GetString("REDIS_HOST"),
		RedisPort:         v.GetInt("REDIS_PORT"),
		CoordinatorPort:   v.GetInt("COORDINATOR_PORT"),
		Language:          types.ParseLanguage(lang),
		UploadsPath:       v.GetString("LOCAL_UPLOADS_PATH"),
		IndexStoragePath:  v.GetString("INDEX_FILE_STORAGE_PATH"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		WorkerIDPrefix:    v.GetString("WORKER_ID_PREFIX"),
		HeartbeatInterval: time.Duration(v.GetInt("HEARTBEAT_INTERVAL_SECONDS")) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for values the processes
// cannot start with.
func (c *Config) Validate() error {
	if c.RedisPort <= 0 || c.RedisPort > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidRedisPort, c.RedisPort)
	}
	if c.CoordinatorPort <= 0 || c.CoordinatorPort > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.CoordinatorPort)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidHeartbeat, c.HeartbeatInterval)
	}
	return nil
}
