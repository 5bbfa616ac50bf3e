package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"ewallet/helper"

	"github.com/joho/godotenv"
)

type Config struct {
	PubSub   PubSubConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Dispatch DispatchConfig

	MetricsAddr string
}

type PubSubConfig struct {
	ProjectID    string
	EmulatorHost string // empty talks to the real service
	Subscription string
}

type RedisConfig struct {
	Addr string // empty disables the shared cache
	TTL  time.Duration
}

type CatalogConfig struct {
	BadgerPath string // empty keeps the catalog in memory
	SealKeyHex string
}

// SealKey decodes CATALOG_SEAL_KEY. Only processes that read or write the
// token catalog need it, so Load does not check it.
func (c CatalogConfig) SealKey() (*[32]byte, error) {
	if c.SealKeyHex == "" {
		return nil, errors.New("CATALOG_SEAL_KEY is required (64 hex chars)")
	}
	key, err := helper.HexToKey32(c.SealKeyHex)
	if err != nil {
		return nil, fmt.Errorf("CATALOG_SEAL_KEY: %w", err)
	}
	return key, nil
}

type DispatchConfig struct {
	Interval      time.Duration
	MaxBatchBytes int
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		PubSub: PubSubConfig{
			ProjectID:    getEnv("PUBSUB_PROJECT_ID", "ewallet"),
			EmulatorHost: os.Getenv("PUBSUB_EMULATOR_HOST"),
			Subscription: getEnv("PUBSUB_MINTED_TOKEN_SUBSCRIPTION", "minted-token-updated-sub"),
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
			TTL:  getEnvAsDuration("TOKEN_CACHE_TTL", 10*time.Minute),
		},
		Catalog: CatalogConfig{
			BadgerPath: getEnv("BADGER_PATH", "./data/tokens"),
			SealKeyHex: os.Getenv("CATALOG_SEAL_KEY"),
		},
		Dispatch: DispatchConfig{
			Interval:      getEnvAsDuration("DISPATCH_INTERVAL", 2*time.Second),
			MaxBatchBytes: getEnvAsInt("DISPATCH_MAX_BATCH_BYTES", 256*1024),
		},
		MetricsAddr: getEnv("METRICS_ADDR", ":2112"),
	}, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
