// Package config loads and validates the YAML configuration file. The
// base-currency and stablecoin sets live here, not in code, so they can
// evolve without redeploying the engine.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration root.
type Config struct {
	// Wallet is the tracked wallet address.
	Wallet string `yaml:"wallet"`
	// Engine holds classification/aggregation parameters.
	Engine EngineConfig `yaml:"engine"`
	// BaseCurrencies is the injected settlement/stablecoin set.
	BaseCurrencies BaseCurrenciesConfig `yaml:"base_currencies"`
	// Price configures the USD price oracle client.
	Price PriceConfig `yaml:"price"`
	// Ingest configures the transaction feed.
	Ingest IngestConfig `yaml:"ingest"`
	// Storage configures the persistence backends.
	Storage StorageConfig `yaml:"storage"`
	// Server configures the HTTP service.
	Server ServerConfig `yaml:"server"`
}

// EngineConfig holds classification and aggregation parameters.
type EngineConfig struct {
	// DustEpsilon is the |change| threshold below which a delta is noise.
	DustEpsilon float64 `yaml:"dust_epsilon"`
}

// BaseCurrenciesConfig enumerates assets treated as funding capital.
type BaseCurrenciesConfig struct {
	// SettlementMints are non-stable settlement assets (e.g. wrapped SOL).
	SettlementMints []string `yaml:"settlement_mints"`
	// StableMints are stablecoin mint addresses.
	StableMints []string `yaml:"stable_mints"`
	// StableSymbols match stablecoins whose mints are not enumerated.
	StableSymbols []string `yaml:"stable_symbols"`
}

// PriceConfig configures the price oracle client.
type PriceConfig struct {
	// Endpoint is the price API URL. Empty disables live pricing; token-to-token
	// swaps then always carry an unknown value.
	Endpoint string `yaml:"endpoint"`
	// TTLSeconds bounds how long a cached price may be served.
	TTLSeconds int `yaml:"ttl_seconds"`
	// TimeoutMs is the HTTP request timeout in milliseconds.
	TimeoutMs int `yaml:"timeout_ms"`
}

// IngestConfig configures the transaction feed.
type IngestConfig struct {
	// WSEndpoint is the chain-data collaborator's WebSocket feed.
	WSEndpoint string `yaml:"ws_endpoint"`
	// BatchSize is the max transactions per engine flush.
	BatchSize int `yaml:"batch_size"`
	// FlushIntervalMs is the max delay before a partial batch flushes.
	FlushIntervalMs int `yaml:"flush_interval_ms"`
}

// StorageConfig configures persistence backends.
type StorageConfig struct {
	// Memory forces in-memory stores, ignoring the DSNs.
	Memory bool `yaml:"memory"`
	// PostgresDSN is the legs database.
	PostgresDSN string `yaml:"postgres_dsn"`
	// ClickhouseDSN is the cycle analytics database. Empty disables snapshots.
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr"`
	// RecomputeIntervalSeconds is the period between cycle recomputes.
	RecomputeIntervalSeconds int `yaml:"recompute_interval_seconds"`
}

// Load reads and validates a config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			DustEpsilon: 1e-6,
		},
		Price: PriceConfig{
			TTLSeconds: 300,
			TimeoutMs:  10000,
		},
		Ingest: IngestConfig{
			BatchSize:       50,
			FlushIntervalMs: 2000,
		},
		Server: ServerConfig{
			ListenAddr:               ":8080",
			RecomputeIntervalSeconds: 300,
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Wallet == "" {
		return fmt.Errorf("wallet is required")
	}
	if c.Engine.DustEpsilon <= 0 {
		return fmt.Errorf("engine.dust_epsilon must be positive, got %v", c.Engine.DustEpsilon)
	}
	if len(c.BaseCurrencies.SettlementMints) == 0 && len(c.BaseCurrencies.StableMints) == 0 && len(c.BaseCurrencies.StableSymbols) == 0 {
		return fmt.Errorf("base_currencies must name at least one settlement or stable asset")
	}
	if c.Price.TTLSeconds < 0 {
		return fmt.Errorf("price.ttl_seconds must not be negative, got %d", c.Price.TTLSeconds)
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if !c.Storage.Memory && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required unless storage.memory is set")
	}
	return nil
}

// PriceTTL returns the price cache TTL as a duration.
func (c *Config) PriceTTL() time.Duration {
	return time.Duration(c.Price.TTLSeconds) * time.Second
}

// PriceTimeout returns the price client timeout as a duration.
func (c *Config) PriceTimeout() time.Duration {
	return time.Duration(c.Price.TimeoutMs) * time.Millisecond
}

// FlushInterval returns the ingestion flush interval as a duration.
func (c *Config) FlushInterval() time.Duration {
	return time.Duration(c.Ingest.FlushIntervalMs) * time.Millisecond
}

// RecomputeInterval returns the recompute period as a duration.
func (c *Config) RecomputeInterval() time.Duration {
	return time.Duration(c.Server.RecomputeIntervalSeconds) * time.Second
}
