package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Canonflow CanonflowConfig `yaml:"canonflow"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Processor ProcessorConfig `yaml:"processor"`
	Orderbook OrderbookConfig `yaml:"orderbook"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Source    SourceConfig    `yaml:"source"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type CanonflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ChannelsConfig struct {
	RawBuffer    int `yaml:"raw_buffer"`
	RecordBuffer int `yaml:"record_buffer"`
}

type ProcessorConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type OrderbookConfig struct {
	PublishDepth   int          `yaml:"publish_depth"`
	ChecksumLevels int          `yaml:"checksum_levels"`
	BufferLimit    int          `yaml:"buffer_limit"`
	Resync         ResyncConfig `yaml:"resync"`
}

type ResyncConfig struct {
	MinDelay    time.Duration `yaml:"min_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxFailures int           `yaml:"max_failures"`
}

type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	SubjectPrefix string   `yaml:"subject_prefix"`
}

type SourceConfig struct {
	Binance ExchangeSourceConfig `yaml:"binance"`
	Okx     ExchangeSourceConfig `yaml:"okx"`
	Bybit   ExchangeSourceConfig `yaml:"bybit"`
	Kucoin  ExchangeSourceConfig `yaml:"kucoin"`
	Deribit ExchangeSourceConfig `yaml:"deribit"`
}

type ExchangeSourceConfig struct {
	Enabled        bool          `yaml:"enabled"`
	WsURL          string        `yaml:"ws_url"`
	RestURL        string        `yaml:"rest_url"`
	MarketType     string        `yaml:"market_type"`
	Symbols        []string      `yaml:"symbols"`
	Channels       []string      `yaml:"channels"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	SnapshotLimit  int           `yaml:"snapshot_limit"`
}

type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

const defaultConfigPath = "config/config.yml"

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Orderbook: OrderbookConfig{
			PublishDepth:   400,
			ChecksumLevels: 25,
			BufferLimit:    1000,
			Resync: ResyncConfig{
				MinDelay:    500 * time.Millisecond,
				MaxDelay:    30 * time.Second,
				MaxFailures: 5,
			},
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override Kafka brokers from environment if available
	if config.Kafka.Enabled {
		if v := os.Getenv("KAFKA_BROKERS"); v != "" {
			brokers := strings.Split(v, ",")
			for i := range brokers {
				brokers[i] = strings.TrimSpace(brokers[i])
			}
			config.Kafka.Brokers = brokers
		}
		if v := os.Getenv("KAFKA_TOPIC"); v != "" {
			config.Kafka.Topic = strings.TrimSpace(v)
		}
		// Development tolerates a missing broker list; production-like
		// environments must spell it out.
		if len(config.Kafka.Brokers) == 0 && !IsProductionLike(AppEnvironment()) {
			config.Kafka.Brokers = []string{"localhost:9092"}
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Canonflow.Name == "" {
		return fmt.Errorf("canonflow.name is required")
	}

	if cfg.Canonflow.Version == "" {
		return fmt.Errorf("canonflow.version is required")
	}

	if cfg.Channels.RawBuffer <= 0 {
		return fmt.Errorf("channels.raw_buffer must be greater than 0")
	}
	if cfg.Channels.RecordBuffer <= 0 {
		return fmt.Errorf("channels.record_buffer must be greater than 0")
	}

	if cfg.Processor.MaxWorkers <= 0 {
		return fmt.Errorf("processor.max_workers must be greater than 0")
	}

	if cfg.Orderbook.PublishDepth <= 0 {
		return fmt.Errorf("orderbook.publish_depth must be greater than 0")
	}
	if cfg.Orderbook.BufferLimit <= 0 {
		return fmt.Errorf("orderbook.buffer_limit must be greater than 0")
	}
	if cfg.Orderbook.Resync.MinDelay <= 0 || cfg.Orderbook.Resync.MaxDelay < cfg.Orderbook.Resync.MinDelay {
		return fmt.Errorf("orderbook.resync delays are invalid")
	}
	if cfg.Orderbook.Resync.MaxFailures <= 0 {
		return fmt.Errorf("orderbook.resync.max_failures must be greater than 0")
	}

	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers are required when kafka is enabled")
		}
		if cfg.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}

	return nil
}

// Exchanges returns the enabled exchange source blocks keyed by exchange id.
func (c *Config) Exchanges() map[string]ExchangeSourceConfig {
	all := map[string]ExchangeSourceConfig{
		"binance": c.Source.Binance,
		"okx":     c.Source.Okx,
		"bybit":   c.Source.Bybit,
		"kucoin":  c.Source.Kucoin,
		"deribit": c.Source.Deribit,
	}
	enabled := make(map[string]ExchangeSourceConfig, len(all))
	for name, src := range all {
		if src.Enabled {
			enabled[name] = src
		}
	}
	return enabled
}
