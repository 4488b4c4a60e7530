package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `canonflow:
  name: "TestApp"
  version: "1.0"
channels:
  raw_buffer: 1
  record_buffer: 1
processor:
  max_workers: 1
orderbook:
  publish_depth: 400
  buffer_limit: 100
kafka:
  enabled: false
source:
  binance:
    enabled: true
    symbols: ["BTCUSDT"]
    channels: ["orderbook_delta"]
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Canonflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Canonflow.Name)
	}
	if cfg.Processor.MaxWorkers != 1 {
		t.Errorf("unexpected max workers: %d", cfg.Processor.MaxWorkers)
	}
	if cfg.Orderbook.PublishDepth != 400 {
		t.Errorf("unexpected publish depth: %d", cfg.Orderbook.PublishDepth)
	}
	if cfg.Orderbook.ChecksumLevels != 25 {
		t.Errorf("expected default checksum levels, got %d", cfg.Orderbook.ChecksumLevels)
	}
	if cfg.Orderbook.Resync.MinDelay != 500*time.Millisecond {
		t.Errorf("expected default resync min delay, got %v", cfg.Orderbook.Resync.MinDelay)
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	content := `canonflow:
  version: "1.0"
channels:
  raw_buffer: 1
  record_buffer: 1
processor:
  max_workers: 1
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for missing name")
	}
}

func TestLoadConfigKafkaValidation(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	content := `canonflow:
  name: "TestApp"
  version: "1.0"
channels:
  raw_buffer: 1
  record_buffer: 1
processor:
  max_workers: 1
kafka:
  enabled: true
  topic: "canonical"
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for missing brokers")
	}
}

func TestLoadConfigKafkaBrokerFallback(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	content := `canonflow:
  name: "TestApp"
  version: "1.0"
channels:
  raw_buffer: 1
  record_buffer: 1
processor:
  max_workers: 1
kafka:
  enabled: true
  topic: "canonical"
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	cfg, err := LoadConfig(f.Name())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("expected development broker fallback, got %v", cfg.Kafka.Brokers)
	}
}

func TestExchangesFiltersDisabled(t *testing.T) {
	cfg := &Config{}
	cfg.Source.Binance = ExchangeSourceConfig{Enabled: true, Symbols: []string{"BTCUSDT"}}
	cfg.Source.Okx = ExchangeSourceConfig{Enabled: false}

	enabled := cfg.Exchanges()
	if _, ok := enabled["binance"]; !ok {
		t.Fatalf("binance should be enabled")
	}
	if _, ok := enabled["okx"]; ok {
		t.Fatalf("okx should be filtered out")
	}
}
