package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Create a temporary YAML config file.
	yamlContent := []byte(`
storage:
  data_dir: "/tmp/stockstream/data"
  sqlite_path: "/tmp/stockstream/runs.db"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
logging:
  level: "info"
  format: "json"
fetch:
  start_date: "2020-01-01"
  batch_size: 500
  max_workers: 4
  rate_limit_per_min: 200
  symbols_csv: "/tmp/stockstream/symbols.csv"
backtest:
  initial_cash: 100000
  commission_rate: 0.001
  slippage_rate: 0.0005
  commission_basis: "adjusted"
strategy:
  name: "sma-cross"
  params:
    fast: 5
    slow: 20
`)

	tmpFile, err := os.CreateTemp("", "stockstream-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("DATA_DIR")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/stockstream/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/stockstream/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/stockstream/runs.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/stockstream/runs.db")
	}

	// -- Alpaca --
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Alpaca.APISecret != "test-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q", cfg.Alpaca.APISecret, "test-secret")
	}

	// -- Logging --
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	// -- Fetch --
	if cfg.Fetch.BatchSize != 500 {
		t.Errorf("Fetch.BatchSize = %d, want %d", cfg.Fetch.BatchSize, 500)
	}
	if cfg.Fetch.RateLimitPerMin != 200 {
		t.Errorf("Fetch.RateLimitPerMin = %d, want %d", cfg.Fetch.RateLimitPerMin, 200)
	}

	// -- Backtest --
	if cfg.Backtest.InitialCash != 100000 {
		t.Errorf("Backtest.InitialCash = %f, want %f", cfg.Backtest.InitialCash, 100000.0)
	}
	if cfg.Backtest.CommissionRate != 0.001 {
		t.Errorf("Backtest.CommissionRate = %f, want %f", cfg.Backtest.CommissionRate, 0.001)
	}
	if cfg.Backtest.CommissionBasis != "adjusted" {
		t.Errorf("Backtest.CommissionBasis = %q, want %q", cfg.Backtest.CommissionBasis, "adjusted")
	}

	// -- Strategy --
	if cfg.Strategy.Name != "sma-cross" {
		t.Errorf("Strategy.Name = %q, want %q", cfg.Strategy.Name, "sma-cross")
	}
	if cfg.Strategy.Params["slow"] != 20 {
		t.Errorf("Strategy.Params[slow] = %f, want %f", cfg.Strategy.Params["slow"], 20.0)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	tmpFile, err := os.CreateTemp("", "stockstream-config-env-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	// Set environment overrides.
	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	defer os.Unsetenv("ALPACA_API_KEY")
	defer os.Unsetenv("DATA_DIR")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
}

func TestBacktestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BacktestConfig
		wantErr bool
	}{
		{"valid", BacktestConfig{InitialCash: 100000, CommissionRate: 0.001, SlippageRate: 0.0005, CommissionBasis: "adjusted"}, false},
		{"zero basis defaults", BacktestConfig{InitialCash: 1000}, false},
		{"zero cash", BacktestConfig{InitialCash: 0}, true},
		{"negative cash", BacktestConfig{InitialCash: -5}, true},
		{"commission too high", BacktestConfig{InitialCash: 1000, CommissionRate: 1.0}, true},
		{"negative slippage", BacktestConfig{InitialCash: 1000, SlippageRate: -0.1}, true},
		{"bad basis", BacktestConfig{InitialCash: 1000, CommissionBasis: "net"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
