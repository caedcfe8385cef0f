package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stockstream platform.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Backtest BacktestConfig `yaml:"backtest"`
	Strategy StrategyConfig `yaml:"strategy"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FetchConfig holds parameters for the daily bar fetch job.
type FetchConfig struct {
	StartDate       string `yaml:"start_date"`
	BatchSize       int    `yaml:"batch_size"`
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	SymbolsCSV      string `yaml:"symbols_csv"`
}

// BacktestConfig defines simulation parameters: starting capital and the
// execution cost model.
type BacktestConfig struct {
	InitialCash     float64 `yaml:"initial_cash"`
	CommissionRate  float64 `yaml:"commission_rate"`
	SlippageRate    float64 `yaml:"slippage_rate"`
	CommissionBasis string  `yaml:"commission_basis"` // "adjusted" or "requested"
}

// StrategyConfig selects a strategy by name and supplies its numeric
// parameters.
type StrategyConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the backtest section for values that would make a
// simulation meaningless. It fails fast so a Portfolio is never partially
// initialized from a bad config.
func (c *BacktestConfig) Validate() error {
	if c.InitialCash <= 0 {
		return fmt.Errorf("backtest: initial_cash must be positive, got %v", c.InitialCash)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("backtest: commission_rate must be in [0,1), got %v", c.CommissionRate)
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return fmt.Errorf("backtest: slippage_rate must be in [0,1), got %v", c.SlippageRate)
	}
	switch c.CommissionBasis {
	case "", "adjusted", "requested":
	default:
		return fmt.Errorf("backtest: commission_basis must be \"adjusted\" or \"requested\", got %q", c.CommissionBasis)
	}
	return nil
}
