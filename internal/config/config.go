package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the simtrade system. It is read
// once at startup and treated as immutable thereafter.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Server    Server          `yaml:"server"`
	Feed      FeedConfig      `yaml:"feed"`
	Risk      RiskConfig      `yaml:"risk"`
	Execution ExecutionConfig `yaml:"execution"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Logging   Logging         `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	ArchiveDir string `yaml:"archive_dir"`
}

// Server holds the dashboard HTTP listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// FeedConfig configures the market data feed generator and client.
type FeedConfig struct {
	Port           int      `yaml:"port"`
	Symbols        []string `yaml:"symbols"`
	TickIntervalMs int      `yaml:"tick_interval_ms"`
}

// RiskConfig defines the pre-trade limits enforced by the risk gate.
type RiskConfig struct {
	PositionLimit int64   `yaml:"position_limit"`
	NotionalLimit float64 `yaml:"notional_limit"`
}

// ExecutionConfig defines the stochastic behaviour of the exchange simulator.
type ExecutionConfig struct {
	FillProbability    float64 `yaml:"fill_probability"`
	PartialProbability float64 `yaml:"partial_probability"`
	MinLatencyMs       int     `yaml:"min_latency_ms"`
	MaxLatencyMs       int     `yaml:"max_latency_ms"`
	SlippageBound      float64 `yaml:"slippage_bound"`
}

// StrategyConfig defines parameters for the built-in spread strategy.
type StrategyConfig struct {
	BuySpreadThreshold  float64 `yaml:"buy_spread_threshold"`
	SellSpreadThreshold float64 `yaml:"sell_spread_threshold"`
	OrderQty            int64   `yaml:"order_qty"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Storage: Storage{
			SQLitePath: "simtrade.db",
			ArchiveDir: "data",
		},
		Server: Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Feed: FeedConfig{
			Port:           8765,
			Symbols:        []string{"AAPL", "MSFT", "GOOGL", "TSLA", "NVDA"},
			TickIntervalMs: 100,
		},
		Risk: RiskConfig{
			PositionLimit: 1000,
			NotionalLimit: 1000000,
		},
		Execution: ExecutionConfig{
			FillProbability:    0.85,
			PartialProbability: 0.10,
			MinLatencyMs:       1,
			MaxLatencyMs:       50,
			SlippageBound:      0.02,
		},
		Strategy: StrategyConfig{
			BuySpreadThreshold:  0.05,
			SellSpreadThreshold: 0.10,
			OrderQty:            100,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML configuration file at the given path, layers it over
// the defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration values are internally consistent.
func (c *Config) Validate() error {
	if c.Risk.PositionLimit <= 0 {
		return fmt.Errorf("risk.position_limit must be positive, got %d", c.Risk.PositionLimit)
	}
	if c.Risk.NotionalLimit <= 0 {
		return fmt.Errorf("risk.notional_limit must be positive, got %v", c.Risk.NotionalLimit)
	}
	if c.Execution.FillProbability < 0 || c.Execution.FillProbability > 1 {
		return fmt.Errorf("execution.fill_probability must be in [0,1], got %v", c.Execution.FillProbability)
	}
	if c.Execution.PartialProbability < 0 || c.Execution.PartialProbability > 1 {
		return fmt.Errorf("execution.partial_probability must be in [0,1], got %v", c.Execution.PartialProbability)
	}
	if c.Execution.MinLatencyMs < 0 || c.Execution.MaxLatencyMs < c.Execution.MinLatencyMs {
		return fmt.Errorf("execution latency range [%d,%d] is invalid",
			c.Execution.MinLatencyMs, c.Execution.MaxLatencyMs)
	}
	if c.Execution.SlippageBound < 0 {
		return fmt.Errorf("execution.slippage_bound must be non-negative, got %v", c.Execution.SlippageBound)
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols must not be empty")
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIMTRADE_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("SIMTRADE_ARCHIVE_DIR"); v != "" {
		cfg.Storage.ArchiveDir = v
	}
	if v := os.Getenv("SIMTRADE_FEED_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Feed.Port = n
		}
	}
	if v := os.Getenv("SIMTRADE_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
