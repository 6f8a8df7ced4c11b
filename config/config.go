// Package config loads and validates the YAML configuration shared by the
// live and backtest commands. One file describes a run; the commands only
// differ in which sections they read.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradecore/market"
	"github.com/rustyeddy/tradecore/risk"
	"github.com/rustyeddy/tradecore/safeguard"
	"github.com/rustyeddy/tradecore/strategy"
	"github.com/rustyeddy/tradecore/venue"
)

// Config is the complete run configuration.
type Config struct {
	Account    AccountConfig    `yaml:"account"`
	Venue      VenueConfig      `yaml:"venue"`
	Market     MarketConfig     `yaml:"market"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Risk       risk.Config      `yaml:"risk"`
	Safeguards safeguard.Config `yaml:"safeguards"`
	Costs      venue.Costs      `yaml:"costs"`
	Order      OrderConfig      `yaml:"order"`
	Engine     EngineConfig     `yaml:"engine"`
	Journal    JournalConfig    `yaml:"journal"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AccountConfig seeds the account state.
type AccountConfig struct {
	Currency string  `yaml:"currency"`
	Balance  float64 `yaml:"balance"`
}

// VenueConfig holds live venue credentials. The token is usually left
// empty here and supplied through OANDA_TOKEN instead.
type VenueConfig struct {
	Token     string `yaml:"token"`
	AccountID string `yaml:"account_id"`
	Practice  bool   `yaml:"practice"`
}

// MarketConfig selects what to trade and when.
type MarketConfig struct {
	Symbols     []string            `yaml:"symbols"`
	Timeframe   string              `yaml:"timeframe"`
	Timezone    string              `yaml:"timezone"`
	Windows     []market.WindowSpec `yaml:"windows"`
	Instruments []InstrumentConfig  `yaml:"instruments,omitempty"`
}

// InstrumentConfig is the venue metadata for one symbol, used by the
// backtest simulator which has no venue to ask. Live runs ignore it and
// query the venue instead.
type InstrumentConfig struct {
	Symbol       string  `yaml:"symbol"`
	Point        float64 `yaml:"point"`
	ContractSize float64 `yaml:"contract_size"`
	MinVolume    float64 `yaml:"min_volume"`
	MaxVolume    float64 `yaml:"max_volume"`
	VolumeStep   float64 `yaml:"volume_step"`
}

// SymbolInfo resolves the instrument metadata for symbol, falling back to
// 5-digit FX defaults when the symbol has no instruments entry.
func (c *Config) SymbolInfo(symbol string) venue.SymbolInfo {
	info := venue.SymbolInfo{
		Symbol:       symbol,
		Point:        0.00001,
		ContractSize: 1,
		MinVolume:    1,
		MaxVolume:    100_000_000,
		VolumeStep:   1,
		Tradable:     true,
	}
	for _, ic := range c.Market.Instruments {
		if ic.Symbol != symbol {
			continue
		}
		if ic.Point > 0 {
			info.Point = ic.Point
		}
		if ic.ContractSize > 0 {
			info.ContractSize = ic.ContractSize
		}
		if ic.MinVolume > 0 {
			info.MinVolume = ic.MinVolume
		}
		if ic.MaxVolume > 0 {
			info.MaxVolume = ic.MaxVolume
		}
		if ic.VolumeStep > 0 {
			info.VolumeStep = ic.VolumeStep
		}
	}
	return info
}

// StrategyConfig names the strategy and carries its knobs.
type StrategyConfig struct {
	Name   string          `yaml:"name"`
	Params strategy.Params `yaml:"params"`
}

// Duration is a yaml-friendly duration ("2s", "30m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

func (d Duration) Std() time.Duration { return time.Duration(d) }

// OrderConfig tunes the order manager.
type OrderConfig struct {
	MaxAttempts   int      `yaml:"max_attempts"`
	BaseDelay     Duration `yaml:"base_delay"`
	MaxDelay      Duration `yaml:"max_delay"`
	SubmitTimeout Duration `yaml:"submit_timeout"`
	NativeStops   bool     `yaml:"native_stops"`
}

func (c OrderConfig) Retry() venue.RetryPolicy {
	p := venue.DefaultRetry()
	if c.MaxAttempts > 0 {
		p.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelay > 0 {
		p.BaseDelay = c.BaseDelay.Std()
	}
	if c.MaxDelay > 0 {
		p.MaxDelay = c.MaxDelay.Std()
	}
	return p
}

// EngineConfig tunes the live loop.
type EngineConfig struct {
	PollInterval Duration `yaml:"poll_interval"`
	SyncInterval Duration `yaml:"sync_interval"`
}

// JournalConfig selects the audit trail sink.
type JournalConfig struct {
	Type   string `yaml:"type"` // "sqlite", "csv" or "memory"
	DBPath string `yaml:"db_path,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// LoggingConfig tunes zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // trace..panic, default info
	Pretty bool   `yaml:"pretty"` // console writer instead of JSON
}

// LoadFromFile reads and validates a YAML config.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Timeframe resolves the configured timeframe.
func (c *Config) Timeframe() market.Timeframe {
	tf, _ := market.ParseTimeframe(c.Market.Timeframe)
	return tf
}

// Session builds the trading session from the market section.
func (c *Config) Session() (*market.Session, error) {
	return market.NewSession(c.Market.Timezone, c.Market.Windows)
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols is required")
	}
	if _, ok := market.ParseTimeframe(c.Market.Timeframe); !ok {
		return fmt.Errorf("unknown timeframe %q", c.Market.Timeframe)
	}
	if _, err := c.Session(); err != nil {
		return err
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if _, err := strategy.New(c.Strategy.Name, c.Strategy.Params); err != nil {
		return err
	}
	if c.Risk.RiskPercent <= 0 || c.Risk.RiskPercent > 1 {
		return fmt.Errorf("risk.risk_percent must be between 0 and 1")
	}
	if c.Safeguards.DailyLossLimit < 0 {
		return fmt.Errorf("safeguards.daily_loss_limit cannot be negative")
	}
	if c.Costs.SpreadPoints < 0 || c.Costs.SlippagePoints < 0 {
		return fmt.Errorf("costs cannot be negative")
	}
	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite")
		}
	case "csv":
		if c.Journal.File == "" {
			return fmt.Errorf("journal.file required for csv")
		}
	case "memory":
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'memory'")
	}
	return nil
}

// Default returns a runnable practice configuration.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency: "USD",
			Balance:  10000,
		},
		Venue: VenueConfig{
			Practice: true,
		},
		Market: MarketConfig{
			Symbols:   []string{"EUR_USD"},
			Timeframe: "M5",
			Timezone:  "UTC",
		},
		Strategy: StrategyConfig{
			Name: "atr-breakout",
		},
		Risk: risk.Config{
			RiskPercent:  0.01,
			Leverage:     30,
			MarginBuffer: 0.2,
			MaxOpenRisk:  0.06,
		},
		Safeguards: safeguard.Config{
			DailyLossLimit:  300,
			MaxPositions:    3,
			MaxTradesPerDay: 10,
			MaxSpreadPoints: 30,
			KillSwitchFile:  "./KILL",
		},
		Costs: venue.Costs{
			SpreadPoints:   10,
			SlippagePoints: 2,
		},
		Order: OrderConfig{
			SubmitTimeout: Duration(10 * time.Second),
		},
		Engine: EngineConfig{
			PollInterval: Duration(2 * time.Second),
			SyncInterval: Duration(30 * time.Second),
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./journal.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
