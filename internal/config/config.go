// Package config loads and saves the paycheck TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/paycheck/internal/model"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Catch-up policies for goals whose target date needs more than the
// configured monthly contribution.
const (
	CatchUpLarger = "larger"
	CatchUpCapped = "capped"
)

// Payment providers.
const (
	ProviderInternalLedger = "internal_ledger"
	ProviderHTTP           = "http"
)

// Config holds all paycheck configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Engine     EngineConfig     `toml:"engine"`
	Server     ServerConfig     `toml:"server"`
	Payments   PaymentsConfig   `toml:"payments"`
	Log        LogConfig        `toml:"log"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	UserID   string `toml:"user_id"`
	DBPath   string `toml:"db_path,omitempty"`
	Currency string `toml:"currency"`
}

// EngineConfig tunes allocation and projection.
type EngineConfig struct {
	FreeMoneyFloorPct   float64 `toml:"free_money_floor_pct"`
	GoalCatchUp         string  `toml:"goal_catch_up"`
	GoalContributionDay int     `toml:"goal_contribution_day"`
	SalaryDay           int     `toml:"salary_day"`
	ManualSalary        string  `toml:"manual_salary,omitempty"`
}

// ServerConfig controls the HTTP service and its background sweep.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	SweepInterval  Duration `toml:"sweep_interval"`
	EventsBuffer   int      `toml:"events_buffer"`
	CacheTTL       Duration `toml:"cache_ttl"`
	RequestTimeout Duration `toml:"request_timeout"`
	Metrics        bool     `toml:"metrics"`
}

// PaymentsConfig controls payment order automation.
type PaymentsConfig struct {
	Provider              string `toml:"provider"`
	AutoExecuteOnApproval bool   `toml:"auto_execute_on_approval"`
	PrepareDays           int    `toml:"prepare_days"`
	Workers               int    `toml:"workers"`
	MaxRetries            int    `toml:"max_retries"`
	ProviderURL           string `toml:"provider_url,omitempty"`
	ProviderAPIKey        string `toml:"provider_api_key,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// Duration is a time.Duration that reads and writes as "15m" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			UserID:   "default",
			Currency: "USD",
		},
		Engine: EngineConfig{
			FreeMoneyFloorPct: 10,
			GoalCatchUp:       CatchUpLarger,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			SweepInterval:  Duration{15 * time.Minute},
			EventsBuffer:   200,
			CacheTTL:       Duration{5 * time.Minute},
			RequestTimeout: Duration{30 * time.Second},
			Metrics:        true,
		},
		Payments: PaymentsConfig{
			Provider:              ProviderInternalLedger,
			AutoExecuteOnApproval: true,
			PrepareDays:           7,
			Workers:               4,
			MaxRetries:            3,
		},
		Log: LogConfig{
			Level: "info",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "paycheck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "paycheck")
}

// DataDir returns the XDG-compliant data directory holding the ledger.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "paycheck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "paycheck")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
// Environment overrides are applied after the file.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // config path is chosen by the local user
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PAYCHECK_DB"); v != "" {
		cfg.General.DBPath = v
	}
	if v := os.Getenv("PAYCHECK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	//nolint:gosec // config path is chosen by the local user
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Engine.FreeMoneyFloorPct < 0 || c.Engine.FreeMoneyFloorPct > 100 {
		return model.Invalid("engine.free_money_floor_pct", "must be between 0 and 100, got %v", c.Engine.FreeMoneyFloorPct)
	}
	switch c.Engine.GoalCatchUp {
	case CatchUpLarger, CatchUpCapped:
	default:
		return model.Invalid("engine.goal_catch_up", "unknown policy %q", c.Engine.GoalCatchUp)
	}
	if c.Engine.GoalContributionDay < 0 || c.Engine.GoalContributionDay > 31 {
		return model.Invalid("engine.goal_contribution_day", "must be 0-31, got %d", c.Engine.GoalContributionDay)
	}
	if c.Engine.SalaryDay < 0 || c.Engine.SalaryDay > 31 {
		return model.Invalid("engine.salary_day", "must be 0-31, got %d", c.Engine.SalaryDay)
	}
	if _, err := c.ManualSalary(); err != nil {
		return err
	}
	switch c.Payments.Provider {
	case ProviderInternalLedger:
	case ProviderHTTP:
		if c.Payments.ProviderURL == "" {
			return model.Invalid("payments.provider_url", "required for the http provider")
		}
	default:
		return model.Invalid("payments.provider", "unknown provider %q", c.Payments.Provider)
	}
	if c.Payments.PrepareDays < 0 || c.Payments.PrepareDays > 90 {
		return model.Invalid("payments.prepare_days", "must be 0-90, got %d", c.Payments.PrepareDays)
	}
	return nil
}

// ManualSalary parses the configured fallback salary, if any.
func (c Config) ManualSalary() (*decimal.Decimal, error) {
	s := strings.TrimSpace(c.Engine.ManualSalary)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil, model.Invalid("engine.manual_salary", "not a non-negative amount: %q", s)
	}
	return &d, nil
}

// FloorPct returns the free-money floor as a decimal percentage.
func (c Config) FloorPct() decimal.Decimal {
	return decimal.NewFromFloat(c.Engine.FreeMoneyFloorPct)
}

// ResolveDBPath returns the ledger database path.
func (c Config) ResolveDBPath() string {
	if c.General.DBPath != "" {
		return c.General.DBPath
	}
	return filepath.Join(DataDir(), "ledger.db")
}

// GetProviderAPIKey returns the provider key from env var or config, in that order.
func GetProviderAPIKey(cfg Config) string {
	if key := os.Getenv("PAYCHECK_PROVIDER_KEY"); key != "" {
		return key
	}
	return cfg.Payments.ProviderAPIKey
}
