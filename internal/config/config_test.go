package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Engine.FreeMoneyFloorPct != 10 {
		t.Errorf("FreeMoneyFloorPct = %v, want 10", cfg.Engine.FreeMoneyFloorPct)
	}
	if cfg.Engine.GoalCatchUp != CatchUpLarger {
		t.Errorf("GoalCatchUp = %q, want %q", cfg.Engine.GoalCatchUp, CatchUpLarger)
	}
	if cfg.Payments.PrepareDays != 7 {
		t.Errorf("PrepareDays = %d, want 7", cfg.Payments.PrepareDays)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Engine.FreeMoneyFloorPct = 15
	cfg.Engine.GoalCatchUp = CatchUpCapped
	cfg.Engine.ManualSalary = "4200.00"
	cfg.Server.SweepInterval = Duration{time.Minute}

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.Engine.FreeMoneyFloorPct != 15 || got.Engine.GoalCatchUp != CatchUpCapped {
		t.Errorf("engine = %+v", got.Engine)
	}
	if got.Server.SweepInterval.Duration != time.Minute {
		t.Errorf("SweepInterval = %v, want 1m", got.Server.SweepInterval)
	}
	ms, err := got.ManualSalary()
	if err != nil || ms == nil || ms.String() != "4200" {
		t.Errorf("ManualSalary = %v, %v", ms, err)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("PAYCHECK_DB", "/tmp/ledger-test.db")
	t.Setenv("PAYCHECK_ADDR", "127.0.0.1:9999")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ResolveDBPath() != "/tmp/ledger-test.db" {
		t.Errorf("DBPath = %q", cfg.ResolveDBPath())
	}
	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"floor too high", func(c *Config) { c.Engine.FreeMoneyFloorPct = 120 }, false},
		{"unknown catch-up", func(c *Config) { c.Engine.GoalCatchUp = "always" }, false},
		{"contribution day", func(c *Config) { c.Engine.GoalContributionDay = 32 }, false},
		{"bad manual salary", func(c *Config) { c.Engine.ManualSalary = "lots" }, false},
		{"http provider without url", func(c *Config) { c.Payments.Provider = ProviderHTTP }, false},
		{"http provider with url", func(c *Config) {
			c.Payments.Provider = ProviderHTTP
			c.Payments.ProviderURL = "https://pay.example.com"
		}, true},
		{"unknown provider", func(c *Config) { c.Payments.Provider = "carrier-pigeon" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestGetProviderAPIKey_EnvWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Payments.ProviderAPIKey = "from-file"
	if got := GetProviderAPIKey(cfg); got != "from-file" {
		t.Errorf("key = %q, want from-file", got)
	}
	t.Setenv("PAYCHECK_PROVIDER_KEY", "from-env")
	if got := GetProviderAPIKey(cfg); got != "from-env" {
		t.Errorf("key = %q, want from-env", got)
	}
}
