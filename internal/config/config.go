package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"solana-grad-pipeline/internal/domain"
)

// Gates holds hard safety check thresholds.
type Gates struct {
	MinLockDays   float64 `yaml:"min_lock_days"`
	MinLockerRep  float64 `yaml:"min_locker_rep"`
	SniperCapPct  float64 `yaml:"sniper_cap_pct"` // fraction 0-1
	Top10CapPct   float64 `yaml:"top10_cap_pct"`  // fraction 0-1
	MaxRecentRugs int     `yaml:"max_recent_rugs"`
}

// Risk holds global risk limits enforced by the state manager.
type Risk struct {
	ExposureCap        float64 `yaml:"exposure_cap"`
	MaxConcurrent      int     `yaml:"max_concurrent"`
	PerTradeCap        float64 `yaml:"per_trade_cap"`
	KellyMultiplier    float64 `yaml:"kelly_multiplier"`
	DailyLossCapPct    float64 `yaml:"daily_loss_cap_pct"` // negative, e.g. -5.0
	LoserWindowMinutes int     `yaml:"loser_window_minutes"`
	LoserThreshold     int     `yaml:"loser_threshold"`
	KillSwitchMinutes  int     `yaml:"kill_switch_minutes"`
	StartingEquityUSD  float64 `yaml:"starting_equity_usd"`
}

// Paper configures the simulated execution strategy.
type Paper struct {
	LatencyMs      int `yaml:"latency_ms"`
	SlippageBpsMin int `yaml:"slippage_bps_min"`
	SlippageBpsMax int `yaml:"slippage_bps_max"`
}

// Live configures the real execution strategy.
type Live struct {
	SlippageBpsMin float64 `yaml:"slippage_bps_min"`
	SlippageBpsMax float64 `yaml:"slippage_bps_max"`
	TipEnabled     bool    `yaml:"tip_enabled"`
	TipLamports    int64   `yaml:"tip_lamports"`
}

// Providers configures enrichment data sources. An empty APIKey
// short-circuits that provider to an empty snapshot.
type Providers struct {
	Market     Provider `yaml:"market"`
	Onchain    Provider `yaml:"onchain"`
	Security   Provider `yaml:"security"`
	SmartMoney Provider `yaml:"smart_money"`
	TimeoutMs  int      `yaml:"timeout_ms"`
	RatePerSec float64  `yaml:"rate_per_sec"`
}

// Provider is one enrichment endpoint.
type Provider struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// Admin configures the control surface.
type Admin struct {
	AllowedCallers []string `yaml:"allowed_callers"`
}

// Root is the top-level configuration.
type Root struct {
	Mode            string    `yaml:"mode"` // PAPER | LIVE
	Gates           Gates     `yaml:"gates"`
	Risk            Risk      `yaml:"risk"`
	Paper           Paper     `yaml:"paper"`
	Live            Live      `yaml:"live"`
	Providers       Providers `yaml:"providers"`
	Admin           Admin     `yaml:"admin"`
	PostgresDSN     string    `yaml:"postgres_dsn"`
	ClickhouseDSN   string    `yaml:"clickhouse_dsn"`
	DetectorWSURL   string    `yaml:"detector_ws_url"`
	EquitySnapshotS int       `yaml:"equity_snapshot_seconds"`
}

// Load reads YAML configuration from path, applies defaults, and
// resolves DSN/API-key env overrides.
func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Default returns the configuration with all defaults and no file input.
func Default() Root {
	var c Root
	applyDefaults(&c)
	applyEnvOverrides(&c)
	return c
}

func applyDefaults(c *Root) {
	if c.Mode == "" {
		c.Mode = string(domain.ModePaper)
	}

	if c.Gates.MinLockDays == 0 {
		c.Gates.MinLockDays = 30
	}
	if c.Gates.MinLockerRep == 0 {
		c.Gates.MinLockerRep = 0.5
	}
	if c.Gates.SniperCapPct == 0 {
		c.Gates.SniperCapPct = 0.20
	}
	if c.Gates.Top10CapPct == 0 {
		c.Gates.Top10CapPct = 0.30
	}
	if c.Gates.MaxRecentRugs == 0 {
		c.Gates.MaxRecentRugs = 2
	}

	if c.Risk.ExposureCap == 0 {
		c.Risk.ExposureCap = 0.50
	}
	if c.Risk.MaxConcurrent == 0 {
		c.Risk.MaxConcurrent = 5
	}
	if c.Risk.PerTradeCap == 0 {
		c.Risk.PerTradeCap = 0.005
	}
	if c.Risk.KellyMultiplier == 0 {
		c.Risk.KellyMultiplier = 0.20
	}
	if c.Risk.DailyLossCapPct == 0 {
		c.Risk.DailyLossCapPct = -5.0
	}
	if c.Risk.LoserWindowMinutes == 0 {
		c.Risk.LoserWindowMinutes = 90
	}
	if c.Risk.LoserThreshold == 0 {
		c.Risk.LoserThreshold = 3
	}
	if c.Risk.KillSwitchMinutes == 0 {
		c.Risk.KillSwitchMinutes = 120
	}
	if c.Risk.StartingEquityUSD == 0 {
		c.Risk.StartingEquityUSD = 10000
	}

	if c.Paper.LatencyMs == 0 {
		c.Paper.LatencyMs = 2000
	}
	if c.Paper.SlippageBpsMin == 0 {
		c.Paper.SlippageBpsMin = 150
	}
	if c.Paper.SlippageBpsMax == 0 {
		c.Paper.SlippageBpsMax = 350
	}

	if c.Live.SlippageBpsMin == 0 {
		c.Live.SlippageBpsMin = 50
	}
	if c.Live.SlippageBpsMax == 0 {
		c.Live.SlippageBpsMax = 200
	}
	if c.Live.TipLamports == 0 {
		c.Live.TipLamports = 100_000
	}

	if c.Providers.TimeoutMs == 0 {
		c.Providers.TimeoutMs = 5000
	}
	if c.Providers.RatePerSec == 0 {
		c.Providers.RatePerSec = 10
	}

	if c.EquitySnapshotS == 0 {
		c.EquitySnapshotS = 60
	}
}

func applyEnvOverrides(c *Root) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.ClickhouseDSN = v
	}
	if v := os.Getenv("DETECTOR_WS_URL"); v != "" {
		c.DetectorWSURL = v
	}
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		c.Providers.Market.APIKey = v
	}
	if v := os.Getenv("ONCHAIN_API_KEY"); v != "" {
		c.Providers.Onchain.APIKey = v
	}
	if v := os.Getenv("SECURITY_API_KEY"); v != "" {
		c.Providers.Security.APIKey = v
	}
	if v := os.Getenv("SMART_MONEY_API_KEY"); v != "" {
		c.Providers.SmartMoney.APIKey = v
	}
}

// Validate rejects configurations that would break risk invariants.
func (c Root) Validate() error {
	if !domain.Mode(c.Mode).IsValid() {
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	if c.Risk.ExposureCap <= 0 || c.Risk.ExposureCap > 1 {
		return fmt.Errorf("exposure_cap must be in (0,1], got %f", c.Risk.ExposureCap)
	}
	if c.Risk.PerTradeCap <= 0 || c.Risk.PerTradeCap > c.Risk.ExposureCap {
		return fmt.Errorf("per_trade_cap must be in (0,exposure_cap], got %f", c.Risk.PerTradeCap)
	}
	if c.Risk.DailyLossCapPct >= 0 {
		return fmt.Errorf("daily_loss_cap_pct must be negative, got %f", c.Risk.DailyLossCapPct)
	}
	if c.Paper.SlippageBpsMin > c.Paper.SlippageBpsMax {
		return fmt.Errorf("paper slippage band inverted: [%d,%d]", c.Paper.SlippageBpsMin, c.Paper.SlippageBpsMax)
	}
	return nil
}
