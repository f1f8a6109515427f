package config

import "time"

// ReplayConfig is the root configuration for a replay run.
type ReplayConfig struct {
	Run        RunConfig        `yaml:"run"`
	Inputs     InputsConfig     `yaml:"inputs"`
	Fills      FillsConfig      `yaml:"fills"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Settlement SettlementConfig `yaml:"settlement"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Database   DBConfig         `yaml:"database"`
	Output     OutputConfig     `yaml:"output"`
}

// RunConfig identifies and seeds a replay run.
type RunConfig struct {
	ID       string `yaml:"id"`       // Run identifier; generated when empty
	Seed     int64  `yaml:"seed"`     // RNG seed for the probabilistic fill model
	Parallel int    `yaml:"parallel"` // Strategy fan-out width within a tick (1 = sequential)
}

// InputsConfig describes the recorded quote logs to replay.
type InputsConfig struct {
	Logs         []string      `yaml:"logs"`          // Per-series quote log files
	Start        string        `yaml:"start"`         // RFC3339 logical start (empty = from first tick)
	End          string        `yaml:"end"`           // RFC3339 end (empty = to last tick)
	Warmup       time.Duration `yaml:"warmup"`        // Window before Start fed to state only
	SnapshotPath string        `yaml:"snapshot_path"` // Optional starting-ledger snapshot
}

// FillsConfig selects and calibrates the fill model.
type FillsConfig struct {
	Model          string          `yaml:"model"`             // "deterministic" or "probabilistic"
	FillProbPerMin float64         `yaml:"fill_prob_per_min"` // Base passive fills per resting order per minute
	SpreadRates    map[int]float64 `yaml:"spread_rates"`      // Spread cents -> fills/min override buckets
}

// LedgerConfig holds per-strategy wallet settings.
type LedgerConfig struct {
	InitialCashCents int64         `yaml:"initial_cash_cents"` // Starting cash when no snapshot is given
	SettlementDelay  time.Duration `yaml:"settlement_delay"`   // Clearing lag before payouts become spendable
}

// SettlementConfig controls expiry detection and payout pricing.
type SettlementConfig struct {
	DayBoundaryHour   int    `yaml:"day_boundary_hour"`   // Local hour at which the trading day rolls over
	Timezone          string `yaml:"timezone"`            // IANA zone for day boundaries
	DefaultPriceCents int    `yaml:"default_price_cents"` // Settlement price for never-ticked contracts; -1 = unset
}

// StrategyConfig names one strategy instance and its parameter blob.
type StrategyConfig struct {
	Name   string `yaml:"name"`   // Registered strategy name
	ID     string `yaml:"id"`     // Instance identifier; defaults to Name
	Params string `yaml:"params"` // JSON parameter blob, strategy-defined
}

// DBConfig holds the optional Postgres results sink. The sink is enabled
// when Host is non-empty.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether the results sink should be used.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// OutputConfig holds output stream settings.
type OutputConfig struct {
	Dir        string `yaml:"dir"`         // Directory for trades/equity/intents CSVs
	FlushEvery int    `yaml:"flush_every"` // Rows buffered per CSV sink before flushing
}
