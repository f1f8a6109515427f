package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSeed              = 1
	DefaultParallel          = 1
	DefaultFillModel         = "deterministic"
	DefaultFillProbPerMin    = 0.35
	DefaultInitialCashCents  = 10_000_00 // $10,000
	DefaultSettlementDelay   = 1 * time.Hour
	DefaultDayBoundaryHour   = 0
	DefaultTimezone          = "UTC"
	DefaultOutputDir         = "out"
	DefaultFlushEvery        = 1000
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	UnsetSettlementPrice     = -1
)

func (c *ReplayConfig) applyDefaults() {
	// Run defaults
	if c.Run.Seed == 0 {
		c.Run.Seed = DefaultSeed
	}
	if c.Run.Parallel == 0 {
		c.Run.Parallel = DefaultParallel
	}

	// Fill model defaults
	if c.Fills.Model == "" {
		c.Fills.Model = DefaultFillModel
	}
	if c.Fills.FillProbPerMin == 0 {
		c.Fills.FillProbPerMin = DefaultFillProbPerMin
	}

	// Ledger defaults
	if c.Ledger.InitialCashCents == 0 {
		c.Ledger.InitialCashCents = DefaultInitialCashCents
	}
	if c.Ledger.SettlementDelay == 0 {
		c.Ledger.SettlementDelay = DefaultSettlementDelay
	}

	// Settlement defaults
	if c.Settlement.Timezone == "" {
		c.Settlement.Timezone = DefaultTimezone
	}
	if c.Settlement.DefaultPriceCents == 0 {
		c.Settlement.DefaultPriceCents = UnsetSettlementPrice
	}

	// Strategy instance IDs default to the strategy name.
	for i := range c.Strategies {
		if c.Strategies[i].ID == "" {
			c.Strategies[i].ID = c.Strategies[i].Name
		}
	}

	// Database defaults (only meaningful when the sink is enabled)
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Output defaults
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.FlushEvery == 0 {
		c.Output.FlushEvery = DefaultFlushEvery
	}
}
