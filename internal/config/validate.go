package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *ReplayConfig) Validate() error {
	if len(c.Inputs.Logs) == 0 {
		return errors.New("inputs.logs must name at least one quote log")
	}
	if c.Inputs.Start != "" {
		if _, err := time.Parse(time.RFC3339, c.Inputs.Start); err != nil {
			return fmt.Errorf("inputs.start: %w", err)
		}
	}
	if c.Inputs.End != "" {
		if _, err := time.Parse(time.RFC3339, c.Inputs.End); err != nil {
			return fmt.Errorf("inputs.end: %w", err)
		}
	}
	if c.Inputs.Warmup < 0 {
		return errors.New("inputs.warmup must be >= 0")
	}

	switch c.Fills.Model {
	case "deterministic", "probabilistic":
	default:
		return fmt.Errorf("fills.model must be deterministic or probabilistic, got %q", c.Fills.Model)
	}
	if c.Fills.Model == "probabilistic" && c.Fills.FillProbPerMin <= 0 {
		return errors.New("fills.fill_prob_per_min must be > 0 for the probabilistic model")
	}
	for spread, rate := range c.Fills.SpreadRates {
		if spread < 0 || spread > 100 {
			return fmt.Errorf("fills.spread_rates: spread %d out of range 0-100", spread)
		}
		if rate < 0 {
			return fmt.Errorf("fills.spread_rates[%d] must be >= 0", spread)
		}
	}

	if c.Ledger.InitialCashCents < 0 {
		return errors.New("ledger.initial_cash_cents must be >= 0")
	}
	if c.Ledger.SettlementDelay < 0 {
		return errors.New("ledger.settlement_delay must be >= 0")
	}

	if c.Settlement.DayBoundaryHour < 0 || c.Settlement.DayBoundaryHour > 23 {
		return fmt.Errorf("settlement.day_boundary_hour must be 0-23, got %d", c.Settlement.DayBoundaryHour)
	}
	if _, err := time.LoadLocation(c.Settlement.Timezone); err != nil {
		return fmt.Errorf("settlement.timezone: %w", err)
	}
	if p := c.Settlement.DefaultPriceCents; p != UnsetSettlementPrice && (p < 0 || p > 100) {
		return fmt.Errorf("settlement.default_price_cents must be 0-100 or unset, got %d", p)
	}

	if len(c.Strategies) == 0 {
		return errors.New("strategies must name at least one strategy")
	}
	seen := make(map[string]bool, len(c.Strategies))
	for _, s := range c.Strategies {
		if s.Name == "" {
			return errors.New("strategies[].name is required")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate strategy id %q", s.ID)
		}
		seen[s.ID] = true
	}

	if c.Run.Parallel < 1 {
		return errors.New("run.parallel must be >= 1")
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Output.FlushEvery < 1 {
		return errors.New("output.flush_every must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
