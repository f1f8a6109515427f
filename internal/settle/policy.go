package settle

import (
	"errors"
	"fmt"
)

// ErrNoSettlementPrice reports a contract that expired without a single
// observed tick and with no configured default price. The contract is
// reported rather than settled at a silently assumed value.
var ErrNoSettlementPrice = errors.New("no settlement price available")

// PricePolicy chooses the YES settlement price for an expiring contract.
type PricePolicy interface {
	Name() string
	SettlementPrice(ticker string, lastPrice int, ticked bool) (int, error)
}

// LastObservedPrice settles at the contract's last observed price. A
// contract never ticked during the pass settles at DefaultPriceCents when
// configured (>= 0), otherwise settlement fails with ErrNoSettlementPrice.
type LastObservedPrice struct {
	DefaultPriceCents int
}

func (LastObservedPrice) Name() string { return "last_observed" }

func (p LastObservedPrice) SettlementPrice(ticker string, lastPrice int, ticked bool) (int, error) {
	if ticked {
		return lastPrice, nil
	}
	if p.DefaultPriceCents >= 0 {
		return p.DefaultPriceCents, nil
	}
	return 0, fmt.Errorf("%w: %s never ticked and settlement.default_price_cents is unset", ErrNoSettlementPrice, ticker)
}

// FixedPrice settles every contract at one price. Useful for worst-case
// and best-case what-if passes.
type FixedPrice struct {
	PriceCents int
}

func (FixedPrice) Name() string { return "fixed" }

func (p FixedPrice) SettlementPrice(string, int, bool) (int, error) {
	return p.PriceCents, nil
}
