package strategy

import (
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/ledger"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

// Decision is the tagged result of one strategy invocation: keep the
// current resting orders, or replace them wholesale.
type Decision struct {
	replace bool
	orders  []model.Order
}

// Keep leaves the strategy's resting orders on this contract unchanged.
func Keep() Decision {
	return Decision{}
}

// Desired replaces the strategy's whole resting set on this contract with
// exactly these orders. Desired() with no orders cancels everything.
func Desired(orders ...model.Order) Decision {
	return Decision{replace: true, orders: orders}
}

// Replace reports whether the decision replaces the resting set.
func (d Decision) Replace() bool { return d.replace }

// Orders returns the desired resting set; only meaningful when Replace.
func (d Decision) Orders() []model.Order { return d.orders }

// Type maps the decision onto its audit-log tag.
func (d Decision) Type() model.DecisionType {
	if d.replace {
		return model.DecisionDesired
	}
	return model.DecisionKeep
}

// TickView is everything a strategy may consult when deciding: the tick,
// contract reference data, recent price history (warm-up included), its
// own inventory and resting orders, and its spendable cash. Strategies
// must not retain references past the call.
type TickView struct {
	Tick      model.Tick
	Contract  model.Contract
	Now       time.Time
	Mids      []int                      // recent YES mid prices on this contract, oldest first
	Positions map[string]ledger.Position // open inventory by source tag
	Resting   []model.Order
	CashCents int64
}

// YesQty returns total YES inventory across sources.
func (v TickView) YesQty() int {
	var n int
	for _, pos := range v.Positions {
		n += pos.YesQty
	}
	return n
}

// NoQty returns total NO inventory across sources.
func (v TickView) NoQty() int {
	var n int
	for _, pos := range v.Positions {
		n += pos.NoQty
	}
	return n
}

// Strategy is the pluggable decision function.
type Strategy interface {
	Name() string
	OnTick(view TickView) Decision
}
