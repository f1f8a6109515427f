package fill

import (
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

// Execution is one resting order filling at a price.
type Execution struct {
	Order      model.Order
	PriceCents int
}

// Model decides which of one strategy's resting limit orders on the tick's
// contract execute. elapsed is replay-timeline time since the previous
// tick on any contract, which the probabilistic model converts into a fill
// probability.
type Model interface {
	Name() string
	Fills(tick model.Tick, resting []model.Order, elapsed time.Duration) []Execution
}

// crosses reports whether a limit order is at or through the market shown
// by the tick, and the market price it would take liquidity at.
func crosses(tick model.Tick, o model.Order) (int, bool) {
	switch o.Action() {
	case model.ActionBuyYes:
		return tick.ImpliedYesAsk, tick.NoBid > 0 && tick.ImpliedYesAsk <= o.PriceCents
	case model.ActionBuyNo:
		return tick.ImpliedNoAsk, tick.YesBid > 0 && tick.ImpliedNoAsk <= o.PriceCents
	case model.ActionSellYes:
		return tick.YesBid, tick.YesBid >= o.PriceCents && tick.YesBid > 0
	case model.ActionSellNo:
		return tick.NoBid, tick.NoBid >= o.PriceCents && tick.NoBid > 0
	}
	return 0, false
}

// Deterministic is the crossing model: a resting limit fills fully, at its
// limit price, on the first tick the market reaches it. No partial fills.
type Deterministic struct{}

// NewDeterministic returns the deterministic crossing model.
func NewDeterministic() *Deterministic { return &Deterministic{} }

func (*Deterministic) Name() string { return "deterministic" }

func (*Deterministic) Fills(tick model.Tick, resting []model.Order, _ time.Duration) []Execution {
	var execs []Execution
	for _, o := range resting {
		if o.Kind != model.KindLimit {
			continue
		}
		if _, ok := crosses(tick, o); ok {
			execs = append(execs, Execution{Order: o, PriceCents: o.PriceCents})
		}
	}
	return execs
}

// MarketPrice returns the price a market order executes at on this tick:
// the best opposing price. ok is false when there is no opposing liquidity.
func MarketPrice(tick model.Tick, o model.Order) (int, bool) {
	switch o.Action() {
	case model.ActionBuyYes:
		return tick.ImpliedYesAsk, tick.NoBid > 0
	case model.ActionBuyNo:
		return tick.ImpliedNoAsk, tick.YesBid > 0
	case model.ActionSellYes:
		return tick.YesBid, tick.YesBid > 0
	case model.ActionSellNo:
		return tick.NoBid, tick.NoBid > 0
	}
	return 0, false
}
