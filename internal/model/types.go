package model

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Market Data Types
// -----------------------------------------------------------------------------

// Tick is one quote update for one contract at one instant.
type Tick struct {
	Time          time.Time // Quote timestamp
	Seq           int64     // Disambiguates same-timestamp ticks; canonical tiebreak
	Ticker        string    // Contract ticker
	YesBid        int       // Best YES bid (cents)
	NoBid         int       // Best NO bid (cents)
	ImpliedYesAsk int       // 100 - NoBid
	ImpliedNoAsk  int       // 100 - YesBid
	LastPrice     int       // Last trade price (cents), 0 if never traded
	Source        string    // Input file tag the row came from
	Warmup        bool      // True for ticks before the logical start time
}

// Spread returns the YES bid/ask spread in cents.
func (t Tick) Spread() int {
	return t.ImpliedYesAsk - t.YesBid
}

// Mid returns the YES midpoint price in cents, rounded down.
func (t Tick) Mid() int {
	return (t.YesBid + t.ImpliedYesAsk) / 2
}

// -----------------------------------------------------------------------------
// Reference Data Types
// -----------------------------------------------------------------------------

// SettlementRule describes how a contract's strike is evaluated.
type SettlementRule int

const (
	RuleAbove   SettlementRule = iota // Settles YES when outcome >= StrikeLow
	RuleBelow                         // Settles YES when outcome < StrikeHigh
	RuleBetween                       // Settles YES when StrikeLow <= outcome < StrikeHigh
)

func (r SettlementRule) String() string {
	switch r {
	case RuleAbove:
		return "above"
	case RuleBelow:
		return "below"
	case RuleBetween:
		return "between"
	}
	return "unknown"
}

// Contract is read-only reference data derived from ticker parsing.
type Contract struct {
	Ticker     string         // Full ticker (e.g., "HIGHNY-25AUG31-T52")
	Series     string         // Series portion (e.g., "HIGHNY")
	ExpiryDate time.Time      // Expiry calendar date (midnight UTC)
	Rule       SettlementRule // Strike evaluation rule
	StrikeLow  float64        // Lower strike bound (RuleAbove, RuleBetween)
	StrikeHigh float64        // Upper strike bound (RuleBelow, RuleBetween)
}

// -----------------------------------------------------------------------------
// Order Types
// -----------------------------------------------------------------------------

// Side is the contract side an order trades.
type Side int

const (
	SideYes Side = iota
	SideNo
)

func (s Side) String() string {
	if s == SideYes {
		return "yes"
	}
	return "no"
}

// OrderKind distinguishes resting limit orders from immediate market orders.
type OrderKind int

const (
	KindLimit OrderKind = iota
	KindMarket
)

// Order is a desired execution on one contract. Resting orders are keyed by
// (strategy, ticker); a strategy's new desired-order list replaces its whole
// resting set for that contract.
type Order struct {
	Ticker     string
	Side       Side
	Kind       OrderKind
	Buy        bool   // true = buy the side, false = sell it
	PriceCents int    // Limit price in cents (0-100); ignored for market orders
	Quantity   int    // Number of contracts
	Source     string // Sub-strategy tag; inventory is tracked per source
}

// Action returns the trade action this order produces when it fills.
func (o Order) Action() TradeAction {
	switch {
	case o.Buy && o.Side == SideYes:
		return ActionBuyYes
	case o.Buy && o.Side == SideNo:
		return ActionBuyNo
	case !o.Buy && o.Side == SideYes:
		return ActionSellYes
	default:
		return ActionSellNo
	}
}

// -----------------------------------------------------------------------------
// Execution Types
// -----------------------------------------------------------------------------

// TradeAction is the kind of ledger mutation a trade performs.
type TradeAction string

const (
	ActionBuyYes  TradeAction = "BUY_YES"
	ActionBuyNo   TradeAction = "BUY_NO"
	ActionSellYes TradeAction = "SELL_YES"
	ActionSellNo  TradeAction = "SELL_NO"
	ActionSettle  TradeAction = "SETTLE"
)

// Side returns the inventory side the action touches.
func (a TradeAction) Side() Side {
	if a == ActionBuyNo || a == ActionSellNo {
		return SideNo
	}
	return SideYes
}

// IsBuy reports whether the action consumes cash.
func (a TradeAction) IsBuy() bool {
	return a == ActionBuyYes || a == ActionBuyNo
}

// Trade is an immutable record of an execution. Append-only; the
// authoritative audit trail of a replay.
type Trade struct {
	ID         uuid.UUID   // Unique trade ID
	Time       time.Time   // Execution time (the tick that filled it)
	Strategy   string      // Owning strategy
	Ticker     string      // Contract ticker
	Action     TradeAction // Ledger mutation kind
	PriceCents int         // Execution price (cents)
	Quantity   int         // Contracts executed
	CostCents  int64       // Cash magnitude: Quantity * PriceCents for trades, payout for settles
	Source     string      // Sub-strategy tag
	PnLCents   int64       // Realized P&L for sells/settles, 0 otherwise
}

// -----------------------------------------------------------------------------
// Audit Types
// -----------------------------------------------------------------------------

// DecisionType tags what a strategy asked for on a tick.
type DecisionType string

const (
	DecisionKeep    DecisionType = "KEEP"    // Leave resting orders unchanged
	DecisionDesired DecisionType = "DESIRED" // Replace resting orders wholesale
)

// DecisionIntent is a diagnostic record of what a strategy wanted to do on a
// given tick. Exactly one is emitted per strategy per tick, which is what
// makes exact live-vs-backtest diffing possible.
type DecisionIntent struct {
	TickTime   time.Time
	TickSeq    int64
	TickSource string
	Strategy   string
	Type       DecisionType
	Ticker     string
	Action     TradeAction // Zero value for KEEP / empty DESIRED
	PriceCents int
	Quantity   int
}
