package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

var (
	// ErrInsufficientFunds rejects a buy whose cost exceeds available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientInventory rejects a sell of more contracts than held.
	ErrInsufficientInventory = errors.New("insufficient inventory")

	// ErrConservation reports that cash plus unsettled balance has drifted
	// from the running money total. Fatal: it indicates a bug, not a
	// market condition.
	ErrConservation = errors.New("ledger conservation violation")
)

// Position is the open inventory for one (ticker, source) pair, with the
// cash spent to acquire it so sells and settles can realize P&L.
type Position struct {
	YesQty       int
	NoQty        int
	YesCostCents int64
	NoCostCents  int64
}

func (p Position) empty() bool {
	return p.YesQty == 0 && p.NoQty == 0
}

// pendingCredit is a settlement payout waiting out the clearing delay.
type pendingCredit struct {
	amountCents int64
	availableAt time.Time
}

// Wallet is one strategy's ledger.
type Wallet struct {
	strategy        string
	cashCents       int64
	unsettledCents  int64
	pending         []pendingCredit
	inventory       map[string]map[string]Position // ticker -> source -> position
	settlementDelay time.Duration

	dayStartEquityCents int64

	// Running totals backing the conservation check.
	initialCashCents int64
	tradeDeltaCents  int64
	payoutCents      int64
}

// NewWallet creates a wallet with the given starting cash.
func NewWallet(strategy string, cashCents int64, settlementDelay time.Duration) *Wallet {
	return &Wallet{
		strategy:            strategy,
		cashCents:           cashCents,
		inventory:           make(map[string]map[string]Position),
		settlementDelay:     settlementDelay,
		initialCashCents:    cashCents,
		dayStartEquityCents: cashCents,
	}
}

// Strategy returns the owning strategy's identifier.
func (w *Wallet) Strategy() string { return w.strategy }

// CashCents returns available (spendable) cash.
func (w *Wallet) CashCents() int64 { return w.cashCents }

// UnsettledCents returns settlement credits still inside the clearing delay.
func (w *Wallet) UnsettledCents() int64 { return w.unsettledCents }

// DayStartEquityCents returns equity at the last day boundary.
func (w *Wallet) DayStartEquityCents() int64 { return w.dayStartEquityCents }

// ResetDayStartEquity records the current equity as the new day baseline.
func (w *Wallet) ResetDayStartEquity(equityCents int64) {
	w.dayStartEquityCents = equityCents
}

// SeedPosition installs a starting position without cash movement, used when
// resuming from a snapshot. The position is carried at zero cost basis so a
// later sell or settle realizes the full proceeds.
func (w *Wallet) SeedPosition(ticker, source string, yesQty, noQty int) {
	pos := w.position(ticker, source)
	pos.YesQty += yesQty
	pos.NoQty += noQty
	w.setPosition(ticker, source, pos)
}

// Position returns the open position for one (ticker, source) pair.
func (w *Wallet) Position(ticker, source string) Position {
	return w.position(ticker, source)
}

// ContractPosition returns the consolidated position across all sources for
// one ticker.
func (w *Wallet) ContractPosition(ticker string) Position {
	var total Position
	for _, pos := range w.inventory[ticker] {
		total.YesQty += pos.YesQty
		total.NoQty += pos.NoQty
		total.YesCostCents += pos.YesCostCents
		total.NoCostCents += pos.NoCostCents
	}
	return total
}

// Sources returns the source tags holding inventory on a ticker.
func (w *Wallet) Sources(ticker string) []string {
	tags := make([]string, 0, len(w.inventory[ticker]))
	for tag := range w.inventory[ticker] {
		tags = append(tags, tag)
	}
	return tags
}

// Tickers returns all tickers with open inventory.
func (w *Wallet) Tickers() []string {
	tickers := make([]string, 0, len(w.inventory))
	for ticker, bySource := range w.inventory {
		for _, pos := range bySource {
			if !pos.empty() {
				tickers = append(tickers, ticker)
				break
			}
		}
	}
	return tickers
}

// ApplyTrade applies one execution atomically. Buys are rejected with
// ErrInsufficientFunds when cost exceeds cash; sells with
// ErrInsufficientInventory when quantity exceeds holdings. A rejected trade
// leaves the wallet unchanged. SETTLE trades clear the position and credit
// the payout to the unsettled balance. The trade's PnLCents field is filled
// in for sells and settles.
func (w *Wallet) ApplyTrade(t *model.Trade) error {
	switch t.Action {
	case model.ActionSettle:
		return w.applySettle(t)
	case model.ActionBuyYes, model.ActionBuyNo:
		return w.applyBuy(t)
	case model.ActionSellYes, model.ActionSellNo:
		return w.applySell(t)
	default:
		return fmt.Errorf("unknown trade action %q", t.Action)
	}
}

func (w *Wallet) applyBuy(t *model.Trade) error {
	cost := int64(t.Quantity) * int64(t.PriceCents)
	if cost > w.cashCents {
		return fmt.Errorf("%w: cost %d cents exceeds cash %d cents", ErrInsufficientFunds, cost, w.cashCents)
	}

	pos := w.position(t.Ticker, t.Source)
	if t.Action.Side() == model.SideYes {
		pos.YesQty += t.Quantity
		pos.YesCostCents += cost
	} else {
		pos.NoQty += t.Quantity
		pos.NoCostCents += cost
	}
	w.setPosition(t.Ticker, t.Source, pos)

	w.cashCents -= cost
	w.tradeDeltaCents -= cost
	t.CostCents = cost
	return nil
}

func (w *Wallet) applySell(t *model.Trade) error {
	pos := w.position(t.Ticker, t.Source)

	held := pos.YesQty
	if t.Action.Side() == model.SideNo {
		held = pos.NoQty
	}
	// Quantity < 1 also guards the basis division below against an empty
	// position.
	if t.Quantity < 1 || t.Quantity > held {
		return fmt.Errorf("%w: selling %d %s on %s, holding %d",
			ErrInsufficientInventory, t.Quantity, t.Action.Side(), t.Ticker, held)
	}

	proceeds := int64(t.Quantity) * int64(t.PriceCents)

	// Release cost basis proportionally to the quantity sold.
	var basis int64
	if t.Action.Side() == model.SideYes {
		basis = pos.YesCostCents * int64(t.Quantity) / int64(pos.YesQty)
		pos.YesQty -= t.Quantity
		pos.YesCostCents -= basis
	} else {
		basis = pos.NoCostCents * int64(t.Quantity) / int64(pos.NoQty)
		pos.NoQty -= t.Quantity
		pos.NoCostCents -= basis
	}
	w.setPosition(t.Ticker, t.Source, pos)

	w.cashCents += proceeds
	w.tradeDeltaCents += proceeds
	t.CostCents = proceeds
	t.PnLCents = proceeds - basis
	return nil
}

// applySettle clears every source's position on the trade's ticker and
// credits the payout (already computed by the sweeper into CostCents) to
// the unsettled balance.
func (w *Wallet) applySettle(t *model.Trade) error {
	var basis int64
	for source, pos := range w.inventory[t.Ticker] {
		basis += pos.YesCostCents + pos.NoCostCents
		w.setPosition(t.Ticker, source, Position{})
	}
	delete(w.inventory, t.Ticker)

	w.unsettledCents += t.CostCents
	w.payoutCents += t.CostCents
	w.pending = append(w.pending, pendingCredit{
		amountCents: t.CostCents,
		availableAt: t.Time.Add(w.settlementDelay),
	})
	t.PnLCents = t.CostCents - basis
	return nil
}

// CheckSettlements migrates matured settlement credits from the unsettled
// balance into available cash. Returns the amount migrated.
func (w *Wallet) CheckSettlements(now time.Time) int64 {
	var migrated int64
	remaining := w.pending[:0]
	for _, credit := range w.pending {
		if credit.availableAt.After(now) {
			remaining = append(remaining, credit)
			continue
		}
		migrated += credit.amountCents
	}
	w.pending = remaining
	w.unsettledCents -= migrated
	w.cashCents += migrated
	return migrated
}

// MarkToMarket values open inventory with the supplied last-known prices
// (cents per YES contract). Inventory on tickers with no known price is
// carried at cost. Never mutates the wallet.
func (w *Wallet) MarkToMarket(prices map[string]int) int64 {
	var value int64
	for ticker, bySource := range w.inventory {
		price, known := prices[ticker]
		for _, pos := range bySource {
			if known {
				value += int64(pos.YesQty)*int64(price) + int64(pos.NoQty)*int64(100-price)
			} else {
				value += pos.YesCostCents + pos.NoCostCents
			}
		}
	}
	return value
}

// EquityCents returns cash + unsettled + mark-to-market inventory value.
func (w *Wallet) EquityCents(prices map[string]int) int64 {
	return w.cashCents + w.unsettledCents + w.MarkToMarket(prices)
}

// CheckConservation verifies the money identity. The comparison is exact:
// every mutation moves integer cents.
func (w *Wallet) CheckConservation() error {
	expected := w.initialCashCents + w.tradeDeltaCents + w.payoutCents
	got := w.cashCents + w.unsettledCents
	if got != expected {
		return fmt.Errorf("%w: strategy %s: cash+unsettled = %d cents, want %d",
			ErrConservation, w.strategy, got, expected)
	}
	return nil
}

func (w *Wallet) position(ticker, source string) Position {
	return w.inventory[ticker][source]
}

func (w *Wallet) setPosition(ticker, source string, pos Position) {
	bySource, ok := w.inventory[ticker]
	if !ok {
		bySource = make(map[string]Position)
		w.inventory[ticker] = bySource
	}
	if pos.empty() && pos.YesCostCents == 0 && pos.NoCostCents == 0 {
		delete(bySource, source)
		if len(bySource) == 0 {
			delete(w.inventory, ticker)
		}
		return
	}
	bySource[source] = pos
}
