package settle

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/ledger"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

// State is a contract's position in the settlement lifecycle.
type State int

const (
	StateOpen State = iota
	StateExpiring
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateExpiring:
		return "expiring"
	case StateSettled:
		return "settled"
	}
	return "unknown"
}

// Sweeper tracks contract lifecycle and realizes payouts at expiry.
type Sweeper struct {
	policy       PricePolicy
	boundaryHour int
	loc          *time.Location

	contracts map[string]model.Contract
	states    map[string]State
}

// NewSweeper creates a sweeper. boundaryHour is the local hour at which
// the trading day rolls over in loc; a contract expires when the day
// boundary after its expiry date passes.
func NewSweeper(policy PricePolicy, boundaryHour int, loc *time.Location) *Sweeper {
	return &Sweeper{
		policy:       policy,
		boundaryHour: boundaryHour,
		loc:          loc,
		contracts:    make(map[string]model.Contract),
		states:       make(map[string]State),
	}
}

// Track registers a contract when its ticker is first seen. Unparseable
// tickers are an UnknownContract condition for the caller to count.
func (s *Sweeper) Track(ticker string) error {
	if _, ok := s.contracts[ticker]; ok {
		return nil
	}
	c, err := model.ParseTicker(ticker)
	if err != nil {
		return err
	}
	s.contracts[ticker] = c
	s.states[ticker] = StateOpen
	return nil
}

// Known reports whether the ticker has been tracked.
func (s *Sweeper) Known(ticker string) bool {
	_, ok := s.contracts[ticker]
	return ok
}

// Contract returns a tracked contract's reference data.
func (s *Sweeper) Contract(ticker string) (model.Contract, bool) {
	c, ok := s.contracts[ticker]
	return c, ok
}

// StateOf returns the lifecycle state of a tracked contract.
func (s *Sweeper) StateOf(ticker string) State {
	return s.states[ticker]
}

// ExpiryInstant is the moment a contract leaves the tradeable day: the
// first day boundary after its expiry date.
func (s *Sweeper) ExpiryInstant(c model.Contract) time.Time {
	d := c.ExpiryDate
	return time.Date(d.Year(), d.Month(), d.Day()+1, s.boundaryHour, 0, 0, 0, s.loc)
}

// Due returns the tickers of open contracts whose expiry instant is at or
// before now, in deterministic (sorted) order.
func (s *Sweeper) Due(now time.Time) []string {
	var due []string
	for ticker, c := range s.contracts {
		if s.states[ticker] != StateOpen {
			continue
		}
		if !s.ExpiryInstant(c).After(now) {
			due = append(due, ticker)
		}
	}
	sort.Strings(due)
	return due
}

// Open returns all tickers still in StateOpen, sorted. The replay loop
// force-sweeps these at end of stream.
func (s *Sweeper) Open() []string {
	var open []string
	for ticker, st := range s.states {
		if st == StateOpen {
			open = append(open, ticker)
		}
	}
	sort.Strings(open)
	return open
}

// Sweep settles one contract across all wallets: YES inventory pays
// quantity x price, NO inventory pays quantity x (100-price), credited to
// each wallet's unsettled balance. Sweeping an already settled contract
// is a no-op. The returned trades are the SETTLE audit records, one per
// wallet with inventory.
func (s *Sweeper) Sweep(ticker string, now time.Time, lastPrice int, ticked bool, wallets []*ledger.Wallet) ([]*model.Trade, error) {
	if s.states[ticker] == StateSettled {
		return nil, nil
	}
	s.states[ticker] = StateExpiring

	price, err := s.policy.SettlementPrice(ticker, lastPrice, ticked)
	if err != nil {
		// Leave the contract EXPIRING so a later sweep can retry.
		return nil, err
	}
	if price < 0 || price > 100 {
		return nil, fmt.Errorf("settlement price %d for %s out of range", price, ticker)
	}

	var trades []*model.Trade
	for _, w := range wallets {
		pos := w.ContractPosition(ticker)
		qty := pos.YesQty + pos.NoQty
		if qty == 0 {
			continue
		}
		payout := int64(pos.YesQty)*int64(price) + int64(pos.NoQty)*int64(100-price)

		trade := &model.Trade{
			ID:         uuid.New(),
			Time:       now,
			Strategy:   w.Strategy(),
			Ticker:     ticker,
			Action:     model.ActionSettle,
			PriceCents: price,
			Quantity:   qty,
			CostCents:  payout,
		}
		if err := w.ApplyTrade(trade); err != nil {
			return trades, fmt.Errorf("settle %s for %s: %w", ticker, w.Strategy(), err)
		}
		trades = append(trades, trade)
	}

	s.states[ticker] = StateSettled
	return trades, nil
}
