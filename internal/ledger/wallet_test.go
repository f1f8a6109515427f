package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

var t0 = time.Date(2025, time.August, 30, 14, 0, 0, 0, time.UTC)

func newTrade(action model.TradeAction, price, qty int) *model.Trade {
	return &model.Trade{
		ID:         uuid.New(),
		Time:       t0,
		Strategy:   "test",
		Ticker:     "HIGHNY-25AUG31-T52",
		Action:     action,
		PriceCents: price,
		Quantity:   qty,
		Source:     "main",
	}
}

func TestApplyTradeBuySell(t *testing.T) {
	w := NewWallet("test", 1000, time.Hour) // $10.00

	buy := newTrade(model.ActionBuyYes, 45, 10)
	if err := w.ApplyTrade(buy); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if w.CashCents() != 550 {
		t.Errorf("cash = %d, want 550", w.CashCents())
	}
	if buy.CostCents != 450 {
		t.Errorf("buy cost = %d, want 450", buy.CostCents)
	}
	pos := w.Position("HIGHNY-25AUG31-T52", "main")
	if pos.YesQty != 10 || pos.YesCostCents != 450 {
		t.Errorf("position = %+v, want 10 YES at 450 cost", pos)
	}

	sell := newTrade(model.ActionSellYes, 60, 4)
	if err := w.ApplyTrade(sell); err != nil {
		t.Fatalf("sell: %v", err)
	}
	// 4 of 10 contracts: proceeds 240, basis 180, pnl 60.
	if w.CashCents() != 790 {
		t.Errorf("cash = %d, want 790", w.CashCents())
	}
	if sell.PnLCents != 60 {
		t.Errorf("sell pnl = %d, want 60", sell.PnLCents)
	}
	pos = w.Position("HIGHNY-25AUG31-T52", "main")
	if pos.YesQty != 6 || pos.YesCostCents != 270 {
		t.Errorf("position = %+v, want 6 YES at 270 cost", pos)
	}

	if err := w.CheckConservation(); err != nil {
		t.Errorf("CheckConservation: %v", err)
	}
}

func TestApplyTradeInsufficientFunds(t *testing.T) {
	w := NewWallet("test", 100, time.Hour)

	trade := newTrade(model.ActionBuyYes, 45, 10) // costs 450
	err := w.ApplyTrade(trade)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if w.CashCents() != 100 {
		t.Errorf("cash = %d, want unchanged 100", w.CashCents())
	}
	if pos := w.Position("HIGHNY-25AUG31-T52", "main"); !pos.empty() {
		t.Errorf("position = %+v, want empty after rejected trade", pos)
	}
}

func TestApplyTradeInsufficientInventory(t *testing.T) {
	w := NewWallet("test", 1000, time.Hour)
	if err := w.ApplyTrade(newTrade(model.ActionBuyNo, 30, 5)); err != nil {
		t.Fatalf("buy: %v", err)
	}

	err := w.ApplyTrade(newTrade(model.ActionSellNo, 40, 6))
	if !errors.Is(err, ErrInsufficientInventory) {
		t.Fatalf("err = %v, want ErrInsufficientInventory", err)
	}
	if w.CashCents() != 850 {
		t.Errorf("cash = %d, want unchanged 850", w.CashCents())
	}
	if pos := w.Position("HIGHNY-25AUG31-T52", "main"); pos.NoQty != 5 {
		t.Errorf("NoQty = %d, want unchanged 5", pos.NoQty)
	}
}

func TestApplyTradeZeroQuantitySell(t *testing.T) {
	cases := []struct {
		name string
		seed *model.Trade // optional position before the sell
	}{
		{name: "empty position"},
		{name: "held position", seed: newTrade(model.ActionBuyYes, 40, 5)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := NewWallet("test", 1000, time.Hour)
			if tc.seed != nil {
				if err := w.ApplyTrade(tc.seed); err != nil {
					t.Fatalf("seed: %v", err)
				}
			}
			cash := w.CashCents()

			err := w.ApplyTrade(newTrade(model.ActionSellYes, 60, 0))
			if !errors.Is(err, ErrInsufficientInventory) {
				t.Fatalf("err = %v, want ErrInsufficientInventory", err)
			}
			if w.CashCents() != cash {
				t.Errorf("cash = %d, want unchanged %d", w.CashCents(), cash)
			}
		})
	}
}

func TestSettlementDelay(t *testing.T) {
	delay := 2 * time.Hour
	w := NewWallet("test", 1000, delay)
	if err := w.ApplyTrade(newTrade(model.ActionBuyYes, 40, 10)); err != nil {
		t.Fatalf("buy: %v", err)
	}

	settle := newTrade(model.ActionSettle, 83, 10)
	settle.CostCents = 830 // 10 contracts at 83 cents
	if err := w.ApplyTrade(settle); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if w.UnsettledCents() != 830 {
		t.Errorf("unsettled = %d, want 830", w.UnsettledCents())
	}
	if settle.PnLCents != 430 {
		t.Errorf("settle pnl = %d, want 430", settle.PnLCents)
	}
	if got := w.Position("HIGHNY-25AUG31-T52", "main"); !got.empty() {
		t.Errorf("position = %+v, want cleared", got)
	}

	// One tick before maturity: nothing migrates.
	if migrated := w.CheckSettlements(t0.Add(delay - time.Second)); migrated != 0 {
		t.Errorf("migrated %d cents before delay elapsed", migrated)
	}
	if w.CashCents() != 600 {
		t.Errorf("cash = %d, want 600 before maturity", w.CashCents())
	}

	// At maturity the credit becomes spendable.
	if migrated := w.CheckSettlements(t0.Add(delay)); migrated != 830 {
		t.Errorf("migrated = %d, want 830", migrated)
	}
	if w.CashCents() != 1430 {
		t.Errorf("cash = %d, want 1430", w.CashCents())
	}
	if w.UnsettledCents() != 0 {
		t.Errorf("unsettled = %d, want 0", w.UnsettledCents())
	}

	if err := w.CheckConservation(); err != nil {
		t.Errorf("CheckConservation: %v", err)
	}
}

func TestMarkToMarket(t *testing.T) {
	w := NewWallet("test", 10_000, time.Hour)
	if err := w.ApplyTrade(newTrade(model.ActionBuyYes, 40, 10)); err != nil {
		t.Fatal(err)
	}
	no := newTrade(model.ActionBuyNo, 30, 5)
	no.Source = "hedge"
	if err := w.ApplyTrade(no); err != nil {
		t.Fatal(err)
	}

	prices := map[string]int{"HIGHNY-25AUG31-T52": 70}
	// YES: 10*70 = 700; NO: 5*(100-70) = 150.
	if got := w.MarkToMarket(prices); got != 850 {
		t.Errorf("MarkToMarket = %d, want 850", got)
	}

	// Unknown ticker values at cost.
	if got := w.MarkToMarket(nil); got != 550 {
		t.Errorf("MarkToMarket(at cost) = %d, want 550", got)
	}

	wantEquity := w.CashCents() + 850
	if got := w.EquityCents(prices); got != wantEquity {
		t.Errorf("EquityCents = %d, want %d", got, wantEquity)
	}
}

func TestPerSourceInventory(t *testing.T) {
	w := NewWallet("test", 10_000, time.Hour)

	maker := newTrade(model.ActionBuyYes, 40, 10)
	maker.Source = "maker"
	scalper := newTrade(model.ActionBuyYes, 42, 3)
	scalper.Source = "scalper"
	for _, tr := range []*model.Trade{maker, scalper} {
		if err := w.ApplyTrade(tr); err != nil {
			t.Fatal(err)
		}
	}

	if pos := w.Position("HIGHNY-25AUG31-T52", "maker"); pos.YesQty != 10 {
		t.Errorf("maker YesQty = %d, want 10", pos.YesQty)
	}
	if pos := w.Position("HIGHNY-25AUG31-T52", "scalper"); pos.YesQty != 3 {
		t.Errorf("scalper YesQty = %d, want 3", pos.YesQty)
	}
	if pos := w.ContractPosition("HIGHNY-25AUG31-T52"); pos.YesQty != 13 {
		t.Errorf("consolidated YesQty = %d, want 13", pos.YesQty)
	}
	if tags := w.Sources("HIGHNY-25AUG31-T52"); len(tags) != 2 {
		t.Errorf("Sources = %v, want 2 tags", tags)
	}
}

func TestSeedPositionFromSnapshot(t *testing.T) {
	w := NewWallet("test", 212, time.Hour) // $2.12
	w.SeedPosition("X-25AUG31-T50", "live", 5, 0)

	settle := &model.Trade{
		Time: t0, Strategy: "test", Ticker: "X-25AUG31-T50",
		Action: model.ActionSettle, PriceCents: 90, Quantity: 5,
		CostCents: 450, // 5 x 90 cents
	}
	if err := w.ApplyTrade(settle); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if w.UnsettledCents() != 450 {
		t.Errorf("unsettled = %d, want 450", w.UnsettledCents())
	}
	if err := w.CheckConservation(); err != nil {
		t.Errorf("CheckConservation: %v", err)
	}
}
