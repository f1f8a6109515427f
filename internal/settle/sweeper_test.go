package settle

import (
	"errors"
	"testing"
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/ledger"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

const ticker = "HIGHNY-25AUG31-T52"

func newSweeper(t *testing.T, defaultPrice int) *Sweeper {
	t.Helper()
	s := NewSweeper(LastObservedPrice{DefaultPriceCents: defaultPrice}, 0, time.UTC)
	if err := s.Track(ticker); err != nil {
		t.Fatalf("Track: %v", err)
	}
	return s
}

func walletWithYes(t *testing.T, qty int) *ledger.Wallet {
	t.Helper()
	w := ledger.NewWallet("test", 100_00, time.Hour)
	trade := &model.Trade{
		Time:   time.Date(2025, time.August, 31, 12, 0, 0, 0, time.UTC),
		Ticker: ticker, Action: model.ActionBuyYes,
		PriceCents: 40, Quantity: qty, Source: "main",
	}
	if err := w.ApplyTrade(trade); err != nil {
		t.Fatalf("seed buy: %v", err)
	}
	return w
}

func TestExpiryInstant(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	s := NewSweeper(LastObservedPrice{DefaultPriceCents: -1}, 5, loc)
	if err := s.Track(ticker); err != nil {
		t.Fatal(err)
	}

	c := model.Contract{ExpiryDate: time.Date(2025, time.August, 31, 0, 0, 0, 0, time.UTC)}
	want := time.Date(2025, time.September, 1, 5, 0, 0, 0, loc)
	if got := s.ExpiryInstant(c); !got.Equal(want) {
		t.Errorf("ExpiryInstant = %v, want %v", got, want)
	}
}

func TestDue(t *testing.T) {
	s := newSweeper(t, -1)
	if err := s.Track("HIGHNY-25SEP02-T52"); err != nil {
		t.Fatal(err)
	}

	// Just before the Aug 31 -> Sep 1 boundary: nothing due.
	before := time.Date(2025, time.August, 31, 23, 59, 59, 0, time.UTC)
	if due := s.Due(before); len(due) != 0 {
		t.Errorf("Due(before boundary) = %v, want none", due)
	}

	// At the boundary the Aug 31 contract is due, the Sep 2 one is not.
	at := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	due := s.Due(at)
	if len(due) != 1 || due[0] != ticker {
		t.Errorf("Due(at boundary) = %v, want [%s]", due, ticker)
	}
}

func TestSweepPayout(t *testing.T) {
	s := newSweeper(t, -1)
	w := walletWithYes(t, 10)
	now := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	trades, err := s.Sweep(ticker, now, 83, true, []*ledger.Wallet{w})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d settle trades, want 1", len(trades))
	}
	// 10 YES at 83 cents = $8.30 to unsettled, not cash.
	if trades[0].CostCents != 830 {
		t.Errorf("payout = %d cents, want 830", trades[0].CostCents)
	}
	if w.UnsettledCents() != 830 {
		t.Errorf("unsettled = %d, want 830", w.UnsettledCents())
	}
	if s.StateOf(ticker) != StateSettled {
		t.Errorf("state = %v, want settled", s.StateOf(ticker))
	}
	if err := w.CheckConservation(); err != nil {
		t.Errorf("CheckConservation: %v", err)
	}
}

func TestSweepNoPayoutForNoInventory(t *testing.T) {
	s := newSweeper(t, -1)
	w := ledger.NewWallet("flat", 100_00, time.Hour)
	now := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	trades, err := s.Sweep(ticker, now, 83, true, []*ledger.Wallet{w})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("got %d trades for a flat wallet, want 0", len(trades))
	}
	if s.StateOf(ticker) != StateSettled {
		t.Errorf("state = %v, want settled even with no inventory", s.StateOf(ticker))
	}
}

func TestSweepIdempotent(t *testing.T) {
	s := newSweeper(t, -1)
	w := walletWithYes(t, 10)
	now := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.Sweep(ticker, now, 83, true, []*ledger.Wallet{w}); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	unsettled := w.UnsettledCents()

	trades, err := s.Sweep(ticker, now.Add(time.Hour), 90, true, []*ledger.Wallet{w})
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("second sweep produced %d trades, want 0", len(trades))
	}
	if w.UnsettledCents() != unsettled {
		t.Errorf("unsettled changed on re-sweep: %d -> %d", unsettled, w.UnsettledCents())
	}
}

func TestSweepNeverTickedContract(t *testing.T) {
	now := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	t.Run("WithDefault", func(t *testing.T) {
		s := newSweeper(t, 0)
		w := walletWithYes(t, 4)
		trades, err := s.Sweep(ticker, now, 0, false, []*ledger.Wallet{w})
		if err != nil {
			t.Fatalf("Sweep: %v", err)
		}
		// Default price 0: YES worthless, payout 0 but position cleared.
		if len(trades) != 1 || trades[0].CostCents != 0 {
			t.Errorf("trades = %+v, want one zero-payout settle", trades)
		}
	})

	t.Run("WithoutDefault", func(t *testing.T) {
		s := newSweeper(t, -1)
		w := walletWithYes(t, 4)
		_, err := s.Sweep(ticker, now, 0, false, []*ledger.Wallet{w})
		if !errors.Is(err, ErrNoSettlementPrice) {
			t.Fatalf("err = %v, want ErrNoSettlementPrice", err)
		}
		if s.StateOf(ticker) != StateExpiring {
			t.Errorf("state = %v, want expiring (retryable)", s.StateOf(ticker))
		}
		if w.UnsettledCents() != 0 {
			t.Errorf("unsettled = %d, want 0 after failed sweep", w.UnsettledCents())
		}
	})
}

func TestNoBetweenPayout(t *testing.T) {
	s := newSweeper(t, -1)
	w := ledger.NewWallet("no-holder", 100_00, time.Hour)
	buy := &model.Trade{
		Time:   time.Date(2025, time.August, 31, 12, 0, 0, 0, time.UTC),
		Ticker: ticker, Action: model.ActionBuyNo,
		PriceCents: 20, Quantity: 5, Source: "main",
	}
	if err := w.ApplyTrade(buy); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	trades, err := s.Sweep(ticker, now, 83, true, []*ledger.Wallet{w})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	// NO pays quantity x (100 - price): 5 x 17 = 85 cents.
	if len(trades) != 1 || trades[0].CostCents != 85 {
		t.Errorf("NO payout = %+v, want 85 cents", trades)
	}
}

func TestTrackRejectsUnparseableTicker(t *testing.T) {
	s := NewSweeper(LastObservedPrice{DefaultPriceCents: -1}, 0, time.UTC)
	if err := s.Track("garbage"); err == nil {
		t.Fatal("Track: want error for unparseable ticker")
	}
	if s.Known("garbage") {
		t.Error("unparseable ticker must not be tracked")
	}
}
