package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// ErrLoad wraps any snapshot parse failure. Loading is fatal at startup:
// a replay resumed from a bad snapshot would produce confidently wrong
// results.
var ErrLoad = errors.New("snapshot load")

// Position is a starting inventory on one contract.
type Position struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

// Snapshot is a resumable ledger state.
type Snapshot struct {
	CashCents int64
	Positions map[string]Position
}

// wire is the on-disk JSON shape: {"cash": 2.12, "positions": {...}}.
type wire struct {
	Cash      json.Number         `json:"cash"`
	Positions map[string]Position `json:"positions"`
}

// Load reads and validates a snapshot file.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	return Parse(data)
}

// Parse validates snapshot JSON.
func Parse(data []byte) (*Snapshot, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if w.Cash == "" {
		return nil, fmt.Errorf("%w: missing cash field", ErrLoad)
	}

	cash, err := decimal.NewFromString(w.Cash.String())
	if err != nil {
		return nil, fmt.Errorf("%w: cash %q: %v", ErrLoad, w.Cash, err)
	}
	cents := cash.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return nil, fmt.Errorf("%w: cash %s is not a whole number of cents", ErrLoad, cash)
	}
	if cents.IsNegative() {
		return nil, fmt.Errorf("%w: cash %s is negative", ErrLoad, cash)
	}

	for ticker, pos := range w.Positions {
		if pos.Yes < 0 || pos.No < 0 {
			return nil, fmt.Errorf("%w: negative position on %s", ErrLoad, ticker)
		}
	}

	s := &Snapshot{
		CashCents: cents.IntPart(),
		Positions: w.Positions,
	}
	if s.Positions == nil {
		s.Positions = map[string]Position{}
	}
	return s, nil
}

// Save writes a snapshot for a later replay to resume from.
func Save(path string, s *Snapshot) error {
	w := wire{
		Cash:      json.Number(decimal.New(s.CashCents, -2).String()),
		Positions: s.Positions,
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
