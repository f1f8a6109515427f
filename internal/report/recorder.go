package report

import (
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

// EquityRow is one strategy's end-of-day balance snapshot.
type EquityRow struct {
	Date           time.Time // day boundary timestamp
	Strategy       string
	CashCents      int64
	UnsettledCents int64
	EquityCents    int64
}

// Recorder receives the replay's output streams. CSV files are the
// primary implementation; a database sink can sit alongside it.
type Recorder interface {
	RecordTrade(*model.Trade) error
	RecordEquity(EquityRow) error
	RecordIntent(model.DecisionIntent) error
	Close() error
}

// Multi fans every record out to several recorders.
type Multi []Recorder

func (m Multi) RecordTrade(t *model.Trade) error {
	for _, r := range m {
		if err := r.RecordTrade(t); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) RecordEquity(row EquityRow) error {
	for _, r := range m {
		if err := r.RecordEquity(row); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) RecordIntent(in model.DecisionIntent) error {
	for _, r := range m {
		if err := r.RecordIntent(in); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
