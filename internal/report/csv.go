package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

// Metrics counts rows written per stream.
type Metrics struct {
	Trades  int64
	Equity  int64
	Intents int64
	Flushes int64
}

// CSVRecorder writes the three audit streams into an output directory.
type CSVRecorder struct {
	trades  *csvSink
	equity  *csvSink
	intents *csvSink
	metrics Metrics
}

// NewCSVRecorder creates trades.csv, equity.csv, and intents.csv under
// dir, truncating existing files. flushEvery bounds the rows buffered per
// stream between flushes.
func NewCSVRecorder(dir string, flushEvery int) (*CSVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	r := &CSVRecorder{}
	var err error
	if r.trades, err = newCSVSink(filepath.Join(dir, "trades.csv"), flushEvery,
		[]string{"time", "strategy", "ticker", "action", "price", "qty", "cost", "fee", "pnl"}); err != nil {
		return nil, err
	}
	if r.equity, err = newCSVSink(filepath.Join(dir, "equity.csv"), flushEvery,
		[]string{"date", "strategy", "cash", "unsettled", "equity"}); err != nil {
		r.trades.close()
		return nil, err
	}
	if r.intents, err = newCSVSink(filepath.Join(dir, "intents.csv"), flushEvery,
		[]string{"time", "seq", "source", "strategy", "decision", "ticker", "action", "price", "qty"}); err != nil {
		r.trades.close()
		r.equity.close()
		return nil, err
	}
	return r, nil
}

// RecordTrade appends one trade-log row. The simulator charges no
// exchange fees, so the fee column is always zero; the column stays for
// parity with live trade logs.
func (r *CSVRecorder) RecordTrade(t *model.Trade) error {
	r.metrics.Trades++
	return r.trades.write([]string{
		t.Time.UTC().Format(time.RFC3339Nano),
		t.Strategy,
		t.Ticker,
		string(t.Action),
		strconv.Itoa(t.PriceCents),
		strconv.Itoa(t.Quantity),
		dollars(t.CostCents),
		"0.00",
		dollars(t.PnLCents),
	})
}

// RecordEquity appends one daily equity row.
func (r *CSVRecorder) RecordEquity(row EquityRow) error {
	r.metrics.Equity++
	return r.equity.write([]string{
		row.Date.UTC().Format("2006-01-02"),
		row.Strategy,
		dollars(row.CashCents),
		dollars(row.UnsettledCents),
		dollars(row.EquityCents),
	})
}

// RecordIntent appends one decision-intent row.
func (r *CSVRecorder) RecordIntent(in model.DecisionIntent) error {
	r.metrics.Intents++
	action := ""
	if in.Action != "" {
		action = string(in.Action)
	}
	return r.intents.write([]string{
		in.TickTime.UTC().Format(time.RFC3339Nano),
		strconv.FormatInt(in.TickSeq, 10),
		in.TickSource,
		in.Strategy,
		string(in.Type),
		in.Ticker,
		action,
		strconv.Itoa(in.PriceCents),
		strconv.Itoa(in.Quantity),
	})
}

// Stats returns row counters.
func (r *CSVRecorder) Stats() Metrics {
	m := r.metrics
	m.Flushes = r.trades.flushes + r.equity.flushes + r.intents.flushes
	return m
}

// Close flushes and closes all three streams.
func (r *CSVRecorder) Close() error {
	var first error
	for _, sink := range []*csvSink{r.trades, r.equity, r.intents} {
		if err := sink.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// dollars renders integer cents as a fixed two-decimal dollar string.
func dollars(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// csvSink is one buffered CSV output file.
type csvSink struct {
	f          *os.File
	w          *csv.Writer
	flushEvery int
	buffered   int
	flushes    int64
}

func newCSVSink(path string, flushEvery int, header []string) (*csvSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	s := &csvSink{f: f, w: csv.NewWriter(f), flushEvery: flushEvery}
	if err := s.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *csvSink) write(record []string) error {
	if err := s.w.Write(record); err != nil {
		return err
	}
	s.buffered++
	if s.buffered >= s.flushEvery {
		s.w.Flush()
		s.flushes++
		s.buffered = 0
	}
	return s.w.Error()
}

func (s *csvSink) close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
