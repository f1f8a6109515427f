package ticksource

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

// Input row layout:
//
//	timestamp, ticker, yes_bid, no_bid, implied_no_ask, implied_yes_ask[, last_price[, seq]]
//
// timestamp is µs since epoch or RFC3339. last_price and seq are optional;
// when seq is absent the per-file row number is used.
const minFields = 6

// malformedRowError marks a row the source skips and counts rather than
// aborting the stream.
type malformedRowError struct {
	reason string
}

func (e *malformedRowError) Error() string {
	return "malformed row: " + e.reason
}

func parseRow(record []string, tag string, rowNum int64) (model.Tick, error) {
	if len(record) < minFields {
		return model.Tick{}, &malformedRowError{reason: fmt.Sprintf("%d fields, want >= %d", len(record), minFields)}
	}

	ts, err := parseTimestamp(record[0])
	if err != nil {
		return model.Tick{}, &malformedRowError{reason: err.Error()}
	}

	ticker := strings.TrimSpace(record[1])
	if ticker == "" {
		return model.Tick{}, &malformedRowError{reason: "empty ticker"}
	}

	yesBid, err := parsePrice(record[2])
	if err != nil {
		return model.Tick{}, &malformedRowError{reason: "yes_bid: " + err.Error()}
	}
	noBid, err := parsePrice(record[3])
	if err != nil {
		return model.Tick{}, &malformedRowError{reason: "no_bid: " + err.Error()}
	}
	impliedNoAsk, err := parsePrice(record[4])
	if err != nil {
		return model.Tick{}, &malformedRowError{reason: "implied_no_ask: " + err.Error()}
	}
	impliedYesAsk, err := parsePrice(record[5])
	if err != nil {
		return model.Tick{}, &malformedRowError{reason: "implied_yes_ask: " + err.Error()}
	}

	tick := model.Tick{
		Time:          ts,
		Seq:           rowNum,
		Ticker:        ticker,
		YesBid:        yesBid,
		NoBid:         noBid,
		ImpliedNoAsk:  impliedNoAsk,
		ImpliedYesAsk: impliedYesAsk,
		Source:        tag,
	}

	if len(record) > 6 && strings.TrimSpace(record[6]) != "" {
		last, err := parsePrice(record[6])
		if err != nil {
			return model.Tick{}, &malformedRowError{reason: "last_price: " + err.Error()}
		}
		tick.LastPrice = last
	}
	if len(record) > 7 && strings.TrimSpace(record[7]) != "" {
		seq, err := strconv.ParseInt(strings.TrimSpace(record[7]), 10, 64)
		if err != nil {
			return model.Tick{}, &malformedRowError{reason: "seq: " + err.Error()}
		}
		tick.Seq = seq
	}

	return tick, nil
}

func parseTimestamp(field string) (time.Time, error) {
	field = strings.TrimSpace(field)
	if micros, err := strconv.ParseInt(field, 10, 64); err == nil {
		return time.UnixMicro(micros).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, field)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: not µs epoch or RFC3339", field)
	}
	return ts.UTC(), nil
}

func parsePrice(field string) (int, error) {
	field = strings.TrimSpace(field)
	p, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("price %q: not an integer", field)
	}
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("price %d out of range 0-100", p)
	}
	return p, nil
}

// isHeader reports whether the first row looks like column names rather
// than data.
func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := parseTimestamp(record[0])
	return err != nil
}
