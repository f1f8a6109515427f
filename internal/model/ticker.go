package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// expiryLayout parses the date portion of a ticker, e.g. "25AUG31".
const expiryLayout = "06Jan02"

// ParseTicker derives contract reference data from a Kalshi-style ticker of
// the form SERIES-YYMMMDD-STRIKE, e.g. "HIGHNY-25AUG31-T52" (>= 52) or
// "HIGHNY-25AUG31-B52.5" (one-unit band centered on 52.5).
func ParseTicker(ticker string) (Contract, error) {
	parts := strings.Split(ticker, "-")
	if len(parts) != 3 {
		return Contract{}, fmt.Errorf("ticker %q: want 3 dash-separated parts, got %d", ticker, len(parts))
	}

	series, datePart, strikePart := parts[0], parts[1], parts[2]
	if series == "" {
		return Contract{}, fmt.Errorf("ticker %q: empty series", ticker)
	}

	expiry, err := parseExpiryDate(datePart)
	if err != nil {
		return Contract{}, fmt.Errorf("ticker %q: %w", ticker, err)
	}

	c := Contract{
		Ticker:     ticker,
		Series:     series,
		ExpiryDate: expiry,
	}

	if len(strikePart) < 2 {
		return Contract{}, fmt.Errorf("ticker %q: malformed strike %q", ticker, strikePart)
	}

	value, err := strconv.ParseFloat(strikePart[1:], 64)
	if err != nil {
		return Contract{}, fmt.Errorf("ticker %q: strike %q: %w", ticker, strikePart, err)
	}

	switch strikePart[0] {
	case 'T':
		c.Rule = RuleAbove
		c.StrikeLow = value
	case 'V':
		c.Rule = RuleBelow
		c.StrikeHigh = value
	case 'B':
		// Between tickers encode the band center; bands are one unit wide.
		c.Rule = RuleBetween
		c.StrikeLow = value - 0.5
		c.StrikeHigh = value + 0.5
	default:
		return Contract{}, fmt.Errorf("ticker %q: unknown strike rule %q", ticker, strikePart[:1])
	}

	return c, nil
}

// parseExpiryDate parses "25AUG31" into midnight UTC of that date. The
// ticker month is uppercase but time.Parse wants title case.
func parseExpiryDate(s string) (time.Time, error) {
	if len(s) != 7 {
		return time.Time{}, fmt.Errorf("expiry date %q: want YYMMMDD", s)
	}
	normalized := s[:2] + s[2:3] + strings.ToLower(s[3:5]) + s[5:]
	t, err := time.Parse(expiryLayout, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("expiry date %q: %w", s, err)
	}
	return t, nil
}
