// Package report writes the replay's audit artifacts: the trade log, the
// daily equity history, and the per-tick decision-intent log.
//
// The CSV layouts are the interchange formats the live/backtest
// comparison tooling consumes; column order and money formatting (dollars
// with two decimals) are part of the contract.
package report
