// Package snapshot reads and writes the resume-snapshot format: the
// authoritative starting ledger state for a replay that continues from a
// live run's observed state. Dollar amounts are parsed exactly; a cash
// value that is not a whole number of cents is rejected rather than
// rounded.
package snapshot
