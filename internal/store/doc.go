// Package store is the optional Postgres/TimescaleDB sink for replay
// results. Trades and daily equity rows are batch-inserted so long
// replays do not pay a round trip per execution; inserting the same run
// twice is harmless because trade IDs conflict-away.
package store
