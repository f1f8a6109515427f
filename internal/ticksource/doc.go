// Package ticksource merges per-series quote logs into a single strictly
// time-ordered stream of ticks.
//
// Each input file is assumed append-ordered; ordering across files is
// restored with a k-way merge keyed on (time, sequence, source tag), so a
// replay over the same inputs always observes the same total order.
// Malformed rows are skipped and counted per file, never silently dropped.
package ticksource
