// Package engine drives a replay: it consumes the merged tick stream in
// strict order and, for every tick, runs the fill simulator, advances
// settlement at day boundaries, invokes each strategy, and reconciles the
// desired orders into the resting-order table.
//
// The loop is single-threaded by design. Ledgers, the resting-order
// table, and contract state all depend on a total order of events;
// strategies are mutually independent and may be fanned out within one
// tick, but never across ticks.
package engine
