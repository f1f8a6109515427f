// Package ledger tracks per-strategy cash, unsettled settlement credits,
// and per-source inventory.
//
// A Wallet is mutated only through ApplyTrade and CheckSettlements, and a
// rejected trade leaves it untouched. Because all amounts are integer
// cents, the conservation identity
//
//	cash + unsettled == initial cash + Σ trade deltas + Σ payouts
//
// holds exactly at every point of a replay; any drift is a bug, not
// rounding.
package ledger
