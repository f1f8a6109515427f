// Package model defines the core data types shared across the replay
// engine: ticks, contracts, orders, trades, and decision intents.
//
// All prices are integer cents (0-100); a binary contract pays 100 cents
// on YES. Cash amounts are integer cents too, so trade costs and
// settlement payouts are exact and money conservation is an integer
// equality, not a tolerance check.
package model
