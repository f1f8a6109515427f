// Package fill decides which resting orders execute against an incoming
// tick.
//
// Two models are provided: a deterministic crossing model (an order fills
// fully the first tick the market is at or through its limit) and a
// probabilistic model that reproduces the lower real-world fill rate of
// passive orders in thin markets. Orders only ever match against the
// market implied by the tick, never against other orders, so a strategy
// cannot fill against its own opposing quote.
package fill
