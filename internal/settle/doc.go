// Package settle expires contracts and realizes their payouts.
//
// Each tracked contract moves through OPEN -> EXPIRING -> SETTLED, driven
// by the replay loop's day-boundary detection. The settlement price comes
// from a swappable PricePolicy; the default uses the last observed market
// price, which is the documented approximation this simulation shares
// with the live comparison tooling. Sweeps are idempotent: a SETTLED
// contract never pays twice.
package settle
