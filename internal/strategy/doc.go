// Package strategy defines the decision contract between the replay loop
// and pluggable trading strategies.
//
// A strategy is invoked once per tick and answers with either Keep (leave
// my resting orders alone) or Desired (replace my entire resting set on
// this contract with exactly these orders). There is no incremental
// amend; the replace contract keeps strategies stateless with respect to
// order identity, which is what makes live and backtest decision streams
// directly diffable.
package strategy
