package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/fill"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/ledger"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/report"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/settle"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/strategy"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/ticksource"
)

// historyDepth caps the per-contract mid-price history handed to
// strategies.
const historyDepth = 512

// TickStream is the engine's view of the tick source.
type TickStream interface {
	Next() (model.Tick, bool)
	Err() error
}

// malformedCounter is satisfied by ticksource.Source; streams that count
// skipped rows contribute them to the run summary.
type malformedCounter interface {
	Stats() ticksource.Stats
}

// Instance pairs a strategy with its wallet.
type Instance struct {
	Strategy strategy.Strategy
	Wallet   *ledger.Wallet
}

// Options tune the replay loop.
type Options struct {
	BoundaryHour int            // Local hour at which the trading day rolls over
	Location     *time.Location // Zone for day-boundary arithmetic
	Parallel     int            // Strategy fan-out width within one tick
}

// Summary is the end-of-run accounting of everything non-fatal that was
// skipped or rejected, so silent majorities stay visible.
type Summary struct {
	Ticks                int64
	WarmupTicks          int64
	Trades               int64
	Settlements          int64
	MalformedRows        int64
	UnknownContracts     int64
	InsufficientFunds    int64
	InsufficientInv      int64
	DroppedMarketOrders  int64
	DroppedWrongContract int64
	DroppedInvalidOrders int64
	SettlementFailures   int64
}

// Engine replays one pass.
type Engine struct {
	opts    Options
	logger  *slog.Logger
	model   fill.Model
	sweeper *settle.Sweeper
	rec     report.Recorder

	instances []Instance

	// Per-contract state owned by the loop; strategies see copies.
	lastPrices map[string]int
	ticked     map[string]bool
	traded     map[string]bool
	mids       map[string][]int

	// resting[strategy][ticker] is the strategy's whole resting set there.
	resting map[string]map[string][]model.Order

	prevTime time.Time
	prevDay  int
	haveDay  bool

	summary Summary
}

// New creates an engine. The recorder receives every trade, intent, and
// daily equity row.
func New(opts Options, fillModel fill.Model, sweeper *settle.Sweeper, rec report.Recorder, instances []Instance, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Parallel < 1 {
		opts.Parallel = 1
	}

	e := &Engine{
		opts:       opts,
		logger:     logger,
		model:      fillModel,
		sweeper:    sweeper,
		rec:        rec,
		instances:  instances,
		lastPrices: make(map[string]int),
		ticked:     make(map[string]bool),
		traded:     make(map[string]bool),
		mids:       make(map[string][]int),
		resting:    make(map[string]map[string][]model.Order),
	}
	for _, inst := range instances {
		e.resting[inst.Strategy.Name()] = make(map[string][]model.Order)
	}
	return e
}

// Seed registers contracts held before the pass starts (snapshot
// positions) so they are tracked and swept even if they never tick.
func (e *Engine) Seed(tickers []string) error {
	for _, ticker := range tickers {
		if err := e.sweeper.Track(ticker); err != nil {
			return fmt.Errorf("seed position: %w", err)
		}
	}
	return nil
}

// Run consumes the stream to exhaustion, force-settles what remains, and
// emits the final per-strategy report. Only ledger conservation
// violations and stream read errors abort the pass.
func (e *Engine) Run(ctx context.Context, stream TickStream) (Summary, error) {
	for {
		if err := ctx.Err(); err != nil {
			return e.summary, err
		}
		tick, ok := stream.Next()
		if !ok {
			break
		}
		if err := e.processTick(tick); err != nil {
			return e.summary, err
		}
	}
	if err := stream.Err(); err != nil {
		return e.summary, fmt.Errorf("tick stream: %w", err)
	}

	if counted, ok := stream.(malformedCounter); ok {
		e.summary.MalformedRows = counted.Stats().TotalMalformed()
	}

	if err := e.finalSweep(); err != nil {
		return e.summary, err
	}
	e.logFinalReport()
	return e.summary, nil
}

func (e *Engine) processTick(tick model.Tick) error {
	// Contracts enter the world when first ticked, whatever their state.
	if !e.sweeper.Known(tick.Ticker) {
		if err := e.sweeper.Track(tick.Ticker); err != nil {
			e.summary.UnknownContracts++
			e.logger.Debug("skipping tick on unparseable ticker", "ticker", tick.Ticker, "error", err)
			return nil
		}
	}

	if tick.Warmup {
		e.summary.WarmupTicks++
		e.observePrice(tick)
		e.prevTime = tick.Time
		return nil
	}
	e.summary.Ticks++

	elapsed := time.Duration(0)
	if !e.prevTime.IsZero() && tick.Time.After(e.prevTime) {
		elapsed = tick.Time.Sub(e.prevTime)
	}

	// 1. Fills against resting orders on this contract.
	if e.sweeper.StateOf(tick.Ticker) == settle.StateOpen {
		if err := e.simulateFills(tick, elapsed); err != nil {
			return err
		}
	}

	// 2. Last-known prices and history.
	e.observePrice(tick)

	// 3. Day boundary: sweep expiries, snapshot equity, reset baselines.
	if err := e.maybeRollDay(tick.Time); err != nil {
		return err
	}

	// 4. Matured settlement credits become spendable cash.
	for _, inst := range e.instances {
		inst.Wallet.CheckSettlements(tick.Time)
	}

	// 5. Strategies decide; 6. reconcile and audit.
	if e.sweeper.StateOf(tick.Ticker) == settle.StateOpen {
		decisions, err := e.decide(tick)
		if err != nil {
			return err
		}
		if err := e.reconcile(tick, decisions); err != nil {
			return err
		}
	}

	for _, inst := range e.instances {
		if err := inst.Wallet.CheckConservation(); err != nil {
			return err
		}
	}

	e.prevTime = tick.Time
	return nil
}

// observePrice updates the last-known price table and rolling history. A
// real traded price is sticky: later quote-only ticks track the midpoint
// only until the contract first trades.
func (e *Engine) observePrice(tick model.Tick) {
	if tick.LastPrice > 0 {
		e.lastPrices[tick.Ticker] = tick.LastPrice
		e.traded[tick.Ticker] = true
	} else if !e.traded[tick.Ticker] {
		e.lastPrices[tick.Ticker] = tick.Mid()
	}
	e.ticked[tick.Ticker] = true

	h := append(e.mids[tick.Ticker], tick.Mid())
	if len(h) > historyDepth {
		h = h[len(h)-historyDepth:]
	}
	e.mids[tick.Ticker] = h
}

// dayIndex numbers trading days: the day rolls over at BoundaryHour in
// the configured zone, not necessarily midnight.
func (e *Engine) dayIndex(t time.Time) int {
	adjusted := t.In(e.opts.Location).Add(-time.Duration(e.opts.BoundaryHour) * time.Hour)
	return adjusted.Year()*1000 + adjusted.YearDay()
}

func (e *Engine) maybeRollDay(now time.Time) error {
	day := e.dayIndex(now)
	if !e.haveDay {
		e.haveDay = true
		e.prevDay = day
		return nil
	}
	if day == e.prevDay {
		return nil
	}
	e.prevDay = day

	if err := e.sweepDue(now); err != nil {
		return err
	}
	// The equity row is dated by the day just closed, i.e. the previous
	// tick's trading day.
	e.emitEquity(e.prevTime)
	return nil
}

// sweepDue settles every open contract whose expiry the day boundary has
// passed, and cancels resting orders on it.
func (e *Engine) sweepDue(now time.Time) error {
	wallets := make([]*ledger.Wallet, len(e.instances))
	for i, inst := range e.instances {
		wallets[i] = inst.Wallet
	}

	for _, ticker := range e.sweeper.Due(now) {
		trades, err := e.sweeper.Sweep(ticker, now, e.lastPrices[ticker], e.ticked[ticker], wallets)
		if err != nil {
			e.summary.SettlementFailures++
			e.logger.Warn("settlement failed", "ticker", ticker, "error", err)
			continue
		}
		for _, t := range trades {
			e.summary.Settlements++
			if err := e.rec.RecordTrade(t); err != nil {
				return err
			}
		}
		for name := range e.resting {
			delete(e.resting[name], ticker)
		}
		e.logger.Debug("contract settled", "ticker", ticker, "price", e.lastPrices[ticker])
	}
	return nil
}

// emitEquity writes one equity row per strategy dated asOf and resets the
// daily baseline.
func (e *Engine) emitEquity(asOf time.Time) {
	date := asOf.In(e.opts.Location)
	for _, inst := range e.instances {
		w := inst.Wallet
		equity := w.EquityCents(e.lastPrices)
		row := report.EquityRow{
			Date:           date,
			Strategy:       w.Strategy(),
			CashCents:      w.CashCents(),
			UnsettledCents: w.UnsettledCents(),
			EquityCents:    equity,
		}
		if err := e.rec.RecordEquity(row); err != nil {
			e.logger.Error("equity row write failed", "error", err)
		}
		w.ResetDayStartEquity(equity)
	}
}

// simulateFills runs the fill model per strategy and applies executions.
func (e *Engine) simulateFills(tick model.Tick, elapsed time.Duration) error {
	for _, inst := range e.instances {
		name := inst.Strategy.Name()
		resting := e.resting[name][tick.Ticker]
		if len(resting) == 0 {
			continue
		}

		execs := e.model.Fills(tick, resting, elapsed)
		if len(execs) == 0 {
			continue
		}

		// Match each execution to one unfilled slot by index, so a fill
		// of one of two identical orders leaves the other resting.
		filled := make([]bool, len(resting))
		for _, ex := range execs {
			for i, o := range resting {
				if !filled[i] && o == ex.Order {
					filled[i] = true
					break
				}
			}
			trade := e.tradeFromExec(tick, name, ex)
			if err := e.applyTrade(inst.Wallet, trade); err != nil {
				return err
			}
		}

		// Keep whatever did not fill; filled or rejected orders leave
		// the book either way.
		var remaining []model.Order
		for i, o := range resting {
			if !filled[i] {
				remaining = append(remaining, o)
			}
		}
		e.setResting(name, tick.Ticker, remaining)
	}
	return nil
}

func (e *Engine) tradeFromExec(tick model.Tick, strategyName string, ex fill.Execution) *model.Trade {
	return &model.Trade{
		ID:         uuid.New(),
		Time:       tick.Time,
		Strategy:   strategyName,
		Ticker:     ex.Order.Ticker,
		Action:     ex.Order.Action(),
		PriceCents: ex.PriceCents,
		Quantity:   ex.Order.Quantity,
		Source:     ex.Order.Source,
	}
}

// applyTrade applies a trade to the wallet, counting non-fatal
// rejections instead of propagating them.
func (e *Engine) applyTrade(w *ledger.Wallet, trade *model.Trade) error {
	err := w.ApplyTrade(trade)
	switch {
	case err == nil:
		e.summary.Trades++
		return e.rec.RecordTrade(trade)
	case isRejection(err):
		e.countRejection(err)
		e.logger.Debug("trade rejected", "strategy", trade.Strategy, "ticker", trade.Ticker, "error", err)
		return nil
	default:
		return err
	}
}

// decide invokes every strategy for the tick, fanned out when configured.
func (e *Engine) decide(tick model.Tick) ([]strategy.Decision, error) {
	decisions := make([]strategy.Decision, len(e.instances))
	if e.opts.Parallel == 1 || len(e.instances) == 1 {
		for i, inst := range e.instances {
			decisions[i] = inst.Strategy.OnTick(e.viewFor(tick, inst))
		}
		return decisions, nil
	}

	// Strategies have disjoint ledgers, so fan-out within the tick is a
	// pure performance play; the barrier below restores the timeline.
	g := new(errgroup.Group)
	g.SetLimit(e.opts.Parallel)
	for i, inst := range e.instances {
		i, inst := i, inst
		g.Go(func() error {
			decisions[i] = inst.Strategy.OnTick(e.viewFor(tick, inst))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return decisions, nil
}

// viewFor assembles the read-only state a strategy may consult.
func (e *Engine) viewFor(tick model.Tick, inst Instance) strategy.TickView {
	name := inst.Strategy.Name()

	positions := make(map[string]ledger.Position)
	for _, source := range inst.Wallet.Sources(tick.Ticker) {
		positions[source] = inst.Wallet.Position(tick.Ticker, source)
	}

	resting := make([]model.Order, len(e.resting[name][tick.Ticker]))
	copy(resting, e.resting[name][tick.Ticker])

	mids := make([]int, len(e.mids[tick.Ticker]))
	copy(mids, e.mids[tick.Ticker])

	contract, _ := e.sweeper.Contract(tick.Ticker)
	return strategy.TickView{
		Tick:      tick,
		Contract:  contract,
		Now:       tick.Time,
		Mids:      mids,
		Positions: positions,
		Resting:   resting,
		CashCents: inst.Wallet.CashCents(),
	}
}

// reconcile applies each decision: KEEP leaves the book alone; DESIRED
// replaces the strategy's whole resting set on this contract. Market
// orders execute immediately and never rest. Exactly one intent row is
// recorded per strategy per tick.
func (e *Engine) reconcile(tick model.Tick, decisions []strategy.Decision) error {
	for i, inst := range e.instances {
		name := inst.Strategy.Name()
		d := decisions[i]

		intent := model.DecisionIntent{
			TickTime:   tick.Time,
			TickSeq:    tick.Seq,
			TickSource: tick.Source,
			Strategy:   name,
			Type:       d.Type(),
			Ticker:     tick.Ticker,
		}

		if d.Replace() {
			var rest []model.Order
			for _, o := range d.Orders() {
				if o.Ticker != tick.Ticker {
					// Orders never span contracts; a desire for another
					// ticker is a strategy bug, counted not honored.
					e.summary.DroppedWrongContract++
					e.logger.Warn("order for wrong contract dropped", "strategy", name, "got", o.Ticker, "want", tick.Ticker)
					continue
				}
				if o.Quantity < 1 || o.PriceCents < 0 || o.PriceCents > 100 {
					// Degenerate orders from a strategy must not abort a
					// pass; counted and skipped like any other rejection.
					e.summary.DroppedInvalidOrders++
					e.logger.Warn("invalid order dropped", "strategy", name, "ticker", o.Ticker, "price", o.PriceCents, "qty", o.Quantity)
					continue
				}
				if o.Kind == model.KindMarket {
					e.executeMarket(tick, inst, o)
					continue
				}
				rest = append(rest, o)
			}
			e.setResting(name, tick.Ticker, rest)

			if orders := d.Orders(); len(orders) > 0 {
				intent.Action = orders[0].Action()
				intent.PriceCents = orders[0].PriceCents
				intent.Quantity = orders[0].Quantity
			}
		}

		if err := e.rec.RecordIntent(intent); err != nil {
			return err
		}
	}
	return nil
}

// executeMarket fills a market order at the best opposing price on the
// submission tick. With no opposing liquidity or insufficient cash the
// order is dropped, never queued.
func (e *Engine) executeMarket(tick model.Tick, inst Instance, o model.Order) {
	price, ok := fill.MarketPrice(tick, o)
	if !ok {
		e.summary.DroppedMarketOrders++
		e.logger.Debug("market order dropped, no liquidity", "strategy", inst.Strategy.Name(), "ticker", o.Ticker)
		return
	}

	trade := e.tradeFromExec(tick, inst.Strategy.Name(), fill.Execution{Order: o, PriceCents: price})
	err := inst.Wallet.ApplyTrade(trade)
	switch {
	case err == nil:
		e.summary.Trades++
		if recErr := e.rec.RecordTrade(trade); recErr != nil {
			e.logger.Error("trade record failed", "error", recErr)
		}
	case isRejection(err):
		e.summary.DroppedMarketOrders++
		e.countRejection(err)
		e.logger.Debug("market order dropped", "strategy", inst.Strategy.Name(), "error", err)
	default:
		e.logger.Error("market order failed", "error", err)
	}
}

// Resting returns a copy of one strategy's resting set on a contract.
func (e *Engine) Resting(strategyName, ticker string) []model.Order {
	orders := e.resting[strategyName][ticker]
	out := make([]model.Order, len(orders))
	copy(out, orders)
	return out
}

func (e *Engine) setResting(strategyName, ticker string, orders []model.Order) {
	if len(orders) == 0 {
		delete(e.resting[strategyName], ticker)
		return
	}
	e.resting[strategyName][ticker] = orders
}

// finalSweep settles every still-open contract that ticked during the
// pass, using its last observed price.
func (e *Engine) finalSweep() error {
	now := e.prevTime
	if now.IsZero() {
		return nil
	}

	wallets := make([]*ledger.Wallet, len(e.instances))
	for i, inst := range e.instances {
		wallets[i] = inst.Wallet
	}

	for _, ticker := range e.sweeper.Open() {
		trades, err := e.sweeper.Sweep(ticker, now, e.lastPrices[ticker], e.ticked[ticker], wallets)
		if err != nil {
			e.summary.SettlementFailures++
			e.logger.Warn("final settlement failed", "ticker", ticker, "error", err)
			continue
		}
		for _, t := range trades {
			e.summary.Settlements++
			if err := e.rec.RecordTrade(t); err != nil {
				return err
			}
		}
	}
	e.emitEquity(now)

	for _, inst := range e.instances {
		if err := inst.Wallet.CheckConservation(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) logFinalReport() {
	for _, inst := range e.instances {
		w := inst.Wallet
		e.logger.Info("final equity",
			"strategy", w.Strategy(),
			"cash_cents", w.CashCents(),
			"unsettled_cents", w.UnsettledCents(),
			"equity_cents", w.EquityCents(e.lastPrices),
		)
	}
	s := e.summary
	e.logger.Info("replay summary",
		"ticks", s.Ticks,
		"warmup_ticks", s.WarmupTicks,
		"trades", s.Trades,
		"settlements", s.Settlements,
		"malformed_rows", s.MalformedRows,
		"unknown_contracts", s.UnknownContracts,
		"insufficient_funds", s.InsufficientFunds,
		"insufficient_inventory", s.InsufficientInv,
		"dropped_market_orders", s.DroppedMarketOrders,
		"dropped_wrong_contract", s.DroppedWrongContract,
		"dropped_invalid_orders", s.DroppedInvalidOrders,
		"settlement_failures", s.SettlementFailures,
	)
}

func isRejection(err error) bool {
	return errors.Is(err, ledger.ErrInsufficientFunds) || errors.Is(err, ledger.ErrInsufficientInventory)
}

func (e *Engine) countRejection(err error) {
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		e.summary.InsufficientFunds++
	} else {
		e.summary.InsufficientInv++
	}
}
