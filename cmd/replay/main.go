package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/config"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/engine"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/fill"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/ledger"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/report"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/settle"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/snapshot"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/store"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/strategy"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/ticksource"
	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/version"
)

// repeatedFlag collects a repeatable string flag.
type repeatedFlag []string

func (f *repeatedFlag) String() string { return strings.Join(*f, ",") }

func (f *repeatedFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	configPath := flag.String("config", "configs/replay.yaml", "path to config file")
	startFlag := flag.String("start", "", "override replay start (RFC3339)")
	endFlag := flag.String("end", "", "override replay end (RFC3339)")
	snapshotFlag := flag.String("snapshot", "", "override starting-ledger snapshot path")
	saveSnapshot := flag.String("save-snapshot", "", "write the end-of-run ledger snapshot here (single-strategy runs)")
	outFlag := flag.String("out", "", "override output directory")
	seedFlag := flag.Int64("seed", 0, "override fill-model RNG seed")
	fillFlag := flag.String("fill-model", "", "override fill model (deterministic or probabilistic)")
	fillProbFlag := flag.Float64("fill-prob-per-min", 0, "override base passive fills per minute (probabilistic model)")
	warmupFlag := flag.Duration("warmup", 0, "override warm-up window")
	boundaryFlag := flag.Int("day-boundary-hour", -1, "override the day rollover hour")
	verbose := flag.Bool("v", false, "debug logging")
	var strategyFlags repeatedFlag
	flag.Var(&strategyFlags, "strategy", "strategy override as name=<json params>; repeatable, replaces configured strategies")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting replay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	applyOverrides(cfg, overrides{
		start:        *startFlag,
		end:          *endFlag,
		snapshot:     *snapshotFlag,
		out:          *outFlag,
		seed:         *seedFlag,
		fillModel:    *fillFlag,
		fillProb:     *fillProbFlag,
		warmup:       *warmupFlag,
		boundaryHour: *boundaryFlag,
		strategies:   strategyFlags,
	})
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration after overrides", "error", err)
		os.Exit(1)
	}
	if cfg.Run.ID == "" {
		cfg.Run.ID = uuid.NewString()
	}

	logger.Info("configuration loaded",
		"run_id", cfg.Run.ID,
		"logs", len(cfg.Inputs.Logs),
		"strategies", len(cfg.Strategies),
		"fill_model", cfg.Fills.Model,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, *saveSnapshot, logger); err != nil {
		logger.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

// overrides are the CLI flags that take precedence over file config.
type overrides struct {
	start, end   string
	snapshot     string
	out          string
	seed         int64
	fillModel    string
	fillProb     float64
	warmup       time.Duration
	boundaryHour int
	strategies   []string
}

func applyOverrides(cfg *config.ReplayConfig, o overrides) {
	if o.start != "" {
		cfg.Inputs.Start = o.start
	}
	if o.end != "" {
		cfg.Inputs.End = o.end
	}
	if o.snapshot != "" {
		cfg.Inputs.SnapshotPath = o.snapshot
	}
	if o.out != "" {
		cfg.Output.Dir = o.out
	}
	if o.seed != 0 {
		cfg.Run.Seed = o.seed
	}
	if o.fillModel != "" {
		cfg.Fills.Model = o.fillModel
	}
	if o.fillProb > 0 {
		cfg.Fills.FillProbPerMin = o.fillProb
	}
	if o.warmup != 0 {
		cfg.Inputs.Warmup = o.warmup
	}
	if o.boundaryHour >= 0 {
		cfg.Settlement.DayBoundaryHour = o.boundaryHour
	}
	if len(o.strategies) > 0 {
		cfg.Strategies = cfg.Strategies[:0]
		for _, raw := range o.strategies {
			name, params, _ := strings.Cut(raw, "=")
			if params == "" {
				params = "{}"
			}
			cfg.Strategies = append(cfg.Strategies, config.StrategyConfig{
				Name: name, ID: name, Params: params,
			})
		}
	}
}

func run(ctx context.Context, cfg *config.ReplayConfig, savePath string, logger *slog.Logger) error {
	loc, err := time.LoadLocation(cfg.Settlement.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Settlement.Timezone, err)
	}

	fillModel, err := buildFillModel(cfg)
	if err != nil {
		return err
	}

	// Starting ledger: snapshot when given, flat cash otherwise.
	var snap *snapshot.Snapshot
	if cfg.Inputs.SnapshotPath != "" {
		snap, err = snapshot.Load(cfg.Inputs.SnapshotPath)
		if err != nil {
			return err
		}
		logger.Info("resuming from snapshot",
			"path", cfg.Inputs.SnapshotPath,
			"cash_cents", snap.CashCents,
			"positions", len(snap.Positions),
		)
	}

	instances, err := buildInstances(cfg, snap)
	if err != nil {
		return err
	}

	rec, cleanup, err := buildRecorders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	src, err := ticksource.Open(cfg.Inputs.Logs, ticksource.Options{
		Start:  cfg.StartTime(),
		End:    cfg.EndTime(),
		Warmup: cfg.Inputs.Warmup,
	})
	if err != nil {
		return err
	}
	defer src.Close()

	sweeper := settle.NewSweeper(
		settle.LastObservedPrice{DefaultPriceCents: cfg.Settlement.DefaultPriceCents},
		cfg.Settlement.DayBoundaryHour,
		loc,
	)

	eng := engine.New(engine.Options{
		BoundaryHour: cfg.Settlement.DayBoundaryHour,
		Location:     loc,
		Parallel:     cfg.Run.Parallel,
	}, fillModel, sweeper, rec, instances, logger)

	if snap != nil {
		tickers := make([]string, 0, len(snap.Positions))
		for ticker := range snap.Positions {
			tickers = append(tickers, ticker)
		}
		if err := eng.Seed(tickers); err != nil {
			return err
		}
	}

	started := time.Now()
	summary, err := eng.Run(ctx, src)
	if err != nil {
		return err
	}
	logger.Info("replay complete",
		"run_id", cfg.Run.ID,
		"duration", time.Since(started).Round(time.Millisecond),
		"ticks", summary.Ticks,
		"trades", summary.Trades,
		"settlements", summary.Settlements,
	)

	if err := rec.Close(); err != nil {
		return fmt.Errorf("close recorders: %w", err)
	}

	if savePath != "" {
		if err := saveEndSnapshot(savePath, instances, logger); err != nil {
			return err
		}
	}
	return nil
}

func buildFillModel(cfg *config.ReplayConfig) (fill.Model, error) {
	switch cfg.Fills.Model {
	case "deterministic":
		return fill.NewDeterministic(), nil
	case "probabilistic":
		rng := rand.New(rand.NewSource(cfg.Run.Seed))
		return fill.NewProbabilistic(cfg.Fills.FillProbPerMin, cfg.Fills.SpreadRates, rng), nil
	}
	return nil, fmt.Errorf("unknown fill model %q", cfg.Fills.Model)
}

// buildInstances constructs one strategy and wallet per configured
// instance. Every wallet starts from the same snapshot when one is given.
func buildInstances(cfg *config.ReplayConfig, snap *snapshot.Snapshot) ([]engine.Instance, error) {
	instances := make([]engine.Instance, 0, len(cfg.Strategies))
	for _, sc := range cfg.Strategies {
		st, err := strategy.New(sc.Name, sc.ID, sc.Params)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", sc.ID, err)
		}

		cash := cfg.Ledger.InitialCashCents
		if snap != nil {
			cash = snap.CashCents
		}
		w := ledger.NewWallet(st.Name(), cash, cfg.Ledger.SettlementDelay)
		if snap != nil {
			for ticker, pos := range snap.Positions {
				w.SeedPosition(ticker, "main", pos.Yes, pos.No)
			}
		}
		instances = append(instances, engine.Instance{Strategy: st, Wallet: w})
	}
	return instances, nil
}

// buildRecorders wires the CSV sinks and, when configured, the Postgres
// results store behind one fan-out recorder.
func buildRecorders(ctx context.Context, cfg *config.ReplayConfig, logger *slog.Logger) (report.Recorder, func(), error) {
	csvRec, err := report.NewCSVRecorder(cfg.Output.Dir, cfg.Output.FlushEvery)
	if err != nil {
		return nil, nil, fmt.Errorf("open output dir: %w", err)
	}

	if !cfg.Database.Enabled() {
		return csvRec, func() {}, nil
	}

	logger.Info("connecting to results database",
		"host", cfg.Database.Host,
		"database", cfg.Database.Name,
	)
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect results database: %w", err)
	}
	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure results schema: %w", err)
	}

	dbRec := store.New(pool, cfg.Run.ID, cfg.Output.FlushEvery, logger)
	return report.Multi{csvRec, dbRec}, pool.Close, nil
}

// saveEndSnapshot writes the final ledger as a resume point. Matured and
// pending settlement credits are folded into cash: the next run starts
// with a clean clearing queue.
func saveEndSnapshot(path string, instances []engine.Instance, logger *slog.Logger) error {
	if len(instances) != 1 {
		return fmt.Errorf("snapshot save requires exactly one strategy, have %d", len(instances))
	}
	w := instances[0].Wallet

	snap := &snapshot.Snapshot{
		CashCents: w.CashCents() + w.UnsettledCents(),
		Positions: make(map[string]snapshot.Position),
	}
	for _, ticker := range w.Tickers() {
		pos := w.ContractPosition(ticker)
		snap.Positions[ticker] = snapshot.Position{Yes: pos.YesQty, No: pos.NoQty}
	}

	if err := snapshot.Save(path, snap); err != nil {
		return err
	}
	logger.Info("end-of-run snapshot written", "path", path, "positions", len(snap.Positions))
	return nil
}
