package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snow-ghost/era/actuator"
	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/dashboard"
	"github.com/snow-ghost/era/genetic"
	"github.com/snow-ghost/era/loadgen"
	"github.com/snow-ghost/era/monitor"
	"github.com/snow-ghost/era/optimizer"
	"github.com/snow-ghost/era/pkg/api"
	"github.com/snow-ghost/era/pkg/cache"
	"github.com/snow-ghost/era/pkg/config"
	"github.com/snow-ghost/era/pkg/journal"
	"github.com/snow-ghost/era/pkg/limiter"
	"github.com/snow-ghost/era/pkg/observability"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// dashboardLogFile receives logs while the dashboard owns the terminal.
const dashboardLogFile = "era.log"

type runOptions struct {
	configPath string
	source     string
	tui        bool
	load       int
	loadgen    bool
	dryRun     bool
	apiAddr    string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the optimizer loop, HTTP API and optional dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader(opts.configPath).Load()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&opts.source, "source", "", "Telemetry source: proc, simulated, prometheus")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "Show the terminal dashboard")
	cmd.Flags().IntVar(&opts.load, "load", 0, "Initial load level: 0 light, 1 medium, 2 spike")
	cmd.Flags().BoolVar(&opts.loadgen, "loadgen", false, "Generate synthetic CPU and memory load")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", true, "Log actuations without writing to the kernel")
	cmd.Flags().StringVar(&opts.apiAddr, "api-addr", "", "HTTP listen address")

	return cmd
}

// apply overlays explicitly set flags on cfg.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Telemetry.Source = o.source
	}
	if flags.Changed("tui") {
		cfg.Dashboard.Enabled = o.tui
	}
	if flags.Changed("load") {
		cfg.Optimizer.InitialLoad = o.load
	}
	if flags.Changed("loadgen") {
		cfg.LoadGen.Enabled = o.loadgen
	}
	if flags.Changed("dry-run") {
		cfg.Actuation.DryRun = o.dryRun
	}
	if flags.Changed("api-addr") {
		cfg.API.Addr = o.apiAddr
	}

	if cfg.Dashboard.Enabled && (cfg.Logging.Output == "" || cfg.Logging.Output == "stdout" || cfg.Logging.Output == "stderr") {
		cfg.Logging.Output = dashboardLogFile
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	obs, err := observability.NewManager(observability.Config{
		Logging: cfg.Logging,
		Tracing: cfg.Tracing,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.GetLogger()

	initial, err := core.ParseLoadLevel(cfg.Optimizer.InitialLoad)
	if err != nil {
		return err
	}
	state := optimizer.NewState(initial)
	history := optimizer.NewHistory(cfg.Optimizer.HistoryCapacity)

	seed := cfg.Optimizer.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	// the GA and the simulated telemetry run on different goroutines and
	// each get their own stream
	gaRNG := rand.New(rand.NewPCG(seed, 1))
	telemetryRNG := rand.New(rand.NewPCG(seed, 2))

	protection := limiter.NewProtectionManager(cfg.Protection, obs.OnBreakerStateChange)

	source, err := monitor.NewFromConfig(cfg.Telemetry, state.LoadLevel, telemetryRNG, logger)
	if err != nil {
		return fmt.Errorf("failed to create telemetry source: %w", err)
	}

	sinks, err := actuator.NewSinks(cfg.Actuation, source, logger)
	if err != nil {
		return fmt.Errorf("failed to create actuators: %w", err)
	}

	store, err := journal.Open(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	var recorder *journal.Recorder
	if store != nil {
		recorder = journal.NewRecorder(store, cfg.Journal.BufferSize, logger, obs.GetMetrics().RecordJournalDrop)
	}

	generations, err := cache.NewGenerationLog(cfg.Optimizer.GenerationLog)
	if err != nil {
		return fmt.Errorf("failed to create generation log: %w", err)
	}

	gaOpts := genetic.DefaultOptions()
	gaOpts.MutationRate = cfg.Optimizer.MutationRate
	gaOpts.EliteFraction = cfg.Optimizer.EliteFraction
	population, err := genetic.NewPopulation(cfg.Optimizer.PopulationSize, gaRNG, gaOpts)
	if err != nil {
		return err
	}

	opt, err := optimizer.New(optimizer.Config{
		Population:      population,
		Source:          protection.GuardSource("telemetry", source),
		Sinks:           protection.GuardSinks(sinks),
		State:           state,
		History:         history,
		Observability:   obs,
		Recorder:        recorder,
		GenerationLog:   generations,
		Interval:        cfg.Optimizer.Interval,
		HistoryInterval: cfg.Optimizer.HistoryInterval,
	})
	if err != nil {
		return err
	}

	server := api.NewServer(api.Config{
		Addr:         cfg.API.Addr,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}, state, history, obs, api.WithGenerationLog(generations), api.WithProtection(protection))

	logger.Info("Starting era",
		"run_id", opt.RunID(),
		"seed", seed,
		"source", cfg.Telemetry.Source,
		"population", population.Size(),
		"dry_run", cfg.Actuation.DryRun,
		"journal", cfg.Journal.Backend,
		"load_level", initial.String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return opt.Run(ctx) })
	g.Go(func() error { return server.Start(ctx) })
	if recorder != nil {
		g.Go(func() error { return recorder.Run(ctx) })
	}
	if cfg.LoadGen.Enabled {
		gen := loadgen.New(state.LoadLevel, loadgen.Config{
			Scale:   cfg.LoadGen.Scale,
			Workers: cfg.LoadGen.Workers,
		}, logger)
		g.Go(func() error { return gen.Run(ctx) })
	}
	if cfg.Dashboard.Enabled {
		dash, err := dashboard.NewTerminal(state, history, cfg.Dashboard.Refresh, logger)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			// quitting the dashboard stops everything else
			defer cancel()
			return dash.Run(ctx)
		})
	}

	err = g.Wait()
	logger.Info("era stopped", "run_id", opt.RunID())
	return err
}
