package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/genetic"
	"github.com/snow-ghost/era/pkg/cache"
	"github.com/snow-ghost/era/pkg/journal"
	"github.com/snow-ghost/era/pkg/limiter"
	"github.com/snow-ghost/era/pkg/logging"
	"github.com/snow-ghost/era/pkg/observability"
	"github.com/snow-ghost/era/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval        = 500 * time.Millisecond
	DefaultHistoryInterval = time.Second
)

var (
	ErrNoPopulation = errors.New("optimizer needs a population")
	ErrNoSource     = errors.New("optimizer needs a telemetry source")
	ErrCyclePanic   = errors.New("optimizer cycle panicked")
)

// Config wires an Optimizer. Population and Source are required; every
// other collaborator is optional.
type Config struct {
	Population *genetic.Population
	Source     core.TelemetrySource
	Sinks      core.Sinks

	State   *State
	History *History

	Observability *observability.Manager
	Recorder      *journal.Recorder
	GenerationLog *cache.GenerationLog

	Interval        time.Duration
	HistoryInterval time.Duration
	RunID           string

	// Now is the clock used for history spacing and timestamps.
	Now func() time.Time
}

// Optimizer is the control loop: read telemetry, evolve, publish the best
// thresholds, hand them to the sinks, record history.
type Optimizer struct {
	population *genetic.Population
	source     core.TelemetrySource
	sinks      core.Sinks
	state      *State
	history    *History

	obs         *observability.Manager
	logger      *logging.Logger
	recorder    *journal.Recorder
	generations *cache.GenerationLog

	interval        time.Duration
	historyInterval time.Duration
	runID           string
	now             func() time.Time

	lastHistory time.Time
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Optimizer, error) {
	if cfg.Population == nil {
		return nil, ErrNoPopulation
	}
	if cfg.Source == nil {
		return nil, ErrNoSource
	}

	o := &Optimizer{
		population:      cfg.Population,
		source:          cfg.Source,
		sinks:           cfg.Sinks,
		state:           cfg.State,
		history:         cfg.History,
		obs:             cfg.Observability,
		recorder:        cfg.Recorder,
		generations:     cfg.GenerationLog,
		interval:        cfg.Interval,
		historyInterval: cfg.HistoryInterval,
		runID:           cfg.RunID,
		now:             cfg.Now,
	}

	if o.state == nil {
		o.state = NewState(core.LoadLight)
	}
	if o.history == nil {
		o.history = NewHistory(DefaultHistoryCapacity)
	}
	if o.obs == nil {
		o.obs = observability.NewNop()
	}
	if o.interval <= 0 {
		o.interval = DefaultInterval
	}
	if o.historyInterval <= 0 {
		o.historyInterval = DefaultHistoryInterval
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.logger = o.obs.GetLogger().WithComponent("optimizer").WithRunID(o.runID)

	return o, nil
}

func (o *Optimizer) State() *State     { return o.state }
func (o *Optimizer) History() *History { return o.history }
func (o *Optimizer) RunID() string     { return o.runID }

// Run executes cycles until ctx is cancelled. A failed cycle is logged and
// the next one starts after the usual interval.
func (o *Optimizer) Run(ctx context.Context) error {
	o.logger.Info("Optimizer started",
		"population", o.population.Size(),
		"interval", o.interval.String(),
		"load_level", o.state.LoadLevel().String())

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Optimizer stopped", "generation", o.population.Generation())
			return nil
		case <-timer.C:
		}

		// the error is already logged and counted by Step
		_ = o.Step(ctx)

		timer.Reset(o.interval)
	}
}

// Step runs one cycle. It returns an error when the cycle was skipped; the
// published state is then left as it was. Actuation failures do not skip
// the cycle and are only logged and counted.
func (o *Optimizer) Step(ctx context.Context) (err error) {
	start := o.now()
	level := o.state.LoadLevel()

	ctx, span := o.obs.StartCycleSpan(ctx, o.population.Generation()+1, level.String())
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
			tracing.RecordSpanError(span, err)
			o.obs.RecordCycleFailure(ctx, "panic", err)
		}
	}()

	resources, err := o.source.CurrentUsage(ctx)
	if err != nil {
		err = fmt.Errorf("telemetry: %w", err)
		tracing.RecordSpanError(span, err)
		o.obs.RecordCycleFailure(ctx, "telemetry", err)
		return err
	}

	stats := o.population.Evolve(resources)
	best := o.population.Best()
	params := best.Params()

	now := o.now()
	o.state.publish(resources, params, best.Fitness(), stats.Generation, now)
	o.appendHistory(now, resources, params, best.Fitness())

	o.actuate(ctx, resources, params)

	record := journal.GenerationRecord{
		RunID:           o.runID,
		Generation:      stats.Generation,
		Timestamp:       now,
		LoadLevel:       int(level),
		CPUUsage:        resources.CPUUsage,
		MemoryUsage:     resources.MemoryUsage,
		PowerUsage:      resources.PowerUsage,
		CPUThreshold:    params.CPUThreshold,
		MemoryThreshold: params.MemoryThreshold,
		PowerThreshold:  params.PowerThreshold,
		BestFitness:     stats.Best,
		AverageFitness:  stats.Average,
		WorstFitness:    stats.Worst,
	}
	if o.recorder != nil {
		o.recorder.Record(record)
	}
	if o.generations != nil {
		o.generations.Add(record)
	}

	duration := o.now().Sub(start)
	o.obs.RecordCycle(ctx, logging.CycleFields{
		Generation:      stats.Generation,
		LoadLevel:       level.String(),
		CPUUsage:        resources.CPUUsage,
		MemoryUsage:     resources.MemoryUsage,
		PowerUsage:      resources.PowerUsage,
		CPUThreshold:    params.CPUThreshold,
		MemoryThreshold: params.MemoryThreshold,
		PowerThreshold:  params.PowerThreshold,
		BestFitness:     stats.Best,
		Duration:        duration,
	}, stats.Average, stats.Worst)

	tracing.AddSpanAttributes(span, map[string]interface{}{
		"era.best_fitness":      stats.Best,
		"era.elites":            stats.Elites,
		"era.uniform_selection": stats.UniformSelection,
	})
	tracing.RecordSpanDuration(span, duration)
	tracing.RecordSpanSuccess(span)

	return nil
}

func (o *Optimizer) appendHistory(now time.Time, r core.SystemResources, p core.OptimizationParams, fitness float64) {
	if !o.lastHistory.IsZero() && now.Sub(o.lastHistory) < o.historyInterval {
		return
	}
	o.lastHistory = now
	o.history.Append(core.NewHistoryPoint(now, r, p, fitness))
	o.obs.GetMetrics().RecordHistorySize(o.history.Len())
}

// actuate hands each gene to its sink concurrently and waits for all of
// them.
func (o *Optimizer) actuate(ctx context.Context, r core.SystemResources, p core.OptimizationParams) {
	var g errgroup.Group

	for _, res := range core.Resources {
		sink := o.sinks.Sink(res)
		if sink == nil {
			continue
		}
		g.Go(func() error {
			o.applyOne(ctx, res, sink, r.Usage(res), p.Threshold(res))
			return nil
		})
	}

	_ = g.Wait()
}

func (o *Optimizer) applyOne(ctx context.Context, res core.Resource, sink core.ThresholdSink, usage, threshold float64) {
	ctx, span := o.obs.GetTracer().StartActuationSpan(ctx, string(res), threshold)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %s actuator: %v", ErrCyclePanic, res, r)
			tracing.RecordSpanError(span, err)
			o.obs.RecordActuation(string(res), "failed")
			o.logger.Error("Actuator panicked", "resource", string(res), "error", err.Error())
		}
	}()

	err := sink.Apply(ctx, threshold)
	outcome := actuationOutcome(err)
	o.obs.RecordActuation(string(res), outcome)

	switch outcome {
	case "applied":
		tracing.RecordSpanSuccess(span)
	case "throttled", "rejected":
		o.logger.Debug("Actuation skipped", "resource", string(res), "outcome", outcome, "error", err.Error())
	default:
		tracing.RecordSpanError(span, err)
		o.logger.Warn("Actuation failed",
			"resource", string(res),
			"usage", usage,
			"threshold", threshold,
			"error", err.Error())
	}
}

func actuationOutcome(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, limiter.ErrActuationThrottled):
		return "throttled"
	case limiter.IsRejected(err):
		return "rejected"
	default:
		return "failed"
	}
}
