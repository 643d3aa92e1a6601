// Package engine is the top-level facade tying profiling, selection,
// hyperparameter optimization, and ensembling together behind one
// concurrency-safe API. Callers construct an Engine once and share it;
// optimization runs are tracked by run ID for status queries and
// cooperative cancellation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/stokcerdas/forecastkit-go/cache"
	"github.com/stokcerdas/forecastkit-go/ensemble"
	"github.com/stokcerdas/forecastkit-go/evaluation"
	"github.com/stokcerdas/forecastkit-go/forecastkit"
	"github.com/stokcerdas/forecastkit-go/observability"
	"github.com/stokcerdas/forecastkit-go/profiling"
	"github.com/stokcerdas/forecastkit-go/selection"
	"github.com/stokcerdas/forecastkit-go/tuning"
)

// Config configures an Engine.
type Config struct {
	// Trainer executes model training, usually an HTTP client for the
	// model-execution service or the in-process baseline.
	Trainer forecastkit.ModelTrainer
	// Cache memoizes evaluations across runs (optional).
	Cache cache.Cache
	// Constraints are checked on every evaluation.
	Constraints evaluation.Constraints
	// HoldoutFraction overrides the default 20% chronological holdout.
	HoldoutFraction float64
	// Timeout bounds one model-execution call.
	Timeout time.Duration
	// Metrics receives evaluation counters and latencies (optional).
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Engine coordinates the full model-selection pipeline for demand
// series. Runs started by Optimize stay queryable until the engine is
// discarded; terminated runs keep their frozen final state.
type Engine struct {
	trainer     forecastkit.ModelTrainer
	cache       cache.Cache
	constraints evaluation.Constraints
	holdout     float64
	timeout     time.Duration
	metrics     *observability.Metrics
	profiler    *profiling.Profiler
	combiner    *ensemble.Combiner
	tracer      trace.Tracer
	logger      *slog.Logger

	mu   sync.RWMutex
	runs map[string]*tuning.Loop
}

// New creates an engine. The trainer is required; everything else has
// workable defaults.
func New(cfg Config) (*Engine, error) {
	if cfg.Trainer == nil {
		return nil, fmt.Errorf("model trainer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		trainer:     cfg.Trainer,
		cache:       cfg.Cache,
		constraints: cfg.Constraints,
		holdout:     cfg.HoldoutFraction,
		timeout:     cfg.Timeout,
		metrics:     cfg.Metrics,
		profiler:    profiling.NewProfiler(logger),
		combiner:    ensemble.NewCombiner(logger),
		tracer:      observability.GetTracer("forecastkit.engine"),
		logger:      logger,
		runs:        make(map[string]*tuning.Loop),
	}, nil
}

// Profile characterizes the dataset and attaches the profile to it.
func (e *Engine) Profile(ctx context.Context, ds *forecastkit.Dataset) (*forecastkit.DataProfile, error) {
	_, span := e.tracer.Start(ctx, "engine.profile")
	defer span.End()

	profile, err := e.profiler.Profile(ds)
	if err != nil {
		return nil, err
	}
	ds.Profile = profile
	return profile, nil
}

// SelectModel ranks the candidate families for the dataset. A nil or
// empty candidate list means all known families.
func (e *Engine) SelectModel(ctx context.Context, ds *forecastkit.Dataset, candidates []forecastkit.ModelFamily, weights selection.ContextWeights) (*selection.ModelRanking, error) {
	ctx, span := e.tracer.Start(ctx, "engine.select_model")
	defer span.End()

	if ds.Profile == nil {
		if _, err := e.Profile(ctx, ds); err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		candidates = forecastkit.KnownFamilies()
	}

	evaluator, err := e.newEvaluator(ds, forecastkit.BusinessContext{})
	if err != nil {
		return nil, err
	}
	selector := selection.NewSelector(evaluator, e.logger)
	return selector.SelectModel(ctx, ds.Profile, candidates, weights)
}

// OptimizeRequest describes one optimization run.
type OptimizeRequest struct {
	Family  forecastkit.ModelFamily
	Dataset *forecastkit.Dataset
	// Objective defaults to composite minimization.
	Objective *tuning.ObjectiveFunction
	Budget    tuning.Budget
	// Seed makes the run reproducible for a fixed trainer behavior.
	Seed int64
	// Overrides narrow or replace individual search-space parameters.
	Overrides       map[string]tuning.ParameterSpec
	BusinessContext forecastkit.BusinessContext
}

// Optimize runs hyperparameter optimization for one family synchronously
// and returns the frozen final state. The run is registered under its
// run ID before the first iteration, so Status and Cancel work while it
// executes on the calling goroutine.
func (e *Engine) Optimize(ctx context.Context, req OptimizeRequest) (*tuning.OptimizationState, error) {
	ctx, span := e.tracer.Start(ctx, "engine.optimize",
		trace.WithAttributes(attribute.String("family", string(req.Family))))
	defer span.End()

	if req.Dataset == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	if req.Dataset.Profile == nil {
		if _, err := e.Profile(ctx, req.Dataset); err != nil {
			return nil, err
		}
	}

	space, err := tuning.BuildSearchSpace(req.Family, req.Dataset.Profile, req.Overrides)
	if err != nil {
		return nil, err
	}

	objective := tuning.DefaultObjective()
	if req.Objective != nil {
		objective = *req.Objective
	}

	evaluator, err := e.newEvaluator(req.Dataset, req.BusinessContext)
	if err != nil {
		return nil, err
	}

	loop, err := tuning.NewLoop(tuning.LoopConfig{
		Space:     space,
		Objective: objective,
		Evaluator: e.instrument(evaluator),
		Budget:    req.Budget,
		Seed:      req.Seed,
		Logger:    e.logger,
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.runs[loop.RunID()] = loop
	e.mu.Unlock()

	span.SetAttributes(attribute.String("run_id", loop.RunID()))
	return loop.Run(ctx)
}

// OptimizationStatus returns the progress of a run, which may already be
// terminal.
func (e *Engine) OptimizationStatus(runID string) (tuning.RunStatus, bool) {
	e.mu.RLock()
	loop, ok := e.runs[runID]
	e.mu.RUnlock()
	if !ok {
		return tuning.RunStatus{}, false
	}
	return loop.Status(), true
}

// OptimizationResult returns the full state snapshot of a run.
func (e *Engine) OptimizationResult(runID string) (*tuning.OptimizationState, bool) {
	e.mu.RLock()
	loop, ok := e.runs[runID]
	e.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return loop.Snapshot(), true
}

// CancelOptimization requests cooperative cancellation of a run. It
// reports whether the run ID was known; cancelling an already-terminal
// run is a no-op.
func (e *Engine) CancelOptimization(runID string) bool {
	e.mu.RLock()
	loop, ok := e.runs[runID]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	loop.Cancel()
	return true
}

// CombineEnsemble blends member forecasts into one weighted forecast.
func (e *Engine) CombineEnsemble(ctx context.Context, members []ensemble.Member) (*ensemble.Forecast, error) {
	_, span := e.tracer.Start(ctx, "engine.combine_ensemble",
		trace.WithAttributes(attribute.Int("members", len(members))))
	defer span.End()

	return e.combiner.Combine(members)
}

func (e *Engine) newEvaluator(ds *forecastkit.Dataset, bc forecastkit.BusinessContext) (*evaluation.Evaluator, error) {
	return evaluation.New(evaluation.Config{
		Trainer:         e.trainer,
		Dataset:         ds,
		HoldoutFraction: e.holdout,
		Timeout:         e.timeout,
		BusinessContext: bc,
		Constraints:     e.constraints,
		Logger:          e.logger,
	})
}

// instrument layers caching and metrics over the base evaluator.
func (e *Engine) instrument(base tuning.Evaluator) tuning.Evaluator {
	return &instrumentedEvaluator{
		inner:   base,
		cache:   e.cache,
		metrics: e.metrics,
		logger:  e.logger,
	}
}
