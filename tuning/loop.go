package tuning

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// RunState is the lifecycle state of an optimization run.
type RunState string

const (
	// StateIdle means the run has not started yet.
	StateIdle RunState = "idle"
	// StateRunning means iterations are in progress.
	StateRunning RunState = "running"
	// StateCompleted means the evaluation budget was exhausted normally.
	StateCompleted RunState = "completed"
	// StateConverged means early stopping fired: a trailing window of
	// iterations produced no improvement beyond epsilon.
	StateConverged RunState = "converged"
	// StateStopped means the run was cancelled cooperatively.
	StateStopped RunState = "stopped"
	// StateTimedOut means the wall-clock budget elapsed.
	StateTimedOut RunState = "timed_out"
	// StateFailed means zero evaluations succeeded across the whole budget.
	StateFailed RunState = "failed"
)

// Terminal reports whether the state is final.
func (s RunState) Terminal() bool {
	switch s {
	case StateCompleted, StateConverged, StateStopped, StateTimedOut, StateFailed:
		return true
	}
	return false
}

// Early stopping constants. Tunable heuristics, not derived values.
const (
	// EarlyStoppingWindow is the trailing iteration count inspected for
	// improvement.
	EarlyStoppingWindow = 10
	// EarlyStoppingEpsilon is the minimum objective decrease that counts
	// as improvement.
	EarlyStoppingEpsilon = 0.001
)

// Budget bounds an optimization run.
type Budget struct {
	// MaxEvaluations caps the number of iterations (default 50).
	MaxEvaluations int
	// MaxTime caps wall-clock duration, checked before each iteration
	// (default 10 minutes). In-flight evaluations run to completion.
	MaxTime time.Duration
	// EarlyStopping enables convergence detection.
	EarlyStopping bool
	// Concurrency is the maximum number of evaluations in flight
	// (default 1, fully sequential).
	Concurrency int
}

func (b Budget) withDefaults() Budget {
	if b.MaxEvaluations <= 0 {
		b.MaxEvaluations = 50
	}
	if b.MaxTime <= 0 {
		b.MaxTime = 10 * time.Minute
	}
	if b.Concurrency <= 0 {
		b.Concurrency = 1
	}
	return b
}

// Evaluator evaluates one configuration against the dataset, typically by
// delegating to the external model-execution service. Implementations
// must be safe for concurrent use when the budget allows parallel
// evaluations.
type Evaluator interface {
	Evaluate(ctx context.Context, family forecastkit.ModelFamily, config forecastkit.Configuration) (*forecastkit.Evaluation, error)
}

// OptimizationState is the observable state of a run. It is mutated only
// by the owning loop under its lock; Snapshot returns consistent copies
// for status queries, and the final state is frozen at termination.
type OptimizationState struct {
	RunID             string                    `json:"run_id"`
	Family            forecastkit.ModelFamily   `json:"family"`
	State             RunState                  `json:"state"`
	BestConfiguration forecastkit.Configuration `json:"best_configuration,omitempty"`
	BestObjective     float64                   `json:"best_objective"`
	History           []*forecastkit.Evaluation `json:"history"`
	Objectives        []float64                 `json:"objectives"`
	IterationsRun     int                       `json:"iterations_run"`
	FailedIterations  int                       `json:"failed_iterations"`
	LastError         string                    `json:"last_error,omitempty"`
	StartedAt         time.Time                 `json:"started_at"`
	CompletedAt       time.Time                 `json:"completed_at,omitempty"`
}

func (s *OptimizationState) clone() *OptimizationState {
	c := *s
	c.BestConfiguration = s.BestConfiguration.Clone()
	c.History = make([]*forecastkit.Evaluation, len(s.History))
	copy(c.History, s.History)
	c.Objectives = make([]float64, len(s.Objectives))
	copy(c.Objectives, s.Objectives)
	return &c
}

// RunStatus is the compact progress view exposed to status queries.
type RunStatus struct {
	RunID            string                  `json:"run_id"`
	Family           forecastkit.ModelFamily `json:"family"`
	State            RunState                `json:"state"`
	Progress         float64                 `json:"progress"`
	BestObjective    float64                 `json:"best_objective"`
	IterationsRun    int                     `json:"iterations_run"`
	FailedIterations int                     `json:"failed_iterations"`
}

// LoopConfig configures an optimization loop.
type LoopConfig struct {
	Space     *SearchSpace
	Objective ObjectiveFunction
	Evaluator Evaluator
	Budget    Budget
	// Seed seeds the parameter sampler; the same seed, space, and
	// evaluator behavior reproduce the same run.
	Seed   int64
	Logger *slog.Logger
}

// Loop runs the sample -> evaluate -> score -> record cycle for one model
// family, tracking the best configuration found. Lower objective values
// are always better; maximize objectives are negated by the scorer.
type Loop struct {
	space     *SearchSpace
	objective ObjectiveFunction
	evaluator Evaluator
	budget    Budget
	sampler   *Sampler
	logger    *slog.Logger

	mu         sync.Mutex
	state      *OptimizationState
	terminal   RunState // set when a stop condition fires, empty otherwise
	noImprove  int
	hasSuccess bool
	cancelled  bool
}

// NewLoop creates a loop in the Idle state.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Space == nil {
		return nil, fmt.Errorf("search space is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if err := cfg.Objective.Validate(); err != nil {
		return nil, fmt.Errorf("invalid objective: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loop{
		space:     cfg.Space,
		objective: cfg.Objective,
		evaluator: cfg.Evaluator,
		budget:    cfg.Budget.withDefaults(),
		sampler:   NewSampler(cfg.Seed),
		logger:    logger,
		state: &OptimizationState{
			RunID:  uuid.New().String(),
			Family: cfg.Space.Family,
			State:  StateIdle,
		},
	}, nil
}

// RunID returns the identifier assigned to this run.
func (l *Loop) RunID() string {
	return l.state.RunID
}

// Cancel requests cooperative cancellation. The flag is checked at the
// next iteration boundary; in-flight evaluations complete.
func (l *Loop) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancelled = true
}

// Status returns a consistent progress snapshot.
func (l *Loop) Status() RunStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return RunStatus{
		RunID:            l.state.RunID,
		Family:           l.state.Family,
		State:            l.state.State,
		Progress:         float64(l.state.IterationsRun) / float64(l.budget.MaxEvaluations),
		BestObjective:    l.state.BestObjective,
		IterationsRun:    l.state.IterationsRun,
		FailedIterations: l.state.FailedIterations,
	}
}

// Snapshot returns a consistent copy of the full state.
func (l *Loop) Snapshot() *OptimizationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}

// Run executes the loop until a terminal state is reached and returns the
// frozen final state. Partial results are valid results: every terminal
// state except Failed returns a nil error together with the best
// configuration found.
func (l *Loop) Run(ctx context.Context) (*OptimizationState, error) {
	l.mu.Lock()
	if l.state.State != StateIdle {
		l.mu.Unlock()
		return nil, fmt.Errorf("run %s already started", l.state.RunID)
	}
	l.state.State = StateRunning
	l.state.StartedAt = time.Now()
	deadline := l.state.StartedAt.Add(l.budget.MaxTime)
	next := 0
	l.mu.Unlock()

	l.logger.Info("optimization started",
		"run_id", l.state.RunID,
		"family", l.state.Family,
		"max_evaluations", l.budget.MaxEvaluations,
		"max_time", l.budget.MaxTime,
		"concurrency", l.budget.Concurrency)

	var wg sync.WaitGroup
	for w := 0; w < l.budget.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				l.mu.Lock()
				if l.terminal != "" {
					l.mu.Unlock()
					return
				}
				if l.cancelled || ctx.Err() != nil {
					l.terminal = StateStopped
					l.mu.Unlock()
					return
				}
				if time.Now().After(deadline) {
					l.terminal = StateTimedOut
					l.mu.Unlock()
					return
				}
				if next >= l.budget.MaxEvaluations {
					l.mu.Unlock()
					return
				}
				iteration := next
				next++
				config, err := l.sampler.Sample(l.space)
				l.mu.Unlock()

				if err != nil {
					// Malformed search space: fatal, not a skipped iteration.
					l.mu.Lock()
					l.terminal = StateFailed
					l.state.LastError = err.Error()
					l.mu.Unlock()
					return
				}

				eval, evalErr := l.evaluator.Evaluate(ctx, l.space.Family, config)
				l.record(iteration, config, eval, evalErr)
			}
		}()
	}
	wg.Wait()

	return l.finish()
}

// record applies one iteration's outcome under the single-writer lock.
func (l *Loop) record(iteration int, config forecastkit.Configuration, eval *forecastkit.Evaluation, evalErr error) {
	var score float64
	if evalErr == nil {
		score, evalErr = Score(eval, l.objective)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.IterationsRun++

	if evalErr != nil {
		l.state.FailedIterations++
		l.state.LastError = evalErr.Error()
		l.noImprove++
		l.logger.Warn("iteration failed",
			"run_id", l.state.RunID,
			"iteration", iteration,
			"error", evalErr)
	} else {
		l.state.History = append(l.state.History, eval)
		l.state.Objectives = append(l.state.Objectives, score)

		improved := !l.hasSuccess || score < l.state.BestObjective
		significant := !l.hasSuccess || l.state.BestObjective-score > EarlyStoppingEpsilon
		if improved {
			l.state.BestObjective = score
			l.state.BestConfiguration = config.Clone()
		}
		l.hasSuccess = true
		if significant {
			l.noImprove = 0
		} else {
			l.noImprove++
		}

		l.logger.Debug("iteration evaluated",
			"run_id", l.state.RunID,
			"iteration", iteration,
			"objective", score,
			"best", l.state.BestObjective)
	}

	if l.terminal == "" && l.budget.EarlyStopping && l.hasSuccess &&
		l.state.IterationsRun > EarlyStoppingWindow && l.noImprove >= EarlyStoppingWindow {
		l.terminal = StateConverged
	}
}

// finish resolves the terminal state and freezes the result.
func (l *Loop) finish() (*OptimizationState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.terminal == StateStopped || l.terminal == StateTimedOut:
		// Cancellation and timeout freeze whatever was found so far;
		// partial results are valid results.
		l.state.State = l.terminal
	case !l.hasSuccess:
		l.state.State = StateFailed
	case l.terminal != "":
		l.state.State = l.terminal
	default:
		l.state.State = StateCompleted
	}
	l.state.CompletedAt = time.Now()

	l.logger.Info("optimization finished",
		"run_id", l.state.RunID,
		"state", l.state.State,
		"iterations", l.state.IterationsRun,
		"failed_iterations", l.state.FailedIterations,
		"best_objective", l.state.BestObjective)

	final := l.state.clone()
	if final.State == StateFailed {
		return final, fmt.Errorf("optimization run %s failed: %s", final.RunID, final.LastError)
	}
	return final, nil
}
