package tuning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// scriptedEvaluator returns canned outcomes keyed by call number.
type scriptedEvaluator struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (*forecastkit.Evaluation, error)
}

func (s *scriptedEvaluator) Evaluate(_ context.Context, family forecastkit.ModelFamily, config forecastkit.Configuration) (*forecastkit.Evaluation, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.fn(call)
}

func evalWithMAPE(mape float64) *forecastkit.Evaluation {
	return &forecastkit.Evaluation{
		Family:   forecastkit.FamilyARIMA,
		Accuracy: forecastkit.AccuracyMetrics{MAPE: mape},
	}
}

func mapeObjective() ObjectiveFunction {
	return ObjectiveFunction{PrimaryMetric: MetricMAPE, Direction: Minimize, ConstraintPenaltyFactor: 1}
}

func arimaSpace() *SearchSpace {
	space := NewSearchSpace(forecastkit.FamilyARIMA)
	space.AddInteger("p", 0, 3)
	space.AddInteger("d", 0, 2)
	space.AddInteger("q", 0, 3)
	return space
}

func newTestLoop(t *testing.T, evaluator Evaluator, budget Budget) *Loop {
	t.Helper()
	loop, err := NewLoop(LoopConfig{
		Space:     arimaSpace(),
		Objective: mapeObjective(),
		Evaluator: evaluator,
		Budget:    budget,
		Seed:      1,
	})
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	return loop
}

func TestLoopCompletesBudget(t *testing.T) {
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		return evalWithMAPE(float64(50 - call)), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 5})

	state, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.State != StateCompleted {
		t.Errorf("state = %s, want %s", state.State, StateCompleted)
	}
	if state.IterationsRun != 5 {
		t.Errorf("IterationsRun = %d, want 5", state.IterationsRun)
	}
	if len(state.History) != 5 || len(state.Objectives) != 5 {
		t.Errorf("history/objectives lengths = %d/%d, want 5/5", len(state.History), len(state.Objectives))
	}
	if state.BestConfiguration == nil {
		t.Error("BestConfiguration is nil after successful run")
	}
	for i, obj := range state.Objectives {
		if state.BestObjective > obj {
			t.Errorf("BestObjective %g exceeds objective[%d] = %g", state.BestObjective, i, obj)
		}
	}
}

func TestLoopConvergence(t *testing.T) {
	// One real improvement, then a flat plateau: early stopping should
	// fire after the no-improvement window fills, well before the budget.
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		return evalWithMAPE(30), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 50, EarlyStopping: true})

	state, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.State != StateConverged {
		t.Errorf("state = %s, want %s", state.State, StateConverged)
	}
	if state.IterationsRun != EarlyStoppingWindow+1 {
		t.Errorf("IterationsRun = %d, want %d", state.IterationsRun, EarlyStoppingWindow+1)
	}
}

func TestLoopSubEpsilonImprovementDoesNotResetWindow(t *testing.T) {
	// Strictly improving, but each step is below epsilon: still converges.
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		return evalWithMAPE(30 - float64(call)*EarlyStoppingEpsilon/2), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 50, EarlyStopping: true})

	state, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.State != StateConverged {
		t.Errorf("state = %s, want %s", state.State, StateConverged)
	}
	// The best configuration still tracks the marginal improvements.
	if state.BestObjective >= 30 {
		t.Errorf("BestObjective = %g, want < 30", state.BestObjective)
	}
}

func TestLoopAllFailuresEndsFailed(t *testing.T) {
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		return nil, &forecastkit.EvaluationFailedError{
			Family: forecastkit.FamilyARIMA, Stage: "train", Err: errors.New("service unavailable"),
		}
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 12, EarlyStopping: true})

	state, err := loop.Run(context.Background())
	if err == nil {
		t.Fatal("expected error from all-failure run")
	}
	if state.State != StateFailed {
		t.Errorf("state = %s, want %s", state.State, StateFailed)
	}
	// Failures never trigger convergence; the whole budget is attempted.
	if state.IterationsRun != 12 || state.FailedIterations != 12 {
		t.Errorf("iterations = %d, failed = %d, want 12/12", state.IterationsRun, state.FailedIterations)
	}
	if state.LastError == "" {
		t.Error("LastError is empty after failures")
	}
}

func TestLoopPartialFailuresStillComplete(t *testing.T) {
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		if call%2 == 0 {
			return nil, errors.New("flaky service")
		}
		return evalWithMAPE(float64(20 + call)), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 10})

	state, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.State != StateCompleted {
		t.Errorf("state = %s, want %s", state.State, StateCompleted)
	}
	if state.FailedIterations != 5 {
		t.Errorf("FailedIterations = %d, want 5", state.FailedIterations)
	}
	if len(state.History) != 5 {
		t.Errorf("History length = %d, want 5", len(state.History))
	}
}

func TestLoopCancel(t *testing.T) {
	var loop *Loop
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		if call == 3 {
			loop.Cancel()
		}
		return evalWithMAPE(25), nil
	}}
	loop = newTestLoop(t, evaluator, Budget{MaxEvaluations: 50})

	state, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run after cancel: %v", err)
	}
	if state.State != StateStopped {
		t.Errorf("state = %s, want %s", state.State, StateStopped)
	}
	// In-flight work completed; partial results preserved.
	if state.IterationsRun < 3 || state.IterationsRun >= 50 {
		t.Errorf("IterationsRun = %d, want a handful", state.IterationsRun)
	}
	if state.BestConfiguration == nil {
		t.Error("cancelled run lost its best configuration")
	}
}

func TestLoopContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		if call == 2 {
			cancel()
		}
		return evalWithMAPE(25), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 50})

	state, err := loop.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.State != StateStopped {
		t.Errorf("state = %s, want %s", state.State, StateStopped)
	}
}

func TestLoopTimeout(t *testing.T) {
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		time.Sleep(5 * time.Millisecond)
		return evalWithMAPE(25), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 1000, MaxTime: time.Millisecond})

	state, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("timed-out run returned error: %v", err)
	}
	if state.State != StateTimedOut {
		t.Errorf("state = %s, want %s", state.State, StateTimedOut)
	}
	if state.IterationsRun >= 1000 {
		t.Errorf("IterationsRun = %d, wall clock budget had no effect", state.IterationsRun)
	}
}

func TestLoopConcurrentWorkers(t *testing.T) {
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		return evalWithMAPE(float64(10 + call%7)), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 40, Concurrency: 4})

	state, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if state.State != StateCompleted {
		t.Errorf("state = %s, want %s", state.State, StateCompleted)
	}
	if state.IterationsRun != 40 {
		t.Errorf("IterationsRun = %d, want exactly the budget", state.IterationsRun)
	}
	if evaluator.calls != 40 {
		t.Errorf("evaluator calls = %d, want 40", evaluator.calls)
	}
}

func TestLoopCannotRunTwice(t *testing.T) {
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		return evalWithMAPE(25), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 2})

	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := loop.Run(context.Background()); err == nil {
		t.Error("second Run accepted")
	}
}

func TestLoopStatusProgress(t *testing.T) {
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		return evalWithMAPE(25), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 4})

	status := loop.Status()
	if status.State != StateIdle || status.Progress != 0 {
		t.Errorf("idle status = %+v", status)
	}

	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	status = loop.Status()
	if status.State != StateCompleted || status.Progress != 1 {
		t.Errorf("final status = %+v", status)
	}
	if status.RunID != loop.RunID() {
		t.Errorf("status RunID = %s, want %s", status.RunID, loop.RunID())
	}
}

func TestLoopSnapshotIsolation(t *testing.T) {
	evaluator := &scriptedEvaluator{fn: func(call int) (*forecastkit.Evaluation, error) {
		return evalWithMAPE(25), nil
	}}
	loop := newTestLoop(t, evaluator, Budget{MaxEvaluations: 3})
	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := loop.Snapshot()
	snap.BestConfiguration["p"] = 99
	snap.Objectives[0] = -1

	fresh := loop.Snapshot()
	if v, _ := fresh.BestConfiguration.Int("p"); v == 99 {
		t.Error("snapshot mutation leaked into loop state")
	}
	if fresh.Objectives[0] == -1 {
		t.Error("snapshot objective mutation leaked into loop state")
	}
}
