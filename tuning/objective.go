package tuning

import (
	"fmt"
	"math"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// Direction declares whether an objective metric should be minimized or
// maximized. The loop always minimizes internally; maximize metrics are
// negated before comparison.
type Direction string

const (
	// Minimize means lower metric values are better.
	Minimize Direction = "minimize"
	// Maximize means higher metric values are better (negated internally).
	Maximize Direction = "maximize"
)

// Metric names accepted as a primary objective.
const (
	MetricMAPE           = "mape"
	MetricMAE            = "mae"
	MetricRMSE           = "rmse"
	MetricR2             = "r2"
	MetricTrainingTimeMs = "training_time_ms"
	// MetricComposite selects the weighted multi-criteria objective.
	MetricComposite = "composite"
)

// Composite term names used as weight keys.
const (
	TermAccuracy         = "accuracy"
	TermTrainingCost     = "training_cost"
	TermInterpretability = "interpretability"
	TermStability        = "stability"
	TermBusinessFit      = "business_fit"
)

// DefaultCompositeWeights are the tunable default weights for the
// composite objective. They are heuristics inherited from the original
// system, not derived constants; callers override them per run.
var DefaultCompositeWeights = map[string]float64{
	TermAccuracy:         0.5,
	TermTrainingCost:     0.2,
	TermInterpretability: 0.1,
	TermStability:        0.1,
	TermBusinessFit:      0.1,
}

// ObjectiveFunction declares how an evaluation reduces to a scalar.
//
// With a single primary metric the value is that metric, negated when
// Direction is Maximize. With MetricComposite the value is a weighted sum
// of normalized accuracy, training-time cost, and inverted
// interpretability/stability/business-fit scores. Constraint violations
// always contribute additive penalties scaled by severity and
// ConstraintPenaltyFactor.
type ObjectiveFunction struct {
	PrimaryMetric           string             `json:"primary_metric"`
	Direction               Direction          `json:"direction"`
	Weights                 map[string]float64 `json:"weights,omitempty"`
	ConstraintPenaltyFactor float64            `json:"constraint_penalty_factor"`
}

// DefaultObjective minimizes composite score with unit constraint
// penalties.
func DefaultObjective() ObjectiveFunction {
	return ObjectiveFunction{
		PrimaryMetric:           MetricComposite,
		Direction:               Minimize,
		ConstraintPenaltyFactor: 1.0,
	}
}

// Validate checks the objective declaration. Caller-supplied composite
// weights must sum to at most 1; unspecified terms share the remainder
// evenly rather than being silently ignored.
func (f *ObjectiveFunction) Validate() error {
	if f.PrimaryMetric == "" {
		return fmt.Errorf("objective requires a primary metric")
	}
	if f.Direction != Minimize && f.Direction != Maximize && f.Direction != "" {
		return fmt.Errorf("unknown objective direction %q", f.Direction)
	}
	if f.PrimaryMetric == MetricComposite {
		total := 0.0
		for term, w := range f.Weights {
			if w < 0 {
				return fmt.Errorf("composite weight for %q is negative", term)
			}
			if !knownTerm(term) {
				return fmt.Errorf("unknown composite term %q", term)
			}
			total += w
		}
		if total > 1+1e-9 {
			return fmt.Errorf("composite weights sum to %.4f, must be <= 1", total)
		}
	}
	return nil
}

func knownTerm(term string) bool {
	switch term {
	case TermAccuracy, TermTrainingCost, TermInterpretability, TermStability, TermBusinessFit:
		return true
	}
	return false
}

// Score reduces an evaluation to the scalar objective value. Pure and
// deterministic: identical inputs always produce identical values, and
// the result is monotonically non-decreasing in constraint-violation
// magnitude for fixed metrics.
func Score(eval *forecastkit.Evaluation, fn ObjectiveFunction) (float64, error) {
	if err := fn.Validate(); err != nil {
		return 0, err
	}

	var value float64
	if fn.PrimaryMetric == MetricComposite {
		value = compositeValue(eval, fn.Weights)
	} else {
		metric, err := primaryMetric(eval, fn.PrimaryMetric)
		if err != nil {
			return 0, err
		}
		value = metric
		if fn.Direction == Maximize {
			value = -value
		}
	}

	return value + constraintPenalty(eval.ConstraintViolations, fn.ConstraintPenaltyFactor), nil
}

func primaryMetric(eval *forecastkit.Evaluation, name string) (float64, error) {
	switch name {
	case MetricMAPE:
		return eval.Accuracy.MAPE, nil
	case MetricMAE:
		return eval.Accuracy.MAE, nil
	case MetricRMSE:
		return eval.Accuracy.RMSE, nil
	case MetricR2:
		return eval.Accuracy.R2, nil
	case MetricTrainingTimeMs:
		return eval.Performance.TrainingTimeMs, nil
	default:
		return 0, fmt.Errorf("unknown primary metric %q", name)
	}
}

// compositeValue computes the weighted multi-criteria value. Terms are
// scaled to comparable magnitudes: accuracy as MAPE capped at 100,
// training cost in seconds, and the 0-1 fitness scores inverted onto the
// same 0-100 scale.
func compositeValue(eval *forecastkit.Evaluation, weights map[string]float64) float64 {
	terms := map[string]float64{
		TermAccuracy:         math.Min(eval.Accuracy.MAPE, 100),
		TermTrainingCost:     eval.Performance.TrainingTimeMs / 1000,
		TermInterpretability: (1 - eval.Interpretability) * 100,
		TermStability:        (1 - eval.Stability) * 100,
		TermBusinessFit:      (1 - eval.BusinessContextFit) * 100,
	}

	resolved := resolveWeights(weights)
	value := 0.0
	for term, w := range resolved {
		value += w * terms[term]
	}
	return value
}

// resolveWeights fills unspecified composite terms with an even split of
// the remaining weight mass.
func resolveWeights(weights map[string]float64) map[string]float64 {
	allTerms := []string{TermAccuracy, TermTrainingCost, TermInterpretability, TermStability, TermBusinessFit}
	if len(weights) == 0 {
		return DefaultCompositeWeights
	}

	resolved := make(map[string]float64, len(allTerms))
	specified := 0.0
	var missing []string
	for _, term := range allTerms {
		if w, ok := weights[term]; ok {
			resolved[term] = w
			specified += w
		} else {
			missing = append(missing, term)
		}
	}
	if len(missing) > 0 {
		share := (1 - specified) / float64(len(missing))
		if share < 0 {
			share = 0
		}
		for _, term := range missing {
			resolved[term] = share
		}
	}
	return resolved
}

// constraintPenalty sums violation magnitudes scaled by severity
// multiplier (minor=1, major=10, critical=100) and the penalty factor.
func constraintPenalty(violations []forecastkit.ConstraintViolation, factor float64) float64 {
	penalty := 0.0
	for _, v := range violations {
		penalty += v.Magnitude * v.Severity.Multiplier() * factor
	}
	return penalty
}
