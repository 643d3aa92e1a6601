package evaluation

import (
	"fmt"
	"time"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// Constraints are the business and resource limits an evaluation is
// checked against. Violations never fail the evaluation; the objective
// scorer converts them to penalties.
type Constraints struct {
	// MaxTrainingTime bounds one training+forecast pass (0 = unchecked).
	MaxTrainingTime time.Duration
	// MaxMemoryMB bounds reported memory (0 = unchecked).
	MaxMemoryMB float64
	// MaxMAPE is the minimum-accuracy constraint expressed as the highest
	// acceptable MAPE (0 = unchecked).
	MaxMAPE float64
}

// Severity grading by overshoot ratio: below 1.5x the limit is minor,
// below 3x major, beyond that critical.
func gradeOvershoot(ratio float64) forecastkit.ViolationSeverity {
	switch {
	case ratio < 1.5:
		return forecastkit.SeverityMinor
	case ratio < 3:
		return forecastkit.SeverityMajor
	default:
		return forecastkit.SeverityCritical
	}
}

// Check returns the violations the evaluation incurs. Magnitudes are
// normalized overshoots (ratio above the limit), so the objective penalty
// grows with how badly a constraint is missed.
func (c Constraints) Check(accuracy forecastkit.AccuracyMetrics, perf forecastkit.PerformanceMetrics) []forecastkit.ConstraintViolation {
	var violations []forecastkit.ConstraintViolation

	if c.MaxTrainingTime > 0 {
		limit := float64(c.MaxTrainingTime.Milliseconds())
		if perf.TrainingTimeMs > limit {
			ratio := perf.TrainingTimeMs / limit
			violations = append(violations, forecastkit.ConstraintViolation{
				Constraint: "max_training_time",
				Severity:   gradeOvershoot(ratio),
				Magnitude:  ratio - 1,
				Detail:     fmt.Sprintf("training took %.0fms, limit %.0fms", perf.TrainingTimeMs, limit),
			})
		}
	}

	if c.MaxMemoryMB > 0 && perf.MemoryMB > c.MaxMemoryMB {
		ratio := perf.MemoryMB / c.MaxMemoryMB
		violations = append(violations, forecastkit.ConstraintViolation{
			Constraint: "max_memory",
			Severity:   gradeOvershoot(ratio),
			Magnitude:  ratio - 1,
			Detail:     fmt.Sprintf("used %.1fMB, limit %.1fMB", perf.MemoryMB, c.MaxMemoryMB),
		})
	}

	if c.MaxMAPE > 0 && accuracy.MAPE > c.MaxMAPE {
		ratio := accuracy.MAPE / c.MaxMAPE
		violations = append(violations, forecastkit.ConstraintViolation{
			Constraint: "min_accuracy",
			Severity:   gradeOvershoot(ratio),
			Magnitude:  ratio - 1,
			Detail:     fmt.Sprintf("MAPE %.2f%% exceeds limit %.2f%%", accuracy.MAPE, c.MaxMAPE),
		})
	}

	return violations
}
