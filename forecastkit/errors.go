package forecastkit

import "fmt"

// InsufficientDataError indicates a dataset is too small for the requested
// operation. Fatal to the operation, not to the process.
type InsufficientDataError struct {
	Points  int
	Minimum int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d points, minimum %d required", e.Points, e.Minimum)
}

// UnsupportedModelFamilyError indicates an unknown model family identifier.
type UnsupportedModelFamilyError struct {
	Family ModelFamily
}

func (e *UnsupportedModelFamilyError) Error() string {
	return fmt.Sprintf("unsupported model family %q", e.Family)
}

// InvalidBoundsError indicates a malformed search space parameter. This is
// caller misconfiguration and fatal to the run.
type InvalidBoundsError struct {
	Parameter string
	Low       float64
	High      float64
	Reason    string
}

func (e *InvalidBoundsError) Error() string {
	return fmt.Sprintf("invalid bounds for parameter %q [%g, %g]: %s",
		e.Parameter, e.Low, e.High, e.Reason)
}

// EvaluationFailedError indicates an evaluation could not produce metrics,
// either because the model-execution service failed or returned a malformed
// response. Recoverable: the optimization loop skips the iteration.
type EvaluationFailedError struct {
	Family ModelFamily
	Stage  string
	Err    error
}

func (e *EvaluationFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("evaluation failed for %s during %s", e.Family, e.Stage)
	}
	return fmt.Sprintf("evaluation failed for %s during %s: %v", e.Family, e.Stage, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *EvaluationFailedError) Unwrap() error {
	return e.Err
}

// NoEligibleModelError indicates every candidate family was either
// ineligible or failed its quick evaluation. Fatal to model selection.
type NoEligibleModelError struct {
	Candidates int
	Failures   map[ModelFamily]error
}

func (e *NoEligibleModelError) Error() string {
	return fmt.Sprintf("no eligible model among %d candidates", e.Candidates)
}

// EmptyEnsembleError indicates ensemble combination was requested with
// zero inputs.
type EmptyEnsembleError struct{}

func (e *EmptyEnsembleError) Error() string {
	return "ensemble requires at least one tuned model"
}
