package forecastkit

import (
	"context"
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates exchanged with the
// model-execution service.
const DateLayout = "2006-01-02"

// Wire contract limits for model-execution requests.
const (
	// MinTrainingPoints is the minimum series length a trainer accepts.
	MinTrainingPoints = 10
	// MaxForecastSteps caps the forecast horizon.
	MaxForecastSteps = 365
)

// TrainRequest is the request the engine sends to the model-execution
// service: train on the given series and forecast the requested horizon.
type TrainRequest struct {
	DataPoints      []float64       `json:"data_points"`
	Dates           []string        `json:"dates"`
	ForecastSteps   int             `json:"forecast_steps"`
	Seasonal        bool            `json:"seasonal"`
	SeasonalPeriod  int             `json:"seasonal_period,omitempty"`
	ConfidenceLevel float64         `json:"confidence_level"`
	Configuration   Configuration   `json:"configuration,omitempty"`
	BusinessContext BusinessContext `json:"business_context"`
}

// Validate enforces the request side of the wire contract: equal-length
// point and date arrays of at least MinTrainingPoints, a horizon in
// [1, MaxForecastSteps], non-negative demand values, and parseable dates.
func (r *TrainRequest) Validate() error {
	if len(r.DataPoints) != len(r.Dates) {
		return fmt.Errorf("data_points length %d does not match dates length %d",
			len(r.DataPoints), len(r.Dates))
	}
	if len(r.DataPoints) < MinTrainingPoints {
		return fmt.Errorf("at least %d training points required, got %d",
			MinTrainingPoints, len(r.DataPoints))
	}
	if r.ForecastSteps < 1 || r.ForecastSteps > MaxForecastSteps {
		return fmt.Errorf("forecast_steps must be in [1, %d], got %d",
			MaxForecastSteps, r.ForecastSteps)
	}
	for i, v := range r.DataPoints {
		if v < 0 {
			return fmt.Errorf("data_points[%d] is negative (%g); demand values must be non-negative", i, v)
		}
	}
	for i, d := range r.Dates {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("dates[%d] %q is not a valid calendar date: %w", i, d, err)
		}
	}
	if r.ConfidenceLevel <= 0 || r.ConfidenceLevel >= 1 {
		return fmt.Errorf("confidence_level must be in (0, 1), got %g", r.ConfidenceLevel)
	}
	return nil
}

// ForecastEntry is one forecast step as returned by the model-execution
// service. Bounds are optional; services that cannot estimate intervals
// omit them.
type ForecastEntry struct {
	Date       string   `json:"date"`
	Forecast   float64  `json:"forecast"`
	LowerBound *float64 `json:"lower_bound,omitempty"`
	UpperBound *float64 `json:"upper_bound,omitempty"`
}

// TrainResponse is the model-execution service's reply. ModelInfo carries
// family-specific diagnostics (AIC/BIC, changepoints, feature importance)
// passed through untouched.
type TrainResponse struct {
	Success     bool                   `json:"success"`
	Error       string                 `json:"error,omitempty"`
	Forecasts   []ForecastEntry        `json:"forecasts,omitempty"`
	ModelInfo   map[string]interface{} `json:"model_info,omitempty"`
	Performance PerformanceMetrics     `json:"performance"`
}

// Validate enforces the response side of the wire contract. A successful
// response must carry a non-empty forecast with valid dates and
// non-negative values; a failed response must carry an error message.
// The evaluator converts any violation into an EvaluationFailedError
// rather than letting malformed data propagate.
func (r *TrainResponse) Validate() error {
	if !r.Success {
		if r.Error == "" {
			return fmt.Errorf("failed response carries no error message")
		}
		return nil
	}
	if len(r.Forecasts) == 0 {
		return fmt.Errorf("successful response carries no forecasts")
	}
	for i, f := range r.Forecasts {
		if f.Forecast < 0 {
			return fmt.Errorf("forecasts[%d] is negative (%g)", i, f.Forecast)
		}
		if _, err := time.Parse(DateLayout, f.Date); err != nil {
			return fmt.Errorf("forecasts[%d] date %q is invalid: %w", i, f.Date, err)
		}
	}
	return nil
}

// ModelTrainer is the bridge to an external model-execution runtime.
//
// Implementations must honor context cancellation and deadlines: a call
// past its timeout is treated as failed, never as hung. One implementation
// exists per backing runtime (HTTP service, in-process baseline).
type ModelTrainer interface {
	// Name identifies the backing runtime for logs and diagnostics.
	Name() string

	// Train fits the family on the request series and forecasts the
	// requested horizon.
	Train(ctx context.Context, family ModelFamily, req *TrainRequest) (*TrainResponse, error)
}
