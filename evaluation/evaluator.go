package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// Default evaluator settings.
const (
	// DefaultHoldoutFraction reserves the trailing 20% of the series for
	// out-of-sample accuracy measurement.
	DefaultHoldoutFraction = 0.2
	// DefaultTimeout bounds one model-execution call.
	DefaultTimeout = 60 * time.Second
	// DefaultConfidenceLevel is forwarded to the model-execution service.
	DefaultConfidenceLevel = 0.95
	// defaultBoundSpread widens point forecasts into intervals when the
	// service omits bounds, matching the service-side fallback.
	defaultBoundSpread = 0.2
)

// Config configures an Evaluator. Zero values fall back to the defaults
// above.
type Config struct {
	Trainer         forecastkit.ModelTrainer
	Dataset         *forecastkit.Dataset
	HoldoutFraction float64
	Timeout         time.Duration
	ConfidenceLevel float64
	BusinessContext forecastkit.BusinessContext
	Constraints     Constraints
	Logger          *slog.Logger
}

// Evaluator evaluates configurations for one dataset. The dataset is
// read-only to the evaluator, so a single instance is safe for concurrent
// use by parallel optimization workers.
type Evaluator struct {
	trainer         forecastkit.ModelTrainer
	dataset         *forecastkit.Dataset
	train           []forecastkit.DataPoint
	holdout         []forecastkit.DataPoint
	timeout         time.Duration
	confidenceLevel float64
	businessContext forecastkit.BusinessContext
	constraints     Constraints
	logger          *slog.Logger
}

// New creates an evaluator with the dataset split chronologically into
// training and holdout portions.
func New(cfg Config) (*Evaluator, error) {
	if cfg.Trainer == nil {
		return nil, fmt.Errorf("model trainer is required")
	}
	if cfg.Dataset == nil || cfg.Dataset.Len() == 0 {
		return nil, fmt.Errorf("dataset is required")
	}
	if cfg.HoldoutFraction <= 0 || cfg.HoldoutFraction >= 1 {
		cfg.HoldoutFraction = DefaultHoldoutFraction
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConfidenceLevel <= 0 || cfg.ConfidenceLevel >= 1 {
		cfg.ConfidenceLevel = DefaultConfidenceLevel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	train, holdout := cfg.Dataset.SplitHoldout(cfg.HoldoutFraction)
	minTotal := forecastkit.MinTrainingPoints + 1
	if len(train) < forecastkit.MinTrainingPoints {
		return nil, &forecastkit.InsufficientDataError{Points: cfg.Dataset.Len(), Minimum: minTotal}
	}

	return &Evaluator{
		trainer:         cfg.Trainer,
		dataset:         cfg.Dataset,
		train:           train,
		holdout:         holdout,
		timeout:         cfg.Timeout,
		confidenceLevel: cfg.ConfidenceLevel,
		businessContext: cfg.BusinessContext,
		constraints:     cfg.Constraints,
		logger:          cfg.Logger,
	}, nil
}

// Evaluate trains the family with the given configuration on the training
// portion, forecasts the holdout horizon, and computes the full metric
// set. Any service failure, timeout, or contract violation returns an
// EvaluationFailedError; the caller skips the iteration rather than
// aborting the run.
func (e *Evaluator) Evaluate(ctx context.Context, family forecastkit.ModelFamily, config forecastkit.Configuration) (*forecastkit.Evaluation, error) {
	req := e.buildRequest(config)
	if err := req.Validate(); err != nil {
		return nil, &forecastkit.EvaluationFailedError{Family: family, Stage: "request", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.trainer.Train(callCtx, family, req)
	elapsed := time.Since(start)
	if err != nil {
		return nil, &forecastkit.EvaluationFailedError{Family: family, Stage: "train", Err: err}
	}
	if err := resp.Validate(); err != nil {
		return nil, &forecastkit.EvaluationFailedError{Family: family, Stage: "response", Err: err}
	}
	if !resp.Success {
		return nil, &forecastkit.EvaluationFailedError{
			Family: family, Stage: "train", Err: fmt.Errorf("%s", resp.Error),
		}
	}

	actual, predicted, forecast, err := e.align(resp.Forecasts)
	if err != nil {
		return nil, &forecastkit.EvaluationFailedError{Family: family, Stage: "align", Err: err}
	}

	accuracy := forecastkit.AccuracyMetrics{
		MAPE: MAPE(actual, predicted),
		MAE:  MAE(actual, predicted),
		RMSE: RMSE(actual, predicted),
		R2:   RSquared(actual, predicted),
	}

	perf := resp.Performance
	if perf.TrainingTimeMs == 0 {
		perf.TrainingTimeMs = float64(elapsed.Milliseconds())
	}

	eval := &forecastkit.Evaluation{
		ID:                   uuid.New().String(),
		Family:               family,
		Configuration:        config.Clone(),
		Accuracy:             accuracy,
		Performance:          perf,
		Stability:            stabilityScore(family, config),
		Interpretability:     interpretabilityScore(family, config),
		BusinessContextFit:   businessFitScore(family, e.businessContext),
		ConstraintViolations: e.constraints.Check(accuracy, perf),
		Forecast:             forecast,
		Confidence:           clamp01(1 - accuracy.MAPE/100),
		ModelInfo:            resp.ModelInfo,
		CreatedAt:            time.Now().UTC(),
	}

	e.logger.Debug("configuration evaluated",
		"family", family,
		"evaluation_id", eval.ID,
		"mape", accuracy.MAPE,
		"rmse", accuracy.RMSE,
		"training_ms", perf.TrainingTimeMs,
		"violations", len(eval.ConstraintViolations))

	return eval, nil
}

// Holdout exposes the holdout actuals, used by tests and diagnostics.
func (e *Evaluator) Holdout() []forecastkit.DataPoint {
	return e.holdout
}

func (e *Evaluator) buildRequest(config forecastkit.Configuration) *forecastkit.TrainRequest {
	points := make([]float64, len(e.train))
	dates := make([]string, len(e.train))
	for i, pt := range e.train {
		points[i] = pt.Value
		dates[i] = pt.Date.Format(forecastkit.DateLayout)
	}

	seasonal := false
	period := 0
	if e.dataset.Profile != nil && e.dataset.Profile.HasSeasonality {
		seasonal = true
		period = 7
	}

	return &forecastkit.TrainRequest{
		DataPoints:      points,
		Dates:           dates,
		ForecastSteps:   len(e.holdout),
		Seasonal:        seasonal,
		SeasonalPeriod:  period,
		ConfidenceLevel: e.confidenceLevel,
		Configuration:   config,
		BusinessContext: e.businessContext,
	}
}

// align matches returned forecast entries against holdout actuals by
// date. Steps outside the holdout are ignored; zero matches is a
// contract violation.
func (e *Evaluator) align(entries []forecastkit.ForecastEntry) (actual, predicted []float64, forecast []forecastkit.ForecastPoint, err error) {
	byDate := make(map[string]forecastkit.ForecastEntry, len(entries))
	for _, entry := range entries {
		byDate[entry.Date] = entry
	}

	for _, pt := range e.holdout {
		key := pt.Date.Format(forecastkit.DateLayout)
		entry, ok := byDate[key]
		if !ok {
			continue
		}
		actual = append(actual, pt.Value)
		predicted = append(predicted, entry.Forecast)

		lower := entry.Forecast * (1 - defaultBoundSpread)
		upper := entry.Forecast * (1 + defaultBoundSpread)
		if entry.LowerBound != nil {
			lower = *entry.LowerBound
		}
		if entry.UpperBound != nil {
			upper = *entry.UpperBound
		}
		forecast = append(forecast, forecastkit.ForecastPoint{
			Date:       pt.Date,
			Forecast:   entry.Forecast,
			LowerBound: lower,
			UpperBound: upper,
		})
	}

	if len(actual) == 0 {
		return nil, nil, nil, fmt.Errorf("no forecast dates align with the holdout window")
	}
	return actual, predicted, forecast, nil
}
