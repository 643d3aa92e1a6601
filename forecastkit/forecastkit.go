// Package forecastkit provides core types and contracts for the demand
// forecasting model selection and tuning engine.
//
// The engine scores candidate model families against a dataset's statistical
// profile, searches each family's configuration space for parameters that
// minimize a composite objective, and blends tuned models into a weighted
// ensemble forecast. Actual model fitting is delegated to an external
// model-execution service behind the ModelTrainer interface.
package forecastkit

import (
	"fmt"
	"sort"
	"time"
)

// ModelFamily identifies a forecasting model family.
type ModelFamily string

const (
	// FamilyARIMA is the autoregressive integrated moving average family.
	FamilyARIMA ModelFamily = "arima"
	// FamilySARIMA is the seasonal ARIMA family.
	FamilySARIMA ModelFamily = "sarima"
	// FamilyProphet is the decomposable trend/seasonality/holiday family.
	FamilyProphet ModelFamily = "prophet"
	// FamilyXGBoost is the gradient-boosted tree family.
	FamilyXGBoost ModelFamily = "xgboost"
	// FamilyLinearTrend is the simple linear trend baseline family.
	FamilyLinearTrend ModelFamily = "linear_trend"
)

// KnownFamilies returns all model families the engine can configure.
func KnownFamilies() []ModelFamily {
	return []ModelFamily{
		FamilyARIMA,
		FamilySARIMA,
		FamilyProphet,
		FamilyXGBoost,
		FamilyLinearTrend,
	}
}

// BusinessContext carries upstream business metadata forwarded to the
// model-execution service. Holiday and seasonal flag generation happens
// upstream; the engine treats them as opaque toggles.
type BusinessContext struct {
	IncludeHolidayFlags  bool   `json:"include_holiday_flags"`
	IncludeSeasonalFlags bool   `json:"include_seasonal_flags"`
	BusinessType         string `json:"business_type,omitempty"`
	Location             string `json:"location,omitempty"`
}

// DataPoint is one observation in a demand time series.
//
// Interpolated and Outlier flags are produced by upstream data preparation
// (gap filling, IQR fencing); the profiler only counts them. Features holds
// opaque business-calendar features (holiday flags, payday windows, Ramadan
// proximity) keyed by feature name.
type DataPoint struct {
	Date         time.Time          `json:"date"`
	Value        float64            `json:"value"`
	Interpolated bool               `json:"interpolated"`
	Outlier      bool               `json:"outlier"`
	Features     map[string]float64 `json:"features,omitempty"`
}

// Dataset is an ordered demand time series plus its statistical profile.
// Datasets are owned by the caller and read-only to the engine.
type Dataset struct {
	Points  []DataPoint `json:"points"`
	Profile *DataProfile `json:"profile,omitempty"`
}

// Len returns the number of points in the dataset.
func (d *Dataset) Len() int {
	return len(d.Points)
}

// Values returns the series values in chronological order.
func (d *Dataset) Values() []float64 {
	values := make([]float64, len(d.Points))
	for i, p := range d.Points {
		values[i] = p.Value
	}
	return values
}

// Dates returns the series dates in chronological order.
func (d *Dataset) Dates() []time.Time {
	dates := make([]time.Time, len(d.Points))
	for i, p := range d.Points {
		dates[i] = p.Date
	}
	return dates
}

// Sorted reports whether points are in non-decreasing date order.
func (d *Dataset) Sorted() bool {
	return sort.SliceIsSorted(d.Points, func(i, j int) bool {
		return d.Points[i].Date.Before(d.Points[j].Date)
	})
}

// SplitHoldout splits the dataset chronologically, reserving the trailing
// fraction as holdout. The holdout always contains at least one point when
// the dataset is non-empty.
func (d *Dataset) SplitHoldout(fraction float64) (train, holdout []DataPoint) {
	n := len(d.Points)
	if n == 0 {
		return nil, nil
	}
	h := int(float64(n) * fraction)
	if h < 1 {
		h = 1
	}
	if h >= n {
		h = n - 1
	}
	return d.Points[:n-h], d.Points[n-h:]
}

// DataProfile summarizes the statistical characteristics of a dataset.
//
// Percentages are expressed on a 0-100 scale; strengths on a 0-1 scale.
type DataProfile struct {
	Size                  int     `json:"size"`
	HasSeasonality        bool    `json:"has_seasonality"`
	SeasonalityStrength   float64 `json:"seasonality_strength"`
	TrendStrength         float64 `json:"trend_strength"`
	Volatility            float64 `json:"volatility"`
	MissingPct            float64 `json:"missing_pct"`
	OutlierPct            float64 `json:"outlier_pct"`
	BusinessCycleStrength float64 `json:"business_cycle_strength"`
}

// Configuration maps parameter names to concrete sampled values.
type Configuration map[string]interface{}

// Clone returns a shallow copy of the configuration.
func (c Configuration) Clone() Configuration {
	clone := make(Configuration, len(c))
	for k, v := range c {
		clone[k] = v
	}
	return clone
}

// Float returns the named parameter coerced to float64.
func (c Configuration) Float(name string) (float64, bool) {
	v, ok := c[name]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

// Int returns the named parameter coerced to int.
func (c Configuration) Int(name string) (int, bool) {
	f, ok := c.Float(name)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// ForecastPoint is one step of a forecast aligned to a calendar date.
type ForecastPoint struct {
	Date       time.Time `json:"date"`
	Forecast   float64   `json:"forecast"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// AccuracyMetrics are standard forecast accuracy measures computed against
// holdout actuals. MAPE is on a 0-100 scale.
type AccuracyMetrics struct {
	MAPE float64 `json:"mape"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// PerformanceMetrics capture resource usage of a training+forecast pass.
type PerformanceMetrics struct {
	TrainingTimeMs   float64 `json:"training_time_ms"`
	PredictionTimeMs float64 `json:"prediction_time_ms"`
	MemoryMB         float64 `json:"memory_mb"`
}

// ViolationSeverity grades a constraint violation.
type ViolationSeverity string

const (
	// SeverityMinor marks a small overshoot of a constraint.
	SeverityMinor ViolationSeverity = "minor"
	// SeverityMajor marks a substantial overshoot of a constraint.
	SeverityMajor ViolationSeverity = "major"
	// SeverityCritical marks an overshoot that makes the result unusable.
	SeverityCritical ViolationSeverity = "critical"
)

// Multiplier returns the penalty multiplier for the severity grade.
func (s ViolationSeverity) Multiplier() float64 {
	switch s {
	case SeverityMajor:
		return 10
	case SeverityCritical:
		return 100
	default:
		return 1
	}
}

// ConstraintViolation records a business or resource constraint breach.
// Violations are never fatal; the objective scorer converts them to
// additive penalties.
type ConstraintViolation struct {
	Constraint string            `json:"constraint"`
	Severity   ViolationSeverity `json:"severity"`
	Magnitude  float64           `json:"magnitude"`
	Detail     string            `json:"detail,omitempty"`
}

// Evaluation is the immutable outcome of evaluating one configuration.
// Instances are created once per configuration and appended to run history;
// they are never mutated afterwards.
type Evaluation struct {
	ID                   string                 `json:"id"`
	Family               ModelFamily            `json:"family"`
	Configuration        Configuration          `json:"configuration"`
	Accuracy             AccuracyMetrics        `json:"accuracy"`
	Performance          PerformanceMetrics     `json:"performance"`
	Stability            float64                `json:"stability"`
	Interpretability     float64                `json:"interpretability"`
	BusinessContextFit   float64                `json:"business_context_fit"`
	ConstraintViolations []ConstraintViolation  `json:"constraint_violations,omitempty"`
	Forecast             []ForecastPoint        `json:"forecast,omitempty"`
	Confidence           float64                `json:"confidence"`
	ModelInfo            map[string]interface{} `json:"model_info,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

// String renders a compact summary for logs.
func (e *Evaluation) String() string {
	return fmt.Sprintf("%s eval %s: mape=%.2f rmse=%.2f train=%.0fms violations=%d",
		e.Family, e.ID, e.Accuracy.MAPE, e.Accuracy.RMSE,
		e.Performance.TrainingTimeMs, len(e.ConstraintViolations))
}
