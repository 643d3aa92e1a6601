// Package profiling computes the statistical profile of a demand dataset.
//
// The profile drives search space construction and model family
// eligibility: seasonality via autocorrelation at weekly and monthly lags,
// trend via a fitted regression slope, volatility as the coefficient of
// variation, and data quality rates from upstream interpolation and
// outlier flags.
//
// Example:
//
//	profiler := profiling.NewProfiler(nil)
//	profile, err := profiler.Profile(dataset)
//	if profile.HasSeasonality {
//	    // widen seasonal parameter bounds
//	}
package profiling

import (
	"log/slog"
	"math"
	"sort"

	"github.com/sajari/regression"
	"gonum.org/v1/gonum/stat"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

const (
	// MinPoints is the smallest dataset the profiler accepts; below this
	// the lag-window autocorrelation is undefined.
	MinPoints = 10

	// SeasonalityThreshold is the absolute autocorrelation above which a
	// lag is considered seasonal.
	SeasonalityThreshold = 0.3

	weeklyLag  = 7
	monthlyLag = 30
)

// Profiler computes DataProfiles. Deterministic and side-effect free;
// a single Profiler is safe for concurrent use.
type Profiler struct {
	logger *slog.Logger
}

// NewProfiler creates a profiler. A nil logger discards log output.
func NewProfiler(logger *slog.Logger) *Profiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Profiler{logger: logger}
}

// Profile computes the statistical profile of the dataset.
//
// Returns InsufficientDataError when the series has fewer than MinPoints
// points.
func (p *Profiler) Profile(ds *forecastkit.Dataset) (*forecastkit.DataProfile, error) {
	n := ds.Len()
	if n < MinPoints {
		return nil, &forecastkit.InsufficientDataError{Points: n, Minimum: MinPoints}
	}

	values := ds.Values()
	mean := stat.Mean(values, nil)
	std := stat.StdDev(values, nil)

	corr7 := autocorrelation(values, weeklyLag)
	corr30 := autocorrelation(values, monthlyLag)
	seasonality := math.Max(math.Abs(corr7), math.Abs(corr30))
	seasonality = clamp01(seasonality)

	profile := &forecastkit.DataProfile{
		Size:                  n,
		HasSeasonality:        math.Abs(corr7) > SeasonalityThreshold || math.Abs(corr30) > SeasonalityThreshold,
		SeasonalityStrength:   seasonality,
		TrendStrength:         trendStrength(values, mean),
		MissingPct:            flagPct(ds.Points, func(pt forecastkit.DataPoint) bool { return pt.Interpolated }),
		OutlierPct:            flagPct(ds.Points, func(pt forecastkit.DataPoint) bool { return pt.Outlier }),
		BusinessCycleStrength: businessCycleStrength(ds, corr30),
	}
	if mean != 0 {
		profile.Volatility = std / mean
	}

	p.logger.Debug("dataset profiled",
		"size", n,
		"seasonal", profile.HasSeasonality,
		"seasonality_strength", profile.SeasonalityStrength,
		"trend_strength", profile.TrendStrength,
		"volatility", profile.Volatility)

	return profile, nil
}

// autocorrelation returns the Pearson correlation between the series and
// itself shifted by lag. Zero when the series is too short or constant.
func autocorrelation(values []float64, lag int) float64 {
	n := len(values)
	if n-lag < 3 {
		return 0
	}
	corr := stat.Correlation(values[:n-lag], values[lag:], nil)
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}

// trendStrength fits value ~ index and normalizes the slope by the mean
// level: the total fitted change over the series relative to the mean,
// clamped to [0, 1].
func trendStrength(values []float64, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	r := new(regression.Regression)
	r.SetObserved("demand")
	r.SetVar(0, "t")
	for i, v := range values {
		r.Train(regression.DataPoint(v, []float64{float64(i)}))
	}
	if err := r.Run(); err != nil {
		return 0
	}
	slope := r.Coeff(1)
	totalChange := math.Abs(slope) * float64(len(values)-1)
	return clamp01(totalChange / math.Abs(mean))
}

// businessCycleStrength measures how strongly the series follows the
// business-calendar features attached upstream (payday windows, holiday
// seasons, Ramadan proximity). When no features are present it falls back
// to the monthly autocorrelation.
func businessCycleStrength(ds *forecastkit.Dataset, monthlyCorr float64) float64 {
	names := featureNames(ds.Points)
	if len(names) == 0 {
		return clamp01(math.Abs(monthlyCorr))
	}

	values := ds.Values()
	best := 0.0
	for _, name := range names {
		feature := make([]float64, len(ds.Points))
		for i, pt := range ds.Points {
			feature[i] = pt.Features[name]
		}
		corr := stat.Correlation(values, feature, nil)
		if math.IsNaN(corr) {
			continue
		}
		if math.Abs(corr) > best {
			best = math.Abs(corr)
		}
	}
	return clamp01(best)
}

// featureNames collects feature keys present on every point, in sorted
// order for determinism.
func featureNames(points []forecastkit.DataPoint) []string {
	if len(points) == 0 || len(points[0].Features) == 0 {
		return nil
	}
	var names []string
	for name := range points[0].Features {
		onAll := true
		for _, pt := range points[1:] {
			if _, ok := pt.Features[name]; !ok {
				onAll = false
				break
			}
		}
		if onAll {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func flagPct(points []forecastkit.DataPoint, flagged func(forecastkit.DataPoint) bool) float64 {
	if len(points) == 0 {
		return 0
	}
	count := 0
	for _, pt := range points {
		if flagged(pt) {
			count++
		}
	}
	return float64(count) / float64(len(points)) * 100
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
