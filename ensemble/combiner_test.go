package ensemble

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

func day(offset int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func member(family forecastkit.ModelFamily, mape, trainingMs float64, forecasts ...forecastkit.ForecastPoint) Member {
	return Member{
		Family: family,
		Evaluation: &forecastkit.Evaluation{
			Family:      family,
			Accuracy:    forecastkit.AccuracyMetrics{MAPE: mape},
			Performance: forecastkit.PerformanceMetrics{TrainingTimeMs: trainingMs},
			Confidence:  1 - mape/100,
			Forecast:    forecasts,
		},
	}
}

func TestWeightsSumToOne(t *testing.T) {
	members := []Member{
		member(forecastkit.FamilyARIMA, 10, 1000),
		member(forecastkit.FamilyProphet, 20, 8000),
		member(forecastkit.FamilyXGBoost, 15, 3000),
	}
	weights := Weights(members)

	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			t.Errorf("negative weight %g", w)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("weights sum to %g, want 1", sum)
	}
}

func TestWeightsFavorAccuracy(t *testing.T) {
	// Same family base weight and training time: the lower-MAPE member
	// must weigh strictly more.
	members := []Member{
		member(forecastkit.FamilyARIMA, 5, 1000),
		member(forecastkit.FamilySARIMA, 20, 1000),
	}
	// SARIMA carries a higher base weight (1.0 vs 0.95), so accuracy has
	// to overcome it; 5% vs 20% MAPE does.
	weights := Weights(members)
	if weights[forecastkit.FamilyARIMA] <= weights[forecastkit.FamilySARIMA] {
		t.Errorf("weights = %v, accurate member should dominate", weights)
	}
}

func TestWeightsFastTrainingBonus(t *testing.T) {
	fast := []Member{
		member(forecastkit.FamilyARIMA, 10, 1000),
		member(forecastkit.FamilySARIMA, 10, 1000),
	}
	slow := []Member{
		member(forecastkit.FamilyARIMA, 10, 60000),
		member(forecastkit.FamilySARIMA, 10, 1000),
	}
	if fastW, slowW := Weights(fast)[forecastkit.FamilyARIMA], Weights(slow)[forecastkit.FamilyARIMA]; fastW <= slowW {
		t.Errorf("fast-training bonus missing: fast=%g slow=%g", fastW, slowW)
	}
}

func TestWeightsAllInaccurateEvenSplit(t *testing.T) {
	members := []Member{
		member(forecastkit.FamilyARIMA, 100, 60000),
		member(forecastkit.FamilyProphet, 250, 60000),
	}
	weights := Weights(members)
	if weights[forecastkit.FamilyARIMA] != 0.5 || weights[forecastkit.FamilyProphet] != 0.5 {
		t.Errorf("weights = %v, want even split", weights)
	}
}

func TestCombineBlendsAlignedSteps(t *testing.T) {
	members := []Member{
		member(forecastkit.FamilyARIMA, 10, 1000,
			forecastkit.ForecastPoint{Date: day(0), Forecast: 100, LowerBound: 80, UpperBound: 120},
			forecastkit.ForecastPoint{Date: day(1), Forecast: 110, LowerBound: 90, UpperBound: 130},
		),
		member(forecastkit.FamilyProphet, 10, 1000,
			forecastkit.ForecastPoint{Date: day(0), Forecast: 200, LowerBound: 180, UpperBound: 220},
			forecastkit.ForecastPoint{Date: day(1), Forecast: 210, LowerBound: 190, UpperBound: 230},
		),
	}

	forecast, err := NewCombiner(nil).Combine(members)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if len(forecast.Points) != 2 {
		t.Fatalf("blended %d steps, want 2", len(forecast.Points))
	}

	first := forecast.Points[0]
	if !first.Date.Equal(day(0)) {
		t.Errorf("first step date = %v, want %v", first.Date, day(0))
	}
	// Equal accuracy and training time: blend must land strictly between
	// the member forecasts.
	if first.Forecast <= 100 || first.Forecast >= 200 {
		t.Errorf("blend = %g, want in (100, 200)", first.Forecast)
	}
	if first.LowerBound >= first.Forecast || first.UpperBound <= first.Forecast {
		t.Errorf("bounds do not straddle the blend: %+v", first)
	}
	if len(first.Models) != 2 {
		t.Errorf("step covered by %d models, want 2", len(first.Models))
	}
	if forecast.Confidence <= 0 || forecast.Confidence > 1 {
		t.Errorf("ensemble confidence = %g", forecast.Confidence)
	}
}

func TestCombineRenormalizesOverCoveringSubset(t *testing.T) {
	// The second member's forecast stops one step early: the last step is
	// carried entirely by the first member.
	members := []Member{
		member(forecastkit.FamilyARIMA, 10, 1000,
			forecastkit.ForecastPoint{Date: day(0), Forecast: 100, LowerBound: 80, UpperBound: 120},
			forecastkit.ForecastPoint{Date: day(1), Forecast: 110, LowerBound: 90, UpperBound: 130},
		),
		member(forecastkit.FamilyProphet, 10, 1000,
			forecastkit.ForecastPoint{Date: day(0), Forecast: 200, LowerBound: 180, UpperBound: 220},
		),
	}

	forecast, err := NewCombiner(nil).Combine(members)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if len(forecast.Points) != 2 {
		t.Fatalf("blended %d steps, want 2", len(forecast.Points))
	}

	last := forecast.Points[1]
	if last.Forecast != 110 {
		t.Errorf("uncovered step forecast = %g, want the sole member's 110", last.Forecast)
	}
	if len(last.Models) != 1 || last.Models[0] != forecastkit.FamilyARIMA {
		t.Errorf("uncovered step models = %v, want [arima]", last.Models)
	}
}

func TestCombineEmpty(t *testing.T) {
	_, err := NewCombiner(nil).Combine(nil)
	var emptyErr *forecastkit.EmptyEnsembleError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyEnsembleError, got %v", err)
	}
}

func TestCombineSingleMember(t *testing.T) {
	members := []Member{
		member(forecastkit.FamilyXGBoost, 12, 2000,
			forecastkit.ForecastPoint{Date: day(0), Forecast: 42, LowerBound: 30, UpperBound: 55},
		),
	}
	forecast, err := NewCombiner(nil).Combine(members)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if w := forecast.Weights[forecastkit.FamilyXGBoost]; w != 1 {
		t.Errorf("single-member weight = %g, want 1", w)
	}
	if forecast.Points[0].Forecast != 42 {
		t.Errorf("single-member blend = %g, want 42", forecast.Points[0].Forecast)
	}
}
