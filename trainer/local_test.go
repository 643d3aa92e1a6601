package trainer

import (
	"context"
	"testing"
	"time"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

func TestLocalTrainerProducesValidResponse(t *testing.T) {
	trainer := NewLocalTrainer(nil)
	req := validRequest(60)

	resp, err := trainer.Train(context.Background(), forecastkit.FamilyLinearTrend, req)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("response fails its own contract: %v", err)
	}
	if !resp.Success {
		t.Fatalf("Train failed: %s", resp.Error)
	}
	if len(resp.Forecasts) != req.ForecastSteps {
		t.Fatalf("forecast length = %d, want %d", len(resp.Forecasts), req.ForecastSteps)
	}

	lastTraining, _ := time.Parse(forecastkit.DateLayout, req.Dates[len(req.Dates)-1])
	for i, f := range resp.Forecasts {
		want := lastTraining.AddDate(0, 0, i+1).Format(forecastkit.DateLayout)
		if f.Date != want {
			t.Errorf("forecasts[%d].Date = %s, want %s", i, f.Date, want)
		}
		if f.Forecast < 0 {
			t.Errorf("forecasts[%d] negative: %g", i, f.Forecast)
		}
		if f.LowerBound == nil || f.UpperBound == nil {
			t.Fatalf("forecasts[%d] missing bounds", i)
		}
		if *f.LowerBound > f.Forecast || *f.UpperBound < f.Forecast {
			t.Errorf("forecasts[%d] bounds [%g, %g] do not straddle %g",
				i, *f.LowerBound, *f.UpperBound, f.Forecast)
		}
		if *f.LowerBound < 0 {
			t.Errorf("forecasts[%d] lower bound negative: %g", i, *f.LowerBound)
		}
	}
	if resp.Performance.TrainingTimeMs < 0 {
		t.Errorf("TrainingTimeMs = %g", resp.Performance.TrainingTimeMs)
	}
	if resp.ModelInfo["baseline"] != true {
		t.Error("baseline marker missing from model info")
	}
}

func TestLocalTrainerSeasonalMethod(t *testing.T) {
	trainer := NewLocalTrainer(nil)
	req := validRequest(60)
	req.Seasonal = true
	req.SeasonalPeriod = 7
	// Strong weekly shape: spike every 7th day.
	for i := range req.DataPoints {
		if i%7 == 0 {
			req.DataPoints[i] = 500
		} else {
			req.DataPoints[i] = 100
		}
	}

	resp, err := trainer.Train(context.Background(), forecastkit.FamilySARIMA, req)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if resp.ModelInfo["method"] != "seasonal_naive" {
		t.Errorf("method = %v, want seasonal_naive", resp.ModelInfo["method"])
	}

	// The weekly spike must survive into the forecast.
	var spike, flat float64
	for i, f := range resp.Forecasts {
		if (60+i)%7 == 0 {
			spike = f.Forecast
		} else {
			flat = f.Forecast
		}
	}
	if spike <= flat {
		t.Errorf("seasonal shape lost: spike=%g flat=%g", spike, flat)
	}
}

func TestLocalTrainerRejectsInvalidRequest(t *testing.T) {
	trainer := NewLocalTrainer(nil)
	req := validRequest(5)

	resp, err := trainer.Train(context.Background(), forecastkit.FamilyLinearTrend, req)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if resp.Success {
		t.Error("undersized request accepted")
	}
	if resp.Error == "" {
		t.Error("failure response carries no message")
	}
}

func TestLocalTrainerHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocalTrainer(nil).Train(ctx, forecastkit.FamilyARIMA, validRequest(30)); err == nil {
		t.Error("cancelled context accepted")
	}
}

func TestLocalTrainerWindowConfiguration(t *testing.T) {
	trainer := NewLocalTrainer(nil)
	req := validRequest(60)
	req.Configuration = forecastkit.Configuration{"window": 14}

	resp, err := trainer.Train(context.Background(), forecastkit.FamilyLinearTrend, req)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if resp.ModelInfo["window"] != 14 {
		t.Errorf("window = %v, want 14", resp.ModelInfo["window"])
	}
}
