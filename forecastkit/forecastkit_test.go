package forecastkit

import (
	"errors"
	"testing"
	"time"
)

func TestSplitHoldout(t *testing.T) {
	tests := []struct {
		name        string
		points      int
		fraction    float64
		wantTrain   int
		wantHoldout int
	}{
		{"standard 80/20", 100, 0.2, 80, 20},
		{"holdout floors at one", 10, 0.01, 9, 1},
		{"holdout capped below full", 10, 0.99, 1, 9},
		{"small series", 5, 0.2, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := syntheticDataset(tt.points)
			train, holdout := ds.SplitHoldout(tt.fraction)
			if len(train) != tt.wantTrain {
				t.Errorf("train size = %d, want %d", len(train), tt.wantTrain)
			}
			if len(holdout) != tt.wantHoldout {
				t.Errorf("holdout size = %d, want %d", len(holdout), tt.wantHoldout)
			}
			// Chronological split: every holdout point follows every
			// training point.
			if len(train) > 0 && len(holdout) > 0 {
				if !train[len(train)-1].Date.Before(holdout[0].Date) {
					t.Error("holdout does not strictly follow training portion")
				}
			}
		})
	}
}

func TestSplitHoldoutEmpty(t *testing.T) {
	ds := &Dataset{}
	train, holdout := ds.SplitHoldout(0.2)
	if train != nil || holdout != nil {
		t.Errorf("empty dataset split = (%v, %v), want (nil, nil)", train, holdout)
	}
}

func TestTrainRequestValidate(t *testing.T) {
	valid := func() *TrainRequest {
		req := &TrainRequest{
			DataPoints:      make([]float64, 30),
			Dates:           make([]string, 30),
			ForecastSteps:   7,
			ConfidenceLevel: 0.95,
		}
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := range req.Dates {
			req.DataPoints[i] = float64(i + 1)
			req.Dates[i] = start.AddDate(0, 0, i).Format(DateLayout)
		}
		return req
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TrainRequest)
	}{
		{"length mismatch", func(r *TrainRequest) { r.Dates = r.Dates[:len(r.Dates)-1] }},
		{"too few points", func(r *TrainRequest) { r.DataPoints = r.DataPoints[:5]; r.Dates = r.Dates[:5] }},
		{"zero steps", func(r *TrainRequest) { r.ForecastSteps = 0 }},
		{"steps over cap", func(r *TrainRequest) { r.ForecastSteps = MaxForecastSteps + 1 }},
		{"negative demand", func(r *TrainRequest) { r.DataPoints[3] = -1 }},
		{"bad date", func(r *TrainRequest) { r.Dates[0] = "01/02/2026" }},
		{"confidence at one", func(r *TrainRequest) { r.ConfidenceLevel = 1 }},
		{"confidence at zero", func(r *TrainRequest) { r.ConfidenceLevel = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			if err := req.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestTrainResponseValidate(t *testing.T) {
	tests := []struct {
		name    string
		resp    TrainResponse
		wantErr bool
	}{
		{
			"valid success",
			TrainResponse{Success: true, Forecasts: []ForecastEntry{{Date: "2026-02-01", Forecast: 10}}},
			false,
		},
		{
			"valid failure",
			TrainResponse{Success: false, Error: "convergence failed"},
			false,
		},
		{
			"failure without message",
			TrainResponse{Success: false},
			true,
		},
		{
			"success without forecasts",
			TrainResponse{Success: true},
			true,
		},
		{
			"negative forecast",
			TrainResponse{Success: true, Forecasts: []ForecastEntry{{Date: "2026-02-01", Forecast: -3}}},
			true,
		},
		{
			"invalid forecast date",
			TrainResponse{Success: true, Forecasts: []ForecastEntry{{Date: "tomorrow", Forecast: 3}}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.resp.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigurationCoercion(t *testing.T) {
	config := Configuration{
		"float":  0.3,
		"int":    5,
		"int64":  int64(7),
		"string": "multiplicative",
	}

	if v, ok := config.Float("float"); !ok || v != 0.3 {
		t.Errorf("Float(float) = (%v, %v)", v, ok)
	}
	if v, ok := config.Float("int"); !ok || v != 5 {
		t.Errorf("Float(int) = (%v, %v)", v, ok)
	}
	if v, ok := config.Int("int64"); !ok || v != 7 {
		t.Errorf("Int(int64) = (%v, %v)", v, ok)
	}
	if _, ok := config.Float("string"); ok {
		t.Error("Float(string) succeeded, want failure")
	}
	if _, ok := config.Float("absent"); ok {
		t.Error("Float(absent) succeeded, want failure")
	}
}

func TestConfigurationClone(t *testing.T) {
	config := Configuration{"p": 1}
	clone := config.Clone()
	clone["p"] = 2
	if v, _ := config.Int("p"); v != 1 {
		t.Errorf("clone mutation leaked into original: p = %d", v)
	}
}

func TestSeverityMultiplier(t *testing.T) {
	tests := []struct {
		severity ViolationSeverity
		want     float64
	}{
		{SeverityMinor, 1},
		{SeverityMajor, 10},
		{SeverityCritical, 100},
		{ViolationSeverity("unknown"), 1},
	}
	for _, tt := range tests {
		if got := tt.severity.Multiplier(); got != tt.want {
			t.Errorf("Multiplier(%s) = %g, want %g", tt.severity, got, tt.want)
		}
	}
}

func TestErrorTypes(t *testing.T) {
	var wrapped error = &EvaluationFailedError{
		Family: FamilyARIMA,
		Stage:  "train",
		Err:    &InsufficientDataError{Points: 5, Minimum: 10},
	}

	var evalErr *EvaluationFailedError
	if !errors.As(wrapped, &evalErr) {
		t.Fatal("errors.As failed to match EvaluationFailedError")
	}
	var dataErr *InsufficientDataError
	if !errors.As(wrapped, &dataErr) {
		t.Fatal("errors.As failed to unwrap to InsufficientDataError")
	}
	if dataErr.Minimum != 10 {
		t.Errorf("unwrapped Minimum = %d, want 10", dataErr.Minimum)
	}
}

func syntheticDataset(n int) *Dataset {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]DataPoint, n)
	for i := range points {
		points[i] = DataPoint{Date: start.AddDate(0, 0, i), Value: float64(100 + i)}
	}
	return &Dataset{Points: points}
}
