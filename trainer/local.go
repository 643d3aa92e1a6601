package trainer

import (
	"context"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"gonum.org/v1/gonum/stat"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// defaultWindow is the trailing window the baseline averages over when
// the configuration supplies none.
const defaultWindow = 30

// LocalTrainer is an in-process seasonal-naive forecaster. It backs tests
// and offline operation when the model-execution service is unreachable,
// mirroring the simple-method fallback of the production services:
// seasonal averaging when the request flags seasonality, a trailing
// moving average with drift otherwise, non-negative forecasts, and
// confidence bounds from the residual spread.
type LocalTrainer struct {
	logger *slog.Logger
}

// NewLocalTrainer creates the baseline trainer.
func NewLocalTrainer(logger *slog.Logger) *LocalTrainer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalTrainer{logger: logger}
}

// Name identifies the backing runtime.
func (t *LocalTrainer) Name() string {
	return "local:seasonal_naive"
}

// Train produces a baseline forecast for the request horizon. The family
// only influences diagnostics; the baseline method is the same for all
// families.
func (t *LocalTrainer) Train(ctx context.Context, family forecastkit.ModelFamily, req *forecastkit.TrainRequest) (*forecastkit.TrainResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return &forecastkit.TrainResponse{Success: false, Error: err.Error()}, nil
	}

	start := time.Now()
	values := req.DataPoints
	n := len(values)

	window, _ := req.Configuration.Int("window")
	if window <= 0 || window > n {
		window = defaultWindow
		if window > n {
			window = n
		}
	}
	tail := values[n-window:]
	level := stat.Mean(tail, nil)
	spread := stat.StdDev(tail, nil)
	if math.IsNaN(spread) {
		spread = 0
	}

	period := req.SeasonalPeriod
	if period <= 0 {
		period = 7
	}
	seasonal := req.Seasonal && n >= 2*period

	drift := 0.0
	if window >= 4 {
		half := window / 2
		drift = (stat.Mean(tail[half:], nil) - stat.Mean(tail[:half], nil)) / float64(half)
	}

	lastDate, err := time.Parse(forecastkit.DateLayout, req.Dates[n-1])
	if err != nil {
		return &forecastkit.TrainResponse{Success: false, Error: "unparseable last training date"}, nil
	}
	step := dateStep(req.Dates)

	forecasts := make([]forecastkit.ForecastEntry, req.ForecastSteps)
	for i := 0; i < req.ForecastSteps; i++ {
		var value float64
		if seasonal {
			value = seasonalAverage(values, period, n+i)
		} else {
			value = level + drift*float64(i+1)
		}
		if value < 0 {
			value = 0
		}

		lower := math.Max(0, value-1.96*spread)
		upper := value + 1.96*spread
		date := lastDate.Add(time.Duration(i+1) * step).Format(forecastkit.DateLayout)
		forecasts[i] = forecastkit.ForecastEntry{
			Date:       date,
			Forecast:   value,
			LowerBound: &lower,
			UpperBound: &upper,
		}
	}

	elapsed := time.Since(start)
	resp := &forecastkit.TrainResponse{
		Success:   true,
		Forecasts: forecasts,
		ModelInfo: map[string]interface{}{
			"method":   methodName(seasonal),
			"window":   window,
			"period":   period,
			"drift":    drift,
			"family":   string(family),
			"baseline": true,
		},
		Performance: forecastkit.PerformanceMetrics{
			TrainingTimeMs:   float64(elapsed.Microseconds()) / 1000,
			PredictionTimeMs: 0,
			MemoryMB:         processMemoryMB(),
		},
	}

	t.logger.Debug("baseline forecast produced",
		"family", family,
		"method", methodName(seasonal),
		"steps", req.ForecastSteps,
		"elapsed_ms", elapsed.Milliseconds())

	return resp, nil
}

func methodName(seasonal bool) string {
	if seasonal {
		return "seasonal_naive"
	}
	return "moving_average_drift"
}

// seasonalAverage averages the same-phase observations of the last four
// complete cycles.
func seasonalAverage(values []float64, period, index int) float64 {
	phase := index % period
	sum, count := 0.0, 0
	for i := len(values) - 1; i >= 0 && count < 4; i-- {
		if i%period == phase {
			sum += values[i]
			count++
		}
	}
	if count == 0 {
		return stat.Mean(values, nil)
	}
	return sum / float64(count)
}

// dateStep infers the series cadence from the last two dates, defaulting
// to daily.
func dateStep(dates []string) time.Duration {
	n := len(dates)
	if n < 2 {
		return 24 * time.Hour
	}
	prev, err1 := time.Parse(forecastkit.DateLayout, dates[n-2])
	last, err2 := time.Parse(forecastkit.DateLayout, dates[n-1])
	if err1 != nil || err2 != nil {
		return 24 * time.Hour
	}
	step := last.Sub(prev)
	if step <= 0 {
		return 24 * time.Hour
	}
	return step
}

// processMemoryMB reports the current process RSS in megabytes, the
// closest in-process equivalent of the memory the external services
// report. Zero when the probe fails.
func processMemoryMB() float64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return float64(info.RSS) / (1024 * 1024)
}
