// Package ensemble blends the forecasts of multiple independently tuned
// models into one weighted forecast with a combined confidence.
//
// Weights derive from each model's measured accuracy on the holdout
// window: a family-type base weight scaled by (1 - normalized MAPE),
// plus a small bonus for fast-training models, normalized to sum to 1.
package ensemble

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// fastTrainingMs is the training-time threshold below which a model earns
// the responsiveness bonus.
const fastTrainingMs = 5000

// fastTrainingBonus is the additive raw-weight bonus for fast models.
const fastTrainingBonus = 0.05

// familyBaseWeights are the tunable prior weights per family type,
// reflecting how well each family historically blends into demand
// ensembles.
var familyBaseWeights = map[forecastkit.ModelFamily]float64{
	forecastkit.FamilyXGBoost:     1.1,
	forecastkit.FamilyProphet:     1.05,
	forecastkit.FamilySARIMA:      1.0,
	forecastkit.FamilyARIMA:       0.95,
	forecastkit.FamilyLinearTrend: 0.8,
}

// Member is one tuned model entering the ensemble: the best evaluation
// its optimization run produced.
type Member struct {
	Family     forecastkit.ModelFamily `json:"family"`
	Evaluation *forecastkit.Evaluation `json:"evaluation"`
}

// Point is one blended forecast step. Models lists the families whose
// forecasts cover this step; when not all members cover it, weights are
// renormalized over the covering subset.
type Point struct {
	Date       time.Time                 `json:"date"`
	Forecast   float64                   `json:"forecast"`
	LowerBound float64                   `json:"lower_bound"`
	UpperBound float64                   `json:"upper_bound"`
	Confidence float64                   `json:"confidence"`
	Models     []forecastkit.ModelFamily `json:"models"`
}

// Forecast is the blended ensemble output.
type Forecast struct {
	// Weights maps each member family to its normalized weight
	// (sums to 1 within floating tolerance).
	Weights map[forecastkit.ModelFamily]float64 `json:"weights"`
	Points  []Point                             `json:"points"`
	// Confidence is the weighted average member confidence.
	Confidence float64 `json:"confidence"`
}

// Combiner blends tuned models. Stateless; safe for concurrent use.
type Combiner struct {
	logger *slog.Logger
}

// NewCombiner creates a combiner. A nil logger discards log output.
func NewCombiner(logger *slog.Logger) *Combiner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Combiner{logger: logger}
}

// Combine blends the members' holdout-window forecasts. Weights are
// recomputed from the members on every call; EmptyEnsembleError is
// returned for zero members.
func (c *Combiner) Combine(members []Member) (*Forecast, error) {
	if len(members) == 0 {
		return nil, &forecastkit.EmptyEnsembleError{}
	}

	weights := Weights(members)

	// Index each member's forecast by calendar date. Keys are formatted
	// dates so that differing time zones or clock readings on the same
	// day still align.
	type memberForecast struct {
		family forecastkit.ModelFamily
		points map[string]forecastkit.ForecastPoint
	}
	indexed := make([]memberForecast, len(members))
	dateSet := make(map[string]time.Time)
	for i, m := range members {
		points := make(map[string]forecastkit.ForecastPoint, len(m.Evaluation.Forecast))
		for _, fp := range m.Evaluation.Forecast {
			key := fp.Date.Format(forecastkit.DateLayout)
			points[key] = fp
			dateSet[key] = fp.Date
		}
		indexed[i] = memberForecast{family: m.Family, points: points}
	}

	keys := make([]string, 0, len(dateSet))
	for k := range dateSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	confidenceByFamily := make(map[forecastkit.ModelFamily]float64, len(members))
	for _, m := range members {
		confidenceByFamily[m.Family] = m.Evaluation.Confidence
	}

	out := &Forecast{Weights: weights}
	for _, key := range keys {
		// Renormalize over the members that cover this step.
		subtotal := 0.0
		for _, mf := range indexed {
			if _, ok := mf.points[key]; ok {
				subtotal += weights[mf.family]
			}
		}
		if subtotal == 0 {
			continue
		}

		point := Point{Date: dateSet[key]}
		for _, mf := range indexed {
			fp, ok := mf.points[key]
			if !ok {
				continue
			}
			w := weights[mf.family] / subtotal
			point.Forecast += w * fp.Forecast
			point.LowerBound += w * fp.LowerBound
			point.UpperBound += w * fp.UpperBound
			point.Confidence += w * confidenceByFamily[mf.family]
			point.Models = append(point.Models, mf.family)
		}
		out.Points = append(out.Points, point)
	}

	for family, w := range weights {
		out.Confidence += w * confidenceByFamily[family]
	}

	c.logger.Debug("ensemble combined",
		"members", len(members),
		"steps", len(out.Points),
		"confidence", out.Confidence)

	return out, nil
}

// Weights computes the normalized performance-derived weight per member
// family. Raw weight = family base weight x (1 - normalized MAPE), plus
// the fast-training bonus; normalized weights sum to 1.
func Weights(members []Member) map[forecastkit.ModelFamily]float64 {
	raw := make(map[forecastkit.ModelFamily]float64, len(members))
	total := 0.0
	for _, m := range members {
		base, ok := familyBaseWeights[m.Family]
		if !ok {
			base = 1.0
		}
		accuracy := 1 - math.Min(m.Evaluation.Accuracy.MAPE, 100)/100
		w := base * accuracy
		if m.Evaluation.Performance.TrainingTimeMs < fastTrainingMs {
			w += fastTrainingBonus
		}
		raw[m.Family] = w
		total += w
	}

	weights := make(map[forecastkit.ModelFamily]float64, len(raw))
	if total == 0 {
		// All members fully inaccurate: fall back to an even split.
		even := 1.0 / float64(len(raw))
		for family := range raw {
			weights[family] = even
		}
		return weights
	}
	for family, w := range raw {
		weights[family] = w / total
	}
	return weights
}
