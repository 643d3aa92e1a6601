// Package selection ranks candidate model families for a dataset without
// running full hyperparameter optimization. Each eligible family gets one
// quick evaluation at its default configuration; ranking blends measured
// accuracy with tabulated fit-for-purpose sub-scores.
package selection

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
	"github.com/stokcerdas/forecastkit-go/tuning"
)

// familyProfile tabulates the selection heuristics for one family:
// minimum data size, how well it exploits seasonality, how it scales with
// history length, and which horizons it serves best. Tunable defaults,
// one row per supported family.
type familyProfile struct {
	minPoints        int
	interpretability float64
	businessFit      float64
	// seasonalityFit at (weak, strong) seasonal structure.
	seasonalityWeak   float64
	seasonalityStrong float64
	// sizeSaturation is the history length at which the family's
	// data-size fit reaches 1.
	sizeSaturation int
	// shortHorizon/longHorizon bonuses (horizon boundary at 30 steps).
	shortHorizonBonus float64
	longHorizonBonus  float64
}

var familyProfiles = map[forecastkit.ModelFamily]familyProfile{
	forecastkit.FamilyLinearTrend: {
		minPoints: 10, interpretability: 1.0, businessFit: 0.4,
		seasonalityWeak: 0.8, seasonalityStrong: 0.2,
		sizeSaturation: 30, shortHorizonBonus: 0.05,
	},
	forecastkit.FamilyARIMA: {
		minPoints: 20, interpretability: 0.9, businessFit: 0.6,
		seasonalityWeak: 0.7, seasonalityStrong: 0.4,
		sizeSaturation: 60, shortHorizonBonus: 0.05,
	},
	forecastkit.FamilySARIMA: {
		minPoints: 30, interpretability: 0.8, businessFit: 0.7,
		seasonalityWeak: 0.5, seasonalityStrong: 0.9,
		sizeSaturation: 90, shortHorizonBonus: 0.03,
	},
	forecastkit.FamilyProphet: {
		minPoints: 30, interpretability: 0.7, businessFit: 0.9,
		seasonalityWeak: 0.6, seasonalityStrong: 0.95,
		sizeSaturation: 90, longHorizonBonus: 0.05,
	},
	forecastkit.FamilyXGBoost: {
		minPoints: 50, interpretability: 0.4, businessFit: 0.8,
		seasonalityWeak: 0.7, seasonalityStrong: 0.8,
		sizeSaturation: 365, longHorizonBonus: 0.03,
	},
}

// horizonBoundary separates short from long forecast horizons (steps).
const horizonBoundary = 30

// ContextWeights blend the suitability sub-scores. Weights are
// normalized internally; zero-value weights select the defaults.
type ContextWeights struct {
	Accuracy         float64
	DataSizeFit      float64
	SeasonalityFit   float64
	Interpretability float64
	BusinessFit      float64
	// Horizon is the caller's intended forecast horizon in steps,
	// used for the small horizon-appropriateness bonus.
	Horizon int
}

// DefaultContextWeights favor measured accuracy over the static fit
// criteria.
func DefaultContextWeights() ContextWeights {
	return ContextWeights{
		Accuracy:         0.4,
		DataSizeFit:      0.15,
		SeasonalityFit:   0.15,
		Interpretability: 0.15,
		BusinessFit:      0.15,
	}
}

func (w ContextWeights) normalized() ContextWeights {
	total := w.Accuracy + w.DataSizeFit + w.SeasonalityFit + w.Interpretability + w.BusinessFit
	if total <= 0 {
		return DefaultContextWeights()
	}
	w.Accuracy /= total
	w.DataSizeFit /= total
	w.SeasonalityFit /= total
	w.Interpretability /= total
	w.BusinessFit /= total
	return w
}

// RankedModel is one row of a model ranking.
type RankedModel struct {
	Family           forecastkit.ModelFamily `json:"family"`
	SuitabilityScore float64                 `json:"suitability_score"`
	Evaluation       *forecastkit.Evaluation `json:"evaluation"`
}

// ModelRanking is the ordered result of a selection request, best family
// first. Built once per request and immutable afterwards.
type ModelRanking struct {
	Models []RankedModel `json:"models"`
	// Skipped maps families excluded from the ranking to the reason.
	Skipped map[forecastkit.ModelFamily]string `json:"skipped,omitempty"`
}

// Best returns the top-ranked entry.
func (r *ModelRanking) Best() RankedModel {
	return r.Models[0]
}

// Evaluator runs one quick evaluation of a family at a configuration.
// Satisfied by evaluation.Evaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, family forecastkit.ModelFamily, config forecastkit.Configuration) (*forecastkit.Evaluation, error)
}

// Selector ranks model families for a dataset.
type Selector struct {
	evaluator Evaluator
	logger    *slog.Logger
}

// NewSelector creates a selector backed by the given evaluator.
func NewSelector(evaluator Evaluator, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selector{evaluator: evaluator, logger: logger}
}

// SelectModel ranks the candidate families against the dataset profile.
//
// Families below their data-size floor or whose quick evaluation fails
// are excluded from the ranking, not fatal; NoEligibleModelError is
// returned only when every candidate is excluded.
func (s *Selector) SelectModel(ctx context.Context, profile *forecastkit.DataProfile, candidates []forecastkit.ModelFamily, weights ContextWeights) (*ModelRanking, error) {
	w := weights.normalized()
	ranking := &ModelRanking{Skipped: make(map[forecastkit.ModelFamily]string)}
	failures := make(map[forecastkit.ModelFamily]error)

	for _, family := range candidates {
		fp, known := familyProfiles[family]
		if !known {
			err := &forecastkit.UnsupportedModelFamilyError{Family: family}
			failures[family] = err
			ranking.Skipped[family] = err.Error()
			continue
		}
		if profile.Size < fp.minPoints {
			err := &forecastkit.InsufficientDataError{Points: profile.Size, Minimum: fp.minPoints}
			failures[family] = err
			ranking.Skipped[family] = err.Error()
			s.logger.Debug("family below data floor", "family", family, "size", profile.Size, "floor", fp.minPoints)
			continue
		}

		config, err := tuning.DefaultConfiguration(family)
		if err != nil {
			failures[family] = err
			ranking.Skipped[family] = err.Error()
			continue
		}

		eval, err := s.evaluator.Evaluate(ctx, family, config)
		if err != nil {
			failures[family] = err
			ranking.Skipped[family] = err.Error()
			s.logger.Warn("family evaluation failed, excluded from ranking", "family", family, "error", err)
			continue
		}

		score := suitability(fp, profile, eval, w)
		ranking.Models = append(ranking.Models, RankedModel{
			Family:           family,
			SuitabilityScore: score,
			Evaluation:       eval,
		})
	}

	if len(ranking.Models) == 0 {
		return nil, &forecastkit.NoEligibleModelError{Candidates: len(candidates), Failures: failures}
	}

	sort.SliceStable(ranking.Models, func(i, j int) bool {
		return ranking.Models[i].SuitabilityScore > ranking.Models[j].SuitabilityScore
	})

	s.logger.Info("model selection complete",
		"candidates", len(candidates),
		"ranked", len(ranking.Models),
		"best", ranking.Models[0].Family,
		"best_score", ranking.Models[0].SuitabilityScore)

	return ranking, nil
}

// suitability blends (1 - normalized MAPE), data-size fit, seasonality
// fit, interpretability, and business-context fit, plus a small additive
// bonus when the family suits the requested horizon.
func suitability(fp familyProfile, profile *forecastkit.DataProfile, eval *forecastkit.Evaluation, w ContextWeights) float64 {
	accuracy := 1 - math.Min(eval.Accuracy.MAPE, 100)/100
	sizeFit := math.Min(float64(profile.Size)/float64(fp.sizeSaturation), 1)
	seasonFit := fp.seasonalityWeak +
		(fp.seasonalityStrong-fp.seasonalityWeak)*profile.SeasonalityStrength

	score := w.Accuracy*accuracy +
		w.DataSizeFit*sizeFit +
		w.SeasonalityFit*seasonFit +
		w.Interpretability*fp.interpretability +
		w.BusinessFit*fp.businessFit

	if w.Horizon > 0 {
		if w.Horizon <= horizonBoundary {
			score += fp.shortHorizonBonus
		} else {
			score += fp.longHorizonBonus
		}
	}
	return score
}
