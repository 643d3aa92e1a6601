package evaluation

import (
	"math"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// familyScores holds the tabulated 0-1 fitness heuristics per model
// family. The values are tunable defaults inherited from the original
// system, ordered so that simpler families score higher on
// interpretability and tree ensembles score higher on raw capacity.
type familyScores struct {
	// interpretability of the family at its simplest configuration.
	interpretability float64
	// stability under noisy demand data.
	stability float64
	// businessFit for Indonesian SMB demand patterns (calendar effects,
	// promotions, irregular cycles).
	businessFit float64
}

var familyTable = map[forecastkit.ModelFamily]familyScores{
	forecastkit.FamilyLinearTrend: {interpretability: 1.0, stability: 0.9, businessFit: 0.4},
	forecastkit.FamilyARIMA:       {interpretability: 0.9, stability: 0.8, businessFit: 0.6},
	forecastkit.FamilySARIMA:      {interpretability: 0.8, stability: 0.75, businessFit: 0.7},
	forecastkit.FamilyProphet:     {interpretability: 0.7, stability: 0.7, businessFit: 0.9},
	forecastkit.FamilyXGBoost:     {interpretability: 0.4, stability: 0.6, businessFit: 0.8},
}

// maxTreeComplexity normalizes tree ensembles: n_estimators x max_depth
// at the widest bounds the search space builder allows.
const maxTreeComplexity = 300 * 12

// interpretabilityScore scores how explainable the family is at the given
// configuration. Configuration complexity discounts the family baseline:
// deeper/larger tree ensembles and higher-order ARIMA models are harder
// to explain.
func interpretabilityScore(family forecastkit.ModelFamily, config forecastkit.Configuration) float64 {
	base := familyTable[family].interpretability
	return clamp01(base * (1 - 0.5*configComplexity(family, config)))
}

// stabilityScore scores forecast stability for the family at the given
// configuration. More complex configurations overfit more easily and are
// discounted.
func stabilityScore(family forecastkit.ModelFamily, config forecastkit.Configuration) float64 {
	base := familyTable[family].stability
	return clamp01(base * (1 - 0.3*configComplexity(family, config)))
}

// businessFitScore scores how well the family captures the business
// calendar effects present in the request context.
func businessFitScore(family forecastkit.ModelFamily, bc forecastkit.BusinessContext) float64 {
	base := familyTable[family].businessFit
	if base == 0 {
		base = 0.5
	}
	// Families that model holidays natively benefit when the caller
	// forwards calendar flags.
	if bc.IncludeHolidayFlags {
		switch family {
		case forecastkit.FamilyProphet, forecastkit.FamilyXGBoost:
			base += 0.1
		}
	}
	return clamp01(base)
}

// configComplexity maps a configuration to [0, 1], where 0 is the
// simplest configuration the family supports.
func configComplexity(family forecastkit.ModelFamily, config forecastkit.Configuration) float64 {
	switch family {
	case forecastkit.FamilyXGBoost:
		estimators, _ := config.Float("n_estimators")
		depth, _ := config.Float("max_depth")
		return clamp01(estimators * depth / maxTreeComplexity)
	case forecastkit.FamilyARIMA, forecastkit.FamilySARIMA:
		p, _ := config.Float("p")
		q, _ := config.Float("q")
		sp, _ := config.Float("seasonal_p")
		sq, _ := config.Float("seasonal_q")
		return clamp01((p + q + sp + sq) / 14)
	case forecastkit.FamilyProphet:
		cps, _ := config.Float("changepoint_prior_scale")
		// Larger changepoint priors allow more trend flexibility.
		return clamp01(cps / 0.5)
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
