package tuning

import (
	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// largeDatasetSize is the historical volume above which tree-model
// capacity bounds widen (roughly one year of daily data).
const largeDatasetSize = 365

// strongSeasonality is the profile strength above which autoregressive
// order bounds widen.
const strongSeasonality = 0.5

// boundsBuilder produces the default search space for one family given
// the data profile.
type boundsBuilder func(profile *forecastkit.DataProfile) *SearchSpace

// builders is the per-family registry. Adding a family means adding a row
// here plus its entries in the selection and evaluation tables.
var builders = map[forecastkit.ModelFamily]boundsBuilder{
	forecastkit.FamilyARIMA:       buildARIMASpace,
	forecastkit.FamilySARIMA:      buildSARIMASpace,
	forecastkit.FamilyProphet:     buildProphetSpace,
	forecastkit.FamilyXGBoost:     buildXGBoostSpace,
	forecastkit.FamilyLinearTrend: buildLinearTrendSpace,
}

// BuildSearchSpace constructs the search space for a model family, bounded
// to the dataset's profile, with optional caller overrides merged by
// parameter name. Unknown families return UnsupportedModelFamilyError.
func BuildSearchSpace(family forecastkit.ModelFamily, profile *forecastkit.DataProfile, overrides map[string]ParameterSpec) (*SearchSpace, error) {
	build, ok := builders[family]
	if !ok {
		return nil, &forecastkit.UnsupportedModelFamilyError{Family: family}
	}
	space := build(profile)
	space.Merge(overrides)
	return space, nil
}

// DefaultConfiguration returns the family's baseline configuration, used
// for quick suitability evaluation without a full search. Values follow
// the production defaults of the backing model services.
func DefaultConfiguration(family forecastkit.ModelFamily) (forecastkit.Configuration, error) {
	switch family {
	case forecastkit.FamilyARIMA:
		return forecastkit.Configuration{"p": 1, "d": 1, "q": 1}, nil
	case forecastkit.FamilySARIMA:
		return forecastkit.Configuration{
			"p": 1, "d": 1, "q": 1,
			"seasonal_p": 1, "seasonal_d": 1, "seasonal_q": 1, "seasonal_period": 7,
		}, nil
	case forecastkit.FamilyProphet:
		return forecastkit.Configuration{
			"changepoint_prior_scale": 0.05,
			"seasonality_prior_scale": 10.0,
			"holidays_prior_scale":    10.0,
			"seasonality_mode":        "multiplicative",
		}, nil
	case forecastkit.FamilyXGBoost:
		return forecastkit.Configuration{
			"learning_rate": 0.1,
			"max_depth":     6,
			"n_estimators":  100,
			"subsample":     0.8,
		}, nil
	case forecastkit.FamilyLinearTrend:
		return forecastkit.Configuration{"window": 30}, nil
	default:
		return nil, &forecastkit.UnsupportedModelFamilyError{Family: family}
	}
}

func buildARIMASpace(profile *forecastkit.DataProfile) *SearchSpace {
	space := NewSearchSpace(forecastkit.FamilyARIMA)

	// Autoregressive order widens only when the data shows strong
	// seasonal structure worth capturing with longer memory.
	maxOrder := 3
	if profile.SeasonalityStrength > strongSeasonality {
		maxOrder = 5
	}
	space.AddInteger("p", 0, maxOrder)
	space.AddInteger("d", 0, 2)
	space.AddInteger("q", 0, maxOrder)
	return space
}

func buildSARIMASpace(profile *forecastkit.DataProfile) *SearchSpace {
	space := buildARIMASpace(profile)
	space.Family = forecastkit.FamilySARIMA
	space.AddInteger("seasonal_p", 0, 2)
	space.AddInteger("seasonal_d", 0, 1)
	space.AddInteger("seasonal_q", 0, 2)
	space.AddCategorical("seasonal_period", 7, 30)
	return space
}

func buildProphetSpace(profile *forecastkit.DataProfile) *SearchSpace {
	space := NewSearchSpace(forecastkit.FamilyProphet)
	space.AddLogUniform("changepoint_prior_scale", 0.001, 0.5)
	space.AddContinuous("seasonality_prior_scale", 1, 20)
	space.AddContinuous("holidays_prior_scale", 1, 20)
	space.AddCategorical("seasonality_mode", "additive", "multiplicative")
	return space
}

func buildXGBoostSpace(profile *forecastkit.DataProfile) *SearchSpace {
	space := NewSearchSpace(forecastkit.FamilyXGBoost)
	space.AddLogUniform("learning_rate", 0.01, 0.3)

	// Capacity widens only with enough history to support it.
	maxDepth, maxEstimators := 8, 150
	if profile.Size >= largeDatasetSize {
		maxDepth, maxEstimators = 12, 300
	}
	space.AddInteger("max_depth", 3, maxDepth)
	space.AddInteger("n_estimators", 50, maxEstimators)
	space.AddNormal("subsample", 0.5, 1.0)
	return space
}

func buildLinearTrendSpace(profile *forecastkit.DataProfile) *SearchSpace {
	space := NewSearchSpace(forecastkit.FamilyLinearTrend)
	maxWindow := profile.Size
	if maxWindow > 90 {
		maxWindow = 90
	}
	space.AddInteger("window", 7, maxWindow)
	return space
}
