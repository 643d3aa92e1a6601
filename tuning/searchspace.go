// Package tuning implements hyperparameter search for forecasting model
// families: data-aware search space construction, deterministic seeded
// sampling, direction-aware objective scoring with constraint penalties,
// and the optimization loop state machine.
package tuning

import (
	"sort"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// ParameterKind specifies the type of a search space parameter.
type ParameterKind string

const (
	// KindContinuous represents a continuous parameter (float).
	KindContinuous ParameterKind = "continuous"
	// KindInteger represents an integer parameter.
	KindInteger ParameterKind = "integer"
	// KindCategorical represents categorical values.
	KindCategorical ParameterKind = "categorical"
)

// Distribution specifies how a continuous parameter is drawn.
type Distribution string

const (
	// DistUniform draws linearly between bounds.
	DistUniform Distribution = "uniform"
	// DistLogUniform draws uniformly in log space; requires bounds > 0.
	DistLogUniform Distribution = "log_uniform"
	// DistNormal draws a truncated normal centered on the bounds midpoint
	// with std = range/6.
	DistNormal Distribution = "normal"
)

// ParameterSpec defines one parameter of a search space.
type ParameterSpec struct {
	Kind         ParameterKind `json:"kind"`
	Low          float64       `json:"low,omitempty"`
	High         float64       `json:"high,omitempty"`
	Values       []interface{} `json:"values,omitempty"`
	Distribution Distribution  `json:"distribution,omitempty"`
}

// SearchSpace defines the named, bounded parameter ranges a model family
// can be configured over. Immutable once built.
type SearchSpace struct {
	Family     forecastkit.ModelFamily  `json:"family"`
	Parameters map[string]ParameterSpec `json:"parameters"`
}

// NewSearchSpace creates an empty search space for a family.
func NewSearchSpace(family forecastkit.ModelFamily) *SearchSpace {
	return &SearchSpace{
		Family:     family,
		Parameters: make(map[string]ParameterSpec),
	}
}

// AddContinuous adds a uniformly drawn continuous parameter in [low, high].
func (s *SearchSpace) AddContinuous(name string, low, high float64) {
	s.Parameters[name] = ParameterSpec{
		Kind: KindContinuous, Low: low, High: high, Distribution: DistUniform,
	}
}

// AddLogUniform adds a continuous parameter drawn uniformly in log space.
func (s *SearchSpace) AddLogUniform(name string, low, high float64) {
	s.Parameters[name] = ParameterSpec{
		Kind: KindContinuous, Low: low, High: high, Distribution: DistLogUniform,
	}
}

// AddNormal adds a continuous parameter drawn from a truncated normal.
func (s *SearchSpace) AddNormal(name string, low, high float64) {
	s.Parameters[name] = ParameterSpec{
		Kind: KindContinuous, Low: low, High: high, Distribution: DistNormal,
	}
}

// AddInteger adds an integer parameter over the inclusive range [low, high].
func (s *SearchSpace) AddInteger(name string, low, high int) {
	s.Parameters[name] = ParameterSpec{
		Kind: KindInteger, Low: float64(low), High: float64(high),
	}
}

// AddCategorical adds a categorical parameter picked uniformly among values.
func (s *SearchSpace) AddCategorical(name string, values ...interface{}) {
	s.Parameters[name] = ParameterSpec{
		Kind: KindCategorical, Values: values,
	}
}

// ParameterNames returns parameter names in sorted order. Sampling iterates
// in this order so that a fixed seed reproduces the same configuration.
func (s *SearchSpace) ParameterNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for name := range s.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether every parameter of the configuration satisfies
// the bounds declared by this search space.
func (s *SearchSpace) Contains(config forecastkit.Configuration) bool {
	for name, spec := range s.Parameters {
		switch spec.Kind {
		case KindContinuous:
			v, ok := config.Float(name)
			if !ok || v < spec.Low || v > spec.High {
				return false
			}
		case KindInteger:
			v, ok := config.Int(name)
			if !ok || float64(v) < spec.Low || float64(v) > spec.High {
				return false
			}
		case KindCategorical:
			v, ok := config[name]
			if !ok {
				return false
			}
			found := false
			for _, allowed := range spec.Values {
				if allowed == v {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// Merge overlays caller-supplied parameter specs on top of the built
// defaults, by name.
func (s *SearchSpace) Merge(overrides map[string]ParameterSpec) {
	for name, spec := range overrides {
		s.Parameters[name] = spec
	}
}
