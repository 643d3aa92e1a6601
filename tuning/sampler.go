package tuning

import (
	"math"
	"math/rand"

	"github.com/stokcerdas/forecastkit-go/forecastkit"
)

// normalTruncateAttempts bounds redraws when truncating a normal draw;
// past this the draw is clamped to the nearest bound.
const normalTruncateAttempts = 10

// Sampler draws configurations from a search space using a seeded random
// source. Given the same seed and space, a sampler reproduces the same
// configuration sequence: parameters are drawn in sorted name order and
// every draw comes from the single owned source.
//
// A Sampler is not safe for concurrent use; the optimization loop owns
// one and serializes access.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler creates a sampler seeded with the given value.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws one configuration from the search space.
//
// Continuous parameters draw uniformly, log-uniformly (bounds must be
// positive), or from a Box-Muller normal truncated to the bounds with
// mean at the midpoint and std of range/6. Integer parameters floor a
// uniform draw over the inclusive range. Categorical parameters pick
// uniformly among the declared values.
func (s *Sampler) Sample(space *SearchSpace) (forecastkit.Configuration, error) {
	config := make(forecastkit.Configuration, len(space.Parameters))
	for _, name := range space.ParameterNames() {
		spec := space.Parameters[name]
		value, err := s.sampleParameter(name, spec)
		if err != nil {
			return nil, err
		}
		config[name] = value
	}
	return config, nil
}

func (s *Sampler) sampleParameter(name string, spec ParameterSpec) (interface{}, error) {
	switch spec.Kind {
	case KindContinuous:
		return s.sampleContinuous(name, spec)
	case KindInteger:
		if spec.High < spec.Low {
			return nil, &forecastkit.InvalidBoundsError{
				Parameter: name, Low: spec.Low, High: spec.High,
				Reason: "upper bound below lower bound",
			}
		}
		span := int(spec.High) - int(spec.Low) + 1
		v := int(spec.Low) + int(math.Floor(s.rng.Float64()*float64(span)))
		if v > int(spec.High) {
			v = int(spec.High)
		}
		return v, nil
	case KindCategorical:
		if len(spec.Values) == 0 {
			return nil, &forecastkit.InvalidBoundsError{
				Parameter: name, Reason: "categorical parameter has no values",
			}
		}
		return spec.Values[s.rng.Intn(len(spec.Values))], nil
	default:
		return nil, &forecastkit.InvalidBoundsError{
			Parameter: name, Reason: "unknown parameter kind " + string(spec.Kind),
		}
	}
}

func (s *Sampler) sampleContinuous(name string, spec ParameterSpec) (float64, error) {
	if spec.High < spec.Low {
		return 0, &forecastkit.InvalidBoundsError{
			Parameter: name, Low: spec.Low, High: spec.High,
			Reason: "upper bound below lower bound",
		}
	}

	switch spec.Distribution {
	case DistLogUniform:
		if spec.Low <= 0 || spec.High <= 0 {
			return 0, &forecastkit.InvalidBoundsError{
				Parameter: name, Low: spec.Low, High: spec.High,
				Reason: "log-uniform distribution requires positive bounds",
			}
		}
		logLow, logHigh := math.Log(spec.Low), math.Log(spec.High)
		return math.Exp(logLow + s.rng.Float64()*(logHigh-logLow)), nil

	case DistNormal:
		mean := (spec.Low + spec.High) / 2
		std := (spec.High - spec.Low) / 6
		if std == 0 {
			return mean, nil
		}
		for i := 0; i < normalTruncateAttempts; i++ {
			v := mean + s.boxMuller()*std
			if v >= spec.Low && v <= spec.High {
				return v, nil
			}
		}
		// Degenerate tail case: clamp instead of spinning.
		v := mean + s.boxMuller()*std
		return math.Min(math.Max(v, spec.Low), spec.High), nil

	default: // DistUniform and unset
		return spec.Low + s.rng.Float64()*(spec.High-spec.Low), nil
	}
}

// boxMuller draws a standard normal via the Box-Muller transform.
func (s *Sampler) boxMuller() float64 {
	u1 := s.rng.Float64()
	for u1 == 0 {
		u1 = s.rng.Float64()
	}
	u2 := s.rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
