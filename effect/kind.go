// Package effect builds the effect and sink nodes of the signal chain on top
// of the algo-dsp effect runtimes.
package effect

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-synth/node"
	"github.com/cwbudde/algo-synth/params"
)

// ErrUnknownKind is returned for an effect kind outside the fixed table.
var ErrUnknownKind = errors.New("unknown effect kind")

// Spec describes one effect kind: its family, the runtime that implements it
// and how user-facing parameter values map onto runtime parameters.
type Spec struct {
	Name     string
	Family   node.Family
	Runtime  string
	Defaults params.Set

	str       map[string]string
	translate func(v params.Set) map[string]float64
}

// kinds lists every effect in display order.
var kinds = []Spec{
	filterSpec("highpass"),
	filterSpec("lowpass"),
	filterSpec("bandpass"),
	filterSpec("notch"),
	{
		Name:     "delay",
		Family:   node.FamilyDelay,
		Runtime:  "delay",
		Defaults: params.Set{"delayTime": 1},
		translate: func(v params.Set) map[string]float64 {
			return map[string]float64{
				"time":     core.Clamp(v.Get("delayTime", 1), 0.001, 2),
				"feedback": 0,
				"mix":      1,
			}
		},
	},
	{
		Name:     "reverb",
		Family:   node.FamilyReverb,
		Runtime:  "reverb-conv",
		Defaults: params.Set{"decay": 1, "wet": 0.5},
		translate: func(v params.Set) map[string]float64 {
			return map[string]float64{
				"irIndex": float64(decayIndex(v.Get("decay", 1))),
				"wet":     core.Clamp(v.Get("wet", 0.5), 0, 1),
			}
		},
	},
	{
		Name:     "feedback",
		Family:   node.FamilyDelay,
		Runtime:  "delay",
		Defaults: params.Set{"delayTime": 1, "feedback": 0.5},
		translate: func(v params.Set) map[string]float64 {
			return map[string]float64{
				"time":     core.Clamp(v.Get("delayTime", 1), 0.001, 2),
				"feedback": core.Clamp(v.Get("feedback", 0.5), 0, 0.99),
				"mix":      0.5,
			}
		},
	},
	{
		Name:     "pingpong",
		Family:   node.FamilyDelay,
		Runtime:  runtimePingPong,
		Defaults: params.Set{"delayTime": 1, "feedback": 0.5},
		translate: func(v params.Set) map[string]float64 {
			return map[string]float64{
				"time":     core.Clamp(v.Get("delayTime", 1), 0.001, maxPingPongSeconds),
				"feedback": core.Clamp(v.Get("feedback", 0.5), 0, 0.99),
				"mix":      0.5,
			}
		},
	},
	{
		Name:     "chorus",
		Family:   node.FamilyModulation,
		Runtime:  "chorus",
		Defaults: params.Set{"frequency": 1.5, "delayTime": 10, "depth": 1},
		translate: func(v params.Set) map[string]float64 {
			// delayTime is in milliseconds, depth scales it.
			sweep := v.Get("delayTime", 10) * 1e-3 * core.Clamp(v.Get("depth", 1), 0, 1)
			return map[string]float64{
				"speedHz": v.Get("frequency", 1.5),
				"depth":   sweep,
				"mix":     0.5,
				"stages":  3,
			}
		},
	},
	{
		Name:     "distortion",
		Family:   node.FamilyDistortion,
		Runtime:  "distortion",
		Defaults: params.Set{"distortion": 0.5},
		str:      map[string]string{"mode": "softclip"},
		translate: func(v params.Set) map[string]float64 {
			amount := core.Clamp(v.Get("distortion", 0.5), 0, 1)
			return map[string]float64{
				"drive":  1 + 19*amount,
				"mix":    1,
				"output": 1,
			}
		},
	},
	{
		Name:     "wah",
		Family:   node.FamilyModulation,
		Runtime:  runtimeWah,
		Defaults: params.Set{"baseFrequency": 100, "octaves": 6, "sensitivity": 1},
		translate: func(v params.Set) map[string]float64 {
			base := core.Clamp(v.Get("baseFrequency", 100), 20, 5000)
			return map[string]float64{
				"minFreqHz":   base,
				"maxFreqHz":   base * math.Exp2(core.Clamp(v.Get("octaves", 6), 0.1, 8)),
				"sensitivity": math.Max(v.Get("sensitivity", 1), 0.01),
			}
		},
	},
	{
		Name:     "phaser",
		Family:   node.FamilyModulation,
		Runtime:  "phaser",
		Defaults: params.Set{"frequency": 1, "octaves": 1, "baseFrequency": 350},
		translate: func(v params.Set) map[string]float64 {
			base := v.Get("baseFrequency", 350)
			return map[string]float64{
				"rateHz":    v.Get("frequency", 1),
				"minFreqHz": base,
				"maxFreqHz": base * math.Exp2(core.Clamp(v.Get("octaves", 1), 0.1, 8)),
				"stages":    6,
				"feedback":  0.2,
				"mix":       0.5,
			}
		},
	},
	{
		Name:     "widener",
		Family:   node.FamilySpatial,
		Runtime:  "widener",
		Defaults: params.Set{"width": 0.5},
		translate: func(v params.Set) map[string]float64 {
			// 0.5 leaves the image untouched.
			return map[string]float64{
				"width": 2 * core.Clamp(v.Get("width", 0.5), 0, 1),
				"mix":   1,
			}
		},
	},
	{
		Name:     "vibrato",
		Family:   node.FamilyModulation,
		Runtime:  "flanger",
		Defaults: params.Set{"frequency": 5, "depth": 0.1},
		translate: func(v params.Set) map[string]float64 {
			return map[string]float64{
				"rateHz":    v.Get("frequency", 5),
				"baseDelay": 0.005,
				"depth":     0.005 * core.Clamp(v.Get("depth", 0.1), 0, 1),
				"feedback":  0,
				"mix":       1,
			}
		},
	},
	{
		Name:     "bitcrusher",
		Family:   node.FamilyBitReduction,
		Runtime:  "bitcrusher",
		Defaults: params.Set{"bits": 4},
		translate: func(v params.Set) map[string]float64 {
			return map[string]float64{
				"bitDepth":   v.Get("bits", 4),
				"downsample": 1,
				"mix":        1,
			}
		},
	},
	{
		Name:     "chebyshev",
		Family:   node.FamilyDistortion,
		Runtime:  "dist-cheb",
		Defaults: params.Set{"order": 1},
		translate: func(v params.Set) map[string]float64 {
			return map[string]float64{
				"order": v.Get("order", 1),
				"drive": 1,
				"mix":   1,
			}
		},
	},
}

// sinkSpec is the limiter that terminates every chain.
var sinkSpec = Spec{
	Name:     "limiter",
	Family:   node.FamilyDynamics,
	Runtime:  "dyn-limiter",
	Defaults: params.Set{"threshold": -6},
	translate: func(v params.Set) map[string]float64 {
		return map[string]float64{
			"thresholdDB": v.Get("threshold", -6),
			"releaseMs":   100,
		}
	},
}

func filterSpec(name string) Spec {
	return Spec{
		Name:     name,
		Family:   node.FamilyFilter,
		Runtime:  "filter-" + name,
		Defaults: params.Set{"frequency": 1000, "Q": 1},
		translate: func(v params.Set) map[string]float64 {
			return map[string]float64{
				"freq": v.Get("frequency", 1000),
				"q":    v.Get("Q", 1),
			}
		},
	}
}

// decayIndex quantises a reverb decay in seconds to the impulse response
// index served by irBank.
func decayIndex(decay float64) int {
	return int(math.Round(core.Clamp(decay, minDecaySeconds, maxDecaySeconds) * decayStepsPerSecond))
}

// Lookup returns the spec for name.
func Lookup(name string) (Spec, bool) {
	for _, s := range kinds {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Kinds returns every effect kind name in display order.
func Kinds() []string {
	out := make([]string, len(kinds))
	for i, s := range kinds {
		out[i] = s.Name
	}
	return out
}

// DefaultParams returns a fresh copy of the defaults for name.
func DefaultParams(name string) (params.Set, bool) {
	s, ok := Lookup(name)
	if !ok {
		return nil, false
	}
	return s.Defaults.Clone(), true
}
