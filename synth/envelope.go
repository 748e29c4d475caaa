package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/params"
)

// Envelope holds ADSR settings. Times are in seconds, Sustain is a level in [0, 1].
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultEnvelope returns the envelope used at startup.
func DefaultEnvelope() Envelope {
	return Envelope{Attack: 0.005, Decay: 0.1, Sustain: 0.3, Release: 1}
}

// EnvelopeFromSet reads attack/decay/sustain/release, keeping defaults for
// missing entries.
func EnvelopeFromSet(s params.Set) Envelope {
	d := DefaultEnvelope()
	return Envelope{
		Attack:  s.Get("attack", d.Attack),
		Decay:   s.Get("decay", d.Decay),
		Sustain: s.Get("sustain", d.Sustain),
		Release: s.Get("release", d.Release),
	}
}

// Set returns the envelope with one stage changed.
func (e Envelope) Set(stage string, value float64) (Envelope, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return e, fmt.Errorf("envelope %s: invalid value %v", stage, value)
	}
	switch stage {
	case "attack":
		e.Attack = value
	case "decay":
		e.Decay = value
	case "sustain":
		e.Sustain = min(value, 1)
	case "release":
		e.Release = value
	default:
		return e, fmt.Errorf("envelope: unknown stage %q", stage)
	}
	return e, nil
}

// ParamSet converts the envelope for storage in a params.Registry.
func (e Envelope) ParamSet() params.Set {
	return params.Set{"attack": e.Attack, "decay": e.Decay, "sustain": e.Sustain, "release": e.Release}
}

type envStage int

const (
	stageIdle envStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// silenceLevel ends the release stage.
const silenceLevel = 1e-4

// decay60 is ln(1000): exponential segments fall by 60 dB over their time.
const decay60 = 6.907755278982137

// adsr is the per-voice envelope generator. Attack is linear, decay and
// release are exponential.
type adsr struct {
	sampleRate float64
	env        Envelope

	stage     envStage
	level     float64
	attackInc float64
	decayK    float64
	releaseK  float64
}

func newADSR(sampleRate float64, env Envelope) *adsr {
	a := &adsr{sampleRate: sampleRate}
	a.set(env)
	return a
}

// set applies new settings without restarting the current stage.
func (a *adsr) set(env Envelope) {
	a.env = env
	if env.Attack > 0 {
		a.attackInc = 1 / (env.Attack * a.sampleRate)
	} else {
		a.attackInc = 1
	}
	a.decayK = segmentCoeff(env.Decay, a.sampleRate)
	a.releaseK = segmentCoeff(env.Release, a.sampleRate)
}

// segmentCoeff returns the per-sample multiplier of an exponential segment.
func segmentCoeff(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-decay60 / (seconds * sampleRate))
}

func (a *adsr) gateOn() {
	a.stage = stageAttack
}

func (a *adsr) gateOff() {
	if a.stage != stageIdle {
		a.stage = stageRelease
	}
}

func (a *adsr) active() bool { return a.stage != stageIdle }

func (a *adsr) next() float64 {
	switch a.stage {
	case stageAttack:
		a.level += a.attackInc
		if a.level >= 1 {
			a.level = 1
			a.stage = stageDecay
		}
	case stageDecay:
		s := a.env.Sustain
		a.level = s + (a.level-s)*a.decayK
		if math.Abs(a.level-s) < silenceLevel {
			a.level = s
			a.stage = stageSustain
		}
	case stageSustain:
		a.level = a.env.Sustain
	case stageRelease:
		a.level *= a.releaseK
		if a.level < silenceLevel {
			a.level = 0
			a.stage = stageIdle
		}
	default:
		a.level = 0
	}
	return a.level
}
