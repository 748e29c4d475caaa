package synth

import "math"

// Voice is one sounding note of a PolySynth.
type Voice struct {
	sampleRate float64
	alg        Algorithm
	freq       float64
	velocity   float64
	released   bool
	age        int

	osc oscillator
	env *adsr

	// Modulator phase for AM and FM voices.
	modPhase float64
}

func newVoice(sampleRate float64, alg Algorithm, env Envelope) *Voice {
	return &Voice{
		sampleRate: sampleRate,
		alg:        alg,
		env:        newADSR(sampleRate, env),
	}
}

// start retriggers the voice at freq. Oscillator phases restart so a reused
// voice does not click in with stale state.
func (v *Voice) start(freq, velocity float64, wave Waveform, partials [4]float64) {
	v.freq = freq
	v.velocity = velocity
	v.released = false
	v.age = 0
	v.osc.wave = wave
	v.osc.partials = partials
	v.osc.reset()
	v.modPhase = 0
	v.env.level = 0
	v.env.gateOn()
}

func (v *Voice) release() {
	v.released = true
	v.env.gateOff()
}

// Active reports whether the voice still produces sound.
func (v *Voice) Active() bool { return v.env.active() }

func (v *Voice) Freq() float64 { return v.freq }

// render adds the voice into mix.
func (v *Voice) render(mix []float64, harmonicity, modIndex float64) {
	for i := range mix {
		if !v.env.active() {
			return
		}
		var s float64
		switch v.alg {
		case AlgorithmAM:
			m := 0.5 + 0.5*math.Sin(2*math.Pi*v.modPhase)
			s = v.osc.next(v.freq, v.sampleRate) * m
			v.modPhase = wrap(v.modPhase + harmonicity*v.freq/v.sampleRate)
		case AlgorithmFM:
			m := math.Sin(2 * math.Pi * v.modPhase)
			inst := v.freq + m*modIndex*harmonicity*v.freq
			s = v.osc.next(inst, v.sampleRate)
			v.modPhase = wrap(v.modPhase + harmonicity*v.freq/v.sampleRate)
		default:
			s = v.osc.next(v.freq, v.sampleRate)
		}
		mix[i] += s * v.env.next() * v.velocity
		v.age++
	}
}
