// Package synth implements the polyphonic voice engines and the engine
// manager that owns the active one.
package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/node"
)

// Algorithm selects the voice architecture.
type Algorithm int

const (
	AlgorithmClassic Algorithm = iota
	AlgorithmAM
	AlgorithmFM
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmClassic:
		return "synth"
	case AlgorithmAM:
		return "amsynth"
	case AlgorithmFM:
		return "fmsynth"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm accepts synth/amsynth/fmsynth and classic/am/fm.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch name {
	case "synth", "classic":
		return AlgorithmClassic, true
	case "amsynth", "am":
		return AlgorithmAM, true
	case "fmsynth", "fm":
		return AlgorithmFM, true
	}
	return 0, false
}

// Supports reports whether name is a live parameter of the algorithm.
func (a Algorithm) Supports(name string) bool {
	switch name {
	case ParamHarmonicity:
		return a == AlgorithmAM || a == AlgorithmFM
	case ParamModulationIndex:
		return a == AlgorithmFM
	}
	return false
}

// Algorithm parameter names.
const (
	ParamHarmonicity     = "harmonicity"
	ParamModulationIndex = "modulationIndex"
)

const (
	DefaultPolyphony   = 32
	DefaultHarmonicity = 3.0
	DefaultModIndex    = 10.0
	outputGainDB       = -6.0
)

// PolySynth is the chain source: a pool of voices of one algorithm.
type PolySynth struct {
	node.Base

	sampleRate   float64
	alg          Algorithm
	maxPolyphony int
	voices       []*Voice

	env         Envelope
	wave        Waveform
	partials    [4]float64
	harmonicity float64
	modIndex    float64
	gain        float64
}

// NewPolySynth returns a silent PolySynth rendering alg with at most
// maxPolyphony voices. Values below 1 use DefaultPolyphony.
func NewPolySynth(sampleRate float64, alg Algorithm, maxPolyphony int) *PolySynth {
	if maxPolyphony <= 0 {
		maxPolyphony = DefaultPolyphony
	}
	return &PolySynth{
		Base:         node.NewBase(alg.String()),
		sampleRate:   sampleRate,
		alg:          alg,
		maxPolyphony: maxPolyphony,
		voices:       make([]*Voice, 0, maxPolyphony),
		env:          DefaultEnvelope(),
		harmonicity:  DefaultHarmonicity,
		modIndex:     DefaultModIndex,
		gain:         math.Pow(10, outputGainDB/20),
	}
}

func (p *PolySynth) Category() node.Category { return node.CategorySource }
func (p *PolySynth) Family() node.Family     { return node.FamilyNone }

func (p *PolySynth) Algorithm() Algorithm     { return p.alg }
func (p *PolySynth) Harmonicity() float64     { return p.harmonicity }
func (p *PolySynth) ModulationIndex() float64 { return p.modIndex }
func (p *PolySynth) Envelope() Envelope       { return p.env }
func (p *PolySynth) Waveform() Waveform       { return p.wave }
func (p *PolySynth) Partials() [4]float64     { return p.partials }

// Set applies harmonicity or modulationIndex when the algorithm has them.
func (p *PolySynth) Set(name string, value float64) error {
	if p.Disposed() {
		return fmt.Errorf("synth %s: %w", p.Name(), node.ErrDisposed)
	}
	if !p.alg.Supports(name) {
		return fmt.Errorf("synth %s: %w: %s", p.Name(), node.ErrUnknownParam, name)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("synth %s: invalid %s %v", p.Name(), name, value)
	}
	switch name {
	case ParamHarmonicity:
		p.harmonicity = value
	case ParamModulationIndex:
		p.modIndex = value
	}
	return nil
}

// SetEnvelope updates every voice in place, including sounding ones.
func (p *PolySynth) SetEnvelope(env Envelope) {
	p.env = env
	for _, v := range p.voices {
		v.env.set(env)
	}
}

// SetWaveform applies to notes triggered from now on and to sounding voices.
func (p *PolySynth) SetWaveform(w Waveform) {
	p.wave = w
	for _, v := range p.voices {
		v.osc.wave = w
	}
}

// SetPartials stores the harmonic weights. Shapes without partial support
// ignore them at render time.
func (p *PolySynth) SetPartials(w [4]float64) {
	p.partials = w
	for _, v := range p.voices {
		v.osc.partials = w
	}
}

// TriggerAttack starts a voice at freq. When every voice is busy the oldest
// one is stolen.
func (p *PolySynth) TriggerAttack(freq, velocity float64) {
	if p.Disposed() {
		return
	}
	v := p.allocate()
	v.start(freq, velocity, p.wave, p.partials)
}

// TriggerRelease releases every held voice sounding at freq.
func (p *PolySynth) TriggerRelease(freq float64) {
	for _, v := range p.voices {
		if v.Active() && !v.released && sameFreq(v.freq, freq) {
			v.release()
		}
	}
}

// ActiveVoices counts voices that still produce sound.
func (p *PolySynth) ActiveVoices() int {
	n := 0
	for _, v := range p.voices {
		if v.Active() {
			n++
		}
	}
	return n
}

func (p *PolySynth) allocate() *Voice {
	for _, v := range p.voices {
		if !v.Active() {
			return v
		}
	}
	if len(p.voices) < p.maxPolyphony {
		v := newVoice(p.sampleRate, p.alg, p.env)
		p.voices = append(p.voices, v)
		return v
	}
	oldest := p.voices[0]
	for _, v := range p.voices[1:] {
		if v.age > oldest.age {
			oldest = v
		}
	}
	return oldest
}

// Process overwrites block with the mix of all voices.
func (p *PolySynth) Process(block []float64) {
	clear(block)
	if p.Disposed() {
		return
	}
	for _, v := range p.voices {
		if v.Active() {
			v.render(block, p.harmonicity, p.modIndex)
		}
	}
	for i := range block {
		block[i] *= p.gain
	}
}

// Dispose silences every voice immediately and detaches the engine.
func (p *PolySynth) Dispose() error {
	if p.Disposed() {
		return nil
	}
	p.voices = p.voices[:0]
	p.MarkDisposed()
	return nil
}

func sameFreq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(a))
}
