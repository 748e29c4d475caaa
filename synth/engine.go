package synth

import (
	"log/slog"
	"math"

	"github.com/cwbudde/algo-synth/node"
	"github.com/cwbudde/algo-synth/notes"
	"github.com/cwbudde/algo-synth/params"
)

// Publisher installs a new source at the head of the signal chain and
// re-derives its connections.
type Publisher interface {
	Publish(src node.Node) error
}

type engineConfig struct {
	polyphony int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithPolyphony caps the voices of every engine built later.
func WithPolyphony(n int) Option {
	return func(c *engineConfig) { c.polyphony = n }
}

// WithLogger sets the logger for ignored or invalid requests.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// Engine owns exactly one active PolySynth and routes note events to it.
type Engine struct {
	sampleRate float64
	polyphony  int
	pub        Publisher
	logger     *slog.Logger

	poly     *PolySynth
	shape    Shape
	modifier Modifier
	env      Envelope
	partials [4]float64
}

// NewEngine starts with a Classic engine playing a sine. pub may be nil.
func NewEngine(sampleRate float64, pub Publisher, opts ...Option) *Engine {
	cfg := engineConfig{polyphony: DefaultPolyphony}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	e := &Engine{
		sampleRate: sampleRate,
		polyphony:  cfg.polyphony,
		pub:        pub,
		logger:     cfg.logger,
		shape:      ShapeSine,
		env:        DefaultEnvelope(),
	}
	e.poly = NewPolySynth(sampleRate, AlgorithmClassic, e.polyphony)
	e.poly.SetEnvelope(e.env)
	e.poly.SetWaveform(e.Waveform())
	return e
}

// Poly returns the live engine instance.
func (e *Engine) Poly() *PolySynth { return e.poly }

func (e *Engine) Algorithm() Algorithm { return e.poly.alg }
func (e *Engine) Envelope() Envelope   { return e.env }
func (e *Engine) Partials() [4]float64 { return e.partials }

// Waveform returns the oscillator type currently applied.
func (e *Engine) Waveform() Waveform { return NewWaveform(e.shape, e.modifier) }

// SelectAlgorithm replaces the live engine. The old one is disposed first, so
// none of its voices keep sounding. The new one takes the algorithm
// parameters it supports from algParams, the envelope env, zero partials and
// the current waveform, and is then published at the head of the chain.
// An unknown name is logged and leaves everything unchanged.
func (e *Engine) SelectAlgorithm(name string, algParams params.Set, env Envelope) error {
	alg, ok := ParseAlgorithm(name)
	if !ok {
		e.logger.Warn("unknown synth algorithm", "algorithm", name)
		return nil
	}

	if err := e.poly.Dispose(); err != nil {
		e.logger.Error("dispose synth", "algorithm", e.poly.alg, "err", err)
	}

	next := NewPolySynth(e.sampleRate, alg, e.polyphony)
	for _, pname := range []string{ParamHarmonicity, ParamModulationIndex} {
		if !alg.Supports(pname) {
			continue
		}
		if v, ok := algParams[pname]; ok {
			if err := next.Set(pname, v); err != nil {
				e.logger.Warn("synth parameter", "name", pname, "err", err)
			}
		}
	}
	e.env = env
	next.SetEnvelope(env)
	e.partials = [4]float64{}
	next.SetPartials(e.partials)
	next.SetWaveform(e.Waveform())

	e.poly = next
	e.logger.Debug("synth algorithm selected", "algorithm", alg)
	if e.pub == nil {
		return nil
	}
	return e.pub.Publish(next)
}

// SetAlgorithmParameter applies value live when the active algorithm has
// the parameter and ignores it otherwise.
func (e *Engine) SetAlgorithmParameter(name string, value float64) {
	if !e.poly.alg.Supports(name) {
		return
	}
	if err := e.poly.Set(name, value); err != nil {
		e.logger.Warn("synth parameter", "name", name, "err", err)
	}
}

// SetWaveform selects the base shape and modifier. Pulse and pwm keep no
// modifier. Unknown names are logged and ignored.
func (e *Engine) SetWaveform(shape, modifier string) {
	s, ok := ParseShape(shape)
	if !ok {
		e.logger.Warn("unknown waveform", "shape", shape)
		return
	}
	m, ok := ParseModifier(modifier)
	if !ok {
		e.logger.Warn("unknown waveform modifier", "modifier", modifier)
		return
	}
	e.shape, e.modifier = s, m
	e.poly.SetWaveform(e.Waveform())
}

// SetEnvelopeStage changes one ADSR stage on the live engine.
func (e *Engine) SetEnvelopeStage(stage string, value float64) {
	env, err := e.env.Set(stage, value)
	if err != nil {
		e.logger.Debug("envelope ignored", "err", err)
		return
	}
	e.env = env
	e.poly.SetEnvelope(env)
}

// SetPartialWeights stores harmonic weights for shapes that support them.
// Weights are clamped to [0, 1]; a non-finite weight counts as 0.
func (e *Engine) SetPartialWeights(w [4]float64) {
	for i := range w {
		if math.IsNaN(w[i]) || math.IsInf(w[i], 0) {
			e.logger.Debug("partial weight ignored", "index", i, "value", w[i])
			w[i] = 0
			continue
		}
		w[i] = min(max(w[i], 0), 1)
	}
	e.partials = w
	e.poly.SetPartials(w)
}

// TriggerOn starts a note. velocity is normalised to [0, 1].
func (e *Engine) TriggerOn(note int, velocity float64, octave int) {
	e.poly.TriggerAttack(notes.Freq(note, octave), velocity)
}

// TriggerOff releases the voices at the frequency derived from note and
// octave. A note attacked in a different octave is not released.
func (e *Engine) TriggerOff(note int, octave int) {
	e.poly.TriggerRelease(notes.Freq(note, octave))
}

// Close disposes the live engine.
func (e *Engine) Close() error {
	return e.poly.Dispose()
}
