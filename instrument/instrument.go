// Package instrument is the application root. An Instrument owns one
// synthesis engine, its effect rack, the signal chain and the renderer, and
// serialises every mutation against the audio pull with a single mutex.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/cwbudde/algo-synth/config"
	"github.com/cwbudde/algo-synth/effect"
	"github.com/cwbudde/algo-synth/irsynth"
	"github.com/cwbudde/algo-synth/node"
	"github.com/cwbudde/algo-synth/notes"
	"github.com/cwbudde/algo-synth/params"
	"github.com/cwbudde/algo-synth/rack"
	"github.com/cwbudde/algo-synth/render"
	"github.com/cwbudde/algo-synth/router"
	"github.com/cwbudde/algo-synth/synth"
)

// ErrClosed is returned by operations on a closed Instrument.
var ErrClosed = errors.New("instrument closed")

type options struct {
	logger  *slog.Logger
	impulse []float64
}

// Option configures an Instrument.
type Option func(*options)

// WithLogger routes every component's log output to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithImpulseResponse sets the reverb impulse response directly, overriding
// any path in the configuration.
func WithImpulseResponse(ir []float64) Option {
	return func(o *options) { o.impulse = ir }
}

// Instrument is one independent synthesizer graph.
type Instrument struct {
	mu     sync.Mutex
	logger *slog.Logger
	closed bool

	sampleRate float64
	params     *params.Registry
	factory    *effect.Factory
	sink       *effect.Node
	chain      *router.Chain
	engine     *synth.Engine
	rack       *rack.Rack
	notes      *notes.Dispatcher
	keys       *notes.Keyboard
	renderer   *render.Renderer
	renderGen  uint64
}

// New builds an instrument from cfg (nil means config.Default), enables the
// configured effects and routes the chain.
func New(cfg *config.Config, opts ...Option) (*Instrument, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	sr := float64(cfg.SampleRate)

	if o.impulse == nil && cfg.ReverbIRPath != "" {
		ir, err := irsynth.LoadWAV(cfg.ReverbIRPath, sr)
		if err != nil {
			return nil, fmt.Errorf("instrument: load reverb IR: %w", err)
		}
		o.impulse = ir
	}
	fopts := []effect.Option{effect.WithLogger(o.logger)}
	if o.impulse != nil {
		fopts = append(fopts, effect.WithImpulseResponse(o.impulse))
	}
	factory := effect.NewFactory(sr, fopts...)
	sink, err := factory.NewSink()
	if err != nil {
		return nil, fmt.Errorf("instrument: %w", err)
	}

	inst := &Instrument{
		logger:     o.logger,
		sampleRate: sr,
		params:     newParams(cfg),
		factory:    factory,
		sink:       sink,
		chain:      router.New(nil, sink),
		renderer:   render.New(),
	}
	inst.engine = synth.NewEngine(sr, chainPublisher{inst.chain},
		synth.WithPolyphony(cfg.Polyphony),
		synth.WithLogger(o.logger),
	)
	inst.rack = rack.New(inst.build, inst.params, inst.chain, o.logger)
	inst.notes = notes.NewDispatcher(inst.engine)
	inst.keys = notes.NewKeyboard(inst.notes)

	inst.engine.SetWaveform(cfg.Waveform, cfg.Modifier)
	if err := inst.selectAlgorithm(cfg.Algorithm); err != nil {
		return nil, err
	}
	if inst.chain.Source() == nil {
		inst.chain.SetSource(inst.engine.Poly())
		if err := inst.chain.Route(); err != nil {
			return nil, fmt.Errorf("instrument: %w", err)
		}
	}
	if cfg.Partials != [4]float64{} {
		inst.setPartialWeights(cfg.Partials)
	}
	for _, kind := range cfg.Effects {
		if err := inst.rack.Enable(kind); err != nil {
			return nil, fmt.Errorf("instrument: %w", err)
		}
	}
	return inst, nil
}

func newParams(cfg *config.Config) *params.Registry {
	reg := params.NewRegistry()
	for _, kind := range effect.Kinds() {
		defaults, _ := effect.DefaultParams(kind)
		reg.Register(kind, defaults)
		for name, v := range cfg.EffectParams[kind] {
			_ = reg.Update(kind, name, v)
		}
	}
	reg.Register(params.ScopeAlgorithm, params.Set{
		synth.ParamHarmonicity:     cfg.Harmonicity,
		synth.ParamModulationIndex: cfg.ModulationIndex,
	})
	reg.Register(params.ScopeEnvelope, cfg.Envelope.ParamSet())
	reg.Register(params.ScopePartials, partialSet([4]float64{}))
	return reg
}

func partialSet(w [4]float64) params.Set {
	s := make(params.Set, len(w))
	for i, v := range w {
		s[partialName(i)] = v
	}
	return s
}

func partialName(i int) string { return "partial" + strconv.Itoa(i+1) }

// build is the rack's constructor for effect kinds.
func (inst *Instrument) build(kind string, values params.Set) (node.Node, error) {
	n, err := inst.factory.New(kind, values)
	if errors.Is(err, effect.ErrUnknownKind) {
		return nil, fmt.Errorf("%w: %s", rack.ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// chainPublisher puts a freshly built engine at the head of the chain.
// It runs inside a locked Instrument operation.
type chainPublisher struct {
	chain *router.Chain
}

func (p chainPublisher) Publish(src node.Node) error {
	p.chain.SetSource(src)
	return p.chain.Route()
}

func (inst *Instrument) SampleRate() float64 { return inst.sampleRate }

// SelectAlgorithm switches the synthesis algorithm, taking the stored
// algorithm parameters and envelope. Unknown names are logged and ignored.
func (inst *Instrument) SelectAlgorithm(name string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return ErrClosed
	}
	return inst.selectAlgorithm(name)
}

func (inst *Instrument) selectAlgorithm(name string) error {
	env := synth.EnvelopeFromSet(inst.params.Get(params.ScopeEnvelope))
	if err := inst.engine.SelectAlgorithm(name, inst.params.Get(params.ScopeAlgorithm), env); err != nil {
		return fmt.Errorf("instrument: select %s: %w", name, err)
	}
	for k, v := range partialSet(inst.engine.Partials()) {
		_ = inst.params.Update(params.ScopePartials, k, v)
	}
	inst.logTopology()
	return nil
}

// SetAlgorithmParameter stores harmonicity or modulationIndex and applies it
// when the active algorithm uses it. Other names are ignored.
func (inst *Instrument) SetAlgorithmParameter(name string, value float64) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return
	}
	if name != synth.ParamHarmonicity && name != synth.ParamModulationIndex {
		return
	}
	if err := inst.params.Update(params.ScopeAlgorithm, name, value); err != nil {
		inst.logger.Debug("algorithm parameter ignored", "name", name, "err", err)
		return
	}
	inst.engine.SetAlgorithmParameter(name, value)
}

// SetWaveform sets the oscillator shape and modifier of the live engine.
func (inst *Instrument) SetWaveform(shape, modifier string) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return
	}
	inst.engine.SetWaveform(shape, modifier)
}

// SetEnvelopeStage updates one ADSR stage and records it in the envelope scope.
func (inst *Instrument) SetEnvelopeStage(stage string, value float64) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return
	}
	inst.engine.SetEnvelopeStage(stage, value)
	for k, v := range inst.engine.Envelope().ParamSet() {
		_ = inst.params.Update(params.ScopeEnvelope, k, v)
	}
}

// SetPartialWeights sets the four harmonic weights. The registry stores
// the sanitized values the engine actually uses.
func (inst *Instrument) SetPartialWeights(w [4]float64) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return
	}
	inst.setPartialWeights(w)
}

func (inst *Instrument) setPartialWeights(w [4]float64) {
	inst.engine.SetPartialWeights(w)
	for k, v := range partialSet(inst.engine.Partials()) {
		_ = inst.params.Update(params.ScopePartials, k, v)
	}
}

// EnableEffect adds kind before the limiter. Enabling twice or an unknown
// kind only logs.
func (inst *Instrument) EnableEffect(kind string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return ErrClosed
	}
	err := inst.rack.Enable(kind)
	inst.logTopology()
	return err
}

// DisableEffect removes and disposes kind. Disabling an absent kind only logs.
func (inst *Instrument) DisableEffect(kind string) error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return ErrClosed
	}
	err := inst.rack.Disable(kind)
	inst.logTopology()
	return err
}

// UpdateEffectParameter stores value for kind and applies it to the live
// node when kind is enabled.
func (inst *Instrument) UpdateEffectParameter(kind, name string, value float64) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return
	}
	inst.rack.UpdateParameter(kind, name, value)
}

// Effects lists the enabled kinds in activation order.
func (inst *Instrument) Effects() []string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.rack.Kinds()
}

// Params returns a copy of the stored values of scope.
func (inst *Instrument) Params(scope string) params.Set {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.params.Get(scope)
}

func (inst *Instrument) Algorithm() synth.Algorithm {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.engine.Algorithm()
}

func (inst *Instrument) Waveform() string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.engine.Waveform().String()
}

// NoteDown starts note with a MIDI velocity; velocity 0 releases it.
func (inst *Instrument) NoteDown(note, velocity, octave int) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return
	}
	inst.notes.OnNoteDown(note, velocity, octave)
}

// NoteUp releases note at the given octave offset.
func (inst *Instrument) NoteUp(note, octave int) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return
	}
	inst.notes.OnNoteUp(note, octave)
}

// HandleMIDI dispatches a raw three-byte message and reports whether it was
// a note event.
func (inst *Instrument) HandleMIDI(status, data1, data2 byte) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return false
	}
	return inst.notes.HandleMIDI(status, data1, data2)
}

// KeyDown plays the note mapped to a computer key. Repeats while held are
// suppressed.
func (inst *Instrument) KeyDown(key rune) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return false
	}
	return inst.keys.KeyDown(key)
}

// KeyUp releases a computer key and reports whether it was held.
func (inst *Instrument) KeyUp(key rune) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return false
	}
	return inst.keys.KeyUp(key)
}

// HeldKeys lists the computer keys currently down.
func (inst *Instrument) HeldKeys() []rune {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.keys.Held()
}

// OctaveUp shifts the keyboard up and returns the new octave offset.
func (inst *Instrument) OctaveUp() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.keys.OctaveUp()
	return inst.keys.Octave()
}

// OctaveDown shifts the keyboard down and returns the new octave offset.
func (inst *Instrument) OctaveDown() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.keys.OctaveDown()
	return inst.keys.Octave()
}

func (inst *Instrument) Octave() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.keys.Octave()
}

// Render fills dst with the next mono block. A closed instrument renders
// silence.
func (inst *Instrument) Render(dst []float64) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		clear(dst)
		return
	}
	if g := inst.chain.Generation(); g != inst.renderGen {
		inst.renderer.Invalidate()
		inst.renderGen = g
	}
	copy(dst, inst.renderer.Render(inst.chain.Source(), len(dst)))
}

// Chain returns the node names in chain order.
func (inst *Instrument) Chain() []string {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	nodes := inst.chain.Nodes()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name()
	}
	return out
}

// Topology snapshots the current connections.
func (inst *Instrument) Topology() []router.Edge {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.chain.Edges()
}

func (inst *Instrument) logTopology() {
	if !inst.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	inst.logger.Debug("chain routed", "edges", fmt.Sprint(inst.chain.Edges()))
}

// Close disposes the engine, every effect and the limiter.
func (inst *Instrument) Close() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.closed {
		return nil
	}
	inst.closed = true
	errs := []error{inst.rack.Close(), inst.engine.Close(), inst.sink.Dispose()}
	return errors.Join(errs...)
}
