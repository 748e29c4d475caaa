package effect

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-dsp/dsp/effectchain"
	"github.com/cwbudde/algo-synth/node"
	"github.com/cwbudde/algo-synth/params"
)

type factoryConfig struct {
	impulse []float64
	logger  *slog.Logger
}

// Option configures a Factory.
type Option func(*factoryConfig)

// WithImpulseResponse makes every reverb use ir instead of a synthesized tail.
func WithImpulseResponse(ir []float64) Option {
	return func(c *factoryConfig) { c.impulse = ir }
}

// WithLogger sets the logger of the reverb IR bank.
func WithLogger(l *slog.Logger) Option {
	return func(c *factoryConfig) { c.logger = l }
}

// Factory instantiates effect and sink nodes for one sample rate.
type Factory struct {
	ctx effectchain.Context
	reg *effectchain.Registry
}

// NewFactory returns a Factory producing nodes at sampleRate. Filter kinds
// use RBJ designs and reverb draws its IRs from the configured bank.
func NewFactory(sampleRate float64, opts ...Option) *Factory {
	cfg := factoryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	reg := effectchain.DefaultRegistry(
		effectchain.WithFilterDesigner(rbjDesigner{}),
		effectchain.WithIRProvider(newIRBank(sampleRate, cfg.impulse, cfg.logger)),
	)
	reg.MustRegister(runtimePingPong, func(_ effectchain.Context) (effectchain.Runtime, error) {
		return &pingPongRuntime{}, nil
	})
	reg.MustRegister(runtimeWah, func(_ effectchain.Context) (effectchain.Runtime, error) {
		return &wahRuntime{}, nil
	})

	return &Factory{
		ctx: effectchain.Context{SampleRate: sampleRate},
		reg: reg,
	}
}

func (f *Factory) SampleRate() float64 { return f.ctx.SampleRate }

// New builds an effect of the named kind configured from values. Missing
// values fall back to the kind's defaults.
func (f *Factory) New(name string, values params.Set) (*Node, error) {
	spec, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("effect: %w: %s", ErrUnknownKind, name)
	}
	return f.build(spec, node.CategoryEffect, values)
}

// NewSink builds the output limiter.
func (f *Factory) NewSink() (*Node, error) {
	return f.build(sinkSpec, node.CategorySink, nil)
}

func (f *Factory) build(spec Spec, cat node.Category, values params.Set) (*Node, error) {
	factory := f.reg.Lookup(spec.Runtime)
	if factory == nil {
		return nil, fmt.Errorf("effect: no runtime %q for %s", spec.Runtime, spec.Name)
	}
	rt, err := factory(f.ctx)
	if err != nil {
		return nil, fmt.Errorf("effect: create %s: %w", spec.Name, err)
	}

	merged := spec.Defaults.Clone()
	for k, v := range values {
		if _, known := merged[k]; known {
			merged[k] = v
		}
	}

	n := &Node{
		Base:     node.NewBase(spec.Name),
		spec:     spec,
		category: cat,
		ctx:      f.ctx,
		rt:       rt,
		values:   merged,
	}
	if err := n.configure(); err != nil {
		return nil, err
	}
	return n, nil
}

// Node is one live effect instance.
type Node struct {
	node.Base

	spec     Spec
	category node.Category
	ctx      effectchain.Context
	rt       effectchain.Runtime
	values   params.Set
}

func (n *Node) Category() node.Category { return n.category }
func (n *Node) Family() node.Family     { return n.spec.Family }

// Kind returns the effect kind name.
func (n *Node) Kind() string { return n.spec.Name }

// Values returns a copy of the user-facing parameter values.
func (n *Node) Values() params.Set { return n.values.Clone() }

// Set changes one parameter and reconfigures the runtime. Names the kind does
// not expose yield node.ErrUnknownParam; a rejected value leaves the node as it was.
func (n *Node) Set(name string, value float64) error {
	if n.Disposed() {
		return fmt.Errorf("effect %s: %w", n.spec.Name, node.ErrDisposed)
	}
	prev, ok := n.values[name]
	if !ok {
		return fmt.Errorf("effect %s: %w: %s", n.spec.Name, node.ErrUnknownParam, name)
	}
	n.values[name] = value
	if err := n.configure(); err != nil {
		n.values[name] = prev
		_ = n.configure()
		return err
	}
	return nil
}

// Process runs the wrapped runtime in place. A disposed node leaves block
// unchanged.
func (n *Node) Process(block []float64) {
	if n.rt == nil {
		return
	}
	n.rt.Process(block)
}

// Dispose releases the runtime. Disposing twice is a no-op.
func (n *Node) Dispose() error {
	if n.Disposed() {
		return nil
	}
	n.rt = nil
	n.MarkDisposed()
	return nil
}

func (n *Node) configure() error {
	p := effectchain.Params{
		ID:   n.spec.Name,
		Type: n.spec.Runtime,
		Num:  n.spec.translate(n.values),
		Str:  n.spec.str,
	}
	if err := n.rt.Configure(n.ctx, p); err != nil {
		return fmt.Errorf("effect: configure %s: %w", n.spec.Name, err)
	}
	return nil
}
