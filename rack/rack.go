// Package rack owns the live effect instances, at most one per kind, and
// keeps the chain in step with them.
package rack

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-synth/node"
	"github.com/cwbudde/algo-synth/params"
	"github.com/cwbudde/algo-synth/router"
)

// ErrUnknownKind is what a BuildFunc returns for a kind it cannot build.
var ErrUnknownKind = errors.New("unknown effect kind")

// BuildFunc instantiates an effect of kind from its stored values.
type BuildFunc func(kind string, values params.Set) (node.Node, error)

type entry struct {
	kind string
	n    node.Node
}

// Rack maps effect kinds to their live node.
type Rack struct {
	build   BuildFunc
	params  *params.Registry
	chain   *router.Chain
	logger  *slog.Logger
	entries []entry
}

// New returns an empty rack that creates nodes with build, reads their
// parameters from reg and inserts them into chain. A nil logger uses
// slog.Default.
func New(build BuildFunc, reg *params.Registry, chain *router.Chain, logger *slog.Logger) *Rack {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rack{build: build, params: reg, chain: chain, logger: logger}
}

// Enable instantiates kind from its stored parameters, places it just before
// the sink and re-routes. Enabling an enabled kind or an unknown kind only logs.
func (r *Rack) Enable(kind string) error {
	if r.index(kind) >= 0 {
		r.logger.Warn("effect already enabled", "kind", kind)
		return nil
	}
	n, err := r.build(kind, r.params.Get(kind))
	if errors.Is(err, ErrUnknownKind) {
		r.logger.Warn("unknown effect kind", "kind", kind)
		return nil
	}
	if err != nil {
		return fmt.Errorf("rack: enable %s: %w", kind, err)
	}

	r.entries = append(r.entries, entry{kind: kind, n: n})
	r.chain.Insert(n)
	r.logger.Debug("effect enabled", "kind", kind)
	return r.chain.Route()
}

// Disable removes kind from the chain, disposes it and re-routes. Disabling a
// kind that is not enabled only logs.
func (r *Rack) Disable(kind string) error {
	i := r.index(kind)
	if i < 0 {
		r.logger.Warn("effect not enabled", "kind", kind)
		return nil
	}
	n := r.entries[i].n
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	r.chain.Remove(n)
	if err := n.Dispose(); err != nil {
		r.logger.Error("dispose effect", "kind", kind, "err", err)
	}
	r.logger.Debug("effect disabled", "kind", kind)
	return r.chain.Route()
}

// UpdateParameter stores the value and, when kind is enabled, applies it to
// the live node. Parameters the node does not expose are ignored.
func (r *Rack) UpdateParameter(kind, name string, value float64) {
	if err := r.params.Update(kind, name, value); err != nil {
		r.logger.Warn("effect parameter", "kind", kind, "name", name, "err", err)
		return
	}
	i := r.index(kind)
	if i < 0 {
		return
	}
	err := r.entries[i].n.Set(name, value)
	if err != nil && !errors.Is(err, node.ErrUnknownParam) {
		r.logger.Warn("effect parameter", "kind", kind, "name", name, "err", err)
	}
}

// Enabled reports whether kind is currently in the chain.
func (r *Rack) Enabled(kind string) bool { return r.index(kind) >= 0 }

// Node returns the live instance of kind.
func (r *Rack) Node(kind string) (node.Node, bool) {
	if i := r.index(kind); i >= 0 {
		return r.entries[i].n, true
	}
	return nil, false
}

// Kinds lists the enabled kinds in activation order.
func (r *Rack) Kinds() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.kind
	}
	return out
}

// Close disables every effect.
func (r *Rack) Close() error {
	var errs []error
	for _, e := range r.entries {
		r.chain.Remove(e.n)
		if err := e.n.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("rack: dispose %s: %w", e.kind, err))
		}
	}
	r.entries = nil
	return errors.Join(errs...)
}

func (r *Rack) index(kind string) int {
	for i, e := range r.entries {
		if e.kind == kind {
			return i
		}
	}
	return -1
}
