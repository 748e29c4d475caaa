// Package router keeps the ordered signal chain and derives its connections.
//
// The chain always reads source, effects in activation order, sink. Every
// derivation rebuilds all connections from scratch: each node feeds its
// successor, and a node whose successor belongs to the delay family also
// feeds the first later node outside that family, so a run of delays is
// heard both wet and dry.
package router

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-synth/node"
)

// Chain is the ordered sequence source, effects..., sink.
type Chain struct {
	source  node.Node
	effects []node.Node
	sink    node.Node
	gen     uint64
}

// New returns a chain holding only source and sink. It is not routed
// until Route is called.
func New(source, sink node.Node) *Chain {
	return &Chain{source: source, sink: sink}
}

// SetSource replaces position 0. The caller owns disposal of the old source.
func (c *Chain) SetSource(n node.Node) node.Node {
	old := c.source
	c.source = n
	return old
}

func (c *Chain) Source() node.Node { return c.source }
func (c *Chain) Sink() node.Node   { return c.sink }

// Insert appends n immediately before the sink.
func (c *Chain) Insert(n node.Node) {
	c.effects = append(c.effects, n)
}

// Remove drops n from the effects and reports whether it was present.
func (c *Chain) Remove(n node.Node) bool {
	for i, e := range c.effects {
		if e == n {
			c.effects = append(c.effects[:i], c.effects[i+1:]...)
			return true
		}
	}
	return false
}

// Nodes returns the full chain in order. A nil source is skipped.
func (c *Chain) Nodes() []node.Node {
	out := make([]node.Node, 0, len(c.effects)+2)
	if c.source != nil {
		out = append(out, c.source)
	}
	out = append(out, c.effects...)
	if c.sink != nil {
		out = append(out, c.sink)
	}
	return out
}

// Index returns the chain position of n, or -1.
func (c *Chain) Index(n node.Node) int {
	for i, x := range c.Nodes() {
		if x == n {
			return i
		}
	}
	return -1
}

// Len counts source, effects and sink.
func (c *Chain) Len() int { return len(c.Nodes()) }

// Route re-derives every connection of the chain and marks the sink as the
// output. Connection failures are collected; the remaining links are still made.
func (c *Chain) Route() error {
	nodes := c.Nodes()
	var errs []error
	for i := 0; i < len(nodes)-1; i++ {
		from := nodes[i]
		from.Disconnect()
		if err := from.Connect(nodes[i+1]); err != nil {
			errs = append(errs, fmt.Errorf("router: %s -> %s: %w", from.Name(), nodes[i+1].Name(), err))
		}
		if !nodes[i+1].Family().IsDelay() {
			continue
		}
		y := BypassTarget(nodes, i)
		if err := from.Connect(nodes[y]); err != nil {
			errs = append(errs, fmt.Errorf("router: bypass %s -> %s: %w", from.Name(), nodes[y].Name(), err))
		}
	}
	if len(nodes) > 0 {
		nodes[len(nodes)-1].ToDestination()
	}
	c.gen++
	return errors.Join(errs...)
}

// Generation counts completed derivations. A renderer compares it to know
// when its cached evaluation order went stale.
func (c *Chain) Generation() uint64 { return c.gen }

// BypassTarget returns the first index at or after i+2 whose node is not in the
// delay family. The scan stops at the last index, which holds the sink.
func BypassTarget(nodes []node.Node, i int) int {
	last := len(nodes) - 1
	for y := i + 2; y < last; y++ {
		if !nodes[y].Family().IsDelay() {
			return y
		}
	}
	return last
}

// Run is a maximal stretch [Start, End] of consecutive delay-family nodes.
type Run struct {
	Start, End int
}

// DelayRuns lists the maximal delay-family runs of nodes.
func DelayRuns(nodes []node.Node) []Run {
	var runs []Run
	start := -1
	for i, n := range nodes {
		if n.Family().IsDelay() {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, Run{Start: start, End: i - 1})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{Start: start, End: len(nodes) - 1})
	}
	return runs
}

// Edge is one directed connection by node name.
type Edge struct {
	From, To string
}

// Edges snapshots the current connections in chain order.
func (c *Chain) Edges() []Edge {
	var out []Edge
	for _, n := range c.Nodes() {
		for _, dst := range n.Outputs() {
			out = append(out, Edge{From: n.Name(), To: dst.Name()})
		}
	}
	return out
}
