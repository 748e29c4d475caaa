// Package render pulls audio through a connected node graph.
package render

import (
	"github.com/cwbudde/algo-synth/node"
)

// Renderer evaluates the graph reachable from a source in topological order
// (Kahn's algorithm). Each node receives the sum of its parents' output;
// the result is the sum of every node marked as destination. Buffers and
// the evaluation order are kept between calls; the order is recomputed
// only when the source changes or after Invalidate.
type Renderer struct {
	bufs map[node.Node][]float64
	out  []float64

	indeg   map[node.Node]int
	parents map[node.Node][]node.Node
	order   []node.Node
	queue   []node.Node

	sorted node.Node
	stale  bool
}

// New returns a Renderer with no cached order.
func New() *Renderer {
	return &Renderer{
		bufs:    make(map[node.Node][]float64),
		indeg:   make(map[node.Node]int),
		parents: make(map[node.Node][]node.Node),
		stale:   true,
	}
}

// Invalidate drops the cached evaluation order. Call it whenever
// connections change.
func (r *Renderer) Invalidate() { r.stale = true }

// Render produces frames samples. The returned slice is owned by the
// Renderer and valid until the next call.
func (r *Renderer) Render(source node.Node, frames int) []float64 {
	if cap(r.out) < frames {
		r.out = make([]float64, frames)
	}
	r.out = r.out[:frames]
	clear(r.out)
	if source == nil || source.Disposed() || frames <= 0 {
		return r.out
	}

	if r.stale || source != r.sorted {
		r.sort(source)
		r.sorted, r.stale = source, false
	}
	for _, n := range r.order {
		buf := r.buffer(n, frames)
		if n == source {
			n.Process(buf)
		} else {
			clear(buf)
			for _, p := range r.parents[n] {
				pb := r.bufs[p]
				for i := range buf {
					buf[i] += pb[i]
				}
			}
			n.Process(buf)
		}
		if n.IsDestination() {
			for i, v := range buf {
				r.out[i] += v
			}
		}
	}
	return r.out
}

// Order returns the evaluation order used by the last Render.
func (r *Renderer) Order() []node.Node {
	out := make([]node.Node, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Renderer) sort(source node.Node) {
	clear(r.indeg)
	clear(r.parents)
	r.order = r.order[:0]

	// Collect the reachable subgraph.
	r.indeg[source] = 0
	stack := []node.Node{source}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dst := range n.Outputs() {
			if dst.Disposed() {
				continue
			}
			if _, seen := r.indeg[dst]; !seen {
				r.indeg[dst] = 0
				stack = append(stack, dst)
			}
			r.indeg[dst]++
			r.parents[dst] = append(r.parents[dst], n)
		}
	}

	r.queue = append(r.queue[:0], source)
	for len(r.queue) > 0 {
		n := r.queue[0]
		r.queue = r.queue[1:]
		r.order = append(r.order, n)
		for _, dst := range n.Outputs() {
			if _, ok := r.indeg[dst]; !ok {
				continue
			}
			r.indeg[dst]--
			if r.indeg[dst] == 0 {
				r.queue = append(r.queue, dst)
			}
		}
	}

	for n := range r.bufs {
		if _, live := r.indeg[n]; !live {
			delete(r.bufs, n)
		}
	}
}

func (r *Renderer) buffer(n node.Node, frames int) []float64 {
	buf := r.bufs[n]
	if cap(buf) < frames {
		buf = make([]float64, frames)
	}
	buf = buf[:frames]
	r.bufs[n] = buf
	return buf
}
