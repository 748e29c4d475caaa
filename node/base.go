package node

import "fmt"

// Base carries the connection and disposal bookkeeping every node needs.
// Concrete nodes embed it and supply Process, Set and Family/Category.
type Base struct {
	name        string
	outputs     []Node
	destination bool
	disposed    bool
}

// NewBase returns a Base with the given display name.
func NewBase(name string) Base {
	return Base{name: name}
}

func (b *Base) Name() string { return b.name }

// Connect adds dst to the outputs. Connecting twice is a no-op.
func (b *Base) Connect(dst Node) error {
	if b.disposed {
		return fmt.Errorf("node %s: connect: %w", b.name, ErrDisposed)
	}
	if dst == nil {
		return fmt.Errorf("node %s: connect to nil node", b.name)
	}
	if dst.Disposed() {
		return fmt.Errorf("node %s: connect to %s: %w", b.name, dst.Name(), ErrDisposed)
	}
	for _, o := range b.outputs {
		if o == dst {
			return nil
		}
	}
	b.outputs = append(b.outputs, dst)
	return nil
}

// Disconnect removes every output and clears the destination mark.
func (b *Base) Disconnect() {
	b.outputs = b.outputs[:0]
	b.destination = false
}

// Outputs returns a copy of the current connection targets.
func (b *Base) Outputs() []Node {
	out := make([]Node, len(b.outputs))
	copy(out, b.outputs)
	return out
}

// ToDestination marks the node as feeding the audio output.
func (b *Base) ToDestination() {
	if b.disposed {
		return
	}
	b.destination = true
}

func (b *Base) IsDestination() bool { return b.destination }

// MarkDisposed drops all connections and flags the node as unusable.
// Embedding types call it from their Dispose after releasing their own resources.
func (b *Base) MarkDisposed() {
	b.Disconnect()
	b.disposed = true
}

func (b *Base) Disposed() bool { return b.disposed }
