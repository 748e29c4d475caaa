package node

import (
	"errors"
	"testing"
)

type testNode struct {
	Base
	family Family
}

func newTestNode(name string, family Family) *testNode {
	return &testNode{Base: NewBase(name), family: family}
}

func (n *testNode) Category() Category { return CategoryEffect }
func (n *testNode) Family() Family     { return n.family }

func (n *testNode) Set(name string, _ float64) error {
	return ErrUnknownParam
}

func (n *testNode) Process(_ []float64) {}

func (n *testNode) Dispose() error {
	n.MarkDisposed()
	return nil
}

func TestConnectIsIdempotent(t *testing.T) {
	a := newTestNode("a", FamilyNone)
	b := newTestNode("b", FamilyNone)

	if err := a.Connect(b); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := a.Connect(b); err != nil {
		t.Fatalf("second connect: %v", err)
	}
	if got := len(a.Outputs()); got != 1 {
		t.Fatalf("expected 1 output, got %d", got)
	}
}

func TestDisconnectClearsOutputsAndDestination(t *testing.T) {
	a := newTestNode("a", FamilyNone)
	b := newTestNode("b", FamilyNone)
	_ = a.Connect(b)
	a.ToDestination()

	a.Disconnect()
	if len(a.Outputs()) != 0 {
		t.Fatalf("expected no outputs after disconnect")
	}
	if a.IsDestination() {
		t.Fatalf("expected destination flag cleared")
	}
}

func TestOutputsReturnsCopy(t *testing.T) {
	a := newTestNode("a", FamilyNone)
	b := newTestNode("b", FamilyNone)
	_ = a.Connect(b)

	outs := a.Outputs()
	outs[0] = nil
	if a.Outputs()[0] != b {
		t.Fatalf("mutating Outputs result must not affect the node")
	}
}

func TestDisposedNodeRejectsConnections(t *testing.T) {
	a := newTestNode("a", FamilyNone)
	b := newTestNode("b", FamilyNone)
	c := newTestNode("c", FamilyNone)
	_ = a.Connect(b)

	if err := b.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if !b.Disposed() {
		t.Fatalf("expected disposed flag")
	}
	if err := b.Connect(c); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed from disposed source, got %v", err)
	}
	if err := c.Connect(b); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed for disposed target, got %v", err)
	}
}

func TestFamilyIsDelay(t *testing.T) {
	for f := FamilyNone; f <= FamilyDynamics; f++ {
		if got, want := f.IsDelay(), f == FamilyDelay; got != want {
			t.Fatalf("%s.IsDelay() = %v, want %v", f, got, want)
		}
	}
	if Family(99).String() != "family(99)" {
		t.Fatalf("unexpected string for out-of-range family: %s", Family(99))
	}
}
