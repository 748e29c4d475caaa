// Package node defines the uniform processing-node abstraction shared by
// sources, effects and the final sink of the signal chain.
package node

import (
	"errors"
	"fmt"
)

var (
	// ErrDisposed is returned when a disposed node is connected or configured.
	ErrDisposed = errors.New("node disposed")
	// ErrUnknownParam is returned by Set for a property the node does not expose.
	ErrUnknownParam = errors.New("unknown parameter")
)

// Category classifies what a node does in the chain.
type Category int

const (
	CategorySource Category = iota
	CategoryEffect
	CategorySink
)

func (c Category) String() string {
	switch c {
	case CategorySource:
		return "source"
	case CategoryEffect:
		return "effect"
	case CategorySink:
		return "sink"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Family groups effect nodes by DSP behaviour. Only FamilyDelay changes routing.
type Family int

const (
	FamilyNone Family = iota
	FamilyFilter
	FamilyDelay
	FamilyReverb
	FamilyDistortion
	FamilyModulation
	FamilySpatial
	FamilyBitReduction
	FamilyDynamics
)

var familyNames = [...]string{
	FamilyNone:         "none",
	FamilyFilter:       "filter",
	FamilyDelay:        "delay",
	FamilyReverb:       "reverb",
	FamilyDistortion:   "distortion",
	FamilyModulation:   "modulation",
	FamilySpatial:      "spatial",
	FamilyBitReduction: "bit-reduction",
	FamilyDynamics:     "dynamics",
}

func (f Family) String() string {
	if f < 0 || int(f) >= len(familyNames) {
		return fmt.Sprintf("family(%d)", int(f))
	}
	return familyNames[f]
}

// IsDelay reports whether nodes of this family are bypassed in parallel by the router.
func (f Family) IsDelay() bool {
	return f == FamilyDelay
}

// Node is one unit of audio work.
type Node interface {
	Name() string
	Category() Category
	Family() Family

	// Connect adds dst to the outputs of the node.
	Connect(dst Node) error
	// Disconnect removes every outgoing connection.
	Disconnect()
	Outputs() []Node

	// ToDestination marks the node as feeding the output device.
	ToDestination()
	IsDestination() bool

	// Set applies a named property to the live node.
	Set(name string, value float64) error

	// Process renders one block in place. Sources overwrite the block,
	// effects and sinks transform the summed input.
	Process(block []float64)

	Dispose() error
	Disposed() bool
}
