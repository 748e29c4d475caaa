// Package params stores configuration values per effect kind and per
// synthesis scope, independently of whether anything is instantiated.
package params

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Synthesis scopes shared by every algorithm.
const (
	ScopeAlgorithm = "algorithm"
	ScopeEnvelope  = "envelope"
	ScopePartials  = "partials"
)

var (
	ErrUnknownScope = errors.New("unknown parameter scope")
	ErrInvalidValue = errors.New("invalid parameter value")
)

// Set maps parameter names to values.
type Set map[string]float64

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Get returns the named value, or def when missing or not finite.
func (s Set) Get(name string, def float64) float64 {
	v, ok := s[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// Registry holds one Set per scope.
type Registry struct {
	sets map[string]Set
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]Set)}
}

// Register seeds scope with defaults. Values already stored for the scope win,
// so registering twice never discards user changes.
func (r *Registry) Register(scope string, defaults Set) {
	cur, ok := r.sets[scope]
	if !ok {
		r.sets[scope] = defaults.Clone()
		return
	}
	for k, v := range defaults {
		if _, exists := cur[k]; !exists {
			cur[k] = v
		}
	}
}

// Has reports whether scope was registered.
func (r *Registry) Has(scope string) bool {
	_, ok := r.sets[scope]
	return ok
}

// Get returns a copy of the scope's values; unknown scopes yield an empty Set.
func (r *Registry) Get(scope string) Set {
	return r.sets[scope].Clone()
}

// Value returns one stored parameter.
func (r *Registry) Value(scope, name string) (float64, bool) {
	s, ok := r.sets[scope]
	if !ok {
		return 0, false
	}
	v, ok := s[name]
	return v, ok
}

// Update stores one value. The scope must have been registered.
func (r *Registry) Update(scope, name string, value float64) error {
	s, ok := r.sets[scope]
	if !ok {
		return fmt.Errorf("params: %w: %s", ErrUnknownScope, scope)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("params: %s.%s: %w: %v", scope, name, ErrInvalidValue, value)
	}
	s[name] = value
	return nil
}

// Scopes lists registered scopes in sorted order.
func (r *Registry) Scopes() []string {
	out := make([]string, 0, len(r.sets))
	for k := range r.sets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
