package model

import (
	"fmt"
	"slices"
)

// Factory builds an estimator for a fitted feature environment.
type Factory func(env Env) (Estimator, error)

// Spec registers one architecture. Params holds its typed hyperparameters and
// is hashed into the model's fingerprint; nothing outside the architecture
// interprets it.
type Spec struct {
	Architecture Architecture
	Params       any
	New          Factory
}

// Registry resolves architectures to estimator factories.
type Registry struct {
	specs map[Architecture]Spec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[Architecture]Spec)}
}

// Register adds or replaces an architecture.
func (r *Registry) Register(spec Spec) {
	r.specs[spec.Architecture] = spec
}

// Lookup returns the spec for arch.
func (r *Registry) Lookup(arch Architecture) (Spec, error) {
	spec, ok := r.specs[arch]
	if !ok {
		return Spec{}, fmt.Errorf("architecture %q is not registered", arch)
	}
	return spec, nil
}

// Architectures returns registered architectures in canonical order.
func (r *Registry) Architectures() []Architecture {
	var out []Architecture
	for _, a := range Architectures() {
		if _, ok := r.specs[a]; ok {
			out = append(out, a)
		}
	}
	for a := range r.specs {
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}
