// Package registry maps string target keys to constructor closures.
//
// Pipeline configs describe component graphs as target/params nodes
// (datasets, samplers, feature extractors). The registry resolves those
// nodes into constructed objects without any reflection-based import
// resolution: every buildable target is registered explicitly at startup,
// and an unknown key fails with a typed not-found error.
package registry

import (
	"fmt"
	"sync"

	"github.com/wholecell/pipekit/errors"
	"github.com/wholecell/pipekit/util"
)

// Builder constructs a component from its params mapping.
type Builder func(params map[string]any) (any, error)

// Target is a config node naming a registered builder plus its parameters.
type Target struct {
	Target string         `yaml:"target" mapstructure:"target"`
	Params map[string]any `yaml:"params" mapstructure:"params"`
}

// Registry holds the target key to builder mapping.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under the given key.
// Registering the same key twice is an error.
func (r *Registry) Register(key string, builder Builder) error {
	if key == "" {
		return errors.InvalidInput("registry: target key must not be empty")
	}
	if builder == nil {
		return errors.InvalidInput(fmt.Sprintf("registry: builder for %q must not be nil", key))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[key]; exists {
		return errors.InvalidInput(fmt.Sprintf("registry: target %q already registered", key))
	}
	r.builders[key] = builder
	return nil
}

// MustRegister adds a builder and panics on error. Use during startup wiring.
func (r *Registry) MustRegister(key string, builder Builder) {
	if err := r.Register(key, builder); err != nil {
		panic(err)
	}
}

// Build resolves the target key and invokes its builder with the params.
func (r *Registry) Build(t Target) (any, error) {
	if t.Target == "" {
		return nil, errors.InvalidInput("registry: config node has no target key")
	}

	r.mu.RLock()
	builder, ok := r.builders[t.Target]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.TargetNotFound(t.Target)
	}

	obj, err := builder(t.Params)
	if err != nil {
		return nil, fmt.Errorf("registry: building %q: %w", t.Target, err)
	}
	return obj, nil
}

// Keys returns the registered target keys in ascending order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return util.SortedKeys(r.builders)
}

// BuildAs resolves a target with type safety, returns an error on failure.
func BuildAs[T any](r *Registry, t Target) (T, error) {
	var zero T
	obj, err := r.Build(t)
	if err != nil {
		return zero, err
	}
	result, ok := obj.(T)
	if !ok {
		return zero, errors.InvalidInput(fmt.Sprintf("registry: target %q built %T, expected %T", t.Target, obj, zero))
	}
	return result, nil
}

// MustBuildAs resolves a target with type safety, panics on error.
func MustBuildAs[T any](r *Registry, t Target) T {
	result, err := BuildAs[T](r, t)
	if err != nil {
		panic(fmt.Sprintf("registry: failed to build %s: %v", t.Target, err))
	}
	return result
}
