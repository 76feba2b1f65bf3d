// Package registry holds the named operations a dispatcher can invoke.
//
// A Registry is populated once at startup and only read afterwards, so it
// needs no locking once construction is complete.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"termux-mcp/internal/schema"
)

var (
	ErrDuplicateOperation = errors.New("operation already registered")
	ErrInvalidDescriptor  = errors.New("invalid operation descriptor")

	// ErrInvalidArgument is wrapped by executors when the caller supplied a
	// missing or malformed argument.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Descriptor is the static metadata of an operation.
type Descriptor struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema *schema.Node `json:"inputSchema"`
}

// Executor performs an operation.
type Executor interface {
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, args map[string]any) (any, error)

func (f ExecutorFunc) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return f(ctx, args)
}

type entry struct {
	descriptor Descriptor
	executor   Executor
	validator  *schema.Validator
}

// Registry maps operation names to descriptors and executors, preserving
// registration order.
type Registry struct {
	entries *orderedmap.OrderedMap[string, *entry]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: orderedmap.New[string, *entry]()}
}

// Register adds an operation. Names must be unique.
func (r *Registry) Register(d Descriptor, ex Executor) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if ex == nil {
		return fmt.Errorf("%w: %s has no executor", ErrInvalidDescriptor, name)
	}
	if d.InputSchema == nil {
		d.InputSchema = schema.Object()
	}
	if _, ok := r.entries.Get(name); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, name)
	}
	v, err := schema.Compile(name, d.InputSchema)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	d.Name = name
	r.entries.Set(name, &entry{descriptor: d, executor: ex, validator: v})
	return nil
}

// MustRegister is Register that panics on error. Only for static setup.
func (r *Registry) MustRegister(d Descriptor, ex Executor) {
	if err := r.Register(d, ex); err != nil {
		panic(err)
	}
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (Descriptor, bool) {
	e, ok := r.entries.Get(name)
	if !ok {
		return Descriptor{}, false
	}
	return e.descriptor, true
}

// Executor returns the executor for name.
func (r *Registry) Executor(name string) (Executor, bool) {
	e, ok := r.entries.Get(name)
	if !ok {
		return nil, false
	}
	return e.executor, true
}

// Validator returns the compiled argument validator for name.
func (r *Registry) Validator(name string) (*schema.Validator, bool) {
	e, ok := r.entries.Get(name)
	if !ok {
		return nil, false
	}
	return e.validator, true
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.descriptor)
	}
	return out
}

// Names returns all operation names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func (r *Registry) Len() int { return r.entries.Len() }
