package cipher

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps operation names to operations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// definition describes a built-in operation; inverse names its counterpart.
type definition struct {
	name        string
	kind        OperationType
	description string
	inverse     string
	exec        execFunc
}

var defaultRegistry = NewBuiltinRegistry()

// NewBuiltinRegistry returns a registry holding every built-in operation.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	defs := make([]definition, 0, len(codecDefinitions)+len(cipherDefinitions)+len(analysisDefinitions))
	defs = append(defs, codecDefinitions...)
	defs = append(defs, cipherDefinitions...)
	defs = append(defs, analysisDefinitions...)
	if err := r.registerDefinitions(defs); err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) registerDefinitions(defs []definition) error {
	built := make(map[string]*operation, len(defs))
	for _, d := range defs {
		built[d.name] = &operation{
			name:        d.name,
			kind:        d.kind,
			description: d.description,
			exec:        d.exec,
		}
	}
	for _, d := range defs {
		if d.inverse == "" {
			continue
		}
		inv, ok := built[d.inverse]
		if !ok {
			return fmt.Errorf("operation %s: inverse %s is not defined", d.name, d.inverse)
		}
		built[d.name].inverse = inv
	}
	for _, d := range defs {
		if err := r.Register(built[d.name]); err != nil {
			return err
		}
	}
	return nil
}

// Register adds op. Names must be unique.
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return fmt.Errorf("cannot register nil operation")
	}
	name := op.Name()
	if name == "" {
		return fmt.Errorf("operation name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %s is already registered", name)
	}
	r.ops[name] = op
	return nil
}

// Get looks an operation up by name.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[name]
	return op, ok
}

// List returns every operation sorted by name.
func (r *Registry) List() []Operation {
	return r.filter(func(Operation) bool { return true })
}

// ListByType returns the operations of one type sorted by name.
func (r *Registry) ListByType(kind OperationType) []Operation {
	return r.filter(func(op Operation) bool { return op.Type() == kind })
}

func (r *Registry) filter(keep func(Operation) bool) []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		if keep(op) {
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Name() < ops[j].Name()
	})
	return ops
}

// Unregister removes an operation.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.ops, name)
}

// Default returns the process-wide registry used by the package functions.
func Default() *Registry {
	return defaultRegistry
}

// RegisterOperation adds op to the default registry.
func RegisterOperation(op Operation) error {
	return defaultRegistry.Register(op)
}

// GetOperation looks name up in the default registry.
func GetOperation(name string) (Operation, bool) {
	return defaultRegistry.Get(name)
}

// ListOperations lists the default registry.
func ListOperations() []Operation {
	return defaultRegistry.List()
}

// ListOperationsByType lists one type from the default registry.
func ListOperationsByType(kind OperationType) []Operation {
	return defaultRegistry.ListByType(kind)
}

// Execute runs a single operation from the default registry.
func Execute(ctx context.Context, name string, input []byte, params Params) ([]byte, error) {
	op, ok := defaultRegistry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return op.Execute(ctx, input, params)
}
