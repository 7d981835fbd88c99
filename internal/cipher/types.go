package cipher

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation is returned for names missing from the registry.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrMissingParam is returned when a required parameter is absent.
	ErrMissingParam = errors.New("missing parameter")
	// ErrInvalidParam is returned for a parameter of the wrong shape.
	ErrInvalidParam = errors.New("invalid parameter")
	// ErrNotReversible is returned when reversing a pipeline with a one-way step.
	ErrNotReversible = errors.New("not reversible")
)

// OperationType groups operations for listing.
type OperationType string

const (
	OperationTypeEncode    OperationType = "encode"
	OperationTypeDecode    OperationType = "decode"
	OperationTypeEncrypt   OperationType = "encrypt"
	OperationTypeDecrypt   OperationType = "decrypt"
	OperationTypeTransform OperationType = "transform"
	OperationTypeAnalyze   OperationType = "analyze"
)

// Operation transforms a byte slice. Implementations must be safe for
// concurrent use.
type Operation interface {
	Name() string
	Type() OperationType
	Description() string
	Execute(ctx context.Context, input []byte, params Params) ([]byte, error)
	// Reverse returns the inverse operation, if any. The inverse takes the
	// same parameters.
	Reverse() (Operation, bool)
}

// Step is one operation invocation inside a pipeline.
type Step struct {
	Name   string `json:"name" yaml:"name"`
	Params Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// Pipeline applies its steps in order.
type Pipeline struct {
	Steps []Step `json:"steps" yaml:"steps"`
}

// Execute runs every step against the default registry.
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	return p.ExecuteWith(ctx, defaultRegistry, input)
}

// ExecuteWith runs every step against reg.
func (p *Pipeline) ExecuteWith(ctx context.Context, reg *Registry, input []byte) ([]byte, error) {
	out := input
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, ok := reg.Get(step.Name)
		if !ok {
			return nil, fmt.Errorf("step %d: %w: %s", i, ErrUnknownOperation, step.Name)
		}
		var err error
		out, err = op.Execute(ctx, out, step.Params)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}
	}
	return out, nil
}

// Reversible reports whether every step has an inverse in reg.
func (p *Pipeline) Reversible(reg *Registry) bool {
	_, err := p.reverse(reg)
	return err == nil
}

// Reverse returns the pipeline that undoes p: inverse steps in reverse order
// with the same parameters.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	return p.reverse(defaultRegistry)
}

func (p *Pipeline) reverse(reg *Registry) (*Pipeline, error) {
	steps := make([]Step, len(p.Steps))
	for i, step := range p.Steps {
		op, ok := reg.Get(step.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, step.Name)
		}
		inv, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("%s: %w", step.Name, ErrNotReversible)
		}
		steps[len(p.Steps)-1-i] = Step{Name: inv.Name(), Params: step.Params}
	}
	return &Pipeline{Steps: steps}, nil
}

// DetectionResult is one guess about how input was produced.
type DetectionResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Operation  string  `json:"operation"`
}

type execFunc func(ctx context.Context, input []byte, params Params) ([]byte, error)

// operation is the registry's concrete Operation. The inverse is linked by
// the registry when both halves are registered.
type operation struct {
	name        string
	kind        OperationType
	description string
	exec        execFunc
	inverse     Operation
}

func (o *operation) Name() string        { return o.name }
func (o *operation) Type() OperationType { return o.kind }
func (o *operation) Description() string { return o.description }

func (o *operation) Reverse() (Operation, bool) {
	return o.inverse, o.inverse != nil
}

func (o *operation) Execute(ctx context.Context, input []byte, params Params) ([]byte, error) {
	return o.exec(ctx, input, params)
}
