// Package circuit implements the augmented step circuit: the user's step
// function wrapped with an in-circuit verifier of the previous fold and the
// transcript hashing that chains the IVC steps together.
package circuit

import (
	"github.com/giuliop/nova/frontend"
	"github.com/giuliop/nova/gadgets"
)

// StepCircuit is the contract for one step of the incremental computation.
// Arity must be constant across instantiations, and Synthesize must not
// allocate public inputs of its own.
type StepCircuit interface {
	// Arity is the length of the step's input and output vectors.
	Arity() int
	// Synthesize builds the constraints of one step and returns the output
	// vector z_{i+1} given z_i.
	Synthesize(cs frontend.ConstraintSystem, z []*gadgets.Num) ([]*gadgets.Num, error)
}

// TrivialCircuit returns its input unchanged.
type TrivialCircuit struct{}

func (c *TrivialCircuit) Arity() int { return 1 }

func (c *TrivialCircuit) Synthesize(cs frontend.ConstraintSystem, z []*gadgets.Num) ([]*gadgets.Num, error) {
	return z, nil
}

// ConstantCircuit outputs fixed values regardless of its input, with the
// given arity.
type ConstantCircuit struct {
	ArityValue int
	Outputs    func(cs frontend.ConstraintSystem) ([]*gadgets.Num, error)
}

func (c *ConstantCircuit) Arity() int { return c.ArityValue }

func (c *ConstantCircuit) Synthesize(cs frontend.ConstraintSystem, z []*gadgets.Num) ([]*gadgets.Num, error) {
	return c.Outputs(cs)
}
