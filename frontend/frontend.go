// Package frontend is a small constraint-system builder in the bellman
// style: circuits allocate variables against an abstract ConstraintSystem
// and enforce rank-1 constraints over linear combinations. The same circuit
// code drives two implementations, one collecting the shape and one solving
// the witness.
package frontend

import (
	"errors"

	"github.com/giuliop/nova/engine"
)

// ErrAssignmentMissing is returned by an allocation closure when a value it
// depends on was not supplied to the synthesis.
var ErrAssignmentMissing = errors.New("frontend: assignment missing")

// VarKind distinguishes the constant-one wire, auxiliary variables, and
// public inputs.
type VarKind uint8

const (
	KindOne VarKind = iota
	KindAux
	KindInput
)

// Variable references one wire of the constraint system.
type Variable struct {
	Kind  VarKind
	Index int
}

// Term is a coefficient-variable product inside a linear combination.
type Term struct {
	Coeff engine.Scalar
	Var   Variable
}

// LinearCombination is a sum of terms.
type LinearCombination []Term

// AddTerm appends coeff*v to the combination.
func (lc LinearCombination) AddTerm(coeff engine.Scalar, v Variable) LinearCombination {
	return append(lc, Term{Coeff: coeff.Clone(), Var: v})
}

// Assigner computes a variable's value during witness synthesis. It is
// never invoked while collecting a shape.
type Assigner func() (engine.Scalar, error)

// ConstraintSystem is the circuit-facing surface: variable allocation and
// rank-1 constraint enforcement a * b = c.
type ConstraintSystem interface {
	// NewScalar returns a fresh zero element of the system's field.
	NewScalar() engine.Scalar
	// One is the constant-one wire.
	One() Variable
	// AllocAux adds an auxiliary variable. During witness synthesis the
	// assigner runs and its value is returned; during shape collection the
	// returned value is nil.
	AllocAux(f Assigner) (Variable, engine.Scalar, error)
	// AllocInput adds a public input. Inputs are ordered by allocation.
	AllocInput(f Assigner) (Variable, engine.Scalar, error)
	// Enforce adds the constraint a * b = c.
	Enforce(a, b, c LinearCombination)
}
