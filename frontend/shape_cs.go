package frontend

import (
	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/r1cs"
)

type constraint struct {
	a, b, c LinearCombination
}

// ShapeCS collects the constraint matrices of a circuit without computing
// any values; synthesizing a circuit against it yields the R1CS shape.
type ShapeCS struct {
	e           engine.Engine
	numAux      int
	numInputs   int
	constraints []constraint
}

// NewShapeCS returns an empty shape collector over the engine's scalar
// field.
func NewShapeCS(e engine.Engine) *ShapeCS {
	return &ShapeCS{e: e}
}

func (cs *ShapeCS) NewScalar() engine.Scalar { return cs.e.NewScalar() }

func (cs *ShapeCS) One() Variable { return Variable{Kind: KindOne} }

func (cs *ShapeCS) AllocAux(f Assigner) (Variable, engine.Scalar, error) {
	v := Variable{Kind: KindAux, Index: cs.numAux}
	cs.numAux++
	return v, nil, nil
}

func (cs *ShapeCS) AllocInput(f Assigner) (Variable, engine.Scalar, error) {
	v := Variable{Kind: KindInput, Index: cs.numInputs}
	cs.numInputs++
	return v, nil, nil
}

func (cs *ShapeCS) Enforce(a, b, c LinearCombination) {
	cs.constraints = append(cs.constraints, constraint{a: a, b: b, c: c})
}

// NumConstraints returns the number of collected constraints.
func (cs *ShapeCS) NumConstraints() int { return len(cs.constraints) }

// NumAux returns the number of auxiliary variables.
func (cs *ShapeCS) NumAux() int { return cs.numAux }

// NumInputs returns the number of public inputs.
func (cs *ShapeCS) NumInputs() int { return cs.numInputs }

// column maps a variable to its column in z = (W || u || X).
func column(v Variable, numVars int) int {
	switch v.Kind {
	case KindAux:
		return v.Index
	case KindOne:
		return numVars
	default:
		return numVars + 1 + v.Index
	}
}

// Shape freezes the collected constraints into an R1CS shape.
func (cs *ShapeCS) Shape() (*r1cs.R1CSShape, error) {
	var a, b, c []r1cs.Entry
	for row, con := range cs.constraints {
		for _, t := range con.a {
			a = append(a, r1cs.Entry{Row: row, Col: column(t.Var, cs.numAux), Coeff: t.Coeff.Clone()})
		}
		for _, t := range con.b {
			b = append(b, r1cs.Entry{Row: row, Col: column(t.Var, cs.numAux), Coeff: t.Coeff.Clone()})
		}
		for _, t := range con.c {
			c = append(c, r1cs.Entry{Row: row, Col: column(t.Var, cs.numAux), Coeff: t.Coeff.Clone()})
		}
	}
	return r1cs.NewShape(cs.e, len(cs.constraints), cs.numAux, cs.numInputs, a, b, c)
}
