package frontend

import (
	"fmt"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/r1cs"
)

// Assignment runs a circuit's assigners to produce a satisfying witness.
// Constraints are not checked here; the satisfiability checks on the
// resulting instance catch synthesis bugs.
type Assignment struct {
	e      engine.Engine
	aux    []engine.Scalar
	inputs []engine.Scalar
}

// NewAssignment returns an empty witness solver over the engine's scalar
// field.
func NewAssignment(e engine.Engine) *Assignment {
	return &Assignment{e: e}
}

func (cs *Assignment) NewScalar() engine.Scalar { return cs.e.NewScalar() }

func (cs *Assignment) One() Variable { return Variable{Kind: KindOne} }

func (cs *Assignment) AllocAux(f Assigner) (Variable, engine.Scalar, error) {
	v, err := f()
	if err != nil {
		return Variable{}, nil, err
	}
	cs.aux = append(cs.aux, v.Clone())
	return Variable{Kind: KindAux, Index: len(cs.aux) - 1}, v, nil
}

func (cs *Assignment) AllocInput(f Assigner) (Variable, engine.Scalar, error) {
	v, err := f()
	if err != nil {
		return Variable{}, nil, err
	}
	cs.inputs = append(cs.inputs, v.Clone())
	return Variable{Kind: KindInput, Index: len(cs.inputs) - 1}, v, nil
}

func (cs *Assignment) Enforce(a, b, c LinearCombination) {}

// InstanceAndWitness commits the solved assignment against a shape obtained
// from the same circuit, with a fresh commitment blind.
func (cs *Assignment) InstanceAndWitness(s *r1cs.R1CSShape, ck engine.CommitmentKey) (*r1cs.R1CSInstance, *r1cs.R1CSWitness, error) {
	if len(cs.aux) != s.NumVars || len(cs.inputs) != s.NumIO {
		return nil, nil, fmt.Errorf("%w: assignment has %d vars and %d inputs, shape wants %d and %d",
			r1cs.ErrUnSat, len(cs.aux), len(cs.inputs), s.NumVars, s.NumIO)
	}
	blind, err := cs.e.NewScalar().SetRandom()
	if err != nil {
		return nil, nil, err
	}
	w := &r1cs.R1CSWitness{W: cs.aux, Blind: blind}
	u := &r1cs.R1CSInstance{
		CommW: cs.e.CommitmentEngine().Commit(ck, cs.aux, blind),
		X:     cs.inputs,
	}
	return u, w, nil
}
