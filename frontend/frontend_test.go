package frontend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/provider"
)

// synthesize builds x*x = y with y public, against any constraint system.
func synthesize(cs ConstraintSystem, x uint64) error {
	xVar, xVal, err := cs.AllocAux(func() (engine.Scalar, error) {
		return cs.NewScalar().SetUint64(x), nil
	})
	if err != nil {
		return err
	}
	yVar, _, err := cs.AllocAux(func() (engine.Scalar, error) {
		return cs.NewScalar().Mul(xVal, xVal), nil
	})
	if err != nil {
		return err
	}
	one := cs.NewScalar().SetOne()
	cs.Enforce(
		LinearCombination{}.AddTerm(one, xVar),
		LinearCombination{}.AddTerm(one, xVar),
		LinearCombination{}.AddTerm(one, yVar),
	)
	ioVar, _, err := cs.AllocInput(func() (engine.Scalar, error) {
		return cs.NewScalar().Mul(xVal, xVal), nil
	})
	if err != nil {
		return err
	}
	negOne := cs.NewScalar().Neg(one)
	cs.Enforce(
		LinearCombination{}.AddTerm(one, yVar).AddTerm(negOne, ioVar),
		LinearCombination{}.AddTerm(one, cs.One()),
		LinearCombination{},
	)
	return nil
}

func TestShapeAndAssignmentAgree(t *testing.T) {
	e := provider.NewBN254Engine()

	shapeCS := NewShapeCS(e)
	require.NoError(t, synthesize(shapeCS, 0))
	shape, err := shapeCS.Shape()
	require.NoError(t, err)
	require.Equal(t, 2, shape.NumCons)
	require.Equal(t, 2, shape.NumVars)
	require.Equal(t, 1, shape.NumIO)

	ck := e.CommitmentEngine().Setup([]byte("frontend-test"), shape.CommitmentKeyLen(engine.DefaultCkHint()))

	asg := NewAssignment(e)
	require.NoError(t, synthesize(asg, 7))
	u, w, err := asg.InstanceAndWitness(shape, ck)
	require.NoError(t, err)
	require.NoError(t, shape.IsSat(ck, u, w))
	require.True(t, u.X[0].Equal(e.NewScalar().SetUint64(49)))
}

func TestAssignmentMissingPropagates(t *testing.T) {
	e := provider.NewBN254Engine()
	asg := NewAssignment(e)
	_, _, err := asg.AllocAux(func() (engine.Scalar, error) {
		return nil, ErrAssignmentMissing
	})
	require.ErrorIs(t, err, ErrAssignmentMissing)
}

func TestShapeNeverRunsAssigners(t *testing.T) {
	e := provider.NewBN254Engine()
	cs := NewShapeCS(e)
	_, v, err := cs.AllocAux(func() (engine.Scalar, error) {
		panic("assigner must not run during shape collection")
	})
	require.NoError(t, err)
	require.Nil(t, v)
}
