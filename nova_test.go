package nova

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giuliop/nova/circuit"
	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
	"github.com/giuliop/nova/gadgets"
	"github.com/giuliop/nova/provider"
	"github.com/giuliop/nova/snark"
)

// cubicCircuit computes y = x^3 + x + 5.
type cubicCircuit struct{}

func (c *cubicCircuit) Arity() int { return 1 }

func (c *cubicCircuit) Synthesize(cs frontend.ConstraintSystem, z []*gadgets.Num) ([]*gadgets.Num, error) {
	x := z[0]
	xSq, err := gadgets.SquareNum(cs, x)
	if err != nil {
		return nil, err
	}
	xCu, err := gadgets.MulNum(cs, xSq, x)
	if err != nil {
		return nil, err
	}
	sum, err := gadgets.AddNum(cs, xCu, x)
	if err != nil {
		return nil, err
	}
	y, err := gadgets.AddConstNum(cs, sum, cs.NewScalar().SetUint64(5))
	if err != nil {
		return nil, err
	}
	return []*gadgets.Num{y}, nil
}

func cubicEval(e engine.Engine, z engine.Scalar) engine.Scalar {
	out := e.NewScalar().Mul(z, z)
	out.Mul(out, z)
	out.Add(out, z)
	return out.Add(out, e.NewScalar().SetUint64(5))
}

// fifthRootCircuit checks the non-deterministic advice y against y^5 = x.
type fifthRootCircuit struct {
	y engine.Scalar
}

func (c *fifthRootCircuit) Arity() int { return 1 }

func (c *fifthRootCircuit) Synthesize(cs frontend.ConstraintSystem, z []*gadgets.Num) ([]*gadgets.Num, error) {
	y, err := gadgets.AllocNum(cs, func() (engine.Scalar, error) {
		if c.y == nil {
			return cs.NewScalar(), nil
		}
		return c.y.Clone(), nil
	})
	if err != nil {
		return nil, err
	}
	ySq, err := gadgets.SquareNum(cs, y)
	if err != nil {
		return nil, err
	}
	yQuad, err := gadgets.SquareNum(cs, ySq)
	if err != nil {
		return nil, err
	}
	yFifth, err := gadgets.MulNum(cs, yQuad, y)
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	cs.Enforce(
		frontend.LinearCombination{}.AddTerm(one, yFifth.Var).AddTerm(negOne, z[0].Var),
		frontend.LinearCombination{}.AddTerm(one, cs.One()),
		frontend.LinearCombination{},
	)
	return []*gadgets.Num{y}, nil
}

// fifthRootChain derives numSteps fifth-root advice values from a fixed
// seed: raising to the fifth power walks the chain forward, so the
// reversed powers are successive fifth roots.
func fifthRootChain(e engine.Engine, numSteps int) ([]engine.Scalar, []*fifthRootCircuit) {
	seed := e.NewScalar().SetUint64(0xDEADBEEF)
	powers := make([]engine.Scalar, 0, numSteps+1)
	for i := 0; i < numSteps+1; i++ {
		sq := e.NewScalar().Mul(seed, seed)
		quad := e.NewScalar().Mul(sq, sq)
		seed = e.NewScalar().Mul(quad, seed)
		powers = append(powers, seed.Clone())
	}
	roots := make([]*fifthRootCircuit, 0, numSteps)
	for i := len(powers) - 2; i >= 0; i-- {
		roots = append(roots, &fifthRootCircuit{y: powers[i]})
	}
	z0 := []engine.Scalar{powers[len(powers)-1].Clone()}
	return z0, roots
}

// inputizeCircuit misbehaves by allocating a public input of its own.
type inputizeCircuit struct{}

func (c *inputizeCircuit) Arity() int { return 1 }

func (c *inputizeCircuit) Synthesize(cs frontend.ConstraintSystem, z []*gadgets.Num) ([]*gadgets.Num, error) {
	y, err := gadgets.SquareNum(cs, z[0])
	if err != nil {
		return nil, err
	}
	if err := gadgets.Inputize(cs, y); err != nil {
		return nil, err
	}
	return []*gadgets.Num{y}, nil
}

func testEngines() (engine.Engine, engine.Engine) {
	return provider.NewBN254Engine(), provider.NewGrumpkinEngine()
}

func TestIVCTrivial(t *testing.T) {
	e1, e2 := testEngines()
	cPrimary := &circuit.TrivialCircuit{}
	cSecondary := &circuit.TrivialCircuit{}

	pp, err := Setup(e1, e2, cPrimary, cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)

	z0Primary := []engine.Scalar{e1.NewScalar()}
	z0Secondary := []engine.Scalar{e2.NewScalar()}
	rs, err := NewRecursiveSNARK(pp, cPrimary, cSecondary, z0Primary, z0Secondary)
	require.NoError(t, err)

	require.NoError(t, rs.ProveStep(pp, cPrimary, cSecondary))

	znPrimary, znSecondary, err := rs.Verify(pp, 1, z0Primary, z0Secondary)
	require.NoError(t, err)
	require.True(t, znPrimary[0].IsZero())
	require.True(t, znSecondary[0].IsZero())
}

func TestIVCBase(t *testing.T) {
	e1, e2 := testEngines()
	cPrimary := &circuit.TrivialCircuit{}
	cSecondary := &cubicCircuit{}

	pp, err := Setup(e1, e2, cPrimary, cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)

	z0Primary := []engine.Scalar{e1.NewScalar().SetOne()}
	z0Secondary := []engine.Scalar{e2.NewScalar()}
	rs, err := NewRecursiveSNARK(pp, cPrimary, cSecondary, z0Primary, z0Secondary)
	require.NoError(t, err)
	require.NoError(t, rs.ProveStep(pp, cPrimary, cSecondary))

	znPrimary, znSecondary, err := rs.Verify(pp, 1, z0Primary, z0Secondary)
	require.NoError(t, err)
	require.True(t, znPrimary[0].Equal(e1.NewScalar().SetOne()))
	require.True(t, znSecondary[0].Equal(e2.NewScalar().SetUint64(5)))
}

func TestIVCNonTrivial(t *testing.T) {
	e1, e2 := testEngines()
	cPrimary := &circuit.TrivialCircuit{}
	cSecondary := &cubicCircuit{}

	pp, err := Setup(e1, e2, cPrimary, cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)

	const numSteps = 3
	z0Primary := []engine.Scalar{e1.NewScalar().SetOne()}
	z0Secondary := []engine.Scalar{e2.NewScalar()}
	rs, err := NewRecursiveSNARK(pp, cPrimary, cSecondary, z0Primary, z0Secondary)
	require.NoError(t, err)

	for i := 0; i < numSteps; i++ {
		require.NoError(t, rs.ProveStep(pp, cPrimary, cSecondary))
		_, _, err := rs.Verify(pp, i+1, z0Primary, z0Secondary)
		require.NoError(t, err)
	}

	znPrimary, znSecondary, err := rs.Verify(pp, numSteps, z0Primary, z0Secondary)
	require.NoError(t, err)
	require.True(t, znPrimary[0].Equal(e1.NewScalar().SetOne()))

	direct := z0Secondary[0].Clone()
	for i := 0; i < numSteps; i++ {
		direct = cubicEval(e2, direct)
	}
	require.True(t, znSecondary[0].Equal(direct))
	require.True(t, znSecondary[0].Equal(e2.NewScalar().SetUint64(2460515)))
}

func TestIVCNonDetWithCompression(t *testing.T) {
	e1, e2 := testEngines()
	const numSteps = 3
	z0Primary, roots := fifthRootChain(e1, numSteps)
	cSecondary := &circuit.TrivialCircuit{}
	z0Secondary := []engine.Scalar{e2.NewScalar()}

	pp, err := Setup(e1, e2, roots[0], cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)

	rs, err := NewRecursiveSNARK(pp, roots[0], cSecondary, z0Primary, z0Secondary)
	require.NoError(t, err)
	for _, root := range roots {
		require.NoError(t, rs.ProveStep(pp, root, cSecondary))
	}

	_, _, err = rs.Verify(pp, numSteps, z0Primary, z0Secondary)
	require.NoError(t, err)

	pk, vk, err := CompressedSetup(pp, snark.NewDirectSNARK(), snark.NewDirectSNARK())
	require.NoError(t, err)
	proof, err := CompressedProve(pp, pk, rs)
	require.NoError(t, err)

	znPrimary, _, err := proof.Verify(vk, numSteps, z0Primary, z0Secondary)
	require.NoError(t, err)
	require.True(t, znPrimary[0].Equal(rs.ZiPrimary[0]))

	// the proof survives a serialization round trip
	var buf bytes.Buffer
	require.NoError(t, proof.WriteTo(&buf))
	back, err := ReadCompressedSNARK(&buf, vk)
	require.NoError(t, err)
	_, _, err = back.Verify(vk, numSteps, z0Primary, z0Secondary)
	require.NoError(t, err)

	// and so does the verifier key
	var vkBuf bytes.Buffer
	require.NoError(t, vk.WriteTo(&vkBuf))
	vkBack, err := ReadCompressedVerifierKey(&vkBuf, e1, e2, snark.NewDirectSNARK(), snark.NewDirectSNARK())
	require.NoError(t, err)
	_, _, err = proof.Verify(vkBack, numSteps, z0Primary, z0Secondary)
	require.NoError(t, err)
}

func TestSetupRejectsInputizingCircuit(t *testing.T) {
	e1, e2 := testEngines()

	_, err := Setup(e1, e2, &inputizeCircuit{}, &circuit.TrivialCircuit{},
		engine.DefaultCkHint(), engine.DefaultCkHint())
	require.ErrorIs(t, err, ErrInvalidStepCircuitIO)

	_, err = Setup(e1, e2, &circuit.TrivialCircuit{}, &inputizeCircuit{},
		engine.DefaultCkHint(), engine.DefaultCkHint())
	require.ErrorIs(t, err, ErrInvalidStepCircuitIO)
}

func TestInvalidInitialInputLength(t *testing.T) {
	e1, e2 := testEngines()
	cPrimary := &circuit.TrivialCircuit{}
	cSecondary := &circuit.TrivialCircuit{}
	pp, err := Setup(e1, e2, cPrimary, cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)

	_, err = NewRecursiveSNARK(pp, cPrimary, cSecondary,
		[]engine.Scalar{e1.NewScalar(), e1.NewScalar()}, []engine.Scalar{e2.NewScalar()})
	require.ErrorIs(t, err, ErrInvalidInitialInputLength)
}

func TestDigestStable(t *testing.T) {
	e1, e2 := testEngines()
	cPrimary := &circuit.TrivialCircuit{}
	cSecondary := &circuit.TrivialCircuit{}

	pp1, err := Setup(e1, e2, cPrimary, cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)
	pp2, err := Setup(e1, e2, cPrimary, cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)
	require.True(t, pp1.Digest().Equal(pp2.Digest()))

	// the digest survives serialization
	var buf bytes.Buffer
	require.NoError(t, pp1.WriteTo(&buf))
	back, err := ReadPublicParams(&buf, e1, e2)
	require.NoError(t, err)
	require.True(t, pp1.Digest().Equal(back.Digest()))

	// a different step circuit is a different setup
	pp3, err := Setup(e1, e2, cPrimary, &cubicCircuit{}, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)
	require.False(t, pp1.Digest().Equal(pp3.Digest()))
}

func TestVerifyRejectsTampering(t *testing.T) {
	e1, e2 := testEngines()
	cPrimary := &circuit.TrivialCircuit{}
	cSecondary := &cubicCircuit{}

	pp, err := Setup(e1, e2, cPrimary, cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)

	z0Primary := []engine.Scalar{e1.NewScalar().SetOne()}
	z0Secondary := []engine.Scalar{e2.NewScalar()}
	rs, err := NewRecursiveSNARK(pp, cPrimary, cSecondary, z0Primary, z0Secondary)
	require.NoError(t, err)
	require.NoError(t, rs.ProveStep(pp, cPrimary, cSecondary))
	require.NoError(t, rs.ProveStep(pp, cPrimary, cSecondary))

	// zero steps
	_, _, err = rs.Verify(pp, 0, z0Primary, z0Secondary)
	require.ErrorIs(t, err, ErrProofVerify)

	// wrong number of steps
	_, _, err = rs.Verify(pp, 1, z0Primary, z0Secondary)
	require.ErrorIs(t, err, ErrProofVerify)

	// wrong initial inputs
	_, _, err = rs.Verify(pp, 2, []engine.Scalar{e1.NewScalar().SetUint64(9)}, z0Secondary)
	require.ErrorIs(t, err, ErrProofVerify)

	// tampered step outputs
	tampered := *rs
	tampered.ZiSecondary = []engine.Scalar{e2.NewScalar().SetUint64(123)}
	_, _, err = tampered.Verify(pp, 2, z0Primary, z0Secondary)
	require.ErrorIs(t, err, ErrProofVerify)

	// tampered per-step transcript commitment
	tampered = *rs
	tampered.RiPrimary = e1.NewScalar().SetUint64(1)
	_, _, err = tampered.Verify(pp, 2, z0Primary, z0Secondary)
	require.ErrorIs(t, err, ErrProofVerify)

	// tampered pending-instance IO
	tampered = *rs
	tampered.LUSecondary = rs.LUSecondary.Clone()
	tampered.LUSecondary.X[0].SetUint64(77)
	_, _, err = tampered.Verify(pp, 2, z0Primary, z0Secondary)
	require.ErrorIs(t, err, ErrProofVerify)
}

func TestRecursiveSNARKSerialization(t *testing.T) {
	e1, e2 := testEngines()
	cPrimary := &circuit.TrivialCircuit{}
	cSecondary := &cubicCircuit{}

	pp, err := Setup(e1, e2, cPrimary, cSecondary, engine.DefaultCkHint(), engine.DefaultCkHint())
	require.NoError(t, err)

	z0Primary := []engine.Scalar{e1.NewScalar().SetOne()}
	z0Secondary := []engine.Scalar{e2.NewScalar()}
	rs, err := NewRecursiveSNARK(pp, cPrimary, cSecondary, z0Primary, z0Secondary)
	require.NoError(t, err)
	require.NoError(t, rs.ProveStep(pp, cPrimary, cSecondary))

	var buf bytes.Buffer
	require.NoError(t, rs.WriteTo(&buf))
	back, err := ReadRecursiveSNARK(&buf, pp)
	require.NoError(t, err)

	_, _, err = back.Verify(pp, 1, z0Primary, z0Secondary)
	require.NoError(t, err)

	// the restored state can keep proving
	require.NoError(t, back.ProveStep(pp, cPrimary, cSecondary))
	_, _, err = back.Verify(pp, 2, z0Primary, z0Secondary)
	require.NoError(t, err)
}
