package nifs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/provider"
	"github.com/giuliop/nova/r1cs"
)

// cubeShape is the two-constraint system x*x = t, t*x = io0 over witness
// (x, t) with the cube as the first public input. The second public input
// is left free by the constraints; it gives instances the two IO values
// that the folding transcript absorbs.
//
// columns: x=0, t=1, one=2, io0=3, io1=4
func cubeShape(t *testing.T, e engine.Engine) (*r1cs.R1CSShape, engine.CommitmentKey) {
	t.Helper()
	one := e.NewScalar().SetOne()
	a := []r1cs.Entry{
		{Row: 0, Col: 0, Coeff: one.Clone()},
		{Row: 1, Col: 1, Coeff: one.Clone()},
	}
	b := []r1cs.Entry{
		{Row: 0, Col: 0, Coeff: one.Clone()},
		{Row: 1, Col: 0, Coeff: one.Clone()},
	}
	c := []r1cs.Entry{
		{Row: 0, Col: 1, Coeff: one.Clone()},
		{Row: 1, Col: 3, Coeff: one.Clone()},
	}
	s, err := r1cs.NewShape(e, 2, 2, 2, a, b, c)
	require.NoError(t, err)
	ck := e.CommitmentEngine().Setup([]byte("nifs-test"), s.CommitmentKeyLen(engine.DefaultCkHint()))
	return s, ck
}

func cubePair(t *testing.T, e engine.Engine, s *r1cs.R1CSShape, ck engine.CommitmentKey, x uint64) (*r1cs.R1CSInstance, *r1cs.R1CSWitness) {
	t.Helper()
	xv := e.NewScalar().SetUint64(x)
	tv := e.NewScalar().Mul(xv, xv)
	cube := e.NewScalar().Mul(tv, xv)
	blind, err := e.NewScalar().SetRandom()
	require.NoError(t, err)
	w := &r1cs.R1CSWitness{W: []engine.Scalar{xv, tv}, Blind: blind}
	u := &r1cs.R1CSInstance{
		CommW: e.CommitmentEngine().Commit(ck, w.W, blind),
		X:     []engine.Scalar{cube, xv.Clone()},
	}
	return u, w
}

func TestProveVerify(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := cubeShape(t, e)
	roConsts := e.ROConstants()
	tau := e.NewScalar().SetUint64(42)

	// start from the embedded first instance and fold a second one
	u1, w1 := cubePair(t, e, s, ck, 3)
	ru := r1cs.FromR1CSInstance(s, u1)
	rw := r1cs.FromR1CSWitness(s, w1)
	u2, w2 := cubePair(t, e, s, ck, 5)

	proof, uFold, wFold, err := Prove(ck, roConsts, tau, s, ru, rw, u2, w2)
	require.NoError(t, err)
	require.NoError(t, s.IsSatRelaxed(ck, uFold, wFold))

	// the verifier reconstructs the same folded instance
	uVerify := proof.Verify(e, roConsts, tau, ru, u2)
	require.True(t, uVerify.CommW.Equal(uFold.CommW))
	require.True(t, uVerify.CommE.Equal(uFold.CommE))
	require.True(t, uVerify.U.Equal(uFold.U))
	for i := range uVerify.X {
		require.True(t, uVerify.X[i].Equal(uFold.X[i]))
	}
}

func TestProveVerifyChained(t *testing.T) {
	e := provider.NewGrumpkinEngine()
	s, ck := cubeShape(t, e)
	roConsts := e.ROConstants()
	tau := e.NewScalar().SetUint64(7)

	ru := r1cs.DefaultRelaxedInstance(s)
	rw := r1cs.DefaultRelaxedWitness(s)
	for x := uint64(1); x <= 4; x++ {
		u2, w2 := cubePair(t, e, s, ck, x)
		var err error
		_, ru, rw, err = Prove(ck, roConsts, tau, s, ru, rw, u2, w2)
		require.NoError(t, err)
	}
	require.NoError(t, s.IsSatRelaxed(ck, ru, rw))
}

func TestProveVerifyRelaxed(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := cubeShape(t, e)
	roConsts := e.ROConstants()
	tau := e.NewScalar().SetUint64(11)

	u1, w1, err := s.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)
	u2, w2, err := s.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)

	proof, uFold, wFold, err := ProveRelaxed(ck, roConsts, tau, s, u1, w1, u2, w2)
	require.NoError(t, err)
	require.NoError(t, s.IsSatRelaxed(ck, uFold, wFold))

	uVerify := proof.Verify(e, roConsts, tau, u1, u2)
	require.True(t, uVerify.CommW.Equal(uFold.CommW))
	require.True(t, uVerify.CommE.Equal(uFold.CommE))
	require.True(t, uVerify.U.Equal(uFold.U))
}

func TestChallengeBoundToDigest(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := cubeShape(t, e)
	roConsts := e.ROConstants()

	u1, w1 := cubePair(t, e, s, ck, 2)
	ru := r1cs.FromR1CSInstance(s, u1)
	rw := r1cs.FromR1CSWitness(s, w1)
	u2, w2 := cubePair(t, e, s, ck, 6)

	proof, uFold, _, err := Prove(ck, roConsts, e.NewScalar().SetUint64(1), s, ru, rw, u2, w2)
	require.NoError(t, err)

	// a different transcript binding yields a different folded instance
	other := proof.Verify(e, roConsts, e.NewScalar().SetUint64(2), ru, u2)
	require.False(t, other.U.Equal(uFold.U))
}
