package r1cs

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/provider"
)

// testShape builds the two-constraint system x*x = y, y*1 = io over witness
// (x, y) with one public input fixing y.
//
// columns: x=0, y=1, one=2, io=3
func testShape(t *testing.T, e engine.Engine) (*R1CSShape, engine.CommitmentKey) {
	t.Helper()
	one := e.NewScalar().SetOne()
	a := []Entry{{Row: 0, Col: 0, Coeff: one.Clone()}}
	b := []Entry{{Row: 0, Col: 0, Coeff: one.Clone()}}
	c := []Entry{{Row: 0, Col: 1, Coeff: one.Clone()}}
	// second constraint binds y to the public input
	a = append(a, Entry{Row: 1, Col: 1, Coeff: one.Clone()})
	b = append(b, Entry{Row: 1, Col: 2, Coeff: one.Clone()})
	c = append(c, Entry{Row: 1, Col: 3, Coeff: one.Clone()})
	s, err := NewShape(e, 2, 2, 1, a, b, c)
	require.NoError(t, err)
	ck := e.CommitmentEngine().Setup([]byte("r1cs-test"), s.CommitmentKeyLen(engine.DefaultCkHint()))
	return s, ck
}

// satisfyingPair builds an instance/witness for x with y = x*x.
func satisfyingPair(t *testing.T, e engine.Engine, s *R1CSShape, ck engine.CommitmentKey, x uint64) (*R1CSInstance, *R1CSWitness) {
	t.Helper()
	xv := e.NewScalar().SetUint64(x)
	yv := e.NewScalar().Mul(xv, xv)
	blind, err := e.NewScalar().SetRandom()
	require.NoError(t, err)
	w := &R1CSWitness{W: []engine.Scalar{xv, yv}, Blind: blind}
	u := &R1CSInstance{
		CommW: e.CommitmentEngine().Commit(ck, w.W, blind),
		X:     []engine.Scalar{yv.Clone()},
	}
	return u, w
}

func TestIsSat(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := testShape(t, e)

	u, w := satisfyingPair(t, e, s, ck, 3)
	require.NoError(t, s.IsSat(ck, u, w))

	// wrong public input
	bad := u.Clone()
	bad.X[0].SetUint64(10)
	require.ErrorIs(t, s.IsSat(ck, bad, w), ErrUnSat)

	// wrong commitment
	bad = u.Clone()
	bad.CommW.SetInfinity()
	require.ErrorIs(t, s.IsSat(ck, bad, w), ErrUnSat)
}

func TestRelaxedEmbedding(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := testShape(t, e)
	u, w := satisfyingPair(t, e, s, ck, 4)

	ru := FromR1CSInstance(s, u)
	rw := FromR1CSWitness(s, w)
	require.NoError(t, s.IsSatRelaxed(ck, ru, rw))

	// the zero pair satisfies the relaxed relation trivially
	require.NoError(t, s.IsSatRelaxed(ck, DefaultRelaxedInstance(s), DefaultRelaxedWitness(s)))
}

func TestSampleRandomInstanceWitness(t *testing.T) {
	e := provider.NewGrumpkinEngine()
	s, ck := testShape(t, e)
	u, w, err := s.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)
	require.NoError(t, s.IsSatRelaxed(ck, u, w))
}

func TestDerandomize(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := testShape(t, e)
	u, w, err := s.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)

	dw, wBlind, eBlind := w.Derandomize(e)
	require.True(t, dw.BlindW.IsZero())
	require.True(t, dw.BlindE.IsZero())
	du := u.Derandomize(e.CommitmentEngine(), e.CommitmentEngine().DerandKey(ck), wBlind, eBlind)
	require.NoError(t, s.IsSatRelaxed(ck, du, dw))
}

// folding a satisfying relaxed pair with a satisfying plain pair under any
// challenge yields a satisfying relaxed pair
func TestFoldPreservesSatisfiability(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := testShape(t, e)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("fold keeps the relaxed relation", prop.ForAll(
		func(x1, x2, rSeed uint64) bool {
			u1, w1 := satisfyingPair(t, e, s, ck, x1)
			ru := FromR1CSInstance(s, u1)
			rw := FromR1CSWitness(s, w1)
			u2, w2 := satisfyingPair(t, e, s, ck, x2)

			tVec, err := s.CrossTerm(ru, rw, u2, w2)
			if err != nil {
				return false
			}
			blindT, err := e.NewScalar().SetRandom()
			if err != nil {
				return false
			}
			commT := e.CommitmentEngine().Commit(ck, tVec, blindT)
			r := e.NewScalar().SetUint64(rSeed)

			uf := ru.Fold(e, u2, commT, r)
			wf, err := rw.Fold(e, w2, tVec, blindT, r)
			if err != nil {
				return false
			}
			return s.IsSatRelaxed(ck, uf, wf) == nil
		},
		gen.UInt64(), gen.UInt64(), gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestFoldRelaxedPreservesSatisfiability(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := testShape(t, e)

	u1, w1, err := s.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)
	u2, w2, err := s.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)

	tVec, err := s.CrossTermRelaxed(u1, w1, u2, w2)
	require.NoError(t, err)
	blindT, err := e.NewScalar().SetRandom()
	require.NoError(t, err)
	commT := e.CommitmentEngine().Commit(ck, tVec, blindT)
	r, err := e.NewScalar().SetRandom()
	require.NoError(t, err)

	uf := u1.FoldRelaxed(e, u2, commT, r)
	wf, err := w1.FoldRelaxed(e, w2, tVec, blindT, r)
	require.NoError(t, err)
	require.NoError(t, s.IsSatRelaxed(ck, uf, wf))
}

func TestMarshalRoundTrips(t *testing.T) {
	e := provider.NewBN254Engine()
	s, ck := testShape(t, e)

	back, err := UnmarshalShape(e, MarshalShape(s))
	require.NoError(t, err)
	require.Equal(t, s.NumCons, back.NumCons)
	require.Equal(t, s.NumVars, back.NumVars)
	require.Equal(t, s.NumIO, back.NumIO)

	u, w, err := s.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)
	ru, err := UnmarshalRelaxedInstance(e, MarshalRelaxedInstance(u))
	require.NoError(t, err)
	rw, err := UnmarshalRelaxedWitness(e, MarshalRelaxedWitness(w))
	require.NoError(t, err)
	require.NoError(t, back.IsSatRelaxed(ck, ru, rw))
}
