package provider

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giuliop/nova/engine"
)

func TestCycleModuli(t *testing.T) {
	e1 := NewBN254Engine()
	e2 := NewGrumpkinEngine()
	require.Equal(t, 0, e1.ScalarModulus().Cmp(e2.BaseModulus()))
	require.Equal(t, 0, e1.BaseModulus().Cmp(e2.ScalarModulus()))
}

func TestScalarArithmetic(t *testing.T) {
	for _, e := range []engine.Engine{NewBN254Engine(), NewGrumpkinEngine()} {
		a, err := e.NewScalar().SetRandom()
		require.NoError(t, err)
		b, err := e.NewScalar().SetRandom()
		require.NoError(t, err)

		sum := e.NewScalar().Add(a, b)
		diff := e.NewScalar().Sub(sum, b)
		require.True(t, diff.Equal(a))

		prod := e.NewScalar().Mul(a, b)
		inv := e.NewScalar().Inverse(b)
		back := e.NewScalar().Mul(prod, inv)
		require.True(t, back.Equal(a))

		rt := e.NewScalar().SetBytes(a.Bytes())
		require.True(t, rt.Equal(a))
	}
}

func TestGrumpkinGroupLaws(t *testing.T) {
	e := NewGrumpkinEngine()
	g := hashToGrumpkin([]byte("test"), 0)
	h := hashToGrumpkin([]byte("test"), 1)

	// commutativity
	gh := e.NewPoint().Add(g, h)
	hg := e.NewPoint().Add(h, g)
	require.True(t, gh.Equal(hg))

	// doubling equals addition with itself
	two := e.NewScalar().SetUint64(2)
	gg := e.NewPoint().Add(g, g)
	g2 := e.NewPoint().ScalarMul(g, two)
	require.True(t, gg.Equal(g2))

	// identity and inverse
	inf := e.NewPoint()
	require.True(t, e.NewPoint().Add(g, inf).Equal(g))
	neg := e.NewPoint().Neg(g)
	require.True(t, e.NewPoint().Add(g, neg).IsInfinity())

	// scalar distributivity: (a+b)G = aG + bG
	a, err := e.NewScalar().SetRandom()
	require.NoError(t, err)
	b, err := e.NewScalar().SetRandom()
	require.NoError(t, err)
	ab := e.NewScalar().Add(a, b)
	lhs := e.NewPoint().ScalarMul(g, ab)
	rhs := e.NewPoint().Add(e.NewPoint().ScalarMul(g, a), e.NewPoint().ScalarMul(g, b))
	require.True(t, lhs.Equal(rhs))
}

func TestGrumpkinOnCurve(t *testing.T) {
	p := hashToGrumpkin([]byte("oncurve"), 7)
	require.True(t, isOnGrumpkin(&p.x, &p.y))

	rt, err := NewGrumpkinPoint().SetBytes(p.Bytes())
	require.NoError(t, err)
	require.True(t, rt.Equal(p))
}

func TestGrumpkinMultiExpMatchesNaive(t *testing.T) {
	e := NewGrumpkinEngine()
	const n = 17
	points := make([]engine.Point, n)
	scalars := make([]engine.Scalar, n)
	for i := range points {
		points[i] = hashToGrumpkin([]byte("msm"), uint64(i))
		s, err := e.NewScalar().SetRandom()
		require.NoError(t, err)
		scalars[i] = s
	}
	naive := e.NewPoint()
	for i := range points {
		naive.Add(naive, e.NewPoint().ScalarMul(points[i], scalars[i]))
	}

	jacs := make([]*grumpkinJac, n)
	bigs := make([]*big.Int, n)
	for i := range points {
		jacs[i] = points[i].(*grumpkinPoint).jac()
		bigs[i] = scalars[i].BigInt()
	}
	acc := grumpkinMultiExp(jacs, bigs)
	got := (&grumpkinPoint{}).fromJac(&acc)
	require.True(t, naive.Equal(got))
}

func TestPedersenHomomorphism(t *testing.T) {
	for _, e := range []engine.Engine{NewBN254Engine(), NewGrumpkinEngine()} {
		ce := e.CommitmentEngine()
		ck := ce.Setup([]byte("test"), 8)
		require.Equal(t, 8, ck.Len())

		v1 := make([]engine.Scalar, 8)
		v2 := make([]engine.Scalar, 8)
		sum := make([]engine.Scalar, 8)
		for i := range v1 {
			a, err := e.NewScalar().SetRandom()
			require.NoError(t, err)
			b, err := e.NewScalar().SetRandom()
			require.NoError(t, err)
			v1[i], v2[i] = a, b
			sum[i] = e.NewScalar().Add(a, b)
		}
		b1, err := e.NewScalar().SetRandom()
		require.NoError(t, err)
		b2, err := e.NewScalar().SetRandom()
		require.NoError(t, err)

		c1 := ce.Commit(ck, v1, b1)
		c2 := ce.Commit(ck, v2, b2)
		cSum := ce.Commit(ck, sum, e.NewScalar().Add(b1, b2))
		require.True(t, cSum.Equal(e.NewPoint().Add(c1, c2)))

		// derandomization removes the blinding contribution
		unblinded := ce.Derandomize(ce.DerandKey(ck), c1, b1)
		plain := ce.Commit(ck, v1, e.NewScalar())
		require.True(t, unblinded.Equal(plain))
	}
}

func TestPedersenKeyRoundTrip(t *testing.T) {
	for _, e := range []engine.Engine{NewBN254Engine(), NewGrumpkinEngine()} {
		ce := e.CommitmentEngine()
		ck := ce.Setup([]byte("roundtrip"), 4)
		data := ce.MarshalKey(ck)
		back, err := ce.UnmarshalKey(data)
		require.NoError(t, err)
		v := []engine.Scalar{e.NewScalar().SetUint64(3), e.NewScalar().SetUint64(5)}
		blind := e.NewScalar().SetUint64(7)
		require.True(t, ce.Commit(ck, v, blind).Equal(ce.Commit(back, v, blind)))
	}
}

func TestSpongeDeterministic(t *testing.T) {
	e := NewGrumpkinEngine()
	consts := e.ROConstants()

	squeeze := func() engine.Scalar {
		ro := e.NewRO(consts, 3)
		ro.Absorb(e.NewBase().SetUint64(1))
		ro.Absorb(e.NewBase().SetUint64(2))
		ro.Absorb(e.NewBase().SetUint64(3))
		return ro.Squeeze(engine.NumHashBits)
	}
	a := squeeze()
	b := squeeze()
	require.True(t, a.Equal(b))
	require.True(t, a.BigInt().BitLen() <= engine.NumHashBits)

	// a different absorb count is a different oracle
	ro := e.NewRO(consts, 2)
	ro.Absorb(e.NewBase().SetUint64(1))
	ro.Absorb(e.NewBase().SetUint64(2))
	c := ro.Squeeze(engine.NumHashBits)
	require.False(t, a.Equal(c))
}

func TestSpongeAbsorbCountEnforced(t *testing.T) {
	e := NewBN254Engine()
	ro := e.NewRO(e.ROConstants(), 2)
	ro.Absorb(e.NewBase().SetUint64(1))
	require.Panics(t, func() { ro.Squeeze(engine.NumHashBits) })
}

func TestTruncateBits(t *testing.T) {
	v := new(big.Int).Lsh(big.NewInt(1), 260)
	v.Sub(v, big.NewInt(1))
	got := TruncateBits(v, engine.NumHashBits)
	require.Equal(t, engine.NumHashBits, got.BitLen())
}
