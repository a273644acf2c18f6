package gadgets

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
	"github.com/giuliop/nova/provider"
)

// solveAndCheck synthesizes f against a shape collector and a witness
// solver and checks that the solved assignment satisfies the collected
// shape.
func solveAndCheck(t *testing.T, e engine.Engine, f func(cs frontend.ConstraintSystem) error) {
	t.Helper()
	shapeCS := frontend.NewShapeCS(e)
	require.NoError(t, f(shapeCS))
	shape, err := shapeCS.Shape()
	require.NoError(t, err)

	asg := frontend.NewAssignment(e)
	require.NoError(t, f(asg))
	ck := e.CommitmentEngine().Setup([]byte("gadgets-test"), shape.CommitmentKeyLen(engine.DefaultCkHint()))
	u, w, err := asg.InstanceAndWitness(shape, ck)
	require.NoError(t, err)
	require.NoError(t, shape.IsSat(ck, u, w))
}

func allocValue(cs frontend.ConstraintSystem, v uint64) (*Num, error) {
	return AllocNum(cs, func() (engine.Scalar, error) {
		return cs.NewScalar().SetUint64(v), nil
	})
}

func TestNumArithmetic(t *testing.T) {
	e := provider.NewBN254Engine()
	solveAndCheck(t, e, func(cs frontend.ConstraintSystem) error {
		a, err := allocValue(cs, 6)
		if err != nil {
			return err
		}
		b, err := allocValue(cs, 7)
		if err != nil {
			return err
		}
		prod, err := MulNum(cs, a, b)
		if err != nil {
			return err
		}
		sum, err := AddNum(cs, a, b)
		if err != nil {
			return err
		}
		if prod.Value != nil {
			require.True(t, prod.Value.Equal(cs.NewScalar().SetUint64(42)))
			require.True(t, sum.Value.Equal(cs.NewScalar().SetUint64(13)))
		}
		eq, err := IsEqual(cs, a, b)
		if err != nil {
			return err
		}
		if eq.Value != nil {
			require.True(t, eq.Value.IsZero())
		}
		sel, err := Select(cs, eq, a, b)
		if err != nil {
			return err
		}
		if sel.Value != nil {
			require.True(t, sel.Value.Equal(b.Value))
		}
		return nil
	})
}

func TestToBitsStrictRoundTrip(t *testing.T) {
	e := provider.NewBN254Engine()
	solveAndCheck(t, e, func(cs frontend.ConstraintSystem) error {
		a, err := AllocNum(cs, func() (engine.Scalar, error) {
			v := new(big.Int).Sub(e.ScalarModulus(), big.NewInt(2))
			return cs.NewScalar().SetBigInt(v), nil
		})
		if err != nil {
			return err
		}
		bits, err := ToBitsStrict(cs, a, e.ScalarModulus())
		if err != nil {
			return err
		}
		back, err := FromBits(cs, bits)
		if err != nil {
			return err
		}
		if a.Value != nil {
			require.True(t, back.Value.Equal(a.Value))
		}
		return nil
	})
}

func TestBigNatMulAddModMatchesBigInt(t *testing.T) {
	e1 := provider.NewBN254Engine()
	e2 := provider.NewGrumpkinEngine()
	m := e2.ScalarModulus()

	av := new(big.Int).Sub(m, big.NewInt(12345))
	bv := new(big.Int).Sub(m, big.NewInt(99))
	cv := new(big.Int).Sub(m, big.NewInt(7))
	want := new(big.Int).Mul(av, bv)
	want.Add(want, cv)
	want.Mod(want, m)

	solveAndCheck(t, e1, func(cs frontend.ConstraintSystem) error {
		a, err := AllocBigNat(cs, engine.BNNLimbs, func() (*big.Int, error) { return av, nil })
		if err != nil {
			return err
		}
		b, err := AllocBigNat(cs, engine.BNNLimbs, func() (*big.Int, error) { return bv, nil })
		if err != nil {
			return err
		}
		c, err := AllocBigNat(cs, engine.BNNLimbs, func() (*big.Int, error) { return cv, nil })
		if err != nil {
			return err
		}
		out, err := MulAddMod(cs, a, b, c, m)
		if err != nil {
			return err
		}
		if out.Value != nil {
			require.Equal(t, 0, out.Value.Cmp(want))
			for i, limb := range out.Limbs {
				wantLimb := cs.NewScalar().SetBigInt(limbValue(want, i))
				require.True(t, limb.Value.Equal(wantLimb))
			}
		}
		return nil
	})
}

// grumpkinTestPoints derives two curve points via the commitment engine.
func grumpkinTestPoints(e2 engine.Engine) (engine.Point, engine.Point) {
	ce := e2.CommitmentEngine()
	ck := ce.Setup([]byte("pt"), 2)
	g := ce.Commit(ck, []engine.Scalar{e2.NewScalar().SetOne()}, e2.NewScalar())
	h := ce.Commit(ck, []engine.Scalar{e2.NewScalar().SetUint64(2), e2.NewScalar().SetUint64(3)}, e2.NewScalar().SetOne())
	return g, h
}

func allocNativePoint(cs frontend.ConstraintSystem, p engine.Point) (*Point, error) {
	return AllocPoint(cs, func() (engine.Scalar, engine.Scalar, bool, error) {
		x, y, inf := p.Coordinates()
		return cs.NewScalar().SetBigInt(x.BigInt()), cs.NewScalar().SetBigInt(y.BigInt()), inf, nil
	})
}

func requirePointEquals(t *testing.T, cs frontend.ConstraintSystem, got *Point, want engine.Point) {
	t.Helper()
	if got.X.Value == nil {
		return
	}
	x, y, inf := want.Coordinates()
	require.Equal(t, inf, !got.Inf.Value.IsZero())
	if !inf {
		require.Equal(t, 0, got.X.Value.BigInt().Cmp(x.BigInt()))
		require.Equal(t, 0, got.Y.Value.BigInt().Cmp(y.BigInt()))
	}
}

func TestPointOpsMatchNative(t *testing.T) {
	// points of the grumpkin curve inside a bn254-scalar-field circuit
	e1 := provider.NewBN254Engine()
	e2 := provider.NewGrumpkinEngine()
	b3 := e2.CurveB3()
	g, h := grumpkinTestPoints(e2)

	sum := e2.NewPoint().Add(g, h)
	dbl := e2.NewPoint().Add(g, g)
	s := e2.NewScalar().SetUint64(0xfeedface)
	sg := e2.NewPoint().ScalarMul(g, s)
	inf := e2.NewPoint()

	solveAndCheck(t, e1, func(cs frontend.ConstraintSystem) error {
		ag, err := allocNativePoint(cs, g)
		if err != nil {
			return err
		}
		ah, err := allocNativePoint(cs, h)
		if err != nil {
			return err
		}
		aInf, err := AllocInfinity(cs)
		if err != nil {
			return err
		}

		gotSum, err := AddPoints(cs, ag, ah, b3)
		if err != nil {
			return err
		}
		requirePointEquals(t, cs, gotSum, sum)

		gotDbl, err := AddPoints(cs, ag, ag, b3)
		if err != nil {
			return err
		}
		requirePointEquals(t, cs, gotDbl, dbl)

		gotG, err := AddPoints(cs, ag, aInf, b3)
		if err != nil {
			return err
		}
		requirePointEquals(t, cs, gotG, g)

		// scalar multiplication by the little-endian bits of s
		sBits := make([]*Bit, engine.NumHashBits)
		sVal := s.BigInt()
		for i := range sBits {
			i := i
			sBits[i], err = AllocBit(cs, func() (engine.Scalar, error) {
				out := cs.NewScalar()
				if sVal.Bit(i) == 1 {
					out.SetOne()
				}
				return out, nil
			})
			if err != nil {
				return err
			}
		}
		gotSg, err := ScalarMulBits(cs, sBits, ag, b3)
		if err != nil {
			return err
		}
		requirePointEquals(t, cs, gotSg, sg)

		gotZero, err := ScalarMulBits(cs, sBits, aInf, b3)
		if err != nil {
			return err
		}
		requirePointEquals(t, cs, gotZero, inf)
		return nil
	})
}

func TestROCircuitMatchesNative(t *testing.T) {
	// the primary circuit's oracle runs over the bn254 scalar field, which
	// is the grumpkin engine's base field
	e1 := provider.NewBN254Engine()
	e2 := provider.NewGrumpkinEngine()
	consts := e2.ROConstants()

	native := e2.NewRO(consts, 3)
	native.Absorb(e2.NewBase().SetUint64(11))
	native.Absorb(e2.NewBase().SetUint64(22))
	native.Absorb(e2.NewBase().SetUint64(33))
	want := native.Squeeze(engine.NumHashBits).BigInt()

	solveAndCheck(t, e1, func(cs frontend.ConstraintSystem) error {
		ro := NewROCircuit(consts, 3)
		for _, v := range []uint64{11, 22, 33} {
			n, err := allocValue(cs, v)
			if err != nil {
				return err
			}
			ro.Absorb(n)
		}
		bits, err := ro.SqueezeBits(cs, e1.ScalarModulus(), engine.NumHashBits)
		if err != nil {
			return err
		}
		out, err := FromBits(cs, bits)
		if err != nil {
			return err
		}
		if out.Value != nil {
			require.Equal(t, 0, out.Value.BigInt().Cmp(want))
		}
		return nil
	})
}
