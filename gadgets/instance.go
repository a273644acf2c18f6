package gadgets

import (
	"math/big"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
	"github.com/giuliop/nova/r1cs"
)

// AllocatedR1CSInstance is a non-relaxed instance of the opposite curve
// allocated in-circuit. Its IO values are hash-sized, so they fit natively.
type AllocatedR1CSInstance struct {
	W      *Point
	X0, X1 *Num
}

// AllocR1CSInstance allocates inst, or an all-zero instance when inst is
// nil (the primary circuit's base case receives no incoming instance).
func AllocR1CSInstance(cs frontend.ConstraintSystem, inst *r1cs.R1CSInstance) (*AllocatedR1CSInstance, error) {
	w, err := AllocPoint(cs, func() (engine.Scalar, engine.Scalar, bool, error) {
		if inst == nil {
			return cs.NewScalar(), cs.NewScalar(), true, nil
		}
		x, y, inf := inst.CommW.Coordinates()
		return x, y, inf, nil
	})
	if err != nil {
		return nil, err
	}
	allocX := func(i int) (*Num, error) {
		return AllocNum(cs, func() (engine.Scalar, error) {
			if inst == nil {
				return cs.NewScalar(), nil
			}
			return cs.NewScalar().SetBigInt(inst.X[i].BigInt()), nil
		})
	}
	x0, err := allocX(0)
	if err != nil {
		return nil, err
	}
	x1, err := allocX(1)
	if err != nil {
		return nil, err
	}
	return &AllocatedR1CSInstance{W: w, X0: x0, X1: x1}, nil
}

// AbsorbInRO feeds the instance into the circuit oracle with the same
// schedule as its native counterpart.
func (u *AllocatedR1CSInstance) AbsorbInRO(ro *ROCircuit) {
	u.W.Absorb(ro)
	ro.Absorb(u.X0)
	ro.Absorb(u.X1)
}

// AllocatedRelaxedR1CSInstance is a running relaxed instance of the
// opposite curve allocated in-circuit. Its folded IO values span the full
// non-native field, hence the limbed representation.
type AllocatedRelaxedR1CSInstance struct {
	W, E   *Point
	U      *Num
	X0, X1 *BigNat
}

// AllocRelaxedR1CSInstance allocates inst, or the zero relaxed instance
// when inst is nil.
func AllocRelaxedR1CSInstance(cs frontend.ConstraintSystem, inst *r1cs.RelaxedR1CSInstance) (*AllocatedRelaxedR1CSInstance, error) {
	allocComm := func(p func() engine.Point) (*Point, error) {
		return AllocPoint(cs, func() (engine.Scalar, engine.Scalar, bool, error) {
			if inst == nil {
				return cs.NewScalar(), cs.NewScalar(), true, nil
			}
			x, y, inf := p().Coordinates()
			return x, y, inf, nil
		})
	}
	w, err := allocComm(func() engine.Point { return inst.CommW })
	if err != nil {
		return nil, err
	}
	e, err := allocComm(func() engine.Point { return inst.CommE })
	if err != nil {
		return nil, err
	}
	u, err := AllocNum(cs, func() (engine.Scalar, error) {
		if inst == nil {
			return cs.NewScalar(), nil
		}
		return cs.NewScalar().SetBigInt(inst.U.BigInt()), nil
	})
	if err != nil {
		return nil, err
	}
	allocX := func(i int) (*BigNat, error) {
		return AllocBigNat(cs, engine.BNNLimbs, func() (*big.Int, error) {
			if inst == nil {
				return new(big.Int), nil
			}
			return inst.X[i].BigInt(), nil
		})
	}
	x0, err := allocX(0)
	if err != nil {
		return nil, err
	}
	x1, err := allocX(1)
	if err != nil {
		return nil, err
	}
	return &AllocatedRelaxedR1CSInstance{W: w, E: e, U: u, X0: x0, X1: x1}, nil
}

// DefaultRelaxedInstance allocates the zero relaxed instance.
func DefaultRelaxedInstance(cs frontend.ConstraintSystem) (*AllocatedRelaxedR1CSInstance, error) {
	return AllocRelaxedR1CSInstance(cs, nil)
}

// RelaxedFromR1CSInstance embeds an allocated non-relaxed instance as a
// relaxed one with u = 1 and E = 0; the secondary circuit uses it in the
// base case to absorb the first primary instance.
func RelaxedFromR1CSInstance(cs frontend.ConstraintSystem, u *AllocatedR1CSInstance, nativeModulus *big.Int) (*AllocatedRelaxedR1CSInstance, error) {
	e, err := AllocInfinity(cs)
	if err != nil {
		return nil, err
	}
	one, err := OneNum(cs)
	if err != nil {
		return nil, err
	}
	x0, err := BigNatFromNum(cs, u.X0, nativeModulus)
	if err != nil {
		return nil, err
	}
	x1, err := BigNatFromNum(cs, u.X1, nativeModulus)
	if err != nil {
		return nil, err
	}
	return &AllocatedRelaxedR1CSInstance{W: u.W, E: e, U: one, X0: x0, X1: x1}, nil
}

// AbsorbInRO feeds the relaxed instance into the circuit oracle with the
// same schedule as its native counterpart: both commitments, u, and the IO
// limbs.
func (u *AllocatedRelaxedR1CSInstance) AbsorbInRO(ro *ROCircuit) {
	u.W.Absorb(ro)
	u.E.Absorb(ro)
	ro.Absorb(u.U)
	for _, limb := range u.X0.Limbs {
		ro.Absorb(limb)
	}
	for _, limb := range u.X1.Limbs {
		ro.Absorb(limb)
	}
}

// SelectRelaxedInstance allocates cond ? a : b component-wise.
func SelectRelaxedInstance(cs frontend.ConstraintSystem, cond *Bit, a, b *AllocatedRelaxedR1CSInstance) (*AllocatedRelaxedR1CSInstance, error) {
	w, err := SelectPoint(cs, cond, a.W, b.W)
	if err != nil {
		return nil, err
	}
	e, err := SelectPoint(cs, cond, a.E, b.E)
	if err != nil {
		return nil, err
	}
	u, err := Select(cs, cond, a.U, b.U)
	if err != nil {
		return nil, err
	}
	x0, err := SelectBigNat(cs, cond, a.X0, b.X0)
	if err != nil {
		return nil, err
	}
	x1, err := SelectBigNat(cs, cond, a.X1, b.X1)
	if err != nil {
		return nil, err
	}
	return &AllocatedRelaxedR1CSInstance{W: w, E: e, U: u, X0: x0, X1: x1}, nil
}

// Fold synthesizes the folding verifier: it derives the challenge from the
// transcript (params, U, u, T) and outputs the folded running instance.
func (u1 *AllocatedRelaxedR1CSInstance) Fold(cs frontend.ConstraintSystem, params *Num,
	u2 *AllocatedR1CSInstance, commT *Point, roConsts engine.ROConstants,
	nativeModulus, nonNativeModulus *big.Int, b3 engine.Scalar,
) (*AllocatedRelaxedR1CSInstance, error) {
	ro := NewROCircuit(roConsts, 1+engine.NumFERelaxedInstance+engine.NumFEInstance+3)
	ro.Absorb(params)
	u1.AbsorbInRO(ro)
	u2.AbsorbInRO(ro)
	commT.Absorb(ro)
	rBits, err := ro.SqueezeBits(cs, nativeModulus, engine.NumHashBits)
	if err != nil {
		return nil, err
	}
	rNum, err := FromBits(cs, rBits)
	if err != nil {
		return nil, err
	}

	// W' = W1 + r*W2, E' = E1 + r*T
	rW2, err := ScalarMulBits(cs, rBits, u2.W, b3)
	if err != nil {
		return nil, err
	}
	wf, err := AddPoints(cs, u1.W, rW2, b3)
	if err != nil {
		return nil, err
	}
	rT, err := ScalarMulBits(cs, rBits, commT, b3)
	if err != nil {
		return nil, err
	}
	ef, err := AddPoints(cs, u1.E, rT, b3)
	if err != nil {
		return nil, err
	}

	// u' = u1 + r, in native form; the sum stays below both moduli
	uf, err := AddNum(cs, u1.U, rNum)
	if err != nil {
		return nil, err
	}

	// X' = X1 + r*x2 over the non-native field
	rBn, err := BigNatFromBits(cs, rBits)
	if err != nil {
		return nil, err
	}
	x0Bn, err := BigNatFromNum(cs, u2.X0, nativeModulus)
	if err != nil {
		return nil, err
	}
	x0f, err := MulAddMod(cs, rBn, x0Bn, u1.X0, nonNativeModulus)
	if err != nil {
		return nil, err
	}
	x1Bn, err := BigNatFromNum(cs, u2.X1, nativeModulus)
	if err != nil {
		return nil, err
	}
	x1f, err := MulAddMod(cs, rBn, x1Bn, u1.X1, nonNativeModulus)
	if err != nil {
		return nil, err
	}

	return &AllocatedRelaxedR1CSInstance{W: wf, E: ef, U: uf, X0: x0f, X1: x1f}, nil
}
