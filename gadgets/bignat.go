package gadgets

import (
	"math/big"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
)

// BigNat is a non-native integer represented by little-endian limbs of
// BNLimbWidth bits. Operands carry engine.BNNLimbs limbs; internal
// quotients may carry one more. Limbs are range-checked at allocation, and
// arithmetic identities are enforced over grouped limb products with
// explicit carries, so no intermediate ever wraps the native field.
type BigNat struct {
	Limbs []*Num
	Value *big.Int
}

func limbValue(v *big.Int, idx int) *big.Int {
	out := new(big.Int).Rsh(v, uint(idx*engine.BNLimbWidth))
	mask := new(big.Int).Lsh(big.NewInt(1), engine.BNLimbWidth)
	mask.Sub(mask, big.NewInt(1))
	return out.And(out, mask)
}

// allocRangedNum allocates a value constrained to nbits bits via its bit
// decomposition.
func allocRangedNum(cs frontend.ConstraintSystem, nbits int, f func() (*big.Int, error)) (*Num, error) {
	bits := make([]*Bit, nbits)
	for i := 0; i < nbits; i++ {
		i := i
		bit, err := AllocBit(cs, func() (engine.Scalar, error) {
			v, err := f()
			if err != nil {
				return nil, err
			}
			out := cs.NewScalar()
			if v.Bit(i) == 1 {
				out.SetOne()
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		bits[i] = bit
	}
	return FromBits(cs, bits)
}

// AllocBigNat allocates numLimbs range-checked limbs holding the value
// returned by f.
func AllocBigNat(cs frontend.ConstraintSystem, numLimbs int, f func() (*big.Int, error)) (*BigNat, error) {
	limbs := make([]*Num, numLimbs)
	for i := 0; i < numLimbs; i++ {
		i := i
		limb, err := allocRangedNum(cs, engine.BNLimbWidth, func() (*big.Int, error) {
			v, err := f()
			if err != nil {
				return nil, err
			}
			return limbValue(v, i), nil
		})
		if err != nil {
			return nil, err
		}
		limbs[i] = limb
	}
	n := &BigNat{Limbs: limbs}
	if limbs[0].Value != nil {
		v, err := f()
		if err != nil {
			return nil, err
		}
		n.Value = v
	}
	return n, nil
}

// BigNatFromNum decomposes a native num into limbs through its strict bit
// representation.
func BigNatFromNum(cs frontend.ConstraintSystem, n *Num, nativeModulus *big.Int) (*BigNat, error) {
	bits, err := ToBitsStrict(cs, n, nativeModulus)
	if err != nil {
		return nil, err
	}
	return BigNatFromBits(cs, bits)
}

// BigNatFromBits groups little-endian bits into BNNLimbs limbs.
func BigNatFromBits(cs frontend.ConstraintSystem, bits []*Bit) (*BigNat, error) {
	limbs := make([]*Num, engine.BNNLimbs)
	for i := range limbs {
		lo := i * engine.BNLimbWidth
		hi := lo + engine.BNLimbWidth
		if lo >= len(bits) {
			z, err := Zero(cs)
			if err != nil {
				return nil, err
			}
			limbs[i] = z
			continue
		}
		if hi > len(bits) {
			hi = len(bits)
		}
		limb, err := FromBits(cs, bits[lo:hi])
		if err != nil {
			return nil, err
		}
		limbs[i] = limb
	}
	n := &BigNat{Limbs: limbs}
	if limbs[0].Value != nil {
		v := new(big.Int)
		for i := len(bits) - 1; i >= 0; i-- {
			v.Lsh(v, 1)
			if bits[i].Value != nil && !bits[i].Value.IsZero() {
				v.Or(v, big.NewInt(1))
			}
		}
		n.Value = v
	}
	return n, nil
}

// SelectBigNat allocates cond ? a : b limb-wise.
func SelectBigNat(cs frontend.ConstraintSystem, cond *Bit, a, b *BigNat) (*BigNat, error) {
	limbs := make([]*Num, len(a.Limbs))
	for i := range limbs {
		var err error
		limbs[i], err = Select(cs, cond, a.Limbs[i], b.Limbs[i])
		if err != nil {
			return nil, err
		}
	}
	out := &BigNat{Limbs: limbs}
	if cond.Value != nil {
		if cond.Value.IsZero() {
			out.Value = b.Value
		} else {
			out.Value = a.Value
		}
	}
	return out, nil
}

// carryBits bounds a grouped-limb carry; the shifted allocation keeps the
// carry non-negative.
const carryBits = 71

var carryOffset = new(big.Int).Lsh(big.NewInt(1), carryBits-1)

// MulAddMod computes (a*b + c) mod m, enforcing the defining identity
// a*b + c = q*m + rem over grouped limb products with carried equality.
func MulAddMod(cs frontend.ConstraintSystem, a, b, c *BigNat, m *big.Int) (*BigNat, error) {
	value := func() (*big.Int, error) {
		if a.Value == nil || b.Value == nil || c.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		v := new(big.Int).Mul(a.Value, b.Value)
		return v.Add(v, c.Value), nil
	}

	const quotLimbs = engine.BNNLimbs + 1
	quot, err := AllocBigNat(cs, quotLimbs, func() (*big.Int, error) {
		v, err := value()
		if err != nil {
			return nil, err
		}
		return new(big.Int).Div(v, m), nil
	})
	if err != nil {
		return nil, err
	}
	rem, err := AllocBigNat(cs, engine.BNNLimbs, func() (*big.Int, error) {
		v, err := value()
		if err != nil {
			return nil, err
		}
		return new(big.Int).Mod(v, m), nil
	})
	if err != nil {
		return nil, err
	}

	// limb products of a*b need allocations; q*m is linear since m is constant
	prods := make([][]*Num, len(a.Limbs))
	for i := range a.Limbs {
		prods[i] = make([]*Num, len(b.Limbs))
		for j := range b.Limbs {
			prods[i][j], err = MulNum(cs, a.Limbs[i], b.Limbs[j])
			if err != nil {
				return nil, err
			}
		}
	}

	numPositions := quotLimbs + engine.BNNLimbs - 1
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	radix := cs.NewScalar().SetBigInt(new(big.Int).Lsh(big.NewInt(1), engine.BNLimbWidth))
	negRadix := cs.NewScalar().Neg(radix)

	// integer carries, allocated shifted by carryOffset to stay non-negative
	carryVal := func(t int) func() (*big.Int, error) {
		return func() (*big.Int, error) {
			v, err := value()
			if err != nil {
				return nil, err
			}
			q := new(big.Int).Div(v, m)
			r := new(big.Int).Mod(v, m)
			carry := new(big.Int)
			for pos := 0; pos <= t; pos++ {
				lhs := new(big.Int)
				for i := range a.Limbs {
					j := pos - i
					if j >= 0 && j < len(b.Limbs) {
						p := new(big.Int).Mul(limbValue(a.Value, i), limbValue(b.Value, j))
						lhs.Add(lhs, p)
					}
				}
				if pos < engine.BNNLimbs {
					lhs.Add(lhs, limbValue(c.Value, pos))
				}
				rhs := new(big.Int)
				for k := 0; k < quotLimbs; k++ {
					l := pos - k
					if l >= 0 && l < engine.BNNLimbs {
						p := new(big.Int).Mul(limbValue(q, k), limbValue(m, l))
						rhs.Add(rhs, p)
					}
				}
				if pos < engine.BNNLimbs {
					rhs.Add(rhs, limbValue(r, pos))
				}
				carry.Add(carry, lhs)
				carry.Sub(carry, rhs)
				carry.Rsh(carry, engine.BNLimbWidth)
			}
			return new(big.Int).Add(carry, carryOffset), nil
		}
	}

	var prevCarry *Num
	for t := 0; t < numPositions; t++ {
		// lhs - rhs + prevCarry - radix*carry = 0, all as one linear
		// combination against the constant-one wire
		lc := frontend.LinearCombination{}
		for i := range a.Limbs {
			j := t - i
			if j >= 0 && j < len(b.Limbs) {
				lc = lc.AddTerm(one, prods[i][j].Var)
			}
		}
		if t < engine.BNNLimbs {
			lc = lc.AddTerm(one, c.Limbs[t].Var)
			lc = lc.AddTerm(negOne, rem.Limbs[t].Var)
		}
		for k := 0; k < quotLimbs; k++ {
			l := t - k
			if l >= 0 && l < engine.BNNLimbs {
				coeff := cs.NewScalar().SetBigInt(limbValue(m, l))
				coeff.Neg(coeff)
				lc = lc.AddTerm(coeff, quot.Limbs[k].Var)
			}
		}
		if prevCarry != nil {
			lc = lc.AddTerm(one, prevCarry.Var)
			lc = lc.AddTerm(cs.NewScalar().Neg(cs.NewScalar().SetBigInt(carryOffset)), cs.One())
		}
		if t < numPositions-1 {
			carry, err := allocRangedNum(cs, carryBits, carryVal(t))
			if err != nil {
				return nil, err
			}
			lc = lc.AddTerm(negRadix, carry.Var)
			lc = lc.AddTerm(cs.NewScalar().Mul(radix, cs.NewScalar().SetBigInt(carryOffset)), cs.One())
			prevCarry = carry
		}
		cs.Enforce(lc, frontend.LinearCombination{}.AddTerm(one, cs.One()), frontend.LinearCombination{})
	}

	out := &BigNat{Limbs: rem.Limbs}
	if a.Value != nil && b.Value != nil && c.Value != nil {
		v := new(big.Int).Mul(a.Value, b.Value)
		v.Add(v, c.Value)
		out.Value = v.Mod(v, m)
	}
	return out, nil
}
