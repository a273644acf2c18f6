// Package gadgets provides the in-circuit building blocks of the augmented
// step circuit: allocated field elements, booleans, non-native big numbers,
// cycle-curve points, and the circuit random oracle.
package gadgets

import (
	"math/big"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
)

// Num is an allocated field element. Value is nil while collecting a shape.
type Num struct {
	Var   frontend.Variable
	Value engine.Scalar
}

// AllocNum allocates an auxiliary variable.
func AllocNum(cs frontend.ConstraintSystem, f frontend.Assigner) (*Num, error) {
	v, val, err := cs.AllocAux(f)
	if err != nil {
		return nil, err
	}
	return &Num{Var: v, Value: val}, nil
}

// AllocConstant allocates a variable pinned to a constant.
func AllocConstant(cs frontend.ConstraintSystem, c engine.Scalar) (*Num, error) {
	n, err := AllocNum(cs, func() (engine.Scalar, error) { return c.Clone(), nil })
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	cs.Enforce(
		frontend.LinearCombination{}.AddTerm(one, n.Var),
		frontend.LinearCombination{}.AddTerm(one, cs.One()),
		frontend.LinearCombination{}.AddTerm(c, cs.One()),
	)
	return n, nil
}

// Zero allocates the constant 0.
func Zero(cs frontend.ConstraintSystem) (*Num, error) {
	return AllocConstant(cs, cs.NewScalar())
}

// OneNum allocates the constant 1.
func OneNum(cs frontend.ConstraintSystem) (*Num, error) {
	return AllocConstant(cs, cs.NewScalar().SetOne())
}

func valueOf2(cs frontend.ConstraintSystem, a, b *Num, f func(out, av, bv engine.Scalar)) frontend.Assigner {
	return func() (engine.Scalar, error) {
		if a.Value == nil || b.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		out := cs.NewScalar()
		f(out, a.Value, b.Value)
		return out, nil
	}
}

func lcSingle(cs frontend.ConstraintSystem, v frontend.Variable) frontend.LinearCombination {
	return frontend.LinearCombination{}.AddTerm(cs.NewScalar().SetOne(), v)
}

// MulNum allocates a*b.
func MulNum(cs frontend.ConstraintSystem, a, b *Num) (*Num, error) {
	c, err := AllocNum(cs, valueOf2(cs, a, b, func(out, av, bv engine.Scalar) { out.Mul(av, bv) }))
	if err != nil {
		return nil, err
	}
	cs.Enforce(lcSingle(cs, a.Var), lcSingle(cs, b.Var), lcSingle(cs, c.Var))
	return c, nil
}

// SquareNum allocates a*a.
func SquareNum(cs frontend.ConstraintSystem, a *Num) (*Num, error) {
	return MulNum(cs, a, a)
}

// AddNum allocates a+b.
func AddNum(cs frontend.ConstraintSystem, a, b *Num) (*Num, error) {
	c, err := AllocNum(cs, valueOf2(cs, a, b, func(out, av, bv engine.Scalar) { out.Add(av, bv) }))
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	cs.Enforce(
		frontend.LinearCombination{}.AddTerm(one, a.Var).AddTerm(one, b.Var),
		lcSingle(cs, cs.One()),
		lcSingle(cs, c.Var),
	)
	return c, nil
}

// SubNum allocates a-b.
func SubNum(cs frontend.ConstraintSystem, a, b *Num) (*Num, error) {
	c, err := AllocNum(cs, valueOf2(cs, a, b, func(out, av, bv engine.Scalar) { out.Sub(av, bv) }))
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	cs.Enforce(
		frontend.LinearCombination{}.AddTerm(one, a.Var).AddTerm(negOne, b.Var),
		lcSingle(cs, cs.One()),
		lcSingle(cs, c.Var),
	)
	return c, nil
}

// AddConstNum allocates a+k.
func AddConstNum(cs frontend.ConstraintSystem, a *Num, k engine.Scalar) (*Num, error) {
	c, err := AllocNum(cs, func() (engine.Scalar, error) {
		if a.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		return cs.NewScalar().Add(a.Value, k), nil
	})
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	cs.Enforce(
		frontend.LinearCombination{}.AddTerm(one, a.Var).AddTerm(k, cs.One()),
		lcSingle(cs, cs.One()),
		lcSingle(cs, c.Var),
	)
	return c, nil
}

// Bit is a Num constrained to {0, 1}.
type Bit struct {
	Num
}

// AllocBit allocates a boolean-constrained variable.
func AllocBit(cs frontend.ConstraintSystem, f frontend.Assigner) (*Bit, error) {
	n, err := AllocNum(cs, f)
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	// b * (1 - b) = 0
	cs.Enforce(
		lcSingle(cs, n.Var),
		frontend.LinearCombination{}.AddTerm(one, cs.One()).AddTerm(negOne, n.Var),
		frontend.LinearCombination{},
	)
	return &Bit{Num: *n}, nil
}

// Not allocates the complement of a bit.
func Not(cs frontend.ConstraintSystem, b *Bit) (*Bit, error) {
	n, err := AllocNum(cs, func() (engine.Scalar, error) {
		if b.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		out := cs.NewScalar().SetOne()
		return out.Sub(out, b.Value), nil
	})
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	cs.Enforce(
		frontend.LinearCombination{}.AddTerm(one, cs.One()).AddTerm(negOne, b.Var),
		lcSingle(cs, cs.One()),
		lcSingle(cs, n.Var),
	)
	return &Bit{Num: *n}, nil
}

// IsEqual allocates the bit (a == b). The auxiliary inverse witnesses the
// inequality in the false branch.
func IsEqual(cs frontend.ConstraintSystem, a, b *Num) (*Bit, error) {
	r, err := AllocBit(cs, valueOf2(cs, a, b, func(out, av, bv engine.Scalar) {
		if av.Equal(bv) {
			out.SetOne()
		} else {
			out.SetZero()
		}
	}))
	if err != nil {
		return nil, err
	}
	t, err := AllocNum(cs, valueOf2(cs, a, b, func(out, av, bv engine.Scalar) {
		diff := cs.NewScalar().Sub(av, bv)
		if diff.IsZero() {
			out.SetZero()
		} else {
			out.Inverse(diff)
		}
	}))
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	diff := frontend.LinearCombination{}.AddTerm(one, a.Var).AddTerm(negOne, b.Var)
	// r * (a - b) = 0
	cs.Enforce(lcSingle(cs, r.Var), diff, frontend.LinearCombination{})
	// t * (a - b) = 1 - r
	cs.Enforce(lcSingle(cs, t.Var), diff,
		frontend.LinearCombination{}.AddTerm(one, cs.One()).AddTerm(negOne, r.Var))
	return r, nil
}

// Select allocates cond ? a : b.
func Select(cs frontend.ConstraintSystem, cond *Bit, a, b *Num) (*Num, error) {
	out, err := AllocNum(cs, func() (engine.Scalar, error) {
		if cond.Value == nil || a.Value == nil || b.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		if cond.Value.IsZero() {
			return b.Value.Clone(), nil
		}
		return a.Value.Clone(), nil
	})
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	// cond * (a - b) = out - b
	cs.Enforce(
		lcSingle(cs, cond.Var),
		frontend.LinearCombination{}.AddTerm(one, a.Var).AddTerm(negOne, b.Var),
		frontend.LinearCombination{}.AddTerm(one, out.Var).AddTerm(negOne, b.Var),
	)
	return out, nil
}

// EnforceEqualWhen adds the conditional constraint cond => a == b.
func EnforceEqualWhen(cs frontend.ConstraintSystem, cond *Bit, a, b *Num) {
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	cs.Enforce(
		lcSingle(cs, cond.Var),
		frontend.LinearCombination{}.AddTerm(one, a.Var).AddTerm(negOne, b.Var),
		frontend.LinearCombination{},
	)
}

// Inputize exposes the num as the next public input.
func Inputize(cs frontend.ConstraintSystem, n *Num) error {
	v, _, err := cs.AllocInput(func() (engine.Scalar, error) {
		if n.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		return n.Value.Clone(), nil
	})
	if err != nil {
		return err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	cs.Enforce(
		frontend.LinearCombination{}.AddTerm(one, n.Var).AddTerm(negOne, v),
		lcSingle(cs, cs.One()),
		frontend.LinearCombination{},
	)
	return nil
}

// ToBitsStrict decomposes a into its canonical little-endian bit
// representation below the field modulus, enforcing booleanity, the
// recomposition identity, and strict canonicity.
func ToBitsStrict(cs frontend.ConstraintSystem, a *Num, modulus *big.Int) ([]*Bit, error) {
	nbits := modulus.BitLen()
	bits := make([]*Bit, nbits)
	for i := 0; i < nbits; i++ {
		i := i
		bit, err := AllocBit(cs, func() (engine.Scalar, error) {
			if a.Value == nil {
				return nil, frontend.ErrAssignmentMissing
			}
			out := cs.NewScalar()
			if a.Value.BigInt().Bit(i) == 1 {
				out.SetOne()
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		bits[i] = bit
	}

	// sum_i b_i 2^i = a
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	coeff := cs.NewScalar().SetOne()
	two := cs.NewScalar().SetUint64(2)
	lc := frontend.LinearCombination{}
	for i := 0; i < nbits; i++ {
		lc = lc.AddTerm(coeff, bits[i].Var)
		coeff = coeff.Clone().Mul(coeff, two)
	}
	lc = lc.AddTerm(negOne, a.Var)
	cs.Enforce(lc, lcSingle(cs, cs.One()), frontend.LinearCombination{})

	// Canonicity: walking the modulus bits from the top, while every bit so
	// far matched the modulus, a set bit is forbidden wherever the modulus
	// bit is clear, and the full match itself is forbidden at the end.
	eq, err := OneNum(cs)
	if err != nil {
		return nil, err
	}
	eqBit := &Bit{Num: *eq}
	for i := nbits - 1; i >= 0; i-- {
		if modulus.Bit(i) == 1 {
			next, err := MulNum(cs, &eqBit.Num, &bits[i].Num)
			if err != nil {
				return nil, err
			}
			eqBit = &Bit{Num: *next}
		} else {
			// eq * b_i = 0
			cs.Enforce(lcSingle(cs, eqBit.Var), lcSingle(cs, bits[i].Var), frontend.LinearCombination{})
		}
	}
	// eq = 0, i.e. a != modulus - residues are strictly below it
	cs.Enforce(lcSingle(cs, eqBit.Var), lcSingle(cs, cs.One()), frontend.LinearCombination{})

	return bits, nil
}

// FromBits packs little-endian bits into a num.
func FromBits(cs frontend.ConstraintSystem, bits []*Bit) (*Num, error) {
	n, err := AllocNum(cs, func() (engine.Scalar, error) {
		acc := new(big.Int)
		for i := len(bits) - 1; i >= 0; i-- {
			if bits[i].Value == nil {
				return nil, frontend.ErrAssignmentMissing
			}
			acc.Lsh(acc, 1)
			if !bits[i].Value.IsZero() {
				acc.Or(acc, big.NewInt(1))
			}
		}
		return cs.NewScalar().SetBigInt(acc), nil
	})
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	coeff := cs.NewScalar().SetOne()
	two := cs.NewScalar().SetUint64(2)
	lc := frontend.LinearCombination{}
	for i := range bits {
		lc = lc.AddTerm(coeff, bits[i].Var)
		coeff = coeff.Clone().Mul(coeff, two)
	}
	lc = lc.AddTerm(negOne, n.Var)
	cs.Enforce(lc, lcSingle(cs, cs.One()), frontend.LinearCombination{})
	return n, nil
}
