package gadgets

import (
	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
)

// Point is an allocated curve point of the opposite cycle curve, whose base
// field is this circuit's native field. It is kept in affine form with an
// explicit infinity bit pinned to zero coordinates; arithmetic runs on a
// projective view with the complete a=0 addition formulas, so no step
// branches on the exceptional cases.
type Point struct {
	X, Y *Num
	Inf  *Bit
}

// AllocPoint allocates a point from affine coordinates plus infinity flag.
func AllocPoint(cs frontend.ConstraintSystem, f func() (x, y engine.Scalar, inf bool, err error)) (*Point, error) {
	x, err := AllocNum(cs, func() (engine.Scalar, error) {
		xv, _, _, err := f()
		if err != nil {
			return nil, err
		}
		return xv, nil
	})
	if err != nil {
		return nil, err
	}
	y, err := AllocNum(cs, func() (engine.Scalar, error) {
		_, yv, _, err := f()
		if err != nil {
			return nil, err
		}
		return yv, nil
	})
	if err != nil {
		return nil, err
	}
	inf, err := AllocBit(cs, func() (engine.Scalar, error) {
		_, _, iv, err := f()
		if err != nil {
			return nil, err
		}
		out := cs.NewScalar()
		if iv {
			out.SetOne()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	// pin the coordinates of the point at infinity to zero
	cs.Enforce(lcSingle(cs, inf.Var), lcSingle(cs, x.Var), frontend.LinearCombination{})
	cs.Enforce(lcSingle(cs, inf.Var), lcSingle(cs, y.Var), frontend.LinearCombination{})
	return &Point{X: x, Y: y, Inf: inf}, nil
}

// AllocInfinity allocates the point at infinity.
func AllocInfinity(cs frontend.ConstraintSystem) (*Point, error) {
	return AllocPoint(cs, func() (engine.Scalar, engine.Scalar, bool, error) {
		return cs.NewScalar(), cs.NewScalar(), true, nil
	})
}

// Absorb feeds the affine representation into the circuit oracle: x, y, and
// the infinity bit, matching the native absorption of commitments.
func (p *Point) Absorb(ro *ROCircuit) {
	ro.Absorb(p.X)
	ro.Absorb(p.Y)
	ro.Absorb(&p.Inf.Num)
}

// SelectPoint allocates cond ? a : b.
func SelectPoint(cs frontend.ConstraintSystem, cond *Bit, a, b *Point) (*Point, error) {
	x, err := Select(cs, cond, a.X, b.X)
	if err != nil {
		return nil, err
	}
	y, err := Select(cs, cond, a.Y, b.Y)
	if err != nil {
		return nil, err
	}
	infNum, err := Select(cs, cond, &a.Inf.Num, &b.Inf.Num)
	if err != nil {
		return nil, err
	}
	return &Point{X: x, Y: y, Inf: &Bit{Num: *infNum}}, nil
}

// projPoint is the internal projective view; infinity is (0, 1, 0).
type projPoint struct {
	X, Y, Z *Num
}

func scaleNum(cs frontend.ConstraintSystem, k engine.Scalar, a *Num) (*Num, error) {
	c, err := AllocNum(cs, func() (engine.Scalar, error) {
		if a.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		return cs.NewScalar().Mul(k, a.Value), nil
	})
	if err != nil {
		return nil, err
	}
	cs.Enforce(
		frontend.LinearCombination{}.AddTerm(k, a.Var),
		lcSingle(cs, cs.One()),
		lcSingle(cs, c.Var),
	)
	return c, nil
}

// toProj lifts the affine point to projective coordinates.
func (p *Point) toProj(cs frontend.ConstraintSystem) (*projPoint, error) {
	// X = x, Y = y + inf, Z = 1 - inf; valid because x = y = 0 at infinity
	y, err := AddNum(cs, p.Y, &p.Inf.Num)
	if err != nil {
		return nil, err
	}
	one, err := OneNum(cs)
	if err != nil {
		return nil, err
	}
	z, err := SubNum(cs, one, &p.Inf.Num)
	if err != nil {
		return nil, err
	}
	return &projPoint{X: p.X, Y: y, Z: z}, nil
}

// fromProj normalizes back to affine form with an infinity bit.
func fromProj(cs frontend.ConstraintSystem, p *projPoint) (*Point, error) {
	inf, err := AllocBit(cs, func() (engine.Scalar, error) {
		if p.Z.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		out := cs.NewScalar()
		if p.Z.Value.IsZero() {
			out.SetOne()
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	zInv, err := AllocNum(cs, func() (engine.Scalar, error) {
		if p.Z.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		out := cs.NewScalar()
		if !p.Z.Value.IsZero() {
			out.Inverse(p.Z.Value)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	// z * zInv = 1 - inf and z * inf = 0
	cs.Enforce(lcSingle(cs, p.Z.Var), lcSingle(cs, zInv.Var),
		frontend.LinearCombination{}.AddTerm(one, cs.One()).AddTerm(negOne, inf.Var))
	cs.Enforce(lcSingle(cs, p.Z.Var), lcSingle(cs, inf.Var), frontend.LinearCombination{})
	x, err := MulNum(cs, p.X, zInv)
	if err != nil {
		return nil, err
	}
	y, err := MulNum(cs, p.Y, zInv)
	if err != nil {
		return nil, err
	}
	return &Point{X: x, Y: y, Inf: inf}, nil
}

// projAdd is the complete projective addition for y^2 = x^3 + b curves
// (Renes-Costello-Batina, algorithm 7).
func projAdd(cs frontend.ConstraintSystem, p, q *projPoint, b3 engine.Scalar) (*projPoint, error) {
	mul := func(a, b *Num) (*Num, error) { return MulNum(cs, a, b) }
	add := func(a, b *Num) (*Num, error) { return AddNum(cs, a, b) }
	sub := func(a, b *Num) (*Num, error) { return SubNum(cs, a, b) }
	scale := func(a *Num) (*Num, error) { return scaleNum(cs, b3, a) }

	t0, err := mul(p.X, q.X)
	if err != nil {
		return nil, err
	}
	t1, err := mul(p.Y, q.Y)
	if err != nil {
		return nil, err
	}
	t2, err := mul(p.Z, q.Z)
	if err != nil {
		return nil, err
	}
	t3, err := add(p.X, p.Y)
	if err != nil {
		return nil, err
	}
	t4, err := add(q.X, q.Y)
	if err != nil {
		return nil, err
	}
	if t3, err = mul(t3, t4); err != nil {
		return nil, err
	}
	if t4, err = add(t0, t1); err != nil {
		return nil, err
	}
	if t3, err = sub(t3, t4); err != nil {
		return nil, err
	}
	if t4, err = add(p.Y, p.Z); err != nil {
		return nil, err
	}
	x3, err := add(q.Y, q.Z)
	if err != nil {
		return nil, err
	}
	if t4, err = mul(t4, x3); err != nil {
		return nil, err
	}
	if x3, err = add(t1, t2); err != nil {
		return nil, err
	}
	if t4, err = sub(t4, x3); err != nil {
		return nil, err
	}
	if x3, err = add(p.X, p.Z); err != nil {
		return nil, err
	}
	y3, err := add(q.X, q.Z)
	if err != nil {
		return nil, err
	}
	if x3, err = mul(x3, y3); err != nil {
		return nil, err
	}
	if y3, err = add(t0, t2); err != nil {
		return nil, err
	}
	if y3, err = sub(x3, y3); err != nil {
		return nil, err
	}
	if x3, err = add(t0, t0); err != nil {
		return nil, err
	}
	if t0, err = add(x3, t0); err != nil {
		return nil, err
	}
	if t2, err = scale(t2); err != nil {
		return nil, err
	}
	z3, err := add(t1, t2)
	if err != nil {
		return nil, err
	}
	if t1, err = sub(t1, t2); err != nil {
		return nil, err
	}
	if y3, err = scale(y3); err != nil {
		return nil, err
	}
	if x3, err = mul(t4, y3); err != nil {
		return nil, err
	}
	if t2, err = mul(t3, t1); err != nil {
		return nil, err
	}
	if x3, err = SubNum(cs, t2, x3); err != nil {
		return nil, err
	}
	if y3, err = mul(y3, t0); err != nil {
		return nil, err
	}
	if t1, err = mul(t1, z3); err != nil {
		return nil, err
	}
	if y3, err = add(t1, y3); err != nil {
		return nil, err
	}
	if t0, err = mul(t0, t3); err != nil {
		return nil, err
	}
	if z3, err = mul(z3, t4); err != nil {
		return nil, err
	}
	if z3, err = add(z3, t0); err != nil {
		return nil, err
	}
	return &projPoint{X: x3, Y: y3, Z: z3}, nil
}

// projDouble is the complete projective doubling (algorithm 9).
func projDouble(cs frontend.ConstraintSystem, p *projPoint, b3 engine.Scalar) (*projPoint, error) {
	mul := func(a, b *Num) (*Num, error) { return MulNum(cs, a, b) }
	add := func(a, b *Num) (*Num, error) { return AddNum(cs, a, b) }
	sub := func(a, b *Num) (*Num, error) { return SubNum(cs, a, b) }

	t0, err := mul(p.Y, p.Y)
	if err != nil {
		return nil, err
	}
	z3, err := add(t0, t0)
	if err != nil {
		return nil, err
	}
	if z3, err = add(z3, z3); err != nil {
		return nil, err
	}
	if z3, err = add(z3, z3); err != nil {
		return nil, err
	}
	t1, err := mul(p.Y, p.Z)
	if err != nil {
		return nil, err
	}
	t2, err := mul(p.Z, p.Z)
	if err != nil {
		return nil, err
	}
	if t2, err = scaleNum(cs, b3, t2); err != nil {
		return nil, err
	}
	x3, err := mul(t2, z3)
	if err != nil {
		return nil, err
	}
	y3, err := add(t0, t2)
	if err != nil {
		return nil, err
	}
	if z3, err = mul(t1, z3); err != nil {
		return nil, err
	}
	if t1, err = add(t2, t2); err != nil {
		return nil, err
	}
	if t2, err = add(t1, t2); err != nil {
		return nil, err
	}
	if t0, err = sub(t0, t2); err != nil {
		return nil, err
	}
	if y3, err = mul(t0, y3); err != nil {
		return nil, err
	}
	if y3, err = add(x3, y3); err != nil {
		return nil, err
	}
	if t1, err = mul(p.X, p.Y); err != nil {
		return nil, err
	}
	if x3, err = mul(t0, t1); err != nil {
		return nil, err
	}
	if x3, err = add(x3, x3); err != nil {
		return nil, err
	}
	return &projPoint{X: x3, Y: y3, Z: z3}, nil
}

func projSelect(cs frontend.ConstraintSystem, cond *Bit, a, b *projPoint) (*projPoint, error) {
	x, err := Select(cs, cond, a.X, b.X)
	if err != nil {
		return nil, err
	}
	y, err := Select(cs, cond, a.Y, b.Y)
	if err != nil {
		return nil, err
	}
	z, err := Select(cs, cond, a.Z, b.Z)
	if err != nil {
		return nil, err
	}
	return &projPoint{X: x, Y: y, Z: z}, nil
}

func projInfinity(cs frontend.ConstraintSystem) (*projPoint, error) {
	x, err := Zero(cs)
	if err != nil {
		return nil, err
	}
	y, err := OneNum(cs)
	if err != nil {
		return nil, err
	}
	z, err := Zero(cs)
	if err != nil {
		return nil, err
	}
	return &projPoint{X: x, Y: y, Z: z}, nil
}

// AddPoints allocates a + b.
func AddPoints(cs frontend.ConstraintSystem, a, b *Point, b3 engine.Scalar) (*Point, error) {
	pa, err := a.toProj(cs)
	if err != nil {
		return nil, err
	}
	pb, err := b.toProj(cs)
	if err != nil {
		return nil, err
	}
	sum, err := projAdd(cs, pa, pb, b3)
	if err != nil {
		return nil, err
	}
	return fromProj(cs, sum)
}

// ScalarMulBits allocates sum = bits * p with the little-endian bits of the
// scalar, by double-and-add from the top bit.
func ScalarMulBits(cs frontend.ConstraintSystem, bits []*Bit, p *Point, b3 engine.Scalar) (*Point, error) {
	base, err := p.toProj(cs)
	if err != nil {
		return nil, err
	}
	acc, err := projInfinity(cs)
	if err != nil {
		return nil, err
	}
	for i := len(bits) - 1; i >= 0; i-- {
		if acc, err = projDouble(cs, acc, b3); err != nil {
			return nil, err
		}
		sum, err := projAdd(cs, acc, base, b3)
		if err != nil {
			return nil, err
		}
		if acc, err = projSelect(cs, bits[i], sum, acc); err != nil {
			return nil, err
		}
	}
	return fromProj(cs, acc)
}
