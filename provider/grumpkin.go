package provider

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/giuliop/nova/engine"
)

// Grumpkin is the curve y^2 = x^3 - 17 over the bn254 scalar field; its
// group order is the bn254 base-field modulus, closing the cycle. The curve
// has cofactor one, so every finite point on the equation is in the group.

// grumpkinB is the constant -17.
var grumpkinB fr.Element

func init() {
	grumpkinB.SetUint64(17)
	grumpkinB.Neg(&grumpkinB)
}

// grumpkinJac is a Jacobian-coordinates Grumpkin point; Z == 0 encodes the
// point at infinity.
type grumpkinJac struct {
	X, Y, Z fr.Element
}

func (p *grumpkinJac) setInfinity() *grumpkinJac {
	p.X.SetOne()
	p.Y.SetOne()
	p.Z.SetZero()
	return p
}

func (p *grumpkinJac) isInfinity() bool { return p.Z.IsZero() }

func (p *grumpkinJac) fromAffine(x, y *fr.Element, inf bool) *grumpkinJac {
	if inf {
		return p.setInfinity()
	}
	p.X.Set(x)
	p.Y.Set(y)
	p.Z.SetOne()
	return p
}

func (p *grumpkinJac) toAffine() (x, y fr.Element, inf bool) {
	if p.isInfinity() {
		return x, y, true
	}
	var zInv, zInv2, zInv3 fr.Element
	zInv.Inverse(&p.Z)
	zInv2.Square(&zInv)
	zInv3.Mul(&zInv2, &zInv)
	x.Mul(&p.X, &zInv2)
	y.Mul(&p.Y, &zInv3)
	return x, y, false
}

func (p *grumpkinJac) set(a *grumpkinJac) *grumpkinJac {
	p.X.Set(&a.X)
	p.Y.Set(&a.Y)
	p.Z.Set(&a.Z)
	return p
}

// double sets p = 2a using the a=0 Jacobian doubling formulas.
func (p *grumpkinJac) double(a *grumpkinJac) *grumpkinJac {
	if a.isInfinity() {
		return p.set(a)
	}
	var A, B, C, D, E, F, t fr.Element
	A.Square(&a.X)
	B.Square(&a.Y)
	C.Square(&B)
	// D = 2*((X+B)^2 - A - C)
	D.Add(&a.X, &B).Square(&D)
	D.Sub(&D, &A).Sub(&D, &C)
	D.Double(&D)
	// E = 3*A
	E.Double(&A).Add(&E, &A)
	F.Square(&E)
	// X3 = F - 2*D
	var x3, y3, z3 fr.Element
	x3.Double(&D)
	x3.Sub(&F, &x3)
	// Y3 = E*(D - X3) - 8*C
	t.Sub(&D, &x3)
	y3.Mul(&E, &t)
	t.Double(&C).Double(&t).Double(&t)
	y3.Sub(&y3, &t)
	// Z3 = 2*Y*Z
	z3.Mul(&a.Y, &a.Z)
	z3.Double(&z3)
	p.X.Set(&x3)
	p.Y.Set(&y3)
	p.Z.Set(&z3)
	return p
}

// add sets p = a + b using the general Jacobian addition formulas.
func (p *grumpkinJac) add(a, b *grumpkinJac) *grumpkinJac {
	if a.isInfinity() {
		return p.set(b)
	}
	if b.isInfinity() {
		return p.set(a)
	}
	var z1z1, z2z2, u1, u2, s1, s2 fr.Element
	z1z1.Square(&a.Z)
	z2z2.Square(&b.Z)
	u1.Mul(&a.X, &z2z2)
	u2.Mul(&b.X, &z1z1)
	s1.Mul(&a.Y, &b.Z).Mul(&s1, &z2z2)
	s2.Mul(&b.Y, &a.Z).Mul(&s2, &z1z1)
	if u1.Equal(&u2) {
		if s1.Equal(&s2) {
			return p.double(a)
		}
		return p.setInfinity()
	}
	var h, i, j, r, v, t fr.Element
	h.Sub(&u2, &u1)
	i.Double(&h).Square(&i)
	j.Mul(&h, &i)
	r.Sub(&s2, &s1).Double(&r)
	v.Mul(&u1, &i)
	var x3, y3, z3 fr.Element
	x3.Square(&r)
	x3.Sub(&x3, &j)
	t.Double(&v)
	x3.Sub(&x3, &t)
	y3.Sub(&v, &x3).Mul(&y3, &r)
	t.Mul(&s1, &j).Double(&t)
	y3.Sub(&y3, &t)
	z3.Add(&a.Z, &b.Z).Square(&z3)
	z3.Sub(&z3, &z1z1).Sub(&z3, &z2z2)
	z3.Mul(&z3, &h)
	p.X.Set(&x3)
	p.Y.Set(&y3)
	p.Z.Set(&z3)
	return p
}

// scalarMul sets p = s*a by double-and-add over the bits of s.
func (p *grumpkinJac) scalarMul(a *grumpkinJac, s *big.Int) *grumpkinJac {
	var acc grumpkinJac
	acc.setInfinity()
	var base grumpkinJac
	base.set(a)
	for i := s.BitLen() - 1; i >= 0; i-- {
		acc.double(&acc)
		if s.Bit(i) == 1 {
			acc.add(&acc, &base)
		}
	}
	return p.set(&acc)
}

const grumpkinMSMWindow = 8

// grumpkinMultiExp computes sum_i scalars[i]*points[i] with a fixed-window
// bucket method.
func grumpkinMultiExp(points []*grumpkinJac, scalars []*big.Int) grumpkinJac {
	var acc grumpkinJac
	acc.setInfinity()
	maxBits := 0
	for _, s := range scalars {
		if s.BitLen() > maxBits {
			maxBits = s.BitLen()
		}
	}
	if maxBits == 0 {
		return acc
	}
	numWindows := (maxBits + grumpkinMSMWindow - 1) / grumpkinMSMWindow
	var buckets [1 << grumpkinMSMWindow]grumpkinJac
	for w := numWindows - 1; w >= 0; w-- {
		for i := 0; i < grumpkinMSMWindow; i++ {
			acc.double(&acc)
		}
		for i := range buckets {
			buckets[i].setInfinity()
		}
		for i, s := range scalars {
			d := windowDigit(s, w)
			if d != 0 {
				buckets[d].add(&buckets[d], points[i])
			}
		}
		var running, sum grumpkinJac
		running.setInfinity()
		sum.setInfinity()
		for d := len(buckets) - 1; d >= 1; d-- {
			running.add(&running, &buckets[d])
			sum.add(&sum, &running)
		}
		acc.add(&acc, &sum)
	}
	return acc
}

func windowDigit(s *big.Int, w int) int {
	d := 0
	for i := 0; i < grumpkinMSMWindow; i++ {
		if s.Bit(w*grumpkinMSMWindow+i) == 1 {
			d |= 1 << i
		}
	}
	return d
}

// grumpkinPoint is an affine Grumpkin point implementing engine.Point.
type grumpkinPoint struct {
	x, y fr.Element
	inf  bool
}

// NewGrumpkinPoint returns the Grumpkin point at infinity.
func NewGrumpkinPoint() engine.Point { return &grumpkinPoint{inf: true} }

func (p *grumpkinPoint) jac() *grumpkinJac {
	var j grumpkinJac
	return j.fromAffine(&p.x, &p.y, p.inf)
}

func (p *grumpkinPoint) fromJac(j *grumpkinJac) *grumpkinPoint {
	p.x, p.y, p.inf = j.toAffine()
	return p
}

func (p *grumpkinPoint) Add(a, b engine.Point) engine.Point {
	var j grumpkinJac
	j.add(a.(*grumpkinPoint).jac(), b.(*grumpkinPoint).jac())
	return p.fromJac(&j)
}

func (p *grumpkinPoint) Neg(a engine.Point) engine.Point {
	ap := a.(*grumpkinPoint)
	p.x.Set(&ap.x)
	p.y.Neg(&ap.y)
	p.inf = ap.inf
	return p
}

func (p *grumpkinPoint) ScalarMul(q engine.Point, s engine.Scalar) engine.Point {
	var j grumpkinJac
	j.scalarMul(q.(*grumpkinPoint).jac(), s.(*fpElement).v.BigInt(new(big.Int)))
	return p.fromJac(&j)
}

func (p *grumpkinPoint) Set(a engine.Point) engine.Point {
	ap := a.(*grumpkinPoint)
	p.x.Set(&ap.x)
	p.y.Set(&ap.y)
	p.inf = ap.inf
	return p
}

func (p *grumpkinPoint) SetInfinity() engine.Point {
	p.x.SetZero()
	p.y.SetZero()
	p.inf = true
	return p
}

func (p *grumpkinPoint) IsInfinity() bool { return p.inf }

func (p *grumpkinPoint) Equal(a engine.Point) bool {
	ap := a.(*grumpkinPoint)
	if p.inf || ap.inf {
		return p.inf == ap.inf
	}
	return p.x.Equal(&ap.x) && p.y.Equal(&ap.y)
}

func (p *grumpkinPoint) Clone() engine.Point {
	c := &grumpkinPoint{inf: p.inf}
	c.x.Set(&p.x)
	c.y.Set(&p.y)
	return c
}

func (p *grumpkinPoint) Coordinates() (engine.Scalar, engine.Scalar, bool) {
	x := &frElement{}
	y := &frElement{}
	if p.inf {
		return x, y, true
	}
	x.v.Set(&p.x)
	y.v.Set(&p.y)
	return x, y, false
}

// Bytes encodes the point as x||y in big-endian form; the point at infinity
// is all zeroes, which is off-curve and therefore unambiguous.
func (p *grumpkinPoint) Bytes() []byte {
	out := make([]byte, 2*fr.Bytes)
	if p.inf {
		return out
	}
	xb := p.x.Bytes()
	yb := p.y.Bytes()
	copy(out[:fr.Bytes], xb[:])
	copy(out[fr.Bytes:], yb[:])
	return out
}

func (p *grumpkinPoint) SetBytes(data []byte) (engine.Point, error) {
	if len(data) != 2*fr.Bytes {
		return nil, fmt.Errorf("error decoding grumpkin point: got %d bytes, want %d", len(data), 2*fr.Bytes)
	}
	allZero := true
	for _, b := range data {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		p.SetInfinity()
		return p, nil
	}
	p.x.SetBytes(data[:fr.Bytes])
	p.y.SetBytes(data[fr.Bytes:])
	p.inf = false
	if !isOnGrumpkin(&p.x, &p.y) {
		return nil, fmt.Errorf("error decoding grumpkin point: not on curve")
	}
	return p, nil
}

func isOnGrumpkin(x, y *fr.Element) bool {
	var lhs, rhs fr.Element
	lhs.Square(y)
	rhs.Square(x).Mul(&rhs, x)
	rhs.Add(&rhs, &grumpkinB)
	return lhs.Equal(&rhs)
}

// GrumpkinEngine is the secondary side of the cycle: scalar field Fp, base
// field Fr, group Grumpkin.
type GrumpkinEngine struct{}

// NewGrumpkinEngine returns the Grumpkin engine.
func NewGrumpkinEngine() engine.Engine { return &GrumpkinEngine{} }

func (e *GrumpkinEngine) Name() string             { return "grumpkin" }
func (e *GrumpkinEngine) NewScalar() engine.Scalar { return &fpElement{} }
func (e *GrumpkinEngine) NewBase() engine.Scalar   { return &frElement{} }
func (e *GrumpkinEngine) NewPoint() engine.Point   { return &grumpkinPoint{inf: true} }
func (e *GrumpkinEngine) ScalarModulus() *big.Int  { return fp.Modulus() }
func (e *GrumpkinEngine) BaseModulus() *big.Int    { return fr.Modulus() }

func (e *GrumpkinEngine) CurveB3() engine.Scalar {
	// y^2 = x^3 - 17
	b3 := (&frElement{}).SetUint64(51)
	return b3.Neg(b3)
}

func (e *GrumpkinEngine) CommitmentEngine() engine.CommitmentEngine {
	return &grumpkinCommitmentEngine{}
}

func (e *GrumpkinEngine) ROConstants() engine.ROConstants {
	return roConstantsOver(fr.Modulus(), NewFr, "grumpkin.base")
}

func (e *GrumpkinEngine) NewRO(consts engine.ROConstants, numAbsorbs int) engine.RO {
	return newSponge(consts, numAbsorbs, NewFp)
}
