// Package provider implements the engine contracts over the BN254/Grumpkin
// cycle of curves. BN254 group arithmetic and both fields come from
// gnark-crypto; the Grumpkin group is implemented here on top of
// gnark-crypto's bn254 scalar field, which is Grumpkin's base field.
package provider

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/giuliop/nova/engine"
)

// frElement wraps a bn254 scalar-field element. It serves as the scalar
// field of the BN254 engine and the base field of the Grumpkin engine.
type frElement struct {
	v fr.Element
}

// NewFr returns a zero bn254 scalar-field element.
func NewFr() engine.Scalar { return &frElement{} }

func (z *frElement) Add(a, b engine.Scalar) engine.Scalar {
	z.v.Add(&a.(*frElement).v, &b.(*frElement).v)
	return z
}

func (z *frElement) Sub(a, b engine.Scalar) engine.Scalar {
	z.v.Sub(&a.(*frElement).v, &b.(*frElement).v)
	return z
}

func (z *frElement) Mul(a, b engine.Scalar) engine.Scalar {
	z.v.Mul(&a.(*frElement).v, &b.(*frElement).v)
	return z
}

func (z *frElement) Neg(a engine.Scalar) engine.Scalar {
	z.v.Neg(&a.(*frElement).v)
	return z
}

func (z *frElement) Inverse(a engine.Scalar) engine.Scalar {
	z.v.Inverse(&a.(*frElement).v)
	return z
}

func (z *frElement) Set(a engine.Scalar) engine.Scalar {
	z.v.Set(&a.(*frElement).v)
	return z
}

func (z *frElement) SetZero() engine.Scalar {
	z.v.SetZero()
	return z
}

func (z *frElement) SetOne() engine.Scalar {
	z.v.SetOne()
	return z
}

func (z *frElement) SetUint64(v uint64) engine.Scalar {
	z.v.SetUint64(v)
	return z
}

func (z *frElement) SetBigInt(v *big.Int) engine.Scalar {
	z.v.SetBigInt(v)
	return z
}

func (z *frElement) SetBytes(data []byte) engine.Scalar {
	z.v.SetBytes(data)
	return z
}

func (z *frElement) SetRandom() (engine.Scalar, error) {
	if _, err := z.v.SetRandom(); err != nil {
		return nil, err
	}
	return z, nil
}

func (z *frElement) BigInt() *big.Int {
	return z.v.BigInt(new(big.Int))
}

func (z *frElement) Bytes() []byte {
	b := z.v.Bytes()
	return b[:]
}

func (z *frElement) IsZero() bool { return z.v.IsZero() }

func (z *frElement) Equal(a engine.Scalar) bool {
	return z.v.Equal(&a.(*frElement).v)
}

func (z *frElement) Clone() engine.Scalar {
	c := &frElement{}
	c.v.Set(&z.v)
	return c
}

func (z *frElement) String() string { return z.v.String() }

// fpElement wraps a bn254 base-field element: the base field of the BN254
// engine and the scalar field of the Grumpkin engine.
type fpElement struct {
	v fp.Element
}

// NewFp returns a zero bn254 base-field element.
func NewFp() engine.Scalar { return &fpElement{} }

func (z *fpElement) Add(a, b engine.Scalar) engine.Scalar {
	z.v.Add(&a.(*fpElement).v, &b.(*fpElement).v)
	return z
}

func (z *fpElement) Sub(a, b engine.Scalar) engine.Scalar {
	z.v.Sub(&a.(*fpElement).v, &b.(*fpElement).v)
	return z
}

func (z *fpElement) Mul(a, b engine.Scalar) engine.Scalar {
	z.v.Mul(&a.(*fpElement).v, &b.(*fpElement).v)
	return z
}

func (z *fpElement) Neg(a engine.Scalar) engine.Scalar {
	z.v.Neg(&a.(*fpElement).v)
	return z
}

func (z *fpElement) Inverse(a engine.Scalar) engine.Scalar {
	z.v.Inverse(&a.(*fpElement).v)
	return z
}

func (z *fpElement) Set(a engine.Scalar) engine.Scalar {
	z.v.Set(&a.(*fpElement).v)
	return z
}

func (z *fpElement) SetZero() engine.Scalar {
	z.v.SetZero()
	return z
}

func (z *fpElement) SetOne() engine.Scalar {
	z.v.SetOne()
	return z
}

func (z *fpElement) SetUint64(v uint64) engine.Scalar {
	z.v.SetUint64(v)
	return z
}

func (z *fpElement) SetBigInt(v *big.Int) engine.Scalar {
	z.v.SetBigInt(v)
	return z
}

func (z *fpElement) SetBytes(data []byte) engine.Scalar {
	z.v.SetBytes(data)
	return z
}

func (z *fpElement) SetRandom() (engine.Scalar, error) {
	if _, err := z.v.SetRandom(); err != nil {
		return nil, err
	}
	return z, nil
}

func (z *fpElement) BigInt() *big.Int {
	return z.v.BigInt(new(big.Int))
}

func (z *fpElement) Bytes() []byte {
	b := z.v.Bytes()
	return b[:]
}

func (z *fpElement) IsZero() bool { return z.v.IsZero() }

func (z *fpElement) Equal(a engine.Scalar) bool {
	return z.v.Equal(&a.(*fpElement).v)
}

func (z *fpElement) Clone() engine.Scalar {
	c := &fpElement{}
	c.v.Set(&z.v)
	return c
}

func (z *fpElement) String() string { return z.v.String() }

// bn254Point wraps an affine BN254 G1 element.
type bn254Point struct {
	v bn254.G1Affine
}

// NewBN254Point returns the BN254 point at infinity.
func NewBN254Point() engine.Point { return &bn254Point{} }

func (p *bn254Point) Add(a, b engine.Point) engine.Point {
	var ja, jb bn254.G1Jac
	ja.FromAffine(&a.(*bn254Point).v)
	jb.FromAffine(&b.(*bn254Point).v)
	ja.AddAssign(&jb)
	p.v.FromJacobian(&ja)
	return p
}

func (p *bn254Point) Neg(a engine.Point) engine.Point {
	p.v.Neg(&a.(*bn254Point).v)
	return p
}

func (p *bn254Point) ScalarMul(q engine.Point, s engine.Scalar) engine.Point {
	p.v.ScalarMultiplication(&q.(*bn254Point).v, s.(*frElement).v.BigInt(new(big.Int)))
	return p
}

func (p *bn254Point) Set(a engine.Point) engine.Point {
	p.v.Set(&a.(*bn254Point).v)
	return p
}

func (p *bn254Point) SetInfinity() engine.Point {
	p.v.X.SetZero()
	p.v.Y.SetZero()
	return p
}

func (p *bn254Point) IsInfinity() bool { return p.v.IsInfinity() }

func (p *bn254Point) Equal(a engine.Point) bool {
	return p.v.Equal(&a.(*bn254Point).v)
}

func (p *bn254Point) Clone() engine.Point {
	c := &bn254Point{}
	c.v.Set(&p.v)
	return c
}

func (p *bn254Point) Coordinates() (engine.Scalar, engine.Scalar, bool) {
	x := &fpElement{}
	y := &fpElement{}
	if p.v.IsInfinity() {
		return x, y, true
	}
	x.v.Set(&p.v.X)
	y.v.Set(&p.v.Y)
	return x, y, false
}

func (p *bn254Point) Bytes() []byte {
	b := p.v.Bytes()
	return b[:]
}

func (p *bn254Point) SetBytes(data []byte) (engine.Point, error) {
	if _, err := p.v.SetBytes(data); err != nil {
		return nil, fmt.Errorf("error decoding bn254 point: %w", err)
	}
	return p, nil
}

// BN254Engine is the primary side of the cycle: scalar field Fr, base field
// Fp, group BN254 G1.
type BN254Engine struct{}

// NewBN254Engine returns the BN254 engine.
func NewBN254Engine() engine.Engine { return &BN254Engine{} }

func (e *BN254Engine) Name() string              { return "bn254" }
func (e *BN254Engine) NewScalar() engine.Scalar  { return &frElement{} }
func (e *BN254Engine) NewBase() engine.Scalar    { return &fpElement{} }
func (e *BN254Engine) NewPoint() engine.Point    { return &bn254Point{} }
func (e *BN254Engine) ScalarModulus() *big.Int   { return fr.Modulus() }
func (e *BN254Engine) BaseModulus() *big.Int     { return fp.Modulus() }

func (e *BN254Engine) CurveB3() engine.Scalar {
	// y^2 = x^3 + 3
	return (&fpElement{}).SetUint64(9)
}

func (e *BN254Engine) CommitmentEngine() engine.CommitmentEngine {
	return &bn254CommitmentEngine{}
}

func (e *BN254Engine) ROConstants() engine.ROConstants {
	return roConstantsOver(fp.Modulus(), NewFp, "bn254.base")
}

func (e *BN254Engine) NewRO(consts engine.ROConstants, numAbsorbs int) engine.RO {
	return newSponge(consts, numAbsorbs, NewFr)
}

// bn254MultiExp is the gnark-crypto multi-scalar multiplication, shared by
// the commitment engine.
func bn254MultiExp(points []bn254.G1Affine, scalars []fr.Element) bn254.G1Jac {
	var acc bn254.G1Jac
	if _, err := acc.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		// the only failure mode is a length mismatch, which callers rule out
		panic(fmt.Sprintf("bn254 msm: %v", err))
	}
	return acc
}
