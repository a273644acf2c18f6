// Package engine defines the contracts the folding engine expects from its
// cryptographic collaborators: a pair of elliptic-curve engines forming a
// cycle, a homomorphic vector commitment scheme, and a random oracle used as
// a Fiat-Shamir transcript. Concrete implementations live in the provider
// package.
package engine

import "math/big"

// Scalar is a prime-field element. Implementations mutate the receiver and
// return it, so calls chain the way gnark-crypto field elements do. Binary
// operations expect both operands to belong to the receiver's field.
type Scalar interface {
	Add(a, b Scalar) Scalar
	Sub(a, b Scalar) Scalar
	Mul(a, b Scalar) Scalar
	Neg(a Scalar) Scalar
	Inverse(a Scalar) Scalar
	Set(a Scalar) Scalar
	SetZero() Scalar
	SetOne() Scalar
	SetUint64(v uint64) Scalar
	SetBigInt(v *big.Int) Scalar
	// SetBytes interprets data as a big-endian integer reduced into the field.
	SetBytes(data []byte) Scalar
	// SetRandom draws a uniform element from crypto/rand.
	SetRandom() (Scalar, error)
	BigInt() *big.Int
	// Bytes returns the 32-byte big-endian canonical encoding.
	Bytes() []byte
	IsZero() bool
	Equal(a Scalar) bool
	Clone() Scalar
	String() string
}

// Point is a group element of one of the cycle curves. The affine
// coordinates live in the curve's base field; scalar multiplication takes a
// scalar of the curve's scalar field.
type Point interface {
	Add(a, b Point) Point
	Neg(a Point) Point
	ScalarMul(p Point, s Scalar) Point
	Set(a Point) Point
	SetInfinity() Point
	IsInfinity() bool
	Equal(a Point) bool
	Clone() Point
	// Coordinates returns the affine coordinates as base-field elements.
	// The point at infinity reports (0, 0, true).
	Coordinates() (x, y Scalar, infinity bool)
	Bytes() []byte
	SetBytes(data []byte) (Point, error)
}

// CommitmentKey holds the generators of a Pedersen-style commitment scheme.
type CommitmentKey interface {
	Len() int
}

// CommitmentEngine is a homomorphic vector commitment scheme with an
// explicit blinding generator, so commitments can later be derandomized.
type CommitmentEngine interface {
	// Setup derives a key of n deterministic generators plus a blinding
	// generator from a domain-separation label.
	Setup(label []byte, n int) CommitmentKey
	// Commit returns sum_i v[i]*G[i] + blind*H.
	Commit(ck CommitmentKey, v []Scalar, blind Scalar) Point
	// DerandKey extracts the blinding generator H.
	DerandKey(ck CommitmentKey) Point
	// Derandomize removes a known blinding contribution: c - blind*H.
	Derandomize(dk Point, c Point, blind Scalar) Point
	MarshalKey(ck CommitmentKey) []byte
	UnmarshalKey(data []byte) (CommitmentKey, error)
}

// RO is a random oracle absorbing base-field elements and squeezing a
// truncated digest interpreted in the scalar field. The number of absorbed
// elements is fixed at construction and enforced; the absorb schedule is
// part of the transcript format.
type RO interface {
	Absorb(e Scalar)
	// Squeeze returns the numBits low-order bits of the sponge output as a
	// scalar-field element; the high-order bits are dropped.
	Squeeze(numBits int) Scalar
}

// ROConstants parameterizes the Poseidon-style sponge permutation over one
// field. The same constants drive the native sponge and its in-circuit
// synthesis, which must agree bit for bit.
type ROConstants struct {
	Width         int
	FullRounds    int
	PartialRounds int
	// RoundConstants holds Width*(FullRounds+PartialRounds) elements.
	RoundConstants []Scalar
	// MDS is the Width x Width mixing matrix.
	MDS [][]Scalar
}

// Bytes returns a canonical encoding of the constants, used to bind them
// into the public-parameters digest.
func (c *ROConstants) Bytes() []byte {
	out := make([]byte, 0, 3+len(c.RoundConstants)*32+c.Width*c.Width*32)
	out = append(out, byte(c.Width), byte(c.FullRounds), byte(c.PartialRounds))
	for _, rc := range c.RoundConstants {
		out = append(out, rc.Bytes()...)
	}
	for _, row := range c.MDS {
		for _, m := range row {
			out = append(out, m.Bytes()...)
		}
	}
	return out
}

// Engine bundles the two fields, the group, the commitment scheme, and the
// random-oracle family of one side of the curve cycle. For a cycle (E1, E2),
// E1.ScalarModulus() equals E2.BaseModulus() and vice versa.
type Engine interface {
	Name() string
	NewScalar() Scalar
	NewBase() Scalar
	NewPoint() Point
	ScalarModulus() *big.Int
	BaseModulus() *big.Int
	// CurveB3 is 3*b for the curve equation y^2 = x^3 + b, as a base-field
	// element; the complete in-circuit point formulas need it.
	CurveB3() Scalar
	CommitmentEngine() CommitmentEngine
	// ROConstants returns the sponge constants over the engine's base field.
	ROConstants() ROConstants
	// NewRO builds an oracle absorbing numAbsorbs base-field elements and
	// squeezing scalar-field digests.
	NewRO(consts ROConstants, numAbsorbs int) RO
}

// CommitmentKeyHint reports the minimum number of generators a downstream
// consumer (typically the leaf SNARK) needs for a shape with the given
// number of constraints and variables.
type CommitmentKeyHint func(numCons, numVars int) int

// DefaultCkHint requires nothing beyond what the shape itself needs.
func DefaultCkHint() CommitmentKeyHint {
	return func(numCons, numVars int) int { return 0 }
}

// ScalarAsBase reinterprets a scalar-field element of e as a base-field
// element, reducing modulo the base modulus. Values produced by truncated
// squeezes fit both fields, so the reinterpretation is lossless for them.
func ScalarAsBase(e Engine, s Scalar) Scalar {
	return e.NewBase().SetBigInt(s.BigInt())
}

// BaseAsScalar is the inverse reinterpretation.
func BaseAsScalar(e Engine, b Scalar) Scalar {
	return e.NewScalar().SetBigInt(b.BigInt())
}
