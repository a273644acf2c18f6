package provider

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/sha3"

	"github.com/giuliop/nova/engine"
)

// Pedersen vector commitments over either cycle curve: a commitment to v
// with blinding factor b is sum_i v[i]*G[i] + b*H. The generators are
// derived deterministically from a domain-separation label, so independent
// setups with the same label agree.

// pedersenKey holds the vector generators and the blinding generator.
type pedersenKey struct {
	gens []engine.Point
	h    engine.Point
}

func (k *pedersenKey) Len() int { return len(k.gens) }

func marshalPedersenKey(k *pedersenKey) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, uint64(len(k.gens)))
	for _, g := range k.gens {
		out = append(out, g.Bytes()...)
	}
	out = append(out, k.h.Bytes()...)
	return out
}

func unmarshalPedersenKey(data []byte, newPoint func() engine.Point, pointLen int) (*pedersenKey, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("error decoding commitment key: truncated")
	}
	n := int(binary.BigEndian.Uint64(data[:8]))
	data = data[8:]
	if len(data) != (n+1)*pointLen {
		return nil, fmt.Errorf("error decoding commitment key: got %d bytes, want %d", len(data), (n+1)*pointLen)
	}
	k := &pedersenKey{gens: make([]engine.Point, n)}
	for i := 0; i < n; i++ {
		p, err := newPoint().SetBytes(data[i*pointLen : (i+1)*pointLen])
		if err != nil {
			return nil, err
		}
		k.gens[i] = p
	}
	h, err := newPoint().SetBytes(data[n*pointLen:])
	if err != nil {
		return nil, err
	}
	k.h = h
	return k, nil
}

// derandomize is the shared unblinding step c - blind*H.
func derandomize(newPoint func() engine.Point, dk engine.Point, c engine.Point, blind engine.Scalar) engine.Point {
	contrib := newPoint().ScalarMul(dk, blind)
	contrib.Neg(contrib)
	return newPoint().Add(c, contrib)
}

// bn254CommitmentEngine commits on BN254 G1 with gnark-crypto's multiexp.
type bn254CommitmentEngine struct{}

func (ce *bn254CommitmentEngine) Setup(label []byte, n int) engine.CommitmentKey {
	dst := []byte("nova.pedersen.bn254")
	k := &pedersenKey{gens: make([]engine.Point, n)}
	for i := 0; i <= n; i++ {
		msg := make([]byte, len(label)+8)
		copy(msg, label)
		binary.BigEndian.PutUint64(msg[len(label):], uint64(i))
		g, err := bn254.HashToG1(msg, dst)
		if err != nil {
			panic(fmt.Sprintf("bn254 generator derivation: %v", err))
		}
		p := &bn254Point{v: g}
		if i < n {
			k.gens[i] = p
		} else {
			k.h = p
		}
	}
	return k
}

func (ce *bn254CommitmentEngine) Commit(ck engine.CommitmentKey, v []engine.Scalar, blind engine.Scalar) engine.Point {
	k := ck.(*pedersenKey)
	if len(v) > len(k.gens) {
		panic(fmt.Sprintf("pedersen commit: %d values for %d generators", len(v), len(k.gens)))
	}
	points := make([]bn254.G1Affine, len(v)+1)
	scalars := make([]fr.Element, len(v)+1)
	for i, e := range v {
		points[i].Set(&k.gens[i].(*bn254Point).v)
		scalars[i].Set(&e.(*frElement).v)
	}
	points[len(v)].Set(&k.h.(*bn254Point).v)
	scalars[len(v)].Set(&blind.(*frElement).v)
	acc := bn254MultiExp(points, scalars)
	res := &bn254Point{}
	res.v.FromJacobian(&acc)
	return res
}

func (ce *bn254CommitmentEngine) DerandKey(ck engine.CommitmentKey) engine.Point {
	return ck.(*pedersenKey).h.Clone()
}

func (ce *bn254CommitmentEngine) Derandomize(dk engine.Point, c engine.Point, blind engine.Scalar) engine.Point {
	return derandomize(NewBN254Point, dk, c, blind)
}

func (ce *bn254CommitmentEngine) MarshalKey(ck engine.CommitmentKey) []byte {
	return marshalPedersenKey(ck.(*pedersenKey))
}

func (ce *bn254CommitmentEngine) UnmarshalKey(data []byte) (engine.CommitmentKey, error) {
	return unmarshalPedersenKey(data, NewBN254Point, bn254.SizeOfG1AffineCompressed)
}

// grumpkinCommitmentEngine commits on Grumpkin with the local bucket msm.
type grumpkinCommitmentEngine struct{}

func (ce *grumpkinCommitmentEngine) Setup(label []byte, n int) engine.CommitmentKey {
	k := &pedersenKey{gens: make([]engine.Point, n)}
	for i := 0; i <= n; i++ {
		p := hashToGrumpkin(label, uint64(i))
		if i < n {
			k.gens[i] = p
		} else {
			k.h = p
		}
	}
	return k
}

// hashToGrumpkin derives a curve point by try-and-increment over candidate
// x-coordinates expanded from the label.
func hashToGrumpkin(label []byte, index uint64) *grumpkinPoint {
	for ctr := uint64(0); ; ctr++ {
		h := sha3.New256()
		h.Write([]byte("nova.pedersen.grumpkin"))
		h.Write(label)
		var buf [16]byte
		binary.BigEndian.PutUint64(buf[:8], index)
		binary.BigEndian.PutUint64(buf[8:], ctr)
		h.Write(buf[:])
		var x fr.Element
		x.SetBytes(h.Sum(nil))
		var y2 fr.Element
		y2.Square(&x).Mul(&y2, &x)
		y2.Add(&y2, &grumpkinB)
		var y fr.Element
		if y.Sqrt(&y2) == nil {
			continue
		}
		p := &grumpkinPoint{}
		p.x.Set(&x)
		p.y.Set(&y)
		return p
	}
}

func (ce *grumpkinCommitmentEngine) Commit(ck engine.CommitmentKey, v []engine.Scalar, blind engine.Scalar) engine.Point {
	k := ck.(*pedersenKey)
	if len(v) > len(k.gens) {
		panic(fmt.Sprintf("pedersen commit: %d values for %d generators", len(v), len(k.gens)))
	}
	points := make([]*grumpkinJac, 0, len(v)+1)
	scalars := make([]*big.Int, 0, len(v)+1)
	for i, e := range v {
		points = append(points, k.gens[i].(*grumpkinPoint).jac())
		scalars = append(scalars, e.(*fpElement).v.BigInt(new(big.Int)))
	}
	points = append(points, k.h.(*grumpkinPoint).jac())
	scalars = append(scalars, blind.(*fpElement).v.BigInt(new(big.Int)))
	acc := grumpkinMultiExp(points, scalars)
	res := &grumpkinPoint{}
	return res.fromJac(&acc)
}

func (ce *grumpkinCommitmentEngine) DerandKey(ck engine.CommitmentKey) engine.Point {
	return ck.(*pedersenKey).h.Clone()
}

func (ce *grumpkinCommitmentEngine) Derandomize(dk engine.Point, c engine.Point, blind engine.Scalar) engine.Point {
	return derandomize(NewGrumpkinPoint, dk, c, blind)
}

func (ce *grumpkinCommitmentEngine) MarshalKey(ck engine.CommitmentKey) []byte {
	return marshalPedersenKey(ck.(*pedersenKey))
}

func (ce *grumpkinCommitmentEngine) UnmarshalKey(data []byte) (engine.CommitmentKey, error) {
	return unmarshalPedersenKey(data, NewGrumpkinPoint, 2*fr.Bytes)
}
