package provider

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/giuliop/nova/engine"
)

// A Poseidon-style sponge: width-3 permutation with x^5 S-boxes, 8 full and
// 56 partial rounds, rate 2 and capacity 1. Round constants and the Cauchy
// MDS matrix are expanded deterministically from the field modulus, so the
// native sponge and its in-circuit synthesis share the same parameters.

const (
	spongeWidth         = 3
	spongeFullRounds    = 8
	spongePartialRounds = 56
	spongeRate          = spongeWidth - 1
)

// roConstantsOver derives the permutation constants for the field with the
// given modulus. The label separates the two fields of the cycle.
func roConstantsOver(modulus *big.Int, newElem func() engine.Scalar, label string) engine.ROConstants {
	shake := sha3.NewShake256()
	shake.Write([]byte("nova.poseidon." + label))
	shake.Write(modulus.Bytes())

	nextElem := func() engine.Scalar {
		var buf [48]byte
		if _, err := shake.Read(buf[:]); err != nil {
			panic(fmt.Sprintf("poseidon constant derivation: %v", err))
		}
		v := new(big.Int).SetBytes(buf[:])
		v.Mod(v, modulus)
		return newElem().SetBigInt(v)
	}

	numConstants := spongeWidth * (spongeFullRounds + spongePartialRounds)
	rc := make([]engine.Scalar, numConstants)
	for i := range rc {
		rc[i] = nextElem()
	}

	// Cauchy matrix m[i][j] = 1/(x_i + y_j) with x_i = i, y_j = width + j;
	// the x_i are distinct, the y_j are distinct and every x_i + y_j is
	// nonzero, so the matrix is MDS.
	mds := make([][]engine.Scalar, spongeWidth)
	for i := range mds {
		mds[i] = make([]engine.Scalar, spongeWidth)
		for j := range mds[i] {
			d := newElem().SetUint64(uint64(i + spongeWidth + j))
			mds[i][j] = newElem().Inverse(d)
		}
	}

	return engine.ROConstants{
		Width:          spongeWidth,
		FullRounds:     spongeFullRounds,
		PartialRounds:  spongePartialRounds,
		RoundConstants: rc,
		MDS:            mds,
	}
}

// Permute applies the Poseidon permutation described by consts to state in
// place. The in-circuit oracle synthesizes this exact schedule.
func Permute(consts *engine.ROConstants, state []engine.Scalar) {
	w := consts.Width
	half := consts.FullRounds / 2
	total := consts.FullRounds + consts.PartialRounds
	tmp := make([]engine.Scalar, w)
	for i := range tmp {
		tmp[i] = state[0].Clone().SetZero()
	}
	for r := 0; r < total; r++ {
		full := r < half || r >= half+consts.PartialRounds
		for j := 0; j < w; j++ {
			state[j].Add(state[j], consts.RoundConstants[r*w+j])
		}
		if full {
			for j := 0; j < w; j++ {
				sboxQuint(state[j])
			}
		} else {
			sboxQuint(state[0])
		}
		for i := 0; i < w; i++ {
			tmp[i].SetZero()
			t := state[0].Clone()
			for j := 0; j < w; j++ {
				t.Mul(consts.MDS[i][j], state[j])
				tmp[i].Add(tmp[i], t)
			}
		}
		for i := 0; i < w; i++ {
			state[i].Set(tmp[i])
		}
	}
}

func sboxQuint(x engine.Scalar) {
	sq := x.Clone().Mul(x, x)
	qu := sq.Clone().Mul(sq, sq)
	x.Mul(qu, x)
}

// sponge is the native random oracle. It buffers the absorbed elements and
// runs the permutation at squeeze time; the number of absorbed elements is
// fixed up front and bound into the initial state.
type sponge struct {
	consts     engine.ROConstants
	numAbsorbs int
	absorbed   []engine.Scalar
	newScalar  func() engine.Scalar
}

func newSponge(consts engine.ROConstants, numAbsorbs int, newScalar func() engine.Scalar) engine.RO {
	return &sponge{
		consts:     consts,
		numAbsorbs: numAbsorbs,
		absorbed:   make([]engine.Scalar, 0, numAbsorbs),
		newScalar:  newScalar,
	}
}

func (s *sponge) Absorb(e engine.Scalar) {
	if len(s.absorbed) == s.numAbsorbs {
		panic(fmt.Sprintf("ro: absorbed more than the declared %d elements", s.numAbsorbs))
	}
	s.absorbed = append(s.absorbed, e.Clone())
}

func (s *sponge) Squeeze(numBits int) engine.Scalar {
	if len(s.absorbed) != s.numAbsorbs {
		panic(fmt.Sprintf("ro: absorbed %d of %d declared elements", len(s.absorbed), s.numAbsorbs))
	}
	zero := func() engine.Scalar {
		if len(s.consts.RoundConstants) > 0 {
			return s.consts.RoundConstants[0].Clone().SetZero()
		}
		return s.newScalar()
	}
	state := make([]engine.Scalar, s.consts.Width)
	for i := range state {
		state[i] = zero()
	}
	state[s.consts.Width-1].SetUint64(uint64(s.numAbsorbs))
	for off := 0; off < len(s.absorbed); off += spongeRate {
		for j := 0; j < spongeRate && off+j < len(s.absorbed); j++ {
			state[j].Add(state[j], s.absorbed[off+j])
		}
		Permute(&s.consts, state)
	}
	if len(s.absorbed) == 0 {
		Permute(&s.consts, state)
	}
	return s.newScalar().SetBigInt(TruncateBits(state[0].BigInt(), numBits))
}

// TruncateBits keeps the numBits low-order bits of v, the canonical
// truncation shared with the in-circuit squeeze.
func TruncateBits(v *big.Int, numBits int) *big.Int {
	mask := new(big.Int).Lsh(big.NewInt(1), uint(numBits))
	mask.Sub(mask, big.NewInt(1))
	return new(big.Int).And(v, mask)
}
