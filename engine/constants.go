package engine

import "math/big"

const (
	// BNLimbWidth is the bit width of one limb of a non-native field
	// element inside a circuit.
	BNLimbWidth = 64
	// BNNLimbs is the number of limbs representing a non-native element.
	BNNLimbs = 4
	// NumHashBits is the truncation width of squeezed transcript hashes.
	// It is strictly below the bit length of both cycle fields, so a
	// truncated hash embeds losslessly into either one.
	NumHashBits = 250
	// NumFEWithoutIOForCRHF is the number of transcript elements absorbed
	// by the state hash besides the 2*arity step values: the parameters
	// digest, the step counter, a relaxed instance (NumFERelaxedInstance)
	// and the per-step transcript commitment.
	NumFEWithoutIOForCRHF = 2 + NumFERelaxedInstance + 1

	// NumFERelaxedInstance is the absorption footprint of a relaxed
	// instance: two commitments of three coordinates each, the scalar u,
	// and the two public IO values split into limbs.
	NumFERelaxedInstance = 3 + 3 + 1 + 2*BNNLimbs
	// NumFEInstance is the absorption footprint of a non-relaxed instance:
	// one commitment and the two (hash-sized) public IO values.
	NumFEInstance = 3 + 2
)

// Limbs decomposes a scalar of e into BNNLimbs little-endian limbs of
// BNLimbWidth bits each, returned as base-field elements. This is the
// absorb encoding of a full-range non-native value.
func Limbs(e Engine, s Scalar) []Scalar {
	v := new(big.Int).Set(s.BigInt())
	mask := new(big.Int).Lsh(big.NewInt(1), BNLimbWidth)
	mask.Sub(mask, big.NewInt(1))
	limbs := make([]Scalar, BNNLimbs)
	for i := 0; i < BNNLimbs; i++ {
		limb := new(big.Int).And(v, mask)
		limbs[i] = e.NewBase().SetBigInt(limb)
		v.Rsh(v, BNLimbWidth)
	}
	return limbs
}
