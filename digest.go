package nova

import (
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/r1cs"
)

// The digest is a collision-resistant binding of everything a verifier
// depends on: both arities, both augmented-circuit parameter sets, all four
// random-oracle constant sets, both shapes and both commitment keys. It is
// absorbed into every step transcript, tying the whole IVC chain to one
// specific setup. The byte layout below is fixed; changing it invalidates
// existing proofs.
func (pp *PublicParams) computeDigest() engine.Scalar {
	h := sha3.New256()
	writeChunk := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	var arities [16]byte
	binary.BigEndian.PutUint64(arities[:8], uint64(pp.FArityPrimary))
	binary.BigEndian.PutUint64(arities[8:], uint64(pp.FAritySecondary))
	h.Write(arities[:])
	writeChunk(pp.AugParamsPrimary.Bytes())
	writeChunk(pp.AugParamsSecondary.Bytes())
	writeChunk(pp.ROConstsPrimary.Bytes())
	writeChunk(pp.ROConstsCircuitPrimary.Bytes())
	writeChunk(pp.ROConstsSecondary.Bytes())
	writeChunk(pp.ROConstsCircuitSecondary.Bytes())
	writeChunk(r1cs.MarshalShape(pp.ShapePrimary))
	writeChunk(r1cs.MarshalShape(pp.ShapeSecondary))
	writeChunk(pp.E1.CommitmentEngine().MarshalKey(pp.CkPrimary))
	writeChunk(pp.E2.CommitmentEngine().MarshalKey(pp.CkSecondary))

	v := new(big.Int).SetBytes(h.Sum(nil))
	mask := new(big.Int).Lsh(big.NewInt(1), engine.NumHashBits)
	mask.Sub(mask, big.NewInt(1))
	v.And(v, mask)
	return pp.E1.NewScalar().SetBigInt(v)
}

// Digest returns the cached setup digest, computing it on first use. The
// cache is initialized once and read-only afterwards, so it may be shared
// across goroutines.
func (pp *PublicParams) Digest() engine.Scalar {
	pp.digestOnce.Do(func() {
		pp.digest = pp.computeDigest()
	})
	return pp.digest.Clone()
}
