package snark

import (
	"fmt"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/r1cs"
)

// DirectSNARK is the transparent reference leaf: the proof is the witness
// itself and verification replays the satisfiability check. It offers no
// succinctness; production deployments substitute a Spartan-style prover
// behind the same interface.
type DirectSNARK struct{}

// NewDirectSNARK returns the reference leaf SNARK.
func NewDirectSNARK() RelaxedR1CSSNARK { return &DirectSNARK{} }

type directProverKey struct{}

func (pk *directProverKey) Bytes() []byte { return nil }

// directVerifierKey carries everything verification needs: the shape and
// the commitment key.
type directVerifierKey struct {
	shape *r1cs.R1CSShape
	ck    engine.CommitmentKey
}

func (vk *directVerifierKey) Bytes() []byte {
	shapeBytes := r1cs.MarshalShape(vk.shape)
	ckBytes := vk.shape.Engine().CommitmentEngine().MarshalKey(vk.ck)
	out := make([]byte, 8, 8+len(shapeBytes)+len(ckBytes))
	putUint64(out[:8], uint64(len(shapeBytes)))
	out = append(out, shapeBytes...)
	return append(out, ckBytes...)
}

type directProof struct {
	witness *r1cs.RelaxedR1CSWitness
}

func (p *directProof) Bytes() []byte {
	return r1cs.MarshalRelaxedWitness(p.witness)
}

func putUint64(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func getUint64(src []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(src[i])
	}
	return v
}

func (s *DirectSNARK) Setup(ck engine.CommitmentKey, shape *r1cs.R1CSShape) (ProverKey, VerifierKey, error) {
	return &directProverKey{}, &directVerifierKey{shape: shape, ck: ck}, nil
}

func (s *DirectSNARK) Prove(ck engine.CommitmentKey, pk ProverKey, shape *r1cs.R1CSShape,
	u *r1cs.RelaxedR1CSInstance, w *r1cs.RelaxedR1CSWitness) (Proof, error) {
	if !w.BlindW.IsZero() || !w.BlindE.IsZero() {
		return nil, fmt.Errorf("direct snark: witness must be derandomized")
	}
	if err := shape.IsSatRelaxed(ck, u, w); err != nil {
		return nil, err
	}
	return &directProof{witness: w.Clone()}, nil
}

func (s *DirectSNARK) Verify(vk VerifierKey, u *r1cs.RelaxedR1CSInstance, proof Proof) error {
	dvk, ok := vk.(*directVerifierKey)
	if !ok {
		return fmt.Errorf("direct snark: wrong verifier key type")
	}
	dp, ok := proof.(*directProof)
	if !ok {
		return fmt.Errorf("direct snark: wrong proof type")
	}
	return dvk.shape.IsSatRelaxed(dvk.ck, u, dp.witness)
}

func (s *DirectSNARK) CkFloor() engine.CommitmentKeyHint {
	return engine.DefaultCkHint()
}

func (s *DirectSNARK) UnmarshalVerifierKey(e engine.Engine, data []byte) (VerifierKey, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("direct snark: truncated verifier key")
	}
	n := getUint64(data[:8])
	if uint64(len(data)-8) < n {
		return nil, fmt.Errorf("direct snark: truncated verifier key")
	}
	shape, err := r1cs.UnmarshalShape(e, data[8:8+n])
	if err != nil {
		return nil, err
	}
	ck, err := e.CommitmentEngine().UnmarshalKey(data[8+n:])
	if err != nil {
		return nil, err
	}
	return &directVerifierKey{shape: shape, ck: ck}, nil
}

func (s *DirectSNARK) UnmarshalProof(e engine.Engine, data []byte) (Proof, error) {
	w, err := r1cs.UnmarshalRelaxedWitness(e, data)
	if err != nil {
		return nil, err
	}
	return &directProof{witness: w}, nil
}
