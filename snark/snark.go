// Package snark defines the contract of the leaf SNARK that proves
// knowledge of a satisfying witness for a derandomized relaxed R1CS
// instance, and ships a transparent reference implementation.
package snark

import (
	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/r1cs"
)

// ProverKey is an opaque, serializable prover key.
type ProverKey interface {
	Bytes() []byte
}

// VerifierKey is an opaque, serializable verifier key.
type VerifierKey interface {
	Bytes() []byte
}

// Proof is an opaque, serializable proof.
type Proof interface {
	Bytes() []byte
}

// RelaxedR1CSSNARK proves knowledge of a witness for a relaxed R1CS
// instance whose commitments carry no blinding (the compression layer
// derandomizes before invoking it).
type RelaxedR1CSSNARK interface {
	// Setup derives the prover and verifier keys for one shape.
	Setup(ck engine.CommitmentKey, s *r1cs.R1CSShape) (ProverKey, VerifierKey, error)
	// Prove argues that U is satisfiable with witness W.
	Prove(ck engine.CommitmentKey, pk ProverKey, s *r1cs.R1CSShape, u *r1cs.RelaxedR1CSInstance, w *r1cs.RelaxedR1CSWitness) (Proof, error)
	// Verify checks a proof against a derandomized instance.
	Verify(vk VerifierKey, u *r1cs.RelaxedR1CSInstance, proof Proof) error
	// CkFloor reports the minimum commitment-key size this SNARK needs.
	CkFloor() engine.CommitmentKeyHint
	// UnmarshalVerifierKey decodes a verifier key over the given engine.
	UnmarshalVerifierKey(e engine.Engine, data []byte) (VerifierKey, error)
	// UnmarshalProof decodes a proof over the given engine.
	UnmarshalProof(e engine.Engine, data []byte) (Proof, error)
}
