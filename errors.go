package nova

import (
	"errors"

	"github.com/giuliop/nova/frontend"
	"github.com/giuliop/nova/r1cs"
)

var (
	// ErrInvalidStepCircuitIO means a step circuit allocated public inputs
	// of its own, breaking the two-slot IO layout of the augmented circuit.
	ErrInvalidStepCircuitIO = errors.New("nova: step circuit allocates public inputs")

	// ErrInvalidInitialInputLength means an initial input vector does not
	// match the step circuit's arity.
	ErrInvalidInitialInputLength = errors.New("nova: initial input length does not match arity")

	// ErrProofVerify means a proof failed verification.
	ErrProofVerify = errors.New("nova: proof verification failed")

	// ErrUnSat is surfaced when constraint satisfaction fails.
	ErrUnSat = r1cs.ErrUnSat

	// ErrAssignmentMissing is surfaced when circuit synthesis lacks a
	// required witness value.
	ErrAssignmentMissing = frontend.ErrAssignmentMissing
)
