// Package nova implements a recursive SNARK for incrementally verifiable
// computation based on folding: each step runs a user step function inside
// an augmented circuit that also verifies the previous folding step, over a
// two-curve cycle so each side can reason about the other's commitments.
package nova

import (
	"fmt"
	"sync"
	"time"

	"github.com/giuliop/nova/circuit"
	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
	"github.com/giuliop/nova/gadgets"
	"github.com/giuliop/nova/logger"
	"github.com/giuliop/nova/nifs"
	"github.com/giuliop/nova/r1cs"
)

// PublicParams holds the public parameters of one Nova instantiation: the
// two engines of the curve cycle, the shapes of both augmented circuits,
// the commitment keys, and the transcript constants. It is logically
// immutable; the digest is cached on first use.
type PublicParams struct {
	E1, E2 engine.Engine

	FArityPrimary   int
	FAritySecondary int

	ROConstsPrimary          engine.ROConstants
	ROConstsCircuitPrimary   engine.ROConstants
	CkPrimary                engine.CommitmentKey
	ShapePrimary             *r1cs.R1CSShape
	ROConstsSecondary        engine.ROConstants
	ROConstsCircuitSecondary engine.ROConstants
	CkSecondary              engine.CommitmentKey
	ShapeSecondary           *r1cs.R1CSShape

	AugParamsPrimary   circuit.AugmentedParams
	AugParamsSecondary circuit.AugmentedParams

	digestOnce sync.Once
	digest     engine.Scalar
}

// Setup synthesizes both augmented circuits once to derive their shapes and
// commitment keys. The hints let a downstream leaf SNARK request larger
// keys; pass engine.DefaultCkHint() otherwise.
func Setup(e1, e2 engine.Engine, cPrimary, cSecondary circuit.StepCircuit,
	ckHintPrimary, ckHintSecondary engine.CommitmentKeyHint) (*PublicParams, error) {
	start := time.Now()
	log := logger.Logger()

	augPrimary := circuit.NewAugmentedParams(true)
	augSecondary := circuit.NewAugmentedParams(false)

	roConstsPrimary := e1.ROConstants()
	roConstsSecondary := e2.ROConstants()
	// the circuit constants live in the opposite engine's base field, which
	// is the synthesizing circuit's native field
	roConstsCircuitPrimary := e2.ROConstants()
	roConstsCircuitSecondary := e1.ROConstants()

	csPrimary := frontend.NewShapeCS(e1)
	circPrimary := circuit.NewAugmentedCircuit(augPrimary, nil, cPrimary, roConstsCircuitPrimary, e2)
	if _, err := circPrimary.Synthesize(csPrimary); err != nil {
		return nil, fmt.Errorf("error synthesizing primary shape: %w", err)
	}
	shapePrimary, err := csPrimary.Shape()
	if err != nil {
		return nil, err
	}

	csSecondary := frontend.NewShapeCS(e2)
	circSecondary := circuit.NewAugmentedCircuit(augSecondary, nil, cSecondary, roConstsCircuitSecondary, e1)
	if _, err := circSecondary.Synthesize(csSecondary); err != nil {
		return nil, fmt.Errorf("error synthesizing secondary shape: %w", err)
	}
	shapeSecondary, err := csSecondary.Shape()
	if err != nil {
		return nil, err
	}

	if shapePrimary.NumIO != 2 || shapeSecondary.NumIO != 2 {
		return nil, ErrInvalidStepCircuitIO
	}

	ckPrimary := e1.CommitmentEngine().Setup([]byte("nova.ck.primary"), shapePrimary.CommitmentKeyLen(ckHintPrimary))
	ckSecondary := e2.CommitmentEngine().Setup([]byte("nova.ck.secondary"), shapeSecondary.CommitmentKeyLen(ckHintSecondary))

	pp := &PublicParams{
		E1:                       e1,
		E2:                       e2,
		FArityPrimary:            cPrimary.Arity(),
		FAritySecondary:          cSecondary.Arity(),
		ROConstsPrimary:          roConstsPrimary,
		ROConstsCircuitPrimary:   roConstsCircuitPrimary,
		CkPrimary:                ckPrimary,
		ShapePrimary:             shapePrimary,
		ROConstsSecondary:        roConstsSecondary,
		ROConstsCircuitSecondary: roConstsCircuitSecondary,
		CkSecondary:              ckSecondary,
		ShapeSecondary:           shapeSecondary,
		AugParamsPrimary:         augPrimary,
		AugParamsSecondary:       augSecondary,
	}
	// compute the digest here so later provers and verifiers share the
	// cached value
	pp.Digest()

	log.Debug().
		Int("constraints_primary", shapePrimary.NumCons).
		Int("constraints_secondary", shapeSecondary.NumCons).
		Dur("took", time.Since(start)).
		Msg("nova setup")
	return pp, nil
}

// NumConstraints returns the constraint counts of both augmented circuits.
func (pp *PublicParams) NumConstraints() (int, int) {
	return pp.ShapePrimary.NumCons, pp.ShapeSecondary.NumCons
}

// NumVariables returns the variable counts of both augmented circuits.
func (pp *PublicParams) NumVariables() (int, int) {
	return pp.ShapePrimary.NumVars, pp.ShapeSecondary.NumVars
}

// RecursiveSNARK proves the correct execution of an incremental
// computation. It carries both running accumulators plus the secondary
// side's pending instance, which the next step folds.
type RecursiveSNARK struct {
	Z0Primary   []engine.Scalar
	Z0Secondary []engine.Scalar

	RWPrimary *r1cs.RelaxedR1CSWitness
	RUPrimary *r1cs.RelaxedR1CSInstance
	RiPrimary engine.Scalar

	RWSecondary *r1cs.RelaxedR1CSWitness
	RUSecondary *r1cs.RelaxedR1CSInstance
	RiSecondary engine.Scalar

	LWSecondary *r1cs.R1CSWitness
	LUSecondary *r1cs.R1CSInstance

	I int

	ZiPrimary   []engine.Scalar
	ZiSecondary []engine.Scalar
}

// extractValues reads the assigned values out of the circuit's output
// wires.
func extractValues(nums []*gadgets.Num) ([]engine.Scalar, error) {
	out := make([]engine.Scalar, len(nums))
	for i, n := range nums {
		if n.Value == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		out[i] = n.Value.Clone()
	}
	return out, nil
}

// NewRecursiveSNARK runs the base case of both circuits.
func NewRecursiveSNARK(pp *PublicParams, cPrimary, cSecondary circuit.StepCircuit,
	z0Primary, z0Secondary []engine.Scalar) (*RecursiveSNARK, error) {
	if len(z0Primary) != pp.FArityPrimary || len(z0Secondary) != pp.FAritySecondary {
		return nil, ErrInvalidInitialInputLength
	}

	// per-step transcript blinders, fresh per proof
	riPrimary, err := pp.E1.NewScalar().SetRandom()
	if err != nil {
		return nil, err
	}
	riSecondary, err := pp.E2.NewScalar().SetRandom()
	if err != nil {
		return nil, err
	}

	digest := pp.Digest()

	// base case for the primary
	csPrimary := frontend.NewAssignment(pp.E1)
	inputsPrimary := &circuit.AugmentedInputs{
		Digest: digest,
		I:      pp.E1.NewScalar(),
		Z0:     z0Primary,
		RNext:  riPrimary,
	}
	circPrimary := circuit.NewAugmentedCircuit(pp.AugParamsPrimary, inputsPrimary, cPrimary, pp.ROConstsCircuitPrimary, pp.E2)
	ziPrimaryNums, err := circPrimary.Synthesize(csPrimary)
	if err != nil {
		return nil, err
	}
	uPrimary, wPrimary, err := csPrimary.InstanceAndWitness(pp.ShapePrimary, pp.CkPrimary)
	if err != nil {
		return nil, err
	}

	// base case for the secondary, which absorbs the primary instance
	csSecondary := frontend.NewAssignment(pp.E2)
	inputsSecondary := &circuit.AugmentedInputs{
		Digest: engine.ScalarAsBase(pp.E1, digest),
		I:      pp.E2.NewScalar(),
		Z0:     z0Secondary,
		RNext:  riSecondary,
		U2:     uPrimary,
	}
	circSecondary := circuit.NewAugmentedCircuit(pp.AugParamsSecondary, inputsSecondary, cSecondary, pp.ROConstsCircuitSecondary, pp.E1)
	ziSecondaryNums, err := circSecondary.Synthesize(csSecondary)
	if err != nil {
		return nil, err
	}
	uSecondary, wSecondary, err := csSecondary.InstanceAndWitness(pp.ShapeSecondary, pp.CkSecondary)
	if err != nil {
		return nil, err
	}

	ziPrimary, err := extractValues(ziPrimaryNums)
	if err != nil {
		return nil, err
	}
	ziSecondary, err := extractValues(ziSecondaryNums)
	if err != nil {
		return nil, err
	}

	return &RecursiveSNARK{
		Z0Primary:   cloneVec(z0Primary),
		Z0Secondary: cloneVec(z0Secondary),
		RWPrimary:   r1cs.FromR1CSWitness(pp.ShapePrimary, wPrimary),
		RUPrimary:   r1cs.FromR1CSInstance(pp.ShapePrimary, uPrimary),
		RiPrimary:   riPrimary,
		RWSecondary: r1cs.DefaultRelaxedWitness(pp.ShapeSecondary),
		RUSecondary: r1cs.DefaultRelaxedInstance(pp.ShapeSecondary),
		RiSecondary: riSecondary,
		LWSecondary: wSecondary,
		LUSecondary: uSecondary,
		I:           0,
		ZiPrimary:   ziPrimary,
		ZiSecondary: ziSecondary,
	}, nil
}

// ProveStep executes one step of the incremental computation: it folds the
// pending secondary instance, runs the primary circuit, folds the fresh
// primary instance, and runs the secondary circuit. On failure the prior
// state is left untouched.
func (s *RecursiveSNARK) ProveStep(pp *PublicParams, cPrimary, cSecondary circuit.StepCircuit) error {
	// the base case produced the artifacts for the first step already
	if s.I == 0 {
		s.I = 1
		return nil
	}
	start := time.Now()

	digest := pp.Digest()
	digestAsBase := engine.ScalarAsBase(pp.E1, digest)

	// fold the pending secondary instance into the secondary accumulator
	nifsSecondary, rUSecondary, rWSecondary, err := nifs.Prove(
		pp.CkSecondary, pp.ROConstsSecondary, engine.BaseAsScalar(pp.E2, digest),
		pp.ShapeSecondary, s.RUSecondary, s.RWSecondary, s.LUSecondary, s.LWSecondary)
	if err != nil {
		return err
	}

	rNextPrimary, err := pp.E1.NewScalar().SetRandom()
	if err != nil {
		return err
	}

	csPrimary := frontend.NewAssignment(pp.E1)
	inputsPrimary := &circuit.AugmentedInputs{
		Digest: digest,
		I:      pp.E1.NewScalar().SetUint64(uint64(s.I)),
		Z0:     s.Z0Primary,
		Zi:     s.ZiPrimary,
		U:      s.RUSecondary,
		Ri:     s.RiPrimary,
		RNext:  rNextPrimary,
		U2:     s.LUSecondary,
		CommT:  nifsSecondary.CommT,
	}
	circPrimary := circuit.NewAugmentedCircuit(pp.AugParamsPrimary, inputsPrimary, cPrimary, pp.ROConstsCircuitPrimary, pp.E2)
	ziPrimaryNums, err := circPrimary.Synthesize(csPrimary)
	if err != nil {
		return err
	}
	lUPrimary, lWPrimary, err := csPrimary.InstanceAndWitness(pp.ShapePrimary, pp.CkPrimary)
	if err != nil {
		return err
	}

	// fold the fresh primary instance into the primary accumulator
	nifsPrimary, rUPrimary, rWPrimary, err := nifs.Prove(
		pp.CkPrimary, pp.ROConstsPrimary, digest,
		pp.ShapePrimary, s.RUPrimary, s.RWPrimary, lUPrimary, lWPrimary)
	if err != nil {
		return err
	}

	rNextSecondary, err := pp.E2.NewScalar().SetRandom()
	if err != nil {
		return err
	}

	csSecondary := frontend.NewAssignment(pp.E2)
	inputsSecondary := &circuit.AugmentedInputs{
		Digest: digestAsBase,
		I:      pp.E2.NewScalar().SetUint64(uint64(s.I)),
		Z0:     s.Z0Secondary,
		Zi:     s.ZiSecondary,
		U:      s.RUPrimary,
		Ri:     s.RiSecondary,
		RNext:  rNextSecondary,
		U2:     lUPrimary,
		CommT:  nifsPrimary.CommT,
	}
	circSecondary := circuit.NewAugmentedCircuit(pp.AugParamsSecondary, inputsSecondary, cSecondary, pp.ROConstsCircuitSecondary, pp.E1)
	ziSecondaryNums, err := circSecondary.Synthesize(csSecondary)
	if err != nil {
		return err
	}
	lUSecondary, lWSecondary, err := csSecondary.InstanceAndWitness(pp.ShapeSecondary, pp.CkSecondary)
	if err != nil {
		return fmt.Errorf("%w: secondary synthesis failed", ErrUnSat)
	}

	ziPrimary, err := extractValues(ziPrimaryNums)
	if err != nil {
		return err
	}
	ziSecondary, err := extractValues(ziSecondaryNums)
	if err != nil {
		return err
	}

	// commit the updated state all at once
	s.ZiPrimary = ziPrimary
	s.ZiSecondary = ziSecondary
	s.LUSecondary = lUSecondary
	s.LWSecondary = lWSecondary
	s.RUPrimary = rUPrimary
	s.RWPrimary = rWPrimary
	s.RUSecondary = rUSecondary
	s.RWSecondary = rWSecondary
	s.RiPrimary = rNextPrimary
	s.RiSecondary = rNextSecondary
	s.I++

	log := logger.Logger()
	log.Debug().Int("step", s.I).Dur("took", time.Since(start)).Msg("nova prove step")
	return nil
}

// Verify checks that the accumulated state proves numSteps steps from the
// given initial inputs and returns the final outputs.
func (s *RecursiveSNARK) Verify(pp *PublicParams, numSteps int,
	z0Primary, z0Secondary []engine.Scalar) ([]engine.Scalar, []engine.Scalar, error) {
	if numSteps == 0 || s.I != numSteps {
		return nil, nil, ErrProofVerify
	}
	if !vecEqual(s.Z0Primary, z0Primary) || !vecEqual(s.Z0Secondary, z0Secondary) {
		return nil, nil, ErrProofVerify
	}
	if len(s.LUSecondary.X) != 2 || len(s.RUPrimary.X) != 2 || len(s.RUSecondary.X) != 2 {
		return nil, nil, ErrProofVerify
	}

	digest := pp.Digest()
	hashPrimary, hashSecondary := chainHashes(
		pp.E1, pp.E2, pp.ROConstsPrimary, pp.ROConstsSecondary, digest, numSteps,
		pp.FArityPrimary, pp.FAritySecondary,
		z0Primary, s.ZiPrimary, z0Secondary, s.ZiSecondary,
		s.RUSecondary, s.RiPrimary, s.RUPrimary, s.RiSecondary)

	if !hashPrimary.Equal(s.LUSecondary.X[0]) ||
		!hashSecondary.Equal(engine.ScalarAsBase(pp.E2, s.LUSecondary.X[1])) {
		return nil, nil, ErrProofVerify
	}

	if err := pp.ShapePrimary.IsSatRelaxed(pp.CkPrimary, s.RUPrimary, s.RWPrimary); err != nil {
		return nil, nil, err
	}
	if err := pp.ShapeSecondary.IsSatRelaxed(pp.CkSecondary, s.RUSecondary, s.RWSecondary); err != nil {
		return nil, nil, err
	}
	if err := pp.ShapeSecondary.IsSat(pp.CkSecondary, s.LUSecondary, s.LWSecondary); err != nil {
		return nil, nil, err
	}

	return cloneVec(s.ZiPrimary), cloneVec(s.ZiSecondary), nil
}

// Outputs returns the outputs after the last executed step.
func (s *RecursiveSNARK) Outputs() ([]engine.Scalar, []engine.Scalar) {
	return cloneVec(s.ZiPrimary), cloneVec(s.ZiSecondary)
}

// NumSteps returns the number of steps executed so far.
func (s *RecursiveSNARK) NumSteps() int { return s.I }

// chainHashes recomputes the two transcript hashes the final secondary
// instance must carry, exactly as the augmented circuits computed them.
func chainHashes(e1, e2 engine.Engine, roConstsPrimary, roConstsSecondary engine.ROConstants,
	digest engine.Scalar, numSteps, arityPrimary, aritySecondary int,
	z0Primary, ziPrimary, z0Secondary, ziSecondary []engine.Scalar,
	rUSecondary *r1cs.RelaxedR1CSInstance, riPrimary engine.Scalar,
	rUPrimary *r1cs.RelaxedR1CSInstance, riSecondary engine.Scalar,
) (engine.Scalar, engine.Scalar) {
	hasher := e2.NewRO(roConstsSecondary, engine.NumFEWithoutIOForCRHF+2*arityPrimary)
	hasher.Absorb(digest)
	hasher.Absorb(e2.NewBase().SetUint64(uint64(numSteps)))
	for _, e := range z0Primary {
		hasher.Absorb(e)
	}
	for _, e := range ziPrimary {
		hasher.Absorb(e)
	}
	rUSecondary.AbsorbInRO(e2, hasher)
	hasher.Absorb(riPrimary)

	hasher2 := e1.NewRO(roConstsPrimary, engine.NumFEWithoutIOForCRHF+2*aritySecondary)
	hasher2.Absorb(engine.ScalarAsBase(e1, digest))
	hasher2.Absorb(e1.NewBase().SetUint64(uint64(numSteps)))
	for _, e := range z0Secondary {
		hasher2.Absorb(e)
	}
	for _, e := range ziSecondary {
		hasher2.Absorb(e)
	}
	rUPrimary.AbsorbInRO(e1, hasher2)
	hasher2.Absorb(riSecondary)

	return hasher.Squeeze(engine.NumHashBits), hasher2.Squeeze(engine.NumHashBits)
}

func cloneVec(v []engine.Scalar) []engine.Scalar {
	out := make([]engine.Scalar, len(v))
	for i, e := range v {
		out[i] = e.Clone()
	}
	return out
}

func vecEqual(a, b []engine.Scalar) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
