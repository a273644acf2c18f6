package nova

import (
	"fmt"
	"time"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/logger"
	"github.com/giuliop/nova/nifs"
	"github.com/giuliop/nova/r1cs"
	"github.com/giuliop/nova/snark"
)

// CompressedProverKey holds the leaf SNARK provers for both shapes.
type CompressedProverKey struct {
	SnarkPrimary   snark.RelaxedR1CSSNARK
	SnarkSecondary snark.RelaxedR1CSSNARK
	PkPrimary      snark.ProverKey
	PkSecondary    snark.ProverKey
}

// CompressedVerifierKey is self-contained: verification of a compressed
// proof needs nothing beyond it.
type CompressedVerifierKey struct {
	E1, E2 engine.Engine

	SnarkPrimary   snark.RelaxedR1CSSNARK
	SnarkSecondary snark.RelaxedR1CSSNARK

	FArityPrimary     int
	FAritySecondary   int
	ROConstsPrimary   engine.ROConstants
	ROConstsSecondary engine.ROConstants
	PPDigest          engine.Scalar
	VkPrimary         snark.VerifierKey
	VkSecondary       snark.VerifierKey
	DkPrimary         engine.Point
	DkSecondary       engine.Point
}

// CompressedSNARK is a succinct, zero-knowledge wrapper of a recursive
// proof: the last accumulators, the folding transcripts that blend in the
// blinding instances, the derandomization scalars, and the two leaf proofs.
type CompressedSNARK struct {
	RUSecondary     *r1cs.RelaxedR1CSInstance
	RiSecondary     engine.Scalar
	LUSecondary     *r1cs.R1CSInstance
	NifsUfSecondary *nifs.NIFS

	LUrSecondary    *r1cs.RelaxedR1CSInstance
	NifsUnSecondary *nifs.NIFSRelaxed

	RUPrimary     *r1cs.RelaxedR1CSInstance
	RiPrimary     engine.Scalar
	LUrPrimary    *r1cs.RelaxedR1CSInstance
	NifsUnPrimary *nifs.NIFSRelaxed

	WitBlindPrimary   engine.Scalar
	ErrBlindPrimary   engine.Scalar
	WitBlindSecondary engine.Scalar
	ErrBlindSecondary engine.Scalar

	SnarkPrimary   snark.Proof
	SnarkSecondary snark.Proof

	ZnPrimary   []engine.Scalar
	ZnSecondary []engine.Scalar
}

// CompressedSetup derives the leaf SNARK keys for both shapes plus the
// derandomization keys.
func CompressedSetup(pp *PublicParams, s1, s2 snark.RelaxedR1CSSNARK) (*CompressedProverKey, *CompressedVerifierKey, error) {
	pkPrimary, vkPrimary, err := s1.Setup(pp.CkPrimary, pp.ShapePrimary)
	if err != nil {
		return nil, nil, err
	}
	pkSecondary, vkSecondary, err := s2.Setup(pp.CkSecondary, pp.ShapeSecondary)
	if err != nil {
		return nil, nil, err
	}
	pk := &CompressedProverKey{
		SnarkPrimary:   s1,
		SnarkSecondary: s2,
		PkPrimary:      pkPrimary,
		PkSecondary:    pkSecondary,
	}
	vk := &CompressedVerifierKey{
		E1:                pp.E1,
		E2:                pp.E2,
		SnarkPrimary:      s1,
		SnarkSecondary:    s2,
		FArityPrimary:     pp.FArityPrimary,
		FAritySecondary:   pp.FAritySecondary,
		ROConstsPrimary:   pp.ROConstsPrimary,
		ROConstsSecondary: pp.ROConstsSecondary,
		PPDigest:          pp.Digest(),
		VkPrimary:         vkPrimary,
		VkSecondary:       vkSecondary,
		DkPrimary:         pp.E1.CommitmentEngine().DerandKey(pp.CkPrimary),
		DkSecondary:       pp.E2.CommitmentEngine().DerandKey(pp.CkSecondary),
	}
	return pk, vk, nil
}

// CompressedProve compresses a recursive proof: it folds the pending
// secondary instance, blinds both sides with random satisfying relaxed
// pairs, derandomizes, and wraps each side with the leaf SNARK.
func CompressedProve(pp *PublicParams, pk *CompressedProverKey, rs *RecursiveSNARK) (*CompressedSNARK, error) {
	start := time.Now()
	digest := pp.Digest()

	// fold secondary U/W with the pending secondary u/w
	nifsUfSecondary, rUfSecondary, rWfSecondary, err := nifs.Prove(
		pp.CkSecondary, pp.ROConstsSecondary, engine.BaseAsScalar(pp.E2, digest),
		pp.ShapeSecondary, rs.RUSecondary, rs.RWSecondary, rs.LUSecondary, rs.LWSecondary)
	if err != nil {
		return nil, err
	}

	// blind the secondary side with a random satisfying relaxed pair
	lUrSecondary, lWrSecondary, err := pp.ShapeSecondary.SampleRandomInstanceWitness(pp.CkSecondary)
	if err != nil {
		return nil, err
	}
	nifsUnSecondary, rUnSecondary, rWnSecondary, err := nifs.ProveRelaxed(
		pp.CkSecondary, pp.ROConstsSecondary, engine.BaseAsScalar(pp.E2, digest),
		pp.ShapeSecondary, rUfSecondary, rWfSecondary, lUrSecondary, lWrSecondary)
	if err != nil {
		return nil, err
	}

	// blind the primary side likewise
	lUrPrimary, lWrPrimary, err := pp.ShapePrimary.SampleRandomInstanceWitness(pp.CkPrimary)
	if err != nil {
		return nil, err
	}
	nifsUnPrimary, rUnPrimary, rWnPrimary, err := nifs.ProveRelaxed(
		pp.CkPrimary, pp.ROConstsPrimary, digest,
		pp.ShapePrimary, rs.RUPrimary, rs.RWPrimary, lUrPrimary, lWrPrimary)
	if err != nil {
		return nil, err
	}

	// strip the blinds so the leaf SNARK sees deterministic commitments
	derandWnPrimary, witBlindPrimary, errBlindPrimary := rWnPrimary.Derandomize(pp.E1)
	derandUnPrimary := rUnPrimary.Derandomize(
		pp.E1.CommitmentEngine(), pp.E1.CommitmentEngine().DerandKey(pp.CkPrimary),
		witBlindPrimary, errBlindPrimary)
	derandWnSecondary, witBlindSecondary, errBlindSecondary := rWnSecondary.Derandomize(pp.E2)
	derandUnSecondary := rUnSecondary.Derandomize(
		pp.E2.CommitmentEngine(), pp.E2.CommitmentEngine().DerandKey(pp.CkSecondary),
		witBlindSecondary, errBlindSecondary)

	snarkPrimary, err := pk.SnarkPrimary.Prove(pp.CkPrimary, pk.PkPrimary, pp.ShapePrimary, derandUnPrimary, derandWnPrimary)
	if err != nil {
		return nil, fmt.Errorf("error proving primary leaf: %w", err)
	}
	snarkSecondary, err := pk.SnarkSecondary.Prove(pp.CkSecondary, pk.PkSecondary, pp.ShapeSecondary, derandUnSecondary, derandWnSecondary)
	if err != nil {
		return nil, fmt.Errorf("error proving secondary leaf: %w", err)
	}

	log := logger.Logger()
	log.Debug().Dur("took", time.Since(start)).Msg("nova compress")
	return &CompressedSNARK{
		RUSecondary:     rs.RUSecondary.Clone(),
		RiSecondary:     rs.RiSecondary.Clone(),
		LUSecondary:     rs.LUSecondary.Clone(),
		NifsUfSecondary: nifsUfSecondary,

		LUrSecondary:    lUrSecondary,
		NifsUnSecondary: nifsUnSecondary,

		RUPrimary:     rs.RUPrimary.Clone(),
		RiPrimary:     rs.RiPrimary.Clone(),
		LUrPrimary:    lUrPrimary,
		NifsUnPrimary: nifsUnPrimary,

		WitBlindPrimary:   witBlindPrimary,
		ErrBlindPrimary:   errBlindPrimary,
		WitBlindSecondary: witBlindSecondary,
		ErrBlindSecondary: errBlindSecondary,

		SnarkPrimary:   snarkPrimary,
		SnarkSecondary: snarkSecondary,

		ZnPrimary:   cloneVec(rs.ZiPrimary),
		ZnSecondary: cloneVec(rs.ZiSecondary),
	}, nil
}

// Verify checks the compressed proof and returns the final outputs.
func (c *CompressedSNARK) Verify(vk *CompressedVerifierKey, numSteps int,
	z0Primary, z0Secondary []engine.Scalar) ([]engine.Scalar, []engine.Scalar, error) {
	if numSteps == 0 {
		return nil, nil, ErrProofVerify
	}
	if len(c.LUSecondary.X) != 2 || len(c.RUPrimary.X) != 2 || len(c.RUSecondary.X) != 2 ||
		len(c.LUrPrimary.X) != 2 || len(c.LUrSecondary.X) != 2 {
		return nil, nil, ErrProofVerify
	}

	hashPrimary, hashSecondary := chainHashes(
		vk.E1, vk.E2, vk.ROConstsPrimary, vk.ROConstsSecondary, vk.PPDigest, numSteps,
		vk.FArityPrimary, vk.FAritySecondary,
		z0Primary, c.ZnPrimary, z0Secondary, c.ZnSecondary,
		c.RUSecondary, c.RiPrimary, c.RUPrimary, c.RiSecondary)

	if !hashPrimary.Equal(c.LUSecondary.X[0]) ||
		!hashSecondary.Equal(engine.ScalarAsBase(vk.E2, c.LUSecondary.X[1])) {
		return nil, nil, ErrProofVerify
	}

	// replay the three foldings
	rUfSecondary := c.NifsUfSecondary.Verify(vk.E2, vk.ROConstsSecondary,
		engine.BaseAsScalar(vk.E2, vk.PPDigest), c.RUSecondary, c.LUSecondary)
	rUnSecondary := c.NifsUnSecondary.Verify(vk.E2, vk.ROConstsSecondary,
		engine.BaseAsScalar(vk.E2, vk.PPDigest), rUfSecondary, c.LUrSecondary)
	rUnPrimary := c.NifsUnPrimary.Verify(vk.E1, vk.ROConstsPrimary,
		vk.PPDigest, c.RUPrimary, c.LUrPrimary)

	derandUnPrimary := rUnPrimary.Derandomize(
		vk.E1.CommitmentEngine(), vk.DkPrimary, c.WitBlindPrimary, c.ErrBlindPrimary)
	derandUnSecondary := rUnSecondary.Derandomize(
		vk.E2.CommitmentEngine(), vk.DkSecondary, c.WitBlindSecondary, c.ErrBlindSecondary)

	if err := vk.SnarkPrimary.Verify(vk.VkPrimary, derandUnPrimary, c.SnarkPrimary); err != nil {
		return nil, nil, ErrProofVerify
	}
	if err := vk.SnarkSecondary.Verify(vk.VkSecondary, derandUnSecondary, c.SnarkSecondary); err != nil {
		return nil, nil, ErrProofVerify
	}

	return cloneVec(c.ZnPrimary), cloneVec(c.ZnSecondary), nil
}
