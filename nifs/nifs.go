// Package nifs implements the non-interactive folding scheme: it reduces
// two instance/witness pairs over the same shape to a single relaxed pair
// via a Fiat-Shamir challenge, producing a one-commitment transcript the
// verifier replays.
package nifs

import (
	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/r1cs"
)

// standard folding absorbs the setup digest, a relaxed instance, a
// non-relaxed instance and the cross-term commitment; the fully relaxed
// variant absorbs two relaxed instances.
const (
	numAbsorbs        = 1 + engine.NumFERelaxedInstance + engine.NumFEInstance + 3
	numAbsorbsRelaxed = 1 + 2*engine.NumFERelaxedInstance + 3
)

// NIFS is the transcript of one standard folding step: the commitment to
// the cross term T.
type NIFS struct {
	CommT engine.Point
}

// NIFSRelaxed is the transcript of one fully relaxed folding step.
type NIFSRelaxed struct {
	CommT engine.Point
}

func challenge(e engine.Engine, roConsts engine.ROConstants, n int, tau engine.Scalar,
	absorb1, absorb2 func(engine.RO), commT engine.Point) engine.Scalar {
	ro := e.NewRO(roConsts, n)
	ro.Absorb(engine.ScalarAsBase(e, tau))
	absorb1(ro)
	absorb2(ro)
	x, y, inf := commT.Coordinates()
	ro.Absorb(x)
	ro.Absorb(y)
	infFe := e.NewBase()
	if inf {
		infFe.SetOne()
	}
	ro.Absorb(infFe)
	return ro.Squeeze(engine.NumHashBits)
}

// Prove folds the running relaxed pair (U1, W1) with a fresh non-relaxed
// pair (U2, W2). tau is the public-parameters digest reinterpreted in the
// shape's scalar field, binding the folding transcript to the setup.
func Prove(ck engine.CommitmentKey, roConsts engine.ROConstants, tau engine.Scalar, s *r1cs.R1CSShape,
	u1 *r1cs.RelaxedR1CSInstance, w1 *r1cs.RelaxedR1CSWitness,
	u2 *r1cs.R1CSInstance, w2 *r1cs.R1CSWitness,
) (*NIFS, *r1cs.RelaxedR1CSInstance, *r1cs.RelaxedR1CSWitness, error) {
	e := s.Engine()

	t, err := s.CrossTerm(u1, w1, u2, w2)
	if err != nil {
		return nil, nil, nil, err
	}
	blindT, err := e.NewScalar().SetRandom()
	if err != nil {
		return nil, nil, nil, err
	}
	commT := e.CommitmentEngine().Commit(ck, t, blindT)

	r := challenge(e, roConsts, numAbsorbs, tau,
		func(ro engine.RO) { u1.AbsorbInRO(e, ro) },
		func(ro engine.RO) { u2.AbsorbInRO(e, ro) },
		commT)

	u := u1.Fold(e, u2, commT, r)
	w, err := w1.Fold(e, w2, t, blindT, r)
	if err != nil {
		return nil, nil, nil, err
	}
	return &NIFS{CommT: commT}, u, w, nil
}

// Verify replays the challenge derivation and returns the folded instance.
func (n *NIFS) Verify(e engine.Engine, roConsts engine.ROConstants, tau engine.Scalar,
	u1 *r1cs.RelaxedR1CSInstance, u2 *r1cs.R1CSInstance,
) *r1cs.RelaxedR1CSInstance {
	r := challenge(e, roConsts, numAbsorbs, tau,
		func(ro engine.RO) { u1.AbsorbInRO(e, ro) },
		func(ro engine.RO) { u2.AbsorbInRO(e, ro) },
		n.CommT)
	return u1.Fold(e, u2, n.CommT, r)
}

// ProveRelaxed folds two relaxed pairs. It is used by the compression layer
// to mix a freshly sampled random relaxed pair into a running one, making
// the final instance statistically independent of the computation trace.
func ProveRelaxed(ck engine.CommitmentKey, roConsts engine.ROConstants, tau engine.Scalar, s *r1cs.R1CSShape,
	u1 *r1cs.RelaxedR1CSInstance, w1 *r1cs.RelaxedR1CSWitness,
	u2 *r1cs.RelaxedR1CSInstance, w2 *r1cs.RelaxedR1CSWitness,
) (*NIFSRelaxed, *r1cs.RelaxedR1CSInstance, *r1cs.RelaxedR1CSWitness, error) {
	e := s.Engine()

	t, err := s.CrossTermRelaxed(u1, w1, u2, w2)
	if err != nil {
		return nil, nil, nil, err
	}
	blindT, err := e.NewScalar().SetRandom()
	if err != nil {
		return nil, nil, nil, err
	}
	commT := e.CommitmentEngine().Commit(ck, t, blindT)

	r := challenge(e, roConsts, numAbsorbsRelaxed, tau,
		func(ro engine.RO) { u1.AbsorbInRO(e, ro) },
		func(ro engine.RO) { u2.AbsorbInRO(e, ro) },
		commT)

	u := u1.FoldRelaxed(e, u2, commT, r)
	w, err := w1.FoldRelaxed(e, w2, t, blindT, r)
	if err != nil {
		return nil, nil, nil, err
	}
	return &NIFSRelaxed{CommT: commT}, u, w, nil
}

// Verify replays the challenge derivation and returns the folded instance.
func (n *NIFSRelaxed) Verify(e engine.Engine, roConsts engine.ROConstants, tau engine.Scalar,
	u1, u2 *r1cs.RelaxedR1CSInstance,
) *r1cs.RelaxedR1CSInstance {
	r := challenge(e, roConsts, numAbsorbsRelaxed, tau,
		func(ro engine.RO) { u1.AbsorbInRO(e, ro) },
		func(ro engine.RO) { u2.AbsorbInRO(e, ro) },
		n.CommT)
	return u1.FoldRelaxed(e, u2, n.CommT, r)
}
