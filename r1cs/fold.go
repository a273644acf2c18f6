package r1cs

import (
	"fmt"

	"github.com/giuliop/nova/engine"
)

// Folding combines two instance/witness pairs into one relaxed pair via a
// random linear combination with challenge r. The cross term T compensates
// the mixed products so the combined pair satisfies the relaxed relation.

// CrossTerm computes T = A*z1 o B*z2 + A*z2 o B*z1 - u1*(C*z2) - C*z1 for a
// relaxed pair (U1, W1) and a non-relaxed pair (U2, W2), with
// z1 = (W1 || u1 || X1) and z2 = (W2 || 1 || X2).
func (s *R1CSShape) CrossTerm(u1 *RelaxedR1CSInstance, w1 *RelaxedR1CSWitness, u2 *R1CSInstance, w2 *R1CSWitness) ([]engine.Scalar, error) {
	if len(w1.W) != s.NumVars || len(w2.W) != s.NumVars || len(u1.X) != s.NumIO || len(u2.X) != s.NumIO {
		return nil, fmt.Errorf("%w: folding operands do not match shape", ErrUnSat)
	}
	z1 := make([]engine.Scalar, 0, s.NumVars+1+s.NumIO)
	z1 = append(z1, w1.W...)
	z1 = append(z1, u1.U)
	z1 = append(z1, u1.X...)
	z2 := make([]engine.Scalar, 0, s.NumVars+1+s.NumIO)
	z2 = append(z2, w2.W...)
	z2 = append(z2, s.e.NewScalar().SetOne())
	z2 = append(z2, u2.X...)

	az1, bz1, cz1 := s.multiply(z1)
	az2, bz2, cz2 := s.multiply(z2)

	t := make([]engine.Scalar, s.NumCons)
	tmp := s.e.NewScalar()
	for i := range t {
		t[i] = s.e.NewScalar().Mul(az1[i], bz2[i])
		tmp.Mul(az2[i], bz1[i])
		t[i].Add(t[i], tmp)
		tmp.Mul(u1.U, cz2[i])
		t[i].Sub(t[i], tmp)
		t[i].Sub(t[i], cz1[i])
	}
	return t, nil
}

// CrossTermRelaxed computes the cross term for two relaxed pairs:
// T = A*z1 o B*z2 + A*z2 o B*z1 - u1*(C*z2) - u2*(C*z1).
func (s *R1CSShape) CrossTermRelaxed(u1 *RelaxedR1CSInstance, w1 *RelaxedR1CSWitness, u2 *RelaxedR1CSInstance, w2 *RelaxedR1CSWitness) ([]engine.Scalar, error) {
	if len(w1.W) != s.NumVars || len(w2.W) != s.NumVars || len(u1.X) != s.NumIO || len(u2.X) != s.NumIO {
		return nil, fmt.Errorf("%w: folding operands do not match shape", ErrUnSat)
	}
	z1 := make([]engine.Scalar, 0, s.NumVars+1+s.NumIO)
	z1 = append(z1, w1.W...)
	z1 = append(z1, u1.U)
	z1 = append(z1, u1.X...)
	z2 := make([]engine.Scalar, 0, s.NumVars+1+s.NumIO)
	z2 = append(z2, w2.W...)
	z2 = append(z2, u2.U)
	z2 = append(z2, u2.X...)

	az1, bz1, cz1 := s.multiply(z1)
	az2, bz2, cz2 := s.multiply(z2)

	t := make([]engine.Scalar, s.NumCons)
	tmp := s.e.NewScalar()
	for i := range t {
		t[i] = s.e.NewScalar().Mul(az1[i], bz2[i])
		tmp.Mul(az2[i], bz1[i])
		t[i].Add(t[i], tmp)
		tmp.Mul(u1.U, cz2[i])
		t[i].Sub(t[i], tmp)
		tmp.Mul(u2.U, cz1[i])
		t[i].Sub(t[i], tmp)
	}
	return t, nil
}

// Fold combines the relaxed instance with a non-relaxed one:
// W = W1 + r*W2, E = E1 + r*T, u = u1 + r, X = X1 + r*X2.
func (u1 *RelaxedR1CSInstance) Fold(e engine.Engine, u2 *R1CSInstance, commT engine.Point, r engine.Scalar) *RelaxedR1CSInstance {
	out := &RelaxedR1CSInstance{
		CommW: e.NewPoint(),
		CommE: e.NewPoint(),
		U:     e.NewScalar().Add(u1.U, r),
		X:     make([]engine.Scalar, len(u1.X)),
	}
	rW := e.NewPoint().ScalarMul(u2.CommW, r)
	out.CommW.Add(u1.CommW, rW)
	rT := e.NewPoint().ScalarMul(commT, r)
	out.CommE.Add(u1.CommE, rT)
	for i := range out.X {
		out.X[i] = e.NewScalar().Mul(r, u2.X[i])
		out.X[i].Add(out.X[i], u1.X[i])
	}
	return out
}

// Fold combines the relaxed witness with a non-relaxed one, with the cross
// term and its blind folded into the error slots.
func (w1 *RelaxedR1CSWitness) Fold(e engine.Engine, w2 *R1CSWitness, t []engine.Scalar, blindT engine.Scalar, r engine.Scalar) (*RelaxedR1CSWitness, error) {
	if len(w1.W) != len(w2.W) || len(w1.E) != len(t) {
		return nil, fmt.Errorf("%w: folding witnesses of different shapes", ErrUnSat)
	}
	out := &RelaxedR1CSWitness{
		W:      make([]engine.Scalar, len(w1.W)),
		E:      make([]engine.Scalar, len(w1.E)),
		BlindW: e.NewScalar(),
		BlindE: e.NewScalar(),
	}
	for i := range out.W {
		out.W[i] = e.NewScalar().Mul(r, w2.W[i])
		out.W[i].Add(out.W[i], w1.W[i])
	}
	for i := range out.E {
		out.E[i] = e.NewScalar().Mul(r, t[i])
		out.E[i].Add(out.E[i], w1.E[i])
	}
	out.BlindW.Mul(r, w2.Blind)
	out.BlindW.Add(out.BlindW, w1.BlindW)
	out.BlindE.Mul(r, blindT)
	out.BlindE.Add(out.BlindE, w1.BlindE)
	return out, nil
}

// FoldRelaxed combines two relaxed instances:
// W = W1 + r*W2, E = E1 + r*T + r^2*E2, u = u1 + r*u2, X = X1 + r*X2.
func (u1 *RelaxedR1CSInstance) FoldRelaxed(e engine.Engine, u2 *RelaxedR1CSInstance, commT engine.Point, r engine.Scalar) *RelaxedR1CSInstance {
	r2 := e.NewScalar().Mul(r, r)
	out := &RelaxedR1CSInstance{
		CommW: e.NewPoint(),
		CommE: e.NewPoint(),
		U:     e.NewScalar().Mul(r, u2.U),
		X:     make([]engine.Scalar, len(u1.X)),
	}
	out.U.Add(out.U, u1.U)
	rW := e.NewPoint().ScalarMul(u2.CommW, r)
	out.CommW.Add(u1.CommW, rW)
	rT := e.NewPoint().ScalarMul(commT, r)
	r2E := e.NewPoint().ScalarMul(u2.CommE, r2)
	out.CommE.Add(u1.CommE, rT)
	out.CommE.Add(out.CommE, r2E)
	for i := range out.X {
		out.X[i] = e.NewScalar().Mul(r, u2.X[i])
		out.X[i].Add(out.X[i], u1.X[i])
	}
	return out
}

// FoldRelaxed combines two relaxed witnesses with the matching blinds.
func (w1 *RelaxedR1CSWitness) FoldRelaxed(e engine.Engine, w2 *RelaxedR1CSWitness, t []engine.Scalar, blindT engine.Scalar, r engine.Scalar) (*RelaxedR1CSWitness, error) {
	if len(w1.W) != len(w2.W) || len(w1.E) != len(t) || len(w1.E) != len(w2.E) {
		return nil, fmt.Errorf("%w: folding witnesses of different shapes", ErrUnSat)
	}
	r2 := e.NewScalar().Mul(r, r)
	out := &RelaxedR1CSWitness{
		W:      make([]engine.Scalar, len(w1.W)),
		E:      make([]engine.Scalar, len(w1.E)),
		BlindW: e.NewScalar(),
		BlindE: e.NewScalar(),
	}
	tmp := e.NewScalar()
	for i := range out.W {
		out.W[i] = e.NewScalar().Mul(r, w2.W[i])
		out.W[i].Add(out.W[i], w1.W[i])
	}
	for i := range out.E {
		out.E[i] = e.NewScalar().Mul(r, t[i])
		tmp.Mul(r2, w2.E[i])
		out.E[i].Add(out.E[i], tmp)
		out.E[i].Add(out.E[i], w1.E[i])
	}
	out.BlindW.Mul(r, w2.BlindW)
	out.BlindW.Add(out.BlindW, w1.BlindW)
	out.BlindE.Mul(r, blindT)
	tmp.Mul(r2, w2.BlindE)
	out.BlindE.Add(out.BlindE, tmp)
	out.BlindE.Add(out.BlindE, w1.BlindE)
	return out, nil
}
