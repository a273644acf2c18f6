// Package r1cs implements the rank-1 constraint system algebra the folding
// engine works over: shapes with sparse constraint matrices, committed
// instance/witness pairs, and their relaxed generalization that is closed
// under random linear combination.
package r1cs

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/giuliop/nova/engine"
)

// ErrUnSat reports a failed satisfiability or shape-compatibility check.
var ErrUnSat = errors.New("r1cs: unsatisfiable instance")

// Entry is one nonzero coefficient of a sparse constraint matrix. Columns
// index the vector z = (W || u || X): witness variables first, then the
// scalar slot, then the public IO.
type Entry struct {
	Row   int
	Col   int
	Coeff engine.Scalar
}

// R1CSShape is an immutable constraint system: m constraints over n witness
// variables and NumIO public inputs, with sparse matrices A, B, C of width
// n + 1 + NumIO.
type R1CSShape struct {
	NumCons int
	NumVars int
	NumIO   int
	A, B, C []Entry

	e engine.Engine
}

// NewShape validates the matrices against the declared dimensions.
func NewShape(e engine.Engine, numCons, numVars, numIO int, a, b, c []Entry) (*R1CSShape, error) {
	s := &R1CSShape{
		NumCons: numCons,
		NumVars: numVars,
		NumIO:   numIO,
		A:       a,
		B:       b,
		C:       c,
		e:       e,
	}
	width := numVars + 1 + numIO
	for _, m := range [][]Entry{a, b, c} {
		for _, en := range m {
			if en.Row < 0 || en.Row >= numCons || en.Col < 0 || en.Col >= width {
				return nil, fmt.Errorf("r1cs: entry (%d, %d) outside %d x %d shape", en.Row, en.Col, numCons, width)
			}
		}
	}
	return s, nil
}

// Engine returns the engine the shape's field arithmetic lives on.
func (s *R1CSShape) Engine() engine.Engine { return s.e }

// CommitmentKeyLen returns the number of generators needed to commit to
// witness and error vectors of this shape, honoring the consumer's hint.
func (s *R1CSShape) CommitmentKeyLen(hint engine.CommitmentKeyHint) int {
	n := s.NumCons
	if s.NumVars > n {
		n = s.NumVars
	}
	if h := hint(s.NumCons, s.NumVars); h > n {
		n = h
	}
	return n
}

func matVec(e engine.Engine, entries []Entry, numRows int, z []engine.Scalar) []engine.Scalar {
	out := make([]engine.Scalar, numRows)
	for i := range out {
		out[i] = e.NewScalar()
	}
	t := e.NewScalar()
	for _, en := range entries {
		t.Mul(en.Coeff, z[en.Col])
		out[en.Row].Add(out[en.Row], t)
	}
	return out
}

// multiply evaluates A*z, B*z, C*z in parallel.
func (s *R1CSShape) multiply(z []engine.Scalar) (az, bz, cz []engine.Scalar) {
	var g errgroup.Group
	g.Go(func() error { az = matVec(s.e, s.A, s.NumCons, z); return nil })
	g.Go(func() error { bz = matVec(s.e, s.B, s.NumCons, z); return nil })
	g.Go(func() error { cz = matVec(s.e, s.C, s.NumCons, z); return nil })
	_ = g.Wait()
	return az, bz, cz
}

// R1CSInstance is a non-relaxed instance: a commitment to the witness and
// the public IO vector.
type R1CSInstance struct {
	CommW engine.Point
	X     []engine.Scalar
}

// R1CSWitness is the witness vector with the blinding factor of its
// commitment.
type R1CSWitness struct {
	W     []engine.Scalar
	Blind engine.Scalar
}

// RelaxedR1CSInstance carries the additional error-vector commitment and
// scalar u of the relaxed relation A*z o B*z = u*(C*z) + E.
type RelaxedR1CSInstance struct {
	CommW engine.Point
	CommE engine.Point
	U     engine.Scalar
	X     []engine.Scalar
}

// RelaxedR1CSWitness is the witness and error vectors with both blinds.
type RelaxedR1CSWitness struct {
	W      []engine.Scalar
	E      []engine.Scalar
	BlindW engine.Scalar
	BlindE engine.Scalar
}

func cloneScalars(v []engine.Scalar) []engine.Scalar {
	out := make([]engine.Scalar, len(v))
	for i, e := range v {
		out[i] = e.Clone()
	}
	return out
}

// Clone deep-copies the instance.
func (u *R1CSInstance) Clone() *R1CSInstance {
	return &R1CSInstance{CommW: u.CommW.Clone(), X: cloneScalars(u.X)}
}

// Clone deep-copies the witness.
func (w *R1CSWitness) Clone() *R1CSWitness {
	return &R1CSWitness{W: cloneScalars(w.W), Blind: w.Blind.Clone()}
}

// Clone deep-copies the instance.
func (u *RelaxedR1CSInstance) Clone() *RelaxedR1CSInstance {
	return &RelaxedR1CSInstance{
		CommW: u.CommW.Clone(),
		CommE: u.CommE.Clone(),
		U:     u.U.Clone(),
		X:     cloneScalars(u.X),
	}
}

// Clone deep-copies the witness.
func (w *RelaxedR1CSWitness) Clone() *RelaxedR1CSWitness {
	return &RelaxedR1CSWitness{
		W:      cloneScalars(w.W),
		E:      cloneScalars(w.E),
		BlindW: w.BlindW.Clone(),
		BlindE: w.BlindE.Clone(),
	}
}

// DefaultRelaxedInstance is the zero relaxed instance: both commitments at
// infinity, u = 0, X = 0.
func DefaultRelaxedInstance(s *R1CSShape) *RelaxedR1CSInstance {
	x := make([]engine.Scalar, s.NumIO)
	for i := range x {
		x[i] = s.e.NewScalar()
	}
	return &RelaxedR1CSInstance{
		CommW: s.e.NewPoint().SetInfinity(),
		CommE: s.e.NewPoint().SetInfinity(),
		U:     s.e.NewScalar(),
		X:     x,
	}
}

// DefaultRelaxedWitness is the zero relaxed witness.
func DefaultRelaxedWitness(s *R1CSShape) *RelaxedR1CSWitness {
	w := make([]engine.Scalar, s.NumVars)
	e := make([]engine.Scalar, s.NumCons)
	for i := range w {
		w[i] = s.e.NewScalar()
	}
	for i := range e {
		e[i] = s.e.NewScalar()
	}
	return &RelaxedR1CSWitness{W: w, E: e, BlindW: s.e.NewScalar(), BlindE: s.e.NewScalar()}
}

// FromR1CSInstance embeds a non-relaxed instance as the relaxed special
// case u = 1, E = 0.
func FromR1CSInstance(s *R1CSShape, u *R1CSInstance) *RelaxedR1CSInstance {
	return &RelaxedR1CSInstance{
		CommW: u.CommW.Clone(),
		CommE: s.e.NewPoint().SetInfinity(),
		U:     s.e.NewScalar().SetOne(),
		X:     cloneScalars(u.X),
	}
}

// FromR1CSWitness embeds a non-relaxed witness, preserving its blind.
func FromR1CSWitness(s *R1CSShape, w *R1CSWitness) *RelaxedR1CSWitness {
	e := make([]engine.Scalar, s.NumCons)
	for i := range e {
		e[i] = s.e.NewScalar()
	}
	return &RelaxedR1CSWitness{
		W:      cloneScalars(w.W),
		E:      e,
		BlindW: w.Blind.Clone(),
		BlindE: s.e.NewScalar(),
	}
}

// IsSat checks the non-relaxed relation A*z o B*z = C*z for
// z = (W || 1 || X) and the binding of the witness commitment.
func (s *R1CSShape) IsSat(ck engine.CommitmentKey, u *R1CSInstance, w *R1CSWitness) error {
	if len(w.W) != s.NumVars || len(u.X) != s.NumIO {
		return fmt.Errorf("%w: instance/witness dimensions do not match shape", ErrUnSat)
	}
	z := make([]engine.Scalar, 0, s.NumVars+1+s.NumIO)
	z = append(z, w.W...)
	z = append(z, s.e.NewScalar().SetOne())
	z = append(z, u.X...)
	az, bz, cz := s.multiply(z)
	t := s.e.NewScalar()
	for i := 0; i < s.NumCons; i++ {
		t.Mul(az[i], bz[i])
		if !t.Equal(cz[i]) {
			return fmt.Errorf("%w: constraint %d violated", ErrUnSat, i)
		}
	}
	comm := s.e.CommitmentEngine().Commit(ck, w.W, w.Blind)
	if !comm.Equal(u.CommW) {
		return fmt.Errorf("%w: witness commitment mismatch", ErrUnSat)
	}
	return nil
}

// IsSatRelaxed checks the relaxed relation A*z o B*z = u*(C*z) + E for
// z = (W || u || X) and the binding of both commitments.
func (s *R1CSShape) IsSatRelaxed(ck engine.CommitmentKey, u *RelaxedR1CSInstance, w *RelaxedR1CSWitness) error {
	if len(w.W) != s.NumVars || len(w.E) != s.NumCons || len(u.X) != s.NumIO {
		return fmt.Errorf("%w: instance/witness dimensions do not match shape", ErrUnSat)
	}
	z := make([]engine.Scalar, 0, s.NumVars+1+s.NumIO)
	z = append(z, w.W...)
	z = append(z, u.U)
	z = append(z, u.X...)
	az, bz, cz := s.multiply(z)
	left := s.e.NewScalar()
	right := s.e.NewScalar()
	for i := 0; i < s.NumCons; i++ {
		left.Mul(az[i], bz[i])
		right.Mul(u.U, cz[i])
		right.Add(right, w.E[i])
		if !left.Equal(right) {
			return fmt.Errorf("%w: constraint %d violated", ErrUnSat, i)
		}
	}
	ce := s.e.CommitmentEngine()
	if !ce.Commit(ck, w.W, w.BlindW).Equal(u.CommW) {
		return fmt.Errorf("%w: witness commitment mismatch", ErrUnSat)
	}
	if !ce.Commit(ck, w.E, w.BlindE).Equal(u.CommE) {
		return fmt.Errorf("%w: error commitment mismatch", ErrUnSat)
	}
	return nil
}

// SampleRandomInstanceWitness draws a uniformly random satisfying relaxed
// pair, used to blind a running instance before compression.
func (s *R1CSShape) SampleRandomInstanceWitness(ck engine.CommitmentKey) (*RelaxedR1CSInstance, *RelaxedR1CSWitness, error) {
	randScalar := func() (engine.Scalar, error) {
		return s.e.NewScalar().SetRandom()
	}
	w := make([]engine.Scalar, s.NumVars)
	for i := range w {
		var err error
		if w[i], err = randScalar(); err != nil {
			return nil, nil, err
		}
	}
	u, err := randScalar()
	if err != nil {
		return nil, nil, err
	}
	x := make([]engine.Scalar, s.NumIO)
	for i := range x {
		if x[i], err = randScalar(); err != nil {
			return nil, nil, err
		}
	}
	blindW, err := randScalar()
	if err != nil {
		return nil, nil, err
	}
	blindE, err := randScalar()
	if err != nil {
		return nil, nil, err
	}

	z := make([]engine.Scalar, 0, s.NumVars+1+s.NumIO)
	z = append(z, w...)
	z = append(z, u)
	z = append(z, x...)
	az, bz, cz := s.multiply(z)
	e := make([]engine.Scalar, s.NumCons)
	t := s.e.NewScalar()
	for i := range e {
		e[i] = s.e.NewScalar().Mul(az[i], bz[i])
		t.Mul(u, cz[i])
		e[i].Sub(e[i], t)
	}

	ce := s.e.CommitmentEngine()
	inst := &RelaxedR1CSInstance{
		CommW: ce.Commit(ck, w, blindW),
		CommE: ce.Commit(ck, e, blindE),
		U:     u,
		X:     x,
	}
	wit := &RelaxedR1CSWitness{W: w, E: e, BlindW: blindW, BlindE: blindE}
	return inst, wit, nil
}

// Derandomize returns a zero-blinded copy of the witness along with the
// extracted blinds.
func (w *RelaxedR1CSWitness) Derandomize(e engine.Engine) (*RelaxedR1CSWitness, engine.Scalar, engine.Scalar) {
	out := &RelaxedR1CSWitness{
		W:      cloneScalars(w.W),
		E:      cloneScalars(w.E),
		BlindW: e.NewScalar(),
		BlindE: e.NewScalar(),
	}
	return out, w.BlindW.Clone(), w.BlindE.Clone()
}

// Derandomize subtracts the known blinding contributions from both
// commitments.
func (u *RelaxedR1CSInstance) Derandomize(ce engine.CommitmentEngine, dk engine.Point, wBlind, eBlind engine.Scalar) *RelaxedR1CSInstance {
	return &RelaxedR1CSInstance{
		CommW: ce.Derandomize(dk, u.CommW, wBlind),
		CommE: ce.Derandomize(dk, u.CommE, eBlind),
		U:     u.U.Clone(),
		X:     cloneScalars(u.X),
	}
}

func boolAsBase(e engine.Engine, b bool) engine.Scalar {
	s := e.NewBase()
	if b {
		s.SetOne()
	}
	return s
}

func absorbPoint(e engine.Engine, ro engine.RO, p engine.Point) {
	x, y, inf := p.Coordinates()
	ro.Absorb(x)
	ro.Absorb(y)
	ro.Absorb(boolAsBase(e, inf))
}

// AbsorbInRO feeds the instance into a transcript over the engine's base
// field: the commitment coordinates and the two hash-sized IO values.
func (u *R1CSInstance) AbsorbInRO(e engine.Engine, ro engine.RO) {
	absorbPoint(e, ro, u.CommW)
	for _, x := range u.X {
		ro.Absorb(engine.ScalarAsBase(e, x))
	}
}

// AbsorbInRO feeds the relaxed instance into a transcript: both commitments,
// the scalar u, and the full-range IO values limb by limb.
func (u *RelaxedR1CSInstance) AbsorbInRO(e engine.Engine, ro engine.RO) {
	absorbPoint(e, ro, u.CommW)
	absorbPoint(e, ro, u.CommE)
	ro.Absorb(engine.ScalarAsBase(e, u.U))
	for _, x := range u.X {
		for _, limb := range engine.Limbs(e, x) {
			ro.Absorb(limb)
		}
	}
}
