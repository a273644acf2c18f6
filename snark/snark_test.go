package snark

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/provider"
	"github.com/giuliop/nova/r1cs"
)

func sampleShape(t *testing.T, e engine.Engine) (*r1cs.R1CSShape, engine.CommitmentKey) {
	t.Helper()
	one := e.NewScalar().SetOne()
	// x*x = y with y public; columns x=0, y=1, one=2, io=3
	a := []r1cs.Entry{{Row: 0, Col: 0, Coeff: one.Clone()}, {Row: 1, Col: 1, Coeff: one.Clone()}}
	b := []r1cs.Entry{{Row: 0, Col: 0, Coeff: one.Clone()}, {Row: 1, Col: 2, Coeff: one.Clone()}}
	c := []r1cs.Entry{{Row: 0, Col: 1, Coeff: one.Clone()}, {Row: 1, Col: 3, Coeff: one.Clone()}}
	s, err := r1cs.NewShape(e, 2, 2, 1, a, b, c)
	require.NoError(t, err)
	ck := e.CommitmentEngine().Setup([]byte("snark-test"), s.CommitmentKeyLen(engine.DefaultCkHint()))
	return s, ck
}

func TestDirectSNARKRoundTrip(t *testing.T) {
	e := provider.NewBN254Engine()
	shape, ck := sampleShape(t, e)

	u, w, err := shape.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)
	dw, wBlind, eBlind := w.Derandomize(e)
	du := u.Derandomize(e.CommitmentEngine(), e.CommitmentEngine().DerandKey(ck), wBlind, eBlind)

	s := NewDirectSNARK()
	pk, vk, err := s.Setup(ck, shape)
	require.NoError(t, err)

	proof, err := s.Prove(ck, pk, shape, du, dw)
	require.NoError(t, err)
	require.NoError(t, s.Verify(vk, du, proof))

	// a different instance is rejected
	other, _, err := shape.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)
	require.Error(t, s.Verify(vk, other, proof))

	// serialization round trips
	vkBack, err := s.UnmarshalVerifierKey(e, vk.Bytes())
	require.NoError(t, err)
	proofBack, err := s.UnmarshalProof(e, proof.Bytes())
	require.NoError(t, err)
	require.NoError(t, s.Verify(vkBack, du, proofBack))
}

func TestDirectSNARKRejectsBlindedWitness(t *testing.T) {
	e := provider.NewBN254Engine()
	shape, ck := sampleShape(t, e)
	u, w, err := shape.SampleRandomInstanceWitness(ck)
	require.NoError(t, err)

	s := NewDirectSNARK()
	pk, _, err := s.Setup(ck, shape)
	require.NoError(t, err)
	_, err = s.Prove(ck, pk, shape, u, w)
	require.Error(t, err)
}
