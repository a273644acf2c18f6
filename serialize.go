package nova

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/giuliop/nova/circuit"
	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/nifs"
	"github.com/giuliop/nova/r1cs"
	"github.com/giuliop/nova/snark"
)

// Serialization follows the pre-serialized-bytes-struct pattern: each
// user-facing type converts to a flat struct of byte slices which cbor
// encodes. Engines (and leaf SNARK implementations) are ambient code, not
// data; readers supply them and the decoded values are rebuilt over them.
// The PP digest is not serialized with the public parameters; it is
// re-derived on load. The compressed verifier key carries it as a value.

const scalarLen = 32

func marshalScalars(v []engine.Scalar) [][]byte {
	out := make([][]byte, len(v))
	for i, s := range v {
		out[i] = s.Bytes()
	}
	return out
}

func unmarshalScalars(e engine.Engine, data [][]byte) ([]engine.Scalar, error) {
	out := make([]engine.Scalar, len(data))
	for i, b := range data {
		if len(b) != scalarLen {
			return nil, fmt.Errorf("nova: malformed scalar encoding")
		}
		out[i] = e.NewScalar().SetBytes(b)
	}
	return out, nil
}

type publicParamsBytes struct {
	FArityPrimary      int
	FAritySecondary    int
	AugParamsPrimary   []byte
	AugParamsSecondary []byte
	ShapePrimary       []byte
	ShapeSecondary     []byte
	CkPrimary          []byte
	CkSecondary        []byte
}

// WriteTo serializes the public parameters. The digest is omitted and
// re-derived on load.
func (pp *PublicParams) WriteTo(w io.Writer) error {
	b := publicParamsBytes{
		FArityPrimary:      pp.FArityPrimary,
		FAritySecondary:    pp.FAritySecondary,
		AugParamsPrimary:   pp.AugParamsPrimary.Bytes(),
		AugParamsSecondary: pp.AugParamsSecondary.Bytes(),
		ShapePrimary:       r1cs.MarshalShape(pp.ShapePrimary),
		ShapeSecondary:     r1cs.MarshalShape(pp.ShapeSecondary),
		CkPrimary:          pp.E1.CommitmentEngine().MarshalKey(pp.CkPrimary),
		CkSecondary:        pp.E2.CommitmentEngine().MarshalKey(pp.CkSecondary),
	}
	return cbor.NewEncoder(w).Encode(&b)
}

// ReadPublicParams rebuilds public parameters over the given engines. The
// random-oracle constants are engine-derived, so they are reconstructed
// rather than transported.
func ReadPublicParams(r io.Reader, e1, e2 engine.Engine) (*PublicParams, error) {
	var b publicParamsBytes
	if err := cbor.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("error decoding public params: %w", err)
	}
	augPrimary, err := circuit.ParseAugmentedParams(b.AugParamsPrimary)
	if err != nil {
		return nil, err
	}
	augSecondary, err := circuit.ParseAugmentedParams(b.AugParamsSecondary)
	if err != nil {
		return nil, err
	}
	shapePrimary, err := r1cs.UnmarshalShape(e1, b.ShapePrimary)
	if err != nil {
		return nil, err
	}
	shapeSecondary, err := r1cs.UnmarshalShape(e2, b.ShapeSecondary)
	if err != nil {
		return nil, err
	}
	ckPrimary, err := e1.CommitmentEngine().UnmarshalKey(b.CkPrimary)
	if err != nil {
		return nil, err
	}
	ckSecondary, err := e2.CommitmentEngine().UnmarshalKey(b.CkSecondary)
	if err != nil {
		return nil, err
	}
	pp := &PublicParams{
		E1:                       e1,
		E2:                       e2,
		FArityPrimary:            b.FArityPrimary,
		FAritySecondary:          b.FAritySecondary,
		ROConstsPrimary:          e1.ROConstants(),
		ROConstsCircuitPrimary:   e2.ROConstants(),
		CkPrimary:                ckPrimary,
		ShapePrimary:             shapePrimary,
		ROConstsSecondary:        e2.ROConstants(),
		ROConstsCircuitSecondary: e1.ROConstants(),
		CkSecondary:              ckSecondary,
		ShapeSecondary:           shapeSecondary,
		AugParamsPrimary:         augPrimary,
		AugParamsSecondary:       augSecondary,
	}
	pp.Digest()
	return pp, nil
}

type recursiveSNARKBytes struct {
	Z0Primary   [][]byte
	Z0Secondary [][]byte
	RWPrimary   []byte
	RUPrimary   []byte
	RiPrimary   []byte
	RWSecondary []byte
	RUSecondary []byte
	RiSecondary []byte
	LWSecondary []byte
	LUSecondary []byte
	I           int
	ZiPrimary   [][]byte
	ZiSecondary [][]byte
}

// WriteTo serializes the recursive SNARK state.
func (s *RecursiveSNARK) WriteTo(w io.Writer) error {
	b := recursiveSNARKBytes{
		Z0Primary:   marshalScalars(s.Z0Primary),
		Z0Secondary: marshalScalars(s.Z0Secondary),
		RWPrimary:   r1cs.MarshalRelaxedWitness(s.RWPrimary),
		RUPrimary:   r1cs.MarshalRelaxedInstance(s.RUPrimary),
		RiPrimary:   s.RiPrimary.Bytes(),
		RWSecondary: r1cs.MarshalRelaxedWitness(s.RWSecondary),
		RUSecondary: r1cs.MarshalRelaxedInstance(s.RUSecondary),
		RiSecondary: s.RiSecondary.Bytes(),
		LWSecondary: r1cs.MarshalWitness(s.LWSecondary),
		LUSecondary: r1cs.MarshalInstance(s.LUSecondary),
		I:           s.I,
		ZiPrimary:   marshalScalars(s.ZiPrimary),
		ZiSecondary: marshalScalars(s.ZiSecondary),
	}
	return cbor.NewEncoder(w).Encode(&b)
}

// ReadRecursiveSNARK rebuilds a recursive SNARK state over the engines of
// the given public parameters.
func ReadRecursiveSNARK(r io.Reader, pp *PublicParams) (*RecursiveSNARK, error) {
	var b recursiveSNARKBytes
	if err := cbor.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("error decoding recursive snark: %w", err)
	}
	z0Primary, err := unmarshalScalars(pp.E1, b.Z0Primary)
	if err != nil {
		return nil, err
	}
	z0Secondary, err := unmarshalScalars(pp.E2, b.Z0Secondary)
	if err != nil {
		return nil, err
	}
	rwPrimary, err := r1cs.UnmarshalRelaxedWitness(pp.E1, b.RWPrimary)
	if err != nil {
		return nil, err
	}
	ruPrimary, err := r1cs.UnmarshalRelaxedInstance(pp.E1, b.RUPrimary)
	if err != nil {
		return nil, err
	}
	rwSecondary, err := r1cs.UnmarshalRelaxedWitness(pp.E2, b.RWSecondary)
	if err != nil {
		return nil, err
	}
	ruSecondary, err := r1cs.UnmarshalRelaxedInstance(pp.E2, b.RUSecondary)
	if err != nil {
		return nil, err
	}
	lwSecondary, err := r1cs.UnmarshalWitness(pp.E2, b.LWSecondary)
	if err != nil {
		return nil, err
	}
	luSecondary, err := r1cs.UnmarshalInstance(pp.E2, b.LUSecondary)
	if err != nil {
		return nil, err
	}
	ziPrimary, err := unmarshalScalars(pp.E1, b.ZiPrimary)
	if err != nil {
		return nil, err
	}
	ziSecondary, err := unmarshalScalars(pp.E2, b.ZiSecondary)
	if err != nil {
		return nil, err
	}
	return &RecursiveSNARK{
		Z0Primary:   z0Primary,
		Z0Secondary: z0Secondary,
		RWPrimary:   rwPrimary,
		RUPrimary:   ruPrimary,
		RiPrimary:   pp.E1.NewScalar().SetBytes(b.RiPrimary),
		RWSecondary: rwSecondary,
		RUSecondary: ruSecondary,
		RiSecondary: pp.E2.NewScalar().SetBytes(b.RiSecondary),
		LWSecondary: lwSecondary,
		LUSecondary: luSecondary,
		I:           b.I,
		ZiPrimary:   ziPrimary,
		ZiSecondary: ziSecondary,
	}, nil
}

type compressedSNARKBytes struct {
	RUSecondary     []byte
	RiSecondary     []byte
	LUSecondary     []byte
	NifsUfSecondary []byte

	LUrSecondary    []byte
	NifsUnSecondary []byte

	RUPrimary     []byte
	RiPrimary     []byte
	LUrPrimary    []byte
	NifsUnPrimary []byte

	WitBlindPrimary   []byte
	ErrBlindPrimary   []byte
	WitBlindSecondary []byte
	ErrBlindSecondary []byte

	SnarkPrimary   []byte
	SnarkSecondary []byte

	ZnPrimary   [][]byte
	ZnSecondary [][]byte
}

// WriteTo serializes the compressed proof.
func (c *CompressedSNARK) WriteTo(w io.Writer) error {
	b := compressedSNARKBytes{
		RUSecondary:     r1cs.MarshalRelaxedInstance(c.RUSecondary),
		RiSecondary:     c.RiSecondary.Bytes(),
		LUSecondary:     r1cs.MarshalInstance(c.LUSecondary),
		NifsUfSecondary: c.NifsUfSecondary.CommT.Bytes(),

		LUrSecondary:    r1cs.MarshalRelaxedInstance(c.LUrSecondary),
		NifsUnSecondary: c.NifsUnSecondary.CommT.Bytes(),

		RUPrimary:     r1cs.MarshalRelaxedInstance(c.RUPrimary),
		RiPrimary:     c.RiPrimary.Bytes(),
		LUrPrimary:    r1cs.MarshalRelaxedInstance(c.LUrPrimary),
		NifsUnPrimary: c.NifsUnPrimary.CommT.Bytes(),

		WitBlindPrimary:   c.WitBlindPrimary.Bytes(),
		ErrBlindPrimary:   c.ErrBlindPrimary.Bytes(),
		WitBlindSecondary: c.WitBlindSecondary.Bytes(),
		ErrBlindSecondary: c.ErrBlindSecondary.Bytes(),

		SnarkPrimary:   c.SnarkPrimary.Bytes(),
		SnarkSecondary: c.SnarkSecondary.Bytes(),

		ZnPrimary:   marshalScalars(c.ZnPrimary),
		ZnSecondary: marshalScalars(c.ZnSecondary),
	}
	return cbor.NewEncoder(w).Encode(&b)
}

// ReadCompressedSNARK rebuilds a compressed proof over the engines and leaf
// SNARKs of the given verifier key.
func ReadCompressedSNARK(r io.Reader, vk *CompressedVerifierKey) (*CompressedSNARK, error) {
	var b compressedSNARKBytes
	if err := cbor.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("error decoding compressed snark: %w", err)
	}
	ruSecondary, err := r1cs.UnmarshalRelaxedInstance(vk.E2, b.RUSecondary)
	if err != nil {
		return nil, err
	}
	luSecondary, err := r1cs.UnmarshalInstance(vk.E2, b.LUSecondary)
	if err != nil {
		return nil, err
	}
	commUfSecondary, err := vk.E2.NewPoint().SetBytes(b.NifsUfSecondary)
	if err != nil {
		return nil, err
	}
	lurSecondary, err := r1cs.UnmarshalRelaxedInstance(vk.E2, b.LUrSecondary)
	if err != nil {
		return nil, err
	}
	commUnSecondary, err := vk.E2.NewPoint().SetBytes(b.NifsUnSecondary)
	if err != nil {
		return nil, err
	}
	ruPrimary, err := r1cs.UnmarshalRelaxedInstance(vk.E1, b.RUPrimary)
	if err != nil {
		return nil, err
	}
	lurPrimary, err := r1cs.UnmarshalRelaxedInstance(vk.E1, b.LUrPrimary)
	if err != nil {
		return nil, err
	}
	commUnPrimary, err := vk.E1.NewPoint().SetBytes(b.NifsUnPrimary)
	if err != nil {
		return nil, err
	}
	snarkPrimary, err := vk.SnarkPrimary.UnmarshalProof(vk.E1, b.SnarkPrimary)
	if err != nil {
		return nil, err
	}
	snarkSecondary, err := vk.SnarkSecondary.UnmarshalProof(vk.E2, b.SnarkSecondary)
	if err != nil {
		return nil, err
	}
	znPrimary, err := unmarshalScalars(vk.E1, b.ZnPrimary)
	if err != nil {
		return nil, err
	}
	znSecondary, err := unmarshalScalars(vk.E2, b.ZnSecondary)
	if err != nil {
		return nil, err
	}
	return &CompressedSNARK{
		RUSecondary:     ruSecondary,
		RiSecondary:     vk.E2.NewScalar().SetBytes(b.RiSecondary),
		LUSecondary:     luSecondary,
		NifsUfSecondary: &nifs.NIFS{CommT: commUfSecondary},

		LUrSecondary:    lurSecondary,
		NifsUnSecondary: &nifs.NIFSRelaxed{CommT: commUnSecondary},

		RUPrimary:     ruPrimary,
		RiPrimary:     vk.E1.NewScalar().SetBytes(b.RiPrimary),
		LUrPrimary:    lurPrimary,
		NifsUnPrimary: &nifs.NIFSRelaxed{CommT: commUnPrimary},

		WitBlindPrimary:   vk.E1.NewScalar().SetBytes(b.WitBlindPrimary),
		ErrBlindPrimary:   vk.E1.NewScalar().SetBytes(b.ErrBlindPrimary),
		WitBlindSecondary: vk.E2.NewScalar().SetBytes(b.WitBlindSecondary),
		ErrBlindSecondary: vk.E2.NewScalar().SetBytes(b.ErrBlindSecondary),

		SnarkPrimary:   snarkPrimary,
		SnarkSecondary: snarkSecondary,

		ZnPrimary:   znPrimary,
		ZnSecondary: znSecondary,
	}, nil
}

type compressedVerifierKeyBytes struct {
	FArityPrimary   int
	FAritySecondary int
	PPDigest        []byte
	VkPrimary       []byte
	VkSecondary     []byte
	DkPrimary       []byte
	DkSecondary     []byte
}

// WriteTo serializes the verifier key.
func (vk *CompressedVerifierKey) WriteTo(w io.Writer) error {
	b := compressedVerifierKeyBytes{
		FArityPrimary:   vk.FArityPrimary,
		FAritySecondary: vk.FAritySecondary,
		PPDigest:        vk.PPDigest.Bytes(),
		VkPrimary:       vk.VkPrimary.Bytes(),
		VkSecondary:     vk.VkSecondary.Bytes(),
		DkPrimary:       vk.DkPrimary.Bytes(),
		DkSecondary:     vk.DkSecondary.Bytes(),
	}
	return cbor.NewEncoder(w).Encode(&b)
}

// ReadCompressedVerifierKey rebuilds a verifier key over the given engines
// and leaf SNARKs.
func ReadCompressedVerifierKey(r io.Reader, e1, e2 engine.Engine, s1, s2 snark.RelaxedR1CSSNARK) (*CompressedVerifierKey, error) {
	var b compressedVerifierKeyBytes
	if err := cbor.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("error decoding verifier key: %w", err)
	}
	vkPrimary, err := s1.UnmarshalVerifierKey(e1, b.VkPrimary)
	if err != nil {
		return nil, err
	}
	vkSecondary, err := s2.UnmarshalVerifierKey(e2, b.VkSecondary)
	if err != nil {
		return nil, err
	}
	dkPrimary, err := e1.NewPoint().SetBytes(b.DkPrimary)
	if err != nil {
		return nil, err
	}
	dkSecondary, err := e2.NewPoint().SetBytes(b.DkSecondary)
	if err != nil {
		return nil, err
	}
	return &CompressedVerifierKey{
		E1:                e1,
		E2:                e2,
		SnarkPrimary:      s1,
		SnarkSecondary:    s2,
		FArityPrimary:     b.FArityPrimary,
		FAritySecondary:   b.FAritySecondary,
		ROConstsPrimary:   e1.ROConstants(),
		ROConstsSecondary: e2.ROConstants(),
		PPDigest:          e1.NewScalar().SetBytes(b.PPDigest),
		VkPrimary:         vkPrimary,
		VkSecondary:       vkSecondary,
		DkPrimary:         dkPrimary,
		DkSecondary:       dkSecondary,
	}, nil
}
