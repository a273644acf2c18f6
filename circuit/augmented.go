package circuit

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
	"github.com/giuliop/nova/gadgets"
	"github.com/giuliop/nova/r1cs"
)

// AugmentedParams fixes the non-native limb decomposition and the circuit's
// role on the cycle. The parameters are bound into the setup digest.
type AugmentedParams struct {
	LimbWidth int
	NLimbs    int
	IsPrimary bool
}

// NewAugmentedParams returns the standard parameters for the given role.
func NewAugmentedParams(isPrimary bool) AugmentedParams {
	return AugmentedParams{
		LimbWidth: engine.BNLimbWidth,
		NLimbs:    engine.BNNLimbs,
		IsPrimary: isPrimary,
	}
}

// Bytes returns a canonical encoding for digest binding.
func (p AugmentedParams) Bytes() []byte {
	out := make([]byte, 17)
	binary.BigEndian.PutUint64(out[:8], uint64(p.LimbWidth))
	binary.BigEndian.PutUint64(out[8:16], uint64(p.NLimbs))
	if p.IsPrimary {
		out[16] = 1
	}
	return out
}

// ParseAugmentedParams decodes the Bytes encoding.
func ParseAugmentedParams(data []byte) (AugmentedParams, error) {
	if len(data) != 17 {
		return AugmentedParams{}, fmt.Errorf("augmented params: got %d bytes, want 17", len(data))
	}
	return AugmentedParams{
		LimbWidth: int(binary.BigEndian.Uint64(data[:8])),
		NLimbs:    int(binary.BigEndian.Uint64(data[8:16])),
		IsPrimary: data[16] == 1,
	}, nil
}

// AugmentedInputs is the witness bundle of one synthesis. A nil bundle
// collects the shape. Within a bundle, fields that the base case does not
// use may be nil.
type AugmentedInputs struct {
	Digest engine.Scalar
	I      engine.Scalar
	Z0     []engine.Scalar
	Zi     []engine.Scalar
	U      *r1cs.RelaxedR1CSInstance
	Ri     engine.Scalar
	RNext  engine.Scalar
	U2     *r1cs.R1CSInstance
	CommT  engine.Point
}

// AugmentedCircuit wraps a step circuit with the folding verifier for the
// opposite curve's running instance.
type AugmentedCircuit struct {
	params   AugmentedParams
	inputs   *AugmentedInputs
	step     StepCircuit
	roConsts engine.ROConstants

	nativeModulus    *big.Int
	nonNativeModulus *big.Int
	b3               engine.Scalar
}

// NewAugmentedCircuit assembles an augmented circuit. opposite is the
// engine whose instances this circuit folds; its base field is the
// circuit's native field.
func NewAugmentedCircuit(params AugmentedParams, inputs *AugmentedInputs, step StepCircuit,
	roConsts engine.ROConstants, opposite engine.Engine) *AugmentedCircuit {
	return &AugmentedCircuit{
		params:           params,
		inputs:           inputs,
		step:             step,
		roConsts:         roConsts,
		nativeModulus:    opposite.BaseModulus(),
		nonNativeModulus: opposite.ScalarModulus(),
		b3:               opposite.CurveB3(),
	}
}

func (c *AugmentedCircuit) required(get func() (engine.Scalar, error)) frontend.Assigner {
	return func() (engine.Scalar, error) {
		if c.inputs == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		return get()
	}
}

// allocWitness allocates the full input bundle.
func (c *AugmentedCircuit) allocWitness(cs frontend.ConstraintSystem, arity int) (
	params, i *gadgets.Num, z0, zi []*gadgets.Num,
	u *gadgets.AllocatedRelaxedR1CSInstance, ri, rNext *gadgets.Num,
	u2 *gadgets.AllocatedR1CSInstance, commT *gadgets.Point, err error,
) {
	params, err = gadgets.AllocNum(cs, c.required(func() (engine.Scalar, error) {
		if c.inputs.Digest == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		return c.inputs.Digest.Clone(), nil
	}))
	if err != nil {
		return
	}
	i, err = gadgets.AllocNum(cs, c.required(func() (engine.Scalar, error) {
		if c.inputs.I == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		return c.inputs.I.Clone(), nil
	}))
	if err != nil {
		return
	}
	z0 = make([]*gadgets.Num, arity)
	for j := 0; j < arity; j++ {
		j := j
		z0[j], err = gadgets.AllocNum(cs, c.required(func() (engine.Scalar, error) {
			if len(c.inputs.Z0) != arity {
				return nil, frontend.ErrAssignmentMissing
			}
			return c.inputs.Z0[j].Clone(), nil
		}))
		if err != nil {
			return
		}
	}
	zi = make([]*gadgets.Num, arity)
	for j := 0; j < arity; j++ {
		j := j
		zi[j], err = gadgets.AllocNum(cs, c.required(func() (engine.Scalar, error) {
			if c.inputs.Zi == nil {
				return cs.NewScalar(), nil
			}
			return c.inputs.Zi[j].Clone(), nil
		}))
		if err != nil {
			return
		}
	}
	var instU *r1cs.RelaxedR1CSInstance
	if c.inputs != nil {
		instU = c.inputs.U
	}
	u, err = gadgets.AllocRelaxedR1CSInstance(cs, instU)
	if err != nil {
		return
	}
	ri, err = gadgets.AllocNum(cs, c.required(func() (engine.Scalar, error) {
		if c.inputs.Ri == nil {
			return cs.NewScalar(), nil
		}
		return c.inputs.Ri.Clone(), nil
	}))
	if err != nil {
		return
	}
	rNext, err = gadgets.AllocNum(cs, c.required(func() (engine.Scalar, error) {
		if c.inputs.RNext == nil {
			return nil, frontend.ErrAssignmentMissing
		}
		return c.inputs.RNext.Clone(), nil
	}))
	if err != nil {
		return
	}
	var instU2 *r1cs.R1CSInstance
	if c.inputs != nil {
		if c.inputs.U2 == nil && !c.params.IsPrimary {
			// the secondary circuit always receives the primary instance
			err = fmt.Errorf("augmented circuit: %w", frontend.ErrAssignmentMissing)
			return
		}
		instU2 = c.inputs.U2
	}
	u2, err = gadgets.AllocR1CSInstance(cs, instU2)
	if err != nil {
		return
	}
	commT, err = gadgets.AllocPoint(cs, func() (engine.Scalar, engine.Scalar, bool, error) {
		if c.inputs == nil || c.inputs.CommT == nil {
			return cs.NewScalar(), cs.NewScalar(), true, nil
		}
		x, y, inf := c.inputs.CommT.Coordinates()
		return x, y, inf, nil
	})
	return
}

// stateHash absorbs (params, counter, z0, z, U, r) and squeezes the
// truncated chain hash.
func (c *AugmentedCircuit) stateHash(cs frontend.ConstraintSystem, arity int,
	params, counter *gadgets.Num, z0, z []*gadgets.Num,
	u *gadgets.AllocatedRelaxedR1CSInstance, r *gadgets.Num) (*gadgets.Num, error) {
	ro := gadgets.NewROCircuit(c.roConsts, engine.NumFEWithoutIOForCRHF+2*arity)
	ro.Absorb(params)
	ro.Absorb(counter)
	for _, e := range z0 {
		ro.Absorb(e)
	}
	for _, e := range z {
		ro.Absorb(e)
	}
	u.AbsorbInRO(ro)
	ro.Absorb(r)
	bits, err := ro.SqueezeBits(cs, c.nativeModulus, engine.NumHashBits)
	if err != nil {
		return nil, err
	}
	return gadgets.FromBits(cs, bits)
}

// Synthesize builds the augmented circuit and returns the allocated outputs
// of the step function.
func (c *AugmentedCircuit) Synthesize(cs frontend.ConstraintSystem) ([]*gadgets.Num, error) {
	arity := c.step.Arity()

	params, i, z0, zi, u, ri, rNext, u2, commT, err := c.allocWitness(cs, arity)
	if err != nil {
		return nil, err
	}

	zero, err := gadgets.Zero(cs)
	if err != nil {
		return nil, err
	}
	isBase, err := gadgets.IsEqual(cs, i, zero)
	if err != nil {
		return nil, err
	}

	// in the inductive case, the incoming instance must carry the chain
	// hash of our own side
	hash, err := c.stateHash(cs, arity, params, i, z0, zi, u, ri)
	if err != nil {
		return nil, err
	}
	notBase, err := gadgets.Not(cs, isBase)
	if err != nil {
		return nil, err
	}
	gadgets.EnforceEqualWhen(cs, notBase, hash, u2.X0)

	// fold the running instance with the incoming one
	folded, err := u.Fold(cs, params, u2, commT, c.roConsts, c.nativeModulus, c.nonNativeModulus, c.b3)
	if err != nil {
		return nil, err
	}

	// the base case starts from the zero instance on the primary side, and
	// from the embedded first primary instance on the secondary side
	var base *gadgets.AllocatedRelaxedR1CSInstance
	if c.params.IsPrimary {
		base, err = gadgets.DefaultRelaxedInstance(cs)
	} else {
		base, err = gadgets.RelaxedFromR1CSInstance(cs, u2, c.nativeModulus)
	}
	if err != nil {
		return nil, err
	}
	uNew, err := gadgets.SelectRelaxedInstance(cs, isBase, base, folded)
	if err != nil {
		return nil, err
	}

	iNew, err := gadgets.AddConstNum(cs, i, cs.NewScalar().SetOne())
	if err != nil {
		return nil, err
	}

	zInput := make([]*gadgets.Num, arity)
	for j := 0; j < arity; j++ {
		if zInput[j], err = gadgets.Select(cs, isBase, z0[j], zi[j]); err != nil {
			return nil, err
		}
	}
	zNext, err := c.step.Synthesize(cs, zInput)
	if err != nil {
		return nil, err
	}
	if len(zNext) != arity {
		return nil, fmt.Errorf("step circuit returned %d outputs, arity is %d", len(zNext), arity)
	}

	hashNew, err := c.stateHash(cs, arity, params, iNew, z0, zNext, uNew, rNext)
	if err != nil {
		return nil, err
	}

	// X[0] carries the other side's hash through; X[1] is our new hash
	if err := gadgets.Inputize(cs, u2.X1); err != nil {
		return nil, err
	}
	if err := gadgets.Inputize(cs, hashNew); err != nil {
		return nil, err
	}

	return zNext, nil
}
