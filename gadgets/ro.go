package gadgets

import (
	"fmt"
	"math/big"

	"github.com/giuliop/nova/engine"
	"github.com/giuliop/nova/frontend"
)

// ROCircuit synthesizes the Poseidon-style sponge inside the circuit with
// the same constants and schedule as the native oracle, so the squeezed
// bits agree with the out-of-circuit transcript.
type ROCircuit struct {
	consts     engine.ROConstants
	numAbsorbs int
	absorbed   []*Num
}

// NewROCircuit builds a circuit oracle absorbing numAbsorbs elements.
func NewROCircuit(consts engine.ROConstants, numAbsorbs int) *ROCircuit {
	return &ROCircuit{consts: consts, numAbsorbs: numAbsorbs}
}

// Absorb appends one native element to the transcript.
func (ro *ROCircuit) Absorb(n *Num) {
	if len(ro.absorbed) == ro.numAbsorbs {
		panic(fmt.Sprintf("ro circuit: absorbed more than the declared %d elements", ro.numAbsorbs))
	}
	ro.absorbed = append(ro.absorbed, n)
}

// sboxNum computes x^5.
func sboxNum(cs frontend.ConstraintSystem, x *Num) (*Num, error) {
	sq, err := SquareNum(cs, x)
	if err != nil {
		return nil, err
	}
	qu, err := SquareNum(cs, sq)
	if err != nil {
		return nil, err
	}
	return MulNum(cs, qu, x)
}

// mixRow allocates one output element of the MDS layer as a linear
// combination of the state.
func mixRow(cs frontend.ConstraintSystem, row []engine.Scalar, state []*Num) (*Num, error) {
	out, err := AllocNum(cs, func() (engine.Scalar, error) {
		acc := cs.NewScalar()
		t := cs.NewScalar()
		for j, s := range state {
			if s.Value == nil {
				return nil, frontend.ErrAssignmentMissing
			}
			t.Mul(row[j], s.Value)
			acc.Add(acc, t)
		}
		return acc, nil
	})
	if err != nil {
		return nil, err
	}
	one := cs.NewScalar().SetOne()
	negOne := cs.NewScalar().Neg(one)
	lc := frontend.LinearCombination{}
	for j, s := range state {
		lc = lc.AddTerm(row[j], s.Var)
	}
	lc = lc.AddTerm(negOne, out.Var)
	cs.Enforce(lc, frontend.LinearCombination{}.AddTerm(one, cs.One()), frontend.LinearCombination{})
	return out, nil
}

func (ro *ROCircuit) permute(cs frontend.ConstraintSystem, state []*Num) ([]*Num, error) {
	w := ro.consts.Width
	half := ro.consts.FullRounds / 2
	total := ro.consts.FullRounds + ro.consts.PartialRounds
	var err error
	for r := 0; r < total; r++ {
		full := r < half || r >= half+ro.consts.PartialRounds
		for j := 0; j < w; j++ {
			if state[j], err = AddConstNum(cs, state[j], ro.consts.RoundConstants[r*w+j]); err != nil {
				return nil, err
			}
		}
		if full {
			for j := 0; j < w; j++ {
				if state[j], err = sboxNum(cs, state[j]); err != nil {
					return nil, err
				}
			}
		} else {
			if state[0], err = sboxNum(cs, state[0]); err != nil {
				return nil, err
			}
		}
		mixed := make([]*Num, w)
		for i := 0; i < w; i++ {
			if mixed[i], err = mixRow(cs, ro.consts.MDS[i], state); err != nil {
				return nil, err
			}
		}
		state = mixed
	}
	return state, nil
}

// SqueezeBits runs the sponge over the absorbed transcript and returns the
// numBits low-order bits of the output element, little-endian.
func (ro *ROCircuit) SqueezeBits(cs frontend.ConstraintSystem, modulus *big.Int, numBits int) ([]*Bit, error) {
	if len(ro.absorbed) != ro.numAbsorbs {
		panic(fmt.Sprintf("ro circuit: absorbed %d of %d declared elements", len(ro.absorbed), ro.numAbsorbs))
	}
	w := ro.consts.Width
	rate := w - 1
	state := make([]*Num, w)
	var err error
	for i := 0; i < w-1; i++ {
		if state[i], err = Zero(cs); err != nil {
			return nil, err
		}
	}
	if state[w-1], err = AllocConstant(cs, cs.NewScalar().SetUint64(uint64(ro.numAbsorbs))); err != nil {
		return nil, err
	}
	for off := 0; off < len(ro.absorbed); off += rate {
		for j := 0; j < rate && off+j < len(ro.absorbed); j++ {
			if state[j], err = AddNum(cs, state[j], ro.absorbed[off+j]); err != nil {
				return nil, err
			}
		}
		if state, err = ro.permute(cs, state); err != nil {
			return nil, err
		}
	}
	bits, err := ToBitsStrict(cs, state[0], modulus)
	if err != nil {
		return nil, err
	}
	return bits[:numBits], nil
}
