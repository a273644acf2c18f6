package r1cs

import (
	"encoding/binary"
	"fmt"

	"github.com/giuliop/nova/engine"
)

// Binary encodings for shapes and instances. The layouts are explicit and
// deterministic because the shape encoding is also hashed into the
// public-parameters digest.

const scalarLen = 32

func appendUint64(out []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(out, buf[:]...)
}

func readUint64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("r1cs: truncated encoding")
	}
	return binary.BigEndian.Uint64(data[:8]), data[8:], nil
}

func appendLenPrefixed(out []byte, b []byte) []byte {
	out = appendUint64(out, uint64(len(b)))
	return append(out, b...)
}

func readLenPrefixed(data []byte) ([]byte, []byte, error) {
	n, rest, err := readUint64(data)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n {
		return nil, nil, fmt.Errorf("r1cs: truncated encoding")
	}
	return rest[:n], rest[n:], nil
}

func appendScalars(out []byte, v []engine.Scalar) []byte {
	out = appendUint64(out, uint64(len(v)))
	for _, s := range v {
		out = append(out, s.Bytes()...)
	}
	return out
}

func readScalars(newScalar func() engine.Scalar, data []byte) ([]engine.Scalar, []byte, error) {
	n, rest, err := readUint64(data)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < n*scalarLen {
		return nil, nil, fmt.Errorf("r1cs: truncated scalar vector")
	}
	out := make([]engine.Scalar, n)
	for i := range out {
		out[i] = newScalar().SetBytes(rest[:scalarLen])
		rest = rest[scalarLen:]
	}
	return out, rest, nil
}

func appendMatrix(out []byte, m []Entry) []byte {
	out = appendUint64(out, uint64(len(m)))
	for _, en := range m {
		out = appendUint64(out, uint64(en.Row))
		out = appendUint64(out, uint64(en.Col))
		out = append(out, en.Coeff.Bytes()...)
	}
	return out
}

func readMatrix(e engine.Engine, data []byte) ([]Entry, []byte, error) {
	n, rest, err := readUint64(data)
	if err != nil {
		return nil, nil, err
	}
	out := make([]Entry, n)
	for i := range out {
		var row, col uint64
		if row, rest, err = readUint64(rest); err != nil {
			return nil, nil, err
		}
		if col, rest, err = readUint64(rest); err != nil {
			return nil, nil, err
		}
		if len(rest) < scalarLen {
			return nil, nil, fmt.Errorf("r1cs: truncated matrix entry")
		}
		out[i] = Entry{
			Row:   int(row),
			Col:   int(col),
			Coeff: e.NewScalar().SetBytes(rest[:scalarLen]),
		}
		rest = rest[scalarLen:]
	}
	return out, rest, nil
}

// MarshalShape encodes the shape dimensions and matrices.
func MarshalShape(s *R1CSShape) []byte {
	out := make([]byte, 0, 24+scalarLen*(len(s.A)+len(s.B)+len(s.C)))
	out = appendUint64(out, uint64(s.NumCons))
	out = appendUint64(out, uint64(s.NumVars))
	out = appendUint64(out, uint64(s.NumIO))
	out = appendMatrix(out, s.A)
	out = appendMatrix(out, s.B)
	out = appendMatrix(out, s.C)
	return out
}

// UnmarshalShape decodes a shape over the given engine.
func UnmarshalShape(e engine.Engine, data []byte) (*R1CSShape, error) {
	numCons, rest, err := readUint64(data)
	if err != nil {
		return nil, err
	}
	numVars, rest, err := readUint64(rest)
	if err != nil {
		return nil, err
	}
	numIO, rest, err := readUint64(rest)
	if err != nil {
		return nil, err
	}
	a, rest, err := readMatrix(e, rest)
	if err != nil {
		return nil, err
	}
	b, rest, err := readMatrix(e, rest)
	if err != nil {
		return nil, err
	}
	c, rest, err := readMatrix(e, rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("r1cs: %d trailing bytes after shape", len(rest))
	}
	return NewShape(e, int(numCons), int(numVars), int(numIO), a, b, c)
}

// MarshalInstance encodes a non-relaxed instance.
func MarshalInstance(u *R1CSInstance) []byte {
	out := appendLenPrefixed(nil, u.CommW.Bytes())
	return appendScalars(out, u.X)
}

// UnmarshalInstance decodes a non-relaxed instance over the given engine.
func UnmarshalInstance(e engine.Engine, data []byte) (*R1CSInstance, error) {
	pb, rest, err := readLenPrefixed(data)
	if err != nil {
		return nil, err
	}
	comm, err := e.NewPoint().SetBytes(pb)
	if err != nil {
		return nil, err
	}
	x, rest, err := readScalars(e.NewScalar, rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("r1cs: %d trailing bytes after instance", len(rest))
	}
	return &R1CSInstance{CommW: comm, X: x}, nil
}

// MarshalWitness encodes a non-relaxed witness.
func MarshalWitness(w *R1CSWitness) []byte {
	out := appendScalars(nil, w.W)
	return append(out, w.Blind.Bytes()...)
}

// UnmarshalWitness decodes a non-relaxed witness over the given engine.
func UnmarshalWitness(e engine.Engine, data []byte) (*R1CSWitness, error) {
	w, rest, err := readScalars(e.NewScalar, data)
	if err != nil {
		return nil, err
	}
	if len(rest) != scalarLen {
		return nil, fmt.Errorf("r1cs: malformed witness blind")
	}
	return &R1CSWitness{W: w, Blind: e.NewScalar().SetBytes(rest)}, nil
}

// MarshalRelaxedInstance encodes a relaxed instance.
func MarshalRelaxedInstance(u *RelaxedR1CSInstance) []byte {
	out := appendLenPrefixed(nil, u.CommW.Bytes())
	out = appendLenPrefixed(out, u.CommE.Bytes())
	out = append(out, u.U.Bytes()...)
	return appendScalars(out, u.X)
}

// UnmarshalRelaxedInstance decodes a relaxed instance over the given engine.
func UnmarshalRelaxedInstance(e engine.Engine, data []byte) (*RelaxedR1CSInstance, error) {
	wb, rest, err := readLenPrefixed(data)
	if err != nil {
		return nil, err
	}
	commW, err := e.NewPoint().SetBytes(wb)
	if err != nil {
		return nil, err
	}
	eb, rest, err := readLenPrefixed(rest)
	if err != nil {
		return nil, err
	}
	commE, err := e.NewPoint().SetBytes(eb)
	if err != nil {
		return nil, err
	}
	if len(rest) < scalarLen {
		return nil, fmt.Errorf("r1cs: truncated relaxed instance")
	}
	u := e.NewScalar().SetBytes(rest[:scalarLen])
	x, rest, err := readScalars(e.NewScalar, rest[scalarLen:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("r1cs: %d trailing bytes after relaxed instance", len(rest))
	}
	return &RelaxedR1CSInstance{CommW: commW, CommE: commE, U: u, X: x}, nil
}

// MarshalRelaxedWitness encodes a relaxed witness.
func MarshalRelaxedWitness(w *RelaxedR1CSWitness) []byte {
	out := appendScalars(nil, w.W)
	out = appendScalars(out, w.E)
	out = append(out, w.BlindW.Bytes()...)
	return append(out, w.BlindE.Bytes()...)
}

// UnmarshalRelaxedWitness decodes a relaxed witness over the given engine.
func UnmarshalRelaxedWitness(e engine.Engine, data []byte) (*RelaxedR1CSWitness, error) {
	wv, rest, err := readScalars(e.NewScalar, data)
	if err != nil {
		return nil, err
	}
	ev, rest, err := readScalars(e.NewScalar, rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 2*scalarLen {
		return nil, fmt.Errorf("r1cs: malformed relaxed witness blinds")
	}
	return &RelaxedR1CSWitness{
		W:      wv,
		E:      ev,
		BlindW: e.NewScalar().SetBytes(rest[:scalarLen]),
		BlindE: e.NewScalar().SetBytes(rest[scalarLen:]),
	}, nil
}
