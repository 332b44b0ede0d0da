package bitstream

import (
	"io"
	"math/big"

	"github.com/spacemeshos/unitstream/shared"
)

// MergeReader reads values of arbitrary, per-call bit widths from a byte
// source. It shares the buffering of Cursor but ignores gaps and selection.
type MergeReader struct {
	c *Cursor
}

// NewMergeReader returns a MergeReader over src. Only the skip, byte/unit
// reversal, seek and logger options apply.
func NewMergeReader(src io.ByteReader, opts ...Option) (*MergeReader, error) {
	// The unit width of the underlying cursor only scales WithSkipUnits.
	c, err := NewCursor(src, 1, opts...)
	if err != nil {
		return nil, err
	}
	return &MergeReader{c: c}, nil
}

// ReadBits reads the next numBits bits as an unsigned integer.
//
// If the data ends before the first of those bits, ReadBits returns io.EOF.
// If it ends inside them, the value is zero-padded and returned together
// with io.ErrUnexpectedEOF.
func (r *MergeReader) ReadBits(numBits uint) (*big.Int, error) {
	if numBits == 0 {
		return nil, shared.InvalidParam("numBits", ">= 1", numBits)
	}

	u, err := r.c.read(numBits)
	if err != nil {
		return nil, err
	}

	v := u.Value
	if r.c.reverseUnit {
		v = ReverseBits(v, numBits)
	}
	switch {
	case u.Real == 0:
		return new(big.Int), io.EOF
	case u.Real < numBits:
		return v, io.ErrUnexpectedEOF
	}
	return v, nil
}

// ReadUint64 is ReadBits for widths of at most 64 bits.
func (r *MergeReader) ReadUint64(numBits uint) (uint64, error) {
	if numBits > 64 {
		return 0, shared.InvalidParam("numBits", "<= 64", numBits)
	}
	v, err := r.ReadBits(numBits)
	if v == nil {
		return 0, err
	}
	return v.Uint64(), err
}

// Position returns the absolute bit index of the next read.
func (r *MergeReader) Position() uint64 {
	return r.c.Position()
}
