package bitstream

import (
	"io"
	"math/big"
)

// BitWriter writes bits to an io.Writer, MSB first.
type BitWriter struct {
	stream    io.Writer
	pending   [1]byte
	alignment uint8
}

// NewWriter returns a new instance of BitWriter.
func NewWriter(w io.Writer) *BitWriter {
	bw := new(BitWriter)
	bw.stream = w
	bw.alignment = 0 // most-significant bit
	return bw
}

// WriteUnit writes the numBits LS bits of v, in Big-Endian bit order, regardless of the alignment.
func (bw *BitWriter) WriteUnit(v *big.Int, numBits uint) error {
	lead := numBits % 8
	for i := numBits; i > numBits-lead; i-- {
		if err := bw.WriteBit(v.Bit(int(i-1)) == 1); err != nil {
			return err
		}
	}

	size := numBits / 8
	if size == 0 {
		return nil
	}
	data := make([]byte, size)
	truncate(new(big.Int).Set(v), numBits-lead).FillBytes(data)
	for _, b := range data {
		if err := bw.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// WriteUint64 writes the numBits LS bits of val, in Big-Endian bit order, regardless of the alignment.
func (bw *BitWriter) WriteUint64(val uint64, numBits int) error {
	// Eliminate unnecessary MS bits.
	val <<= 64 - uint(numBits)

	// Write bytes in Big-Endian order.
	for numBits >= 8 {
		if err := bw.WriteByte(byte(val >> 56)); err != nil {
			return err
		}
		val <<= 8
		numBits -= 8
	}

	// Write the remaining bits.
	for numBits > 0 {
		if err := bw.WriteBit((val >> 63) == 1); err != nil {
			return err
		}
		val <<= 1
		numBits--
	}

	return nil
}

// WriteByte writes a single byte to the stream, regardless of the alignment.
// If the byte is split due to alignment, its MS bits complete the pending byte.
func (bw *BitWriter) WriteByte(b byte) error {
	// Fill the pending byte LS bits with MS bits.
	bw.pending[0] |= b >> bw.alignment

	if n, err := bw.stream.Write(bw.pending[:]); n != 1 || err != nil {
		return writeErr(err)
	}

	// Fill the new pending byte MS bits with LS bits.
	bw.pending[0] = b << (8 - bw.alignment)

	return nil
}

// WriteBit writes a single bit to the stream, MSB first.
func (bw *BitWriter) WriteBit(bit Bit) error {
	if bit {
		bw.pending[0] |= 0x80 >> bw.alignment
	}

	bw.alignment++

	if bw.alignment == 8 {
		if n, err := bw.stream.Write(bw.pending[:]); n != 1 || err != nil {
			return writeErr(err)
		}
		bw.pending[0] = 0
		bw.alignment = 0
	}

	return nil
}

// Aligned reports whether the stream is at a byte boundary.
func (bw *BitWriter) Aligned() bool {
	return bw.alignment == 0
}

// Flush flushes the currently pending byte to the stream by filling it with bit.
func (bw *BitWriter) Flush(bit Bit) error {
	for bw.alignment != 0 {
		if err := bw.WriteBit(bit); err != nil {
			return err
		}
	}

	return nil
}

func writeErr(err error) error {
	if err == nil {
		return io.ErrShortWrite
	}
	return err
}
