// Package bitstream provides bit-granularity access to byte streams, following
// the MSB pattern, where the most-significant bit of every byte is read/written
// first and multi-bit values are assembled in Big-Endian bit order.
package bitstream

import (
	"math/big"
	"math/bits"
)

type Bit bool

const (
	Zero Bit = false
	One  Bit = true
)

// ReverseByte mirrors the bit order of b.
func ReverseByte(b byte) byte {
	return bits.Reverse8(b)
}

// ReverseBits mirrors the order of the numBits LS bits of v. Bits above
// numBits are dropped.
func ReverseBits(v *big.Int, numBits uint) *big.Int {
	r := new(big.Int)
	for i := uint(0); i < numBits; i++ {
		if v.Bit(int(i)) == 1 {
			r.SetBit(r, int(numBits-1-i), 1)
		}
	}
	return r
}

// truncate clears every bit of v at or above numBits.
func truncate(v *big.Int, numBits uint) *big.Int {
	for i := v.BitLen() - 1; i >= int(numBits); i-- {
		v.SetBit(v, i, 0)
	}
	return v
}

// MaxValue returns 2^numBits - 1.
func MaxValue(numBits uint) *big.Int {
	one := big.NewInt(1)
	v := new(big.Int).Lsh(one, numBits)
	return v.Sub(v, one)
}
