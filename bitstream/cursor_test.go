package bitstream_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/unitstream/bitstream"
	"github.com/spacemeshos/unitstream/shared"
)

// units reads from c until the first unit that is not fully backed by data,
// which is returned separately.
func units(t *testing.T, c *bitstream.Cursor) ([]bitstream.Unit, bitstream.Unit) {
	t.Helper()
	var out []bitstream.Unit
	for {
		u, err := c.Next()
		require.NoError(t, err)
		if u.Tail() != bitstream.TailNone {
			require.True(t, u.EOF)
			return out, u
		}
		out = append(out, u)
	}
}

func values(us []bitstream.Unit) []uint64 {
	out := make([]uint64, 0, len(us))
	for _, u := range us {
		out = append(out, u.Value.Uint64())
	}
	return out
}

// bitAt returns bit i of data, MSB first.
func bitAt(data []byte, i uint64) uint {
	return uint(data[i/8]>>(7-i%8)) & 1
}

func TestCursor_Bits(t *testing.T) {
	r := require.New(t)

	c, err := bitstream.NewCursor(bytes.NewReader([]byte{0x5A}), 1)
	r.NoError(err)
	got, tail := units(t, c)
	r.Equal([]uint64{0, 1, 0, 1, 1, 0, 1, 0}, values(got))
	r.Equal(bitstream.TailClean, tail.Tail())
	r.True(tail.Aligned)
	r.Zero(tail.Value.Sign())
}

func TestCursor_Bytes(t *testing.T) {
	r := require.New(t)

	data := make([]byte, 1000)
	rand.New(rand.NewSource(1)).Read(data)

	c, err := bitstream.NewCursor(bytes.NewReader(data), 8)
	r.NoError(err)
	got, tail := units(t, c)
	r.Len(got, len(data))
	for i, u := range got {
		r.EqualValues(data[i], u.Value.Uint64())
		r.True(u.Aligned)
	}
	r.Equal(bitstream.TailClean, tail.Tail())
}

func TestCursor_Empty(t *testing.T) {
	r := require.New(t)

	c, err := bitstream.NewCursor(bytes.NewReader(nil), 13)
	r.NoError(err)
	u, err := c.Next()
	r.NoError(err)
	r.True(u.EOF)
	r.True(u.Aligned)
	r.Equal(bitstream.TailClean, u.Tail())
}

func TestCursor_SkipBits(t *testing.T) {
	r := require.New(t)

	c, err := bitstream.NewCursor(bytes.NewReader([]byte{0x55, 0x55, 0x55}), 8, bitstream.WithSkipBits(1))
	r.NoError(err)
	got, tail := units(t, c)
	r.Equal([]uint64{0xAA, 0xAA}, values(got))
	r.True(got[1].Aligned)
	r.EqualValues(1, got[1].Origin)

	// The last 7 bits are what is left of the byte grid starting at bit 1.
	r.Equal(bitstream.TailRemainder, tail.Tail())
	r.True(tail.Aligned)
	r.EqualValues(7, tail.Real)
	r.EqualValues(0xAA, tail.Value.Uint64())
	r.EqualValues(24, tail.DataEnd())

	// Units not ending on the grid leave real bits behind.
	c, err = bitstream.NewCursor(bytes.NewReader([]byte{0xFF}), 4, bitstream.WithSkipBits(1))
	r.NoError(err)
	got, tail = units(t, c)
	r.Equal([]uint64{0xF}, values(got))
	r.False(tail.Aligned)
	r.Equal(bitstream.TailPartial, tail.Tail())
	r.EqualValues(3, tail.Real)
	r.EqualValues(0xE, tail.Value.Uint64())
}

func TestCursor_OneBitShort(t *testing.T) {
	r := require.New(t)

	c, err := bitstream.NewCursor(bytes.NewReader([]byte{0xFF}), 9)
	r.NoError(err)
	u, err := c.Next()
	r.NoError(err)
	r.True(u.EOF)
	r.True(u.Aligned)
	r.Equal(bitstream.TailPartial, u.Tail())
	r.EqualValues(8, u.Real)
	r.EqualValues(0x1FE, u.Value.Uint64())

	c, err = bitstream.NewCursor(bytes.NewReader([]byte{0xAB, 0xCD}), 12)
	r.NoError(err)
	got, tail := units(t, c)
	r.Equal([]uint64{0xABC}, values(got))
	r.False(tail.Aligned)
	r.Equal(bitstream.TailPartial, tail.Tail())
	r.EqualValues(4, tail.Real)
	r.EqualValues(0xD00, tail.Value.Uint64())

	c, err = bitstream.NewCursor(bytes.NewReader([]byte{0xAB, 0xCD, 0xEF}), 16)
	r.NoError(err)
	got, tail = units(t, c)
	r.Equal([]uint64{0xABCD}, values(got))
	r.True(tail.Aligned)
	r.Equal(bitstream.TailPartial, tail.Tail())
	r.EqualValues(0xEF00, tail.Value.Uint64())
}

func TestCursor_TrailingBits(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		width uint
		want  []uint64
		last  uint64
		real  uint
	}{
		{"width 3", []byte{0xFF}, 3, []uint64{7, 7}, 0x6, 2},
		{"width 5", []byte{0xFF, 0xFF, 0xFF}, 5, []uint64{31, 31, 31, 31}, 0x1E, 4},
		{"width 12", []byte{0xAB, 0xCD}, 12, []uint64{0xABC}, 0xD00, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := bitstream.NewCursor(bytes.NewReader(tc.data), tc.width)
			require.NoError(t, err)
			got, tail := units(t, c)
			require.Equal(t, tc.want, values(got))
			require.Equal(t, bitstream.TailPartial, tail.Tail())
			require.Equal(t, tc.real, tail.Real)
			require.EqualValues(t, tc.last, tail.Value.Uint64())
		})
	}
}

func TestCursor_ExactMultiple(t *testing.T) {
	for _, width := range []uint{1, 2, 3, 4, 6, 8, 12, 24} {
		data := bytes.Repeat([]byte{0x96}, 3) // 24 bits
		c, err := bitstream.NewCursor(bytes.NewReader(data), width)
		require.NoError(t, err)
		got, tail := units(t, c)
		require.Len(t, got, int(24/width), "width %d", width)
		require.Equal(t, bitstream.TailClean, tail.Tail(), "width %d", width)
	}
}

func TestCursor_RoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for width := uint(1); width <= 256; width++ {
		data := make([]byte, 1+rnd.Intn(80))
		rnd.Read(data)

		c, err := bitstream.NewCursor(bytes.NewReader(data), width)
		require.NoError(t, err)
		got, tail := units(t, c)

		buf := bytes.NewBuffer(nil)
		w := bitstream.NewWriter(buf)
		for _, u := range got {
			require.NoError(t, w.WriteUnit(u.Value, width))
		}
		if tail.Real > 0 {
			// Keep only the real MS bits of the padded unit.
			v := new(big.Int).Rsh(tail.Value, width-tail.Real)
			require.NoError(t, w.WriteUnit(v, tail.Real))
		}
		require.True(t, w.Aligned(), "width %d", width)
		require.Equal(t, data, buf.Bytes(), "width %d", width)
	}
}

func TestCursor_Gap(t *testing.T) {
	r := require.New(t)

	c, err := bitstream.NewCursor(bytes.NewReader([]byte{0xAB, 0xCD}), 4, bitstream.WithGap(4))
	r.NoError(err)
	got, tail := units(t, c)
	r.Equal([]uint64{0xA, 0xC}, values(got))
	r.Equal(bitstream.TailClean, tail.Tail())

	// A gap spanning whole bytes.
	c, err = bitstream.NewCursor(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7}), 8, bitstream.WithGap(16))
	r.NoError(err)
	got, tail = units(t, c)
	r.Equal([]uint64{1, 4, 7}, values(got))
	r.Equal(bitstream.TailClean, tail.Tail())

	rnd := rand.New(rand.NewSource(7))
	data := make([]byte, 64)
	rnd.Read(data)
	for width := uint(1); width <= 70; width += 3 {
		for gap := uint(0); gap <= 20; gap += 5 {
			c, err := bitstream.NewCursor(bytes.NewReader(data), width, bitstream.WithGap(gap))
			r.NoError(err)
			got, _ := units(t, c)

			total := uint64(len(data)) * 8
			stride := uint64(width + gap)
			r.Len(got, int((total+uint64(gap))/stride), "width %d gap %d", width, gap)
			for k, u := range got {
				start := uint64(k) * stride
				r.Equal(start, u.Start)
				for i := uint64(0); i < uint64(width); i++ {
					r.Equal(bitAt(data, start+i), u.Value.Bit(int(uint64(width)-1-i)))
				}
			}
		}
	}
}

func TestCursor_Reversal(t *testing.T) {
	r := require.New(t)

	c, err := bitstream.NewCursor(bytes.NewReader([]byte{0x01, 0x03}), 8, bitstream.WithReversedBytes())
	r.NoError(err)
	got, _ := units(t, c)
	r.Equal([]uint64{0x80, 0xC0}, values(got))

	c, err = bitstream.NewCursor(bytes.NewReader([]byte{0x1C}), 4, bitstream.WithReversedUnit())
	r.NoError(err)
	got, _ = units(t, c)
	r.Equal([]uint64{0x8, 0x3}, values(got))

	// Reversing both the bytes and 8-bit units is the identity.
	data := []byte{0x12, 0x34, 0xF0, 0x0F}
	c, err = bitstream.NewCursor(bytes.NewReader(data), 8, bitstream.WithReversedBytes(), bitstream.WithReversedUnit())
	r.NoError(err)
	got, _ = units(t, c)
	r.Equal([]uint64{0x12, 0x34, 0xF0, 0x0F}, values(got))

	// Reversed units written back with reversed bits restore the input.
	for _, width := range []uint{3, 7, 8, 11, 64, 100} {
		data := bytes.Repeat([]byte{0xC5, 0x3A}, 50)
		c, err := bitstream.NewCursor(bytes.NewReader(data), width, bitstream.WithReversedUnit())
		r.NoError(err)
		got, tail := units(t, c)
		buf := bytes.NewBuffer(nil)
		w := bitstream.NewWriter(buf)
		for _, u := range got {
			r.NoError(w.WriteUnit(bitstream.ReverseBits(u.Value, width), width))
		}
		if tail.Real > 0 {
			v := bitstream.ReverseBits(tail.Value, width)
			r.NoError(w.WriteUnit(v.Rsh(v, width-tail.Real), tail.Real))
		}
		r.Equal(data, buf.Bytes(), "width %d", width)
	}
}

func TestCursor_PregapPostgap(t *testing.T) {
	r := require.New(t)

	// 10|1101|01 10|0110|11
	c, err := bitstream.NewCursor(bytes.NewReader([]byte{0xB5, 0x9B}), 4,
		bitstream.WithPregap(2), bitstream.WithPostgap(2))
	r.NoError(err)
	got, tail := units(t, c)
	r.Equal([]uint64{0xD, 0x6}, values(got))
	r.Equal(bitstream.TailClean, tail.Tail())
}

func TestCursor_SkipUnits(t *testing.T) {
	r := require.New(t)

	c, err := bitstream.NewCursor(bytes.NewReader([]byte{0x12, 0x34, 0x56}), 4,
		bitstream.WithSkipUnits(3), bitstream.WithSkipBits(4))
	r.NoError(err)
	got, _ := units(t, c)
	r.Equal([]uint64{0x5, 0x6}, values(got))
}

func TestCursor_SeekMatchesRead(t *testing.T) {
	data := make([]byte, 300)
	rand.New(rand.NewSource(3)).Read(data)

	for _, skip := range []uint64{0, 1, 7, 8, 9, 64, 1001, 2399, 2400, 2401, 5000} {
		for _, width := range []uint{1, 5, 8, 13} {
			logger := zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))

			seeking, err := bitstream.NewCursor(bytes.NewReader(data), width,
				bitstream.WithSkipBits(skip), bitstream.WithSeek(), bitstream.WithLogger(logger))
			require.NoError(t, err)
			reading, err := bitstream.NewCursor(bytes.NewReader(data), width,
				bitstream.WithSkipBits(skip), bitstream.WithLogger(logger))
			require.NoError(t, err)

			a, at := units(t, seeking)
			b, bt := units(t, reading)
			require.Equal(t, values(b), values(a), "skip %d width %d", skip, width)
			require.Equal(t, bt.Tail(), at.Tail())
			require.Zero(t, bt.Value.Cmp(at.Value))
			require.Equal(t, bt.Real, at.Real)
		}
	}
}

type failingSource struct {
	data []byte
	err  error
}

func (s *failingSource) ReadByte() (byte, error) {
	if len(s.data) == 0 {
		return 0, s.err
	}
	b := s.data[0]
	s.data = s.data[1:]
	return b, nil
}

func (s *failingSource) Seek(int64, int) (int64, error) {
	return 0, s.err
}

type unseekable struct {
	*bytes.Reader
}

func (unseekable) Seek(int64, int) (int64, error) {
	return 0, fmt.Errorf("no seeking: %w", errors.ErrUnsupported)
}

func TestCursor_SourceErrors(t *testing.T) {
	r := require.New(t)
	errBroken := errors.New("broken pipe")

	c, err := bitstream.NewCursor(&failingSource{data: []byte{0xFF}, err: errBroken}, 8)
	r.NoError(err)
	u, err := c.Next()
	r.NoError(err)
	r.EqualValues(0xFF, u.Value.Uint64())
	_, err = c.Next()
	r.ErrorIs(err, shared.ErrSource)
	r.ErrorIs(err, errBroken)

	c, err = bitstream.NewCursor(&failingSource{err: errBroken}, 8, bitstream.WithSkipBits(16), bitstream.WithSeek())
	r.NoError(err)
	_, err = c.Next()
	r.ErrorIs(err, shared.ErrSource)

	// Sources that cannot seek are skipped by reading.
	c, err = bitstream.NewCursor(unseekable{bytes.NewReader([]byte{1, 2, 3, 4})}, 8,
		bitstream.WithSkipBits(16), bitstream.WithSeek())
	r.NoError(err)
	got, _ := units(t, c)
	r.Equal([]uint64{3, 4}, values(got))

	c, err = bitstream.NewCursor(&failingSource{err: io.EOF}, 8, bitstream.WithSkipBits(16))
	r.NoError(err)
	u, err = c.Next()
	r.NoError(err)
	r.Equal(bitstream.TailClean, u.Tail())
}

func TestCursor_Invalid(t *testing.T) {
	_, err := bitstream.NewCursor(bytes.NewReader(nil), 0)
	require.ErrorIs(t, err, shared.ErrInvalidConfig)

	_, err = bitstream.NewCursor(bytes.NewReader(nil), 1<<20, bitstream.WithSkipUnits(1<<60))
	require.ErrorIs(t, err, shared.ErrInvalidConfig)
}

func TestTailString(t *testing.T) {
	require.Equal(t, "partial", bitstream.TailPartial.String())
	require.Equal(t, "unknown", bitstream.Tail(9).String())
}
