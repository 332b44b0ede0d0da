package bitstream

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"

	"code.cloudfoundry.org/bytefmt"
	"go.uber.org/zap"

	"github.com/spacemeshos/unitstream/shared"
)

// Tail classifies how a unit relates to the end of the underlying data.
type Tail int

const (
	// TailNone means the unit is backed by real data only.
	TailNone Tail = iota
	// TailClean means the unit holds no real data: the input ended before it.
	TailClean
	// TailRemainder means the unit starts on the byte grid of the first unit
	// and its real bits are less than a grid byte. With a bit skip that is not
	// a multiple of 8 those bits are byte padding of the source.
	TailRemainder
	// TailPartial means real data ends somewhere inside the unit.
	TailPartial
)

var tails = []string{"none", "clean", "remainder", "partial"}

func (t Tail) String() string {
	if t < TailNone || t > TailPartial {
		return "unknown"
	}
	return tails[t]
}

// Unit is a single extracted raw unit along with its position metadata.
type Unit struct {
	// Value is the unit, zero-padded past the end of data.
	Value *big.Int
	// Start is the absolute bit index of the unit's raw window.
	Start uint64
	// Width is the raw window width in bits, including pregap and postgap.
	Width uint
	// Real is the number of raw window bits backed by source data.
	Real uint
	// EOF is set once the source reported the end of data.
	EOF bool
	// Aligned reports whether the previous unit ended on a byte boundary
	// counted from Origin. It is true before the first unit.
	Aligned bool
	// Origin is the absolute bit index of the first unit.
	Origin uint64
}

// Tail classifies u against the end of data.
func (u Unit) Tail() Tail {
	switch {
	case u.Real == u.Width:
		return TailNone
	case u.Real == 0:
		return TailClean
	case u.Aligned && u.Start >= u.gridEnd():
		return TailRemainder
	default:
		return TailPartial
	}
}

// DataEnd returns the absolute bit index right after the last real bit of u.
func (u Unit) DataEnd() uint64 {
	return u.Start + uint64(u.Real)
}

// gridEnd returns the end of the last whole byte of data counted from Origin.
func (u Unit) gridEnd() uint64 {
	rel := u.DataEnd() - u.Origin
	return u.Origin + rel - rel%8
}

type Option func(*Cursor)

// WithGap sets the number of bits discarded after every unit.
func WithGap(bits uint) Option {
	return func(c *Cursor) {
		c.gap = bits
	}
}

// WithSkipBits sets the number of bits discarded before the first unit.
func WithSkipBits(bits uint64) Option {
	return func(c *Cursor) {
		c.skipBits = bits
	}
}

// WithSkipUnits discards units*width bits before the first unit, on top of
// WithSkipBits.
func WithSkipUnits(units uint64) Option {
	return func(c *Cursor) {
		c.skipUnits = units
	}
}

// WithPregap sets the number of bits dropped at the start of every raw window.
func WithPregap(bits uint) Option {
	return func(c *Cursor) {
		c.pregap = bits
	}
}

// WithPostgap sets the number of bits dropped at the end of every raw window.
func WithPostgap(bits uint) Option {
	return func(c *Cursor) {
		c.postgap = bits
	}
}

// WithSeek makes the initial skip seek over whole bytes when the source
// implements io.Seeker, instead of reading and discarding them.
func WithSeek() Option {
	return func(c *Cursor) {
		c.seek = true
	}
}

// WithReversedBytes mirrors the bit order of every byte read from the source.
func WithReversedBytes() Option {
	return func(c *Cursor) {
		c.reverseBytes = true
	}
}

// WithReversedUnit mirrors the bit order of every returned unit.
func WithReversedUnit() Option {
	return func(c *Cursor) {
		c.reverseUnit = true
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cursor) {
		c.logger = logger
	}
}

// Cursor splits a byte source into units of a fixed bit width.
type Cursor struct {
	src    io.ByteReader
	logger *zap.Logger

	width   uint
	gap     uint
	pregap  uint
	postgap uint

	skipBits     uint64
	skipUnits    uint64
	seek         bool
	reverseBytes bool
	reverseUnit  bool

	started bool
	// origin is the absolute bit index of the first raw window.
	origin uint64
	// start is the absolute bit index of the next raw window.
	start uint64
	// base is the absolute byte index of buf[0].
	base uint64
	buf  []byte
	// offset is the absolute byte index of the next byte taken from src.
	offset uint64

	eof     bool
	aligned bool
}

// NewCursor returns a Cursor reading units of width bits from src.
func NewCursor(src io.ByteReader, width uint, opts ...Option) (*Cursor, error) {
	c := &Cursor{
		src:     src,
		logger:  zap.NewNop(),
		width:   width,
		aligned: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if width == 0 {
		return nil, shared.InvalidParam("UnitWidth", ">= 1", width)
	}
	if c.skipUnits != 0 && c.skipUnits > (math.MaxUint64-c.skipBits)/uint64(width) {
		return nil, shared.InvalidParam("SkipUnits", "skip-bits + skip-units*unit-width to fit in uint64", c.skipUnits)
	}
	if c.rawWidth() < c.width {
		return nil, shared.InvalidParam("Pregap", "pregap + unit-width + postgap to fit in uint", c.pregap)
	}
	c.start = c.skipBits + c.skipUnits*uint64(width)
	c.origin = c.start
	return c, nil
}

// Next extracts the next unit and moves past it and the gap that follows.
func (c *Cursor) Next() (Unit, error) {
	u, err := c.read(c.rawWidth())
	if err != nil {
		return u, err
	}

	raw := u.Value
	if c.postgap > 0 {
		raw.Rsh(raw, c.postgap)
	}
	if c.pregap > 0 {
		truncate(raw, c.width)
	}
	if c.reverseUnit {
		u.Value = ReverseBits(raw, c.width)
	}

	c.start += uint64(c.gap)
	return u, nil
}

// Width returns the unit width in bits.
func (c *Cursor) Width() uint {
	return c.width
}

// Position returns the absolute bit index of the next raw window.
func (c *Cursor) Position() uint64 {
	return c.start
}

// EOF reports whether the source has reported the end of data.
func (c *Cursor) EOF() bool {
	return c.eof
}

func (c *Cursor) rawWidth() uint {
	return c.pregap + c.width + c.postgap
}

// read assembles the numBits bits starting at c.start and advances past them.
func (c *Cursor) read(numBits uint) (Unit, error) {
	if !c.started {
		if err := c.skip(); err != nil {
			return Unit{}, err
		}
		c.started = true
	}

	start := c.start
	end := start + uint64(numBits) - 1
	if err := c.fill(start/8, end/8); err != nil {
		return Unit{}, err
	}

	first := start/8 - c.base
	last := end/8 - c.base
	v := new(big.Int).SetBytes(c.buf[first : last+1])
	v.Rsh(v, uint(7-end%8))
	truncate(v, numBits)

	u := Unit{
		Value:   v,
		Start:   start,
		Width:   numBits,
		Real:    c.realBits(start, end),
		EOF:     c.eof,
		Aligned: c.aligned,
		Origin:  c.origin,
	}
	c.aligned = (end+1-c.origin)%8 == 0
	c.start = end + 1
	return u, nil
}

// realBits counts the bits of [start, end] that precede the end of data.
func (c *Cursor) realBits(start, end uint64) uint {
	if !c.eof {
		return uint(end - start + 1)
	}
	dataEnd := c.offset * 8
	switch {
	case dataEnd > end:
		return uint(end - start + 1)
	case dataEnd <= start:
		return 0
	default:
		return uint(dataEnd - start)
	}
}

// skip moves the source to the byte holding the first unit.
func (c *Cursor) skip() error {
	skipBytes := c.start / 8
	if skipBytes == 0 {
		return nil
	}

	if seeker, ok := c.src.(io.Seeker); ok && c.seek && skipBytes <= math.MaxInt64 {
		_, err := seeker.Seek(int64(skipBytes), io.SeekCurrent)
		switch {
		case errors.Is(err, errors.ErrUnsupported):
			c.logger.Debug("source cannot seek, skipping by reading", zap.Error(err))
		case err != nil:
			return fmt.Errorf("%w: seek %d bytes: %w", shared.ErrSource, skipBytes, err)
		default:
			c.logger.Debug("skipped input by seeking",
				zap.String("bytes", bytefmt.ByteSize(skipBytes)),
				zap.Uint64("bits", c.start),
			)
			c.offset = skipBytes
			c.base = skipBytes
			return nil
		}
	}

	if err := c.discard(skipBytes); err != nil {
		return err
	}
	c.logger.Debug("skipped input by reading",
		zap.String("bytes", bytefmt.ByteSize(skipBytes)),
		zap.Uint64("bits", c.start),
	)
	c.base = skipBytes
	return nil
}

// fill makes the buffer hold exactly the bytes from first to last.
func (c *Cursor) fill(first, last uint64) error {
	buffered := c.base + uint64(len(c.buf))
	if buffered <= first {
		// Nothing buffered is needed anymore; bytes up to first are gap.
		if err := c.discard(first - buffered); err != nil {
			return err
		}
		c.buf = c.buf[:0]
		c.base = first
	} else if first > c.base {
		n := copy(c.buf, c.buf[first-c.base:])
		c.buf = c.buf[:n]
		c.base = first
	}

	for c.base+uint64(len(c.buf)) <= last {
		b, err := c.readByte()
		if err != nil {
			return err
		}
		c.buf = append(c.buf, b)
	}
	return nil
}

func (c *Cursor) discard(n uint64) error {
	for ; n > 0; n-- {
		if _, err := c.readByte(); err != nil {
			return err
		}
	}
	return nil
}

// readByte returns the next source byte, or a zero byte past the end of data.
func (c *Cursor) readByte() (byte, error) {
	if c.eof {
		return 0, nil
	}

	b, err := c.src.ReadByte()
	switch {
	case errors.Is(err, io.EOF):
		c.eof = true
		c.logger.Debug("end of input",
			zap.Uint64("offset", c.offset),
			zap.String("size", bytefmt.ByteSize(c.offset)),
		)
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: read byte %d: %w", shared.ErrSource, c.offset, err)
	}

	c.offset++
	if c.reverseBytes {
		b = ReverseByte(b)
	}
	return b, nil
}
