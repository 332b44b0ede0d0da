package shared

import (
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvalidParam(t *testing.T) {
	err := InvalidParam("UnitWidth", ">= 1", 0)
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.EqualError(t, err, "invalid `UnitWidth`; expected: >= 1, given: 0")

	var cfgErr ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, "UnitWidth", cfgErr.Param)
}

func TestPrematureEOFError(t *testing.T) {
	var err error = &PrematureEOFError{Partial: big.NewInt(0x1FE), Real: 8, Width: 9}
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NotErrorIs(t, err, io.EOF)
	require.EqualError(t, err, "premature end of input: 8 of 9 bits read, partial unit 0x1fe")
}

func TestMisaligned(t *testing.T) {
	err := Misaligned(21)
	require.ErrorIs(t, err, ErrMisaligned)
	require.EqualError(t, err, "non-aligned end of input: last unit starts at bit 21 (bit 5 of byte 2)")
}
