package stream

import (
	"io"
	"math/big"

	"go.uber.org/zap"

	"github.com/spacemeshos/unitstream/bitstream"
	"github.com/spacemeshos/unitstream/config"
	"github.com/spacemeshos/unitstream/selector"
	"github.com/spacemeshos/unitstream/shared"
)

// File yields the selected units of a byte source.
type File struct {
	sel    *selector.Selector
	cursor *bitstream.Cursor
	logger *zap.Logger

	policy        config.EOFPolicy
	assertAligned bool

	done bool
}

// NewFile returns a File reading units from src as described by cfg.
// The caller keeps ownership of src.
func NewFile(src io.ByteReader, cfg config.Config, opts ...OptionFunc) (*File, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	sel, err := selector.New(cfg.Skip, cfg.Step, cfg.Limit)
	if err != nil {
		return nil, err
	}

	cursorOpts := []bitstream.Option{
		bitstream.WithGap(uint(cfg.Gap)),
		bitstream.WithSkipBits(uint64(cfg.SkipBits)),
		bitstream.WithSkipUnits(uint64(cfg.SkipUnits)),
		bitstream.WithPregap(uint(cfg.Pregap)),
		bitstream.WithPostgap(uint(cfg.Postgap)),
		bitstream.WithLogger(o.logger),
	}
	if cfg.UseSeek {
		cursorOpts = append(cursorOpts, bitstream.WithSeek())
	}
	if cfg.ReverseBytes {
		cursorOpts = append(cursorOpts, bitstream.WithReversedBytes())
	}
	if cfg.ReverseUnit {
		cursorOpts = append(cursorOpts, bitstream.WithReversedUnit())
	}
	cursor, err := bitstream.NewCursor(src, cfg.UnitWidth, cursorOpts...)
	if err != nil {
		return nil, err
	}

	return &File{
		sel:           sel,
		cursor:        cursor,
		logger:        o.logger,
		policy:        cfg.EOFPolicy,
		assertAligned: cfg.AssertAligned,
	}, nil
}

func (f *File) Next() (*big.Int, error) {
	if f.done {
		return nil, io.EOF
	}

	for {
		action := f.sel.Next()
		if action == selector.Finished {
			f.logger.Debug("selector exhausted", zap.Uint64("position", f.sel.Position()))
			return f.terminate(io.EOF)
		}

		u, err := f.cursor.Next()
		if err != nil {
			return f.terminate(err)
		}

		tail := u.Tail()
		if tail == bitstream.TailNone {
			if action == selector.Use {
				return u.Value, nil
			}
			continue
		}

		// The input ended before or inside this unit.
		f.done = true
		switch {
		case tail == bitstream.TailClean:
			return nil, io.EOF
		case f.assertAligned:
			return nil, shared.Misaligned(u.Start)
		case tail == bitstream.TailRemainder || action != selector.Use:
			return nil, io.EOF
		}
		return f.premature(u)
	}
}

// premature applies the EOF policy to a unit the input ended inside of.
func (f *File) premature(u bitstream.Unit) (*big.Int, error) {
	switch f.policy {
	case config.EOFError:
		return nil, &shared.PrematureEOFError{
			Partial: u.Value,
			Real:    u.Real,
			Width:   u.Width,
		}
	case config.EOFSentinel:
		f.logger.Warn("input ended inside a unit, emitting sentinel",
			zap.Uint("real", u.Real),
			zap.Uint("width", u.Width),
		)
		return nil, nil
	default:
		f.logger.Warn("input ended inside a unit, padding with zeros",
			zap.Uint("real", u.Real),
			zap.Uint("width", u.Width),
		)
		return u.Value, nil
	}
}

func (f *File) terminate(err error) (*big.Int, error) {
	f.done = true
	return nil, err
}
