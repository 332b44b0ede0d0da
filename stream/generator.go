package stream

import (
	"fmt"
	"io"
	"math/big"

	"github.com/spacemeshos/unitstream/bitstream"
	"github.com/spacemeshos/unitstream/config"
	"github.com/spacemeshos/unitstream/selector"
	"github.com/spacemeshos/unitstream/shared"
)

// produceFunc is called once for every selector position that is not
// Finished. The value it returns is yielded only when use is set.
type produceFunc func(use bool) (*big.Int, error)

// generator is a Stream synthesizing its units instead of reading them.
type generator struct {
	sel     *selector.Selector
	produce produceFunc
	done    bool
}

func (g *generator) Next() (*big.Int, error) {
	if g.done {
		return nil, io.EOF
	}
	for {
		action := g.sel.Next()
		if action == selector.Finished {
			g.done = true
			return nil, io.EOF
		}
		v, err := g.produce(action == selector.Use)
		if err != nil {
			g.done = true
			return nil, err
		}
		if action == selector.Use {
			return v, nil
		}
	}
}

func validateWidth(width uint) error {
	if width < config.MinUnitWidth {
		return shared.InvalidParam("UnitWidth", ">= 1", width)
	}
	if width > config.MaxUnitWidth {
		return shared.InvalidParam("UnitWidth", "<= 65536", width)
	}
	return nil
}

// NewZero returns a Stream yielding 0 for every used position.
func NewZero(sel *selector.Selector) Stream {
	return &generator{
		sel: sel,
		produce: func(bool) (*big.Int, error) {
			return new(big.Int), nil
		},
	}
}

// NewOnes returns a Stream yielding units with all width bits set.
func NewOnes(width uint, sel *selector.Selector) (Stream, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}
	ones := bitstream.MaxValue(width)
	return &generator{
		sel: sel,
		produce: func(bool) (*big.Int, error) {
			return new(big.Int).Set(ones), nil
		},
	}, nil
}

// NewRandom returns a Stream yielding uniformly random units of width bits.
func NewRandom(width uint, sel *selector.Selector, opts ...OptionFunc) (Stream, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	mask := bitstream.MaxValue(width)
	buf := make([]byte, (width+7)/8)
	return &generator{
		sel: sel,
		produce: func(use bool) (*big.Int, error) {
			if !use {
				return nil, nil
			}
			if _, err := io.ReadFull(o.random, buf); err != nil {
				return nil, fmt.Errorf("%w: read random bytes: %w", shared.ErrSource, err)
			}
			v := new(big.Int).SetBytes(buf)
			return v.And(v, mask), nil
		},
	}, nil
}

// NewCounter returns a Stream numbering every selector position from 0,
// wrapping at 2^width, and yielding the numbers of the used positions.
func NewCounter(width uint, sel *selector.Selector) (Stream, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}

	mask := bitstream.MaxValue(width)
	one := big.NewInt(1)
	next := new(big.Int)
	return &generator{
		sel: sel,
		produce: func(bool) (*big.Int, error) {
			v := new(big.Int).Set(next)
			next.Add(next, one)
			next.And(next, mask)
			return v, nil
		},
	}, nil
}
