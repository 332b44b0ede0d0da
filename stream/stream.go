// Package stream yields selected fixed-width units from byte sources and
// synthetic generators.
//
// Every stream is driven by a selector.Selector and follows the same pull
// protocol: Next returns the next selected unit, io.EOF once the stream is
// exhausted, or an error. After any terminal result Next keeps returning
// io.EOF.
package stream

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"go.uber.org/zap"
)

type Stream interface {
	// Next returns the next selected unit. A File stream configured with the
	// sentinel EOF policy returns a nil value with a nil error in place of a
	// unit the input ended inside of.
	Next() (*big.Int, error)
}

type option struct {
	logger *zap.Logger
	random io.Reader
}

func defaultOptions() *option {
	return &option{
		logger: zap.NewNop(),
		random: rand.Reader,
	}
}

type OptionFunc func(*option) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(o *option) error {
		if logger == nil {
			return errors.New("`logger` must not be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithRandomSource sets the byte source of the Random generator.
// It defaults to crypto/rand.Reader.
func WithRandomSource(r io.Reader) OptionFunc {
	return func(o *option) error {
		if r == nil {
			return errors.New("`random` must not be nil")
		}
		o.random = r
		return nil
	}
}

func applyOptions(opts []OptionFunc) (*option, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Collect drains s and returns every value it yielded, until io.EOF.
func Collect(s Stream) ([]*big.Int, error) {
	var values []*big.Int
	for {
		v, err := s.Next()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
}
