package stream

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/spacemeshos/unitstream/bitstream"
	"github.com/spacemeshos/unitstream/selector"
	"github.com/spacemeshos/unitstream/shared"
)

const maxIntegerLine = 1 << 20

// NewInteger returns a Stream yielding decimal integers read from r, one per
// line. Blank lines and lines starting with '#' are ignored and do not take a
// selector position. Lines that are not integers yield 0, negative integers
// yield their absolute value and integers wider than the unit are truncated
// to their low width bits; each substitution is logged as a warning.
// The stream ends with the text.
func NewInteger(r io.Reader, width uint, sel *selector.Selector, opts ...OptionFunc) (Stream, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxIntegerLine)
	p := &integerParser{
		scanner: scanner,
		logger:  o.logger,
		mask:    bitstream.MaxValue(width),
	}
	return &generator{
		sel:     sel,
		produce: p.produce,
	}, nil
}

type integerParser struct {
	scanner *bufio.Scanner
	logger  *zap.Logger
	mask    *big.Int
	line    uint64
}

func (p *integerParser) produce(use bool) (*big.Int, error) {
	text, err := p.nextLine()
	if err != nil {
		return nil, err
	}
	if !use {
		return nil, nil
	}
	return p.parse(text), nil
}

// nextLine returns the next line holding a value.
func (p *integerParser) nextLine() (string, error) {
	for p.scanner.Scan() {
		p.line++
		text := strings.TrimSpace(p.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		return text, nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: read line %d: %w", shared.ErrSource, p.line+1, err)
	}
	return "", io.EOF
}

func (p *integerParser) parse(text string) *big.Int {
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		p.logger.Warn("non-integer interpreted as zero", zap.Uint64("line", p.line), zap.String("text", text))
		return new(big.Int)
	}
	if v.Sign() < 0 {
		p.logger.Warn("negative integer interpreted as positive", zap.Uint64("line", p.line), zap.String("text", text))
		v.Abs(v)
	}
	if v.Cmp(p.mask) > 0 {
		p.logger.Warn("integer truncated to unit width", zap.Uint64("line", p.line), zap.String("text", text))
		v.And(v, p.mask)
	}
	return v
}
