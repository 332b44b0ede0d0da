package cmd

import (
	"bufio"
	"fmt"
	"io"
	"math/big"

	"github.com/spacemeshos/unitstream/bitstream"
)

// printer writes units in one of the output formats.
type printer struct {
	w      *bufio.Writer
	bw     *bitstream.BitWriter
	format string
	width  uint
	// digits is the hex width of a unit.
	digits int
}

func newPrinter(format string, w io.Writer, width uint) (*printer, error) {
	p := &printer{
		w:      bufio.NewWriter(w),
		format: format,
		width:  width,
		digits: int(width+3) / 4,
	}
	switch format {
	case "dec", "hex":
	case "bin":
		p.bw = bitstream.NewWriter(p.w)
	default:
		return nil, fmt.Errorf("unknown format %q; expected one of dec, hex, bin", format)
	}
	return p, nil
}

// Print writes v. A nil v stands for a unit the input ended inside of; it is
// printed as "-" and has no packed representation.
func (p *printer) Print(v *big.Int) error {
	if p.bw != nil {
		if v == nil {
			return nil
		}
		return p.bw.WriteUnit(v, p.width)
	}

	var err error
	switch {
	case v == nil:
		_, err = p.w.WriteString("-\n")
	case p.format == "hex":
		_, err = fmt.Fprintf(p.w, "%0*x\n", p.digits, v)
	default:
		_, err = fmt.Fprintln(p.w, v.String())
	}
	return err
}

// Flush writes out buffered output, padding packed output to a whole byte.
func (p *printer) Flush() error {
	if p.bw != nil {
		if err := p.bw.Flush(bitstream.Zero); err != nil {
			return err
		}
	}
	return p.w.Flush()
}
