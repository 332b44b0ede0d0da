package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/unitstream/bitstream"
	"github.com/spacemeshos/unitstream/config"
)

func newFieldsCmd(o *options) *cobra.Command {
	var widths []uint

	cmd := &cobra.Command{
		Use:   "fields --widths W[,W...] [INPUT]",
		Short: "Print records of variable-width fields",
		Long: `This command reads INPUT as a sequence of records, each made of fields of
the given bit widths, and prints one record per line. Only --skip-bits,
--seek, --reverse-bytes, --reverse-unit and --count apply; --count limits
the number of records.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) > 0 {
				input = args[0]
			}
			return runFields(cmd, o, widths, input)
		},
	}
	cmd.Flags().UintSliceVar(&widths, "widths", nil, "Comma separated field widths in bits")
	if err := cmd.MarkFlagRequired("widths"); err != nil {
		panic(err)
	}
	return cmd
}

func runFields(cmd *cobra.Command, o *options, widths []uint, input string) error {
	for _, w := range widths {
		if w < config.MinUnitWidth || w > config.MaxUnitWidth {
			return fmt.Errorf("invalid field width %d; expected: >= 1 and <= %d", w, config.MaxUnitWidth)
		}
	}
	if o.format != "dec" && o.format != "hex" {
		return fmt.Errorf("unsupported format %q for fields; expected one of dec, hex", o.format)
	}

	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	src, err := openInput(input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer src.Close()

	opts := []bitstream.Option{
		bitstream.WithSkipBits(uint64(cfg.SkipBits)),
		bitstream.WithLogger(logger),
	}
	if cfg.UseSeek {
		opts = append(opts, bitstream.WithSeek())
	}
	if cfg.ReverseBytes {
		opts = append(opts, bitstream.WithReversedBytes())
	}
	if cfg.ReverseUnit {
		opts = append(opts, bitstream.WithReversedUnit())
	}
	r, err := bitstream.NewMergeReader(src, opts...)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	record := make([]*big.Int, len(widths))
	for n := int64(0); cfg.Limit == nil || n < *cfg.Limit; n++ {
		values, padded, err := readRecord(r, widths, record)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return nil
		}
		if err := printRecord(out, o.format, widths, values); err != nil {
			return err
		}
		if padded || len(values) < len(widths) {
			logger.Warn("input ended inside a record", zap.Int64("record", n), zap.Uint64("bit", r.Position()))
			return nil
		}
	}
	return nil
}

// readRecord reads one value per width into record and returns the part of
// it that was read. padded is set if the input ended inside the last value.
func readRecord(r *bitstream.MergeReader, widths []uint, record []*big.Int) ([]*big.Int, bool, error) {
	for i, w := range widths {
		v, err := r.ReadBits(w)
		switch {
		case errors.Is(err, io.EOF):
			return record[:i], false, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			record[i] = v
			return record[:i+1], true, nil
		case err != nil:
			return nil, false, err
		}
		record[i] = v
	}
	return record, false, nil
}

func printRecord(w *bufio.Writer, format string, widths []uint, record []*big.Int) error {
	for i, v := range record {
		if i > 0 {
			if err := w.WriteByte(' '); err != nil {
				return err
			}
		}
		var err error
		if format == "hex" {
			_, err = fmt.Fprintf(w, "%0*x", int(widths[i]+3)/4, v)
		} else {
			_, err = w.WriteString(v.String())
		}
		if err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}
