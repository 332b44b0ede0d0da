package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/unitstream/config"
	"github.com/spacemeshos/unitstream/persistence"
	"github.com/spacemeshos/unitstream/selector"
	"github.com/spacemeshos/unitstream/stream"
)

var (
	Version = "0.0.0"
	Commit  = ""
)

// Execute runs the root command and exits with a non-zero status on failure.
// An interrupt cancels the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := newOptions()

	rootCmd := &cobra.Command{
		Use:   "unitcat [INPUT]",
		Short: "Print fixed-width units of a bit stream",
		Long: `unitcat splits its input into units of a fixed number of bits and prints
the selected ones, one per line.

INPUT is a file, a directory of numbered chunk files or - for standard input.
Gzip and zstd compressed input is decompressed on the fly. With --source the
units are generated instead of read.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) > 0 {
				input = args[0]
			}
			return runCat(cmd, o, input)
		},
	}
	setFlags(rootCmd, o)

	rootCmd.AddCommand(newStatCmd(o))
	rootCmd.AddCommand(newFieldsCmd(o))
	return rootCmd
}

func runCat(cmd *cobra.Command, o *options, input string) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	if o.printConfig {
		spew.Fdump(cmd.OutOrStdout(), cfg)
		return nil
	}

	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, closeFn, err := openStream(o.source, input, cmd.InOrStdin(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	p, err := newPrinter(o.format, cmd.OutOrStdout(), cfg.UnitWidth)
	if err != nil {
		return err
	}

	var n uint64
	for {
		v, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Join(err, p.Flush())
		}
		if err := p.Print(v); err != nil {
			return err
		}
		n++
	}
	logger.Debug("stream exhausted", zap.Uint64("units", n))
	return p.Flush()
}

// openStream builds the stream named by source. The returned function
// releases the input.
func openStream(source, input string, stdin io.Reader, cfg config.Config, logger *zap.Logger) (stream.Stream, func() error, error) {
	if source == "file" {
		src, err := openInput(input, stdin)
		if err != nil {
			return nil, nil, err
		}
		s, err := stream.NewFile(src, cfg, stream.WithLogger(logger))
		if err != nil {
			return nil, nil, errors.Join(err, src.Close())
		}
		return s, src.Close, nil
	}

	sel, err := selector.New(cfg.Skip, cfg.Step, cfg.Limit)
	if err != nil {
		return nil, nil, err
	}

	noop := func() error { return nil }
	var s stream.Stream
	switch source {
	case "zero":
		return stream.NewZero(sel), noop, nil
	case "one":
		s, err = stream.NewOnes(cfg.UnitWidth, sel)
	case "random":
		s, err = stream.NewRandom(cfg.UnitWidth, sel, stream.WithLogger(logger))
	case "counter":
		s, err = stream.NewCounter(cfg.UnitWidth, sel)
	case "integer":
		src, err := openInput(input, stdin)
		if err != nil {
			return nil, nil, err
		}
		s, err := stream.NewInteger(bufio.NewReader(src), cfg.UnitWidth, sel, stream.WithLogger(logger))
		if err != nil {
			return nil, nil, errors.Join(err, src.Close())
		}
		return s, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q; expected one of zero, one, random, counter, integer, file", source)
	}
	if err != nil {
		return nil, nil, err
	}
	return s, noop, nil
}

func openInput(name string, stdin io.Reader) (persistence.Source, error) {
	if name != "-" {
		return persistence.Open(name)
	}
	src, err := persistence.Wrap(io.NopCloser(stdin))
	if err != nil {
		return nil, err
	}
	return src, nil
}
