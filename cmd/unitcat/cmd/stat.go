package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"code.cloudfoundry.org/bytefmt"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/unitstream/config"
	"github.com/spacemeshos/unitstream/persistence"
	"github.com/spacemeshos/unitstream/shared"
	"github.com/spacemeshos/unitstream/stream"
)

// How many units to read between cancellation checks.
const statBatch = 1 << 12

func newStatCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stat FILE...",
		Short: "Count the selected units of files",
		Long: `This command reads every FILE with the current unit configuration and
reports how many units it selects, next to the number expected from the
file size. Files are processed concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStat(cmd.Context(), cmd.OutOrStdout(), o, args)
		},
	}
}

type fileStat struct {
	name string
	// size is -1 for sources of unknown size.
	size   int64
	units  uint64
	layout config.Layout
	status string
}

func runStat(ctx context.Context, out io.Writer, o *options, names []string) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(o.logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	stats := make([]fileStat, len(names))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		i, name := i, name
		eg.Go(func() error {
			st, err := statFile(egCtx, name, cfg, logger.Named(name))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			stats[i] = st
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	data := make([][]string, 0, len(stats))
	for _, st := range stats {
		size, expected := "-", "-"
		if st.size >= 0 {
			size = bytefmt.ByteSize(uint64(st.size))
			expected = humanize.Comma(int64(st.layout.Selected))
		}
		data = append(data, []string{st.name, size, expected, humanize.Comma(int64(st.units)), st.status})
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"file", "size", "expected", "units", "status"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(data)
	table.Render()
	return nil
}

// statFile counts the units of name. Errors that concern the end of the
// input are reported in the status, other errors fail the count.
func statFile(ctx context.Context, name string, cfg config.Config, logger *zap.Logger) (fileStat, error) {
	st := fileStat{name: name, size: -1, status: "ok"}

	src, err := persistence.Open(name)
	if err != nil {
		return st, err
	}
	defer src.Close()

	if s, ok := src.(persistence.SeekSource); ok {
		size, err := s.Size()
		switch {
		case errors.Is(err, errors.ErrUnsupported):
			logger.Debug("input size unknown", zap.Error(err))
		case err != nil:
			return st, err
		default:
			st.size = size
			st.layout = config.DeriveLayout(cfg, uint64(size))
		}
	}

	f, err := stream.NewFile(src, cfg, stream.WithLogger(logger))
	if err != nil {
		return st, err
	}
	for {
		if st.units%statBatch == 0 {
			if err := ctx.Err(); err != nil {
				return st, err
			}
		}

		v, err := f.Next()
		switch {
		case errors.Is(err, io.EOF):
			logger.Debug("counted units", zap.Uint64("units", st.units))
			return st, nil
		case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, shared.ErrMisaligned):
			st.status = err.Error()
			return st, nil
		case err != nil:
			return st, err
		}
		if v == nil {
			st.status = "sentinel"
		}
		st.units++
	}
}
