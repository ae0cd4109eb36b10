package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/filter"
	"github.com/ryanm101/datman/internal/formats"
	"github.com/ryanm101/datman/internal/logging"
	"github.com/ryanm101/datman/internal/report"
	"github.com/ryanm101/datman/internal/update"
)

func newStatsCmd(a *app) *cobra.Command {
	var reportFormat, reportFile string
	cmd := &cobra.Command{
		Use:   "stats <dat|dir>...",
		Short: "Report item counts and sizes per DAT",
		Args:  cobra.MinimumNArgs(1),
	}
	cmd.Flags().StringVarP(&reportFormat, "report", "r", "", "report format: text, csv, tsv, html, json")
	cmd.Flags().StringVar(&reportFile, "report-file", "", "write the report here instead of stdout")
	ff := addFilterFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if reportFormat == "" && a.out.JSON {
			reportFormat = string(report.FormatJSON)
		}
		f, err := report.ParseFormat(reportFormat)
		if err != nil {
			return err
		}
		flt, err := ff.build()
		if err != nil {
			return err
		}

		rows, err := a.statsRows(cmd.Context(), args, flt)
		if err != nil {
			return err
		}

		var w io.Writer = a.out.stdout
		if reportFile != "" {
			file, err := os.Create(reportFile) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to create report: %w", err)
			}
			defer func() { _ = file.Close() }()
			w = file
		}
		if err := report.Write(w, f, rows); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
	return cmd
}

// statsRows parses each input and collects one report row per DAT.
func (a *app) statsRows(ctx context.Context, args []string, flt *filter.Filter) ([]report.Row, error) {
	inputs := update.ExpandInputs(args, false)
	if len(inputs) == 0 {
		return nil, update.ErrNoInputs
	}

	bar := a.out.bar("Reading DATs")
	defer finish(bar)

	var rows []report.Row
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := datfile.New(datfile.Header{})
		err := formats.Parse(ctx, in.Path, d, formats.ParseOptions{
			SystemID:   i,
			SystemName: in.Base(),
			SourceID:   i,
			SourceName: in.Path,
			Filter:     flt,
		})
		tick(bar)(in.Path)
		if err != nil {
			logging.Warn("skipping unreadable input", "path", in.Path, "error", err)
			continue
		}
		rows = append(rows, report.RowFor(in.Base(), d))
	}
	if len(rows) == 0 {
		return nil, update.ErrNoInputs
	}
	return rows, nil
}
