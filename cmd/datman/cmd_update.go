package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ryanm101/datman/internal/update"
)

// updateFlags are shared by convert, merge and diff.
type updateFlags struct {
	filter *filterFlags
	header *headerFlags
}

func addUpdateFlags(cmd *cobra.Command) *updateFlags {
	return &updateFlags{
		filter: addFilterFlags(cmd.Flags()),
		header: addHeaderFlags(cmd.Flags()),
	}
}

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <dat|dir>...",
		Short: "Rewrite each input DAT in the selected formats",
		Args:  cobra.MinimumNArgs(1),
	}
	f := addUpdateFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.runUpdate(cmd, args, f, update.Options{})
	}
	return cmd
}

func newMergeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <dat|dir>...",
		Short: "Combine every input into one deduplicated DAT",
		Args:  cobra.MinimumNArgs(1),
	}
	f := addUpdateFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.runUpdate(cmd, args, f, update.Options{Merge: true})
	}
	return cmd
}

func newDiffCmd(a *app) *cobra.Command {
	var nodupes, dupes, individuals, cascade, reverse bool
	cmd := &cobra.Command{
		Use:   "diff <dat|dir>...",
		Short: "Split inputs by what they share with each other",
		Long: `diff merges every input and writes the entries partitioned by origin.

  --nodupes          entries found in only one input
  --dupes            entries found in more than one input
  --individuals      one DAT per input with its unique entries
  --cascade          one DAT per input with entries no earlier input has
  --reverse-cascade  the same, processing inputs last to first`,
		Args: cobra.MinimumNArgs(1),
	}
	fs := cmd.Flags()
	fs.BoolVar(&nodupes, "nodupes", false, "write entries unique to one input")
	fs.BoolVar(&dupes, "dupes", false, "write entries shared between inputs")
	fs.BoolVar(&individuals, "individuals", false, "write each input's unique entries")
	fs.BoolVar(&cascade, "cascade", false, "write each input minus what earlier inputs have")
	fs.BoolVar(&reverse, "reverse-cascade", false, "cascade from the last input to the first")
	cmd.MarkFlagsMutuallyExclusive("cascade", "reverse-cascade")
	f := addUpdateFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var mode update.DiffMode
		for _, m := range []struct {
			set bool
			bit update.DiffMode
		}{
			{nodupes, update.DiffNoDupes},
			{dupes, update.DiffDupes},
			{individuals, update.DiffIndividuals},
			{cascade, update.DiffCascade},
			{reverse, update.DiffReverseCascade},
		} {
			if m.set {
				mode |= m.bit
			}
		}
		if mode == 0 {
			return errors.New("select at least one of --nodupes, --dupes, --individuals, --cascade, --reverse-cascade")
		}
		return a.runUpdate(cmd, args, f, update.Options{Mode: mode})
	}
	return cmd
}

// runUpdate fills opts from the flags and configuration and runs it.
func (a *app) runUpdate(cmd *cobra.Command, args []string, f *updateFlags, opts update.Options) error {
	formats, err := a.outputFormats()
	if err != nil {
		return err
	}
	flt, err := f.filter.build()
	if err != nil {
		return err
	}

	opts.Header = f.header.header(formats)
	opts.Filter = flt
	opts.OutputDir = a.cfg.GetOutputDir()
	opts.Workers = a.cfg.GetWorkers()
	opts.Overwrite = a.overwrite

	bar := a.out.bar("Reading DATs")
	opts.OnInput = tick(bar)

	res, err := update.New(opts, nil, nil).Run(cmd.Context(), args)
	finish(bar)
	if err != nil {
		return err
	}

	a.printUpdateResult(res)
	if len(res.Failed) > 0 {
		return errWritesFailed
	}
	return nil
}

type updateSummary struct {
	Written []string `json:"written"`
	Failed  []string `json:"failed,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

func (a *app) printUpdateResult(res *update.Result) {
	s := updateSummary{Written: res.Written, Skipped: res.Skipped}
	for _, e := range res.Failed {
		s.Failed = append(s.Failed, e.Error())
	}
	if a.out.JSON {
		a.out.PrintResult(s)
		return
	}

	for _, p := range s.Written {
		a.out.PrintInfo("wrote %s\n", p)
	}
	for _, p := range s.Skipped {
		a.out.PrintInfo("skipped %s\n", p)
	}
	for _, e := range s.Failed {
		a.out.PrintError("failed: %s\n", e)
	}
}
