package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/baggage"

	"github.com/ryanm101/datman/internal/config"
	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/logging"
	"github.com/ryanm101/datman/internal/metrics"
	"github.com/ryanm101/datman/internal/tracing"
)

// errWritesFailed marks a run where at least one requested output failed.
var errWritesFailed = errors.New("one or more outputs failed")

// app carries state shared by every command of one invocation.
type app struct {
	out *output
	cfg *config.Config

	configPath string
	outDir     string
	formats    []string
	workers    int
	logLevel   string
	logFormat  string
	overwrite  bool

	shutdown func(context.Context) error
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{out: &output{stdout: stdout, stderr: stderr}}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.finish()
	if a.shutdown != nil {
		if serr := a.shutdown(context.Background()); serr != nil {
			logging.Error("failed to shutdown tracing", "error", serr)
		}
	}
	if err != nil {
		if !errors.Is(err, errWritesFailed) {
			a.out.PrintError("Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "datman",
		Short: "Convert, merge and diff ROM DAT files",
		Long: `datman reads Logiqx XML, ClrMamePro, RomCenter and hash list DATs,
deduplicates their entries and writes them back out in any of those formats.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: .datman.yaml or ~/.config/datman/config.yaml)")
	pf.StringVarP(&a.outDir, "out", "o", "", "output directory")
	pf.StringSliceVarP(&a.formats, "format", "f", nil, "output format, repeatable: logiqx, clrmamepro, romcenter, sfv, md5, sha1")
	pf.IntVarP(&a.workers, "workers", "w", 0, "parallel workers (default: number of CPUs)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json")
	pf.BoolVar(&a.out.JSON, "json", false, "print results as JSON")
	pf.BoolVarP(&a.out.Quiet, "quiet", "q", false, "suppress non-error output")
	pf.BoolVar(&a.overwrite, "overwrite", false, "replace existing output files")

	root.AddCommand(
		newConvertCmd(a),
		newMergeCmd(a),
		newDiffCmd(a),
		newStatsCmd(a),
		newScanCmd(a),
		newConfigCmd(a),
	)
	return root
}

// init loads configuration, applies flag overrides and starts logging and
// tracing for the run.
func (a *app) init(cmd *cobra.Command) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if a.outDir != "" {
		a.cfg.OutputDir = a.outDir
	}
	if len(a.formats) > 0 {
		a.cfg.Formats = a.formats
	}
	if a.workers > 0 {
		a.cfg.Workers = a.workers
	}
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Logging.Format = a.logFormat
	}

	logging.SetupWriter(a.cfg.Logging, a.out.stderr)
	runID := uuid.NewString()
	logging.With("run_id", runID)

	tracing.Version = version
	ctx := cmd.Context()
	a.shutdown, err = tracing.Setup(ctx, a.cfg.Tracing)
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
	}

	appVersion, _ := baggage.NewMember("app.version", version)
	run, _ := baggage.NewMember("app.run_id", runID)
	b, _ := baggage.New(appVersion, run)
	cmd.SetContext(baggage.ContextWithBaggage(ctx, b))

	logging.Debug("starting", "command", cmd.CommandPath(), "config", a.cfg.Path)
	return nil
}

// finish writes the metrics textfile and the warning summary.
func (a *app) finish() {
	if a.cfg == nil {
		return
	}
	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			logging.Error("failed to write metrics", "path", a.cfg.MetricsFile, "error", err)
		}
	}
	if warned, failed := logging.Summary(); warned+failed > 0 {
		a.out.PrintInfo("%d warnings, %d errors\n", warned, failed)
	}
}

// outputFormats resolves the configured format names.
func (a *app) outputFormats() (datfile.Format, error) {
	var f datfile.Format
	for _, name := range a.cfg.Formats {
		one, ok := datfile.ParseFormat(name)
		if !ok {
			return datfile.FormatNone, fmt.Errorf("unknown output format %q", name)
		}
		f |= one
	}
	return f, nil
}
