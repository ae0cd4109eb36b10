// Package update combines and splits sets of DATs: conversion, merging,
// and the cascade and no-cascade diffs.
package update

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/filter"
	"github.com/ryanm101/datman/internal/formats"
	"github.com/ryanm101/datman/internal/logging"
	"github.com/ryanm101/datman/internal/tracing"
)

// DiffMode selects the diff outputs.
type DiffMode uint8

const (
	DiffNoDupes DiffMode = 1 << iota
	DiffDupes
	DiffIndividuals
	DiffCascade
	DiffReverseCascade
)

// Has reports whether every bit of f is set.
func (m DiffMode) Has(f DiffMode) bool { return m&f == f && f != 0 }

// IsCascade reports whether either cascade bit is set.
func (m DiffMode) IsCascade() bool { return m&(DiffCascade|DiffReverseCascade) != 0 }

// ErrNoInputs is returned when no input could be read.
var ErrNoInputs = errors.New("no usable inputs")

// OutputError describes a failed output DAT.
type OutputError struct {
	Op   string // Operation that failed (e.g., "write")
	Path string // Output directory and base name
	Err  error  // Underlying error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("%s '%s': %v", e.Op, e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// Parser reads one DAT file into d.
type Parser interface {
	Parse(ctx context.Context, path string, d *datfile.DatFile, opts formats.ParseOptions) error
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, path string, d *datfile.DatFile, opts formats.ParseOptions) error

func (f ParserFunc) Parse(ctx context.Context, path string, d *datfile.DatFile, opts formats.ParseOptions) error {
	return f(ctx, path, d, opts)
}

// Writer serializes d into outDir and returns the files written.
type Writer interface {
	Write(ctx context.Context, d *datfile.DatFile, outDir string, opts formats.WriteOptions) ([]string, error)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, d *datfile.DatFile, outDir string, opts formats.WriteOptions) ([]string, error)

func (f WriterFunc) Write(ctx context.Context, d *datfile.DatFile, outDir string, opts formats.WriteOptions) ([]string, error) {
	return f(ctx, d, outDir, opts)
}

// Options configures an Updater.
type Options struct {
	Mode  DiffMode
	Merge bool

	// Header fields set here override those read from the inputs.
	Header datfile.Header

	OutputDir string
	Filter    *filter.Filter
	Workers   int
	Overwrite bool

	// OnInput is called after each input is parsed, from worker goroutines.
	OnInput func(path string)
}

// Result reports what a run produced.
type Result struct {
	Written []string
	Failed  []*OutputError
	Skipped []string // Inputs that could not be parsed

	mu sync.Mutex
}

// Err joins every output failure, or returns nil.
func (r *Result) Err() error {
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

func (r *Result) written(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Written = append(r.Written, paths...)
}

func (r *Result) failed(e *OutputError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed = append(r.Failed, e)
}

func (r *Result) skipped(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, path)
}

// Updater runs one conversion, merge or diff over a set of inputs.
type Updater struct {
	opts   Options
	parser Parser
	writer Writer
}

// New creates an Updater. Nil parser or writer fall back to the formats
// package.
func New(opts Options, parser Parser, writer Writer) *Updater {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if parser == nil {
		parser = ParserFunc(formats.Parse)
	}
	if writer == nil {
		writer = WriterFunc(formats.Write)
	}
	return &Updater{opts: opts, parser: parser, writer: writer}
}

// Run expands paths and performs the configured operation. Output
// failures are collected in the result, not returned; the error covers
// missing inputs and cancellation.
func (u *Updater) Run(ctx context.Context, paths []string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "update.Run",
		tracing.WithAttributes(
			attribute.Int("update.mode", int(u.opts.Mode)),
			attribute.Bool("update.merge", u.opts.Merge),
		))
	defer span.End()

	res := &Result{}
	inputs := ExpandInputs(paths, u.opts.Mode.Has(DiffReverseCascade))
	if len(inputs) == 0 {
		tracing.RecordError(span, ErrNoInputs)
		return res, ErrNoInputs
	}
	tracing.AddSpanAttributes(span, attribute.Int("update.inputs", len(inputs)))

	var err error
	switch {
	case u.opts.Mode.IsCascade():
		err = u.diffCascade(ctx, inputs, res)
	case u.opts.Mode != 0:
		err = u.diffNoCascade(ctx, inputs, res)
	case u.opts.Merge:
		err = u.merge(ctx, inputs, res)
	default:
		u.convert(ctx, inputs, res)
	}
	if err == nil {
		err = ctx.Err()
	}

	tracing.AddSpanAttributes(span,
		attribute.Int("update.written", len(res.Written)),
		attribute.Int("update.failed", len(res.Failed)))
	if err != nil {
		tracing.RecordError(span, err)
		return res, err
	}
	if len(res.Failed) > 0 {
		tracing.RecordError(span, res.Err())
	} else {
		tracing.SetSpanOK(span)
	}
	return res, nil
}

// forEach runs fn for every index in [0, n) on a bounded worker pool.
func (u *Updater) forEach(ctx context.Context, n int, fn func(i int)) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(u.opts.Workers, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
}

// parseAll parses every input into its own DAT, tagged with the input
// index as system and source id. Failed inputs are nil.
func (u *Updater) parseAll(ctx context.Context, inputs []Input, res *Result) []*datfile.DatFile {
	ctx, span := tracing.StartSpan(ctx, "update.parse")
	defer span.End()

	parsed := make([]*datfile.DatFile, len(inputs))
	u.forEach(ctx, len(inputs), func(i int) {
		if ctx.Err() != nil {
			return
		}
		in := inputs[i]
		d := datfile.New(datfile.Header{})
		err := u.parser.Parse(ctx, in.Path, d, formats.ParseOptions{
			SystemID:   i,
			SystemName: in.Base(),
			SourceID:   i,
			SourceName: in.Path,
			Filter:     u.opts.Filter,
		})
		if u.opts.OnInput != nil {
			u.opts.OnInput(in.Path)
		}
		if err != nil {
			logging.Warn("skipping unreadable input", "path", in.Path, "error", err)
			res.skipped(in.Path)
			return
		}
		parsed[i] = d
	})
	return parsed
}

// combine unions every parsed DAT in input order.
func combine(parsed []*datfile.DatFile) (*datfile.DatFile, error) {
	combined := datfile.New(datfile.Header{})
	usable := 0
	for _, d := range parsed {
		if d == nil {
			continue
		}
		combined.AddFrom(d)
		usable++
	}
	if usable == 0 {
		return nil, ErrNoInputs
	}
	return combined, nil
}

const defaultName = "datman"

// aggregateHeader is the header of an output built from every input.
func (u *Updater) aggregateHeader(parsed []*datfile.DatFile, suffix string) datfile.Header {
	h := u.opts.Header
	if h.Name == "" {
		h.Name = defaultName
	}
	if h.FileName == "" {
		h.FileName = h.Name
	}
	if h.Description == "" {
		h.Description = h.Name
	}
	for _, d := range parsed {
		if d != nil {
			h.Fill(datfile.Header{Formats: d.Header.Formats})
			break
		}
	}
	if suffix != "" {
		h.AppendSuffix(suffix)
	}
	return h
}

// inputHeader is the header of an output derived from one input. It is
// always named after that input.
func (u *Updater) inputHeader(src *datfile.DatFile) datfile.Header {
	h := u.opts.Header
	h.FileName = ""
	h.Fill(src.Header)
	return h
}

// write serializes d unless it is empty, recording the outcome in res.
func (u *Updater) write(ctx context.Context, d *datfile.DatFile, outDir string, res *Result) {
	if d.Count() == 0 {
		logging.Debug("skipping empty output", "name", d.Header.FileName)
		return
	}
	paths, err := u.writer.Write(ctx, d, outDir, formats.WriteOptions{Overwrite: u.opts.Overwrite})
	res.written(paths...)
	if err != nil {
		e := &OutputError{Op: "write", Path: outputName(outDir, d), Err: err}
		logging.Error("failed to write output", "path", e.Path, "error", err)
		res.failed(e)
	}
}

// writeAll writes independent outputs in parallel.
func (u *Updater) writeAll(ctx context.Context, outs []*datfile.DatFile, dirs []string, res *Result) {
	ctx, span := tracing.StartSpan(ctx, "update.write",
		tracing.WithAttributes(attribute.Int("update.outputs", len(outs))))
	defer span.End()

	u.forEach(ctx, len(outs), func(i int) {
		if outs[i] == nil || ctx.Err() != nil {
			return
		}
		u.write(ctx, outs[i], dirs[i], res)
	})
}
