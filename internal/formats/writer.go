package formats

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/dedupe"
	"github.com/ryanm101/datman/internal/logging"
	"github.com/ryanm101/datman/internal/metrics"
	"github.com/ryanm101/datman/internal/tracing"
)

// ErrOutputExists is returned when an output file exists and overwriting
// was not requested.
var ErrOutputExists = errors.New("output file already exists")

// WriteOptions controls Write.
type WriteOptions struct {
	Overwrite bool
}

// machineGroup is one machine block ready for serialization.
type machineGroup struct {
	machine datitem.Machine
	items   []datitem.DatItem
}

type dialectWriter func(w io.Writer, h *datfile.Header, groups []machineGroup) error

func writerFor(f datfile.Format) (dialectWriter, string) {
	switch f {
	case datfile.FormatLogiqx:
		return writeLogiqx, ".xml"
	case datfile.FormatClrMamePro:
		return writeClrMamePro, ".dat"
	case datfile.FormatRomCenter:
		return writeRomCenter, ".rc.dat"
	case datfile.FormatSFV:
		return hashListWriter(datfile.FormatSFV), ".sfv"
	case datfile.FormatMD5:
		return hashListWriter(datfile.FormatMD5), ".md5"
	case datfile.FormatSHA1:
		return hashListWriter(datfile.FormatSHA1), ".sha1"
	}
	return nil, ""
}

// OutputPath returns the file Write produces for format f.
func OutputPath(outDir string, h *datfile.Header, f datfile.Format) string {
	_, ext := writerFor(f)
	return filepath.Join(outDir, outputBase(h)+ext)
}

func outputBase(h *datfile.Header) string {
	switch {
	case h.FileName != "":
		return h.FileName
	case h.Name != "":
		return h.Name
	}
	return "datman"
}

// Write serializes d in every format set on its header, defaulting to
// Logiqx. Items are bucketed by game, optionally deduplicated per the header
// flag, and their names made unique per machine. It returns the paths
// written; a failure of one format does not stop the others.
func Write(ctx context.Context, d *datfile.DatFile, outDir string, opts WriteOptions) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "formats.Write",
		tracing.WithAttributes(attribute.String("dat.name", d.Header.Name)))
	defer span.End()

	formats := d.Header.Formats
	if formats == datfile.FormatNone {
		formats = datfile.FormatLogiqx
	}

	groups := prepare(d)

	var (
		written []string
		errs    []error
	)
	for _, f := range formats.Each() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		path, err := writeFormat(d, outDir, f, groups, opts)
		if err != nil {
			metrics.OutputsWritten.WithLabelValues(f.String(), "failed").Inc()
			errs = append(errs, err)
			continue
		}
		metrics.OutputsWritten.WithLabelValues(f.String(), "written").Inc()
		logging.Info("wrote DAT", "path", path, "format", f.String(), "machines", len(groups))
		written = append(written, path)
	}

	err := errors.Join(errs...)
	if err != nil {
		tracing.RecordError(span, err)
	} else {
		tracing.SetSpanOK(span)
	}
	return written, err
}

func writeFormat(d *datfile.DatFile, outDir string, f datfile.Format, groups []machineGroup, opts WriteOptions) (string, error) {
	write, _ := writerFor(f)
	if write == nil {
		return "", fmt.Errorf("%s: %w", f, ErrUnknownFormat)
	}
	path := OutputPath(outDir, &d.Header, f)

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644) // #nosec G302 G304
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	bw := bufio.NewWriter(file)
	if err := write(bw, &d.Header, groups); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

// prepare buckets d by game and resolves names per bucket. Machines whose
// names only differ in case share a bucket but get separate groups.
func prepare(d *datfile.DatFile) []machineGroup {
	d.BucketBy(datfile.SortedGame, datfile.BucketOptions{NoRename: true})

	var groups []machineGroup
	for _, key := range d.Keys() {
		items := d.Get(key)
		if d.Header.Dedupe {
			items = dedupe.Merge(items)
		}
		items = dedupe.ResolveNames(items, logging.Get())

		byName := make(map[string]int)
		for _, item := range items {
			name := item.Base().Machine.Name
			i, ok := byName[name]
			if !ok {
				i = len(groups)
				byName[name] = i
				groups = append(groups, machineGroup{machine: item.Base().Machine.Clone()})
			}
			if item.Type() == datitem.TypeBlank {
				continue
			}
			groups[i].items = append(groups[i].items, item)
		}
	}
	return groups
}
