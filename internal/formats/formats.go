// Package formats reads and writes the DAT dialects: Logiqx XML,
// ClrMamePro, RomCenter and the SFV/MD5/SHA1 hash lists.
package formats

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/filter"
	"github.com/ryanm101/datman/internal/hashes"
	"github.com/ryanm101/datman/internal/logging"
	"github.com/ryanm101/datman/internal/metrics"
	"github.com/ryanm101/datman/internal/tracing"
)

// ErrUnknownFormat is returned when a file matches no supported dialect.
var ErrUnknownFormat = errors.New("unknown DAT format")

// ParseError reports a file level parse failure.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseOptions tags and filters the items of one input.
type ParseOptions struct {
	SystemID   int
	SystemName string
	SourceID   int
	SourceName string
	// Filter drops items that do not pass; nil keeps everything.
	Filter *filter.Filter
	// Format skips detection when set.
	Format datfile.Format
}

var (
	cmpHeaderRe = regexp.MustCompile(`(?im)^\s*(clrmamepro|game|machine|resource|emulator)\s*\(`)
	sfvLineRe   = regexp.MustCompile(`(?m)^\S.*\s[0-9a-fA-F]{8}\s*$`)
	md5LineRe   = regexp.MustCompile(`(?m)^[0-9a-fA-F]{32}\s+\*?\S`)
	sha1LineRe  = regexp.MustCompile(`(?m)^[0-9a-fA-F]{40}\s+\*?\S`)
)

// Detect sniffs the dialect of the file at path. Content wins over the
// file extension, which only settles the hash list dialects.
func Detect(path string) (datfile.Format, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return datfile.FormatNone, fmt.Errorf("failed to open DAT file: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 8192)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return datfile.FormatNone, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	return detectBytes(filepath.Ext(path), buf[:n])
}

func detectBytes(ext string, head []byte) (datfile.Format, error) {
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimSpace(head)

	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return datfile.FormatLogiqx, nil
	case bytes.HasPrefix(trimmed, []byte("[")):
		return datfile.FormatRomCenter, nil
	case cmpHeaderRe.Match(trimmed):
		return datfile.FormatClrMamePro, nil
	}

	switch strings.ToLower(ext) {
	case ".sfv":
		return datfile.FormatSFV, nil
	case ".md5":
		return datfile.FormatMD5, nil
	case ".sha1":
		return datfile.FormatSHA1, nil
	}

	switch {
	case sha1LineRe.Match(trimmed):
		return datfile.FormatSHA1, nil
	case md5LineRe.Match(trimmed):
		return datfile.FormatMD5, nil
	case sfvLineRe.Match(trimmed):
		return datfile.FormatSFV, nil
	}
	return datfile.FormatNone, ErrUnknownFormat
}

// Parse reads the DAT at path into d. Header fields already set on d are
// kept; empty ones are filled from the file.
func Parse(ctx context.Context, path string, d *datfile.DatFile, opts ParseOptions) error {
	format := opts.Format
	if format == datfile.FormatNone {
		var err error
		if format, err = Detect(path); err != nil {
			return &ParseError{Path: path, Err: err}
		}
	}

	ctx, span := tracing.StartSpan(ctx, "formats.Parse",
		tracing.WithAttributes(
			attribute.String("dat.path", path),
			attribute.String("dat.format", format.String()),
		))
	defer span.End()

	start := time.Now()
	defer metrics.RecordParseDuration(format.String(), start)

	f, err := os.Open(path) // #nosec G304
	if err != nil {
		metrics.DatsParsed.WithLabelValues(format.String(), "failed").Inc()
		tracing.RecordError(span, err)
		return &ParseError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	in := &ingester{
		ctx:    ctx,
		d:      d,
		opts:   opts,
		path:   path,
		header: datfile.Header{Formats: format},
	}

	switch format {
	case datfile.FormatLogiqx:
		err = parseLogiqx(in, f)
	case datfile.FormatClrMamePro:
		err = parseClrMamePro(in, f)
	case datfile.FormatRomCenter:
		err = parseRomCenter(in, f)
	case datfile.FormatSFV, datfile.FormatMD5, datfile.FormatSHA1:
		err = parseHashList(in, f, format)
	default:
		err = ErrUnknownFormat
	}
	if err != nil {
		metrics.DatsParsed.WithLabelValues(format.String(), "failed").Inc()
		tracing.RecordError(span, err)
		var pe *ParseError
		if errors.As(err, &pe) {
			return err
		}
		return &ParseError{Path: path, Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	in.header.Fill(datfile.Header{FileName: base, Name: base, Description: base})
	d.Header.Fill(in.header)

	metrics.DatsParsed.WithLabelValues(format.String(), "ok").Inc()
	tracing.AddSpanAttributes(span, attribute.Int("dat.items", in.added))
	tracing.SetSpanOK(span)
	logging.Debug("parsed DAT", "path", path, "format", format.String(), "items", in.added, "skipped", in.skipped)
	return nil
}

// ingester carries the per-file state shared by every dialect reader.
type ingester struct {
	ctx    context.Context
	d      *datfile.DatFile
	opts   ParseOptions
	path   string
	header datfile.Header

	added   int
	skipped int
}

// cancelled reports a context error, checked at each game boundary.
func (in *ingester) cancelled() error {
	return in.ctx.Err()
}

// add tags, normalizes and filters item, then stores it.
func (in *ingester) add(item datitem.DatItem) {
	datitem.SetOrigin(item, in.opts.SystemID, in.opts.SystemName, in.opts.SourceID, in.opts.SourceName)
	normalize(item, in.path)

	if !in.opts.Filter.Passes(item) {
		in.skipped++
		return
	}
	in.d.AddItem(item)
	in.added++
	metrics.ItemsParsed.WithLabelValues(item.Type().String()).Inc()
}

// warnItem logs a malformed entry that is skipped.
func (in *ingester) warnItem(line int, msg string, args ...any) {
	in.skipped++
	logging.Warn(msg, append([]any{"path", in.path, "line", line}, args...)...)
}

// normalize applies the ingestion data-quality rules to Rom and Disk items.
func normalize(item datitem.DatItem, path string) {
	switch v := item.(type) {
	case *datitem.Rom:
		if v.Status != datitem.StatusNodump && (v.Size == 0 || v.Size == datitem.SizeUnknown) {
			if v.Hashes.IsZeroFile() || (v.Size == 0 && v.Hashes.IsEmpty()) {
				v.Size = 0
				v.Hashes = hashes.ZeroFile()
				return
			}
		}
		if v.Hashes.IsEmpty() && v.Status != datitem.StatusNodump {
			logging.Warn("no hashes for rom, marking nodump",
				"path", path, "machine", v.Machine.Name, "rom", v.Name)
			v.Status = datitem.StatusNodump
		}
	case *datitem.Disk:
		hs := v.Hashes
		hs.CRC = nil
		if hs.IsEmpty() && v.Status != datitem.StatusNodump {
			logging.Warn("no hashes for disk, marking nodump",
				"path", path, "machine", v.Machine.Name, "disk", v.Name)
			v.Status = datitem.StatusNodump
		}
		v.Hashes.CRC = nil
	}
}

// parseSize reads a size attribute. Empty means unknown; hex with a 0x
// prefix is accepted.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return datitem.SizeUnknown, nil
	}
	var (
		n   int64
		err error
	)
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		n, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		n, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n, nil
}
