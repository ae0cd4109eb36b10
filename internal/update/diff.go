package update

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/formats"
	"github.com/ryanm101/datman/internal/logging"
	"github.com/ryanm101/datman/internal/tracing"
)

func outputName(outDir string, d *datfile.DatFile) string {
	return filepath.Join(outDir, d.Header.FileName)
}

// inputDir is where per-input outputs go: the output directory plus the
// input's directory relative to its root.
func (u *Updater) inputDir(in Input) string {
	return filepath.Join(u.opts.OutputDir, filepath.FromSlash(in.RelDir()))
}

// convert parses and writes each input on its own.
func (u *Updater) convert(ctx context.Context, inputs []Input, res *Result) {
	ctx, span := tracing.StartSpan(ctx, "update.convert")
	defer span.End()

	h := u.opts.Header
	h.FileName = ""

	u.forEach(ctx, len(inputs), func(i int) {
		if ctx.Err() != nil {
			return
		}
		in := inputs[i]
		d := datfile.New(h)
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
		u.write(ctx, d, u.inputDir(in), res)
	})
}

// merge writes one DAT holding the deduplicated union of every input.
// SuperDAT machine names are prefixed with the origin file's location.
func (u *Updater) merge(ctx context.Context, inputs []Input, res *Result) error {
	parsed := u.parseAll(ctx, inputs, res)
	if err := ctx.Err(); err != nil {
		return err
	}
	combined, err := combine(parsed)
	if err != nil {
		return err
	}

	_, span := tracing.StartSpan(ctx, "update.merge")
	combined.BucketBy(datfile.SortedGame, datfile.BucketOptions{Merge: true, NoRename: true})

	out := datfile.New(u.aggregateHeader(parsed, ""))
	superDAT := out.Header.IsSuperDAT()
	for _, item := range combined.Items() {
		if superDAT {
			if prefix, ok := originPrefix(inputs, item.Base().SystemID); ok {
				item = item.Clone()
				b := item.Base()
				b.Machine.Name = path.Join(prefix, b.Machine.Name)
			}
		}
		out.AddItem(item)
	}
	span.End()

	u.write(ctx, out, u.opts.OutputDir, res)
	return nil
}

func originPrefix(inputs []Input, systemID int) (string, bool) {
	if systemID < 0 || systemID >= len(inputs) {
		return "", false
	}
	in := inputs[systemID]
	return path.Join(in.RelDir(), in.Base()), true
}

// annotate returns a copy of item whose machine carries the origin file.
func annotate(item datitem.DatItem, inputs []Input) datitem.DatItem {
	sid := item.Base().SystemID
	if sid < 0 || sid >= len(inputs) {
		return item
	}
	out := item.Clone()
	m := &out.Base().Machine
	suffix := fmt.Sprintf(" (%s)", inputs[sid].Base())
	if m.Description == "" || m.Description == m.Name {
		m.Description = m.Name + suffix
	} else {
		m.Description += suffix
	}
	m.Name += suffix
	return out
}

// diffNoCascade partitions merged items by duplicate class: items unique
// to one input go to the no-dupes and individual outputs, items found in
// several inputs go to the dupes output.
func (u *Updater) diffNoCascade(ctx context.Context, inputs []Input, res *Result) error {
	parsed := u.parseAll(ctx, inputs, res)
	if err := ctx.Err(); err != nil {
		return err
	}
	combined, err := combine(parsed)
	if err != nil {
		return err
	}

	_, span := tracing.StartSpan(ctx, "update.diff")
	combined.BucketBy(datfile.SortedGame, datfile.BucketOptions{Merge: true, NoRename: true})

	mode := u.opts.Mode
	var nodupes, dupes *datfile.DatFile
	if mode.Has(DiffNoDupes) {
		nodupes = datfile.New(u.aggregateHeader(parsed, " (No Duplicates)"))
	}
	if mode.Has(DiffDupes) {
		dupes = datfile.New(u.aggregateHeader(parsed, " (Duplicates)"))
	}
	individuals := make([]*datfile.DatFile, len(inputs))
	if mode.Has(DiffIndividuals) {
		for i, d := range parsed {
			if d != nil {
				individuals[i] = datfile.New(u.inputHeader(d))
			}
		}
	}

	for _, item := range combined.Items() {
		b := item.Base()
		if b.DupeType.Has(datitem.DupeExternal) {
			if dupes != nil {
				dupes.AddItem(annotate(item, inputs))
			}
			continue
		}
		if nodupes != nil {
			nodupes.AddItem(annotate(item, inputs))
		}
		if mode.Has(DiffIndividuals) {
			if b.SystemID < 0 || b.SystemID >= len(individuals) || individuals[b.SystemID] == nil {
				logging.Warn("item has no origin input, skipping", "machine", b.Machine.Name, "name", b.Name, "system_id", b.SystemID)
				continue
			}
			individuals[b.SystemID].AddItem(item)
		}
	}
	span.End()

	outs := []*datfile.DatFile{nodupes, dupes}
	dirs := []string{u.opts.OutputDir, u.opts.OutputDir}
	for i, d := range individuals {
		outs = append(outs, d)
		dirs = append(dirs, u.inputDir(inputs[i]))
	}
	u.writeAll(ctx, outs, dirs, res)
	return nil
}

// diffCascade writes, per input, the merged items whose representative
// came from that input and that no other input shares.
func (u *Updater) diffCascade(ctx context.Context, inputs []Input, res *Result) error {
	parsed := u.parseAll(ctx, inputs, res)
	if err := ctx.Err(); err != nil {
		return err
	}
	combined, err := combine(parsed)
	if err != nil {
		return err
	}

	_, span := tracing.StartSpan(ctx, "update.cascade")
	combined.BucketBy(datfile.SortedGame, datfile.BucketOptions{Merge: true, NoRename: true})

	outs := make([]*datfile.DatFile, len(inputs))
	dirs := make([]string, len(inputs))
	for i, d := range parsed {
		dirs[i] = u.inputDir(inputs[i])
		if d != nil {
			outs[i] = datfile.New(u.inputHeader(d))
		}
	}

	for _, item := range combined.Items() {
		b := item.Base()
		if b.SystemID < 0 || b.SystemID >= len(outs) || outs[b.SystemID] == nil {
			logging.Warn("item has no origin input, skipping", "machine", b.Machine.Name, "name", b.Name, "system_id", b.SystemID)
			continue
		}
		if b.DupeType.Has(datitem.DupeExternal) {
			continue
		}
		outs[b.SystemID].AddItem(item)
	}
	span.End()

	u.writeAll(ctx, outs, dirs, res)
	return nil
}
