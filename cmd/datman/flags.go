package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/filter"
)

// filterFlags are the item filter options shared by every command that
// parses DATs.
type filterFlags struct {
	opts            filter.Options
	statuses        []string
	notStatuses     []string
	machineTypes    []string
	notMachineTypes []string
	runnable        string
}

func addFilterFlags(fs *pflag.FlagSet) *filterFlags {
	f := &filterFlags{opts: filter.DefaultOptions()}
	o := &f.opts
	fs.StringSliceVar(&o.GameNames, "game", nil, "keep machines matching this name pattern")
	fs.StringSliceVar(&o.NotGameNames, "not-game", nil, "drop machines matching this name pattern")
	fs.StringSliceVar(&o.ItemNames, "item", nil, "keep items matching this name pattern")
	fs.StringSliceVar(&o.NotItemNames, "not-item", nil, "drop items matching this name pattern")
	fs.StringSliceVar(&o.ItemTypes, "type", nil, "keep items of this type (rom, disk, release, biosset, sample, archive)")
	fs.StringSliceVar(&o.NotItemTypes, "not-type", nil, "drop items of this type")
	fs.StringSliceVar(&o.CRCs, "crc", nil, "keep items whose CRC matches")
	fs.StringSliceVar(&o.NotCRCs, "not-crc", nil, "drop items whose CRC matches")
	fs.StringSliceVar(&o.MD5s, "md5", nil, "keep items whose MD5 matches")
	fs.StringSliceVar(&o.NotMD5s, "not-md5", nil, "drop items whose MD5 matches")
	fs.StringSliceVar(&o.SHA1s, "sha1", nil, "keep items whose SHA1 matches")
	fs.StringSliceVar(&o.NotSHA1s, "not-sha1", nil, "drop items whose SHA1 matches")
	fs.StringSliceVar(&f.statuses, "status", nil, "keep items with this status (good, baddump, nodump, verified)")
	fs.StringSliceVar(&f.notStatuses, "not-status", nil, "drop items with this status")
	fs.StringSliceVar(&f.machineTypes, "machine-type", nil, "keep machines of this type (bios, device, mechanical)")
	fs.StringSliceVar(&f.notMachineTypes, "not-machine-type", nil, "drop machines of this type")
	fs.StringVar(&f.runnable, "runnable", "", "keep only runnable (yes) or non-runnable (no) machines")
	fs.Int64Var(&o.SizeEqual, "size", -1, "keep items of exactly this size")
	fs.Int64Var(&o.SizeMin, "min-size", -1, "keep items of at least this size")
	fs.Int64Var(&o.SizeMax, "max-size", -1, "keep items of at most this size")
	return f
}

// build compiles the flags into a filter.
func (f *filterFlags) build() (*filter.Filter, error) {
	o := f.opts
	var err error
	if o.Statuses, err = statusMask(f.statuses); err != nil {
		return nil, err
	}
	if o.NotStatuses, err = statusMask(f.notStatuses); err != nil {
		return nil, err
	}
	if o.MachineTypes, err = machineMask(f.machineTypes); err != nil {
		return nil, err
	}
	if o.NotMachineTypes, err = machineMask(f.notMachineTypes); err != nil {
		return nil, err
	}
	if f.runnable != "" {
		o.Runnable = datitem.ParseYesNo(f.runnable)
		if o.Runnable == datitem.Unset {
			return nil, fmt.Errorf("invalid --runnable %q: want yes or no", f.runnable)
		}
	}
	return filter.New(o)
}

func statusMask(names []string) (datitem.ItemStatus, error) {
	var m datitem.ItemStatus
	for _, n := range names {
		s := datitem.ParseItemStatus(n)
		if s == datitem.StatusNone {
			return 0, fmt.Errorf("unknown status %q", n)
		}
		m |= s
	}
	return m, nil
}

func machineMask(names []string) (datitem.MachineType, error) {
	var m datitem.MachineType
	for _, n := range names {
		t := datitem.ParseMachineType(n)
		if t == datitem.MachineNone {
			return 0, fmt.Errorf("unknown machine type %q", n)
		}
		m |= t
	}
	return m, nil
}

// headerFlags override header fields of written DATs.
type headerFlags struct {
	h        datfile.Header
	superDAT bool
}

func addHeaderFlags(fs *pflag.FlagSet) *headerFlags {
	f := &headerFlags{}
	fs.StringVar(&f.h.FileName, "filename", "", "output file name without extension")
	fs.StringVar(&f.h.Name, "name", "", "DAT name")
	fs.StringVar(&f.h.Description, "description", "", "DAT description")
	fs.StringVar(&f.h.Category, "category", "", "DAT category")
	fs.StringVar(&f.h.Version, "dat-version", "", "DAT version")
	fs.StringVar(&f.h.Date, "date", "", "DAT date")
	fs.StringVar(&f.h.Author, "author", "", "DAT author")
	fs.StringVar(&f.h.Email, "email", "", "DAT author email")
	fs.StringVar(&f.h.Homepage, "homepage", "", "DAT homepage")
	fs.StringVar(&f.h.URL, "url", "", "DAT URL")
	fs.StringVar(&f.h.Comment, "comment", "", "DAT comment")
	fs.BoolVar(&f.superDAT, "superdat", false, "mark the output as a SuperDAT")
	fs.BoolVar(&f.h.Dedupe, "dedupe", false, "merge duplicate entries within each game on write")
	return f
}

// header returns the override header with the given output formats.
func (f *headerFlags) header(formats datfile.Format) datfile.Header {
	h := f.h
	if f.superDAT {
		h.Type = datfile.TypeSuperDAT
	}
	h.Formats = formats
	return h
}
