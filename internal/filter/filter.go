// Package filter decides which parsed items are kept.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
)

// Options are the raw user supplied filter settings. Name and hash patterns
// are globs (`*`, `?`) matched case-insensitively against the whole value;
// a pattern wrapped in slashes is a case-insensitive regular expression.
// A digest pattern never matches an item lacking that digest.
type Options struct {
	GameNames    []string
	NotGameNames []string
	ItemNames    []string
	NotItemNames []string
	ItemTypes    []string
	NotItemTypes []string
	CRCs         []string
	NotCRCs      []string
	MD5s         []string
	NotMD5s      []string
	SHA1s        []string
	NotSHA1s     []string

	Statuses        datitem.ItemStatus
	NotStatuses     datitem.ItemStatus
	MachineTypes    datitem.MachineType
	NotMachineTypes datitem.MachineType
	Runnable        datitem.YesNo

	// Size bounds in bytes; -1 leaves a bound unset.
	SizeEqual int64
	SizeMin   int64
	SizeMax   int64
}

// DefaultOptions returns options that let every item through.
func DefaultOptions() Options {
	return Options{SizeEqual: -1, SizeMin: -1, SizeMax: -1}
}

type patterns []*regexp.Regexp

func (p patterns) match(s string) bool {
	for _, re := range p {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Filter is a compiled Options. A nil *Filter passes everything.
type Filter struct {
	opts Options

	games, notGames patterns
	items, notItems patterns
	crcs, notCRCs   patterns
	md5s, notMD5s   patterns
	sha1s, notSHA1s patterns

	types, notTypes map[datitem.ItemType]bool
}

// New compiles the options.
func New(opts Options) (*Filter, error) {
	f := &Filter{opts: opts}

	lists := []struct {
		dst *patterns
		src []string
	}{
		{&f.games, opts.GameNames},
		{&f.notGames, opts.NotGameNames},
		{&f.items, opts.ItemNames},
		{&f.notItems, opts.NotItemNames},
		{&f.crcs, opts.CRCs},
		{&f.notCRCs, opts.NotCRCs},
		{&f.md5s, opts.MD5s},
		{&f.notMD5s, opts.NotMD5s},
		{&f.sha1s, opts.SHA1s},
		{&f.notSHA1s, opts.NotSHA1s},
	}
	for _, l := range lists {
		for _, p := range l.src {
			re, err := Compile(p)
			if err != nil {
				return nil, err
			}
			*l.dst = append(*l.dst, re)
		}
	}

	var err error
	if f.types, err = parseTypes(opts.ItemTypes); err != nil {
		return nil, err
	}
	if f.notTypes, err = parseTypes(opts.NotItemTypes); err != nil {
		return nil, err
	}
	return f, nil
}

func parseTypes(names []string) (map[datitem.ItemType]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make(map[datitem.ItemType]bool, len(names))
	for _, n := range names {
		t, ok := datitem.ParseItemType(n)
		if !ok {
			return nil, fmt.Errorf("unknown item type %q", n)
		}
		out[t] = true
	}
	return out, nil
}

// Compile turns a glob or /regex/ pattern into an anchored,
// case-insensitive expression.
func Compile(pattern string) (*regexp.Regexp, error) {
	if len(pattern) >= 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		re, err := regexp.Compile("(?i)" + pattern[1:len(pattern)-1])
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
		}
		return re, nil
	}

	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Passes reports whether item satisfies every configured criterion.
func (f *Filter) Passes(item datitem.DatItem) bool {
	if f == nil {
		return true
	}
	b := item.Base()

	if !includeExclude(f.games, f.notGames, b.Machine.Name) {
		return false
	}
	if !includeExclude(f.items, f.notItems, b.Name) {
		return false
	}
	if f.types != nil && !f.types[item.Type()] {
		return false
	}
	if f.notTypes[item.Type()] {
		return false
	}

	if !f.passesMachine(&b.Machine) {
		return false
	}

	switch v := item.(type) {
	case *datitem.Rom:
		return f.passesStatus(v.Status) &&
			f.passesSize(v.Size) &&
			f.passesHashes(&v.Hashes, true)
	case *datitem.Disk:
		return f.passesStatus(v.Status) && f.passesHashes(&v.Hashes, false)
	}
	return true
}

func (f *Filter) passesMachine(m *datitem.Machine) bool {
	if f.opts.MachineTypes != 0 && m.Type&f.opts.MachineTypes == 0 {
		return false
	}
	if m.Type&f.opts.NotMachineTypes != 0 {
		return false
	}
	if f.opts.Runnable != datitem.Unset && m.Runnable != f.opts.Runnable {
		return false
	}
	return true
}

func (f *Filter) passesStatus(s datitem.ItemStatus) bool {
	if f.opts.Statuses != 0 && s&f.opts.Statuses == 0 {
		return false
	}
	return s&f.opts.NotStatuses == 0
}

func (f *Filter) passesSize(size int64) bool {
	o := f.opts
	if o.SizeEqual < 0 && o.SizeMin < 0 && o.SizeMax < 0 {
		return true
	}
	if size == datitem.SizeUnknown {
		return false
	}
	if o.SizeEqual >= 0 && size != o.SizeEqual {
		return false
	}
	if o.SizeMin >= 0 && size < o.SizeMin {
		return false
	}
	if o.SizeMax >= 0 && size > o.SizeMax {
		return false
	}
	return true
}

func (f *Filter) passesHashes(h *hashes.Set, withCRC bool) bool {
	if withCRC && !includeExcludeDigest(f.crcs, f.notCRCs, h.CRC) {
		return false
	}
	if !withCRC && len(f.crcs) > 0 {
		return false
	}
	return includeExcludeDigest(f.md5s, f.notMD5s, h.MD5) &&
		includeExcludeDigest(f.sha1s, f.notSHA1s, h.SHA1)
}

func includeExclude(include, exclude patterns, s string) bool {
	if len(include) > 0 && !include.match(s) {
		return false
	}
	return !exclude.match(s)
}

// includeExcludeDigest never matches a missing digest against either list.
func includeExcludeDigest(include, exclude patterns, digest []byte) bool {
	if len(digest) == 0 {
		return len(include) == 0
	}
	return includeExclude(include, exclude, hashes.String(digest))
}
