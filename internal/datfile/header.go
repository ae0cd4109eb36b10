// Package datfile holds a DAT's header, its bucketed item multimap and the
// running statistics, plus the bucketing engine that re-keys items.
package datfile

import "strings"

// Format is a bit set of output dialects.
type Format uint32

const (
	FormatLogiqx Format = 1 << iota
	FormatClrMamePro
	FormatRomCenter
	FormatSFV
	FormatMD5
	FormatSHA1

	FormatNone Format = 0
)

var formatNames = []struct {
	f    Format
	name string
}{
	{FormatLogiqx, "logiqx"},
	{FormatClrMamePro, "clrmamepro"},
	{FormatRomCenter, "romcenter"},
	{FormatSFV, "sfv"},
	{FormatMD5, "md5"},
	{FormatSHA1, "sha1"},
}

// Each returns the individual formats set in f, in declaration order.
func (f Format) Each() []Format {
	var out []Format
	for _, fn := range formatNames {
		if f&fn.f != 0 {
			out = append(out, fn.f)
		}
	}
	return out
}

func (f Format) String() string {
	var parts []string
	for _, fn := range formatNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseFormat maps a dialect name, including common aliases.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "logiqx", "xml", "xml-logiqx":
		return FormatLogiqx, true
	case "clrmamepro", "cmp", "dat":
		return FormatClrMamePro, true
	case "romcenter", "rc":
		return FormatRomCenter, true
	case "sfv":
		return FormatSFV, true
	case "md5":
		return FormatMD5, true
	case "sha1":
		return FormatSHA1, true
	}
	return FormatNone, false
}

// ForceMerging mirrors the clrmamepro forcemerging header flag.
type ForceMerging int

const (
	MergingNone ForceMerging = iota
	MergingSplit
	MergingMerged
	MergingNonMerged
	MergingFull
)

func (m ForceMerging) String() string {
	switch m {
	case MergingSplit:
		return "split"
	case MergingMerged:
		return "merged"
	case MergingNonMerged:
		return "nonmerged"
	case MergingFull:
		return "full"
	}
	return ""
}

// ParseForceMerging maps the header attribute value.
func ParseForceMerging(s string) ForceMerging {
	switch strings.ToLower(s) {
	case "split":
		return MergingSplit
	case "merged":
		return MergingMerged
	case "nonmerged", "unmerged":
		return MergingNonMerged
	case "full":
		return MergingFull
	}
	return MergingNone
}

// ForceNodump mirrors the clrmamepro forcenodump header flag.
type ForceNodump int

const (
	NodumpNone ForceNodump = iota
	NodumpObsolete
	NodumpRequired
	NodumpIgnore
)

func (n ForceNodump) String() string {
	switch n {
	case NodumpObsolete:
		return "obsolete"
	case NodumpRequired:
		return "required"
	case NodumpIgnore:
		return "ignore"
	}
	return ""
}

// ParseForceNodump maps the header attribute value.
func ParseForceNodump(s string) ForceNodump {
	switch strings.ToLower(s) {
	case "obsolete":
		return NodumpObsolete
	case "required":
		return NodumpRequired
	case "ignore":
		return NodumpIgnore
	}
	return NodumpNone
}

// ForcePacking mirrors the clrmamepro forcepacking header flag.
type ForcePacking int

const (
	PackingNone ForcePacking = iota
	PackingZip
	PackingUnzip
)

func (p ForcePacking) String() string {
	switch p {
	case PackingZip:
		return "zip"
	case PackingUnzip:
		return "unzip"
	}
	return ""
}

// ParseForcePacking maps the header attribute value.
func ParseForcePacking(s string) ForcePacking {
	switch strings.ToLower(s) {
	case "zip":
		return PackingZip
	case "unzip":
		return PackingUnzip
	}
	return PackingNone
}

// TypeSuperDAT marks a DAT whose machine names encode relative paths.
const TypeSuperDAT = "SuperDAT"

// Header is the DAT level metadata.
type Header struct {
	FileName    string
	Name        string
	Description string
	RootDir     string
	Category    string
	Version     string
	Date        string
	Author      string
	Email       string
	Homepage    string
	URL         string
	Comment     string
	Type        string

	ForceMerging ForceMerging
	ForceNodump  ForceNodump
	ForcePacking ForcePacking

	// Formats selects the dialects written for this DAT.
	Formats Format
	// Dedupe merges duplicates within each game before writing.
	Dedupe bool
}

// IsSuperDAT reports whether the header marks a SuperDAT.
func (h *Header) IsSuperDAT() bool {
	return strings.EqualFold(h.Type, TypeSuperDAT)
}

// Fill copies every empty field of h from o.
func (h *Header) Fill(o Header) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&h.FileName, o.FileName)
	fill(&h.Name, o.Name)
	fill(&h.Description, o.Description)
	fill(&h.RootDir, o.RootDir)
	fill(&h.Category, o.Category)
	fill(&h.Version, o.Version)
	fill(&h.Date, o.Date)
	fill(&h.Author, o.Author)
	fill(&h.Email, o.Email)
	fill(&h.Homepage, o.Homepage)
	fill(&h.URL, o.URL)
	fill(&h.Comment, o.Comment)
	fill(&h.Type, o.Type)
	if h.ForceMerging == MergingNone {
		h.ForceMerging = o.ForceMerging
	}
	if h.ForceNodump == NodumpNone {
		h.ForceNodump = o.ForceNodump
	}
	if h.ForcePacking == PackingNone {
		h.ForcePacking = o.ForcePacking
	}
	if h.Formats == FormatNone {
		h.Formats = o.Formats
	}
}

// AppendSuffix appends s to the file name, name and description.
func (h *Header) AppendSuffix(s string) {
	h.FileName += s
	h.Name += s
	h.Description += s
}
