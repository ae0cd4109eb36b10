package datfile

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/dedupe"
	"github.com/ryanm101/datman/internal/hashes"
)

// SortedBy is the dimension items are currently keyed by.
type SortedBy int

const (
	SortedNone SortedBy = iota
	SortedGame
	SortedSize
	SortedCRC
	SortedMD5
	SortedSHA1
)

func (s SortedBy) String() string {
	switch s {
	case SortedGame:
		return "game"
	case SortedSize:
		return "size"
	case SortedCRC:
		return "crc"
	case SortedMD5:
		return "md5"
	case SortedSHA1:
		return "sha1"
	}
	return "none"
}

// BucketOptions controls Rebucket.
type BucketOptions struct {
	// Merge deduplicates every existing bucket before re-keying.
	Merge bool
	// NoRename drops the system/source prefix from game keys so identical
	// machine names from different inputs share a bucket.
	NoRename bool
}

// Key derives the bucket key of item for dim.
func Key(item datitem.DatItem, dim SortedBy, noRename bool) string {
	b := item.Base()
	switch dim {
	case SortedGame:
		key := strings.ToLower(html.EscapeString(b.Machine.Name))
		if noRename {
			return key
		}
		return fmt.Sprintf("%010d-%010d-%s", b.SystemID, b.SourceID, key)
	case SortedSize:
		if r, ok := item.(*datitem.Rom); ok {
			return strconv.FormatInt(r.Size, 10)
		}
		return strconv.FormatInt(datitem.SizeUnknown, 10)
	case SortedCRC:
		if r, ok := item.(*datitem.Rom); ok && len(r.Hashes.CRC) > 0 {
			return hashes.String(r.Hashes.CRC)
		}
		return hashes.CRCZero
	case SortedMD5:
		return digestKey(item, hashes.MD5)
	case SortedSHA1:
		return digestKey(item, hashes.SHA1)
	}
	return ""
}

func digestKey(item datitem.DatItem, k hashes.Kind) string {
	var h []byte
	switch v := item.(type) {
	case *datitem.Rom:
		h = v.Hashes.Get(k)
	case *datitem.Disk:
		h = v.Hashes.Get(k)
	}
	if len(h) == 0 {
		return hashes.Zero(k)
	}
	return hashes.String(h)
}

// ProvisionalKey is the ingestion key: size and CRC joined by a dash.
func ProvisionalKey(item datitem.DatItem) string {
	return Key(item, SortedSize, true) + "-" + Key(item, SortedCRC, true)
}

// Rebucket optionally merges every existing bucket, re-keys the survivors
// by dim, and stable-sorts each new bucket in natural order. Merging runs on
// the source keys, so a DAT still under its ingestion keys collapses equal
// content regardless of machine name. The input map is not modified.
func Rebucket(items map[string][]datitem.DatItem, dim SortedBy, opts BucketOptions) (map[string][]datitem.DatItem, Stats) {
	out := make(map[string][]datitem.DatItem, len(items))

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	datitem.SortStrings(keys)

	for _, k := range keys {
		bucket := items[k]
		if opts.Merge {
			bucket = dedupe.Merge(bucket)
		}
		for _, it := range bucket {
			nk := Key(it, dim, opts.NoRename)
			out[nk] = append(out[nk], it)
		}
	}

	for _, bucket := range out {
		datitem.Sort(bucket, false)
	}

	return out, statsOf(out)
}
