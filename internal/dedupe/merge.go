// Package dedupe collapses duplicate DAT entries inside a single bucket and
// disambiguates colliding names before output.
package dedupe

import (
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
	"github.com/ryanm101/datman/internal/metrics"
)

// DuplicateStatus classifies current against an item already kept in the
// output. It returns DupeNone when the two are not equal.
func DuplicateStatus(current, last datitem.DatItem) datitem.DupeType {
	if !current.Equals(last) {
		return datitem.DupeNone
	}

	c, l := current.Base(), last.Base()
	var out datitem.DupeType
	if l.DupeType&datitem.DupeExternal != 0 || l.SystemID != c.SystemID || l.SourceID != c.SourceID {
		out = datitem.DupeExternal
	} else {
		out = datitem.DupeInternal
	}

	if l.Machine.Name == c.Machine.Name && l.Name == c.Name {
		return out | datitem.DupeAll
	}
	return out | datitem.DupeHash
}

// Merge collapses duplicates within one bucket in a single forward pass.
//
// Items that are not Rom or Disk, and nodump entries, pass straight through.
// Every other item is compared against the accepted output in order; the
// first match absorbs the candidate's missing digests and, when the
// candidate comes from an earlier system or source, its provenance and
// naming. The input slice and its items are not modified.
func Merge(items []datitem.DatItem) []datitem.DatItem {
	if len(items) == 0 {
		return items
	}

	out := make([]datitem.DatItem, 0, len(items))
	owned := make([]bool, 0, len(items))

	for _, item := range items {
		if !datitem.IsRomLike(item) || datitem.IsNodump(item) {
			out = append(out, item)
			owned = append(owned, false)
			continue
		}

		matched := false
		for i, kept := range out {
			if !datitem.IsRomLike(kept) || datitem.IsNodump(kept) {
				continue
			}

			dupe := DuplicateStatus(item, kept)
			if dupe == datitem.DupeNone {
				continue
			}

			if !owned[i] {
				kept = kept.Clone()
				out[i] = kept
				owned[i] = true
			}
			absorb(kept, item, dupe)
			matched = true
			break
		}

		if !matched {
			out = append(out, item)
			owned = append(owned, false)
		}
	}

	return out
}

// absorb folds a duplicate candidate into the kept item.
func absorb(kept, candidate datitem.DatItem, dupe datitem.DupeType) {
	fillHashes(kept, candidate)

	k, c := kept.Base(), candidate.Base()
	k.DupeType = dupe
	if dupe&datitem.DupeExternal != 0 {
		metrics.ItemsMerged.WithLabelValues("external").Inc()
	} else {
		metrics.ItemsMerged.WithLabelValues("internal").Inc()
	}

	if c.SystemID < k.SystemID {
		k.SystemID = c.SystemID
		k.SystemName = c.SystemName
		datitem.CopyMachineInformation(kept, candidate)
		k.Name = c.Name
	}

	if c.SourceID < k.SourceID {
		k.SourceID = c.SourceID
		k.SourceName = c.SourceName
		datitem.CopyMachineInformation(kept, candidate)
		k.Name = c.Name
	}

	// Prefer the parent set's naming when the kept item lives in a clone.
	if c.Machine.IsParentOf(&k.Machine) {
		datitem.CopyMachineInformation(kept, candidate)
		k.Name = c.Name
	}
}

func fillHashes(kept, candidate datitem.DatItem) {
	var dst, src *hashes.Set
	switch k := kept.(type) {
	case *datitem.Rom:
		dst = &k.Hashes
		if c, ok := candidate.(*datitem.Rom); ok {
			src = &c.Hashes
		}
	case *datitem.Disk:
		dst = &k.Hashes
		if c, ok := candidate.(*datitem.Disk); ok {
			src = &c.Hashes
		}
	}
	if dst == nil || src == nil {
		return
	}
	dst.Fill(src)
	if _, isDisk := kept.(*datitem.Disk); isDisk {
		dst.CRC = nil
	}
}
