package dedupe

import (
	"strconv"

	"github.com/ryanm101/datman/internal/datitem"
)

// Logger receives diagnostic events. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
}

// ResolveNames makes item names unique within their machine. Exact
// duplicates of the previous kept item are dropped; Rom and Disk name
// collisions get a digest suffix, and repeated suffixes a counter.
// The returned slice is sorted by provenance, machine and name.
func ResolveNames(items []datitem.DatItem, log Logger) []datitem.DatItem {
	if len(items) == 0 {
		return items
	}

	sorted := make([]datitem.DatItem, len(items))
	copy(sorted, items)
	datitem.Sort(sorted, true)

	out := make([]datitem.DatItem, 0, len(sorted))
	var last datitem.DatItem
	lastRenamed := ""
	lastID := 0

	for _, item := range sorted {
		if last == nil {
			out = append(out, item)
			last = item
			continue
		}

		if DuplicateStatus(item, last)&datitem.DupeAll != 0 {
			debug(log, "exact duplicate dropped", "name", item.Base().Name, "machine", item.Base().Machine.Name)
			continue
		}

		b, lb := item.Base(), last.Base()
		if b.Name != lb.Name || b.Machine.Name != lb.Machine.Name || !datitem.IsRomLike(item) {
			out = append(out, item)
			last = item
			lastRenamed = ""
			lastID = 0
			continue
		}

		debug(log, "name collision", "name", b.Name, "machine", b.Machine.Name)
		renamed := item.Clone()
		name := b.Name + duplicateSuffix(item)
		if name == lastRenamed {
			lastID++
			renamed.Base().Name = name + "_" + strconv.Itoa(lastID)
		} else {
			lastRenamed = name
			lastID = 0
			renamed.Base().Name = name
		}
		out = append(out, renamed)
	}

	datitem.Sort(out, true)
	return out
}

// duplicateSuffix returns "_" plus the first available digest.
func duplicateSuffix(item datitem.DatItem) string {
	switch v := item.(type) {
	case *datitem.Rom:
		if _, h, ok := v.Hashes.First(); ok {
			return "_" + h
		}
	case *datitem.Disk:
		hs := v.Hashes
		hs.CRC = nil
		if _, h, ok := hs.First(); ok {
			return "_" + h
		}
	}
	return "_1"
}

func debug(log Logger, msg string, args ...any) {
	if log != nil {
		log.Debug(msg, args...)
	}
}
