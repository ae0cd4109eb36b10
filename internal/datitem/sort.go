package datitem

import (
	"cmp"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// NaturalCompare orders strings the way a human reads them: digit runs
// compare numerically and letters case-insensitively. Strings that only
// differ in case fall back to byte order so the result is total.
func NaturalCompare(a, b string) int {
	if a == b {
		return 0
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		if natural.Less(la, lb) {
			return -1
		}
		if natural.Less(lb, la) {
			return 1
		}
	}
	return strings.Compare(a, b)
}

// Compare orders items by machine name then item name. With provenance set,
// system and source ids take precedence.
func Compare(x, y DatItem, provenance bool) int {
	a, b := x.Base(), y.Base()
	if provenance {
		if c := cmp.Compare(a.SystemID, b.SystemID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.SourceID, b.SourceID); c != 0 {
			return c
		}
	}
	if c := NaturalCompare(a.Machine.Name, b.Machine.Name); c != 0 {
		return c
	}
	return NaturalCompare(a.Name, b.Name)
}

// Sort stable-sorts items in place.
func Sort(items []DatItem, provenance bool) {
	slices.SortStableFunc(items, func(x, y DatItem) int {
		return Compare(x, y, provenance)
	})
}

// SortStrings sorts keys in natural order.
func SortStrings(keys []string) {
	slices.SortFunc(keys, NaturalCompare)
}
