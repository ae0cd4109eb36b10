package datfile

import (
	"slices"
	"sync"

	"github.com/ryanm101/datman/internal/datitem"
)

// DatFile is a parsed or generated DAT: a header plus a multimap of items
// keyed by the current bucketing dimension. It is safe for concurrent use.
type DatFile struct {
	Header Header

	mu       sync.RWMutex
	files    map[string][]datitem.DatItem
	sortedBy SortedBy
	noRename bool
	stats    Stats
}

// New returns an empty DatFile with the given header.
func New(h Header) *DatFile {
	return &DatFile{
		Header: h,
		files:  make(map[string][]datitem.DatItem),
	}
}

// Add appends items under key.
func (d *DatFile) Add(key string, items ...datitem.DatItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(key, items)
}

// AddItem appends item under the key for the current bucketing, or under
// its provisional key when the DAT is not bucketed.
func (d *DatFile) AddItem(item datitem.DatItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := ProvisionalKey(item)
	if d.sortedBy != SortedNone {
		key = Key(item, d.sortedBy, d.noRename)
	}
	d.addLocked(key, []datitem.DatItem{item})
}

// AddRange appends every item of the map.
func (d *DatFile) AddRange(items map[string][]datitem.DatItem) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range items {
		d.addLocked(k, v)
	}
}

func (d *DatFile) addLocked(key string, items []datitem.DatItem) {
	if len(items) == 0 {
		return
	}
	d.files[key] = append(d.files[key], items...)
	for _, it := range items {
		d.stats.AddItem(it)
	}
}

// Get returns a copy of the bucket for key.
func (d *DatFile) Get(key string) []datitem.DatItem {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.files[key])
}

// Remove drops the bucket for key and returns it.
func (d *DatFile) Remove(key string) []datitem.DatItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	items, ok := d.files[key]
	if !ok {
		return nil
	}
	delete(d.files, key)
	for _, it := range items {
		d.stats.RemoveItem(it)
	}
	return items
}

// Keys returns the bucket keys in natural order.
func (d *DatFile) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0, len(d.files))
	for k := range d.files {
		keys = append(keys, k)
	}
	datitem.SortStrings(keys)
	return keys
}

// Len returns the number of buckets.
func (d *DatFile) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.files)
}

// Count returns the number of items across all buckets.
func (d *DatFile) Count() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats.Count
}

// Stats returns a snapshot of the counters.
func (d *DatFile) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

// SortedBy returns the current bucketing dimension.
func (d *DatFile) SortedBy() SortedBy {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sortedBy
}

// Items returns every item in key order.
func (d *DatFile) Items() []datitem.DatItem {
	keys := d.Keys()
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]datitem.DatItem, 0, d.stats.Count)
	for _, k := range keys {
		out = append(out, d.files[k]...)
	}
	return out
}

// AddFrom appends every bucket of other under the same keys. The receiver
// loses its bucketing since the merged keys may not agree.
func (d *DatFile) AddFrom(other *DatFile) {
	if other == d {
		return
	}
	other.mu.RLock()
	snapshot := make(map[string][]datitem.DatItem, len(other.files))
	for k, v := range other.files {
		snapshot[k] = slices.Clone(v)
	}
	otherSorted, otherNoRename := other.sortedBy, other.noRename
	other.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	empty := len(d.files) == 0
	for k, v := range snapshot {
		d.addLocked(k, v)
	}
	if empty {
		d.sortedBy, d.noRename = otherSorted, otherNoRename
	} else if d.sortedBy != otherSorted || d.noRename != otherNoRename {
		d.sortedBy = SortedNone
	}
}

// Reset drops every item and the bucketing state, keeping the header.
func (d *DatFile) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files = make(map[string][]datitem.DatItem)
	d.sortedBy = SortedNone
	d.noRename = false
	d.stats = Stats{}
}

// CloneHeader returns an empty DatFile sharing a copy of the header.
func (d *DatFile) CloneHeader() *DatFile {
	return New(d.Header)
}

// Recalculate rebuilds the counters from the current items.
func (d *DatFile) Recalculate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = statsOf(d.files)
}

// BucketBy re-keys the DAT by dim. It is a no-op when the DAT is already
// bucketed that way.
func (d *DatFile) BucketBy(dim SortedBy, opts BucketOptions) {
	if dim == SortedNone {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sortedBy == dim && (dim != SortedGame || d.noRename == opts.NoRename) {
		return
	}
	d.files, d.stats = Rebucket(d.files, dim, opts)
	d.sortedBy = dim
	d.noRename = opts.NoRename
}

func statsOf(files map[string][]datitem.DatItem) Stats {
	var s Stats
	for _, items := range files {
		for _, it := range items {
			s.AddItem(it)
		}
	}
	return s
}
