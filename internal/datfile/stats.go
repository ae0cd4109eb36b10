package datfile

import (
	"math"

	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
)

// Stats are the running counters of a DAT.
type Stats struct {
	Count        int64
	RomCount     int64
	DiskCount    int64
	ReleaseCount int64
	BiosSetCount int64
	SampleCount  int64
	ArchiveCount int64
	BlankCount   int64

	// TotalSize sums known Rom sizes, excluding nodumps. It saturates at
	// math.MaxInt64 instead of wrapping.
	TotalSize int64

	CRCCount    int64
	MD5Count    int64
	SHA1Count   int64
	SHA256Count int64
	SHA384Count int64
	SHA512Count int64

	GoodCount     int64
	BadDumpCount  int64
	NodumpCount   int64
	VerifiedCount int64
}

// AddItem accounts for one item.
func (s *Stats) AddItem(item datitem.DatItem) {
	s.apply(item, 1)
}

// RemoveItem reverses AddItem.
func (s *Stats) RemoveItem(item datitem.DatItem) {
	s.apply(item, -1)
}

// Add accumulates another set of counters.
func (s *Stats) Add(o Stats) {
	s.Count += o.Count
	s.RomCount += o.RomCount
	s.DiskCount += o.DiskCount
	s.ReleaseCount += o.ReleaseCount
	s.BiosSetCount += o.BiosSetCount
	s.SampleCount += o.SampleCount
	s.ArchiveCount += o.ArchiveCount
	s.BlankCount += o.BlankCount
	s.TotalSize = addSize(s.TotalSize, o.TotalSize)
	s.CRCCount += o.CRCCount
	s.MD5Count += o.MD5Count
	s.SHA1Count += o.SHA1Count
	s.SHA256Count += o.SHA256Count
	s.SHA384Count += o.SHA384Count
	s.SHA512Count += o.SHA512Count
	s.GoodCount += o.GoodCount
	s.BadDumpCount += o.BadDumpCount
	s.NodumpCount += o.NodumpCount
	s.VerifiedCount += o.VerifiedCount
}

func (s *Stats) apply(item datitem.DatItem, d int64) {
	s.Count += d

	switch v := item.(type) {
	case *datitem.Rom:
		s.RomCount += d
		if v.Status != datitem.StatusNodump && v.Size > 0 {
			s.TotalSize = addSize(s.TotalSize, d*v.Size)
		}
		s.applyHashes(&v.Hashes, d)
		s.applyStatus(v.Status, d)
	case *datitem.Disk:
		s.DiskCount += d
		s.applyHashes(&v.Hashes, d)
		s.applyStatus(v.Status, d)
	case *datitem.Release:
		s.ReleaseCount += d
	case *datitem.BiosSet:
		s.BiosSetCount += d
	case *datitem.Sample:
		s.SampleCount += d
	case *datitem.Archive:
		s.ArchiveCount += d
	case *datitem.Blank:
		s.BlankCount += d
	}
}

func (s *Stats) applyHashes(h *hashes.Set, d int64) {
	if len(h.CRC) > 0 {
		s.CRCCount += d
	}
	if len(h.MD5) > 0 {
		s.MD5Count += d
	}
	if len(h.SHA1) > 0 {
		s.SHA1Count += d
	}
	if len(h.SHA256) > 0 {
		s.SHA256Count += d
	}
	if len(h.SHA384) > 0 {
		s.SHA384Count += d
	}
	if len(h.SHA512) > 0 {
		s.SHA512Count += d
	}
}

func (s *Stats) applyStatus(st datitem.ItemStatus, d int64) {
	switch st {
	case datitem.StatusGood:
		s.GoodCount += d
	case datitem.StatusBadDump:
		s.BadDumpCount += d
	case datitem.StatusNodump:
		s.NodumpCount += d
	case datitem.StatusVerified:
		s.VerifiedCount += d
	}
}

// addSize adds with saturation at both ends and never goes below zero.
func addSize(total, delta int64) int64 {
	if delta > 0 && total > math.MaxInt64-delta {
		return math.MaxInt64
	}
	total += delta
	if total < 0 {
		return 0
	}
	return total
}
