package datitem

import "github.com/ryanm101/datman/internal/hashes"

// SizeUnknown marks a Rom whose size was not provided.
const SizeUnknown int64 = -1

// Rom is a single file inside a machine.
type Rom struct {
	Common
	Size     int64
	Hashes   hashes.Set
	Date     string
	Status   ItemStatus
	MergeTag string
	Region   string
	Offset   string
	Bios     string
	Optional YesNo
}

// NewRom returns a Rom with an unknown size.
func NewRom(name string) *Rom {
	return &Rom{Common: Common{Name: name}, Size: SizeUnknown}
}

func (r *Rom) Type() ItemType { return TypeRom }

func (r *Rom) Clone() DatItem {
	out := *r
	out.Common = r.Common.clone()
	out.Hashes = r.Hashes.Clone()
	return &out
}

// Equals implements the hash evidence rules: a missing digest is never a
// mismatch, but two items with no digest in common are not the same file
// unless both are same-named nodumps.
func (r *Rom) Equals(other DatItem) bool {
	o, ok := other.(*Rom)
	if !ok {
		return false
	}
	if eq, decided := nodumpEquals(r.Name, o.Name, r.Status, o.Status, &r.Hashes, &o.Hashes); decided {
		return eq
	}
	if !r.Hashes.HasCommon(&o.Hashes) {
		return false
	}
	return sizesAgree(r.Size, o.Size) && r.Hashes.Agrees(&o.Hashes)
}

// Disk is a CHD style image. Disks never carry a CRC.
type Disk struct {
	Common
	Hashes   hashes.Set
	Status   ItemStatus
	MergeTag string
	Region   string
	Index    string
	Writable YesNo
	Optional YesNo
}

// NewDisk returns an empty Disk.
func NewDisk(name string) *Disk {
	return &Disk{Common: Common{Name: name}}
}

func (d *Disk) Type() ItemType { return TypeDisk }

func (d *Disk) Clone() DatItem {
	out := *d
	out.Common = d.Common.clone()
	out.Hashes = d.Hashes.Clone()
	out.Hashes.CRC = nil
	return &out
}

func (d *Disk) Equals(other DatItem) bool {
	o, ok := other.(*Disk)
	if !ok {
		return false
	}
	a, b := d.Hashes, o.Hashes
	a.CRC, b.CRC = nil, nil
	if eq, decided := nodumpEquals(d.Name, o.Name, d.Status, o.Status, &a, &b); decided {
		return eq
	}
	if !a.HasCommon(&b) {
		return false
	}
	return a.Agrees(&b)
}

// nodumpEquals handles the nodump-vs-nodump case: same name and no digest in
// common counts as the same entry.
func nodumpEquals(aName, bName string, aStatus, bStatus ItemStatus, a, b *hashes.Set) (equal, decided bool) {
	if aStatus != StatusNodump || bStatus != StatusNodump {
		return false, false
	}
	if aName == bName && !a.HasCommon(b) {
		return true, true
	}
	return false, false
}

func sizesAgree(a, b int64) bool {
	if a == SizeUnknown || b == SizeUnknown {
		return true
	}
	return a == b
}
