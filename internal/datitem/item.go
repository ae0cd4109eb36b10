// Package datitem holds the uniform in-memory model for DAT entries.
package datitem

import "slices"

// DatItem is the closed set of catalog entry variants: *Rom, *Disk,
// *Release, *BiosSet, *Archive, *Sample and *Blank.
type DatItem interface {
	Type() ItemType
	// Base exposes the fields shared by every variant.
	Base() *Common
	// Clone returns a deep copy, including the owned Machine.
	Clone() DatItem
	// Equals reports whether both items describe the same artifact.
	Equals(other DatItem) bool

	sealed()
}

// Common carries the fields shared by every variant.
type Common struct {
	Name       string
	DupeType   DupeType
	SystemID   int
	SystemName string
	SourceID   int
	SourceName string
	Machine    Machine

	// Software list fields.
	Supported     YesNo
	Publisher     string
	Infos         []KeyValue
	PartName      string
	PartInterface string
	Features      []KeyValue
	AreaName      string
	AreaSize      *int64
}

// Base returns c itself; it is promoted to every variant.
func (c *Common) Base() *Common { return c }

func (c *Common) sealed() {}

func (c *Common) clone() Common {
	out := *c
	out.Machine = c.Machine.Clone()
	out.Infos = slices.Clone(c.Infos)
	out.Features = slices.Clone(c.Features)
	if c.AreaSize != nil {
		size := *c.AreaSize
		out.AreaSize = &size
	}
	return out
}

// MachineName returns the owning machine's name.
func (c *Common) MachineName() string { return c.Machine.Name }

// SetMachine stores a deep copy of m on the item.
func (c *Common) SetMachine(m Machine) { c.Machine = m.Clone() }

// CopyMachineInformation deep-copies src's machine onto dst.
func CopyMachineInformation(dst, src DatItem) {
	dst.Base().Machine = src.Base().Machine.Clone()
}

// SetOrigin tags the item with its system and source provenance.
func SetOrigin(item DatItem, systemID int, systemName string, sourceID int, sourceName string) {
	b := item.Base()
	b.SystemID = systemID
	b.SystemName = systemName
	b.SourceID = sourceID
	b.SourceName = sourceName
}

// Status returns the dump status for Rom and Disk items, StatusNone otherwise.
func Status(item DatItem) ItemStatus {
	switch v := item.(type) {
	case *Rom:
		return v.Status
	case *Disk:
		return v.Status
	}
	return StatusNone
}

// IsNodump reports whether item is a Rom or Disk flagged nodump.
func IsNodump(item DatItem) bool {
	return Status(item) == StatusNodump
}

// IsRomLike reports whether item takes part in hash based deduplication.
func IsRomLike(item DatItem) bool {
	t := item.Type()
	return t == TypeRom || t == TypeDisk
}
