package datitem

import "strings"

// ItemType identifies the DatItem variant.
type ItemType int

const (
	TypeRom ItemType = iota
	TypeDisk
	TypeRelease
	TypeBiosSet
	TypeArchive
	TypeSample
	TypeBlank
)

func (t ItemType) String() string {
	switch t {
	case TypeRom:
		return "rom"
	case TypeDisk:
		return "disk"
	case TypeRelease:
		return "release"
	case TypeBiosSet:
		return "biosset"
	case TypeArchive:
		return "archive"
	case TypeSample:
		return "sample"
	case TypeBlank:
		return "blank"
	}
	return "unknown"
}

// ParseItemType maps a type name to an ItemType.
func ParseItemType(s string) (ItemType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rom":
		return TypeRom, true
	case "disk":
		return TypeDisk, true
	case "release":
		return TypeRelease, true
	case "biosset":
		return TypeBiosSet, true
	case "archive":
		return TypeArchive, true
	case "sample":
		return TypeSample, true
	case "blank":
		return TypeBlank, true
	}
	return 0, false
}

// DupeType classifies a detected duplicate.
type DupeType uint8

const (
	DupeNone     DupeType = 0
	DupeInternal DupeType = 1 << 0
	DupeExternal DupeType = 1 << 1
	DupeHash     DupeType = 1 << 2
	DupeAll      DupeType = 1 << 3
)

// Has reports whether every bit of f is set.
func (d DupeType) Has(f DupeType) bool { return d&f == f && f != 0 }

func (d DupeType) String() string {
	if d == DupeNone {
		return "none"
	}
	var parts []string
	if d&DupeInternal != 0 {
		parts = append(parts, "internal")
	}
	if d&DupeExternal != 0 {
		parts = append(parts, "external")
	}
	if d&DupeHash != 0 {
		parts = append(parts, "hash")
	}
	if d&DupeAll != 0 {
		parts = append(parts, "all")
	}
	return strings.Join(parts, "|")
}

// ItemStatus is the dump status of a Rom or Disk. Values are bit flags so
// filters can hold a mask of accepted statuses.
type ItemStatus uint8

const (
	StatusNone     ItemStatus = 0
	StatusGood     ItemStatus = 1 << 0
	StatusBadDump  ItemStatus = 1 << 1
	StatusNodump   ItemStatus = 1 << 2
	StatusVerified ItemStatus = 1 << 3
)

func (s ItemStatus) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusBadDump:
		return "baddump"
	case StatusNodump:
		return "nodump"
	case StatusVerified:
		return "verified"
	}
	return ""
}

// ParseItemStatus maps the status spellings used by DAT dialects.
func ParseItemStatus(s string) ItemStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good":
		return StatusGood
	case "baddump":
		return StatusBadDump
	case "nodump", "yes":
		return StatusNodump
	case "verified":
		return StatusVerified
	}
	return StatusNone
}

// MachineType flags special machines.
type MachineType uint8

const (
	MachineNone       MachineType = 0
	MachineBios       MachineType = 1 << 0
	MachineDevice     MachineType = 1 << 1
	MachineMechanical MachineType = 1 << 2
)

// ParseMachineType maps a single type name.
func ParseMachineType(s string) MachineType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bios":
		return MachineBios
	case "device", "dev":
		return MachineDevice
	case "mechanical", "mech":
		return MachineMechanical
	}
	return MachineNone
}

// YesNo is a tri-state flag where the zero value means "not specified".
type YesNo uint8

const (
	Unset YesNo = iota
	Yes
	No
)

// ParseYesNo maps yes/no/true/false/partial style attribute values.
func ParseYesNo(s string) YesNo {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return Yes
	case "no", "false", "0":
		return No
	}
	return Unset
}

func (y YesNo) String() string {
	switch y {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return ""
}

// KeyValue is an ordered key/value pair.
type KeyValue struct {
	Key   string
	Value string
}
