package datitem

import "slices"

// Machine is the game/set an item belongs to. Every item owns its Machine by
// value; sharing between items always goes through Clone.
type Machine struct {
	Name         string
	Comment      string
	Description  string
	Year         string
	Manufacturer string
	Publisher    string
	RomOf        string
	CloneOf      string
	SampleOf     string
	Supported    YesNo
	SourceFile   string
	Runnable     YesNo
	Board        string
	RebuildTo    string
	Devices      []string
	SlotOptions  []string
	Infos        []KeyValue
	Type         MachineType
}

// Clone returns a deep copy of the machine.
func (m Machine) Clone() Machine {
	out := m
	out.Devices = slices.Clone(m.Devices)
	out.SlotOptions = slices.Clone(m.SlotOptions)
	out.Infos = slices.Clone(m.Infos)
	return out
}

// IsParentOf reports whether other names m as its clone or rom parent.
func (m *Machine) IsParentOf(other *Machine) bool {
	if m.Name == "" {
		return false
	}
	return other.CloneOf == m.Name || other.RomOf == m.Name
}
