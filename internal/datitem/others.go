package datitem

// Release describes a regional release of a machine.
type Release struct {
	Common
	Region   string
	Language string
	Date     string
	Default  YesNo
}

func (r *Release) Type() ItemType { return TypeRelease }

func (r *Release) Clone() DatItem {
	out := *r
	out.Common = r.Common.clone()
	return &out
}

func (r *Release) Equals(other DatItem) bool {
	o, ok := other.(*Release)
	if !ok {
		return false
	}
	return r.Name == o.Name && r.Region == o.Region && r.Language == o.Language &&
		r.Date == o.Date && r.Default == o.Default
}

// BiosSet is a selectable BIOS revision.
type BiosSet struct {
	Common
	Description string
	Default     YesNo
}

func (b *BiosSet) Type() ItemType { return TypeBiosSet }

func (b *BiosSet) Clone() DatItem {
	out := *b
	out.Common = b.Common.clone()
	return &out
}

func (b *BiosSet) Equals(other DatItem) bool {
	o, ok := other.(*BiosSet)
	if !ok {
		return false
	}
	return b.Name == o.Name && b.Description == o.Description && b.Default == o.Default
}

// Archive names an archive a machine is stored in.
type Archive struct{ Common }

func (a *Archive) Type() ItemType { return TypeArchive }

func (a *Archive) Clone() DatItem {
	return &Archive{Common: a.Common.clone()}
}

func (a *Archive) Equals(other DatItem) bool {
	o, ok := other.(*Archive)
	return ok && a.Name == o.Name
}

// Sample is an audio sample used by a machine.
type Sample struct{ Common }

func (s *Sample) Type() ItemType { return TypeSample }

func (s *Sample) Clone() DatItem {
	return &Sample{Common: s.Common.clone()}
}

func (s *Sample) Equals(other DatItem) bool {
	o, ok := other.(*Sample)
	return ok && s.Name == o.Name
}

// Blank stands in for a machine with no items, such as an empty folder.
type Blank struct{ Common }

func (b *Blank) Type() ItemType { return TypeBlank }

func (b *Blank) Clone() DatItem {
	return &Blank{Common: b.Common.clone()}
}

func (b *Blank) Equals(other DatItem) bool {
	o, ok := other.(*Blank)
	return ok && b.Machine.Name == o.Machine.Name
}
