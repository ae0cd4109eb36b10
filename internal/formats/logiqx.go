package formats

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
)

type xmlHeader struct {
	Name        string        `xml:"name,omitempty"`
	Description string        `xml:"description,omitempty"`
	RootDir     string        `xml:"rootdir,omitempty"`
	Category    string        `xml:"category,omitempty"`
	Version     string        `xml:"version,omitempty"`
	Date        string        `xml:"date,omitempty"`
	Author      string        `xml:"author,omitempty"`
	Email       string        `xml:"email,omitempty"`
	Homepage    string        `xml:"homepage,omitempty"`
	URL         string        `xml:"url,omitempty"`
	Comment     string        `xml:"comment,omitempty"`
	Type        string        `xml:"type,omitempty"`
	ClrMamePro  *xmlCmpHeader `xml:"clrmamepro,omitempty"`
}

type xmlCmpHeader struct {
	ForceMerging string `xml:"forcemerging,attr,omitempty"`
	ForceNodump  string `xml:"forcenodump,attr,omitempty"`
	ForcePacking string `xml:"forcepacking,attr,omitempty"`
}

type xmlRom struct {
	Name     string `xml:"name,attr"`
	Size     string `xml:"size,attr,omitempty"`
	CRC      string `xml:"crc,attr,omitempty"`
	MD5      string `xml:"md5,attr,omitempty"`
	SHA1     string `xml:"sha1,attr,omitempty"`
	SHA256   string `xml:"sha256,attr,omitempty"`
	SHA384   string `xml:"sha384,attr,omitempty"`
	SHA512   string `xml:"sha512,attr,omitempty"`
	Merge    string `xml:"merge,attr,omitempty"`
	Status   string `xml:"status,attr,omitempty"`
	Date     string `xml:"date,attr,omitempty"`
	Region   string `xml:"region,attr,omitempty"`
	Offset   string `xml:"offset,attr,omitempty"`
	Bios     string `xml:"bios,attr,omitempty"`
	Optional string `xml:"optional,attr,omitempty"`
}

type xmlDisk struct {
	Name     string `xml:"name,attr"`
	MD5      string `xml:"md5,attr,omitempty"`
	SHA1     string `xml:"sha1,attr,omitempty"`
	SHA256   string `xml:"sha256,attr,omitempty"`
	SHA384   string `xml:"sha384,attr,omitempty"`
	SHA512   string `xml:"sha512,attr,omitempty"`
	Merge    string `xml:"merge,attr,omitempty"`
	Status   string `xml:"status,attr,omitempty"`
	Region   string `xml:"region,attr,omitempty"`
	Index    string `xml:"index,attr,omitempty"`
	Writable string `xml:"writable,attr,omitempty"`
	Optional string `xml:"optional,attr,omitempty"`
}

type xmlRelease struct {
	Name     string `xml:"name,attr"`
	Region   string `xml:"region,attr,omitempty"`
	Language string `xml:"language,attr,omitempty"`
	Date     string `xml:"date,attr,omitempty"`
	Default  string `xml:"default,attr,omitempty"`
}

type xmlBiosSet struct {
	Name        string `xml:"name,attr"`
	Description string `xml:"description,attr,omitempty"`
	Default     string `xml:"default,attr,omitempty"`
}

type xmlNamed struct {
	Name string `xml:"name,attr"`
}

type xmlSlot struct {
	Name    string     `xml:"name,attr"`
	Options []xmlNamed `xml:"slotoption"`
}

type xmlInfo struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// xmlGame covers Logiqx <game>, MAME <machine> and software list <software>.
type xmlGame struct {
	XMLName      xml.Name
	Name         string `xml:"name,attr"`
	ID           string `xml:"id,attr,omitempty"`
	CloneOf      string `xml:"cloneof,attr,omitempty"`
	CloneOfID    string `xml:"cloneofid,attr,omitempty"`
	RomOf        string `xml:"romof,attr,omitempty"`
	SampleOf     string `xml:"sampleof,attr,omitempty"`
	SourceFile   string `xml:"sourcefile,attr,omitempty"`
	IsBios       string `xml:"isbios,attr,omitempty"`
	IsDevice     string `xml:"isdevice,attr,omitempty"`
	IsMechanical string `xml:"ismechanical,attr,omitempty"`
	Runnable     string `xml:"runnable,attr,omitempty"`
	Board        string `xml:"board,attr,omitempty"`
	RebuildTo    string `xml:"rebuildto,attr,omitempty"`
	Supported    string `xml:"supported,attr,omitempty"`

	Comment      string `xml:"comment,omitempty"`
	Description  string `xml:"description,omitempty"`
	Year         string `xml:"year,omitempty"`
	Manufacturer string `xml:"manufacturer,omitempty"`
	Publisher    string `xml:"publisher,omitempty"`

	Infos      []xmlInfo    `xml:"info,omitempty"`
	Releases   []xmlRelease `xml:"release,omitempty"`
	BiosSets   []xmlBiosSet `xml:"biosset,omitempty"`
	Roms       []xmlRom     `xml:"rom,omitempty"`
	Disks      []xmlDisk    `xml:"disk,omitempty"`
	Samples    []xmlNamed   `xml:"sample,omitempty"`
	Archives   []xmlNamed   `xml:"archive,omitempty"`
	DeviceRefs []xmlNamed   `xml:"device_ref,omitempty"`
	Slots      []xmlSlot    `xml:"slot,omitempty"`
	Parts      []xmlPart    `xml:"part,omitempty"`

	line int
}

type xmlPart struct {
	Name      string        `xml:"name,attr"`
	Interface string        `xml:"interface,attr"`
	Features  []xmlInfo     `xml:"feature"`
	DataAreas []xmlDataArea `xml:"dataarea"`
	DiskAreas []xmlDiskArea `xml:"diskarea"`
}

type xmlDataArea struct {
	Name string   `xml:"name,attr"`
	Size string   `xml:"size,attr"`
	Roms []xmlRom `xml:"rom"`
}

type xmlDiskArea struct {
	Name  string    `xml:"name,attr"`
	Disks []xmlDisk `xml:"disk"`
}

// parseLogiqx streams the document, decoding one game element at a time.
func parseLogiqx(in *ingester, r io.Reader) error {
	decoder := xml.NewDecoder(r)

	var games []xmlGame
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, _ := decoder.InputPos()
			return &ParseError{Path: in.path, Line: line, Err: fmt.Errorf("failed to read XML token: %w", err)}
		}

		elem, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch elem.Name.Local {
		case "softwarelist":
			for _, a := range elem.Attr {
				switch a.Name.Local {
				case "name":
					in.header.Name = a.Value
				case "description":
					in.header.Description = a.Value
				}
			}

		case "header":
			var h xmlHeader
			if err := decoder.DecodeElement(&h, &elem); err != nil {
				line, _ := decoder.InputPos()
				return &ParseError{Path: in.path, Line: line, Err: fmt.Errorf("failed to decode header: %w", err)}
			}
			in.header.Fill(h.toHeader())

		case "game", "machine", "software":
			line, _ := decoder.InputPos()
			var g xmlGame
			if err := decoder.DecodeElement(&g, &elem); err != nil {
				return &ParseError{Path: in.path, Line: line, Err: fmt.Errorf("failed to decode game: %w", err)}
			}
			g.line = line
			games = append(games, g)
		}
	}

	resolveCloneOfIDs(games)

	for i := range games {
		if err := in.cancelled(); err != nil {
			return err
		}
		games[i].ingest(in)
	}
	return nil
}

// resolveCloneOfIDs converts cloneofid references to cloneof names.
func resolveCloneOfIDs(games []xmlGame) {
	idToName := make(map[string]string)
	for _, g := range games {
		if g.ID != "" {
			idToName[g.ID] = g.Name
		}
	}
	for i := range games {
		if games[i].CloneOfID != "" && games[i].CloneOf == "" {
			if parent, ok := idToName[games[i].CloneOfID]; ok {
				games[i].CloneOf = parent
			}
		}
	}
}

func (h *xmlHeader) toHeader() datfile.Header {
	out := datfile.Header{
		Name:        h.Name,
		Description: h.Description,
		RootDir:     h.RootDir,
		Category:    h.Category,
		Version:     h.Version,
		Date:        h.Date,
		Author:      h.Author,
		Email:       h.Email,
		Homepage:    h.Homepage,
		URL:         h.URL,
		Comment:     h.Comment,
		Type:        h.Type,
	}
	if h.ClrMamePro != nil {
		out.ForceMerging = datfile.ParseForceMerging(h.ClrMamePro.ForceMerging)
		out.ForceNodump = datfile.ParseForceNodump(h.ClrMamePro.ForceNodump)
		out.ForcePacking = datfile.ParseForcePacking(h.ClrMamePro.ForcePacking)
	}
	return out
}

func (g *xmlGame) machine() datitem.Machine {
	m := datitem.Machine{
		Name:         g.Name,
		Comment:      g.Comment,
		Description:  g.Description,
		Year:         g.Year,
		Manufacturer: g.Manufacturer,
		Publisher:    g.Publisher,
		RomOf:        g.RomOf,
		CloneOf:      g.CloneOf,
		SampleOf:     g.SampleOf,
		Supported:    datitem.ParseYesNo(g.Supported),
		SourceFile:   g.SourceFile,
		Runnable:     datitem.ParseYesNo(g.Runnable),
		Board:        g.Board,
		RebuildTo:    g.RebuildTo,
	}
	if datitem.ParseYesNo(g.IsBios) == datitem.Yes {
		m.Type |= datitem.MachineBios
	}
	if datitem.ParseYesNo(g.IsDevice) == datitem.Yes {
		m.Type |= datitem.MachineDevice
	}
	if datitem.ParseYesNo(g.IsMechanical) == datitem.Yes {
		m.Type |= datitem.MachineMechanical
	}
	for _, d := range g.DeviceRefs {
		m.Devices = append(m.Devices, d.Name)
	}
	for _, s := range g.Slots {
		for _, o := range s.Options {
			m.SlotOptions = append(m.SlotOptions, o.Name)
		}
	}
	for _, info := range g.Infos {
		m.Infos = append(m.Infos, datitem.KeyValue{Key: info.Name, Value: info.Value})
	}
	return m
}

func (g *xmlGame) ingest(in *ingester) {
	m := g.machine()

	attach := func(item datitem.DatItem) {
		item.Base().SetMachine(m)
		in.add(item)
	}

	for _, r := range g.Releases {
		attach(&datitem.Release{
			Common:   datitem.Common{Name: r.Name},
			Region:   r.Region,
			Language: r.Language,
			Date:     r.Date,
			Default:  datitem.ParseYesNo(r.Default),
		})
	}
	for _, b := range g.BiosSets {
		attach(&datitem.BiosSet{
			Common:      datitem.Common{Name: b.Name},
			Description: b.Description,
			Default:     datitem.ParseYesNo(b.Default),
		})
	}
	for _, x := range g.Roms {
		rom, err := x.toRom()
		if err != nil {
			in.warnItem(g.line, "skipping malformed rom", "machine", g.Name, "rom", x.Name, "error", err)
			continue
		}
		attach(rom)
	}
	for _, x := range g.Disks {
		attach(x.toDisk())
	}
	for _, s := range g.Samples {
		attach(&datitem.Sample{Common: datitem.Common{Name: s.Name}})
	}
	for _, a := range g.Archives {
		attach(&datitem.Archive{Common: datitem.Common{Name: a.Name}})
	}

	for _, p := range g.Parts {
		features := make([]datitem.KeyValue, 0, len(p.Features))
		for _, f := range p.Features {
			features = append(features, datitem.KeyValue{Key: f.Name, Value: f.Value})
		}
		part := func(item datitem.DatItem, area string, areaSize *int64) {
			c := item.Base()
			c.Supported = m.Supported
			c.Publisher = m.Publisher
			c.Infos = append([]datitem.KeyValue(nil), m.Infos...)
			c.PartName = p.Name
			c.PartInterface = p.Interface
			c.Features = append([]datitem.KeyValue(nil), features...)
			c.AreaName = area
			c.AreaSize = areaSize
			attach(item)
		}
		for _, da := range p.DataAreas {
			var areaSize *int64
			if n, err := parseSize(da.Size); err == nil && n >= 0 {
				areaSize = &n
			}
			for _, x := range da.Roms {
				rom, err := x.toRom()
				if err != nil {
					in.warnItem(g.line, "skipping malformed rom", "machine", g.Name, "rom", x.Name, "error", err)
					continue
				}
				var size *int64
				if areaSize != nil {
					v := *areaSize
					size = &v
				}
				part(rom, da.Name, size)
			}
		}
		for _, da := range p.DiskAreas {
			for _, x := range da.Disks {
				part(x.toDisk(), da.Name, nil)
			}
		}
	}

	// Keep empty machines so they survive a round trip.
	if g.isEmpty() {
		attach(&datitem.Blank{})
	}
}

func (g *xmlGame) isEmpty() bool {
	return len(g.Releases)+len(g.BiosSets)+len(g.Roms)+len(g.Disks)+
		len(g.Samples)+len(g.Archives)+len(g.Parts) == 0
}

func (x *xmlRom) toRom() (*datitem.Rom, error) {
	size, err := parseSize(x.Size)
	if err != nil {
		return nil, err
	}
	r := datitem.NewRom(x.Name)
	r.Size = size
	r.Hashes = hashes.Set{
		CRC:    hashes.Parse(hashes.CRC, x.CRC),
		MD5:    hashes.Parse(hashes.MD5, x.MD5),
		SHA1:   hashes.Parse(hashes.SHA1, x.SHA1),
		SHA256: hashes.Parse(hashes.SHA256, x.SHA256),
		SHA384: hashes.Parse(hashes.SHA384, x.SHA384),
		SHA512: hashes.Parse(hashes.SHA512, x.SHA512),
	}
	r.MergeTag = x.Merge
	r.Status = datitem.ParseItemStatus(x.Status)
	r.Date = x.Date
	r.Region = x.Region
	r.Offset = x.Offset
	r.Bios = x.Bios
	r.Optional = datitem.ParseYesNo(x.Optional)
	return r, nil
}

func (x *xmlDisk) toDisk() *datitem.Disk {
	d := datitem.NewDisk(x.Name)
	d.Hashes = hashes.Set{
		MD5:    hashes.Parse(hashes.MD5, x.MD5),
		SHA1:   hashes.Parse(hashes.SHA1, x.SHA1),
		SHA256: hashes.Parse(hashes.SHA256, x.SHA256),
		SHA384: hashes.Parse(hashes.SHA384, x.SHA384),
		SHA512: hashes.Parse(hashes.SHA512, x.SHA512),
	}
	d.MergeTag = x.Merge
	d.Status = datitem.ParseItemStatus(x.Status)
	d.Region = x.Region
	d.Index = x.Index
	d.Writable = datitem.ParseYesNo(x.Writable)
	d.Optional = datitem.ParseYesNo(x.Optional)
	return d
}

const logiqxPreamble = xml.Header +
	`<!DOCTYPE datafile PUBLIC "-//Logiqx//DTD ROM Management Datafile//EN" "http://www.logiqx.com/Dats/datafile.dtd">` + "\n"

// writeLogiqx serializes the prepared machines as a Logiqx datafile.
func writeLogiqx(w io.Writer, h *datfile.Header, groups []machineGroup) error {
	if _, err := io.WriteString(w, logiqxPreamble); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")

	root := xml.StartElement{Name: xml.Name{Local: "datafile"}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}

	xh := xmlHeader{
		Name:        h.Name,
		Description: h.Description,
		RootDir:     h.RootDir,
		Category:    h.Category,
		Version:     h.Version,
		Date:        h.Date,
		Author:      h.Author,
		Email:       h.Email,
		Homepage:    h.Homepage,
		URL:         h.URL,
		Comment:     h.Comment,
		Type:        h.Type,
	}
	if h.ForceMerging != datfile.MergingNone || h.ForceNodump != datfile.NodumpNone || h.ForcePacking != datfile.PackingNone {
		xh.ClrMamePro = &xmlCmpHeader{
			ForceMerging: h.ForceMerging.String(),
			ForceNodump:  h.ForceNodump.String(),
			ForcePacking: h.ForcePacking.String(),
		}
	}
	if err := enc.EncodeElement(xh, xml.StartElement{Name: xml.Name{Local: "header"}}); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}

	for _, g := range groups {
		xg := toXMLGame(g)
		if err := enc.EncodeElement(xg, xml.StartElement{Name: xml.Name{Local: "machine"}}); err != nil {
			return fmt.Errorf("failed to encode machine %q: %w", g.machine.Name, err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func yesNoAttr(y datitem.YesNo) string {
	return y.String()
}

func toXMLGame(g machineGroup) xmlGame {
	m := g.machine
	xg := xmlGame{
		Name:         m.Name,
		CloneOf:      m.CloneOf,
		RomOf:        m.RomOf,
		SampleOf:     m.SampleOf,
		SourceFile:   m.SourceFile,
		Runnable:     yesNoAttr(m.Runnable),
		Board:        m.Board,
		RebuildTo:    m.RebuildTo,
		Supported:    yesNoAttr(m.Supported),
		Comment:      m.Comment,
		Description:  m.Description,
		Year:         m.Year,
		Manufacturer: m.Manufacturer,
		Publisher:    m.Publisher,
	}
	if xg.Description == "" {
		xg.Description = m.Name
	}
	if m.Type&datitem.MachineBios != 0 {
		xg.IsBios = "yes"
	}
	if m.Type&datitem.MachineDevice != 0 {
		xg.IsDevice = "yes"
	}
	if m.Type&datitem.MachineMechanical != 0 {
		xg.IsMechanical = "yes"
	}
	for _, kv := range m.Infos {
		xg.Infos = append(xg.Infos, xmlInfo{Name: kv.Key, Value: kv.Value})
	}
	for _, d := range m.Devices {
		xg.DeviceRefs = append(xg.DeviceRefs, xmlNamed{Name: d})
	}

	for _, item := range g.items {
		switch v := item.(type) {
		case *datitem.Release:
			xg.Releases = append(xg.Releases, xmlRelease{
				Name: v.Name, Region: v.Region, Language: v.Language, Date: v.Date, Default: yesNoAttr(v.Default),
			})
		case *datitem.BiosSet:
			xg.BiosSets = append(xg.BiosSets, xmlBiosSet{
				Name: v.Name, Description: v.Description, Default: yesNoAttr(v.Default),
			})
		case *datitem.Rom:
			xg.Roms = append(xg.Roms, fromRom(v))
		case *datitem.Disk:
			xg.Disks = append(xg.Disks, xmlDisk{
				Name:     v.Name,
				MD5:      hashes.String(v.Hashes.MD5),
				SHA1:     hashes.String(v.Hashes.SHA1),
				SHA256:   hashes.String(v.Hashes.SHA256),
				SHA384:   hashes.String(v.Hashes.SHA384),
				SHA512:   hashes.String(v.Hashes.SHA512),
				Merge:    v.MergeTag,
				Status:   statusAttr(v.Status),
				Region:   v.Region,
				Index:    v.Index,
				Writable: yesNoAttr(v.Writable),
				Optional: yesNoAttr(v.Optional),
			})
		case *datitem.Sample:
			xg.Samples = append(xg.Samples, xmlNamed{Name: v.Name})
		case *datitem.Archive:
			xg.Archives = append(xg.Archives, xmlNamed{Name: v.Name})
		}
	}
	return xg
}

func fromRom(v *datitem.Rom) xmlRom {
	x := xmlRom{
		Name:     v.Name,
		CRC:      hashes.String(v.Hashes.CRC),
		MD5:      hashes.String(v.Hashes.MD5),
		SHA1:     hashes.String(v.Hashes.SHA1),
		SHA256:   hashes.String(v.Hashes.SHA256),
		SHA384:   hashes.String(v.Hashes.SHA384),
		SHA512:   hashes.String(v.Hashes.SHA512),
		Merge:    v.MergeTag,
		Status:   statusAttr(v.Status),
		Date:     v.Date,
		Region:   v.Region,
		Offset:   v.Offset,
		Bios:     v.Bios,
		Optional: yesNoAttr(v.Optional),
	}
	if v.Size != datitem.SizeUnknown {
		x.Size = strconv.FormatInt(v.Size, 10)
	}
	return x
}

// statusAttr omits the default good status.
func statusAttr(s datitem.ItemStatus) string {
	if s == datitem.StatusGood {
		return ""
	}
	return s.String()
}
