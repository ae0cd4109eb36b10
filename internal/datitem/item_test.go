package datitem

import (
	"testing"

	"github.com/ryanm101/datman/internal/hashes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rom(name string, size int64, crc, md5, sha1 string) *Rom {
	r := NewRom(name)
	r.Size = size
	if crc != "" {
		r.Hashes.CRC = hashes.MustParse(hashes.CRC, crc)
	}
	if md5 != "" {
		r.Hashes.MD5 = hashes.MustParse(hashes.MD5, md5)
	}
	if sha1 != "" {
		r.Hashes.SHA1 = hashes.MustParse(hashes.SHA1, sha1)
	}
	return r
}

const (
	md5A  = "0123456789abcdef0123456789abcdef"
	md5B  = "fedcba9876543210fedcba9876543210"
	sha1A = "0123456789abcdef0123456789abcdef01234567"
)

func TestRomEquals(t *testing.T) {
	tests := []struct {
		name     string
		a, b     *Rom
		expected bool
	}{
		{
			"shared crc, other hashes missing on one side",
			rom("a.bin", 1024, "12345678", md5A, ""),
			rom("b.bin", 1024, "12345678", "", sha1A),
			true,
		},
		{
			"shared crc, size differs",
			rom("a.bin", 1024, "12345678", "", ""),
			rom("a.bin", 2048, "12345678", "", ""),
			false,
		},
		{
			"shared crc, one size unknown",
			rom("a.bin", SizeUnknown, "12345678", "", ""),
			rom("a.bin", 2048, "12345678", "", ""),
			true,
		},
		{
			"crc agrees but md5 disagrees",
			rom("a.bin", 1024, "12345678", md5A, ""),
			rom("a.bin", 1024, "12345678", md5B, ""),
			false,
		},
		{
			"no hash in common",
			rom("a.bin", 1024, "12345678", "", ""),
			rom("a.bin", 1024, "", md5A, ""),
			false,
		},
		{
			"no evidence at all",
			rom("a.bin", SizeUnknown, "", "", ""),
			rom("a.bin", SizeUnknown, "", "", ""),
			false,
		},
		{
			"zero crc equals explicit zero crc",
			rom("empty", 0, hashes.CRCZero, "", ""),
			rom("other", 0, "0", "", ""),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Equals(tt.b))
			assert.Equal(t, tt.expected, tt.b.Equals(tt.a), "equality must be symmetric")
		})
	}
}

func TestRomEquals_Nodump(t *testing.T) {
	a := rom("missing.bin", SizeUnknown, "", "", "")
	a.Status = StatusNodump
	b := rom("missing.bin", 1024, "", "", "")
	b.Status = StatusNodump
	c := rom("other.bin", SizeUnknown, "", "", "")
	c.Status = StatusNodump

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))

	// A single nodump falls through to the normal hash rules.
	d := rom("missing.bin", SizeUnknown, "", "", "")
	assert.False(t, a.Equals(d))
}

func TestRomEquals_DifferentType(t *testing.T) {
	r := rom("a.bin", 1, "12345678", "", "")
	d := NewDisk("a.bin")
	assert.False(t, r.Equals(d))
	assert.False(t, d.Equals(r))
	assert.False(t, r.Equals(&Sample{Common: Common{Name: "a.bin"}}))
}

func TestDiskEquals(t *testing.T) {
	a := NewDisk("hdd")
	a.Hashes.SHA1 = hashes.MustParse(hashes.SHA1, sha1A)
	b := NewDisk("hdd2")
	b.Hashes.SHA1 = hashes.MustParse(hashes.SHA1, sha1A)
	b.Hashes.MD5 = hashes.MustParse(hashes.MD5, md5A)
	c := NewDisk("hdd")
	c.Hashes.MD5 = hashes.MustParse(hashes.MD5, md5A)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestClone_IsDeep(t *testing.T) {
	r := rom("a.bin", 1024, "12345678", "", "")
	r.Machine = Machine{Name: "game", Devices: []string{"dev1"}}
	r.Infos = []KeyValue{{Key: "k", Value: "v"}}
	size := int64(10)
	r.AreaSize = &size

	c, ok := r.Clone().(*Rom)
	require.True(t, ok)
	require.True(t, r.Equals(c))

	c.Machine.Name = "changed"
	c.Machine.Devices[0] = "changed"
	c.Hashes.CRC[0] = 0xff
	c.Infos[0].Value = "changed"
	*c.AreaSize = 20

	assert.Equal(t, "game", r.Machine.Name)
	assert.Equal(t, "dev1", r.Machine.Devices[0])
	assert.Equal(t, "12345678", hashes.String(r.Hashes.CRC))
	assert.Equal(t, "v", r.Infos[0].Value)
	assert.Equal(t, int64(10), *r.AreaSize)
}

func TestCopyMachineInformation(t *testing.T) {
	src := rom("a.bin", 1, "12345678", "", "")
	src.Machine = Machine{Name: "parent", SlotOptions: []string{"opt"}}
	dst := rom("b.bin", 1, "12345678", "", "")

	CopyMachineInformation(dst, src)
	dst.Machine.SlotOptions[0] = "changed"

	assert.Equal(t, "parent", dst.Machine.Name)
	assert.Equal(t, "opt", src.Machine.SlotOptions[0])
}

func TestOtherVariantsEquals(t *testing.T) {
	r1 := &Release{Common: Common{Name: "r"}, Region: "USA"}
	r2 := &Release{Common: Common{Name: "r"}, Region: "USA"}
	r3 := &Release{Common: Common{Name: "r"}, Region: "Europe"}
	assert.True(t, r1.Equals(r2))
	assert.False(t, r1.Equals(r3))

	b1 := &BiosSet{Common: Common{Name: "bios"}, Description: "BIOS"}
	assert.True(t, b1.Equals(b1.Clone()))

	blank1 := &Blank{Common: Common{Machine: Machine{Name: "empty"}}}
	blank2 := &Blank{Common: Common{Machine: Machine{Name: "empty"}}}
	assert.True(t, blank1.Equals(blank2))
}

func TestStatusHelpers(t *testing.T) {
	r := rom("a", 1, "", "", "")
	r.Status = StatusNodump
	assert.True(t, IsNodump(r))
	assert.True(t, IsRomLike(r))
	assert.False(t, IsRomLike(&Sample{}))
	assert.Equal(t, StatusNone, Status(&Release{}))
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, StatusBadDump, ParseItemStatus("BadDump"))
	assert.Equal(t, StatusNodump, ParseItemStatus("nodump"))
	assert.Equal(t, StatusNone, ParseItemStatus(""))
	assert.Equal(t, Yes, ParseYesNo("yes"))
	assert.Equal(t, No, ParseYesNo("no"))
	assert.Equal(t, Unset, ParseYesNo("partial"))
	assert.Equal(t, MachineBios, ParseMachineType("bios"))

	typ, ok := ParseItemType("Disk")
	require.True(t, ok)
	assert.Equal(t, TypeDisk, typ)
	_, ok = ParseItemType("chip")
	assert.False(t, ok)
}

func TestDupeType(t *testing.T) {
	d := DupeExternal | DupeHash
	assert.True(t, d.Has(DupeExternal))
	assert.False(t, d.Has(DupeInternal))
	assert.False(t, d.Has(DupeNone))
	assert.Equal(t, "external|hash", d.String())
	assert.Equal(t, "none", DupeNone.String())
}
