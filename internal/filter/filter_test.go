package filter

import (
	"testing"

	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRom() *datitem.Rom {
	r := datitem.NewRom("Track 01.bin")
	r.Machine.Name = "Sonic the Hedgehog (USA)"
	r.Size = 2048
	r.Hashes.CRC = hashes.MustParse(hashes.CRC, "deadbeef")
	r.Hashes.MD5 = hashes.MustParse(hashes.MD5, hashes.MD5Zero)
	r.Status = datitem.StatusGood
	return r
}

func TestCompile(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		match   bool
	}{
		{"sonic*", "Sonic the Hedgehog", true},
		{"*(USA)", "Sonic (USA)", true},
		{"*(USA)", "Sonic (Europe)", false},
		{"track ??.bin", "Track 01.bin", true},
		{"track ?.bin", "Track 01.bin", false},
		{"a.b", "axb", false},
		{"/^Son.c/", "Sonic", true},
		{"/^son.c/", "Sonic", true},
		{"/^abc$/", "ABC", true},
		{"/^abc$/", "xABC", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			re, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.match, re.MatchString(tt.input))
		})
	}

	_, err := Compile("/(/")
	assert.Error(t, err)
}

func TestNilFilterPassesEverything(t *testing.T) {
	var f *Filter
	assert.True(t, f.Passes(sampleRom()))
}

func TestDefaultOptionsPassEverything(t *testing.T) {
	f, err := New(DefaultOptions())
	require.NoError(t, err)
	assert.True(t, f.Passes(sampleRom()))
	assert.True(t, f.Passes(&datitem.Sample{Common: datitem.Common{Name: "x"}}))
}

func TestPasses(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(o *Options)
		expected bool
	}{
		{"game include", func(o *Options) { o.GameNames = []string{"sonic*"} }, true},
		{"game include miss", func(o *Options) { o.GameNames = []string{"mario*"} }, false},
		{"game exclude", func(o *Options) { o.NotGameNames = []string{"*(USA)"} }, false},
		{"item include", func(o *Options) { o.ItemNames = []string{"*.bin"} }, true},
		{"item exclude", func(o *Options) { o.NotItemNames = []string{"track*"} }, false},
		{"type include", func(o *Options) { o.ItemTypes = []string{"rom"} }, true},
		{"type include miss", func(o *Options) { o.ItemTypes = []string{"disk"} }, false},
		{"type exclude", func(o *Options) { o.NotItemTypes = []string{"rom"} }, false},
		{"crc include", func(o *Options) { o.CRCs = []string{"DEAD*"} }, true},
		{"crc exclude", func(o *Options) { o.NotCRCs = []string{"deadbeef"} }, false},
		{"md5 include", func(o *Options) { o.MD5s = []string{hashes.MD5Zero} }, true},
		{"sha1 include absent", func(o *Options) { o.SHA1s = []string{"*"} }, false},
		{"sha1 exclude absent", func(o *Options) { o.NotSHA1s = []string{"*"} }, true},
		{"game regex any case", func(o *Options) { o.GameNames = []string{"/^SONIC THE/"} }, true},
		{"sha1 include miss", func(o *Options) { o.SHA1s = []string{"da39*"} }, false},
		{"status include", func(o *Options) { o.Statuses = datitem.StatusGood | datitem.StatusVerified }, true},
		{"status include miss", func(o *Options) { o.Statuses = datitem.StatusNodump }, false},
		{"status exclude", func(o *Options) { o.NotStatuses = datitem.StatusGood }, false},
		{"machine type include miss", func(o *Options) { o.MachineTypes = datitem.MachineBios }, false},
		{"machine type exclude", func(o *Options) { o.NotMachineTypes = datitem.MachineBios }, true},
		{"runnable", func(o *Options) { o.Runnable = datitem.No }, false},
		{"size equal", func(o *Options) { o.SizeEqual = 2048 }, true},
		{"size equal miss", func(o *Options) { o.SizeEqual = 1024 }, false},
		{"size min", func(o *Options) { o.SizeMin = 4096 }, false},
		{"size max", func(o *Options) { o.SizeMax = 4096 }, true},
		{"size range", func(o *Options) { o.SizeMin, o.SizeMax = 1024, 2048 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			f, err := New(opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f.Passes(sampleRom()))
		})
	}
}

func TestPasses_UnknownSizeFailsSizeBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.SizeMax = 10
	f, err := New(opts)
	require.NoError(t, err)

	r := sampleRom()
	r.Size = datitem.SizeUnknown
	assert.False(t, f.Passes(r))
}

func TestPasses_NonRomIgnoresRomCriteria(t *testing.T) {
	opts := DefaultOptions()
	opts.SizeEqual = 1
	opts.Statuses = datitem.StatusGood
	f, err := New(opts)
	require.NoError(t, err)

	s := &datitem.Sample{Common: datitem.Common{Name: "x"}}
	assert.True(t, f.Passes(s))
}

func TestPasses_MissingDigest(t *testing.T) {
	r := datitem.NewRom("a.bin")
	r.Machine.Name = "game"
	r.Size = 4
	r.Hashes.SHA1 = hashes.MustParse(hashes.SHA1, hashes.SHA1Zero)

	tests := []struct {
		name     string
		modify   func(o *Options)
		expected bool
	}{
		{"crc star", func(o *Options) { o.CRCs = []string{"*"} }, false},
		{"crc empty glob", func(o *Options) { o.CRCs = []string{""} }, false},
		{"not crc star", func(o *Options) { o.NotCRCs = []string{"*"} }, true},
		{"md5 star", func(o *Options) { o.MD5s = []string{"*"} }, false},
		{"sha1 star", func(o *Options) { o.SHA1s = []string{"*"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			f, err := New(opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f.Passes(r))
		})
	}
}

func TestNew_UnknownType(t *testing.T) {
	opts := DefaultOptions()
	opts.ItemTypes = []string{"cartridge"}
	_, err := New(opts)
	assert.Error(t, err)
}
