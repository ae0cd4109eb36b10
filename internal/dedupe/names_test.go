package dedupe

import (
	"testing"

	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(items []datitem.DatItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Base().Name
	}
	return out
}

func TestResolveNames_DigestSuffix(t *testing.T) {
	items := []datitem.DatItem{
		newRom("game", "a.bin", 10, "33333333", 0),
		newRom("game", "a.bin", 10, "11111111", 0),
		newRom("game", "a.bin", 10, "22222222", 0),
	}
	// Put the 11111111 entry first so it keeps the bare name.
	items[0], items[1] = items[1], items[0]

	out := ResolveNames(items, nil)

	assert.Equal(t, []string{"a.bin", "a.bin_22222222", "a.bin_33333333"}, names(out))
}

func TestResolveNames_DoesNotRenameInput(t *testing.T) {
	a := newRom("game", "a.bin", 10, "11111111", 0)
	b := newRom("game", "a.bin", 10, "22222222", 0)

	out := ResolveNames([]datitem.DatItem{a, b}, nil)

	require.Len(t, out, 2)
	assert.Equal(t, "a.bin", b.Name)
	assert.Equal(t, "a.bin_22222222", out[1].Base().Name)
}

func TestResolveNames_RepeatedSuffixGetsCounter(t *testing.T) {
	a := newRom("game", "a.bin", 10, "11111111", 0)
	b := newRom("game", "a.bin", 10, "22222222", 0)
	b.Hashes.MD5 = hashes.MustParse(hashes.MD5, md5A)
	c := newRom("game", "a.bin", 10, "22222222", 0)
	c.Hashes.SHA1 = hashes.MustParse(hashes.SHA1, sha1A)
	c.Size = 20
	d := newRom("game", "a.bin", 10, "33333333", 0)

	out := ResolveNames([]datitem.DatItem{a, b, c, d}, nil)

	assert.ElementsMatch(t,
		[]string{"a.bin", "a.bin_22222222", "a.bin_22222222_1", "a.bin_33333333"},
		names(out))
}

func TestResolveNames_DropsExactDuplicates(t *testing.T) {
	a := newRom("game", "a.bin", 10, "11111111", 0)
	b := newRom("game", "a.bin", 10, "11111111", 0)

	out := ResolveNames([]datitem.DatItem{a, b}, nil)
	assert.Len(t, out, 1)
}

func TestResolveNames_FallbackSuffix(t *testing.T) {
	a := newRom("game", "a.bin", 10, "11111111", 0)
	b := newRom("game", "a.bin", 10, "", 0)
	b.Status = datitem.StatusNodump

	out := ResolveNames([]datitem.DatItem{a, b}, nil)
	assert.ElementsMatch(t, []string{"a.bin", "a.bin_1"}, names(out))
}

func TestResolveNames_DifferentMachinesDoNotCollide(t *testing.T) {
	a := newRom("game1", "a.bin", 10, "11111111", 0)
	b := newRom("game2", "a.bin", 10, "22222222", 0)

	out := ResolveNames([]datitem.DatItem{b, a}, nil)
	assert.Equal(t, []string{"a.bin", "a.bin"}, names(out))
	assert.Equal(t, "game1", out[0].Base().Machine.Name)
}

func TestResolveNames_DiskUsesMD5(t *testing.T) {
	a := datitem.NewDisk("hdd")
	a.Machine.Name = "game"
	a.Hashes.SHA1 = hashes.MustParse(hashes.SHA1, sha1A)
	b := datitem.NewDisk("hdd")
	b.Machine.Name = "game"
	b.Hashes.MD5 = hashes.MustParse(hashes.MD5, md5A)

	out := ResolveNames([]datitem.DatItem{a, b}, nil)
	assert.Equal(t, []string{"hdd", "hdd_" + md5A}, names(out))
}
