package hashes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	a := MustParse(CRC, "12345678")
	b := MustParse(CRC, "87654321")
	zero := MustParse(CRC, CRCZero)

	tests := []struct {
		name     string
		x, y     []byte
		expected Agreement
	}{
		{"both empty", nil, nil, AgreeOrUnknown},
		{"left empty", nil, a, AgreeOrUnknown},
		{"right empty", a, []byte{}, AgreeOrUnknown},
		{"equal", a, MustParse(CRC, "12345678"), Equal},
		{"different", a, b, NotEqual},
		{"zero vs zero", zero, MustParse(CRC, "0"), Equal},
		{"zero vs absent", zero, nil, AgreeOrUnknown},
		{"zero vs value", zero, a, NotEqual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compare(tt.x, tt.y))
		})
	}
}

func TestParse(t *testing.T) {
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, Parse(CRC, " 0x12345678 "))
	assert.Equal(t, []byte{0x00, 0x00, 0xab, 0xcd}, Parse(CRC, "ABCD"))
	assert.Equal(t, []byte{0, 0, 0, 0}, Parse(CRC, "00000000"))
	assert.Nil(t, Parse(CRC, ""))
	assert.Nil(t, Parse(CRC, "-"))
	assert.Nil(t, Parse(CRC, "zzzzzzzz"))
	assert.Nil(t, Parse(MD5, "1234"))
	assert.Len(t, Parse(SHA1, SHA1Zero), 20)
}

func TestString(t *testing.T) {
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "00000000", String(Parse(CRC, "0")))
	assert.Equal(t, "deadbeef", String(Parse(CRC, "DEADBEEF")))
}

func TestSet_FillNeverOverwrites(t *testing.T) {
	kept := Set{CRC: MustParse(CRC, "11111111")}
	incoming := Set{
		CRC:  MustParse(CRC, "22222222"),
		MD5:  MustParse(MD5, MD5Zero),
		SHA1: MustParse(SHA1, SHA1Zero),
	}

	kept.Fill(&incoming)

	assert.Equal(t, "11111111", String(kept.CRC))
	assert.Equal(t, MD5Zero, String(kept.MD5))
	assert.Equal(t, SHA1Zero, String(kept.SHA1))

	// Filled digests must not alias the source.
	incoming.MD5[0] = 0xff
	assert.Equal(t, MD5Zero, String(kept.MD5))
}

func TestSet_CommonAndAgree(t *testing.T) {
	a := Set{CRC: MustParse(CRC, "11111111")}
	b := Set{MD5: MustParse(MD5, MD5Zero)}
	c := Set{CRC: MustParse(CRC, "11111111"), MD5: MustParse(MD5, MD5Zero)}
	d := Set{CRC: MustParse(CRC, "22222222")}

	assert.False(t, a.HasCommon(&b))
	assert.True(t, a.HasCommon(&c))
	assert.True(t, a.Agrees(&b))
	assert.True(t, a.Agrees(&c))
	assert.False(t, a.Agrees(&d))
}

func TestSet_First(t *testing.T) {
	s := Set{SHA1: MustParse(SHA1, SHA1Zero), MD5: MustParse(MD5, MD5Zero)}
	k, v, ok := s.First()
	require.True(t, ok)
	assert.Equal(t, MD5, k)
	assert.Equal(t, MD5Zero, v)

	_, _, ok = (&Set{}).First()
	assert.False(t, ok)
}

func TestCompute_EmptyInputMatchesZeroDigests(t *testing.T) {
	s, n, err := Compute(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, int64(0), n)
	for _, k := range Kinds {
		assert.Equal(t, Zero(k), String(s.Get(k)), k.String())
	}
	assert.True(t, s.IsZeroFile())
}

func TestCompute_KnownVector(t *testing.T) {
	s, n, err := Compute(strings.NewReader("abc"))
	require.NoError(t, err)

	assert.Equal(t, int64(3), n)
	assert.Equal(t, "352441c2", String(s.CRC))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", String(s.MD5))
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", String(s.SHA1))
	assert.False(t, s.IsZeroFile())
}
