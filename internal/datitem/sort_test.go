package datitem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalCompare(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"game2", "game10", -1},
		{"game10", "game2", 1},
		{"Game2", "game10", -1},
		{"abc", "abc", 0},
		{"ABC", "abc", -1},
		{"a.bin", "b.bin", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, NaturalCompare(tt.a, tt.b))
		})
	}
}

func named(machine, name string, system int) *Rom {
	r := NewRom(name)
	r.Machine.Name = machine
	r.SystemID = system
	return r
}

func TestSort_MachineThenName(t *testing.T) {
	items := []DatItem{
		named("game10", "a.bin", 0),
		named("game2", "b10.bin", 0),
		named("game2", "b9.bin", 0),
		named("game1", "z.bin", 1),
	}

	Sort(items, false)

	var got []string
	for _, it := range items {
		got = append(got, it.Base().Machine.Name+"/"+it.Base().Name)
	}
	assert.Equal(t, []string{"game1/z.bin", "game2/b9.bin", "game2/b10.bin", "game10/a.bin"}, got)
}

func TestSort_ProvenanceFirst(t *testing.T) {
	items := []DatItem{
		named("a", "a.bin", 2),
		named("z", "z.bin", 0),
		named("m", "m.bin", 1),
	}

	Sort(items, true)

	assert.Equal(t, 0, items[0].Base().SystemID)
	assert.Equal(t, 1, items[1].Base().SystemID)
	assert.Equal(t, 2, items[2].Base().SystemID)
}

func TestSort_Stable(t *testing.T) {
	first := named("g", "a.bin", 0)
	second := named("g", "a.bin", 0)
	items := []DatItem{first, second}

	Sort(items, false)

	assert.Same(t, first, items[0])
	assert.Same(t, second, items[1])
}

func TestSortStrings(t *testing.T) {
	keys := []string{"size10", "size9", "Size1"}
	SortStrings(keys)
	assert.Equal(t, []string{"Size1", "size9", "size10"}, keys)
}
