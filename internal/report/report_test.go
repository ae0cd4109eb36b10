package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
)

func sampleDat(name string, machines ...string) *datfile.DatFile {
	d := datfile.New(datfile.Header{FileName: name})
	for i, m := range machines {
		r := datitem.NewRom("rom.bin")
		r.Machine.Name = m
		r.Size = 1024
		r.Hashes.CRC = hashes.MustParse(hashes.CRC, []string{"00000001", "00000002", "00000003"}[i%3])
		d.AddItem(r)
	}
	nd := datitem.NewRom("missing.bin")
	nd.Machine.Name = machines[0]
	nd.Status = datitem.StatusNodump
	d.AddItem(nd)
	return d
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"text", FormatText, false},
		{"TXT", FormatText, false},
		{"", FormatText, false},
		{"csv", FormatCSV, false},
		{"tsv", FormatTSV, false},
		{"html", FormatHTML, false},
		{"json", FormatJSON, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRowForAndTotal(t *testing.T) {
	a := RowFor("", sampleDat("a", "g1", "g2"))
	b := RowFor("bee", sampleDat("b", "g1"))

	assert.Equal(t, "a", a.Name)
	assert.Equal(t, int64(2), a.Machines)
	assert.Equal(t, int64(3), a.Stats.RomCount)
	assert.Equal(t, int64(2048), a.Stats.TotalSize)
	assert.Equal(t, "bee", b.Name)

	total := Total([]Row{a, b})
	assert.Equal(t, TotalName, total.Name)
	assert.Equal(t, int64(3), total.Machines)
	assert.Equal(t, int64(5), total.Stats.RomCount)
	assert.Equal(t, int64(2), total.Stats.NodumpCount)
	assert.Equal(t, int64(3072), total.Stats.TotalSize)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, []Row{RowFor("", sampleDat("a", "g1", "g2"))}))

	out := buf.String()
	assert.Contains(t, out, "'a':")
	assert.Contains(t, out, "2.0 kB (2,048 bytes)")
	assert.Contains(t, out, "Roms with Nodump status:")
	assert.NotContains(t, out, TotalName)
}

func TestWriteSeparated(t *testing.T) {
	rows := []Row{RowFor("", sampleDat("a", "g1", "g2")), RowFor("", sampleDat("b", "g1"))}

	tests := []struct {
		format Format
		comma  rune
	}{
		{FormatCSV, ','},
		{FormatTSV, '\t'},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tt.format, rows))

			r := csv.NewReader(strings.NewReader(buf.String()))
			r.Comma = tt.comma
			records, err := r.ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 4)
			assert.Equal(t, columns, records[0])
			assert.Equal(t, []string{"a", "2048", "2", "3", "0", "2", "0", "0", "0", "0", "0", "0", "1"}, records[1])
			assert.Equal(t, TotalName, records[3][0])
		})
	}
	assert.Len(t, rows, 2, "input rows must not gain the total")
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	rows := []Row{RowFor("<script>", sampleDat("a", "g1")), RowFor("", sampleDat("b", "g1"))}
	require.NoError(t, Write(&buf, FormatHTML, rows))

	out := buf.String()
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<td><script>")
	assert.Contains(t, out, `class="total"`)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, []Row{RowFor("", sampleDat("a", "g1"))}))

	var rows []Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Stats.RomCount)
}

func TestWriteUnknown(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("pdf"), nil))
}
