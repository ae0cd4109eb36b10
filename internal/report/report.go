// Package report renders DAT statistics.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ryanm101/datman/internal/datfile"
)

// Format defines the report output format.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// ParseFormat maps a name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatCSV, FormatTSV, FormatHTML, FormatJSON:
		return f, nil
	case "txt", "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// TotalName labels the aggregate row.
const TotalName = "DIR: All DATs"

// Row is the statistics of one DAT.
type Row struct {
	Name     string        `json:"name"`
	Machines int64         `json:"machines"`
	Stats    datfile.Stats `json:"stats"`
}

// RowFor collects the statistics of d.
func RowFor(name string, d *datfile.DatFile) Row {
	machines := make(map[string]struct{})
	for _, item := range d.Items() {
		machines[item.Base().Machine.Name] = struct{}{}
	}
	if name == "" {
		name = d.Header.FileName
	}
	return Row{Name: name, Machines: int64(len(machines)), Stats: d.Stats()}
}

// Total sums rows into one aggregate row.
func Total(rows []Row) Row {
	total := Row{Name: TotalName}
	for _, r := range rows {
		total.Stats.Add(r.Stats)
		if total.Machines > math.MaxInt64-r.Machines {
			total.Machines = math.MaxInt64
		} else {
			total.Machines += r.Machines
		}
	}
	return total
}

// Write renders rows in format f. With more than one row a total row is
// appended.
func Write(w io.Writer, f Format, rows []Row) error {
	if len(rows) > 1 {
		rows = append(rows[:len(rows):len(rows)], Total(rows))
	}

	switch f {
	case FormatText, "":
		return writeText(w, rows)
	case FormatCSV:
		return writeSeparated(w, rows, ',')
	case FormatTSV:
		return writeSeparated(w, rows, '\t')
	case FormatHTML:
		return writeHTML(w, rows)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return fmt.Errorf("unknown report format %q", f)
}

func sizeString(n int64) string {
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%s (%s bytes)", humanize.Bytes(uint64(n)), humanize.Comma(n)) // #nosec G115
}

func writeText(w io.Writer, rows []Row) error {
	var buf bytes.Buffer
	for _, r := range rows {
		s := r.Stats
		fmt.Fprintf(&buf, "'%s':\n", r.Name)
		fmt.Fprintln(&buf, strings.Repeat("-", 50))
		lines := []struct {
			label string
			value string
		}{
			{"Uncompressed size", sizeString(s.TotalSize)},
			{"Games found", humanize.Comma(r.Machines)},
			{"Roms found", humanize.Comma(s.RomCount)},
			{"Disks found", humanize.Comma(s.DiskCount)},
			{"Releases found", humanize.Comma(s.ReleaseCount)},
			{"BIOS sets found", humanize.Comma(s.BiosSetCount)},
			{"Samples found", humanize.Comma(s.SampleCount)},
			{"Archives found", humanize.Comma(s.ArchiveCount)},
			{"Roms with CRC", humanize.Comma(s.CRCCount)},
			{"Roms with MD5", humanize.Comma(s.MD5Count)},
			{"Roms with SHA-1", humanize.Comma(s.SHA1Count)},
			{"Roms with SHA-256", humanize.Comma(s.SHA256Count)},
			{"Roms with SHA-384", humanize.Comma(s.SHA384Count)},
			{"Roms with SHA-512", humanize.Comma(s.SHA512Count)},
			{"Roms with Good status", humanize.Comma(s.GoodCount)},
			{"Roms with BadDump status", humanize.Comma(s.BadDumpCount)},
			{"Roms with Nodump status", humanize.Comma(s.NodumpCount)},
			{"Roms with Verified status", humanize.Comma(s.VerifiedCount)},
		}
		for _, l := range lines {
			fmt.Fprintf(&buf, "    %-27s %s\n", l.label+":", l.value)
		}
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

var columns = []string{
	"File Name", "Total Size", "Games", "Roms", "Disks",
	"# with CRC", "# with MD5", "# with SHA-1", "# with SHA-256", "# with SHA-384", "# with SHA-512",
	"BadDumps", "Nodumps",
}

func record(r Row) []string {
	s := r.Stats
	n := func(v int64) string { return strconv.FormatInt(v, 10) }
	return []string{
		r.Name, n(s.TotalSize), n(r.Machines), n(s.RomCount), n(s.DiskCount),
		n(s.CRCCount), n(s.MD5Count), n(s.SHA1Count), n(s.SHA256Count), n(s.SHA384Count), n(s.SHA512Count),
		n(s.BadDumpCount), n(s.NodumpCount),
	}
}

func writeSeparated(w io.Writer, rows []Row, comma rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = comma
	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write(record(r)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"size":  sizeString,
	"comma": humanize.Comma,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>DAT Statistics Report</title>
<style>
body { font-family: sans-serif; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 2px 6px; }
td.num { text-align: right; }
tr.total { font-weight: bold; }
</style>
</head>
<body>
<h2>DAT Statistics Report</h2>
<table>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr{{if eq .Name $.Total}} class="total"{{end}}><td>{{.Name}}</td><td class="num">{{size .Stats.TotalSize}}</td><td class="num">{{comma .Machines}}</td><td class="num">{{comma .Stats.RomCount}}</td><td class="num">{{comma .Stats.DiskCount}}</td><td class="num">{{comma .Stats.CRCCount}}</td><td class="num">{{comma .Stats.MD5Count}}</td><td class="num">{{comma .Stats.SHA1Count}}</td><td class="num">{{comma .Stats.SHA256Count}}</td><td class="num">{{comma .Stats.SHA384Count}}</td><td class="num">{{comma .Stats.SHA512Count}}</td><td class="num">{{comma .Stats.BadDumpCount}}</td><td class="num">{{comma .Stats.NodumpCount}}</td></tr>
{{end}}</table>
</body>
</html>
`))

func writeHTML(w io.Writer, rows []Row) error {
	return htmlTemplate.Execute(w, struct {
		Columns []string
		Rows    []Row
		Total   string
	}{columns, rows, TotalName})
}
