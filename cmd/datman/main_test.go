package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/formats"
	"github.com/ryanm101/datman/internal/report"
)

const datA = `<?xml version="1.0"?>
<datafile>
	<header><name>A</name><description>A</description></header>
	<game name="game">
		<description>game</description>
		<rom name="x.bin" size="10" crc="00000001"/>
		<rom name="y.bin" size="10" crc="00000002"/>
	</game>
</datafile>
`

const datB = `<?xml version="1.0"?>
<datafile>
	<header><name>B</name><description>B</description></header>
	<game name="game">
		<description>game</description>
		<rom name="y.bin" size="10" crc="00000002"/>
		<rom name="z.bin" size="10" crc="00000003"/>
	</game>
</datafile>
`

type env struct {
	config string
	inputs []string
	out    string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: error\n"), 0o600))

	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0o750))
	a := filepath.Join(in, "a.xml")
	b := filepath.Join(in, "b.xml")
	require.NoError(t, os.WriteFile(a, []byte(datA), 0o600))
	require.NoError(t, os.WriteFile(b, []byte(datB), 0o600))

	return env{config: cfg, inputs: []string{a, b}, out: filepath.Join(dir, "out")}
}

// run executes the CLI and returns the exit code, stdout and stderr.
func (e env) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append(slices.Clone(args), "--config", e.config, "--out", e.out)
	code := execute(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func parseOutput(t *testing.T, path string) *datfile.DatFile {
	t.Helper()
	d := datfile.New(datfile.Header{})
	require.NoError(t, formats.Parse(context.Background(), path, d, formats.ParseOptions{}))
	return d
}

func itemNames(d *datfile.DatFile) []string {
	var names []string
	for _, it := range d.Items() {
		names = append(names, it.Base().Name)
	}
	return names
}

func TestConvert(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run(t, append([]string{"convert", "-q", "-f", "clrmamepro", "-f", "sfv"}, e.inputs...)...)
	require.Equal(t, 0, code, stderr)

	for _, name := range []string{"a.dat", "a.sfv", "b.dat", "b.sfv"} {
		assert.FileExists(t, filepath.Join(e.out, name))
	}
	d := parseOutput(t, filepath.Join(e.out, "a.dat"))
	assert.ElementsMatch(t, []string{"x.bin", "y.bin"}, itemNames(d))
	assert.Equal(t, "A", d.Header.Name)
}

func TestMerge_JSON(t *testing.T) {
	e := newEnv(t)
	code, stdout, stderr := e.run(t, append([]string{"merge", "--json", "--name", "All"}, e.inputs...)...)
	require.Equal(t, 0, code, stderr)

	var summary updateSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, []string{filepath.Join(e.out, "All.xml")}, summary.Written)

	d := parseOutput(t, filepath.Join(e.out, "All.xml"))
	assert.ElementsMatch(t, []string{"x.bin", "y.bin", "z.bin"}, itemNames(d))
}

func TestMerge_ExistingOutputFails(t *testing.T) {
	e := newEnv(t)
	args := append([]string{"merge", "-q"}, e.inputs...)
	code, _, _ := e.run(t, args...)
	require.Equal(t, 0, code)

	code, _, stderr := e.run(t, args...)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed")

	code, _, _ = e.run(t, append(args, "--overwrite")...)
	assert.Equal(t, 0, code)
}

func TestDiff_Cascade(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run(t, append([]string{"diff", "-q", "--cascade"}, e.inputs...)...)
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, []string{"x.bin"}, itemNames(parseOutput(t, filepath.Join(e.out, "a.xml"))))
	assert.Equal(t, []string{"z.bin"}, itemNames(parseOutput(t, filepath.Join(e.out, "b.xml"))))
}

func TestDiff_NoDupes(t *testing.T) {
	e := newEnv(t)
	code, _, stderr := e.run(t, append([]string{"diff", "-q", "--nodupes", "--dupes"}, e.inputs...)...)
	require.Equal(t, 0, code, stderr)

	assert.ElementsMatch(t, []string{"x.bin", "z.bin"},
		itemNames(parseOutput(t, filepath.Join(e.out, "datman (No Duplicates).xml"))))
	assert.Equal(t, []string{"y.bin"},
		itemNames(parseOutput(t, filepath.Join(e.out, "datman (Duplicates).xml"))))
}

func TestDiff_Errors(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no mode", []string{"diff"}, "select at least one"},
		{"both cascades", []string{"diff", "--cascade", "--reverse-cascade"}, "cascade"},
		{"bad format", []string{"diff", "--nodupes", "-f", "pdf"}, "unknown output format"},
		{"bad status", []string{"diff", "--nodupes", "--status", "shiny"}, "unknown status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := e.run(t, append(tt.args, e.inputs...)...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	code, stdout, stderr := e.run(t, "stats", "--report", "csv", filepath.Dir(e.inputs[0]))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "File Name")
	assert.Contains(t, stdout, report.TotalName)

	code, stdout, _ = e.run(t, "stats", "--json", "--game", "nothing", e.inputs[0])
	require.Equal(t, 0, code)
	var rows []report.Row
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Name)
	assert.Equal(t, int64(0), rows[0].Stats.RomCount)
}

func TestScan(t *testing.T) {
	e := newEnv(t)
	roms := filepath.Join(t.TempDir(), "roms")
	require.NoError(t, os.MkdirAll(filepath.Join(roms, "game1"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(roms, "game1", "a.bin"), []byte("abc"), 0o600))
	cache := filepath.Join(t.TempDir(), "cache.db")

	code, _, stderr := e.run(t, "scan", "-q", "--cache", cache, roms)
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, cache)

	d := parseOutput(t, filepath.Join(e.out, "roms.xml"))
	assert.Equal(t, "roms", d.Header.Name)
	assert.Equal(t, []string{"a.bin"}, itemNames(d))
}

func TestConfigInit(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(t.TempDir(), "datman.yaml")

	code, _, stderr := e.run(t, "config", "init", "-q", path)
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, path)

	code, _, stderr = e.run(t, "config", "init", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	code, _, _ = e.run(t, "config", "init", "--force", "-q", path)
	assert.Equal(t, 0, code)
}

func TestConfigShow(t *testing.T) {
	e := newEnv(t)
	code, stdout, _ := e.run(t, "config", "show", "--workers", "3")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "workers: 3")
	assert.Contains(t, stdout, e.config)
}

func TestFilterFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"defaults", nil, false},
		{"status", []string{"--status", "good,baddump"}, false},
		{"bad status", []string{"--status", "shiny"}, true},
		{"machine type", []string{"--not-machine-type", "bios"}, false},
		{"bad machine type", []string{"--machine-type", "arcade"}, true},
		{"runnable", []string{"--runnable", "yes"}, false},
		{"bad runnable", []string{"--runnable", "maybe"}, true},
		{"bad item type", []string{"--type", "cartridge"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			ff := addFilterFlags(fs)
			require.NoError(t, fs.Parse(tt.args))

			flt, err := ff.build()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, flt)
		})
	}
}
