package formats

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
)

const rcSeparator = "¬"

// latin1 widens bytes to runes; old RomCenter files are not UTF-8.
func latin1(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	runes := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		runes[i] = rune(s[i])
	}
	return string(runes)
}

func parseRomCenter(in *ingester, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	section := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(latin1(scanner.Text()))
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToUpper(line[1 : len(line)-1])
			continue
		}

		if section == "GAMES" {
			if lineNo%256 == 0 {
				if err := in.cancelled(); err != nil {
					return err
				}
			}
			ingestRomCenterRow(in, lineNo, line)
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			in.warnItem(lineNo, "skipping malformed line", "section", section)
			continue
		}
		applyRomCenterHeader(&in.header, section, strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return &ParseError{Path: in.path, Line: lineNo, Err: err}
	}
	return nil
}

func applyRomCenterHeader(h *datfile.Header, section, key, value string) {
	switch section {
	case "CREDITS":
		switch key {
		case "author":
			h.Author = value
		case "version":
			h.Version = value
		case "email":
			h.Email = value
		case "homepage":
			h.Homepage = value
		case "url":
			h.URL = value
		case "date":
			h.Date = value
		case "comment":
			h.Comment = value
		}
	case "DAT":
		switch key {
		case "split":
			if value == "1" {
				h.ForceMerging = datfile.MergingSplit
			}
		case "merge":
			if value == "1" {
				h.ForceMerging = datfile.MergingMerged
			}
		}
	case "EMULATOR":
		switch key {
		case "refname":
			h.Name = value
		case "version":
			h.Description = value
		}
	}
}

// ingestRomCenterRow reads
// ¬parent¬parent description¬game¬game description¬rom¬crc¬size¬romof¬merge¬
func ingestRomCenterRow(in *ingester, lineNo int, line string) {
	fields := strings.Split(line, rcSeparator)
	if len(fields) < 8 {
		in.warnItem(lineNo, "skipping malformed games row", "fields", len(fields))
		return
	}
	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	size, err := parseSize(field(7))
	if err != nil {
		in.warnItem(lineNo, "skipping malformed rom", "rom", field(5), "error", err)
		return
	}

	m := datitem.Machine{
		Name:        field(3),
		Description: field(4),
		RomOf:       field(8),
	}
	if parent := field(1); parent != "" && parent != m.Name {
		m.CloneOf = parent
	}

	rom := datitem.NewRom(field(5))
	rom.Size = size
	rom.Hashes.CRC = hashes.Parse(hashes.CRC, field(6))
	rom.MergeTag = field(9)
	rom.SetMachine(m)
	in.add(rom)
}

func writeRomCenter(w io.Writer, h *datfile.Header, groups []machineGroup) error {
	bw := &cmpWriter{w: w}

	bw.printf("[CREDITS]\n")
	bw.printf("author=%s\n", h.Author)
	bw.printf("version=%s\n", h.Version)
	bw.printf("comment=%s\n", h.Comment)
	bw.printf("[DAT]\n")
	bw.printf("version=2.50\n")
	bw.printf("split=%s\n", boolDigit(h.ForceMerging == datfile.MergingSplit))
	bw.printf("merge=%s\n", boolDigit(h.ForceMerging == datfile.MergingMerged || h.ForceMerging == datfile.MergingFull))
	bw.printf("[EMULATOR]\n")
	bw.printf("refname=%s\n", h.Name)
	bw.printf("version=%s\n", h.Description)
	bw.printf("[GAMES]\n")

	for _, g := range groups {
		m := g.machine
		parent := m.CloneOf
		if parent == "" {
			parent = m.Name
		}
		desc := cmpDescription(m)
		for _, item := range g.items {
			rom, ok := item.(*datitem.Rom)
			if !ok {
				continue
			}
			size := ""
			if rom.Size != datitem.SizeUnknown {
				size = strconv.FormatInt(rom.Size, 10)
			}
			bw.printf("%s\n", strings.Join([]string{
				"", parent, desc, m.Name, desc, rom.Name,
				hashes.String(rom.Hashes.CRC), size, m.RomOf, rom.MergeTag, "",
			}, rcSeparator))
		}
	}
	if bw.err != nil {
		return fmt.Errorf("failed to write RomCenter DAT: %w", bw.err)
	}
	return nil
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
