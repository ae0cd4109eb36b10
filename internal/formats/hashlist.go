package formats

import (
	"bufio"
	"io"
	"path"
	"strings"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
)

func hashListKind(f datfile.Format) hashes.Kind {
	switch f {
	case datfile.FormatMD5:
		return hashes.MD5
	case datfile.FormatSHA1:
		return hashes.SHA1
	}
	return hashes.CRC
}

// parseHashList reads `name crc` (SFV) or `digest *name` (MD5/SHA1) lines.
// A directory prefix on the name becomes the machine; otherwise the DAT's
// base name is used.
func parseHashList(in *ingester, r io.Reader, f datfile.Format) error {
	kind := hashListKind(f)
	defaultMachine := strings.TrimSuffix(path.Base(toSlash(in.path)), path.Ext(in.path))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if lineNo%256 == 0 {
			if err := in.cancelled(); err != nil {
				return err
			}
		}

		var name, digest string
		if f == datfile.FormatSFV {
			i := strings.LastIndexAny(line, " \t")
			if i < 0 {
				in.warnItem(lineNo, "skipping malformed line")
				continue
			}
			name, digest = strings.TrimSpace(line[:i]), line[i+1:]
		} else {
			i := strings.IndexAny(line, " \t")
			if i < 0 {
				in.warnItem(lineNo, "skipping malformed line")
				continue
			}
			digest, name = line[:i], strings.TrimPrefix(strings.TrimSpace(line[i+1:]), "*")
		}

		h := hashes.Parse(kind, digest)
		if h == nil || name == "" {
			in.warnItem(lineNo, "skipping malformed line", "digest", digest)
			continue
		}

		machine, file := defaultMachine, toSlash(name)
		if i := strings.LastIndex(file, "/"); i >= 0 {
			machine, file = file[:i], file[i+1:]
		}

		rom := datitem.NewRom(file)
		rom.Hashes.Put(kind, h)
		rom.Machine.Name = machine
		in.add(rom)
	}
	if err := scanner.Err(); err != nil {
		return &ParseError{Path: in.path, Line: lineNo, Err: err}
	}
	return nil
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// hashListWriter emits one line per Rom (and Disk for MD5/SHA1). Machines
// named after the DAT are written without a directory prefix.
func hashListWriter(f datfile.Format) dialectWriter {
	kind := hashListKind(f)
	return func(w io.Writer, h *datfile.Header, groups []machineGroup) error {
		bw := &cmpWriter{w: w}
		base := outputBase(h)
		for _, g := range groups {
			for _, item := range g.items {
				var digest []byte
				switch v := item.(type) {
				case *datitem.Rom:
					digest = v.Hashes.Get(kind)
				case *datitem.Disk:
					digest = v.Hashes.Get(kind)
				}
				if len(digest) == 0 {
					continue
				}

				name := item.Base().Name
				if m := g.machine.Name; m != "" && m != base && m != h.Name {
					name = m + "/" + name
				}
				if f == datfile.FormatSFV {
					bw.printf("%s %s\n", name, hashes.String(digest))
				} else {
					bw.printf("%s *%s\n", hashes.String(digest), name)
				}
			}
		}
		return bw.err
	}
}
