package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ryanm101/datman/internal/datfile"
	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
)

type cmpTokenKind int

const (
	cmpWord cmpTokenKind = iota
	cmpString
	cmpOpen
	cmpClose
	cmpEOF
)

type cmpToken struct {
	kind  cmpTokenKind
	value string
	line  int
}

// cmpLexer splits ClrMamePro text into words, quoted strings and parens.
type cmpLexer struct {
	r    *bufio.Reader
	line int
}

func newCmpLexer(r io.Reader) *cmpLexer {
	return &cmpLexer{r: bufio.NewReader(r), line: 1}
}

func (l *cmpLexer) next() (cmpToken, error) {
	for {
		c, _, err := l.r.ReadRune()
		if errors.Is(err, io.EOF) {
			return cmpToken{kind: cmpEOF, line: l.line}, nil
		}
		if err != nil {
			return cmpToken{}, err
		}

		switch {
		case c == '\n':
			l.line++
		case c == ' ' || c == '\t' || c == '\r' || c == '\uFEFF':
		case c == '(':
			return cmpToken{kind: cmpOpen, line: l.line}, nil
		case c == ')':
			return cmpToken{kind: cmpClose, line: l.line}, nil
		case c == '"':
			return l.quoted()
		default:
			_ = l.r.UnreadRune()
			return l.word()
		}
	}
}

func (l *cmpLexer) quoted() (cmpToken, error) {
	start := l.line
	var b strings.Builder
	for {
		c, _, err := l.r.ReadRune()
		if errors.Is(err, io.EOF) {
			return cmpToken{}, &ParseError{Line: start, Err: errors.New("unterminated string")}
		}
		if err != nil {
			return cmpToken{}, err
		}
		switch c {
		case '"':
			return cmpToken{kind: cmpString, value: b.String(), line: start}, nil
		case '\n':
			return cmpToken{}, &ParseError{Line: start, Err: errors.New("unterminated string")}
		case '\\':
			n, _, err := l.r.ReadRune()
			if err != nil {
				return cmpToken{}, &ParseError{Line: start, Err: errors.New("unterminated string")}
			}
			if n != '"' && n != '\\' {
				b.WriteRune(c)
			}
			b.WriteRune(n)
		default:
			b.WriteRune(c)
		}
	}
}

func (l *cmpLexer) word() (cmpToken, error) {
	var b strings.Builder
	for {
		c, _, err := l.r.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return cmpToken{}, err
		}
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '(' || c == ')' || c == '"' {
			_ = l.r.UnreadRune()
			break
		}
		b.WriteRune(c)
	}
	return cmpToken{kind: cmpWord, value: b.String(), line: l.line}, nil
}

// cmpBlock is a `keyword ( ... )` section. Pairs keep their file order.
type cmpBlock struct {
	keyword string
	line    int
	pairs   []cmpPair
}

type cmpPair struct {
	key   string
	value string
	block *cmpBlock
	line  int
}

// first returns the first value for key.
func (b *cmpBlock) first(key string) string {
	for _, p := range b.pairs {
		if p.block == nil && strings.EqualFold(p.key, key) {
			return p.value
		}
	}
	return ""
}

// cmpParser turns the token stream into blocks.
type cmpParser struct {
	lex *cmpLexer
}

func (p *cmpParser) next() (cmpToken, error) {
	return p.lex.next()
}

// topLevel reads the next `keyword (` block, or returns nil at EOF.
func (p *cmpParser) topLevel() (*cmpBlock, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.kind == cmpEOF {
		return nil, nil
	}
	if t.kind != cmpWord {
		return nil, &ParseError{Line: t.line, Err: fmt.Errorf("expected block keyword, got %q", t.value)}
	}
	open, err := p.next()
	if err != nil {
		return nil, err
	}
	if open.kind != cmpOpen {
		return nil, &ParseError{Line: open.line, Err: fmt.Errorf("expected '(' after %q", t.value)}
	}
	return p.body(t.value, t.line)
}

// body reads pairs until the matching close paren.
func (p *cmpParser) body(keyword string, line int) (*cmpBlock, error) {
	b := &cmpBlock{keyword: strings.ToLower(keyword), line: line}
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		switch t.kind {
		case cmpClose:
			return b, nil
		case cmpEOF:
			return nil, &ParseError{Line: line, Err: fmt.Errorf("unclosed %q block", keyword)}
		case cmpOpen:
			return nil, &ParseError{Line: t.line, Err: errors.New("unexpected '('")}
		}

		key := t.value
		v, err := p.next()
		if err != nil {
			return nil, err
		}
		switch v.kind {
		case cmpOpen:
			nested, err := p.body(key, t.line)
			if err != nil {
				return nil, err
			}
			b.pairs = append(b.pairs, cmpPair{key: strings.ToLower(key), block: nested, line: t.line})
		case cmpWord, cmpString:
			b.pairs = append(b.pairs, cmpPair{key: strings.ToLower(key), value: v.value, line: t.line})
		case cmpClose:
			// A bare flag at the end of a block.
			b.pairs = append(b.pairs, cmpPair{key: strings.ToLower(key), line: t.line})
			return b, nil
		case cmpEOF:
			return nil, &ParseError{Line: line, Err: fmt.Errorf("unclosed %q block", keyword)}
		}
	}
}

func parseClrMamePro(in *ingester, r io.Reader) error {
	p := &cmpParser{lex: newCmpLexer(r)}
	for {
		if err := in.cancelled(); err != nil {
			return err
		}
		block, err := p.topLevel()
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Path = in.path
			}
			return err
		}
		if block == nil {
			return nil
		}

		switch block.keyword {
		case "clrmamepro", "emulator":
			in.header.Fill(cmpHeader(block))
		case "game", "machine", "resource", "set":
			ingestCmpGame(in, block)
		default:
			in.warnItem(block.line, "skipping unknown block", "keyword", block.keyword)
		}
	}
}

func cmpHeader(b *cmpBlock) datfile.Header {
	return datfile.Header{
		Name:         b.first("name"),
		Description:  b.first("description"),
		RootDir:      b.first("rootdir"),
		Category:     b.first("category"),
		Version:      b.first("version"),
		Date:         b.first("date"),
		Author:       b.first("author"),
		Email:        b.first("email"),
		Homepage:     b.first("homepage"),
		URL:          b.first("url"),
		Comment:      b.first("comment"),
		Type:         b.first("type"),
		ForceMerging: datfile.ParseForceMerging(b.first("forcemerging")),
		ForceNodump:  datfile.ParseForceNodump(b.first("forcenodump")),
		ForcePacking: datfile.ParseForcePacking(b.first("forcepacking")),
	}
}

func ingestCmpGame(in *ingester, b *cmpBlock) {
	m := datitem.Machine{
		Name:         b.first("name"),
		Comment:      b.first("comment"),
		Description:  b.first("description"),
		Year:         b.first("year"),
		Manufacturer: b.first("manufacturer"),
		Publisher:    b.first("publisher"),
		RomOf:        b.first("romof"),
		CloneOf:      b.first("cloneof"),
		SampleOf:     b.first("sampleof"),
		SourceFile:   b.first("sourcefile"),
		Runnable:     datitem.ParseYesNo(b.first("runnable")),
		Board:        b.first("board"),
		RebuildTo:    b.first("rebuildto"),
	}
	if b.keyword == "resource" || datitem.ParseYesNo(b.first("isbios")) == datitem.Yes {
		m.Type |= datitem.MachineBios
	}
	if datitem.ParseYesNo(b.first("isdevice")) == datitem.Yes {
		m.Type |= datitem.MachineDevice
	}

	count := 0
	attach := func(item datitem.DatItem) {
		item.Base().SetMachine(m)
		in.add(item)
		count++
	}

	for _, pair := range b.pairs {
		switch pair.key {
		case "rom":
			if pair.block == nil {
				continue
			}
			rom, err := cmpRom(pair.block)
			if err != nil {
				in.warnItem(pair.line, "skipping malformed rom", "machine", m.Name, "error", err)
				continue
			}
			attach(rom)
		case "disk":
			if pair.block != nil {
				attach(cmpDisk(pair.block))
			}
		case "release":
			if pair.block != nil {
				attach(&datitem.Release{
					Common:   datitem.Common{Name: pair.block.first("name")},
					Region:   pair.block.first("region"),
					Language: pair.block.first("language"),
					Date:     pair.block.first("date"),
					Default:  datitem.ParseYesNo(pair.block.first("default")),
				})
			}
		case "biosset":
			if pair.block != nil {
				attach(&datitem.BiosSet{
					Common:      datitem.Common{Name: pair.block.first("name")},
					Description: pair.block.first("description"),
					Default:     datitem.ParseYesNo(pair.block.first("default")),
				})
			}
		case "sample":
			name := pair.value
			if pair.block != nil {
				name = pair.block.first("name")
			}
			attach(&datitem.Sample{Common: datitem.Common{Name: name}})
		case "archive":
			name := pair.value
			if pair.block != nil {
				name = pair.block.first("name")
			}
			attach(&datitem.Archive{Common: datitem.Common{Name: name}})
		}
	}

	if count == 0 {
		attach(&datitem.Blank{})
	}
}

func cmpRom(b *cmpBlock) (*datitem.Rom, error) {
	size, err := parseSize(b.first("size"))
	if err != nil {
		return nil, err
	}
	r := datitem.NewRom(b.first("name"))
	r.Size = size
	r.Hashes = hashes.Set{
		CRC:    hashes.Parse(hashes.CRC, b.first("crc")),
		MD5:    hashes.Parse(hashes.MD5, b.first("md5")),
		SHA1:   hashes.Parse(hashes.SHA1, b.first("sha1")),
		SHA256: hashes.Parse(hashes.SHA256, b.first("sha256")),
		SHA384: hashes.Parse(hashes.SHA384, b.first("sha384")),
		SHA512: hashes.Parse(hashes.SHA512, b.first("sha512")),
	}
	r.MergeTag = b.first("merge")
	r.Status = cmpStatus(b)
	r.Date = b.first("date")
	r.Region = b.first("region")
	r.Offset = b.first("offs")
	r.Bios = b.first("bios")
	return r, nil
}

func cmpDisk(b *cmpBlock) *datitem.Disk {
	d := datitem.NewDisk(b.first("name"))
	d.Hashes = hashes.Set{
		MD5:    hashes.Parse(hashes.MD5, b.first("md5")),
		SHA1:   hashes.Parse(hashes.SHA1, b.first("sha1")),
		SHA256: hashes.Parse(hashes.SHA256, b.first("sha256")),
	}
	d.MergeTag = b.first("merge")
	d.Status = cmpStatus(b)
	d.Index = b.first("index")
	return d
}

// cmpStatus reads either `status x` or the older `flags x` spelling.
func cmpStatus(b *cmpBlock) datitem.ItemStatus {
	if s := b.first("status"); s != "" {
		return datitem.ParseItemStatus(s)
	}
	return datitem.ParseItemStatus(b.first("flags"))
}

// cmpWriter emits ClrMamePro text.
type cmpWriter struct {
	w   io.Writer
	err error
}

func (c *cmpWriter) printf(format string, args ...any) {
	if c.err != nil {
		return
	}
	_, c.err = fmt.Fprintf(c.w, format, args...)
}

// field writes `key "value"` when value is set.
func (c *cmpWriter) field(indent, key, value string) {
	if value == "" {
		return
	}
	c.printf("%s%s %s\n", indent, key, cmpQuote(value))
}

// inline renders key value pairs for a one line nested block.
func inline(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		b.WriteString(pairs[i])
		b.WriteByte(' ')
		b.WriteString(pairs[i+1])
		b.WriteByte(' ')
	}
	return b.String()
}

func cmpQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func writeClrMamePro(w io.Writer, h *datfile.Header, groups []machineGroup) error {
	c := &cmpWriter{w: w}

	c.printf("clrmamepro (\n")
	c.field("\t", "name", h.Name)
	c.field("\t", "description", h.Description)
	c.field("\t", "rootdir", h.RootDir)
	c.field("\t", "category", h.Category)
	c.field("\t", "version", h.Version)
	c.field("\t", "date", h.Date)
	c.field("\t", "author", h.Author)
	c.field("\t", "email", h.Email)
	c.field("\t", "homepage", h.Homepage)
	c.field("\t", "url", h.URL)
	c.field("\t", "comment", h.Comment)
	c.field("\t", "type", h.Type)
	if s := h.ForceMerging.String(); s != "" {
		c.printf("\tforcemerging %s\n", s)
	}
	if s := h.ForceNodump.String(); s != "" {
		c.printf("\tforcenodump %s\n", s)
	}
	if s := h.ForcePacking.String(); s != "" {
		c.printf("\tforcepacking %s\n", s)
	}
	c.printf(")\n")

	for _, g := range groups {
		m := g.machine
		keyword := "game"
		if m.Type&datitem.MachineBios != 0 {
			keyword = "resource"
		}
		c.printf("\n%s (\n", keyword)
		c.field("\t", "name", m.Name)
		c.field("\t", "description", cmpDescription(m))
		c.field("\t", "comment", m.Comment)
		c.field("\t", "year", m.Year)
		c.field("\t", "manufacturer", m.Manufacturer)
		c.field("\t", "publisher", m.Publisher)
		c.field("\t", "cloneof", m.CloneOf)
		c.field("\t", "romof", m.RomOf)
		c.field("\t", "sampleof", m.SampleOf)
		c.field("\t", "sourcefile", m.SourceFile)
		c.field("\t", "runnable", m.Runnable.String())
		c.field("\t", "board", m.Board)
		c.field("\t", "rebuildto", m.RebuildTo)
		if m.Type&datitem.MachineDevice != 0 {
			c.printf("\tisdevice yes\n")
		}

		for _, item := range g.items {
			c.printf("\t%s\n", cmpItem(item))
		}
		c.printf(")\n")
	}
	return c.err
}

func cmpDescription(m datitem.Machine) string {
	if m.Description != "" {
		return m.Description
	}
	return m.Name
}

func cmpItem(item datitem.DatItem) string {
	name := cmpQuote(item.Base().Name)
	switch v := item.(type) {
	case *datitem.Rom:
		size := ""
		if v.Size != datitem.SizeUnknown {
			size = strconv.FormatInt(v.Size, 10)
		}
		return "rom ( " + inline(
			"name", name,
			"size", size,
			"crc", hashes.String(v.Hashes.CRC),
			"md5", hashes.String(v.Hashes.MD5),
			"sha1", hashes.String(v.Hashes.SHA1),
			"sha256", hashes.String(v.Hashes.SHA256),
			"sha384", hashes.String(v.Hashes.SHA384),
			"sha512", hashes.String(v.Hashes.SHA512),
			"merge", quoteIfSet(v.MergeTag),
			"status", statusAttr(v.Status),
			"date", quoteIfSet(v.Date),
			"region", quoteIfSet(v.Region),
			"offs", v.Offset,
			"bios", quoteIfSet(v.Bios),
		) + ")"
	case *datitem.Disk:
		return "disk ( " + inline(
			"name", name,
			"md5", hashes.String(v.Hashes.MD5),
			"sha1", hashes.String(v.Hashes.SHA1),
			"sha256", hashes.String(v.Hashes.SHA256),
			"merge", quoteIfSet(v.MergeTag),
			"status", statusAttr(v.Status),
			"index", v.Index,
		) + ")"
	case *datitem.Release:
		return "release ( " + inline(
			"name", name,
			"region", quoteIfSet(v.Region),
			"language", quoteIfSet(v.Language),
			"date", quoteIfSet(v.Date),
			"default", v.Default.String(),
		) + ")"
	case *datitem.BiosSet:
		return "biosset ( " + inline(
			"name", name,
			"description", quoteIfSet(v.Description),
			"default", v.Default.String(),
		) + ")"
	case *datitem.Sample:
		return "sample " + name
	case *datitem.Archive:
		return "archive ( name " + name + " )"
	}
	return ""
}

func quoteIfSet(s string) string {
	if s == "" {
		return ""
	}
	return cmpQuote(s)
}
