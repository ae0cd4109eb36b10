package library

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ryanm101/datman/internal/datitem"
	"github.com/ryanm101/datman/internal/hashes"
)

var chdMagic = []byte("MComprHD")

// ErrNotCHD is returned for files without a CHD signature.
var ErrNotCHD = errors.New("not a CHD file")

// chdHeader is the part of a CHD header that identifies its content.
type chdHeader struct {
	Version      uint32
	LogicalBytes uint64
	MD5          []byte // raw data MD5, v3 only
	SHA1         []byte // raw data SHA1
}

// chdLayout gives the minimum header length and digest offsets per version.
var chdLayout = map[uint32]struct {
	length  uint32
	logical int
	md5     int // -1 when absent
	sha1    int
}{
	3: {length: 120, logical: 28, md5: 44, sha1: 80},
	4: {length: 108, logical: 28, md5: -1, sha1: 88},
	5: {length: 124, logical: 32, md5: -1, sha1: 84},
}

// readCHD decodes the header of a v3, v4 or v5 CHD.
func readCHD(r io.Reader) (chdHeader, error) {
	var prefix [16]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return chdHeader{}, fmt.Errorf("failed to read CHD header: %w", err)
	}
	if !bytes.Equal(prefix[:8], chdMagic) {
		return chdHeader{}, ErrNotCHD
	}

	length := binary.BigEndian.Uint32(prefix[8:12])
	version := binary.BigEndian.Uint32(prefix[12:16])
	layout, ok := chdLayout[version]
	if !ok {
		return chdHeader{}, fmt.Errorf("unsupported CHD version %d", version)
	}
	if length < layout.length {
		return chdHeader{}, fmt.Errorf("CHD v%d header too short: %d bytes", version, length)
	}

	buf := make([]byte, layout.length)
	copy(buf, prefix[:])
	if _, err := io.ReadFull(r, buf[16:]); err != nil {
		return chdHeader{}, fmt.Errorf("failed to read CHD v%d header: %w", version, err)
	}

	h := chdHeader{
		Version:      version,
		LogicalBytes: binary.BigEndian.Uint64(buf[layout.logical:]),
		SHA1:         bytes.Clone(buf[layout.sha1 : layout.sha1+hashes.SHA1.Size()]),
	}
	if layout.md5 >= 0 {
		h.MD5 = bytes.Clone(buf[layout.md5 : layout.md5+hashes.MD5.Size()])
	}
	return h, nil
}

func isCHD(name string) bool {
	return strings.EqualFold(path.Ext(name), ".chd")
}

// chdDisk reads the CHD at job.path into a Disk named without its
// extension.
func chdDisk(job fileJob) (*datitem.Disk, error) {
	f, err := os.Open(job.path) // #nosec G304
	if err != nil {
		return nil, &ScanError{Op: "open file", Path: job.path, Err: err}
	}
	defer func() { _ = f.Close() }()

	h, err := readCHD(f)
	if err != nil {
		return nil, &ScanError{Op: "read CHD", Path: job.path, Err: err}
	}

	disk := datitem.NewDisk(strings.TrimSuffix(job.name, path.Ext(job.name)))
	disk.Hashes.SHA1 = h.SHA1
	disk.Hashes.MD5 = h.MD5
	disk.Machine = datitem.Machine{Name: job.machine, Description: job.machine}
	return disk, nil
}
