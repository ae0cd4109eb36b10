// Package hashes canonicalizes and compares the digests carried by DAT entries.
package hashes

import (
	"bytes"
	"encoding/hex"
	"strings"
)

// Kind identifies a digest algorithm.
type Kind int

const (
	CRC Kind = iota
	MD5
	SHA1
	SHA256
	SHA384
	SHA512
)

// Kinds lists every supported digest in preference order.
var Kinds = []Kind{CRC, MD5, SHA1, SHA256, SHA384, SHA512}

// Size returns the digest length in bytes.
func (k Kind) Size() int {
	switch k {
	case CRC:
		return 4
	case MD5:
		return 16
	case SHA1:
		return 20
	case SHA256:
		return 32
	case SHA384:
		return 48
	case SHA512:
		return 64
	}
	return 0
}

func (k Kind) String() string {
	switch k {
	case CRC:
		return "crc"
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case SHA384:
		return "sha384"
	case SHA512:
		return "sha512"
	}
	return "unknown"
}

// Digests of a zero-length file. CRCZero doubles as the all-zero sentinel.
const (
	CRCZero    = "00000000"
	MD5Zero    = "d41d8cd98f00b204e9800998ecf8427e"
	SHA1Zero   = "da39a3ee5e6b4b0d3255bfef95601890afd80709"
	SHA256Zero = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	SHA384Zero = "38b060a751ac96384cd9327eb1b1e36a21fdb71114be07434c0cc7bf63f6e1da274edebfe76f65fbd51ad2f14898b95b"
	SHA512Zero = "cf83e1357eefb8bdf1542850d66d8007d620e4050b5715dc83f4a921d36ce9ce47d0d13c5d85f2b0ff8318d2877eec2f63b931bd47417a81a538327af927da3e"
)

// Zero returns the empty-file digest for the given kind in hex.
func Zero(k Kind) string {
	switch k {
	case CRC:
		return CRCZero
	case MD5:
		return MD5Zero
	case SHA1:
		return SHA1Zero
	case SHA256:
		return SHA256Zero
	case SHA384:
		return SHA384Zero
	case SHA512:
		return SHA512Zero
	}
	return ""
}

// Agreement is the outcome of comparing two optional digests.
type Agreement int

const (
	// AgreeOrUnknown means at least one side carries no digest.
	AgreeOrUnknown Agreement = iota
	Equal
	NotEqual
)

// Compare compares two optional digests. An empty buffer is never a mismatch.
func Compare(a, b []byte) Agreement {
	if len(a) == 0 || len(b) == 0 {
		return AgreeOrUnknown
	}
	if bytes.Equal(a, b) {
		return Equal
	}
	return NotEqual
}

// Parse canonicalizes a textual digest into raw bytes. Short CRCs are left
// padded; anything that is not valid hex of the right length yields nil.
func Parse(k Kind, s string) []byte {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	if s == "" || s == "-" {
		return nil
	}

	want := k.Size() * 2
	if k == CRC && len(s) < want {
		s = strings.Repeat("0", want-len(s)) + s
	}
	if len(s) != want {
		return nil
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// String renders a digest as lowercase hex, or "" when absent.
func String(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hex.EncodeToString(b)
}

// MustParse is Parse for constants and tests.
func MustParse(k Kind, s string) []byte {
	b := Parse(k, s)
	if b == nil {
		panic("hashes: invalid " + k.String() + " digest " + s)
	}
	return b
}
