package hashes

import (
	"crypto/md5" //nolint:gosec // DAT formats require MD5
	"crypto/sha1" //nolint:gosec // DAT formats require SHA-1
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"hash/crc32"
	"io"
)

// Compute reads r to EOF and returns every digest along with the byte count.
func Compute(r io.Reader) (Set, int64, error) {
	hashers := []hash.Hash{
		crc32.NewIEEE(),
		md5.New(),  //nolint:gosec
		sha1.New(), //nolint:gosec
		sha256.New(),
		sha512.New384(),
		sha512.New(),
	}
	writers := make([]io.Writer, len(hashers))
	for i, h := range hashers {
		writers[i] = h
	}

	n, err := io.Copy(io.MultiWriter(writers...), r)
	if err != nil {
		return Set{}, n, err
	}

	var s Set
	for i, k := range Kinds {
		s.Put(k, hashers[i].Sum(nil))
	}
	return s, n, nil
}
