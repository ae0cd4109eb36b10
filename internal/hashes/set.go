package hashes

import "bytes"

// Set holds one optional digest per Kind. Nil or empty means unknown.
type Set struct {
	CRC    []byte
	MD5    []byte
	SHA1   []byte
	SHA256 []byte
	SHA384 []byte
	SHA512 []byte
}

// Get returns the digest of the given kind.
func (s *Set) Get(k Kind) []byte {
	switch k {
	case CRC:
		return s.CRC
	case MD5:
		return s.MD5
	case SHA1:
		return s.SHA1
	case SHA256:
		return s.SHA256
	case SHA384:
		return s.SHA384
	case SHA512:
		return s.SHA512
	}
	return nil
}

// Put stores a digest of the given kind.
func (s *Set) Put(k Kind, b []byte) {
	switch k {
	case CRC:
		s.CRC = b
	case MD5:
		s.MD5 = b
	case SHA1:
		s.SHA1 = b
	case SHA256:
		s.SHA256 = b
	case SHA384:
		s.SHA384 = b
	case SHA512:
		s.SHA512 = b
	}
}

// Clone returns a deep copy.
func (s Set) Clone() Set {
	var out Set
	for _, k := range Kinds {
		if b := s.Get(k); len(b) > 0 {
			out.Put(k, bytes.Clone(b))
		}
	}
	return out
}

// IsEmpty reports whether no digest is known.
func (s *Set) IsEmpty() bool {
	for _, k := range Kinds {
		if len(s.Get(k)) > 0 {
			return false
		}
	}
	return true
}

// HasCommon reports whether at least one kind is present on both sides.
func (s *Set) HasCommon(o *Set) bool {
	for _, k := range Kinds {
		if len(s.Get(k)) > 0 && len(o.Get(k)) > 0 {
			return true
		}
	}
	return false
}

// Agrees reports whether no mutually present kind disagrees.
func (s *Set) Agrees(o *Set) bool {
	for _, k := range Kinds {
		if Compare(s.Get(k), o.Get(k)) == NotEqual {
			return false
		}
	}
	return true
}

// Fill copies every digest that is missing here but present in o.
// Present digests are never overwritten.
func (s *Set) Fill(o *Set) {
	for _, k := range Kinds {
		if len(s.Get(k)) == 0 && len(o.Get(k)) > 0 {
			s.Put(k, bytes.Clone(o.Get(k)))
		}
	}
}

// First returns the hex of the first present digest in preference order.
func (s *Set) First() (Kind, string, bool) {
	for _, k := range Kinds {
		if b := s.Get(k); len(b) > 0 {
			return k, String(b), true
		}
	}
	return 0, "", false
}

// Count returns how many kinds are present.
func (s *Set) Count() int {
	n := 0
	for _, k := range Kinds {
		if len(s.Get(k)) > 0 {
			n++
		}
	}
	return n
}

// IsZeroFile reports whether every present digest is the empty-file digest
// and at least one is present.
func (s *Set) IsZeroFile() bool {
	if s.IsEmpty() {
		return false
	}
	for _, k := range Kinds {
		if b := s.Get(k); len(b) > 0 && String(b) != Zero(k) {
			return false
		}
	}
	return true
}

// ZeroFile returns the digests of a zero-length file.
func ZeroFile() Set {
	var s Set
	for _, k := range Kinds {
		s.Put(k, MustParse(k, Zero(k)))
	}
	return s
}
