package record

import (
	"encoding/binary"
	"time"

	"github.com/zeebo/xxh3"
)

// Value tags in the canonical encoding. NULL and the empty string must
// never collide.
const (
	tagNull byte = iota
	tagText
	tagInt
	tagDate
)

// AppendKey appends a canonical, type-tagged encoding of the given columns of
// l to dst. Two rows produce the same bytes iff they are equal on every
// column.
func AppendKey(dst []byte, l *Layoff, cols []string) []byte {
	var n [8]byte
	for _, c := range cols {
		switch v := l.Value(c).(type) {
		case nil:
			dst = append(dst, tagNull)
		case string:
			dst = append(dst, tagText)
			binary.LittleEndian.PutUint64(n[:], uint64(len(v)))
			dst = append(dst, n[:]...)
			dst = append(dst, v...)
		case int64:
			dst = append(dst, tagInt)
			binary.LittleEndian.PutUint64(n[:], uint64(v))
			dst = append(dst, n[:]...)
		case time.Time:
			dst = append(dst, tagDate)
			binary.LittleEndian.PutUint64(n[:], uint64(v.Unix()))
			dst = append(dst, n[:]...)
		}
	}
	return dst
}

// Fingerprint hashes the canonical encoding of cols with xxh3. Equal rows
// have equal fingerprints; callers confirm matches with Equal.
func Fingerprint(l *Layoff, cols []string) uint64 {
	return xxh3.Hash(AppendKey(nil, l, cols))
}

// Equal reports whether a and b hold identical values on every column.
func Equal(a, b *Layoff, cols []string) bool {
	for _, c := range cols {
		av, bv := a.Value(c), b.Value(c)
		at, aok := av.(time.Time)
		bt, bok := bv.(time.Time)
		if aok || bok {
			if !(aok && bok && at.Equal(bt)) {
				return false
			}
			continue
		}
		if av != bv {
			return false
		}
	}
	return true
}
