// Package encoder frames the entries of a snapshot stream.
//
// Entry layout: kind (1B) | key (varint) | valLen (uvarint) | val (valLen bytes)
package encoder

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

type Kind uint8

const (
	KindDegree  Kind = iota + 1 // key: minimum degree of the tree that wrote the snapshot
	KindNextKey                 // key: allocator counter
	KindFreeKey                 // key: released key waiting for reuse
	KindRecord                  // key: record key, val: record value
	KindEnd                     // key: number of KindRecord entries written
)

// MaxValueLen bounds the value length accepted by Decode.
const MaxValueLen = 1 << 24

// ErrMalformed is returned by Decode for entries that cannot be parsed.
var ErrMalformed = errors.New("encoder: malformed entry")

func (k Kind) valid() bool {
	return k >= KindDegree && k <= KindEnd
}

func (k Kind) String() string {
	switch k {
	case KindDegree:
		return "degree"
	case KindNextKey:
		return "next-key"
	case KindFreeKey:
		return "free-key"
	case KindRecord:
		return "record"
	case KindEnd:
		return "end"
	}
	return "unknown"
}

type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

type Entry struct {
	Kind Kind
	Key  int64
	Val  []byte
}

// Encode returns the framed entry. The returned slice is reused by the next call.
func (e *Encoder) Encode(kind Kind, key int64, val []byte) []byte {
	needed := 1 + 2*binary.MaxVarintLen64 + len(val)
	if cap(e.buf) < needed {
		e.buf = make([]byte, needed)
	}
	buf := e.buf[:needed]
	buf[0] = byte(kind)
	n := 1
	n += binary.PutVarint(buf[n:], key)
	n += binary.PutUvarint(buf[n:], uint64(len(val)))
	n += copy(buf[n:], val)
	return buf[:n]
}

// Decode reads one entry from r. A clean end of input before the kind byte is
// reported as io.EOF; an entry cut short is reported as io.ErrUnexpectedEOF.
func (e *Encoder) Decode(r *bufio.Reader) (*Entry, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	kind := Kind(b)
	if !kind.valid() {
		return nil, errors.Wrapf(ErrMalformed, "unknown kind %d", b)
	}

	key, err := binary.ReadVarint(r)
	if err != nil {
		return nil, badVarint(err, kind, "key")
	}
	valLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, badVarint(err, kind, "value length")
	}
	if valLen > MaxValueLen {
		return nil, errors.Wrapf(ErrMalformed, "%s entry value of %d bytes", kind, valLen)
	}

	val := make([]byte, valLen)
	if _, err := io.ReadFull(r, val); err != nil {
		return nil, unexpected(err)
	}
	return &Entry{Kind: kind, Key: key, Val: val}, nil
}

// badVarint keeps truncation as io.ErrUnexpectedEOF and marks anything else,
// such as a varint running past 64 bits, as ErrMalformed.
func badVarint(err error, kind Kind, field string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return io.ErrUnexpectedEOF
	}
	return errors.WithSecondaryError(errors.Wrapf(ErrMalformed, "%s entry %s", kind, field), err)
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
