// Package snapshot persists a whole record store to a single file and reads it back.
//
// File layout: the 8-byte magic "RECSNAP1" followed by a snappy framed stream of
// encoder entries:
//
//	degree | next-key | free-key* | record* | end(record count)
//
// A snapshot is always rewritten in full. Save writes a temporary file next to the
// target and renames it into place, so readers see either the old or the new file.
package snapshot

import "github.com/cockroachdb/errors"

const magic = "RECSNAP1"

var (
	// ErrNoSnapshot is returned by Load when the file is missing or empty.
	ErrNoSnapshot = errors.New("snapshot: no snapshot")
	// ErrCorrupt marks snapshots that fail to parse or are cut short.
	ErrCorrupt    = errors.New("snapshot: corrupt")
)

type Record struct {
	Key   int
	Value string
}

// State is everything a snapshot holds.
type State struct {
	Degree   int
	NextKey  int
	FreeKeys []int
	Records  []Record
}
