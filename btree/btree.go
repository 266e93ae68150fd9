// Package btree is an in-memory B-tree mapping integer keys to records.
//
// Nodes hold between t-1 and 2t-1 records (the root may hold fewer), where t is
// the minimum degree chosen when the tree is created. Insertion splits full nodes
// on the way down and deletion tops up thin nodes on the way down, so neither
// operation needs a second pass back up the tree.
//
// A Tree is not safe for concurrent use. Callers sharing one between goroutines
// must guard every call, reads included, with a single lock.
package btree

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// MinDegree is the smallest minimum degree a tree can be built with.
// Below it a full node has no median to promote.
const MinDegree = 2

var (
	// ErrInvalidDegree is returned by New for a minimum degree below MinDegree.
	ErrInvalidDegree      = errors.New("btree: minimum degree must be at least 2")
	// ErrInvariantViolation marks errors reported by Tree.Verify.
	ErrInvariantViolation = errors.New("btree: invariant violation")
)

// Log receives debug traces of structural changes at the root.
var Log = logrus.New()

/*
Record is the data item stored in the tree.
key uniquely identifies a record and is used for sorting; it never changes once
the record exists. value may be changed in place through SetValue.
*/
type Record struct {
	key   int
	value string
}

func NewRecord(key int, value string) *Record {
	return &Record{key: key, value: value}
}

func (r *Record) Key() int {
	return r.key
}

func (r *Record) Value() string {
	return r.value
}

// SetValue replaces the record's value without touching its position in the tree.
func (r *Record) SetValue(value string) {
	r.value = value
}

// invariant halts on a broken engine contract. Continuing would corrupt every
// later operation on the tree.
func invariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(errors.AssertionFailedf(format, args...))
	}
}
