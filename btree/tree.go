package btree

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

/*
Tree only keeps a pointer to the root node and the minimum degree t.
A tree is made up of nodes. Each node contains records.
*/
type Tree struct {
	root   *node
	degree int
	length int
}

// New returns an empty tree whose nodes hold at most 2*degree-1 records.
func New(degree int) (*Tree, error) {
	if degree < MinDegree {
		return nil, errors.Wrapf(ErrInvalidDegree, "got %d", degree)
	}
	return &Tree{degree: degree}, nil
}

func (t *Tree) Degree() int {
	return t.degree
}

// Len returns the number of records in the tree.
func (t *Tree) Len() int {
	return t.length
}

// Search returns the record stored under key.
func (t *Tree) Search(key int) (*Record, bool) {
	if t.root == nil {
		return nil, false
	}
	r := t.root.get(key)
	return r, r != nil
}

/*
Create a new root node.
The existing root then becomes the new root's only child and is split, so the new root
ends up with the old median and two children of t-1 records each.
This is the only place the tree grows in height.
*/
func (t *Tree) splitRoot() {
	newRoot := newNode(t.degree, false)
	newRoot.children[0] = t.root
	newRoot.splitChild(0)
	t.root = newRoot

	Log.WithFields(logrus.Fields{
		"median": newRoot.keys[0], "height": t.Height(),
	}).Debug("split root")
}

/*
Insert adds r to the tree. A record already stored under r's key is replaced by r; in
that case Insert returns false and the tree size does not change.
*/
func (t *Tree) Insert(r *Record) bool {
	invariant(r != nil, "insert of nil record")

	// The tree is empty, so start with a single leaf.
	if t.root == nil {
		t.root = newNode(t.degree, true)
		t.root.insertRecordAt(0, r)
		t.length++
		return true
	}

	// The tree root is full, so perform a split on the root.
	if t.root.isFull() {
		t.splitRoot()
	}

	inserted := t.root.insertNonFull(r)
	if inserted {
		t.length++
	}
	return inserted
}

// Delete removes the record stored under key. It reports whether one was found.
func (t *Tree) Delete(key int) bool {
	if t.root == nil {
		return false
	}
	removed := t.root.delete(key)

	// A merge at the top can leave the root without keys: its only child takes over,
	// or the tree becomes empty if the root was the last leaf.
	if t.root.numKeys == 0 {
		if t.root.leaf {
			t.root = nil
		} else {
			t.root = t.root.children[0]
		}
		Log.WithFields(logrus.Fields{
			"key": key, "height": t.Height(),
		}).Debug("collapsed root")
	}

	if removed == nil {
		return false
	}
	t.length--
	return true
}

// CollectAll returns every record in ascending key order. The tree is not modified.
func (t *Tree) CollectAll() []*Record {
	records := make([]*Record, 0, t.length)
	if t.root != nil {
		records = t.root.collect(records)
	}
	return records
}

// Ascend calls fn on each record in ascending key order until fn returns false.
func (t *Tree) Ascend(fn func(*Record) bool) {
	if t.root != nil {
		t.root.ascend(fn)
	}
}

// Min returns the record with the smallest key.
func (t *Tree) Min() (*Record, bool) {
	if t.root == nil {
		return nil, false
	}
	return t.root.min(), true
}

// Max returns the record with the largest key.
func (t *Tree) Max() (*Record, bool) {
	if t.root == nil {
		return nil, false
	}
	return t.root.max(), true
}

// Height returns the number of node levels; 0 for an empty tree.
func (t *Tree) Height() int {
	height := 0
	for n := t.root; n != nil; height++ {
		if n.leaf {
			n = nil
		} else {
			n = n.children[0]
		}
	}
	return height
}

// Stats holds statistics about the tree.
type Stats struct {
	Height        int
	InternalNodes int
	LeafNodes     int
	Records       int
}

func (t *Tree) Stats() Stats {
	s := Stats{Height: t.Height(), Records: t.length}
	var walk func(n *node)
	walk = func(n *node) {
		if n.leaf {
			s.LeafNodes++
			return
		}
		s.InternalNodes++
		for i := 0; i <= n.numKeys; i++ {
			walk(n.children[i])
		}
	}
	if t.root != nil {
		walk(t.root)
	}
	return s
}

// Verify checks every structural invariant of the tree and returns an error marked
// with ErrInvariantViolation describing the first breach it finds.
func (t *Tree) Verify() error {
	if t.root == nil {
		if t.length != 0 {
			return errors.Wrapf(ErrInvariantViolation, "empty tree reports %d records", t.length)
		}
		return nil
	}
	if t.root.degree != t.degree {
		return errors.Wrapf(ErrInvariantViolation, "root built for degree %d, tree has %d", t.root.degree, t.degree)
	}
	count, _, err := t.root.verify(true, nil, nil)
	if err != nil {
		return err
	}
	if count != t.length {
		return errors.Wrapf(ErrInvariantViolation, "tree holds %d records, reports %d", count, t.length)
	}
	return nil
}

func (t *Tree) String() string {
	v := &Visualizer{Tree: t}
	return v.Visualize()
}
