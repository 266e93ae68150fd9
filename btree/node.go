package btree

import "github.com/cockroachdb/errors"

type node struct {
	// keys, records and children are allocated once at full capacity (2t-1, 2t-1
	// and 2t) and only the first numKeys (numKeys+1 for children) slots are live.
	// children is nil for leaves.
	keys     []int
	records  []*Record
	children []*node
	numKeys  int
	leaf     bool
	degree   int
}

func newNode(degree int, leaf bool) *node {
	n := &node{
		keys:    make([]int, 2*degree-1),
		records: make([]*Record, 2*degree-1),
		leaf:    leaf,
		degree:  degree,
	}
	if !leaf {
		n.children = make([]*node, 2*degree)
	}
	return n
}

func (n *node) maxKeys() int {
	return 2*n.degree - 1
}

func (n *node) isFull() bool {
	return n.numKeys == n.maxKeys()
}

/*
If a record with key k is found in node n, return its index i.
Else, return the index j where the key would have resided if it was present in the node.
This is the lower bound of the key, which is also the index of the child to descend into.
*/
func (n *node) search(key int) (int, bool) {
	low, high := 0, n.numKeys
	for low < high {
		mid := (low + high) / 2
		switch k := n.keys[mid]; {
		case key > k:
			low = mid + 1
		case key < k:
			high = mid
		default:
			return mid, true
		}
	}
	return low, false
}

func (n *node) get(key int) *Record {
	pos, found := n.search(key)
	if found {
		return n.records[pos]
	}
	if n.leaf {
		return nil
	}
	return n.children[pos].get(key)
}

// insertRecordAt opens a slot at pos by shifting the tail right.
func (n *node) insertRecordAt(pos int, r *Record) {
	invariant(n.numKeys < n.maxKeys(), "insert into full node with %d keys", n.numKeys)
	if pos < n.numKeys {
		copy(n.keys[pos+1:n.numKeys+1], n.keys[pos:n.numKeys])
		copy(n.records[pos+1:n.numKeys+1], n.records[pos:n.numKeys])
	}
	n.keys[pos] = r.key
	n.records[pos] = r
	n.numKeys++
}

// removeRecordAt closes the slot at pos by shifting the tail left. Children are left alone.
func (n *node) removeRecordAt(pos int) *Record {
	invariant(pos < n.numKeys, "remove at %d from node with %d keys", pos, n.numKeys)
	removed := n.records[pos]
	last := n.numKeys - 1
	copy(n.keys[pos:last], n.keys[pos+1:last+1])
	copy(n.records[pos:last], n.records[pos+1:last+1])
	n.keys[last] = 0
	n.records[last] = nil
	n.numKeys--
	return removed
}

/*
splitChild splits the full child at index i: the new sibling takes the upper t-1 records
(and upper t children), the child keeps the lower t-1, and the median moves up into n at i.
Called on the way down, before the record that triggered the descent is placed.
*/
func (n *node) splitChild(i int) {
	t := n.degree
	child := n.children[i]
	invariant(child.isFull(), "split of child %d holding %d keys", i, child.numKeys)
	invariant(!n.isFull(), "split into full parent")

	sibling := newNode(t, child.leaf)
	copy(sibling.keys, child.keys[t:])
	copy(sibling.records, child.records[t:])
	sibling.numKeys = t - 1
	if !child.leaf {
		copy(sibling.children, child.children[t:])
		clear(child.children[t:])
	}

	median := child.records[t-1]
	clear(child.keys[t-1:])
	clear(child.records[t-1:])
	child.numKeys = t - 1

	copy(n.children[i+2:n.numKeys+2], n.children[i+1:n.numKeys+1])
	n.children[i+1] = sibling
	n.insertRecordAt(i, median)
}

/*
insertNonFull places r in the subtree rooted at n, which must have room for it.
Returns true if a new record was added, false if an existing record with the same key
was replaced.
*/
func (n *node) insertNonFull(r *Record) bool {
	invariant(!n.isFull(), "insertNonFull on full node")
	pos, found := n.search(r.key)

	if found {
		n.records[pos] = r
		return false
	}

	if n.leaf {
		n.insertRecordAt(pos, r)
		return true
	}

	// The child on the path is full, so split it and pick a side against the promoted median.
	if n.children[pos].isFull() {
		n.splitChild(pos)
		switch k := n.keys[pos]; {
		case r.key > k:
			pos++
		case r.key == k:
			n.records[pos] = r
			return false
		}
	}

	return n.children[pos].insertNonFull(r)
}

/*
delete removes key from the subtree rooted at n and returns the removed record, or nil.
Every child is topped up to at least t keys before we descend into it, so removing one key
further down can never leave it below t-1.
*/
func (n *node) delete(key int) *Record {
	idx, found := n.search(key)

	if found {
		if n.leaf {
			return n.removeFromLeaf(idx)
		}
		return n.removeFromNonLeaf(idx)
	}

	if n.leaf {
		return nil
	}

	last := idx == n.numKeys
	if n.children[idx].numKeys < n.degree {
		n.fill(idx)
	}

	// the last child was merged into its left sibling
	if last && idx > n.numKeys {
		return n.children[idx-1].delete(key)
	}
	return n.children[idx].delete(key)
}

func (n *node) removeFromLeaf(idx int) *Record {
	return n.removeRecordAt(idx)
}

func (n *node) removeFromNonLeaf(idx int) *Record {
	key, removed := n.keys[idx], n.records[idx]
	left, right := n.children[idx], n.children[idx+1]

	switch {
	case left.numKeys >= n.degree:
		pred := left.max()
		n.keys[idx], n.records[idx] = pred.key, pred
		left.delete(pred.key)
	case right.numKeys >= n.degree:
		succ := right.min()
		n.keys[idx], n.records[idx] = succ.key, succ
		right.delete(succ.key)
	default:
		n.merge(idx)
		left.delete(key)
	}
	return removed
}

// max returns the record with the largest key in the subtree.
func (n *node) max() *Record {
	cur := n
	for !cur.leaf {
		cur = cur.children[cur.numKeys]
	}
	return cur.records[cur.numKeys-1]
}

// min returns the record with the smallest key in the subtree.
func (n *node) min() *Record {
	cur := n
	for !cur.leaf {
		cur = cur.children[0]
	}
	return cur.records[0]
}

// fill brings children[idx] up to at least t keys.
func (n *node) fill(idx int) {
	switch {
	case idx != 0 && n.children[idx-1].numKeys >= n.degree:
		n.borrowFromPrev(idx)
	case idx != n.numKeys && n.children[idx+1].numKeys >= n.degree:
		n.borrowFromNext(idx)
	case idx != n.numKeys:
		n.merge(idx)
	default:
		n.merge(idx - 1)
	}
}

// borrowFromPrev rotates the last record of children[idx-1] through separator idx-1
// into the front of children[idx].
func (n *node) borrowFromPrev(idx int) {
	child, sibling := n.children[idx], n.children[idx-1]
	invariant(child.numKeys < child.maxKeys(), "borrow into full child %d", idx)

	copy(child.keys[1:child.numKeys+1], child.keys[:child.numKeys])
	copy(child.records[1:child.numKeys+1], child.records[:child.numKeys])
	child.keys[0], child.records[0] = n.keys[idx-1], n.records[idx-1]

	if !child.leaf {
		copy(child.children[1:child.numKeys+2], child.children[:child.numKeys+1])
		child.children[0] = sibling.children[sibling.numKeys]
		sibling.children[sibling.numKeys] = nil
	}
	child.numKeys++

	moved := sibling.removeRecordAt(sibling.numKeys - 1)
	n.keys[idx-1], n.records[idx-1] = moved.key, moved
}

// borrowFromNext rotates the first record of children[idx+1] through separator idx
// onto the end of children[idx].
func (n *node) borrowFromNext(idx int) {
	child, sibling := n.children[idx], n.children[idx+1]
	invariant(child.numKeys < child.maxKeys(), "borrow into full child %d", idx)

	child.keys[child.numKeys], child.records[child.numKeys] = n.keys[idx], n.records[idx]
	if !child.leaf {
		child.children[child.numKeys+1] = sibling.children[0]
		copy(sibling.children[:sibling.numKeys], sibling.children[1:sibling.numKeys+1])
		sibling.children[sibling.numKeys] = nil
	}
	child.numKeys++

	moved := sibling.removeRecordAt(0)
	n.keys[idx], n.records[idx] = moved.key, moved
}

/*
merge folds separator idx and children[idx+1] into children[idx], then closes the gap
in n. n loses one key and one child.
*/
func (n *node) merge(idx int) {
	child, sibling := n.children[idx], n.children[idx+1]
	invariant(child.numKeys+sibling.numKeys+1 <= child.maxKeys(),
		"merge of %d and %d keys overflows node", child.numKeys, sibling.numKeys)

	at := child.numKeys
	child.keys[at], child.records[at] = n.keys[idx], n.records[idx]
	copy(child.keys[at+1:], sibling.keys[:sibling.numKeys])
	copy(child.records[at+1:], sibling.records[:sibling.numKeys])
	if !child.leaf {
		copy(child.children[at+1:], sibling.children[:sibling.numKeys+1])
	}
	child.numKeys += sibling.numKeys + 1

	copy(n.children[idx+1:n.numKeys], n.children[idx+2:n.numKeys+1])
	n.children[n.numKeys] = nil
	n.removeRecordAt(idx)
}

// collect appends the subtree's records to dst in ascending key order.
func (n *node) collect(dst []*Record) []*Record {
	for i := 0; i < n.numKeys; i++ {
		if !n.leaf {
			dst = n.children[i].collect(dst)
		}
		dst = append(dst, n.records[i])
	}
	if !n.leaf {
		dst = n.children[n.numKeys].collect(dst)
	}
	return dst
}

// ascend visits records in ascending order until fn returns false.
func (n *node) ascend(fn func(*Record) bool) bool {
	for i := 0; i < n.numKeys; i++ {
		if !n.leaf && !n.children[i].ascend(fn) {
			return false
		}
		if !fn(n.records[i]) {
			return false
		}
	}
	if !n.leaf {
		return n.children[n.numKeys].ascend(fn)
	}
	return true
}

/*
verify checks the subtree rooted at n: key counts, ordering inside the node and against
the exclusive separators lo and hi (nil when unbounded), child links, and record/key agreement. It returns the number of
records in the subtree and the depth of its leaves.
*/
func (n *node) verify(isRoot bool, lo, hi *int) (records int, depth int, err error) {
	if n.degree < MinDegree || len(n.keys) != n.maxKeys() || len(n.records) != n.maxKeys() {
		return 0, 0, errors.Wrapf(ErrInvariantViolation, "node arrays sized %d/%d for degree %d",
			len(n.keys), len(n.records), n.degree)
	}
	minKeys := n.degree - 1
	if isRoot {
		minKeys = 1
	}
	if n.numKeys < minKeys || n.numKeys > n.maxKeys() {
		return 0, 0, errors.Wrapf(ErrInvariantViolation, "node holds %d keys, want [%d, %d]",
			n.numKeys, minKeys, n.maxKeys())
	}

	for i := 0; i < n.numKeys; i++ {
		k := n.keys[i]
		if n.records[i] == nil || n.records[i].key != k {
			return 0, 0, errors.Wrapf(ErrInvariantViolation, "slot %d: record does not match key %d", i, k)
		}
		if i > 0 && n.keys[i-1] >= k {
			return 0, 0, errors.Wrapf(ErrInvariantViolation, "keys %d, %d not strictly ascending", n.keys[i-1], k)
		}
		if lo != nil && k <= *lo || hi != nil && k >= *hi {
			return 0, 0, errors.Wrapf(ErrInvariantViolation, "key %d outside separator range", k)
		}
	}

	if n.leaf {
		if n.children != nil {
			return 0, 0, errors.Wrapf(ErrInvariantViolation, "leaf with child array")
		}
		return n.numKeys, 1, nil
	}

	if len(n.children) != 2*n.degree {
		return 0, 0, errors.Wrapf(ErrInvariantViolation, "child array sized %d for degree %d", len(n.children), n.degree)
	}
	for i, c := range n.children {
		if live := i <= n.numKeys; live != (c != nil) {
			return 0, 0, errors.Wrapf(ErrInvariantViolation, "child slot %d set=%t with %d keys", i, c != nil, n.numKeys)
		}
	}

	records = n.numKeys
	for i := 0; i <= n.numKeys; i++ {
		childLo, childHi := lo, hi
		if i > 0 {
			childLo = &n.keys[i-1]
		}
		if i < n.numKeys {
			childHi = &n.keys[i]
		}
		count, d, err := n.children[i].verify(false, childLo, childHi)
		if err != nil {
			return 0, 0, err
		}
		if i > 0 && d != depth {
			return 0, 0, errors.Wrapf(ErrInvariantViolation, "leaves at depths %d and %d", depth, d)
		}
		depth = d
		records += count
	}
	return records, depth + 1, nil
}
