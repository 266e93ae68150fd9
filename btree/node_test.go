package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafOf(degree int, keys ...int) *node {
	n := newNode(degree, true)
	for i, k := range keys {
		n.insertRecordAt(i, NewRecord(k, fmt.Sprint("v", k)))
	}
	return n
}

func internalOf(degree int, keys []int, children ...*node) *node {
	n := newNode(degree, false)
	for i, k := range keys {
		n.insertRecordAt(i, NewRecord(k, fmt.Sprint("v", k)))
	}
	copy(n.children, children)
	return n
}

func liveKeys(n *node) []int {
	return append([]int(nil), n.keys[:n.numKeys]...)
}

func TestNodeSearch(t *testing.T) {
	n := leafOf(3, 10, 20, 30)

	tests := []struct {
		key   int
		pos   int
		found bool
	}{
		{5, 0, false},
		{10, 0, true},
		{15, 1, false},
		{20, 1, true},
		{30, 2, true},
		{35, 3, false},
	}
	for _, tt := range tests {
		pos, found := n.search(tt.key)
		assert.Equal(t, tt.pos, pos, "key %d", tt.key)
		assert.Equal(t, tt.found, found, "key %d", tt.key)
	}
}

func TestNodeInsertAndRemoveRecordAt(t *testing.T) {
	n := leafOf(3, 10, 30)
	n.insertRecordAt(1, NewRecord(20, "v20"))
	n.insertRecordAt(0, NewRecord(5, "v5"))
	require.Equal(t, []int{5, 10, 20, 30}, liveKeys(n))

	removed := n.removeRecordAt(1)
	assert.Equal(t, 10, removed.Key())
	assert.Equal(t, []int{5, 20, 30}, liveKeys(n))
	assert.Nil(t, n.records[3], "vacated slot should be cleared")
}

func TestNodeInsertIntoFullPanics(t *testing.T) {
	n := leafOf(2, 1, 2, 3)
	assert.Panics(t, func() { n.insertRecordAt(3, NewRecord(4, "v4")) })
	assert.Panics(t, func() { n.insertNonFull(NewRecord(4, "v4")) })
}

func TestSplitChildLeaf(t *testing.T) {
	parent := internalOf(3, []int{100}, leafOf(3, 1, 2, 3, 4, 5), leafOf(3, 101, 102))
	parent.splitChild(0)

	assert.Equal(t, []int{3, 100}, liveKeys(parent))
	assert.Equal(t, []int{1, 2}, liveKeys(parent.children[0]))
	assert.Equal(t, []int{4, 5}, liveKeys(parent.children[1]))
	assert.Equal(t, []int{101, 102}, liveKeys(parent.children[2]))
	assert.True(t, parent.children[1].leaf)
	assert.Nil(t, parent.children[0].records[2])
}

func TestSplitChildInternal(t *testing.T) {
	kids := []*node{
		leafOf(2, 1), leafOf(2, 3), leafOf(2, 5), leafOf(2, 7),
	}
	full := internalOf(2, []int{2, 4, 6}, kids...)
	parent := internalOf(2, nil, full)
	parent.splitChild(0)

	require.Equal(t, []int{4}, liveKeys(parent))
	left, right := parent.children[0], parent.children[1]
	assert.Equal(t, []int{2}, liveKeys(left))
	assert.Equal(t, []int{6}, liveKeys(right))
	assert.Same(t, kids[0], left.children[0])
	assert.Same(t, kids[1], left.children[1])
	assert.Nil(t, left.children[2])
	assert.Same(t, kids[2], right.children[0])
	assert.Same(t, kids[3], right.children[1])

	_, _, err := parent.verify(true, nil, nil)
	assert.NoError(t, err)
}

func TestSplitChildOfNonFullPanics(t *testing.T) {
	parent := internalOf(2, []int{10}, leafOf(2, 1, 2), leafOf(2, 11))
	assert.Panics(t, func() { parent.splitChild(0) })
}

func TestBorrowFromPrev(t *testing.T) {
	parent := internalOf(2, []int{10}, leafOf(2, 1, 5, 7), leafOf(2, 12))
	parent.borrowFromPrev(1)

	assert.Equal(t, []int{7}, liveKeys(parent))
	assert.Equal(t, []int{1, 5}, liveKeys(parent.children[0]))
	assert.Equal(t, []int{10, 12}, liveKeys(parent.children[1]))
}

func TestBorrowFromNextInternal(t *testing.T) {
	left := internalOf(2, []int{5}, leafOf(2, 1), leafOf(2, 6))
	right := internalOf(2, []int{20, 30}, leafOf(2, 15), leafOf(2, 25), leafOf(2, 35))
	parent := internalOf(2, []int{10}, left, right)
	moved := right.children[0]

	parent.borrowFromNext(0)

	assert.Equal(t, []int{20}, liveKeys(parent))
	assert.Equal(t, []int{5, 10}, liveKeys(left))
	assert.Same(t, moved, left.children[2])
	assert.Equal(t, []int{30}, liveKeys(right))
	assert.Nil(t, right.children[2])

	_, _, err := parent.verify(true, nil, nil)
	assert.NoError(t, err)
}

func TestMerge(t *testing.T) {
	parent := internalOf(2, []int{10, 20}, leafOf(2, 5), leafOf(2, 15), leafOf(2, 25))
	parent.merge(0)

	assert.Equal(t, []int{20}, liveKeys(parent))
	assert.Equal(t, []int{5, 10, 15}, liveKeys(parent.children[0]))
	assert.Equal(t, []int{25}, liveKeys(parent.children[1]))
	assert.Nil(t, parent.children[2])
}

func TestFillMergesLastChildLeft(t *testing.T) {
	parent := internalOf(2, []int{10, 20}, leafOf(2, 5, 6), leafOf(2, 15), leafOf(2, 25))
	parent.fill(2)

	assert.Equal(t, []int{10}, liveKeys(parent))
	assert.Equal(t, []int{15, 20, 25}, liveKeys(parent.children[1]))
}

func TestFillPrefersBorrowing(t *testing.T) {
	parent := internalOf(2, []int{10, 20}, leafOf(2, 5), leafOf(2, 15), leafOf(2, 25, 26))
	parent.fill(1)

	assert.Equal(t, []int{10, 25}, liveKeys(parent))
	assert.Equal(t, []int{15, 20}, liveKeys(parent.children[1]))
	assert.Equal(t, []int{26}, liveKeys(parent.children[2]))
}

func TestCollectInOrder(t *testing.T) {
	root := internalOf(2, []int{10, 20}, leafOf(2, 1, 2), leafOf(2, 11, 12), leafOf(2, 21))

	var keys []int
	for _, r := range root.collect(nil) {
		keys = append(keys, r.Key())
	}
	assert.Equal(t, []int{1, 2, 10, 11, 12, 20, 21}, keys)
}

func TestVerifyCatchesBrokenNodes(t *testing.T) {
	t.Run("unsorted", func(t *testing.T) {
		n := leafOf(2, 1, 2)
		n.keys[0], n.keys[1] = 2, 1
		n.records[0], n.records[1] = n.records[1], n.records[0]
		_, _, err := n.verify(true, nil, nil)
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})
	t.Run("underfull", func(t *testing.T) {
		root := internalOf(3, []int{10}, leafOf(3, 1), leafOf(3, 11, 12))
		_, _, err := root.verify(true, nil, nil)
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})
	t.Run("separator", func(t *testing.T) {
		root := internalOf(2, []int{10}, leafOf(2, 1, 12), leafOf(2, 11))
		_, _, err := root.verify(true, nil, nil)
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})
	t.Run("uneven leaves", func(t *testing.T) {
		deep := internalOf(2, []int{20}, leafOf(2, 15), leafOf(2, 25))
		root := internalOf(2, []int{10}, leafOf(2, 1), deep)
		_, _, err := root.verify(true, nil, nil)
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})
}
