package keyalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCountsUp(t *testing.T) {
	a := New()
	assert.Equal(t, 1, a.Next())
	assert.Equal(t, 2, a.Next())
	assert.Equal(t, 3, a.Next())
}

func TestReleasedKeysReusedSmallestFirst(t *testing.T) {
	a := New()
	for i := 0; i < 6; i++ {
		a.Next()
	}
	a.Release(5)
	a.Release(2)
	a.Release(4)
	require.Equal(t, 3, a.Len())

	assert.Equal(t, 2, a.Next())
	assert.Equal(t, 4, a.Next())
	assert.Equal(t, 5, a.Next())
	assert.Equal(t, 7, a.Next())
}

func TestReleaseIgnoresUnknownAndRepeatedKeys(t *testing.T) {
	a := New()
	a.Next()
	a.Next()

	a.Release(0)
	a.Release(10)
	a.Release(1)
	a.Release(1)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, a.Next())
	assert.Equal(t, 3, a.Next())
}

func TestReserve(t *testing.T) {
	a := New()
	a.Reserve(10)
	assert.Equal(t, 11, a.Next())

	a.Release(4)
	a.Release(6)
	a.Reserve(4)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 6, a.Next())
	assert.Equal(t, 12, a.Next())
}

func TestStateRestore(t *testing.T) {
	a := New()
	for i := 0; i < 5; i++ {
		a.Next()
	}
	a.Release(3)
	a.Release(1)

	next, free := a.State()
	assert.Equal(t, 6, next)
	assert.Equal(t, []int{1, 3}, free)

	b := Restore(next, free)
	assert.Equal(t, 1, b.Next())
	assert.Equal(t, 3, b.Next())
	assert.Equal(t, 6, b.Next())
}

func TestRestoreClampsCounter(t *testing.T) {
	a := Restore(0, nil)
	assert.Equal(t, FirstKey, a.Next())
}
