package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"recstore/encoder"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *State {
	return &State{
		Degree:   3,
		NextKey:  42,
		FreeKeys: []int{4, 9},
		Records: []Record{
			{Key: 1, Value: "alpha"},
			{Key: 2, Value: ""},
			{Key: 7, Value: "with spaces and ünïcode"},
		},
	}
}

func encode(t *testing.T, s *State) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteState(s))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestWriterReader(t *testing.T) {
	data := encode(t, sampleState())
	require.Equal(t, magic, string(data[:len(magic)]))

	got, err := NewReader(bytes.NewReader(data)).ReadState()
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)
}

func TestEmptyState(t *testing.T) {
	got, err := NewReader(bytes.NewReader(encode(t, &State{Degree: 2, NextKey: 1}))).ReadState()
	require.NoError(t, err)
	assert.Equal(t, 2, got.Degree)
	assert.Equal(t, 1, got.NextKey)
	assert.Empty(t, got.Records)
	assert.Empty(t, got.FreeKeys)
}

func TestReadStateCorrupt(t *testing.T) {
	data := encode(t, sampleState())

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte("NOTASNAP"), data[len(magic):]...)
		_, err := NewReader(bytes.NewReader(bad)).ReadState()
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("short header", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(data[:3])).ReadState()
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("truncated", func(t *testing.T) {
		for _, cut := range []int{len(magic), len(magic) + 5, len(data) - 1} {
			_, err := NewReader(bytes.NewReader(data[:cut])).ReadState()
			assert.ErrorIs(t, err, ErrCorrupt, "cut at %d", cut)
		}
	})
	t.Run("garbage body", func(t *testing.T) {
		bad := append([]byte(magic), []byte("this is not a snappy stream")...)
		_, err := NewReader(bytes.NewReader(bad)).ReadState()
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("varint overflow", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString(magic)
		sw := snappy.NewBufferedWriter(&buf)
		_, err := sw.Write(append([]byte{byte(encoder.KindDegree)}, bytes.Repeat([]byte{0xff}, 11)...))
		require.NoError(t, err)
		require.NoError(t, sw.Close())

		_, err = NewReader(&buf).ReadState()
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("count mismatch", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.writeHeader())
		require.NoError(t, w.write(encoder.KindRecord, 1, []byte("x")))
		require.NoError(t, w.write(encoder.KindEnd, 5, nil))
		require.NoError(t, w.Close())

		_, err := NewReader(&buf).ReadState()
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.snap")
	require.NoError(t, Save(path, sampleState()))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	// a second save replaces the file and leaves no temporary files behind
	next := sampleState()
	next.Records = next.Records[:1]
	require.NoError(t, Save(path, next))
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadMissingOrEmpty(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.snap"))
	assert.ErrorIs(t, err, ErrNoSnapshot)

	empty := filepath.Join(dir, "empty.snap")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = Load(empty)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSaveIntoMissingDirectory(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "nope", "data.snap"), sampleState())
	assert.Error(t, err)
}
