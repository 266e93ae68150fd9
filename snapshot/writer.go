package snapshot

import (
	"bufio"
	"io"

	"recstore/encoder"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

// Writer serialises a State: magic first, then compressed entries.
type Writer struct {
	bw      *bufio.Writer
	sw      *snappy.Writer
	encoder *encoder.Encoder
	records int
}

func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	return &Writer{
		bw:      bw,
		sw:      snappy.NewBufferedWriter(bw),
		encoder: encoder.NewEncoder(),
	}
}

func (w *Writer) writeHeader() error {
	_, err := w.bw.WriteString(magic)
	return err
}

func (w *Writer) write(kind encoder.Kind, key int64, val []byte) error {
	if _, err := w.sw.Write(w.encoder.Encode(kind, key, val)); err != nil {
		return errors.Wrapf(err, "write %s entry", kind)
	}
	if kind == encoder.KindRecord {
		w.records++
	}
	return nil
}

// WriteState writes s in full, including the end marker. It must be called once.
func (w *Writer) WriteState(s *State) error {
	if err := w.writeHeader(); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := w.write(encoder.KindDegree, int64(s.Degree), nil); err != nil {
		return err
	}
	if err := w.write(encoder.KindNextKey, int64(s.NextKey), nil); err != nil {
		return err
	}
	for _, k := range s.FreeKeys {
		if err := w.write(encoder.KindFreeKey, int64(k), nil); err != nil {
			return err
		}
	}
	for _, r := range s.Records {
		if err := w.write(encoder.KindRecord, int64(r.Key), []byte(r.Value)); err != nil {
			return err
		}
	}
	return w.write(encoder.KindEnd, int64(w.records), nil)
}

// Close flushes the compressed stream and the buffer. The underlying writer is not closed.
func (w *Writer) Close() error {
	if err := w.sw.Close(); err != nil {
		return errors.Wrap(err, "flush snappy stream")
	}
	return w.bw.Flush()
}
