package snapshot

import (
	"bufio"
	"io"

	"recstore/encoder"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

// Reader parses a snapshot written by Writer.
type Reader struct {
	br      *bufio.Reader
	encoder *encoder.Encoder
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		br:      bufio.NewReader(r),
		encoder: encoder.NewEncoder(),
	}
}

// ReadState reads the whole snapshot. Any snapshot that does not end with an end
// marker matching its record count is reported as ErrCorrupt.
func (r *Reader) ReadState() (*State, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r.br, head); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(ErrCorrupt, "short header")
		}
		return nil, errors.Wrap(err, "read header")
	}
	if string(head) != magic {
		return nil, errors.Wrapf(ErrCorrupt, "bad magic %q", head)
	}

	body := bufio.NewReader(snappy.NewReader(r.br))
	s := &State{}
	for {
		e, err := r.encoder.Decode(body)
		switch {
		case err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF):
			return nil, errors.Wrap(ErrCorrupt, "stream ends before end marker")
		case errors.Is(err, encoder.ErrMalformed),
			errors.Is(err, snappy.ErrCorrupt), errors.Is(err, snappy.ErrUnsupported):
			return nil, errors.WithSecondaryError(errors.Wrap(ErrCorrupt, "read entry"), err)
		case err != nil:
			return nil, errors.Wrap(err, "read entry")
		}

		switch e.Kind {
		case encoder.KindDegree:
			s.Degree = int(e.Key)
		case encoder.KindNextKey:
			s.NextKey = int(e.Key)
		case encoder.KindFreeKey:
			s.FreeKeys = append(s.FreeKeys, int(e.Key))
		case encoder.KindRecord:
			s.Records = append(s.Records, Record{Key: int(e.Key), Value: string(e.Val)})
		case encoder.KindEnd:
			if int(e.Key) != len(s.Records) {
				return nil, errors.Wrapf(ErrCorrupt, "end marker counts %d records, read %d", e.Key, len(s.Records))
			}
			return s, nil
		}
	}
}
