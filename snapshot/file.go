package snapshot

import (
	"fmt"
	"io/fs"
	"math/rand"
	"os"

	"github.com/cockroachdb/errors"
)

// Save writes s to path atomically: the snapshot goes to a fresh temporary file,
// is fsynced, and then renamed over path.
func Save(path string, s *State) (err error) {
	tmp := fmt.Sprintf("%s.tmp.%d", path, rand.Int())
	// os.O_EXCL makes the open fail if the temporary name is already taken
	fp, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrap(err, "create snapshot")
	}
	defer func() {
		if err != nil {
			fp.Close()
			os.Remove(tmp)
		}
	}()

	w := NewWriter(fp)
	if err = w.WriteState(s); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	if err = fp.Sync(); err != nil {
		return errors.Wrap(err, "sync snapshot")
	}
	if err = fp.Close(); err != nil {
		return errors.Wrap(err, "close snapshot")
	}
	if err = os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "install snapshot")
	}
	return nil
}

// Load reads the snapshot at path. A missing or empty file yields ErrNoSnapshot.
func Load(path string) (*State, error) {
	fp, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrNoSnapshot, "%s", path)
		}
		return nil, errors.Wrap(err, "open snapshot")
	}
	defer fp.Close()

	fi, err := fp.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat snapshot")
	}
	if fi.Size() == 0 {
		return nil, errors.Wrapf(ErrNoSnapshot, "%s is empty", path)
	}

	s, err := NewReader(fp).ReadState()
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return s, nil
}
