// Package db is a record store: a B-tree index of integer keys to text values, a
// key allocator that recycles deleted keys, and a snapshot file rewritten after
// every change.
//
// A DB is not safe for concurrent use.
package db

import (
	"os"
	"path/filepath"

	"recstore/btree"
	"recstore/keyalloc"
	"recstore/snapshot"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultDegree is the minimum degree used when Options.Degree is zero.
	DefaultDegree = 50
	// SnapshotFile is the name of the snapshot inside Options.Dir.
	SnapshotFile  = "data.snap"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmptyValue = errors.New("record value cannot be empty")
	ErrClosed     = errors.New("db is closed")
)

type Options struct {
	// Dir holds the snapshot file. It is created if missing.
	Dir    string
	// Degree is the minimum degree of the index. Zero means DefaultDegree.
	Degree int
	// Logger defaults to logrus.StandardLogger().
	Logger *logrus.Logger
}

type DB struct {
	tree *btree.Tree
	keys *keyalloc.Allocator
	path string
	log  *logrus.Entry
}

// Open loads the snapshot in opts.Dir, or starts an empty store if there is none.
func Open(opts Options) (*DB, error) {
	if opts.Degree == 0 {
		opts.Degree = DefaultDegree
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	tree, err := btree.New(opts.Degree)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", opts.Dir)
	}

	d := &DB{
		tree: tree,
		keys: keyalloc.New(),
		path: filepath.Join(opts.Dir, SnapshotFile),
		log:  opts.Logger.WithField("snapshot", filepath.Join(opts.Dir, SnapshotFile)),
	}

	state, err := snapshot.Load(d.path)
	switch {
	case errors.Is(err, snapshot.ErrNoSnapshot):
		d.log.Info("no snapshot found, starting empty")
		return d, nil
	case err != nil:
		return nil, err
	}
	d.restore(state)
	return d, nil
}

func (d *DB) restore(s *snapshot.State) {
	if s.Degree != d.tree.Degree() {
		d.log.WithFields(logrus.Fields{
			"saved": s.Degree, "configured": d.tree.Degree(),
		}).Warn("snapshot written with a different degree, rebuilding")
	}
	for _, r := range s.Records {
		d.tree.Insert(btree.NewRecord(r.Key, r.Value))
	}
	d.keys = keyalloc.Restore(s.NextKey, s.FreeKeys)
	// a stored key must never come back out of the allocator
	d.tree.Ascend(func(r *btree.Record) bool {
		d.keys.Reserve(r.Key())
		return true
	})
	if next, _ := d.keys.State(); next != s.NextKey || d.keys.Len() != len(s.FreeKeys) {
		d.log.WithFields(logrus.Fields{
			"saved_next": s.NextKey, "next": next, "saved_free": len(s.FreeKeys), "free": d.keys.Len(),
		}).Warn("snapshot key allocator disagrees with its records, adjusted")
	}
	d.log.WithFields(logrus.Fields{
		"records": d.tree.Len(), "height": d.tree.Height(), "free_keys": d.keys.Len(),
	}).Info("loaded snapshot")
}

func (d *DB) state() *snapshot.State {
	next, free := d.keys.State()
	s := &snapshot.State{
		Degree:   d.tree.Degree(),
		NextKey:  next,
		FreeKeys: free,
		Records:  make([]snapshot.Record, 0, d.tree.Len()),
	}
	d.tree.Ascend(func(r *btree.Record) bool {
		s.Records = append(s.Records, snapshot.Record{Key: r.Key(), Value: r.Value()})
		return true
	})
	return s
}

// Save writes the whole store to its snapshot file.
func (d *DB) Save() error {
	if d.tree == nil {
		return ErrClosed
	}
	if err := snapshot.Save(d.path, d.state()); err != nil {
		d.log.WithError(err).Error("failed to save snapshot")
		return err
	}
	d.log.WithField("records", d.tree.Len()).Debug("saved snapshot")
	return nil
}

// commit saves the store. If saving fails, undo reverts the tree and the
// allocator goes back to the state it had when commit's caller took next and free.
func (d *DB) commit(next int, free []int, undo func()) error {
	if err := d.Save(); err != nil {
		undo()
		d.keys = keyalloc.Restore(next, free)
		return err
	}
	return nil
}

// Add stores value under a newly allocated key and returns the new record.
// If the snapshot cannot be written the store is left unchanged.
func (d *DB) Add(value string) (*btree.Record, error) {
	records, err := d.AddAll([]string{value})
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// AddAll stores every value under its own new key and writes the snapshot once.
// Either all values are stored or, on error, none are.
func (d *DB) AddAll(values []string) ([]*btree.Record, error) {
	if d.tree == nil {
		return nil, ErrClosed
	}
	for _, v := range values {
		if v == "" {
			return nil, ErrEmptyValue
		}
	}
	next, free := d.keys.State()
	records := make([]*btree.Record, 0, len(values))
	for _, v := range values {
		r := btree.NewRecord(d.keys.Next(), v)
		d.tree.Insert(r)
		records = append(records, r)
	}
	err := d.commit(next, free, func() {
		for _, r := range records {
			d.tree.Delete(r.Key())
		}
	})
	if err != nil {
		return nil, err
	}
	d.log.WithField("records", len(records)).Debug("added records")
	return records, nil
}

// Put stores value under key, replacing any record already there.
// If the snapshot cannot be written the store is left unchanged.
func (d *DB) Put(key int, value string) error {
	if d.tree == nil {
		return ErrClosed
	}
	if value == "" {
		return ErrEmptyValue
	}
	next, free := d.keys.State()
	old, existed := d.tree.Search(key)
	d.keys.Reserve(key)
	d.tree.Insert(btree.NewRecord(key, value))
	err := d.commit(next, free, func() {
		if existed {
			d.tree.Insert(old)
		} else {
			d.tree.Delete(key)
		}
	})
	if err != nil {
		return err
	}
	d.log.WithFields(logrus.Fields{"key": key, "new": !existed}).Debug("put record")
	return nil
}

// Edit changes the value of an existing record in place.
// If the snapshot cannot be written the old value is put back.
func (d *DB) Edit(key int, value string) error {
	if value == "" {
		return ErrEmptyValue
	}
	r, err := d.Get(key)
	if err != nil {
		return err
	}
	next, free := d.keys.State()
	old := r.Value()
	r.SetValue(value)
	if err := d.commit(next, free, func() { r.SetValue(old) }); err != nil {
		return err
	}
	d.log.WithField("key", key).Debug("edited record")
	return nil
}

func (d *DB) Get(key int) (*btree.Record, error) {
	if d.tree == nil {
		return nil, ErrClosed
	}
	r, ok := d.tree.Search(key)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "key %d", key)
	}
	return r, nil
}

// Delete removes the record under key and hands the key back to the allocator.
// If the snapshot cannot be written the record is put back.
func (d *DB) Delete(key int) error {
	if d.tree == nil {
		return ErrClosed
	}
	r, ok := d.tree.Search(key)
	if !ok {
		return errors.Wrapf(ErrNotFound, "key %d", key)
	}
	next, free := d.keys.State()
	d.tree.Delete(key)
	d.keys.Release(key)
	if err := d.commit(next, free, func() { d.tree.Insert(r) }); err != nil {
		return err
	}
	d.log.WithField("key", key).Debug("deleted record")
	return nil
}

// List returns all records in ascending key order.
func (d *DB) List() []*btree.Record {
	if d.tree == nil {
		return nil
	}
	return d.tree.CollectAll()
}

func (d *DB) Len() int {
	if d.tree == nil {
		return 0
	}
	return d.tree.Len()
}

// Tree exposes the index for read-only use such as visualisation.
func (d *DB) Tree() *btree.Tree {
	return d.tree
}

// Close saves the store one last time. Later calls return ErrClosed.
func (d *DB) Close() error {
	if d.tree == nil {
		return ErrClosed
	}
	err := d.Save()
	d.tree = nil
	return err
}
