package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/nspcc-dev/assetstate/pkg/core/storage/dbconfig"
)

// PebbleStore is a Store backed by Pebble.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) Pebble database at the given path or an
// in-memory one if InMemory is set.
func NewPebbleStore(cfg dbconfig.PebbleOptions) (*PebbleStore, error) {
	opts := &pebble.Options{ReadOnly: cfg.ReadOnly}
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
	} else {
		if cfg.ReadOnly {
			opts.ErrorIfNotExists = true
		} else if err := os.MkdirAll(cfg.DataDirectoryPath, os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create dir for Pebble: %w", err)
		}
	}
	db, err := pebble.Open(cfg.DataDirectoryPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open Pebble instance: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Get implements the Store interface.
func (s *PebbleStore) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	res := bytes.Clone(value)
	if res == nil {
		res = []byte{}
	}
	return res, closer.Close()
}

// PutChangeSet implements the Store interface.
func (s *PebbleStore) PutChangeSet(puts map[string][]byte) error {
	b := s.db.NewBatch()
	defer b.Close()
	for k, v := range puts {
		var err error
		if v != nil {
			err = b.Set([]byte(k), v, nil)
		} else {
			err = b.Delete([]byte(k), nil)
		}
		if err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

// Seek implements the Store interface.
func (s *PebbleStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	err := s.seek(rng, f)
	if err != nil {
		panic(err)
	}
}

func (s *PebbleStore) seek(rng SeekRange, f func(k, v []byte) bool) error {
	r := seekRangeToPrefixes(rng)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: r.Start,
		UpperBound: r.Limit,
	})
	if err != nil {
		return err
	}
	for ok := iter.First(); ok; ok = iter.Next() {
		if !f(iter.Key(), iter.Value()) {
			break
		}
	}
	err = iter.Error()
	closeErr := iter.Close()
	if err == nil {
		err = closeErr
	}
	return err
}

// SeekGC implements the Store interface.
func (s *PebbleStore) SeekGC(rng SeekRange, keep func(k, v []byte) bool) error {
	b := s.db.NewBatch()
	defer b.Close()
	var delErr error
	err := s.seek(rng, func(k, v []byte) bool {
		if !keep(k, v) {
			delErr = b.Delete(bytes.Clone(k), nil)
			return delErr == nil
		}
		return true
	})
	if err == nil {
		err = delErr
	}
	if err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Close implements the Store interface.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
