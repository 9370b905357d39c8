package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/nspcc-dev/assetstate/pkg/core/storage/dbconfig"
)

// BadgerDBStore is the official storage implementation for storing and retrieving
// asset state using BadgerDB.
type BadgerDBStore struct {
	db *badger.DB
}

// NewBadgerDBStore initializes a BadgerDBStore with the given configuration.
// Directory is ignored for in-memory databases.
func NewBadgerDBStore(cfg dbconfig.BadgerDBOptions) (*BadgerDBStore, error) {
	dir := cfg.Dir
	if cfg.InMemory {
		dir = ""
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithInMemory(cfg.InMemory)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB instance: %w", err)
	}

	return &BadgerDBStore{
		db: db,
	}, nil
}

// Get implements the Store interface.
func (b *BadgerDBStore) Get(key []byte) (v []byte, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		err = ErrKeyNotFound
	}
	return v, err
}

// PutChangeSet implements the Store interface. The whole change set is
// applied in a single transaction, so it's subject to badger's transaction
// size limit.
func (b *BadgerDBStore) PutChangeSet(puts map[string][]byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for k, v := range puts {
			var err error
			if v != nil {
				err = txn.Set([]byte(k), v)
			} else {
				err = txn.Delete([]byte(k))
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Seek implements the Store interface.
func (b *BadgerDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	err := b.db.View(func(txn *badger.Txn) error {
		return badgerSeek(txn, rng, func(item *badger.Item, k []byte) (bool, error) {
			v, err := item.ValueCopy(nil)
			if err != nil {
				return false, err
			}
			return f(k, v), nil
		})
	})
	if err != nil {
		panic(err)
	}
}

// SeekGC implements the Store interface.
func (b *BadgerDBStore) SeekGC(rng SeekRange, keep func(k, v []byte) bool) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var toDelete [][]byte
		err := badgerSeek(txn, rng, func(item *badger.Item, k []byte) (bool, error) {
			v, err := item.ValueCopy(nil)
			if err != nil {
				return false, err
			}
			if !keep(k, v) {
				toDelete = append(toDelete, item.KeyCopy(nil))
			}
			return true, nil
		})
		if err != nil {
			return err
		}
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func badgerSeek(txn *badger.Txn, rng SeekRange, f func(item *badger.Item, k []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = rng.Prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	start := make([]byte, len(rng.Prefix)+len(rng.Start))
	copy(start, rng.Prefix)
	copy(start[len(rng.Prefix):], rng.Start)
	for it.Seek(start); it.ValidForPrefix(rng.Prefix); it.Next() {
		item := it.Item()
		cont, err := f(item, item.Key())
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// Close releases all db resources.
func (b *BadgerDBStore) Close() error {
	return b.db.Close()
}
