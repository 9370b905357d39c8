package assettrie

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/assetstate/internal/random"
	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errWrite = errors.New("write failure")

// faultyStore is a storage.Store failing change sets on demand.
type faultyStore struct {
	*storage.MemoryStore
	failWrites bool
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: storage.NewMemoryStore()}
}

func (f *faultyStore) PutChangeSet(puts map[string][]byte) error {
	if f.failWrites {
		return errWrite
	}
	return f.MemoryStore.PutChangeSet(puts)
}

func testItems(from, to int, round int) []KeyValue {
	res := make([]KeyValue, 0, to-from)
	for i := from; i < to; i++ {
		res = append(res, KeyValue{
			Key:   []byte(fmt.Sprintf("key%03d", i)),
			Value: []byte(fmt.Sprintf("value%d/%d", i, round)),
		})
	}
	return res
}

func keysOf(items []KeyValue) [][]byte {
	res := make([][]byte, 0, len(items))
	for _, kv := range items {
		res = append(res, kv.Key)
	}
	return res
}

func newTestTrie(t *testing.T, st storage.Store, root util.Uint256, opts ...Option) *AssetTrie {
	return New(st, root, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

func TestAssetTrie_Scenarios(t *testing.T) {
	t.Run("insert into empty", func(t *testing.T) {
		tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
		root, err := tr.Insert([]byte("k1"), []byte("v1"))
		require.NoError(t, err)
		require.False(t, root.IsZero())
		require.Equal(t, root, tr.Root())
		require.Equal(t, []State{StateFreshBuild, StateCommitted}, tr.path)

		v, err := tr.Get([]byte("k1"))
		require.NoError(t, err)
		require.Equal(t, []byte("v1"), v)
	})
	t.Run("remove the only key", func(t *testing.T) {
		tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
		_, err := tr.Insert([]byte("k1"), []byte("v1"))
		require.NoError(t, err)
		root, err := tr.Remove([]byte("k1"))
		require.NoError(t, err)
		require.True(t, root.IsZero())
		require.Equal(t, []State{StateIncremental, StateCommitted}, tr.path)

		v, err := tr.Get([]byte("k1"))
		require.NoError(t, err)
		require.Nil(t, v)
	})
	t.Run("batch insert, batch remove", func(t *testing.T) {
		tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
		_, err := tr.BatchInsert([]KeyValue{
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("b"), Value: []byte("2")},
			{Key: []byte("c"), Value: []byte("3")},
		})
		require.NoError(t, err)
		root, err := tr.BatchRemove([][]byte{[]byte("a"), []byte("c")})
		require.NoError(t, err)
		require.False(t, root.IsZero())

		for k, expected := range map[string][]byte{"a": nil, "b": []byte("2"), "c": nil} {
			v, err := tr.Get([]byte(k))
			require.NoError(t, err)
			require.Equal(t, expected, v, k)
		}
	})
	t.Run("old root after delete", func(t *testing.T) {
		st := storage.NewMemoryStore()
		tr := newTestTrie(t, st, util.Uint256{})
		old, err := tr.BatchInsert(testItems(0, 10, 0))
		require.NoError(t, err)
		_, err = tr.Remove([]byte("key003"))
		require.NoError(t, err)

		v, err := tr.Get([]byte("key003"))
		require.NoError(t, err)
		require.Nil(t, v)

		v, err = newTestTrie(t, st, old).Get([]byte("key003"))
		require.NoError(t, err)
		require.Equal(t, []byte("value3/0"), v)
	})
}

func TestAssetTrie_RoundTrip(t *testing.T) {
	tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
	written := make(map[string][]byte)
	for round := 0; round < 5; round++ {
		var batch []KeyValue
		for i := 0; i < 20; i++ {
			kv := KeyValue{Key: random.Bytes(random.Int(1, 40)), Value: random.Bytes(random.Int(1, 100))}
			batch = append(batch, kv)
			written[string(kv.Key)] = kv.Value
		}
		_, err := tr.BatchInsert(batch)
		require.NoError(t, err)
		for _, kv := range batch {
			v, err := tr.Get(kv.Key)
			require.NoError(t, err)
			require.Equal(t, written[string(kv.Key)], v)
		}
	}
	entries, err := tr.Entries()
	require.NoError(t, err)
	require.Equal(t, len(written), len(entries))

	var removed [][]byte
	for k := range written {
		removed = append(removed, []byte(k))
	}
	root, err := tr.BatchRemove(removed)
	require.NoError(t, err)
	require.True(t, root.IsZero())
	for _, k := range removed {
		ok, err := tr.Contains(k)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestAssetTrie_DeletionCompleteness(t *testing.T) {
	items := testItems(0, 30, 0)
	tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
	_, err := tr.BatchInsert(items)
	require.NoError(t, err)

	for i, kv := range items {
		root, err := tr.Remove(kv.Key)
		require.NoError(t, err)
		require.Equal(t, i == len(items)-1, root.IsZero(), i)
		v, err := tr.Get(kv.Key)
		require.NoError(t, err)
		require.Nil(t, v)
	}
	// Missing keys are fine.
	root, err := tr.Remove([]byte("key000"))
	require.NoError(t, err)
	require.True(t, root.IsZero())
	require.Equal(t, []State{StateCommitted}, tr.path)
}

func TestAssetTrie_ContentAddressing(t *testing.T) {
	items := testItems(0, 20, 0)
	reversed := make([]KeyValue, len(items))
	for i := range items {
		reversed[len(items)-1-i] = items[i]
	}

	tr1 := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
	r1, err := tr1.BatchInsert(items)
	require.NoError(t, err)
	tr2 := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
	r2, err := tr2.BatchInsert(reversed)
	require.NoError(t, err)
	require.Equal(t, r1, r2)

	// Incremental insertion leads to the same trie.
	tr3 := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
	for _, kv := range items {
		_, err = tr3.Insert(kv.Key, kv.Value)
		require.NoError(t, err)
	}
	require.Equal(t, r1, tr3.Root())

	// Same content again doesn't change anything.
	r4, err := tr1.Insert(items[3].Key, items[3].Value)
	require.NoError(t, err)
	require.Equal(t, r1, r4)
	require.Equal(t, []State{StateIncremental, StateCommitted}, tr1.path)

	// Different configurations give different roots.
	tr5 := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{}, WithConfig(mpt.Keccak256Config))
	r5, err := tr5.BatchInsert(items)
	require.NoError(t, err)
	require.NotEqual(t, r1, r5)
}

func TestAssetTrie_BatchUpdate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
		root, err := tr.BatchUpdate(testItems(0, 3, 0), [][]byte{[]byte("key000"), []byte("missing")})
		require.NoError(t, err)
		require.Equal(t, []State{StateFreshBuild, StateCommitted}, tr.path)
		v, err := tr.Get([]byte("key000"))
		require.NoError(t, err)
		require.Equal(t, []byte("value0/0"), v)
		require.False(t, root.IsZero())
	})
	t.Run("nothing to do", func(t *testing.T) {
		tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
		root, err := tr.BatchUpdate(nil, nil)
		require.NoError(t, err)
		require.True(t, root.IsZero())
		require.Nil(t, tr.path)
	})
	t.Run("deletes before inserts", func(t *testing.T) {
		tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
		_, err := tr.BatchInsert(testItems(0, 5, 0))
		require.NoError(t, err)
		_, err = tr.BatchUpdate(testItems(2, 3, 1), [][]byte{[]byte("key001"), []byte("key002")})
		require.NoError(t, err)

		v, err := tr.Get([]byte("key001"))
		require.NoError(t, err)
		require.Nil(t, v)
		v, err = tr.Get([]byte("key002"))
		require.NoError(t, err)
		require.Equal(t, []byte("value2/1"), v)
	})
	t.Run("empty value deletes", func(t *testing.T) {
		tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
		_, err := tr.BatchInsert(testItems(0, 2, 0))
		require.NoError(t, err)
		_, err = tr.Insert([]byte("key000"), nil)
		require.NoError(t, err)
		ok, err := tr.Contains([]byte("key000"))
		require.NoError(t, err)
		require.False(t, ok)
		root, err := tr.Insert([]byte("key001"), []byte{})
		require.NoError(t, err)
		require.True(t, root.IsZero())
	})
}

func TestAssetTrie_InvalidInput(t *testing.T) {
	tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
	_, err := tr.Insert(nil, []byte{1})
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = tr.Insert(make([]byte, mpt.MaxKeyLength+1), []byte{1})
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = tr.Remove([]byte{})
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = tr.Get(nil)
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = tr.Insert([]byte{1}, make([]byte, mpt.MaxValueLength+1))
	require.ErrorIs(t, err, mpt.ErrValueTooBig)

	// A bad item fails the whole batch.
	_, err = tr.BatchInsert([]KeyValue{{Key: []byte{1}, Value: []byte{1}}, {Value: []byte{2}}})
	require.ErrorIs(t, err, ErrInvalidKey)
	require.True(t, tr.Root().IsZero())
}

func TestAssetTrie_GetEmptyRoot(t *testing.T) {
	// The storage is never touched for an empty trie.
	tr := New(nil, util.Uint256{})
	v, err := tr.Get([]byte("key"))
	require.NoError(t, err)
	require.Nil(t, v)
	entries, err := tr.Entries()
	require.NoError(t, err)
	require.Empty(t, entries)
	_, err = tr.Remove([]byte("key"))
	require.NoError(t, err)
}

func TestAssetTrie_RootNotFound(t *testing.T) {
	root := random.Uint256()
	tr := newTestTrie(t, storage.NewMemoryStore(), root)
	_, err := tr.Insert([]byte("key"), []byte("value"))
	require.ErrorIs(t, err, ErrRootNotFound)
	require.Equal(t, root, tr.Root())

	_, err = tr.Get([]byte("key"))
	require.ErrorIs(t, err, mpt.ErrNodeNotFound)
}

func TestAssetTrie_StorageFailure(t *testing.T) {
	st := newFaultyStore()
	tr := newTestTrie(t, st, util.Uint256{})

	st.failWrites = true
	_, err := tr.BatchInsert(testItems(0, 5, 0))
	require.ErrorIs(t, err, errWrite)
	require.True(t, tr.Root().IsZero())

	st.failWrites = false
	root, err := tr.BatchInsert(testItems(0, 5, 0))
	require.NoError(t, err)

	st.failWrites = true
	_, err = tr.BatchInsert(testItems(5, 10, 0))
	require.ErrorIs(t, err, errWrite)
	require.Equal(t, root, tr.Root())
	entries, err := tr.Entries()
	require.NoError(t, err)
	require.Equal(t, testItems(0, 5, 0), entries)

	// Rebuild failures are reported too.
	tr.failVerification = true
	_, err = tr.Remove([]byte("key001"))
	require.ErrorIs(t, err, errWrite)
	require.Equal(t, root, tr.Root())
}

func TestAssetTrie_Rebuild(t *testing.T) {
	for _, preserve := range []bool{true, false} {
		t.Run(fmt.Sprintf("preserve=%t", preserve), func(t *testing.T) {
			inc := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{}, WithHistoryPreservation(preserve))
			reb := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{}, WithHistoryPreservation(preserve))
			for _, tr := range []*AssetTrie{inc, reb} {
				_, err := tr.BatchInsert(testItems(0, 50, 0))
				require.NoError(t, err)
			}
			reb.failVerification = true

			inserts := append(testItems(10, 20, 1), testItems(50, 60, 1)...)
			deletes := keysOf(testItems(0, 10, 0))
			r1, err := inc.BatchUpdate(inserts, deletes)
			require.NoError(t, err)
			require.Equal(t, []State{StateIncremental, StateCommitted}, inc.path)
			r2, err := reb.BatchUpdate(inserts, deletes)
			require.NoError(t, err)
			require.Equal(t, []State{StateIncremental, StateRebuilding, StateCommitted}, reb.path)
			require.Equal(t, r1, r2)

			e1, err := inc.Entries()
			require.NoError(t, err)
			e2, err := reb.Entries()
			require.NoError(t, err)
			require.Equal(t, e1, e2)

			expected := append(testItems(10, 20, 1), testItems(20, 50, 0)...)
			expected = append(expected, testItems(50, 60, 1)...)
			require.Equal(t, expected, e1)

			fresh := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
			r3, err := fresh.BatchInsert(expected)
			require.NoError(t, err)
			require.Equal(t, r1, r3)

			// Rebuilding down to nothing.
			r4, err := reb.BatchRemove(keysOf(expected))
			require.NoError(t, err)
			require.True(t, r4.IsZero())
			require.Equal(t, []State{StateIncremental, StateRebuilding, StateCommitted}, reb.path)
		})
	}
}

func TestAssetTrie_HistoryMode(t *testing.T) {
	for _, preserve := range []bool{true, false} {
		t.Run(fmt.Sprintf("preserve=%t", preserve), func(t *testing.T) {
			st := storage.NewMemoryStore()
			tr := newTestTrie(t, st, util.Uint256{}, WithHistoryPreservation(preserve))
			old, err := tr.BatchInsert(testItems(0, 10, 0))
			require.NoError(t, err)
			_, err = tr.BatchUpdate(testItems(0, 1, 1), keysOf(testItems(5, 6, 0)))
			require.NoError(t, err)

			v, err := newTestTrie(t, st, old).Get([]byte("key005"))
			if preserve {
				require.NoError(t, err)
				require.Equal(t, []byte("value5/0"), v)
			} else {
				require.ErrorIs(t, err, mpt.ErrNodeNotFound)
			}
			entries, err := tr.Entries()
			require.NoError(t, err)
			require.Equal(t, 9, len(entries))
		})
	}
}

func TestAssetTrie_SetRoot(t *testing.T) {
	st := storage.NewMemoryStore()
	tr := newTestTrie(t, st, util.Uint256{})
	r1, err := tr.BatchInsert(testItems(0, 3, 0))
	require.NoError(t, err)
	r2, err := tr.BatchInsert(testItems(0, 3, 1))
	require.NoError(t, err)

	tr.SetRoot(r1)
	v, err := tr.Get([]byte("key001"))
	require.NoError(t, err)
	require.Equal(t, []byte("value1/0"), v)

	// Forking history from an old version.
	r3, err := tr.Insert([]byte("key001"), []byte("fork"))
	require.NoError(t, err)
	require.NotEqual(t, r2, r3)
	v, err = newTestTrie(t, st, r2).Get([]byte("key001"))
	require.NoError(t, err)
	require.Equal(t, []byte("value1/1"), v)
}

func TestAssetTrie_Iterate(t *testing.T) {
	tr := newTestTrie(t, storage.NewMemoryStore(), util.Uint256{})
	_, err := tr.BatchInsert(testItems(0, 10, 0))
	require.NoError(t, err)

	var keys []string
	require.NoError(t, tr.Iterate(func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return len(keys) < 3
	}))
	require.Equal(t, []string{"key000", "key001", "key002"}, keys)
}

func TestAssetTrie_Prefixes(t *testing.T) {
	st := storage.NewMemoryStore()
	asset := random.Uint256()
	mainTrie := newTestTrie(t, st, util.Uint256{}, WithPrefix(mpt.TaggedPrefix(nil, 'M')))
	cert := newTestTrie(t, st, util.Uint256{}, WithPrefix(mpt.TaggedPrefix(asset[:], 'C')))

	r1, err := mainTrie.BatchInsert(testItems(0, 5, 0))
	require.NoError(t, err)
	r2, err := cert.BatchInsert(testItems(0, 5, 0))
	require.NoError(t, err)
	require.Equal(t, r1, r2)

	// Same content, different namespaces.
	_, err = mainTrie.Remove([]byte("key000"))
	require.NoError(t, err)
	wrong := newTestTrie(t, st, r1, WithPrefix(mpt.TaggedPrefix(random.Uint256().Bytes(), 'C')))
	_, err = wrong.Get([]byte("key000"))
	require.ErrorIs(t, err, mpt.ErrNodeNotFound)
	v, err := cert.Get([]byte("key000"))
	require.NoError(t, err)
	require.Equal(t, []byte("value0/0"), v)
}

func TestAssetTrie_Backends(t *testing.T) {
	dir := t.TempDir()
	for _, cfg := range []dbconfig.DBConfiguration{
		{Type: dbconfig.InMemoryDB},
		{Type: dbconfig.LevelDB, LevelDBOptions: dbconfig.LevelDBOptions{DataDirectoryPath: filepath.Join(dir, "leveldb")}},
		{Type: dbconfig.BoltDB, BoltDBOptions: dbconfig.BoltDBOptions{FilePath: filepath.Join(dir, "bolt.db")}},
		{Type: dbconfig.BadgerDB, BadgerDBOptions: dbconfig.BadgerDBOptions{Dir: filepath.Join(dir, "badger")}},
		{Type: dbconfig.PebbleDB, PebbleOptions: dbconfig.PebbleOptions{DataDirectoryPath: filepath.Join(dir, "pebble")}},
	} {
		t.Run(cfg.Type, func(t *testing.T) {
			st, err := storage.NewStore(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, st.Close()) })

			tr := newTestTrie(t, st, util.Uint256{})
			old, err := tr.BatchInsert(testItems(0, 20, 0))
			require.NoError(t, err)
			_, err = tr.BatchUpdate(testItems(20, 25, 0), keysOf(testItems(0, 5, 0)))
			require.NoError(t, err)
			entries, err := tr.Entries()
			require.NoError(t, err)
			require.Equal(t, testItems(5, 25, 0), entries)

			entries, err = newTestTrie(t, st, old).Entries()
			require.NoError(t, err)
			require.Equal(t, testItems(0, 20, 0), entries)
		})
	}
}
