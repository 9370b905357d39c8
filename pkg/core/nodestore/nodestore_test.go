package nodestore

import (
	"errors"
	"testing"

	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errWrite = errors.New("write failure")

// faultyStore is a storage.Store failing change sets on demand.
type faultyStore struct {
	*storage.MemoryStore
	failWrites bool
	puts       int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: storage.NewMemoryStore()}
}

func (f *faultyStore) PutChangeSet(puts map[string][]byte) error {
	if f.failWrites {
		return errWrite
	}
	f.puts++
	return f.MemoryStore.PutChangeSet(puts)
}

var mainPrefix = mpt.TaggedPrefix(nil, 'M')

func TestNodeKey(t *testing.T) {
	h := util.Uint256{1, 2, 3}
	key := NodeKey(h, mainPrefix)
	require.Equal(t, 1+1+util.Uint256Size, len(key))
	require.Equal(t, byte(storage.DataAsset), key[0])
	require.Equal(t, byte('M'), key[1])
	require.Equal(t, h[:], key[2:])

	asset := util.Uint256{0xaa}
	key = NodeKey(h, mpt.TaggedPrefix(asset[:], 'C'))
	require.Equal(t, 1+util.Uint256Size+1+util.Uint256Size, len(key))
	require.Equal(t, asset[:], key[1:33])
	require.Equal(t, byte('C'), key[33])
}

func testCaches(t *testing.T) map[string]Cache {
	l, err := NewLRUCache(16)
	require.NoError(t, err)
	return map[string]Cache{
		"LRU":  l,
		"Fast": NewFastCache(1 << 20),
		"None": NoCache{},
	}
}

func TestAdapter(t *testing.T) {
	for name, cache := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			st := newFaultyStore()
			a := NewAdapter(st, nil, cache, zaptest.NewLogger(t))
			value := []byte("node")

			h, err := a.Insert(mainPrefix, value)
			require.NoError(t, err)
			require.Equal(t, mpt.DefaultConfig.Hash(value), h)
			require.True(t, a.Contains(h, mainPrefix))
			require.True(t, a.Durable(h, mainPrefix))
			require.Equal(t, 1, st.puts)

			// Idempotent.
			h2, err := a.Insert(mainPrefix, value)
			require.NoError(t, err)
			require.Equal(t, h, h2)

			v, err := a.Get(h, mainPrefix)
			require.NoError(t, err)
			require.Equal(t, value, v)

			// Namespaces are separate.
			_, err = a.Get(h, mpt.TaggedPrefix(h[:], 'C'))
			require.ErrorIs(t, err, mpt.ErrNodeNotFound)

			require.NoError(t, a.Remove(h, mainPrefix))
			_, err = a.Get(h, mainPrefix)
			require.ErrorIs(t, err, mpt.ErrNodeNotFound)
			require.False(t, a.Durable(h, mainPrefix))
		})
	}
}

func TestAdapter_ZeroHash(t *testing.T) {
	st := newFaultyStore()
	// Even if something is stored under the zero hash it's not visible.
	require.NoError(t, st.PutChangeSet(map[string][]byte{
		string(NodeKey(util.Uint256{}, mainPrefix)): []byte("garbage"),
	}))
	a := NewAdapter(st, nil, nil, nil)
	_, err := a.Get(util.Uint256{}, mainPrefix)
	require.ErrorIs(t, err, mpt.ErrNodeNotFound)
	require.False(t, a.Contains(util.Uint256{}, mainPrefix))
	require.False(t, a.Durable(util.Uint256{}, mainPrefix))
}

func TestAdapter_WriteFailure(t *testing.T) {
	st := newFaultyStore()
	cache, err := NewLRUCache(16)
	require.NoError(t, err)
	a := NewAdapter(st, nil, cache, zaptest.NewLogger(t))

	st.failWrites = true
	h, err := a.Insert(mainPrefix, []byte("node"))
	require.ErrorIs(t, err, errWrite)
	// Cache is not updated on failure.
	_, ok := cache.Get(NodeKey(h, mainPrefix))
	require.False(t, ok)
	require.False(t, a.Contains(h, mainPrefix))

	require.ErrorIs(t, a.EmplaceAll(mainPrefix, map[util.Uint256][]byte{h: []byte("node")}), errWrite)
	require.False(t, a.Contains(h, mainPrefix))

	st.failWrites = false
	require.NoError(t, a.Emplace(h, mainPrefix, []byte("node")))
	st.failWrites = true
	require.ErrorIs(t, a.Remove(h, mainPrefix), errWrite)
	require.True(t, a.Durable(h, mainPrefix))
}

func TestAdapter_EmplaceAll(t *testing.T) {
	st := newFaultyStore()
	a := NewAdapter(st, nil, NewFastCache(1<<20), zaptest.NewLogger(t))

	require.NoError(t, a.EmplaceAll(mainPrefix, nil))
	require.Equal(t, 0, st.puts)

	nodes := make(map[util.Uint256][]byte)
	for i := 0; i < 10; i++ {
		v := []byte{byte(i), 1, 2, 3}
		nodes[mpt.DefaultConfig.Hash(v)] = v
	}
	require.NoError(t, a.EmplaceAll(mainPrefix, nodes))
	require.Equal(t, 1, st.puts)
	for h, v := range nodes {
		actual, err := a.Get(h, mainPrefix)
		require.NoError(t, err)
		require.Equal(t, v, actual)
		require.True(t, a.Durable(h, mainPrefix))
	}
}

func TestAdapter_Evict(t *testing.T) {
	st := newFaultyStore()
	cache, err := NewLRUCache(16)
	require.NoError(t, err)
	a := NewAdapter(st, nil, cache, nil)
	h, err := a.Insert(mainPrefix, []byte("node"))
	require.NoError(t, err)

	// Deleted behind the adapter's back, cache still has it.
	require.NoError(t, st.MemoryStore.PutChangeSet(map[string][]byte{string(NodeKey(h, mainPrefix)): nil}))
	require.True(t, a.Contains(h, mainPrefix))
	require.False(t, a.Durable(h, mainPrefix))

	a.Evict([]util.Uint256{h}, mainPrefix)
	require.False(t, a.Contains(h, mainPrefix))
}

func TestCache(t *testing.T) {
	for name, c := range testCaches(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := c.Get([]byte("key"))
			require.False(t, ok)
			c.Add([]byte("key"), []byte("value"))
			v, ok := c.Get([]byte("key"))
			if name == "None" {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			require.Equal(t, []byte("value"), v)
			c.Remove([]byte("key"))
			_, ok = c.Get([]byte("key"))
			require.False(t, ok)
		})
	}
	t.Run("LRU size", func(t *testing.T) {
		c, err := NewLRUCache(2)
		require.NoError(t, err)
		c.Add([]byte{1}, []byte{1})
		c.Add([]byte{2}, []byte{2})
		c.Add([]byte{3}, []byte{3})
		_, ok := c.Get([]byte{1})
		require.False(t, ok)

		_, err = NewLRUCache(0)
		require.Error(t, err)
	})
	t.Run("fastcache big entry", func(t *testing.T) {
		c := NewFastCache(1 << 20)
		c.Add([]byte{1}, make([]byte, maxFastCacheEntry))
		_, ok := c.Get([]byte{1})
		require.False(t, ok)
	})
}
