package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*MemoryStore
	fail bool
}

func (f *failingStore) PutChangeSet(puts map[string][]byte) error {
	if f.fail {
		return errors.New("write failure")
	}
	return f.MemoryStore.PutChangeSet(puts)
}

func TestMemCachedStorePersist(t *testing.T) {
	// persistent Store
	ps := NewMemoryStore()
	// cached Store
	ts := NewMemCachedStore(ps)
	// persisting nothing should do nothing
	c, err := ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, c)
	// persisting one key should result in one key in ps and nothing in ts
	ts.Put([]byte("key"), []byte("value"))
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, c)
	v, err := ps.Get([]byte("key"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("value"), v)
	puts, dels := ts.Len()
	assert.Equal(t, 0, puts)
	assert.Equal(t, 0, dels)
	// now we overwrite the previous `key` contents and also add `key2`,
	ts.Put([]byte("key"), []byte("newvalue"))
	ts.Put([]byte("key2"), []byte("value2"))
	// this is to check that now key is written into the ps before we do
	// persist
	v, err = ps.Get([]byte("key2"))
	assert.Equal(t, ErrKeyNotFound, err)
	assert.Equal(t, []byte(nil), v)
	// two keys should be persisted (one overwritten and one new) and
	// nothing should be left in the ts
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, c)
	v, err = ps.Get([]byte("key"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("newvalue"), v)
	v, err = ps.Get([]byte("key2"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("value2"), v)
	// we've persisted some values, make sure successive persist is a no-op
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, c)
	// test persisting deletions
	ts.Delete([]byte("key"))
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, c)
	v, err = ps.Get([]byte("key"))
	assert.Equal(t, ErrKeyNotFound, err)
	assert.Equal(t, []byte(nil), v)
	v, err = ps.Get([]byte("key2"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("value2"), v)
}

func TestMemCachedStoreGetShadowing(t *testing.T) {
	ps := NewMemoryStore()
	require.NoError(t, ps.PutChangeSet(map[string][]byte{"old": []byte("value")}))
	ts := NewMemCachedStore(ps)

	v, err := ts.Get([]byte("old"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	ts.Delete([]byte("old"))
	_, err = ts.Get([]byte("old"))
	require.ErrorIs(t, err, ErrKeyNotFound)
	// Still there until persisted.
	_, err = ps.Get([]byte("old"))
	require.NoError(t, err)

	ts.Put([]byte("old"), []byte("new"))
	v, err = ts.Get([]byte("old"))
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)

	puts, dels := ts.Len()
	require.Equal(t, 1, puts)
	require.Equal(t, 0, dels)
	require.Equal(t, map[string][]byte{"old": []byte("new")}, ts.GetChangeSet())
}

func TestMemCachedStorePersistPuts(t *testing.T) {
	ps := NewMemoryStore()
	require.NoError(t, ps.PutChangeSet(map[string][]byte{"a": []byte("1")}))
	ts := NewMemCachedStore(ps)
	ts.Delete([]byte("a"))
	ts.Put([]byte("b"), []byte("2"))

	c, err := ts.PersistPuts()
	require.NoError(t, err)
	require.Equal(t, 1, c)
	_, err = ps.Get([]byte("a"))
	require.NoError(t, err)
	_, err = ps.Get([]byte("b"))
	require.NoError(t, err)

	// Only deletions pending.
	ts.Delete([]byte("a"))
	c, err = ts.PersistPuts()
	require.NoError(t, err)
	require.Equal(t, 0, c)
	puts, dels := ts.Len()
	require.Equal(t, 0, puts+dels)
}

func TestMemCachedStorePersistFailure(t *testing.T) {
	ps := &failingStore{MemoryStore: NewMemoryStore(), fail: true}
	ts := NewMemCachedStore(ps)
	ts.Put([]byte("key"), []byte("value"))

	_, err := ts.Persist()
	require.Error(t, err)
	puts, _ := ts.Len()
	require.Equal(t, 1, puts)

	ps.fail = false
	c, err := ts.Persist()
	require.NoError(t, err)
	require.Equal(t, 1, c)
	v, err := ps.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
}
