package mpt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchAdd(t *testing.T) {
	b := new(Batch)
	b.Add([]byte{1}, []byte{2})
	b.Add([]byte{2, 16}, []byte{3})
	b.Add([]byte{2, 0}, []byte{4})
	b.Add([]byte{0, 1}, []byte{5})
	b.Add([]byte{2, 0}, []byte{6})
	b.Add([]byte{3}, nil)
	expected := []keyValue{
		{[]byte{0, 1}, []byte{5}},
		{[]byte{1}, []byte{2}},
		{[]byte{2, 0}, []byte{6}},
		{[]byte{2, 16}, []byte{3}},
		{[]byte{3}, nil},
	}
	require.Equal(t, expected, b.kv)
	require.Equal(t, 5, b.Len())
}

type pairs = [][2][]byte

func testIncompletePut(t *testing.T, ps pairs, n int, tr1, tr2 *Trie) {
	var b Batch
	for i, p := range ps {
		if i < n {
			if p[1] == nil {
				require.NoError(t, tr1.Delete(p[0]), "item %d", i)
			} else {
				require.NoError(t, tr1.Put(p[0], p[1]), "item %d", i)
			}
		}
		b.Add(p[0], p[1])
	}

	num, err := tr2.PutBatch(b)
	if n == len(ps) {
		require.NoError(t, err)
	} else {
		require.Error(t, err)
	}
	require.Equal(t, n, num)
	require.Equal(t, tr1.StateRoot(), tr2.StateRoot())
}

func testPut(t *testing.T, ps pairs, tr1, tr2 *Trie) {
	testIncompletePut(t, ps, len(ps), tr1, tr2)
}

func TestTrie_PutBatch(t *testing.T) {
	prepare := func(t *testing.T) (*Trie, *Trie) {
		tr1, _ := newTestTrie()
		tr2, _ := newTestTrie()
		for _, tr := range []*Trie{tr1, tr2} {
			require.NoError(t, tr.Put([]byte{0}, []byte("value")))
			require.NoError(t, tr.Put([]byte{0, 1}, []byte("value1")))
			require.NoError(t, tr.Put([]byte{0x10}, []byte("value2")))
		}
		return tr1, tr2
	}

	t.Run("remove", func(t *testing.T) {
		tr1, tr2 := prepare(t)
		testPut(t, pairs{{[]byte{0}, nil}}, tr1, tr2)
	})
	t.Run("empty value", func(t *testing.T) {
		tr1, tr2 := prepare(t)
		testPut(t, pairs{{[]byte{0}, []byte{}}}, tr1, tr2)
	})
	t.Run("replace", func(t *testing.T) {
		tr1, tr2 := prepare(t)
		testPut(t, pairs{{[]byte{0}, []byte("replace")}}, tr1, tr2)
	})
	t.Run("remove and add", func(t *testing.T) {
		tr1, tr2 := prepare(t)
		var ps = pairs{
			{[]byte{0}, nil},
			{[]byte{0, 2}, []byte("replace2")},
			{[]byte{0x11}, []byte("value3")},
		}
		testPut(t, ps, tr1, tr2)
	})
	t.Run("remove all", func(t *testing.T) {
		tr1, tr2 := prepare(t)
		var ps = pairs{
			{[]byte{0}, nil},
			{[]byte{0, 1}, nil},
			{[]byte{0x10}, nil},
		}
		testPut(t, ps, tr1, tr2)
		require.True(t, tr2.StateRoot().IsZero())
	})
	t.Run("remove missing", func(t *testing.T) {
		tr1, tr2 := prepare(t)
		var ps = pairs{
			{[]byte{0}, []byte("replace")},
			{[]byte{0, 5}, nil},
			{[]byte{0x10}, nil},
		}
		testIncompletePut(t, ps, 1, tr1, tr2)
	})
	t.Run("invalid key", func(t *testing.T) {
		tr1, tr2 := prepare(t)
		var ps = pairs{
			{[]byte{}, []byte("value")},
		}
		testIncompletePut(t, ps, 0, tr1, tr2)
	})
}
