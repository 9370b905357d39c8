package mpt

import (
	"bytes"
	"sort"
)

// Batch is a batch of changes to be applied to a trie. Keys are unique in a
// batch, a nil value means deletion.
type Batch struct {
	kv []keyValue
}

type keyValue struct {
	key   []byte
	value []byte
}

// Add adds a key-value pair to the batch, replacing the previous value for
// the same key if any.
func (b *Batch) Add(key []byte, value []byte) {
	i := sort.Search(len(b.kv), func(i int) bool {
		return bytes.Compare(key, b.kv[i].key) <= 0
	})
	kv := keyValue{key: copySlice(key)}
	if value != nil {
		kv.value = copySlice(value)
	}
	if i < len(b.kv) && bytes.Equal(b.kv[i].key, key) {
		b.kv[i] = kv
		return
	}
	b.kv = append(b.kv, keyValue{})
	copy(b.kv[i+1:], b.kv[i:])
	b.kv[i] = kv
}

// Len returns the number of changes in the batch.
func (b *Batch) Len() int {
	return len(b.kv)
}

// PutBatch applies the batch to the trie in key order. It returns the number
// of changes applied before the first error (if any). Deleting a missing
// key is an error.
func (t *Trie) PutBatch(b Batch) (int, error) {
	for i, kv := range b.kv {
		var err error
		if kv.value == nil {
			err = t.Delete(kv.key)
		} else {
			err = t.Put(kv.key, kv.value)
		}
		if err != nil {
			return i, err
		}
	}
	return len(b.kv), nil
}
