package assettrie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/nodestore"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

var (
	// ErrInvalidKey is returned for empty keys and keys longer than
	// mpt.MaxKeyLength.
	ErrInvalidKey = mpt.ErrInvalidKey
	// ErrRootNotFound is returned when the current root of a non-empty trie
	// is missing from the storage.
	ErrRootNotFound = errors.New("root node not found")
)

// KeyValue is a trie item.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// AssetTrie is a persistent trie bound to a storage and a root. Every
// mutation commits before returning, a failed one leaves the root unchanged.
// Reads may run concurrently, mutations need external synchronization.
type AssetTrie struct {
	st       storage.Store
	cfg      *mpt.Config
	prefix   mpt.Prefix
	log      *zap.Logger
	preserve bool
	cache    nodestore.Cache
	adapter  *nodestore.Adapter

	root util.Uint256

	// path is the list of states the last update went through.
	path []State
	// failVerification makes incremental updates fall back to rebuilding.
	failVerification bool
}

// Option is an AssetTrie constructor option.
type Option func(*AssetTrie)

// WithConfig sets the trie configuration, mpt.DefaultConfig is used by
// default.
func WithConfig(cfg *mpt.Config) Option {
	return func(t *AssetTrie) {
		if cfg != nil {
			t.cfg = cfg
		}
	}
}

// WithPrefix sets the namespace the trie keeps its nodes in.
func WithPrefix(p mpt.Prefix) Option {
	return func(t *AssetTrie) {
		t.prefix = p
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(t *AssetTrie) {
		if log != nil {
			t.log = log
		}
	}
}

// WithHistoryPreservation controls whether nodes of previous versions are
// removed on update. History is preserved by default.
func WithHistoryPreservation(preserve bool) Option {
	return func(t *AssetTrie) {
		t.preserve = preserve
	}
}

// WithCache sets the node read cache, no cache is used by default.
func WithCache(c nodestore.Cache) Option {
	return func(t *AssetTrie) {
		t.cache = c
	}
}

// New returns an AssetTrie over st with the given root, zero root is an empty
// trie.
func New(st storage.Store, root util.Uint256, opts ...Option) *AssetTrie {
	t := &AssetTrie{
		st:       st,
		cfg:      mpt.DefaultConfig,
		log:      zap.NewNop(),
		preserve: true,
		root:     root,
	}
	for _, o := range opts {
		o(t)
	}
	t.adapter = nodestore.NewAdapter(st, t.cfg, t.cache, t.log)
	return t
}

// Root returns the current root.
func (t *AssetTrie) Root() util.Uint256 {
	return t.root
}

// SetRoot switches the trie to another version. The root is not checked.
func (t *AssetTrie) SetRoot(root util.Uint256) {
	t.root = root
}

// Prefix returns the namespace of the trie nodes.
func (t *AssetTrie) Prefix() mpt.Prefix {
	return t.prefix
}

// Insert puts the item into the trie and returns the new root. An empty value
// removes the key.
func (t *AssetTrie) Insert(key, value []byte) (util.Uint256, error) {
	return t.BatchUpdate([]KeyValue{{Key: key, Value: value}}, nil)
}

// BatchInsert puts all the items into the trie in one update.
func (t *AssetTrie) BatchInsert(items []KeyValue) (util.Uint256, error) {
	return t.BatchUpdate(items, nil)
}

// Remove deletes the key from the trie and returns the new root. Removing a
// missing key is not an error.
func (t *AssetTrie) Remove(key []byte) (util.Uint256, error) {
	return t.BatchUpdate(nil, [][]byte{key})
}

// BatchRemove deletes all the keys in one update.
func (t *AssetTrie) BatchRemove(keys [][]byte) (util.Uint256, error) {
	return t.BatchUpdate(nil, keys)
}

// BatchUpdate applies deletes and then inserts in one update, so a key
// present in both ends up inserted.
func (t *AssetTrie) BatchUpdate(inserts []KeyValue, deletes [][]byte) (util.Uint256, error) {
	for _, kv := range inserts {
		if err := checkKey(kv.Key); err != nil {
			return t.root, err
		}
		if len(kv.Value) > mpt.MaxValueLength {
			return t.root, mpt.ErrValueTooBig
		}
	}
	for _, k := range deletes {
		if err := checkKey(k); err != nil {
			return t.root, err
		}
	}
	if len(inserts) == 0 && len(deletes) == 0 {
		return t.root, nil
	}
	return t.update(inserts, deletes)
}

// Get returns the value stored for the key or nil if there is none.
func (t *AssetTrie) Get(key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	if t.root.IsZero() {
		return nil, nil
	}
	v, err := mpt.OpenTrie(t.root, t.cfg, t.prefix, t.adapter).Get(key)
	if err != nil {
		if errors.Is(err, mpt.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %x: %w", key, err)
	}
	return v, nil
}

// Contains checks whether the key is in the trie.
func (t *AssetTrie) Contains(key []byte) (bool, error) {
	v, err := t.Get(key)
	return v != nil, err
}

// Iterate calls f for every item in key order until f returns false. Key and
// value must not be modified by f.
func (t *AssetTrie) Iterate(f func(k, v []byte) bool) error {
	return t.iterate(t.root, f)
}

// Entries returns all the items of the trie in key order. It's a full scan.
func (t *AssetTrie) Entries() ([]KeyValue, error) {
	return t.entries(t.root)
}

func (t *AssetTrie) iterate(root util.Uint256, f func(k, v []byte) bool) error {
	if root.IsZero() {
		return nil
	}
	err := mpt.OpenTrie(root, t.cfg, t.prefix, t.adapter).Iterate(f)
	if err != nil {
		return fmt.Errorf("failed to traverse trie %s: %w", root, err)
	}
	return nil
}

func (t *AssetTrie) entries(root util.Uint256) ([]KeyValue, error) {
	var res []KeyValue
	err := t.iterate(root, func(k, v []byte) bool {
		res = append(res, KeyValue{
			Key:   bytes.Clone(k),
			Value: bytes.Clone(v),
		})
		return true
	})
	return res, err
}

func checkKey(key []byte) error {
	if len(key) == 0 || len(key) > mpt.MaxKeyLength {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	return nil
}
