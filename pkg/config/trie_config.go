package config

import (
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/nodestore"
)

// Supported node cache types.
const (
	CacheNone      = "none"
	CacheLRU       = "lru"
	CacheFastCache = "fastcache"
)

// TrieConfiguration contains settings of the asset tries.
type TrieConfiguration struct {
	// Hash is the node hash function: blake2b (default), keccak256 or
	// sha256d. It must not change for existing databases.
	Hash string `yaml:"Hash"`
	// PreserveHistory keeps nodes of previous roots, so that old roots stay
	// readable until pruned.
	PreserveHistory bool `yaml:"PreserveHistory"`
	// CacheType is the node read cache type.
	CacheType string `yaml:"CacheType"`
	// CacheSize is the number of entries for the LRU cache and the size in
	// bytes for fastcache.
	CacheSize int `yaml:"CacheSize"`
}

// Validate checks TrieConfiguration for internal consistency.
func (t TrieConfiguration) Validate() error {
	if _, err := t.MPTConfig(); err != nil {
		return err
	}
	switch t.CacheType {
	case "", CacheNone:
	case CacheLRU, CacheFastCache:
		if t.CacheSize <= 0 {
			return fmt.Errorf("CacheSize should be positive for %s cache", t.CacheType)
		}
	default:
		return fmt.Errorf("unknown CacheType '%s'", t.CacheType)
	}
	return nil
}

// MPTConfig returns the trie algorithm configuration.
func (t TrieConfiguration) MPTConfig() (*mpt.Config, error) {
	return mpt.ConfigByName(t.Hash)
}

// NewCache returns a node cache of the configured type, nil is returned for
// no caching.
func (t TrieConfiguration) NewCache() (nodestore.Cache, error) {
	switch t.CacheType {
	case CacheLRU:
		return nodestore.NewLRUCache(t.CacheSize)
	case CacheFastCache:
		return nodestore.NewFastCache(t.CacheSize), nil
	default:
		return nil, nil
	}
}
