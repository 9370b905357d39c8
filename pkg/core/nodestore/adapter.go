package nodestore

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

// Adapter is a NodeStore writing every node to the storage synchronously.
// Its cache only lives as long as the Adapter does.
type Adapter struct {
	st    storage.Store
	cfg   *mpt.Config
	cache Cache
	log   *zap.Logger
}

var _ mpt.NodeStore = (*Adapter)(nil)

// NewAdapter creates an Adapter over st. Nil cfg means mpt.DefaultConfig, nil
// cache disables caching.
func NewAdapter(st storage.Store, cfg *mpt.Config, cache Cache, log *zap.Logger) *Adapter {
	if cfg == nil {
		cfg = mpt.DefaultConfig
	}
	if cache == nil {
		cache = NoCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		st:    st,
		cfg:   cfg,
		cache: cache,
		log:   log,
	}
}

// Get implements the mpt.NodeStore interface. The zero hash is never looked
// up.
func (a *Adapter) Get(h util.Uint256, p mpt.Prefix) ([]byte, error) {
	if h.IsZero() {
		return nil, mpt.ErrNodeNotFound
	}
	key := NodeKey(h, p)
	if v, ok := a.cache.Get(key); ok {
		cacheHits.Inc()
		return v, nil
	}
	cacheMisses.Inc()
	v, err := a.st.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, mpt.ErrNodeNotFound
		}
		return nil, fmt.Errorf("failed to read node %s: %w", h, err)
	}
	a.cache.Add(key, v)
	return v, nil
}

// Contains implements the mpt.NodeStore interface.
func (a *Adapter) Contains(h util.Uint256, p mpt.Prefix) bool {
	_, err := a.Get(h, p)
	return err == nil
}

// Insert implements the mpt.NodeStore interface.
func (a *Adapter) Insert(p mpt.Prefix, value []byte) (util.Uint256, error) {
	h := a.cfg.Hash(value)
	return h, a.Emplace(h, p, value)
}

// Emplace implements the mpt.NodeStore interface. The node is written in
// its own transaction, the cache is only updated if it succeeds.
func (a *Adapter) Emplace(h util.Uint256, p mpt.Prefix, value []byte) error {
	key := NodeKey(h, p)
	err := a.st.PutChangeSet(map[string][]byte{string(key): value})
	if err != nil {
		return fmt.Errorf("failed to write node %s: %w", h, err)
	}
	nodeWrites.Inc()
	a.cache.Add(key, bytes.Clone(value))
	return nil
}

// Remove implements the mpt.NodeStore interface.
func (a *Adapter) Remove(h util.Uint256, p mpt.Prefix) error {
	key := NodeKey(h, p)
	a.cache.Remove(key)
	err := a.st.PutChangeSet(map[string][]byte{string(key): nil})
	if err != nil {
		return fmt.Errorf("failed to remove node %s: %w", h, err)
	}
	return nil
}

// EmplaceAll writes all the nodes in one transaction.
func (a *Adapter) EmplaceAll(p mpt.Prefix, nodes map[util.Uint256][]byte) error {
	if len(nodes) == 0 {
		return nil
	}
	batch := make(map[string][]byte, len(nodes))
	for h, v := range nodes {
		batch[string(NodeKey(h, p))] = v
	}
	if err := a.st.PutChangeSet(batch); err != nil {
		return fmt.Errorf("failed to write %d nodes: %w", len(nodes), err)
	}
	nodeWrites.Add(float64(len(nodes)))
	for k, v := range batch {
		a.cache.Add([]byte(k), v)
	}
	a.log.Debug("nodes written", zap.Int("count", len(nodes)))
	return nil
}

// Durable checks whether the node is present in the storage itself, the
// cache is not consulted.
func (a *Adapter) Durable(h util.Uint256, p mpt.Prefix) bool {
	if h.IsZero() {
		return false
	}
	_, err := a.st.Get(NodeKey(h, p))
	return err == nil
}

// Evict drops the nodes from the cache.
func (a *Adapter) Evict(hashes []util.Uint256, p mpt.Prefix) {
	for _, h := range hashes {
		a.cache.Remove(NodeKey(h, p))
	}
}
