package nodestore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

// ChangeCollector is a NodeStore collecting node changes in memory. Reads see
// the collected changes on top of the storage. Nothing is written until
// ApplyChanges.
type ChangeCollector struct {
	mem      *storage.MemCachedStore
	cfg      *mpt.Config
	preserve bool
	log      *zap.Logger

	lock    sync.RWMutex
	writes  map[util.Uint256]struct{}
	deletes map[util.Uint256]struct{}
}

var _ mpt.NodeStore = (*ChangeCollector)(nil)

// NewChangeCollector creates a ChangeCollector preserving history: deletions
// are collected, but never applied.
func NewChangeCollector(st storage.Store, cfg *mpt.Config, log *zap.Logger) *ChangeCollector {
	return NewChangeCollectorWithHistoryMode(st, cfg, true, log)
}

// NewChangeCollectorWithHistoryMode creates a ChangeCollector, if preserve is
// false deletions are applied along with the writes.
func NewChangeCollectorWithHistoryMode(st storage.Store, cfg *mpt.Config, preserve bool, log *zap.Logger) *ChangeCollector {
	if cfg == nil {
		cfg = mpt.DefaultConfig
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChangeCollector{
		mem:      storage.NewMemCachedStore(st),
		cfg:      cfg,
		preserve: preserve,
		log:      log,
		writes:   make(map[util.Uint256]struct{}),
		deletes:  make(map[util.Uint256]struct{}),
	}
}

// Get implements the mpt.NodeStore interface. A collected deletion hides the
// stored node.
func (c *ChangeCollector) Get(h util.Uint256, p mpt.Prefix) ([]byte, error) {
	if h.IsZero() {
		return nil, mpt.ErrNodeNotFound
	}
	v, err := c.mem.Get(NodeKey(h, p))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, mpt.ErrNodeNotFound
		}
		return nil, fmt.Errorf("failed to read node %s: %w", h, err)
	}
	return v, nil
}

// Contains implements the mpt.NodeStore interface.
func (c *ChangeCollector) Contains(h util.Uint256, p mpt.Prefix) bool {
	_, err := c.Get(h, p)
	return err == nil
}

// Insert implements the mpt.NodeStore interface.
func (c *ChangeCollector) Insert(p mpt.Prefix, value []byte) (util.Uint256, error) {
	h := c.cfg.Hash(value)
	return h, c.Emplace(h, p, value)
}

// Emplace implements the mpt.NodeStore interface. It never fails.
func (c *ChangeCollector) Emplace(h util.Uint256, p mpt.Prefix, value []byte) error {
	c.lock.Lock()
	c.mem.Put(NodeKey(h, p), value)
	c.writes[h] = struct{}{}
	delete(c.deletes, h)
	c.lock.Unlock()
	return nil
}

// Remove implements the mpt.NodeStore interface. It never fails.
func (c *ChangeCollector) Remove(h util.Uint256, p mpt.Prefix) error {
	c.lock.Lock()
	c.mem.Delete(NodeKey(h, p))
	c.deletes[h] = struct{}{}
	delete(c.writes, h)
	c.lock.Unlock()
	return nil
}

// IsPreservingHistory tells whether deletions are dropped on ApplyChanges.
func (c *ChangeCollector) IsPreservingHistory() bool {
	return c.preserve
}

// IsPending tells whether there is a collected write for the node.
func (c *ChangeCollector) IsPending(h util.Uint256) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	_, ok := c.writes[h]
	return ok
}

// Stats returns the number of collected writes and deletions.
func (c *ChangeCollector) Stats() (writes int, deletes int) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.writes), len(c.deletes)
}

// Changes returns a copy of the collected change set keyed by storage keys,
// nil values are deletions.
func (c *ChangeCollector) Changes() map[string][]byte {
	return c.mem.GetChangeSet()
}

// DeletedHashes returns hashes of the nodes collected for deletion.
func (c *ChangeCollector) DeletedHashes() []util.Uint256 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	res := make([]util.Uint256, 0, len(c.deletes))
	for h := range c.deletes {
		res = append(res, h)
	}
	return res
}

// ApplyChanges writes collected changes to the storage in one transaction.
// Deletions are only applied if history is not preserved. Collected changes
// are kept if the storage fails, so ApplyChanges can be retried.
func (c *ChangeCollector) ApplyChanges() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	var (
		n   int
		err error
	)
	if c.preserve {
		n, err = c.mem.PersistPuts()
	} else {
		n, err = c.mem.Persist()
	}
	if err != nil {
		return fmt.Errorf("failed to apply node changes: %w", err)
	}
	nodeWrites.Add(float64(len(c.writes)))
	c.log.Debug("node changes applied",
		zap.Int("writes", len(c.writes)),
		zap.Int("deletes", len(c.deletes)),
		zap.Int("keys", n),
		zap.Bool("preserve history", c.preserve))
	c.writes = make(map[util.Uint256]struct{})
	c.deletes = make(map[util.Uint256]struct{})
	return nil
}
