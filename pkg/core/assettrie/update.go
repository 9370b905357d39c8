package assettrie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/nodestore"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

// update runs the update state machine, the root is only replaced in
// StateCommitted.
func (t *AssetTrie) update(inserts []KeyValue, deletes [][]byte) (util.Uint256, error) {
	var (
		state   State
		newRoot util.Uint256
		path    []State
		err     error
	)
	switch {
	case !t.root.IsZero():
		state = StateIncremental
	case len(inserts) != 0:
		state = StateFreshBuild
	default:
		// Nothing to delete from an empty trie.
		state = StateCommitted
	}
	for {
		path = append(path, state)
		t.log.Debug("trie update",
			zap.Stringer("state", state),
			zap.Stringer("root", t.root),
			zap.Int("inserts", len(inserts)),
			zap.Int("deletes", len(deletes)))
		switch state {
		case StateFreshBuild:
			newRoot, err = t.build(inserts)
			if err != nil {
				return t.root, err
			}
			freshBuilds.Inc()
			state = StateCommitted
		case StateIncremental:
			var ok bool
			newRoot, ok, err = t.incremental(inserts, deletes)
			if err != nil {
				return t.root, err
			}
			if ok {
				state = StateCommitted
			} else {
				state = StateRebuilding
			}
		case StateRebuilding:
			newRoot, err = t.rebuild(inserts, deletes)
			if err != nil {
				return t.root, fmt.Errorf("rebuild failed: %w", err)
			}
			rebuilds.Inc()
			state = StateCommitted
		case StateCommitted:
			t.root = newRoot
			t.path = path
			return newRoot, nil
		}
	}
}

// build creates a new trie holding the items in memory and saves all of its
// nodes in one transaction.
func (t *AssetTrie) build(items []KeyValue) (util.Uint256, error) {
	mem := mpt.NewMemoryNodeStore(t.cfg)
	tr := mpt.NewTrie(t.cfg, t.prefix, mem)
	for _, kv := range items {
		if err := tr.Put(kv.Key, kv.Value); err != nil {
			return util.Uint256{}, fmt.Errorf("failed to put %x: %w", kv.Key, err)
		}
	}
	root, err := tr.Commit()
	if err != nil {
		return util.Uint256{}, err
	}
	if err := t.adapter.EmplaceAll(t.prefix, mem.Drain()); err != nil {
		return util.Uint256{}, err
	}
	return root, nil
}

// incremental applies the changes to the stored trie through a
// ChangeCollector. It returns false if the result can't be verified, nothing
// is written then unless the check failed after the changes were applied.
func (t *AssetTrie) incremental(inserts []KeyValue, deletes [][]byte) (util.Uint256, bool, error) {
	if !t.adapter.Contains(t.root, t.prefix) {
		return util.Uint256{}, false, fmt.Errorf("%w: %s", ErrRootNotFound, t.root)
	}
	if len(deletes) == 1 && len(inserts) == 0 {
		items, err := t.entries(t.root)
		if err != nil {
			return util.Uint256{}, false, err
		}
		if len(items) == 1 && bytes.Equal(items[0].Key, deletes[0]) {
			return util.Uint256{}, true, nil
		}
	}

	cc := nodestore.NewChangeCollectorWithHistoryMode(t.st, t.cfg, t.preserve, t.log)
	tr := mpt.OpenTrie(t.root, t.cfg, t.prefix, cc)
	for _, k := range deletes {
		if err := tr.Delete(k); err != nil && !errors.Is(err, mpt.ErrNotFound) {
			return util.Uint256{}, false, fmt.Errorf("failed to delete %x: %w", k, err)
		}
	}
	for _, kv := range inserts {
		if err := tr.Put(kv.Key, kv.Value); err != nil {
			return util.Uint256{}, false, fmt.Errorf("failed to put %x: %w", kv.Key, err)
		}
	}
	newRoot, err := tr.Commit()
	if err != nil {
		return util.Uint256{}, false, err
	}

	writes, deletions := cc.Stats()
	if !t.verifyPending(cc, newRoot, writes) {
		t.log.Warn("incremental update can't be verified, rebuilding",
			zap.Stringer("root", t.root),
			zap.Stringer("new root", newRoot),
			zap.Int("writes", writes))
		return util.Uint256{}, false, nil
	}
	var deleted []util.Uint256
	if !cc.IsPreservingHistory() {
		deleted = cc.DeletedHashes()
	}
	if err := cc.ApplyChanges(); err != nil {
		return util.Uint256{}, false, err
	}
	t.adapter.Evict(deleted, t.prefix)
	t.log.Debug("incremental update applied",
		zap.Int("writes", writes),
		zap.Int("deletes", deletions),
		zap.Int("removed", len(deleted)))

	if !newRoot.IsZero() && !t.adapter.Durable(newRoot, t.prefix) {
		t.log.Warn("new root is not in the storage, rebuilding",
			zap.Stringer("new root", newRoot))
		return util.Uint256{}, false, nil
	}
	return newRoot, true, nil
}

// verifyPending checks the collected result before it's applied.
func (t *AssetTrie) verifyPending(cc *nodestore.ChangeCollector, newRoot util.Uint256, writes int) bool {
	if t.failVerification {
		return false
	}
	if newRoot.IsZero() {
		return true
	}
	if writes == 0 && newRoot != t.root {
		return false
	}
	return cc.IsPending(newRoot) || t.adapter.Durable(newRoot, t.prefix)
}

// rebuild applies the changes to the full contents of the current version and
// builds the result from scratch.
func (t *AssetTrie) rebuild(inserts []KeyValue, deletes [][]byte) (util.Uint256, error) {
	items, err := t.entries(t.root)
	if err != nil {
		return util.Uint256{}, err
	}
	snapshot := make(map[string][]byte, len(items)+len(inserts))
	for _, kv := range items {
		snapshot[string(kv.Key)] = kv.Value
	}
	for _, k := range deletes {
		delete(snapshot, string(k))
	}
	for _, kv := range inserts {
		if len(kv.Value) == 0 {
			delete(snapshot, string(kv.Key))
			continue
		}
		snapshot[string(kv.Key)] = kv.Value
	}
	t.log.Debug("rebuilding trie",
		zap.Stringer("root", t.root),
		zap.Int("items before", len(items)),
		zap.Int("items after", len(snapshot)))
	if len(snapshot) == 0 {
		return util.Uint256{}, nil
	}
	res := make([]KeyValue, 0, len(snapshot))
	for k, v := range snapshot {
		res = append(res, KeyValue{Key: []byte(k), Value: v})
	}
	return t.build(res)
}
