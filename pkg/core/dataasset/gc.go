package dataasset

import (
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/assettrie"
	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

// RetainedRoots returns certificate trie roots referenced by assets of the
// given main roots along with the current ones, grouped by asset id. Every
// asset of the given main roots has an entry even if it has no certificates.
func (m *Manager) RetainedRoots(mainRoots []util.Uint256) (map[util.Uint256][]util.Uint256, error) {
	m.gcMtx.RLock()
	defer m.gcMtx.RUnlock()
	return m.retainedRoots(mainRoots)
}

func (m *Manager) retainedRoots(mainRoots []util.Uint256) (map[util.Uint256][]util.Uint256, error) {
	res := make(map[util.Uint256][]util.Uint256)
	add := func(id, root util.Uint256) {
		roots, ok := res[id]
		if !ok {
			res[id] = nil
		}
		if root.IsZero() {
			return
		}
		for _, r := range roots {
			if r == root {
				return
			}
		}
		res[id] = append(roots, root)
	}

	for _, root := range mainRoots {
		var decodeErr error
		tr := m.newTrie(MainPrefix(), root)
		err := tr.Iterate(func(k, v []byte) bool {
			if !isAssetKey(k) {
				return true
			}
			a := new(state.DataAsset)
			if err := io.FromBytes(v, a); err != nil {
				decodeErr = fmt.Errorf("%w: asset %x at %s: %v", ErrCorruptedRecord, k, root, err)
				return false
			}
			add(a.AssetID, a.ChildrenRoot)
			return true
		})
		if err == nil {
			err = decodeErr
		}
		if err != nil {
			return nil, fmt.Errorf("failed to collect certificate roots of %s: %w", root, err)
		}
	}

	m.certMtx.Lock()
	for id, ct := range m.certs {
		ct.mtx.RLock()
		add(id, ct.trie.Root())
		ct.mtx.RUnlock()
	}
	m.certMtx.Unlock()
	return res, nil
}

// Prune removes nodes of both layers that are not reachable from the given
// main roots and the current state. It returns the number of nodes removed.
// Mutations are blocked while it runs.
func (m *Manager) Prune(mainRoots []util.Uint256) (int, error) {
	m.gcMtx.Lock()
	defer m.gcMtx.Unlock()

	retain := append([]util.Uint256{m.MainRoot()}, mainRoots...)
	certRoots, err := m.retainedRoots(retain)
	if err != nil {
		return 0, err
	}

	p := assettrie.NewPruner(m.st, m.cfg.Trie, m.log)
	total, err := p.Prune(MainPrefix(), retain)
	if err != nil {
		return 0, fmt.Errorf("failed to prune main trie: %w", err)
	}
	for id, roots := range certRoots {
		n, err := p.Prune(CertificatePrefix(id), roots)
		if err != nil {
			return total, fmt.Errorf("failed to prune certificates of %s: %w", id, err)
		}
		total += n
	}
	m.log.Info("registry pruned",
		zap.Int("main roots", len(retain)),
		zap.Int("assets", len(certRoots)),
		zap.Int("removed", total))
	return total, nil
}
