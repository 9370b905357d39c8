package assettrie

import (
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/nodestore"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

// Pruner removes trie nodes that can't be reached from any of the retained
// roots. It must not run concurrently with updates of the same namespace.
type Pruner struct {
	st  storage.Store
	cfg *mpt.Config
	log *zap.Logger
}

// NewPruner creates a Pruner for tries over st.
func NewPruner(st storage.Store, cfg *mpt.Config, log *zap.Logger) *Pruner {
	if cfg == nil {
		cfg = mpt.DefaultConfig
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pruner{st: st, cfg: cfg, log: log}
}

// Prune removes every node of the namespace not reachable from the retain
// list and returns the number of nodes removed. Nodes of other namespaces are
// never touched even if their keys share the namespace prefix.
func (p *Pruner) Prune(prefix mpt.Prefix, retain []util.Uint256) (int, error) {
	marked, err := p.mark(prefix, retain)
	if err != nil {
		return 0, err
	}
	ns := nodestore.NamespaceKey(prefix)
	keyLen := len(ns) + util.Uint256Size
	var removed int
	err = p.st.SeekGC(storage.SeekRange{Prefix: ns}, func(k, _ []byte) bool {
		if len(k) != keyLen {
			return true
		}
		var h util.Uint256
		copy(h[:], k[len(ns):])
		if _, ok := marked[h]; ok {
			return true
		}
		removed++
		return false
	})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep nodes: %w", err)
	}
	prunedNodes.Add(float64(removed))
	p.log.Info("trie nodes pruned",
		zap.Binary("namespace", prefix.Bytes()),
		zap.Int("retained roots", len(retain)),
		zap.Int("live", len(marked)),
		zap.Int("removed", removed))
	return removed, nil
}

func (p *Pruner) mark(prefix mpt.Prefix, roots []util.Uint256) (map[util.Uint256]struct{}, error) {
	ad := nodestore.NewAdapter(p.st, p.cfg, nil, p.log)
	marked := make(map[util.Uint256]struct{})
	for _, r := range roots {
		err := mpt.Walk(r, p.cfg, prefix, ad, func(h util.Uint256) bool {
			if _, ok := marked[h]; ok {
				return false
			}
			marked[h] = struct{}{}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk trie %s: %w", r, err)
		}
	}
	return marked, nil
}
