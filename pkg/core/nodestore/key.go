package nodestore

import (
	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// NamespaceKey returns the storage key prefix shared by all nodes of the
// given trie namespace.
func NamespaceKey(p mpt.Prefix) []byte {
	pb := p.Bytes()
	key := make([]byte, 0, 1+len(pb)+util.Uint256Size)
	key = append(key, byte(storage.DataAsset))
	return append(key, pb...)
}

// NodeKey returns the storage key of the node.
func NodeKey(h util.Uint256, p mpt.Prefix) []byte {
	return append(NamespaceKey(p), h[:]...)
}
