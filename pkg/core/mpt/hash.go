package mpt

import (
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// HashNode represents a reference to a node kept in the NodeStore.
type HashNode struct {
	BaseNode
}

var _ Node = (*HashNode)(nil)

// NewHashNode returns hash node with the specified hash.
func NewHashNode(h util.Uint256) *HashNode {
	return &HashNode{
		BaseNode: BaseNode{
			hash:      h,
			hashValid: true,
			isFlushed: true,
		},
	}
}

// Type implements the Node interface.
func (h *HashNode) Type() NodeType { return HashT }

// Hash returns the hash of the referenced node.
func (h *HashNode) Hash() util.Uint256 { return h.hash }
