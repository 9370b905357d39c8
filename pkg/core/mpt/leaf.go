package mpt

// LeafNode represents MPT's leaf node. It keeps the whole key along with
// the value, so no two leaves of a trie have the same content.
type LeafNode struct {
	BaseNode
	key   []byte
	value []byte
}

var _ Node = (*LeafNode)(nil)

// NewLeafNode returns a leaf node with the specified key and value.
func NewLeafNode(key, value []byte) *LeafNode {
	return &LeafNode{key: key, value: value}
}

// Type implements the Node interface.
func (n *LeafNode) Type() NodeType { return LeafT }

// Key returns the key of the leaf.
func (n *LeafNode) Key() []byte { return n.key }

// Value returns the value stored in the leaf.
func (n *LeafNode) Value() []byte { return n.value }
