package mpt

import (
	"bytes"
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// NodeType represents node type.
type NodeType byte

// Node types definitions.
const (
	BranchT    NodeType = 0x00
	ExtensionT NodeType = 0x01
	HashT      NodeType = 0x02
	LeafT      NodeType = 0x03
	EmptyT     NodeType = 0x04
)

// Node represents common interface of all MPT nodes.
type Node interface {
	Type() NodeType
	base() *BaseNode
}

// encodeNode writes n together with its type. Children are written as
// references (hash or empty marker), so the hashes of the children are
// computed with the given config first.
func encodeNode(n Node, c *Config, w *io.BinWriter) {
	w.WriteB(byte(n.Type()))
	switch n := n.(type) {
	case *BranchNode:
		for i := range n.Children {
			encodeChild(n.Children[i], c, w)
		}
	case *ExtensionNode:
		w.WriteVarBytes(n.key)
		encodeChild(n.next, c, w)
	case *LeafNode:
		w.WriteVarBytes(n.key)
		w.WriteVarBytes(n.value)
	case *HashNode:
		w.WriteBytes(n.hash[:])
	case EmptyNode:
	default:
		w.Err = fmt.Errorf("invalid node type: %T", n)
	}
}

func encodeChild(n Node, c *Config, w *io.BinWriter) {
	if isEmpty(n) {
		w.WriteB(byte(EmptyT))
		return
	}
	h := c.nodeHash(n)
	w.WriteB(byte(HashT))
	w.WriteBytes(h[:])
}

func decodeChild(r *io.BinReader) Node {
	switch typ := NodeType(r.ReadB()); typ {
	case EmptyT:
		return EmptyNode{}
	case HashT:
		var h util.Uint256
		r.ReadBytes(h[:])
		return NewHashNode(h)
	default:
		if r.Err == nil {
			r.Err = fmt.Errorf("invalid child reference type: %x", typ)
		}
		return EmptyNode{}
	}
}

// DecodeNode decodes the stored representation of a node. Children of the
// returned node are hash nodes.
func DecodeNode(data []byte) (Node, error) {
	var n Node
	br := bytes.NewReader(data)
	r := io.NewBinReaderFromIO(br)
	switch typ := NodeType(r.ReadB()); typ {
	case BranchT:
		b := NewBranchNode()
		for i := range b.Children {
			b.Children[i] = decodeChild(r)
		}
		n = b
	case ExtensionT:
		e := new(ExtensionNode)
		e.key = r.ReadVarBytes(maxPathLength)
		e.next = decodeChild(r)
		if r.Err == nil && len(e.key) == 0 {
			r.Err = fmt.Errorf("empty extension node key")
		}
		if r.Err == nil && isEmpty(e.next) {
			r.Err = fmt.Errorf("extension node without a child")
		}
		n = e
	case LeafT:
		l := new(LeafNode)
		l.key = r.ReadVarBytes(MaxKeyLength)
		l.value = r.ReadVarBytes(MaxValueLength)
		n = l
	default:
		if r.Err != nil {
			return nil, r.Err
		}
		return nil, fmt.Errorf("invalid node type: %x", typ)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if br.Len() != 0 {
		return nil, io.ErrTrailingData
	}
	return n, nil
}

// children returns references to the children of n, nil for leaves.
func children(n Node) []Node {
	switch n := n.(type) {
	case *BranchNode:
		return n.Children[:]
	case *ExtensionNode:
		return []Node{n.next}
	}
	return nil
}

func isEmpty(n Node) bool {
	return n == nil || n.Type() == EmptyT
}
