package mpt

import (
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/util"
)

// Iterate calls f for every key-value pair of the trie (including changes
// not yet committed) in ascending key order until f returns false. Key and
// value must not be modified by f. Nodes loaded from the store are not
// attached to the trie.
func (t *Trie) Iterate(f func(k, v []byte) bool) error {
	_, err := t.iterate(t.root, f)
	return err
}

func (t *Trie) iterate(curr Node, f func(k, v []byte) bool) (bool, error) {
	switch n := curr.(type) {
	case EmptyNode:
		return true, nil
	case *LeafNode:
		return f(n.key, n.value), nil
	case *ExtensionNode:
		return t.iterate(n.next, f)
	case *BranchNode:
		// The value of the key ending here precedes all longer keys.
		cont, err := t.iterate(n.Children[lastChild], f)
		for i := 0; cont && err == nil && i < lastChild; i++ {
			cont, err = t.iterate(n.Children[i], f)
		}
		return cont, err
	case *HashNode:
		r, err := t.load(n.hash)
		if err != nil {
			return false, err
		}
		return t.iterate(r, f)
	default:
		panic("invalid MPT node type")
	}
}

// Walk visits every node reachable from the root stored in s under p. f is
// called for every node hash before its children are visited, returning
// false skips the children. Stored nodes are checked against their hashes.
func Walk(root util.Uint256, cfg *Config, p Prefix, s NodeStore, f func(util.Uint256) bool) error {
	if cfg == nil {
		cfg = DefaultConfig
	}
	if root.IsZero() {
		return nil
	}
	return walk(root, cfg, p, s, f)
}

func walk(h util.Uint256, cfg *Config, p Prefix, s NodeStore, f func(util.Uint256) bool) error {
	if !f(h) {
		return nil
	}
	data, err := s.Get(h, p)
	if err != nil {
		return fmt.Errorf("failed to get node %s: %w", h, err)
	}
	if actual := cfg.Hash(data); actual != h {
		return fmt.Errorf("node %s is corrupted: content hash is %s", h, actual)
	}
	n, err := DecodeNode(data)
	if err != nil {
		return fmt.Errorf("failed to decode node %s: %w", h, err)
	}
	for _, c := range children(n) {
		if hn, ok := c.(*HashNode); ok {
			if err := walk(hn.hash, cfg, p, s, f); err != nil {
				return err
			}
		}
	}
	return nil
}
