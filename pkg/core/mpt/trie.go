package mpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/util"
)

const (
	// MaxKeyLength is the max length of the key to put in the trie.
	MaxKeyLength = 1024
	// MaxValueLength is the max length of a leaf node value.
	MaxValueLength = 1 << 20
)

var (
	// ErrNotFound is returned when requested trie item is missing.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidKey is returned for empty keys and keys longer than
	// MaxKeyLength.
	ErrInvalidKey = errors.New("invalid key")
	// ErrValueTooBig is returned for values longer than MaxValueLength.
	ErrValueTooBig = errors.New("value is too big")
)

// Trie is an MPT trie storing all key-value pairs. Changes are kept in
// memory until Commit. Trie is not safe for concurrent use.
type Trie struct {
	cfg    *Config
	prefix Prefix
	store  NodeStore

	root Node

	// seen holds hashes of all nodes loaded from the store and attached to
	// the in-memory trie since the last Commit.
	seen map[util.Uint256]struct{}
	// loaded holds hashes of nodes loaded by the operation in progress.
	loaded []util.Uint256
}

// NewTrie returns an empty trie keeping its nodes in s under prefix p.
func NewTrie(cfg *Config, p Prefix, s NodeStore) *Trie {
	return OpenTrie(util.Uint256{}, cfg, p, s)
}

// OpenTrie returns a trie with the given root, zero root means empty trie.
// Nothing is read from the store until the trie is accessed.
func OpenTrie(root util.Uint256, cfg *Config, p Prefix, s NodeStore) *Trie {
	if cfg == nil {
		cfg = DefaultConfig
	}
	var r Node = EmptyNode{}
	if !root.IsZero() {
		r = NewHashNode(root)
	}
	return &Trie{
		cfg:    cfg,
		prefix: p,
		store:  s,
		root:   r,
		seen:   make(map[util.Uint256]struct{}),
	}
}

func checkKey(key []byte) error {
	if len(key) == 0 || len(key) > MaxKeyLength {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	return nil
}

// begin starts tracking nodes loaded by an operation.
func (t *Trie) begin() {
	t.loaded = t.loaded[:0]
}

// end finishes an operation, loaded nodes are only remembered if the
// operation succeeded and thus attached them to the trie.
func (t *Trie) end(err error) error {
	if err == nil {
		for _, h := range t.loaded {
			t.seen[h] = struct{}{}
		}
	}
	t.loaded = t.loaded[:0]
	return err
}

// Get returns value for the provided key in t.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	t.begin()
	path := toNibbles(key)
	r, bs, err := t.getWithPath(t.root, path)
	if err = t.end(err); err != nil {
		return nil, err
	}
	t.root = r
	return bs, nil
}

// getWithPath returns value the provided path in a subtrie rooting in curr.
// It also returns a current node with all hash nodes along the path
// replaced to their "unhashed" counterparts.
func (t *Trie) getWithPath(curr Node, path []byte) (Node, []byte, error) {
	switch n := curr.(type) {
	case *LeafNode:
		if len(path) == 0 {
			return curr, copySlice(n.value), nil
		}
	case *BranchNode:
		i, path := splitPath(path)
		r, bs, err := t.getWithPath(n.Children[i], path)
		if err != nil {
			return nil, nil, err
		}
		n.Children[i] = r
		return n, bs, nil
	case EmptyNode:
	case *HashNode:
		r, err := t.getFromStore(n.hash)
		if err != nil {
			return nil, nil, err
		}
		return t.getWithPath(r, path)
	case *ExtensionNode:
		if bytes.HasPrefix(path, n.key) {
			r, bs, err := t.getWithPath(n.next, path[len(n.key):])
			if err != nil {
				return nil, nil, err
			}
			n.next = r
			return curr, bs, err
		}
	default:
		panic("invalid MPT node type")
	}
	return curr, nil, ErrNotFound
}

// Put puts key-value pair in t. An empty value deletes the key, deleting a
// missing key this way is not an error.
func (t *Trie) Put(key, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	} else if len(value) > MaxValueLength {
		return ErrValueTooBig
	}
	if len(value) == 0 {
		err := t.Delete(key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	t.begin()
	path := toNibbles(key)
	n := NewLeafNode(copySlice(key), copySlice(value))
	r, err := t.putIntoNode(t.root, path, n)
	if err = t.end(err); err != nil {
		return err
	}
	t.root = r
	return nil
}

// putIntoLeaf puts val to trie if current node is a Leaf.
// It returns Node if curr needs to be replaced and error if any.
func (t *Trie) putIntoLeaf(curr *LeafNode, path []byte, val *LeafNode) (Node, error) {
	if len(path) == 0 {
		if bytes.Equal(curr.value, val.value) {
			return curr, nil
		}
		return val, nil
	}

	b := NewBranchNode()
	b.Children[path[0]] = newSubTrie(path[1:], val)
	b.Children[lastChild] = curr
	return b, nil
}

// putIntoBranch puts val to trie if current node is a Branch.
// It returns Node if curr needs to be replaced and error if any.
func (t *Trie) putIntoBranch(curr *BranchNode, path []byte, val *LeafNode) (Node, error) {
	i, path := splitPath(path)
	r, err := t.putIntoNode(curr.Children[i], path, val)
	if err != nil {
		return nil, err
	}
	if r != curr.Children[i] {
		curr.Children[i] = r
		curr.invalidateCache()
	} else if !r.base().IsFlushed() {
		curr.invalidateCache()
	}
	return curr, nil
}

// putIntoExtension puts val to trie if current node is an Extension.
// It returns Node if curr needs to be replaced and error if any.
func (t *Trie) putIntoExtension(curr *ExtensionNode, path []byte, val *LeafNode) (Node, error) {
	if bytes.HasPrefix(path, curr.key) {
		r, err := t.putIntoNode(curr.next, path[len(curr.key):], val)
		if err != nil {
			return nil, err
		}
		if r != curr.next || !r.base().IsFlushed() {
			curr.next = r
			curr.invalidateCache()
		}
		return curr, nil
	}

	pref := lcp(curr.key, path)
	lp := len(pref)
	keyTail := curr.key[lp:]
	pathTail := path[lp:]

	s1 := newSubTrie(copySlice(keyTail[1:]), curr.next)
	b := NewBranchNode()
	b.Children[keyTail[0]] = s1

	i, pathTail := splitPath(pathTail)
	s2 := newSubTrie(copySlice(pathTail), val)
	b.Children[i] = s2

	if lp > 0 {
		return NewExtensionNode(copySlice(pref), b), nil
	}
	return b, nil
}

// putIntoHash puts val to trie if current node is a HashNode.
// It returns Node if curr needs to be replaced and error if any.
func (t *Trie) putIntoHash(curr *HashNode, path []byte, val *LeafNode) (Node, error) {
	result, err := t.getFromStore(curr.hash)
	if err != nil {
		return nil, err
	}
	return t.putIntoNode(result, path, val)
}

// newSubTrie create new trie containing node at provided path.
func newSubTrie(path []byte, val Node) Node {
	if len(path) == 0 {
		return val
	}
	return NewExtensionNode(path, val)
}

func (t *Trie) putIntoNode(curr Node, path []byte, val *LeafNode) (Node, error) {
	switch n := curr.(type) {
	case *LeafNode:
		return t.putIntoLeaf(n, path, val)
	case *BranchNode:
		return t.putIntoBranch(n, path, val)
	case *ExtensionNode:
		return t.putIntoExtension(n, path, val)
	case *HashNode:
		return t.putIntoHash(n, path, val)
	case EmptyNode:
		return newSubTrie(copySlice(path), val), nil
	default:
		panic("invalid MPT node type")
	}
}

// Delete removes key from trie.
// It returns ErrNotFound on missing key.
func (t *Trie) Delete(key []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	t.begin()
	path := toNibbles(key)
	r, err := t.deleteFromNode(t.root, path)
	if err = t.end(err); err != nil {
		return err
	}
	t.root = r
	return nil
}

func (t *Trie) deleteFromBranch(b *BranchNode, path []byte) (Node, error) {
	i, path := splitPath(path)
	r, err := t.deleteFromNode(b.Children[i], path)
	if err != nil {
		return nil, err
	}
	b.Children[i] = r
	b.invalidateCache()
	var count, index int
	for i := range b.Children {
		if !isEmpty(b.Children[i]) {
			index = i
			count++
		}
	}
	// count is >= 1 because branch node had at least 2 children before deletion.
	if count > 1 {
		return b, nil
	}
	c := b.Children[index]
	if index == lastChild {
		return c, nil
	}
	if h, ok := c.(*HashNode); ok {
		c, err = t.getFromStore(h.hash)
		if err != nil {
			return nil, err
		}
	}
	if e, ok := c.(*ExtensionNode); ok {
		return NewExtensionNode(concat([]byte{byte(index)}, e.key), e.next), nil
	}

	return NewExtensionNode([]byte{byte(index)}, c), nil
}

func (t *Trie) deleteFromExtension(n *ExtensionNode, path []byte) (Node, error) {
	if !bytes.HasPrefix(path, n.key) {
		return nil, ErrNotFound
	}
	r, err := t.deleteFromNode(n.next, path[len(n.key):])
	if err != nil {
		return nil, err
	}
	switch nxt := r.(type) {
	case *ExtensionNode:
		return NewExtensionNode(concat(n.key, nxt.key), nxt.next), nil
	case EmptyNode:
		return nxt, nil
	default:
		n.next = r
	}
	n.invalidateCache()
	return n, nil
}

func (t *Trie) deleteFromNode(curr Node, path []byte) (Node, error) {
	switch n := curr.(type) {
	case *LeafNode:
		if len(path) == 0 {
			return EmptyNode{}, nil
		}
		return nil, ErrNotFound
	case *BranchNode:
		return t.deleteFromBranch(n, path)
	case *ExtensionNode:
		return t.deleteFromExtension(n, path)
	case EmptyNode:
		return nil, ErrNotFound
	case *HashNode:
		newNode, err := t.getFromStore(n.hash)
		if err != nil {
			return nil, err
		}
		return t.deleteFromNode(newNode, path)
	default:
		panic("invalid MPT node type")
	}
}

// StateRoot returns root hash of t, zero hash for an empty trie.
func (t *Trie) StateRoot() util.Uint256 {
	if isEmpty(t.root) {
		return util.Uint256{}
	}
	return t.cfg.nodeHash(t.root)
}

// Commit puts every new node of the trie to the store (children before their
// parents), removes every node loaded from the store that is no longer a part
// of the trie and collapses the trie to its root hash. Commit stops on the
// first store error, the trie should be discarded then.
func (t *Trie) Commit() (util.Uint256, error) {
	live := make(map[util.Uint256]struct{})
	if err := t.flush(t.root, live); err != nil {
		return util.Uint256{}, err
	}
	for h := range t.seen {
		if _, ok := live[h]; ok {
			continue
		}
		if err := t.store.Remove(h, t.prefix); err != nil {
			return util.Uint256{}, fmt.Errorf("failed to remove node %s: %w", h, err)
		}
	}
	t.seen = make(map[util.Uint256]struct{})
	root := t.StateRoot()
	if !root.IsZero() {
		t.root = NewHashNode(root)
	}
	return root, nil
}

func (t *Trie) flush(node Node, live map[util.Uint256]struct{}) error {
	switch n := node.(type) {
	case EmptyNode:
		return nil
	case *HashNode:
		live[n.hash] = struct{}{}
		return nil
	}
	for _, c := range children(node) {
		if err := t.flush(c, live); err != nil {
			return err
		}
	}
	h := t.cfg.nodeHash(node)
	live[h] = struct{}{}
	b := node.base()
	if b.isFlushed {
		return nil
	}
	if err := t.store.Emplace(h, t.prefix, t.cfg.nodeBytes(node)); err != nil {
		return fmt.Errorf("failed to store node %s: %w", h, err)
	}
	b.isFlushed = true
	return nil
}

// getFromStore loads the node and remembers it as loaded by the current
// operation.
func (t *Trie) getFromStore(h util.Uint256) (Node, error) {
	n, err := t.load(h)
	if err != nil {
		return nil, err
	}
	t.loaded = append(t.loaded, h)
	return n, nil
}

func (t *Trie) load(h util.Uint256) (Node, error) {
	data, err := t.store.Get(h, t.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", h, err)
	}
	n, err := DecodeNode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %s: %w", h, err)
	}
	n.base().setCache(data, h)
	return n, nil
}
