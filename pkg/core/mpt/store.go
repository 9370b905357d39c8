package mpt

import (
	"errors"
	"sync"

	"github.com/nspcc-dev/assetstate/pkg/util"
)

// ErrNodeNotFound is returned by NodeStore implementations when there is no
// node with the given hash in the given namespace.
var ErrNodeNotFound = errors.New("node not found")

// Prefix is the namespace a trie keeps its nodes in. Key is an arbitrary
// byte string (an asset id for certificate tries), Tag is an optional single
// byte distinguishing tries sharing the same Key.
type Prefix struct {
	Key []byte
	Tag *byte
}

// TaggedPrefix returns a Prefix with both parts set.
func TaggedPrefix(key []byte, tag byte) Prefix {
	return Prefix{Key: key, Tag: &tag}
}

// Bytes returns the Key followed by the Tag (if any).
func (p Prefix) Bytes() []byte {
	res := make([]byte, 0, len(p.Key)+1)
	res = append(res, p.Key...)
	if p.Tag != nil {
		res = append(res, *p.Tag)
	}
	return res
}

// NodeStore is a content-addressed storage for trie nodes.
type NodeStore interface {
	// Get returns the stored representation of the node or ErrNodeNotFound.
	Get(h util.Uint256, p Prefix) ([]byte, error)
	// Contains checks for node presence.
	Contains(h util.Uint256, p Prefix) bool
	// Insert stores the value under its own hash and returns this hash.
	Insert(p Prefix, value []byte) (util.Uint256, error)
	// Emplace stores the value under the given hash.
	Emplace(h util.Uint256, p Prefix, value []byte) error
	// Remove deletes the node, removing an absent node is not an error.
	Remove(h util.Uint256, p Prefix) error
}

// MemoryNodeStore is a reference counted in-memory NodeStore. It's used to
// build a trie from scratch before saving all of its nodes at once. It
// ignores prefixes, so a single MemoryNodeStore holds one trie.
type MemoryNodeStore struct {
	cfg *Config

	lock  sync.RWMutex
	nodes map[util.Uint256]*memNode
}

type memNode struct {
	data []byte
	refs int
}

var _ NodeStore = (*MemoryNodeStore)(nil)

// NewMemoryNodeStore creates an empty MemoryNodeStore hashing with cfg
// (DefaultConfig if nil).
func NewMemoryNodeStore(cfg *Config) *MemoryNodeStore {
	if cfg == nil {
		cfg = DefaultConfig
	}
	return &MemoryNodeStore{
		cfg:   cfg,
		nodes: make(map[util.Uint256]*memNode),
	}
}

// Get implements the NodeStore interface.
func (m *MemoryNodeStore) Get(h util.Uint256, _ Prefix) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	n, ok := m.nodes[h]
	if !ok || n.refs <= 0 {
		return nil, ErrNodeNotFound
	}
	return n.data, nil
}

// Contains implements the NodeStore interface.
func (m *MemoryNodeStore) Contains(h util.Uint256, p Prefix) bool {
	_, err := m.Get(h, p)
	return err == nil
}

// Insert implements the NodeStore interface.
func (m *MemoryNodeStore) Insert(p Prefix, value []byte) (util.Uint256, error) {
	h := m.cfg.Hash(value)
	return h, m.Emplace(h, p, value)
}

// Emplace implements the NodeStore interface, it increments the reference
// counter of the node.
func (m *MemoryNodeStore) Emplace(h util.Uint256, _ Prefix, value []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	n, ok := m.nodes[h]
	if !ok {
		n = &memNode{data: copySlice(value)}
		m.nodes[h] = n
	}
	n.refs++
	return nil
}

// Remove implements the NodeStore interface, it decrements the reference
// counter of the node.
func (m *MemoryNodeStore) Remove(h util.Uint256, _ Prefix) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if n, ok := m.nodes[h]; ok {
		n.refs--
	}
	return nil
}

// Len returns the number of live nodes.
func (m *MemoryNodeStore) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	var cnt int
	for _, n := range m.nodes {
		if n.refs > 0 {
			cnt++
		}
	}
	return cnt
}

// Drain returns all live nodes and empties the store.
func (m *MemoryNodeStore) Drain() map[util.Uint256][]byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := make(map[util.Uint256][]byte, len(m.nodes))
	for h, n := range m.nodes {
		if n.refs > 0 {
			res[h] = n.data
		}
	}
	m.nodes = make(map[util.Uint256]*memNode)
	return res
}
