package stateroot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// SchemaVersion is the database schema version the module works with.
const SchemaVersion = "0.1.0"

var (
	// ErrVersionMismatch is returned by Init for databases of other schema
	// versions.
	ErrVersionMismatch = errors.New("database version mismatch")
	// ErrStateMismatch means that the current root doesn't match the last
	// journal entry.
	ErrStateMismatch = errors.New("stateroot mismatch")
)

// Module keeps the journal of committed main trie roots. Every committed root
// gets the next index, the last one is the current root of the registry.
type Module struct {
	Store storage.Store
	log   *zap.Logger

	mtx          sync.Mutex
	currentLocal atomic.Value
	localIndex   atomic.Uint32
}

// NewModule returns new instance of stateroot module.
func NewModule(s storage.Store, log *zap.Logger) *Module {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Module{
		Store: s,
		log:   log,
	}
	m.currentLocal.Store(util.Uint256{})
	return m
}

// Init checks the database version and loads the current root. An empty
// database is initialized with the current version and the zero root.
func (s *Module) Init() error {
	v, err := storage.Version(s.Store)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		if err := storage.PutVersion(s.Store, SchemaVersion); err != nil {
			return fmt.Errorf("failed to store version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to get version: %w", err)
	case v != SchemaVersion:
		return fmt.Errorf("%w: %s, expected %s", ErrVersionMismatch, v, SchemaVersion)
	}

	current, err := storage.CurrentRoot(s.Store)
	if err != nil {
		return err
	}
	index, err := s.getLocalIndex()
	if err != nil {
		return err
	}
	if index == 0 {
		if !current.IsZero() {
			return fmt.Errorf("%w: current root %s is not journaled", ErrStateMismatch, current)
		}
		s.currentLocal.Store(util.Uint256{})
		s.localIndex.Store(0)
		return nil
	}
	r, err := s.GetStateRoot(index)
	if err != nil {
		return fmt.Errorf("failed to get state root %d: %w", index, err)
	}
	if !r.Root.Equals(current) {
		return fmt.Errorf("%w at %d: %s vs %s", ErrStateMismatch, index, r.Root, current)
	}
	s.currentLocal.Store(r.Root)
	s.localIndex.Store(r.Index)
	updateRootIndexMetric(r.Index)
	s.log.Debug("root journal loaded",
		zap.Uint32("index", r.Index),
		zap.Stringer("root", r.Root))
	return nil
}

// CurrentLocalStateRoot returns the last committed root.
func (s *Module) CurrentLocalStateRoot() util.Uint256 {
	return s.currentLocal.Load().(util.Uint256)
}

// CurrentLocalIndex returns the journal index of the last committed root,
// it's zero for empty journals.
func (s *Module) CurrentLocalIndex() uint32 {
	return s.localIndex.Load()
}

// AddStateRoot journals the root and makes it current. Adding the current
// root again is a no-op returning the existing entry.
func (s *Module) AddStateRoot(root util.Uint256, timestamp uint64) (*state.MPTRoot, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	index := s.localIndex.Load()
	if root.Equals(s.CurrentLocalStateRoot()) {
		if index == 0 {
			return &state.MPTRoot{}, nil
		}
		return s.GetStateRoot(index)
	}
	sr := &state.MPTRoot{
		Index:     index + 1,
		Root:      root,
		Timestamp: timestamp,
	}
	if err := s.addLocalStateRoot(sr); err != nil {
		return nil, err
	}
	s.currentLocal.Store(root)
	s.localIndex.Store(sr.Index)
	updateRootIndexMetric(sr.Index)
	s.log.Debug("state root added",
		zap.Uint32("index", sr.Index),
		zap.Stringer("root", root))
	return sr, nil
}

// LastRoots returns up to n latest journaled roots, the current one first.
func (s *Module) LastRoots(n int) ([]util.Uint256, error) {
	var res []util.Uint256
	for i := s.localIndex.Load(); i > 0 && len(res) < n; i-- {
		r, err := s.GetStateRoot(i)
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				break
			}
			return nil, err
		}
		res = append(res, r.Root)
	}
	return res, nil
}
