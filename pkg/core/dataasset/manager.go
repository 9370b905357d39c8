/*
Package dataasset implements the two-layer data asset registry. Asset records
live in the main trie keyed by asset id, certificates of every asset live in
a separate certificate trie whose root is stored in the asset record, so the
main root commits to the whole registry.
*/
package dataasset

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nspcc-dev/assetstate/pkg/core/assettrie"
	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/core/nodestore"
	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/nspcc-dev/assetstate/pkg/core/storage"
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

// Config is the Manager configuration.
type Config struct {
	// Trie is the trie configuration, mpt.DefaultConfig if nil.
	Trie *mpt.Config
	// PreserveHistory keeps nodes of previous roots on update.
	PreserveHistory bool
	// Cache creates a node cache for every opened trie, nil means no
	// caching.
	Cache func() nodestore.Cache
	// Now returns the current time in seconds, time.Now is used if nil.
	Now func() uint64
}

// DefaultConfig returns the configuration with history preservation enabled
// and no caches.
func DefaultConfig() Config {
	return Config{PreserveHistory: true}
}

// Manager maintains asset records and their certificates.
type Manager struct {
	st  storage.Store
	cfg Config
	log *zap.Logger

	// gcMtx is held for reading by every mutation and for writing by Prune.
	gcMtx sync.RWMutex

	mainMtx sync.RWMutex
	main    *assettrie.AssetTrie

	certMtx sync.Mutex
	certs   map[util.Uint256]*certTrie

	ids *IDAllocator
}

type certTrie struct {
	mtx  sync.RWMutex
	trie *assettrie.AssetTrie
}

// NewManager returns a Manager with an empty registry.
func NewManager(st storage.Store, cfg Config, log *zap.Logger) (*Manager, error) {
	return NewManagerFromRoot(st, util.Uint256{}, cfg, log)
}

// NewManagerFromRoot opens the registry at the given main root. Certificate
// tries are opened on first use.
func NewManagerFromRoot(st storage.Store, root util.Uint256, cfg Config, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	m := &Manager{
		st:    st,
		cfg:   cfg,
		log:   log,
		certs: make(map[util.Uint256]*certTrie),
	}
	m.main = m.newTrie(MainPrefix(), root)

	var next uint32
	data, err := m.main.Get([]byte{counterKey})
	if err != nil {
		return nil, fmt.Errorf("failed to open main trie at %s: %w", root.String(), err)
	}
	if data != nil {
		next, err = decodeCounter(data)
		if err != nil {
			return nil, err
		}
	}
	m.ids = NewIDAllocator(next)
	log.Info("asset registry opened",
		zap.Stringer("root", root),
		zap.Uint32("next token id", next))
	return m, nil
}

func (m *Manager) newTrie(p mpt.Prefix, root util.Uint256) *assettrie.AssetTrie {
	opts := []assettrie.Option{
		assettrie.WithConfig(m.cfg.Trie),
		assettrie.WithPrefix(p),
		assettrie.WithLogger(m.log),
		assettrie.WithHistoryPreservation(m.cfg.PreserveHistory),
	}
	if m.cfg.Cache != nil {
		opts = append(opts, assettrie.WithCache(m.cfg.Cache()))
	}
	return assettrie.New(m.st, root, opts...)
}

// MainRoot returns the current main trie root.
func (m *Manager) MainRoot() util.Uint256 {
	m.mainMtx.RLock()
	defer m.mainMtx.RUnlock()
	return m.main.Root()
}

// CertificateRoot returns the current certificate trie root of the asset,
// it's zero for unknown assets.
func (m *Manager) CertificateRoot(assetID util.Uint256) (util.Uint256, error) {
	ct, err := m.certTrie(assetID)
	if err != nil || ct == nil {
		return util.Uint256{}, err
	}
	ct.mtx.RLock()
	defer ct.mtx.RUnlock()
	return ct.trie.Root(), nil
}

// NextTokenID returns the token id the next registered asset gets.
func (m *Manager) NextTokenID() uint32 {
	return m.ids.Next()
}

// RegisterAsset stores a new asset. The asset gets the next token id, zero
// AssetID is derived from the asset data, non-zero one must match it. The
// asset is stored as active with an empty certificate trie. It returns the
// asset id and the new main root.
func (m *Manager) RegisterAsset(a *state.DataAsset) (util.Uint256, util.Uint256, error) {
	m.gcMtx.RLock()
	defer m.gcMtx.RUnlock()

	id := state.GenerateAssetID(a.Owner, a.Timestamp, a.RawDataHash)
	if !a.AssetID.IsZero() && !a.AssetID.Equals(id) {
		return util.Uint256{}, util.Uint256{}, fmt.Errorf("%w: expected %s, got %s", ErrInvalidAssetID, id.String(), a.AssetID.String())
	}

	var root util.Uint256
	tokenID, err := m.ids.Allocate(func(tokenID uint32) error {
		m.mainMtx.Lock()
		defer m.mainMtx.Unlock()

		ok, err := m.main.Contains(id[:])
		if err != nil {
			return fmt.Errorf("failed to check asset %s: %w", id.String(), err)
		}
		if ok {
			return fmt.Errorf("%w: %s", ErrAssetExists, id.String())
		}
		rec := *a
		rec.AssetID = id
		rec.TokenID = tokenID
		rec.Status = state.AssetActive
		rec.IsLocked = false
		rec.ChildrenRoot = util.Uint256{}
		rec.UpdatedAt = m.cfg.Now()
		data, err := io.ToBytes(&rec)
		if err != nil {
			return fmt.Errorf("failed to encode asset: %w", err)
		}
		root, err = m.main.BatchInsert([]assettrie.KeyValue{
			{Key: id.Bytes(), Value: data},
			{Key: tokenIndexKey(tokenID), Value: id.Bytes()},
			{Key: []byte{counterKey}, Value: encodeCounter(tokenID + 1)},
		})
		if err != nil {
			return fmt.Errorf("failed to store asset %s: %w", id.String(), err)
		}
		mainRootUpdates.Inc()
		return nil
	})
	if err != nil {
		return util.Uint256{}, util.Uint256{}, err
	}

	m.certMtx.Lock()
	m.certs[id] = &certTrie{trie: m.newTrie(CertificatePrefix(id), util.Uint256{})}
	m.certMtx.Unlock()

	assetsRegistered.Inc()
	m.log.Info("asset registered",
		zap.Stringer("asset", id),
		zap.Uint32("token id", tokenID),
		zap.Stringer("root", root))
	return id, root, nil
}

// TransferAsset changes the owner of an unlocked asset.
func (m *Manager) TransferAsset(assetID util.Uint256, newOwner, currentOwner util.Uint160) (util.Uint256, error) {
	return m.updateAsset(assetID, currentOwner, func(a *state.DataAsset) error {
		if a.Locked() {
			return fmt.Errorf("%w: %s", ErrAssetLocked, assetID.String())
		}
		now := m.cfg.Now()
		a.Owner = newOwner
		a.Nonce++
		a.TransactionCount++
		a.ConfirmTime = now
		return nil
	})
}

// LockAsset locks the asset, locked assets can't be transferred and can't
// get new certificates.
func (m *Manager) LockAsset(assetID util.Uint256, owner util.Uint160) (util.Uint256, error) {
	return m.updateAsset(assetID, owner, func(a *state.DataAsset) error {
		a.Status = state.AssetLocked
		a.IsLocked = true
		return nil
	})
}

// UnlockAsset makes the asset active again.
func (m *Manager) UnlockAsset(assetID util.Uint256, owner util.Uint160) (util.Uint256, error) {
	return m.updateAsset(assetID, owner, func(a *state.DataAsset) error {
		a.Status = state.AssetActive
		a.IsLocked = false
		return nil
	})
}

// updateAsset applies f to the asset owned by owner and stores the result.
func (m *Manager) updateAsset(assetID util.Uint256, owner util.Uint160, f func(*state.DataAsset) error) (util.Uint256, error) {
	m.gcMtx.RLock()
	defer m.gcMtx.RUnlock()
	m.mainMtx.Lock()
	defer m.mainMtx.Unlock()

	a, err := m.getAsset(assetID)
	if err != nil {
		return util.Uint256{}, err
	}
	if a == nil {
		return util.Uint256{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID.String())
	}
	if !a.Owner.Equals(owner) {
		return util.Uint256{}, fmt.Errorf("%w: %s", ErrNotOwner, owner.String())
	}
	if err := f(a); err != nil {
		return util.Uint256{}, err
	}
	return m.putAsset(a)
}

// linkCertificates stores the certificate trie root in the asset record.
// The caller holds the certificate trie lock.
func (m *Manager) linkCertificates(assetID util.Uint256, certRoot util.Uint256) (util.Uint256, error) {
	m.mainMtx.Lock()
	defer m.mainMtx.Unlock()

	a, err := m.getAsset(assetID)
	if err != nil {
		return util.Uint256{}, err
	}
	if a == nil {
		return util.Uint256{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID.String())
	}
	a.ChildrenRoot = certRoot
	return m.putAsset(a)
}

// getAsset reads the asset from the main trie, nil is returned if there is
// no such asset. The caller holds mainMtx.
func (m *Manager) getAsset(assetID util.Uint256) (*state.DataAsset, error) {
	data, err := m.main.Get(assetID.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", assetID.String(), err)
	}
	if data == nil {
		return nil, nil
	}
	a := new(state.DataAsset)
	if err := io.FromBytes(data, a); err != nil {
		return nil, fmt.Errorf("%w: asset %s: %v", ErrCorruptedRecord, assetID.String(), err)
	}
	return a, nil
}

// putAsset stores the asset updating its UpdatedAt. The caller holds mainMtx
// for writing.
func (m *Manager) putAsset(a *state.DataAsset) (util.Uint256, error) {
	a.UpdatedAt = m.cfg.Now()
	data, err := io.ToBytes(a)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("failed to encode asset: %w", err)
	}
	root, err := m.main.Insert(a.AssetID.Bytes(), data)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("failed to store asset %s: %w", a.AssetID.String(), err)
	}
	mainRootUpdates.Inc()
	m.log.Debug("main root updated",
		zap.Stringer("asset", a.AssetID),
		zap.Stringer("root", root))
	return root, nil
}

// certTrie returns the certificate trie of the asset opening it if needed,
// nil is returned for unknown assets.
func (m *Manager) certTrie(assetID util.Uint256) (*certTrie, error) {
	m.certMtx.Lock()
	ct, ok := m.certs[assetID]
	m.certMtx.Unlock()
	if ok {
		return ct, nil
	}

	m.mainMtx.RLock()
	a, err := m.getAsset(assetID)
	m.mainMtx.RUnlock()
	if err != nil || a == nil {
		return nil, err
	}

	m.certMtx.Lock()
	defer m.certMtx.Unlock()
	// Could've been opened concurrently, that one may be ahead of the record.
	if ct, ok := m.certs[assetID]; ok {
		return ct, nil
	}
	ct = &certTrie{trie: m.newTrie(CertificatePrefix(assetID), a.ChildrenRoot)}
	m.certs[assetID] = ct
	return ct, nil
}

// lenient turns ErrCorruptedRecord into a missing record.
func (m *Manager) lenient(err error, fields ...zap.Field) error {
	if errors.Is(err, ErrCorruptedRecord) {
		m.log.Warn("skipping corrupted record", append(fields, zap.Error(err))...)
		return nil
	}
	return err
}
