package dataasset

import (
	"fmt"

	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

// UserCertificate is a certificate along with the asset it's issued for.
type UserCertificate struct {
	Asset       *state.DataAsset
	Certificate *state.RightToken
}

// GetAssetStateByID returns the asset or nil if there is no such asset.
func (m *Manager) GetAssetStateByID(assetID util.Uint256) (*state.DataAsset, error) {
	m.mainMtx.RLock()
	defer m.mainMtx.RUnlock()

	a, err := m.getAsset(assetID)
	if err != nil {
		return nil, m.lenient(err, zap.Stringer("asset", assetID))
	}
	return a, nil
}

// GetAssetStateByTokenID returns the asset with the given token id or nil if
// there is no such asset.
func (m *Manager) GetAssetStateByTokenID(tokenID uint32) (*state.DataAsset, error) {
	m.mainMtx.RLock()
	defer m.mainMtx.RUnlock()

	data, err := m.main.Get(tokenIndexKey(tokenID))
	if err != nil {
		return nil, fmt.Errorf("failed to get token %d: %w", tokenID, err)
	}
	if data == nil {
		return nil, nil
	}
	id, err := util.Uint256DecodeBytes(data)
	if err != nil {
		m.log.Warn("skipping corrupted token index", zap.Uint32("token id", tokenID), zap.Error(err))
		return nil, nil
	}
	a, err := m.getAsset(id)
	if err != nil {
		return nil, m.lenient(err, zap.Stringer("asset", id))
	}
	return a, nil
}

// GetUserAssets returns all assets owned by the user. It scans the whole
// registry.
func (m *Manager) GetUserAssets(owner util.Uint160) ([]*state.DataAsset, error) {
	assets, err := m.GetAssets()
	if err != nil {
		return nil, err
	}
	var res []*state.DataAsset
	for _, a := range assets {
		if a.Owner.Equals(owner) {
			res = append(res, a)
		}
	}
	return res, nil
}

// GetUserCertificates returns all certificates held by the user. It scans
// certificates of every asset.
func (m *Manager) GetUserCertificates(user util.Uint160) ([]UserCertificate, error) {
	assets, err := m.GetAssets()
	if err != nil {
		return nil, err
	}
	var res []UserCertificate
	for _, a := range assets {
		if a.ChildrenRoot.IsZero() {
			continue
		}
		ct, err := m.certTrie(a.AssetID)
		if err != nil {
			if err = m.lenient(err, zap.Stringer("asset", a.AssetID)); err != nil {
				return nil, err
			}
			continue
		}
		if ct == nil {
			continue
		}
		ct.mtx.RLock()
		certs, err := m.certificates(ct, a.AssetID)
		ct.mtx.RUnlock()
		if err != nil {
			return nil, err
		}
		for _, c := range certs {
			if c.Owner.Equals(user) {
				res = append(res, UserCertificate{Asset: a, Certificate: c})
			}
		}
	}
	return res, nil
}

// GetAssets returns all registered assets in key order, corrupted records are
// skipped.
func (m *Manager) GetAssets() ([]*state.DataAsset, error) {
	m.mainMtx.RLock()
	defer m.mainMtx.RUnlock()

	var res []*state.DataAsset
	err := m.main.Iterate(func(k, v []byte) bool {
		if !isAssetKey(k) {
			return true
		}
		a := new(state.DataAsset)
		if err := io.FromBytes(v, a); err != nil {
			m.log.Warn("skipping corrupted asset", zap.Binary("key", k), zap.Error(err))
			return true
		}
		res = append(res, a)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return res, nil
}
