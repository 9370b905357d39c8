package dataasset

import (
	"fmt"
	"math"
	"sort"

	"github.com/nspcc-dev/assetstate/pkg/core/state"
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
	"go.uber.org/zap"
)

// IssueCertificate issues a certificate of the active asset to the holder,
// validUntil is optional. It returns the certificate id and the new main
// root.
func (m *Manager) IssueCertificate(assetID util.Uint256, holder util.Uint160, rightType state.RightType, validUntil *uint64) (uint32, util.Uint256, error) {
	if rightType != state.RightUsage && rightType != state.RightAccess {
		return 0, util.Uint256{}, fmt.Errorf("%w: %d", ErrInvalidRightType, rightType)
	}
	m.gcMtx.RLock()
	defer m.gcMtx.RUnlock()

	ct, err := m.certTrie(assetID)
	if err != nil {
		return 0, util.Uint256{}, err
	}
	if ct == nil {
		return 0, util.Uint256{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	ct.mtx.Lock()
	defer ct.mtx.Unlock()

	m.mainMtx.RLock()
	a, err := m.getAsset(assetID)
	m.mainMtx.RUnlock()
	if err != nil {
		return 0, util.Uint256{}, err
	}
	if a == nil {
		return 0, util.Uint256{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	if !a.Active() {
		return 0, util.Uint256{}, fmt.Errorf("%w: %s", ErrAssetInactive, assetID)
	}

	var maxID uint32
	err = ct.trie.Iterate(func(k, _ []byte) bool {
		id, err := state.CertificateIDFromKey(k)
		if err == nil && id > maxID {
			maxID = id
		}
		return true
	})
	if err != nil {
		return 0, util.Uint256{}, fmt.Errorf("failed to list certificates of %s: %w", assetID, err)
	}
	if maxID == math.MaxUint32 {
		return 0, util.Uint256{}, ErrIDsExhausted
	}
	certID := maxID + 1

	now := m.cfg.Now()
	cert := &state.RightToken{
		Version:            state.ProtocolVersion,
		TokenID:            state.GenerateTokenID(a.TokenID, certID),
		CertificateID:      certID,
		RightType:          rightType,
		CreateTime:         now,
		ConfirmTime:        now,
		ValidFrom:          now,
		ValidUntil:         validUntil,
		Owner:              holder,
		Issuer:             a.Owner,
		ParentAssetID:      assetID,
		ParentAssetTokenID: a.TokenID,
		Status:             state.CertificateActive,
	}
	root, err := m.putCertificate(ct, cert)
	if err != nil {
		return 0, util.Uint256{}, err
	}
	certificatesIssued.Inc()
	m.log.Info("certificate issued",
		zap.Stringer("asset", assetID),
		zap.Uint32("certificate", certID),
		zap.Stringer("holder", holder),
		zap.Stringer("root", root))
	return certID, root, nil
}

// RevokeCertificate removes the certificate. The revoker must own either the
// asset or the certificate. It returns the new main root.
func (m *Manager) RevokeCertificate(assetID util.Uint256, certID uint32, revoker util.Uint160) (util.Uint256, error) {
	m.gcMtx.RLock()
	defer m.gcMtx.RUnlock()

	ct, err := m.certTrie(assetID)
	if err != nil {
		return util.Uint256{}, err
	}
	if ct == nil {
		return util.Uint256{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	ct.mtx.Lock()
	defer ct.mtx.Unlock()

	m.mainMtx.RLock()
	a, err := m.getAsset(assetID)
	m.mainMtx.RUnlock()
	if err != nil {
		return util.Uint256{}, err
	}
	if a == nil {
		return util.Uint256{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	cert, err := m.getCertificate(ct, assetID, certID)
	if err != nil {
		return util.Uint256{}, err
	}
	if cert == nil {
		return util.Uint256{}, fmt.Errorf("%w: %s/%d", ErrCertificateNotFound, assetID, certID)
	}
	if !a.Owner.Equals(revoker) && !cert.Owner.Equals(revoker) {
		return util.Uint256{}, fmt.Errorf("%w: %s", ErrInsufficientPermissions, revoker)
	}

	certRoot, err := ct.trie.Remove(state.CertificateKey(certID))
	if err != nil {
		return util.Uint256{}, fmt.Errorf("failed to remove certificate %s/%d: %w", assetID, certID, err)
	}
	root, err := m.linkCertificates(assetID, certRoot)
	if err != nil {
		return util.Uint256{}, err
	}
	m.log.Info("certificate revoked",
		zap.Stringer("asset", assetID),
		zap.Uint32("certificate", certID),
		zap.Stringer("root", root))
	return root, nil
}

// UpdateCertificateStatus sets the status of the certificate. It returns the
// new main root.
func (m *Manager) UpdateCertificateStatus(assetID util.Uint256, certID uint32, status state.CertificateStatus) (util.Uint256, error) {
	if status != state.CertificateActive && status != state.CertificateExpired {
		return util.Uint256{}, fmt.Errorf("%w: %d", ErrInvalidStatus, status)
	}
	m.gcMtx.RLock()
	defer m.gcMtx.RUnlock()

	ct, err := m.certTrie(assetID)
	if err != nil {
		return util.Uint256{}, err
	}
	if ct == nil {
		return util.Uint256{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	ct.mtx.Lock()
	defer ct.mtx.Unlock()

	cert, err := m.getCertificate(ct, assetID, certID)
	if err != nil {
		return util.Uint256{}, err
	}
	if cert == nil {
		return util.Uint256{}, fmt.Errorf("%w: %s/%d", ErrCertificateNotFound, assetID, certID)
	}
	cert.Status = status
	return m.putCertificate(ct, cert)
}

// putCertificate stores the certificate and links the new certificate trie
// root to the asset. The caller holds the certificate trie lock.
func (m *Manager) putCertificate(ct *certTrie, cert *state.RightToken) (util.Uint256, error) {
	data, err := io.ToBytes(cert)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("failed to encode certificate: %w", err)
	}
	certRoot, err := ct.trie.Insert(state.CertificateKey(cert.CertificateID), data)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("failed to store certificate %s/%d: %w", cert.ParentAssetID, cert.CertificateID, err)
	}
	return m.linkCertificates(cert.ParentAssetID, certRoot)
}

// getCertificate reads the certificate, nil is returned if there is no such
// certificate. The caller holds the certificate trie lock.
func (m *Manager) getCertificate(ct *certTrie, assetID util.Uint256, certID uint32) (*state.RightToken, error) {
	data, err := ct.trie.Get(state.CertificateKey(certID))
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate %s/%d: %w", assetID, certID, err)
	}
	if data == nil {
		return nil, nil
	}
	cert := new(state.RightToken)
	if err := io.FromBytes(data, cert); err != nil {
		return nil, fmt.Errorf("%w: certificate %s/%d: %v", ErrCorruptedRecord, assetID, certID, err)
	}
	return cert, nil
}

// GetCertificateState returns the certificate or nil if there is no such
// certificate.
func (m *Manager) GetCertificateState(assetID util.Uint256, certID uint32) (*state.RightToken, error) {
	ct, err := m.certTrie(assetID)
	if err != nil || ct == nil {
		return nil, m.lenient(err, zap.Stringer("asset", assetID))
	}
	ct.mtx.RLock()
	defer ct.mtx.RUnlock()

	cert, err := m.getCertificate(ct, assetID, certID)
	if err != nil {
		return nil, m.lenient(err, zap.Stringer("asset", assetID), zap.Uint32("certificate", certID))
	}
	return cert, nil
}

// GetAssetCertificates returns all certificates of the asset sorted by id.
func (m *Manager) GetAssetCertificates(assetID util.Uint256) ([]*state.RightToken, error) {
	ct, err := m.certTrie(assetID)
	if err != nil || ct == nil {
		return nil, m.lenient(err, zap.Stringer("asset", assetID))
	}
	ct.mtx.RLock()
	defer ct.mtx.RUnlock()
	return m.certificates(ct, assetID)
}

// certificates decodes all certificates of the trie skipping corrupted ones.
func (m *Manager) certificates(ct *certTrie, assetID util.Uint256) ([]*state.RightToken, error) {
	var res []*state.RightToken
	err := ct.trie.Iterate(func(k, v []byte) bool {
		cert := new(state.RightToken)
		if err := io.FromBytes(v, cert); err != nil {
			m.log.Warn("skipping corrupted certificate",
				zap.Stringer("asset", assetID),
				zap.Binary("key", k),
				zap.Error(err))
			return true
		}
		res = append(res, cert)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates of %s: %w", assetID, err)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CertificateID < res[j].CertificateID
	})
	return res, nil
}
