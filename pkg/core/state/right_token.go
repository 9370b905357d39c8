package state

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// RightType is the kind of right a certificate grants.
type RightType byte

// Right types.
const (
	RightUsage  RightType = 1
	RightAccess RightType = 2
)

// String implements the fmt.Stringer interface.
func (t RightType) String() string {
	switch t {
	case RightUsage:
		return "usage"
	case RightAccess:
		return "access"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// RightTypeFromString parses the result of RightType.String.
func RightTypeFromString(s string) (RightType, error) {
	switch s {
	case "usage":
		return RightUsage, nil
	case "access":
		return RightAccess, nil
	default:
		return 0, fmt.Errorf("unknown right type %q", s)
	}
}

// CertificateStatus is the status of a RightToken.
type CertificateStatus byte

// Certificate statuses.
const (
	CertificateActive  CertificateStatus = 1
	CertificateExpired CertificateStatus = 2
)

// String implements the fmt.Stringer interface.
func (s CertificateStatus) String() string {
	switch s {
	case CertificateActive:
		return "active"
	case CertificateExpired:
		return "expired"
	default:
		return fmt.Sprintf("unknown(%d)", byte(s))
	}
}

// CertificateStatusFromString parses the result of CertificateStatus.String.
func CertificateStatusFromString(s string) (CertificateStatus, error) {
	switch s {
	case "active":
		return CertificateActive, nil
	case "expired":
		return CertificateExpired, nil
	default:
		return 0, fmt.Errorf("unknown certificate status %q", s)
	}
}

// RightToken is a certificate issued for a data asset, it's stored in the
// certificate trie of the asset.
type RightToken struct {
	Version string `json:"version"`
	// TokenID is "<parent token id>|<certificate id>".
	TokenID       string    `json:"tokenid"`
	CertificateID uint32    `json:"certificateid"`
	RightType     RightType `json:"righttype"`

	CreateTime  uint64 `json:"createtime"`
	ConfirmTime uint64 `json:"confirmtime"`
	ValidFrom   uint64 `json:"validfrom"`
	// ValidUntil is nil for certificates that never expire.
	ValidUntil *uint64 `json:"validuntil,omitempty"`

	Owner  util.Uint160 `json:"owner"`
	Issuer util.Uint160 `json:"issuer"`
	Nonce  uint32       `json:"nonce"`

	ParentAssetID      util.Uint256 `json:"parentassetid"`
	ParentAssetTokenID uint32       `json:"parentassettokenid"`

	Status CertificateStatus `json:"status"`
	// RightTokenFrom optionally refers to the certificate this one is
	// derived from.
	RightTokenFrom []byte `json:"righttokenfrom,omitempty"`
	Signature      []byte `json:"signature"`
}

// GenerateTokenID returns the token id of a certificate.
func GenerateTokenID(parentTokenID uint32, certificateID uint32) string {
	return strconv.FormatUint(uint64(parentTokenID), 10) + "|" + strconv.FormatUint(uint64(certificateID), 10)
}

// CertificateKey returns the certificate trie key for the id, it's a
// little-endian uint32.
func CertificateKey(id uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, id)
}

// CertificateIDFromKey is the inverse of CertificateKey.
func CertificateIDFromKey(key []byte) (uint32, error) {
	if len(key) != 4 {
		return 0, fmt.Errorf("invalid certificate key length %d", len(key))
	}
	return binary.LittleEndian.Uint32(key), nil
}

// Valid tells whether the certificate is active at the given time.
func (t *RightToken) Valid(now uint64) bool {
	return t.Status == CertificateActive && now >= t.ValidFrom &&
		(t.ValidUntil == nil || now <= *t.ValidUntil)
}

// Expired tells whether the certificate validity period is over at the given
// time.
func (t *RightToken) Expired(now uint64) bool {
	return t.ValidUntil != nil && now > *t.ValidUntil
}

// EncodeBinary implements the io.Serializable interface.
func (t *RightToken) EncodeBinary(w *io.BinWriter) {
	w.WriteString(t.Version)
	w.WriteString(t.TokenID)
	w.WriteU32LE(t.CertificateID)
	w.WriteB(byte(t.RightType))
	w.WriteU64LE(t.CreateTime)
	w.WriteU64LE(t.ConfirmTime)
	w.WriteU64LE(t.ValidFrom)
	w.WriteBool(t.ValidUntil != nil)
	if t.ValidUntil != nil {
		w.WriteU64LE(*t.ValidUntil)
	}
	t.Owner.EncodeBinary(w)
	t.Issuer.EncodeBinary(w)
	w.WriteU32LE(t.Nonce)
	t.ParentAssetID.EncodeBinary(w)
	w.WriteU32LE(t.ParentAssetTokenID)
	w.WriteB(byte(t.Status))
	w.WriteBool(t.RightTokenFrom != nil)
	if t.RightTokenFrom != nil {
		w.WriteVarBytes(t.RightTokenFrom)
	}
	w.WriteVarBytes(t.Signature)
}

// DecodeBinary implements the io.Serializable interface.
func (t *RightToken) DecodeBinary(r *io.BinReader) {
	t.Version = r.ReadString()
	t.TokenID = r.ReadString()
	t.CertificateID = r.ReadU32LE()
	t.RightType = RightType(r.ReadB())
	t.CreateTime = r.ReadU64LE()
	t.ConfirmTime = r.ReadU64LE()
	t.ValidFrom = r.ReadU64LE()
	t.ValidUntil = nil
	if r.ReadBool() {
		until := r.ReadU64LE()
		t.ValidUntil = &until
	}
	t.Owner.DecodeBinary(r)
	t.Issuer.DecodeBinary(r)
	t.Nonce = r.ReadU32LE()
	t.ParentAssetID.DecodeBinary(r)
	t.ParentAssetTokenID = r.ReadU32LE()
	t.Status = CertificateStatus(r.ReadB())
	t.RightTokenFrom = nil
	if r.ReadBool() {
		t.RightTokenFrom = r.ReadVarBytes()
	}
	t.Signature = r.ReadVarBytes()
	if r.Err != nil {
		return
	}
	if t.RightType != RightUsage && t.RightType != RightAccess {
		r.Err = fmt.Errorf("invalid right type %d", t.RightType)
	} else if t.Status != CertificateActive && t.Status != CertificateExpired {
		r.Err = fmt.Errorf("invalid certificate status %d", t.Status)
	}
}
