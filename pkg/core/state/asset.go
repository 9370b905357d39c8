package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/assetstate/pkg/crypto/hash"
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// ProtocolVersion is the version of the records created by this package.
const ProtocolVersion = "1.0"

// DefaultCurrency is the currency of the default pricing configuration.
const DefaultCurrency = "NATIVE"

// maxLabels is the maximum number of labels of a DataAsset.
const maxLabels = 256

// AssetStatus is the status of a DataAsset.
type AssetStatus byte

// Asset statuses.
const (
	AssetActive AssetStatus = 1
	AssetLocked AssetStatus = 2
)

// String implements the fmt.Stringer interface.
func (s AssetStatus) String() string {
	switch s {
	case AssetActive:
		return "active"
	case AssetLocked:
		return "locked"
	default:
		return fmt.Sprintf("unknown(%d)", byte(s))
	}
}

// DataAsset is the record of a registered data asset stored in the main
// trie.
type DataAsset struct {
	Version string `json:"version"`
	// AssetID is derived from the owner, timestamp and raw data hash.
	AssetID util.Uint256 `json:"assetid"`
	// TokenID is the sequential number of the asset.
	TokenID uint32 `json:"tokenid"`

	Name        string   `json:"name"`
	Description string   `json:"description"`
	Quantity    string   `json:"quantity"`
	Labels      []string `json:"labels"`

	StatisticalCharacteristic string       `json:"statisticalcharacteristic"`
	AnalyzingFeature          string       `json:"analyzingfeature"`
	Integrity                 string       `json:"integrity"`
	RawDataHash               util.Uint256 `json:"rawdatahash"`

	Owner util.Uint160 `json:"owner"`

	MetadataCID        string       `json:"metadatacid"`
	DataCIDMerkleNodes []MerkleNode `json:"datacidmerklenodes"`

	Timestamp   uint64 `json:"timestamp"`
	ConfirmTime uint64 `json:"confirmtime"`
	Signature   []byte `json:"signature"`

	Nonce    uint32 `json:"nonce"`
	IsLocked bool   `json:"islocked"`

	EncryptionInfo EncryptionInfo `json:"encryptioninfo"`

	// ChildrenRoot is the root of the asset's certificate trie.
	ChildrenRoot util.Uint256 `json:"childrenroot"`

	ViewCount        uint64      `json:"viewcount"`
	DownloadCount    uint64      `json:"downloadcount"`
	TransactionCount uint64      `json:"transactioncount"`
	TotalRevenue     uint256.Int `json:"totalrevenue"`

	PricingConfig PricingConfig `json:"pricingconfig"`
	Status        AssetStatus   `json:"status"`
	UpdatedAt     uint64        `json:"updatedat"`
}

// MerkleNode is a node of the data CID Merkle tree.
type MerkleNode struct {
	Hash   util.Uint256 `json:"hash"`
	IsLeaf bool         `json:"isleaf"`
	// Data is optional, nil means none.
	Data []byte `json:"data,omitempty"`
}

// EncryptionInfo describes the encryption of the asset data.
type EncryptionInfo struct {
	Algorithm      string       `json:"algorithm"`
	KeyLength      uint32       `json:"keylength"`
	ParametersHash util.Uint256 `json:"parametershash"`
	IsEncrypted    bool         `json:"isencrypted"`
}

// PricingConfig is the asset price.
type PricingConfig struct {
	BasePrice uint256.Int `json:"baseprice"`
	Currency  string      `json:"currency"`
}

// NewDataAsset returns an active DataAsset of the current version with the
// default pricing configuration.
func NewDataAsset() *DataAsset {
	return &DataAsset{
		Version:       ProtocolVersion,
		PricingConfig: PricingConfig{Currency: DefaultCurrency},
		Status:        AssetActive,
	}
}

// GenerateAssetID returns the identifier of the asset created by the owner
// at the given time for the given data, it's the Blake2b-256 hash of the
// owner, the little-endian timestamp and the data hash.
func GenerateAssetID(owner util.Uint160, timestamp uint64, dataHash util.Uint256) util.Uint256 {
	buf := make([]byte, 0, util.Uint160Size+8+util.Uint256Size)
	buf = append(buf, owner[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, timestamp)
	buf = append(buf, dataHash[:]...)
	return hash.Blake2b256(buf)
}

// Locked tells whether the asset is locked either by the flag or by the
// status.
func (a *DataAsset) Locked() bool {
	return a.IsLocked || a.Status == AssetLocked
}

// Active tells whether the asset can be used.
func (a *DataAsset) Active() bool {
	return a.Status == AssetActive && !a.Locked()
}

// EncodeBinary implements the io.Serializable interface.
func (a *DataAsset) EncodeBinary(w *io.BinWriter) {
	w.WriteString(a.Version)
	a.AssetID.EncodeBinary(w)
	w.WriteU32LE(a.TokenID)
	w.WriteString(a.Name)
	w.WriteString(a.Description)
	w.WriteString(a.Quantity)
	w.WriteVarUint(uint64(len(a.Labels)))
	for _, l := range a.Labels {
		w.WriteString(l)
	}
	w.WriteString(a.StatisticalCharacteristic)
	w.WriteString(a.AnalyzingFeature)
	w.WriteString(a.Integrity)
	a.RawDataHash.EncodeBinary(w)
	a.Owner.EncodeBinary(w)
	w.WriteString(a.MetadataCID)
	io.WriteArray(w, a.DataCIDMerkleNodes)
	w.WriteU64LE(a.Timestamp)
	w.WriteU64LE(a.ConfirmTime)
	w.WriteVarBytes(a.Signature)
	w.WriteU32LE(a.Nonce)
	w.WriteBool(a.IsLocked)
	a.EncryptionInfo.EncodeBinary(w)
	a.ChildrenRoot.EncodeBinary(w)
	w.WriteU64LE(a.ViewCount)
	w.WriteU64LE(a.DownloadCount)
	w.WriteU64LE(a.TransactionCount)
	writeAmount(w, &a.TotalRevenue)
	a.PricingConfig.EncodeBinary(w)
	w.WriteB(byte(a.Status))
	w.WriteU64LE(a.UpdatedAt)
}

// DecodeBinary implements the io.Serializable interface.
func (a *DataAsset) DecodeBinary(r *io.BinReader) {
	a.Version = r.ReadString()
	a.AssetID.DecodeBinary(r)
	a.TokenID = r.ReadU32LE()
	a.Name = r.ReadString()
	a.Description = r.ReadString()
	a.Quantity = r.ReadString()
	n := r.ReadVarUint()
	if n > maxLabels {
		r.Err = fmt.Errorf("too many labels: %d", n)
		return
	}
	a.Labels = nil
	for i := uint64(0); i < n && r.Err == nil; i++ {
		a.Labels = append(a.Labels, r.ReadString())
	}
	a.StatisticalCharacteristic = r.ReadString()
	a.AnalyzingFeature = r.ReadString()
	a.Integrity = r.ReadString()
	a.RawDataHash.DecodeBinary(r)
	a.Owner.DecodeBinary(r)
	a.MetadataCID = r.ReadString()
	io.ReadArray(r, &a.DataCIDMerkleNodes)
	a.Timestamp = r.ReadU64LE()
	a.ConfirmTime = r.ReadU64LE()
	a.Signature = r.ReadVarBytes()
	a.Nonce = r.ReadU32LE()
	a.IsLocked = r.ReadBool()
	a.EncryptionInfo.DecodeBinary(r)
	a.ChildrenRoot.DecodeBinary(r)
	a.ViewCount = r.ReadU64LE()
	a.DownloadCount = r.ReadU64LE()
	a.TransactionCount = r.ReadU64LE()
	readAmount(r, &a.TotalRevenue)
	a.PricingConfig.DecodeBinary(r)
	a.Status = AssetStatus(r.ReadB())
	a.UpdatedAt = r.ReadU64LE()
	if r.Err == nil && a.Status != AssetActive && a.Status != AssetLocked {
		r.Err = fmt.Errorf("invalid asset status %d", a.Status)
	}
}

// EncodeBinary implements the io.Serializable interface.
func (n MerkleNode) EncodeBinary(w *io.BinWriter) {
	n.Hash.EncodeBinary(w)
	w.WriteBool(n.IsLeaf)
	w.WriteBool(n.Data != nil)
	if n.Data != nil {
		w.WriteVarBytes(n.Data)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (n *MerkleNode) DecodeBinary(r *io.BinReader) {
	n.Hash.DecodeBinary(r)
	n.IsLeaf = r.ReadBool()
	n.Data = nil
	if r.ReadBool() {
		n.Data = r.ReadVarBytes()
	}
}

// EncodeBinary implements the io.Serializable interface.
func (e *EncryptionInfo) EncodeBinary(w *io.BinWriter) {
	w.WriteString(e.Algorithm)
	w.WriteU32LE(e.KeyLength)
	e.ParametersHash.EncodeBinary(w)
	w.WriteBool(e.IsEncrypted)
}

// DecodeBinary implements the io.Serializable interface.
func (e *EncryptionInfo) DecodeBinary(r *io.BinReader) {
	e.Algorithm = r.ReadString()
	e.KeyLength = r.ReadU32LE()
	e.ParametersHash.DecodeBinary(r)
	e.IsEncrypted = r.ReadBool()
}

// EncodeBinary implements the io.Serializable interface.
func (p *PricingConfig) EncodeBinary(w *io.BinWriter) {
	writeAmount(w, &p.BasePrice)
	w.WriteString(p.Currency)
}

// DecodeBinary implements the io.Serializable interface.
func (p *PricingConfig) DecodeBinary(r *io.BinReader) {
	readAmount(r, &p.BasePrice)
	p.Currency = r.ReadString()
}

// Amounts are 32-byte big-endian.
func writeAmount(w *io.BinWriter, v *uint256.Int) {
	b := v.Bytes32()
	w.WriteBytes(b[:])
}

func readAmount(r *io.BinReader, v *uint256.Int) {
	var b [32]byte
	r.ReadBytes(b[:])
	v.SetBytes32(b[:])
}

// Amounts are decimal strings in JSON.
func amountToJSON(v *uint256.Int) string {
	return v.ToBig().String()
}

func amountFromJSON(s string, v *uint256.Int) error {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("invalid amount %q", s)
	}
	if b.Sign() < 0 {
		return errors.New("negative amount")
	}
	if overflow := v.SetFromBig(b); overflow {
		return fmt.Errorf("amount %s is too big", s)
	}
	return nil
}

type (
	dataAssetAlias DataAsset
	dataAssetAux   struct {
		*dataAssetAlias
		TotalRevenue string `json:"totalrevenue"`
	}
	pricingConfigAux struct {
		BasePrice string `json:"baseprice"`
		Currency  string `json:"currency"`
	}
)

// MarshalJSON implements the json.Marshaler interface.
func (a *DataAsset) MarshalJSON() ([]byte, error) {
	return json.Marshal(&dataAssetAux{
		dataAssetAlias: (*dataAssetAlias)(a),
		TotalRevenue:   amountToJSON(&a.TotalRevenue),
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (a *DataAsset) UnmarshalJSON(data []byte) error {
	aux := &dataAssetAux{dataAssetAlias: (*dataAssetAlias)(a)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if aux.TotalRevenue == "" {
		a.TotalRevenue.Clear()
		return nil
	}
	return amountFromJSON(aux.TotalRevenue, &a.TotalRevenue)
}

// MarshalJSON implements the json.Marshaler interface.
func (p PricingConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(&pricingConfigAux{
		BasePrice: amountToJSON(&p.BasePrice),
		Currency:  p.Currency,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (p *PricingConfig) UnmarshalJSON(data []byte) error {
	aux := new(pricingConfigAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	p.Currency = aux.Currency
	if aux.BasePrice == "" {
		p.BasePrice.Clear()
		return nil
	}
	return amountFromJSON(aux.BasePrice, &p.BasePrice)
}
