package dataasset

import (
	"encoding/binary"

	"github.com/nspcc-dev/assetstate/pkg/core/mpt"
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// Main trie keys. Asset records are keyed by the 32-byte asset id, auxiliary
// records have keys of other lengths, so they never collide.
const (
	// tokenIndexPrefix + BE token id -> asset id.
	tokenIndexPrefix byte = 0x01
	// counterKey -> LE next token id.
	counterKey byte = 0x02
)

// Trie namespace tags.
const (
	mainTag        byte = 'M'
	certificateTag byte = 'C'
)

// MainPrefix returns the namespace of the main trie.
func MainPrefix() mpt.Prefix {
	return mpt.TaggedPrefix(nil, mainTag)
}

// CertificatePrefix returns the namespace of the asset's certificate trie.
func CertificatePrefix(assetID util.Uint256) mpt.Prefix {
	return mpt.TaggedPrefix(assetID.Bytes(), certificateTag)
}

func tokenIndexKey(tokenID uint32) []byte {
	return binary.BigEndian.AppendUint32([]byte{tokenIndexPrefix}, tokenID)
}

func isAssetKey(k []byte) bool {
	return len(k) == util.Uint256Size
}
