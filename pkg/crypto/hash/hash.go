/*
Package hash contains the hash functions trie nodes and records are
addressed with.
*/
package hash

import (
	"crypto/sha256"

	"github.com/nspcc-dev/assetstate/pkg/util"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Sha256 hashes the incoming byte slice using the sha256 algorithm.
func Sha256(data []byte) util.Uint256 {
	return sha256.Sum256(data)
}

// DoubleSha256 performs sha256 twice on the given data.
func DoubleSha256(data []byte) util.Uint256 {
	h1 := Sha256(data)
	return Sha256(h1[:])
}

// Blake2b256 hashes the incoming byte slice using the 256-bit BLAKE2b
// algorithm.
func Blake2b256(data []byte) util.Uint256 {
	return blake2b.Sum256(data)
}

// Keccak256 hashes the incoming byte slice using the legacy Keccak-256
// algorithm (the pre-standard SHA-3 padding).
func Keccak256(data []byte) util.Uint256 {
	var res util.Uint256
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(data)
	h.Sum(res[:0])
	return res
}
