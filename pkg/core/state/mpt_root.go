package state

import (
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// MPTRoot is a committed main trie root along with its position in the root
// journal.
type MPTRoot struct {
	Version   byte         `json:"version"`
	Index     uint32       `json:"index"`
	Root      util.Uint256 `json:"stateroot"`
	Timestamp uint64       `json:"time"`
}

// EncodeBinary implements the io.Serializable interface.
func (s *MPTRoot) EncodeBinary(w *io.BinWriter) {
	w.WriteB(s.Version)
	w.WriteU32LE(s.Index)
	s.Root.EncodeBinary(w)
	w.WriteU64LE(s.Timestamp)
}

// DecodeBinary implements the io.Serializable interface.
func (s *MPTRoot) DecodeBinary(r *io.BinReader) {
	s.Version = r.ReadB()
	s.Index = r.ReadU32LE()
	s.Root.DecodeBinary(r)
	s.Timestamp = r.ReadU64LE()
}
