package mpt

import (
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/nspcc-dev/assetstate/pkg/util"
)

// BaseNode implements basic things every node needs like caching hash and
// serialized representation. It's a basic node building block intended to be
// included into all node types.
type BaseNode struct {
	hash       util.Uint256
	bytes      []byte
	hashValid  bool
	bytesValid bool

	isFlushed bool
}

func (b *BaseNode) base() *BaseNode { return b }

func (b *BaseNode) setCache(bs []byte, h util.Uint256) {
	b.bytes = bs
	b.hash = h
	b.bytesValid = true
	b.hashValid = true
	b.isFlushed = true
}

// invalidateCache sets all cache fields to invalid state.
func (b *BaseNode) invalidateCache() {
	b.bytesValid = false
	b.hashValid = false
	b.isFlushed = false
}

// IsFlushed checks for node flush status.
func (b *BaseNode) IsFlushed() bool {
	return b.isFlushed
}

// nodeBytes returns the stored representation of n.
func (c *Config) nodeBytes(n Node) []byte {
	b := n.base()
	if !b.bytesValid {
		buf := io.NewBufBinWriter()
		encodeNode(n, c, buf.BinWriter)
		b.bytes = buf.Bytes()
		b.bytesValid = true
	}
	return b.bytes
}

// nodeHash returns the hash of n under c.
func (c *Config) nodeHash(n Node) util.Uint256 {
	if n.Type() == EmptyT {
		panic("can't get hash of an EmptyNode")
	}
	b := n.base()
	if !b.hashValid {
		b.hash = c.Hash(c.nodeBytes(n))
		b.hashValid = true
	}
	return b.hash
}
