package mpt

import (
	"testing"

	"github.com/nspcc-dev/assetstate/internal/random"
	"github.com/nspcc-dev/assetstate/pkg/io"
	"github.com/stretchr/testify/require"
)

func testNodeRoundtrip(t *testing.T, n Node) {
	data := DefaultConfig.nodeBytes(n)
	actual, err := DecodeNode(data)
	require.NoError(t, err)
	require.Equal(t, n.Type(), actual.Type())
	require.Equal(t, DefaultConfig.nodeHash(n), DefaultConfig.nodeHash(actual))
	require.Equal(t, data, DefaultConfig.nodeBytes(actual))
}

func TestNode_Serializable(t *testing.T) {
	t.Run("Leaf", func(t *testing.T) {
		l := NewLeafNode(random.Bytes(10), random.Bytes(123))
		testNodeRoundtrip(t, l)

		actual, err := DecodeNode(DefaultConfig.nodeBytes(l))
		require.NoError(t, err)
		require.Equal(t, l.Key(), actual.(*LeafNode).Key())
		require.Equal(t, l.Value(), actual.(*LeafNode).Value())
	})
	t.Run("Extension", func(t *testing.T) {
		e := NewExtensionNode([]byte{0x01, 0x02}, NewLeafNode([]byte{0x12}, []byte{0x42}))
		testNodeRoundtrip(t, e)

		actual, err := DecodeNode(DefaultConfig.nodeBytes(e))
		require.NoError(t, err)
		next, ok := actual.(*ExtensionNode).next.(*HashNode)
		require.True(t, ok)
		require.Equal(t, DefaultConfig.nodeHash(e.next), next.Hash())
	})
	t.Run("Branch", func(t *testing.T) {
		b := NewBranchNode()
		b.Children[0] = NewLeafNode([]byte{0x01}, []byte{1})
		b.Children[10] = NewHashNode(random.Uint256())
		b.Children[lastChild] = NewLeafNode([]byte{0x02}, []byte{2})
		testNodeRoundtrip(t, b)

		actual, err := DecodeNode(DefaultConfig.nodeBytes(b))
		require.NoError(t, err)
		for i, c := range actual.(*BranchNode).Children {
			require.Equal(t, isEmpty(b.Children[i]), isEmpty(c), "child %d", i)
		}
	})
}

func TestDecodeNode_Invalid(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := DecodeNode(nil)
		require.Error(t, err)
	})
	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeNode([]byte{0x42})
		require.Error(t, err)
	})
	t.Run("hash node", func(t *testing.T) {
		_, err := DecodeNode(append([]byte{byte(HashT)}, make([]byte, 32)...))
		require.Error(t, err)
	})
	t.Run("trailing data", func(t *testing.T) {
		data := DefaultConfig.nodeBytes(NewLeafNode([]byte{1}, []byte{2}))
		_, err := DecodeNode(append(data, 0))
		require.ErrorIs(t, err, io.ErrTrailingData)
	})
	t.Run("truncated", func(t *testing.T) {
		data := DefaultConfig.nodeBytes(NewLeafNode([]byte{1}, []byte{2, 3, 4}))
		_, err := DecodeNode(data[:len(data)-1])
		require.Error(t, err)
	})
	t.Run("extension with empty key", func(t *testing.T) {
		e := NewExtensionNode([]byte{}, NewLeafNode([]byte{1}, []byte{2}))
		_, err := DecodeNode(DefaultConfig.nodeBytes(e))
		require.Error(t, err)
	})
	t.Run("extension without child", func(t *testing.T) {
		e := NewExtensionNode([]byte{1}, EmptyNode{})
		_, err := DecodeNode(DefaultConfig.nodeBytes(e))
		require.Error(t, err)
	})
	t.Run("bad child reference", func(t *testing.T) {
		data := []byte{byte(ExtensionT), 1, 0x01, byte(LeafT)}
		_, err := DecodeNode(data)
		require.Error(t, err)
	})
}

func TestEmptyNode_Hash(t *testing.T) {
	require.Panics(t, func() { DefaultConfig.nodeHash(EmptyNode{}) })
}
