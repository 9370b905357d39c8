package io

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSerializable uint16

func (t testSerializable) EncodeBinary(w *BinWriter) {
	w.WriteU32LE(uint32(t))
}

func (t *testSerializable) DecodeBinary(r *BinReader) {
	*t = testSerializable(r.ReadU32LE())
}

type badRW struct{}

func (w *badRW) Write(p []byte) (int, error) {
	return 0, errors.New("it always fails")
}

func (w *badRW) Read(p []byte) (int, error) {
	return w.Write(p)
}

func TestWriteU64LE(t *testing.T) {
	var (
		val     uint64 = 0xbadc0de15a11dead
		readval uint64
		bin     = []byte{0xad, 0xde, 0x11, 0x5a, 0xe1, 0x0d, 0xdc, 0xba}
	)
	bw := NewBufBinWriter()
	bw.WriteU64LE(val)
	require.NoError(t, bw.Err)
	wrotebin := bw.Bytes()
	assert.Equal(t, wrotebin, bin)
	br := NewBinReaderFromBuf(bin)
	readval = br.ReadU64LE()
	require.NoError(t, br.Err)
	assert.Equal(t, val, readval)
}

func TestWriteU32LE(t *testing.T) {
	var (
		val uint32 = 0xdeadbeef
		bin        = []byte{0xef, 0xbe, 0xad, 0xde}
	)
	bw := NewBufBinWriter()
	bw.WriteU32LE(val)
	require.NoError(t, bw.Err)
	assert.Equal(t, bin, bw.Bytes())
	br := NewBinReaderFromBuf(bin)
	assert.Equal(t, val, br.ReadU32LE())
	require.NoError(t, br.Err)
}

func TestWriteBool(t *testing.T) {
	bin := []byte{0x01, 0x00}
	bw := NewBufBinWriter()
	bw.WriteBool(true)
	bw.WriteBool(false)
	require.NoError(t, bw.Err)
	assert.Equal(t, bin, bw.Bytes())
	br := NewBinReaderFromBuf(bin)
	assert.True(t, br.ReadBool())
	assert.False(t, br.ReadBool())
	require.NoError(t, br.Err)
}

func TestReadLEErrors(t *testing.T) {
	bin := []byte{0xad, 0xde, 0x11, 0x5a, 0xe1, 0x0d, 0xdc, 0xba}
	br := NewBinReaderFromBuf(bin)
	// Prime the buffers with something.
	_ = br.ReadU64LE()
	require.NoError(t, br.Err)

	assert.Equal(t, uint64(0), br.ReadU64LE())
	assert.Equal(t, uint32(0), br.ReadU32LE())
	assert.Equal(t, byte(0), br.ReadB())
	assert.Equal(t, false, br.ReadBool())
	assert.Error(t, br.Err)
}

func TestBufBinWriter_Len(t *testing.T) {
	val := []byte{0xde}
	bw := NewBufBinWriter()
	bw.WriteBytes(val)
	require.Equal(t, 1, bw.Len())
}

func TestBinReader_ReadVarBytes(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = byte(i)
	}
	w := NewBufBinWriter()
	w.WriteVarBytes(buf)
	require.NoError(t, w.Err)
	data := w.Bytes()

	t.Run("NoArguments", func(t *testing.T) {
		r := NewBinReaderFromBuf(data)
		actual := r.ReadVarBytes()
		require.NoError(t, r.Err)
		require.Equal(t, buf, actual)
	})
	t.Run("Good", func(t *testing.T) {
		r := NewBinReaderFromBuf(data)
		actual := r.ReadVarBytes(11)
		require.NoError(t, r.Err)
		require.Equal(t, buf, actual)
	})
	t.Run("Bad", func(t *testing.T) {
		r := NewBinReaderFromBuf(data)
		r.ReadVarBytes(10)
		require.Error(t, r.Err)
	})
}

func TestWriterErrHandling(t *testing.T) {
	var badio = &badRW{}
	bw := NewBinWriterFromIO(badio)
	bw.WriteU32LE(uint32(0))
	assert.Error(t, bw.Err)
	// These should work (not panic), but not do anything.
	bw.WriteU64LE(uint64(0))
	bw.WriteVarUint(0)
	bw.WriteVarBytes([]byte{0x55, 0xaa})
	bw.WriteString("asset")
	assert.Error(t, bw.Err)
}

func TestReaderErrHandling(t *testing.T) {
	var badio = &badRW{}
	br := NewBinReaderFromIO(badio)
	br.ReadU32LE()
	assert.Error(t, br.Err)
	// These should work (not panic), but not do anything.
	br.ReadU64LE()
	val := br.ReadVarUint()
	assert.Equal(t, val, uint64(0))
	b := br.ReadVarBytes()
	assert.Equal(t, b, []byte{})
	s := br.ReadString()
	assert.Equal(t, s, "")
	assert.Error(t, br.Err)
}

func TestBufBinWriterErr(t *testing.T) {
	bw := NewBufBinWriter()
	bw.WriteU32LE(uint32(0))
	assert.Nil(t, bw.Err)
	// inject error
	bw.Err = errors.New("oopsie")
	res := bw.Bytes()
	assert.NotNil(t, bw.Err)
	assert.Nil(t, res)
}

func TestBufBinWriterReset(t *testing.T) {
	bw := NewBufBinWriter()
	for i := 0; i < 3; i++ {
		bw.WriteU32LE(uint32(i))
		assert.Nil(t, bw.Err)
		_ = bw.Bytes()
		assert.NotNil(t, bw.Err)
		bw.Reset()
		assert.Nil(t, bw.Err)
	}
}

func TestWriteString(t *testing.T) {
	var str = "teststring"
	bw := NewBufBinWriter()
	bw.WriteString(str)
	assert.Nil(t, bw.Err)
	wrotebin := bw.Bytes()
	// +1 byte for length
	assert.Equal(t, len(wrotebin), len(str)+1)
	br := NewBinReaderFromBuf(wrotebin)
	readstr := br.ReadString()
	assert.Nil(t, br.Err)
	assert.Equal(t, str, readstr)
}

func TestWriteVarUint(t *testing.T) {
	for _, tc := range []struct {
		val  uint64
		size int
	}{
		{0xfc, 1},
		{0xfd, 3},
		{0xfffe, 3},
		{0xffff, 5},
		{0xfffffffe, 5},
		{0xffffffff, 9},
		{0xffffffffffffffff, 9},
	} {
		bw := NewBufBinWriter()
		bw.WriteVarUint(tc.val)
		require.NoError(t, bw.Err)
		buf := bw.Bytes()
		require.Equal(t, tc.size, len(buf))
		br := NewBinReaderFromBuf(buf)
		require.Equal(t, tc.val, br.ReadVarUint())
		require.NoError(t, br.Err)
	}
}

func TestArray(t *testing.T) {
	arr := []testSerializable{1, 2, 3}
	bw := NewBufBinWriter()
	WriteArray(bw.BinWriter, arr)
	require.NoError(t, bw.Err)
	data := bw.Bytes()

	var res []testSerializable
	br := NewBinReaderFromBuf(data)
	ReadArray(br, &res)
	require.NoError(t, br.Err)
	require.Equal(t, arr, res)

	br = NewBinReaderFromBuf(data)
	ReadArray(br, &res, 2)
	require.Error(t, br.Err)
}

func TestFromBytes(t *testing.T) {
	var v testSerializable = 42
	data, err := ToBytes(v)
	require.NoError(t, err)

	var res testSerializable
	require.NoError(t, FromBytes(data, &res))
	require.Equal(t, v, res)

	require.ErrorIs(t, FromBytes(append(data, 0), &res), ErrTrailingData)
	require.Error(t, FromBytes(data[:2], &res))
}

func TestMakeDirForFile(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "testDir", "testFile.test")
	require.NoError(t, MakeDirForFile(filePath, "test"))

	f, err := os.Create(filePath)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Error(t, MakeDirForFile(filepath.Join(filePath, "sub", "file"), "test"))
}
