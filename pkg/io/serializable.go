package io

// Serializable defines the binary encoding/decoding interface. Errors are
// reported through BinReader.Err and BinWriter.Err.
type Serializable interface {
	DecodeBinary(*BinReader)
	EncodeBinary(*BinWriter)
}

type decodable interface {
	DecodeBinary(*BinReader)
}

type encodable interface {
	EncodeBinary(*BinWriter)
}
