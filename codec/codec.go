// Package codec defines the serialization boundary for docstore collections:
// a pluggable conversion between an ordered element sequence and the byte
// blob the backing store persists.
package codec

import "errors"

// Sentinel errors for codec operations.
var (
	ErrEncode = errors.New("encode failed")
	ErrDecode = errors.New("decode failed")
)

// Codec converts an ordered collection of elements to bytes and back.
// Implementations must round-trip: Decode(Encode(items)) yields items.
type Codec[T any] interface {
	// Encode serializes the collection to a single blob.
	Encode(items []T) ([]byte, error)
	// Decode reconstructs the collection from a blob.
	Decode(data []byte) ([]T, error)
}
