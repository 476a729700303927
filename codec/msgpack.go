package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type msgpackCodec[T any] struct{}

// Msgpack creates a Codec that stores the collection as a MessagePack array.
// More compact than JSON for large collections, at the cost of a non
// human-readable blob.
func Msgpack[T any]() Codec[T] {
	return msgpackCodec[T]{}
}

func (msgpackCodec[T]) Encode(items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	data, err := msgpack.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return data, nil
}

func (msgpackCodec[T]) Decode(data []byte) ([]T, error) {
	if len(data) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := msgpack.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return items, nil
}
