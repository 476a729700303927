package codec

import (
	"encoding/json"
	"fmt"
)

type jsonCodec[T any] struct{}

// JSON creates a Codec that stores the collection as a JSON array.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

func (jsonCodec[T]) Encode(items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return data, nil
}

func (jsonCodec[T]) Decode(data []byte) ([]T, error) {
	if len(data) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return items, nil
}
