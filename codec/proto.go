package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

type protoCodec[T proto.Message] struct{}

// Proto creates a Codec for protobuf element types. Each element is framed as
// a varint-length-delimited record, so the blob is a standard length-prefixed
// protobuf stream.
func Proto[T proto.Message]() Codec[T] {
	return protoCodec[T]{}
}

func (protoCodec[T]) Encode(items []T) ([]byte, error) {
	var buf []byte
	for i, item := range items {
		b, err := proto.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrEncode, i, err)
		}
		buf = protowire.AppendVarint(buf, uint64(len(b)))
		buf = append(buf, b...)
	}
	return buf, nil
}

func (protoCodec[T]) Decode(data []byte) ([]T, error) {
	items := []T{}
	for len(data) > 0 {
		size, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: malformed frame length", ErrDecode)
		}
		data = data[n:]
		if size > uint64(len(data)) {
			return nil, fmt.Errorf("%w: truncated frame", ErrDecode)
		}

		var zero T
		msg := zero.ProtoReflect().New().Interface().(T)
		if err := proto.Unmarshal(data[:size], msg); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrDecode, len(items), err)
		}
		items = append(items, msg)
		data = data[size:]
	}
	return items, nil
}
