package nla

import (
	"bytes"

	"github.com/gluxon/nldl/nlenc"
)

// Uint16 is a standalone host-order u16 attribute payload. Its TypeID is
// supplied by the enclosing schema variant, not by Uint16 itself, so it
// does not implement Encoder on its own -- schemas call PutUint16 inside
// their own EncodePayload and DecodeUint16 as their Decoder.
type Uint16 uint16

// PutUint16 writes the fixed-width payload body for a uint16 attribute.
func PutUint16(buf *bytes.Buffer, v uint16) { nlenc.PutUint16(buf, v) }

// DecodeUint16 is a Decoder[uint16]: the payload must be exactly 2 bytes.
func DecodeUint16(_ uint16, payload []byte) (uint16, error) {
	if len(payload) != 2 {
		return 0, nlenc.ErrShortBuffer{Want: 2, Have: len(payload)}
	}
	return nlenc.Uint16(payload)
}

// PutUint32 writes the fixed-width payload body for a uint32 attribute.
func PutUint32(buf *bytes.Buffer, v uint32) { nlenc.PutUint32(buf, v) }

// DecodeUint32 is a Decoder[uint32]: the payload must be exactly 4 bytes.
func DecodeUint32(_ uint16, payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, nlenc.ErrShortBuffer{Want: 4, Have: len(payload)}
	}
	return nlenc.Uint32(payload)
}

// PutString writes a string attribute's payload body: the string's bytes
// followed by a trailing NUL. The NUL is part of the payload and therefore
// counts toward the attribute's len, matching libnl.
func PutString(buf *bytes.Buffer, s string) { nlenc.PutString(buf, s) }

// DecodeString is a Decoder[string]. It strips the trailing NUL and
// validates the remaining bytes as UTF-8.
func DecodeString(_ uint16, payload []byte) (string, error) {
	return nlenc.String(payload)
}

// PutBytes writes a raw []byte attribute's payload body verbatim.
func PutBytes(buf *bytes.Buffer, v []byte) { buf.Write(v) }

// DecodeBytes is a Decoder[[]byte]. It is infallible: any payload is a
// valid raw byte attribute. The returned slice is a copy so it outlives the
// buffer it was decoded from.
func DecodeBytes(_ uint16, payload []byte) ([]byte, error) {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// NestedAttrTypeID is the generic Nested[T] container's declared type-id.
// User schemas that wrap a Nested[T] in a variant supply their own type-id
// for the outer attribute; this constant is only used when a Nested[T] is
// encoded on its own.
const NestedAttrTypeID uint16 = 0

// Nested wraps zero or more child attributes. Its own declared type-id is
// NestedAttrTypeID when used standalone; an enclosing schema variant may
// assign it any id instead, since TypeID() is only consulted when Nested
// is encoded directly via Encode.
type Nested[T Encoder] struct {
	Children []T
}

// TypeID implements Encoder.
func (Nested[T]) TypeID() uint16 { return NestedAttrTypeID }

// EncodePayload implements Encoder: the payload is the concatenation of
// each child attribute, fully framed. A child encode failure (e.g. a length
// overflow) is silently truncated here since EncodePayload has no error
// return; callers that need to observe it should call EncodeAll directly.
func (n Nested[T]) EncodePayload(buf *bytes.Buffer) {
	_ = EncodeAll(buf, n.Children)
}

// DecodeNested adapts a child Decoder into a Decoder for Nested[T],
// applying the sequence-of-attributes decode rule to the container's
// payload.
func DecodeNested[T Encoder](decode Decoder[T]) Decoder[Nested[T]] {
	return func(_ uint16, payload []byte) (Nested[T], error) {
		children, err := DecodeAll(payload, decode)
		if err != nil {
			return Nested[T]{}, err
		}
		return Nested[T]{Children: children}, nil
	}
}

// Unknown is the wildcard sink: it preserves the raw type-id and payload
// bytes of any attribute a schema doesn't recognize, round-tripping
// byte-for-byte.
type Unknown struct {
	Type    uint16
	Payload []byte
}

// TypeID implements Encoder.
func (u Unknown) TypeID() uint16 { return u.Type }

// EncodePayload implements Encoder: the payload is echoed verbatim.
func (u Unknown) EncodePayload(buf *bytes.Buffer) {
	buf.Write(u.Payload)
}

// DecodeUnknown is a Decoder[Unknown]. It is infallible: it copies the
// type-id and payload as given.
func DecodeUnknown(ty uint16, payload []byte) (Unknown, error) {
	out := make([]byte, len(payload))
	copy(out, payload)
	return Unknown{Type: ty, Payload: out}, nil
}
