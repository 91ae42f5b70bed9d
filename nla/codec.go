package nla

import (
	"bytes"
	"fmt"

	"github.com/gluxon/nldl/nlenc"
)

// Encoder is implemented by any value that knows how to write itself as a
// whole attribute: its own type-id plus its payload body. Concrete schema
// variants (see package nlaschema) and the standard shapes below all
// satisfy it.
type Encoder interface {
	TypeID() uint16
	EncodePayload(buf *bytes.Buffer)
}

// Decoder reconstructs a T from an attribute's type-id and payload bytes.
// Go has no way to return "Self" from an interface method the way Rust's
// Deserialize trait does, so the decode capability is a plain function
// value instead of a method — schemas bind one via nlaschema.Schema.Decode.
type Decoder[T any] func(typeID uint16, payload []byte) (T, error)

// DecodeError is the unified decode-error shape used anywhere an attribute
// fails to decode: it carries the enclosing schema's name, the offending
// type-id, and the underlying cause, so error messages stay diagnostic
// across arbitrarily nested attributes.
type DecodeError struct {
	Schema string
	TypeID uint16
	Cause  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("nla: %s: failed to decode attribute type %d: %v", e.Schema, e.TypeID, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Encode writes v as a complete attribute: a 2-byte length prefix, the
// 2-byte type-id, then the payload, with the length backpatched once the
// payload is known.
func Encode(buf *bytes.Buffer, v Encoder) error {
	return nlenc.WithPrefixedLen16(buf, func(b *bytes.Buffer) {
		nlenc.PutUint16(b, v.TypeID())
		v.EncodePayload(b)
	})
}

// EncodeAll writes each attribute in vs in order. This is the blanket
// "sequence of attributes" encode rule: no length prefix wraps the whole
// sequence, each element is independently framed by Encode, and every
// element but the last is followed by zero padding up to a 4-byte boundary
// (the padding is not counted in the element's len). It stops and returns
// the first error Encode produces, e.g. nlenc.ErrLengthOverflow.
func EncodeAll[T Encoder](buf *bytes.Buffer, vs []T) error {
	for i, v := range vs {
		start := buf.Len()
		if err := Encode(buf, v); err != nil {
			return err
		}
		if i < len(vs)-1 {
			n := buf.Len() - start
			buf.Write(make([]byte, nlenc.Align4(n)-n))
		}
	}
	return nil
}

// Decode parses one whole attribute from the front of b and reconstructs a
// T via decode. It returns the value and the number of bytes consumed
// (the attribute's 4-byte-aligned length).
func Decode[T any](b []byte, decode Decoder[T]) (T, int, error) {
	var zero T
	raw, consumed, err := ParseAttr(b)
	if err != nil {
		return zero, 0, err
	}
	v, err := decode(raw.Type, raw.Payload)
	if err != nil {
		return zero, 0, err
	}
	return v, consumed, nil
}

// DecodeAll is the blanket "sequence of attributes" decode rule: it calls
// ParseAttr repeatedly until b is exhausted, decoding each attribute with
// decode. The final attribute may end exactly at the end of b with no
// trailing pad.
func DecodeAll[T any](b []byte, decode Decoder[T]) ([]T, error) {
	var out []T
	for len(b) > 0 {
		raw, consumed, err := ParseAttr(b)
		if err != nil {
			return nil, err
		}
		v, err := decode(raw.Type, raw.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if consumed > len(b) {
			consumed = len(b)
		}
		b = b[consumed:]
	}
	return out, nil
}
