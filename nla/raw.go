// Package nla implements the Netlink Attribute (NLA) TLV engine: parsing
// raw {len, type, payload} triples out of a byte slice, the two codec
// capabilities every attribute value implements (Encoder/Decoder), and the
// standard attribute shapes (fixed-width integers, strings, raw bytes,
// nested containers, and the unknown-attribute wildcard sink).
package nla

import (
	"fmt"

	"github.com/gluxon/nldl/nlenc"
)

// attrHeaderLen is the fixed 4-byte {len, type} header every attribute
// starts with.
const attrHeaderLen = 4

// RawAttr is an attribute split into its three wire fields, with Payload
// referencing (not copying) the caller's buffer.
type RawAttr struct {
	Len     uint16
	Type    uint16
	Payload []byte
}

// ErrIncompleteHeader is returned when fewer than 4 bytes remain for an
// attribute header.
type ErrIncompleteHeader struct {
	Have int
}

func (e ErrIncompleteHeader) Error() string {
	return fmt.Sprintf("nla: incomplete attribute header: have %d bytes, need %d", e.Have, attrHeaderLen)
}

// ErrShortPayload is returned when an attribute's declared len exceeds the
// bytes actually available.
type ErrShortPayload struct {
	Have int
	Want int
}

func (e ErrShortPayload) Error() string {
	return fmt.Sprintf("nla: short attribute payload: have %d bytes, want %d", e.Have, e.Want)
}

// ErrShortHeaderLength is returned when an attribute's declared len field
// is less than the 4-byte header itself, which would otherwise slice
// b[attrHeaderLen:length] with length < attrHeaderLen and panic.
type ErrShortHeaderLength struct {
	Length uint16
}

func (e ErrShortHeaderLength) Error() string {
	return fmt.Sprintf("nla: attribute len %d is shorter than the %d-byte header", e.Length, attrHeaderLen)
}

// ParseAttr reads a single attribute from the start of b. It returns the
// attribute, the number of bytes the caller must advance past (the
// attribute's 4-byte-aligned length, per I2), and any error. ParseAttr does
// not inspect or consume padding bytes beyond what it reports.
func ParseAttr(b []byte) (RawAttr, int, error) {
	if len(b) < attrHeaderLen {
		return RawAttr{}, 0, ErrIncompleteHeader{Have: len(b)}
	}

	length, err := nlenc.Uint16(b[0:2])
	if err != nil {
		return RawAttr{}, 0, err
	}
	ty, err := nlenc.Uint16(b[2:4])
	if err != nil {
		return RawAttr{}, 0, err
	}

	if int(length) < attrHeaderLen {
		return RawAttr{}, 0, ErrShortHeaderLength{Length: length}
	}

	want := int(length) - attrHeaderLen
	have := len(b) - attrHeaderLen
	if have < want {
		return RawAttr{}, 0, ErrShortPayload{Have: have, Want: want}
	}

	attr := RawAttr{
		Len:     length,
		Type:    ty,
		Payload: b[attrHeaderLen:length],
	}
	return attr, nlenc.Align4(int(length)), nil
}

// ParseAttrs repeatedly calls ParseAttr, advancing the cursor by each
// attribute's aligned length, until b is exhausted. The final attribute may
// end exactly at the end of b with no trailing pad.
func ParseAttrs(b []byte) ([]RawAttr, error) {
	var attrs []RawAttr
	for len(b) > 0 {
		attr, consumed, err := ParseAttr(b)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
		if consumed > len(b) {
			consumed = len(b)
		}
		b = b[consumed:]
	}
	return attrs, nil
}
