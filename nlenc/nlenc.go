// Package nlenc implements the byte-level primitives shared by every layer
// of the codec: fixed-width integers, NUL-terminated strings, 4-byte
// Netlink alignment, and length-prefixed framing.
//
// All integers are written and read in the host's native byte order, per
// Netlink convention (NLA_F_NET_BYTEORDER attributes are out of scope).
package nlenc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/vishvananda/netlink/nl"
)

// order is the host's native byte order. Resolved once via the same helper
// the rest of the corpus's netlink stack uses, rather than hand-rolling an
// endian probe.
var order binary.ByteOrder = nl.NativeEndian()

// ErrShortBuffer is returned when a fixed-width read doesn't have enough
// bytes available.
type ErrShortBuffer struct {
	Want int
	Have int
}

func (e ErrShortBuffer) Error() string {
	return fmt.Sprintf("nlenc: short buffer: want %d bytes, have %d", e.Want, e.Have)
}

// ErrMissingNUL is returned when String doesn't find a terminating NUL byte.
type ErrMissingNUL struct{}

func (ErrMissingNUL) Error() string { return "nlenc: missing terminating NUL byte" }

// ErrInvalidUTF8 is returned when a string's bytes aren't valid UTF-8.
type ErrInvalidUTF8 struct{}

func (ErrInvalidUTF8) Error() string { return "nlenc: string payload is not valid UTF-8" }

// ErrLengthOverflow is returned by WithPrefixedLen16 when the written body
// exceeds what a 16-bit length prefix can express.
type ErrLengthOverflow struct {
	Len int
	Max int
}

func (e ErrLengthOverflow) Error() string {
	return fmt.Sprintf("nlenc: body of %d bytes overflows a %d-bit length prefix", e.Len, e.Max)
}

// Align4 rounds n up to the next multiple of 4.
func Align4(n int) int {
	return (n + 3) &^ 3
}

// HostOrder returns the host's native byte order, for callers that need to
// read or write multi-field headers directly rather than through the
// fixed-width helpers below.
func HostOrder() binary.ByteOrder { return order }

// PutUint16 appends v to buf in host byte order.
func PutUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	order.PutUint16(b[:], v)
	buf.Write(b[:])
}

// PutUint32 appends v to buf in host byte order.
func PutUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	order.PutUint32(b[:], v)
	buf.Write(b[:])
}

// Uint16 reads a host-order uint16 from the front of b.
func Uint16(b []byte) (uint16, error) {
	if len(b) < 2 {
		return 0, ErrShortBuffer{Want: 2, Have: len(b)}
	}
	return order.Uint16(b), nil
}

// Uint32 reads a host-order uint32 from the front of b.
func Uint32(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, ErrShortBuffer{Want: 4, Have: len(b)}
	}
	return order.Uint32(b), nil
}

// PutString appends s followed by a single NUL byte. No alignment padding
// is added here; the enclosing attribute or message frame handles that.
func PutString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

// String reads bytes up to (not including) the first NUL byte, validating
// them as UTF-8.
func String(b []byte) (string, error) {
	idx := bytes.IndexByte(b, 0)
	if idx < 0 {
		return "", ErrMissingNUL{}
	}
	s := b[:idx]
	if !utf8.Valid(s) {
		return "", ErrInvalidUTF8{}
	}
	return string(s), nil
}

// WithPrefixedLen16 reserves 2 bytes in buf, runs write, then backpatches
// the reserved bytes with the number of bytes from the start of the prefix
// to the end of what write appended: the 2 prefix bytes are counted, so the
// prefix covers header+body together, matching the Netlink attribute length
// convention.
func WithPrefixedLen16(buf *bytes.Buffer, write func(*bytes.Buffer)) error {
	start := buf.Len()
	buf.Write([]byte{0, 0})
	write(buf)

	n := buf.Len() - start
	if n > 0xffff {
		return ErrLengthOverflow{Len: n, Max: 16}
	}

	out := buf.Bytes()
	order.PutUint16(out[start:start+2], uint16(n))
	return nil
}

// WithPrefixedLen32 is WithPrefixedLen16's 4-byte-prefix counterpart, used
// for the Netlink message header's len field.
func WithPrefixedLen32(buf *bytes.Buffer, write func(*bytes.Buffer)) error {
	start := buf.Len()
	buf.Write([]byte{0, 0, 0, 0})
	write(buf)

	n := buf.Len() - start
	if n > 0xffffffff {
		return ErrLengthOverflow{Len: n, Max: 32}
	}

	out := buf.Bytes()
	order.PutUint32(out[start:start+4], uint32(n))
	return nil
}
