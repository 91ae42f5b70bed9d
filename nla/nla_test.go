package nla_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/go-test/deep"
	"github.com/gluxon/nldl/nla"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// S1: single attribute, len=7, type=0, payload=[1,1,1], padded to 8 bytes.
func TestParseAttrSingle(t *testing.T) {
	b := []byte{7, 0, 0, 0, 1, 1, 1, 0}
	attr, consumed, err := nla.ParseAttr(b)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != 8 {
		t.Errorf("consumed = %d, want 8", consumed)
	}
	want := nla.RawAttr{Len: 7, Type: 0, Payload: []byte{1, 1, 1}}
	if diff := deep.Equal(attr, want); diff != nil {
		t.Error(diff)
	}
}

// S2: two attributes back to back, the first requiring pad bytes before
// the second's header begins.
func TestParseAttrsSequence(t *testing.T) {
	b := []byte{
		7, 0, 1, 0, 9, 9, 9, 0, // len=7 type=1 payload=[9,9,9] + 1 pad byte
		6, 0, 2, 0, 5, 5, // len=6 type=2 payload=[5,5], last attribute, no trailing pad
	}
	attrs, err := nla.ParseAttrs(b)
	if err != nil {
		t.Fatal(err)
	}
	want := []nla.RawAttr{
		{Len: 7, Type: 1, Payload: []byte{9, 9, 9}},
		{Len: 6, Type: 2, Payload: []byte{5, 5}},
	}
	if diff := deep.Equal(attrs, want); diff != nil {
		t.Error(diff)
	}
}

// S3: fewer than 4 bytes remain for a header.
func TestParseAttrIncompleteHeader(t *testing.T) {
	_, _, err := nla.ParseAttr([]byte{1, 2, 3})
	if diff := deep.Equal(err, nla.ErrIncompleteHeader{Have: 3}); diff != nil {
		t.Error(diff)
	}
}

// S4: declared len exceeds the bytes actually available.
func TestParseAttrShortPayload(t *testing.T) {
	b := []byte{9, 0, 0, 0, 1, 1, 1, 1} // len=9 wants 5 payload bytes, only 4 present
	_, _, err := nla.ParseAttr(b)
	if diff := deep.Equal(err, nla.ErrShortPayload{Have: 4, Want: 5}); diff != nil {
		t.Error(diff)
	}
}

// A declared len shorter than the 4-byte header itself must not panic
// slicing b[attrHeaderLen:length]; it should be rejected as malformed.
func TestParseAttrHeaderLengthTooShort(t *testing.T) {
	b := []byte{2, 0, 0, 0, 1, 1, 1, 1} // len=2, less than the 4-byte header
	_, _, err := nla.ParseAttr(b)
	if diff := deep.Equal(err, nla.ErrShortHeaderLength{Length: 2}); diff != nil {
		t.Error(diff)
	}
}

type u32Attr struct {
	Type  uint16
	Value uint32
}

func (a u32Attr) TypeID() uint16 { return a.Type }
func (a u32Attr) EncodePayload(buf *bytes.Buffer) {
	nla.PutUint32(buf, a.Value)
}

func decodeU32Attr(ty uint16, payload []byte) (u32Attr, error) {
	v, err := nla.DecodeUint32(ty, payload)
	if err != nil {
		return u32Attr{}, err
	}
	return u32Attr{Type: ty, Value: v}, nil
}

// P1: encoding an attribute then decoding it recovers the original value.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := u32Attr{Type: 42, Value: 0xcafef00d}
	if err := nla.Encode(&buf, in); err != nil {
		t.Fatal(err)
	}

	got, consumed, err := nla.Decode(buf.Bytes(), decodeU32Attr)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != buf.Len() {
		t.Errorf("consumed = %d, want %d", consumed, buf.Len())
	}
	if diff := deep.Equal(got, in); diff != nil {
		t.Error(diff)
	}
}

// P2: a sequence of 4-byte-payload attributes round-trips through
// EncodeAll and DecodeAll.
func TestEncodeDecodeAllRoundTrip(t *testing.T) {
	in := []u32Attr{
		{Type: 1, Value: 1},
		{Type: 2, Value: 2},
		{Type: 3, Value: 0xffffffff},
	}

	var buf bytes.Buffer
	if err := nla.EncodeAll(&buf, in); err != nil {
		t.Fatal(err)
	}

	got, err := nla.DecodeAll(buf.Bytes(), decodeU32Attr)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, in); diff != nil {
		t.Error(diff)
	}
}

// Nested containers encode their children and decode them back via
// DecodeNested, including when empty.
func TestNestedRoundTrip(t *testing.T) {
	in := nla.Nested[u32Attr]{Children: []u32Attr{
		{Type: 1, Value: 7},
		{Type: 2, Value: 8},
	}}

	var buf bytes.Buffer
	if err := nla.Encode(&buf, in); err != nil {
		t.Fatal(err)
	}

	got, _, err := nla.Decode(buf.Bytes(), nla.DecodeNested(decodeU32Attr))
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, in); diff != nil {
		t.Error(diff)
	}
}

func TestNestedRoundTripEmpty(t *testing.T) {
	in := nla.Nested[u32Attr]{}

	var buf bytes.Buffer
	if err := nla.Encode(&buf, in); err != nil {
		t.Fatal(err)
	}

	got, _, err := nla.Decode(buf.Bytes(), nla.DecodeNested(decodeU32Attr))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Children) != 0 {
		t.Errorf("got %d children, want 0", len(got.Children))
	}
}

// P4: DecodeUnknown is the wildcard catch-all, accepting any type-id and
// payload without error, and preserving both byte-for-byte.
func TestUnknownRoundTrip(t *testing.T) {
	in := nla.Unknown{Type: 999, Payload: []byte{0xde, 0xad, 0xbe, 0xef}}

	var buf bytes.Buffer
	if err := nla.Encode(&buf, in); err != nil {
		t.Fatal(err)
	}

	got, _, err := nla.Decode(buf.Bytes(), nla.DecodeUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, in); diff != nil {
		t.Error(diff)
	}
}

type stringAttr struct {
	Type  uint16
	Value string
}

func (a stringAttr) TypeID() uint16 { return a.Type }
func (a stringAttr) EncodePayload(buf *bytes.Buffer) {
	nla.PutString(buf, a.Value)
}

// String attribute len includes the trailing NUL, matching libnl convention.
func TestStringAttributeLenIncludesNUL(t *testing.T) {
	var buf bytes.Buffer
	if err := nla.Encode(&buf, stringAttr{Type: 1, Value: "ok"}); err != nil {
		t.Fatal(err)
	}

	raw, _, err := nla.ParseAttr(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	// "ok" + NUL = 3 payload bytes, + 4 header bytes = 7.
	if raw.Len != 7 {
		t.Errorf("Len = %d, want 7", raw.Len)
	}
}

func decodeStringAttr(ty uint16, payload []byte) (string, error) {
	return nla.DecodeString(ty, payload)
}

func TestStringAttrRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := nla.Encode(&buf, stringAttr{Type: 3, Value: "acpi_event"}); err != nil {
		t.Fatal(err)
	}

	got, _, err := nla.Decode(buf.Bytes(), decodeStringAttr)
	if err != nil {
		t.Fatal(err)
	}
	if got != "acpi_event" {
		t.Errorf("got %q, want %q", got, "acpi_event")
	}
}
