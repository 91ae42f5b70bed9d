// Package genl implements the Generic Netlink sub-header and the request
// composition that sits between nlmsg framing and a caller's attribute
// schema.
package genl

import (
	"bytes"
	"fmt"

	"github.com/gluxon/nldl/nla"
	"github.com/gluxon/nldl/nlmsg"
)

const headerLen = 4

// CtrlFamilyID is GENL_ID_CTRL, the bootstrap family used to resolve every
// other family's numeric id by name.
const CtrlFamilyID uint16 = 0x10

// Flags re-exported for convenience at call sites that only touch genl,
// without needing to import nlmsg directly.
const (
	FlagRequest = nlmsg.FlagRequest
	FlagMulti   = nlmsg.FlagMulti
	FlagAck     = nlmsg.FlagAck
	FlagRoot    = nlmsg.FlagRoot
	FlagMatch   = nlmsg.FlagMatch
	FlagDump    = nlmsg.FlagDump
)

// Header is the 4-byte Generic Netlink sub-header prepended to every genl
// message's attribute payload: {cmd, version, 2 reserved zero bytes}.
type Header struct {
	Cmd     uint8
	Version uint8
}

// EncodeHeader writes the 4-byte sub-header.
func EncodeHeader(buf *bytes.Buffer, h Header) {
	buf.WriteByte(h.Cmd)
	buf.WriteByte(h.Version)
	buf.Write([]byte{0, 0})
}

// ErrIncompleteHeader is returned when fewer than 4 bytes remain for a genl
// sub-header.
type ErrIncompleteHeader struct {
	Have int
}

func (e ErrIncompleteHeader) Error() string {
	return fmt.Sprintf("genl: incomplete sub-header: have %d bytes, need %d", e.Have, headerLen)
}

// DecodeHeader reads the 4-byte sub-header from the front of b, returning
// the header and the number of bytes consumed.
func DecodeHeader(b []byte) (Header, int, error) {
	if len(b) < headerLen {
		return Header{}, 0, ErrIncompleteHeader{Have: len(b)}
	}
	return Header{Cmd: b[0], Version: b[1]}, headerLen, nil
}

// request composes {genl sub-header + attributes} as an nlmsg.Payload.
type request[T nla.Encoder] struct {
	genlHeader Header
	attrs      []T
}

func (r request[T]) EncodeMessage(buf *bytes.Buffer) {
	EncodeHeader(buf, r.genlHeader)
	_ = nla.EncodeAll(buf, r.attrs)
}

// EncodeRequest composes a full Netlink message: the nlmsg header (whose
// Type the caller sets to the target family id, resolved out-of-band via
// the nlctrl bootstrap), the 4-byte genl sub-header, then the attribute
// sequence.
func EncodeRequest[T nla.Encoder](buf *bytes.Buffer, h nlmsg.Header, genlHeader Header, attrs []T) error {
	return nlmsg.EncodeRequest(buf, h, request[T]{genlHeader: genlHeader, attrs: attrs})
}

// DecodePayload reads the 4-byte sub-header then decodes the remaining
// bytes as a sequence of attributes via decode, returning the header and
// decoded attributes together.
func DecodePayload[T any](b []byte, decode nla.Decoder[T]) (Header, []T, error) {
	h, consumed, err := DecodeHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	attrs, err := nla.DecodeAll(b[consumed:], decode)
	if err != nil {
		return Header{}, nil, err
	}
	return h, attrs, nil
}
