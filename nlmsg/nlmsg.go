// Package nlmsg implements Netlink message framing: encoding a request
// around a 16-byte header, decoding a response into the closed
// Noop/Error/Done/Overrun/ProtocolMessage union, and a multipart iterator
// for draining a dump response.
package nlmsg

import (
	"bytes"
	"fmt"

	"github.com/gluxon/nldl/nlenc"
)

const headerLen = 16

// Netlink message type values for the control-plane variants. Any type
// value of 0x10 or above belongs to the caller's protocol (see package
// genl, which reserves family ids starting at 0x10).
const (
	typeNoop    uint16 = 0x1
	typeError   uint16 = 0x2
	typeDone    uint16 = 0x3
	typeOverrun uint16 = 0x4
)

// Flags used when composing a request. DUMP is the composite request a
// caller uses to ask for a full table dump (REQUEST|ROOT|MATCH).
const (
	FlagRequest uint16 = 0x1
	FlagMulti   uint16 = 0x2
	FlagAck     uint16 = 0x4
	FlagRoot    uint16 = 0x100
	FlagMatch   uint16 = 0x200
	FlagDump           = FlagRequest | FlagRoot | FlagMatch
)

// Header carries the fields a caller supplies when building a request. Len
// isn't here: the encoder backpatches it once the payload is known.
type Header struct {
	Type  uint16
	Flags uint16
	Seq   uint32
	Pid   uint32
}

// RawHeader is the fully decoded 16-byte message header, as read off the
// wire.
type RawHeader struct {
	Len   uint32
	Type  uint16
	Flags uint16
	Seq   uint32
	Pid   uint32
}

// Payload is anything that can write itself as a message's body -- a genl
// request, or any other protocol payload assembled by a higher-level
// package.
type Payload interface {
	EncodeMessage(buf *bytes.Buffer)
}

// EncodeRequest reserves 4 bytes for len, writes the 12-byte header tail,
// runs payload, then backpatches len with the total bytes written. It then
// appends zero padding up to a 4-byte boundary; the padding is never inside
// the length count, and it lets messages be concatenated into one datagram
// directly.
func EncodeRequest(buf *bytes.Buffer, h Header, payload Payload) error {
	start := buf.Len()
	err := nlenc.WithPrefixedLen32(buf, func(b *bytes.Buffer) {
		nlenc.PutUint16(b, h.Type)
		nlenc.PutUint16(b, h.Flags)
		var seqPid [8]byte
		order := nlenc.HostOrder()
		order.PutUint32(seqPid[0:4], h.Seq)
		order.PutUint32(seqPid[4:8], h.Pid)
		b.Write(seqPid[:])
		payload.EncodeMessage(b)
	})
	if err != nil {
		return err
	}
	n := buf.Len() - start
	buf.Write(make([]byte, nlenc.Align4(n)-n))
	return nil
}

// Kind tags which field of Body is populated.
type Kind int

const (
	KindNoop Kind = iota
	KindError
	KindDone
	KindOverrun
	KindProtocol
)

// ErrorPayload is the decoded body of an NLMSG_ERROR message: a negative
// Code is a failed request, zero is an ACK.
type ErrorPayload struct {
	Code           int32
	OriginalHeader RawHeader
}

// Body is the closed Netlink control-plane union plus the caller's own
// protocol payload. It's a hand-written Kind-tagged struct rather than an
// nlaschema-bound schema because this union is closed and not
// user-extensible -- a caller never adds a sixth message kind.
type Body[T any] struct {
	Kind     Kind
	Error    ErrorPayload
	Protocol T
}

// Message is one fully decoded Netlink message.
type Message[T any] struct {
	Header RawHeader
	Body   Body[T]
}

// ErrIncompleteHeader is returned when fewer than 16 bytes remain for a
// message header, or when a header's declared len is itself shorter than
// 16 bytes (Have is then the declared len).
type ErrIncompleteHeader struct {
	Have int
}

func (e ErrIncompleteHeader) Error() string {
	return fmt.Sprintf("nlmsg: incomplete message header: have %d bytes, need %d", e.Have, headerLen)
}

// ErrShortPayload is returned when a message's declared len exceeds the
// bytes actually available.
type ErrShortPayload struct {
	Have int
	Want int
}

func (e ErrShortPayload) Error() string {
	return fmt.Sprintf("nlmsg: short message payload: have %d bytes, want %d", e.Have, e.Want)
}

// ErrPayloadDecode wraps a failure from the caller-supplied protocol
// payload decoder.
type ErrPayloadDecode struct {
	Cause error
}

func (e ErrPayloadDecode) Error() string {
	return fmt.Sprintf("nlmsg: protocol payload decode failed: %v", e.Cause)
}

func (e ErrPayloadDecode) Unwrap() error { return e.Cause }

// Decoder reconstructs a T (a caller's protocol payload type) from the
// message's remaining bytes.
type Decoder[T any] func(b []byte) (T, error)

// DecodeMessage reads one whole message from the front of b: the 16-byte
// header, then a body dispatched on the header's type. It returns the
// message and the number of bytes consumed (the message's 4-byte-aligned
// len).
func DecodeMessage[T any](b []byte, decodePayload Decoder[T]) (Message[T], int, error) {
	var zero Message[T]
	if len(b) < headerLen {
		return zero, 0, ErrIncompleteHeader{Have: len(b)}
	}

	order := nlenc.HostOrder()
	length := order.Uint32(b[0:4])
	ty := order.Uint16(b[4:6])
	flags := order.Uint16(b[6:8])
	seq := order.Uint32(b[8:12])
	pid := order.Uint32(b[12:16])

	if int(length) < headerLen {
		return zero, 0, ErrIncompleteHeader{Have: int(length)}
	}
	want := int(length) - headerLen
	have := len(b) - headerLen
	if have < want {
		return zero, 0, ErrShortPayload{Have: have, Want: want}
	}

	header := RawHeader{Len: length, Type: ty, Flags: flags, Seq: seq, Pid: pid}
	payload := b[headerLen:length]
	consumed := nlenc.Align4(int(length))

	switch ty {
	case typeNoop:
		return Message[T]{Header: header, Body: Body[T]{Kind: KindNoop}}, consumed, nil
	case typeError:
		if len(payload) < 4+headerLen {
			return zero, 0, ErrShortPayload{Have: len(payload), Want: 4 + headerLen}
		}
		code := int32(order.Uint32(payload[0:4]))
		echoed := payload[4 : 4+headerLen]
		origLen := order.Uint32(echoed[0:4])
		origType := order.Uint16(echoed[4:6])
		origFlags := order.Uint16(echoed[6:8])
		origSeq := order.Uint32(echoed[8:12])
		origPid := order.Uint32(echoed[12:16])
		errBody := ErrorPayload{
			Code: code,
			OriginalHeader: RawHeader{
				Len: origLen, Type: origType, Flags: origFlags, Seq: origSeq, Pid: origPid,
			},
		}
		return Message[T]{Header: header, Body: Body[T]{Kind: KindError, Error: errBody}}, consumed, nil
	case typeDone:
		return Message[T]{Header: header, Body: Body[T]{Kind: KindDone}}, consumed, nil
	case typeOverrun:
		return Message[T]{Header: header, Body: Body[T]{Kind: KindOverrun}}, consumed, nil
	default:
		v, err := decodePayload(payload)
		if err != nil {
			return zero, 0, ErrPayloadDecode{Cause: err}
		}
		return Message[T]{Header: header, Body: Body[T]{Kind: KindProtocol, Protocol: v}}, consumed, nil
	}
}
