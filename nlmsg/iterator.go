package nlmsg

import "fmt"

// MessageIterator produces a lazy, finite, non-restartable sequence of
// decoded messages over a single owned byte buffer. Modeled on the
// teacher's rawReader.Next() (*ArchivalRecord, error) idiom, generalized
// with an extra "more" bool so callers can distinguish "exhausted" from
// "failed" without inspecting the error for nil.
type MessageIterator[T any] struct {
	buf           []byte
	offset        int
	decodePayload Decoder[T]
	failed        bool
}

// NewMessageIterator creates an iterator over buf. buf is not copied; the
// caller must not mutate it while iterating.
func NewMessageIterator[T any](buf []byte, decodePayload Decoder[T]) *MessageIterator[T] {
	return &MessageIterator[T]{buf: buf, decodePayload: decodePayload}
}

// Next returns the next decoded message. The three possible outcomes are:
//
//   - (msg, true, nil): a message was decoded, more may follow.
//   - (zero, false, nil): the buffer is exhausted, or a prior call already
//     failed -- iteration is over, for good.
//   - (zero, false, err): this call failed to decode a message; the error
//     is reported exactly once and every subsequent call returns
//     (zero, false, nil), never re-reporting it.
func (it *MessageIterator[T]) Next() (Message[T], bool, error) {
	var zero Message[T]
	if it.failed || it.offset >= len(it.buf) {
		return zero, false, nil
	}

	msg, consumed, err := DecodeMessage(it.buf[it.offset:], it.decodePayload)
	if err != nil {
		it.failed = true
		return zero, false, err
	}

	it.offset += consumed
	return msg, true, nil
}

// DrainUntilDone reads datagrams via read until it observes a Done message
// or an ACK (an Error message with code 0) (success, returning every
// ProtocolMessage payload seen so far), an Error message with a non-zero
// code (failure, carrying the echoed header and code), or an Overrun
// (hard failure). It is the recv_until_done helper, built the way the
// teacher's socket-monitor loops over datagrams calling Receive until a
// terminal condition.
func DrainUntilDone[T any](read func() ([]byte, error), decodePayload Decoder[T]) ([]T, error) {
	var out []T
	for {
		b, err := read()
		if err != nil {
			return nil, err
		}

		it := NewMessageIterator(b, decodePayload)
		for {
			msg, more, err := it.Next()
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}

			switch msg.Body.Kind {
			case KindProtocol:
				out = append(out, msg.Body.Protocol)
			case KindDone:
				return out, nil
			case KindError:
				if msg.Body.Error.Code == 0 {
					return out, nil
				}
				return nil, NetlinkError{Code: msg.Body.Error.Code, OriginalHeader: msg.Body.Error.OriginalHeader}
			case KindOverrun:
				return nil, ErrOverrun{}
			case KindNoop:
				// discarded, continue draining
			}
		}
	}
}

// NetlinkError is returned by DrainUntilDone when the kernel replies with a
// non-ACK NLMSG_ERROR.
type NetlinkError struct {
	Code           int32
	OriginalHeader RawHeader
}

func (e NetlinkError) Error() string {
	return fmt.Sprintf("nlmsg: netlink error reply: code %d (request seq %d)", e.Code, e.OriginalHeader.Seq)
}

// ErrOverrun is returned by DrainUntilDone when the kernel reports
// NLMSG_OVERRUN.
type ErrOverrun struct{}

func (ErrOverrun) Error() string { return "nlmsg: receive buffer overrun" }
