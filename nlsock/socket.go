package nlsock

import (
	"bytes"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"github.com/gluxon/nldl/metrics"
	"github.com/gluxon/nldl/nlmsg"
)

// recvBufSize is the fixed receive buffer capacity; a Recv truncates it to
// the bytes actually read.
const recvBufSize = 32 * 1024

// Socket is a connected Netlink datagram socket bound to one family.
// Socket is NOT threadsafe: callers must not call its methods from more
// than one goroutine at a time, and nlmsg.MessageIterator returned by
// RecvMultipart is likewise not safe for concurrent Next() calls.
type Socket struct {
	conn     Conn
	familyID uint16
}

// Connect opens a Netlink socket for the Generic Netlink protocol family
// and returns a Socket addressed to the given family id (resolved
// out-of-band, e.g. via the nlctrl bootstrap family).
func Connect(familyID uint16) (*Socket, error) {
	conn, err := dialUnixConn(unix.NETLINK_GENERIC)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, familyID), nil
}

// newSocket builds a Socket around an already-open Conn. Exported as a
// distinct entry point (via NewSocketForTesting below) so tests can supply
// a fake Conn without opening a real kernel socket.
func newSocket(conn Conn, familyID uint16) *Socket {
	return &Socket{conn: conn, familyID: familyID}
}

// NewSocketForTesting builds a Socket around a caller-supplied Conn,
// bypassing Connect's real socket syscalls. It exists for tests in this
// package and in nlctrl that need to drive a Socket against a fake Conn.
func NewSocketForTesting(conn Conn, familyID uint16) *Socket {
	return newSocket(conn, familyID)
}

// Close releases the underlying Conn.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// Send serializes payload as a message with type=familyID, the given
// flags, seq=1, and pid=0, then writes it to the socket. Sequence numbers
// are caller-owned: Socket keeps no counter, and matching a request to its
// reply by seq is the caller's responsibility.
func (s *Socket) Send(payload nlmsg.Payload, flags uint16) error {
	h := nlmsg.Header{Type: s.familyID, Flags: flags, Seq: 1, Pid: 0}

	var buf bytes.Buffer
	if err := nlmsg.EncodeRequest(&buf, h, payload); err != nil {
		return err
	}

	start := time.Now()
	err := s.conn.Send(buf.Bytes())
	metrics.SyscallLatency.With(prometheus.Labels{"op": "send"}).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.SendCount.With(prometheus.Labels{"family": familyLabel(s.familyID)}).Inc()
	}
	return err
}

// Recv reads one datagram and decodes it as a single message.
func Recv[T any](s *Socket, decodePayload nlmsg.Decoder[T]) (nlmsg.Message[T], error) {
	var zero nlmsg.Message[T]

	b, err := s.recvDatagram()
	if err != nil {
		return zero, err
	}

	msg, _, err := nlmsg.DecodeMessage(b, decodePayload)
	if err != nil {
		metrics.DecodeErrorCount.With(prometheus.Labels{"layer": "nlmsg"}).Inc()
		return zero, err
	}
	return msg, nil
}

// RecvMultipart reads one datagram and returns an iterator over the
// messages it contains.
func RecvMultipart[T any](s *Socket, decodePayload nlmsg.Decoder[T]) (*nlmsg.MessageIterator[T], error) {
	b, err := s.recvDatagram()
	if err != nil {
		return nil, err
	}
	return nlmsg.NewMessageIterator(b, decodePayload), nil
}

// RecvUntilDone drains datagrams from the socket until a terminal Done,
// Error, or Overrun message, accumulating decoded protocol payloads.
func RecvUntilDone[T any](s *Socket, decodePayload nlmsg.Decoder[T]) ([]T, error) {
	out, err := nlmsg.DrainUntilDone(s.recvDatagram, decodePayload)
	if err != nil {
		switch err.(type) {
		case nlmsg.ErrIncompleteHeader, nlmsg.ErrShortPayload, nlmsg.ErrPayloadDecode:
			metrics.DecodeErrorCount.With(prometheus.Labels{"layer": "nlmsg"}).Inc()
		}
		return nil, err
	}
	metrics.MultipartMessageCount.Observe(float64(len(out)))
	return out, nil
}

func (s *Socket) recvDatagram() ([]byte, error) {
	buf := make([]byte, recvBufSize)

	start := time.Now()
	n, err := s.conn.Recv(buf)
	metrics.SyscallLatency.With(prometheus.Labels{"op": "recv"}).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	metrics.RecvBytesHistogram.Observe(float64(n))
	return buf[:n], nil
}

func familyLabel(familyID uint16) string {
	switch familyID {
	case 0x10:
		return "nlctrl"
	default:
		return "other"
	}
}
