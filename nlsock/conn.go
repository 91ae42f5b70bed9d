// Package nlsock is the socket façade: a thin, non-thread-safe wrapper
// around a Netlink datagram socket that frames requests through nlmsg/genl
// and decodes responses back into caller types.
//
// Socket is NOT threadsafe. It owns its Conn exclusively and is meant to
// be used from a single goroutine at a time, the same way cache.Cache in
// the wider corpus documents its own non-thread-safety rather than adding
// a mutex.
package nlsock

import (
	"golang.org/x/sys/unix"
)

// Conn is the external-collaborator seam: a datagram socket supporting
// send(bytes) and recv(buffer) -> bytes_read. Socket is built against this
// interface rather than a concrete syscall socket so it can be tested
// without a live kernel; no test in this module opens a real AF_NETLINK
// socket.
type Conn interface {
	Send(b []byte) error
	Recv(buf []byte) (int, error)
	Close() error
}

// unixConn is the real Conn, backed by an AF_NETLINK/SOCK_RAW socket.
type unixConn struct {
	fd int
}

// dialUnixConn opens a Netlink socket for the given protocol family (e.g.
// genl.CtrlFamilyID's enclosing NETLINK_GENERIC), binding with pid=0
// (kernel-assigned) and groups=0.
func dialUnixConn(netlinkFamily int) (*unixConn, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, netlinkFamily)
	if err != nil {
		return nil, err
	}

	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: 0, Groups: 0}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &unixConn{fd: fd}, nil
}

func (c *unixConn) Send(b []byte) error {
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK}
	return unix.Sendto(c.fd, b, 0, addr)
}

func (c *unixConn) Recv(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(c.fd, buf, 0)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *unixConn) Close() error {
	return unix.Close(c.fd)
}
