// Package socket provides the signalling-connection collaborator the
// RTSP session dials through: a small allocate/connect/send/recv
// surface over a TCP (optionally TLS) connection, standing in for the
// "socket pool" the session would otherwise borrow from an owning
// provider (spec §6, §9 "Cyclic back-reference to parent provider").
package socket

import (
	"crypto/tls"
	"errors"
	"net"
	"syscall"
	"time"
)

// Socket is the collaborator interface an rtsp.Session dials through.
// It is intentionally narrow: connect, send, receive with a timeout,
// and the native handle for external event-loop registration.
type Socket interface {
	Connect(addr string, timeout time.Duration) error
	Send(data []byte) error
	Recv(buf []byte, timeout time.Duration) (int, error)
	// RecvNonBlocking performs one non-blocking read, returning
	// (0, nil) when nothing is currently available.
	RecvNonBlocking(buf []byte) (int, error)
	NativeHandle() (uintptr, error)
	Close() error
}

// TCPSocket is the default Socket implementation: a plain TCP
// connection, upgraded to TLS when constructed with NewTLSSocket.
// Grounded on the teacher's Client.Connect dialer (TCP_NODELAY,
// explicit connect timeout, TLS opt-in for the rtsps:// scheme).
type TCPSocket struct {
	tlsConfig *tls.Config
	conn      net.Conn
}

// NewTCPSocket returns a Socket that dials plain TCP.
func NewTCPSocket() *TCPSocket {
	return &TCPSocket{}
}

// NewTLSSocket returns a Socket that dials TCP and then upgrades to
// TLS with the given configuration, for rtsps:// sources.
func NewTLSSocket(cfg *tls.Config) *TCPSocket {
	return &TCPSocket{tlsConfig: cfg}
}

func (s *TCPSocket) Connect(addr string, timeout time.Duration) error {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}

	var conn net.Conn
	var err error
	if s.tlsConfig != nil {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, s.tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return err
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	} else if tlsConn, ok := conn.(*tls.Conn); ok {
		if tcpConn, ok := tlsConn.NetConn().(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}
	}

	s.conn = conn
	return nil
}

func (s *TCPSocket) Send(data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	_, err := s.conn.Write(data)
	return err
}

func (s *TCPSocket) Recv(buf []byte, timeout time.Duration) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	return s.conn.Read(buf)
}

// RecvNonBlocking sets an already-elapsed deadline so Read returns
// immediately with a timeout error when no data is queued, rather
// than blocking the event-loop step.
func (s *TCPSocket) RecvNonBlocking(buf []byte) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil
		}
		return n, err
	}
	return n, nil
}

// NativeHandle exposes the underlying file descriptor for external
// poll-group registration (spec §4.7 "event loop integration").
func (s *TCPSocket) NativeHandle() (uintptr, error) {
	conn := s.conn
	if tlsConn, ok := conn.(*tls.Conn); ok {
		conn = tlsConn.NetConn()
	}

	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, errors.New("socket: connection does not expose a native handle")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var fd uintptr
	ctrlErr := raw.Control(func(f uintptr) { fd = f })
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return fd, nil
}

func (s *TCPSocket) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
