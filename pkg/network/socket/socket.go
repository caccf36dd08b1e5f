package socket

import (
	"errors"
	"net"
	"os"
	"runtime"
	"syscall"
)

// The device can burst a whole frame of datagrams between two polls,
// so the OS queue is sized generously.
const udpBufferSize = 16 * 1024 * 1024

// NewUDP creates a UDP socket listener on a given address and port.
func NewUDP(address string, port int) (*net.UDPConn, error) {
	var ip net.IP
	if address != "" {
		if ip = net.ParseIP(address); ip == nil {
			return nil, errors.New("invalid bind address: " + address)
		}
	}
	l, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		return nil, err
	}
	_ = l.SetReadBuffer(udpBufferSize)
	return l, nil
}

// IsPortBusyError tests if the given error is one of
// the port busy errors.
func IsPortBusyError(err error) bool {
	if err == nil {
		return false
	}
	var eOsSyscall *os.SyscallError
	if !errors.As(err, &eOsSyscall) {
		return false
	}
	var errErrno syscall.Errno
	if !errors.As(eOsSyscall, &errErrno) {
		return false
	}
	if errErrno == syscall.EADDRINUSE {
		return true
	}
	const WSAEADDRINUSE = 10048
	return runtime.GOOS == "windows" && errErrno == WSAEADDRINUSE
}
