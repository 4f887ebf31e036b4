// Copyright 2025, 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package uds

import (
	"errors"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// Conn represents a message-boundary preserving (SOCK_SEQPACKET) unix domain
// socket connection. It wraps [*net.UnixConn] and adds querying the
// kernel-attested credentials of the connected peer as well as the inode
// number identifying the connection. Use [NewPair] to create a pair of directly
// peer-to-peer connected Conn objects.
type Conn struct {
	*net.UnixConn
}

// NewPair returns a pair of peer-to-peer connected SOCK_SEQPACKET unix domain
// sockets. Both ends are close-on-exec.
func NewPair() (dupond, dupont *Conn, err error) {
	fdpair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, err
	}
	dupond, err = NewUnixConn(fdpair[0], "dupond")
	if err != nil {
		// fdpair[0] is always closed by now, but we don't want to leak
		// fdpair[1]...
		_ = unix.Close(fdpair[1])
		return nil, nil, err
	}
	dupont, err = NewUnixConn(fdpair[1], "dupont")
	if err != nil {
		_ = dupond.Close()
		return nil, nil, err
	}
	return dupond, dupont, nil
}

// Wrap returns a Conn for an already existing *net.UnixConn, such as one
// returned from accepting an incoming connection.
func Wrap(unixconn *net.UnixConn) *Conn {
	return &Conn{UnixConn: unixconn}
}

// PeerCredentials returns the PID, UID, and GID of the process on the other
// end of the connection at the time it connected. These credentials are
// attested by the kernel, so the peer cannot fake them.
func (c *Conn) PeerCredentials() (*unix.Ucred, error) {
	rawconn, err := c.SyscallConn()
	if err != nil {
		return nil, err
	}
	var ucred *unix.Ucred
	var ucredErr error
	if err := rawconn.Control(func(fd uintptr) {
		ucred, ucredErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return nil, err
	}
	if ucredErr != nil {
		return nil, os.NewSyscallError("getsockopt SO_PEERCRED", ucredErr)
	}
	return ucred, nil
}

// Ino returns the inode number of our end of the connection. It stays stable
// for the lifetime of the connection, even when passed to another process.
func (c *Conn) Ino() (uint64, error) {
	rawconn, err := c.SyscallConn()
	if err != nil {
		return 0, err
	}
	var st unix.Stat_t
	var statErr error
	if err := rawconn.Control(func(fd uintptr) {
		statErr = unix.Fstat(int(fd), &st)
	}); err != nil {
		return 0, err
	}
	if statErr != nil {
		return 0, os.NewSyscallError("fstat", statErr)
	}
	return st.Ino, nil
}

// NewUnixConn returns a *Conn for the passed unix domain socket fd; otherwise,
// it then returns an error in case of failure.
//
// Important: NewUnixConn always takes ownership of the passed file descriptor
// and will close it, even in case of error. A caller must not use the passed
// file descriptor anymore and the caller must not close the passed file
// descriptor themselves.
func NewUnixConn(udsfd int, nickname string) (*Conn, error) {
	f := os.NewFile(uintptr(udsfd), nickname)
	if f == nil {
		return nil, errors.New("not a file descriptor")
	}
	defer func() { _ = f.Close() }()
	netconn, err := net.FilePacketConn(f)
	if err != nil {
		return nil, err
	}
	unixconn, ok := netconn.(*net.UnixConn)
	if !ok {
		_ = netconn.Close()
		return nil, errors.New("not a unix domain socket")
	}
	return &Conn{UnixConn: unixconn}, nil
}
