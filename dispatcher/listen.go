// Copyright 2026 Harald Albrecht.
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

package dispatcher

import (
	"errors"
	"io/fs"
	"net"
	"os"

	"github.com/thediveo/crservice"
	"golang.org/x/sys/unix"
)

// DefaultAddress is the default path of the service socket.
const DefaultAddress = "/var/run/criu_service.socket"

// Backlog is the maximum number of pending connections.
const Backlog = 16

// SocketMode allows any local user to connect to the service socket.
const SocketMode = 0o666

// Listen creates a SOCK_SEQPACKET unix domain socket listening at the
// specified address, replacing any stale socket file. The socket file
// permissions allow any local user to connect. All failures are
// [crservice.ErrTransport] errors.
func Listen(address string) (*net.UnixListener, error) {
	if err := os.Remove(address); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, crservice.Errorf(crservice.ErrTransport,
			"cannot remove stale socket %s: %w", address, err)
	}
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, crservice.Errorf(crservice.ErrTransport,
			"cannot create service socket: %w", os.NewSyscallError("socket", err))
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: address}); err != nil {
		_ = unix.Close(fd)
		return nil, crservice.Errorf(crservice.ErrTransport,
			"cannot bind service socket to %s: %w", address, os.NewSyscallError("bind", err))
	}
	if err := os.Chmod(address, SocketMode); err != nil {
		_ = unix.Close(fd)
		_ = os.Remove(address)
		return nil, crservice.Errorf(crservice.ErrTransport,
			"cannot change permissions of service socket: %w", err)
	}
	if err := unix.Listen(fd, Backlog); err != nil {
		_ = unix.Close(fd)
		_ = os.Remove(address)
		return nil, crservice.Errorf(crservice.ErrTransport,
			"cannot listen on service socket: %w", os.NewSyscallError("listen", err))
	}
	l, err := FileListener(fd, address)
	if err != nil {
		_ = os.Remove(address)
		return nil, err
	}
	return l, nil
}

// FileListener returns a listener for the passed file descriptor of a
// listening unix domain socket, such as a listener inherited from a parent
// process. FileListener always takes ownership of the passed file descriptor,
// even in case of failure.
func FileListener(fd int, name string) (*net.UnixListener, error) {
	f := os.NewFile(uintptr(fd), name)
	if f == nil {
		return nil, crservice.Errorf(crservice.ErrTransport,
			"invalid listener fd %d", fd)
	}
	defer func() { _ = f.Close() }()
	l, err := net.FileListener(f)
	if err != nil {
		return nil, crservice.Errorf(crservice.ErrTransport,
			"invalid listener: %w", err)
	}
	ul, ok := l.(*net.UnixListener)
	if !ok {
		_ = l.Close()
		return nil, crservice.Errorf(crservice.ErrTransport,
			"not a unix domain socket listener")
	}
	return ul, nil
}
