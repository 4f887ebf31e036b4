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
	"cmp"
	"net"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"syscall"

	"github.com/thediveo/crservice"
)

// ListenerFdFlag is the command line flag passing the file descriptor number
// of an inherited listener to a detached service.
const ListenerFdFlag = "--listener-fd"

// listenerFd is the file descriptor number under which a detached service
// inherits its listener.
const listenerFd = 3

// Detach starts the executable exe (defaulting to ourselves) with the passed
// arguments in a new session and without a controlling terminal, handing it
// the listener l as fd 3. The arguments get [ListenerFdFlag] appended. Detach
// returns the PID of the detached process; it's the caller's responsibility to
// close its copy of the listener and then to exit.
func Detach(l *net.UnixListener, exe string, args []string) (int, error) {
	lf, err := l.File()
	if err != nil {
		return 0, crservice.Errorf(crservice.ErrFork,
			"cannot fetch listener *os.File: %w", err)
	}
	defer func() { _ = lf.Close() }()
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, crservice.Errorf(crservice.ErrFork,
			"cannot open %s: %w", os.DevNull, err)
	}
	defer func() { _ = devnull.Close() }()

	daemon := exec.Command(cmp.Or(exe, "/proc/self/exe"),
		append(slices.Clone(args), ListenerFdFlag, strconv.Itoa(listenerFd))...)
	daemon.Stdin = devnull
	daemon.Stdout = devnull
	daemon.Stderr = devnull
	daemon.ExtraFiles = []*os.File{lf}
	daemon.Dir = "/"
	daemon.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := daemon.Start(); err != nil {
		return 0, crservice.Errorf(crservice.ErrFork,
			"cannot detach: %w", err)
	}
	pid := daemon.Process.Pid
	_ = daemon.Process.Release()
	return pid, nil
}
