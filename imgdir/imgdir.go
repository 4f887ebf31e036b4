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

package imgdir

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/thediveo/crservice"
	"github.com/thediveo/ioctl"
	"golang.org/x/sys/unix"
)

// Linux kernel [ioctl(2)] command for querying the inode flags of a file or
// directory, see [FS_IOC_GETFLAGS]. The size is that of a long, albeit the
// kernel only ever transfers an int.
//
// [ioctl(2)]: https://man7.org/linux/man-pages/man2/ioctl.2.html
// [FS_IOC_GETFLAGS]: https://man7.org/linux/man-pages/man2/ioctl_iflags.2.html
var FS_IOC_GETFLAGS = ioctl.IOR('f', 1, 8)

// inode flags preventing the engine from writing image files.
const (
	fsImmutableFl = 0x00000010 // FS_IMMUTABLE_FL
	fsAppendFl    = 0x00000020 // FS_APPEND_FL
)

// ProcFdPath returns the procfs path referencing the file descriptor fd in the
// file descriptor table of the process with PID pid.
func ProcFdPath(pid, fd int) string {
	return "/proc/" + strconv.Itoa(pid) + "/fd/" + strconv.Itoa(fd)
}

// Enter changes the current working directory of this process to the directory
// that the process with PID pid has open under the file descriptor number fd,
// returning the resolved directory path. The path is informational only; the
// process is already inside the directory when Enter returns.
//
// Enter fails with a [crservice.ErrSetup] error if the file descriptor doesn't
// exist, doesn't reference a directory, or changing into the directory is
// denied.
func Enter(pid, fd int) (string, error) {
	if fd < 0 {
		return "", crservice.Errorf(crservice.ErrSetup,
			"invalid images directory fd %d", fd)
	}
	fdpath := ProcFdPath(pid, fd)
	if err := unix.Chdir(fdpath); err != nil {
		return "", crservice.Errorf(crservice.ErrSetup,
			"cannot change into images directory %s: %w", fdpath, err)
	}
	wd, err := os.Getwd()
	if err != nil {
		// We're inside the directory anyway, but it has become unreachable
		// by path, such as when it was deleted or sits in another mount
		// namespace.
		return fdpath, nil //nolint:nilerr // path is only informational
	}
	return wd, nil
}

// Dir is an open image directory.
type Dir struct {
	f *os.File
}

// Open returns the current working directory as an image directory, after
// checking that it is a directory the engine can create image files in.
// Otherwise, Open fails with a [crservice.ErrSetup] error.
func Open() (*Dir, error) {
	fd, err := unix.Open(".", unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, crservice.Errorf(crservice.ErrSetup,
			"cannot open images directory: %w", err)
	}
	if err := unix.Faccessat(fd, ".", unix.W_OK|unix.X_OK, 0); err != nil {
		_ = unix.Close(fd)
		return nil, crservice.Errorf(crservice.ErrSetup,
			"images directory not writable: %w", err)
	}
	flags, err := inodeFlags(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, crservice.Errorf(crservice.ErrSetup,
			"cannot query images directory flags: %w", err)
	}
	if flags&(fsImmutableFl|fsAppendFl) != 0 {
		_ = unix.Close(fd)
		return nil, crservice.Errorf(crservice.ErrSetup,
			"images directory is immutable or append-only")
	}
	return &Dir{f: os.NewFile(uintptr(fd), ".")}, nil
}

// inodeFlags returns the inode flags of the open file fd; file systems not
// supporting inode flags report no flags at all.
func inodeFlags(fd int) (uint32, error) {
	flags, err := unix.IoctlGetUint32(fd, FS_IOC_GETFLAGS)
	if err != nil {
		if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) ||
			errors.Is(err, unix.EOPNOTSUPP) {
			return 0, nil
		}
		return 0, err
	}
	return flags, nil
}

// Fd returns the file descriptor of the open image directory. The file
// descriptor stays valid only as long as the Dir hasn't been closed.
func (d *Dir) Fd() int { return int(d.f.Fd()) }

// Close the image directory.
func (d *Dir) Close() error { return d.f.Close() }

// Usage returns the total size in bytes of the regular files inside the image
// directory, including its subdirectories. Entries vanishing while walking the
// directory are ignored.
func (d *Dir) Usage() (int64, error) {
	var total int64
	err := fs.WalkDir(os.DirFS(ProcFdPath(os.Getpid(), d.Fd())), ".",
		func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if !entry.Type().IsRegular() {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			total += info.Size()
			return nil
		})
	if err != nil {
		return 0, err
	}
	return total, nil
}
