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

package paths

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
)

// PIDFileName is the file name of the service's PID file.
const PIDFileName = "cr-service.pid"

// SystemRuntimeDir is where root places its runtime files.
const SystemRuntimeDir = "/run"

// PIDFile returns the default path of the PID file. A service running as root
// uses [SystemRuntimeDir], while any other user gets the PID file placed in
// their XDG runtime directory, such as /run/user/1000.
func PIDFile() string {
	if os.Geteuid() == 0 {
		return filepath.Join(SystemRuntimeDir, PIDFileName)
	}
	return filepath.Join(xdg.RuntimeDir, PIDFileName)
}

// WritePID writes the PID of this process to the PID file at path, creating
// missing parent directories accessible only to the current user.
func WritePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// ReadPID returns the PID stored in the PID file at path.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
