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

package config

import (
	"fmt"
	"os"
	"strconv"
	"syscall"

	ps "github.com/mitchellh/go-ps"
)

// Policy restricts which processes a peer may checkpoint.
type Policy struct {
	// non-root peers may only checkpoint processes owned by their UID.
	SameUID bool `yaml:"same-uid"`
}

// Check returns nil if a peer with the specified UID may dump the target
// process of the passed checkpoint configuration, otherwise an error. Check
// always fails for non-existing target processes.
func (p Policy) Check(c Checkpoint, peerUID uint32) error {
	proc, err := ps.FindProcess(c.Pid)
	if err != nil {
		return fmt.Errorf("cannot look up process %d: %w", c.Pid, err)
	}
	if proc == nil {
		return fmt.Errorf("no process with PID %d", c.Pid)
	}
	if !p.SameUID || peerUID == 0 {
		return nil
	}
	owner, err := processOwner(c.Pid)
	if err != nil {
		return err
	}
	if owner != peerUID {
		return fmt.Errorf("process %d (%s) is not owned by UID %d",
			c.Pid, proc.Executable(), peerUID)
	}
	return nil
}

// processOwner returns the UID owning the process with the specified PID.
func processOwner(pid int) (uint32, error) {
	info, err := os.Stat("/proc/" + strconv.Itoa(pid))
	if err != nil {
		return 0, fmt.Errorf("cannot determine owner of process %d: %w", pid, err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("cannot determine owner of process %d", pid)
	}
	return st.Uid, nil
}
