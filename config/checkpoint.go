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
	"log/slog"

	"github.com/thediveo/crservice/api"
)

// FinalState is the state the checkpointed process ends up in after a
// successful dump.
type FinalState int

const (
	Terminate    FinalState = iota // terminate the process after checkpointing
	LeaveRunning                   // leave the process running
)

func (f FinalState) String() string {
	switch f {
	case Terminate:
		return "terminate"
	case LeaveRunning:
		return "leave-running"
	}
	return "unknown"
}

// Checkpoint configures a single dump. A Checkpoint is a plain value: each
// request gets its own one, merged from the service defaults and the options
// present in the request, and then handed to the checkpoint engine.
type Checkpoint struct {
	Pid            int
	LogLevel       int
	FinalState     FinalState
	ExtUnixSk      bool
	TCPEstablished bool
	EvasiveDevices bool
	ShellJob       bool
	FileLocks      bool
}

// Defaults returns the built-in checkpoint defaults: terminate the dumped
// process, log warnings and errors, and leave all special handling switched
// off.
func Defaults() Checkpoint {
	return Checkpoint{
		LogLevel:   api.DefaultLogLevel,
		FinalState: Terminate,
	}
}

// Merge returns a new Checkpoint with only those options overridden that are
// present in the passed dump request; absent options keep their values from c.
// If the request doesn't specify the process to dump, the peer process gets
// dumped, as identified by its kernel-attested PID peerPID.
//
// Please note that an explicit “leave running = false” does not reset the final
// state back to “terminate”; it simply keeps the current final state.
func (c Checkpoint) Merge(req *api.DumpRequest, peerPID int) Checkpoint {
	merged := c
	merged.Pid = req.Pid.Or(peerPID)
	merged.LogLevel = req.LogLevel
	if leave, _ := req.LeaveRunning.Get(); leave {
		merged.FinalState = LeaveRunning
	}
	merged.ExtUnixSk = req.ExtUnixSk.Or(c.ExtUnixSk)
	merged.TCPEstablished = req.TCPEstablished.Or(c.TCPEstablished)
	merged.EvasiveDevices = req.EvasiveDevices.Or(c.EvasiveDevices)
	merged.ShellJob = req.ShellJob.Or(c.ShellJob)
	merged.FileLocks = req.FileLocks.Or(c.FileLocks)
	return merged
}

// LogValue renders the checkpoint configuration as a group of slog attributes.
func (c Checkpoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pid", c.Pid),
		slog.Int("log-level", c.LogLevel),
		slog.String("final-state", c.FinalState.String()),
		slog.Bool("ext-unix-sk", c.ExtUnixSk),
		slog.Bool("tcp-established", c.TCPEstablished),
		slog.Bool("evasive-devices", c.EvasiveDevices),
		slog.Bool("shell-job", c.ShellJob),
		slog.Bool("file-locks", c.FileLocks),
	)
}
