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

package api

import (
	"github.com/checkpoint-restore/go-criu/v7/rpc"
	"github.com/thediveo/crservice"
)

// DefaultLogLevel is the verbosity used when a dump request doesn't specify
// any: warnings and errors.
const DefaultLogLevel = 2

// DumpRequest requests checkpointing a process into the image directory that
// the requesting process has open under the file descriptor number
// ImagesDirFd.
type DumpRequest struct {
	// file descriptor number in the requester's(!) file descriptor table,
	// referencing the image directory.
	ImagesDirFd int
	// verbosity of the dump log, from 0 (messages only) to 4 (debug).
	LogLevel int
	// process to checkpoint; defaults to the requesting process.
	Pid Optional[int]
	// leave the checkpointed process running instead of terminating it.
	LeaveRunning   Optional[bool]
	ExtUnixSk      Optional[bool]
	TCPEstablished Optional[bool]
	EvasiveDevices Optional[bool]
	ShellJob       Optional[bool]
	FileLocks      Optional[bool]
}

var _ Request = (*DumpRequest)(nil)

func (d DumpRequest) request() {}

// RPC returns the wire representation of this dump request, passing on only
// the specified optional fields.
func (d DumpRequest) RPC() *rpc.CriuReq {
	var pid *int32
	if p, ok := d.Pid.Get(); ok {
		pid = ptrTo(int32(p))
	}
	return &rpc.CriuReq{
		Type: rpc.CriuReqType_DUMP.Enum(),
		Opts: &rpc.CriuOpts{
			ImagesDirFd:    ptrTo(int32(d.ImagesDirFd)),
			LogLevel:       ptrTo(int32(d.LogLevel)),
			Pid:            pid,
			LeaveRunning:   d.LeaveRunning.ptr(),
			ExtUnixSk:      d.ExtUnixSk.ptr(),
			TcpEstablished: d.TCPEstablished.ptr(),
			EvasiveDevices: d.EvasiveDevices.ptr(),
			ShellJob:       d.ShellJob.ptr(),
			FileLocks:      d.FileLocks.ptr(),
		},
	}
}

// dumpRequestFromRPC returns the dump request described by the passed wire
// options, carrying over the presence of optional fields.
func dumpRequestFromRPC(opts *rpc.CriuOpts) (*DumpRequest, error) {
	if opts == nil {
		return nil, crservice.Errorf(crservice.ErrProtocol, "dump request without options")
	}
	if opts.ImagesDirFd == nil {
		return nil, crservice.Errorf(crservice.ErrProtocol, "dump request without images_dir_fd")
	}
	req := &DumpRequest{
		ImagesDirFd:    int(opts.GetImagesDirFd()),
		LogLevel:       DefaultLogLevel,
		LeaveRunning:   fromPtr(opts.LeaveRunning),
		ExtUnixSk:      fromPtr(opts.ExtUnixSk),
		TCPEstablished: fromPtr(opts.TcpEstablished),
		EvasiveDevices: fromPtr(opts.EvasiveDevices),
		ShellJob:       fromPtr(opts.ShellJob),
		FileLocks:      fromPtr(opts.FileLocks),
	}
	if opts.LogLevel != nil {
		req.LogLevel = int(*opts.LogLevel)
	}
	if opts.Pid != nil {
		req.Pid = Some(int(*opts.Pid))
	}
	return req, nil
}

// DumpResponse reports the outcome of a dump request. Restored is always
// false for dumps, as the checkpointed process is never resumed from its
// images: it either stays running in its original state, or it's gone.
type DumpResponse struct {
	Success  bool
	Restored bool
	Errno    int    // optional OS-level error number
	Errmsg   string // optional error message
}

var _ Response = (*DumpResponse)(nil)

func (d DumpResponse) response() {}

// Succeeded returns the success flag.
func (d DumpResponse) Succeeded() bool { return d.Success }

// RPC returns the wire representation of this dump response.
func (d DumpResponse) RPC() *rpc.CriuResp {
	resp := &rpc.CriuResp{
		Type:    rpc.CriuReqType_DUMP.Enum(),
		Success: ptrTo(d.Success),
		Dump: &rpc.CriuDumpResp{
			Restored: ptrTo(d.Restored),
		},
	}
	if d.Errno != 0 {
		resp.CrErrno = ptrTo(int32(d.Errno))
	}
	if d.Errmsg != "" {
		resp.CrErrmsg = ptrTo(d.Errmsg)
	}
	return resp
}
