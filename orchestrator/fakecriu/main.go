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

// fakecriu is a stand-in for the CRIU binary in its “swrk” mode, answering
// version and dump requests without actually checkpointing anything. A dump
// writes the received options as JSON into “criu-req.json” inside the image
// directory, together with a fake image file and a log file.
//
// Set FAKECRIU_FAILURE to “dump” to fail dumps, to “crash” to terminate
// without any response, and to “exit” to respond successfully but then to
// exit with a non-zero status.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/checkpoint-restore/go-criu/v7/rpc"
	"github.com/thediveo/crservice/criumsg"
	"github.com/thediveo/crservice/imgdir"
	"github.com/thediveo/crservice/uds"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

func main() {
	os.Exit(swrk())
}

func swrk() int {
	if len(os.Args) != 3 || os.Args[1] != "swrk" {
		fmt.Fprintln(os.Stderr, "usage: fakecriu swrk FD")
		return 2
	}
	fd, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid fd: %s\n", err)
		return 2
	}
	conn, err := uds.NewUnixConn(fd, "swrk")
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid swrk connection: %s\n", err)
		return 1
	}
	defer func() { _ = conn.Close() }()

	enc := criumsg.NewEncoder()
	dec := criumsg.NewDecoder()
	req := &rpc.CriuReq{}
	if err := dec.Receive(conn, req); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}
	failure := os.Getenv("FAKECRIU_FAILURE")
	var resp *rpc.CriuResp
	switch req.GetType() {
	case rpc.CriuReqType_VERSION:
		resp = &rpc.CriuResp{
			Type:    rpc.CriuReqType_VERSION.Enum(),
			Success: proto.Bool(true),
			Version: &rpc.CriuVersion{
				MajorNumber: proto.Int32(3),
				MinorNumber: proto.Int32(19),
				Sublevel:    proto.Int32(1),
			},
		}
	case rpc.CriuReqType_DUMP:
		switch failure {
		case "crash":
			return 42
		case "dump":
			resp = &rpc.CriuResp{
				Type:     rpc.CriuReqType_DUMP.Enum(),
				Success:  proto.Bool(false),
				CrErrno:  proto.Int32(3),
				CrErrmsg: proto.String("fake dump failure"),
			}
		default:
			if err := dump(conn, req.GetOpts(), enc, dec); err != nil {
				fmt.Fprintf(os.Stderr, "%s\n", err)
				return 1
			}
			resp = &rpc.CriuResp{
				Type:    rpc.CriuReqType_DUMP.Enum(),
				Success: proto.Bool(true),
				Dump:    &rpc.CriuDumpResp{Restored: proto.Bool(false)},
			}
		}
	default:
		resp = &rpc.CriuResp{
			Type:    req.GetType().Enum(),
			Success: proto.Bool(false),
		}
	}
	if err := enc.Send(conn, resp); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	}
	if failure == "exit" {
		return 1
	}
	return 0
}

// dump pretends to dump by writing the dump options and a fake image into the
// image directory, and then notifying the peer about the dump having been done.
func dump(conn *uds.Conn, opts *rpc.CriuOpts, enc *criumsg.Encoder, dec *criumsg.Decoder) error {
	ucred, err := conn.PeerCredentials()
	if err != nil {
		return err
	}
	dir := imgdir.ProcFdPath(int(ucred.Pid), int(opts.GetImagesDirFd()))
	optsJSON, err := protojson.Marshal(opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "criu-req.json"), optsJSON, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("core-%d.img", opts.GetPid())),
		make([]byte, 1000), 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, opts.GetLogFile()),
		[]byte(fmt.Sprintf("fake dump of %d\n", opts.GetPid())), 0o600); err != nil {
		return err
	}

	if err := enc.Send(conn, &rpc.CriuResp{
		Type:    rpc.CriuReqType_NOTIFY.Enum(),
		Success: proto.Bool(true),
		Notify:  &rpc.CriuNotify{Script: proto.String("post-dump")},
	}); err != nil {
		return err
	}
	ack := &rpc.CriuReq{}
	if err := dec.Receive(conn, ack); err != nil {
		return err
	}
	if ack.GetType() != rpc.CriuReqType_NOTIFY || !ack.GetNotifySuccess() {
		return fmt.Errorf("expected notification acknowledgement, got %s", ack.GetType())
	}
	return nil
}
