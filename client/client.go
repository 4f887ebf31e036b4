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

// Package client talks to a checkpoint service. Each request uses its own
// connection, as the service serves only a single request per connection.
package client

import (
	"context"
	"net"

	"github.com/checkpoint-restore/go-criu/v7/rpc"
	"github.com/thediveo/crservice"
	"github.com/thediveo/crservice/api"
	"github.com/thediveo/crservice/criumsg"
	"github.com/thediveo/crservice/uds"
)

// Dial connects to the checkpoint service listening on the unix domain socket
// at address.
func Dial(ctx context.Context, address string) (*uds.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unixpacket", address)
	if err != nil {
		return nil, crservice.Errorf(crservice.ErrTransport,
			"cannot connect to service: %w", err)
	}
	return uds.Wrap(conn.(*net.UnixConn)), nil
}

// Do sends the passed request to the checkpoint service at address and returns
// the service's response. Failed operations are reported as responses, not as
// errors; Do only returns errors when failing to talk to the service.
//
// The file descriptors referenced in requests, such as the image directory
// file descriptor of dump requests, must be open in the calling process, as
// the service resolves them via the kernel-attested PID of the caller.
func Do(ctx context.Context, address string, req api.Request) (api.Response, error) {
	conn, err := Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()
	// unblock any pending read or write when the context is done.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := criumsg.NewEncoder().Send(conn, req.RPC()); err != nil {
		return nil, err
	}
	resp := &rpc.CriuResp{}
	if err := criumsg.NewDecoder().Receive(conn, resp); err != nil {
		if ctx.Err() != nil {
			return nil, crservice.Errorf(crservice.ErrTransport, "%w", ctx.Err())
		}
		return nil, err
	}
	return api.ResponseFromRPC(resp)
}

// Dump requests the service at address to dump a process, returning the
// service's response.
func Dump(ctx context.Context, address string, req *api.DumpRequest) (api.Response, error) {
	return Do(ctx, address, req)
}
