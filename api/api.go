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

package api

import (
	"github.com/checkpoint-restore/go-criu/v7/rpc"
	"github.com/thediveo/crservice"
)

type (
	// Request is a typed service request; currently, there's only
	// [DumpRequest].
	Request interface {
		request()
		// RPC returns the wire representation.
		RPC() *rpc.CriuReq
	}

	// Response is a typed service response, mirroring the type of the
	// request it answers.
	Response interface {
		response()
		// Succeeded returns true if the response reports success.
		Succeeded() bool
		// RPC returns the wire representation.
		RPC() *rpc.CriuResp
	}
)

// ErrorResponse can be transferred in place of any other service response. It
// reports failure for the request type Type, which is [rpc.CriuReqType_EMPTY]
// in case the request could not be decoded at all.
type ErrorResponse struct {
	Type   rpc.CriuReqType
	Reason string
}

var _ Response = (*ErrorResponse)(nil)

func (er ErrorResponse) response() {}

// Succeeded always returns false.
func (er ErrorResponse) Succeeded() bool { return false }

// RPC returns the wire representation of this error response.
func (er ErrorResponse) RPC() *rpc.CriuResp {
	resp := &rpc.CriuResp{
		Type:    er.Type.Enum(),
		Success: ptrTo(false),
	}
	if er.Reason != "" {
		resp.CrErrmsg = ptrTo(er.Reason)
	}
	return resp
}

// RequestFromRPC returns the typed request for the passed wire request. It
// returns an [crservice.ErrProtocol] error for unsupported request types and
// for requests lacking required information.
func RequestFromRPC(req *rpc.CriuReq) (Request, error) {
	switch typ := req.GetType(); typ {
	case rpc.CriuReqType_DUMP:
		return dumpRequestFromRPC(req.GetOpts())
	default:
		return nil, crservice.Errorf(crservice.ErrProtocol,
			"unsupported request type %s", typ)
	}
}

// ResponseFromRPC returns the typed response for the passed wire response.
// Responses reporting failure for request types other than dump are returned
// as [*ErrorResponse].
func ResponseFromRPC(resp *rpc.CriuResp) (Response, error) {
	switch typ := resp.GetType(); {
	case typ == rpc.CriuReqType_DUMP && (resp.GetSuccess() || resp.Dump != nil):
		return &DumpResponse{
			Success:  resp.GetSuccess(),
			Restored: resp.GetDump().GetRestored(),
			Errno:    int(resp.GetCrErrno()),
			Errmsg:   resp.GetCrErrmsg(),
		}, nil
	case !resp.GetSuccess():
		return &ErrorResponse{
			Type:   typ,
			Reason: resp.GetCrErrmsg(),
		}, nil
	default:
		return nil, crservice.Errorf(crservice.ErrProtocol,
			"unsupported response type %s", typ)
	}
}

func ptrTo[T any](v T) *T { return &v }
