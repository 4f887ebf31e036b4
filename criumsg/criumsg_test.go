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

package criumsg

import (
	"strings"
	"time"

	"github.com/checkpoint-restore/go-criu/v7/rpc"
	"github.com/thediveo/crservice"
	"github.com/thediveo/crservice/uds"
	"google.golang.org/protobuf/proto"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/fdooze"
	. "github.com/thediveo/success"
)

var _ = Describe("CRIU messages", func() {

	BeforeEach(func() {
		goodfds := Filedescriptors()
		DeferCleanup(func() {
			Expect(Filedescriptors()).NotTo(HaveLeakedFds(goodfds))
		})
	})

	Context("encoding", func() {

		It("reports encoding errors", func() {
			enc := NewEncoder()
			Expect(enc.Encode(&rpc.CriuResp{})).Error().To(MatchError(crservice.ErrProtocol))
		})

		It("rejects oversized messages", func() {
			enc := NewEncoder()
			Expect(enc.Encode(&rpc.CriuResp{
				Type:     rpc.CriuReqType_DUMP.Enum(),
				Success:  proto.Bool(false),
				CrErrmsg: proto.String(strings.Repeat("X", MaxMessageSize)),
			})).Error().To(MatchError(ContainSubstring("exceeds maximum")))
		})

		It("encodes into its own buffer", func() {
			enc := NewEncoder()
			b := Successful(enc.Encode(&rpc.CriuResp{
				Type:    rpc.CriuReqType_DUMP.Enum(),
				Success: proto.Bool(true),
			}))
			Expect(b).NotTo(BeEmpty())
			Expect(cap(b)).To(Equal(MaxMessageSize))
		})

	})

	Context("decoding", func() {

		It("rejects garbage", func() {
			dec := NewDecoder()
			n := copy(dec.buffer(), []byte{0xff, 0xff, 0xff, 0xff})
			var req rpc.CriuReq
			Expect(dec.Decode(n, &req)).To(MatchError(crservice.ErrProtocol))
		})

		It("rejects requests lacking the required type", func() {
			dec := NewDecoder()
			var req rpc.CriuReq
			Expect(dec.Decode(0, &req)).To(MatchError(crservice.ErrProtocol))
		})

		It("rejects messages filling the whole buffer", func() {
			dec := NewDecoder()
			var req rpc.CriuReq
			Expect(dec.Decode(len(dec.buffer()), &req)).To(
				MatchError(ContainSubstring("exceeds maximum size")))
		})

	})

	When("exchanging messages over a connection", func() {

		It("sends and receives a request", func() {
			dupond, dupont := Successful2R(uds.NewPair())
			defer func() {
				_ = dupond.Close()
				_ = dupont.Close()
			}()

			Expect(NewEncoder().Send(dupond, &rpc.CriuReq{
				Type: rpc.CriuReqType_DUMP.Enum(),
				Opts: &rpc.CriuOpts{
					ImagesDirFd:  proto.Int32(42),
					LeaveRunning: proto.Bool(false),
				},
			})).To(Succeed())

			Expect(dupont.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			var req rpc.CriuReq
			Expect(NewDecoder().Receive(dupont, &req)).To(Succeed())
			Expect(req.GetType()).To(Equal(rpc.CriuReqType_DUMP))
			Expect(req.GetOpts().GetImagesDirFd()).To(Equal(int32(42)))
			Expect(req.GetOpts().LeaveRunning).NotTo(BeNil())
			Expect(req.GetOpts().ShellJob).To(BeNil())
		})

		It("detects truncated oversized messages", func() {
			dupond, dupont := Successful2R(uds.NewPair())
			defer func() {
				_ = dupond.Close()
				_ = dupont.Close()
			}()

			Expect(dupond.Write(make([]byte, 2*MaxMessageSize))).To(Equal(2 * MaxMessageSize))

			Expect(dupont.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			var req rpc.CriuReq
			Expect(NewDecoder().Receive(dupont, &req)).To(MatchError(crservice.ErrProtocol))
		})

		It("reports transport errors", func() {
			dupond, dupont := Successful2R(uds.NewPair())
			defer func() { _ = dupont.Close() }()
			Expect(dupond.Close()).To(Succeed())

			var req rpc.CriuReq
			Expect(NewDecoder().Receive(dupont, &req)).To(MatchError(crservice.ErrTransport))
			Expect(NewEncoder().Send(dupont, &rpc.CriuResp{
				Type:    rpc.CriuReqType_DUMP.Enum(),
				Success: proto.Bool(true),
			})).To(MatchError(crservice.ErrTransport))
		})

	})

})
