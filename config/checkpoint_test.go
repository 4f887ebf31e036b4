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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("checkpoint configuration", func() {

	It("has sane defaults", func() {
		Expect(Defaults()).To(Equal(Checkpoint{
			LogLevel:   2,
			FinalState: Terminate,
		}))
	})

	It("names final states", func() {
		Expect(Terminate.String()).To(Equal("terminate"))
		Expect(LeaveRunning.String()).To(Equal("leave-running"))
		Expect(FinalState(42).String()).To(Equal("unknown"))
	})

	When("merging requests", func() {

		It("dumps the peer when no PID was requested", func() {
			c := Defaults().Merge(&api.DumpRequest{ImagesDirFd: 5, LogLevel: 4}, 12345)
			Expect(c.Pid).To(Equal(12345))
			Expect(c.LogLevel).To(Equal(4))
		})

		It("dumps the requested PID", func() {
			c := Defaults().Merge(&api.DumpRequest{Pid: api.Some(666)}, 12345)
			Expect(c.Pid).To(Equal(666))
		})

		It("leaves the process running only when asked to", func() {
			Expect(Defaults().Merge(&api.DumpRequest{
				LeaveRunning: api.Some(true),
			}, 1).FinalState).To(Equal(LeaveRunning))
			Expect(Defaults().Merge(&api.DumpRequest{
				LeaveRunning: api.Some(false),
			}, 1).FinalState).To(Equal(Terminate))

			leaving := Defaults()
			leaving.FinalState = LeaveRunning
			Expect(leaving.Merge(&api.DumpRequest{
				LeaveRunning: api.Some(false),
			}, 1).FinalState).To(Equal(LeaveRunning))
		})

		It("keeps defaults for absent options", func() {
			defaults := Defaults()
			defaults.TCPEstablished = true
			defaults.FileLocks = true

			c := defaults.Merge(&api.DumpRequest{
				ShellJob:  api.Some(true),
				FileLocks: api.Some(false),
			}, 1)
			Expect(c.ShellJob).To(BeTrue())
			Expect(c.FileLocks).To(BeFalse())
			Expect(c.TCPEstablished).To(BeTrue())
			Expect(c.ExtUnixSk).To(BeFalse())
			Expect(c.EvasiveDevices).To(BeFalse())

			Expect(defaults.TCPEstablished).To(BeTrue(), "Merge must not modify its receiver")
			Expect(defaults.ShellJob).To(BeFalse(), "Merge must not modify its receiver")
		})

		It("doesn't carry over options from one request to the next", func() {
			defaults := Defaults()
			first := defaults.Merge(&api.DumpRequest{
				ExtUnixSk:      api.Some(true),
				EvasiveDevices: api.Some(true),
				LeaveRunning:   api.Some(true),
			}, 1)
			Expect(first.ExtUnixSk).To(BeTrue())

			second := defaults.Merge(&api.DumpRequest{
				ShellJob: api.Some(true),
			}, 2)
			Expect(second).To(Equal(Checkpoint{
				Pid:        2,
				FinalState: Terminate,
				ShellJob:   true,
			}))
		})

	})

	It("logs as a group", func() {
		v := Defaults().LogValue()
		Expect(v.Kind()).To(Equal(slog.KindGroup))
		Expect(v.Group()).To(ContainElement(slog.String("final-state", "terminate")))
	})

})
