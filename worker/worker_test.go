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

package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/checkpoint-restore/go-criu/v7/rpc"
	"github.com/thediveo/crservice"
	"github.com/thediveo/crservice/api"
	"github.com/thediveo/crservice/config"
	"github.com/thediveo/crservice/criumsg"
	"github.com/thediveo/crservice/imgdir"
	"github.com/thediveo/crservice/uds"
	"github.com/thediveo/crservice/worklog"
	"golang.org/x/sys/unix"
	"google.golang.org/protobuf/proto"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/crservice/api/apitest"
	. "github.com/thediveo/fdooze"
	. "github.com/thediveo/success"
)

// mockDumper records the dump requests it gets and fails them with err, if
// set.
type mockDumper struct {
	mu     sync.Mutex
	err    error
	worker *Worker
	calls  []dumpCall
}

type dumpCall struct {
	cfg   config.Checkpoint
	wd    string
	state State
}

func (m *mockDumper) Dump(_ context.Context, cfg *config.Checkpoint, _ *imgdir.Dir, log *slog.Logger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.Info("dumped", slog.Int("target", cfg.Pid))
	wd, _ := os.Getwd()
	m.calls = append(m.calls, dumpCall{cfg: *cfg, wd: wd, state: m.worker.State()})
	return m.err
}

func (m *mockDumper) Calls() []dumpCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dumpCall(nil), m.calls...)
}

var _ = Describe("worker", func() {

	var tmpdir string
	var dirfd int
	var dumper *mockDumper

	BeforeEach(func() {
		goodfds := Filedescriptors()
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).Within(2 * time.Second).ProbeEvery(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
			Expect(Filedescriptors()).NotTo(HaveLeakedFds(goodfds))
		})

		origwd := Successful(os.Getwd())
		DeferCleanup(func() {
			Expect(os.Chdir(origwd)).To(Succeed())
		})

		tmpdir = Successful(filepath.EvalSymlinks(GinkgoT().TempDir()))
		dirfd = Successful(unix.Open(tmpdir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0))
		DeferCleanup(func() { _ = unix.Close(dirfd) })

		dumper = &mockDumper{}
	})

	// serve starts a new worker with the passed settings on a connection,
	// returning the client end of the connection and the channel receiving
	// the exit code.
	serve := func(ctx context.Context, settings config.Settings) (*Worker, *uds.Conn, <-chan int) {
		GinkgoHelper()
		w := &Worker{
			Settings: settings,
			Dumper:   dumper,
			Log: slog.New(slog.NewTextHandler(GinkgoWriter,
				&slog.HandlerOptions{Level: slog.LevelDebug})),
		}
		dumper.worker = w
		service, client := Successful2R(uds.NewPair())
		DeferCleanup(func() { _ = client.Close() })
		exitch := make(chan int, 1)
		go func() {
			exitch <- w.Serve(ctx, service)
		}()
		return w, client, exitch
	}

	send := func(conn *uds.Conn, req *rpc.CriuReq) {
		GinkgoHelper()
		Expect(criumsg.NewEncoder().Send(conn, req)).To(Succeed())
	}

	receive := func(conn *uds.Conn) api.Response {
		GinkgoHelper()
		Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
		resp := &rpc.CriuResp{}
		Expect(criumsg.NewDecoder().Receive(conn, resp)).To(Succeed())
		return Successful(api.ResponseFromRPC(resp))
	}

	// dump carries out a single dump request on a fresh worker, returning its
	// response and exit code.
	dump := func(ctx context.Context, settings config.Settings, req api.DumpRequest) (api.Response, int) {
		GinkgoHelper()
		w, client, exitch := serve(ctx, settings)
		send(client, req.RPC())
		resp := receive(client)
		var exitcode int
		Eventually(exitch).Should(Receive(&exitcode))
		Expect(w.State()).To(Equal(Terminated))
		return resp, exitcode
	}

	It("dumps the peer into its images directory and leaves it running", func(ctx context.Context) {
		resp, exitcode := dump(ctx, config.Settings{}, api.DumpRequest{
			ImagesDirFd:  dirfd,
			LogLevel:     4,
			LeaveRunning: api.Some(true),
		})
		Expect(resp).To(BeDumpResponse(true, false))
		Expect(resp.RPC().GetType()).To(Equal(rpc.CriuReqType_DUMP))
		Expect(exitcode).To(Equal(ExitSuccess))

		calls := dumper.Calls()
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].wd).To(Equal(tmpdir))
		Expect(calls[0].state).To(Equal(Dumping))
		Expect(calls[0].cfg.Pid).To(Equal(os.Getpid()))
		Expect(calls[0].cfg.FinalState).To(Equal(config.LeaveRunning))
		Expect(calls[0].cfg.LogLevel).To(Equal(4))

		dumplog := string(Successful(os.ReadFile(filepath.Join(tmpdir, worklog.DumpLogName))))
		Expect(dumplog).To(ContainSubstring("msg=checkpointing"))
		Expect(dumplog).To(MatchRegexp(`msg=dumped worker-id=\S+ peer\.pid=%d .* target=%d`,
			os.Getpid(), os.Getpid()))
		Expect(dumplog).To(ContainSubstring("msg=\"dump succeeded\""))
	})

	It("logs at the requested verbosity", func(ctx context.Context) {
		_, _ = dump(ctx, config.Settings{}, api.DumpRequest{
			ImagesDirFd: dirfd,
			LogLevel:    2,
		})
		dumplog := string(Successful(os.ReadFile(filepath.Join(tmpdir, worklog.DumpLogName))))
		Expect(dumplog).NotTo(ContainSubstring("msg=checkpointing"))
		Expect(dumplog).NotTo(ContainSubstring("msg=dumped"))
	})

	It("dumps the requested process", func(ctx context.Context) {
		resp, exitcode := dump(ctx, config.Settings{}, api.DumpRequest{
			ImagesDirFd: dirfd,
			Pid:         api.Some(1),
		})
		Expect(resp).To(BeDumpResponse(true, false))
		Expect(exitcode).To(Equal(ExitSuccess))
		Expect(dumper.Calls()[0].cfg.Pid).To(Equal(1))
		Expect(dumper.Calls()[0].cfg.FinalState).To(Equal(config.Terminate))
	})

	It("doesn't carry over options between requests", func(ctx context.Context) {
		yes := true
		settings := config.Settings{Defaults: config.Overrides{TCPEstablished: &yes}}

		_, _ = dump(ctx, settings, api.DumpRequest{
			ImagesDirFd: dirfd,
			ShellJob:    api.Some(true),
			FileLocks:   api.Some(true),
		})
		_, _ = dump(ctx, settings, api.DumpRequest{
			ImagesDirFd: dirfd,
			ExtUnixSk:   api.Some(true),
		})
		calls := dumper.Calls()
		Expect(calls).To(HaveLen(2))
		Expect(calls[0].cfg.ShellJob).To(BeTrue())
		Expect(calls[0].cfg.TCPEstablished).To(BeTrue())
		Expect(calls[1].cfg.ShellJob).To(BeFalse())
		Expect(calls[1].cfg.FileLocks).To(BeFalse())
		Expect(calls[1].cfg.ExtUnixSk).To(BeTrue())
		Expect(calls[1].cfg.TCPEstablished).To(BeTrue())
	})

	It("reports dump failures", func(ctx context.Context) {
		dumper.err = crservice.Errorf(crservice.ErrDump, "engine failed: %w", unix.EPERM)
		resp, exitcode := dump(ctx, config.Settings{}, api.DumpRequest{
			ImagesDirFd:  dirfd,
			LeaveRunning: api.Some(true),
		})
		Expect(resp).To(BeDumpResponse(false, false))
		Expect(resp).To(HaveFailed())
		Expect(resp.(*api.DumpResponse).Errno).To(Equal(int(unix.EPERM)))
		Expect(resp.(*api.DumpResponse).Errmsg).To(ContainSubstring("engine failed"))
		Expect(exitcode).To(Equal(ExitFailure))

		dumplog := string(Successful(os.ReadFile(filepath.Join(tmpdir, worklog.DumpLogName))))
		Expect(dumplog).To(ContainSubstring("msg=\"dump failed\""))
	})

	It("reports invalid image directories", func(ctx context.Context) {
		resp, exitcode := dump(ctx, config.Settings{}, api.DumpRequest{
			ImagesDirFd: 100000,
		})
		Expect(resp).To(BeDumpResponse(false, false))
		Expect(resp.(*api.DumpResponse).Errmsg).To(ContainSubstring(crservice.ErrSetup.Error()))
		Expect(exitcode).To(Equal(ExitFailure))
		Expect(dumper.Calls()).To(BeEmpty())
		Expect(os.Getwd()).NotTo(Equal(tmpdir))
	})

	It("reports non-existing target processes", func(ctx context.Context) {
		resp, exitcode := dump(ctx, config.Settings{}, api.DumpRequest{
			ImagesDirFd: dirfd,
			Pid:         api.Some(math.MaxInt32),
		})
		Expect(resp).To(BeDumpResponse(false, false))
		Expect(resp.(*api.DumpResponse).Errmsg).To(ContainSubstring("no process with PID"))
		Expect(exitcode).To(Equal(ExitFailure))
		Expect(dumper.Calls()).To(BeEmpty())
	})

	It("reports a missing checkpoint engine", func(ctx context.Context) {
		w := &Worker{Log: slog.New(slog.NewTextHandler(GinkgoWriter, nil))}
		service, client := Successful2R(uds.NewPair())
		defer func() { _ = client.Close() }()
		exitch := make(chan int, 1)
		go func() { exitch <- w.Serve(ctx, service) }()
		send(client, api.DumpRequest{ImagesDirFd: dirfd}.RPC())
		Expect(receive(client)).To(HaveFailed())
		Eventually(exitch).Should(Receive(Equal(ExitFailure)))
	})

	When("receiving invalid requests", func() {

		It("rejects garbage", func(ctx context.Context) {
			_, client, exitch := serve(ctx, config.Settings{})
			Expect(client.Write([]byte{0xff, 0xff, 0xff})).Error().NotTo(HaveOccurred())
			resp := receive(client)
			Expect(resp).To(HaveFailed())
			Expect(resp.RPC().GetType()).To(Equal(rpc.CriuReqType_EMPTY))
			Eventually(exitch).Should(Receive(Equal(ExitFailure)))
		})

		It("rejects unsupported request types", func(ctx context.Context) {
			_, client, exitch := serve(ctx, config.Settings{})
			send(client, &rpc.CriuReq{
				Type: rpc.CriuReqType_RESTORE.Enum(),
				Opts: &rpc.CriuOpts{ImagesDirFd: proto.Int32(int32(dirfd))},
			})
			resp := receive(client)
			Expect(resp).To(HaveFailed())
			Expect(resp).To(BeAssignableToTypeOf(&api.ErrorResponse{}))
			Expect(resp.RPC().GetType()).To(Equal(rpc.CriuReqType_RESTORE))
			Expect(resp.(*api.ErrorResponse).Reason).To(ContainSubstring("unsupported request type"))
			Eventually(exitch).Should(Receive(Equal(ExitFailure)))
			Expect(dumper.Calls()).To(BeEmpty())
		})

		It("rejects incomplete dump requests", func(ctx context.Context) {
			_, client, exitch := serve(ctx, config.Settings{})
			send(client, &rpc.CriuReq{Type: rpc.CriuReqType_DUMP.Enum()})
			resp := receive(client)
			Expect(resp).To(HaveFailed())
			Expect(resp.RPC().GetType()).To(Equal(rpc.CriuReqType_DUMP))
			Eventually(exitch).Should(Receive(Equal(ExitFailure)))
		})

		It("stays silent when asked to", func(ctx context.Context) {
			_, client, exitch := serve(ctx, config.Settings{
				Compat: config.Compat{SilentProtocolErrors: true},
			})
			send(client, &rpc.CriuReq{Type: rpc.CriuReqType_RESTORE.Enum()})
			Eventually(exitch).Should(Receive(Equal(ExitFailure)))
			Expect(client.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
			Expect(client.Read(make([]byte, criumsg.MaxMessageSize))).Error().To(
				MatchError(io.EOF))
		})

	})

	It("gives up when the client hangs up", func(ctx context.Context) {
		w, client, exitch := serve(ctx, config.Settings{})
		Expect(client.Close()).To(Succeed())
		Eventually(exitch).Should(Receive(Equal(ExitFailure)))
		Expect(w.State()).To(Equal(Terminated))
	})

	It("fails when it cannot respond", func(ctx context.Context) {
		dumper.err = errors.New("boom")
		w, client, exitch := serve(ctx, config.Settings{})
		send(client, api.DumpRequest{ImagesDirFd: dirfd}.RPC())
		Expect(client.Close()).To(Succeed())
		Eventually(exitch).Should(Receive(Equal(ExitFailure)))
		Expect(w.State()).To(Equal(Terminated))
	})

	It("identifies its peer", func() {
		service, client := Successful2R(uds.NewPair())
		defer func() { _ = service.Close(); _ = client.Close() }()
		peer := Successful(PeerOf(service))
		Expect(peer.PID).To(Equal(os.Getpid()))
		Expect(peer.UID).To(Equal(uint32(os.Getuid())))
		Expect(peer.GID).To(Equal(uint32(os.Getgid())))
		Expect(peer.Ino).NotTo(BeZero())
		Expect(peer.LogValue().Group()).To(HaveLen(4))

		Expect(service.Close()).To(Succeed())
		Expect(PeerOf(service)).Error().To(MatchError(crservice.ErrSetup))
	})

})
