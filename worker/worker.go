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
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/checkpoint-restore/go-criu/v7/rpc"
	petname "github.com/dustinkirkland/golang-petname"
	"github.com/thediveo/crservice"
	"github.com/thediveo/crservice/api"
	"github.com/thediveo/crservice/config"
	"github.com/thediveo/crservice/criumsg"
	"github.com/thediveo/crservice/imgdir"
	"github.com/thediveo/crservice/orchestrator"
	"github.com/thediveo/crservice/uds"
	"github.com/thediveo/crservice/worklog"
	"golang.org/x/sys/unix"
)

// Exit codes of worker processes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Worker serves a single request on a client connection.
type Worker struct {
	ID       string              // for logging; defaults to a fresh pet name.
	Settings config.Settings     // service settings, including checkpoint defaults.
	Dumper   orchestrator.Dumper // checkpoint engine.
	Log      *slog.Logger        // service log; defaults to slog's default logger.

	state atomic.Int32
}

// State returns the current state of the worker.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) setState(s State) { w.state.Store(int32(s)) }

// Serve the single request on conn and then close conn, returning the exit code
// for the worker process: [ExitSuccess] only if the request succeeded and the
// response was sent.
func (w *Worker) Serve(ctx context.Context, conn *uds.Conn) int {
	if w.ID == "" {
		w.ID = petname.Generate(2, "-")
	}
	log := w.logger().With(slog.String("worker-id", w.ID))
	w.setState(Spawned)
	log.Info("worker started")
	defer func() {
		_ = conn.Close()
		w.setState(Terminated)
	}()

	w.setState(Decoding)
	wirereq := &rpc.CriuReq{}
	if err := criumsg.NewDecoder().Receive(conn, wirereq); err != nil {
		log.Error("cannot receive request", slog.String("err", err.Error()))
		if errors.Is(err, crservice.ErrProtocol) {
			w.reject(conn, rpc.CriuReqType_EMPTY, err, log)
		}
		return ExitFailure
	}
	req, err := api.RequestFromRPC(wirereq)
	if err != nil {
		log.Error("invalid request",
			slog.String("type", wirereq.GetType().String()),
			slog.String("err", err.Error()))
		w.reject(conn, wirereq.GetType(), err, log)
		return ExitFailure
	}
	switch req := req.(type) {
	case *api.DumpRequest:
		return w.serveDump(ctx, conn, req, log)
	default:
		err := crservice.Errorf(crservice.ErrProtocol, "unhandled request %T", req)
		log.Error("invalid request", slog.String("err", err.Error()))
		w.reject(conn, wirereq.GetType(), err, log)
		return ExitFailure
	}
}

// reject a request that could not be decoded or isn't supported, unless
// configured to keep silent.
func (w *Worker) reject(conn *uds.Conn, typ rpc.CriuReqType, reason error, log *slog.Logger) {
	if w.Settings.Compat.SilentProtocolErrors {
		return
	}
	w.setState(Responding)
	_ = w.respond(conn, &api.ErrorResponse{Type: typ, Reason: reason.Error()}, log)
}

// request tracks the resources of a dump request in progress.
type request struct {
	log     *slog.Logger // switched to the dump log once available.
	dirpath string
	dir     *imgdir.Dir
	dumplog *worklog.Log
}

func (r *request) close() {
	if r.dir != nil {
		_ = r.dir.Close()
	}
	if r.dumplog != nil {
		_ = r.dumplog.Close()
	}
}

// serveDump carries out a dump request and responds to it.
func (w *Worker) serveDump(ctx context.Context, conn *uds.Conn, req *api.DumpRequest, log *slog.Logger) int {
	r := &request{log: log}
	defer r.close()

	err := w.dump(ctx, conn, req, r)
	resp := &api.DumpResponse{Success: err == nil}
	if err != nil {
		attrs := []any{
			slog.String("kind", fmt.Sprint(crservice.Kind(err))),
			slog.String("err", err.Error()),
		}
		r.log.Error("dump failed", attrs...)
		if r.dumplog != nil {
			log.Error("dump failed", attrs...)
		}
		resp.Errmsg = err.Error()
		var errno unix.Errno
		if errors.As(err, &errno) {
			resp.Errno = int(errno)
		}
	}
	w.setState(Responding)
	if sendErr := w.respond(conn, resp, r.log); sendErr != nil || err != nil {
		return ExitFailure
	}
	r.log.Info("dump succeeded")
	log.Info("dump succeeded", slog.String("images", r.dirpath))
	return ExitSuccess
}

// dump resolves the peer and its image directory, switches logging to the dump
// log inside the image directory, merges the request into the checkpoint
// configuration, and finally dumps.
func (w *Worker) dump(ctx context.Context, conn *uds.Conn, req *api.DumpRequest, r *request) error {
	w.setState(Resolving)
	peer, err := PeerOf(conn)
	if err != nil {
		return err
	}
	r.log = r.log.With(slog.Any("peer", peer))
	if r.dirpath, err = imgdir.Enter(peer.PID, req.ImagesDirFd); err != nil {
		return err
	}
	if r.dir, err = imgdir.Open(); err != nil {
		return err
	}
	if r.dumplog, err = worklog.Init(worklog.DumpLogName); err != nil {
		return err
	}
	r.dumplog.SetLevel(req.LogLevel)
	r.log = r.dumplog.With(slog.String("worker-id", w.ID), slog.Any("peer", peer))
	r.log.Info("images directory", slog.String("path", r.dirpath))

	w.setState(Merging)
	cfg := w.Settings.Checkpoint().Merge(req, peer.PID)
	r.log.Info("checkpointing", slog.Any("config", cfg))
	if err := w.Settings.Policy.Check(cfg, peer.UID); err != nil {
		return crservice.Errorf(crservice.ErrSetup, "dump denied: %w", err)
	}

	w.setState(Dumping)
	if w.Dumper == nil {
		return crservice.Errorf(crservice.ErrDump, "no checkpoint engine")
	}
	return w.Dumper.Dump(ctx, &cfg, r.dir, r.log)
}

// respond sends the passed response in a single message.
func (w *Worker) respond(conn *uds.Conn, resp api.Response, log *slog.Logger) error {
	if err := criumsg.NewEncoder().Send(conn, resp.RPC()); err != nil {
		log.Error("cannot send response", slog.String("err", err.Error()))
		return err
	}
	return nil
}

func (w *Worker) logger() *slog.Logger {
	if w.Log == nil {
		return slog.Default()
	}
	return w.Log
}
