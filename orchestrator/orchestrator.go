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

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	criu "github.com/checkpoint-restore/go-criu/v7"
	"github.com/checkpoint-restore/go-criu/v7/rpc"
	"github.com/docker/go-units"
	"github.com/thediveo/crservice"
	"github.com/thediveo/crservice/config"
	"github.com/thediveo/crservice/imgdir"
	"golang.org/x/sys/unix"
	"google.golang.org/protobuf/proto"
)

// Dumper dumps processes.
type Dumper interface {
	// Dump the process specified in the checkpoint configuration into the
	// passed image directory, logging to log, and returning a
	// [crservice.ErrDump] error in case of failure. A nil log means slog's
	// default logger.
	Dump(ctx context.Context, cfg *config.Checkpoint, dir *imgdir.Dir, log *slog.Logger) error
}

// DefaultCriuPath is the CRIU binary used when no other path is configured;
// it is looked up in PATH.
const DefaultCriuPath = "criu"

// DefaultLogFile is the name of the engine's own log file inside the image
// directory.
const DefaultLogFile = "criu-dump.log"

// Criu dumps processes using the CRIU binary.
type Criu struct {
	Path    string // CRIU binary; defaults to [DefaultCriuPath].
	LogFile string // log file name; defaults to [DefaultLogFile].
}

var _ Dumper = (*Criu)(nil)

// Dump the process specified in cfg into the image directory dir, using a
// freshly started CRIU service worker. Once started, the engine runs to
// completion, regardless of ctx.
func (c *Criu) Dump(ctx context.Context, cfg *config.Checkpoint, dir *imgdir.Dir, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.Int("target", cfg.Pid))
	if err := ctx.Err(); err != nil {
		return crservice.Errorf(crservice.ErrDump, "dump cancelled: %w", err)
	}

	// CRIU resolves the image directory file descriptor in its own file
	// descriptor table, so it must be inherited.
	if _, err := unix.FcntlInt(uintptr(dir.Fd()), unix.F_SETFD, 0); err != nil {
		return crservice.Errorf(crservice.ErrDump,
			"cannot pass images directory to engine: %w", err)
	}

	engine := criu.MakeCriu()
	engine.SetCriuPath(c.path())
	log.Debug("starting engine", slog.String("path", c.path()))
	start := time.Now()
	if err := engine.Dump(c.dumpOpts(cfg, dir), &notifier{log: log}); err != nil {
		return crservice.Errorf(crservice.ErrDump,
			"engine failed: %w, see %s", err, c.logFile())
	}

	attrs := []any{slog.String("duration", units.HumanDuration(time.Since(start)))}
	if size, err := dir.Usage(); err == nil {
		attrs = append(attrs, slog.String("images", units.HumanSize(float64(size))))
	}
	log.Info("dumped", attrs...)
	return nil
}

// dumpOpts returns the engine dump options for the passed checkpoint
// configuration.
func (c *Criu) dumpOpts(cfg *config.Checkpoint, dir *imgdir.Dir) *rpc.CriuOpts {
	return &rpc.CriuOpts{
		ImagesDirFd:    proto.Int32(int32(dir.Fd())),
		Pid:            proto.Int32(int32(cfg.Pid)),
		LogLevel:       proto.Int32(int32(cfg.LogLevel)),
		LogFile:        proto.String(c.logFile()),
		LeaveRunning:   proto.Bool(cfg.FinalState == config.LeaveRunning),
		ExtUnixSk:      proto.Bool(cfg.ExtUnixSk),
		TcpEstablished: proto.Bool(cfg.TCPEstablished),
		EvasiveDevices: proto.Bool(cfg.EvasiveDevices),
		ShellJob:       proto.Bool(cfg.ShellJob),
		FileLocks:      proto.Bool(cfg.FileLocks),
	}
}

func (c *Criu) path() string {
	if c.Path == "" {
		return DefaultCriuPath
	}
	return c.Path
}

func (c *Criu) logFile() string {
	if c.LogFile == "" {
		return DefaultLogFile
	}
	return c.LogFile
}

// notifier logs the dump notifications from the engine and acknowledges them.
type notifier struct {
	criu.NoNotify
	log *slog.Logger
}

var _ criu.Notify = (*notifier)(nil)

func (n *notifier) PreDump() error {
	n.log.Debug("engine notification", slog.String("script", "pre-dump"))
	return nil
}

func (n *notifier) PostDump() error {
	n.log.Debug("engine notification", slog.String("script", "post-dump"))
	return nil
}
