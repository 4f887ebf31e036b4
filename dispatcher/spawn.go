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

package dispatcher

import (
	"cmp"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/thediveo/crservice"
	"github.com/thediveo/crservice/uds"
)

// Spawner starts a worker for an accepted connection.
type Spawner interface {
	// Spawn a worker serving the passed connection. The caller keeps
	// ownership of the connection and closes it after Spawn returns. Failure
	// to spawn is reported as a [crservice.ErrFork] error.
	Spawn(conn *uds.Conn) error
}

// WorkerIDFlag is the command line flag passing the worker ID to a worker
// process.
const WorkerIDFlag = "--worker-id"

// ProcessSpawner runs a worker process per connection, passing it the
// connection as fd 3 as well as a fresh worker ID using [WorkerIDFlag].
type ProcessSpawner struct {
	Exe    string   // executable; defaults to ourselves.
	Args   []string // arguments selecting the worker mode.
	Env    []string // additional environment variables.
	Stdout io.Writer
	Stderr io.Writer
	Log    *slog.Logger
}

var _ Spawner = (*ProcessSpawner)(nil)

// Spawn a worker process for conn, reaping the worker in the background when
// it terminates.
func (s *ProcessSpawner) Spawn(conn *uds.Conn) error {
	log := cmp.Or(s.Log, slog.Default())

	// exec.Cmd wants an *os.File for passing on, which is a duplicate of the
	// connection with a lifecycle of its own.
	connf, err := conn.File()
	if err != nil {
		return crservice.Errorf(crservice.ErrFork,
			"cannot fetch connection *os.File: %w", err)
	}
	defer func() { _ = connf.Close() }()

	id := petname.Generate(2, "-")
	worker := exec.Command(cmp.Or(s.Exe, "/proc/self/exe"),
		append(slices.Clone(s.Args), WorkerIDFlag, id)...)
	worker.ExtraFiles = []*os.File{connf}
	worker.Env = append(os.Environ(), s.Env...)
	worker.Stdout = cmp.Or(s.Stdout, io.Writer(os.Stdout))
	worker.Stderr = cmp.Or(s.Stderr, io.Writer(os.Stderr))
	if err := worker.Start(); err != nil {
		return crservice.Errorf(crservice.ErrFork,
			"cannot start worker: %w", err)
	}
	pid := worker.Process.Pid
	log.Info("worker spawned",
		slog.String("worker-id", id),
		slog.Int("pid", pid))
	go func() {
		err := worker.Wait()
		if err != nil {
			log.Warn("worker failed",
				slog.String("worker-id", id),
				slog.Int("pid", pid),
				slog.String("err", err.Error()))
			return
		}
		log.Info("worker done",
			slog.String("worker-id", id),
			slog.Int("pid", pid))
	}()
	return nil
}
