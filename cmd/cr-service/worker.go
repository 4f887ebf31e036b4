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

package main

import (
	"context"
	"log/slog"

	"github.com/thediveo/crservice/config"
	"github.com/thediveo/crservice/orchestrator"
	"github.com/thediveo/crservice/uds"
	"github.com/thediveo/crservice/worker"
)

// WorkerCmd represents the hidden 'cr-service worker' command that the service
// runs for each accepted connection.
type WorkerCmd struct {
	CriuPath string `help:"CRIU binary." default:"criu" placeholder:"PATH"`
	WorkerID string `help:"Worker ID used in logs."`
	Fd       int    `help:"Connection fd." default:"3"`
}

// Run a worker serving a single request on the inherited connection.
func (c *WorkerCmd) Run(ctx context.Context) error {
	settings, err := config.FromEnv()
	if err != nil {
		return err
	}
	conn, err := uds.NewUnixConn(c.Fd, "connection")
	if err != nil {
		return err
	}
	w := &worker.Worker{
		ID:       c.WorkerID,
		Settings: *settings,
		Dumper:   &orchestrator.Criu{Path: c.CriuPath},
		Log:      slog.Default(),
	}
	if code := w.Serve(ctx, conn); code != worker.ExitSuccess {
		return exitCode(code)
	}
	return nil
}
