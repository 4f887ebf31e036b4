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
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/thediveo/crservice/config"
	"github.com/thediveo/crservice/dispatcher"
	"github.com/thediveo/crservice/orchestrator"
	"github.com/thediveo/crservice/paths"
)

// ServeCmd represents the 'cr-service serve' command.
type ServeCmd struct {
	Address    string `short:"a" help:"Path of the service socket." default:"${address}" type:"path"`
	Daemon     bool   `short:"d" help:"Detach and run in the background."`
	Config     string `short:"c" help:"YAML settings file." type:"existingfile" placeholder:"PATH"`
	CriuPath   string `help:"CRIU binary." default:"criu" placeholder:"PATH"`
	PIDFile    string `name:"pidfile" help:"PID file (default: ${pidfile})." type:"path" placeholder:"PATH"`
	ListenerFd int    `hidden:"" default:"-1"`
}

// Run the checkpoint service until the context gets cancelled.
func (c *ServeCmd) Run(ctx context.Context, cli *CLI) error {
	settings, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	settingsEnv, err := settings.Env()
	if err != nil {
		return err
	}

	if v, err := orchestrator.Version(c.CriuPath); err != nil {
		slog.Warn("cannot determine engine version", slog.String("err", err.Error()))
	} else {
		slog.Info("checkpoint engine", slog.String("path", c.CriuPath), slog.String("version", v))
	}

	var l *net.UnixListener
	if c.ListenerFd >= 0 {
		l, err = dispatcher.FileListener(c.ListenerFd, c.Address)
		if err != nil {
			return err
		}
	} else {
		l, err = dispatcher.Listen(c.Address)
		if err != nil {
			return err
		}
		slog.Info("service socket bound", slog.String("address", c.Address))
		if c.Daemon {
			args, err := c.daemonArgs(cli)
			if err != nil {
				_ = l.Close()
				_ = os.Remove(c.Address)
				return err
			}
			pid, err := dispatcher.Detach(l, "", args)
			_ = l.Close()
			if err != nil {
				_ = os.Remove(c.Address)
				return err
			}
			slog.Info("detached", slog.Int("pid", pid))
			return nil
		}
	}

	pidfile := cmp.Or(c.PIDFile, paths.PIDFile())
	if err := paths.WritePID(pidfile); err != nil {
		slog.Warn("failed to write PID file", slog.String("err", err.Error()))
	} else {
		defer func() { _ = os.Remove(pidfile) }()
	}

	d := &dispatcher.Dispatcher{
		Spawner: &dispatcher.ProcessSpawner{
			Args: append(cli.logArgs(), "worker", "--criu-path", c.CriuPath),
			Env:  []string{settingsEnv},
		},
		Log: slog.Default(),
	}
	slog.Info("cr-service is running", slog.Int("pid", os.Getpid()))
	d.Serve(ctx, l)

	slog.Info("shutting down")
	if err := os.Remove(c.Address); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("cannot remove service socket", slog.String("err", err.Error()))
	}
	return nil
}

// daemonArgs returns the command line arguments for the detached service. As
// the detached service runs in the root directory, all paths are absolute.
func (c *ServeCmd) daemonArgs(cli *CLI) ([]string, error) {
	criupath, err := exec.LookPath(c.CriuPath)
	if err != nil {
		return nil, fmt.Errorf("cannot find engine: %w", err)
	}
	if criupath, err = filepath.Abs(criupath); err != nil {
		return nil, err
	}
	args := append(cli.logArgs(), "serve",
		"--address", c.Address,
		"--criu-path", criupath,
		"--pidfile", cmp.Or(c.PIDFile, paths.PIDFile()))
	if c.Config != "" {
		args = append(args, "--config", c.Config)
	}
	return args, nil
}
