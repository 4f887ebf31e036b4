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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/thediveo/crservice/dispatcher"
	"github.com/thediveo/crservice/paths"
)

// version gets set at build time using linker flags.
var version = "(undefined)"

// CLI represents the root command.
type CLI struct {
	LogLevel string `help:"Minimum level of log messages to emit." enum:"debug,info,warn,error" default:"info"`
	LogFile  string `help:"Log to a file instead of stderr." type:"path" placeholder:"PATH"`

	Serve   ServeCmd   `cmd:"" help:"Run the checkpoint service."`
	Worker  WorkerCmd  `cmd:"" hidden:"" help:"Serve a single connection passed as fd 3."`
	Dump    DumpCmd    `cmd:"" help:"Request the checkpoint service to dump a process."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// exitCode is an error carrying the exit code of the process.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit code %d", int(e)) }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("cr-service"),
		kong.Description("Checkpoint service.\n\nListens on a unix domain socket for dump requests."),
		kong.UsageOnError(),
		kong.Vars{
			"address": dispatcher.DefaultAddress,
			"pidfile": paths.PIDFile(),
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.Bind(&cli),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	closeLog, err := cli.configureLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	if err := kctx.Run(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			return int(code)
		}
		slog.Error(err.Error())
		return 1
	}
	return 0
}

// configureLogger sets the default logger according to the command line
// flags, returning a function for closing the log.
func (c *CLI) configureLogger() (func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, err
	}
	w := os.Stderr
	closeLog := func() {}
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("cannot open log file: %w", err)
		}
		w = f
		closeLog = func() { _ = f.Close() }
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return closeLog, nil
}

// logArgs returns the logging-related command line arguments for passing them
// on to child processes.
func (c *CLI) logArgs() []string {
	args := []string{"--log-level", c.LogLevel}
	if c.LogFile != "" {
		args = append(args, "--log-file", c.LogFile)
	}
	return args
}
