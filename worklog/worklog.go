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

// Package worklog provides the per-request dump logs that workers write into
// the image directories of their clients.
package worklog

import (
	"log/slog"
	"os"

	"github.com/thediveo/crservice"
)

// DumpLogName is the name of the log file created inside image directories.
const DumpLogName = "dump.log"

// DefaultVerbosity is the verbosity of a freshly created log, logging
// warnings and errors.
const DefaultVerbosity = 2

// LevelMsg is reserved for plain messages that get logged at all verbosity
// levels.
const LevelMsg = slog.LevelError + 4

// Level returns the slog level corresponding with the passed engine verbosity:
// 0 logs only plain messages, 1 adds errors, 2 warnings, 3 information, and 4
// as well as anything above debug messages.
func Level(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return LevelMsg
	case verbosity == 1:
		return slog.LevelError
	case verbosity == 2:
		return slog.LevelWarn
	case verbosity == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Log is a dump log file.
type Log struct {
	*slog.Logger
	f     *os.File
	level slog.LevelVar
}

// Init creates (or truncates) the log file at path and returns a logger
// writing to it at [DefaultVerbosity] until changed using [Log.SetLevel]. Init
// fails with a [crservice.ErrSetup] error if the log file cannot be created.
func Init(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0o600)
	if err != nil {
		return nil, crservice.Errorf(crservice.ErrSetup,
			"cannot create log file %s: %w", path, err)
	}
	l := &Log{f: f}
	l.level.Set(Level(DefaultVerbosity))
	l.Logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: &l.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelMsg {
					return slog.String(slog.LevelKey, "MSG")
				}
			}
			return a
		},
	}))
	return l, nil
}

// SetLevel changes the verbosity of the log.
func (l *Log) SetLevel(verbosity int) {
	l.level.Set(Level(verbosity))
}

// Close the log file.
func (l *Log) Close() error { return l.f.Close() }
