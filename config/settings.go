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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SettingsEnv is the name of the environment variable the service uses to hand
// its settings to its worker processes.
const SettingsEnv = "CRSERVICE_SETTINGS"

// Settings are the service-wide settings, optionally read from a YAML file when
// the service starts. All worker processes inherit the settings of the service.
type Settings struct {
	Defaults Overrides `yaml:"defaults"`
	Policy   Policy    `yaml:"policy"`
	Compat   Compat    `yaml:"compat"`
}

// Overrides of the built-in checkpoint [Defaults]; nil means keeping the
// built-in default.
type Overrides struct {
	LeaveRunning   *bool `yaml:"leave-running,omitempty"`
	ExtUnixSk      *bool `yaml:"ext-unix-sk,omitempty"`
	TCPEstablished *bool `yaml:"tcp-established,omitempty"`
	EvasiveDevices *bool `yaml:"evasive-devices,omitempty"`
	ShellJob       *bool `yaml:"shell-job,omitempty"`
	FileLocks      *bool `yaml:"file-locks,omitempty"`
}

// Compat switches on behavior compatible with older service implementations.
type Compat struct {
	// don't send any response when a request cannot be decoded or is of an
	// unsupported type, but just close the connection.
	SilentProtocolErrors bool `yaml:"silent-protocol-errors"`
}

// Checkpoint returns the checkpoint defaults for the service: the built-in
// defaults with the configured overrides applied.
func (s Settings) Checkpoint() Checkpoint {
	c := Defaults()
	o := s.Defaults
	if o.LeaveRunning != nil && *o.LeaveRunning {
		c.FinalState = LeaveRunning
	}
	set(&c.ExtUnixSk, o.ExtUnixSk)
	set(&c.TCPEstablished, o.TCPEstablished)
	set(&c.EvasiveDevices, o.EvasiveDevices)
	set(&c.ShellJob, o.ShellJob)
	set(&c.FileLocks, o.FileLocks)
	return c
}

func set(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// Parse the passed YAML settings, rejecting unknown fields. Empty input
// results in the zero settings.
func Parse(data []byte) (*Settings, error) {
	s := &Settings{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// Load the settings from the YAML file at path. An empty path results in the
// zero settings.
func Load(path string) (*Settings, error) {
	if path == "" {
		return &Settings{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read settings: %w", err)
	}
	return Parse(data)
}

// FromEnv returns the settings handed down from the service via the
// [SettingsEnv] environment variable.
func FromEnv() (*Settings, error) {
	return Parse([]byte(os.Getenv(SettingsEnv)))
}

// Env returns the settings in the form of an environment variable assignment
// suitable for [os/exec.Cmd.Env].
func (s Settings) Env() (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return SettingsEnv + "=" + string(data), nil
}
