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
	"fmt"
	"os"

	"github.com/thediveo/crservice/api"
	"github.com/thediveo/crservice/client"
)

// DumpCmd represents the 'cr-service dump' command. Only the options given on
// the command line are sent, leaving all others to the service defaults.
type DumpCmd struct {
	Address        string `short:"a" help:"Path of the service socket." default:"${address}" type:"path"`
	Pid            int    `short:"p" help:"Process to dump (default: this command)."`
	Verbosity      int    `help:"Dump log verbosity, from 0 to 4." default:"2"`
	LeaveRunning   bool   `help:"Leave the process running after dumping."`
	ExtUnixSk      bool   `help:"Allow external unix domain socket connections."`
	TCPEstablished bool   `name:"tcp-established" help:"Dump established TCP connections."`
	EvasiveDevices bool   `help:"Allow devices without a known path."`
	ShellJob       bool   `help:"Allow dumping shell jobs."`
	FileLocks      bool   `help:"Dump file locks."`
	ImagesDir      string `arg:"" help:"Directory to write the images into." type:"existingdir"`
}

// Run sends the dump request with the images directory passed as an open fd.
func (c *DumpCmd) Run(ctx context.Context) error {
	dir, err := os.Open(c.ImagesDir)
	if err != nil {
		return err
	}
	defer func() { _ = dir.Close() }()

	req := &api.DumpRequest{
		ImagesDirFd:    int(dir.Fd()),
		LogLevel:       c.Verbosity,
		LeaveRunning:   present(c.LeaveRunning),
		ExtUnixSk:      present(c.ExtUnixSk),
		TCPEstablished: present(c.TCPEstablished),
		EvasiveDevices: present(c.EvasiveDevices),
		ShellJob:       present(c.ShellJob),
		FileLocks:      present(c.FileLocks),
	}
	if c.Pid > 0 {
		req.Pid = api.Some(c.Pid)
	}
	resp, err := client.Dump(ctx, c.Address, req)
	if err != nil {
		return err
	}
	if !resp.Succeeded() {
		return fmt.Errorf("dump failed: %s", resp.RPC().GetCrErrmsg())
	}
	fmt.Printf("dumped into %s\n", c.ImagesDir)
	return nil
}

// present returns a specified Optional for set flags, and an unspecified one
// otherwise.
func present(flag bool) api.Optional[bool] {
	if !flag {
		return api.None[bool]()
	}
	return api.Some(true)
}
