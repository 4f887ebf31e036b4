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
	"fmt"

	"github.com/thediveo/crservice/orchestrator"
)

// VersionCmd represents the 'cr-service version' command.
type VersionCmd struct {
	CriuPath string `help:"CRIU binary." default:"criu" placeholder:"PATH"`
}

// Run prints the service version, and the engine version if available.
func (c *VersionCmd) Run() error {
	fmt.Printf("cr-service %s\n", version)
	if v, err := orchestrator.Version(c.CriuPath); err == nil {
		fmt.Printf("criu %s\n", v)
	}
	return nil
}
