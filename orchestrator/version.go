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
	"fmt"

	criu "github.com/checkpoint-restore/go-criu/v7"
	"github.com/thediveo/crservice"
)

// Version returns the version of the CRIU binary at path in textual
// “major.minor.sublevel” form.
func Version(path string) (string, error) {
	if path == "" {
		path = DefaultCriuPath
	}
	c := criu.MakeCriu()
	c.SetCriuPath(path)
	v, err := c.GetCriuVersion()
	if err != nil {
		return "", crservice.Errorf(crservice.ErrDump,
			"cannot determine engine version: %w", err)
	}
	return VersionString(v), nil
}

// VersionString returns the textual form of a numeric CRIU version, such as
// 30419 for “3.4.19”.
func VersionString(v int) string {
	return fmt.Sprintf("%d.%d.%d", v/10000, (v/100)%100, v%100)
}
