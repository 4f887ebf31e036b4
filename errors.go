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

package crservice

import (
	"errors"
	"fmt"
)

// Error kinds. Connection-scope transport errors drop the connection, while
// transport errors during listener setup are fatal.
var (
	// ErrTransport covers failed reads, writes, accepts, binds, and listens.
	ErrTransport = errors.New("transport error")
	// ErrProtocol signals a malformed, truncated, or unknown request.
	ErrProtocol = errors.New("protocol error")
	// ErrSetup signals failures determining the peer credentials, resolving
	// the image directory, or initializing the dump log.
	ErrSetup = errors.New("setup error")
	// ErrDump signals that the checkpoint engine failed.
	ErrDump = errors.New("dump error")
	// ErrFork signals that no worker could be started for a connection.
	ErrFork = errors.New("fork error")
)

// Errorf returns a new error of the specified kind, formatting the passed
// message. The format may use %w verbs in order to additionally wrap causes.
func Errorf(kind error, format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{kind}, a...)...)
}

// Kind returns the error kind of err, or nil if err isn't of any of the error
// kinds defined in this package.
func Kind(err error) error {
	for _, kind := range []error{ErrTransport, ErrProtocol, ErrSetup, ErrDump, ErrFork} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
