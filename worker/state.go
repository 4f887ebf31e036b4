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

package worker

// State of a worker serving a request.
type State int

const (
	Spawned    State = iota // connection accepted, nothing read yet.
	Decoding                // receiving and decoding the request.
	Resolving               // resolving peer and image directory.
	Merging                 // merging request options into the configuration.
	Dumping                 // checkpoint engine at work.
	Responding              // sending the response.
	Terminated              // connection closed.
)

var stateNames = [...]string{
	Spawned:    "spawned",
	Decoding:   "decoding",
	Resolving:  "resolving",
	Merging:    "merging",
	Dumping:    "dumping",
	Responding: "responding",
	Terminated: "terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
