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

import (
	"log/slog"

	"github.com/thediveo/crservice"
	"github.com/thediveo/crservice/uds"
)

// Peer is the process on the other end of a client connection.
type Peer struct {
	PID int
	UID uint32
	GID uint32
	Ino uint64 // inode number of the service end of the connection.
}

// PeerOf returns the kernel-attested identity of the peer connected to conn,
// or a [crservice.ErrSetup] error.
func PeerOf(conn *uds.Conn) (Peer, error) {
	ucred, err := conn.PeerCredentials()
	if err != nil {
		return Peer{}, crservice.Errorf(crservice.ErrSetup,
			"cannot determine peer credentials: %w", err)
	}
	ino, err := conn.Ino()
	if err != nil {
		return Peer{}, crservice.Errorf(crservice.ErrSetup,
			"cannot determine connection identity: %w", err)
	}
	return Peer{
		PID: int(ucred.Pid),
		UID: ucred.Uid,
		GID: ucred.Gid,
		Ino: ino,
	}, nil
}

// LogValue renders the peer as a group of slog attributes.
func (p Peer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("pid", p.PID),
		slog.Uint64("uid", uint64(p.UID)),
		slog.Uint64("gid", uint64(p.GID)),
		slog.Uint64("ino", p.Ino),
	)
}
