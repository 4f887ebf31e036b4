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

package dispatcher

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/thediveo/crservice/uds"
)

// Dispatcher accepts connections and spawns a worker for each of them.
type Dispatcher struct {
	Spawner Spawner
	Log     *slog.Logger
}

// maximum delay after failing accepts before trying again.
const maxAcceptDelay = time.Second

// Serve accepts connections on the passed listener until the context gets
// cancelled, spawning a worker for each connection. Failing to accept or to
// spawn is logged and affects only the connection at hand. Serve closes the
// listener when it returns.
func (d *Dispatcher) Serve(ctx context.Context, l *net.UnixListener) {
	log := cmp.Or(d.Log, slog.Default())
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer func() {
		stop()
		_ = l.Close()
	}()

	log.Info("accepting connections", slog.String("address", l.Addr().String()))
	var delay time.Duration
	for {
		conn, err := l.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("stopped accepting connections")
				return
			}
			delay = min(max(2*delay, 5*time.Millisecond), maxAcceptDelay)
			log.Error("cannot accept connection",
				slog.String("err", err.Error()),
				slog.Duration("retry-in", delay))
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		c := uds.Wrap(conn)
		if err := d.Spawner.Spawn(c); err != nil {
			log.Error("dropping connection", slog.String("err", err.Error()))
		}
		_ = c.Close()
	}
}
