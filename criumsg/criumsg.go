// Copyright 2025, 2026 Harald Albrecht.
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

package criumsg

import (
	"io"

	"github.com/thediveo/crservice"
	"google.golang.org/protobuf/proto"
)

// MaxMessageSize is the maximum size of a single serialized message in bytes.
const MaxMessageSize = 1024

// Encoder serializes messages into an internal buffer of fixed capacity.
type Encoder struct {
	buff []byte
}

// NewEncoder returns a new encoder that maintains an internal buffer to encode
// into.
func NewEncoder() *Encoder {
	return &Encoder{buff: make([]byte, 0, MaxMessageSize)}
}

// Encode the passed message and return its binary representation as a byte
// slice. The returned slice becomes invalid at the next call to Encode.
//
// Encode cross-checks the serialized size against the size estimate, so that
// any drift between the size estimation and the actual serialization gets
// caught instead of silently sending garbage.
func (e *Encoder) Encode(m proto.Message) ([]byte, error) {
	size := proto.Size(m)
	if size > MaxMessageSize {
		return nil, crservice.Errorf(crservice.ErrProtocol,
			"message size %d exceeds maximum of %d", size, MaxMessageSize)
	}
	b, err := proto.MarshalOptions{}.MarshalAppend(e.buff[:0], m)
	if err != nil {
		return nil, crservice.Errorf(crservice.ErrProtocol,
			"cannot serialize message: %w", err)
	}
	if len(b) != size {
		return nil, crservice.Errorf(crservice.ErrProtocol,
			"serialized size %d differs from estimated size %d", len(b), size)
	}
	return b, nil
}

// Send encodes the passed message and writes it in a single write operation.
func (e *Encoder) Send(w io.Writer, m proto.Message) error {
	b, err := e.Encode(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return crservice.Errorf(crservice.ErrTransport,
			"cannot send message: %w", err)
	}
	return nil
}

// Decoder deserializes messages from an internal buffer of fixed capacity.
type Decoder struct {
	buff []byte
}

// NewDecoder returns a new decoder that maintains an internal buffer to receive
// encoded data into, and to decode from.
//
// The buffer is one byte larger than [MaxMessageSize]: on message-boundary
// preserving sockets, an oversized message gets truncated to the buffer size
// when read, so a completely filled buffer indicates an oversized message.
func NewDecoder() *Decoder {
	return &Decoder{buff: make([]byte, MaxMessageSize+1)}
}

// buffer returns a buffer slice to be used for receiving data.
func (d *Decoder) buffer() []byte {
	return d.buff
}

// Decode the message currently stored in the first n bytes of the decoder's
// buffer into m, where n is the amount of data read.
func (d *Decoder) Decode(n int, m proto.Message) error {
	if n >= len(d.buff) {
		return crservice.Errorf(crservice.ErrProtocol,
			"message exceeds maximum size of %d", MaxMessageSize)
	}
	if err := proto.Unmarshal(d.buff[:n], m); err != nil {
		return crservice.Errorf(crservice.ErrProtocol,
			"cannot deserialize message: %w", err)
	}
	return nil
}

// Receive reads the next message in a single read operation and decodes it
// into m.
func (d *Decoder) Receive(r io.Reader, m proto.Message) error {
	n, err := r.Read(d.buffer())
	if err != nil {
		return crservice.Errorf(crservice.ErrTransport,
			"cannot receive message: %w", err)
	}
	return d.Decode(n, m)
}
