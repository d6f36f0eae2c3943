/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single peer-channel frame; anything larger is a
// decode error rather than an attempt to allocate unbounded memory.
const MaxFrameSize = 64 * 1024

// Frame is one length-prefixed peer-channel message: a 4-byte big-endian
// length covering everything that follows, then a 2-byte big-endian
// opcode, then the opcode's marshaled payload.
type Frame struct {
	Opcode  Opcode
	Payload []byte
}

// WriteFrame writes len|opcode|payload to w in one call.
func WriteFrame(w io.Writer, f Frame) error {
	body := make([]byte, 2+len(f.Payload))
	binary.BigEndian.PutUint16(body[0:2], uint16(f.Opcode))
	copy(body[2:], f.Payload)

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

// ReadFrame blocks until one full frame has been read from r, or returns
// an error (including io.EOF on orderly peer close).
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	length := binary.BigEndian.Uint32(header)
	if length < 2 || length > MaxFrameSize {
		return Frame{}, fmt.Errorf("frame length %d out of bounds", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, fmt.Errorf("reading frame body: %w", err)
	}
	return Frame{
		Opcode:  Opcode(binary.BigEndian.Uint16(body[0:2])),
		Payload: body[2:],
	}, nil
}
