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

// Package bus implements the typed event bus described in spec.md §4.1:
// three priority classes, one dispatcher goroutine per subsystem, strict
// FIFO within a class and strict priority across classes.
package bus

import "github.com/facebookincubator/mlagd/protocol"

// Priority is one of the bus's three queue classes.
type Priority uint8

// Priority classes, highest first.
const (
	High Priority = iota
	Medium
	Low
)

// Event is a typed union identified by opcode; Data carries the
// opcode-specific payload (a *protocol.XxxEvent or a plain Go struct for
// opcodes that never cross the wire).
type Event struct {
	Opcode   protocol.Opcode
	Priority Priority
	Data     any
}

// Handler processes one event to completion; handlers never block.
// A non-nil error is logged by the dispatcher and does not stop it
// (spec.md §7 "Logic" errors).
type Handler func(Event) error
