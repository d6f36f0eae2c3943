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

import "errors"

// RPC-boundary error taxonomy (spec.md §7). These map 1:1 onto the
// negative errno-like codes the RPC surface returns; internal bus
// handlers never propagate these past the RPC layer that produced them.
var (
	// ErrInval is returned for out-of-bounds or malformed arguments.
	ErrInval = errors.New("invalid argument")
	// ErrIO is returned for transient I/O failure on a collaborator call.
	ErrIO = errors.New("i/o error")
	// ErrPerm is returned when MLAG has not been initialized.
	ErrPerm = errors.New("operation not permitted")
	// ErrNoEnt is returned for an unknown peer, IPL, or port.
	ErrNoEnt = errors.New("no such entity")
	// ErrAFNoSupport is returned for any IPv6 address in an IP-family API.
	ErrAFNoSupport = errors.New("address family not supported")
	// ErrNoSpc is returned when a fixed-capacity table (the IPL table) is full.
	ErrNoSpc = errors.New("no space left")
)
