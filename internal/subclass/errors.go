// Copyright 2026 workturnedplay
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package subclass

import "errors"

// Sentinel errors for the subclass package.
var (
	// ErrDetached is returned when attaching a subclass that has already
	// been detached. A subclass is single-use.
	ErrDetached = errors.New("subclass is detached")

	// ErrAlreadyAttached is returned by Attach on an attached subclass.
	ErrAlreadyAttached = errors.New("subclass is already attached")

	// ErrNoCallbackSlots is returned when every native callback slot is
	// held by a live subclass.
	ErrNoCallbackSlots = errors.New("no native callback slots left")

	// ErrInvalidWindow is returned by Attach for a zero window handle.
	ErrInvalidWindow = errors.New("invalid window handle")
)

// State is where a Subclass is in its lifecycle.
type State int32

const (
	// Unattached subclasses have a callback slot but no window. The first
	// message delivered through the slot attaches lazily.
	Unattached State = iota
	Attached
	Detaching
	// Detached is terminal.
	Detached
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Attached:
		return "attached"
	case Detaching:
		return "detaching"
	case Detached:
		return "detached"
	}
	return "unknown"
}
