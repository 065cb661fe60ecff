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

package executor

import "sync/atomic"

// Frame is one run of an executor's message loop. The loop keeps pumping
// while ShouldContinue is true; frames pushed from inside a callback nest.
type Frame struct {
	cont           atomic.Bool
	exitOnShutdown bool
	stopping       func() bool
	wake           func()
}

func newFrame(exitOnShutdown bool, stopping func() bool, wake func()) *Frame {
	f := &Frame{exitOnShutdown: exitOnShutdown, stopping: stopping, wake: wake}
	f.cont.Store(true)
	return f
}

// ShouldContinue reports whether the loop running this frame keeps going.
// The executor's top frame also stops once shutdown has started.
func (f *Frame) ShouldContinue() bool {
	if !f.cont.Load() {
		return false
	}
	return !(f.exitOnShutdown && f.stopping != nil && f.stopping())
}

// SetContinue changes the frame's flag. Stopping a frame wakes its loop so
// the change is seen even when no other message is pending.
func (f *Frame) SetContinue(v bool) {
	if was := f.cont.Swap(v); was && !v && f.wake != nil {
		f.wake()
	}
}
