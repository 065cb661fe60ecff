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

// Package window wraps native windows: a Handle that knows whether it owns
// the window, a message-only window that runs every message through a hook
// chain, and a Wrapper that does the same for a window someone else owns.
package window

import "errors"

// Sentinel errors for the window package.
var (
	// ErrInvalidHandle is returned by every operation on a handle whose
	// window is gone or was never valid.
	ErrInvalidHandle = errors.New("invalid window handle")

	// ErrWrongThread is returned when an operation that must run on the
	// window's thread is called from another one.
	ErrWrongThread = errors.New("not on the window's thread")
)
