//go:build windows

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

package win32

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// Error is a failed native call.
type Error struct {
	Op    string
	Errno windows.Errno
}

func (e *Error) Error() string {
	if e.Errno == 0 {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return fmt.Sprintf("%s: %v (code %d)", e.Op, e.Errno, uint32(e.Errno))
}

// Unwrap lets errors.Is match the underlying errno, as in
// errors.Is(err, windows.ERROR_INVALID_WINDOW_HANDLE).
func (e *Error) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return e.Errno
}

// newError builds an *Error from the error a LazyProc.Call returned and
// attaches a stack trace.
func newError(op string, callErr error) error {
	var errno windows.Errno
	errors.As(callErr, &errno)
	return errors.WithStack(&Error{Op: op, Errno: errno})
}

// IsInvalidWindow reports whether err means the window was already gone.
func IsInvalidWindow(err error) bool {
	return errors.Is(err, windows.ERROR_INVALID_WINDOW_HANDLE)
}
