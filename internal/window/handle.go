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

package window

import (
	"sync/atomic"

	"github.com/workturnedplay/winpump/internal/win32"
)

// Handle refers to a native window. An owning handle destroys the window
// on Close; a borrowed one only forgets it.
type Handle struct {
	hwnd   atomic.Uintptr
	owning bool
}

// Owned returns a handle responsible for destroying hwnd.
func Owned(hwnd uintptr) *Handle {
	h := &Handle{owning: true}
	h.hwnd.Store(hwnd)
	return h
}

// Borrowed returns a handle that observes hwnd without owning it.
func Borrowed(hwnd uintptr) *Handle {
	h := &Handle{}
	h.hwnd.Store(hwnd)
	return h
}

// HWND is the native handle, or 0 once the handle is invalid.
func (h *Handle) HWND() uintptr {
	if h == nil {
		return 0
	}
	return h.hwnd.Load()
}

func (h *Handle) Owning() bool { return h != nil && h.owning }

// Valid reports whether the handle still refers to a live window.
func (h *Handle) Valid() bool {
	return win32.IsWindow(h.HWND())
}

// ThreadID is the id of the thread that created the window.
func (h *Handle) ThreadID() (uint32, error) {
	hwnd := h.HWND()
	if hwnd == 0 {
		return 0, ErrInvalidHandle
	}
	id := win32.WindowThreadID(hwnd)
	if id == 0 {
		return 0, ErrInvalidHandle
	}
	return id, nil
}

// OnOwnerThread reports whether the caller runs on the window's thread.
func (h *Handle) OnOwnerThread() bool {
	id, err := h.ThreadID()
	return err == nil && id == win32.CurrentThreadID()
}

// Close destroys an owned window, which has to happen on the window's
// thread, and invalidates the handle. Closing an invalid handle returns
// ErrInvalidHandle.
func (h *Handle) Close() error {
	hwnd := h.HWND()
	if hwnd == 0 {
		return ErrInvalidHandle
	}
	if h.owning {
		if !h.OnOwnerThread() {
			if !win32.IsWindow(hwnd) {
				h.invalidate()
				return ErrInvalidHandle
			}
			return ErrWrongThread
		}
		if err := win32.DestroyWindow(hwnd); err != nil && !win32.IsInvalidWindow(err) {
			return err
		}
	}
	h.invalidate()
	return nil
}

func (h *Handle) invalidate() {
	h.hwnd.Store(0)
}
