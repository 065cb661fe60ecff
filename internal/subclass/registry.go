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

package subclass

import (
	"sync"

	"github.com/workturnedplay/winpump/internal/win32"
)

// registry lists every attached subclass and its window.
type registry struct {
	mu      sync.Mutex
	entries map[*Subclass]uintptr
}

var live = &registry{entries: make(map[*Subclass]uintptr)}

func (r *registry) add(s *Subclass, hwnd uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s] = hwnd
}

func (r *registry) remove(s *Subclass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, s)
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Live reports how many subclasses are attached right now.
func Live() int {
	return live.len()
}

var teardownOnce sync.Once

// Teardown force-restores the procedure of every window that still has a
// subclass attached and asks each of those windows to close. It runs once
// per process; later calls do nothing.
//
// Call it when the process is about to exit without an orderly shutdown,
// for example from a console control handler. Afterwards no window is left
// pointing at a callback the runtime is about to take away.
func Teardown() {
	teardownOnce.Do(func() { live.teardown() })
}

func (r *registry) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for s, hwnd := range r.entries {
		s.mu.Lock()
		prev := s.prev
		s.state = Detaching
		s.mu.Unlock()

		// A previous procedure that is one of ours dies with the process too.
		if prev == 0 || pool.owns(prev) {
			prev = win32.DefWindowProcAddr()
		}
		if !win32.IsWindow(hwnd) {
			continue
		}
		if _, err := win32.SetWindowLongPtr(hwnd, win32.GWLP_WNDPROC, prev); err != nil {
			continue
		}
		_ = win32.PostMessage(hwnd, win32.WM_CLOSE, 0, 0)
	}
	clear(r.entries)
}
