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

	"golang.org/x/sys/windows"

	"github.com/workturnedplay/winpump/internal/win32"
)

// MaxSubclasses is the number of subclasses that can be alive at once.
// The runtime never frees a callback made by windows.NewCallback and caps
// how many a process may create at about 2000, so the slots are made once
// and reused. The rest of the runtime's budget is left to other callbacks
// in the process (console handlers, hooks, window classes of other code).
const MaxSubclasses = 1024

// slot is one native window procedure. While owner is set the slot pins
// it: the OS may call proc at any time and must reach that Subclass.
type slot struct {
	index int
	proc  uintptr
	owner *Subclass
}

type callbackPool struct {
	mu     sync.Mutex
	slots  []*slot
	free   []*slot
	byProc map[uintptr]*slot
}

var pool = &callbackPool{byProc: make(map[uintptr]*slot)}

// acquire binds a slot to s, creating a new callback if no released slot is
// available. Released slots are reused oldest first.
func (p *callbackPool) acquire(s *Subclass) (*slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sl *slot
	switch {
	case len(p.free) > 0:
		sl = p.free[0]
		p.free = p.free[1:]
	case len(p.slots) < MaxSubclasses:
		sl = &slot{index: len(p.slots)}
		sl.proc = windows.NewCallback(func(hwnd, msg, wParam, lParam uintptr) uintptr {
			return p.dispatch(sl, hwnd, uint32(msg), wParam, lParam)
		})
		p.slots = append(p.slots, sl)
		p.byProc[sl.proc] = sl
	default:
		return nil, ErrNoCallbackSlots
	}
	sl.owner = s
	return sl, nil
}

// release unpins the slot's owner and makes the slot available again.
func (p *callbackPool) release(sl *slot) {
	if sl == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if sl.owner == nil {
		return
	}
	sl.owner = nil
	p.free = append(p.free, sl)
}

// owns reports whether proc is one of the pool's callbacks.
func (p *callbackPool) owns(proc uintptr) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.byProc[proc]
	return ok
}

// inUse reports how many slots currently pin a subclass.
func (p *callbackPool) inUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots) - len(p.free)
}

// dispatch is the body of every pooled callback. A released slot can still
// be reached through a procedure chain a forced detach left behind; those
// calls go to DefWindowProc.
func (p *callbackPool) dispatch(sl *slot, hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	p.mu.Lock()
	owner := sl.owner
	p.mu.Unlock()

	if owner == nil || !owner.accepts(hwnd) {
		return win32.DefWindowProc(hwnd, msg, wParam, lParam)
	}
	return owner.wndProc(hwnd, msg, wParam, lParam)
}
