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

// Package hookchain holds the ordered list of message hooks registered
// against one window and dispatches window messages through it.
//
// The chain knows nothing about how messages arrive. Whoever owns the
// window (a subclass, a message-only window) feeds messages into Dispatch
// and forwards them down the native procedure chain when no hook claims them.
//
// Hooks are held weakly: the code that registered a hook keeps it alive.
// Once the registrant drops its *Hook the chain forgets it on the next
// dispatch.
package hookchain

import (
	"sync"
	"sync/atomic"
	"weak"
)

// Window messages the chain treats specially regardless of hook outcome.
const (
	WM_NCCREATE  uint32 = 0x0081
	WM_NCDESTROY uint32 = 0x0082
)

// Result is what a hook reports for a message.
// Value is only meaningful when Handled is true.
type Result struct {
	Value   uintptr
	Handled bool
}

// Procedure processes one window message.
type Procedure func(hwnd uintptr, msg uint32, wParam, lParam uintptr) Result

// Hook is a registered Procedure. Its pointer is its identity: RemoveHook
// matches on the *Hook, never on the function value.
type Hook struct {
	proc Procedure
}

// NewHook wraps proc. Keep the returned pointer for as long as the hook
// should stay registered.
func NewHook(proc Procedure) *Hook {
	return &Hook{proc: proc}
}

// Call invokes the hook's procedure directly.
func (h *Hook) Call(hwnd uintptr, msg uint32, wParam, lParam uintptr) Result {
	return h.proc(hwnd, msg, wParam, lParam)
}

// Chain is an insertion-ordered, weakly held list of hooks.
// The zero value is not usable; call New.
type Chain struct {
	mu    sync.Mutex
	hooks []weak.Pointer[Hook]

	destroying func()
	destroyed  atomic.Bool
}

// Option configures a Chain.
type Option func(*Chain)

// WithDestroying sets the function called once when the chain sees
// WM_NCDESTROY, before the message continues down the native chain.
func WithDestroying(fn func()) Option {
	return func(c *Chain) { c.destroying = fn }
}

// New creates an empty chain.
func New(opts ...Option) *Chain {
	c := &Chain{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddHook appends h. Adding the same hook twice registers it twice.
func (c *Chain) AddHook(h *Hook) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, weak.Make(h))
}

// AddStartingHook inserts h ahead of every hook already registered, so it
// sees messages first.
func (c *Chain) AddStartingHook(h *Hook) {
	if h == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append([]weak.Pointer[Hook]{weak.Make(h)}, c.hooks...)
}

// RemoveHook removes the first registration of h. Removing a hook that was
// never added is a no-op.
func (c *Chain) RemoveHook(h *Hook) {
	if h == nil {
		return
	}
	wp := weak.Make(h)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.hooks {
		if existing == wp {
			c.hooks = append(c.hooks[:i:i], c.hooks[i+1:]...)
			return
		}
	}
}

// Len reports the number of registered hooks that are still alive.
func (c *Chain) Len() int {
	return len(c.live())
}

// Dispatch runs msg through the hooks in order and stops at the first one
// that handles it.
//
// WM_NCCREATE is always reported unhandled so window creation completes
// down the default path. WM_NCDESTROY fires the destroying notification
// (once per chain) and is always reported unhandled so native teardown
// still observes it.
func (c *Chain) Dispatch(hwnd uintptr, msg uint32, wParam, lParam uintptr) Result {
	var result Result
	for _, h := range c.live() {
		result = h.proc(hwnd, msg, wParam, lParam)
		if result.Handled {
			break
		}
	}

	switch msg {
	case WM_NCCREATE:
		result.Handled = false
	case WM_NCDESTROY:
		if c.destroyed.CompareAndSwap(false, true) && c.destroying != nil {
			c.destroying()
		}
		result.Handled = false
	}
	return result
}

// live snapshots the strong hooks and prunes collected entries.
// The snapshot keeps every hook alive for the duration of a dispatch.
func (c *Chain) live() []*Hook {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Hook, 0, len(c.hooks))
	kept := c.hooks[:0]
	for _, wp := range c.hooks {
		if h := wp.Value(); h != nil {
			out = append(out, h)
			kept = append(kept, wp)
		}
	}
	clear(c.hooks[len(kept):])
	c.hooks = kept
	return out
}
