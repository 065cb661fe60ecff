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

package hotkey

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/workturnedplay/winpump/internal/executor"
	"github.com/workturnedplay/winpump/internal/hookchain"
	"github.com/workturnedplay/winpump/internal/logging"
	"github.com/workturnedplay/winpump/internal/win32"
)

var (
	ErrDuplicateID = errors.New("hot key id already registered")
	ErrUnknownID   = errors.New("hot key id not registered")
	ErrClosed      = errors.New("hot key manager is closed")
)

// Key is a modifier set plus a virtual-key code, as RegisterHotKey takes
// them.
type Key struct {
	Modifiers uint32
	VK        uint32
}

func (k Key) String() string {
	var s string
	for _, m := range []struct {
		bit  uint32
		name string
	}{
		{win32.MOD_CONTROL, "Ctrl+"},
		{win32.MOD_ALT, "Alt+"},
		{win32.MOD_SHIFT, "Shift+"},
		{win32.MOD_WIN, "Win+"},
	} {
		if k.Modifiers&m.bit != 0 {
			s += m.name
		}
	}
	return s + fmt.Sprintf("VK(0x%02X)", k.VK)
}

type binding struct {
	key Key
	fn  func(ctx context.Context)
}

// Manager owns the hot keys registered on one executor's window. Its hook
// stays on the window for as long as the manager is open.
type Manager struct {
	exec *executor.Executor
	log  *zap.Logger
	hook *hookchain.Hook

	mu       sync.Mutex
	bindings map[int32]binding
	closed   bool
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New hooks WM_HOTKEY on e's window. e has to be running.
func New(ctx context.Context, e *executor.Executor, opts ...Option) (*Manager, error) {
	m := &Manager{exec: e, bindings: make(map[int32]binding)}
	for _, opt := range opts {
		opt(m)
	}
	m.log = logging.OrNop(m.log).Named("hotkey")
	m.hook = hookchain.NewHook(m.wndProc)

	err := e.Invoke(ctx, func(context.Context) error {
		w := e.Window()
		if w == nil {
			return executor.ErrNotRunning
		}
		w.AddHook(m.hook)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.OnShutdown(func(context.Context) { m.unregisterAll() })
	return m, nil
}

// Register binds id to key. fn runs on the executor's thread, with the
// callback context of the executor, each time the key is pressed.
func (m *Manager) Register(ctx context.Context, id int32, key Key, fn func(ctx context.Context)) error {
	return m.exec.Invoke(ctx, func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return ErrClosed
		}
		if _, ok := m.bindings[id]; ok {
			return errors.Wrapf(ErrDuplicateID, "id %d", id)
		}
		if err := win32.RegisterHotKey(m.exec.HWND(), id, key.Modifiers, key.VK); err != nil {
			return errors.Wrapf(err, "registering %v as %d", key, id)
		}
		m.bindings[id] = binding{key: key, fn: fn}
		m.log.Info("registered", zap.Int32("id", id), zap.Stringer("key", key))
		return nil
	})
}

// Unregister removes the hot key bound to id.
func (m *Manager) Unregister(ctx context.Context, id int32) error {
	return m.exec.Invoke(ctx, func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.bindings[id]; !ok {
			return errors.Wrapf(ErrUnknownID, "id %d", id)
		}
		delete(m.bindings, id)
		return errors.Wrapf(win32.UnregisterHotKey(m.exec.HWND(), id), "unregistering %d", id)
	})
}

// IDs lists the registered ids in no particular order.
func (m *Manager) IDs() []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int32, 0, len(m.bindings))
	for id := range m.bindings {
		ids = append(ids, id)
	}
	return ids
}

// Close unregisters every hot key and takes the hook off the window. If
// the executor has already shut down there is nothing left to undo.
func (m *Manager) Close(ctx context.Context) error {
	if m.exec.IsShutdownComplete() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		return nil
	}
	return m.exec.Invoke(ctx, func(context.Context) error {
		m.unregisterAll()
		if w := m.exec.Window(); w != nil {
			w.RemoveHook(m.hook)
		}
		return nil
	})
}

// unregisterAll runs on the executor's thread.
func (m *Manager) unregisterAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	hwnd := m.exec.HWND()
	for id := range m.bindings {
		if err := win32.UnregisterHotKey(hwnd, id); err != nil {
			m.log.Warn("unregistering", zap.Int32("id", id), zap.Error(err))
		}
		delete(m.bindings, id)
	}
}

func (m *Manager) wndProc(hwnd uintptr, msg uint32, wParam, lParam uintptr) hookchain.Result {
	if msg != win32.WM_HOTKEY {
		return hookchain.Result{}
	}
	id := int32(wParam)
	m.mu.Lock()
	b, ok := m.bindings[id]
	m.mu.Unlock()
	if !ok {
		return hookchain.Result{}
	}
	m.log.Debug("pressed", zap.Int32("id", id), zap.Stringer("key", b.key))
	// Already on the executor's thread, so this runs fn right here.
	err := m.exec.Invoke(context.Background(), func(ctx context.Context) error {
		b.fn(ctx)
		return nil
	})
	if err != nil {
		m.log.Error("hot key callback", zap.Int32("id", id), zap.Error(err))
	}
	return hookchain.Result{Handled: true}
}
