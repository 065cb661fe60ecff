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

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/workturnedplay/winpump/internal/hookchain"
	"github.com/workturnedplay/winpump/internal/logging"
	"github.com/workturnedplay/winpump/internal/win32"
)

// DetachMessageName is the registered window message used by RequestDetach.
const DetachMessageName = "winpump.subclass.detach"

var detachMessage = sync.OnceValue(func() uint32 {
	id, err := win32.RegisterWindowMessage(DetachMessageName)
	if err != nil {
		return 0
	}
	return id
})

// Results of a detach request.
const (
	detachRefused   uintptr = 0
	detachConfirmed uintptr = 1
)

// ShutdownProbe is implemented by an executor whose window this subclass
// serves. Once it reports shutdown complete the hook is no longer run.
type ShutdownProbe interface {
	IsShutdownComplete() bool
}

// Subclass intercepts the procedure of one window.
type Subclass struct {
	log          *zap.Logger
	probe        ShutdownProbe
	afterDestroy func()

	mu    sync.Mutex
	state State
	hook  hookchain.Procedure
	slot  *slot
	hwnd  uintptr
	prev  uintptr
}

// Option configures a Subclass.
type Option func(*Subclass)

// WithExecutor makes the subclass stop running its hook once the executor
// has finished shutting down. Messages are still forwarded.
func WithExecutor(probe ShutdownProbe) Option {
	return func(s *Subclass) { s.probe = probe }
}

// WithAfterDestroy sets a function run on the window's thread after
// WM_NCDESTROY has gone through the rest of the procedure chain.
func WithAfterDestroy(fn func()) Option {
	return func(s *Subclass) { s.afterDestroy = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Subclass) { s.log = l }
}

// New reserves a native callback for hook. The subclass does nothing until
// it is attached with Attach, or until a window whose class was registered
// with Proc receives its first message.
func New(hook hookchain.Procedure, opts ...Option) (*Subclass, error) {
	s := &Subclass{hook: hook}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrNop(s.log).Named("subclass")

	sl, err := pool.acquire(s)
	if err != nil {
		return nil, err
	}
	s.slot = sl
	return s, nil
}

// Proc is the native window procedure of this subclass. Registering a
// window class with it attaches the subclass to the first window of that
// class, with DefWindowProc as the previous procedure. It is 0 once the
// subclass is detached.
func (s *Subclass) Proc() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slot == nil {
		return 0
	}
	return s.slot.proc
}

func (s *Subclass) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Window is the attached window, or 0.
func (s *Subclass) Window() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hwnd
}

// Attach installs the subclass on hwnd, remembering the current procedure
// so it can be put back. A failed pointer swap is returned as is and
// leaves the subclass unattached.
func (s *Subclass) Attach(hwnd uintptr) error {
	if hwnd == 0 {
		return ErrInvalidWindow
	}
	s.mu.Lock()
	switch s.state {
	case Attached, Detaching:
		s.mu.Unlock()
		return ErrAlreadyAttached
	case Detached:
		s.mu.Unlock()
		return ErrDetached
	}
	proc := s.slot.proc
	s.mu.Unlock()

	current, err := win32.GetWindowLongPtr(hwnd, win32.GWLP_WNDPROC)
	if err != nil {
		return errors.Wrap(err, "reading window procedure")
	}

	s.mu.Lock()
	s.hwnd, s.prev, s.state = hwnd, current, Attached
	s.mu.Unlock()

	replaced, err := win32.SetWindowLongPtr(hwnd, win32.GWLP_WNDPROC, proc)
	if err != nil {
		s.mu.Lock()
		s.hwnd, s.prev, s.state = 0, 0, Unattached
		s.mu.Unlock()
		return errors.Wrap(err, "installing window procedure")
	}

	s.mu.Lock()
	if replaced != current {
		s.prev = replaced
	}
	s.mu.Unlock()

	live.add(s, hwnd)
	s.log.Debug("attached", zap.Uintptr("hwnd", hwnd), zap.Uintptr("previous", replaced))
	return nil
}

// Detach removes the subclass from its window. A polite detach (forcibly
// false) only happens while this subclass is still the window's current
// procedure and otherwise reports false. A forced detach always restores
// the previous procedure.
//
// Detaching an unattached or already detached subclass reports true.
func (s *Subclass) Detach(forcibly bool) (bool, error) {
	s.mu.Lock()
	if s.state == Unattached || s.state == Detached {
		s.mu.Unlock()
		return true, nil
	}
	hwnd, proc := s.hwnd, s.slot.proc
	s.mu.Unlock()

	if !forcibly {
		current, err := win32.GetWindowLongPtr(hwnd, win32.GWLP_WNDPROC)
		switch {
		case win32.IsInvalidWindow(err):
			// Window already gone; nothing left to be polite to.
		case err != nil:
			return false, errors.Wrap(err, "reading window procedure")
		case current != proc:
			s.log.Warn("polite detach refused: another procedure is installed on top",
				zap.Uintptr("hwnd", hwnd), zap.Uintptr("current", current))
			return false, nil
		}
	}

	if err := s.restore(); err != nil {
		return false, err
	}
	return true, nil
}

// restore puts the previous procedure back and unpins the subclass.
func (s *Subclass) restore() error {
	s.mu.Lock()
	if s.state == Detached {
		s.mu.Unlock()
		return nil
	}
	s.state = Detaching
	hwnd, prev := s.hwnd, s.prev
	s.mu.Unlock()

	live.remove(s)
	if prev == 0 {
		prev = win32.DefWindowProcAddr()
	}
	if _, err := win32.SetWindowLongPtr(hwnd, win32.GWLP_WNDPROC, prev); err != nil && !win32.IsInvalidWindow(err) {
		live.add(s, hwnd)
		return errors.Wrap(err, "restoring window procedure")
	}

	s.mu.Lock()
	sl := s.slot
	s.state, s.hwnd, s.prev, s.slot = Detached, 0, 0, nil
	s.mu.Unlock()

	pool.release(sl)
	s.log.Debug("detached", zap.Uintptr("hwnd", hwnd))
	return nil
}

// Close drops the hook and detaches politely. If the subclass cannot
// detach politely it stays installed as a plain forwarder until its window
// is destroyed. Closing a subclass that never attached frees its slot.
func (s *Subclass) Close() error {
	s.mu.Lock()
	s.hook = nil
	if s.state == Unattached {
		sl := s.slot
		s.state, s.slot = Detached, nil
		s.mu.Unlock()
		pool.release(sl)
		return nil
	}
	s.mu.Unlock()

	_, err := s.Detach(false)
	return err
}

// accepts reports whether a message for hwnd belongs to this subclass.
func (s *Subclass) accepts(hwnd uintptr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Unattached:
		return true
	case Attached, Detaching:
		return s.hwnd == hwnd
	}
	return false
}

// wndProc is the installed procedure.
func (s *Subclass) wndProc(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	s.mu.Lock()
	if s.state == Unattached {
		s.hwnd, s.prev, s.state = hwnd, win32.DefWindowProcAddr(), Attached
		s.mu.Unlock()
		live.add(s, hwnd)
		s.log.Debug("attached on first message", zap.Uintptr("hwnd", hwnd), zap.Uint32("msg", msg))
		s.mu.Lock()
	}
	prev, hook := s.prev, s.hook
	s.mu.Unlock()
	if prev == 0 {
		prev = win32.DefWindowProcAddr()
	}

	if dm := detachMessage(); dm != 0 && msg == dm {
		return s.processDetach(prev, hwnd, msg, wParam, lParam)
	}

	var res hookchain.Result
	if hook != nil && (s.probe == nil || !s.probe.IsShutdownComplete()) {
		res = hook(hwnd, msg, wParam, lParam)
	}

	if msg == win32.WM_NCDESTROY {
		if _, err := s.Detach(true); err != nil {
			s.log.Error("detach on destroy", zap.Uintptr("hwnd", hwnd), zap.Error(err))
		}
		r := win32.CallWindowProc(prev, hwnd, msg, wParam, lParam)
		if s.afterDestroy != nil {
			s.afterDestroy()
		}
		return r
	}

	if res.Handled {
		return res.Value
	}
	return win32.CallWindowProc(prev, hwnd, msg, wParam, lParam)
}

// processDetach answers a detach request. A request addressed to another
// subclass goes on down the chain, where that subclass may be found.
func (s *Subclass) processDetach(prev, hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	if wParam != 0 && wParam != s.Proc() {
		return win32.CallWindowProc(prev, hwnd, msg, wParam, lParam)
	}
	detached, err := s.Detach(lParam != 0)
	if err != nil {
		s.log.Error("detach request", zap.Uintptr("hwnd", hwnd), zap.Error(err))
		return detachRefused
	}
	if !detached {
		return detachRefused
	}
	return detachConfirmed
}

// RequestDetach asks the subclass whose procedure is target to detach
// from hwnd, or whichever subclass is on top when target is 0. It uses
// SendMessage, so it may be called from any thread while the window's
// thread is pumping. It reports whether a subclass confirmed detachment.
func RequestDetach(hwnd, target uintptr, forcibly bool) (bool, error) {
	dm := detachMessage()
	if dm == 0 {
		return false, errors.Errorf("registering %s failed", DetachMessageName)
	}
	var lParam uintptr
	if forcibly {
		lParam = 1
	}
	return win32.SendMessage(hwnd, dm, target, lParam) == detachConfirmed, nil
}
