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
	"runtime"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"golang.org/x/sys/windows"

	"github.com/workturnedplay/winpump/internal/hookchain"
	"github.com/workturnedplay/winpump/internal/win32"
)

const wmPing = win32.WM_APP + 7

func lockThread(c *qt.C) {
	runtime.LockOSThread()
	c.Cleanup(runtime.UnlockOSThread)
}

func TestInvalidHandle(t *testing.T) {
	c := qt.New(t)
	for _, h := range []*Handle{nil, Owned(0), Borrowed(0), Borrowed(0xdead0)} {
		c.Assert(h.Valid(), qt.IsFalse)
		_, err := h.ThreadID()
		c.Assert(err, qt.Equals, ErrInvalidHandle)
	}
	c.Assert(Owned(0).Close(), qt.Equals, ErrInvalidHandle)

	b := Borrowed(0xdead0)
	c.Assert(b.Close(), qt.IsNil)
	c.Assert(b.HWND(), qt.Equals, uintptr(0))
	c.Assert(b.Close(), qt.Equals, ErrInvalidHandle)
}

func TestClassNameIsUnique(t *testing.T) {
	c := qt.New(t)
	a, b := ClassName("executor"), ClassName("executor")
	c.Assert(a, qt.Not(qt.Equals), b)
	c.Assert(a, qt.Contains, ".executor.")

	long := ClassName(strings.Repeat("x", 400))
	c.Assert(len([]rune(long)), qt.Equals, maxClassName)
}

func TestMessageOnlyLifecycle(t *testing.T) {
	c := qt.New(t)
	lockThread(c)

	m, err := NewMessageOnly(WithName("test"))
	c.Assert(err, qt.IsNil)
	c.Assert(m.Handle().Owning(), qt.IsTrue)
	c.Assert(m.Handle().Valid(), qt.IsTrue)
	c.Assert(m.Handle().OnOwnerThread(), qt.IsTrue)
	id, err := m.Handle().ThreadID()
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, win32.CurrentThreadID())

	var seen []string
	first := hookchain.NewHook(func(hwnd uintptr, msg uint32, wParam, lParam uintptr) hookchain.Result {
		if msg == wmPing {
			seen = append(seen, "first")
		}
		return hookchain.Result{}
	})
	starter := hookchain.NewHook(func(hwnd uintptr, msg uint32, wParam, lParam uintptr) hookchain.Result {
		if msg == wmPing {
			seen = append(seen, "starter")
			return hookchain.Result{Value: wParam * 2, Handled: wParam != 0}
		}
		return hookchain.Result{}
	})
	m.AddHook(first)
	m.AddStartingHook(starter)

	c.Assert(win32.SendMessage(m.HWND(), wmPing, 21, 0), qt.Equals, uintptr(42))
	c.Assert(seen, qt.DeepEquals, []string{"starter"})
	seen = nil
	c.Assert(win32.SendMessage(m.HWND(), wmPing, 0, 0), qt.Equals, uintptr(0))
	c.Assert(seen, qt.DeepEquals, []string{"starter", "first"})

	destroying := 0
	m.OnDestroying(func() { destroying++ })
	c.Assert(m.Close(), qt.IsNil)
	c.Assert(destroying, qt.Equals, 1)
	c.Assert(m.HWND(), qt.Equals, uintptr(0))
	c.Assert(m.Close(), qt.IsNil)

	// The class is gone, so registering the same name again works.
	name, err := windows.UTF16PtrFromString(m.ClassName())
	c.Assert(err, qt.IsNil)
	wc := win32.WNDCLASSEX{LpfnWndProc: win32.DefWindowProcAddr(), LpszClassName: name, HInstance: win32.ModuleHandle()}
	_, err = win32.RegisterClassEx(&wc)
	c.Assert(err, qt.IsNil)
	c.Assert(win32.UnregisterClass(name, wc.HInstance), qt.IsNil)
	runtime.KeepAlive(first)
	runtime.KeepAlive(starter)
}

func TestMessageOnlyCloseFromOtherThread(t *testing.T) {
	c := qt.New(t)
	lockThread(c)

	m, err := NewMessageOnly()
	c.Assert(err, qt.IsNil)
	defer m.Close()

	errc := make(chan error)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		errc <- m.Close()
	}()
	c.Assert(<-errc, qt.Equals, ErrWrongThread)
	c.Assert(m.Handle().Valid(), qt.IsTrue)
}

type done bool

func (d *done) IsShutdownComplete() bool { return bool(*d) }

func TestMessageOnlyShutdownProbe(t *testing.T) {
	c := qt.New(t)
	lockThread(c)

	var finished done
	m, err := NewMessageOnly(WithShutdownProbe(&finished))
	c.Assert(err, qt.IsNil)
	defer m.Close()

	calls := 0
	h := hookchain.NewHook(func(hwnd uintptr, msg uint32, wParam, lParam uintptr) hookchain.Result {
		if msg == wmPing {
			calls++
		}
		return hookchain.Result{}
	})
	m.AddHook(h)

	win32.SendMessage(m.HWND(), wmPing, 0, 0)
	finished = true
	win32.SendMessage(m.HWND(), wmPing, 0, 0)
	c.Assert(calls, qt.Equals, 1)
	runtime.KeepAlive(h)
}

func TestWrapExternalWindow(t *testing.T) {
	c := qt.New(t)
	lockThread(c)

	owner, err := NewMessageOnly(WithName("owner"))
	c.Assert(err, qt.IsNil)
	defer owner.Close()

	var order []string
	inner := hookchain.NewHook(func(hwnd uintptr, msg uint32, wParam, lParam uintptr) hookchain.Result {
		if msg == wmPing {
			order = append(order, "owner")
		}
		return hookchain.Result{}
	})
	owner.AddHook(inner)

	w, err := Wrap(owner.HWND())
	c.Assert(err, qt.IsNil)
	c.Assert(w.Handle().Owning(), qt.IsFalse)
	outer := hookchain.NewHook(func(hwnd uintptr, msg uint32, wParam, lParam uintptr) hookchain.Result {
		if msg == wmPing {
			order = append(order, "wrapper")
		}
		return hookchain.Result{}
	})
	w.AddHook(outer)

	win32.SendMessage(owner.HWND(), wmPing, 0, 0)
	c.Assert(order, qt.DeepEquals, []string{"wrapper", "owner"})

	c.Assert(w.Close(), qt.IsNil)
	c.Assert(owner.Handle().Valid(), qt.IsTrue)
	order = nil
	win32.SendMessage(owner.HWND(), wmPing, 0, 0)
	c.Assert(order, qt.DeepEquals, []string{"owner"})
	runtime.KeepAlive(inner)
	runtime.KeepAlive(outer)
}

func TestWrapInvalidWindow(t *testing.T) {
	c := qt.New(t)
	_, err := Wrap(0xdead0)
	c.Assert(err, qt.Equals, ErrInvalidHandle)
	_, err = Wrap(0)
	c.Assert(err, qt.Equals, ErrInvalidHandle)
}

func TestWrapperSeesDestroy(t *testing.T) {
	c := qt.New(t)
	lockThread(c)

	owner, err := NewMessageOnly()
	c.Assert(err, qt.IsNil)
	w, err := Wrap(owner.HWND())
	c.Assert(err, qt.IsNil)

	notified := 0
	w.OnDestroying(func() { notified++ })
	c.Assert(owner.Close(), qt.IsNil)
	c.Assert(notified, qt.Equals, 1)
	c.Assert(w.Handle().HWND(), qt.Equals, uintptr(0))
	c.Assert(w.Close(), qt.IsNil)
}
