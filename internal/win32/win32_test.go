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
	"os"
	"runtime"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

func TestRegisterWindowMessageIsStable(t *testing.T) {
	c := qt.New(t)
	a, err := RegisterWindowMessage("winpump.test.stable")
	c.Assert(err, qt.IsNil)
	b, err := RegisterWindowMessage("winpump.test.stable")
	c.Assert(err, qt.IsNil)
	c.Assert(a, qt.Equals, b)
	c.Assert(a >= 0xC000, qt.IsTrue)
}

func TestErrorUnwrapsErrno(t *testing.T) {
	c := qt.New(t)
	err := newError("DestroyWindow", windows.ERROR_INVALID_WINDOW_HANDLE)
	c.Assert(IsInvalidWindow(err), qt.IsTrue)

	var werr *Error
	c.Assert(errors.As(err, &werr), qt.IsTrue)
	c.Assert(werr.Op, qt.Equals, "DestroyWindow")
	c.Assert(err.Error(), qt.Contains, "1400")
}

func TestErrorWithoutCode(t *testing.T) {
	c := qt.New(t)
	err := newError("IsWindow", nil)
	c.Assert(err.Error(), qt.Equals, "IsWindow failed")
	c.Assert(IsInvalidWindow(err), qt.IsFalse)
}

func TestDestroyMissingWindow(t *testing.T) {
	c := qt.New(t)
	err := DestroyWindow(0xdead0)
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(IsInvalidWindow(err), qt.IsTrue)
}

func TestMessageWindowLifecycle(t *testing.T) {
	c := qt.New(t)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	name, err := windows.UTF16PtrFromString("winpump.test." + uuid.NewString())
	c.Assert(err, qt.IsNil)
	wc := WNDCLASSEX{
		LpfnWndProc:   DefWindowProcAddr(),
		LpszClassName: name,
		HInstance:     ModuleHandle(),
	}
	_, err = RegisterClassEx(&wc)
	c.Assert(err, qt.IsNil)

	hwnd, err := CreateMessageWindow(name, wc.HInstance)
	c.Assert(err, qt.IsNil)
	c.Assert(IsWindow(hwnd), qt.IsTrue)
	c.Assert(WindowThreadID(hwnd), qt.Equals, CurrentThreadID())

	proc, err := GetWindowLongPtr(hwnd, GWLP_WNDPROC)
	c.Assert(err, qt.IsNil)
	c.Assert(proc, qt.Not(qt.Equals), uintptr(0))

	c.Assert(DestroyWindow(hwnd), qt.IsNil)
	c.Assert(IsWindow(hwnd), qt.IsFalse)
	c.Assert(WindowThreadID(hwnd), qt.Equals, uint32(0))
	c.Assert(UnregisterClass(name, wc.HInstance), qt.IsNil)
}

func TestPumpStopsOnQuit(t *testing.T) {
	c := qt.New(t)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	PostQuitMessage(3)
	var msg MSG
	more, err := GetMessage(&msg)
	c.Assert(err, qt.IsNil)
	c.Assert(more, qt.IsFalse)
	c.Assert(msg.Message, qt.Equals, WM_QUIT)
	c.Assert(msg.WParam, qt.Equals, uintptr(3))
}

func TestSingleInstance(t *testing.T) {
	c := qt.New(t)
	// ReleaseMutex must come from the owning thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	name := fmt.Sprintf("winpump.test.%d.%s", os.Getpid(), uuid.NewString())

	first, err := AcquireSingleInstance(name, MutexScopeSession)
	c.Assert(err, qt.IsNil)

	_, err = AcquireSingleInstance(name, MutexScopeSession)
	c.Assert(errors.Is(err, ErrAlreadyRunning), qt.IsTrue)

	c.Assert(first.Release(), qt.IsNil)
	c.Assert(first.Release(), qt.IsNil)

	again, err := AcquireSingleInstance(name, MutexScopeSession)
	c.Assert(err, qt.IsNil)
	c.Assert(again.Release(), qt.IsNil)
}

func TestMutexScopePrefix(t *testing.T) {
	c := qt.New(t)
	c.Assert(MutexScopeSession.Prefix(), qt.Equals, `Local\`)
	c.Assert(MutexScopeMachine.Prefix(), qt.Equals, `Global\`)
	c.Assert(func() { MutexScope(9).Prefix() }, qt.PanicMatches, `unhandled MutexScope value: 9`)
}
