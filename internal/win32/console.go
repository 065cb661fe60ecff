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
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// HasConsole reports whether the process is attached to a console window.
// No console is a normal state for a GUI-subsystem build, not an error.
func HasConsole() bool {
	r, _, _ := procGetConsoleWindow.Call()
	return r != 0
}

// SetConsoleCtrlHandler adds (or removes) a handler made with
// windows.NewCallback. The handler runs on a thread the OS creates for it,
// never on a window's thread.
func SetConsoleCtrlHandler(handler uintptr, add bool) error {
	var flag uintptr
	if add {
		flag = 1
	}
	r, _, e := procSetConsoleCtrlHandler.Call(handler, flag)
	if r == 0 {
		return newError("SetConsoleCtrlHandler", e)
	}
	return nil
}

// MutexScope selects the namespace of a named mutex.
type MutexScope int

const (
	MutexScopeSession MutexScope = iota
	MutexScopeMachine
)

// Prefix is the kernel object namespace for s.
func (s MutexScope) Prefix() string {
	switch s {
	case MutexScopeSession:
		return `Local\`
	case MutexScopeMachine:
		return `Global\`
	default:
		panic(fmt.Sprintf("unhandled MutexScope value: %d", s))
	}
}

// ErrAlreadyRunning is returned by AcquireSingleInstance when another
// process holds the mutex.
var ErrAlreadyRunning = errors.New("another instance is already running")

// SingleInstance is an owned named mutex.
type SingleInstance struct {
	handle uintptr
}

// AcquireSingleInstance creates and owns the named mutex, or returns
// ErrAlreadyRunning when another process got there first.
func AcquireSingleInstance(name string, scope MutexScope) (*SingleInstance, error) {
	full := scope.Prefix() + name
	p, err := windows.UTF16PtrFromString(full)
	if err != nil {
		return nil, errors.Wrapf(err, "mutex name %q", full)
	}
	procSetLastError.Call(0)
	r, _, e := procCreateMutex.Call(0, 1, uintptr(unsafe.Pointer(p)))
	if r == 0 {
		if errors.Is(e, windows.ERROR_ACCESS_DENIED) {
			return nil, errors.Wrapf(newError("CreateMutexW", e), "mutex %q is held by an elevated process", full)
		}
		return nil, newError("CreateMutexW", e)
	}
	if errors.Is(e, windows.ERROR_ALREADY_EXISTS) {
		procCloseHandle.Call(r)
		return nil, errors.Wrapf(ErrAlreadyRunning, "mutex %q", full)
	}
	return &SingleInstance{handle: r}, nil
}

// Release gives up ownership and closes the handle. Safe to call twice.
func (s *SingleInstance) Release() error {
	if s == nil || s.handle == 0 {
		return nil
	}
	h := s.handle
	s.handle = 0
	var err error
	if r, _, e := procReleaseMutex.Call(h); r == 0 {
		err = newError("ReleaseMutex", e)
	}
	if r, _, e := procCloseHandle.Call(h); r == 0 && err == nil {
		err = newError("CloseHandle", e)
	}
	return err
}
