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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/workturnedplay/winpump/internal/subclass"
	"github.com/workturnedplay/winpump/internal/win32"
)

// maxClassName is the longest window class name the OS accepts.
const maxClassName = 255

// MessageOnly is an invisible window that exists to receive messages. Its
// class procedure is a subclass that feeds the hook chain, so hooks see
// every message from WM_NCCREATE on.
type MessageOnly struct {
	hooked

	className string
	classPtr  *uint16
	instance  windows.Handle
	classUp   bool
}

// NewMessageOnly registers a uniquely named window class and creates the
// window on the calling thread. The caller's goroutine has to stay locked
// to that thread for as long as the window lives.
func NewMessageOnly(opts ...Option) (*MessageOnly, error) {
	o := collect(opts)
	m := &MessageOnly{
		className: ClassName(o.name),
		instance:  win32.ModuleHandle(),
	}
	m.init(o.log.Named("window").With(zap.String("class", m.className)))

	var err error
	m.classPtr, err = windows.UTF16PtrFromString(m.className)
	if err != nil {
		return nil, errors.Wrapf(err, "class name %q", m.className)
	}

	m.sub, err = subclass.New(m.chain.Dispatch,
		subclass.WithExecutor(o.probe),
		subclass.WithLogger(o.log),
		subclass.WithAfterDestroy(m.destroyed))
	if err != nil {
		return nil, err
	}

	wc := win32.WNDCLASSEX{
		LpfnWndProc:   m.sub.Proc(),
		LpszClassName: m.classPtr,
		HInstance:     m.instance,
	}
	if _, err := win32.RegisterClassEx(&wc); err != nil {
		m.sub.Close()
		return nil, errors.Wrap(err, "registering window class")
	}
	m.classUp = true

	hwnd, err := win32.CreateMessageWindow(m.classPtr, m.instance)
	if err != nil {
		m.sub.Close()
		m.unregisterClass()
		return nil, errors.Wrap(err, "creating message-only window")
	}
	m.handle = Owned(hwnd)
	m.log.Debug("created", zap.Uintptr("hwnd", hwnd), zap.Uint32("thread", win32.CurrentThreadID()))
	return m, nil
}

// ClassName builds a class name unique to this process and call:
// <executable>.<name>.<uuid>, cut to the length the OS allows.
func ClassName(name string) string {
	exe := "winpump"
	if p, err := os.Executable(); err == nil {
		exe = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	}
	s := []rune(fmt.Sprintf("%s.%s.%s", exe, name, uuid.NewString()))
	if len(s) > maxClassName {
		s = s[len(s)-maxClassName:]
	}
	return string(s)
}

// ClassName is the registered class name of the window.
func (m *MessageOnly) ClassName() string { return m.className }

// HWND is shorthand for Handle().HWND().
func (m *MessageOnly) HWND() uintptr { return m.handle.HWND() }

// Close destroys the window and unregisters its class. It has to run on
// the window's thread. Closing an already destroyed window only
// unregisters the class.
func (m *MessageOnly) Close() error {
	if m.handle.HWND() != 0 {
		if err := m.handle.Close(); err != nil {
			return err
		}
	}
	return m.unregisterClass()
}

// destroyed runs after WM_NCDESTROY went down the chain.
func (m *MessageOnly) destroyed() {
	if m.handle != nil {
		m.handle.invalidate()
	}
	m.log.Debug("destroyed")
}

func (m *MessageOnly) unregisterClass() error {
	if !m.classUp {
		return nil
	}
	if err := win32.UnregisterClass(m.classPtr, m.instance); err != nil {
		return errors.Wrap(err, "unregistering window class")
	}
	m.classUp = false
	return nil
}
