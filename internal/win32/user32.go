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
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetMessage               = user32.NewProc("GetMessageW")
	procTranslateMessage         = user32.NewProc("TranslateMessage")
	procDispatchMessage          = user32.NewProc("DispatchMessageW")
	procPostMessage              = user32.NewProc("PostMessageW")
	procSendMessage              = user32.NewProc("SendMessageW")
	procPostQuitMessage          = user32.NewProc("PostQuitMessage")
	procRegisterWindowMessage    = user32.NewProc("RegisterWindowMessageW")
	procDefWindowProc            = user32.NewProc("DefWindowProcW")
	procCallWindowProc           = user32.NewProc("CallWindowProcW")
	procRegisterClassEx          = user32.NewProc("RegisterClassExW")
	procUnregisterClass          = user32.NewProc("UnregisterClassW")
	procCreateWindowEx           = user32.NewProc("CreateWindowExW")
	procDestroyWindow            = user32.NewProc("DestroyWindow")
	procIsWindow                 = user32.NewProc("IsWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procRegisterHotKey           = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey         = user32.NewProc("UnregisterHotKey")

	procGetModuleHandle       = kernel32.NewProc("GetModuleHandleW")
	procSetLastError          = kernel32.NewProc("SetLastError")
	procGetConsoleWindow      = kernel32.NewProc("GetConsoleWindow")
	procSetConsoleCtrlHandler = kernel32.NewProc("SetConsoleCtrlHandler")
	procCreateMutex           = kernel32.NewProc("CreateMutexW")
	procReleaseMutex          = kernel32.NewProc("ReleaseMutex")
	procCloseHandle           = kernel32.NewProc("CloseHandle")
)

// The pointer-sized window-long accessors only exist as exports on 64-bit
// user32; 32-bit builds use the plain ones.
var (
	procGetWindowLongPtr = user32.NewProc(ptrSized("GetWindowLongPtrW", "GetWindowLongW"))
	procSetWindowLongPtr = user32.NewProc(ptrSized("SetWindowLongPtrW", "SetWindowLongW"))
)

func ptrSized(wide, narrow string) string {
	if unsafe.Sizeof(uintptr(0)) == 8 {
		return wide
	}
	return narrow
}

const (
	WM_DESTROY   uint32 = 0x0002
	WM_CLOSE     uint32 = 0x0010
	WM_QUIT      uint32 = 0x0012
	WM_NCCREATE  uint32 = 0x0081
	WM_NCDESTROY uint32 = 0x0082
	WM_HOTKEY    uint32 = 0x0312
	WM_USER      uint32 = 0x0400
	WM_APP       uint32 = 0x8000
)

const GWLP_WNDPROC int32 = -4

// HWND_MESSAGE is the parent that makes a window message-only.
const HWND_MESSAGE = ^uintptr(2) // (HWND)-3

const (
	MOD_ALT      uint32 = 0x0001
	MOD_CONTROL  uint32 = 0x0002
	MOD_SHIFT    uint32 = 0x0004
	MOD_WIN      uint32 = 0x0008
	MOD_NOREPEAT uint32 = 0x4000
)

const (
	VK_PAUSE uint32 = 0x13
	VK_F12   uint32 = 0x7B
	VK_F13   uint32 = 0x7C
)

type POINT struct {
	X, Y int32
}

type MSG struct {
	HWnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      POINT
}

type WNDCLASSEX struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     windows.Handle
	HIcon         windows.Handle
	HCursor       windows.Handle
	HbrBackground windows.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       windows.Handle
}

// GetMessage blocks until a message arrives for the calling thread.
// It returns false on WM_QUIT. A failed call is reported as an error.
func GetMessage(msg *MSG) (bool, error) {
	r, _, e := procGetMessage.Call(uintptr(unsafe.Pointer(msg)), 0, 0, 0)
	switch int32(r) {
	case -1:
		return false, newError("GetMessageW", e)
	case 0:
		return false, nil
	}
	return true, nil
}

// TranslateAndDispatch hands msg to its window procedure.
func TranslateAndDispatch(msg *MSG) {
	procTranslateMessage.Call(uintptr(unsafe.Pointer(msg)))
	procDispatchMessage.Call(uintptr(unsafe.Pointer(msg)))
}

func PostMessage(hwnd uintptr, msg uint32, wParam, lParam uintptr) error {
	r, _, e := procPostMessage.Call(hwnd, uintptr(msg), wParam, lParam)
	if r == 0 {
		return newError("PostMessageW", e)
	}
	return nil
}

func SendMessage(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	r, _, _ := procSendMessage.Call(hwnd, uintptr(msg), wParam, lParam)
	return r
}

func PostQuitMessage(code int32) {
	procPostQuitMessage.Call(uintptr(code))
}

// RegisterWindowMessage returns the process-wide id for name. The same name
// always yields the same id.
func RegisterWindowMessage(name string) (uint32, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	r, _, e := procRegisterWindowMessage.Call(uintptr(unsafe.Pointer(p)))
	if r == 0 {
		return 0, newError("RegisterWindowMessageW", e)
	}
	return uint32(r), nil
}

func DefWindowProc(hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	r, _, _ := procDefWindowProc.Call(hwnd, uintptr(msg), wParam, lParam)
	return r
}

// DefWindowProcAddr is the address of DefWindowProcW, the procedure a
// window falls back to when nothing else should see its messages.
func DefWindowProcAddr() uintptr {
	return procDefWindowProc.Addr()
}

func CallWindowProc(prev, hwnd uintptr, msg uint32, wParam, lParam uintptr) uintptr {
	r, _, _ := procCallWindowProc.Call(prev, hwnd, uintptr(msg), wParam, lParam)
	return r
}

// GetWindowLongPtr reads a window slot. Zero is a legal value, so the last
// error is cleared first and only a non-zero last error counts as failure.
func GetWindowLongPtr(hwnd uintptr, index int32) (uintptr, error) {
	procSetLastError.Call(0)
	r, _, e := procGetWindowLongPtr.Call(hwnd, uintptr(index))
	if r == 0 && !isSuccess(e) {
		return 0, newError("GetWindowLongPtrW", e)
	}
	return r, nil
}

// SetWindowLongPtr writes a window slot and returns its previous value.
func SetWindowLongPtr(hwnd uintptr, index int32, value uintptr) (uintptr, error) {
	procSetLastError.Call(0)
	r, _, e := procSetWindowLongPtr.Call(hwnd, uintptr(index), value)
	if r == 0 && !isSuccess(e) {
		return 0, newError("SetWindowLongPtrW", e)
	}
	return r, nil
}

func isSuccess(callErr error) bool {
	errno, ok := callErr.(windows.Errno)
	return callErr == nil || (ok && errno == 0)
}

// ModuleHandle returns the handle of the running executable.
func ModuleHandle() windows.Handle {
	r, _, _ := procGetModuleHandle.Call(0)
	return windows.Handle(r)
}

// RegisterClassEx registers wc and returns its atom.
func RegisterClassEx(wc *WNDCLASSEX) (uint16, error) {
	wc.CbSize = uint32(unsafe.Sizeof(*wc))
	procSetLastError.Call(0)
	r, _, e := procRegisterClassEx.Call(uintptr(unsafe.Pointer(wc)))
	if r == 0 {
		return 0, newError("RegisterClassExW", e)
	}
	return uint16(r), nil
}

func UnregisterClass(className *uint16, instance windows.Handle) error {
	r, _, e := procUnregisterClass.Call(uintptr(unsafe.Pointer(className)), uintptr(instance))
	if r == 0 {
		return newError("UnregisterClassW", e)
	}
	return nil
}

// CreateMessageWindow creates an invisible, message-only window of the
// given class on the calling thread.
func CreateMessageWindow(className *uint16, instance windows.Handle) (uintptr, error) {
	procSetLastError.Call(0)
	r, _, e := procCreateWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		0,
		0,
		0, 0, 0, 0,
		HWND_MESSAGE,
		0,
		uintptr(instance),
		0,
	)
	if r == 0 {
		return 0, newError("CreateWindowExW", e)
	}
	return r, nil
}

// DestroyWindow must run on the thread that created hwnd.
func DestroyWindow(hwnd uintptr) error {
	r, _, e := procDestroyWindow.Call(hwnd)
	if r == 0 {
		return newError("DestroyWindow", e)
	}
	return nil
}

func IsWindow(hwnd uintptr) bool {
	if hwnd == 0 {
		return false
	}
	r, _, _ := procIsWindow.Call(hwnd)
	return r != 0
}

// WindowThreadID returns the id of the thread that created hwnd, or 0 if
// hwnd is not a window.
func WindowThreadID(hwnd uintptr) uint32 {
	r, _, _ := procGetWindowThreadProcessId.Call(hwnd, 0)
	return uint32(r)
}

func CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

func RegisterHotKey(hwnd uintptr, id int32, modifiers, vk uint32) error {
	r, _, e := procRegisterHotKey.Call(hwnd, uintptr(id), uintptr(modifiers), uintptr(vk))
	if r == 0 {
		return newError("RegisterHotKey", e)
	}
	return nil
}

func UnregisterHotKey(hwnd uintptr, id int32) error {
	r, _, e := procUnregisterHotKey.Call(hwnd, uintptr(id))
	if r == 0 {
		return newError("UnregisterHotKey", e)
	}
	return nil
}
