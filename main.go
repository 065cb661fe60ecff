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

// Command winpump runs a message-pump executor on the main thread. It
// subclasses the executor's own window to log what goes through it, binds a
// hot key that waits on queued work from inside a nested frame, and can run
// a short self-test against the executor.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/workturnedplay/winpump/internal/executor"
	"github.com/workturnedplay/winpump/internal/hookchain"
	"github.com/workturnedplay/winpump/internal/hotkey"
	"github.com/workturnedplay/winpump/internal/logging"
	"github.com/workturnedplay/winpump/internal/subclass"
	"github.com/workturnedplay/winpump/internal/win32"
	"github.com/workturnedplay/winpump/internal/window"
)

func init() {
	// The main thread is locked to the message loop, so the log worker and
	// the self-test need a seat of their own.
	if runtime.GOMAXPROCS(0) < 3 {
		runtime.GOMAXPROCS(3)
	}
}

// hotkeyNestedFrame is the id of Ctrl+Alt+Shift+F12.
const hotkeyNestedFrame int32 = 1

var (
	log            *logging.Logger
	mainExecutor   *executor.Executor
	singleInstance *win32.SingleInstance
	pauseOnExit    bool
)

// logf goes to the log once it exists, to stderr before that.
func logf(format string, args ...any) {
	if log == nil {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
		return
	}
	log.WithOptions(zap.AddCallerSkip(1)).Sugar().Infof(format, args...)
}

func closeAndFlushLog() {
	if log == nil {
		return
	}
	st := log.Stats()
	if st.Dropped > 0 {
		fmt.Fprintf(os.Stderr, "log dropped %s entries\n", logging.WithCommas(st.Dropped))
	}
	if err := log.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing log: %v\n", err)
	}
	log = nil
}

type theILockedMainThreadToken struct{}

type exitStatus struct {
	Code    int
	Message string
}

// exitf unwinds to primary_defer, which exits with code.
func exitf(code int, format string, a ...any) {
	panic(exitStatus{
		Code:    code,
		Message: fmt.Sprintf(format, a...),
	})
}

var currentExitCode int

// secondary_defer only runs when primary_defer failed to exit.
func secondary_defer() {
	exitcode := 121
	if r2 := recover(); r2 != nil {
		logf("!secondary defer here! [CRITICAL ERROR IN primary DEFER]: '%v'\n%s", r2, debug.Stack())
		exitcode = 120
	} else {
		logf("!secondary defer here! primary defer returned instead of exiting")
	}
	logf("!secondary defer here! primary defer wanted exit code '%d' but we use '%d'", currentExitCode, exitcode)
	closeAndFlushLog()
	os.Exit(exitcode)
}

func primary_defer() {
	if r := recover(); r != nil {
		if status, ok := r.(exitStatus); ok {
			currentExitCode = status.Code
			logf("exiting with code '%d': %s", currentExitCode, status.Message)
		} else {
			currentExitCode = 1
			logf("--- CRASH: %v ---\nStack: %s\n--- END ---", r, debug.Stack())
		}
	}

	deinit()
	logf("Execution finished.")

	if pauseOnExit && stdinIsConsoleInteractive() {
		releaseSingleInstance() // don't hog the mutex while waiting
		logf("Press Enter to exit...")
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
	}

	closeAndFlushLog()
	os.Exit(currentExitCode)
}

// deinit undoes whatever main set up, in whatever state it was left.
func deinit() {
	if mainExecutor != nil && !mainExecutor.IsShutdownComplete() {
		// Only reachable by a panic out of Run; the window may still be
		// subclassed, so put every procedure back.
		logf("executor still running at exit, tearing down subclasses")
	}
	subclass.Teardown()
	if n := subclass.Live(); n > 0 {
		logf("%d subclasses still attached after teardown", n)
	}
	releaseSingleInstance()
}

func releaseSingleInstance() {
	if singleInstance == nil {
		return
	}
	if err := singleInstance.Release(); err != nil {
		logf("releasing single instance mutex: %v", err)
	}
}

func stdinIsConsoleInteractive() bool {
	var mode uint32
	return windows.GetConsoleMode(windows.Handle(os.Stdin.Fd()), &mode) == nil
}

// ctrlHandler runs on a thread of its own, where the executor's window
// cannot be destroyed, so it only asks the window to close.
var ctrlHandler = windows.NewCallback(func(ctrlType uint32) uintptr {
	if mainExecutor != nil {
		if hwnd := mainExecutor.HWND(); hwnd != 0 {
			if err := win32.PostMessage(hwnd, win32.WM_CLOSE, uintptr(ctrlType), 0); err == nil {
				return 1
			}
		}
	}
	// No window to close: fall back to the default handling, which exits.
	return 0
})

func installCtrlHandlerIfConsole() {
	if !win32.HasConsole() {
		return
	}
	logf("Installing Ctrl+C handler due to console.")
	if err := win32.SetConsoleCtrlHandler(ctrlHandler, true); err != nil {
		logf("SetConsoleCtrlHandler: %v", err)
	}
}

func main() {
	runtime.LockOSThread()
	token := theILockedMainThreadToken{}

	defer secondary_defer()
	defer primary_defer()

	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		exitf(2, "%v", err)
	}
	pauseOnExit = cfg.pauseExit

	log, err = logging.New(logging.Config{Level: cfg.logLevel, File: cfg.logFile, QueueSize: cfg.logQueue})
	if err != nil {
		exitf(1, "%v", err)
	}
	logf("Started. GOMAXPROCS is %d, CPUs %d", runtime.GOMAXPROCS(0), runtime.NumCPU())

	if cfg.instance != "" {
		ensureSingleInstance(cfg.instance, cfg.machine)
	}
	if err := runApplication(token, cfg); err != nil {
		exitf(2, "Error: %v", err)
	}
	logf("Went past runApplication, now at main()'s end.")
}

func ensureSingleInstance(name string, machine bool) {
	scope := win32.MutexScopeSession
	if machine {
		scope = win32.MutexScopeMachine
	}
	inst, err := win32.AcquireSingleInstance(name, scope)
	if errors.Is(err, win32.ErrAlreadyRunning) {
		exitf(3, "another instance is already running (%s%s)", scope.Prefix(), name)
	}
	if err != nil {
		exitf(1, "single instance: %v", err)
	}
	singleInstance = inst
}

// runApplication runs the executor on the main thread until it shuts down.
func runApplication(_ theILockedMainThreadToken, cfg config) error {
	e := executor.New(executor.WithLogger(log.Logger), executor.WithName("main"))
	mainExecutor = e
	installCtrlHandlerIfConsole()

	e.OnShutdown(func(context.Context) {
		logf("executor shutting down")
	})
	setup := e.InvokeAsync(context.Background(), func(ctx context.Context) error {
		return setupWindow(ctx, e, cfg)
	})
	setup.OnComplete(func(op *executor.Operation) {
		if err := op.Err(); err != nil && !errors.Is(err, executor.ErrCanceled) {
			log.Error("setup failed", zap.Error(err))
			e.Close()
		}
	})

	var selfTestErr chan error
	if cfg.selfTest {
		selfTestErr = make(chan error, 1)
		go func() { selfTestErr <- selfTest(e) }()
	}

	if err := e.Run(); err != nil {
		return errors.Wrap(err, "running executor")
	}
	if err := setup.Err(); err != nil && !errors.Is(err, executor.ErrCanceled) {
		return errors.Wrap(err, "setting up")
	}
	if selfTestErr != nil {
		if err := <-selfTestErr; err != nil {
			return errors.Wrap(err, "self-test")
		}
		logf("self-test passed")
	}
	return nil
}

// setupWindow runs on the executor's thread, before any other work.
func setupWindow(ctx context.Context, e *executor.Executor, cfg config) error {
	w, err := window.Wrap(e.HWND(),
		window.WithLogger(log.Logger),
		window.WithShutdownProbe(e))
	if err != nil {
		return errors.Wrap(err, "subclassing the executor window")
	}
	messages := log.Named("messages")
	// The chain holds hooks weakly; the OnShutdown closure keeps this one.
	logHook := hookchain.NewHook(func(hwnd uintptr, msg uint32, wParam, lParam uintptr) hookchain.Result {
		messages.Debug("message",
			zap.Uintptr("hwnd", hwnd),
			zap.Uint32("msg", msg),
			zap.Uintptr("wParam", wParam),
			zap.Uintptr("lParam", lParam))
		return hookchain.Result{}
	})
	w.AddHook(logHook)
	w.OnDestroying(func() { logf("executor window is being destroyed") })
	e.OnShutdown(func(context.Context) {
		w.RemoveHook(logHook)
		if err := w.Close(); err != nil {
			logf("removing the logging subclass: %v", err)
		}
	})

	if !cfg.hotkey {
		return nil
	}
	keys, err := hotkey.New(ctx, e, hotkey.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	key := hotkey.Key{Modifiers: win32.MOD_CONTROL | win32.MOD_ALT | win32.MOD_SHIFT | win32.MOD_NOREPEAT, VK: win32.VK_F12}
	if err := keys.Register(ctx, hotkeyNestedFrame, key, nestedFrameDemo); err != nil {
		// Somebody else owns the key; run without it.
		logf("hot key %v unavailable: %v", key, err)
		return nil
	}
	logf("press %v to run work from a nested frame", key)
	return nil
}

// nestedFrameDemo queues work and waits for it from the executor's own
// thread, which pumps a nested frame until the work has run.
func nestedFrameDemo(ctx context.Context) {
	e := executor.FromContext(ctx)
	op := executor.InvokeValueAsync(ctx, e, func(context.Context) (string, error) {
		return "ran inside a nested frame", nil
	})
	s, err := op.Wait(ctx)
	if err != nil {
		logf("nested frame: %v", err)
		return
	}
	logf("%s", s)
}

// selfTest runs from a goroutine other than the executor's.
func selfTest(e *executor.Executor) error {
	ctx := context.Background()
	got, err := executor.InvokeValue(ctx, e, func(context.Context) (int, error) {
		return 21 * 2, nil
	})
	if err != nil {
		return err
	}
	if got != 42 {
		return errors.Errorf("Invoke returned %d, want 42", got)
	}
	logf("self-test: Invoke returned %d", got)

	if err := e.Close(); err != nil {
		return errors.Wrap(err, "closing executor")
	}
	op := e.InvokeAsync(ctx, func(context.Context) error {
		return errors.New("ran after shutdown")
	})
	if err := op.Wait(ctx); !errors.Is(err, executor.ErrCanceled) {
		return errors.Errorf("InvokeAsync after shutdown: status %v, err %v", op.Status(), err)
	}
	logf("self-test: InvokeAsync after shutdown is %v", op.Status())
	return nil
}
