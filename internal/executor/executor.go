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

package executor

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/workturnedplay/winpump/internal/hookchain"
	"github.com/workturnedplay/winpump/internal/logging"
	"github.com/workturnedplay/winpump/internal/weakreg"
	"github.com/workturnedplay/winpump/internal/win32"
	"github.com/workturnedplay/winpump/internal/window"
)

// ProcessMessageName is the registered window message that tells the
// executor's window to run the next queued operation.
const ProcessMessageName = "winpump.executor.process"

var processMessage = sync.OnceValue(func() uint32 {
	id, err := win32.RegisterWindowMessage(ProcessMessageName)
	if err != nil {
		return 0
	}
	return id
})

// executors finds an executor by the thread it runs on.
var executors = weakreg.New(func(e *Executor) (uint32, bool) {
	id := e.threadID.Load()
	return id, id != 0
})

// Executor runs submitted work on one OS thread, between the window
// messages of that thread.
type Executor struct {
	log  *zap.Logger
	name string

	threadID atomic.Uint32
	hwnd     atomic.Uintptr
	complete atomic.Bool
	done     chan struct{}

	// Owned by the executor's thread.
	window        *window.MessageOnly
	hook          *hookchain.Hook
	framesRunning int

	mu              sync.Mutex
	queue           []*Operation
	disabled        int
	started         bool
	shutdownStarted bool
	finishing       bool
	shutdownCtx     context.Context
	onShutdown      []func(context.Context)
	runErr          error
}

// Option configures an Executor.
type Option func(*Executor)

func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithName names the executor in logs and in its window class name.
func WithName(name string) Option {
	return func(e *Executor) { e.name = name }
}

// New creates an executor. Nothing runs until Run or StartAsync; work
// submitted before that waits in the queue.
func New(opts ...Option) *Executor {
	e := &Executor{
		name: "executor",
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrNop(e.log).Named(e.name)
	executors.Add(e)
	return e
}

// CreatedOn returns the executor running on the given thread, or nil.
func CreatedOn(threadID uint32) *Executor {
	if threadID == 0 {
		return nil
	}
	return executors.Lookup(threadID)
}

// Current returns the executor running on the calling thread, or nil. The
// calling goroutine has to be locked to its thread for the answer to mean
// anything, which is always the case inside a callback.
func Current() *Executor {
	return CreatedOn(win32.CurrentThreadID())
}

// Run makes the calling thread the executor's thread and pumps its
// messages until shutdown completes. The goroutine stays locked to the
// thread until Run returns.
func (e *Executor) Run() error {
	e.mu.Lock()
	err := e.claim()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return e.run()
}

// StartAsync runs the executor on a new goroutine. The returned operation
// completes once the executor has run its first piece of work; if startup
// fails it is canceled with the startup error.
func (e *Executor) StartAsync() (*Operation, error) {
	e.mu.Lock()
	err := e.claim()
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	op := e.submit(context.Background(), func(context.Context) (any, error) { return nil, nil })
	go func() {
		if err := e.run(); err != nil {
			e.log.Error("run", zap.Error(err))
		}
	}()
	return op, nil
}

// claim marks the executor as started. Called with e.mu held.
func (e *Executor) claim() error {
	switch {
	case e.complete.Load():
		return ErrClosed
	case e.started:
		return ErrAlreadyRunning
	case e.disabled > 0:
		return ErrProcessingDisabled
	}
	e.started = true
	return nil
}

func (e *Executor) run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.threadID.Store(win32.CurrentThreadID())
	if processMessage() == 0 {
		err := errors.Errorf("registering %s failed", ProcessMessageName)
		e.fail(err)
		return err
	}
	w, err := window.NewMessageOnly(
		window.WithLogger(e.log),
		window.WithName(e.name),
		window.WithShutdownProbe(e))
	if err != nil {
		e.fail(err)
		return err
	}
	e.hook = hookchain.NewHook(e.wndProc)
	w.AddStartingHook(e.hook)
	e.window = w
	e.hwnd.Store(w.HWND())
	e.log.Info("running",
		zap.Uint32("thread", e.threadID.Load()),
		zap.Uintptr("hwnd", w.HWND()))

	// Work queued before Run, and a Close that came before it.
	e.wake()
	err = e.PushFrame(newFrame(true, e.stopping, e.wake))

	e.mu.Lock()
	e.shutdownStarted = true
	if e.shutdownCtx == nil {
		e.shutdownCtx = context.Background()
	}
	e.mu.Unlock()
	e.finishShutdown()
	return err
}

// fail ends an executor that could not start.
func (e *Executor) fail(cause error) {
	e.mu.Lock()
	e.runErr = cause
	e.shutdownStarted = true
	e.finishing = true
	queued := e.queue
	e.queue = nil
	e.mu.Unlock()

	e.complete.Store(true)
	executors.Remove(e)
	for _, op := range queued {
		op.resolveCanceled(cause)
	}
	close(e.done)
}

// onOwnerThread reports whether the caller runs on the executor's thread.
func (e *Executor) onOwnerThread() bool {
	id := e.threadID.Load()
	return id != 0 && id == win32.CurrentThreadID()
}

// HWND is the executor's message-only window, 0 before Run.
func (e *Executor) HWND() uintptr { return e.hwnd.Load() }

// ThreadID is the executor's thread, 0 before Run.
func (e *Executor) ThreadID() uint32 { return e.threadID.Load() }

// Window is the executor's message-only window. Hooks added to it run on
// the executor's thread. It is nil before Run and must only be used from
// the executor's thread.
func (e *Executor) Window() *window.MessageOnly { return e.window }

// Invoke runs fn on the executor's thread and returns its error. Called on
// that thread it runs fn directly; anywhere else it queues fn and blocks
// until it ran, was canceled, or ctx ended.
func (e *Executor) Invoke(ctx context.Context, fn func(context.Context) error) error {
	_, err := e.invoke(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// InvokeAsync queues fn and returns at once, whichever thread calls it.
// If the executor is shutting down the operation is already canceled.
func (e *Executor) InvokeAsync(ctx context.Context, fn func(context.Context) error) *Operation {
	return e.submit(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
}

func (e *Executor) invoke(ctx context.Context, fn callback) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.onOwnerThread() {
		if e.complete.Load() {
			return nil, canceled(ErrClosed)
		}
		v, err := call(e.callbackContext(ctx), fn)
		if errors.Is(err, context.Canceled) {
			err = canceled(err)
		}
		return v, err
	}
	op := e.submit(ctx, fn)
	err := op.Wait(ctx)
	return op.Value(), err
}

func (e *Executor) submit(ctx context.Context, fn callback) *Operation {
	op := newOperation(e, ctx, fn)
	e.mu.Lock()
	if e.shutdownStarted {
		cause := e.runErr
		e.mu.Unlock()
		if cause == nil {
			cause = ErrClosed
		}
		op.resolveCanceled(cause)
		return op
	}
	e.queue = append(e.queue, op)
	e.mu.Unlock()
	e.wake()
	return op
}

// Cancel removes op from the queue. It reports false if op already started
// or finished, or belongs to another executor.
func (e *Executor) Cancel(op *Operation) bool {
	if op == nil || op.sched != e {
		return false
	}
	return op.Cancel()
}

func (e *Executor) cancel(op *Operation) bool {
	e.mu.Lock()
	found := false
	for i, q := range e.queue {
		if q == op {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			found = true
			break
		}
	}
	e.mu.Unlock()
	return found && op.resolveCanceled(nil)
}

// callbackContext is what a callback receives: the submitter's context
// plus the executor.
func (e *Executor) callbackContext(parent context.Context) context.Context {
	return context.WithValue(parent, ctxKey{}, e)
}

// wake posts one process message. Before Run there is no window to post
// to; Run posts one itself.
func (e *Executor) wake() {
	hwnd := e.hwnd.Load()
	if hwnd == 0 {
		return
	}
	if err := win32.PostMessage(hwnd, processMessage(), 0, 0); err != nil {
		e.log.Warn("posting process message", zap.Error(err))
	}
}

// processOne runs the oldest queued operation. The next process message is
// posted before the callback runs, so frames the callback pushes keep
// draining the queue.
func (e *Executor) processOne() {
	e.mu.Lock()
	if e.disabled > 0 || len(e.queue) == 0 {
		e.mu.Unlock()
		return
	}
	op := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	more := len(e.queue) > 0
	e.mu.Unlock()

	if more {
		e.wake()
	}
	op.execute(e.callbackContext(op.ctx))
	if err := op.Err(); err != nil {
		var pe *PanicError
		if errors.As(err, &pe) {
			e.log.Error("callback panicked", zap.Any("value", pe.Value), zap.ByteString("stack", pe.Stack))
		}
	}
}

// wndProc is the executor's own hook, ahead of every other hook on its
// window.
func (e *Executor) wndProc(hwnd uintptr, msg uint32, wParam, lParam uintptr) hookchain.Result {
	switch msg {
	case processMessage():
		e.processOne()
		return hookchain.Result{Handled: true}
	case win32.WM_CLOSE:
		e.log.Debug("close requested", zap.Uintptr("hwnd", hwnd))
		e.startShutdown(context.Background())
		return hookchain.Result{Handled: true}
	case win32.WM_DESTROY:
		// The window may have been destroyed by someone else, so only record
		// the request and let the top frame unwind. Nothing can be posted to
		// the window any more: queued work is canceled now, which also ends
		// any frame waiting on it.
		e.requestShutdown(context.Background())
		e.windowGone()
	}
	return hookchain.Result{}
}

// windowGone stops wake-ups and cancels everything still queued.
func (e *Executor) windowGone() {
	e.hwnd.Store(0)
	e.mu.Lock()
	queued := e.queue
	e.queue = nil
	e.mu.Unlock()
	for _, op := range queued {
		op.resolveCanceled(ErrClosed)
	}
	if len(queued) > 0 {
		e.log.Debug("window destroyed with work queued", zap.Int("canceled", len(queued)))
	}
}

// Disable stops queued work from running, and shutdown from starting,
// until a matching Enable. Calls nest. The thread keeps pumping messages.
// Once running it may only be called on the executor's thread.
func (e *Executor) Disable() error {
	if e.threadID.Load() != 0 && !e.onOwnerThread() {
		return ErrWrongThread
	}
	e.mu.Lock()
	e.disabled++
	e.mu.Unlock()
	return nil
}

// Enable undoes one Disable. When the last one is undone, pending work and
// a pending shutdown go ahead.
func (e *Executor) Enable() error {
	if e.threadID.Load() != 0 && !e.onOwnerThread() {
		return ErrWrongThread
	}
	e.mu.Lock()
	if e.disabled == 0 {
		e.mu.Unlock()
		return nil
	}
	e.disabled--
	resume := e.disabled == 0 && (len(e.queue) > 0 || e.shutdownStarted)
	e.mu.Unlock()
	if resume {
		e.wake()
	}
	return nil
}

// CreateFrame returns a frame for PushFrame.
func (e *Executor) CreateFrame() *Frame {
	return newFrame(false, nil, e.wake)
}

// PushFrame pumps the executor's messages until f.ShouldContinue turns
// false. It may only be called on the executor's thread, usually from
// inside a callback, and nests.
//
// A WM_QUIT seen by a nested frame is posted again and the frame returns,
// so every frame unwinds; the outermost frame turns it into a shutdown.
func (e *Executor) PushFrame(f *Frame) error {
	if !e.onOwnerThread() {
		return ErrWrongThread
	}
	if e.complete.Load() {
		return ErrClosed
	}
	if e.window == nil {
		return ErrNotRunning
	}
	e.mu.Lock()
	disabled := e.disabled > 0
	e.mu.Unlock()
	if disabled {
		return ErrProcessingDisabled
	}

	e.framesRunning++
	defer func() { e.framesRunning-- }()

	var msg win32.MSG
	for f.ShouldContinue() {
		ok, err := win32.GetMessage(&msg)
		if err != nil {
			return err
		}
		if !ok {
			if f.exitOnShutdown {
				e.log.Debug("quit received", zap.Uintptr("code", msg.WParam))
				e.startShutdown(context.Background())
				continue
			}
			win32.PostQuitMessage(int32(msg.WParam))
			return nil
		}
		win32.TranslateAndDispatch(&msg)
	}
	return nil
}

// waitFrame pumps messages until op is done or ctx ends.
func (e *Executor) waitFrame(ctx context.Context, op *Operation) error {
	f := e.CreateFrame()
	op.OnComplete(func(*Operation) { f.SetContinue(false) })
	stop := context.AfterFunc(ctx, func() { f.SetContinue(false) })
	defer stop()
	return e.PushFrame(f)
}

// stopping tells the top frame to unwind.
func (e *Executor) stopping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdownStarted && e.disabled == 0
}

// OnShutdown registers fn to run on the executor's thread when shutdown
// proceeds, before the window is destroyed. fn gets the context Shutdown
// was called with.
func (e *Executor) OnShutdown(fn func(context.Context)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onShutdown = append(e.onShutdown, fn)
}

// Shutdown stops the executor. On the executor's thread shutdown proceeds
// at once, unless frames are nested, in which case it waits for them to
// unwind. From any other thread the request is recorded, the executor's
// thread is woken to act on it, and Shutdown waits until shutdown completes
// or ctx ends. Before Run or StartAsync it only records the request; Run
// then shuts down as soon as it has started.
//
// ctx is kept and handed to the OnShutdown functions.
func (e *Executor) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.complete.Load() {
		return nil
	}
	if e.onOwnerThread() {
		e.startShutdown(ctx)
		return nil
	}

	e.requestShutdown(ctx)
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is Shutdown with a background context.
func (e *Executor) Close() error {
	return e.Shutdown(context.Background())
}

// Done is closed once shutdown has completed.
func (e *Executor) Done() <-chan struct{} { return e.done }

func (e *Executor) IsShutdownStarted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdownStarted
}

// IsShutdownComplete reports whether the window is gone and the queue
// drained.
func (e *Executor) IsShutdownComplete() bool { return e.complete.Load() }

// recordShutdown notes the first shutdown request. Called with e.mu held.
func (e *Executor) recordShutdown(ctx context.Context) bool {
	if e.shutdownStarted {
		return false
	}
	e.shutdownStarted = true
	e.shutdownCtx = ctx
	return true
}

func (e *Executor) requestShutdown(ctx context.Context) {
	e.mu.Lock()
	first := e.recordShutdown(ctx)
	e.mu.Unlock()
	if first {
		e.log.Debug("shutdown started")
		e.wake()
	}
}

// startShutdown records the request and, when no frame is nested and
// processing is enabled, finishes shutdown right away. Executor thread
// only.
func (e *Executor) startShutdown(ctx context.Context) {
	e.requestShutdown(ctx)
	e.mu.Lock()
	disabled := e.disabled > 0
	e.mu.Unlock()
	if !disabled && e.framesRunning <= 1 && e.window != nil {
		e.finishShutdown()
	}
}

// finishShutdown runs the OnShutdown functions, destroys the window and
// cancels whatever is still queued. Executor thread only; runs once.
func (e *Executor) finishShutdown() {
	e.mu.Lock()
	if e.finishing {
		e.mu.Unlock()
		return
	}
	e.finishing = true
	ctx := e.shutdownCtx
	hooks := e.onShutdown
	e.onShutdown = nil
	e.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
	if e.window != nil {
		e.hwnd.Store(0)
		if err := e.window.Close(); err != nil {
			e.log.Error("closing window", zap.Error(err))
		}
		e.window.RemoveHook(e.hook)
	}

	e.mu.Lock()
	queued := e.queue
	e.queue = nil
	e.mu.Unlock()
	e.complete.Store(true)
	executors.Remove(e)
	for _, op := range queued {
		op.resolveCanceled(ErrClosed)
	}
	e.log.Info("shut down", zap.Int("canceled", len(queued)))
	close(e.done)
}
