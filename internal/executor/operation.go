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
	"errors"
	"runtime/debug"
	"sync"
)

// Status is where an Operation is in its life.
type Status int32

const (
	Queued Status = iota
	Executing
	Completed
	Canceled
)

func (s Status) String() string {
	switch s {
	case Queued:
		return "queued"
	case Executing:
		return "executing"
	case Completed:
		return "completed"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// scheduler is what an Operation needs from the executor that owns it.
type scheduler interface {
	// cancel removes op from the queue if it is still there.
	cancel(op *Operation) bool
	// onOwnerThread reports whether the caller runs on the executor's thread.
	onOwnerThread() bool
	// waitFrame pumps messages on the executor's thread until op is done or
	// ctx ends.
	waitFrame(ctx context.Context, op *Operation) error
}

// callback is the untyped form every submitted function is stored in.
type callback func(ctx context.Context) (any, error)

// Operation is one unit of submitted work. Its status only moves forward:
// Queued, then Executing, then Completed; or straight from Queued to
// Canceled. A callback that gives up with context.Canceled also ends
// Canceled.
type Operation struct {
	sched scheduler
	ctx   context.Context
	fn    callback

	mu        sync.Mutex
	status    Status
	value     any
	err       error
	done      chan struct{}
	listeners []func(*Operation)
}

func newOperation(sched scheduler, ctx context.Context, fn callback) *Operation {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Operation{
		sched: sched,
		ctx:   ctx,
		fn:    fn,
		done:  make(chan struct{}),
	}
}

func (op *Operation) Status() Status {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.status
}

// Done is closed once the operation is Completed or Canceled.
func (op *Operation) Done() <-chan struct{} { return op.done }

// Err is the callback's error for a completed operation and an error
// matching ErrCanceled for a canceled one. It is nil while the operation is
// still pending.
func (op *Operation) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.err
}

// Value is what the callback returned, if it returned a value.
func (op *Operation) Value() any {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.value
}

// Cancel removes a queued operation before it runs. It reports false when
// the operation has already started or finished.
func (op *Operation) Cancel() bool {
	if op.sched != nil && op.sched.cancel(op) {
		return true
	}
	return op.resolveCanceled(nil)
}

// OnComplete registers fn to run once the operation is done, on whichever
// goroutine finishes it. If it is already done fn runs right away.
func (op *Operation) OnComplete(fn func(*Operation)) {
	op.mu.Lock()
	if op.status == Completed || op.status == Canceled {
		op.mu.Unlock()
		fn(op)
		return
	}
	op.listeners = append(op.listeners, fn)
	op.mu.Unlock()
}

// Wait blocks until the operation is done and returns Err. If ctx ends
// first, Wait tries to cancel the operation and returns ctx.Err() unless
// the operation finished anyway.
//
// On the executor's own thread Wait keeps pumping messages in a nested
// frame instead of blocking; waiting there on the operation that is
// currently executing returns ErrWaitOnExecuting.
func (op *Operation) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-op.done:
		return op.Err()
	default:
	}

	if op.sched != nil && op.sched.onOwnerThread() {
		if op.Status() == Executing {
			return ErrWaitOnExecuting
		}
		if err := op.sched.waitFrame(ctx, op); err != nil {
			return err
		}
	} else {
		select {
		case <-op.done:
		case <-ctx.Done():
		}
	}

	select {
	case <-op.done:
		return op.Err()
	default:
	}
	op.Cancel()
	if err := ctx.Err(); err != nil && op.Status() != Completed {
		return err
	}
	select {
	case <-op.done:
		return op.Err()
	default:
	}
	// Only a frame unwound by shutdown gets here.
	return ErrClosed
}

// execute runs the callback with ctx, which carries the executor. An
// operation whose submitter already gave up is canceled instead of run.
func (op *Operation) execute(ctx context.Context) {
	op.mu.Lock()
	if op.status != Queued {
		op.mu.Unlock()
		return
	}
	if err := op.ctx.Err(); err != nil {
		op.mu.Unlock()
		op.resolveCanceled(err)
		return
	}
	op.status = Executing
	op.mu.Unlock()

	v, err := call(ctx, op.fn)
	if errors.Is(err, context.Canceled) {
		op.resolve(Canceled, nil, canceled(err), false)
		return
	}
	op.resolve(Completed, v, err, false)
}

// call runs fn, turning a panic into a *PanicError.
func call(ctx context.Context, fn callback) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

// resolveCanceled cancels an operation that has not started yet.
func (op *Operation) resolveCanceled(cause error) bool {
	return op.resolve(Canceled, nil, canceled(cause), true)
}

// resolve moves the operation to a final status once and notifies the
// listeners outside the lock. With onlyQueued it refuses an operation that
// has already started.
func (op *Operation) resolve(status Status, v any, err error, onlyQueued bool) bool {
	op.mu.Lock()
	if op.status == Completed || op.status == Canceled || (onlyQueued && op.status != Queued) {
		op.mu.Unlock()
		return false
	}
	op.status, op.value, op.err = status, v, err
	listeners := op.listeners
	op.listeners = nil
	close(op.done)
	op.mu.Unlock()

	for _, fn := range listeners {
		fn(op)
	}
	return true
}
