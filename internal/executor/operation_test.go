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
	"fmt"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

// fakeScheduler queues operations without any thread behind them.
type fakeScheduler struct {
	mu     sync.Mutex
	queued []*Operation
	owner  bool
}

func (s *fakeScheduler) add(op *Operation) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, op)
	return op
}

func (s *fakeScheduler) cancel(op *Operation) bool {
	s.mu.Lock()
	found := false
	for i, q := range s.queued {
		if q == op {
			s.queued = append(s.queued[:i], s.queued[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()
	return found && op.resolveCanceled(nil)
}

func (s *fakeScheduler) onOwnerThread() bool { return s.owner }

// waitFrame stands in for a nested frame by running everything queued.
func (s *fakeScheduler) waitFrame(ctx context.Context, op *Operation) error {
	s.mu.Lock()
	ops := s.queued
	s.queued = nil
	s.mu.Unlock()
	for _, q := range ops {
		q.execute(ctx)
	}
	return nil
}

func value(v any, err error) callback {
	return func(context.Context) (any, error) { return v, err }
}

func TestOperationCompletes(t *testing.T) {
	c := qt.New(t)
	s := &fakeScheduler{}
	op := s.add(newOperation(s, nil, value(42, nil)))
	c.Assert(op.Status(), qt.Equals, Queued)
	c.Assert(op.Err(), qt.IsNil)

	var seen []Status
	op.OnComplete(func(o *Operation) { seen = append(seen, o.Status()) })
	op.execute(context.Background())

	c.Assert(op.Status(), qt.Equals, Completed)
	c.Assert(op.Value(), qt.Equals, 42)
	c.Assert(op.Wait(context.Background()), qt.IsNil)
	c.Assert(seen, qt.DeepEquals, []Status{Completed})

	// Listeners added late run at once.
	op.OnComplete(func(o *Operation) { seen = append(seen, o.Status()) })
	c.Assert(seen, qt.HasLen, 2)
	c.Assert(op.Cancel(), qt.IsFalse)
}

func TestOperationCallbackError(t *testing.T) {
	c := qt.New(t)
	boom := errors.New("boom")
	op := newOperation(nil, nil, value(nil, boom))
	op.execute(context.Background())
	c.Assert(op.Status(), qt.Equals, Completed)
	c.Assert(op.Wait(context.Background()), qt.ErrorIs, boom)
}

func TestOperationPanicBecomesError(t *testing.T) {
	c := qt.New(t)
	boom := errors.New("boom")
	op := newOperation(nil, nil, func(context.Context) (any, error) { panic(boom) })
	op.execute(context.Background())

	err := op.Err()
	var pe *PanicError
	c.Assert(errors.As(err, &pe), qt.IsTrue)
	c.Assert(pe.Value, qt.Equals, boom)
	c.Assert(len(pe.Stack) > 0, qt.IsTrue)
	c.Assert(err, qt.ErrorIs, boom)
	c.Assert(err, qt.ErrorMatches, "executor callback panicked: boom")
}

func TestOperationCallbackCanceled(t *testing.T) {
	c := qt.New(t)
	op := newOperation(nil, nil, value(nil, fmt.Errorf("stopped: %w", context.Canceled)))
	op.execute(context.Background())
	c.Assert(op.Status(), qt.Equals, Canceled)
	c.Assert(op.Err(), qt.ErrorIs, ErrCanceled)
	c.Assert(op.Err(), qt.ErrorIs, context.Canceled)
}

func TestOperationCancelBeforeRun(t *testing.T) {
	c := qt.New(t)
	s := &fakeScheduler{}
	ran := false
	op := s.add(newOperation(s, nil, func(context.Context) (any, error) {
		ran = true
		return nil, nil
	}))

	c.Assert(op.Cancel(), qt.IsTrue)
	c.Assert(op.Cancel(), qt.IsFalse)
	c.Assert(s.queued, qt.HasLen, 0)
	op.execute(context.Background())
	c.Assert(ran, qt.IsFalse)
	c.Assert(op.Status(), qt.Equals, Canceled)
	c.Assert(op.Wait(context.Background()), qt.ErrorIs, ErrCanceled)
}

func TestOperationCannotCancelWhileExecuting(t *testing.T) {
	c := qt.New(t)
	var op *Operation
	var during bool
	op = newOperation(nil, nil, func(context.Context) (any, error) {
		c.Check(op.Status(), qt.Equals, Executing)
		during = op.Cancel()
		return "done", nil
	})
	op.execute(context.Background())
	c.Assert(during, qt.IsFalse)
	c.Assert(op.Status(), qt.Equals, Completed)
	c.Assert(op.Value(), qt.Equals, "done")
}

func TestOperationSubmitterGaveUp(t *testing.T) {
	c := qt.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	op := newOperation(nil, ctx, func(context.Context) (any, error) {
		ran = true
		return nil, nil
	})
	op.execute(context.Background())
	c.Assert(ran, qt.IsFalse)
	c.Assert(op.Status(), qt.Equals, Canceled)
	c.Assert(op.Err(), qt.ErrorIs, context.Canceled)
}

func TestOperationWaitFromAnotherGoroutine(t *testing.T) {
	c := qt.New(t)
	s := &fakeScheduler{}
	op := s.add(newOperation(s, nil, value(7, nil)))

	go func() {
		time.Sleep(10 * time.Millisecond)
		op.execute(context.Background())
	}()
	c.Assert(op.Wait(context.Background()), qt.IsNil)
	c.Assert(op.Value(), qt.Equals, 7)
}

func TestOperationWaitTimesOut(t *testing.T) {
	c := qt.New(t)
	s := &fakeScheduler{}
	op := s.add(newOperation(s, nil, value(1, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c.Assert(op.Wait(ctx), qt.ErrorIs, context.DeadlineExceeded)
	c.Assert(op.Status(), qt.Equals, Canceled)
	c.Assert(s.queued, qt.HasLen, 0)
}

func TestOperationWaitOnOwnerThreadPumps(t *testing.T) {
	c := qt.New(t)
	s := &fakeScheduler{owner: true}
	op := s.add(newOperation(s, nil, value("pumped", nil)))
	c.Assert(op.Wait(context.Background()), qt.IsNil)
	c.Assert(op.Value(), qt.Equals, "pumped")
}

func TestOperationWaitOnItselfFromOwnerThread(t *testing.T) {
	c := qt.New(t)
	s := &fakeScheduler{owner: true}
	var op *Operation
	var waitErr error
	op = newOperation(s, nil, func(ctx context.Context) (any, error) {
		waitErr = op.Wait(ctx)
		return nil, nil
	})
	op.execute(context.Background())
	c.Assert(waitErr, qt.Equals, ErrWaitOnExecuting)
}

func TestCanceledKeepsCause(t *testing.T) {
	c := qt.New(t)
	c.Assert(canceled(nil), qt.Equals, ErrCanceled)
	c.Assert(canceled(ErrCanceled), qt.Equals, ErrCanceled)
	err := canceled(ErrClosed)
	c.Assert(err, qt.ErrorIs, ErrCanceled)
	c.Assert(err, qt.ErrorIs, ErrClosed)
}

func TestStatusString(t *testing.T) {
	c := qt.New(t)
	c.Assert(Queued.String(), qt.Equals, "queued")
	c.Assert(Executing.String(), qt.Equals, "executing")
	c.Assert(Completed.String(), qt.Equals, "completed")
	c.Assert(Canceled.String(), qt.Equals, "canceled")
	c.Assert(Status(9).String(), qt.Equals, "unknown")
}

func TestFrame(t *testing.T) {
	c := qt.New(t)
	wakes := 0
	f := newFrame(false, nil, func() { wakes++ })
	c.Assert(f.ShouldContinue(), qt.IsTrue)

	f.SetContinue(false)
	c.Assert(f.ShouldContinue(), qt.IsFalse)
	c.Assert(wakes, qt.Equals, 1)

	f.SetContinue(false)
	c.Assert(wakes, qt.Equals, 1)
	f.SetContinue(true)
	c.Assert(f.ShouldContinue(), qt.IsTrue)
	c.Assert(wakes, qt.Equals, 1)
}

func TestTopFrameStopsOnShutdown(t *testing.T) {
	c := qt.New(t)
	stopping := false
	top := newFrame(true, func() bool { return stopping }, nil)
	nested := newFrame(false, func() bool { return stopping }, nil)
	stopping = true
	c.Assert(top.ShouldContinue(), qt.IsFalse)
	c.Assert(nested.ShouldContinue(), qt.IsTrue)
}
