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
	"errors"
	"fmt"
)

// Sentinel errors for the executor package.
var (
	// ErrCanceled is reported by operations that were canceled before they
	// ran, or whose callback gave up with context.Canceled.
	ErrCanceled = errors.New("operation canceled")

	// ErrClosed is returned when using an executor that has shut down.
	ErrClosed = errors.New("executor is shut down")

	// ErrAlreadyRunning is returned by Run and StartAsync on an executor
	// that is already running.
	ErrAlreadyRunning = errors.New("executor is already running")

	// ErrNotRunning is returned by PushFrame before Run created the window.
	ErrNotRunning = errors.New("executor is not running")

	// ErrWrongThread is returned by calls that must come from the
	// executor's own thread.
	ErrWrongThread = errors.New("not on the executor's thread")

	// ErrProcessingDisabled is returned by Run and PushFrame while Disable
	// is in effect.
	ErrProcessingDisabled = errors.New("executor processing is disabled")

	// ErrWaitOnExecuting is returned when the executor's thread waits on
	// the operation it is currently running.
	ErrWaitOnExecuting = errors.New("cannot wait on an executing operation from its own thread")
)

// PanicError is the error an operation reports when its callback panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("executor callback panicked: %v", p.Value)
}

// Unwrap returns the panic value when it was an error.
func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

// canceled builds the error of a canceled operation, keeping the cause
// reachable through errors.Is.
func canceled(cause error) error {
	switch {
	case cause == nil:
		return ErrCanceled
	case errors.Is(cause, ErrCanceled):
		return cause
	}
	return fmt.Errorf("%w: %w", ErrCanceled, cause)
}
