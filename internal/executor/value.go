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

import "context"

// ValueOperation is an Operation whose callback returns a T.
type ValueOperation[T any] struct {
	*Operation
}

// Result is the callback's value, the zero T if it has none yet.
func (v ValueOperation[T]) Result() T {
	t, _ := v.Value().(T)
	return t
}

// Wait blocks like Operation.Wait and then returns the value.
func (v ValueOperation[T]) Wait(ctx context.Context) (T, error) {
	err := v.Operation.Wait(ctx)
	return v.Result(), err
}

// InvokeValue is Invoke for a callback that returns a value.
func InvokeValue[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	v, err := e.invoke(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	t, _ := v.(T)
	return t, err
}

// InvokeValueAsync is InvokeAsync for a callback that returns a value.
func InvokeValueAsync[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) ValueOperation[T] {
	return ValueOperation[T]{e.submit(ctx, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})}
}
