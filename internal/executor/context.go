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

type ctxKey struct{}

// FromContext returns the executor running the callback that received ctx,
// or nil outside a callback.
func FromContext(ctx context.Context) *Executor {
	if ctx == nil {
		return nil
	}
	e, _ := ctx.Value(ctxKey{}).(*Executor)
	return e
}

// Post schedules fn as a continuation of the callback that received ctx:
// it is queued on the same executor and runs after the callback returns.
// Without an executor in ctx, fn runs on a new goroutine. The returned
// operation is nil in that case.
func Post(ctx context.Context, fn func(context.Context)) *Operation {
	if e := FromContext(ctx); e != nil {
		return e.InvokeAsync(ctx, func(ctx context.Context) error {
			fn(ctx)
			return nil
		})
	}
	go fn(ctx)
	return nil
}
