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

package main

import (
	"bytes"
	"context"
	"runtime"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"go.uber.org/zap/zapcore"

	"github.com/workturnedplay/winpump/internal/executor"
	"github.com/workturnedplay/winpump/internal/logging"
	"github.com/workturnedplay/winpump/internal/win32"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMessageLoggingSurvivesGC(t *testing.T) {
	c := qt.New(t)
	var out lockedBuffer
	l, err := logging.New(logging.Config{Level: zapcore.DebugLevel, Output: &out})
	c.Assert(err, qt.IsNil)
	saved := log
	log = l
	defer func() { log = saved }()

	e := executor.New(executor.WithLogger(l.Logger), executor.WithName("main-test"))
	ready, err := e.StartAsync()
	c.Assert(err, qt.IsNil)
	c.Assert(ready.Wait(context.Background()), qt.IsNil)
	c.Assert(e.Invoke(context.Background(), func(ctx context.Context) error {
		return setupWindow(ctx, e, config{})
	}), qt.IsNil)

	runtime.GC()
	runtime.GC()
	const msg = win32.WM_APP + 3
	win32.SendMessage(e.HWND(), msg, 0, 0)

	c.Assert(e.Close(), qt.IsNil)
	c.Assert(l.Close(), qt.IsNil)
	c.Assert(out.String(), qt.Contains, `"msg": 32771`)
}
