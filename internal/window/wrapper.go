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
	"sync"

	"go.uber.org/zap"

	"github.com/workturnedplay/winpump/internal/hookchain"
	"github.com/workturnedplay/winpump/internal/logging"
	"github.com/workturnedplay/winpump/internal/subclass"
)

// hooked is the part shared by every window whose messages go through a
// hook chain: the chain itself, its subclass and the destroying callbacks.
type hooked struct {
	log    *zap.Logger
	handle *Handle
	chain  *hookchain.Chain
	sub    *subclass.Subclass

	mu         sync.Mutex
	destroying []func()
}

func (w *hooked) init(log *zap.Logger) {
	w.log = log
	w.chain = hookchain.New(hookchain.WithDestroying(w.notifyDestroying))
}

// AddHook appends h to the window's hook chain.
func (w *hooked) AddHook(h *hookchain.Hook) { w.chain.AddHook(h) }

// AddStartingHook puts h ahead of every hook already registered.
func (w *hooked) AddStartingHook(h *hookchain.Hook) { w.chain.AddStartingHook(h) }

// RemoveHook unregisters h. Removing an unknown hook does nothing.
func (w *hooked) RemoveHook(h *hookchain.Hook) { w.chain.RemoveHook(h) }

// Handle is the window handle.
func (w *hooked) Handle() *Handle { return w.handle }

// OnDestroying registers fn to run on the window's thread when the window
// starts its final teardown, before the native procedure sees it.
func (w *hooked) OnDestroying(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroying = append(w.destroying, fn)
}

func (w *hooked) notifyDestroying() {
	w.mu.Lock()
	fns := w.destroying
	w.destroying = nil
	w.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Option configures a MessageOnly window or a Wrapper.
type Option func(*options)

type options struct {
	log   *zap.Logger
	name  string
	probe subclass.ShutdownProbe
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithName sets the middle part of a message-only window's class name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithShutdownProbe stops hooks from running once probe reports its
// executor has shut down.
func WithShutdownProbe(p subclass.ShutdownProbe) Option {
	return func(o *options) { o.probe = p }
}

func collect(opts []Option) options {
	o := options{name: "window"}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logging.OrNop(o.log)
	return o
}

// Wrapper intercepts the messages of a window it does not own.
type Wrapper struct {
	hooked
}

// Wrap subclasses hwnd. Hooks added to the wrapper see the window's
// messages before its own procedure does.
func Wrap(hwnd uintptr, opts ...Option) (*Wrapper, error) {
	o := collect(opts)
	w := &Wrapper{}
	w.init(o.log.Named("wrapper"))
	w.handle = Borrowed(hwnd)
	if !w.handle.Valid() {
		return nil, ErrInvalidHandle
	}

	sub, err := subclass.New(w.chain.Dispatch,
		subclass.WithExecutor(o.probe),
		subclass.WithLogger(o.log),
		subclass.WithAfterDestroy(w.handle.invalidate))
	if err != nil {
		return nil, err
	}
	if err := sub.Attach(hwnd); err != nil {
		sub.Close()
		return nil, err
	}
	w.sub = sub
	return w, nil
}

// Close detaches politely and forgets the window. If something else has
// subclassed the window since, the wrapper stays installed as a plain
// forwarder until the window is destroyed.
func (w *Wrapper) Close() error {
	err := w.sub.Close()
	w.handle.Close()
	return err
}
