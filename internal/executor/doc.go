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

// Package executor turns a thread's native message queue into a work queue.
//
// An Executor owns one OS thread and one message-only window on it. Work
// submitted from any goroutine is queued as an Operation, and a private
// window message wakes the thread to run it. Because the thread keeps
// pumping ordinary window messages while it waits, everything that needs
// the window's thread (hot keys, tray icons, subclassed windows) can run
// next to the queued work.
//
// Frames are nested runs of the same message loop. A callback can push a
// frame to wait for something without blocking the thread's messages, and
// waiting on a queued operation from the executor's own thread does exactly
// that.
//
// Every callback receives a context carrying its executor. FromContext and
// Post use it to send follow-up work back to the same thread.
package executor
