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

package logging

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the number of entries the sink buffers before it
// starts dropping.
const DefaultQueueSize uint64 = 4096

// slowWrite is roughly one frame. A write taking longer than this means
// something (a console selection, a stuck pipe) is blocking the output.
const slowWrite = 16 * time.Millisecond

const attemptAtomicSwapThisManyTimes = 100

// Sink is a zapcore.WriteSyncer that never blocks the caller. Entries go
// into a bounded channel drained by one background goroutine; when the
// channel is full the entry is dropped and counted.
//
// Window procedures and hooks log through this, and they must not stall on
// a slow console.
type Sink struct {
	out   io.Writer
	queue chan []byte
	size  uint64
	done  chan struct{}

	mu     sync.RWMutex // guards closed against a concurrent Close
	closed bool

	dropped    atomic.Uint64
	peak       atomic.Uint64
	slowWrites atomic.Uint64
	contended  atomic.Uint64
}

// Stats is a snapshot of the sink counters.
type Stats struct {
	Dropped    uint64
	Peak       uint64
	SlowWrites uint64
	QueueSize  uint64
}

// NewSink starts the worker draining into out. size 0 means DefaultQueueSize.
func NewSink(out io.Writer, size uint64) *Sink {
	if size == 0 {
		size = DefaultQueueSize
	}
	s := &Sink{
		out:   out,
		queue: make(chan []byte, size),
		size:  size,
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

// Write queues a copy of p. It reports success even when the entry was
// dropped so zap never treats a full queue as an error.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return len(p), nil
	}
	s.notePeak(uint64(len(s.queue)))

	msg := make([]byte, len(p))
	copy(msg, p)
	select {
	case s.queue <- msg:
	default:
		s.dropped.Add(1)
	}
	return len(p), nil
}

// Sync is a no-op; the worker flushes as it goes and Close drains the rest.
func (s *Sink) Sync() error { return nil }

// notePeak raises the high-water mark without ever lowering it.
func (s *Sink) notePeak(depth uint64) {
	for range attemptAtomicSwapThisManyTimes {
		old := s.peak.Load()
		if depth <= old {
			return
		}
		if s.peak.CompareAndSwap(old, depth) {
			return
		}
	}
	s.contended.Add(1)
}

// Stats returns the current counters.
func (s *Sink) Stats() Stats {
	return Stats{
		Dropped:    s.dropped.Load(),
		Peak:       s.peak.Load(),
		SlowWrites: s.slowWrites.Load(),
		QueueSize:  s.size,
	}
}

// Close stops accepting entries, waits for the worker to write everything
// already queued, then writes a short summary if anything was dropped or
// queued up. Safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
	return nil
}

func (s *Sink) worker() {
	defer close(s.done)
	for msg := range s.queue {
		start := time.Now()
		_, _ = s.out.Write(msg)
		if time.Since(start) > slowWrite {
			s.slowWrites.Add(1)
		}
	}

	st := s.Stats()
	if st.Dropped > 0 {
		fmt.Fprintf(s.out, "logging: dropped %s entries because the queue was full\n", WithCommas(st.Dropped))
	}
	if st.Peak > 1 {
		fmt.Fprintf(s.out, "logging: peak queued entries %s out of %s\n", WithCommas(st.Peak), WithCommas(st.QueueSize))
	}
	if st.SlowWrites > 0 {
		fmt.Fprintf(s.out, "logging: %s writes took longer than %v\n", WithCommas(st.SlowWrites), slowWrite)
	}
	if n := s.contended.Load(); n > 0 {
		fmt.Fprintf(s.out, "logging: peak depth not recorded %s times due to contention\n", WithCommas(n))
	}
}

// WithCommas formats n with thousands separators.
func WithCommas(n uint64) string {
	s := strconv.FormatUint(n, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
