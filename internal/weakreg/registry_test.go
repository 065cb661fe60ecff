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

package weakreg

import (
	"runtime"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
)

type owner struct {
	thread uint32
	name   string
}

func ownerKey(o *owner) (uint32, bool) {
	return o.thread, o.thread != 0
}

func TestLookup(t *testing.T) {
	c := qt.New(t)
	reg := New(ownerKey)

	a := &owner{thread: 10, name: "a"}
	b := &owner{thread: 20, name: "b"}
	reg.Add(a)
	reg.Add(b)

	c.Assert(reg.Lookup(20), qt.Equals, b)
	c.Assert(reg.Lookup(10), qt.Equals, a)
	c.Assert(reg.Lookup(10), qt.Equals, a)
	c.Assert(reg.Lookup(30), qt.IsNil)
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

func TestLookupSeesLateKeys(t *testing.T) {
	c := qt.New(t)
	reg := New(ownerKey)

	pending := &owner{name: "pending"}
	reg.Add(pending)
	c.Assert(reg.Lookup(0), qt.IsNil)

	pending.thread = 7
	c.Assert(reg.Lookup(7), qt.Equals, pending)
}

func TestRemove(t *testing.T) {
	c := qt.New(t)
	reg := New(ownerKey)

	a := &owner{thread: 1}
	reg.Add(a)
	c.Assert(reg.Lookup(1), qt.Equals, a)

	reg.Remove(a)
	reg.Remove(a)
	reg.Remove(nil)
	c.Assert(reg.Lookup(1), qt.IsNil)
	c.Assert(reg.Len(), qt.Equals, 0)
}

func TestCollectedEntriesArePruned(t *testing.T) {
	c := qt.New(t)
	reg := New(ownerKey)

	kept := &owner{thread: 1}
	reg.Add(kept)
	func() {
		for i := range 5 {
			reg.Add(&owner{thread: uint32(100 + i)})
		}
	}()
	c.Assert(reg.Len(), qt.Equals, 6)

	runtime.GC()
	runtime.GC()

	c.Assert(reg.Lookup(999), qt.IsNil)
	c.Assert(reg.Len(), qt.Equals, 1)
	c.Assert(reg.Lookup(1), qt.Equals, kept)
}

func TestConcurrentUse(t *testing.T) {
	c := qt.New(t)
	reg := New(ownerKey)

	owners := make([]*owner, 32)
	var wg sync.WaitGroup
	for i := range owners {
		owners[i] = &owner{thread: uint32(i + 1)}
		wg.Go(func() {
			reg.Add(owners[i])
			if got := reg.Lookup(uint32(i + 1)); got != owners[i] {
				t.Errorf("lookup %d: got %v", i+1, got)
			}
		})
	}
	wg.Wait()
	c.Assert(reg.Len(), qt.Equals, len(owners))
}
