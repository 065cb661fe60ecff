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

// Package weakreg provides a process-wide lookup table whose entries do not
// keep their values alive.
package weakreg

import (
	"sync"
	"weak"
)

// Registry maps keys to weakly held values. A lookup hit is cached so the
// common case (asking for the same value repeatedly) skips the scan, and a
// miss prunes every entry whose value has been collected.
//
// Keys are derived from the value by the func passed to New, since a key
// can change after registration (an executor only learns its thread when it
// starts running).
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	keyOf   func(*V) (K, bool)
	entries []weak.Pointer[V]
	last    weak.Pointer[V]
}

// New creates a registry. keyOf reports the current key of a value, or
// false if the value has no key yet.
func New[K comparable, V any](keyOf func(*V) (K, bool)) *Registry[K, V] {
	return &Registry[K, V]{keyOf: keyOf}
}

// Add registers v. Adding nil is a no-op.
func (r *Registry[K, V]) Add(v *V) {
	if v == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, weak.Make(v))
}

// Remove unregisters v. Removing an absent value is a no-op.
func (r *Registry[K, V]) Remove(v *V) {
	if v == nil {
		return
	}
	wp := weak.Make(v)
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e == wp {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			break
		}
	}
	if r.last == wp {
		r.last = weak.Pointer[V]{}
	}
}

// Lookup returns the live value registered under key, or nil.
func (r *Registry[K, V]) Lookup(key K) *V {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v := r.last.Value(); v != nil {
		if k, ok := r.keyOf(v); ok && k == key {
			return v
		}
	}

	var found *V
	kept := r.entries[:0]
	for _, e := range r.entries {
		v := e.Value()
		if v == nil {
			continue
		}
		kept = append(kept, e)
		if found == nil {
			if k, ok := r.keyOf(v); ok && k == key {
				found = v
			}
		}
	}
	clear(r.entries[len(kept):])
	r.entries = kept

	if found != nil {
		r.last = weak.Make(found)
	}
	return found
}

// Len reports how many entries are still tracked, collected or not.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
