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

// Package subclass replaces a window's procedure with one that runs a hook
// first and forwards whatever the hook leaves unhandled to the procedure it
// replaced.
//
// Several subclasses may be stacked on one window, each installed by code
// that knows nothing about the others. A subclass only removes itself
// politely when it is still the procedure on top; a forced detach restores
// its predecessor regardless and may cut off anything installed later.
//
// The OS holds the native procedure pointer of an attached subclass, which
// the Go collector cannot see. Those pointers come from a fixed pool of
// callbacks whose slots keep their owning Subclass reachable from the moment
// it is created until its detachment is confirmed.
//
// Every attached subclass is also listed in a process-wide registry so that
// Teardown can put every window back before the process goes away.
package subclass
