/*
Copyright 2026 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package soft

import (
	"sync"

	"goarrg.com/rhi/dxr"
)

type fenceWaiter struct {
	value uint64
	done  chan struct{}
}

// Fence values only move forward, signaling a smaller value is ignored.
type Fence struct {
	mu      sync.Mutex
	value   uint64
	waiters []fenceWaiter
}

var _ dxr.Fence = (*Fence)(nil)

func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

func (f *Fence) SetEventOnCompletion(value uint64) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	done := make(chan struct{})
	if f.value >= value {
		close(done)
		return done
	}
	f.waiters = append(f.waiters, fenceWaiter{value: value, done: done})
	return done
}

// Signal sets the completed value from the CPU side.
func (f *Fence) Signal(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value <= f.value {
		return
	}
	f.value = value
	waiters := f.waiters[:0]
	for _, w := range f.waiters {
		if w.value <= value {
			close(w.done)
		} else {
			waiters = append(waiters, w)
		}
	}
	clear(f.waiters[len(waiters):])
	f.waiters = waiters
}

func (f *Fence) Destroy() {}
