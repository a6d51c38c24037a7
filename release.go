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

package dxr

import (
	"goarrg.com/debug"
	"goarrg.com/rhi/dxr/internal/container"
)

type pendingRelease struct {
	target    uint64
	destroyer Destroyer
}

/*
DelayedReleaseQueue holds objects the GPU may still reference until the fence
value they were retired at has completed. Targets are non decreasing from
head to tail so Drain only ever looks at the head.
*/
type DelayedReleaseQueue struct {
	logger   *debug.Logger
	pending  container.Queue[pendingRelease]
	released uint64
}

func NewDelayedReleaseQueue() *DelayedReleaseQueue {
	return &DelayedReleaseQueue{logger: debug.NewLogger("dxr", "release")}
}

func (q *DelayedReleaseQueue) Enqueue(target uint64, d Destroyer) {
	if !q.pending.Empty() {
		if tail := q.pending.Back(); target < tail.target {
			q.logger.WPrintf("Release target %d is behind queue tail %d, releasing at %d instead", target, tail.target, tail.target)
			target = tail.target
		}
	}
	q.pending.Push(pendingRelease{target: target, destroyer: d})
}

// Drain destroys every object whose target is <= completed and returns how many were destroyed.
func (q *DelayedReleaseQueue) Drain(completed uint64) int {
	n := 0
	for !q.pending.Empty() && q.pending.Peek().target <= completed {
		q.pending.Pop().destroyer.Destroy()
		n++
	}
	q.released += uint64(n)
	return n
}

// DrainAll destroys everything regardless of target, the caller must have flushed the GPU.
func (q *DelayedReleaseQueue) DrainAll() int {
	n := 0
	for !q.pending.Empty() {
		q.pending.Pop().destroyer.Destroy()
		n++
	}
	q.released += uint64(n)
	return n
}

func (q *DelayedReleaseQueue) Len() int {
	return q.pending.Len()
}

func (q *DelayedReleaseQueue) Released() uint64 {
	return q.released
}
