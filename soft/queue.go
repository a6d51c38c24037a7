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
	"context"
	"slices"
	"sync"
	"time"

	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
	"golang.org/x/sync/errgroup"
)

type op struct {
	commands []command
	fence    *Fence
	value    uint64
	present  *Resource
}

/*
Queue replays submitted work in order. A replay that touches a destroyed
resource removes the device, after which every submission fails and no fence
is signaled again.
*/
type Queue struct {
	device  *Device
	mode    QueueMode
	latency time.Duration

	mu      sync.Mutex
	pending []op
	removed error

	work   chan op
	group  *errgroup.Group
	cancel context.CancelFunc
	closed bool
}

var _ dxr.Queue = (*Queue)(nil)

func newQueue(d *Device, mode QueueMode, latency time.Duration) *Queue {
	q := &Queue{device: d, mode: mode, latency: latency}
	if mode == QueueModeAsync {
		var ctx context.Context
		ctx, q.cancel = context.WithCancel(context.Background())
		q.group, ctx = errgroup.WithContext(ctx)
		q.work = make(chan op, 64)
		q.group.Go(func() error {
			return q.worker(ctx)
		})
	}
	return q
}

func (q *Queue) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o, ok := <-q.work:
			if !ok {
				return nil
			}
			if q.latency > 0 {
				time.Sleep(q.latency)
			}
			if err := q.run(o); err != nil {
				return err
			}
		}
	}
}

func (q *Queue) Mode() QueueMode {
	return q.mode
}

// Err returns the error that removed the device, nil while the device is healthy.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removed
}

func (q *Queue) run(o op) error {
	d := q.device
	d.mu.Lock()
	var err error
	for _, c := range o.commands {
		if err = d.replay(c); err != nil {
			break
		}
	}
	if err == nil && o.commands != nil {
		d.stats.CommandListsExecuted++
	}
	if err == nil && o.present != nil {
		if o.present.state != dxr.ResourceStatePresent {
			d.emit(dxr.MessageSeverityError, MessageIDPresentState, []string{o.present.name},
				"Back buffer presented in state %s", o.present.state)
		}
		d.stats.Presents++
	}
	if err == nil && o.fence != nil {
		d.stats.Signals++
	}
	d.mu.Unlock()

	if err != nil {
		q.mu.Lock()
		q.removed = debug.ErrorWrapf(err, "Device removed")
		q.mu.Unlock()
		instance.logger.EPrintf("Device %q removed: %v", d.name, err)
		return err
	}
	if o.fence != nil {
		o.fence.Signal(o.value)
	}
	return nil
}

func (q *Queue) submit(o op) error {
	q.mu.Lock()
	if q.removed != nil {
		err := q.removed
		q.mu.Unlock()
		return err
	}
	if q.closed {
		q.mu.Unlock()
		return debug.Errorf("Queue has been closed")
	}

	switch q.mode {
	case QueueModeDeferred:
		q.pending = append(q.pending, o)
		q.mu.Unlock()
		return nil
	case QueueModeAsync:
		q.mu.Unlock()
		q.work <- o
		return nil
	default:
		q.mu.Unlock()
		return q.run(o)
	}
}

func (q *Queue) ExecuteCommandList(list dxr.CommandList) error {
	l, ok := list.(*CommandList)
	if !ok {
		return debug.Errorf("Command list %T was not created by a soft device", list)
	}
	if l.open {
		return debug.Errorf("Command list must be closed before it is executed")
	}
	return q.submit(op{commands: slices.Clone(l.commands)})
}

func (q *Queue) Signal(fence dxr.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok {
		return debug.Errorf("Fence %T was not created by a soft device", fence)
	}
	return q.submit(op{fence: f, value: value})
}

func (q *Queue) present(backBuffer *Resource) error {
	return q.submit(op{present: backBuffer})
}

// Pending returns the number of operations held by a deferred queue.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

/*
CompleteUpTo replays held work in order up to and including the signal of
fence value, stopping before any signal of a larger value. It returns the
number of operations replayed.
*/
func (q *Queue) CompleteUpTo(value uint64) int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.pending) == 0 || q.removed != nil {
			q.mu.Unlock()
			return n
		}
		o := q.pending[0]
		if o.fence != nil && o.value > value {
			q.mu.Unlock()
			return n
		}
		q.pending[0] = op{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if err := q.run(o); err != nil {
			return n
		}
		n++
	}
}

func (q *Queue) CompleteAll() int {
	return q.CompleteUpTo(^uint64(0))
}

func (q *Queue) close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	switch q.mode {
	case QueueModeAsync:
		close(q.work)
		err := q.group.Wait()
		q.cancel()
		return err
	case QueueModeDeferred:
		q.CompleteAll()
	}
	return q.Err()
}
