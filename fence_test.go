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

package dxr_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/soft"
)

func newSequencer(t *testing.T, mode soft.QueueMode, frames int, timeout time.Duration) (*dxr.FrameSequencer, *soft.Device) {
	t.Helper()
	device := soft.NewDevice("fence", mode, 0)
	t.Cleanup(device.Destroy)
	fence, err := device.CreateFence(0)
	require.NoError(t, err)
	s, err := dxr.NewFrameSequencer(device.Queue(), fence, frames, timeout)
	require.NoError(t, err)
	return s, device
}

func TestSequencerImmediateNeverBlocks(t *testing.T) {
	s, _ := newSequencer(t, soft.QueueModeImmediate, 3, time.Second)
	for range 10 {
		require.NoError(t, s.Synchronize(false))
	}
	assert.Zero(t, s.BlockingWaits())
	assert.Equal(t, uint64(11), s.TargetFence())
	assert.Equal(t, uint64(10), s.CompletedFence())
	assert.Equal(t, uint64(10), s.Signals())
	assert.Equal(t, 1, s.FrameIndex())
	assert.Equal(t, dxr.SequencerStateIdle, s.State())
}

func TestSequencerTimesOut(t *testing.T) {
	s, device := newSequencer(t, soft.QueueModeDeferred, 2, 20*time.Millisecond)

	// the first frame waits on a slot that was never signaled
	require.NoError(t, s.Synchronize(false))
	assert.Zero(t, s.BlockingWaits())

	err := s.Synchronize(false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dxr.ErrorFenceTimeout{}))
	var timeout dxr.ErrorFenceTimeout
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, uint64(1), timeout.Value)
	assert.Zero(t, timeout.Completed)
	assert.Equal(t, uint64(1), s.BlockingWaits())

	// slot 0 still belongs to fence 1, nothing may be signaled on it
	assert.Equal(t, 0, s.FrameIndex())
	assert.Equal(t, dxr.SequencerStateWaiting, s.State())
	assert.True(t, errors.Is(s.Signal(), dxr.ErrorUnsupportedOperation{}))
	assert.True(t, errors.Is(s.Wait(), dxr.ErrorFenceTimeout{}))
	assert.Equal(t, dxr.SequencerStateWaiting, s.State())
	assert.Equal(t, uint64(2), s.BlockingWaits())

	device.CommandQueue().CompleteUpTo(1)
	require.NoError(t, s.Wait())
	assert.Equal(t, dxr.SequencerStateIdle, s.State())
	assert.Equal(t, uint64(1), s.CompletedFence())
	require.NoError(t, s.Wait())
	assert.Equal(t, uint64(2), s.BlockingWaits())

	device.CommandQueue().CompleteAll()
	assert.Equal(t, uint64(2), s.Poll())
	require.NoError(t, s.Synchronize(false))
}

func TestSequencerSlotBlocksOnItsOwnFrame(t *testing.T) {
	s, device := newSequencer(t, soft.QueueModeDeferred, 3, 5*time.Second)
	queue := device.CommandQueue()

	for frame := uint64(1); frame <= 5; frame++ {
		slot := s.FrameIndex()
		assert.Equal(t, int((frame-1)%3), slot)
		waits := s.BlockingWaits()

		var done chan struct{}
		if frame >= 3 {
			// the next slot last recorded frame-2
			done = make(chan struct{})
			go func(value uint64) {
				defer close(done)
				time.Sleep(10 * time.Millisecond)
				queue.CompleteUpTo(value)
			}(frame - 2)
		}
		require.NoError(t, s.Synchronize(false))
		assert.Equal(t, int(frame%3), s.FrameIndex())

		if done == nil {
			assert.Equal(t, waits, s.BlockingWaits(), "frame %d", frame)
			assert.Zero(t, s.CompletedFence())
			continue
		}
		<-done
		assert.Equal(t, waits+1, s.BlockingWaits(), "frame %d", frame)
		assert.Equal(t, frame-2, s.CompletedFence())
		assert.Equal(t, 2, queue.Pending())
	}
	queue.CompleteAll()
}

func TestSequencerBlocksUntilCompleted(t *testing.T) {
	s, device := newSequencer(t, soft.QueueModeDeferred, 2, 5*time.Second)
	require.NoError(t, s.Synchronize(false))

	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(10 * time.Millisecond)
		device.CommandQueue().CompleteUpTo(1)
	}()
	require.NoError(t, s.Synchronize(false))
	<-done

	assert.Equal(t, uint64(1), s.BlockingWaits())
	assert.Equal(t, uint64(1), s.CompletedFence())
	assert.Equal(t, 0, s.FrameIndex())
	assert.Equal(t, 1, device.CommandQueue().Pending())
}

func TestSequencerFlushWaitsForLastSignal(t *testing.T) {
	s, device := newSequencer(t, soft.QueueModeDeferred, 3, 5*time.Second)
	stop := runGPU(device.CommandQueue(), time.Millisecond)
	defer stop()

	require.NoError(t, s.Synchronize(false))
	require.NoError(t, s.Synchronize(true))
	assert.Equal(t, 1, s.FrameIndex())
	assert.Equal(t, uint64(2), s.CompletedFence())
	assert.Equal(t, uint64(3), s.TargetFence())
}

func TestSequencerMisuse(t *testing.T) {
	s, _ := newSequencer(t, soft.QueueModeImmediate, 2, time.Second)

	assert.True(t, errors.Is(s.Advance(false), dxr.ErrorUnsupportedOperation{}))
	require.NoError(t, s.Signal())
	assert.Equal(t, dxr.SequencerStateFrameSubmitted, s.State())
	assert.True(t, errors.Is(s.Signal(), dxr.ErrorUnsupportedOperation{}))
	require.NoError(t, s.Advance(false))

	_, err := dxr.NewFrameSequencer(nil, nil, 0, time.Second)
	assert.True(t, errors.Is(err, dxr.ErrorInvalidConfiguration{}))
}
