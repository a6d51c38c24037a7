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
	"fmt"
	"time"

	"goarrg.com/debug"
	"goarrg.com/rhi/dxr/internal/util"
)

type SequencerState uint8

const (
	SequencerStateIdle SequencerState = iota
	SequencerStateFrameSubmitted
	SequencerStateWaiting
)

func (s SequencerState) String() string {
	switch s {
	case SequencerStateIdle:
		return "Idle"
	case SequencerStateFrameSubmitted:
		return "FrameSubmitted"
	case SequencerStateWaiting:
		return "Waiting"
	default:
		return fmt.Sprintf("SequencerState(%d)", uint8(s))
	}
}

/*
FrameSequencer paces the CPU against the GPU with a single fence and a ring
of per frame fence values. Fence value 0 is never signaled so a slot that
still records 0 has never been submitted and is never waited on.
*/
type FrameSequencer struct {
	noCopy    util.NoCopy
	logger    *debug.Logger
	queue     Queue
	fence     Fence
	timeout   time.Duration
	state     SequencerState
	slots     []uint64
	index     int
	target    uint64
	completed uint64

	blockingWaits uint64
	signals       uint64
}

func NewFrameSequencer(queue Queue, fence Fence, framesInFlight int, timeout time.Duration) (*FrameSequencer, error) {
	if framesInFlight <= 0 {
		return nil, ErrorInvalidConfiguration{Reason: fmt.Sprintf("frames in flight must be > 0, got %d", framesInFlight)}
	}
	s := FrameSequencer{
		logger:    debug.NewLogger("dxr", "fence"),
		queue:     queue,
		fence:     fence,
		timeout:   timeout,
		slots:     make([]uint64, framesInFlight),
		target:    1,
		completed: fence.CompletedValue(),
	}
	s.noCopy.Init()
	return &s, nil
}

func (s *FrameSequencer) FramesInFlight() int {
	s.noCopy.Check()
	return len(s.slots)
}

func (s *FrameSequencer) FrameIndex() int {
	s.noCopy.Check()
	return s.index
}

// TargetFence is the value the next Signal will use.
func (s *FrameSequencer) TargetFence() uint64 {
	s.noCopy.Check()
	return s.target
}

// CompletedFence is the completed value observed at the end of the last Advance or Poll.
func (s *FrameSequencer) CompletedFence() uint64 {
	s.noCopy.Check()
	return s.completed
}

func (s *FrameSequencer) State() SequencerState {
	s.noCopy.Check()
	return s.state
}

func (s *FrameSequencer) BlockingWaits() uint64 {
	s.noCopy.Check()
	return s.blockingWaits
}

func (s *FrameSequencer) Signals() uint64 {
	s.noCopy.Check()
	return s.signals
}

// Poll refreshes the cached completed value without blocking.
func (s *FrameSequencer) Poll() uint64 {
	s.noCopy.Check()
	s.completed = s.fence.CompletedValue()
	return s.completed
}

// Signal enqueues a signal of TargetFence on the queue and records it on the current slot.
func (s *FrameSequencer) Signal() error {
	s.noCopy.Check()
	if s.state != SequencerStateIdle {
		return ErrorUnsupportedOperation{Op: "Signal", Reason: fmt.Sprintf("sequencer is %s", s.state)}
	}
	if err := s.queue.Signal(s.fence, s.target); err != nil {
		return debug.ErrorWrapf(err, "Failed to signal fence value %d", s.target)
	}
	s.slots[s.index] = s.target
	s.target++
	s.signals++
	s.state = SequencerStateFrameSubmitted
	return nil
}

/*
Advance moves to the next slot, unless flushing, and blocks until the value
recorded on the resulting slot has completed. With flush the resulting slot
is the one just signaled, so on return all submitted work has completed.
If the wait times out the sequencer stays Waiting on that slot until Wait
succeeds.
*/
func (s *FrameSequencer) Advance(flush bool) error {
	s.noCopy.Check()
	if s.state != SequencerStateFrameSubmitted {
		return ErrorUnsupportedOperation{Op: "Advance", Reason: fmt.Sprintf("sequencer is %s", s.state)}
	}
	if !flush {
		s.index = (s.index + 1) % len(s.slots)
	}
	s.state = SequencerStateWaiting
	return s.waitSlot()
}

// Wait retries the wait of an Advance that timed out, it does nothing unless the sequencer is Waiting.
func (s *FrameSequencer) Wait() error {
	s.noCopy.Check()
	if s.state != SequencerStateWaiting {
		return nil
	}
	return s.waitSlot()
}

func (s *FrameSequencer) waitSlot() error {
	err := s.wait(s.slots[s.index])
	s.completed = s.fence.CompletedValue()
	if err != nil {
		return err
	}
	s.state = SequencerStateIdle
	return nil
}

func (s *FrameSequencer) Synchronize(flush bool) error {
	if err := s.Signal(); err != nil {
		return err
	}
	return s.Advance(flush)
}

func (s *FrameSequencer) wait(value uint64) error {
	if value == 0 || s.fence.CompletedValue() >= value {
		return nil
	}

	s.blockingWaits++
	done := s.fence.SetEventOnCompletion(value)
	if s.timeout <= 0 {
		<-done
		return nil
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		completed := s.fence.CompletedValue()
		s.logger.EPrintf("Fence wait for %d timed out after %s, completed: %d", value, s.timeout, completed)
		return ErrorFenceTimeout{Value: value, Completed: completed, Timeout: s.timeout}
	}
}
