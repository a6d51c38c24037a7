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

	"goarrg.com/debug"
	"goarrg.com/rhi/dxr/internal/util"
)

type Frame struct {
	noCopy  util.NoCopy
	ctx     *Context
	frame   *frame
	index   int
	target  uint64
	name    string
	present bool
}

/*
BeginFrame opens the command list of the current frame slot and records the
copies of every dirty managed resource into it. When the context has a
surface the current back buffer is transitioned to a render target.
*/
func (c *Context) BeginFrame() (*Frame, error) {
	c.noCopy.Check()
	if c.frameStarted {
		c.abort("BeginFrame called when there's an active frame")
	}

	// the slot may still be in use after a timed out wait
	if err := c.sequencer.Wait(); err != nil {
		return nil, err
	}
	c.releases.Drain(c.sequencer.Poll())

	index := c.sequencer.FrameIndex()
	f := &c.frames[index]
	if err := f.allocator.Reset(); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to reset command allocator of frame %d", index)
	}
	if err := f.list.Reset(f.allocator); err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to reset command list of frame %d", index)
	}

	ret := Frame{
		ctx: c, frame: f, index: index,
		target:  c.sequencer.TargetFence(),
		name:    fmt.Sprintf("frame_%d", index),
		present: c.surface != nil && !c.sleep,
	}
	ret.noCopy.Init()
	c.frameStarted = true

	ret.FlushUploads()
	if ret.present {
		f.list.ResourceBarrier(c.surface.currentBackBuffer(), ResourceStatePresent, ResourceStateRenderTarget)
	}
	return &ret, nil
}

func (f *Frame) Index() int {
	f.noCopy.Check()
	return f.index
}

// TargetFence is the fence value this frame will signal on End.
func (f *Frame) TargetFence() uint64 {
	f.noCopy.Check()
	return f.target
}

func (f *Frame) CommandList() CommandList {
	f.noCopy.Check()
	return f.frame.list
}

/*
FlushUploads records the copies of every managed resource written since the
last flush. BeginFrame already calls it, calling it again is only needed for
writes made while the frame is being recorded.
*/
func (f *Frame) FlushUploads() int {
	f.noCopy.Check()
	return f.ctx.broadcaster.RunAll(f.frame.list, f.target)
}

// Presenting reports whether this frame renders to and presents a back buffer.
func (f *Frame) Presenting() bool {
	f.noCopy.Check()
	return f.present
}

func (f *Frame) BackBuffer() (Resource, CPUDescriptorHandle) {
	f.noCopy.Check()
	if !f.present {
		return nil, CPUDescriptorHandle{}
	}
	s := f.ctx.surface
	i := s.swapChain.CurrentBackBufferIndex()
	return s.backBuffers[i], s.backBufferRTV[i]
}

func (f *Frame) DepthStencil() (Resource, CPUDescriptorHandle) {
	f.noCopy.Check()
	if f.ctx.surface == nil {
		return nil, CPUDescriptorHandle{}
	}
	return f.ctx.surface.depth, f.ctx.surface.depthDSV
}

// QueueDestroy defers destroyers until the GPU has finished this frame.
func (f *Frame) QueueDestroy(destroyers ...Destroyer) {
	f.noCopy.Check()
	for _, d := range destroyers {
		f.ctx.releases.Enqueue(f.target, d)
	}
}

/*
End submits the frame, presents if it has a back buffer and advances the
frame sequencer, blocking if the next slot is still in use by the GPU.
destroyers are released once the GPU has finished this frame, as are any
earlier releases whose fence has completed by the time End returns.
*/
func (f *Frame) End(destroyers ...Destroyer) error {
	f.noCopy.Check()
	c := f.ctx
	for _, d := range destroyers {
		c.releases.Enqueue(f.target, d)
	}

	if f.present {
		f.frame.list.ResourceBarrier(c.surface.currentBackBuffer(), ResourceStateRenderTarget, ResourceStatePresent)
	}
	err := f.frame.list.Close()
	if err == nil {
		err = c.device.Queue().ExecuteCommandList(f.frame.list)
	}
	c.frameStarted = false
	f.noCopy.Close()
	if err != nil {
		return debug.ErrorWrapf(err, "Failed to submit %s", f.name)
	}
	if f.present {
		if err := c.surface.swapChain.Present(c.config.vsync); err != nil {
			c.abort("Failed to present: %v", err)
		}
	}

	if err := c.sequencer.Synchronize(false); err != nil {
		return err
	}
	c.stats.framesSubmitted++
	c.releases.Drain(c.sequencer.CompletedFence())
	return nil
}
