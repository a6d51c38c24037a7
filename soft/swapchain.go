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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
)

type SwapChain struct {
	device  *Device
	window  dxr.Window
	format  gputypes.TextureFormat
	width   int
	height  int
	buffers []*Resource
	current int
}

var _ dxr.SwapChain = (*SwapChain)(nil)

func (s *SwapChain) createBuffers(count, width, height int, format gputypes.TextureFormat) error {
	for i := 0; i < count; i++ {
		desc := dxr.Texture2DDesc(format, uint32(width), uint32(height), 1, 1)
		desc.Flags = dxr.ResourceFlagAllowRenderTarget
		r, err := s.device.newResource(fmt.Sprintf("backbuffer_%d", i), desc, false, dxr.ResourceStatePresent)
		if err != nil {
			s.destroyBuffers()
			return debug.ErrorWrapf(err, "Failed to create back buffer %d", i)
		}
		s.buffers = append(s.buffers, r)
	}
	s.format = format
	s.width, s.height = width, height
	s.current = 0
	return nil
}

func (s *SwapChain) destroyBuffers() {
	for _, b := range s.buffers {
		b.Destroy()
	}
	s.buffers = s.buffers[:0]
}

func (s *SwapChain) BufferCount() int {
	return len(s.buffers)
}

func (s *SwapChain) CurrentBackBufferIndex() int {
	return s.current
}

func (s *SwapChain) Size() (int, int) {
	return s.width, s.height
}

func (s *SwapChain) BackBuffer(index int) (dxr.Resource, error) {
	if index < 0 || index >= len(s.buffers) {
		return nil, debug.Errorf("Back buffer %d out of range [0, %d)", index, len(s.buffers))
	}
	return s.buffers[index], nil
}

// ResizeBuffers recreates every back buffer, the queue must be idle.
func (s *SwapChain) ResizeBuffers(count, width, height int, format gputypes.TextureFormat) error {
	if width <= 0 || height <= 0 {
		return debug.Errorf("Invalid swap chain size %dx%d", width, height)
	}
	if count == 0 {
		count = len(s.buffers)
	}
	if format == gputypes.TextureFormatUndefined {
		format = s.format
	}
	s.destroyBuffers()
	return s.createBuffers(count, width, height, format)
}

func (s *SwapChain) Present(bool) error {
	if len(s.buffers) == 0 {
		return debug.Errorf("Present called on a swap chain without buffers")
	}
	b := s.buffers[s.current]
	s.current = (s.current + 1) % len(s.buffers)
	return s.device.queue.present(b)
}

func (s *SwapChain) Destroy() {
	s.destroyBuffers()
}

type Window struct {
	mu     sync.Mutex
	handle uintptr
	width  int
	height int
}

var _ dxr.Window = (*Window)(nil)

var windowHandles atomic.Uintptr

func NewWindow(width, height int) *Window {
	return &Window{handle: windowHandles.Add(1), width: width, height: height}
}

func (w *Window) NativeHandle() uintptr {
	return w.handle
}

func (w *Window) ClientSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *Window) SetClientSize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width, w.height = width, height
}
