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

	"github.com/gogpu/gputypes"
	"goarrg.com/debug"
)

type gBuffer struct {
	resource Resource
	rtv      int
	srv      int
}

type surface struct {
	ctx       *Context
	window    Window
	swapChain SwapChain
	width     int
	height    int

	backBuffers   []Resource
	backBufferIDs []int
	backBufferRTV []CPUDescriptorHandle

	depth    Resource
	depthID  int
	depthDSV CPUDescriptorHandle

	gBuffers []gBuffer
}

func (c *Context) createSurface(window Window) (*surface, error) {
	swapChain, err := c.device.CreateSwapChain(window, c.config.maxFramesInFlight, c.config.backBufferFormat)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create swap chain")
	}
	s := surface{ctx: c, window: window, swapChain: swapChain}
	w, h := window.ClientSize()
	if w <= 0 || h <= 0 {
		c.sleep = true
		w, h = max(w, 1), max(h, 1)
	}
	if err := s.create(w, h); err != nil {
		s.destroy()
		return nil, err
	}
	return &s, nil
}

func (s *surface) currentBackBuffer() Resource {
	return s.backBuffers[s.swapChain.CurrentBackBufferIndex()]
}

func (s *surface) create(width, height int) error {
	c := s.ctx
	s.width, s.height = width, height

	for i := 0; i < s.swapChain.BufferCount(); i++ {
		buffer, err := s.swapChain.BackBuffer(i)
		if err != nil {
			return debug.ErrorWrapf(err, "Failed to get back buffer %d", i)
		}
		id, err := c.descriptors.Allocate(DescriptorPoolRTV, buffer, RenderTargetViewDesc{Format: c.config.backBufferFormat})
		if err != nil {
			return err
		}
		handle, _ := c.descriptors.CPUHandle(DescriptorPoolRTV, id)
		s.backBuffers = append(s.backBuffers, buffer)
		s.backBufferIDs = append(s.backBufferIDs, id)
		s.backBufferRTV = append(s.backBufferRTV, handle)
	}

	{
		desc := Texture2DDesc(c.config.depthFormat, uint32(width), uint32(height), 1, 1)
		desc.Flags = ResourceFlagAllowDepthStencil | ResourceFlagDenyShaderResource
		depth, err := c.device.CreateCommittedResource("depth", desc, ResourceStateDepthWrite)
		if err != nil {
			return debug.ErrorWrapf(err, "Failed to create depth buffer")
		}
		s.depth = depth
		if s.depthID, err = c.descriptors.Allocate(DescriptorPoolDSV, depth, DepthStencilViewDesc{Format: c.config.depthFormat}); err != nil {
			s.depthID = -1
			return err
		}
		s.depthDSV, _ = c.descriptors.CPUHandle(DescriptorPoolDSV, s.depthID)
	}

	for i := 0; i < c.config.gBufferCount; i++ {
		if err := s.createGBuffer(i, c.config.gBufferFormat); err != nil {
			return err
		}
	}

	c.logger.IPrintf("Surface created: %dx%d, back buffers: %d, g-buffers: %d", width, height, len(s.backBuffers), len(s.gBuffers))
	return nil
}

func (s *surface) createGBuffer(i int, format gputypes.TextureFormat) error {
	c := s.ctx
	desc := Texture2DDesc(format, uint32(s.width), uint32(s.height), 1, 1)
	desc.Flags = ResourceFlagAllowRenderTarget
	resource, err := c.device.CreateCommittedResource(fmt.Sprintf("gbuffer_%d", i), desc, ResourceStatePixelShaderResource)
	if err != nil {
		return debug.ErrorWrapf(err, "Failed to create g-buffer %d", i)
	}
	g := gBuffer{resource: resource, rtv: -1, srv: -1}
	s.gBuffers = append(s.gBuffers, g)
	gp := &s.gBuffers[len(s.gBuffers)-1]

	if gp.rtv, err = c.descriptors.Allocate(DescriptorPoolRTV, resource, RenderTargetViewDesc{Format: format}); err != nil {
		gp.rtv = -1
		return err
	}
	srv := ShaderResourceViewDesc{Format: format, Dimension: ViewDimensionTexture2D, MipLevels: 1}
	if gp.srv, err = c.descriptors.Allocate(DescriptorPoolShaderVisible, resource, srv); err != nil {
		gp.srv = -1
		return err
	}
	return nil
}

// release frees every size dependent object, the GPU must be idle.
func (s *surface) release() {
	c := s.ctx
	for _, g := range s.gBuffers {
		if g.srv >= 0 {
			_ = c.descriptors.Release(DescriptorPoolShaderVisible, g.srv)
		}
		if g.rtv >= 0 {
			_ = c.descriptors.Release(DescriptorPoolRTV, g.rtv)
		}
		g.resource.Destroy()
	}
	s.gBuffers = s.gBuffers[:0]

	if s.depth != nil {
		if s.depthID >= 0 {
			_ = c.descriptors.Release(DescriptorPoolDSV, s.depthID)
		}
		s.depth.Destroy()
		s.depth = nil
	}

	for _, id := range s.backBufferIDs {
		_ = c.descriptors.Release(DescriptorPoolRTV, id)
	}
	s.backBuffers = s.backBuffers[:0]
	s.backBufferIDs = s.backBufferIDs[:0]
	s.backBufferRTV = s.backBufferRTV[:0]
}

func (s *surface) resize(width, height int) error {
	s.release()
	if err := s.swapChain.ResizeBuffers(s.swapChain.BufferCount(), width, height, s.ctx.config.backBufferFormat); err != nil {
		return debug.ErrorWrapf(err, "Failed to resize swap chain to %dx%d", width, height)
	}
	return s.create(width, height)
}

func (s *surface) destroy() {
	s.release()
	s.swapChain.Destroy()
}

// Size returns the current surface size, zero when headless.
func (c *Context) Size() (int, int) {
	c.noCopy.Check()
	if c.surface == nil {
		return 0, 0
	}
	return c.surface.width, c.surface.height
}

// GBuffer returns g-buffer i with its render target and shader visible slots.
func (c *Context) GBuffer(i int) (Resource, int, int, error) {
	c.noCopy.Check()
	if c.surface == nil {
		return nil, -1, -1, ErrorUnsupportedOperation{Op: "GBuffer", Reason: "context is headless"}
	}
	if i < 0 || i >= len(c.surface.gBuffers) {
		return nil, -1, -1, ErrorOutOfRange{What: "g-buffer", Index: i, Limit: len(c.surface.gBuffers)}
	}
	g := c.surface.gBuffers[i]
	return g.resource, g.rtv, g.srv, nil
}
