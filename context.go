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
	"strings"
	"sync/atomic"
	"time"

	"github.com/docker/go-units"
	"goarrg.com"
	"goarrg.com/debug"
	"goarrg.com/rhi/dxr/internal/util"
)

type stats struct {
	framesSubmitted    uint64
	copiesIssued       uint64
	stagingBuffersLive int
	stagingBytesLive   uint64
	validationErrors   atomic.Uint64
	validationWarnings atomic.Uint64
}

type Stats struct {
	Adapter             string
	FramesSubmitted     uint64
	BlockingWaits       uint64
	CopiesIssued        uint64
	RegisteredResources int
	StagingBuffersLive  int
	StagingBytesLive    uint64
	PendingReleases     int
	Released            uint64
	DescriptorsInUse    DescriptorPoolSizes
	ValidationErrors    uint64
	ValidationWarnings  uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("{Adapter: %q, Frames: %d, BlockingWaits: %d, Copies: %d, Registered: %d, Staging: %d (%s), PendingReleases: %d, Released: %d, Descriptors: [RTV: %d, DSV: %d, ShaderVisible: %d], Validation: [Errors: %d, Warnings: %d]}",
		s.Adapter, s.FramesSubmitted, s.BlockingWaits, s.CopiesIssued, s.RegisteredResources,
		s.StagingBuffersLive, units.BytesSize(float64(s.StagingBytesLive)), s.PendingReleases, s.Released,
		s.DescriptorsInUse.RTV, s.DescriptorsInUse.DSV, s.DescriptorsInUse.ShaderVisible,
		s.ValidationErrors, s.ValidationWarnings)
}

type frame struct {
	allocator CommandAllocator
	list      CommandList
}

func (f *frame) destroy() {
	f.list.Destroy()
	f.allocator.Destroy()
}

/*
Context owns the device and every shared subsystem: the update broadcaster,
the descriptor pools, the frame sequencer and the delayed release queue.
Everything created from a Context must be used from the thread that owns it.
*/
type Context struct {
	noCopy   util.NoCopy
	platform goarrg.PlatformInterface
	logger   *debug.Logger
	config   config
	adapter  Adapter
	device   Device
	fence    Fence

	sequencer   *FrameSequencer
	broadcaster *UpdateBroadcaster
	releases    *DelayedReleaseQueue
	descriptors *DescriptorAllocator

	frames       []frame
	frameStarted bool
	surface      *surface
	sleep        bool
	stats        stats
}

/*
CreateDevice tries every hardware adapter in order and then, if allowed,
the first software adapter once. The first device created wins.
*/
func CreateDevice(logger *debug.Logger, allowSoftware bool, adapters ...Adapter) (Adapter, Device, error) {
	if len(adapters) == 0 {
		return nil, nil, ErrorDeviceCreation{Reason: "no adapters"}
	}

	var failures []string
	try := func(software bool) (Adapter, Device) {
		for _, a := range adapters {
			if a.Software() != software {
				continue
			}
			device, err := a.CreateDevice()
			if err == nil {
				return a, device
			}
			logger.WPrintf("Failed to create device on adapter %q: %v", a.Name(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", a.Name(), err))
			if software {
				break
			}
		}
		return nil, nil
	}

	if a, d := try(false); d != nil {
		return a, d, nil
	}
	if allowSoftware {
		if a, d := try(true); d != nil {
			if len(failures) > 0 {
				logger.WPrintf("Hardware device creation failed, falling back to software adapter %q", a.Name())
			}
			return a, d, nil
		}
	}
	if len(failures) == 0 {
		return nil, nil, ErrorDeviceCreation{Reason: "no usable adapters"}
	}
	return nil, nil, ErrorDeviceCreation{Reason: strings.Join(failures, "; ")}
}

/*
NewContext creates a device from adapters and every subsystem on top of it.
window may be nil, in which case the context is headless and has no swap
chain, depth buffer or g-buffers.
*/
func NewContext(platform goarrg.PlatformInterface, cfg Config, window Window, adapters ...Adapter) (*Context, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	util.Init(platform)

	c := Context{
		platform:    platform,
		logger:      debug.NewLogger("dxr"),
		broadcaster: NewUpdateBroadcaster(),
		releases:    NewDelayedReleaseQueue(),
	}
	c.logger.IPrintf("User requested config: %s", prettyString(&cfg))
	c.config.use(cfg)

	var err error
	start := time.Now()
	c.adapter, c.device, err = CreateDevice(c.logger, !cfg.DisableSoftwareFallback, adapters...)
	if err != nil {
		c.abortPopup("%v", err)
		return nil, err
	}
	c.logger.IPrintf("Created device on adapter %q", c.adapter.Name())
	if m, ok := c.device.(DebugMessenger); ok {
		m.SetMessageCallback(c.onDebugMessage)
	}
	c.noCopy.Init()

	if err := c.init(cfg, window); err != nil {
		c.teardown()
		return nil, err
	}
	c.logger.IPrintf("Initialization took: %v", time.Since(start))
	return &c, nil
}

func (c *Context) init(cfg Config, window Window) error {
	var err error
	if c.fence, err = c.device.CreateFence(0); err != nil {
		return debug.ErrorWrapf(err, "Failed to create fence")
	}
	if c.sequencer, err = NewFrameSequencer(c.device.Queue(), c.fence, c.config.maxFramesInFlight, c.config.fenceWaitTimeout); err != nil {
		return err
	}
	c.descriptors, err = NewDescriptorAllocator(c.device, DescriptorPoolSizes{
		RTV:           int(cfg.RTVPoolSize),
		DSV:           int(cfg.DSVPoolSize),
		ShaderVisible: int(cfg.ShaderVisiblePoolSize),
	})
	if err != nil {
		return err
	}

	for i := 0; i < c.config.maxFramesInFlight; i++ {
		var f frame
		if f.allocator, err = c.device.CreateCommandAllocator(); err != nil {
			return debug.ErrorWrapf(err, "Failed to create command allocator for frame %d", i)
		}
		if f.list, err = c.device.CreateCommandList(f.allocator); err != nil {
			f.allocator.Destroy()
			return debug.ErrorWrapf(err, "Failed to create command list for frame %d", i)
		}
		// lists are created open
		if err = f.list.Close(); err != nil {
			f.destroy()
			return debug.ErrorWrapf(err, "Failed to close command list for frame %d", i)
		}
		c.frames = append(c.frames, f)
	}

	if window != nil {
		if c.surface, err = c.createSurface(window); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) Adapter() Adapter {
	c.noCopy.Check()
	return c.adapter
}

func (c *Context) Device() Device {
	c.noCopy.Check()
	return c.device
}

func (c *Context) Descriptors() *DescriptorAllocator {
	c.noCopy.Check()
	return c.descriptors
}

func (c *Context) Sequencer() *FrameSequencer {
	c.noCopy.Check()
	return c.sequencer
}

func (c *Context) Broadcaster() *UpdateBroadcaster {
	c.noCopy.Check()
	return c.broadcaster
}

func (c *Context) Releases() *DelayedReleaseQueue {
	c.noCopy.Check()
	return c.releases
}

func (c *Context) FramesInFlight() int {
	c.noCopy.Check()
	return c.config.maxFramesInFlight
}

func (c *Context) ConstantBufferAlignment() uint64 {
	c.noCopy.Check()
	return c.config.constantBufferAlignment
}

// Sleeping reports whether the window was last resized to a zero area.
func (c *Context) Sleeping() bool {
	c.noCopy.Check()
	return c.sleep
}

// Flush blocks until all submitted work has completed and releases everything waiting on it.
func (c *Context) Flush() error {
	c.noCopy.Check()
	if c.frameStarted {
		return ErrorUnsupportedOperation{Op: "Flush", Reason: "a frame is being recorded"}
	}
	if err := c.sequencer.Wait(); err != nil {
		return err
	}
	if err := c.sequencer.Synchronize(true); err != nil {
		return err
	}
	c.releases.Drain(c.sequencer.CompletedFence())
	return nil
}

/*
Resize recreates the swap chain buffers and every size dependent target after
flushing the GPU. A zero width or height only puts the context to sleep.
*/
func (c *Context) Resize(width, height int) error {
	c.noCopy.Check()
	if c.surface == nil {
		return ErrorUnsupportedOperation{Op: "Resize", Reason: "context is headless"}
	}
	if c.frameStarted {
		c.abort("Resize called while a frame is being recorded")
	}
	if width <= 0 || height <= 0 {
		c.sleep = true
		return nil
	}
	if width == c.surface.width && height == c.surface.height {
		c.sleep = false
		return nil
	}

	start := time.Now()
	if err := c.Flush(); err != nil {
		return err
	}
	if err := c.surface.resize(width, height); err != nil {
		return err
	}
	c.sleep = false
	c.logger.IPrintf("Resize to %dx%d took: %v", width, height, time.Since(start))
	return nil
}

func (c *Context) Stats() Stats {
	c.noCopy.Check()
	return Stats{
		Adapter:             c.adapter.Name(),
		FramesSubmitted:     c.stats.framesSubmitted,
		BlockingWaits:       c.sequencer.BlockingWaits(),
		CopiesIssued:        c.stats.copiesIssued,
		RegisteredResources: c.broadcaster.Len(),
		StagingBuffersLive:  c.stats.stagingBuffersLive,
		StagingBytesLive:    c.stats.stagingBytesLive,
		PendingReleases:     c.releases.Len(),
		Released:            c.releases.Released(),
		DescriptorsInUse: DescriptorPoolSizes{
			RTV:           c.descriptors.InUse(DescriptorPoolRTV),
			DSV:           c.descriptors.InUse(DescriptorPoolDSV),
			ShaderVisible: c.descriptors.InUse(DescriptorPoolShaderVisible),
		},
		ValidationErrors:   c.stats.validationErrors.Load(),
		ValidationWarnings: c.stats.validationWarnings.Load(),
	}
}

func (c *Context) teardown() {
	if c.surface != nil {
		c.surface.destroy()
		c.surface = nil
	}
	for i := range c.frames {
		c.frames[i].destroy()
	}
	c.frames = nil
	if c.descriptors != nil {
		c.descriptors.Destroy()
		c.descriptors = nil
	}
	if c.fence != nil {
		c.fence.Destroy()
		c.fence = nil
	}
	c.device.Destroy()
	c.device = nil
}

func (c *Context) Destroy() {
	c.noCopy.Check()
	if c.frameStarted {
		c.abort("Destroy called while a frame is being recorded")
	}
	if err := c.Flush(); err != nil {
		c.logger.EPrintf("Failed to flush before destroy: %v", err)
	}
	if n := c.releases.DrainAll(); n > 0 {
		c.logger.VPrintf("Released %d objects at teardown", n)
	}
	if n := c.broadcaster.Len(); n > 0 {
		c.logger.WPrintf("Destroying context with %d managed resources still registered", n)
	}
	c.logger.IPrintf("Final stats: %s", c.Stats())
	c.teardown()
	c.noCopy.Close()
}
