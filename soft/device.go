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
	"time"

	"github.com/docker/go-units"
	"github.com/gogpu/gputypes"
	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/internal/util"
)

type Stats struct {
	ResourcesCreated     uint64
	ResourcesDestroyed   uint64
	BytesLive            uint64
	ViewsCreated         uint64
	CommandListsExecuted uint64
	Barriers             uint64
	BufferCopies         uint64
	TextureCopies        uint64
	BytesCopied          uint64
	Signals              uint64
	Presents             uint64
	Errors               uint64
	Warnings             uint64
}

func (s Stats) ResourcesLive() uint64 {
	return s.ResourcesCreated - s.ResourcesDestroyed
}

func (s Stats) String() string {
	return fmt.Sprintf("{Resources: %d (%s), Views: %d, Lists: %d, Barriers: %d, Copies: [Buffer: %d, Texture: %d, %s], Signals: %d, Presents: %d, Errors: %d, Warnings: %d}",
		s.ResourcesLive(), units.BytesSize(float64(s.BytesLive)), s.ViewsCreated, s.CommandListsExecuted, s.Barriers,
		s.BufferCopies, s.TextureCopies, units.BytesSize(float64(s.BytesCopied)), s.Signals, s.Presents, s.Errors, s.Warnings)
}

/*
Device owns every object created from it. mu guards resource memory and
state, both of which are touched by replay which may run on the queue worker.
*/
type Device struct {
	mu          sync.Mutex
	name        string
	queue       *Queue
	callback    func(dxr.DebugMessage)
	nextAddress uint64
	nextHeapCPU uint64
	nextHeapGPU uint64
	heaps       []*DescriptorHeap
	live        map[*Resource]struct{}
	messages    []dxr.DebugMessage
	stats       Stats
	destroyed   bool
}

var _ interface {
	dxr.Device
	dxr.DebugMessenger
} = (*Device)(nil)

func NewDevice(name string, mode QueueMode, latency time.Duration) *Device {
	d := &Device{
		name:        name,
		nextAddress: resourceAlignment,
		nextHeapCPU: heapAddressSpan,
		nextHeapGPU: heapAddressSpan,
		live:        map[*Resource]struct{}{},
	}
	d.queue = newQueue(d, mode, latency)
	instance.logger.IPrintf("Created device %q with %s queue", name, mode)
	return d
}

func (d *Device) SetMessageCallback(f func(dxr.DebugMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = f
}

// emit must be called with mu held.
func (d *Device) emit(severity dxr.MessageSeverity, id int32, objects []string, format string, args ...any) {
	m := dxr.DebugMessage{Severity: severity, Category: "Soft", ID: id, Objects: objects, Text: fmt.Sprintf(format, args...)}
	switch severity {
	case dxr.MessageSeverityError:
		d.stats.Errors++
	case dxr.MessageSeverityWarning:
		d.stats.Warnings++
	}
	d.messages = append(d.messages, m)
	if d.callback != nil {
		d.callback(m)
	} else if severity >= dxr.MessageSeverityWarning {
		instance.logger.WPrintf("[MessageId: %d] %v %s", id, objects, m.Text)
	}
}

// Messages returns every message emitted so far.
func (d *Device) Messages() []dxr.DebugMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dxr.DebugMessage(nil), d.messages...)
}

func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *Device) Queue() dxr.Queue {
	return d.queue
}

// CommandQueue is Queue without the interface, for controlling a deferred queue.
func (d *Device) CommandQueue() *Queue {
	return d.queue
}

func subresourceSize(desc dxr.ResourceDesc, pixelSize, sub int) uint64 {
	if desc.Dimension == dxr.ResourceDimensionBuffer {
		return desc.Size
	}
	mip := sub % int(max(desc.MipLevels, 1))
	w := uint64(max(desc.Width>>mip, 1))
	h := uint64(max(desc.Height>>mip, 1))
	return w * h * uint64(pixelSize)
}

func (d *Device) newResource(name string, desc dxr.ResourceDesc, upload bool, state dxr.ResourceState) (*Resource, error) {
	r := Resource{device: d, name: name, desc: desc, upload: upload, state: state}
	switch desc.Dimension {
	case dxr.ResourceDimensionBuffer:
		if desc.Size == 0 {
			return nil, debug.Errorf("Buffer %q has zero size", name)
		}
	case dxr.ResourceDimensionTexture2D:
		if desc.Width == 0 || desc.Height == 0 {
			return nil, debug.Errorf("Texture %q has zero extent", name)
		}
		pixelSize, err := dxr.FormatPixelSize(desc.Format)
		if err != nil {
			return nil, debug.ErrorWrapf(err, "Texture %q", name)
		}
		r.pixelSize = pixelSize
	default:
		return nil, debug.Errorf("Resource %q has unknown dimension %d", name, desc.Dimension)
	}

	size := uint64(0)
	r.data = make([][]byte, desc.SubresourceCount())
	for i := range r.data {
		r.data[i] = make([]byte, subresourceSize(desc, r.pixelSize, i))
		size += uint64(len(r.data[i]))
	}
	r.size = size

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, debug.Errorf("Device %q has been destroyed", d.name)
	}
	r.address = d.nextAddress
	d.nextAddress += util.AlignUp(size, resourceAlignment)
	d.live[&r] = struct{}{}
	d.stats.ResourcesCreated++
	d.stats.BytesLive += size
	return &r, nil
}

func (d *Device) CreateCommittedResource(name string, desc dxr.ResourceDesc, initialState dxr.ResourceState) (dxr.Resource, error) {
	r, err := d.newResource(name, desc, false, initialState)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateUploadResource creates CPU visible memory, which always stays in GenericRead.
func (d *Device) CreateUploadResource(name string, desc dxr.ResourceDesc) (dxr.UploadResource, error) {
	r, err := d.newResource(name, desc, true, dxr.ResourceStateGenericRead)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (d *Device) destroyResource(r *Resource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.destroyed {
		d.emit(dxr.MessageSeverityError, MessageIDUseAfterDestroy, []string{r.name}, "Resource destroyed twice")
		return
	}
	r.destroyed = true
	delete(d.live, r)
	d.stats.ResourcesDestroyed++
	d.stats.BytesLive -= r.size
}

func (d *Device) CreateDescriptorHeap(heapType dxr.DescriptorHeapType, capacity int, shaderVisible bool) (dxr.DescriptorHeap, error) {
	if capacity <= 0 {
		return nil, debug.Errorf("Descriptor heap capacity must be > 0, got %d", capacity)
	}
	if shaderVisible && heapType != dxr.DescriptorHeapTypeCBVSRVUAV {
		return nil, debug.Errorf("Descriptor heap of type %s cannot be shader visible", heapType)
	}
	span := util.AlignUp(uint64(capacity)*DescriptorIncrementSize, heapAddressSpan)

	d.mu.Lock()
	defer d.mu.Unlock()
	h := DescriptorHeap{
		device: d, heapType: heapType, shaderVisible: shaderVisible,
		cpuStart: d.nextHeapCPU,
		views:    make([]View, capacity),
	}
	d.nextHeapCPU += span
	if shaderVisible {
		h.gpuStart = d.nextHeapGPU
		d.nextHeapGPU += span
	}
	d.heaps = append(d.heaps, &h)
	return &h, nil
}

func (d *Device) DescriptorHandleIncrementSize(dxr.DescriptorHeapType) uint64 {
	return DescriptorIncrementSize
}

func (d *Device) CreateView(resource dxr.Resource, view dxr.ViewDesc, dst dxr.CPUDescriptorHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var heap *DescriptorHeap
	for _, h := range d.heaps {
		if !h.destroyed && dst.Ptr >= h.cpuStart && dst.Ptr < h.cpuStart+uint64(len(h.views))*DescriptorIncrementSize {
			heap = h
			break
		}
	}
	if heap == nil {
		return debug.Errorf("CPU descriptor handle 0x%016X does not belong to any heap", dst.Ptr)
	}
	if (dst.Ptr-heap.cpuStart)%DescriptorIncrementSize != 0 {
		return debug.Errorf("CPU descriptor handle 0x%016X is not aligned to the increment size", dst.Ptr)
	}
	if view.HeapType() != heap.heapType {
		d.emit(dxr.MessageSeverityError, MessageIDViewType, nil, "%T cannot be written to a %s heap", view, heap.heapType)
		return debug.Errorf("%T cannot be written to a %s heap", view, heap.heapType)
	}

	var r *Resource
	if resource != nil {
		var ok bool
		if r, ok = resource.(*Resource); !ok {
			return debug.Errorf("Resource %T was not created by a soft device", resource)
		}
		if r.destroyed {
			d.emit(dxr.MessageSeverityError, MessageIDUseAfterDestroy, []string{r.name}, "View created for a destroyed resource")
			return debug.Errorf("Resource %q has been destroyed", r.name)
		}
	} else if _, ok := view.(dxr.ConstantBufferViewDesc); !ok {
		return debug.Errorf("%T requires a resource", view)
	}

	switch v := view.(type) {
	case dxr.RenderTargetViewDesc:
		if r.desc.Flags&dxr.ResourceFlagAllowRenderTarget == 0 {
			d.emit(dxr.MessageSeverityError, MessageIDViewFlags, []string{r.name}, "Render target view of a resource without AllowRenderTarget")
		}
	case dxr.DepthStencilViewDesc:
		if r.desc.Flags&dxr.ResourceFlagAllowDepthStencil == 0 {
			d.emit(dxr.MessageSeverityError, MessageIDViewFlags, []string{r.name}, "Depth stencil view of a resource without AllowDepthStencil")
		}
	case dxr.ShaderResourceViewDesc:
		if r.desc.Flags&dxr.ResourceFlagDenyShaderResource != 0 {
			d.emit(dxr.MessageSeverityError, MessageIDViewFlags, []string{r.name}, "Shader resource view of a resource with DenyShaderResource")
		}
		if v.Format != gputypes.TextureFormatUndefined && r.desc.Dimension == dxr.ResourceDimensionTexture2D && v.Format != r.desc.Format {
			d.emit(dxr.MessageSeverityWarning, MessageIDUnsupportedFormat, []string{r.name}, "Shader resource view format %v does not match resource format %v", v.Format, r.desc.Format)
		}
	}

	heap.views[(dst.Ptr-heap.cpuStart)/DescriptorIncrementSize] = View{Resource: r, Desc: view}
	d.stats.ViewsCreated++
	return nil
}

func (d *Device) CreateFence(initialValue uint64) (dxr.Fence, error) {
	return &Fence{value: initialValue}, nil
}

func (d *Device) CreateCommandAllocator() (dxr.CommandAllocator, error) {
	return &CommandAllocator{device: d}, nil
}

// CreateCommandList returns a list that is open for recording.
func (d *Device) CreateCommandList(allocator dxr.CommandAllocator) (dxr.CommandList, error) {
	a, ok := allocator.(*CommandAllocator)
	if !ok {
		return nil, debug.Errorf("Command allocator %T was not created by a soft device", allocator)
	}
	return &CommandList{device: d, allocator: a, open: true}, nil
}

func (d *Device) CreateSwapChain(window dxr.Window, bufferCount int, format gputypes.TextureFormat) (dxr.SwapChain, error) {
	if window == nil {
		return nil, debug.Errorf("Swap chain requires a window")
	}
	if bufferCount < 2 {
		return nil, debug.Errorf("Swap chain requires at least 2 buffers, got %d", bufferCount)
	}
	w, h := window.ClientSize()
	s := SwapChain{device: d, window: window}
	if err := s.createBuffers(bufferCount, max(w, 1), max(h, 1), format); err != nil {
		return nil, err
	}
	return &s, nil
}

// Destroy waits for the queue to go idle and reports every resource still alive.
func (d *Device) Destroy() {
	if err := d.queue.close(); err != nil {
		instance.logger.EPrintf("Queue of device %q stopped with: %v", d.name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for r := range d.live {
		d.emit(dxr.MessageSeverityWarning, MessageIDLiveObject, []string{r.name}, "Resource still alive at device destruction")
	}
	d.destroyed = true
	instance.logger.IPrintf("Destroyed device %q: %s", d.name, d.stats)
}
