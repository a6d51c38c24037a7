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
	"strings"

	"github.com/gogpu/gputypes"
)

/*
The interfaces in this file are the boundary between the resource core and a
concrete GPU backend. They follow the shape of a single direct queue device:
committed resources on default or upload heaps, flat descriptor heaps, command
lists recorded against per-frame allocators and a monotonically increasing
fence signaled by the queue.
*/

type Destroyer interface {
	Destroy()
}

type ResourceState uint32

const (
	ResourceStateCommon                  ResourceState = 0
	ResourceStateVertexAndConstantBuffer ResourceState = 0x1
	ResourceStateIndexBuffer             ResourceState = 0x2
	ResourceStateRenderTarget            ResourceState = 0x4
	ResourceStateUnorderedAccess         ResourceState = 0x8
	ResourceStateDepthWrite              ResourceState = 0x10
	ResourceStateDepthRead               ResourceState = 0x20
	ResourceStateNonPixelShaderResource  ResourceState = 0x40
	ResourceStatePixelShaderResource     ResourceState = 0x80
	ResourceStateCopyDest                ResourceState = 0x400
	ResourceStateCopySource              ResourceState = 0x800
	ResourceStateGenericRead                           = ResourceStateVertexAndConstantBuffer | ResourceStateIndexBuffer |
		ResourceStateNonPixelShaderResource | ResourceStatePixelShaderResource | ResourceStateCopySource
	ResourceStatePresent = ResourceStateCommon
)

func (s ResourceState) HasBits(want ResourceState) bool {
	return (s & want) == want
}

func (s ResourceState) String() string {
	if s == ResourceStateCommon {
		return "Common"
	}
	if s == ResourceStateGenericRead {
		return "GenericRead"
	}
	str := ""
	if s.HasBits(ResourceStateVertexAndConstantBuffer) {
		str += "VertexAndConstantBuffer|"
	}
	if s.HasBits(ResourceStateIndexBuffer) {
		str += "IndexBuffer|"
	}
	if s.HasBits(ResourceStateRenderTarget) {
		str += "RenderTarget|"
	}
	if s.HasBits(ResourceStateUnorderedAccess) {
		str += "UnorderedAccess|"
	}
	if s.HasBits(ResourceStateDepthWrite) {
		str += "DepthWrite|"
	}
	if s.HasBits(ResourceStateDepthRead) {
		str += "DepthRead|"
	}
	if s.HasBits(ResourceStateNonPixelShaderResource) {
		str += "NonPixelShaderResource|"
	}
	if s.HasBits(ResourceStatePixelShaderResource) {
		str += "PixelShaderResource|"
	}
	if s.HasBits(ResourceStateCopyDest) {
		str += "CopyDest|"
	}
	if s.HasBits(ResourceStateCopySource) {
		str += "CopySource|"
	}
	return strings.TrimSuffix(str, "|")
}

type ResourceDimension uint8

const (
	ResourceDimensionBuffer ResourceDimension = iota
	ResourceDimensionTexture2D
)

type ResourceFlags uint32

const (
	ResourceFlagNone               ResourceFlags = 0
	ResourceFlagAllowRenderTarget  ResourceFlags = 0x1
	ResourceFlagAllowDepthStencil  ResourceFlags = 0x2
	ResourceFlagDenyShaderResource ResourceFlags = 0x8
)

type ResourceDesc struct {
	Dimension ResourceDimension
	// Size is only used by buffers.
	Size      uint64
	Width     uint32
	Height    uint32
	ArraySize uint16
	MipLevels uint16
	Format    gputypes.TextureFormat
	Flags     ResourceFlags
}

func BufferDesc(size uint64) ResourceDesc {
	return ResourceDesc{Dimension: ResourceDimensionBuffer, Size: size}
}

func Texture2DDesc(format gputypes.TextureFormat, width, height uint32, arraySize, mipLevels uint16) ResourceDesc {
	return ResourceDesc{
		Dimension: ResourceDimensionTexture2D,
		Width:     width, Height: height,
		ArraySize: max(arraySize, 1), MipLevels: max(mipLevels, 1),
		Format: format,
	}
}

func (d ResourceDesc) SubresourceCount() int {
	if d.Dimension == ResourceDimensionBuffer {
		return 1
	}
	return int(max(d.ArraySize, 1)) * int(max(d.MipLevels, 1))
}

type Resource interface {
	Destroyer
	Name() string
	Desc() ResourceDesc
	GPUVirtualAddress() uint64
}

// UploadResource is CPU visible memory. Buffers are persistently mapped,
// textures are written one subresource at a time.
type UploadResource interface {
	Resource
	Map() ([]byte, error)
	WriteToSubresource(subresource int, data []byte, rowPitch, depthPitch int) error
}

type DescriptorHeapType uint8

const (
	DescriptorHeapTypeCBVSRVUAV DescriptorHeapType = iota
	DescriptorHeapTypeRTV
	DescriptorHeapTypeDSV
)

func (t DescriptorHeapType) String() string {
	switch t {
	case DescriptorHeapTypeCBVSRVUAV:
		return "CBVSRVUAV"
	case DescriptorHeapTypeRTV:
		return "RTV"
	case DescriptorHeapTypeDSV:
		return "DSV"
	default:
		return "Unknown"
	}
}

type CPUDescriptorHandle struct {
	Ptr uint64
}

func (h CPUDescriptorHandle) Offset(index int, increment uint64) CPUDescriptorHandle {
	return CPUDescriptorHandle{Ptr: h.Ptr + uint64(index)*increment}
}

type GPUDescriptorHandle struct {
	Ptr uint64
}

func (h GPUDescriptorHandle) Offset(index int, increment uint64) GPUDescriptorHandle {
	return GPUDescriptorHandle{Ptr: h.Ptr + uint64(index)*increment}
}

type DescriptorHeap interface {
	Destroyer
	Type() DescriptorHeapType
	Capacity() int
	ShaderVisible() bool
	CPUStart() CPUDescriptorHandle
	// GPUStart is the zero handle for heaps that are not shader visible.
	GPUStart() GPUDescriptorHandle
}

type ViewDimension uint8

const (
	ViewDimensionBuffer ViewDimension = iota
	ViewDimensionTexture2D
	ViewDimensionTextureCube
)

type ViewDesc interface {
	HeapType() DescriptorHeapType
	isViewDesc()
}

type RenderTargetViewDesc struct {
	Format gputypes.TextureFormat
}

func (RenderTargetViewDesc) HeapType() DescriptorHeapType { return DescriptorHeapTypeRTV }
func (RenderTargetViewDesc) isViewDesc()                  {}

type DepthStencilViewDesc struct {
	Format gputypes.TextureFormat
}

func (DepthStencilViewDesc) HeapType() DescriptorHeapType { return DescriptorHeapTypeDSV }
func (DepthStencilViewDesc) isViewDesc()                  {}

type ShaderResourceViewDesc struct {
	Format    gputypes.TextureFormat
	Dimension ViewDimension
	MipLevels uint16
}

func (ShaderResourceViewDesc) HeapType() DescriptorHeapType { return DescriptorHeapTypeCBVSRVUAV }
func (ShaderResourceViewDesc) isViewDesc()                  {}

type ConstantBufferViewDesc struct {
	BufferLocation uint64
	SizeInBytes    uint32
}

func (ConstantBufferViewDesc) HeapType() DescriptorHeapType { return DescriptorHeapTypeCBVSRVUAV }
func (ConstantBufferViewDesc) isViewDesc()                  {}

type UnorderedAccessViewDesc struct {
	Format    gputypes.TextureFormat
	Dimension ViewDimension
}

func (UnorderedAccessViewDesc) HeapType() DescriptorHeapType { return DescriptorHeapTypeCBVSRVUAV }
func (UnorderedAccessViewDesc) isViewDesc()                  {}

// CommandRecorder is the subset of a command list the resource core records into.
type CommandRecorder interface {
	ResourceBarrier(resource Resource, before, after ResourceState)
	CopyBufferRegion(dst Resource, dstOffset uint64, src Resource, srcOffset, numBytes uint64)
	CopyTextureRegion(dst Resource, dstSubresource int, src Resource, srcSubresource int)
}

type CommandAllocator interface {
	Destroyer
	Reset() error
}

type CommandList interface {
	CommandRecorder
	Destroyer
	Reset(allocator CommandAllocator) error
	Close() error
}

type Fence interface {
	Destroyer
	CompletedValue() uint64
	// SetEventOnCompletion returns a channel that is closed once CompletedValue() >= value.
	SetEventOnCompletion(value uint64) <-chan struct{}
}

type Queue interface {
	ExecuteCommandList(list CommandList) error
	// Signal sets fence to value once all previously submitted work has completed.
	Signal(fence Fence, value uint64) error
}

type SwapChain interface {
	Destroyer
	BufferCount() int
	CurrentBackBufferIndex() int
	BackBuffer(index int) (Resource, error)
	ResizeBuffers(count, width, height int, format gputypes.TextureFormat) error
	Present(vsync bool) error
}

// Window is provided by the platform layer.
type Window interface {
	NativeHandle() uintptr
	ClientSize() (width, height int)
}

type Device interface {
	Destroyer
	Queue() Queue
	CreateCommittedResource(name string, desc ResourceDesc, initialState ResourceState) (Resource, error)
	CreateUploadResource(name string, desc ResourceDesc) (UploadResource, error)
	CreateDescriptorHeap(heapType DescriptorHeapType, capacity int, shaderVisible bool) (DescriptorHeap, error)
	DescriptorHandleIncrementSize(heapType DescriptorHeapType) uint64
	CreateView(resource Resource, view ViewDesc, dst CPUDescriptorHandle) error
	CreateFence(initialValue uint64) (Fence, error)
	CreateCommandAllocator() (CommandAllocator, error)
	CreateCommandList(allocator CommandAllocator) (CommandList, error)
	CreateSwapChain(window Window, bufferCount int, format gputypes.TextureFormat) (SwapChain, error)
}

type Adapter interface {
	Name() string
	Software() bool
	CreateDevice() (Device, error)
}
