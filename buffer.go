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

type BufferKind uint8

const (
	BufferKindConstantBuffer BufferKind = iota
	BufferKindVertexOrIndexBuffer
	BufferKindTexture
)

func (k BufferKind) String() string {
	switch k {
	case BufferKindConstantBuffer:
		return "ConstantBuffer"
	case BufferKindVertexOrIndexBuffer:
		return "VertexOrIndexBuffer"
	case BufferKindTexture:
		return "Texture"
	default:
		return fmt.Sprintf("BufferKind(%d)", uint8(k))
	}
}

/*
StagingBuffer is CPU visible upload memory. Constant buffer elements are
placed at a stride rounded up to the constant buffer alignment, every other
buffer kind is tightly packed.
*/
type StagingBuffer struct {
	noCopy      util.NoCopy
	ctx         *Context
	name        string
	kind        BufferKind
	elementSize uint64
	stride      uint64
	count       uint64
	size        uint64
	texture     TextureInfo
	resource    UploadResource
	mapped      []byte
}

var _ Destroyer = (*StagingBuffer)(nil)

func (c *Context) NewStagingBuffer(name string, kind BufferKind, elementSize, count uint64) (*StagingBuffer, error) {
	c.noCopy.Check()
	switch kind {
	case BufferKindConstantBuffer, BufferKindVertexOrIndexBuffer:
	case BufferKindTexture:
		return nil, ErrorInvalidConfiguration{Reason: "texture staging buffers must be created with NewTextureStagingBuffer"}
	default:
		return nil, ErrorInvalidConfiguration{Reason: fmt.Sprintf("unknown buffer kind %d", kind)}
	}
	if elementSize == 0 {
		return nil, ErrorInvalidConfiguration{Reason: "element size must be > 0"}
	}
	if count == 0 {
		return nil, ErrorInvalidConfiguration{Reason: "element count must be > 0"}
	}

	b := StagingBuffer{ctx: c, name: name, kind: kind, elementSize: elementSize, stride: elementSize, count: count}
	if kind == BufferKindConstantBuffer {
		b.stride = util.AlignUp(elementSize, c.config.constantBufferAlignment)
	}
	b.size = b.stride * count

	resource, err := c.device.CreateUploadResource(name, BufferDesc(b.size))
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create StagingBuffer %q", name)
	}
	mapped, err := resource.Map()
	if err != nil {
		resource.Destroy()
		return nil, debug.ErrorWrapf(err, "Failed to map StagingBuffer %q", name)
	}
	b.resource = resource
	b.mapped = mapped
	b.noCopy.Init()
	c.stats.stagingBuffersLive++
	c.stats.stagingBytesLive += b.size
	c.logger.VPrintf("Created StagingBuffer %s", genID(name, kind, b.stride, b.size))
	return &b, nil
}

func (c *Context) NewTextureStagingBuffer(name string, info TextureInfo) (*StagingBuffer, error) {
	c.noCopy.Check()
	if info.PixelSize == 0 || info.Width == 0 {
		return nil, ErrorInvalidConfiguration{Reason: "TextureInfo must be created with NewTextureInfo"}
	}
	b := StagingBuffer{
		ctx: c, name: name, kind: BufferKindTexture,
		elementSize: uint64(info.PixelSize), stride: uint64(info.PixelSize),
		count: info.TotalSize() / uint64(info.PixelSize), size: info.TotalSize(),
		texture: info,
	}
	resource, err := c.device.CreateUploadResource(name, info.Desc())
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create texture StagingBuffer %q", name)
	}
	b.resource = resource
	b.noCopy.Init()
	c.stats.stagingBuffersLive++
	c.stats.stagingBytesLive += b.size
	c.logger.VPrintf("Created StagingBuffer %s %s", genID(name, b.kind), info)
	return &b, nil
}

func (b *StagingBuffer) write(destIndex int, elementSize uint64, data []byte) error {
	b.noCopy.Check()
	if b.kind == BufferKindTexture {
		return ErrorUnsupportedOperation{Op: "Write", Reason: "texture staging buffers are written per subresource"}
	}
	if elementSize != b.elementSize {
		return ErrorInvalidConfiguration{Reason: fmt.Sprintf("element size %d does not match StagingBuffer %q element size %d", elementSize, b.name, b.elementSize)}
	}
	n := uint64(len(data)) / elementSize
	if destIndex < 0 || uint64(destIndex)+n > b.count {
		return ErrorOutOfRange{What: fmt.Sprintf("StagingBuffer %q element", b.name), Index: destIndex + int(n) - 1, Limit: int(b.count)}
	}

	if b.kind == BufferKindConstantBuffer {
		for i := uint64(0); i < n; i++ {
			dst := (uint64(destIndex) + i) * b.stride
			copy(b.mapped[dst:dst+elementSize], data[i*elementSize:(i+1)*elementSize])
		}
	} else {
		copy(b.mapped[uint64(destIndex)*b.stride:], data[:n*elementSize])
	}
	return nil
}

// StagingWrite copies data into b starting at element destIndex.
func StagingWrite[T any](b *StagingBuffer, destIndex int, data []T) error {
	return b.write(destIndex, util.SizeOf[T](), util.SliceBytes(data))
}

// WriteSubresource writes one tightly packed mip level of one array slice.
func (b *StagingBuffer) WriteSubresource(slice, mip int, data []byte) error {
	b.noCopy.Check()
	if b.kind != BufferKindTexture {
		return ErrorUnsupportedOperation{Op: "WriteSubresource", Reason: fmt.Sprintf("StagingBuffer %q is a %s", b.name, b.kind)}
	}
	if slice < 0 || slice >= int(b.texture.Slices) {
		return ErrorOutOfRange{What: "texture slice", Index: slice, Limit: int(b.texture.Slices)}
	}
	if mip < 0 || mip >= int(b.texture.MipLevels) {
		return ErrorOutOfRange{What: "texture mip", Index: mip, Limit: int(b.texture.MipLevels)}
	}
	if uint64(len(data)) != b.texture.MipSize(mip) {
		return ErrorInvalidConfiguration{Reason: fmt.Sprintf("mip %d expects %d bytes, got %d", mip, b.texture.MipSize(mip), len(data))}
	}
	err := b.resource.WriteToSubresource(b.texture.Subresource(slice, mip), data, b.texture.RowPitch(mip), b.texture.DepthPitch(mip))
	if err != nil {
		return debug.ErrorWrapf(err, "Failed to write subresource [%d, %d] of %q", slice, mip, b.name)
	}
	return nil
}

func (b *StagingBuffer) Name() string {
	b.noCopy.Check()
	return b.name
}

func (b *StagingBuffer) Kind() BufferKind {
	b.noCopy.Check()
	return b.kind
}

// Stride is the distance in bytes between consecutive elements.
func (b *StagingBuffer) Stride() uint64 {
	b.noCopy.Check()
	return b.stride
}

func (b *StagingBuffer) Count() uint64 {
	b.noCopy.Check()
	return b.count
}

func (b *StagingBuffer) Size() uint64 {
	b.noCopy.Check()
	return b.size
}

func (b *StagingBuffer) Texture() TextureInfo {
	b.noCopy.Check()
	return b.texture
}

func (b *StagingBuffer) Resource() UploadResource {
	b.noCopy.Check()
	return b.resource
}

func (b *StagingBuffer) GPUAddress(index int) uint64 {
	b.noCopy.Check()
	return b.resource.GPUVirtualAddress() + uint64(index)*b.stride
}

func (b *StagingBuffer) Destroy() {
	b.noCopy.Check()
	b.resource.Destroy()
	b.mapped = nil
	b.ctx.stats.stagingBuffersLive--
	b.ctx.stats.stagingBytesLive -= b.size
	b.ctx.logger.VPrintf("Destroyed StagingBuffer %q", b.name)
	b.noCopy.Close()
}
