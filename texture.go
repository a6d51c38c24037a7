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
	"math/bits"

	"github.com/docker/go-units"
	"github.com/gogpu/gputypes"
	"goarrg.com/gmath"
	"goarrg.com/rhi/dxr/internal/util"
)

const MaxTextureWidth = 16384

// FormatPixelSize returns the size in bytes of a single texel of an uncompressed format.
func FormatPixelSize(format gputypes.TextureFormat) (int, error) {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1, nil
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatR32Float, gputypes.TextureFormatDepth24PlusStencil8:
		return 4, nil
	case gputypes.TextureFormatRGBA32Float:
		return 16, nil
	default:
		return 0, ErrorInvalidConfiguration{Reason: fmt.Sprintf("Unsupported texture format: %v", format)}
	}
}

type TextureFlags uint8

const (
	TextureFlagNone    TextureFlags = 0
	TextureFlagMipped  TextureFlags = 0x1
	TextureFlagCubemap TextureFlags = 0x2
)

/*
TextureInfo describes a square power of two texture, optionally with a full
mip chain and optionally a cubemap. Every array slice holds the complete mip
chain, mip 0 first, tightly packed.
*/
type TextureInfo struct {
	Format    gputypes.TextureFormat
	Width     uint32
	MipLevels uint16
	Slices    uint16
	PixelSize int
}

func NewTextureInfo(format gputypes.TextureFormat, width uint32, flags TextureFlags) (TextureInfo, error) {
	if !gmath.InRange(width, 1, MaxTextureWidth) || !util.IsPowerOfTwo(width) {
		return TextureInfo{}, ErrorInvalidConfiguration{Reason: fmt.Sprintf("Texture width must be a power of two within [1, %d], got %d", MaxTextureWidth, width)}
	}
	pixelSize, err := FormatPixelSize(format)
	if err != nil {
		return TextureInfo{}, err
	}
	info := TextureInfo{Format: format, Width: width, MipLevels: 1, Slices: 1, PixelSize: pixelSize}
	if flags&TextureFlagMipped != 0 {
		info.MipLevels = uint16(bits.TrailingZeros32(width)) + 1
	}
	if flags&TextureFlagCubemap != 0 {
		info.Slices = 6
	}
	return info, nil
}

func (t TextureInfo) Mipped() bool {
	return t.MipLevels > 1
}

func (t TextureInfo) Cubemap() bool {
	return t.Slices == 6
}

func (t TextureInfo) MipWidth(mip int) uint32 {
	return max(t.Width>>mip, 1)
}

func (t TextureInfo) MipSize(mip int) uint64 {
	w := uint64(t.MipWidth(mip))
	return w * w * uint64(t.PixelSize)
}

// MipSliceSize is the size of one array slice including every mip level.
func (t TextureInfo) MipSliceSize() uint64 {
	size := uint64(0)
	for m := 0; m < int(t.MipLevels); m++ {
		size += t.MipSize(m)
	}
	return size
}

func (t TextureInfo) TotalSize() uint64 {
	return t.MipSliceSize() * uint64(t.Slices)
}

func (t TextureInfo) Subresource(slice, mip int) int {
	return slice*int(t.MipLevels) + mip
}

func (t TextureInfo) RowPitch(mip int) int {
	return int(t.MipWidth(mip)) * t.PixelSize
}

func (t TextureInfo) DepthPitch(mip int) int {
	return int(t.MipWidth(mip)) * t.RowPitch(mip)
}

func (t TextureInfo) Desc() ResourceDesc {
	return Texture2DDesc(t.Format, t.Width, t.Width, t.Slices, t.MipLevels)
}

func (t TextureInfo) ViewDesc() ShaderResourceViewDesc {
	d := ShaderResourceViewDesc{Format: t.Format, Dimension: ViewDimensionTexture2D, MipLevels: t.MipLevels}
	if t.Cubemap() {
		d.Dimension = ViewDimensionTextureCube
	}
	return d
}

func (t TextureInfo) String() string {
	return fmt.Sprintf("{Format: %v, Width: %d, MipLevels: %d, Slices: %d, Size: %s}",
		t.Format, t.Width, t.MipLevels, t.Slices, units.BytesSize(float64(t.TotalSize())))
}

/*
Texture is a read-only texture pair with a shader resource view in the shader
visible pool. It is uploaded on the first frame after it has been written.
*/
type Texture struct {
	noCopy util.NoCopy
	ctx    *Context
	pair   *ManagedResource[byte]
	srv    int
}

func NewTexture(ctx *Context, name string, info TextureInfo) (*Texture, error) {
	pair, err := CreatePair[byte](ctx, PairCreateInfo{Name: name, Kind: BufferKindTexture, Texture: &info, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	srv, err := ctx.descriptors.Allocate(DescriptorPoolShaderVisible, pair.Resource(), info.ViewDesc())
	if err != nil {
		pair.Destroy()
		return nil, err
	}
	t := Texture{ctx: ctx, pair: pair, srv: srv}
	t.noCopy.Init()
	return &t, nil
}

func (t *Texture) Write(data []byte, slice int) error {
	t.noCopy.Check()
	return t.pair.WriteTexture(data, slice)
}

func (t *Texture) Info() TextureInfo {
	t.noCopy.Check()
	return t.pair.Texture()
}

func (t *Texture) Resource() Resource {
	t.noCopy.Check()
	return t.pair.Resource()
}

// Uploaded reports whether the texture has been flushed to the GPU local copy.
func (t *Texture) Uploaded() bool {
	t.noCopy.Check()
	return t.pair.Retired()
}

func (t *Texture) SRV() int {
	t.noCopy.Check()
	return t.srv
}

func (t *Texture) GPUHandle() (GPUDescriptorHandle, error) {
	t.noCopy.Check()
	return t.ctx.descriptors.GPUHandle(DescriptorPoolShaderVisible, t.srv)
}

// Destroy releases the view and the pair immediately, use Frame.QueueDestroy while the GPU may still sample it.
func (t *Texture) Destroy() {
	t.noCopy.Check()
	if err := t.ctx.descriptors.Release(DescriptorPoolShaderVisible, t.srv); err != nil {
		t.ctx.logger.WPrintf("Failed to release texture view: %v", err)
	}
	t.pair.Destroy()
	t.noCopy.Close()
}
