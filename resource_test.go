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
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/soft"
)

type objectConstants struct {
	ID  uint32
	Pad [15]uint32
}

type vertex struct {
	Position [3]float32
	UV       [2]float32
}

func localBytes(r dxr.Resource, sub int) []byte {
	return r.(*soft.Resource).Bytes(sub)
}

func TestConstantBufferElementsAreAligned(t *testing.T) {
	ctx, _ := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	pair, err := dxr.CreatePair[objectConstants](ctx, dxr.PairCreateInfo{Name: "objects", Kind: dxr.BufferKindConstantBuffer, Count: 4})
	require.NoError(t, err)
	defer pair.Destroy()

	assert.Equal(t, uint64(256), pair.Stride())
	assert.Equal(t, uint64(4*256), pair.Staging().Size())
	for i := 1; i < 4; i++ {
		assert.Equal(t, uint64(256), pair.GPUAddress(i)-pair.GPUAddress(i-1))
		assert.Zero(t, pair.Staging().GPUAddress(i)%256)
	}

	for i := range 4 {
		require.NoError(t, pair.WriteValue(i, objectConstants{ID: uint32(i + 1)}))
	}
	f := beginFrame(t, ctx)
	require.NoError(t, f.End())

	local := localBytes(pair.Resource(), 0)
	require.Len(t, local, 4*256)
	for i := range 4 {
		assert.Equal(t, uint32(i+1), binary.LittleEndian.Uint32(local[i*256:]))
		assert.Equal(t, make([]byte, 256-64), local[i*256+64:(i+1)*256])
	}
}

func TestWritesCoalesceIntoOneCopy(t *testing.T) {
	ctx, device := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	pair, err := dxr.CreatePair[vertex](ctx, dxr.PairCreateInfo{Name: "dynamic", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: 8})
	require.NoError(t, err)
	defer pair.Destroy()
	assert.Equal(t, uint64(20), pair.Stride())
	assert.False(t, pair.Dirty())

	for i := range 5 {
		require.NoError(t, pair.WriteValue(i, vertex{Position: [3]float32{float32(i), 0, 0}}))
	}
	for _, x := range []float32{10, 20, 30} {
		require.NoError(t, pair.WriteValue(0, vertex{Position: [3]float32{x, 1, 2}, UV: [2]float32{x, x}}))
	}
	assert.True(t, pair.Dirty())

	f := beginFrame(t, ctx)
	assert.Equal(t, 3, f.CommandList().(*soft.CommandList).Len())
	assert.False(t, pair.Dirty())
	assert.Zero(t, f.FlushUploads())
	require.NoError(t, f.End())

	f = beginFrame(t, ctx)
	assert.Zero(t, f.CommandList().(*soft.CommandList).Len())
	require.NoError(t, f.End())

	assert.Equal(t, uint64(1), ctx.Stats().CopiesIssued)
	assert.Equal(t, uint64(1), device.Stats().BufferCopies)
	assert.Equal(t, dxr.ResourceStateCommon, pair.Resource().(*soft.Resource).State())

	local := localBytes(pair.Resource(), 0)
	require.GreaterOrEqual(t, len(local), 8*20)
	got := func(i, field int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(local[i*20+field*4:]))
	}
	// index 0 holds the last of its writes
	assert.Equal(t, []float32{30, 1, 2, 30, 30}, []float32{got(0, 0), got(0, 1), got(0, 2), got(0, 3), got(0, 4)})
	for i := 1; i < 5; i++ {
		assert.Equal(t, float32(i), got(i, 0))
	}
	assert.Equal(t, make([]byte, len(local)-5*20), local[5*20:])
}

func TestWriteDuringFrameNeedsFlush(t *testing.T) {
	ctx, _ := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	pair, err := dxr.CreatePair[uint32](ctx, dxr.PairCreateInfo{Name: "counters", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: 2})
	require.NoError(t, err)
	defer pair.Destroy()

	f := beginFrame(t, ctx)
	require.NoError(t, pair.Write(0, []uint32{7, 9}))
	assert.Equal(t, 1, f.FlushUploads())
	require.NoError(t, f.End())

	local := localBytes(pair.Resource(), 0)
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(local[0:]))
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(local[4:]))
}

func TestReadOnlyPairRetiresStaging(t *testing.T) {
	ctx, _ := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	pair, err := dxr.CreatePair[uint16](ctx, dxr.PairCreateInfo{Name: "indices", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: 6, ReadOnly: true})
	require.NoError(t, err)
	defer pair.Destroy()
	require.NoError(t, pair.Write(0, []uint16{0, 1, 2, 2, 3, 0}))
	assert.Equal(t, 1, ctx.Stats().StagingBuffersLive)

	f := beginFrame(t, ctx)
	assert.True(t, pair.Retired())
	assert.Nil(t, pair.Staging())
	assert.Equal(t, 1, ctx.Releases().Len())
	assert.Zero(t, ctx.Broadcaster().Len())

	err = pair.Write(0, []uint16{5})
	assert.True(t, errors.Is(err, dxr.ErrorStagingRetired{}))
	assert.True(t, errors.Is(err, dxr.ErrorUnsupportedOperation{}))
	require.NoError(t, f.End())

	assert.Zero(t, ctx.Releases().Len())
	assert.Zero(t, ctx.Stats().StagingBuffersLive)
	local := localBytes(pair.Resource(), 0)
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(local[8:]))
}

func TestPairWriteErrors(t *testing.T) {
	ctx, _ := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	buffer, err := dxr.CreatePair[uint32](ctx, dxr.PairCreateInfo{Name: "buffer", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: 4})
	require.NoError(t, err)
	defer buffer.Destroy()

	assert.True(t, errors.Is(buffer.Write(3, []uint32{1, 2}), dxr.ErrorOutOfRange{}))
	assert.True(t, errors.Is(buffer.Write(-1, []uint32{1}), dxr.ErrorOutOfRange{}))
	assert.True(t, errors.Is(buffer.WriteRange(0, []uint32{1, 2}, 1, 2), dxr.ErrorOutOfRange{}))
	assert.True(t, errors.Is(buffer.WriteTexture(make([]byte, 4), 0), dxr.ErrorUnsupportedOperation{}))
	assert.False(t, buffer.Dirty())

	require.NoError(t, buffer.WriteRange(2, []uint32{1, 2, 3}, 1, 2))
	assert.True(t, buffer.Dirty())

	info, err := dxr.NewTextureInfo(gputypes.TextureFormatR8Unorm, 4, dxr.TextureFlagNone)
	require.NoError(t, err)
	texture, err := dxr.CreatePair[byte](ctx, dxr.PairCreateInfo{Name: "texture", Kind: dxr.BufferKindTexture, Texture: &info})
	require.NoError(t, err)
	defer texture.Destroy()

	assert.True(t, errors.Is(texture.Write(0, []byte{1}), dxr.ErrorUnsupportedOperation{}))
	assert.True(t, errors.Is(texture.WriteTexture(make([]byte, 15), 0), dxr.ErrorInvalidConfiguration{}))
	assert.True(t, errors.Is(texture.WriteTexture(make([]byte, 16), 1), dxr.ErrorOutOfRange{}))
	require.NoError(t, texture.WriteTexture(make([]byte, 16), 0))
}

func TestCreatePairValidation(t *testing.T) {
	ctx, _ := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	info, err := dxr.NewTextureInfo(gputypes.TextureFormatRGBA8Unorm, 4, dxr.TextureFlagNone)
	require.NoError(t, err)

	for name, create := range map[string]func() error{
		"zero count": func() error {
			_, err := dxr.CreatePair[uint32](ctx, dxr.PairCreateInfo{Name: "a", Kind: dxr.BufferKindConstantBuffer})
			return err
		},
		"buffer with texture": func() error {
			_, err := dxr.CreatePair[uint32](ctx, dxr.PairCreateInfo{Name: "b", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: 1, Texture: &info})
			return err
		},
		"texture without info": func() error {
			_, err := dxr.CreatePair[byte](ctx, dxr.PairCreateInfo{Name: "c", Kind: dxr.BufferKindTexture})
			return err
		},
		"texture of words": func() error {
			_, err := dxr.CreatePair[uint32](ctx, dxr.PairCreateInfo{Name: "d", Kind: dxr.BufferKindTexture, Texture: &info})
			return err
		},
		"empty element": func() error {
			_, err := dxr.CreatePair[struct{}](ctx, dxr.PairCreateInfo{Name: "e", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: 1})
			return err
		},
		"unknown kind": func() error {
			_, err := dxr.CreatePair[uint32](ctx, dxr.PairCreateInfo{Name: "f", Kind: dxr.BufferKind(9), Count: 1})
			return err
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errors.Is(create(), dxr.ErrorInvalidConfiguration{}))
		})
	}
	assert.Zero(t, ctx.Broadcaster().Len())
	assert.Zero(t, ctx.Stats().StagingBuffersLive)
}

func TestStagingBuffer(t *testing.T) {
	ctx, _ := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	b, err := ctx.NewStagingBuffer("ui", dxr.BufferKindConstantBuffer, 16, 3)
	require.NoError(t, err)
	defer b.Destroy()
	assert.Equal(t, uint64(256), b.Stride())
	assert.Equal(t, uint64(768), b.Size())

	require.NoError(t, dxr.StagingWrite(b, 1, [][4]float32{{1, 2, 3, 4}}))
	assert.True(t, errors.Is(dxr.StagingWrite(b, 0, []uint32{1}), dxr.ErrorInvalidConfiguration{}))
	assert.True(t, errors.Is(dxr.StagingWrite(b, 3, [][4]float32{{}}), dxr.ErrorOutOfRange{}))
	assert.True(t, errors.Is(b.WriteSubresource(0, 0, nil), dxr.ErrorUnsupportedOperation{}))

	_, err = ctx.NewStagingBuffer("bad", dxr.BufferKindTexture, 4, 1)
	assert.True(t, errors.Is(err, dxr.ErrorInvalidConfiguration{}))
	_, err = ctx.NewStagingBuffer("empty", dxr.BufferKindVertexOrIndexBuffer, 4, 0)
	assert.True(t, errors.Is(err, dxr.ErrorInvalidConfiguration{}))
}
