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
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/debug"

	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/internal/util"
	"goarrg.com/rhi/dxr/soft"
)

func cubeVertices() []vertex {
	vertices := make([]vertex, 24)
	for i := range vertices {
		face := float32(i / 4)
		vertices[i] = vertex{Position: [3]float32{face, float32(i % 4), 1}, UV: [2]float32{float32(i%2), float32(i%4/2)}}
	}
	return vertices
}

func TestReadOnlyUploadAfterEmptyFrames(t *testing.T) {
	ctx, device := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	for range 4 {
		require.NoError(t, beginFrame(t, ctx).End())
	}
	assert.Equal(t, uint64(5), ctx.Sequencer().TargetFence())

	vertices := cubeVertices()
	mesh, err := dxr.CreatePair[vertex](ctx, dxr.PairCreateInfo{Name: "cube", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: 24, ReadOnly: true})
	require.NoError(t, err)
	defer mesh.Destroy()
	require.NoError(t, mesh.Write(0, vertices))

	f := beginFrame(t, ctx)
	assert.Equal(t, uint64(5), f.TargetFence())
	assert.Equal(t, 1, ctx.Releases().Len())
	assert.Zero(t, ctx.Releases().Drain(4))
	assert.Equal(t, 1, ctx.Stats().StagingBuffersLive)
	require.NoError(t, f.End())

	stats := ctx.Stats()
	assert.Zero(t, stats.StagingBuffersLive)
	assert.Zero(t, stats.PendingReleases)
	assert.Equal(t, uint64(5), stats.FramesSubmitted)
	assert.Equal(t, uint64(1), stats.CopiesIssued)
	assert.Zero(t, stats.ValidationErrors)
	assert.True(t, errors.Is(mesh.Write(0, vertices), dxr.ErrorStagingRetired{}))

	assert.Equal(t, util.SliceBytes(vertices), localBytes(mesh.Resource(), 0))
	assert.Equal(t, uint64(1), device.Stats().BufferCopies)
}

func TestTextureUpload(t *testing.T) {
	ctx, device := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	info, err := dxr.NewTextureInfo(gputypes.TextureFormatRGBA8Unorm, 8, dxr.TextureFlagMipped)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), info.MipLevels)
	assert.Equal(t, uint64(256+64+16+4), info.MipSliceSize())

	texture, err := dxr.NewTexture(ctx, "checker", info)
	require.NoError(t, err)
	defer texture.Destroy()
	assert.Equal(t, 1, ctx.Descriptors().InUse(dxr.DescriptorPoolShaderVisible))

	data := make([]byte, info.MipSliceSize())
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, texture.Write(data, 0))
	assert.False(t, texture.Uploaded())

	require.NoError(t, beginFrame(t, ctx).End())
	assert.True(t, texture.Uploaded())
	assert.Equal(t, uint64(4), device.Stats().TextureCopies)
	assert.Equal(t, data[256:320], localBytes(texture.Resource(), 1))
	assert.Equal(t, data[336:340], localBytes(texture.Resource(), 3))

	handle, err := texture.GPUHandle()
	require.NoError(t, err)
	heap := ctx.Descriptors().Heap(dxr.DescriptorPoolShaderVisible)
	assert.Equal(t, heap.GPUStart().Offset(texture.SRV(), soft.DescriptorIncrementSize), handle)
}

func TestWindowedContext(t *testing.T) {
	window := soft.NewWindow(640, 480)
	ctx, device := newContext(t, soft.QueueModeImmediate, window)
	defer ctx.Destroy()

	inUse := ctx.Stats().DescriptorsInUse
	assert.Equal(t, dxr.DescriptorPoolSizes{RTV: 5, DSV: 1, ShaderVisible: 2}, inUse)
	w, h := ctx.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	for range 3 {
		f := beginFrame(t, ctx)
		assert.True(t, f.Presenting())
		bb, rtv := f.BackBuffer()
		require.NotNil(t, bb)
		assert.NotZero(t, rtv.Ptr)
		depth, dsv := f.DepthStencil()
		require.NotNil(t, depth)
		assert.NotZero(t, dsv.Ptr)
		require.NoError(t, f.End())
	}
	assert.Equal(t, uint64(3), device.Stats().Presents)

	window.SetClientSize(320, 240)
	require.NoError(t, ctx.Resize(window.ClientSize()))
	w, h = ctx.Size()
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)
	assert.Equal(t, inUse, ctx.Stats().DescriptorsInUse)
	gbuffer, rtvSlot, srvSlot, err := ctx.GBuffer(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(320), gbuffer.(*soft.Resource).Desc().Width)
	assert.GreaterOrEqual(t, rtvSlot, 0)
	assert.GreaterOrEqual(t, srvSlot, 0)
	_, _, _, err = ctx.GBuffer(2)
	assert.True(t, errors.Is(err, dxr.ErrorOutOfRange{}))

	require.NoError(t, ctx.Resize(0, 0))
	assert.True(t, ctx.Sleeping())
	f := beginFrame(t, ctx)
	assert.False(t, f.Presenting())
	bb, _ := f.BackBuffer()
	assert.Nil(t, bb)
	require.NoError(t, f.End())
	assert.Equal(t, uint64(3), device.Stats().Presents)

	require.NoError(t, ctx.Resize(320, 240))
	assert.False(t, ctx.Sleeping())
	require.NoError(t, beginFrame(t, ctx).End())
	assert.Equal(t, uint64(4), device.Stats().Presents)

	stats := ctx.Stats()
	assert.Zero(t, stats.ValidationErrors)
	assert.Zero(t, stats.ValidationWarnings)
}

func TestQueueDestroyWaitsForFrameFence(t *testing.T) {
	ctx, device := newContext(t, soft.QueueModeDeferred, nil)
	queue := device.CommandQueue()
	var log []string

	f := beginFrame(t, ctx)
	f.QueueDestroy(countingDestroyer{"mesh", &log})
	require.NoError(t, f.End(countingDestroyer{"material", &log}))
	assert.Empty(t, log)
	assert.Equal(t, 2, ctx.Releases().Len())

	// the GPU has not reached the frame fence, nothing may be released
	f = beginFrame(t, ctx)
	assert.Empty(t, log)
	require.NoError(t, f.End())

	queue.CompleteUpTo(1)
	f = beginFrame(t, ctx)
	assert.Equal(t, []string{"mesh", "material"}, log)
	require.NoError(t, f.End())

	releases := ctx.Releases()
	stop := runGPU(queue, time.Millisecond)
	ctx.Destroy()
	stop()
	assert.Equal(t, uint64(2), releases.Released())
}

func TestAsyncQueueBlocksOnFullRing(t *testing.T) {
	ctx, device := newContext(t, soft.QueueModeAsync, nil, func(c *dxr.Config) {
		c.MaxFramesInFlight = 2
	})
	defer ctx.Destroy()

	for range 10 {
		require.NoError(t, beginFrame(t, ctx).End())
	}
	require.NoError(t, ctx.Flush())
	stats := ctx.Stats()
	assert.Equal(t, uint64(10), stats.FramesSubmitted)
	assert.Positive(t, stats.BlockingWaits)
	assert.Equal(t, uint64(11), device.Stats().Signals)
	assert.Equal(t, uint64(11), ctx.Sequencer().CompletedFence())
}

func TestCreateDeviceFallback(t *testing.T) {
	logger := debug.NewLogger("dxr", "test")
	lost := errors.New("device lost")

	hardware := soft.NewAdapter("gpu0", soft.WithFailure(lost))
	software := soft.NewAdapter("warp", soft.WithSoftware())

	adapter, device, err := dxr.CreateDevice(logger, true, software, hardware)
	require.NoError(t, err)
	assert.Equal(t, "warp", adapter.Name())
	device.Destroy()

	_, _, err = dxr.CreateDevice(logger, false, software, hardware)
	assert.True(t, errors.Is(err, dxr.ErrorDeviceCreation{}))
	assert.ErrorContains(t, err, "gpu0")

	_, _, err = dxr.CreateDevice(logger, false, software)
	assert.True(t, errors.Is(err, dxr.ErrorDeviceCreation{}))

	_, _, err = dxr.CreateDevice(logger, true)
	assert.True(t, errors.Is(err, dxr.ErrorDeviceCreation{}))

	// only the first software adapter is tried
	broken := soft.NewAdapter("warp0", soft.WithSoftware(), soft.WithFailure(lost))
	spare := soft.NewAdapter("warp1", soft.WithSoftware())
	_, _, err = dxr.CreateDevice(logger, true, hardware, broken, spare)
	assert.True(t, errors.Is(err, dxr.ErrorDeviceCreation{}))
	assert.ErrorContains(t, err, "warp0")
	assert.Nil(t, spare.Device())

	second := soft.NewAdapter("gpu1")
	adapter, device, err = dxr.CreateDevice(logger, true, hardware, software, second)
	require.NoError(t, err)
	assert.Equal(t, "gpu1", adapter.Name())
	device.Destroy()
}

func TestNewContextErrors(t *testing.T) {
	cfg := dxr.DefaultConfig()
	cfg.DisableSoftwareFallback = true
	assert.Panics(t, func() {
		_, _ = dxr.NewContext(testPlatform{}, cfg, nil, soft.NewAdapter("warp", soft.WithSoftware()))
	})

	cfg = dxr.DefaultConfig()
	cfg.MaxFramesInFlight = 0
	_, err := dxr.NewContext(testPlatform{}, cfg, nil, soft.NewAdapter("gpu0"))
	assert.True(t, errors.Is(err, dxr.ErrorInvalidConfiguration{}))
}

func TestFrameMisuse(t *testing.T) {
	ctx, _ := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	f := beginFrame(t, ctx)
	assert.Panics(t, func() { _, _ = ctx.BeginFrame() })
	assert.True(t, errors.Is(ctx.Flush(), dxr.ErrorUnsupportedOperation{}))
	assert.True(t, errors.Is(ctx.Resize(10, 10), dxr.ErrorUnsupportedOperation{}))
	require.NoError(t, f.End())

	require.NoError(t, ctx.Flush())
	assert.Equal(t, ctx.Sequencer().TargetFence()-1, ctx.Sequencer().CompletedFence())
}

func TestBeginFrameAfterFenceTimeout(t *testing.T) {
	ctx, device := newContext(t, soft.QueueModeDeferred, nil, func(c *dxr.Config) {
		c.MaxFramesInFlight = 2
		c.FenceWaitTimeout = 20 * time.Millisecond
	})
	queue := device.CommandQueue()

	counters, err := dxr.CreatePair[uint32](ctx, dxr.PairCreateInfo{Name: "counters", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: 1})
	require.NoError(t, err)

	f := beginFrame(t, ctx)
	require.NoError(t, f.End())
	f = beginFrame(t, ctx)
	assert.True(t, errors.Is(f.End(), dxr.ErrorFenceTimeout{}))

	// slot 0 is still owned by fence 1, it must not be reopened
	require.NoError(t, counters.WriteValue(0, 7))
	_, err = ctx.BeginFrame()
	assert.True(t, errors.Is(err, dxr.ErrorFenceTimeout{}))
	assert.Equal(t, dxr.SequencerStateWaiting, ctx.Sequencer().State())
	assert.True(t, counters.Dirty())
	assert.True(t, errors.Is(ctx.Flush(), dxr.ErrorFenceTimeout{}))

	queue.CompleteUpTo(1)
	f = beginFrame(t, ctx)
	assert.Equal(t, 0, f.Index())
	assert.Equal(t, uint64(3), f.TargetFence())
	assert.False(t, counters.Dirty())

	stop := runGPU(queue, time.Millisecond)
	defer stop()
	require.NoError(t, f.End())
	require.NoError(t, ctx.Flush())
	counters.Destroy()
	ctx.Destroy()
}

func TestEndReleasesFrameOnSubmitFailure(t *testing.T) {
	ctx, _ := newContext(t, soft.QueueModeImmediate, nil)
	defer ctx.Destroy()

	f := beginFrame(t, ctx)
	require.NoError(t, f.CommandList().Close())
	require.Error(t, f.End())
	assert.Panics(t, func() { f.Index() })
	assert.Zero(t, ctx.Stats().FramesSubmitted)

	f = beginFrame(t, ctx)
	assert.Equal(t, uint64(1), f.TargetFence())
	require.NoError(t, f.End())
	assert.Equal(t, uint64(1), ctx.Stats().FramesSubmitted)
}
