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

type PairCreateInfo struct {
	Name string
	Kind BufferKind
	// Count is the number of elements of a buffer pair, ignored for textures.
	Count uint64
	// Texture is required for BufferKindTexture and must be nil otherwise.
	Texture *TextureInfo
	// ReadOnly pairs retire their staging buffer after the first flush.
	ReadOnly bool
}

/*
ManagedResource is a CPU staging buffer paired with a GPU local resource of
the same logical size. Writes land in the staging buffer and mark the pair
dirty, the next UpdateBroadcaster.RunAll records the copy into the local
resource.
*/
type ManagedResource[T any] struct {
	noCopy   util.NoCopy
	ctx      *Context
	name     string
	kind     BufferKind
	readOnly bool
	dirty    bool
	count    uint64
	stride   uint64
	texture  TextureInfo
	staging  *StagingBuffer
	local    Resource
	state    ResourceState
	token    BroadcastToken
}

var _ interface {
	Flusher
	Destroyer
} = (*ManagedResource[byte])(nil)

func (info PairCreateInfo) validate(elementSize uint64) error {
	switch info.Kind {
	case BufferKindConstantBuffer, BufferKindVertexOrIndexBuffer:
		if info.Texture != nil {
			return ErrorInvalidConfiguration{Reason: fmt.Sprintf("%q: TextureInfo given for a %s pair", info.Name, info.Kind)}
		}
		if info.Count == 0 {
			return ErrorInvalidConfiguration{Reason: fmt.Sprintf("%q: element count must be > 0", info.Name)}
		}
		if elementSize == 0 {
			return ErrorInvalidConfiguration{Reason: fmt.Sprintf("%q: element type has zero size", info.Name)}
		}
	case BufferKindTexture:
		if info.Texture == nil {
			return ErrorInvalidConfiguration{Reason: fmt.Sprintf("%q: texture pairs require a TextureInfo", info.Name)}
		}
		if elementSize != 1 {
			return ErrorInvalidConfiguration{Reason: fmt.Sprintf("%q: texture pairs must use a byte element type", info.Name)}
		}
	default:
		return ErrorInvalidConfiguration{Reason: fmt.Sprintf("%q: unknown buffer kind %d", info.Name, info.Kind)}
	}
	return nil
}

func CreatePair[T any](ctx *Context, info PairCreateInfo) (*ManagedResource[T], error) {
	ctx.noCopy.Check()
	if err := info.validate(util.SizeOf[T]()); err != nil {
		return nil, err
	}

	r := ManagedResource[T]{ctx: ctx, name: info.Name, kind: info.Kind, readOnly: info.ReadOnly, state: ResourceStateCommon}
	var desc ResourceDesc
	var err error

	if info.Kind == BufferKindTexture {
		r.texture = *info.Texture
		r.staging, err = ctx.NewTextureStagingBuffer(info.Name+"_staging", r.texture)
		if err != nil {
			return nil, err
		}
		desc = r.texture.Desc()
	} else {
		r.staging, err = ctx.NewStagingBuffer(info.Name+"_staging", info.Kind, util.SizeOf[T](), info.Count)
		if err != nil {
			return nil, err
		}
		desc = BufferDesc(r.staging.Size())
	}
	r.count = r.staging.Count()
	r.stride = r.staging.Stride()

	r.local, err = ctx.device.CreateCommittedResource(info.Name, desc, r.state)
	if err != nil {
		r.staging.Destroy()
		return nil, debug.ErrorWrapf(err, "Failed to create GPU local resource %q", info.Name)
	}

	r.noCopy.Init()
	r.token = ctx.broadcaster.Register(&r)
	ctx.logger.VPrintf("Created pair %s token: %d", genID(info.Name, info.Kind), r.token)
	return &r, nil
}

func (r *ManagedResource[T]) writeCheck(op string, texture bool) error {
	r.noCopy.Check()
	if r.staging == nil {
		return ErrorStagingRetired{Name: r.name}
	}
	if texture != (r.kind == BufferKindTexture) {
		return ErrorUnsupportedOperation{Op: op, Reason: fmt.Sprintf("%q is a %s pair", r.name, r.kind)}
	}
	return nil
}

func (r *ManagedResource[T]) Write(destIndex int, data []T) error {
	return r.WriteRange(destIndex, data, 0, len(data))
}

// WriteRange copies data[srcOffset:srcOffset+srcCount] to the elements starting at destIndex.
func (r *ManagedResource[T]) WriteRange(destIndex int, data []T, srcOffset, srcCount int) error {
	if err := r.writeCheck("Write", false); err != nil {
		return err
	}
	if srcOffset < 0 || srcCount < 0 || srcOffset+srcCount > len(data) {
		return ErrorOutOfRange{What: "source element", Index: srcOffset + srcCount - 1, Limit: len(data)}
	}
	if err := StagingWrite(r.staging, destIndex, data[srcOffset:srcOffset+srcCount]); err != nil {
		return err
	}
	r.dirty = true
	return nil
}

func (r *ManagedResource[T]) WriteValue(destIndex int, v T) error {
	return r.Write(destIndex, []T{v})
}

// WriteTexture writes every mip level of one array slice, data holds mip 0
// first and must be exactly TextureInfo.MipSliceSize bytes.
func (r *ManagedResource[T]) WriteTexture(data []byte, slice int) error {
	if err := r.writeCheck("WriteTexture", true); err != nil {
		return err
	}
	if slice < 0 || slice >= int(r.texture.Slices) {
		return ErrorOutOfRange{What: "texture slice", Index: slice, Limit: int(r.texture.Slices)}
	}
	if uint64(len(data)) != r.texture.MipSliceSize() {
		return ErrorInvalidConfiguration{Reason: fmt.Sprintf("%q: slice data must be %d bytes, got %d", r.name, r.texture.MipSliceSize(), len(data))}
	}
	offset := uint64(0)
	for m := 0; m < int(r.texture.MipLevels); m++ {
		size := r.texture.MipSize(m)
		if err := r.staging.WriteSubresource(slice, m, data[offset:offset+size]); err != nil {
			return err
		}
		offset += size
	}
	r.dirty = true
	return nil
}

/*
FlushIfDirty records the staging to local copy into rec if the pair has been
written since the last flush and reports whether it did. A read-only pair
unregisters itself and hands its staging buffer to the delayed release queue
tagged with targetFence.
*/
func (r *ManagedResource[T]) FlushIfDirty(rec CommandRecorder, targetFence uint64) bool {
	r.noCopy.Check()
	if !r.dirty || r.staging == nil {
		return false
	}

	rec.ResourceBarrier(r.local, r.state, ResourceStateCopyDest)
	if r.kind == BufferKindTexture {
		for s := 0; s < int(r.texture.Slices); s++ {
			for m := 0; m < int(r.texture.MipLevels); m++ {
				sub := r.texture.Subresource(s, m)
				rec.CopyTextureRegion(r.local, sub, r.staging.Resource(), sub)
			}
		}
	} else {
		rec.CopyBufferRegion(r.local, 0, r.staging.Resource(), 0, r.staging.Size())
	}
	rec.ResourceBarrier(r.local, ResourceStateCopyDest, r.state)
	r.dirty = false
	r.ctx.stats.copiesIssued++

	if r.readOnly {
		r.ctx.broadcaster.Unregister(r.token)
		r.token = 0
		r.ctx.releases.Enqueue(targetFence, r.staging)
		r.staging = nil
		r.ctx.logger.VPrintf("Retired staging buffer of %q at fence %d", r.name, targetFence)
	}
	return true
}

func (r *ManagedResource[T]) Name() string {
	r.noCopy.Check()
	return r.name
}

func (r *ManagedResource[T]) Kind() BufferKind {
	r.noCopy.Check()
	return r.kind
}

func (r *ManagedResource[T]) ReadOnly() bool {
	r.noCopy.Check()
	return r.readOnly
}

func (r *ManagedResource[T]) Dirty() bool {
	r.noCopy.Check()
	return r.dirty
}

// Retired reports whether the staging buffer has been handed off for release.
func (r *ManagedResource[T]) Retired() bool {
	r.noCopy.Check()
	return r.staging == nil
}

func (r *ManagedResource[T]) Count() uint64 {
	r.noCopy.Check()
	return r.count
}

func (r *ManagedResource[T]) Stride() uint64 {
	r.noCopy.Check()
	return r.stride
}

func (r *ManagedResource[T]) Texture() TextureInfo {
	r.noCopy.Check()
	return r.texture
}

func (r *ManagedResource[T]) Resource() Resource {
	r.noCopy.Check()
	return r.local
}

// Staging returns nil once a read-only pair has been flushed.
func (r *ManagedResource[T]) Staging() *StagingBuffer {
	r.noCopy.Check()
	return r.staging
}

func (r *ManagedResource[T]) GPUAddress(index int) uint64 {
	r.noCopy.Check()
	return r.local.GPUVirtualAddress() + uint64(index)*r.stride
}

/*
Destroy releases both halves immediately, the caller must ensure the GPU is
done with them, usually by passing the pair to Frame.QueueDestroy.
*/
func (r *ManagedResource[T]) Destroy() {
	r.noCopy.Check()
	if r.token != 0 {
		r.ctx.broadcaster.Unregister(r.token)
		r.token = 0
	}
	if r.staging != nil {
		r.staging.Destroy()
		r.staging = nil
	}
	r.local.Destroy()
	r.noCopy.Close()
}
