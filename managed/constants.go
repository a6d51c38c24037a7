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

package managed

import (
	"fmt"

	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/internal/util"
)

/*
ObjectConstants holds itemsPerFrame constant buffer elements for every frame
slot in upload memory, the GPU reads them in place. Writing an item only
touches the region of the frame being recorded.
*/
type ObjectConstants[T any] struct {
	noCopy        util.NoCopy
	staging       *dxr.StagingBuffer
	itemsPerFrame int
}

var _ dxr.Destroyer = (*ObjectConstants[byte])(nil)

func NewObjectConstants[T any](ctx *dxr.Context, name string, itemsPerFrame int) (*ObjectConstants[T], error) {
	if itemsPerFrame <= 0 {
		return nil, dxr.ErrorInvalidConfiguration{Reason: fmt.Sprintf("%q: items per frame must be > 0, got %d", name, itemsPerFrame)}
	}
	count := uint64(itemsPerFrame * ctx.FramesInFlight())
	staging, err := ctx.NewStagingBuffer(name, dxr.BufferKindConstantBuffer, util.SizeOf[T](), count)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create object constants %q", name)
	}
	ret := ObjectConstants[T]{staging: staging, itemsPerFrame: itemsPerFrame}
	ret.noCopy.Init()
	return &ret, nil
}

func (c *ObjectConstants[T]) ItemsPerFrame() int {
	c.noCopy.Check()
	return c.itemsPerFrame
}

func (c *ObjectConstants[T]) index(f *dxr.Frame, item int) (int, error) {
	if item < 0 || item >= c.itemsPerFrame {
		return -1, dxr.ErrorOutOfRange{What: "object constants item", Index: item, Limit: c.itemsPerFrame}
	}
	return f.Index()*c.itemsPerFrame + item, nil
}

func (c *ObjectConstants[T]) Write(f *dxr.Frame, item int, v T) error {
	c.noCopy.Check()
	i, err := c.index(f, item)
	if err != nil {
		return err
	}
	return dxr.StagingWrite(c.staging, i, []T{v})
}

// GPUAddress is the constant buffer view location of item for f, it is 0 when item is out of range.
func (c *ObjectConstants[T]) GPUAddress(f *dxr.Frame, item int) uint64 {
	c.noCopy.Check()
	i, err := c.index(f, item)
	if err != nil {
		return 0
	}
	return c.staging.GPUAddress(i)
}

// Stride is the distance between consecutive items.
func (c *ObjectConstants[T]) Stride() uint64 {
	c.noCopy.Check()
	return c.staging.Stride()
}

// Destroy frees the upload memory immediately, pass it to Frame.QueueDestroy while frames are in flight.
func (c *ObjectConstants[T]) Destroy() {
	c.noCopy.Check()
	c.staging.Destroy()
	c.noCopy.Close()
}
