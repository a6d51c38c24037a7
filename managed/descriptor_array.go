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

	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/internal/util"
)

/*
ViewArray dedupes views by key on top of one pool of the descriptor
allocator, pushing a key that is already present returns its slot.
*/
type ViewArray[K comparable] struct {
	noCopy      util.NoCopy
	descriptors *dxr.DescriptorAllocator
	pool        dxr.DescriptorPool
	views       map[K]int
}

func NewViewArray[K comparable](descriptors *dxr.DescriptorAllocator, pool dxr.DescriptorPool) *ViewArray[K] {
	ret := ViewArray[K]{
		descriptors: descriptors,
		pool:        pool,
		views:       map[K]int{},
	}
	ret.noCopy.Init()
	return &ret
}

func (d *ViewArray[K]) Push(key K, resource dxr.Resource, view dxr.ViewDesc) (int, error) {
	d.noCopy.Check()
	if i, found := d.views[key]; found {
		return i, nil
	}
	i, err := d.descriptors.Allocate(d.pool, resource, view)
	if err != nil {
		return -1, err
	}
	d.views[key] = i
	return i, nil
}

func (d *ViewArray[K]) Get(key K) (int, bool) {
	d.noCopy.Check()
	i, found := d.views[key]
	return i, found
}

func (d *ViewArray[K]) GPUHandle(key K) (dxr.GPUDescriptorHandle, error) {
	d.noCopy.Check()
	i, found := d.views[key]
	if !found {
		return dxr.GPUDescriptorHandle{}, dxr.ErrorOutOfRange{What: fmt.Sprintf("view array key %v", key), Index: -1, Limit: len(d.views)}
	}
	return d.descriptors.GPUHandle(d.pool, i)
}

func (d *ViewArray[K]) Len() int {
	d.noCopy.Check()
	return len(d.views)
}

/*
Pop removes target from the array straight away, its slot is released back
to the pool once the GPU has finished f.
*/
func (d *ViewArray[K]) Pop(f *dxr.Frame, target K) {
	d.noCopy.Check()
	i, found := d.views[target]
	if !found {
		return
	}
	delete(d.views, target)
	f.QueueDestroy(destroyFunc{
		func() {
			if err := d.descriptors.Release(d.pool, i); err != nil {
				instance.logger.WPrintf("Failed to release view slot %d: %v", i, err)
			}
		},
	})
}

/*
ShaderResourceArray manages shader resource views of resources in the shader
visible pool, it is the user's responsibility to handle resource state.
*/
type ShaderResourceArray struct {
	*ViewArray[dxr.Resource]
}

func NewShaderResourceArray(descriptors *dxr.DescriptorAllocator) ShaderResourceArray {
	return ShaderResourceArray{NewViewArray[dxr.Resource](descriptors, dxr.DescriptorPoolShaderVisible)}
}

func (d ShaderResourceArray) PushView(resource dxr.Resource, view dxr.ShaderResourceViewDesc) (int, error) {
	return d.Push(resource, resource, view)
}

// ConstantBufferArray manages constant buffer views keyed by their GPU address.
type ConstantBufferArray struct {
	*ViewArray[uint64]
}

func NewConstantBufferArray(descriptors *dxr.DescriptorAllocator) ConstantBufferArray {
	return ConstantBufferArray{NewViewArray[uint64](descriptors, dxr.DescriptorPoolShaderVisible)}
}

func (d ConstantBufferArray) PushView(view dxr.ConstantBufferViewDesc) (int, error) {
	return d.Push(view.BufferLocation, nil, view)
}
