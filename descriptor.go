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
	"goarrg.com/rhi/dxr/internal/container"
	"goarrg.com/rhi/dxr/internal/util"
)

type DescriptorPool uint8

const (
	DescriptorPoolRTV DescriptorPool = iota
	DescriptorPoolDSV
	DescriptorPoolShaderVisible
	descriptorPoolCount
)

func (p DescriptorPool) String() string {
	switch p {
	case DescriptorPoolRTV:
		return "RTV"
	case DescriptorPoolDSV:
		return "DSV"
	case DescriptorPoolShaderVisible:
		return "ShaderVisible"
	default:
		return fmt.Sprintf("DescriptorPool(%d)", uint8(p))
	}
}

func (p DescriptorPool) heapType() DescriptorHeapType {
	switch p {
	case DescriptorPoolRTV:
		return DescriptorHeapTypeRTV
	case DescriptorPoolDSV:
		return DescriptorHeapTypeDSV
	default:
		return DescriptorHeapTypeCBVSRVUAV
	}
}

type DescriptorPoolSizes struct {
	RTV           int
	DSV           int
	ShaderVisible int
}

type descriptorPool struct {
	heap      DescriptorHeap
	increment uint64
	index     int
	freeStack container.Stack[int]
	inUse     []bool
	used      int
}

/*
DescriptorAllocator hands out slots in three fixed capacity pools: render
target views, depth stencil views and a shader visible pool for constant
buffer, shader resource and unordered access views. A released slot is the
first to be handed out again.
*/
type DescriptorAllocator struct {
	noCopy util.NoCopy
	logger *debug.Logger
	device Device
	pools  [descriptorPoolCount]descriptorPool
}

func NewDescriptorAllocator(device Device, sizes DescriptorPoolSizes) (*DescriptorAllocator, error) {
	a := DescriptorAllocator{logger: debug.NewLogger("dxr", "descriptors"), device: device}
	capacity := [descriptorPoolCount]int{sizes.RTV, sizes.DSV, sizes.ShaderVisible}

	for p := DescriptorPool(0); p < descriptorPoolCount; p++ {
		if capacity[p] <= 0 {
			a.destroyHeaps()
			return nil, ErrorInvalidConfiguration{Reason: fmt.Sprintf("descriptor pool %s capacity must be > 0", p)}
		}
		heap, err := device.CreateDescriptorHeap(p.heapType(), capacity[p], p == DescriptorPoolShaderVisible)
		if err != nil {
			a.destroyHeaps()
			return nil, debug.ErrorWrapf(err, "Failed to create descriptor heap for pool %s", p)
		}
		a.pools[p] = descriptorPool{
			heap:      heap,
			increment: device.DescriptorHandleIncrementSize(p.heapType()),
			inUse:     make([]bool, capacity[p]),
		}
		a.logger.VPrintf("Created descriptor pool %s with %d slots", p, capacity[p])
	}

	a.noCopy.Init()
	return &a, nil
}

func (a *DescriptorAllocator) destroyHeaps() {
	for p := range a.pools {
		if a.pools[p].heap != nil {
			a.pools[p].heap.Destroy()
			a.pools[p].heap = nil
		}
	}
}

func (a *DescriptorAllocator) pool(p DescriptorPool) (*descriptorPool, error) {
	if p >= descriptorPoolCount {
		return nil, ErrorOutOfRange{What: "descriptor pool", Index: int(p), Limit: int(descriptorPoolCount)}
	}
	return &a.pools[p], nil
}

/*
Allocate takes a free slot from pool and writes a view of resource described
by view into it. Constant buffer views take a nil resource.
*/
func (a *DescriptorAllocator) Allocate(p DescriptorPool, resource Resource, view ViewDesc) (int, error) {
	a.noCopy.Check()
	pool, err := a.pool(p)
	if err != nil {
		return -1, err
	}
	if view.HeapType() != p.heapType() {
		return -1, ErrorUnsupportedOperation{Op: "Allocate", Reason: fmt.Sprintf("%T cannot be placed in pool %s", view, p)}
	}

	var i int
	if pool.freeStack.Empty() {
		if pool.index >= len(pool.inUse) {
			return -1, ErrorPoolExhausted{Pool: p, Capacity: len(pool.inUse)}
		}
		i = pool.index
		pool.index++
	} else {
		i = pool.freeStack.Pop()
	}

	if err := a.device.CreateView(resource, view, pool.heap.CPUStart().Offset(i, pool.increment)); err != nil {
		pool.freeStack.Push(i)
		return -1, debug.ErrorWrapf(err, "Failed to create view in pool %s slot %d", p, i)
	}
	pool.inUse[i] = true
	pool.used++
	return i, nil
}

func (a *DescriptorAllocator) Release(p DescriptorPool, index int) error {
	a.noCopy.Check()
	pool, err := a.pool(p)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(pool.inUse) {
		return ErrorOutOfRange{What: fmt.Sprintf("descriptor pool %s slot", p), Index: index, Limit: len(pool.inUse)}
	}
	if !pool.inUse[index] {
		return ErrorDoubleFree{Pool: p, Index: index}
	}
	pool.inUse[index] = false
	pool.used--
	pool.freeStack.Push(index)
	return nil
}

func (a *DescriptorAllocator) CPUHandle(p DescriptorPool, index int) (CPUDescriptorHandle, error) {
	a.noCopy.Check()
	pool, err := a.pool(p)
	if err != nil {
		return CPUDescriptorHandle{}, err
	}
	if index < 0 || index >= len(pool.inUse) {
		return CPUDescriptorHandle{}, ErrorOutOfRange{What: fmt.Sprintf("descriptor pool %s slot", p), Index: index, Limit: len(pool.inUse)}
	}
	return pool.heap.CPUStart().Offset(index, pool.increment), nil
}

func (a *DescriptorAllocator) GPUHandle(p DescriptorPool, index int) (GPUDescriptorHandle, error) {
	a.noCopy.Check()
	pool, err := a.pool(p)
	if err != nil {
		return GPUDescriptorHandle{}, err
	}
	if !pool.heap.ShaderVisible() {
		return GPUDescriptorHandle{}, ErrorUnsupportedOperation{Op: "GPUHandle", Reason: fmt.Sprintf("pool %s is not shader visible", p)}
	}
	if index < 0 || index >= len(pool.inUse) {
		return GPUDescriptorHandle{}, ErrorOutOfRange{What: fmt.Sprintf("descriptor pool %s slot", p), Index: index, Limit: len(pool.inUse)}
	}
	return pool.heap.GPUStart().Offset(index, pool.increment), nil
}

// Heap returns the heap backing pool, for binding the shader visible pool on a command list.
func (a *DescriptorAllocator) Heap(p DescriptorPool) DescriptorHeap {
	a.noCopy.Check()
	if p >= descriptorPoolCount {
		return nil
	}
	return a.pools[p].heap
}

func (a *DescriptorAllocator) Capacity(p DescriptorPool) int {
	a.noCopy.Check()
	if p >= descriptorPoolCount {
		return 0
	}
	return len(a.pools[p].inUse)
}

func (a *DescriptorAllocator) InUse(p DescriptorPool) int {
	a.noCopy.Check()
	if p >= descriptorPoolCount {
		return 0
	}
	return a.pools[p].used
}

func (a *DescriptorAllocator) Destroy() {
	a.noCopy.Check()
	for p := range a.pools {
		if a.pools[p].used > 0 {
			a.logger.WPrintf("Destroying descriptor pool %s with %d slots still in use", DescriptorPool(p), a.pools[p].used)
		}
	}
	a.destroyHeaps()
	a.noCopy.Close()
}
