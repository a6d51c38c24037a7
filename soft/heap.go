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

import "goarrg.com/rhi/dxr"

type View struct {
	Resource *Resource
	Desc     dxr.ViewDesc
}

type DescriptorHeap struct {
	device        *Device
	heapType      dxr.DescriptorHeapType
	shaderVisible bool
	cpuStart      uint64
	gpuStart      uint64
	views         []View
	destroyed     bool
}

var _ dxr.DescriptorHeap = (*DescriptorHeap)(nil)

func (h *DescriptorHeap) Type() dxr.DescriptorHeapType {
	return h.heapType
}

func (h *DescriptorHeap) Capacity() int {
	return len(h.views)
}

func (h *DescriptorHeap) ShaderVisible() bool {
	return h.shaderVisible
}

func (h *DescriptorHeap) CPUStart() dxr.CPUDescriptorHandle {
	return dxr.CPUDescriptorHandle{Ptr: h.cpuStart}
}

func (h *DescriptorHeap) GPUStart() dxr.GPUDescriptorHandle {
	return dxr.GPUDescriptorHandle{Ptr: h.gpuStart}
}

// View returns the view last written to slot i.
func (h *DescriptorHeap) View(i int) (View, bool) {
	h.device.mu.Lock()
	defer h.device.mu.Unlock()
	if i < 0 || i >= len(h.views) || h.views[i].Desc == nil {
		return View{}, false
	}
	return h.views[i], true
}

func (h *DescriptorHeap) Destroy() {
	h.device.mu.Lock()
	defer h.device.mu.Unlock()
	h.destroyed = true
	clear(h.views)
}
