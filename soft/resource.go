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

import (
	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
)

// Resource is both a default heap and an upload heap resource, only upload
// resources can be mapped or written from the CPU.
type Resource struct {
	device    *Device
	name      string
	desc      dxr.ResourceDesc
	upload    bool
	pixelSize int
	size      uint64
	address   uint64
	state     dxr.ResourceState
	data      [][]byte
	destroyed bool
}

var _ dxr.UploadResource = (*Resource)(nil)

func (r *Resource) Name() string {
	return r.name
}

func (r *Resource) Desc() dxr.ResourceDesc {
	return r.desc
}

func (r *Resource) GPUVirtualAddress() uint64 {
	return r.address
}

func (r *Resource) Upload() bool {
	return r.upload
}

func (r *Resource) State() dxr.ResourceState {
	r.device.mu.Lock()
	defer r.device.mu.Unlock()
	return r.state
}

func (r *Resource) Destroyed() bool {
	r.device.mu.Lock()
	defer r.device.mu.Unlock()
	return r.destroyed
}

// Bytes returns a copy of subresource sub.
func (r *Resource) Bytes(sub int) []byte {
	r.device.mu.Lock()
	defer r.device.mu.Unlock()
	if sub < 0 || sub >= len(r.data) {
		return nil
	}
	return append([]byte(nil), r.data[sub]...)
}

// Map returns the memory of an upload buffer, it stays valid until Destroy.
func (r *Resource) Map() ([]byte, error) {
	if !r.upload {
		return nil, debug.Errorf("Resource %q is not on an upload heap", r.name)
	}
	if r.desc.Dimension != dxr.ResourceDimensionBuffer {
		return nil, debug.Errorf("Texture %q cannot be mapped, use WriteToSubresource", r.name)
	}
	return r.data[0], nil
}

func (r *Resource) WriteToSubresource(sub int, data []byte, rowPitch, depthPitch int) error {
	if !r.upload {
		return debug.Errorf("Resource %q is not on an upload heap", r.name)
	}
	if sub < 0 || sub >= len(r.data) {
		return debug.Errorf("Subresource %d of %q out of range [0, %d)", sub, r.name, len(r.data))
	}

	dst := r.data[sub]
	if r.desc.Dimension == dxr.ResourceDimensionBuffer {
		if len(data) > len(dst) {
			return debug.Errorf("Write of %d bytes overflows buffer %q of size %d", len(data), r.name, len(dst))
		}
		r.device.mu.Lock()
		copy(dst, data)
		r.device.mu.Unlock()
		return nil
	}

	mip := sub % int(max(r.desc.MipLevels, 1))
	rowSize := int(max(r.desc.Width>>mip, 1)) * r.pixelSize
	rows := int(max(r.desc.Height>>mip, 1))
	if rowPitch < rowSize {
		return debug.Errorf("Row pitch %d of %q subresource %d is smaller than a row of %d bytes", rowPitch, r.name, sub, rowSize)
	}
	if depthPitch < rowPitch*rows {
		return debug.Errorf("Depth pitch %d of %q subresource %d is smaller than %d rows of %d bytes", depthPitch, r.name, sub, rows, rowPitch)
	}
	if len(data) < rowPitch*(rows-1)+rowSize {
		return debug.Errorf("Write of %d bytes is too small for %q subresource %d", len(data), r.name, sub)
	}

	r.device.mu.Lock()
	defer r.device.mu.Unlock()
	for y := 0; y < rows; y++ {
		copy(dst[y*rowSize:(y+1)*rowSize], data[y*rowPitch:y*rowPitch+rowSize])
	}
	return nil
}

func (r *Resource) Destroy() {
	r.device.destroyResource(r)
}

func asResource(r dxr.Resource) *Resource {
	if s, ok := r.(*Resource); ok {
		return s
	}
	return nil
}
