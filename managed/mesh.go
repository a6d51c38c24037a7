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

	"github.com/gogpu/gputypes"
	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/internal/util"
	"goarrg.com/rhi/dxr/shapes"
)

type VertexBufferView struct {
	BufferLocation uint64
	SizeInBytes    uint32
	StrideInBytes  uint32
}

type IndexBufferView struct {
	BufferLocation uint64
	SizeInBytes    uint32
	Format         gputypes.IndexFormat
}

type Index interface {
	~uint16 | ~uint32
}

type meshBuffer interface {
	Resource() dxr.Resource
	Retired() bool
	GPUAddress(int) uint64
	Destroy()
}

// StaticMesh is an immutable vertex and index buffer pair uploaded on the next frame.
type StaticMesh struct {
	noCopy      util.NoCopy
	name        string
	layout      gputypes.VertexBufferLayout
	vertices    meshBuffer
	indices     meshBuffer
	vbView      VertexBufferView
	ibView      IndexBufferView
	vertexCount uint32
	indexCount  uint32
}

var _ dxr.Destroyer = (*StaticMesh)(nil)

func NewStaticMesh[V any, I Index](ctx *dxr.Context, name string, layout gputypes.VertexBufferLayout, vertices []V, indices []I) (*StaticMesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, dxr.ErrorInvalidConfiguration{Reason: fmt.Sprintf("mesh %q needs vertices and indices", name)}
	}
	if layout.ArrayStride != util.SizeOf[V]() {
		return nil, dxr.ErrorInvalidConfiguration{Reason: fmt.Sprintf("mesh %q layout stride %d does not match vertex size %d", name, layout.ArrayStride, util.SizeOf[V]())}
	}

	vb, err := dxr.CreatePair[V](ctx, dxr.PairCreateInfo{
		Name: name + "_vertices", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: uint64(len(vertices)), ReadOnly: true,
	})
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create vertex buffer of mesh %q", name)
	}
	if err := vb.Write(0, vertices); err != nil {
		vb.Destroy()
		return nil, err
	}

	ib, err := dxr.CreatePair[I](ctx, dxr.PairCreateInfo{
		Name: name + "_indices", Kind: dxr.BufferKindVertexOrIndexBuffer, Count: uint64(len(indices)), ReadOnly: true,
	})
	if err != nil {
		vb.Destroy()
		return nil, debug.ErrorWrapf(err, "Failed to create index buffer of mesh %q", name)
	}
	if err := ib.Write(0, indices); err != nil {
		vb.Destroy()
		ib.Destroy()
		return nil, err
	}

	format := gputypes.IndexFormatUint16
	if util.SizeOf[I]() == 4 {
		format = gputypes.IndexFormatUint32
	}
	m := StaticMesh{
		name:        name,
		layout:      layout,
		vertices:    vb,
		indices:     ib,
		vertexCount: uint32(len(vertices)),
		indexCount:  uint32(len(indices)),
		vbView: VertexBufferView{
			BufferLocation: vb.GPUAddress(0),
			SizeInBytes:    uint32(vb.Stride() * vb.Count()),
			StrideInBytes:  uint32(vb.Stride()),
		},
		ibView: IndexBufferView{
			BufferLocation: ib.GPUAddress(0),
			SizeInBytes:    uint32(ib.Stride() * ib.Count()),
			Format:         format,
		},
	}
	m.noCopy.Init()
	instance.logger.VPrintf("Created mesh %q: %d vertices, %d indices", name, len(vertices), len(indices))
	return &m, nil
}

// NewBoxMesh uploads shapes.Box as a StaticMesh.
func NewBoxMesh(ctx *dxr.Context, name string, xHalf, yHalf, zHalf float32) (*StaticMesh, error) {
	box := shapes.Box(xHalf, yHalf, zHalf)
	return NewStaticMesh(ctx, name, shapes.VertexLayout(), box.Vertices, box.Indices)
}

func (m *StaticMesh) Name() string {
	m.noCopy.Check()
	return m.name
}

func (m *StaticMesh) Layout() gputypes.VertexBufferLayout {
	m.noCopy.Check()
	return m.layout
}

func (m *StaticMesh) VertexBufferView() VertexBufferView {
	m.noCopy.Check()
	return m.vbView
}

func (m *StaticMesh) IndexBufferView() IndexBufferView {
	m.noCopy.Check()
	return m.ibView
}

func (m *StaticMesh) VertexCount() uint32 {
	m.noCopy.Check()
	return m.vertexCount
}

func (m *StaticMesh) IndexCount() uint32 {
	m.noCopy.Check()
	return m.indexCount
}

// Uploaded reports whether both buffers have been copied to GPU local memory.
func (m *StaticMesh) Uploaded() bool {
	m.noCopy.Check()
	return m.vertices.Retired() && m.indices.Retired()
}

func (m *StaticMesh) VertexResource() dxr.Resource {
	m.noCopy.Check()
	return m.vertices.Resource()
}

func (m *StaticMesh) IndexResource() dxr.Resource {
	m.noCopy.Check()
	return m.indices.Resource()
}

func (m *StaticMesh) Destroy() {
	m.noCopy.Check()
	m.vertices.Destroy()
	m.indices.Destroy()
	m.noCopy.Close()
}

/*
UIMesh streams UI vertices straight from upload memory. Every frame slot owns
its own region so rewriting it never races the GPU reading an earlier frame.
*/
type UIMesh struct {
	noCopy      util.NoCopy
	name        string
	staging     *dxr.StagingBuffer
	maxVertices int
	counts      []int
}

func NewUIMesh(ctx *dxr.Context, name string, maxVertices int) (*UIMesh, error) {
	if maxVertices <= 0 {
		return nil, dxr.ErrorInvalidConfiguration{Reason: fmt.Sprintf("UI mesh %q needs room for at least one vertex", name)}
	}
	frames := ctx.FramesInFlight()
	staging, err := ctx.NewStagingBuffer(name, dxr.BufferKindVertexOrIndexBuffer, util.SizeOf[shapes.UIVertex](), uint64(maxVertices*frames))
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create UI mesh %q", name)
	}
	m := UIMesh{name: name, staging: staging, maxVertices: maxVertices, counts: make([]int, frames)}
	m.noCopy.Init()
	return &m, nil
}

func (m *UIMesh) Name() string {
	m.noCopy.Check()
	return m.name
}

func (m *UIMesh) MaxVertices() int {
	m.noCopy.Check()
	return m.maxVertices
}

// Write replaces the vertices drawn by frames using f's slot.
func (m *UIMesh) Write(f *dxr.Frame, vertices []shapes.UIVertex) error {
	m.noCopy.Check()
	if len(vertices) > m.maxVertices {
		return dxr.ErrorOutOfRange{What: fmt.Sprintf("UI mesh %q vertex", m.name), Index: len(vertices) - 1, Limit: m.maxVertices}
	}
	if err := dxr.StagingWrite(m.staging, f.Index()*m.maxVertices, vertices); err != nil {
		return err
	}
	m.counts[f.Index()] = len(vertices)
	return nil
}

func (m *UIMesh) VertexCount(f *dxr.Frame) int {
	m.noCopy.Check()
	return m.counts[f.Index()]
}

func (m *UIMesh) VertexBufferView(f *dxr.Frame) VertexBufferView {
	m.noCopy.Check()
	stride := m.staging.Stride()
	return VertexBufferView{
		BufferLocation: m.staging.GPUAddress(f.Index() * m.maxVertices),
		SizeInBytes:    uint32(uint64(m.counts[f.Index()]) * stride),
		StrideInBytes:  uint32(stride),
	}
}

// Destroy hands the upload memory to the release queue, it is freed once the GPU has finished f.
func (m *UIMesh) Destroy(f *dxr.Frame) {
	m.noCopy.Check()
	f.QueueDestroy(m.staging)
	m.staging = nil
	m.noCopy.Close()
}
