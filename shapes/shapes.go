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

// Package shapes generates vertex and index data for simple meshes and UI quads.
package shapes

import (
	"unsafe"

	"github.com/gogpu/gputypes"
	"goarrg.com"
	"goarrg.com/debug"
)

type platform struct{}

func (platform) Abort()                           { panic("Fatal Error") }
func (platform) AbortPopup(f string, args ...any) { panic("Fatal Error") }

var instance = struct {
	platform goarrg.PlatformInterface
	logger   *debug.Logger
}{
	platform: platform{},
	logger:   debug.NewLogger("dxr", "shapes"),
}

func Init(platform goarrg.PlatformInterface) {
	instance.platform = platform
}

func abort(fmt string, args ...any) {
	instance.logger.EPrintf(fmt, args...)
	instance.platform.Abort()
}

type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// VertexLayout describes Vertex as a single interleaved vertex buffer.
func VertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(Vertex{})),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x3, Offset: uint64(unsafe.Offsetof(Vertex{}.Position)), ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x3, Offset: uint64(unsafe.Offsetof(Vertex{}.Normal)), ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x2, Offset: uint64(unsafe.Offsetof(Vertex{}.UV)), ShaderLocation: 2},
		},
	}
}

type MeshData struct {
	Vertices []Vertex
	Indices  []uint16
}

type boxFace struct {
	normal [3]float32
	// corners in counter clockwise order looking at the face from outside
	corners [4][3]float32
}

/*
Box returns an axis aligned box centered on the origin. Every face has its
own 4 vertices so normals and UVs stay per face, giving 24 vertices and 36
indices as a triangle list. The cross product of the first two edges of each
triangle points along the face normal.
*/
func Box(xHalf, yHalf, zHalf float32) MeshData {
	if xHalf <= 0 || yHalf <= 0 || zHalf <= 0 {
		abort("Box extents must be > 0, got [%f, %f, %f]", xHalf, yHalf, zHalf)
	}
	x, y, z := xHalf, yHalf, zHalf
	faces := [6]boxFace{
		// front
		{normal: [3]float32{0, 0, -1}, corners: [4][3]float32{{-x, -y, -z}, {-x, +y, -z}, {+x, +y, -z}, {+x, -y, -z}}},
		// back
		{normal: [3]float32{0, 0, 1}, corners: [4][3]float32{{-x, -y, +z}, {+x, -y, +z}, {+x, +y, +z}, {-x, +y, +z}}},
		// top
		{normal: [3]float32{0, 1, 0}, corners: [4][3]float32{{-x, +y, -z}, {-x, +y, +z}, {+x, +y, +z}, {+x, +y, -z}}},
		// bottom
		{normal: [3]float32{0, -1, 0}, corners: [4][3]float32{{-x, -y, -z}, {+x, -y, -z}, {+x, -y, +z}, {-x, -y, +z}}},
		// left
		{normal: [3]float32{-1, 0, 0}, corners: [4][3]float32{{-x, -y, +z}, {-x, +y, +z}, {-x, +y, -z}, {-x, -y, -z}}},
		// right
		{normal: [3]float32{1, 0, 0}, corners: [4][3]float32{{+x, -y, -z}, {+x, +y, -z}, {+x, +y, +z}, {+x, -y, +z}}},
	}
	uvs := [4][2]float32{{0, 1}, {0, 0}, {1, 0}, {1, 1}}

	m := MeshData{
		Vertices: make([]Vertex, 0, 24),
		Indices:  make([]uint16, 0, 36),
	}
	for _, f := range faces {
		base := uint16(len(m.Vertices))
		for i, c := range f.corners {
			m.Vertices = append(m.Vertices, Vertex{Position: c, Normal: f.normal, UV: uvs[i]})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}
