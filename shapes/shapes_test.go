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

package shapes

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/gmath"
)

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func TestBox(t *testing.T) {
	m := Box(1, 2, 3)
	require.Len(t, m.Vertices, 24)
	require.Len(t, m.Indices, 36)

	for i := 0; i < len(m.Indices); i += 3 {
		v0 := m.Vertices[m.Indices[i]]
		v1 := m.Vertices[m.Indices[i+1]]
		v2 := m.Vertices[m.Indices[i+2]]
		assert.Equal(t, v0.Normal, v1.Normal)
		assert.Equal(t, v0.Normal, v2.Normal)
		n := cross(sub(v1.Position, v0.Position), sub(v2.Position, v0.Position))
		assert.Positive(t, dot(n, v0.Normal), "triangle %d", i/3)
	}
	for _, v := range m.Vertices {
		// every vertex lies on the plane of its face
		assert.InDelta(t, 1, dot(v.Position, v.Normal)/dot([3]float32{1, 2, 3}, [3]float32{
			abs(v.Normal[0]), abs(v.Normal[1]), abs(v.Normal[2]),
		}), 1e-6)
	}

	assert.Panics(t, func() { Box(0, 1, 1) })
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestVertexLayouts(t *testing.T) {
	l := VertexLayout()
	assert.Equal(t, uint64(32), l.ArrayStride)
	require.Len(t, l.Attributes, 3)
	assert.Equal(t, uint64(24), l.Attributes[2].Offset)

	ui := UIVertexLayout()
	assert.Equal(t, uint64(32), ui.ArrayStride)
	assert.Equal(t, uint64(16), ui.Attributes[2].Offset)
}

func TestAppendQuad(t *testing.T) {
	red := gputypes.ColorRed
	q := AppendQuad(nil, Transform2D{
		Pos:              gmath.Point3f32{X: 10, Y: 20},
		Size:             gmath.Vector3f32{X: 4, Y: 2},
		TranslationPivot: PivotTopLeft,
	}, FullUV, red)
	require.Len(t, q, QuadVertexCount)

	assert.InDeltaSlice(t, []float32{10, 20}, q[0].Position[:], 1e-5)
	assert.InDeltaSlice(t, []float32{14, 20}, q[1].Position[:], 1e-5)
	assert.InDeltaSlice(t, []float32{14, 22}, q[2].Position[:], 1e-5)
	assert.InDeltaSlice(t, []float32{10, 22}, q[5].Position[:], 1e-5)
	assert.Equal(t, q[0], q[3])
	assert.Equal(t, q[2], q[4])
	assert.Equal(t, [2]float32{1, 1}, q[2].UV)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, q[0].Color)

	centered := Transform2D{Size: gmath.Vector3f32{X: 2, Y: 2}, TranslationPivot: PivotCenter}
	p := centered.Apply(gmath.Vector3f32{X: 0.5, Y: 0.5})
	assert.InDelta(t, 1, p.X, 1e-5)
	assert.InDelta(t, 1, p.Y, 1e-5)
}

func TestAppendText(t *testing.T) {
	cell := gmath.Vector3f32{X: 8, Y: 16}
	v := AppendText(nil, "ab\nc d", gmath.Point3f32{X: 100, Y: 50}, cell, gputypes.Color{})
	require.Len(t, v, 4*QuadVertexCount)

	// 'a' is 97, column 1 row 6 of the atlas
	assert.InDeltaSlice(t, []float32{1.0 / 16, 6.0 / 16}, v[0].UV[:], 1e-6)
	assert.InDeltaSlice(t, []float32{100, 50}, v[0].Position[:], 1e-4)
	assert.InDeltaSlice(t, []float32{108, 50}, v[QuadVertexCount].Position[:], 1e-4)

	// 'd' skips the space on the second line
	d := v[3*QuadVertexCount]
	assert.InDeltaSlice(t, []float32{116, 66}, d.Position[:], 1e-4)
}
