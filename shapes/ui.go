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
	"unsafe"

	"github.com/gogpu/gputypes"
	"goarrg.com/gmath"
)

type UIVertex struct {
	Position [2]float32
	UV       [2]float32
	Color    [4]float32
}

func UIVertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(unsafe.Sizeof(UIVertex{})),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: uint64(unsafe.Offsetof(UIVertex{}.Position)), ShaderLocation: 0},
			{Format: gputypes.VertexFormatFloat32x2, Offset: uint64(unsafe.Offsetof(UIVertex{}.UV)), ShaderLocation: 1},
			{Format: gputypes.VertexFormatFloat32x4, Offset: uint64(unsafe.Offsetof(UIVertex{}.Color)), ShaderLocation: 2},
		},
	}
}

// UVRect is a region of a texture in normalized coordinates.
type UVRect struct {
	Min gmath.Vector3f32
	Max gmath.Vector3f32
}

var FullUV = UVRect{Max: gmath.Vector3f32{X: 1, Y: 1}}

const QuadVertexCount = 6

func rgba(c gputypes.Color) [4]float32 {
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}

/*
AppendQuad appends the 6 vertices of a quad placed by t as a triangle list,
the UV min maps to the top left corner before rotation.
*/
func AppendQuad(dst []UIVertex, t Transform2D, uv UVRect, c gputypes.Color) []UIVertex {
	m := t.modelMatrix()
	color := rgba(c)
	corner := func(x, y float32, u, v float32) UIVertex {
		p := apply(&m, gmath.Vector3f32{X: x, Y: y})
		return UIVertex{Position: [2]float32{p.X, p.Y}, UV: [2]float32{u, v}, Color: color}
	}
	tl := corner(-0.5, -0.5, uv.Min.X, uv.Min.Y)
	tr := corner(0.5, -0.5, uv.Max.X, uv.Min.Y)
	br := corner(0.5, 0.5, uv.Max.X, uv.Max.Y)
	bl := corner(-0.5, 0.5, uv.Min.X, uv.Max.Y)
	return append(dst, tl, tr, br, tl, br, bl)
}

// GlyphAtlasColumns is the number of glyph cells per row and column of the font atlas.
const GlyphAtlasColumns = 16

/*
AppendText lays out text as one quad per byte in a monospace grid starting
at origin, each cell of size cell. Glyphs come from a 16x16 cell atlas
indexed by byte value, '\n' starts a new line and spaces emit nothing.
*/
func AppendText(dst []UIVertex, text string, origin gmath.Point3f32, cell gmath.Vector3f32, c gputypes.Color) []UIVertex {
	const step = 1.0 / GlyphAtlasColumns
	col, row := 0, 0
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch ch {
		case '\n':
			col = 0
			row++
			continue
		case ' ':
			col++
			continue
		}
		u := float32(int(ch)%GlyphAtlasColumns) * step
		v := float32(int(ch)/GlyphAtlasColumns) * step
		t := Transform2D{
			Pos:              gmath.Point3f32{X: origin.X + float32(col)*cell.X, Y: origin.Y + float32(row)*cell.Y},
			Size:             cell,
			TranslationPivot: PivotTopLeft,
		}
		dst = AppendQuad(dst, t, UVRect{Min: gmath.Vector3f32{X: u, Y: v}, Max: gmath.Vector3f32{X: u + step, Y: v + step}}, c)
		col++
	}
	return dst
}
