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
	"math"

	"goarrg.com/gmath"
)

type Pivot uint32

const (
	PivotTopLeft Pivot = iota
	PivotTopRight
	PivotBottomRight
	PivotBottomLeft
	PivotCenter
)

func (p *Pivot) vector() gmath.Vector3f32 {
	switch *p {
	case PivotTopLeft:
		return gmath.Vector3f32{X: -1, Y: -1}
	case PivotTopRight:
		return gmath.Vector3f32{X: 1, Y: -1}
	case PivotBottomRight:
		return gmath.Vector3f32{X: 1, Y: 1}
	case PivotBottomLeft:
		return gmath.Vector3f32{X: -1, Y: 1}
	case PivotCenter:
		return gmath.Vector3f32{}
	default:
		abort("Unknown Pivot: %d", *p)
		return gmath.Vector3f32{}
	}
}

type TransformOrder uint32

const (
	// TransformTRS will create a model matrix by effectively doing
	// translation * rotation * scale
	TransformTRS TransformOrder = iota
	// TransformTSR will create a model matrix by effectively doing
	// translation * scale * rotation
	TransformTSR
)

type Transform2D struct {
	Pos            gmath.Point3f32
	Rot            float32
	Size           gmath.Vector3f32
	TransformOrder TransformOrder
	/*
	 TranslationPivot sets where in the quad Pos is.
	 Pivot locations are determined after rotating and scaling
	 the quad, so top left always means the top left on the screen.
	*/
	TranslationPivot Pivot
}

// modelMatrix maps the unit quad [-0.5, 0.5]^2 to screen space.
func (t *Transform2D) modelMatrix() [2][3]float32 {
	var m0, m1 gmath.Vector3f32
	var p gmath.Point3f32

	switch t.TransformOrder {
	case TransformTRS:
		m0 = gmath.Vector3f32{
			X: float32(math.Cos(float64(t.Rot))), Y: -float32(math.Sin(float64(t.Rot))),
		}.Scale(t.Size)
		m1 = gmath.Vector3f32{
			X: float32(math.Sin(float64(t.Rot))), Y: float32(math.Cos(float64(t.Rot))),
		}.Scale(t.Size)
	case TransformTSR:
		m0 = gmath.Vector3f32{
			X: float32(math.Cos(float64(t.Rot))), Y: -float32(math.Sin(float64(t.Rot))),
		}.Scale(gmath.Vector3f32{X: t.Size.X, Y: t.Size.X})
		m1 = gmath.Vector3f32{
			X: float32(math.Sin(float64(t.Rot))), Y: float32(math.Cos(float64(t.Rot))),
		}.Scale(gmath.Vector3f32{X: t.Size.Y, Y: t.Size.Y})
	default:
		abort("invalid TransformOrder: %d", t.TransformOrder)
	}

	if t.TranslationPivot == PivotCenter {
		p = t.Pos
	} else {
		pivot := t.TranslationPivot.vector()
		p = gmath.Point3f32{
			X: t.Pos.X - (m0.Abs().Dot(pivot) * 0.5),
			Y: t.Pos.Y - (m1.Abs().Dot(pivot) * 0.5),
		}
	}

	return [2][3]float32{
		{m0.X, m0.Y, p.X},
		{m1.X, m1.Y, p.Y},
	}
}

// Apply transforms a point of the unit quad.
func (t *Transform2D) Apply(v gmath.Vector3f32) gmath.Point3f32 {
	m := t.modelMatrix()
	return apply(&m, v)
}

func apply(m *[2][3]float32, v gmath.Vector3f32) gmath.Point3f32 {
	return gmath.Point3f32{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2],
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2],
	}
}
