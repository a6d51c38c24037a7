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
)

/*
RenderItem is either a *StaticItem or a *UIItem. Each item starts dirty for
every frame slot and has to be updated once per slot before it is clean.
*/
type RenderItem interface {
	Name() string
	ConstantIndex() int
	Texture() string
	NeedUpdate() bool
	MarkDirty()
	state() *itemState
}

type itemState struct {
	name           string
	constantIndex  int
	texture        string
	framesInFlight int
	dirtyFrames    int
}

func newItemState(ctx *dxr.Context, name string, constantIndex int, texture string) itemState {
	return itemState{
		name:           name,
		constantIndex:  constantIndex,
		texture:        texture,
		framesInFlight: ctx.FramesInFlight(),
		dirtyFrames:    ctx.FramesInFlight(),
	}
}

func (s *itemState) Name() string {
	return s.name
}

// ConstantIndex is the item slot of the item in ObjectConstants.
func (s *itemState) ConstantIndex() int {
	return s.constantIndex
}

// Texture is the TextureTable name sampled by the item, empty for none.
func (s *itemState) Texture() string {
	return s.texture
}

func (s *itemState) NeedUpdate() bool {
	return s.dirtyFrames > 0
}

func (s *itemState) MarkDirty() {
	s.dirtyFrames = s.framesInFlight
}

func (s *itemState) state() *itemState {
	return s
}

func (s *itemState) updated() {
	if s.dirtyFrames > 0 {
		s.dirtyFrames--
	}
}

type StaticItem struct {
	itemState
	Mesh  *StaticMesh
	World [16]float32
}

func NewStaticItem(ctx *dxr.Context, name string, constantIndex int, mesh *StaticMesh, texture string) *StaticItem {
	return &StaticItem{
		itemState: newItemState(ctx, name, constantIndex, texture),
		Mesh:      mesh,
		World:     [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
	}
}

type UIItem struct {
	itemState
	Mesh   *UIMesh
	Offset [2]float32
}

func NewUIItem(ctx *dxr.Context, name string, constantIndex int, mesh *UIMesh, texture string) *UIItem {
	return &UIItem{
		itemState: newItemState(ctx, name, constantIndex, texture),
		Mesh:      mesh,
	}
}

/*
UpdateConstants writes the constants of every item that still needs an
update into f's slot of constants and returns how many were written.
*/
func UpdateConstants[T any](f *dxr.Frame, items []RenderItem, constants *ObjectConstants[T], build func(RenderItem) T) (int, error) {
	n := 0
	for _, item := range items {
		if !item.NeedUpdate() {
			continue
		}
		if err := constants.Write(f, item.ConstantIndex(), build(item)); err != nil {
			return n, err
		}
		item.state().updated()
		n++
	}
	return n, nil
}

type DrawCall struct {
	Item         string
	VertexBuffer VertexBufferView
	// IndexBuffer is nil for non indexed draws.
	IndexBuffer *IndexBufferView
	// Count is the index count of indexed draws, the vertex count otherwise.
	Count     uint32
	Constants uint64
	Texture   dxr.GPUDescriptorHandle
}

/*
BuildDrawCalls resolves the buffers, constants and texture of every item for
f. UI items with nothing written for f are skipped. textures may be nil when
no item samples a texture.
*/
func BuildDrawCalls[T any](f *dxr.Frame, items []RenderItem, constants *ObjectConstants[T], textures *TextureTable) ([]DrawCall, error) {
	calls := make([]DrawCall, 0, len(items))
	for _, item := range items {
		var call DrawCall
		switch it := item.(type) {
		case *StaticItem:
			ib := it.Mesh.IndexBufferView()
			call = DrawCall{VertexBuffer: it.Mesh.VertexBufferView(), IndexBuffer: &ib, Count: it.Mesh.IndexCount()}
		case *UIItem:
			if it.Mesh.VertexCount(f) == 0 {
				continue
			}
			call = DrawCall{VertexBuffer: it.Mesh.VertexBufferView(f), Count: uint32(it.Mesh.VertexCount(f))}
		default:
			return nil, dxr.ErrorUnsupportedOperation{Op: "BuildDrawCalls", Reason: fmt.Sprintf("unknown render item %T", item)}
		}

		call.Item = item.Name()
		call.Constants = constants.GPUAddress(f, item.ConstantIndex())
		if name := item.Texture(); name != "" {
			if textures == nil {
				return nil, dxr.ErrorUnsupportedOperation{Op: "BuildDrawCalls", Reason: fmt.Sprintf("%q samples %q without a texture table", item.Name(), name)}
			}
			handle, err := textures.GPUHandle(name)
			if err != nil {
				return nil, err
			}
			call.Texture = handle
		}
		calls = append(calls, call)
	}
	return calls, nil
}
