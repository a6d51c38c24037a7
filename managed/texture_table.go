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
	"slices"

	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/internal/util"
	"golang.org/x/exp/maps"
)

// TextureTable owns textures by name.
type TextureTable struct {
	noCopy   util.NoCopy
	ctx      *dxr.Context
	textures map[string]*dxr.Texture
}

func NewTextureTable(ctx *dxr.Context) *TextureTable {
	ret := TextureTable{ctx: ctx, textures: map[string]*dxr.Texture{}}
	ret.noCopy.Init()
	return &ret
}

/*
Add creates a texture and writes data into it, data[i] holding every mip
level of array slice i. The upload happens at the next frame.
*/
func (t *TextureTable) Add(name string, info dxr.TextureInfo, data ...[]byte) (*dxr.Texture, error) {
	t.noCopy.Check()
	if _, found := t.textures[name]; found {
		return nil, debug.Errorf("Texture %q already exists", name)
	}
	if len(data) > int(info.Slices) {
		return nil, dxr.ErrorOutOfRange{What: "texture slice", Index: len(data) - 1, Limit: int(info.Slices)}
	}
	texture, err := dxr.NewTexture(t.ctx, name, info)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create texture %q", name)
	}
	for i, slice := range data {
		if err := texture.Write(slice, i); err != nil {
			texture.Destroy()
			return nil, err
		}
	}
	t.textures[name] = texture
	instance.logger.VPrintf("Added texture %q %s", name, info)
	return texture, nil
}

func (t *TextureTable) Get(name string) (*dxr.Texture, bool) {
	t.noCopy.Check()
	texture, found := t.textures[name]
	return texture, found
}

func (t *TextureTable) GPUHandle(name string) (dxr.GPUDescriptorHandle, error) {
	t.noCopy.Check()
	texture, found := t.textures[name]
	if !found {
		return dxr.GPUDescriptorHandle{}, debug.Errorf("Texture %q not found", name)
	}
	return texture.GPUHandle()
}

func (t *TextureTable) Names() []string {
	t.noCopy.Check()
	names := maps.Keys(t.textures)
	slices.Sort(names)
	return names
}

func (t *TextureTable) Len() int {
	t.noCopy.Check()
	return len(t.textures)
}

// Remove drops name from the table, the texture is destroyed once the GPU has finished f.
func (t *TextureTable) Remove(f *dxr.Frame, name string) bool {
	t.noCopy.Check()
	texture, found := t.textures[name]
	if !found {
		return false
	}
	delete(t.textures, name)
	f.QueueDestroy(texture)
	return true
}

// Destroy destroys every texture immediately, the GPU must be idle.
func (t *TextureTable) Destroy() {
	t.noCopy.Check()
	for _, name := range t.Names() {
		t.textures[name].Destroy()
	}
	clear(t.textures)
	t.noCopy.Close()
}
