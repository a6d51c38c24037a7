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

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 256, AlignUp(1, 256))
	assert.Equal(t, 256, AlignUp(256, 256))
	assert.Equal(t, 512, AlignUp(257, 256))
	assert.Equal(t, uint64(0), AlignUp(uint64(0), 256))
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, v := range []int{1, 2, 4, 256, 1 << 20} {
		assert.True(t, IsPowerOfTwo(v), v)
	}
	for _, v := range []int{0, -4, 3, 6, 255} {
		assert.False(t, IsPowerOfTwo(v), v)
	}
}

func TestByteViews(t *testing.T) {
	type pair struct {
		A, B uint32
	}
	p := pair{A: 1, B: 2}
	assert.Len(t, ValueBytes(&p), 8)
	assert.Equal(t, uint64(8), SizeOf[pair]())

	s := []uint16{0x0102, 0x0304, 0x0506}
	assert.Len(t, SliceBytes(s), 6)
	assert.Nil(t, SliceBytes([]uint16{}))
}

func TestNoCopy(t *testing.T) {
	var n NoCopy
	assert.False(t, n.Alive())
	n.Init()
	assert.True(t, n.Alive())
	assert.NotPanics(t, n.Check)

	copied := n
	assert.Panics(t, copied.Check)

	n.Close()
	assert.False(t, n.Alive())
	assert.Panics(t, n.Check)
}
