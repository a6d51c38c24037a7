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

package dxr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goarrg.com/rhi/dxr"
)

type fakeFlusher struct {
	name    string
	dirty   bool
	log     *[]string
	onFlush func()
}

func (f *fakeFlusher) FlushIfDirty(_ dxr.CommandRecorder, target uint64) bool {
	*f.log = append(*f.log, f.name)
	if f.onFlush != nil {
		f.onFlush()
	}
	if !f.dirty {
		return false
	}
	f.dirty = false
	return true
}

func TestBroadcasterRunsInRegistrationOrder(t *testing.T) {
	var log []string
	b := dxr.NewUpdateBroadcaster()
	ta := b.Register(&fakeFlusher{name: "a", dirty: true, log: &log})
	tb := b.Register(&fakeFlusher{name: "b", log: &log})
	tc := b.Register(&fakeFlusher{name: "c", dirty: true, log: &log})
	assert.NotZero(t, ta)
	assert.Less(t, ta, tb)
	assert.Less(t, tb, tc)
	assert.Equal(t, 3, b.Len())

	assert.Equal(t, 2, b.RunAll(nil, 1))
	assert.Equal(t, []string{"a", "b", "c"}, log)
	assert.Zero(t, b.RunAll(nil, 2))

	assert.True(t, b.Unregister(tb))
	assert.False(t, b.Unregister(tb))
	assert.False(t, b.Registered(tb))
	assert.Equal(t, 2, b.Len())
}

func TestBroadcasterUnregisterDuringRun(t *testing.T) {
	var log []string
	b := dxr.NewUpdateBroadcaster()
	var tb, tc dxr.BroadcastToken

	a := &fakeFlusher{name: "a", dirty: true, log: &log}
	a.onFlush = func() { b.Unregister(tc) }
	b.Register(a)
	bf := &fakeFlusher{name: "b", dirty: true, log: &log}
	tb = b.Register(bf)
	// b unregisters itself like a read-only pair does on its first flush
	bf.onFlush = func() { b.Unregister(tb) }
	tc = b.Register(&fakeFlusher{name: "c", dirty: true, log: &log})

	assert.Equal(t, 2, b.RunAll(nil, 1))
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Equal(t, 1, b.Len())
}

func TestBroadcasterRegisterDuringRun(t *testing.T) {
	var log []string
	b := dxr.NewUpdateBroadcaster()
	late := &fakeFlusher{name: "late", dirty: true, log: &log}
	b.Register(&fakeFlusher{name: "early", log: &log, onFlush: func() { b.Register(late) }})

	assert.Zero(t, b.RunAll(nil, 1))
	assert.Equal(t, []string{"early"}, log)
	assert.Equal(t, 2, b.Len())
}
