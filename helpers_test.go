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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/soft"
)

type testPlatform struct{}

func (testPlatform) Abort()                           { panic("abort") }
func (testPlatform) AbortPopup(f string, args ...any) { panic(fmt.Sprintf(f, args...)) }

func newContext(t *testing.T, mode soft.QueueMode, window dxr.Window, edits ...func(*dxr.Config)) (*dxr.Context, *soft.Device) {
	t.Helper()
	cfg := dxr.DefaultConfig()
	for _, e := range edits {
		e(&cfg)
	}
	adapter := soft.NewAdapter("soft", soft.WithQueueMode(mode), soft.WithLatency(time.Millisecond))
	ctx, err := dxr.NewContext(testPlatform{}, cfg, window, adapter)
	require.NoError(t, err)
	return ctx, adapter.Device()
}

// runGPU completes deferred work in the background until the returned func is called.
func runGPU(q *soft.Queue, delay time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				q.CompleteAll()
				return
			case <-time.After(delay):
				q.CompleteAll()
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
	}
}

type countingDestroyer struct {
	name string
	log  *[]string
}

func (d countingDestroyer) Destroy() {
	*d.log = append(*d.log, d.name)
}

func beginFrame(t *testing.T, ctx *dxr.Context) *dxr.Frame {
	t.Helper()
	f, err := ctx.BeginFrame()
	require.NoError(t, err)
	return f
}
