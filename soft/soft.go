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

/*
Package soft is a software implementation of the dxr device interfaces. Memory
is plain byte slices, command lists are recorded and replayed by the queue in
submission order and every replayed command is validated the way a debug
layer would, reporting problems through the device's message callback.
*/
package soft

import (
	"fmt"
	"time"

	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("dxr", "soft"),
}

const (
	DescriptorIncrementSize = 32
	resourceAlignment       = 64 * 1024
	heapAddressSpan         = 1 << 24
)

const (
	MessageIDBarrierMismatch   int32 = 527
	MessageIDCopyDestState     int32 = 540
	MessageIDCopyOutOfBounds   int32 = 541
	MessageIDCopyMismatch      int32 = 542
	MessageIDPresentState      int32 = 900
	MessageIDListClosed        int32 = 905
	MessageIDViewType          int32 = 910
	MessageIDViewFlags         int32 = 911
	MessageIDUseAfterDestroy   int32 = 920
	MessageIDLiveObject        int32 = 930
	MessageIDUnsupportedFormat int32 = 940
)

type QueueMode uint8

const (
	// QueueModeImmediate replays work as soon as it is submitted.
	QueueModeImmediate QueueMode = iota
	// QueueModeAsync replays work on a worker goroutine.
	QueueModeAsync
	// QueueModeDeferred holds work until Queue.CompleteUpTo or Queue.CompleteAll.
	QueueModeDeferred
)

func (m QueueMode) String() string {
	switch m {
	case QueueModeImmediate:
		return "Immediate"
	case QueueModeAsync:
		return "Async"
	case QueueModeDeferred:
		return "Deferred"
	default:
		return fmt.Sprintf("QueueMode(%d)", uint8(m))
	}
}

type Adapter struct {
	name     string
	software bool
	failure  error
	mode     QueueMode
	latency  time.Duration
	device   *Device
}

var _ dxr.Adapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithSoftware marks the adapter as a software fallback adapter.
func WithSoftware() Option {
	return func(a *Adapter) { a.software = true }
}

// WithFailure makes CreateDevice fail with err.
func WithFailure(err error) Option {
	return func(a *Adapter) { a.failure = err }
}

func WithQueueMode(m QueueMode) Option {
	return func(a *Adapter) { a.mode = m }
}

// WithLatency delays the replay of each queued operation in QueueModeAsync.
func WithLatency(d time.Duration) Option {
	return func(a *Adapter) { a.latency = d }
}

func NewAdapter(name string, opts ...Option) *Adapter {
	a := Adapter{name: name}
	for _, o := range opts {
		o(&a)
	}
	return &a
}

func (a *Adapter) Name() string {
	return a.name
}

func (a *Adapter) Software() bool {
	return a.software
}

func (a *Adapter) CreateDevice() (dxr.Device, error) {
	if a.failure != nil {
		return nil, debug.ErrorWrapf(a.failure, "Failed to create device on adapter %q", a.name)
	}
	a.device = NewDevice(a.name, a.mode, a.latency)
	return a.device, nil
}

// Device returns the last device created by a, nil if none.
func (a *Adapter) Device() *Device {
	return a.device
}
