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
	"unsafe"

	"goarrg.com"
	"goarrg.com/debug"
	"golang.org/x/exp/constraints"
)

type platform struct{}

func (platform) Abort()                           { panic("Fatal Error") }
func (platform) AbortPopup(f string, args ...any) { panic("Fatal Error") }

var instance = struct {
	platform goarrg.PlatformInterface
	logger   *debug.Logger
}{
	platform: platform{},
	logger:   debug.NewLogger("dxr", "internal", "util"),
}

func abort(fmt string, args ...any) {
	instance.logger.EPrintf(fmt, args...)
	instance.platform.Abort()
}

func Init(platform goarrg.PlatformInterface) {
	instance.platform = platform
}

// SliceBytes reinterprets data as raw bytes without copying.
func SliceBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(data))), uintptr(len(data))*unsafe.Sizeof(data[0]))
}

// ValueBytes reinterprets *v as raw bytes without copying.
func ValueBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

func SizeOf[T any]() uint64 {
	var v T
	return uint64(unsafe.Sizeof(v))
}

// AlignUp rounds v up to the next multiple of align, align must be a power of two.
func AlignUp[N constraints.Integer](v, align N) N {
	return (v + align - 1) &^ (align - 1)
}

func IsPowerOfTwo[N constraints.Integer](v N) bool {
	return v > 0 && (v&(v-1)) == 0
}

func HasBits[N constraints.Unsigned](t, want N) bool {
	return (t & want) == want
}
