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

package dxr

import (
	"fmt"
	"time"
)

type ErrorInvalidConfiguration struct {
	Reason string
}

func (ErrorInvalidConfiguration) Is(target error) bool {
	_, ok := target.(ErrorInvalidConfiguration)
	return ok
}

func (e ErrorInvalidConfiguration) Error() string {
	if e.Reason == "" {
		return "Invalid configuration"
	}
	return "Invalid configuration: " + e.Reason
}

type ErrorUnsupportedOperation struct {
	Op     string
	Reason string
}

func (ErrorUnsupportedOperation) Is(target error) bool {
	_, ok := target.(ErrorUnsupportedOperation)
	return ok
}

func (e ErrorUnsupportedOperation) Error() string {
	return fmt.Sprintf("Unsupported operation %q: %s", e.Op, e.Reason)
}

// ErrorStagingRetired is returned when writing to a read-only pair after its
// first flush. It also matches ErrorUnsupportedOperation.
type ErrorStagingRetired struct {
	Name string
}

func (ErrorStagingRetired) Is(target error) bool {
	switch target.(type) {
	case ErrorStagingRetired, ErrorUnsupportedOperation:
		return true
	}
	return false
}

func (e ErrorStagingRetired) Error() string {
	return fmt.Sprintf("Staging buffer of read-only resource %q has been retired", e.Name)
}

type ErrorPoolExhausted struct {
	Pool     DescriptorPool
	Capacity int
}

func (ErrorPoolExhausted) Is(target error) bool {
	_, ok := target.(ErrorPoolExhausted)
	return ok
}

func (e ErrorPoolExhausted) Error() string {
	return fmt.Sprintf("Descriptor pool %s exhausted, all %d slots in use", e.Pool, e.Capacity)
}

type ErrorDoubleFree struct {
	Pool  DescriptorPool
	Index int
}

func (ErrorDoubleFree) Is(target error) bool {
	_, ok := target.(ErrorDoubleFree)
	return ok
}

func (e ErrorDoubleFree) Error() string {
	return fmt.Sprintf("Descriptor pool %s slot %d released while already free", e.Pool, e.Index)
}

type ErrorOutOfRange struct {
	What  string
	Index int
	Limit int
}

func (ErrorOutOfRange) Is(target error) bool {
	_, ok := target.(ErrorOutOfRange)
	return ok
}

func (e ErrorOutOfRange) Error() string {
	return fmt.Sprintf("%s index %d out of range [0, %d)", e.What, e.Index, e.Limit)
}

type ErrorFenceTimeout struct {
	Value     uint64
	Completed uint64
	Timeout   time.Duration
}

func (ErrorFenceTimeout) Is(target error) bool {
	_, ok := target.(ErrorFenceTimeout)
	return ok
}

func (e ErrorFenceTimeout) Error() string {
	return fmt.Sprintf("Timed out after %s waiting for fence value %d, completed value is %d", e.Timeout, e.Value, e.Completed)
}

type ErrorDeviceCreation struct {
	Reason string
}

func (ErrorDeviceCreation) Is(target error) bool {
	_, ok := target.(ErrorDeviceCreation)
	return ok
}

func (e ErrorDeviceCreation) Error() string {
	if e.Reason == "" {
		return "Failed to create device"
	}
	return "Failed to create device: " + e.Reason
}
