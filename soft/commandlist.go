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

package soft

import (
	"fmt"

	"goarrg.com/debug"
	"goarrg.com/rhi/dxr"
)

type commandKind uint8

const (
	commandBarrier commandKind = iota
	commandCopyBuffer
	commandCopyTexture
)

type command struct {
	kind      commandKind
	dst       *Resource
	src       *Resource
	before    dxr.ResourceState
	after     dxr.ResourceState
	dstOffset uint64
	srcOffset uint64
	size      uint64
	dstSub    int
	srcSub    int
}

type CommandAllocator struct {
	device *Device
	resets uint64
}

var _ dxr.CommandAllocator = (*CommandAllocator)(nil)

func (a *CommandAllocator) Reset() error {
	a.resets++
	return nil
}

func (a *CommandAllocator) Destroy() {}

type CommandList struct {
	device    *Device
	allocator *CommandAllocator
	open      bool
	commands  []command
	destroyed bool
}

var _ dxr.CommandList = (*CommandList)(nil)

func (l *CommandList) Reset(allocator dxr.CommandAllocator) error {
	if l.open {
		return debug.Errorf("Command list reset while open")
	}
	a, ok := allocator.(*CommandAllocator)
	if !ok {
		return debug.Errorf("Command allocator %T was not created by a soft device", allocator)
	}
	l.allocator = a
	l.commands = l.commands[:0]
	l.open = true
	return nil
}

func (l *CommandList) Close() error {
	if !l.open {
		return debug.Errorf("Command list closed twice")
	}
	l.open = false
	return nil
}

// Len returns the number of commands recorded since the last Reset.
func (l *CommandList) Len() int {
	return len(l.commands)
}

func (l *CommandList) record(c command, op string) {
	if !l.open {
		l.device.mu.Lock()
		l.device.emit(dxr.MessageSeverityError, MessageIDListClosed, nil, "%s recorded into a closed command list", op)
		l.device.mu.Unlock()
		return
	}
	if (c.dst == nil) || (c.kind != commandBarrier && c.src == nil) {
		l.device.mu.Lock()
		l.device.emit(dxr.MessageSeverityError, MessageIDUseAfterDestroy, nil, "%s recorded with a resource that was not created by a soft device", op)
		l.device.mu.Unlock()
		return
	}
	l.commands = append(l.commands, c)
}

func (l *CommandList) ResourceBarrier(resource dxr.Resource, before, after dxr.ResourceState) {
	l.record(command{kind: commandBarrier, dst: asResource(resource), before: before, after: after}, "ResourceBarrier")
}

func (l *CommandList) CopyBufferRegion(dst dxr.Resource, dstOffset uint64, src dxr.Resource, srcOffset, numBytes uint64) {
	l.record(command{
		kind: commandCopyBuffer, dst: asResource(dst), src: asResource(src),
		dstOffset: dstOffset, srcOffset: srcOffset, size: numBytes,
	}, "CopyBufferRegion")
}

func (l *CommandList) CopyTextureRegion(dst dxr.Resource, dstSubresource int, src dxr.Resource, srcSubresource int) {
	l.record(command{
		kind: commandCopyTexture, dst: asResource(dst), src: asResource(src),
		dstSub: dstSubresource, srcSub: srcSubresource,
	}, "CopyTextureRegion")
}

func (l *CommandList) Destroy() {
	l.destroyed = true
	l.commands = nil
}

// replay must be called with mu held. It only fails on use of a destroyed resource.
func (d *Device) replay(c command) error {
	if c.dst.destroyed {
		d.emit(dxr.MessageSeverityError, MessageIDUseAfterDestroy, []string{c.dst.name}, "Destroyed resource used by an executing command list")
		return debug.Errorf("Resource %q used after destruction", c.dst.name)
	}
	if c.src != nil && c.src.destroyed {
		d.emit(dxr.MessageSeverityError, MessageIDUseAfterDestroy, []string{c.src.name}, "Destroyed resource used by an executing command list")
		return debug.Errorf("Resource %q used after destruction", c.src.name)
	}

	switch c.kind {
	case commandBarrier:
		d.stats.Barriers++
		if c.dst.upload {
			d.emit(dxr.MessageSeverityWarning, MessageIDBarrierMismatch, []string{c.dst.name}, "Barrier on an upload heap resource")
			return nil
		}
		if c.dst.state != c.before {
			d.emit(dxr.MessageSeverityError, MessageIDBarrierMismatch, []string{c.dst.name},
				"Barrier before state %s does not match current state %s", c.before, c.dst.state)
		}
		c.dst.state = c.after

	case commandCopyBuffer:
		if !d.copyCheck(c) {
			return nil
		}
		dst, src := c.dst.data[0], c.src.data[0]
		if c.dstOffset+c.size > uint64(len(dst)) || c.srcOffset+c.size > uint64(len(src)) {
			d.emit(dxr.MessageSeverityError, MessageIDCopyOutOfBounds, []string{c.dst.name, c.src.name},
				"Copy of %d bytes out of bounds, dst: [%d, %d), src: [%d, %d)", c.size, c.dstOffset, len(dst), c.srcOffset, len(src))
			return nil
		}
		copy(dst[c.dstOffset:c.dstOffset+c.size], src[c.srcOffset:c.srcOffset+c.size])
		d.stats.BufferCopies++
		d.stats.BytesCopied += c.size

	case commandCopyTexture:
		if !d.copyCheck(c) {
			return nil
		}
		if c.dstSub < 0 || c.dstSub >= len(c.dst.data) || c.srcSub < 0 || c.srcSub >= len(c.src.data) {
			d.emit(dxr.MessageSeverityError, MessageIDCopyOutOfBounds, []string{c.dst.name, c.src.name},
				"Subresource out of range, dst: %d of %d, src: %d of %d", c.dstSub, len(c.dst.data), c.srcSub, len(c.src.data))
			return nil
		}
		dst, src := c.dst.data[c.dstSub], c.src.data[c.srcSub]
		if len(dst) != len(src) || c.dst.desc.Format != c.src.desc.Format {
			d.emit(dxr.MessageSeverityError, MessageIDCopyMismatch, []string{c.dst.name, c.src.name},
				"Subresource layouts differ, dst: %d bytes, src: %d bytes", len(dst), len(src))
			return nil
		}
		copy(dst, src)
		d.stats.TextureCopies++
		d.stats.BytesCopied += uint64(len(dst))

	default:
		panic(fmt.Sprintf("unknown command kind %d", c.kind))
	}
	return nil
}

func (d *Device) copyCheck(c command) bool {
	if c.dst.upload {
		d.emit(dxr.MessageSeverityError, MessageIDCopyDestState, []string{c.dst.name}, "Copy destination is on an upload heap")
		return false
	}
	if !c.dst.state.HasBits(dxr.ResourceStateCopyDest) {
		d.emit(dxr.MessageSeverityError, MessageIDCopyDestState, []string{c.dst.name},
			"Copy destination is in state %s, expected CopyDest", c.dst.state)
	}
	if !c.src.upload && !c.src.state.HasBits(dxr.ResourceStateCopySource) {
		d.emit(dxr.MessageSeverityError, MessageIDCopyDestState, []string{c.src.name},
			"Copy source is in state %s, expected CopySource", c.src.state)
	}
	if c.dst.desc.Dimension != c.src.desc.Dimension {
		d.emit(dxr.MessageSeverityError, MessageIDCopyMismatch, []string{c.dst.name, c.src.name}, "Copy between a buffer and a texture")
		return false
	}
	return true
}
