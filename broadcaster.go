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
	"github.com/google/btree"
	"goarrg.com/debug"
)

type Flusher interface {
	FlushIfDirty(rec CommandRecorder, targetFence uint64) bool
}

// BroadcastToken identifies a registration, the zero token is never handed out.
type BroadcastToken uint64

type broadcastEntry struct {
	token   BroadcastToken
	flusher Flusher
}

func lessBroadcastEntry(a, b broadcastEntry) bool {
	return a.token < b.token
}

/*
UpdateBroadcaster holds every live pair and flushes them in registration
order. Entries may unregister themselves, or any other entry, while RunAll is
iterating, an entry removed mid run is not visited.
*/
type UpdateBroadcaster struct {
	logger  *debug.Logger
	next    BroadcastToken
	entries *btree.BTreeG[broadcastEntry]
	scratch []broadcastEntry
}

func NewUpdateBroadcaster() *UpdateBroadcaster {
	return &UpdateBroadcaster{
		logger:  debug.NewLogger("dxr", "broadcaster"),
		entries: btree.NewG(8, lessBroadcastEntry),
	}
}

func (b *UpdateBroadcaster) Register(f Flusher) BroadcastToken {
	b.next++
	b.entries.ReplaceOrInsert(broadcastEntry{token: b.next, flusher: f})
	return b.next
}

// Unregister reports whether token was registered.
func (b *UpdateBroadcaster) Unregister(token BroadcastToken) bool {
	_, ok := b.entries.Delete(broadcastEntry{token: token})
	return ok
}

func (b *UpdateBroadcaster) Registered(token BroadcastToken) bool {
	return b.entries.Has(broadcastEntry{token: token})
}

func (b *UpdateBroadcaster) Len() int {
	return b.entries.Len()
}

// RunAll calls FlushIfDirty on every entry and returns how many issued a copy.
func (b *UpdateBroadcaster) RunAll(rec CommandRecorder, targetFence uint64) int {
	b.scratch = b.scratch[:0]
	b.entries.Ascend(func(e broadcastEntry) bool {
		b.scratch = append(b.scratch, e)
		return true
	})

	copies := 0
	for i, e := range b.scratch {
		if b.entries.Has(e) && e.flusher.FlushIfDirty(rec, targetFence) {
			copies++
		}
		b.scratch[i] = broadcastEntry{}
	}
	if copies > 0 {
		b.logger.VPrintf("Flushed %d of %d resources for fence %d", copies, len(b.scratch), targetFence)
	}
	return copies
}
