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
	"strings"
)

type MessageSeverity uint8

const (
	MessageSeverityVerbose MessageSeverity = iota
	MessageSeverityInfo
	MessageSeverityWarning
	MessageSeverityError
)

// DebugMessage is a message from a backend validation layer.
type DebugMessage struct {
	Severity MessageSeverity
	Category string
	ID       int32
	Objects  []string
	Text     string
}

// DebugMessenger is implemented by devices that report validation messages.
type DebugMessenger interface {
	SetMessageCallback(func(DebugMessage))
}

var messageIDBlacklist = map[int32]struct{}{
	// clear value does not match the optimized clear value
	820: {},
	// map of a resource that is already mapped
	1011: {},
}

func (c *Context) abort(fmt string, args ...any) {
	c.logger.EPrintf(fmt, args...)
	c.platform.Abort()
}

func (c *Context) abortPopup(fmt string, args ...any) {
	c.logger.EPrintf("[popup] "+fmt, args...)
	c.platform.AbortPopup(fmt, args...)
}

func (c *Context) SetLogLevel(l uint32) {
	c.logger.SetLevel(l)
}

func (c *Context) onDebugMessage(m DebugMessage) {
	if _, blacklisted := messageIDBlacklist[m.ID]; blacklisted {
		return
	}

	sb := strings.Builder{}
	if m.Category != "" {
		sb.WriteString("[" + m.Category + "] ")
	}
	sb.WriteString(fmt.Sprintf("[MessageId: %d] ", m.ID))
	for _, o := range m.Objects {
		sb.WriteString("[Obj: " + o + "] ")
	}
	text := strings.TrimSpace(m.Text)

	switch m.Severity {
	case MessageSeverityError:
		c.stats.validationErrors.Add(1)
		c.logger.EPrintf("%s\n%s", sb.String(), text)
	case MessageSeverityWarning:
		c.stats.validationWarnings.Add(1)
		c.logger.WPrintf("%s\n%s", sb.String(), text)
	case MessageSeverityInfo:
		c.logger.IPrintf("%s\n%s", sb.String(), text)
	default:
		c.logger.VPrintf("%s\n%s", sb.String(), text)
	}
}
