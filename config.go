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
	"bytes"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"goarrg.com/gmath"
)

const (
	MaxFramesInFlightLimit    = 16
	DefaultFramesInFlight     = 3
	ConstantBufferPlacement   = 256
	DefaultFenceWaitTimeout   = 10 * time.Second
	defaultRTVPoolSize        = 16
	defaultDSVPoolSize        = 16
	defaultShaderVisibleSlots = 1024
)

type Config struct {
	MaxFramesInFlight int32

	RTVPoolSize           int32
	DSVPoolSize           int32
	ShaderVisiblePoolSize int32

	// ConstantBufferAlignment must be a power of two and a multiple of 256.
	ConstantBufferAlignment uint32

	// FenceWaitTimeout bounds every blocking fence wait, zero waits forever.
	FenceWaitTimeout time.Duration

	BackBufferFormat gputypes.TextureFormat
	DepthFormat      gputypes.TextureFormat
	GBufferCount     int32
	GBufferFormat    gputypes.TextureFormat

	VSync                   bool
	DisableSoftwareFallback bool
}

func DefaultConfig() Config {
	return Config{
		MaxFramesInFlight:       DefaultFramesInFlight,
		RTVPoolSize:             defaultRTVPoolSize,
		DSVPoolSize:             defaultDSVPoolSize,
		ShaderVisiblePoolSize:   defaultShaderVisibleSlots,
		ConstantBufferAlignment: ConstantBufferPlacement,
		FenceWaitTimeout:        DefaultFenceWaitTimeout,
		BackBufferFormat:        gputypes.TextureFormatRGBA8Unorm,
		DepthFormat:             gputypes.TextureFormatDepth24PlusStencil8,
		GBufferCount:            2,
		GBufferFormat:           gputypes.TextureFormatRGBA8Unorm,
	}
}

func (c *Config) MarshalJSON() ([]byte, error) {
	buff := bytes.Buffer{}
	buff.WriteString("{")

	buff.WriteString(fmt.Sprintf("\"MaxFramesInFlight\": %d,", c.MaxFramesInFlight))
	buff.WriteString(fmt.Sprintf("\"RTVPoolSize\": %d,", c.RTVPoolSize))
	buff.WriteString(fmt.Sprintf("\"DSVPoolSize\": %d,", c.DSVPoolSize))
	buff.WriteString(fmt.Sprintf("\"ShaderVisiblePoolSize\": %d,", c.ShaderVisiblePoolSize))
	buff.WriteString(fmt.Sprintf("\"ConstantBufferAlignment\": %d,", c.ConstantBufferAlignment))
	buff.WriteString(fmt.Sprintf("\"FenceWaitTimeout\": %q,", c.FenceWaitTimeout.String()))
	buff.WriteString(fmt.Sprintf("\"BackBufferFormat\": %s,", jsonString(c.BackBufferFormat)))
	buff.WriteString(fmt.Sprintf("\"DepthFormat\": %s,", jsonString(c.DepthFormat)))
	buff.WriteString(fmt.Sprintf("\"GBufferCount\": %d,", c.GBufferCount))
	buff.WriteString(fmt.Sprintf("\"GBufferFormat\": %s,", jsonString(c.GBufferFormat)))
	buff.WriteString(fmt.Sprintf("\"VSync\": %t,", c.VSync))
	buff.WriteString(fmt.Sprintf("\"DisableSoftwareFallback\": %t,", c.DisableSoftwareFallback))

	buff.Truncate(buff.Len() - 1)
	buff.WriteString("}")
	return buff.Bytes(), nil
}

func (c *Config) validate() error {
	if !gmath.InRange(c.MaxFramesInFlight, 1, MaxFramesInFlightLimit) {
		return ErrorInvalidConfiguration{Reason: fmt.Sprintf("Config.MaxFramesInFlight must be within [1, %d], got %d", MaxFramesInFlightLimit, c.MaxFramesInFlight)}
	}
	if c.RTVPoolSize <= 0 {
		return ErrorInvalidConfiguration{Reason: "Config.RTVPoolSize must be >= 1"}
	}
	if c.DSVPoolSize <= 0 {
		return ErrorInvalidConfiguration{Reason: "Config.DSVPoolSize must be >= 1"}
	}
	if c.ShaderVisiblePoolSize <= 0 {
		return ErrorInvalidConfiguration{Reason: "Config.ShaderVisiblePoolSize must be >= 1"}
	}
	if c.ConstantBufferAlignment == 0 {
		c.ConstantBufferAlignment = ConstantBufferPlacement
	} else if c.ConstantBufferAlignment%ConstantBufferPlacement != 0 || c.ConstantBufferAlignment&(c.ConstantBufferAlignment-1) != 0 {
		return ErrorInvalidConfiguration{Reason: fmt.Sprintf("Config.ConstantBufferAlignment must be a power of two multiple of %d, got %d", ConstantBufferPlacement, c.ConstantBufferAlignment)}
	}
	if c.FenceWaitTimeout < 0 {
		return ErrorInvalidConfiguration{Reason: "Config.FenceWaitTimeout must be >= 0"}
	}
	if c.BackBufferFormat == gputypes.TextureFormatUndefined {
		return ErrorInvalidConfiguration{Reason: "Config.BackBufferFormat is undefined"}
	}
	if c.DepthFormat == gputypes.TextureFormatUndefined {
		return ErrorInvalidConfiguration{Reason: "Config.DepthFormat is undefined"}
	}
	if c.GBufferCount < 0 {
		return ErrorInvalidConfiguration{Reason: "Config.GBufferCount must be >= 0"}
	}
	if c.GBufferCount > 0 && c.GBufferFormat == gputypes.TextureFormatUndefined {
		return ErrorInvalidConfiguration{Reason: "Config.GBufferFormat is undefined"}
	}
	// each back buffer, plus each g-buffer, needs its own render target view
	if need := c.MaxFramesInFlight + c.GBufferCount; c.RTVPoolSize < need {
		return ErrorInvalidConfiguration{Reason: fmt.Sprintf("Config.RTVPoolSize must be >= %d to hold back buffers and g-buffers, got %d", need, c.RTVPoolSize)}
	}
	if c.ShaderVisiblePoolSize < c.GBufferCount {
		return ErrorInvalidConfiguration{Reason: fmt.Sprintf("Config.ShaderVisiblePoolSize must be >= %d to hold g-buffers", c.GBufferCount)}
	}
	return nil
}

type config struct {
	maxFramesInFlight       int
	constantBufferAlignment uint64
	fenceWaitTimeout        time.Duration
	backBufferFormat        gputypes.TextureFormat
	depthFormat             gputypes.TextureFormat
	gBufferCount            int
	gBufferFormat           gputypes.TextureFormat
	vsync                   bool
}

func (c *config) use(user Config) {
	c.maxFramesInFlight = int(user.MaxFramesInFlight)
	c.constantBufferAlignment = uint64(user.ConstantBufferAlignment)
	c.fenceWaitTimeout = user.FenceWaitTimeout
	c.backBufferFormat = user.BackBufferFormat
	c.depthFormat = user.DepthFormat
	c.gBufferCount = int(user.GBufferCount)
	c.gBufferFormat = user.GBufferFormat
	c.vsync = user.VSync
}
