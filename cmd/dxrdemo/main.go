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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gogpu/gputypes"
	"goarrg.com/debug"
	"goarrg.com/gmath"
	"goarrg.com/rhi/dxr"
	"goarrg.com/rhi/dxr/managed"
	"goarrg.com/rhi/dxr/shapes"
	"goarrg.com/rhi/dxr/soft"
)

var flags flag.FlagSet

type platform struct{}

func (platform) Abort() { panic("Fatal Error") }
func (platform) AbortPopup(f string, args ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	panic("Fatal Error")
}

type size struct {
	width, height int
}

func (s *size) UnmarshalText(data []byte) error {
	parts := strings.Split(string(data), "x")
	if len(parts) != 2 {
		return debug.Errorf("Size string not in the format \"WxH\"")
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return debug.ErrorWrapf(err, "Invalid size string")
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return debug.ErrorWrapf(err, "Invalid size string")
	}
	if w < 0 || h < 0 {
		return debug.Errorf("Size must not be negative")
	}
	*s = size{w, h}
	return nil
}

func (s size) MarshalText() (text []byte, err error) {
	return fmt.Appendf(nil, "%dx%d", s.width, s.height), nil
}

type queueMode soft.QueueMode

func (m *queueMode) UnmarshalText(data []byte) error {
	switch string(data) {
	case "immediate":
		*m = queueMode(soft.QueueModeImmediate)
	case "async":
		*m = queueMode(soft.QueueModeAsync)
	default:
		return debug.Errorf("Invalid value: %q", data)
	}
	return nil
}

func (m queueMode) MarshalText() (text []byte, err error) {
	switch soft.QueueMode(m) {
	case soft.QueueModeImmediate:
		return ([]byte)("immediate"), nil
	case soft.QueueModeAsync:
		return ([]byte)("async"), nil
	default:
		return nil, debug.Errorf("Invalid value: %d", m)
	}
}

type objectConstants struct {
	World [16]float32
	Tint  [4]float32
}

type report struct {
	Stats     dxr.Stats
	Device    soft.Stats
	DrawCalls int
	Elapsed   string
}

func main() {
	debug.SetLevel(debug.LogLevelWarn)

	flags.Usage = help
	flags.Init("", flag.ExitOnError)

	v := flags.Bool("v", false, "Verbose - Print high level tasks")
	vv := flags.Bool("vv", false, "Very Verbose - Print everything")

	frames := flags.Int("frames", 120, "Number of frames to render.")
	inflight := flags.Int("inflight", dxr.DefaultFramesInFlight, "Maximum number of frames in flight.")
	resizeAt := flags.Int("resize-at", 60, "Frame at which the window is resized, negative disables resizing.")

	windowSize := size{1280, 720}
	flags.TextVar(&windowSize, "size", size{1280, 720}, "Initial window size in the format \"WxH\".")
	resizeTo := size{}
	flags.TextVar(&resizeTo, "resize-to", size{640, 360}, "Window size applied at -resize-at in the format \"WxH\".\n"+
		"A zero width or height puts the renderer to sleep.")

	mode := queueMode(soft.QueueModeImmediate)
	flags.TextVar(&mode, "queue", queueMode(soft.QueueModeImmediate), "Sets how the software device replays submitted work.\n"+
		"Valid values are \"immediate\" and \"async\".")
	async := flags.Bool("async", false, "Shorthand for -queue async.")
	latency := flags.Duration("latency", time.Millisecond, "Delay of each queued operation in async mode.")
	failHardware := flags.Bool("fail-hardware", false, "Adds a hardware adapter that fails device creation to exercise the software fallback.")

	err := flags.Parse(os.Args[1:])
	if err != nil {
		panic(err)
	}

	if *v {
		debug.SetLevel(debug.LogLevelInfo)
	} else if *vv {
		debug.SetLevel(debug.LogLevelVerbose)
	}
	if *async {
		mode = queueMode(soft.QueueModeAsync)
	}

	cfg := dxr.DefaultConfig()
	cfg.MaxFramesInFlight = int32(*inflight)

	var adapters []dxr.Adapter
	if *failHardware {
		adapters = append(adapters, soft.NewAdapter("hardware", soft.WithFailure(debug.Errorf("Adapter removed"))))
	}
	adapter := soft.NewAdapter("soft", soft.WithSoftware(), soft.WithQueueMode(soft.QueueMode(mode)), soft.WithLatency(*latency))
	adapters = append(adapters, adapter)

	shapes.Init(platform{})
	window := soft.NewWindow(windowSize.width, windowSize.height)
	ctx, err := dxr.NewContext(platform{}, cfg, window, adapters...)
	if err != nil {
		debug.EPrintf("Failed to create context: %v", err)
		os.Exit(1)
	}

	start := time.Now()
	draws, err := run(ctx, window, *frames, *resizeAt, resizeTo)
	if err != nil {
		debug.EPrintf("%v", err)
		ctx.Destroy()
		os.Exit(1)
	}
	if err := ctx.Flush(); err != nil {
		debug.EPrintf("Failed to flush: %v", err)
	}

	r := report{Stats: ctx.Stats(), Device: adapter.Device().Stats(), DrawCalls: draws, Elapsed: time.Since(start).String()}
	debug.IPrintf("Stats: %s", r.Stats)
	debug.IPrintf("Device: %s", r.Device)
	ctx.Destroy()

	j, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(j))
}

func checker(info dxr.TextureInfo) []byte {
	data := make([]byte, 0, info.MipSliceSize())
	for m := 0; m < int(info.MipLevels); m++ {
		w := int(info.MipWidth(m))
		for y := 0; y < w; y++ {
			for x := 0; x < w; x++ {
				c := byte(0x20)
				if (x/max(w/8, 1)+y/max(w/8, 1))%2 == 0 {
					c = 0xE0
				}
				data = append(data, c, c, c, 0xFF)
			}
		}
	}
	return data
}

func rotationY(angle float64) [16]float32 {
	c, s := float32(math.Cos(angle)), float32(math.Sin(angle))
	return [16]float32{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

func run(ctx *dxr.Context, window *soft.Window, frames, resizeAt int, resizeTo size) (int, error) {
	textures := managed.NewTextureTable(ctx)
	info, err := dxr.NewTextureInfo(gputypes.TextureFormatRGBA8Unorm, 64, dxr.TextureFlagMipped)
	if err != nil {
		return 0, err
	}
	if _, err := textures.Add("checker", info, checker(info)); err != nil {
		return 0, err
	}

	mesh, err := managed.NewBoxMesh(ctx, "box", 1, 1, 1)
	if err != nil {
		return 0, err
	}
	hud, err := managed.NewUIMesh(ctx, "hud", 64*shapes.QuadVertexCount)
	if err != nil {
		return 0, err
	}
	objects, err := managed.NewObjectConstants[objectConstants](ctx, "objects", 2)
	if err != nil {
		return 0, err
	}

	box := managed.NewStaticItem(ctx, "box", 0, mesh, "checker")
	text := managed.NewUIItem(ctx, "hud", 1, hud, "")
	items := []managed.RenderItem{box, text}
	build := func(item managed.RenderItem) objectConstants {
		switch it := item.(type) {
		case *managed.StaticItem:
			return objectConstants{World: it.World, Tint: [4]float32{1, 1, 1, 1}}
		case *managed.UIItem:
			return objectConstants{World: [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, it.Offset[0], it.Offset[1], 0, 1}}
		}
		return objectConstants{}
	}

	draws := 0
	var vertices []shapes.UIVertex
	for i := 0; i < frames; i++ {
		if i == resizeAt {
			window.SetClientSize(resizeTo.width, resizeTo.height)
			if err := ctx.Resize(window.ClientSize()); err != nil {
				return draws, debug.ErrorWrapf(err, "Failed to resize at frame %d", i)
			}
		}

		f, err := ctx.BeginFrame()
		if err != nil {
			return draws, err
		}

		box.World = rotationY(float64(i) * 0.05)
		box.MarkDirty()
		vertices = shapes.AppendText(vertices[:0], fmt.Sprintf("frame %d", i),
			gmath.Point3f32{X: 8, Y: 8}, gmath.Vector3f32{X: 8, Y: 16}, gputypes.ColorWhite)
		if err := hud.Write(f, vertices); err != nil {
			return draws, err
		}
		if _, err := managed.UpdateConstants(f, items, objects, build); err != nil {
			return draws, err
		}
		calls, err := managed.BuildDrawCalls(f, items, objects, textures)
		if err != nil {
			return draws, err
		}
		draws += len(calls)

		if err := f.End(); err != nil {
			return draws, err
		}
	}

	f, err := ctx.BeginFrame()
	if err != nil {
		return draws, err
	}
	textures.Remove(f, "checker")
	hud.Destroy(f)
	f.QueueDestroy(mesh, objects)
	return draws, f.End()
}

func help() {
	fmt.Fprintf(os.Stderr, "dxrdemo renders a rotating box with a text overlay on the software device\n"+
		"and prints the renderer statistics as JSON.\n"+
		"\n")
	args := ""
	flags.VisitAll(func(f *flag.Flag) {
		n, u := flag.UnquoteUsage(f)
		if f.DefValue != "" {
			u += "\n\nDefaults to \"" + f.DefValue + "\"."
		}
		args += "\t-" + f.Name + " " + n + "\n\t\t" + strings.ReplaceAll(strings.TrimSpace(u), "\n", "\n\t\t") + "\n"
	})
	fmt.Fprintf(os.Stderr, "Usage:\n\t%s [arguments]\n\nArguments:\n%s", filepath.Base(os.Args[0]), args)
}
