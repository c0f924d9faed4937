// Package probe reads device capabilities from a live OpenGL context
// created through SDL2.
package probe

import (
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-meshprep/internal/config"
	"github.com/Faultbox/midgard-meshprep/internal/gpucaps"
	"github.com/Faultbox/midgard-meshprep/internal/logger"
)

// Probe creates a hidden window with an OpenGL 4.6 core context and reads
// the extension list. It must run on the main goroutine.
func Probe() (gpucaps.Capabilities, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := logger.Named("gpucaps")

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return gpucaps.Capabilities{}, fmt.Errorf("SDL_Init failed: %w", err)
	}
	defer sdl.Quit()

	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 6)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)

	window, err := sdl.CreateWindow("meshprep probe",
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		1, 1, sdl.WINDOW_OPENGL|sdl.WINDOW_HIDDEN)
	if err != nil {
		return gpucaps.Capabilities{}, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}
	defer window.Destroy()

	ctx, err := window.GLCreateContext()
	if err != nil {
		return gpucaps.Capabilities{}, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}
	defer sdl.GLDeleteContext(ctx)

	if err := gl.Init(); err != nil {
		return gpucaps.Capabilities{}, fmt.Errorf("gl.Init failed: %w", err)
	}

	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	exts := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		exts = append(exts, gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i))))
	}

	caps := gpucaps.FromExtensions(exts)
	caps.Renderer = gl.GoStr(gl.GetString(gl.RENDERER))

	log.Info("probed device",
		zap.String("renderer", caps.Renderer),
		zap.Int("extensions", len(exts)),
		zap.Bool("mesh_shading", caps.MeshShading),
		zap.Bool("task_shading", caps.TaskShading),
	)
	return caps, nil
}

// Resolve returns the configured capabilities, or probed ones when
// cfg.Probe is set.
func Resolve(cfg config.DeviceConfig) gpucaps.Capabilities {
	return gpucaps.Resolve(cfg, Probe)
}
