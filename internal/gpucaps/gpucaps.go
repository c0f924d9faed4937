// Package gpucaps reports the device capabilities that gate meshlet output.
package gpucaps

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-meshprep/internal/config"
	"github.com/Faultbox/midgard-meshprep/internal/logger"
)

// Capabilities are the device features mesh preparation cares about.
type Capabilities struct {
	MeshShading bool
	TaskShading bool
	// Renderer is the GL_RENDERER string when probed.
	Renderer string
}

// FromConfig returns the capabilities declared in configuration.
func FromConfig(cfg config.DeviceConfig) Capabilities {
	return Capabilities{
		MeshShading: cfg.MeshShading,
		TaskShading: cfg.MeshShading && cfg.TaskShading,
	}
}

// Extensions that expose mesh and task shaders on OpenGL.
const (
	extNVMeshShader  = "GL_NV_mesh_shader"
	extEXTMeshShader = "GL_EXT_mesh_shader"
)

// FromExtensions derives capabilities from an OpenGL extension list. Both
// known mesh shader extensions also provide task shaders.
func FromExtensions(extensions []string) Capabilities {
	var caps Capabilities
	for _, ext := range extensions {
		switch strings.TrimSpace(ext) {
		case extNVMeshShader, extEXTMeshShader:
			caps.MeshShading = true
			caps.TaskShading = true
		}
	}
	return caps
}

// Resolve returns the configured capabilities, or the result of probe when
// cfg.Probe is set. A failed probe falls back to configuration.
func Resolve(cfg config.DeviceConfig, probe func() (Capabilities, error)) Capabilities {
	if !cfg.Probe || probe == nil {
		return FromConfig(cfg)
	}
	caps, err := probe()
	if err != nil {
		logger.Warn("device probe failed, using configured capabilities", zap.Error(err))
		return FromConfig(cfg)
	}
	return caps
}
