package render

import (
	"fmt"
	"os/exec"
)

// Renderer identifies the rendering backend passed to the external tool.
type Renderer string

const (
	// RendererOpenGL is the accelerated backend.
	RendererOpenGL Renderer = "opengl"

	// RendererCairo is the software backend.
	RendererCairo Renderer = "cairo"

	// RendererAuto selects between the two with a GPU probe.
	RendererAuto Renderer = "auto"
)

// DefaultGPUProbe is the diagnostic executable whose presence on the search
// path is taken as "a GPU is available".
const DefaultGPUProbe = "nvidia-smi"

// ParseRenderer validates a configured renderer name. Empty means auto.
func ParseRenderer(s string) (Renderer, error) {
	switch r := Renderer(s); r {
	case "":
		return RendererAuto, nil
	case RendererAuto, RendererOpenGL, RendererCairo:
		return r, nil
	default:
		return "", fmt.Errorf("unknown renderer %q (want auto, opengl, or cairo)", s)
	}
}

// LookPathFunc resolves an executable on the search path.
// It matches exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Selector picks the renderer for each invocation.
type Selector struct {
	forced   Renderer
	probe    string
	lookPath LookPathFunc
}

// NewSelector returns a Selector. A forced renderer other than auto skips the
// probe entirely. An empty probe uses DefaultGPUProbe and a nil lookPath uses
// exec.LookPath.
func NewSelector(forced Renderer, probe string, lookPath LookPathFunc) *Selector {
	if forced == "" {
		forced = RendererAuto
	}
	if probe == "" {
		probe = DefaultGPUProbe
	}
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &Selector{forced: forced, probe: probe, lookPath: lookPath}
}

// Select returns the renderer to use. The probe only checks that the
// diagnostic executable exists; it does not check the GPU works.
func (s *Selector) Select() Renderer {
	if s.forced != RendererAuto {
		return s.forced
	}
	if s.GPUAvailable() {
		return RendererOpenGL
	}
	return RendererCairo
}

// GPUAvailable reports whether the probe executable is on the search path.
func (s *Selector) GPUAvailable() bool {
	_, err := s.lookPath(s.probe)
	return err == nil
}
