package renderer

import "github.com/cogentcore/webgpu/wgpu"

// GraphicsContextOption is a functional option applied to a GraphicsContext during Initialize.
type GraphicsContextOption func(*graphicsContext)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - GraphicsContextOption: a function that applies the present mode option to a context
func WithPresentMode(mode PresentMode) GraphicsContextOption {
	return func(c *graphicsContext) {
		c.surface.PresentMode = mode
	}
}

// WithClearColor sets the color every frame is cleared to.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - GraphicsContextOption: a function that applies the clear color option to a context
func WithClearColor(color wgpu.Color) GraphicsContextOption {
	return func(c *graphicsContext) {
		c.surface.ClearColor = color
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - GraphicsContextOption: a function that applies the force software renderer option to a context
func WithForceSoftwareRenderer(force bool) GraphicsContextOption {
	return func(c *graphicsContext) {
		c.forceFallbackAdapter = force
	}
}

// WithBackendCandidates replaces the platform's ordered candidate list.
//
// Parameters:
//   - candidates: the candidates to probe, in order
//
// Returns:
//   - GraphicsContextOption: a function that applies the candidate list to a context
func WithBackendCandidates(candidates ...BackendCandidate) GraphicsContextOption {
	return func(c *graphicsContext) {
		c.candidates = candidates
	}
}

// WithBackendKind restricts the probe to candidates of one kind, e.g. to force the WebGL2 fallback in a
// browser that also offers WebGPU.
//
// Parameters:
//   - kind: the backend kind to keep
//
// Returns:
//   - GraphicsContextOption: a function that applies the backend restriction to a context
func WithBackendKind(kind BackendKind) GraphicsContextOption {
	return func(c *graphicsContext) {
		c.onlyKind = &kind
	}
}

// HeadlessCandidate returns the candidate that serves HeadlessTarget. It is part of every platform's
// default list.
func HeadlessCandidate() BackendCandidate {
	return BackendCandidate{Name: "headless", Kind: BackendHeadless, Open: openHeadless}
}
