//go:build js && wasm

package renderer

import (
	"fmt"
	"syscall/js"

	"github.com/cogentcore/webgpu/wgpu"
)

// defaultCandidates lists the backends probed in the browser: WebGPU when navigator.gpu exists, then
// WebGL2.
func defaultCandidates() []BackendCandidate {
	return []BackendCandidate{
		{Name: "webgpu-browser", Kind: BackendWebGPU, Open: openWGPUBrowser},
		{Name: "webgl2", Kind: BackendWebGL, Open: openWebGL},
		HeadlessCandidate(),
	}
}

// openWGPUBrowser opens navigator.gpu on the target canvas.
func openWGPUBrowser(target Target, opts CandidateOptions) (RendererBackend, error) {
	t, ok := target.(BrowserCanvasHandle)
	if !ok {
		return nil, ErrBackendUnavailable
	}
	if gpu := js.Global().Get("navigator").Get("gpu"); gpu.IsUndefined() || gpu.IsNull() {
		return nil, fmt.Errorf("%w: navigator.gpu is not available", ErrBackendUnavailable)
	}
	if _, err := lookupCanvas(t.CanvasID); err != nil {
		return nil, err
	}

	b, err := newWGPURendererBackend(func(instance *wgpu.Instance) (*wgpu.Surface, error) {
		existing, err := lookupCanvas(t.CanvasID)
		if err != nil {
			return nil, err
		}
		return instance.CreateSurface(&wgpu.SurfaceDescriptor{Canvas: existing, Label: t.CanvasID}), nil
	}, opts.ForceFallbackAdapter)
	if err != nil {
		return nil, err
	}
	b.offscreen = true
	return b, nil
}

// lookupCanvas finds a canvas element by id.
func lookupCanvas(id string) (js.Value, error) {
	canvas := js.Global().Get("document").Call("getElementById", id)
	if canvas.IsNull() || canvas.IsUndefined() {
		return js.Value{}, fmt.Errorf("%w: no canvas with id %q", ErrSurfaceCreationFailed, id)
	}
	return canvas, nil
}
