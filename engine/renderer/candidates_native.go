//go:build !js

package renderer

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// defaultCandidates lists the backends probed on desktop platforms.
func defaultCandidates() []BackendCandidate {
	return []BackendCandidate{
		{Name: "webgpu-native", Kind: BackendWebGPU, Open: openWGPUNative},
		HeadlessCandidate(),
	}
}

// openWGPUNative opens wgpu-native on a desktop window. wgpu-native must be driven from the thread
// that created the window, so the calling goroutine is locked to its OS thread.
func openWGPUNative(target Target, opts CandidateOptions) (RendererBackend, error) {
	t, ok := target.(NativeWindowHandle)
	if !ok {
		return nil, ErrBackendUnavailable
	}
	if t.Descriptor == nil {
		return nil, fmt.Errorf("%w: native window handle has no surface descriptor", ErrSurfaceCreationFailed)
	}

	runtime.LockOSThread()
	b, err := newWGPURendererBackend(func(instance *wgpu.Instance) (*wgpu.Surface, error) {
		surface := instance.CreateSurface(t.Descriptor)
		if surface == nil {
			return nil, fmt.Errorf("%w: CreateSurface returned nil", ErrSurfaceCreationFailed)
		}
		return surface, nil
	}, opts.ForceFallbackAdapter)
	if err != nil {
		return nil, err
	}
	return b, nil
}
