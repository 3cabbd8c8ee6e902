//go:build js && wasm

package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"syscall/js"

	"github.com/Carmen-Shannon/oxy-gfx/common"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// slotsPerGroup spaces WebGPU groups out over the flat WebGL2 uniform buffer and texture unit
// binding points: binding b of group g lands on g*slotsPerGroup + b.
const slotsPerGroup = 8

// webglBackend drives a WebGL2 context. WebGL2 has no bind groups, so a bind group is applied by
// binding its buffers to uniform buffer binding points and its textures and samplers to texture units.
type webglBackend struct {
	mu *sync.Mutex

	canvasID string
	canvas   js.Value
	gl       js.Value
	consts   glConsts
	vao      js.Value

	// Frames render into target and reach the canvas only through the blit in Present; a discarded
	// frame leaves the drawing buffer untouched, so the browser keeps showing the last presented one.
	target offscreenTarget

	config      SurfaceConfig
	maxTexture  uint32
	lost        bool
	onLost      js.Func
	enabledAttr map[uint32]bool
}

var _ RendererBackend = &webglBackend{}

type glConsts struct {
	arrayBuffer        int
	elementArrayBuffer int
	uniformBuffer      int
	dynamicDraw        int
	floatType          int
	unsignedInt        int
	triangles          int
	texture2D          int
	texture0           int
	textureMinFilter   int
	textureMagFilter   int
	textureWrapS       int
	textureWrapT       int
	textureWrapR       int
	textureMinLod      int
	textureMaxLod      int
	unpackAlignment    int
	nearest            int
	linear             int
	repeat             int
	mirroredRepeat     int
	clampToEdge        int
	colorBufferBit     int
	depthBufferBit     int
	depthTest          int
	cullFace           int
	back               int
	front              int
	ccw                int
	cw                 int
	blend              int
	less               int
	always             int
	funcAdd            int
	srcAlpha           int
	oneMinusSrcAlpha   int
	one                int
	compileStatus      int
	linkStatus         int
	vertexShader       int
	fragmentShader     int
	maxTextureSize     int
	invalidIndex       int
	framebuffer        int
	readFramebuffer    int
	drawFramebuffer    int
	renderbuffer       int
	rgba8              int
	depthComponent24   int
	colorAttachment0   int
	depthAttachment    int
	complete           int
}

// offscreenTarget is the framebuffer frames are recorded into.
type offscreenTarget struct {
	framebuffer js.Value
	color       js.Value
	depth       js.Value
}

func loadGLConsts(gl js.Value) glConsts {
	get := func(name string) int { return gl.Get(name).Int() }
	return glConsts{
		arrayBuffer:        get("ARRAY_BUFFER"),
		elementArrayBuffer: get("ELEMENT_ARRAY_BUFFER"),
		uniformBuffer:      get("UNIFORM_BUFFER"),
		dynamicDraw:        get("DYNAMIC_DRAW"),
		floatType:          get("FLOAT"),
		unsignedInt:        get("UNSIGNED_INT"),
		triangles:          get("TRIANGLES"),
		texture2D:          get("TEXTURE_2D"),
		texture0:           get("TEXTURE0"),
		textureMinFilter:   get("TEXTURE_MIN_FILTER"),
		textureMagFilter:   get("TEXTURE_MAG_FILTER"),
		textureWrapS:       get("TEXTURE_WRAP_S"),
		textureWrapT:       get("TEXTURE_WRAP_T"),
		textureWrapR:       get("TEXTURE_WRAP_R"),
		textureMinLod:      get("TEXTURE_MIN_LOD"),
		textureMaxLod:      get("TEXTURE_MAX_LOD"),
		unpackAlignment:    get("UNPACK_ALIGNMENT"),
		nearest:            get("NEAREST"),
		linear:             get("LINEAR"),
		repeat:             get("REPEAT"),
		mirroredRepeat:     get("MIRRORED_REPEAT"),
		clampToEdge:        get("CLAMP_TO_EDGE"),
		colorBufferBit:     get("COLOR_BUFFER_BIT"),
		depthBufferBit:     get("DEPTH_BUFFER_BIT"),
		depthTest:          get("DEPTH_TEST"),
		cullFace:           get("CULL_FACE"),
		back:               get("BACK"),
		front:              get("FRONT"),
		ccw:                get("CCW"),
		cw:                 get("CW"),
		blend:              get("BLEND"),
		less:               get("LESS"),
		always:             get("ALWAYS"),
		funcAdd:            get("FUNC_ADD"),
		srcAlpha:           get("SRC_ALPHA"),
		oneMinusSrcAlpha:   get("ONE_MINUS_SRC_ALPHA"),
		one:                get("ONE"),
		compileStatus:      get("COMPILE_STATUS"),
		linkStatus:         get("LINK_STATUS"),
		vertexShader:       get("VERTEX_SHADER"),
		fragmentShader:     get("FRAGMENT_SHADER"),
		maxTextureSize:     get("MAX_TEXTURE_SIZE"),
		invalidIndex:       get("INVALID_INDEX"),
		framebuffer:        get("FRAMEBUFFER"),
		readFramebuffer:    get("READ_FRAMEBUFFER"),
		drawFramebuffer:    get("DRAW_FRAMEBUFFER"),
		renderbuffer:       get("RENDERBUFFER"),
		rgba8:              get("RGBA8"),
		depthComponent24:   get("DEPTH_COMPONENT24"),
		colorAttachment0:   get("COLOR_ATTACHMENT0"),
		depthAttachment:    get("DEPTH_ATTACHMENT"),
		complete:           get("FRAMEBUFFER_COMPLETE"),
	}
}

type webglBuffer struct {
	buf    js.Value
	target int
	size   uint64
}

type webglTexture struct {
	tex    js.Value
	width  uint32
	height uint32
	format wgpu.TextureFormat
}

type webglSampler struct {
	sampler js.Value
}

type webglLayout struct {
	desc wgpu.BindGroupLayoutDescriptor
}

type webglBindGroup struct {
	entries []BindGroupEntry
}

type webglPipeline struct {
	key     string
	program js.Value
	layouts []wgpu.VertexBufferLayout

	depthTest  bool
	depthWrite bool
	blend      bool
	cull       wgpu.CullMode
	frontFace  wgpu.FrontFace
}

// glTextureFormat describes how a wgpu format is uploaded with texImage2D. array is the JS typed
// array constructor the pixel bytes are viewed through.
type glTextureFormat struct {
	internal string
	format   string
	typ      string
	array    string
	swizzle  bool
}

var glTextureFormats = map[wgpu.TextureFormat]glTextureFormat{
	wgpu.TextureFormatR8Unorm:        {"R8", "RED", "UNSIGNED_BYTE", "Uint8Array", false},
	wgpu.TextureFormatRG8Unorm:       {"RG8", "RG", "UNSIGNED_BYTE", "Uint8Array", false},
	wgpu.TextureFormatRGBA8Unorm:     {"RGBA8", "RGBA", "UNSIGNED_BYTE", "Uint8Array", false},
	wgpu.TextureFormatRGBA8UnormSrgb: {"SRGB8_ALPHA8", "RGBA", "UNSIGNED_BYTE", "Uint8Array", false},
	wgpu.TextureFormatBGRA8Unorm:     {"RGBA8", "RGBA", "UNSIGNED_BYTE", "Uint8Array", true},
	wgpu.TextureFormatBGRA8UnormSrgb: {"SRGB8_ALPHA8", "RGBA", "UNSIGNED_BYTE", "Uint8Array", true},
	wgpu.TextureFormatRGBA8Uint:      {"RGBA8UI", "RGBA_INTEGER", "UNSIGNED_BYTE", "Uint8Array", false},
	wgpu.TextureFormatRGBA8Sint:      {"RGBA8I", "RGBA_INTEGER", "BYTE", "Int8Array", false},
	wgpu.TextureFormatR32Float:       {"R32F", "RED", "FLOAT", "Float32Array", false},
	wgpu.TextureFormatRG32Float:      {"RG32F", "RG", "FLOAT", "Float32Array", false},
	wgpu.TextureFormatRGBA16Float:    {"RGBA16F", "RGBA", "HALF_FLOAT", "Uint16Array", false},
	wgpu.TextureFormatRGBA32Float:    {"RGBA32F", "RGBA", "FLOAT", "Float32Array", false},
	wgpu.TextureFormatRGBA32Uint:     {"RGBA32UI", "RGBA_INTEGER", "UNSIGNED_INT", "Uint32Array", false},
}

// openWebGL opens a WebGL2 context on the target canvas.
func openWebGL(target Target, _ CandidateOptions) (RendererBackend, error) {
	t, ok := target.(BrowserCanvasHandle)
	if !ok {
		return nil, ErrBackendUnavailable
	}
	canvas, err := lookupCanvas(t.CanvasID)
	if err != nil {
		return nil, err
	}
	gl := canvas.Call("getContext", "webgl2", map[string]any{"antialias": false, "depth": false})
	if gl.IsNull() || gl.IsUndefined() {
		return nil, fmt.Errorf("%w: webgl2 context unavailable", ErrBackendUnavailable)
	}

	b := &webglBackend{
		mu:          &sync.Mutex{},
		canvasID:    t.CanvasID,
		canvas:      canvas,
		gl:          gl,
		consts:      loadGLConsts(gl),
		enabledAttr: make(map[uint32]bool),
	}
	b.maxTexture = min(uint32(gl.Call("getParameter", b.consts.maxTextureSize).Int()), DefaultMaxTextureDimension)
	b.vao = gl.Call("createVertexArray")
	gl.Call("bindVertexArray", b.vao)

	b.onLost = js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			args[0].Call("preventDefault")
		}
		b.mu.Lock()
		b.lost = true
		b.mu.Unlock()
		slog.Warn("[WebGL] context lost", "canvas", b.canvasID)
		return nil
	})
	canvas.Call("addEventListener", "webglcontextlost", b.onLost)

	slog.Info("[WebGL] context created", "canvas", t.CanvasID, "maxTextureDimension", b.maxTexture)
	return b, nil
}

func (b *webglBackend) Kind() BackendKind {
	return BackendWebGL
}

func (b *webglBackend) MaxTextureDimension() uint32 {
	return b.maxTexture
}

// ConfigureSurface resizes the drawing buffer. Presentation pacing in the browser is owned by
// requestAnimationFrame, so the present mode has no effect here.
func (b *webglBackend) ConfigureSurface(cfg SurfaceConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid surface size %dx%d", cfg.Width, cfg.Height)
	}
	b.canvas.Set("width", cfg.Width)
	b.canvas.Set("height", cfg.Height)
	if err := b.createTarget(cfg.Width, cfg.Height); err != nil {
		return err
	}
	b.config = cfg
	return nil
}

// createTarget replaces the offscreen framebuffer with one of the given size. Caller must hold the
// mutex.
func (b *webglBackend) createTarget(width, height int) error {
	gl := b.gl
	b.releaseTarget()

	color := gl.Call("createRenderbuffer")
	gl.Call("bindRenderbuffer", b.consts.renderbuffer, color)
	gl.Call("renderbufferStorage", b.consts.renderbuffer, b.consts.rgba8, width, height)
	depth := gl.Call("createRenderbuffer")
	gl.Call("bindRenderbuffer", b.consts.renderbuffer, depth)
	gl.Call("renderbufferStorage", b.consts.renderbuffer, b.consts.depthComponent24, width, height)
	gl.Call("bindRenderbuffer", b.consts.renderbuffer, js.Null())

	framebuffer := gl.Call("createFramebuffer")
	gl.Call("bindFramebuffer", b.consts.framebuffer, framebuffer)
	gl.Call("framebufferRenderbuffer", b.consts.framebuffer, b.consts.colorAttachment0, b.consts.renderbuffer, color)
	gl.Call("framebufferRenderbuffer", b.consts.framebuffer, b.consts.depthAttachment, b.consts.renderbuffer, depth)
	status := gl.Call("checkFramebufferStatus", b.consts.framebuffer).Int()
	gl.Call("bindFramebuffer", b.consts.framebuffer, js.Null())

	b.target = offscreenTarget{framebuffer: framebuffer, color: color, depth: depth}
	if status != b.consts.complete {
		b.releaseTarget()
		return fmt.Errorf("offscreen framebuffer %dx%d incomplete: status 0x%x", width, height, status)
	}
	return nil
}

// releaseTarget deletes the offscreen framebuffer. Caller must hold the mutex.
func (b *webglBackend) releaseTarget() {
	gl := b.gl
	if t := b.target.framebuffer; !t.IsUndefined() && !t.IsNull() {
		gl.Call("deleteFramebuffer", t)
	}
	for _, rb := range []js.Value{b.target.color, b.target.depth} {
		if !rb.IsUndefined() && !rb.IsNull() {
			gl.Call("deleteRenderbuffer", rb)
		}
	}
	b.target = offscreenTarget{}
}

// RecreateSurface re-resolves the canvas. The WebGL2 context is bound to its canvas, so a canvas that
// was replaced in the document cannot keep the existing resources.
func (b *webglBackend) RecreateSurface() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	canvas, err := lookupCanvas(b.canvasID)
	if err != nil {
		return err
	}
	if !canvas.Equal(b.canvas) {
		return fmt.Errorf("%w: canvas %q was replaced, its webgl2 context is gone", ErrSurfaceCreationFailed, b.canvasID)
	}
	if b.lost || b.gl.Call("isContextLost").Bool() {
		return fmt.Errorf("%w: webgl2 context lost", ErrSurfaceCreationFailed)
	}
	return nil
}

// SurfaceFormat returns the format of the default framebuffer.
func (b *webglBackend) SurfaceFormat() wgpu.TextureFormat {
	return wgpu.TextureFormatRGBA8Unorm
}

func (b *webglBackend) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (any, error) {
	target := b.consts.arrayBuffer
	switch {
	case usage&wgpu.BufferUsageIndex != 0:
		target = b.consts.elementArrayBuffer
	case usage&wgpu.BufferUsageUniform != 0:
		target = b.consts.uniformBuffer
	}

	buf := b.gl.Call("createBuffer")
	if buf.IsNull() {
		return nil, fmt.Errorf("webgl2: createBuffer failed for %s", label)
	}
	b.gl.Call("bindBuffer", target, buf)
	b.gl.Call("bufferData", target, int(size), b.consts.dynamicDraw)
	b.gl.Call("bindBuffer", target, js.Null())
	return &webglBuffer{buf: buf, target: target, size: size}, nil
}

func (b *webglBackend) WriteBuffer(buffer any, offset uint64, data []byte) error {
	buf, ok := buffer.(*webglBuffer)
	if !ok {
		return fmt.Errorf("webgl2: write to non-buffer resource %T", buffer)
	}
	if offset+uint64(len(data)) > buf.size {
		return fmt.Errorf("webgl2: write of %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, buf.size)
	}
	b.gl.Call("bindBuffer", buf.target, buf.buf)
	b.gl.Call("bufferSubData", buf.target, int(offset), uint8Array(data))
	b.gl.Call("bindBuffer", buf.target, js.Null())
	return nil
}

func (b *webglBackend) CreateTexture(staging common.TextureStagingData) (any, error) {
	f, ok := glTextureFormats[staging.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %v has no webgl2 equivalent", ErrUnsupportedFormat, staging.Format)
	}

	pixels := staging.Pixels
	if f.swizzle {
		pixels = swizzleBGRA(pixels)
	}
	src := uint8Array(pixels)
	if f.array != "Uint8Array" {
		src = js.Global().Get(f.array).New(src.Get("buffer"))
	}

	gl := b.gl
	tex := gl.Call("createTexture")
	gl.Call("bindTexture", b.consts.texture2D, tex)
	gl.Call("pixelStorei", b.consts.unpackAlignment, 1)
	gl.Call("texImage2D",
		b.consts.texture2D, 0, gl.Get(f.internal).Int(),
		int(staging.Width), int(staging.Height), 0,
		gl.Get(f.format).Int(), gl.Get(f.typ).Int(), src,
	)
	gl.Call("bindTexture", b.consts.texture2D, js.Null())

	return &webglTexture{tex: tex, width: staging.Width, height: staging.Height, format: staging.Format}, nil
}

func (b *webglBackend) CreateSampler(label string, data common.SamplerStagingData) (any, error) {
	gl := b.gl
	s := gl.Call("createSampler")
	if s.IsNull() {
		return nil, fmt.Errorf("webgl2: createSampler failed for %s", label)
	}

	mag := b.consts.linear
	if data.MagFilter == wgpu.FilterModeNearest {
		mag = b.consts.nearest
	}
	minify := b.consts.linear
	if data.MinFilter == wgpu.FilterModeNearest {
		minify = b.consts.nearest
	}
	gl.Call("samplerParameteri", s, b.consts.textureMagFilter, mag)
	gl.Call("samplerParameteri", s, b.consts.textureMinFilter, minify)
	gl.Call("samplerParameteri", s, b.consts.textureWrapS, b.wrapMode(data.AddressModeU))
	gl.Call("samplerParameteri", s, b.consts.textureWrapT, b.wrapMode(data.AddressModeV))
	gl.Call("samplerParameteri", s, b.consts.textureWrapR, b.wrapMode(data.AddressModeW))
	if data.LodMaxClamp > 0 {
		gl.Call("samplerParameterf", s, b.consts.textureMinLod, data.LodMinClamp)
		gl.Call("samplerParameterf", s, b.consts.textureMaxLod, data.LodMaxClamp)
	}
	return &webglSampler{sampler: s}, nil
}

func (b *webglBackend) wrapMode(mode wgpu.AddressMode) int {
	switch mode {
	case wgpu.AddressModeClampToEdge:
		return b.consts.clampToEdge
	case wgpu.AddressModeMirrorRepeat:
		return b.consts.mirroredRepeat
	default:
		return b.consts.repeat
	}
}

func (b *webglBackend) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (any, error) {
	return &webglLayout{desc: desc}, nil
}

func (b *webglBackend) CreateBindGroup(label string, layout any, entries []BindGroupEntry) (any, error) {
	l, ok := layout.(*webglLayout)
	if !ok {
		return nil, fmt.Errorf("webgl2: bind group %s: layout is %T", label, layout)
	}
	if len(entries) != len(l.desc.Entries) {
		return nil, fmt.Errorf("webgl2: bind group %s has %d entries, layout %s expects %d", label, len(entries), l.desc.Label, len(l.desc.Entries))
	}
	return &webglBindGroup{entries: append([]BindGroupEntry(nil), entries...)}, nil
}

// CreateRenderPipeline links the pipeline's GLSL ES stages and points every named uniform block and
// sampler at the binding slot of the group and binding it stands in for.
func (b *webglBackend) CreateRenderPipeline(p pipeline.Pipeline, _ []any) (any, error) {
	vs := p.GLSLShader(shader.ShaderTypeVertex)
	fs := p.GLSLShader(shader.ShaderTypeFragment)
	if vs == nil || fs == nil {
		return nil, fmt.Errorf("webgl2: pipeline %s has no GLSL stages", p.PipelineKey())
	}

	program, err := b.buildProgram(vs.Source(), fs.Source())
	if err != nil {
		return nil, fmt.Errorf("webgl2: pipeline %s: %w", p.PipelineKey(), err)
	}

	gl := b.gl
	gl.Call("useProgram", program)
	seen := make(map[string]bool)
	for _, binding := range append(vs.Bindings(), fs.Bindings()...) {
		if seen[binding.Name] {
			continue
		}
		seen[binding.Name] = true
		slot := bindingSlot(binding.Group, binding.Binding)

		if idx := gl.Call("getUniformBlockIndex", program, binding.Name).Int(); idx != b.consts.invalidIndex {
			gl.Call("uniformBlockBinding", program, idx, slot)
			continue
		}
		if loc := gl.Call("getUniformLocation", program, binding.Name); !loc.IsNull() {
			gl.Call("uniform1i", loc, slot)
			continue
		}
		slog.Debug("[WebGL] binding not used by program", "pipeline", p.PipelineKey(), "name", binding.Name)
	}
	gl.Call("useProgram", js.Null())

	return &webglPipeline{
		key:        p.PipelineKey(),
		program:    program,
		layouts:    p.VertexLayouts(),
		depthTest:  p.DepthTestEnabled(),
		depthWrite: p.DepthWriteEnabled(),
		blend:      p.BlendEnabled(),
		cull:       p.CullMode(),
		frontFace:  p.FrontFace(),
	}, nil
}

func (b *webglBackend) buildProgram(vertexSrc, fragmentSrc string) (js.Value, error) {
	gl := b.gl
	vs, err := b.compileShader(b.consts.vertexShader, vertexSrc)
	if err != nil {
		return js.Value{}, err
	}
	defer gl.Call("deleteShader", vs)
	fs, err := b.compileShader(b.consts.fragmentShader, fragmentSrc)
	if err != nil {
		return js.Value{}, err
	}
	defer gl.Call("deleteShader", fs)

	program := gl.Call("createProgram")
	gl.Call("attachShader", program, vs)
	gl.Call("attachShader", program, fs)
	gl.Call("linkProgram", program)
	if !gl.Call("getProgramParameter", program, b.consts.linkStatus).Bool() {
		info := gl.Call("getProgramInfoLog", program).String()
		gl.Call("deleteProgram", program)
		return js.Value{}, fmt.Errorf("link: %s", strings.TrimSpace(info))
	}
	return program, nil
}

func (b *webglBackend) compileShader(kind int, src string) (js.Value, error) {
	gl := b.gl
	sh := gl.Call("createShader", kind)
	gl.Call("shaderSource", sh, src)
	gl.Call("compileShader", sh)
	if !gl.Call("getShaderParameter", sh, b.consts.compileStatus).Bool() {
		info := gl.Call("getShaderInfoLog", sh).String()
		gl.Call("deleteShader", sh)
		stage := "vertex"
		if kind == b.consts.fragmentShader {
			stage = "fragment"
		}
		return js.Value{}, fmt.Errorf("compile %s shader: %s", stage, strings.TrimSpace(info))
	}
	return sh, nil
}

func (b *webglBackend) Release(resource any) {
	switch r := resource.(type) {
	case *webglBuffer:
		b.gl.Call("deleteBuffer", r.buf)
	case *webglTexture:
		b.gl.Call("deleteTexture", r.tex)
	case *webglSampler:
		b.gl.Call("deleteSampler", r.sampler)
	case *webglPipeline:
		b.gl.Call("deleteProgram", r.program)
	}
}

// AcquireFrame binds the offscreen framebuffer and clears it. A lost context takes every GL object with
// it and is reported as a lost device.
func (b *webglBackend) AcquireFrame() (BackendFrame, error) {
	b.mu.Lock()
	lost := b.lost
	cfg := b.config
	target := b.target.framebuffer
	b.mu.Unlock()

	gl := b.gl
	if lost || gl.Call("isContextLost").Bool() {
		return nil, &DeviceLostError{Err: errors.New("webgl2 context lost")}
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, &AcquireError{Kind: Outdated, Err: errors.New("surface not configured")}
	}
	if gl.Get("drawingBufferWidth").Int() != cfg.Width || gl.Get("drawingBufferHeight").Int() != cfg.Height {
		return nil, &AcquireError{Kind: Outdated, Err: errors.New("drawing buffer size differs from configuration")}
	}

	if target.IsUndefined() {
		return nil, &AcquireError{Kind: Outdated, Err: errors.New("offscreen framebuffer not configured")}
	}

	gl.Call("bindFramebuffer", b.consts.framebuffer, target)
	gl.Call("viewport", 0, 0, cfg.Width, cfg.Height)
	gl.Call("clearColor", cfg.ClearColor.R, cfg.ClearColor.G, cfg.ClearColor.B, cfg.ClearColor.A)
	gl.Call("clearDepth", 1.0)
	gl.Call("depthMask", true)
	gl.Call("clear", b.consts.colorBufferBit|b.consts.depthBufferBit)
	gl.Call("bindVertexArray", b.vao)

	return &webglFrame{b: b}, nil
}

func (b *webglBackend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.canvas.IsUndefined() {
		b.canvas.Call("removeEventListener", "webglcontextlost", b.onLost)
		b.onLost.Release()
	}
	b.releaseTarget()
	if !b.vao.IsUndefined() {
		b.gl.Call("deleteVertexArray", b.vao)
		b.vao = js.Undefined()
	}
	b.canvas = js.Undefined()
}

// applyAttributes points the enabled vertex attributes at the bound vertex buffer.
func (b *webglBackend) applyAttributes(layouts []wgpu.VertexBufferLayout) {
	gl := b.gl
	used := make(map[uint32]bool)
	for _, layout := range layouts {
		for _, attr := range layout.Attributes {
			size, integer := vertexFormatComponents(attr.Format)
			loc := attr.ShaderLocation
			used[loc] = true
			if !b.enabledAttr[loc] {
				gl.Call("enableVertexAttribArray", loc)
				b.enabledAttr[loc] = true
			}
			if integer {
				gl.Call("vertexAttribIPointer", loc, size, b.consts.unsignedInt, int(layout.ArrayStride), int(attr.Offset))
			} else {
				gl.Call("vertexAttribPointer", loc, size, b.consts.floatType, false, int(layout.ArrayStride), int(attr.Offset))
			}
		}
	}
	for loc := range b.enabledAttr {
		if !used[loc] {
			gl.Call("disableVertexAttribArray", loc)
			delete(b.enabledAttr, loc)
		}
	}
}

// webglFrame records straight into the context's offscreen framebuffer; WebGL2 has no command buffers.
type webglFrame struct {
	b        *webglBackend
	pipeline *webglPipeline
	vertex   *webglBuffer
	bound    bool
}

func (f *webglFrame) SetPipeline(p any) {
	wp, ok := p.(*webglPipeline)
	if !ok {
		return
	}
	f.pipeline = wp
	f.bound = false

	gl, c := f.b.gl, f.b.consts
	gl.Call("useProgram", wp.program)
	gl.Call("enable", c.depthTest)
	if wp.depthTest {
		gl.Call("depthFunc", c.less)
	} else {
		gl.Call("depthFunc", c.always)
	}
	gl.Call("depthMask", wp.depthWrite)

	switch wp.cull {
	case wgpu.CullModeBack:
		gl.Call("enable", c.cullFace)
		gl.Call("cullFace", c.back)
	case wgpu.CullModeFront:
		gl.Call("enable", c.cullFace)
		gl.Call("cullFace", c.front)
	default:
		gl.Call("disable", c.cullFace)
	}
	if wp.frontFace == wgpu.FrontFaceCW {
		gl.Call("frontFace", c.cw)
	} else {
		gl.Call("frontFace", c.ccw)
	}

	if wp.blend {
		gl.Call("enable", c.blend)
		gl.Call("blendEquation", c.funcAdd)
		gl.Call("blendFuncSeparate", c.srcAlpha, c.oneMinusSrcAlpha, c.one, c.oneMinusSrcAlpha)
	} else {
		gl.Call("disable", c.blend)
	}
}

func (f *webglFrame) SetBindGroup(group uint32, bindGroup any) {
	bg, ok := bindGroup.(*webglBindGroup)
	if !ok {
		return
	}
	gl, c := f.b.gl, f.b.consts
	for _, e := range bg.entries {
		slot := bindingSlot(group, e.Binding)
		switch {
		case e.Buffer != nil:
			if buf, ok := e.Buffer.(*webglBuffer); ok {
				gl.Call("bindBufferBase", c.uniformBuffer, slot, buf.buf)
			}
		case e.Texture != nil:
			if tex, ok := e.Texture.(*webglTexture); ok {
				gl.Call("activeTexture", c.texture0+slot)
				gl.Call("bindTexture", c.texture2D, tex.tex)
			}
		case e.Sampler != nil:
			// A sampler applies to the texture bound just before it.
			if s, ok := e.Sampler.(*webglSampler); ok && e.Binding > 0 {
				gl.Call("bindSampler", bindingSlot(group, e.Binding-1), s.sampler)
			}
		}
	}
}

func (f *webglFrame) SetVertexBuffer(buffer any) {
	if buf, ok := buffer.(*webglBuffer); ok {
		f.vertex = buf
		f.bound = false
	}
}

func (f *webglFrame) SetIndexBuffer(buffer any) {
	if buf, ok := buffer.(*webglBuffer); ok {
		f.b.gl.Call("bindBuffer", f.b.consts.elementArrayBuffer, buf.buf)
	}
}

func (f *webglFrame) prepare() bool {
	if f.pipeline == nil || f.vertex == nil {
		slog.Warn("[WebGL] draw without pipeline or vertex buffer")
		return false
	}
	if !f.bound {
		f.b.gl.Call("bindBuffer", f.b.consts.arrayBuffer, f.vertex.buf)
		f.b.applyAttributes(f.pipeline.layouts)
		f.bound = true
	}
	return true
}

func (f *webglFrame) Draw(vertexCount uint32) {
	if f.prepare() {
		f.b.gl.Call("drawArrays", f.b.consts.triangles, 0, vertexCount)
	}
}

func (f *webglFrame) DrawIndexed(indexCount uint32) {
	if f.prepare() {
		f.b.gl.Call("drawElements", f.b.consts.triangles, indexCount, f.b.consts.unsignedInt, 0)
	}
}

func (f *webglFrame) Submit() error {
	gl := f.b.gl
	gl.Call("flush")
	if gl.Call("isContextLost").Bool() {
		return &DeviceLostError{Err: errors.New("webgl2 context lost during submit")}
	}
	return nil
}

// Present blits the offscreen framebuffer into the drawing buffer. The browser composites it when
// control returns to the event loop.
func (f *webglFrame) Present() error {
	b := f.b
	b.mu.Lock()
	cfg := b.config
	target := b.target.framebuffer
	b.mu.Unlock()

	gl := b.gl
	gl.Call("bindFramebuffer", b.consts.readFramebuffer, target)
	gl.Call("bindFramebuffer", b.consts.drawFramebuffer, js.Null())
	gl.Call("blitFramebuffer", 0, 0, cfg.Width, cfg.Height, 0, 0, cfg.Width, cfg.Height, b.consts.colorBufferBit, b.consts.nearest)
	gl.Call("bindFramebuffer", b.consts.framebuffer, js.Null())
	gl.Call("flush")
	if gl.Call("isContextLost").Bool() {
		return &DeviceLostError{Err: errors.New("webgl2 context lost during present")}
	}
	return nil
}

// Discard unbinds the offscreen framebuffer without blitting, so the canvas keeps its last frame.
func (f *webglFrame) Discard() {
	f.b.gl.Call("bindFramebuffer", f.b.consts.framebuffer, js.Null())
}

func bindingSlot(group, binding uint32) int {
	return int(group*slotsPerGroup + binding)
}

// vertexFormatComponents returns the component count of a vertex format and whether it is read as
// an integer attribute.
func vertexFormatComponents(format wgpu.VertexFormat) (int, bool) {
	switch format {
	case wgpu.VertexFormatFloat32:
		return 1, false
	case wgpu.VertexFormatFloat32x2:
		return 2, false
	case wgpu.VertexFormatFloat32x3:
		return 3, false
	case wgpu.VertexFormatFloat32x4:
		return 4, false
	case wgpu.VertexFormatUint32:
		return 1, true
	case wgpu.VertexFormatUint32x2:
		return 2, true
	case wgpu.VertexFormatUint32x3:
		return 3, true
	case wgpu.VertexFormatUint32x4:
		return 4, true
	default:
		return 4, false
	}
}

func uint8Array(data []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}

// swizzleBGRA returns a copy of BGRA pixels in RGBA order.
func swizzleBGRA(pixels []byte) []byte {
	out := make([]byte, len(pixels))
	for i := 0; i+3 < len(pixels); i += 4 {
		out[i], out[i+1], out[i+2], out[i+3] = pixels[i+2], pixels[i+1], pixels[i], pixels[i+3]
	}
	return out
}
