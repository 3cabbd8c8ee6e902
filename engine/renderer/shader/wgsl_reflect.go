package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation.
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// typeLayout is the byte size and alignment of a host-shareable WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

type reflectedField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

type reflectedStruct struct {
	name   string
	fields []reflectedField
}

var vertexFormats = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"i32":       {wgpu.VertexFormatSint32, 4},
}

// Sizes and alignments from https://www.w3.org/TR/WGSL/#alignment-and-size
var primitiveLayouts = map[string]typeLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2f":       {8, 8},
	"vec2<f32>":   {8, 8},
	"vec3f":       {12, 16},
	"vec3<f32>":   {12, 16},
	"vec4f":       {16, 16},
	"vec4<f32>":   {16, 16},
	"vec4u":       {16, 16},
	"vec4<u32>":   {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	structRe   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRe = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRe  = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRe    = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)
	vertexRe   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentRe = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
	// @group(0) @binding(0) var<uniform> camera: CameraUniform;
	bindingRe = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// reflectEntryPoint returns the name of the first function annotated for the given stage.
func reflectEntryPoint(source string, stage ShaderType) string {
	re := vertexRe
	if stage == ShaderTypeFragment {
		re = fragmentRe
	}
	if m := re.FindStringSubmatch(stripComments(source)); m != nil {
		return m[1]
	}
	return ""
}

// reflectVertexLayouts builds one vertex buffer layout per vertex input struct, in declaration order.
// A vertex input struct has @location fields and no @builtin field, which separates it from the
// vertex output struct. Attributes are packed tightly in field order.
func reflectVertexLayouts(source string) []wgpu.VertexBufferLayout {
	var layouts []wgpu.VertexBufferLayout
	for _, s := range parseStructs(stripComments(source)) {
		if !isVertexInput(s) {
			continue
		}
		var (
			attrs  []wgpu.VertexAttribute
			offset uint64
			ok     = true
		)
		for _, f := range s.fields {
			info, known := vertexFormats[f.typeName]
			if !known {
				ok = false
				break
			}
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         info.format,
				Offset:         offset,
				ShaderLocation: uint32(f.location),
			})
			offset += info.size
		}
		if !ok {
			continue
		}
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: offset,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}
	return layouts
}

// reflectBindGroups collects every @group/@binding declaration into layout descriptors keyed by group.
// Uniform buffer entries get MinBindingSize from the bound struct's host-shareable size.
func reflectBindGroups(source string, visibility wgpu.ShaderStage) (map[uint32]wgpu.BindGroupLayoutDescriptor, map[uint32]map[uint32]string) {
	cleaned := stripComments(source)
	sizes := structSizes(parseStructs(cleaned))

	entries := make(map[uint32][]wgpu.BindGroupLayoutEntry)
	names := make(map[uint32]map[uint32]string)
	for _, m := range bindingRe.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.ParseUint(m[1], 10, 32)
		binding, _ := strconv.ParseUint(m[2], 10, 32)
		space, name, typeName := strings.TrimSpace(m[3]), m[4], strings.TrimSpace(m[5])

		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(binding), Visibility: visibility}
		switch {
		case space == "uniform":
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
			if l, ok := resolveLayout(typeName, sizes); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		case space != "":
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		case typeName == "sampler":
			entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		case strings.HasPrefix(typeName, "texture_2d"):
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
			_, param, _ := strings.Cut(strings.TrimSuffix(typeName, ">"), "<")
			entry.Texture.SampleType = sampleTypes[strings.TrimSpace(param)]
		case strings.HasPrefix(typeName, "texture_depth_2d"):
			entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		}

		g := uint32(group)
		entries[g] = append(entries[g], entry)
		if names[g] == nil {
			names[g] = make(map[uint32]string)
		}
		names[g][uint32(binding)] = name
	}

	result := make(map[uint32]wgpu.BindGroupLayoutDescriptor, len(entries))
	for g, es := range entries {
		sort.Slice(es, func(i, j int) bool { return es[i].Binding < es[j].Binding })
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: es}
	}
	return result, names
}

func parseStructs(source string) []reflectedStruct {
	var out []reflectedStruct
	for _, m := range structRe.FindAllStringSubmatch(source, -1) {
		s := reflectedStruct{name: m[1]}
		for _, line := range splitTopLevel(m[2]) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			fm := fieldRe.FindStringSubmatch(line)
			if fm == nil {
				continue
			}
			f := reflectedField{
				name:     fm[1],
				typeName: strings.TrimSpace(fm[2]),
				location: -1,
				builtin:  builtinRe.MatchString(line),
			}
			if lm := locationRe.FindStringSubmatch(line); lm != nil {
				f.location, _ = strconv.Atoi(lm[1])
			}
			s.fields = append(s.fields, f)
		}
		out = append(out, s)
	}
	return out
}

func isVertexInput(s reflectedStruct) bool {
	located := false
	for _, f := range s.fields {
		if f.builtin {
			return false
		}
		if f.location >= 0 {
			located = true
		}
	}
	return located
}

// structSizes resolves struct layouts repeatedly until no more structs can be resolved, so that
// structs nested in other structs are handled regardless of declaration order.
func structSizes(structs []reflectedStruct) map[string]typeLayout {
	known := make(map[string]typeLayout, len(structs))
	for progress := true; progress; {
		progress = false
		for _, s := range structs {
			if _, done := known[s.name]; done {
				continue
			}
			var offset, align uint64 = 0, 1
			ok := true
			for _, f := range s.fields {
				if f.builtin {
					continue
				}
				l, found := resolveLayout(f.typeName, known)
				if !found {
					ok = false
					break
				}
				offset = roundUp(l.align, offset) + l.size
				align = max(align, l.align)
			}
			if ok {
				known[s.name] = typeLayout{size: roundUp(align, offset), align: align}
				progress = true
			}
		}
	}
	return known
}

// resolveLayout handles primitives, known structs and fixed-size arrays.
func resolveLayout(typeName string, known map[string]typeLayout) (typeLayout, bool) {
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	if inner, ok := strings.CutPrefix(typeName, "array<"); ok {
		elem, count, fixed := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
		if !fixed {
			return typeLayout{}, false
		}
		l, ok := resolveLayout(strings.TrimSpace(elem), known)
		n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
		if !ok || err != nil {
			return typeLayout{}, false
		}
		return typeLayout{size: n * roundUp(l.align, l.size), align: l.align}, true
	}
	return typeLayout{}, false
}

func roundUp(align, v uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// stripComments removes line comments and (nested) block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch source[i : i+2] {
			case "/*":
				depth++
				i++
				continue
			case "*/":
				if depth > 0 {
					depth--
					i++
					continue
				}
			case "//":
				if depth == 0 {
					for i < len(source) && source[i] != '\n' {
						i++
					}
					if i < len(source) {
						sb.WriteByte('\n')
					}
					continue
				}
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitTopLevel splits a struct body at commas outside angle brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
