package shader

import (
	"embed"
	"fmt"
)

//go:embed assets
var assets embed.FS

// Names of the built-in programs.
const (
	// ProgramColor draws per-vertex colored geometry. Groups: 0 camera, 1 model.
	ProgramColor = "color"
	// ProgramTextured draws meshes with a diffuse and a normal map. Groups: 0 camera, 1 material, 2 model.
	ProgramTextured = "textured"
)

// Program bundles the WGSL stages of a pipeline with their GLSL ES counterparts for WebGL2.
type Program struct {
	Vertex       Shader
	Fragment     Shader
	GLSLVertex   Shader
	GLSLFragment Shader
}

// programBindings lists the GLSL names of every binding per built-in program. Samplers have no
// GLSL name: a sampler at binding N applies to the sampler2D at binding N-1.
var programBindings = map[string][]Binding{
	ProgramColor: {
		{Name: "Camera", Group: 0, Binding: 0},
		{Name: "Model", Group: 1, Binding: 0},
	},
	ProgramTextured: {
		{Name: "Camera", Group: 0, Binding: 0},
		{Name: "t_diffuse", Group: 1, Binding: 0},
		{Name: "t_normal", Group: 1, Binding: 2},
		{Name: "Model", Group: 2, Binding: 0},
	},
}

// LoadProgram builds one of the embedded programs.
//
// Parameters:
//   - name: ProgramColor or ProgramTextured
//
// Returns:
//   - Program: the four shaders
//   - error: an error if the name is unknown or a shader failed to build
func LoadProgram(name string) (Program, error) {
	bindings, ok := programBindings[name]
	if !ok {
		return Program{}, fmt.Errorf("unknown program %q", name)
	}

	read := func(file string) (string, error) {
		data, err := assets.ReadFile("assets/" + file)
		if err != nil {
			return "", fmt.Errorf("program %s: %w", name, err)
		}
		return string(data), nil
	}

	wgsl, err := read(name + ".wgsl")
	if err != nil {
		return Program{}, err
	}
	vert, err := read(name + ".vert.glsl")
	if err != nil {
		return Program{}, err
	}
	frag, err := read(name + ".frag.glsl")
	if err != nil {
		return Program{}, err
	}

	var prog Program
	if prog.Vertex, err = NewShader(name+"_vs", ShaderTypeVertex, wgsl); err != nil {
		return Program{}, err
	}
	if prog.Fragment, err = NewShader(name+"_fs", ShaderTypeFragment, wgsl); err != nil {
		return Program{}, err
	}
	if prog.GLSLVertex, err = NewShader(name+"_vs_gl", ShaderTypeVertex, vert, WithLanguage(LanguageGLSL), WithBindings(bindings...)); err != nil {
		return Program{}, err
	}
	if prog.GLSLFragment, err = NewShader(name+"_fs_gl", ShaderTypeFragment, frag, WithLanguage(LanguageGLSL), WithBindings(bindings...)); err != nil {
		return Program{}, err
	}
	return prog, nil
}
