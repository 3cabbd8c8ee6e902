// pre_processor.go implements the WGSL pre-processor. Lines of the form
//
//	//@oxy:include <struct>
//	//@oxy:group <group> <binding> uniform <var_name> <struct>
//
// are replaced with the embedded struct source or a generated @group/@binding declaration, so that
// the uniform structs uploaded from Go (camera, model) are declared once and shared by every shader.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

const annotationPrefix = "@oxy:"

// includeEntry pairs an embedded WGSL struct source with the struct's type name.
type includeEntry struct {
	file     string
	typeName string
}

var includes = map[string]includeEntry{
	"camera":          {"assets/include/camera.wgsl", "CameraUniform"},
	"model":           {"assets/include/model.wgsl", "ModelUniform"},
	"vertex":          {"assets/include/vertex.wgsl", "VertexInput"},
	"textured_vertex": {"assets/include/textured_vertex.wgsl", "VertexInput"},
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process returns the source with every annotation line replaced.
	//
	// Parameters:
	//   - source: raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error naming the line of a malformed or unknown annotation
	Process(source string) (string, error)
}

type preProcessor struct {
	// included tracks structs already injected so a struct is declared at most once per module.
	included map[string]bool
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor backed by the embedded include sources.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = make(map[string]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		_, after, ok := strings.Cut(strings.TrimSpace(line), annotationPrefix)
		if !ok {
			out = append(out, line)
			continue
		}
		expanded, err := p.expand(strings.Fields(after))
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) expand(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("empty @oxy annotation")
	}

	switch args[0] {
	case "include":
		if len(args) != 2 {
			return "", fmt.Errorf("@oxy:include requires exactly one argument")
		}
		return p.include(args[1])
	case "group":
		if len(args) != 6 {
			return "", fmt.Errorf("@oxy:group requires group, binding, address space, name and struct")
		}
		group, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return "", fmt.Errorf("invalid group %q: %w", args[1], err)
		}
		binding, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return "", fmt.Errorf("invalid binding %q: %w", args[2], err)
		}
		if args[3] != "uniform" {
			return "", fmt.Errorf("unsupported address space %q", args[3])
		}
		entry, ok := includes[args[5]]
		if !ok {
			return "", fmt.Errorf("unknown struct %q", args[5])
		}
		decl := fmt.Sprintf("@group(%d) @binding(%d) var<uniform> %s: %s;", group, binding, args[4], entry.typeName)
		// The struct must be declared for the binding to compile; include it on first use.
		src, err := p.include(args[5])
		if err != nil {
			return "", err
		}
		if src == "" {
			return decl, nil
		}
		return src + "\n" + decl, nil
	default:
		return "", fmt.Errorf("unknown @oxy annotation %q", args[0])
	}
}

func (p *preProcessor) include(name string) (string, error) {
	entry, ok := includes[name]
	if !ok {
		return "", fmt.Errorf("unknown struct %q", name)
	}
	if p.included[name] {
		return "", nil
	}
	data, err := assets.ReadFile(entry.file)
	if err != nil {
		return "", err
	}
	p.included[name] = true
	return strings.TrimRight(string(data), "\n"), nil
}
