package shapes

import (
	"embed"
	"fmt"
	"strings"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

//go:embed shaders
var shaderFS embed.FS

// Kind is the primitive a shape draws.
type Kind int

const (
	KindTriangle Kind = iota
	KindSquare
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindTriangle:
		return "triangle"
	case KindSquare:
		return "square"
	case KindPolygon:
		return "polygon"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "triangle":
		return KindTriangle, nil
	case "square":
		return KindSquare, nil
	case "polygon":
		return KindPolygon, nil
	}
	return 0, fmt.Errorf("unknown shape kind '%s'", s)
}

// ProgramName is the name the shape's program is registered under, also the
// base name of its stage files.
func (k Kind) ProgramName() string {
	if k == KindPolygon {
		return "polygon"
	}
	return "shape"
}

// Sources holds the GLSL of every stage of a program. Geometry is empty for
// programs without a geometry stage.
type Sources struct {
	Vertex   string
	Geometry string
	Fragment string
}

// Stage returns the source of one stage.
func (s Sources) Stage(stage metadata.ShaderStage) string {
	switch stage {
	case metadata.ShaderStageVertex:
		return s.Vertex
	case metadata.ShaderStageGeometry:
		return s.Geometry
	case metadata.ShaderStageFragment:
		return s.Fragment
	}
	return ""
}

// WithStage returns a copy of s with one stage replaced.
func (s Sources) WithStage(stage metadata.ShaderStage, source string) Sources {
	switch stage {
	case metadata.ShaderStageVertex:
		s.Vertex = source
	case metadata.ShaderStageGeometry:
		s.Geometry = source
	case metadata.ShaderStageFragment:
		s.Fragment = source
	}
	return s
}

func mustRead(name string) string {
	b, err := shaderFS.ReadFile("shaders/" + name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// DefaultSources returns the embedded program of a shape kind.
func DefaultSources(kind Kind) Sources {
	if kind == KindPolygon {
		return Sources{
			Vertex:   mustRead("polygon.vert"),
			Geometry: mustRead("polygon.geom"),
			Fragment: mustRead("shape.frag"),
		}
	}
	return Sources{
		Vertex:   mustRead("shape.vert"),
		Fragment: mustRead("shape.frag"),
	}
}

// ProgramNames lists the programs that ship with the package.
func ProgramNames() []string {
	return []string{KindTriangle.ProgramName(), KindPolygon.ProgramName()}
}

// DefaultProgram returns the embedded sources registered under name.
func DefaultProgram(name string) (Sources, bool) {
	switch name {
	case KindTriangle.ProgramName():
		return DefaultSources(KindTriangle), true
	case KindPolygon.ProgramName():
		return DefaultSources(KindPolygon), true
	}
	return Sources{}, false
}
