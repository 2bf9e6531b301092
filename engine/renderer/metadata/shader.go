package metadata

import "fmt"

/**
 * @brief The kind of a single compilable program stage.
 */
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageGeometry
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageGeometry:
		return "geometry"
	case ShaderStageFragment:
		return "fragment"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Extension is the file suffix used for stage sources on disk.
func (s ShaderStage) Extension() string {
	switch s {
	case ShaderStageVertex:
		return "vert"
	case ShaderStageGeometry:
		return "geom"
	case ShaderStageFragment:
		return "frag"
	}
	return ""
}

// ShaderStageFromExtension is the inverse of Extension.
func ShaderStageFromExtension(ext string) (ShaderStage, bool) {
	switch ext {
	case "vert", ".vert":
		return ShaderStageVertex, true
	case "geom", ".geom":
		return ShaderStageGeometry, true
	case "frag", ".frag":
		return ShaderStageFragment, true
	}
	return 0, false
}
