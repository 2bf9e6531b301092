package shapes

import (
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const (
	floatSize       = 4
	positionUVBytes = 5 * floatSize
	positionBytes   = 3 * floatSize
)

// Unit geometry centered on the origin. Position is xyz, uv follows it.
var (
	triangleVertices = []float32{
		-1.0, -1.0, 0.0, 0.0, 0.0,
		1.0, -1.0, 0.0, 1.0, 0.0,
		0.0, 1.0, 0.0, 0.5, 1.0,
	}
	triangleIndices = []uint32{0, 1, 2}

	squareVertices = []float32{
		1.0, 1.0, 0.0, 1.0, 1.0,
		1.0, -1.0, 0.0, 1.0, 0.0,
		-1.0, -1.0, 0.0, 0.0, 0.0,
		-1.0, 1.0, 0.0, 0.0, 1.0,
	}
	squareIndices = []uint32{0, 1, 3, 1, 2, 3}

	// the geometry stage grows the polygon around this point
	polygonVertices = []float32{0.0, 0.0, 0.0}
)

// geometryFor returns private copies of the unit geometry of kind.
func geometryFor(kind Kind) ([]float32, []uint32) {
	switch kind {
	case KindTriangle:
		return append([]float32(nil), triangleVertices...), append([]uint32(nil), triangleIndices...)
	case KindSquare:
		return append([]float32(nil), squareVertices...), append([]uint32(nil), squareIndices...)
	}
	return append([]float32(nil), polygonVertices...), nil
}

func layoutFor(kind Kind) []metadata.VertexAttribute {
	if kind == KindPolygon {
		return []metadata.VertexAttribute{
			{Slot: 0, Components: 3, Type: metadata.ElementTypeFloat, Stride: positionBytes},
		}
	}
	return []metadata.VertexAttribute{
		{Slot: 0, Components: 3, Type: metadata.ElementTypeFloat, Stride: positionUVBytes},
		{Slot: 1, Components: 2, Type: metadata.ElementTypeFloat, Stride: positionUVBytes, Offset: positionBytes},
	}
}
