package metadata

import "fmt"

/** @brief The binding point a buffer is attached to. */
type BufferTarget int

const (
	/** @brief Vertex attribute data. */
	BufferTargetArray BufferTarget = iota
	/** @brief Index (element) data. */
	BufferTargetElementArray
)

func (t BufferTarget) String() string {
	switch t {
	case BufferTargetArray:
		return "array"
	case BufferTargetElementArray:
		return "element_array"
	}
	return fmt.Sprintf("target(%d)", int(t))
}

/** @brief Hint to the driver about how often the buffer content changes. */
type BufferUsage int

const (
	BufferUsageStatic BufferUsage = iota
	BufferUsageDynamic
)

func (u BufferUsage) String() string {
	if u == BufferUsageDynamic {
		return "dynamic"
	}
	return "static"
}

/** @brief Scalar type of one vertex attribute or index component. */
type ElementType int

const (
	ElementTypeFloat ElementType = iota
	ElementTypeUnsignedInt
	ElementTypeInt
	ElementTypeUnsignedByte
)

// Size returns the size in bytes of one component.
func (e ElementType) Size() int {
	switch e {
	case ElementTypeUnsignedByte:
		return 1
	}
	return 4
}

func (e ElementType) String() string {
	switch e {
	case ElementTypeFloat:
		return "float"
	case ElementTypeUnsignedInt:
		return "uint"
	case ElementTypeInt:
		return "int"
	case ElementTypeUnsignedByte:
		return "ubyte"
	}
	return fmt.Sprintf("element(%d)", int(e))
}

/**
 * @brief Describes how bytes of the bound vertex buffer map to one
 * vertex shader input slot.
 */
type VertexAttribute struct {
	/** @brief The attribute location in the vertex stage. */
	Slot uint32
	/** @brief Number of components, 1 to 4. */
	Components int32
	/** @brief Component type. */
	Type ElementType
	/** @brief Whether integer data is normalised to [0,1] or [-1,1]. */
	Normalized bool
	/** @brief Distance in bytes between consecutive vertices, 0 for tightly packed. */
	Stride int32
	/** @brief Byte offset of the first component in the buffer. */
	Offset int
}
