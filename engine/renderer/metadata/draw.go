package metadata

import "fmt"

/** @brief Primitive assembly mode of a draw call. */
type PrimitiveMode int

const (
	PrimitiveTriangles PrimitiveMode = iota
	PrimitivePoints
	PrimitiveLines
	PrimitiveTriangleStrip
)

func (m PrimitiveMode) String() string {
	switch m {
	case PrimitiveTriangles:
		return "triangles"
	case PrimitivePoints:
		return "points"
	case PrimitiveLines:
		return "lines"
	case PrimitiveTriangleStrip:
		return "triangle_strip"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

/**
 * @brief A driver error flag as returned by the error status query.
 * Values match the OpenGL error enums.
 */
type ErrorCode uint32

const (
	ErrorNone                        ErrorCode = 0
	ErrorInvalidEnum                 ErrorCode = 0x0500
	ErrorInvalidValue                ErrorCode = 0x0501
	ErrorInvalidOperation            ErrorCode = 0x0502
	ErrorStackOverflow               ErrorCode = 0x0503
	ErrorStackUnderflow              ErrorCode = 0x0504
	ErrorOutOfMemory                 ErrorCode = 0x0505
	ErrorInvalidFramebufferOperation ErrorCode = 0x0506
	ErrorContextLost                 ErrorCode = 0x0507
)

// Message is the human readable category of the error code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorNone:
		return "no error"
	case ErrorInvalidEnum:
		return "invalid enum"
	case ErrorInvalidValue:
		return "invalid value"
	case ErrorInvalidOperation:
		return "invalid operation"
	case ErrorStackOverflow:
		return "stack overflow"
	case ErrorStackUnderflow:
		return "stack underflow"
	case ErrorOutOfMemory:
		return "out of memory"
	case ErrorInvalidFramebufferOperation:
		return "invalid framebuffer operation"
	case ErrorContextLost:
		return "context lost"
	}
	return fmt.Sprintf("unrecognized error code 0x%04x", uint32(c))
}

func (c ErrorCode) String() string {
	return c.Message()
}
