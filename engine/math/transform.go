package math

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Axis selects one of the three principal rotation axes.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", uint8(a))
}

// Vector returns the unit vector of the axis. Unknown axes fall back to Z,
// the only axis that keeps a 2D shape in the view plane.
func (a Axis) Vector() mgl32.Vec3 {
	switch a {
	case AxisX:
		return mgl32.Vec3{1, 0, 0}
	case AxisY:
		return mgl32.Vec3{0, 1, 0}
	}
	return mgl32.Vec3{0, 0, 1}
}

/**
 * @brief A 4x4 model matrix mutated by elementary transforms. Every
 * operation left-multiplies: M' = E * M, so the most recent operation is
 * applied last to the vertex.
 */
type Transform struct {
	matrix mgl32.Mat4
}

// NewTransform returns an identity transform.
func NewTransform() *Transform {
	return &Transform{matrix: mgl32.Ident4()}
}

// TransformFromPositionSize returns T(x, y, 0) * S(size, size, 1).
func TransformFromPositionSize(x, y, size float32) *Transform {
	return &Transform{
		matrix: mgl32.Translate3D(x, y, 0).Mul4(mgl32.Scale3D(size, size, 1)),
	}
}

// TransformFromMatrix wraps an existing matrix.
func TransformFromMatrix(m mgl32.Mat4) *Transform {
	return &Transform{matrix: m}
}

func (t *Transform) Translate(dx, dy, dz float32) {
	t.apply(mgl32.Translate3D(dx, dy, dz))
}

// Rotate rotates by angle radians around the given axis.
func (t *Transform) Rotate(angle float32, axis Axis) {
	t.apply(mgl32.HomogRotate3D(angle, axis.Vector()))
}

func (t *Transform) RotateDegrees(degrees float32, axis Axis) {
	t.Rotate(DegToRad(degrees), axis)
}

func (t *Transform) Scale(sx, sy, sz float32) {
	t.apply(mgl32.Scale3D(sx, sy, sz))
}

func (t *Transform) apply(e mgl32.Mat4) {
	t.matrix = e.Mul4(t.matrix)
}

// Matrix returns a copy of the current model matrix.
func (t *Transform) Matrix() mgl32.Mat4 {
	return t.matrix
}

func (t *Transform) Reset() {
	t.matrix = mgl32.Ident4()
}

// Apply transforms a point by the current matrix.
func (t *Transform) Apply(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(p, t.matrix)
}

// ApproxEqual compares two transforms element-wise within epsilon.
func (t *Transform) ApproxEqual(other *Transform, epsilon float32) bool {
	return Mat4ApproxEqual(t.matrix, other.matrix, epsilon)
}
