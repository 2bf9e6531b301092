package math

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-5

func TestTranslateRoundTrip(t *testing.T) {
	tr := TransformFromPositionSize(0.25, -0.5, 0.3)
	before := tr.Matrix()

	tr.Translate(0.7, -1.2, 0)
	assert.False(t, Mat4ApproxEqual(tr.Matrix(), before, tolerance))
	tr.Translate(-0.7, 1.2, 0)

	assert.True(t, Mat4ApproxEqual(tr.Matrix(), before, tolerance))
}

func TestRotateInverseIsIdentity(t *testing.T) {
	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		t.Run(axis.String(), func(t *testing.T) {
			tr := NewTransform()
			tr.Rotate(1.1, axis)
			tr.Rotate(-1.1, axis)
			assert.True(t, Mat4ApproxEqual(tr.Matrix(), mgl32.Ident4(), tolerance))
		})
	}
}

func TestRotateUsesRadians(t *testing.T) {
	tr := NewTransform()
	tr.Rotate(gomath.Pi/2, AxisZ)
	got := tr.Apply(mgl32.Vec3{1, 0, 0})
	assert.True(t, Vec3ApproxEqual(got, mgl32.Vec3{0, 1, 0}, tolerance), "got %v", got)

	deg := NewTransform()
	deg.RotateDegrees(90, AxisZ)
	assert.True(t, deg.ApproxEqual(tr, tolerance))
}

func TestInverseOperationsRestoreTransform(t *testing.T) {
	tr := TransformFromPositionSize(0.1, 0.2, 0.5)
	before := TransformFromMatrix(tr.Matrix())

	tr.Rotate(0.3, AxisZ)
	tr.Scale(2, 3, 1)
	tr.Scale(0.5, 1.0/3.0, 1)
	tr.Rotate(-0.3, AxisZ)

	// near-zero elements are compared absolutely, not relative to zero
	assert.True(t, tr.ApproxEqual(before, tolerance), "got %v", tr.Matrix())
	assert.False(t, tr.ApproxEqual(NewTransform(), tolerance))
}

func TestApproxEqualIsAbsolute(t *testing.T) {
	assert.True(t, Vec3ApproxEqual(mgl32.Vec3{4.37e-08, 1, 0}, mgl32.Vec3{0, 1, 0}, tolerance))
	assert.False(t, Vec3ApproxEqual(mgl32.Vec3{1e-3, 1, 0}, mgl32.Vec3{0, 1, 0}, tolerance))
	assert.Equal(t, float32(2), Abs(float32(-2)))
}

func TestOperationsLeftMultiply(t *testing.T) {
	// scale then translate: the translation is not scaled
	tr := NewTransform()
	tr.Scale(2, 2, 1)
	tr.Translate(1, 0, 0)
	got := tr.Apply(mgl32.Vec3{1, 0, 0})
	assert.True(t, Vec3ApproxEqual(got, mgl32.Vec3{3, 0, 0}, tolerance), "got %v", got)
}

func TestInitialTransform(t *testing.T) {
	tr := TransformFromPositionSize(0.5, 0.5, 0.25)
	got := tr.Apply(mgl32.Vec3{1, 1, 0})
	assert.True(t, Vec3ApproxEqual(got, mgl32.Vec3{0.75, 0.75, 0}, tolerance), "got %v", got)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, Clamp(1, 3, 14))
	assert.Equal(t, 14, Clamp(20, 3, 14))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
	assert.InDelta(t, gomath.Pi, float64(DegToRad(180)), tolerance)
	assert.InDelta(t, 90, float64(RadToDeg(gomath.Pi/2)), 1e-4)
}
