package components

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/stretchr/testify/assert"
)

func TestDefaultCameraIsIdentityView(t *testing.T) {
	c := NewDefaultCamera()
	assert.True(t, math.Mat4ApproxEqual(c.View(), mgl32.Ident4(), 1e-5))
}

func TestPanRotatesDirection(t *testing.T) {
	c := NewDefaultCamera()
	c.Pan(gomath.Pi/2, math.AxisY)
	assert.True(t, math.Vec3ApproxEqual(c.Direction(), mgl32.Vec3{-1, 0, 0}, 1e-5), "got %v", c.Direction())

	c.Pan(-gomath.Pi/2, math.AxisY)
	assert.True(t, math.Vec3ApproxEqual(c.Direction(), mgl32.Vec3{0, 0, -1}, 1e-5))
}

func TestTranslateMovesTargetWithPosition(t *testing.T) {
	c := NewDefaultCamera()
	c.Translate(2, math.AxisX)
	c.Translate(-1, math.AxisZ)
	assert.Equal(t, mgl32.Vec3{2, 0, -1}, c.Position())
	assert.Equal(t, mgl32.Vec3{2, 0, -2}, c.Target())

	// a point straight ahead ends up on the view axis
	p := mgl32.TransformCoordinate(mgl32.Vec3{2, 0, -5}, c.View())
	assert.InDelta(t, 0, p.X(), 1e-5)
	assert.InDelta(t, 0, p.Y(), 1e-5)
	assert.InDelta(t, -4, p.Z(), 1e-5)
}

func TestViewIsCachedUntilChanged(t *testing.T) {
	c := NewCamera(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{0, 0, -1})
	first := c.View()
	assert.Equal(t, first, c.View())

	c.SetPosition(mgl32.Vec3{0, 1, 3})
	assert.NotEqual(t, first, c.View())

	c.Reset()
	assert.True(t, math.Mat4ApproxEqual(c.View(), mgl32.Ident4(), 1e-5))
}
