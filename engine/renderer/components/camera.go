package components

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/math"
)

/**
 * @brief Represents a look-at camera. The view matrix is rebuilt lazily
 * when the position or the direction changed.
 */
type Camera struct {
	/** @brief The position of this camera. */
	position mgl32.Vec3
	/** @brief The direction the camera looks in, relative to its position. */
	direction mgl32.Vec3
	/** @brief The up vector of the view. */
	up mgl32.Vec3
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	isDirty bool
	/** @brief The cached view matrix. Use View() to read it. */
	viewMatrix mgl32.Mat4
}

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

// NewCamera places a camera at position looking along direction, with +Y up.
func NewCamera(position, direction mgl32.Vec3) *Camera {
	c := &Camera{
		position:  position,
		direction: direction,
		up:        mgl32.Vec3{0, 1, 0},
		isDirty:   true,
	}
	return c
}

// NewDefaultCamera looks down -Z from the origin, which reproduces the
// identity view for 2D shapes drawn at z = 0.
func NewDefaultCamera() *Camera {
	return NewCamera(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1})
}

func (c *Camera) Position() mgl32.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.position = position
	c.isDirty = true
}

func (c *Camera) Direction() mgl32.Vec3 {
	return c.direction
}

func (c *Camera) SetDirection(direction mgl32.Vec3) {
	c.direction = direction
	c.isDirty = true
}

// Target is the point the camera looks at.
func (c *Camera) Target() mgl32.Vec3 {
	return c.position.Add(c.direction)
}

// View returns the look-at matrix of the camera.
func (c *Camera) View() mgl32.Mat4 {
	if c.isDirty {
		c.viewMatrix = mgl32.LookAtV(c.position, c.Target(), c.up)
		c.isDirty = false
	}
	return c.viewMatrix
}

// Translate moves the camera by amount along axis. The direction is kept,
// so the target moves with it.
func (c *Camera) Translate(amount float32, axis math.Axis) {
	c.position = c.position.Add(axis.Vector().Mul(amount))
	c.isDirty = true
}

// Pan turns the view direction by angle radians around axis, using the
// Rodrigues rotation formula.
func (c *Camera) Pan(angle float32, axis math.Axis) {
	k := axis.Vector()
	v := c.direction
	cos := float32(gomath.Cos(float64(angle)))
	sin := float32(gomath.Sin(float64(angle)))

	c.direction = v.Mul(cos).
		Add(k.Cross(v).Mul(sin)).
		Add(k.Mul(k.Dot(v) * (1 - cos)))
	c.isDirty = true
}

// Reset restores the default camera.
func (c *Camera) Reset() {
	*c = *NewDefaultCamera()
}
