package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/constraints"
)

const (
	K_PI      float32 = gomath.Pi
	K_DEG2RAD float32 = K_PI / 180.0
	K_RAD2DEG float32 = 180.0 / K_PI
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// DegToRad converts the provided degrees to radians.
func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD
}

// RadToDeg converts the provided radians to degrees.
func RadToDeg(radians float32) float32 {
	return radians * K_RAD2DEG
}

// Mat4ApproxEqual reports whether every element of a and b differs by at most
// epsilon. mgl32's ApproxEqualThreshold is relative, which is too strict
// against elements that should be zero.
func Mat4ApproxEqual(a, b mgl32.Mat4, epsilon float32) bool {
	for i := range a {
		if Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}

// Vec3ApproxEqual is Mat4ApproxEqual for vectors.
func Vec3ApproxEqual(a, b mgl32.Vec3, epsilon float32) bool {
	for i := range a {
		if Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}

func Abs[T constraints.Float | constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
