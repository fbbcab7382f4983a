package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec3 is the vector type used for ray origins, directions and vertices
type Vec3 = mgl32.Vec3

const (
	// Ulp is the float32 machine epsilon (2^-23)
	Ulp float32 = 1.0 / (1 << 23)

	// MinRcpInput is the smallest magnitude whose reciprocal is taken directly
	MinRcpInput float32 = 1e-18
)

// Inf is +Inf as float32
var Inf = float32(math.Inf(1))

// NewVec3 creates a new Vec3
func NewVec3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// RcpSafe returns the component-wise reciprocal of v. Components with
// magnitude below MinRcpInput are clamped to MinRcpInput keeping their sign,
// so the result never contains Inf or NaN.
func RcpSafe(v Vec3) Vec3 {
	var r Vec3
	for i := 0; i < 3; i++ {
		c := v[i]
		if Abs(c) < MinRcpInput {
			c = float32(math.Copysign(float64(MinRcpInput), float64(c)))
		}
		r[i] = 1 / c
	}
	return r
}

// Lerp returns a + t*(b-a) per component
func Lerp(a, b Vec3, t float32) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// MinVec3 returns the component-wise minimum
func MinVec3(a, b Vec3) Vec3 {
	return Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}

// MaxVec3 returns the component-wise maximum
func MaxVec3(a, b Vec3) Vec3 {
	return Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
}

// Abs returns |f|
func Abs(f float32) float32 {
	return math.Float32frombits(math.Float32bits(f) &^ (1 << 31))
}

// IsFinite reports whether every component of v is finite
func IsFinite(v Vec3) bool {
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
