package lanes

import (
	"math"
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"
)

// Width is the number of lanes evaluated together by one batch operation
const Width = 4

// Float holds one float32 per lane
type Float [Width]float32

// Mask holds one bit per lane, bit i set means lane i is active
type Mask uint8

// All has every lane active
const All Mask = 1<<Width - 1

// Broadcast returns a Float with every lane set to f
func Broadcast(f float32) Float {
	return Float{f, f, f, f}
}

// Add returns the lane-wise sum
func (a Float) Add(b Float) Float {
	return Float{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

// Sub returns the lane-wise difference
func (a Float) Sub(b Float) Float {
	return Float{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

// Mul returns the lane-wise product
func (a Float) Mul(b Float) Float {
	return Float{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

// Div returns the lane-wise quotient; lanes dividing by zero yield Inf or NaN
func (a Float) Div(b Float) Float {
	return Float{a[0] / b[0], a[1] / b[1], a[2] / b[2], a[3] / b[3]}
}

// Twice returns a+a per lane
func (a Float) Twice() Float {
	return a.Add(a)
}

// Scale multiplies every lane by s
func (a Float) Scale(s float32) Float {
	return Float{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

// Abs returns the lane-wise absolute value
func (a Float) Abs() Float {
	return Float{abs(a[0]), abs(a[1]), abs(a[2]), abs(a[3])}
}

// Min returns the lane-wise minimum
func Min(a, b Float) Float {
	return Float{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2]), min(a[3], b[3])}
}

// Max returns the lane-wise maximum
func Max(a, b Float) Float {
	return Float{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2]), max(a[3], b[3])}
}

// Min3 returns the lane-wise minimum of three values
func Min3(a, b, c Float) Float {
	return Min(Min(a, b), c)
}

// Max3 returns the lane-wise maximum of three values
func Max3(a, b, c Float) Float {
	return Max(Max(a, b), c)
}

// LessEq sets lane i when a[i] <= b[i]; NaN lanes compare false
func LessEq(a, b Float) Mask {
	var m Mask
	for i := 0; i < Width; i++ {
		if a[i] <= b[i] {
			m |= 1 << i
		}
	}
	return m
}

// GreaterEq sets lane i when a[i] >= b[i]; NaN lanes compare false
func GreaterEq(a, b Float) Mask {
	return LessEq(b, a)
}

// Less sets lane i when a[i] < b[i]
func Less(a, b Float) Mask {
	var m Mask
	for i := 0; i < Width; i++ {
		if a[i] < b[i] {
			m |= 1 << i
		}
	}
	return m
}

// NotEqual sets lane i when a[i] != b[i]
func NotEqual(a, b Float) Mask {
	var m Mask
	for i := 0; i < Width; i++ {
		if a[i] != b[i] {
			m |= 1 << i
		}
	}
	return m
}

// Select takes a[i] where m has lane i set and b[i] otherwise
func Select(m Mask, a, b Float) Float {
	var r Float
	for i := 0; i < Width; i++ {
		if m&(1<<i) != 0 {
			r[i] = a[i]
		} else {
			r[i] = b[i]
		}
	}
	return r
}

// ReduceMin returns the smallest lane value
func (a Float) ReduceMin() float32 {
	return min(a[0], a[1], a[2], a[3])
}

// Any reports whether at least one lane is active
func (m Mask) Any() bool { return m != 0 }

// None reports whether no lane is active
func (m Mask) None() bool { return m == 0 }

// Count returns the number of active lanes
func (m Mask) Count() int { return bits.OnesCount8(uint8(m)) }

// First returns the index of the lowest active lane; the mask must be non-empty
func (m Mask) First() int { return bits.TrailingZeros8(uint8(m)) }

// Clear returns m with lane i cleared
func (m Mask) Clear(i int) Mask { return m &^ (1 << i) }

// Has reports whether lane i is active
func (m Mask) Has(i int) bool { return m&(1<<i) != 0 }

// Vec3 is a structure-of-arrays vector holding one 3D vector per lane
type Vec3 struct {
	X, Y, Z Float
}

// Broadcast3 returns a Vec3 with every lane set to v
func Broadcast3(v mgl32.Vec3) Vec3 {
	return Vec3{X: Broadcast(v[0]), Y: Broadcast(v[1]), Z: Broadcast(v[2])}
}

// Add returns the lane-wise vector sum
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X.Add(o.X), v.Y.Add(o.Y), v.Z.Add(o.Z)}
}

// Sub returns the lane-wise vector difference
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X.Sub(o.X), v.Y.Sub(o.Y), v.Z.Sub(o.Z)}
}

// MulScalar multiplies every component of lane i by s[i]
func (v Vec3) MulScalar(s Float) Vec3 {
	return Vec3{v.X.Mul(s), v.Y.Mul(s), v.Z.Mul(s)}
}

// Dot returns the lane-wise dot product
func (v Vec3) Dot(o Vec3) Float {
	return v.X.Mul(o.X).Add(v.Y.Mul(o.Y)).Add(v.Z.Mul(o.Z))
}

// Cross returns the lane-wise cross product
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y.Mul(o.Z).Sub(v.Z.Mul(o.Y)),
		Y: v.Z.Mul(o.X).Sub(v.X.Mul(o.Z)),
		Z: v.X.Mul(o.Y).Sub(v.Y.Mul(o.X)),
	}
}

// Lane extracts the vector stored in lane i
func (v Vec3) Lane(i int) mgl32.Vec3 {
	return mgl32.Vec3{v.X[i], v.Y[i], v.Z[i]}
}

// SetLane stores p into lane i
func (v *Vec3) SetLane(i int, p mgl32.Vec3) {
	v.X[i], v.Y[i], v.Z[i] = p[0], p[1], p[2]
}

// Select3 takes a's lane where m is set and b's lane otherwise
func Select3(m Mask, a, b Vec3) Vec3 {
	return Vec3{Select(m, a.X, b.X), Select(m, a.Y, b.Y), Select(m, a.Z, b.Z)}
}

// Inf is +Inf in every lane
var Inf = Broadcast(float32(math.Inf(1)))

// NegInf is -Inf in every lane
var NegInf = Broadcast(float32(math.Inf(-1)))

func abs(f float32) float32 {
	return math.Float32frombits(math.Float32bits(f) &^ (1 << 31))
}
