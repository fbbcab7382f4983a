package core

import "math"

// SampleOnUnitSphere maps two uniform numbers in [0,1) to a uniform
// direction on the unit sphere
func SampleOnUnitSphere(u1, u2 float32) Vec3 {
	z := 1 - 2*float64(u1) // z in [-1, 1]
	r := math.Sqrt(math.Max(0, 1-z*z))
	phi := 2 * math.Pi * float64(u2)
	return NewVec3(float32(r*math.Cos(phi)), float32(r*math.Sin(phi)), float32(z))
}

// SamplePointInUnitSphere maps three uniform numbers in [0,1) to a uniform
// point inside the unit sphere without rejection
func SamplePointInUnitSphere(u1, u2, u3 float32) Vec3 {
	// the cube root accounts for volume growing with r^3
	r := math.Cbrt(float64(u1))
	phi := 2 * math.Pi * float64(u2)
	cosTheta := 2*float64(u3) - 1
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	return NewVec3(
		float32(r*sinTheta*math.Cos(phi)),
		float32(r*sinTheta*math.Sin(phi)),
		float32(r*cosTheta),
	)
}
