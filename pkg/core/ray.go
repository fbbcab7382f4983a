package core

import "github.com/df07/go-raycore/pkg/lanes"

// InvalidID marks an unset geometry or primitive id
const InvalidID = ^uint32(0)

// Hit is the record written by a committed intersection
type Hit struct {
	GeomID uint32  // Geometry that was hit
	PrimID uint32  // Primitive within that geometry
	U, V   float32 // Barycentric coordinates of the hit point
	T      float32 // Hit distance along the ray
	Ng     Vec3    // Unnormalized geometric normal
}

// Valid reports whether the record holds a hit
func (h Hit) Valid() bool {
	return h.GeomID != InvalidID
}

// Ray is a single query ray. TFar shrinks as closer hits are committed and
// never grows during a query.
type Ray struct {
	Org   Vec3    // Origin
	Dir   Vec3    // Direction, not required to be normalized
	TNear float32 // Start of the valid hit interval
	TFar  float32 // End of the valid hit interval
	Time  float32 // Motion sample in [0,1]
	Hit   Hit
}

// NewRay creates a ray covering [0, +Inf) at time 0 with no hit
func NewRay(org, dir Vec3) Ray {
	return Ray{
		Org:   org,
		Dir:   dir,
		TNear: 0,
		TFar:  Inf,
		Hit:   Hit{GeomID: InvalidID, PrimID: InvalidID},
	}
}

// NewRaySegment creates a ray limited to [tnear, tfar] at the given time
func NewRaySegment(org, dir Vec3, tnear, tfar, time float32) Ray {
	r := NewRay(org, dir)
	r.TNear = tnear
	r.TFar = tfar
	r.Time = time
	return r
}

// At returns the point at parameter t along the ray
func (r *Ray) At(t float32) Vec3 {
	return r.Org.Add(r.Dir.Mul(t))
}

// Active reports whether the ray interval is non-empty
func (r *Ray) Active() bool {
	return r.TNear <= r.TFar
}

// Ray4 is a packet of lanes.Width rays stored as structure of arrays
type Ray4 struct {
	Org, Dir    lanes.Vec3
	TNear, TFar lanes.Float
	Time        lanes.Float

	GeomID, PrimID [lanes.Width]uint32
	U, V, T        lanes.Float
	Ng             lanes.Vec3
}

// NewRay4 packs up to lanes.Width rays; missing lanes are left inactive
// with an empty interval
func NewRay4(rays ...Ray) Ray4 {
	var p Ray4
	for k := 0; k < lanes.Width; k++ {
		if k < len(rays) {
			p.SetLane(k, rays[k])
			continue
		}
		p.TNear[k] = Inf
		p.TFar[k] = 0
		p.GeomID[k] = InvalidID
		p.PrimID[k] = InvalidID
	}
	return p
}

// Active returns the lanes whose interval is non-empty
func (p *Ray4) Active() lanes.Mask {
	return lanes.LessEq(p.TNear, p.TFar)
}

// Lane extracts ray k
func (p *Ray4) Lane(k int) Ray {
	return Ray{
		Org:   p.Org.Lane(k),
		Dir:   p.Dir.Lane(k),
		TNear: p.TNear[k],
		TFar:  p.TFar[k],
		Time:  p.Time[k],
		Hit: Hit{
			GeomID: p.GeomID[k],
			PrimID: p.PrimID[k],
			U:      p.U[k],
			V:      p.V[k],
			T:      p.T[k],
			Ng:     p.Ng.Lane(k),
		},
	}
}

// SetLane stores ray r into lane k
func (p *Ray4) SetLane(k int, r Ray) {
	p.Org.SetLane(k, r.Org)
	p.Dir.SetLane(k, r.Dir)
	p.TNear[k] = r.TNear
	p.TFar[k] = r.TFar
	p.Time[k] = r.Time
	p.GeomID[k] = r.Hit.GeomID
	p.PrimID[k] = r.Hit.PrimID
	p.U[k] = r.Hit.U
	p.V[k] = r.Hit.V
	p.T[k] = r.Hit.T
	p.Ng.SetLane(k, r.Hit.Ng)
}
