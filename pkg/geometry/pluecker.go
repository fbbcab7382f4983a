package geometry

import (
	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/lanes"
)

// CullMode selects which triangle orientations the predicate accepts
type CullMode uint8

const (
	// CullNone accepts front and back facing triangles (default)
	CullNone CullMode = iota
	// CullBack rejects triangles whose edge functions are positive. With the
	// (v0,v1,v2) winding a front face has its geometric normal pointing
	// against the ray direction.
	CullBack
)

// String returns the flag spelling of the mode
func (c CullMode) String() string {
	switch c {
	case CullBack:
		return "back"
	default:
		return "none"
	}
}

// ParseCullMode parses "none" or "back"
func ParseCullMode(s string) (CullMode, bool) {
	switch s {
	case "", "none":
		return CullNone, true
	case "back":
		return CullBack, true
	}
	return CullNone, false
}

// Pluecker is the watertight ray/triangle predicate. The triangle is moved
// into a frame centered at the ray origin and each edge is tested with a
// Pluecker line test, so neighbouring triangles evaluate bit-identical edge
// functions along a shared edge and no ray can slip between them.
//
// The zero value is ready to use and accepts both orientations.
type Pluecker struct {
	Cull  CullMode
	MapUV UVMapper // Optional remapping applied after the built-in quad mapping
}

// pluckerHit carries the per-lane values of the edge test to the epilog
type pluckerHit struct {
	u, v, uvw, t lanes.Float
	ng           lanes.Vec3
}

// edgeTest runs the shared kernel for all lanes and returns the lanes that
// hit inside [tnear, tfar].
func (p *Pluecker) edgeTest(valid lanes.Mask, org, dir, triV0, triV1, triV2 lanes.Vec3, tnear, tfar lanes.Float) (lanes.Mask, pluckerHit) {
	var h pluckerHit
	if valid.None() {
		return 0, h
	}

	// vertices relative to the ray origin
	v0 := triV0.Sub(org)
	v1 := triV1.Sub(org)
	v2 := triV2.Sub(org)

	e0 := v2.Sub(v0)
	e1 := v0.Sub(v1)
	e2 := v1.Sub(v2)

	u := e0.Cross(v2.Add(v0)).Dot(dir)
	v := e1.Cross(v0.Add(v1)).Dot(dir)
	w := e2.Cross(v1.Add(v2)).Dot(dir)
	uvw := u.Add(v).Add(w)
	eps := uvw.Abs().Scale(core.Ulp)

	maxUVW := lanes.Max3(u, v, w)
	if p.Cull == CullBack {
		valid &= lanes.LessEq(maxUVW, eps)
	} else {
		minUVW := lanes.Min3(u, v, w)
		negEps := lanes.Float{}.Sub(eps)
		valid &= lanes.GreaterEq(minUVW, negEps) | lanes.LessEq(maxUVW, eps)
	}
	if valid.None() {
		return 0, h
	}

	ng := stableTriangleNormal(e0, e1, e2)
	den := ng.Dot(dir).Twice()
	num := v0.Dot(ng).Twice()
	t := num.Div(den)

	valid &= lanes.LessEq(tnear, t) & lanes.LessEq(t, tfar)
	valid &= lanes.NotEqual(den, lanes.Float{})
	if valid.None() {
		return 0, h
	}

	h.u, h.v, h.uvw, h.t, h.ng = u, v, uvw, t, ng
	return valid, h
}

// finalize turns edge function values into barycentrics and applies the UV
// mappers.
func (p *Pluecker) finalize(h *pluckerHit, quad lanes.Mask) (lanes.Float, lanes.Float, lanes.Vec3) {
	invalid := lanes.Less(h.uvw.Abs(), lanes.Broadcast(core.MinRcpInput))
	rcp := lanes.Select(invalid, lanes.Float{}, lanes.Broadcast(1).Div(h.uvw))
	u := h.u.Mul(rcp)
	v := h.v.Mul(rcp)
	ng := h.ng
	if quad.Any() {
		u, v, ng = QuadUV{Second: quad}.Map(u, v, ng)
	}
	if p.MapUV != nil {
		u, v, ng = p.MapUV.Map(u, v, ng)
	}
	return u, v, ng
}

// stableTriangleNormal picks, per component, the cross product of the edge
// pair with the smaller cancellation error.
func stableTriangleNormal(a, b, c lanes.Vec3) lanes.Vec3 {
	abX, abY, abZ := a.Z.Mul(b.Y), a.X.Mul(b.Z), a.Y.Mul(b.X)
	bcX, bcY, bcZ := b.Z.Mul(c.Y), b.X.Mul(c.Z), b.Y.Mul(c.X)
	crossAB := lanes.Vec3{
		X: a.Y.Mul(b.Z).Sub(abX),
		Y: a.Z.Mul(b.X).Sub(abY),
		Z: a.X.Mul(b.Y).Sub(abZ),
	}
	crossBC := lanes.Vec3{
		X: b.Y.Mul(c.Z).Sub(bcX),
		Y: b.Z.Mul(c.X).Sub(bcY),
		Z: b.X.Mul(c.Y).Sub(bcZ),
	}
	return lanes.Vec3{
		X: lanes.Select(lanes.Less(abX.Abs(), bcX.Abs()), crossAB.X, crossBC.X),
		Y: lanes.Select(lanes.Less(abY.Abs(), bcY.Abs()), crossAB.Y, crossBC.Y),
		Z: lanes.Select(lanes.Less(abZ.Abs(), bcZ.Abs()), crossAB.Z, crossBC.Z),
	}
}

// nearestLane returns the valid lane with the smallest t, lowest index on ties
func nearestLane(valid lanes.Mask, t lanes.Float) int {
	best := valid.First()
	for m := valid.Clear(best); m.Any(); {
		i := m.First()
		m = m.Clear(i)
		if t[i] < t[best] {
			best = i
		}
	}
	return best
}

// Intersect1 tests one ray against every lane of tri and commits the nearest
// hit into the ray. It reports whether the ray was updated.
func (p *Pluecker) Intersect1(ray *core.Ray, tri *Triangle4) bool {
	valid, h := p.edgeTest(tri.Valid,
		lanes.Broadcast3(ray.Org), lanes.Broadcast3(ray.Dir),
		tri.V0, tri.V1, tri.V2,
		lanes.Broadcast(ray.TNear), lanes.Broadcast(ray.TFar))
	if valid.None() {
		return false
	}

	u, v, ng := p.finalize(&h, tri.Quad)
	i := nearestLane(valid, h.t)
	ray.TFar = h.t[i]
	ray.Hit = core.Hit{
		GeomID: tri.GeomID[i],
		PrimID: tri.PrimID[i],
		U:      u[i],
		V:      v[i],
		T:      h.t[i],
		Ng:     ng.Lane(i),
	}
	return true
}

// Occluded1 reports whether any lane of tri blocks the ray. The ray is not
// modified.
func (p *Pluecker) Occluded1(ray *core.Ray, tri *Triangle4) bool {
	valid, _ := p.edgeTest(tri.Valid,
		lanes.Broadcast3(ray.Org), lanes.Broadcast3(ray.Dir),
		tri.V0, tri.V1, tri.V2,
		lanes.Broadcast(ray.TNear), lanes.Broadcast(ray.TFar))
	return valid.Any()
}

// IntersectK tests the active rays of a packet against one triangle and
// commits the hit into each ray that found one. It returns the updated lanes.
func (p *Pluecker) IntersectK(valid lanes.Mask, rays *core.Ray4, tri Triangle) lanes.Mask {
	valid, h := p.edgeTest(valid&rays.Active(),
		rays.Org, rays.Dir,
		lanes.Broadcast3(tri.V0), lanes.Broadcast3(tri.V1), lanes.Broadcast3(tri.V2),
		rays.TNear, rays.TFar)
	if valid.None() {
		return 0
	}

	var quad lanes.Mask
	if tri.QuadHalf {
		quad = lanes.All
	}
	u, v, ng := p.finalize(&h, quad)
	for m := valid; m.Any(); {
		k := m.First()
		m = m.Clear(k)
		rays.TFar[k] = h.t[k]
		rays.T[k] = h.t[k]
		rays.U[k] = u[k]
		rays.V[k] = v[k]
		rays.Ng.SetLane(k, ng.Lane(k))
		rays.GeomID[k] = tri.GeomID
		rays.PrimID[k] = tri.PrimID
	}
	return valid
}

// OccludedK returns the active rays of the packet blocked by tri
func (p *Pluecker) OccludedK(valid lanes.Mask, rays *core.Ray4, tri Triangle) lanes.Mask {
	valid, _ = p.edgeTest(valid&rays.Active(),
		rays.Org, rays.Dir,
		lanes.Broadcast3(tri.V0), lanes.Broadcast3(tri.V1), lanes.Broadcast3(tri.V2),
		rays.TNear, rays.TFar)
	return valid
}

// IntersectLane tests ray k of a packet against every lane of tri and
// commits the nearest hit into that ray.
func (p *Pluecker) IntersectLane(rays *core.Ray4, k int, tri *Triangle4) bool {
	if rays.TNear[k] > rays.TFar[k] {
		return false
	}
	valid, h := p.edgeTest(tri.Valid,
		broadcastLane(&rays.Org, k), broadcastLane(&rays.Dir, k),
		tri.V0, tri.V1, tri.V2,
		lanes.Broadcast(rays.TNear[k]), lanes.Broadcast(rays.TFar[k]))
	if valid.None() {
		return false
	}

	u, v, ng := p.finalize(&h, tri.Quad)
	i := nearestLane(valid, h.t)
	rays.TFar[k] = h.t[i]
	rays.T[k] = h.t[i]
	rays.U[k] = u[i]
	rays.V[k] = v[i]
	rays.Ng.SetLane(k, ng.Lane(i))
	rays.GeomID[k] = tri.GeomID[i]
	rays.PrimID[k] = tri.PrimID[i]
	return true
}

// OccludedLane reports whether any lane of tri blocks ray k of the packet
func (p *Pluecker) OccludedLane(rays *core.Ray4, k int, tri *Triangle4) bool {
	if rays.TNear[k] > rays.TFar[k] {
		return false
	}
	valid, _ := p.edgeTest(tri.Valid,
		broadcastLane(&rays.Org, k), broadcastLane(&rays.Dir, k),
		tri.V0, tri.V1, tri.V2,
		lanes.Broadcast(rays.TNear[k]), lanes.Broadcast(rays.TFar[k]))
	return valid.Any()
}

func broadcastLane(v *lanes.Vec3, k int) lanes.Vec3 {
	return lanes.Broadcast3(v.Lane(k))
}
