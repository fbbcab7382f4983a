package geometry

import "github.com/df07/go-raycore/pkg/lanes"

// UVMapper rewrites the barycentrics and geometric normal of candidate hits
// before they are committed. Implementations receive and return values and
// must not retain them.
type UVMapper interface {
	Map(u, v lanes.Float, ng lanes.Vec3) (lanes.Float, lanes.Float, lanes.Vec3)
}

// UVIdentity leaves hit parameters unchanged
type UVIdentity struct{}

// Map implements UVMapper
func (UVIdentity) Map(u, v lanes.Float, ng lanes.Vec3) (lanes.Float, lanes.Float, lanes.Vec3) {
	return u, v, ng
}

// QuadUV expresses barycentrics of the second quad half (v2,v3,v1) in the
// parameter space of the whole quad. Lanes outside Second pass through.
type QuadUV struct {
	Second lanes.Mask
}

// Map implements UVMapper
func (q QuadUV) Map(u, v lanes.Float, ng lanes.Vec3) (lanes.Float, lanes.Float, lanes.Vec3) {
	one := lanes.Broadcast(1)
	return lanes.Select(q.Second, one.Sub(u), u), lanes.Select(q.Second, one.Sub(v), v), ng
}

// UVFunc adapts a function to UVMapper
type UVFunc func(u, v lanes.Float, ng lanes.Vec3) (lanes.Float, lanes.Float, lanes.Vec3)

// Map implements UVMapper
func (f UVFunc) Map(u, v lanes.Float, ng lanes.Vec3) (lanes.Float, lanes.Float, lanes.Vec3) {
	return f(u, v, ng)
}
