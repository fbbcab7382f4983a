package geometry

import (
	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/lanes"
)

// Triangle is a single triangle as handed out by a Source
type Triangle struct {
	V0, V1, V2 core.Vec3 // The three vertices
	GeomID     uint32    // Owning geometry
	PrimID     uint32    // Primitive index within the geometry
	QuadHalf   bool      // Second half (v2,v3,v1) of a quad
}

// Bounds returns the axis-aligned bounding box of the triangle
func (t Triangle) Bounds() core.AABB {
	return core.NewAABBFromPoints(t.V0, t.V1, t.V2)
}

// Centroid returns the average of the three vertices
func (t Triangle) Centroid() core.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Mul(1.0 / 3.0)
}

// Triangle4 packs up to lanes.Width triangles for one batched predicate call
type Triangle4 struct {
	V0, V1, V2     lanes.Vec3
	GeomID, PrimID [lanes.Width]uint32
	Valid          lanes.Mask // Lanes holding a triangle
	Quad           lanes.Mask // Lanes that are the second half of a quad
}

// NewTriangle4 packs at most lanes.Width triangles; excess input is ignored
func NewTriangle4(tris []Triangle) Triangle4 {
	var block Triangle4
	for i := 0; i < lanes.Width; i++ {
		if i >= len(tris) {
			block.GeomID[i] = core.InvalidID
			block.PrimID[i] = core.InvalidID
			continue
		}
		block.set(i, tris[i])
	}
	return block
}

func (b *Triangle4) set(i int, t Triangle) {
	b.V0.SetLane(i, t.V0)
	b.V1.SetLane(i, t.V1)
	b.V2.SetLane(i, t.V2)
	b.GeomID[i] = t.GeomID
	b.PrimID[i] = t.PrimID
	b.Valid |= 1 << i
	if t.QuadHalf {
		b.Quad |= 1 << i
	}
}

// Size returns the number of valid lanes
func (b *Triangle4) Size() int {
	return b.Valid.Count()
}

// Triangle unpacks lane i
func (b *Triangle4) Triangle(i int) Triangle {
	return Triangle{
		V0:       b.V0.Lane(i),
		V1:       b.V1.Lane(i),
		V2:       b.V2.Lane(i),
		GeomID:   b.GeomID[i],
		PrimID:   b.PrimID[i],
		QuadHalf: b.Quad.Has(i),
	}
}

// Bounds returns the box around all valid lanes
func (b *Triangle4) Bounds() core.AABB {
	box := core.EmptyAABB()
	for m := b.Valid; m.Any(); {
		i := m.First()
		m = m.Clear(i)
		box = box.Union(b.Triangle(i).Bounds())
	}
	return box
}

// Triangle4MB is a Triangle4 whose vertices move linearly over [0,1]
type Triangle4MB struct {
	Triangle4             // Vertices at time 0
	D0, D1, D2 lanes.Vec3 // Vertex change per unit time
}

// NewTriangle4MB packs triangles at time 0 together with their per-unit-time
// vertex deltas. Both slices must describe the same primitives in the same
// order.
func NewTriangle4MB(base, delta []Triangle) Triangle4MB {
	block := Triangle4MB{Triangle4: NewTriangle4(base)}
	n := min(len(base), len(delta), lanes.Width)
	for i := 0; i < n; i++ {
		block.D0.SetLane(i, delta[i].V0)
		block.D1.SetLane(i, delta[i].V1)
		block.D2.SetLane(i, delta[i].V2)
	}
	return block
}

// At returns the block with vertices interpolated to time
func (b *Triangle4MB) At(time float32) Triangle4 {
	tt := lanes.Broadcast(time)
	out := b.Triangle4
	out.V0 = b.V0.Add(b.D0.MulScalar(tt))
	out.V1 = b.V1.Add(b.D1.MulScalar(tt))
	out.V2 = b.V2.Add(b.D2.MulScalar(tt))
	return out
}

// BoundsAt1 returns the box around all valid lanes at time 1
func (b *Triangle4MB) BoundsAt1() core.AABB {
	end := b.At(1)
	return end.Bounds()
}
