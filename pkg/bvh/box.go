package bvh

import (
	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/lanes"
)

const (
	roundDown = 1 - 2*core.Ulp
	roundUp   = 1 + 2*core.Ulp
)

// RayContext holds the per-ray values the box test reuses at every node
type RayContext struct {
	org    [3]lanes.Float
	rdir   [3]lanes.Float
	near   [3]int // Bounds side holding the entry plane, per axis
	tnear  lanes.Float
	time   lanes.Float
	Robust bool // Widen the slab interval by 2 ulp on each side
}

// NewRayContext precomputes the reciprocal direction and entry planes of ray
func NewRayContext(ray *core.Ray, robust bool) RayContext {
	rdir := core.RcpSafe(ray.Dir)
	c := RayContext{
		tnear:  lanes.Broadcast(ray.TNear),
		time:   lanes.Broadcast(ray.Time),
		Robust: robust,
	}
	for axis := 0; axis < 3; axis++ {
		c.org[axis] = lanes.Broadcast(ray.Org[axis])
		c.rdir[axis] = lanes.Broadcast(rdir[axis])
		if rdir[axis] < 0 {
			c.near[axis] = 1
		}
	}
	return c
}

// Intersect tests the ray against the N child boxes of node and returns the
// slots hit within [tnear, tfar] together with their entry distances.
func (c *RayContext) Intersect(node *Node4, tfar float32) (lanes.Mask, lanes.Float) {
	return c.slabs(&node.Bounds, tfar)
}

// IntersectMB is Intersect for a motion node, with boxes taken at the ray time
func (c *RayContext) IntersectMB(node *Node4MB, tfar float32) (lanes.Mask, lanes.Float) {
	b := node.boundsAt(c.time)
	return c.slabs(&b, tfar)
}

func (c *RayContext) slabs(b *Bounds, tfar float32) (lanes.Mask, lanes.Float) {
	tNear := c.tnear
	tFar := lanes.Broadcast(tfar)
	for axis := 0; axis < 3; axis++ {
		nearPlane := b[c.near[axis]][axis]
		farPlane := b[1-c.near[axis]][axis]
		tNear = lanes.Max(tNear, nearPlane.Sub(c.org[axis]).Mul(c.rdir[axis]))
		tFar = lanes.Min(tFar, farPlane.Sub(c.org[axis]).Mul(c.rdir[axis]))
	}
	if c.Robust {
		return lanes.LessEq(tNear.Scale(roundDown), tFar.Scale(roundUp)), tNear
	}
	return lanes.LessEq(tNear, tFar), tNear
}
