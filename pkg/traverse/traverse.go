// Package traverse implements nearest-hit and occlusion queries over a bvh.Tree.
//
// Both queries run to completion on the calling goroutine, keep their stack
// in a fixed-size local array and never allocate. Any number of queries may
// run concurrently over the same tree as long as each uses its own ray.
package traverse

import (
	"github.com/df07/go-raycore/pkg/bvh"
	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/geometry"
	"github.com/df07/go-raycore/pkg/lanes"
)

// Observer receives traversal events. It exists for instrumentation and
// tests; a nil Observer costs one branch per step.
type Observer interface {
	// VisitNode is called after the box test of an inner node
	VisitNode(ref bvh.NodeRef, mask lanes.Mask, dist lanes.Float)
	// VisitLeaf is called before the primitives of a leaf are tested, with
	// the ray's tfar at that moment
	VisitLeaf(ref bvh.NodeRef, tfar float32)
}

// Intersector bundles the predicate and box test settings used by a query
type Intersector struct {
	Pluecker geometry.Pluecker
	Observer Observer
	Robust   bool // Conservative box test, see bvh.RayContext
}

var defaultIntersector Intersector

// Intersect finds the nearest hit of ray in tree with the default settings
func Intersect(tree *bvh.Tree, ray *core.Ray) bool {
	return defaultIntersector.Intersect(tree, ray)
}

// Occluded reports whether anything in tree blocks ray, with the default
// settings
func Occluded(tree *bvh.Tree, ray *core.Ray) bool {
	return defaultIntersector.Occluded(tree, ray)
}

type stackItem struct {
	ref  bvh.NodeRef
	dist float32
}

// stack is the fixed traversal stack; also used for occlusion, where dist is
// unused
type stack struct {
	items [bvh.StackSize]stackItem
	sp    int
}

func (s *stack) push(ref bvh.NodeRef, dist float32) {
	s.items[s.sp] = stackItem{ref: ref, dist: dist}
	s.sp++
}

func (s *stack) pop() stackItem {
	s.sp--
	return s.items[s.sp]
}

func (s *stack) empty() bool {
	return s.sp == 0
}

// sortTop orders the top n items so the nearest ends up on top
func (s *stack) sortTop(n int) {
	top := s.items[s.sp-n : s.sp]
	for i := 1; i < len(top); i++ {
		for j := i; j > 0 && top[j].dist > top[j-1].dist; j-- {
			top[j], top[j-1] = top[j-1], top[j]
		}
	}
}

// boxTest runs the 4-wide box test on inner node ref
func boxTest(tree *bvh.Tree, ctx *bvh.RayContext, ref bvh.NodeRef, tfar float32) (lanes.Mask, lanes.Float, *[bvh.N]bvh.NodeRef) {
	if tree.Motion() {
		node := &tree.MBNodes[ref.Index()]
		mask, dist := ctx.IntersectMB(node, tfar)
		return mask, dist, &node.Children
	}
	node := &tree.Nodes[ref.Index()]
	mask, dist := ctx.Intersect(node, tfar)
	return mask, dist, &node.Children
}
