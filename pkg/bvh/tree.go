package bvh

import (
	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/geometry"
)

// Tree is a finalized 4-wide BVH. A static tree uses Nodes and Prims; a tree
// built from any moving source uses MBNodes and MBPrims exclusively. Trees
// are read-only after Build and safe for concurrent queries.
type Tree struct {
	Root    NodeRef
	Nodes   []Node4
	MBNodes []Node4MB
	Prims   []geometry.Triangle4
	MBPrims []geometry.Triangle4MB
	Depth   int       // Inner levels on the deepest path
	Bounds  core.AABB // Scene box over the whole time range
}

// Motion reports whether the tree stores motion nodes and primitives
func (t *Tree) Motion() bool {
	return len(t.MBNodes) > 0 || len(t.MBPrims) > 0
}

// Empty reports whether the tree holds no primitives
func (t *Tree) Empty() bool {
	return t.Root.IsEmpty()
}

// NumTriangles counts the triangles stored in the leaves
func (t *Tree) NumTriangles() int {
	count := 0
	for i := range t.Prims {
		count += t.Prims[i].Size()
	}
	for i := range t.MBPrims {
		count += t.MBPrims[i].Size()
	}
	return count
}

// Block returns primitive block i with vertices at time
func (t *Tree) Block(i int, time float32) geometry.Triangle4 {
	if t.Motion() {
		return t.MBPrims[i].At(time)
	}
	return t.Prims[i]
}
