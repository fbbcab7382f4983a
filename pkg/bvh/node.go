package bvh

import (
	"fmt"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/lanes"
)

// N is the branching factor of the tree
const N = lanes.Width

// MaxDepth bounds the number of inner nodes on any root to leaf path
const MaxDepth = 32

// StackSize is enough for every traversal: each inner node pushes at most
// N-1 children and the root occupies one slot.
const StackSize = 1 + (N-1)*MaxDepth

// NodeRef addresses either an inner node or a leaf. Inner refs are a plain
// node index. Leaf refs have the top bit set and pack the first primitive
// block (31 bits) above a 32 bit block count.
type NodeRef uint64

const (
	leafBit   NodeRef = 1 << 63
	countBits         = 32
	countMask NodeRef = 1<<countBits - 1

	// MaxLeafBlocks is the largest block count a leaf ref can carry
	MaxLeafBlocks = int(countMask)
)

// EmptyRef is a leaf holding no primitives
const EmptyRef NodeRef = leafBit

// InnerRef returns the ref of inner node index
func InnerRef(index int) NodeRef {
	return NodeRef(index)
}

// LeafRef returns the ref of a leaf with count blocks starting at first
func LeafRef(first, count int) NodeRef {
	if count > MaxLeafBlocks {
		panic(fmt.Sprintf("bvh: leaf with %d blocks exceeds %d", count, MaxLeafBlocks))
	}
	if count == 0 {
		return EmptyRef
	}
	return leafBit | NodeRef(first)<<countBits | NodeRef(count)
}

// IsLeaf reports whether r addresses a leaf
func (r NodeRef) IsLeaf() bool { return r&leafBit != 0 }

// IsEmpty reports whether r is a leaf without primitives
func (r NodeRef) IsEmpty() bool { return r.IsLeaf() && r&countMask == 0 }

// Index returns the inner node index
func (r NodeRef) Index() int { return int(r) }

// Leaf returns the primitive block range of a leaf
func (r NodeRef) Leaf() (first, count int) {
	return int((r &^ leafBit) >> countBits), int(r & countMask)
}

func (r NodeRef) String() string {
	if r.IsLeaf() {
		first, count := r.Leaf()
		return fmt.Sprintf("leaf(%d+%d)", first, count)
	}
	return fmt.Sprintf("node(%d)", r.Index())
}

// Bounds of the N child slots: [0] is the lower corner, [1] the upper one,
// each holding one lane per slot for x, y and z.
type Bounds [2][3]lanes.Float

func emptyBounds() Bounds {
	return Bounds{
		{lanes.Inf, lanes.Inf, lanes.Inf},
		{lanes.NegInf, lanes.NegInf, lanes.NegInf},
	}
}

// Node4 is a static inner node with N children. Unused slots carry inverted
// bounds and EmptyRef so they never pass the box test.
type Node4 struct {
	Bounds   Bounds
	Children [N]NodeRef
}

// NewNode4 returns a node with every slot unused
func NewNode4() Node4 {
	n := Node4{Bounds: emptyBounds()}
	for i := range n.Children {
		n.Children[i] = EmptyRef
	}
	return n
}

// SetChild stores ref and its box in slot i
func (n *Node4) SetChild(i int, ref NodeRef, box core.AABB) {
	n.Children[i] = ref
	for axis := 0; axis < 3; axis++ {
		n.Bounds[0][axis][i] = box.Min[axis]
		n.Bounds[1][axis][i] = box.Max[axis]
	}
}

// ChildBounds returns the box of slot i
func (n *Node4) ChildBounds(i int) core.AABB {
	return n.Bounds.box(i)
}

// NumChildren counts the used slots
func (n *Node4) NumChildren() int {
	count := 0
	for _, c := range n.Children {
		if !c.IsEmpty() {
			count++
		}
	}
	return count
}

func (b *Bounds) box(i int) core.AABB {
	return core.AABB{
		Min: core.NewVec3(b[0][0][i], b[0][1][i], b[0][2][i]),
		Max: core.NewVec3(b[1][0][i], b[1][1][i], b[1][2][i]),
	}
}

// Node4MB is an inner node whose child boxes move linearly over [0,1]:
// box(time) = Bounds + time*Delta.
type Node4MB struct {
	Node4
	Delta Bounds
}

// NewNode4MB returns a motion node with every slot unused
func NewNode4MB() Node4MB {
	return Node4MB{Node4: NewNode4()}
}

// SetChild stores ref with its box at time 0 and time 1 in slot i
func (n *Node4MB) SetChild(i int, ref NodeRef, box0, box1 core.AABB) {
	n.Node4.SetChild(i, ref, box0)
	for axis := 0; axis < 3; axis++ {
		n.Delta[0][axis][i] = box1.Min[axis] - box0.Min[axis]
		n.Delta[1][axis][i] = box1.Max[axis] - box0.Max[axis]
	}
}

// At resolves the node to a static node at time
func (n *Node4MB) At(time float32) Node4 {
	out := Node4{Children: n.Children}
	out.Bounds = n.boundsAt(lanes.Broadcast(time))
	return out
}

func (n *Node4MB) boundsAt(time lanes.Float) Bounds {
	var b Bounds
	for side := 0; side < 2; side++ {
		for axis := 0; axis < 3; axis++ {
			b[side][axis] = n.Bounds[side][axis].Add(n.Delta[side][axis].Mul(time))
		}
	}
	return b
}
