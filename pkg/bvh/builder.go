package bvh

import (
	"sort"
	"time"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/geometry"
	"github.com/df07/go-raycore/pkg/lanes"
	"github.com/df07/go-raycore/pkg/log"
)

const (
	// DefaultLeafSize is the leaf threshold used when Options leaves it unset
	DefaultLeafSize = lanes.Width

	// Number of centroid bins evaluated per split
	numBins = 16
)

// Options controls tree construction
type Options struct {
	// LeafSize is the largest triangle count stored in a leaf before the
	// builder tries to split it. Leaves pack triangles into Triangle4 blocks.
	LeafSize int
}

// primRef is one triangle as seen by the builder
type primRef struct {
	base     geometry.Triangle
	delta    geometry.Triangle
	bounds   core.AABB // Box over the whole time range
	centroid core.Vec3
}

type buildStats struct {
	nodes    int
	leafs    int
	maxDepth int
}

type builder struct {
	logger log.Logger
	opts   Options
	motion bool
	tree   *Tree
	stats  buildStats
}

// Build constructs a tree over every triangle of sources. Any source with
// motion turns the whole tree into a motion tree.
func Build(sources []geometry.Source, opts Options) *Tree {
	if opts.LeafSize <= 0 {
		opts.LeafSize = DefaultLeafSize
	}

	b := &builder{
		logger: log.New("bvh"),
		opts:   opts,
		tree:   &Tree{Root: EmptyRef, Bounds: core.EmptyAABB()},
	}

	var refs []primRef
	for _, src := range sources {
		b.motion = b.motion || src.Motion()
		for i := 0; i < src.NumTriangles(); i++ {
			base, delta := geometry.MotionKeys(src, i)
			end := geometry.Triangle{
				V0: base.V0.Add(delta.V0),
				V1: base.V1.Add(delta.V1),
				V2: base.V2.Add(delta.V2),
			}
			box := base.Bounds().Union(end.Bounds())
			refs = append(refs, primRef{
				base:     base,
				delta:    delta,
				bounds:   box,
				centroid: box.Center(),
			})
		}
	}
	if len(refs) == 0 {
		return b.tree
	}

	start := time.Now()
	root, box0, box1 := b.build(refs, 0)
	b.tree.Root = root
	b.tree.Bounds = box0.Union(box1)
	b.tree.Depth = b.stats.maxDepth

	b.logger.Debugf(
		"BVH tree build time: %d ms, triangles: %d, maxDepth: %d, nodes: %d, leafs: %d, motion: %t",
		time.Since(start).Milliseconds(), len(refs),
		b.stats.maxDepth, b.stats.nodes, b.stats.leafs, b.motion,
	)
	return b.tree
}

// build returns the ref of the subtree over refs and its boxes at time 0 and 1
func (b *builder) build(refs []primRef, depth int) (NodeRef, core.AABB, core.AABB) {
	if len(refs) <= b.opts.LeafSize || depth >= MaxDepth {
		return b.createLeaf(refs, depth)
	}

	// Open the largest group until the node is full or nothing splits
	groups := make([][]primRef, 1, N)
	groups[0] = refs
	for len(groups) < N {
		largest := -1
		for i, g := range groups {
			if len(g) > b.opts.LeafSize && (largest < 0 || len(g) > len(groups[largest])) {
				largest = i
			}
		}
		if largest < 0 {
			break
		}
		left, right := split(groups[largest])
		groups[largest] = left
		groups = append(groups, right)
	}

	if depth+1 > b.stats.maxDepth {
		b.stats.maxDepth = depth + 1
	}
	b.stats.nodes++

	box0, box1 := core.EmptyAABB(), core.EmptyAABB()
	if b.motion {
		index := len(b.tree.MBNodes)
		b.tree.MBNodes = append(b.tree.MBNodes, NewNode4MB())
		for i, g := range groups {
			ref, c0, c1 := b.build(g, depth+1)
			b.tree.MBNodes[index].SetChild(i, ref, c0, c1)
			box0, box1 = box0.Union(c0), box1.Union(c1)
		}
		return InnerRef(index), box0, box1
	}

	index := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, NewNode4())
	for i, g := range groups {
		ref, c0, c1 := b.build(g, depth+1)
		b.tree.Nodes[index].SetChild(i, ref, c0)
		box0, box1 = box0.Union(c0), box1.Union(c1)
	}
	return InnerRef(index), box0, box1
}

// createLeaf packs refs into Triangle4 blocks
func (b *builder) createLeaf(refs []primRef, depth int) (NodeRef, core.AABB, core.AABB) {
	b.stats.leafs++

	box0, box1 := core.EmptyAABB(), core.EmptyAABB()
	var base, delta [lanes.Width]geometry.Triangle
	first := b.numBlocks()
	for start := 0; start < len(refs); start += lanes.Width {
		end := min(start+lanes.Width, len(refs))
		n := end - start
		for i := 0; i < n; i++ {
			base[i] = refs[start+i].base
			delta[i] = refs[start+i].delta
		}

		if b.motion {
			block := geometry.NewTriangle4MB(base[:n], delta[:n])
			b.tree.MBPrims = append(b.tree.MBPrims, block)
			box0 = box0.Union(block.Bounds())
			box1 = box1.Union(block.BoundsAt1())
			continue
		}
		block := geometry.NewTriangle4(base[:n])
		b.tree.Prims = append(b.tree.Prims, block)
		box0 = box0.Union(block.Bounds())
	}
	if !b.motion {
		box1 = box0
	}
	return LeafRef(first, b.numBlocks()-first), box0, box1
}

func (b *builder) numBlocks() int {
	if b.motion {
		return len(b.tree.MBPrims)
	}
	return len(b.tree.Prims)
}

// split partitions refs in place into two non-empty halves. It evaluates a
// binned surface area heuristic along the longest centroid axis and falls
// back to an object median when the centroids do not separate.
func split(refs []primRef) ([]primRef, []primRef) {
	centroids := core.EmptyAABB()
	for i := range refs {
		centroids = centroids.Extend(refs[i].centroid)
	}
	axis := centroids.LongestAxis()
	lo, hi := centroids.Min[axis], centroids.Max[axis]
	if hi <= lo {
		return objectMedian(refs, axis)
	}

	scale := float32(numBins) / (hi - lo)
	binOf := func(r *primRef) int {
		bin := int((r.centroid[axis] - lo) * scale)
		return min(max(bin, 0), numBins-1)
	}

	var counts [numBins]int
	var boxes [numBins]core.AABB
	for i := range boxes {
		boxes[i] = core.EmptyAABB()
	}
	for i := range refs {
		bin := binOf(&refs[i])
		counts[bin]++
		boxes[bin] = boxes[bin].Union(refs[i].bounds)
	}

	// Sweep from the right to get the cost of every right side
	var rightArea [numBins]float32
	var rightCount [numBins]int
	acc, n := core.EmptyAABB(), 0
	for i := numBins - 1; i > 0; i-- {
		acc = acc.Union(boxes[i])
		n += counts[i]
		rightArea[i], rightCount[i] = acc.SurfaceArea(), n
	}

	bestBin, bestCost := -1, float32(0)
	acc, n = core.EmptyAABB(), 0
	for i := 1; i < numBins; i++ {
		acc = acc.Union(boxes[i-1])
		n += counts[i-1]
		if n == 0 || rightCount[i] == 0 {
			continue
		}
		cost := float32(n)*acc.SurfaceArea() + float32(rightCount[i])*rightArea[i]
		if bestBin < 0 || cost < bestCost {
			bestBin, bestCost = i, cost
		}
	}
	if bestBin < 0 {
		return objectMedian(refs, axis)
	}

	mid := 0
	for i := range refs {
		if binOf(&refs[i]) < bestBin {
			refs[i], refs[mid] = refs[mid], refs[i]
			mid++
		}
	}
	return refs[:mid], refs[mid:]
}

func objectMedian(refs []primRef, axis int) ([]primRef, []primRef) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].centroid[axis] < refs[j].centroid[axis]
	})
	mid := len(refs) / 2
	return refs[:mid], refs[mid:]
}
