package bvh

import (
	"math/rand"
	"testing"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/geometry"
	"github.com/df07/go-raycore/pkg/lanes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBox() core.AABB {
	return core.NewAABB(core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))
}

func TestNodeRef_Encoding(t *testing.T) {
	leaf := LeafRef(1234, 3)
	require.True(t, leaf.IsLeaf())
	assert.False(t, leaf.IsEmpty())
	first, count := leaf.Leaf()
	assert.Equal(t, 1234, first)
	assert.Equal(t, 3, count)
	assert.Equal(t, "leaf(1234+3)", leaf.String())

	inner := InnerRef(42)
	assert.False(t, inner.IsLeaf())
	assert.Equal(t, 42, inner.Index())
	assert.Equal(t, "node(42)", inner.String())

	assert.True(t, EmptyRef.IsLeaf())
	assert.True(t, EmptyRef.IsEmpty())
	assert.Equal(t, EmptyRef, LeafRef(7, 0))
	assert.Panics(t, func() { LeafRef(0, MaxLeafBlocks+1) })

	big := LeafRef(1<<30, 70000)
	first, count = big.Leaf()
	assert.Equal(t, 1<<30, first)
	assert.Equal(t, 70000, count)
}

func TestBuild_ForcedLeafAtMaxDepth(t *testing.T) {
	// more blocks than fit a 16 bit count, all in one leaf at MaxDepth
	const blocks = 1<<16 + 10
	tri := geometry.Triangle{V0: core.NewVec3(0, 0, 0), V1: core.NewVec3(1, 0, 0), V2: core.NewVec3(0, 1, 0)}
	refs := make([]primRef, blocks*lanes.Width)
	for i := range refs {
		refs[i] = primRef{base: tri, bounds: tri.Bounds(), centroid: tri.Centroid()}
	}

	b := &builder{opts: Options{LeafSize: 1}, tree: &Tree{Root: EmptyRef}}
	var ref NodeRef
	require.NotPanics(t, func() { ref, _, _ = b.build(refs, MaxDepth) })
	require.True(t, ref.IsLeaf())
	first, count := ref.Leaf()
	assert.Equal(t, 0, first)
	assert.Equal(t, blocks, count)
	assert.Len(t, b.tree.Prims, blocks)
}

func TestRayContext_Intersect(t *testing.T) {
	node := NewNode4()
	node.SetChild(0, LeafRef(0, 1), unitBox())
	node.SetChild(2, LeafRef(1, 1), core.NewAABB(core.NewVec3(3, 0, 0), core.NewVec3(4, 1, 1)))
	require.Equal(t, 2, node.NumChildren())
	assert.Equal(t, unitBox(), node.ChildBounds(0))

	tests := []struct {
		name     string
		ray      core.Ray
		tfar     float32
		mask     lanes.Mask
		expected map[int]float32
	}{
		{
			name:     "both boxes along +x",
			ray:      core.NewRay(core.NewVec3(-1, 0.5, 0.5), core.NewVec3(1, 0, 0)),
			tfar:     core.Inf,
			mask:     0b0101,
			expected: map[int]float32{0: 1, 2: 4},
		},
		{
			name:     "tfar prunes the far box",
			ray:      core.NewRay(core.NewVec3(-1, 0.5, 0.5), core.NewVec3(1, 0, 0)),
			tfar:     3,
			mask:     0b0001,
			expected: map[int]float32{0: 1},
		},
		{
			name:     "negative direction",
			ray:      core.NewRay(core.NewVec3(5, 0.5, 0.5), core.NewVec3(-1, 0, 0)),
			tfar:     core.Inf,
			mask:     0b0101,
			expected: map[int]float32{0: 4, 2: 1},
		},
		{
			name:     "origin inside a box",
			ray:      core.NewRay(core.NewVec3(0.5, 0.5, 0.5), core.NewVec3(0, 1, 0)),
			tfar:     core.Inf,
			mask:     0b0001,
			expected: map[int]float32{0: 0},
		},
		{
			name: "zero direction component outside the slab",
			ray:  core.NewRay(core.NewVec3(-1, 2, 0.5), core.NewVec3(1, 0, 0)),
			tfar: core.Inf,
			mask: 0,
		},
		{
			name: "pointing away",
			ray:  core.NewRay(core.NewVec3(-1, 0.5, 0.5), core.NewVec3(-1, 0, 0)),
			tfar: core.Inf,
			mask: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, robust := range []bool{false, true} {
				ctx := NewRayContext(&tt.ray, robust)
				mask, dist := ctx.Intersect(&node, tt.tfar)
				assert.Equal(t, tt.mask, mask, "robust=%t", robust)
				for slot, d := range tt.expected {
					assert.InDelta(t, d, dist[slot], 1e-5, "slot %d", slot)
				}
			}
		})
	}
}

func TestRayContext_RespectsTNear(t *testing.T) {
	node := NewNode4()
	node.SetChild(0, LeafRef(0, 1), unitBox())

	ray := core.NewRaySegment(core.NewVec3(-1, 0.5, 0.5), core.NewVec3(1, 0, 0), 2.5, 10, 0)
	ctx := NewRayContext(&ray, false)
	mask, _ := ctx.Intersect(&node, ray.TFar)
	assert.Equal(t, lanes.Mask(0), mask, "box exits at t=2 before tnear")
}

func TestNode4MB_At(t *testing.T) {
	node := NewNode4MB()
	moved := core.NewAABB(core.NewVec3(2, 0, 0), core.NewVec3(3, 1, 1))
	node.SetChild(1, LeafRef(0, 1), unitBox(), moved)

	mid := node.At(0.5)
	assert.Equal(t, core.NewAABB(core.NewVec3(1, 0, 0), core.NewVec3(2, 1, 1)), mid.ChildBounds(1))
	assert.True(t, mid.ChildBounds(0).IsEmpty(), "unused slots stay inverted")
	assert.Equal(t, node.Children, mid.Children)

	probe := func(time float32) lanes.Mask {
		ray := core.NewRaySegment(core.NewVec3(2.5, 0.5, -1), core.NewVec3(0, 0, 1), 0, core.Inf, time)
		ctx := NewRayContext(&ray, false)
		mask, _ := ctx.IntersectMB(&node, ray.TFar)
		return mask
	}
	assert.Equal(t, lanes.Mask(0), probe(0))
	assert.Equal(t, lanes.Mask(0b0010), probe(1))
}

func TestNode4MB_MatchesStaticAtTime(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for iter := 0; iter < 200; iter++ {
		node := NewNode4MB()
		for slot := 0; slot < N-1; slot++ {
			b0 := core.NewAABBFromPoints(randomPoint(rng, 4), randomPoint(rng, 4))
			b1 := core.NewAABBFromPoints(randomPoint(rng, 4), randomPoint(rng, 4))
			node.SetChild(slot, LeafRef(slot, 1), b0, b1)
		}

		org := randomPoint(rng, 8)
		ray := core.NewRaySegment(org, randomPoint(rng, 1).Sub(org), 0, core.Inf, rng.Float32())
		ctx := NewRayContext(&ray, false)

		mbMask, mbDist := ctx.IntersectMB(&node, ray.TFar)
		static := node.At(ray.Time)
		mask, dist := ctx.Intersect(&static, ray.TFar)

		require.Equal(t, mask, mbMask, "iter %d", iter)
		for m := mask; m.Any(); {
			i := m.First()
			m = m.Clear(i)
			assert.Equal(t, dist[i], mbDist[i])
		}
	}
}

func randomPoint(rng *rand.Rand, scale float32) core.Vec3 {
	return core.NewVec3(
		(rng.Float32()*2-1)*scale,
		(rng.Float32()*2-1)*scale,
		(rng.Float32()*2-1)*scale,
	)
}

func randomSoup(t *testing.T, rng *rand.Rand, geomID uint32, n int) *geometry.TriangleMesh {
	vertices := make([]core.Vec3, 0, 3*n)
	indices := make([]int, 0, 3*n)
	for i := 0; i < n; i++ {
		c := randomPoint(rng, 10)
		for k := 0; k < 3; k++ {
			indices = append(indices, len(vertices))
			vertices = append(vertices, c.Add(randomPoint(rng, 1)))
		}
	}
	mesh, err := geometry.NewTriangleMesh(geomID, vertices, indices, nil)
	require.NoError(t, err)
	return mesh
}

func movingSoup(t *testing.T, rng *rand.Rand, geomID uint32, n int) *geometry.MotionMesh {
	static := randomSoup(t, rng, geomID, n)
	key1 := make([]core.Vec3, len(static.Vertices()))
	for i, v := range static.Vertices() {
		key1[i] = v.Add(randomPoint(rng, 2))
	}
	indices := make([]int, 3*n)
	for i := range indices {
		indices[i] = i
	}
	mesh, err := geometry.NewMotionMesh(geomID, static.Vertices(), key1, indices)
	require.NoError(t, err)
	return mesh
}

// checkContainment verifies that every block of a subtree lies inside box
func checkContainment(t *testing.T, tree *Tree, ref NodeRef, time float32, box core.AABB) {
	const tolerance = 1e-4
	grown := core.NewAABB(
		box.Min.Sub(core.NewVec3(tolerance, tolerance, tolerance)),
		box.Max.Add(core.NewVec3(tolerance, tolerance, tolerance)),
	)
	if ref.IsLeaf() {
		first, count := ref.Leaf()
		for i := first; i < first+count; i++ {
			block := tree.Block(i, time)
			assert.True(t, grown.ContainsBox(block.Bounds()), "block %d at time %v escapes %v", i, time, box)
		}
		return
	}

	var node Node4
	if tree.Motion() {
		node = tree.MBNodes[ref.Index()].At(time)
	} else {
		node = tree.Nodes[ref.Index()]
	}
	for slot, child := range node.Children {
		if child.IsEmpty() {
			continue
		}
		childBox := node.ChildBounds(slot)
		assert.True(t, grown.ContainsBox(childBox), "slot %d of %v escapes parent", slot, ref)
		checkContainment(t, tree, child, time, childBox)
	}
}

func collectPrims(tree *Tree) map[[2]uint32]int {
	seen := make(map[[2]uint32]int)
	blocks := len(tree.Prims)
	if tree.Motion() {
		blocks = len(tree.MBPrims)
	}
	for i := 0; i < blocks; i++ {
		block := tree.Block(i, 0)
		for m := block.Valid; m.Any(); {
			lane := m.First()
			m = m.Clear(lane)
			seen[[2]uint32{block.GeomID[lane], block.PrimID[lane]}]++
		}
	}
	return seen
}

func TestBuild_Static(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	sources := []geometry.Source{randomSoup(t, rng, 0, 300), randomSoup(t, rng, 1, 57)}

	tree := Build(sources, Options{})
	require.False(t, tree.Empty())
	assert.False(t, tree.Motion())
	assert.Equal(t, 357, tree.NumTriangles())
	assert.LessOrEqual(t, tree.Depth, MaxDepth)
	assert.Greater(t, tree.Depth, 1)

	seen := collectPrims(tree)
	assert.Len(t, seen, 357)
	for key, n := range seen {
		assert.Equal(t, 1, n, "prim %v stored %d times", key, n)
	}

	expected := geometry.SourceBounds(sources[0], 0).Union(geometry.SourceBounds(sources[1], 0))
	assert.Equal(t, expected, tree.Bounds)
	checkContainment(t, tree, tree.Root, 0, tree.Bounds)
}

func TestBuild_Motion(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	sources := []geometry.Source{movingSoup(t, rng, 0, 200), randomSoup(t, rng, 1, 40)}

	tree := Build(sources, Options{LeafSize: 2})
	require.True(t, tree.Motion())
	assert.Empty(t, tree.Nodes)
	assert.Empty(t, tree.Prims)
	assert.Equal(t, 240, tree.NumTriangles())
	assert.Len(t, collectPrims(tree), 240)

	for _, time := range []float32{0, 0.25, 0.5, 0.9, 1} {
		checkContainment(t, tree, tree.Root, time, tree.Bounds)
	}
}

func TestBuild_SmallAndEmpty(t *testing.T) {
	empty := Build(nil, Options{})
	assert.True(t, empty.Empty())
	assert.Equal(t, 0, empty.NumTriangles())
	assert.Equal(t, TreeStats{}, Stats(empty))

	rng := rand.New(rand.NewSource(13))
	small := Build([]geometry.Source{randomSoup(t, rng, 0, 3)}, Options{})
	require.True(t, small.Root.IsLeaf(), "a handful of triangles fits one leaf")
	assert.Equal(t, 0, small.Depth)

	stats := Stats(small)
	assert.Equal(t, 0, stats.InnerNodes)
	assert.Equal(t, 1, stats.Leaves)
	assert.Equal(t, 1, stats.Blocks)
	assert.Equal(t, 3, stats.Triangles)
	assert.InDelta(t, 0.75, stats.BlockFill, 1e-9)
}

func TestBuild_CoincidentCentroids(t *testing.T) {
	// identical triangles cannot be separated spatially and must fall back
	// to an object median split
	vertices := []core.Vec3{core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0), core.NewVec3(0, 1, 0)}
	indices := make([]int, 0, 3*100)
	for i := 0; i < 100; i++ {
		indices = append(indices, 0, 1, 2)
	}
	mesh, err := geometry.NewTriangleMesh(0, vertices, indices, nil)
	require.NoError(t, err)

	tree := Build([]geometry.Source{mesh}, Options{LeafSize: 1})
	assert.Equal(t, 100, tree.NumTriangles())
	assert.LessOrEqual(t, tree.Depth, MaxDepth)
	assert.Len(t, collectPrims(tree), 100)
}

func TestStats(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	tree := Build([]geometry.Source{randomSoup(t, rng, 0, 500)}, Options{})
	stats := Stats(tree)

	assert.Equal(t, 500, stats.Triangles)
	assert.Positive(t, stats.InnerNodes)
	assert.Equal(t, tree.Depth, stats.MaxLeafDepth)
	assert.GreaterOrEqual(t, stats.Leaves, 500/DefaultLeafSize)
	assert.Greater(t, stats.NodeFill, 0.25)
	assert.LessOrEqual(t, stats.NodeFill, 1.0)
	assert.LessOrEqual(t, stats.BlockFill, 1.0)
	assert.LessOrEqual(t, stats.AvgLeafDepth, float64(stats.MaxLeafDepth))
	assert.False(t, stats.Motion)
}
