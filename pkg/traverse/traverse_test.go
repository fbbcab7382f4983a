package traverse

import (
	"math/rand"
	"testing"

	"github.com/df07/go-raycore/pkg/bvh"
	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/geometry"
	"github.com/df07/go-raycore/pkg/lanes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
			vertices = append(vertices, c.Add(randomPoint(rng, 1.5)))
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
		key1[i] = v.Add(randomPoint(rng, 3))
	}
	indices := make([]int, 3*n)
	for i := range indices {
		indices[i] = i
	}
	mesh, err := geometry.NewMotionMesh(geomID, static.Vertices(), key1, indices)
	require.NoError(t, err)
	return mesh
}

func randomRay(rng *rand.Rand, motion bool) core.Ray {
	org := randomPoint(rng, 20)
	target := randomPoint(rng, 8)
	ray := core.NewRay(org, target.Sub(org))
	if motion {
		ray.Time = rng.Float32()
	}
	return ray
}

// assertMatchesBruteForce traces rays through tree and the brute force
// reference and compares nearest distances and occlusion
func assertMatchesBruteForce(t *testing.T, it *Intersector, tree *bvh.Tree, sources []geometry.Source, rng *rand.Rand, motion bool, rays int) {
	hits := 0
	for i := 0; i < rays; i++ {
		base := randomRay(rng, motion)

		traced := base
		found := it.Intersect(tree, &traced)

		expected := base
		want := geometry.BruteForce(&expected, sources, &it.Pluecker)

		require.Equal(t, want, found, "ray %d: %+v", i, base)
		occluded := base
		assert.Equal(t, found, it.Occluded(tree, &occluded), "ray %d: occlusion disagrees with nearest hit", i)
		assert.Equal(t, base, occluded, "occlusion must not modify the ray")

		if !found {
			assert.Equal(t, base, traced, "a miss must leave the ray untouched")
			continue
		}
		hits++
		assert.InDelta(t, expected.Hit.T, traced.Hit.T, float64(1e-4*expected.Hit.T), "ray %d", i)
		assert.Equal(t, traced.Hit.T, traced.TFar)
		if expected.Hit.T != traced.Hit.T {
			continue
		}
		assert.Equal(t, expected.Hit.GeomID, traced.Hit.GeomID, "ray %d", i)
	}
	assert.Positive(t, hits, "the test rays should hit something")
}

func TestIntersect_MatchesBruteForce(t *testing.T) {
	tests := []struct {
		name     string
		leafSize int
		cull     geometry.CullMode
		robust   bool
	}{
		{name: "default leaves", leafSize: 0},
		{name: "single triangle leaves", leafSize: 1},
		{name: "large leaves", leafSize: 16},
		{name: "back face culling", leafSize: 4, cull: geometry.CullBack},
		{name: "robust box test", leafSize: 4, robust: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(100 + tt.leafSize)))
			sources := []geometry.Source{randomSoup(t, rng, 0, 400), randomSoup(t, rng, 1, 150)}
			tree := bvh.Build(sources, bvh.Options{LeafSize: tt.leafSize})

			it := &Intersector{Pluecker: geometry.Pluecker{Cull: tt.cull}, Robust: tt.robust}
			assertMatchesBruteForce(t, it, tree, sources, rng, false, 500)
		})
	}
}

func TestIntersect_MotionMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name   string
		robust bool
	}{
		{name: "default box test", robust: false},
		{name: "robust box test", robust: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(77))
			sources := []geometry.Source{movingSoup(t, rng, 0, 300), randomSoup(t, rng, 1, 100)}
			tree := bvh.Build(sources, bvh.Options{})
			require.True(t, tree.Motion())

			it := &Intersector{Robust: tt.robust}
			assertMatchesBruteForce(t, it, tree, sources, rng, true, 500)
		})
	}
}

func TestIntersect_MotionTimeEndpoints(t *testing.T) {
	key0 := []core.Vec3{core.NewVec3(-1, -1, 0), core.NewVec3(1, -1, 0), core.NewVec3(0, 1, 0)}
	key1 := []core.Vec3{core.NewVec3(9, -1, 0), core.NewVec3(11, -1, 0), core.NewVec3(10, 1, 0)}
	mesh, err := geometry.NewMotionMesh(0, key0, key1, []int{0, 1, 2})
	require.NoError(t, err)
	tree := bvh.Build([]geometry.Source{mesh}, bvh.Options{})

	tests := []struct {
		name      string
		x         float32
		time      float32
		shouldHit bool
	}{
		{name: "start position at time 0", x: 0, time: 0, shouldHit: true},
		{name: "start position at time 1", x: 0, time: 1, shouldHit: false},
		{name: "end position at time 1", x: 10, time: 1, shouldHit: true},
		{name: "midpoint at time 0.5", x: 5, time: 0.5, shouldHit: true},
		{name: "midpoint at time 0", x: 5, time: 0, shouldHit: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRaySegment(core.NewVec3(tt.x, 0, -5), core.NewVec3(0, 0, 1), 0, core.Inf, tt.time)
			assert.Equal(t, tt.shouldHit, Intersect(tree, &ray))
			if tt.shouldHit {
				assert.InDelta(t, 5, ray.Hit.T, 1e-5)
			}
		})
	}
}

func TestIntersect_ConcreteExample(t *testing.T) {
	build := func(dx float32) *bvh.Tree {
		vertices := []core.Vec3{
			core.NewVec3(-1+dx, -1, 0),
			core.NewVec3(1+dx, -1, 0),
			core.NewVec3(0+dx, 1, 0),
		}
		mesh, err := geometry.NewTriangleMesh(5, vertices, []int{0, 1, 2}, nil)
		require.NoError(t, err)
		return bvh.Build([]geometry.Source{mesh}, bvh.Options{})
	}

	ray := core.NewRaySegment(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1), 0, 1e30, 0)
	require.True(t, Intersect(build(0), &ray))
	assert.Equal(t, float32(5), ray.Hit.T)
	assert.Equal(t, float32(5), ray.TFar)
	assert.LessOrEqual(t, ray.Hit.U+ray.Hit.V, float32(1))
	assert.Equal(t, uint32(5), ray.Hit.GeomID)
	assert.Equal(t, uint32(0), ray.Hit.PrimID)
	assert.Equal(t, core.NewVec3(0, 0, 1), ray.Hit.Ng.Normalize())

	miss := core.NewRaySegment(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1), 0, 1e30, 0)
	assert.False(t, Intersect(build(10), &miss))
	assert.Equal(t, float32(1e30), miss.TFar)
	assert.False(t, miss.Hit.Valid())
	assert.False(t, Occluded(build(10), &miss))
}

func TestIntersect_EmptyInputs(t *testing.T) {
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1))
	empty := bvh.Build(nil, bvh.Options{})

	assert.False(t, Intersect(nil, &ray))
	assert.False(t, Intersect(empty, &ray))
	assert.False(t, Occluded(nil, &ray))
	assert.False(t, Occluded(empty, &ray))

	rng := rand.New(rand.NewSource(5))
	tree := bvh.Build([]geometry.Source{randomSoup(t, rng, 0, 50)}, bvh.Options{})
	inactive := core.NewRaySegment(core.NewVec3(0, 0, -20), core.NewVec3(0, 0, 1), 10, 5, 0)
	assert.False(t, Intersect(tree, &inactive))
	assert.False(t, Occluded(tree, &inactive))
}

func TestIntersect_OverlappingPrimitives(t *testing.T) {
	// many identical triangles force every leaf to be visited
	vertices := []core.Vec3{core.NewVec3(-1, -1, 0), core.NewVec3(1, -1, 0), core.NewVec3(0, 1, 0)}
	indices := make([]int, 0, 3*2000)
	for i := 0; i < 2000; i++ {
		indices = append(indices, 0, 1, 2)
	}
	mesh, err := geometry.NewTriangleMesh(0, vertices, indices, nil)
	require.NoError(t, err)
	tree := bvh.Build([]geometry.Source{mesh}, bvh.Options{LeafSize: 1})

	ray := core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1))
	require.True(t, Intersect(tree, &ray))
	assert.Equal(t, float32(5), ray.Hit.T)
	assert.Less(t, ray.Hit.PrimID, uint32(2000))
}

// recorder captures traversal events for ordering checks
type recorder struct {
	tree   *bvh.Tree
	events []event
}

type event struct {
	ref  bvh.NodeRef
	leaf bool
	mask lanes.Mask
	dist lanes.Float
	tfar float32
}

func (r *recorder) VisitNode(ref bvh.NodeRef, mask lanes.Mask, dist lanes.Float) {
	r.events = append(r.events, event{ref: ref, mask: mask, dist: dist})
}

func (r *recorder) VisitLeaf(ref bvh.NodeRef, tfar float32) {
	r.events = append(r.events, event{ref: ref, leaf: true, tfar: tfar})
}

func TestIntersect_TraversalOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	tree := bvh.Build([]geometry.Source{randomSoup(t, rng, 0, 800)}, bvh.Options{})
	rec := &recorder{tree: tree}
	it := &Intersector{Observer: rec}

	checked := 0
	for i := 0; i < 300; i++ {
		rec.events = rec.events[:0]
		ray := randomRay(rng, false)
		it.Intersect(tree, &ray)

		lastTFar := core.Inf
		for k, ev := range rec.events {
			if ev.leaf {
				assert.LessOrEqual(t, ev.tfar, lastTFar, "tfar grew during traversal")
				lastTFar = ev.tfar
				continue
			}
			if ev.mask.Count() < 2 || k+1 >= len(rec.events) {
				continue
			}

			// the next visit must be a child with the smallest entry distance
			children := tree.Nodes[ev.ref.Index()].Children
			nearest := float32(core.Inf)
			for m := ev.mask; m.Any(); {
				slot := m.First()
				m = m.Clear(slot)
				nearest = min(nearest, ev.dist[slot])
			}
			next := rec.events[k+1].ref
			found := false
			for m := ev.mask; m.Any(); {
				slot := m.First()
				m = m.Clear(slot)
				if children[slot] == next {
					found = true
					assert.Equal(t, nearest, ev.dist[slot], "descended into a farther child first")
				}
			}
			assert.True(t, found, "next visit %v is not a child of %v", next, ev.ref)
			checked++
		}
		assert.LessOrEqual(t, ray.TFar, lastTFar)
	}
	assert.Positive(t, checked, "expected nodes with several candidate children")
}

func TestOccluded_Segment(t *testing.T) {
	vertices := []core.Vec3{core.NewVec3(-1, -1, 0), core.NewVec3(1, -1, 0), core.NewVec3(0, 1, 0)}
	mesh, err := geometry.NewTriangleMesh(0, vertices, []int{0, 1, 2}, nil)
	require.NoError(t, err)

	rec := &recorder{}
	it := &Intersector{Observer: rec}
	tree := bvh.Build([]geometry.Source{mesh}, bvh.Options{})

	short := core.NewRaySegment(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1), 0, 4, 0)
	assert.False(t, it.Occluded(tree, &short))

	long := core.NewRaySegment(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1), 0, 6, 0)
	before := long
	assert.True(t, it.Occluded(tree, &long))
	assert.Equal(t, before, long)
	assert.NotEmpty(t, rec.events)
}

func TestStack_SortTop(t *testing.T) {
	var st stack
	st.push(bvh.InnerRef(0), 9)
	st.push(bvh.InnerRef(1), 3)
	st.push(bvh.InnerRef(2), 1)
	st.push(bvh.InnerRef(3), 7)
	st.sortTop(3)

	assert.Equal(t, bvh.InnerRef(2), st.pop().ref)
	assert.Equal(t, bvh.InnerRef(1), st.pop().ref)
	assert.Equal(t, bvh.InnerRef(3), st.pop().ref)
	assert.Equal(t, bvh.InnerRef(0), st.pop().ref, "items below the sorted range stay put")
	assert.True(t, st.empty())
}
