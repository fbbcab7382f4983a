package scene

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df07/go-raycore/pkg/bvh"
	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/geometry"
	"github.com/df07/go-raycore/pkg/log"
	"github.com/df07/go-raycore/pkg/traverse"
	"github.com/google/uuid"
)

var (
	// ErrCommitted is returned when geometry is added after Commit
	ErrCommitted = errors.New("scene: already committed")
	// ErrNotCommitted is returned by accessors that need a built tree
	ErrNotCommitted = errors.New("scene: not committed")
	// ErrGeomID is returned when a source does not carry the next geometry id
	ErrGeomID = errors.New("scene: unexpected geometry id")
)

var logger = log.New("scene")

// Options controls how a scene is built and queried
type Options struct {
	LeafSize int               // Triangles per leaf, 0 for the builder default
	Cull     geometry.CullMode // Predicate orientation filter
	Robust   bool              // Conservative box test
}

// Option modifies Options
type Option func(*Options)

// WithLeafSize sets the leaf threshold
func WithLeafSize(n int) Option {
	return func(o *Options) { o.LeafSize = n }
}

// WithCull sets the culling mode
func WithCull(mode geometry.CullMode) Option {
	return func(o *Options) { o.Cull = mode }
}

// WithRobust enables the conservative box test
func WithRobust(robust bool) Option {
	return func(o *Options) { o.Robust = robust }
}

// View is a suggested camera placement for a scene
type View struct {
	Eye    core.Vec3
	LookAt core.Vec3
	Up     core.Vec3
	VFov   float32 // Vertical field of view in degrees
}

// Scene registers geometry, builds the tree once on Commit and answers ray
// queries. After Commit a scene is read-only and safe for concurrent use.
type Scene struct {
	ID      uuid.UUID
	Name    string
	View    View
	options Options
	logger  log.Logger

	mu        sync.Mutex
	sources   []geometry.Source
	tree      atomic.Pointer[bvh.Tree]
	buildTime time.Duration
	it        traverse.Intersector
}

// Stats describes a committed scene
type Stats struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Geometries int           `json:"geometries"`
	Triangles  int           `json:"triangles"`
	BuildTime  time.Duration `json:"buildTime"`
	Tree       bvh.TreeStats `json:"tree"`
	Bounds     [2][3]float32 `json:"bounds"`
}

// New creates an empty scene
func New(opts ...Option) *Scene {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return &Scene{
		ID:      uuid.New(),
		Name:    "untitled",
		View:    View{Eye: core.NewVec3(0, 0, 10), Up: core.NewVec3(0, 1, 0), VFov: 45},
		options: options,
		logger:  logger,
		it: traverse.Intersector{
			Pluecker: geometry.Pluecker{Cull: options.Cull},
			Robust:   options.Robust,
		},
	}
}

// Options returns the options the scene was created with
func (s *Scene) Options() Options {
	return s.options
}

// AddTriangleMesh registers a static triangle mesh and returns its id
func (s *Scene) AddTriangleMesh(vertices []core.Vec3, indices []int) (uint32, error) {
	return s.add(func(id uint32) (geometry.Source, error) {
		return geometry.NewTriangleMesh(id, vertices, indices, nil)
	})
}

// AddQuadMesh registers a static quad mesh and returns its id
func (s *Scene) AddQuadMesh(vertices []core.Vec3, indices []int) (uint32, error) {
	return s.add(func(id uint32) (geometry.Source, error) {
		return geometry.NewQuadMesh(id, vertices, indices)
	})
}

// AddMotionMesh registers a linearly deforming triangle mesh and returns its id
func (s *Scene) AddMotionMesh(key0, key1 []core.Vec3, indices []int) (uint32, error) {
	return s.add(func(id uint32) (geometry.Source, error) {
		return geometry.NewMotionMesh(id, key0, key1, indices)
	})
}

// AddSource registers a caller-built source. Its GeomID must equal
// NextGeomID.
func (s *Scene) AddSource(src geometry.Source) (uint32, error) {
	return s.add(func(id uint32) (geometry.Source, error) {
		if src.GeomID() != id {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrGeomID, src.GeomID(), id)
		}
		return src, nil
	})
}

// NextGeomID returns the id the next added geometry will receive
func (s *Scene) NextGeomID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(len(s.sources))
}

func (s *Scene) add(create func(id uint32) (geometry.Source, error)) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree.Load() != nil {
		return core.InvalidID, ErrCommitted
	}
	id := uint32(len(s.sources))
	src, err := create(id)
	if err != nil {
		return core.InvalidID, err
	}
	s.sources = append(s.sources, src)
	return id, nil
}

// Commit builds the tree. Calling it again is a no-op.
func (s *Scene) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree.Load() != nil {
		return
	}
	start := time.Now()
	tree := bvh.Build(s.sources, bvh.Options{LeafSize: s.options.LeafSize})
	s.buildTime = time.Since(start)
	s.tree.Store(tree)

	s.logger.Infof("Committed scene %s (%s): %d geometries, %d triangles, depth %d in %v",
		s.Name, s.ID, len(s.sources), tree.NumTriangles(), tree.Depth, s.buildTime)
}

// Committed reports whether Commit has run
func (s *Scene) Committed() bool {
	return s.tree.Load() != nil
}

// Intersect finds the nearest hit of ray. An uncommitted scene never hits.
func (s *Scene) Intersect(ray *core.Ray) bool {
	tree := s.tree.Load()
	if tree == nil {
		return false
	}
	return s.it.Intersect(tree, ray)
}

// Occluded reports whether anything blocks ray. An uncommitted scene never
// occludes.
func (s *Scene) Occluded(ray *core.Ray) bool {
	tree := s.tree.Load()
	if tree == nil {
		return false
	}
	return s.it.Occluded(tree, ray)
}

// Bounds returns the scene box over the whole time range, empty before Commit
func (s *Scene) Bounds() core.AABB {
	tree := s.tree.Load()
	if tree == nil {
		return core.EmptyAABB()
	}
	return tree.Bounds
}

// Tree returns the committed tree
func (s *Scene) Tree() (*bvh.Tree, error) {
	tree := s.tree.Load()
	if tree == nil {
		return nil, ErrNotCommitted
	}
	return tree, nil
}

// Sources returns the registered geometries in id order
func (s *Scene) Sources() []geometry.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]geometry.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// Pluecker returns the predicate configuration used by queries
func (s *Scene) Pluecker() *geometry.Pluecker {
	p := s.it.Pluecker
	return &p
}

// Stats summarizes a committed scene
func (s *Scene) Stats() (Stats, error) {
	tree, err := s.Tree()
	if err != nil {
		return Stats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		ID:         s.ID.String(),
		Name:       s.Name,
		Geometries: len(s.sources),
		Triangles:  tree.NumTriangles(),
		BuildTime:  s.buildTime,
		Tree:       bvh.Stats(tree),
	}
	// an empty box holds infinities, which JSON cannot encode
	if b := tree.Bounds; !b.IsEmpty() {
		stats.Bounds = [2][3]float32{{b.Min[0], b.Min[1], b.Min[2]}, {b.Max[0], b.Max[1], b.Max[2]}}
	}
	return stats, nil
}
