package scene

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/loaders"
)

// ErrUnknownScene is returned by Builtin for names it does not know
var ErrUnknownScene = errors.New("scene: unknown builtin scene")

type builtinScene struct {
	info  SceneInfo
	build func(s *Scene) error
}

var builtins = []builtinScene{
	{
		info: SceneInfo{
			ID:          "grid",
			Name:        "Height Field",
			Description: "Rolling 64x64 height field with an icosahedron and a pyramid",
		},
		build: buildGrid,
	},
	{
		info: SceneInfo{
			ID:          "boxes",
			Name:        "Boxes",
			Description: "Grid of rotated quad boxes on a ground quad",
		},
		build: buildBoxes,
	},
	{
		info: SceneInfo{
			ID:          "motion",
			Name:        "Motion",
			Description: "Moving boxes over a rippling height field",
		},
		build: buildMotion,
	},
	{
		info: SceneInfo{
			ID:          "soup",
			Name:        "Triangle Soup",
			Description: "Seeded random triangles filling a cube",
		},
		build: buildSoup,
	},
}

// BuiltinNames returns the names accepted by Builtin
func BuiltinNames() []string {
	names := make([]string, len(builtins))
	for i, b := range builtins {
		names[i] = b.info.ID
	}
	return names
}

// Builtin creates and commits one of the procedural scenes
func Builtin(name string, opts ...Option) (*Scene, error) {
	for _, b := range builtins {
		if b.info.ID != name {
			continue
		}
		s := New(opts...)
		s.Name = name
		if err := b.build(s); err != nil {
			return nil, fmt.Errorf("building scene %s: %w", name, err)
		}
		s.Commit()
		return s, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScene, name)
}

// FromPLY creates and commits a scene with one triangle mesh per file
func FromPLY(paths []string, opts ...Option) (*Scene, error) {
	s := New(opts...)
	bounds := core.EmptyAABB()
	for i, path := range paths {
		data, err := loaders.LoadPLY(path)
		if err != nil {
			return nil, err
		}
		if _, err := s.AddTriangleMesh(data.Vertices, data.Faces); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		bounds = bounds.Union(core.NewAABBFromPoints(data.Vertices...))
		if i == 0 {
			s.Name = sceneNameFromPath(path)
		}
		s.logger.Infof("Loaded %s: %d vertices, %d triangles", path, len(data.Vertices), data.NumTriangles())
	}
	s.View = ViewFor(bounds)
	s.Commit()
	return s, nil
}

// ViewFor places a camera in front of and slightly above a box so the whole
// box is in view
func ViewFor(b core.AABB) View {
	if b.IsEmpty() {
		return View{Eye: core.NewVec3(0, 0, 10), Up: core.NewVec3(0, 1, 0), VFov: 45}
	}
	const vfov = 40
	center := b.Center()
	radius := b.Size().Len() * 0.5
	dist := radius / float32(math.Tan(vfov*0.5*math.Pi/180))
	dir := core.NewVec3(0.35, 0.4, 1).Normalize()
	return View{
		Eye:    center.Add(dir.Mul(1.1 * dist)),
		LookAt: center,
		Up:     core.NewVec3(0, 1, 0),
		VFov:   vfov,
	}
}

func waves(amplitude, phase float32) HeightFunc {
	return func(x, z float32) float32 {
		return amplitude * float32(math.Sin(float64(0.9*x+phase))*math.Cos(float64(0.7*z-phase)))
	}
}

func buildGrid(s *Scene) error {
	if _, err := s.AddGrid(64, 64, 20, waves(0.6, 0)); err != nil {
		return err
	}
	if _, err := s.AddIcosahedron(core.NewVec3(-2.5, 2, 0), 1.5, core.NewVec3(0, math.Pi/3, 0)); err != nil {
		return err
	}
	if _, err := s.AddPyramid(core.NewVec3(3, 1.8, -1), 2.5, 3, core.NewVec3(0, math.Pi/4, 0)); err != nil {
		return err
	}
	s.View = View{Eye: core.NewVec3(0, 7, 14), LookAt: core.NewVec3(0, 0.5, 0), Up: core.NewVec3(0, 1, 0), VFov: 45}
	return nil
}

func buildBoxes(s *Scene) error {
	ground := []core.Vec3{
		core.NewVec3(-12, 0, -12),
		core.NewVec3(-12, 0, 12),
		core.NewVec3(12, 0, 12),
		core.NewVec3(12, 0, -12),
	}
	if _, err := s.AddQuadMesh(ground, []int{0, 1, 2, 3}); err != nil {
		return err
	}

	const n = 5
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			height := 0.5 + float32((i*3+j*7)%5)*0.4
			center := core.NewVec3(float32(i-n/2)*3, height*0.5, float32(j-n/2)*3)
			rotation := core.NewVec3(0, float32(i*n+j)*0.3, 0)
			if _, err := s.AddBox(center, core.NewVec3(1.4, height, 1.4), rotation); err != nil {
				return err
			}
		}
	}
	s.View = View{Eye: core.NewVec3(9, 10, 16), LookAt: core.NewVec3(0, 0.5, 0), Up: core.NewVec3(0, 1, 0), VFov: 40}
	return nil
}

func buildMotion(s *Scene) error {
	if _, err := s.AddMovingGrid(48, 48, 20, waves(0.5, 0), waves(0.5, math.Pi/2)); err != nil {
		return err
	}
	for i := 0; i < 4; i++ {
		x := float32(i)*3 - 4.5
		from := core.NewVec3(x, 1.5, -1)
		to := from.Add(core.NewVec3(0.8, 0.3*float32(i), 1.2))
		if _, err := s.AddMovingBox(from, to, core.NewVec3(1.2, 1.2, 1.2), core.NewVec3(0, float32(i)*0.4, 0)); err != nil {
			return err
		}
	}
	if _, err := s.AddBox(core.NewVec3(0, 1, -5), core.NewVec3(12, 2, 0.5), core.Vec3{}); err != nil {
		return err
	}
	s.View = View{Eye: core.NewVec3(0, 6, 13), LookAt: core.NewVec3(0, 0.5, 0), Up: core.NewVec3(0, 1, 0), VFov: 45}
	return nil
}

// soupSeed keeps the soup scene identical from run to run
const soupSeed = 1

func buildSoup(s *Scene) error {
	const count = 2000
	rng := rand.New(rand.NewSource(soupSeed))
	coord := func() float32 { return rng.Float32()*10 - 5 }

	vertices := make([]core.Vec3, 0, 3*count)
	indices := make([]int, 0, 3*count)
	for i := 0; i < count; i++ {
		center := core.NewVec3(coord(), coord(), coord())
		for k := 0; k < 3; k++ {
			offset := core.NewVec3(rng.Float32()-0.5, rng.Float32()-0.5, rng.Float32()-0.5)
			vertices = append(vertices, center.Add(offset))
			indices = append(indices, len(vertices)-1)
		}
	}
	if _, err := s.AddTriangleMesh(vertices, indices); err != nil {
		return err
	}
	s.View = View{Eye: core.NewVec3(0, 0, 16), LookAt: core.NewVec3(0, 0, 0), Up: core.NewVec3(0, 1, 0), VFov: 45}
	return nil
}
