package geometry

import (
	"fmt"
	"math"

	"github.com/df07/go-raycore/pkg/core"
)

// TriangleMesh is a static indexed triangle mesh
type TriangleMesh struct {
	geomID   uint32
	vertices []core.Vec3
	indices  []int // Three per triangle
}

// TriangleMeshOptions contains optional parameters for mesh creation
type TriangleMeshOptions struct {
	Rotation *core.Vec3 // Optional rotation (radians around X, Y, Z) applied to vertices
	Center   *core.Vec3 // Optional center point for rotation
}

// NewTriangleMesh creates a mesh from a vertex buffer and triangle indices.
// vertices: array of 3D points
// indices: each group of 3 indices forms a triangle
// options: optional parameters (can be nil)
func NewTriangleMesh(geomID uint32, vertices []core.Vec3, indices []int, options *TriangleMeshOptions) (*TriangleMesh, error) {
	if err := checkIndices(indices, 3, len(vertices)); err != nil {
		return nil, fmt.Errorf("triangle mesh %d: %w", geomID, err)
	}
	return &TriangleMesh{
		geomID:   geomID,
		vertices: transformVertices(vertices, options),
		indices:  indices,
	}, nil
}

// GeomID implements Source
func (m *TriangleMesh) GeomID() uint32 { return m.geomID }

// NumTriangles implements Source
func (m *TriangleMesh) NumTriangles() int { return len(m.indices) / 3 }

// Motion implements Source
func (m *TriangleMesh) Motion() bool { return false }

// Triangle implements Source; time is ignored
func (m *TriangleMesh) Triangle(i int, _ float32) Triangle {
	return Triangle{
		V0:     m.vertices[m.indices[3*i]],
		V1:     m.vertices[m.indices[3*i+1]],
		V2:     m.vertices[m.indices[3*i+2]],
		GeomID: m.geomID,
		PrimID: uint32(i),
	}
}

// Vertices returns the (possibly rotated) vertex buffer
func (m *TriangleMesh) Vertices() []core.Vec3 { return m.vertices }

func transformVertices(vertices []core.Vec3, options *TriangleMeshOptions) []core.Vec3 {
	if options == nil || options.Rotation == nil {
		return vertices
	}
	out := make([]core.Vec3, len(vertices))
	for i, vertex := range vertices {
		// Translate to center, rotate, then translate back
		if options.Center != nil {
			vertex = vertex.Sub(*options.Center)
		}
		vertex = rotateVertex(vertex, *options.Rotation)
		if options.Center != nil {
			vertex = vertex.Add(*options.Center)
		}
		out[i] = vertex
	}
	return out
}

// rotateVertex applies rotation around X, Y, Z axes (in that order)
func rotateVertex(vertex, rotation core.Vec3) core.Vec3 {
	if rotation.X() != 0 {
		sin, cos := math.Sincos(float64(rotation.X()))
		s, c := float32(sin), float32(cos)
		vertex = core.NewVec3(vertex.X(), vertex.Y()*c-vertex.Z()*s, vertex.Y()*s+vertex.Z()*c)
	}
	if rotation.Y() != 0 {
		sin, cos := math.Sincos(float64(rotation.Y()))
		s, c := float32(sin), float32(cos)
		vertex = core.NewVec3(vertex.X()*c+vertex.Z()*s, vertex.Y(), -vertex.X()*s+vertex.Z()*c)
	}
	if rotation.Z() != 0 {
		sin, cos := math.Sincos(float64(rotation.Z()))
		s, c := float32(sin), float32(cos)
		vertex = core.NewVec3(vertex.X()*c-vertex.Y()*s, vertex.X()*s+vertex.Y()*c, vertex.Z())
	}
	return vertex
}
