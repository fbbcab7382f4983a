package geometry

import (
	"fmt"

	"github.com/df07/go-raycore/pkg/core"
)

// QuadMesh is a static mesh of quads (v0,v1,v2,v3). Each quad is split into
// the triangles (v0,v1,v3) and (v2,v3,v1), which share the quad's prim id.
// Hits on the second half report barycentrics in quad space.
type QuadMesh struct {
	geomID   uint32
	vertices []core.Vec3
	indices  []int // Four per quad
}

// NewQuadMesh creates a quad mesh; indices holds four entries per quad
func NewQuadMesh(geomID uint32, vertices []core.Vec3, indices []int) (*QuadMesh, error) {
	if err := checkIndices(indices, 4, len(vertices)); err != nil {
		return nil, fmt.Errorf("quad mesh %d: %w", geomID, err)
	}
	return &QuadMesh{geomID: geomID, vertices: vertices, indices: indices}, nil
}

// GeomID implements Source
func (m *QuadMesh) GeomID() uint32 { return m.geomID }

// NumQuads returns the number of quads
func (m *QuadMesh) NumQuads() int { return len(m.indices) / 4 }

// NumTriangles implements Source
func (m *QuadMesh) NumTriangles() int { return 2 * m.NumQuads() }

// Motion implements Source
func (m *QuadMesh) Motion() bool { return false }

// Triangle implements Source. Even i is the first half of quad i/2, odd i
// the second.
func (m *QuadMesh) Triangle(i int, _ float32) Triangle {
	q := i / 2
	idx := m.indices[4*q : 4*q+4]
	v0, v1, v2, v3 := m.vertices[idx[0]], m.vertices[idx[1]], m.vertices[idx[2]], m.vertices[idx[3]]
	if i%2 == 0 {
		return Triangle{V0: v0, V1: v1, V2: v3, GeomID: m.geomID, PrimID: uint32(q)}
	}
	return Triangle{V0: v2, V1: v3, V2: v1, GeomID: m.geomID, PrimID: uint32(q), QuadHalf: true}
}
