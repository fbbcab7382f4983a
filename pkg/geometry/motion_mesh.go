package geometry

import (
	"fmt"

	"github.com/df07/go-raycore/pkg/core"
)

// MotionMesh is a triangle mesh whose vertices move linearly from the first
// key (time 0) to the second key (time 1).
type MotionMesh struct {
	geomID  uint32
	base    []core.Vec3
	delta   []core.Vec3
	indices []int
}

// NewMotionMesh creates a deforming mesh from two vertex keys sharing one
// index buffer
func NewMotionMesh(geomID uint32, key0, key1 []core.Vec3, indices []int) (*MotionMesh, error) {
	if len(key0) != len(key1) {
		return nil, fmt.Errorf("motion mesh %d: %d vs %d vertices: %w", geomID, len(key0), len(key1), ErrKeyMismatch)
	}
	if err := checkIndices(indices, 3, len(key0)); err != nil {
		return nil, fmt.Errorf("motion mesh %d: %w", geomID, err)
	}
	delta := make([]core.Vec3, len(key0))
	for i := range key0 {
		delta[i] = key1[i].Sub(key0[i])
	}
	return &MotionMesh{geomID: geomID, base: key0, delta: delta, indices: indices}, nil
}

// GeomID implements Source
func (m *MotionMesh) GeomID() uint32 { return m.geomID }

// NumTriangles implements Source
func (m *MotionMesh) NumTriangles() int { return len(m.indices) / 3 }

// Motion implements Source
func (m *MotionMesh) Motion() bool { return true }

// Triangle implements Source, evaluating vertices as base + time*delta
func (m *MotionMesh) Triangle(i int, time float32) Triangle {
	at := func(k int) core.Vec3 {
		idx := m.indices[3*i+k]
		return m.base[idx].Add(m.delta[idx].Mul(time))
	}
	return Triangle{V0: at(0), V1: at(1), V2: at(2), GeomID: m.geomID, PrimID: uint32(i)}
}

// Delta implements MotionSource
func (m *MotionMesh) Delta(i int) Triangle {
	return Triangle{
		V0:     m.delta[m.indices[3*i]],
		V1:     m.delta[m.indices[3*i+1]],
		V2:     m.delta[m.indices[3*i+2]],
		GeomID: m.geomID,
		PrimID: uint32(i),
	}
}
