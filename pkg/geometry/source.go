package geometry

import (
	"errors"

	"github.com/df07/go-raycore/pkg/core"
)

var (
	// ErrIndexOutOfRange is returned when a mesh index does not name a vertex
	ErrIndexOutOfRange = errors.New("geometry: index out of range")
	// ErrBadIndexCount is returned when an index buffer length is not a
	// multiple of the primitive arity
	ErrBadIndexCount = errors.New("geometry: bad index count")
	// ErrKeyMismatch is returned when motion keys differ in vertex count
	ErrKeyMismatch = errors.New("geometry: motion keys differ in size")
)

// Source hands out the triangles of one geometry. The builder and the brute
// force reference read primitives exclusively through this interface.
type Source interface {
	GeomID() uint32
	NumTriangles() int
	// Triangle returns triangle i with vertices evaluated at time
	Triangle(i int, time float32) Triangle
	// Motion reports whether vertices depend on time
	Motion() bool
}

// MotionSource is a Source with linear vertex motion over [0,1]
type MotionSource interface {
	Source
	// Delta returns the vertex change per unit time of triangle i
	Delta(i int) Triangle
}

// MotionKeys returns triangle i at time 0 and its per-unit-time delta. For a
// static source the delta is zero.
func MotionKeys(src Source, i int) (base, delta Triangle) {
	base = src.Triangle(i, 0)
	if ms, ok := src.(MotionSource); ok {
		return base, ms.Delta(i)
	}
	if src.Motion() {
		end := src.Triangle(i, 1)
		delta = Triangle{V0: end.V0.Sub(base.V0), V1: end.V1.Sub(base.V1), V2: end.V2.Sub(base.V2)}
	}
	delta.GeomID, delta.PrimID, delta.QuadHalf = base.GeomID, base.PrimID, base.QuadHalf
	return base, delta
}

// SourceBounds returns the box of every triangle of src at time
func SourceBounds(src Source, time float32) core.AABB {
	box := core.EmptyAABB()
	for i := 0; i < src.NumTriangles(); i++ {
		box = box.Union(src.Triangle(i, time).Bounds())
	}
	return box
}

func checkIndices(indices []int, arity, numVertices int) error {
	if len(indices)%arity != 0 {
		return ErrBadIndexCount
	}
	for _, idx := range indices {
		if idx < 0 || idx >= numVertices {
			return ErrIndexOutOfRange
		}
	}
	return nil
}
