package core

import (
	"testing"

	"github.com/df07/go-raycore/pkg/lanes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRay_Defaults(t *testing.T) {
	r := NewRay(NewVec3(1, 2, 3), NewVec3(0, 0, 1))

	assert.Equal(t, float32(0), r.TNear)
	assert.Equal(t, Inf, r.TFar)
	assert.Equal(t, float32(0), r.Time)
	assert.False(t, r.Hit.Valid())
	assert.Equal(t, InvalidID, r.Hit.PrimID)
	assert.True(t, r.Active())
	assert.Equal(t, NewVec3(1, 2, 5), r.At(2))
}

func TestNewRaySegment(t *testing.T) {
	r := NewRaySegment(NewVec3(0, 0, 0), NewVec3(1, 0, 0), 2, 1, 0.25)

	assert.False(t, r.Active(), "tnear > tfar must be inactive")
	assert.Equal(t, float32(0.25), r.Time)
}

func TestRay4_LaneRoundTrip(t *testing.T) {
	rays := []Ray{
		NewRaySegment(NewVec3(0, 0, -5), NewVec3(0, 0, 1), 0, 100, 0),
		NewRaySegment(NewVec3(1, 2, 3), NewVec3(-1, 0, 0), 0.5, 10, 0.75),
	}
	rays[1].Hit = Hit{GeomID: 3, PrimID: 7, U: 0.25, V: 0.5, T: 4, Ng: NewVec3(0, 1, 0)}

	p := NewRay4(rays...)
	require.Equal(t, lanes.Mask(0b0011), p.Active(), "unused lanes must be inactive")

	for k, r := range rays {
		assert.Equal(t, r, p.Lane(k))
	}
	assert.Equal(t, InvalidID, p.GeomID[2])
}

func TestAABB_Operations(t *testing.T) {
	box := NewAABBFromPoints(NewVec3(0, 0, 0), NewVec3(2, 1, -1), NewVec3(1, 3, 0))

	assert.Equal(t, NewVec3(0, 0, -1), box.Min)
	assert.Equal(t, NewVec3(2, 3, 0), box.Max)
	assert.Equal(t, 1, box.LongestAxis())
	assert.Equal(t, NewVec3(1, 1.5, -0.5), box.Center())
	assert.InDelta(t, 2*(2*3+3*1+1*2), box.SurfaceArea(), 1e-6)
	assert.True(t, box.Contains(NewVec3(2, 3, 0)))
	assert.False(t, box.Contains(NewVec3(2.1, 3, 0)))

	empty := EmptyAABB()
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, float32(0), empty.SurfaceArea())
	assert.Equal(t, box, empty.Union(box))

	moved := AABB{Min: box.Min.Add(NewVec3(2, 0, 0)), Max: box.Max.Add(NewVec3(2, 0, 0))}
	mid := box.Lerp(moved, 0.5)
	assert.Equal(t, box.Min.Add(NewVec3(1, 0, 0)), mid.Min)
	assert.True(t, box.Union(moved).ContainsBox(mid))
}
