package scene

import (
	"math"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/go-gl/mathgl/mgl32"
)

// HeightFunc gives the height of a grid vertex at (x, z)
type HeightFunc func(x, z float32) float32

// AddGrid adds an nx by nz cell height field in the XZ plane, centered on the
// origin and spanning size units on each side. A nil height gives a flat grid.
func (s *Scene) AddGrid(nx, nz int, size float32, height HeightFunc) (uint32, error) {
	vertices, indices := gridMesh(nx, nz, size, height)
	return s.AddTriangleMesh(vertices, indices)
}

// AddMovingGrid adds a height field whose vertices move from height0 at time
// 0 to height1 at time 1
func (s *Scene) AddMovingGrid(nx, nz int, size float32, height0, height1 HeightFunc) (uint32, error) {
	key0, indices := gridMesh(nx, nz, size, height0)
	key1, _ := gridMesh(nx, nz, size, height1)
	return s.AddMotionMesh(key0, key1, indices)
}

// gridMesh builds (nx+1)*(nz+1) vertices and two triangles per cell
func gridMesh(nx, nz int, size float32, height HeightFunc) ([]core.Vec3, []int) {
	if nx < 1 {
		nx = 1
	}
	if nz < 1 {
		nz = 1
	}
	vertices := make([]core.Vec3, 0, (nx+1)*(nz+1))
	for j := 0; j <= nz; j++ {
		z := size * (float32(j)/float32(nz) - 0.5)
		for i := 0; i <= nx; i++ {
			x := size * (float32(i)/float32(nx) - 0.5)
			var y float32
			if height != nil {
				y = height(x, z)
			}
			vertices = append(vertices, core.NewVec3(x, y, z))
		}
	}

	indices := make([]int, 0, 6*nx*nz)
	row := nx + 1
	for j := 0; j < nz; j++ {
		for i := 0; i < nx; i++ {
			a := j*row + i
			b, c, d := a+1, a+row+1, a+row
			// counter-clockwise seen from +Y
			indices = append(indices, a, d, c, a, c, b)
		}
	}
	return vertices, indices
}

// boxCorners returns the 8 corners of an axis-aligned box, rotated about its
// center by rotation (radians around X, Y, Z)
func boxCorners(center, size, rotation core.Vec3) []core.Vec3 {
	h := size.Mul(0.5)
	corners := []core.Vec3{
		core.NewVec3(-h.X(), -h.Y(), -h.Z()), // 0: left-bottom-back
		core.NewVec3(+h.X(), -h.Y(), -h.Z()), // 1: right-bottom-back
		core.NewVec3(+h.X(), +h.Y(), -h.Z()), // 2: right-top-back
		core.NewVec3(-h.X(), +h.Y(), -h.Z()), // 3: left-top-back
		core.NewVec3(-h.X(), -h.Y(), +h.Z()), // 4: left-bottom-front
		core.NewVec3(+h.X(), -h.Y(), +h.Z()), // 5: right-bottom-front
		core.NewVec3(+h.X(), +h.Y(), +h.Z()), // 6: right-top-front
		core.NewVec3(-h.X(), +h.Y(), +h.Z()), // 7: left-top-front
	}
	rot := rotationMatrix(rotation)
	for i, c := range corners {
		corners[i] = rot.Mul3x1(c).Add(center)
	}
	return corners
}

func rotationMatrix(rotation core.Vec3) mgl32.Mat3 {
	return mgl32.Rotate3DZ(rotation.Z()).Mul3(mgl32.Rotate3DY(rotation.Y())).Mul3(mgl32.Rotate3DX(rotation.X()))
}

// Box faces as quads, outward facing
var boxQuads = []int{
	0, 3, 2, 1, // back (Z-)
	4, 5, 6, 7, // front (Z+)
	0, 4, 7, 3, // left (X-)
	1, 2, 6, 5, // right (X+)
	0, 1, 5, 4, // bottom (Y-)
	3, 7, 6, 2, // top (Y+)
}

// Box faces as triangles, two per face, outward facing
var boxTriangles = []int{
	0, 3, 2, 0, 2, 1, // back (Z-)
	4, 5, 6, 4, 6, 7, // front (Z+)
	0, 4, 7, 0, 7, 3, // left (X-)
	1, 2, 6, 1, 6, 5, // right (X+)
	0, 1, 5, 0, 5, 4, // bottom (Y-)
	3, 7, 6, 3, 6, 2, // top (Y+)
}

// AddBox adds a box of six quads
func (s *Scene) AddBox(center, size, rotation core.Vec3) (uint32, error) {
	return s.AddQuadMesh(boxCorners(center, size, rotation), boxQuads)
}

// AddMovingBox adds a box of twelve triangles that translates from center0 at
// time 0 to center1 at time 1
func (s *Scene) AddMovingBox(center0, center1, size, rotation core.Vec3) (uint32, error) {
	return s.AddMotionMesh(boxCorners(center0, size, rotation), boxCorners(center1, size, rotation), boxTriangles)
}

// AddPyramid adds a square based pyramid standing on its base
func (s *Scene) AddPyramid(center core.Vec3, baseSize, height float32, rotation core.Vec3) (uint32, error) {
	halfBase := baseSize * 0.5
	halfHeight := height * 0.5

	vertices := []core.Vec3{
		core.NewVec3(-halfBase, -halfHeight, -halfBase), // 0: left-back
		core.NewVec3(+halfBase, -halfHeight, -halfBase), // 1: right-back
		core.NewVec3(+halfBase, -halfHeight, +halfBase), // 2: right-front
		core.NewVec3(-halfBase, -halfHeight, +halfBase), // 3: left-front
		core.NewVec3(0, +halfHeight, 0),                 // 4: apex
	}
	faces := []int{
		0, 1, 2, 0, 2, 3, // base
		0, 4, 1, // back
		1, 4, 2, // right
		2, 4, 3, // front
		3, 4, 0, // left
	}
	return s.AddTriangleMesh(placeVertices(vertices, center, rotation), faces)
}

// AddIcosahedron adds a regular icosahedron with the given circumradius
func (s *Scene) AddIcosahedron(center core.Vec3, radius float32, rotation core.Vec3) (uint32, error) {
	phi := float32((1 + math.Sqrt(5)) / 2)
	scale := radius / float32(math.Sqrt(float64(1+phi*phi)))

	vertices := []core.Vec3{
		core.NewVec3(-1, phi, 0),
		core.NewVec3(1, phi, 0),
		core.NewVec3(-1, -phi, 0),
		core.NewVec3(1, -phi, 0),
		core.NewVec3(0, -1, phi),
		core.NewVec3(0, 1, phi),
		core.NewVec3(0, -1, -phi),
		core.NewVec3(0, 1, -phi),
		core.NewVec3(phi, 0, -1),
		core.NewVec3(phi, 0, 1),
		core.NewVec3(-phi, 0, -1),
		core.NewVec3(-phi, 0, 1),
	}
	for i, v := range vertices {
		vertices[i] = v.Mul(scale)
	}

	faces := []int{
		// 5 faces around point 0
		0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
		// 5 adjacent faces
		1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
		// 5 faces around point 3
		3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
		// 5 adjacent faces
		4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
	}
	return s.AddTriangleMesh(placeVertices(vertices, center, rotation), faces)
}

// placeVertices rotates local vertices about the origin and moves them to center
func placeVertices(vertices []core.Vec3, center, rotation core.Vec3) []core.Vec3 {
	rot := rotationMatrix(rotation)
	out := make([]core.Vec3, len(vertices))
	for i, v := range vertices {
		out[i] = rot.Mul3x1(v).Add(center)
	}
	return out
}
