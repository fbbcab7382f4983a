package loaders

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var squareVertices = []core.Vec3{
	core.NewVec3(0, 0, 0),
	core.NewVec3(1, 0, 0),
	core.NewVec3(1, 1, 0),
	core.NewVec3(0, 1, 0),
}

// createTestPLY writes a binary square made of two triangles, optionally
// with normals and colors interleaved with the positions
func createTestPLY(t *testing.T, order binary.ByteOrder, includeNormals, includeColors bool) []byte {
	t.Helper()
	var buf bytes.Buffer

	format := "binary_little_endian"
	if order == binary.BigEndian {
		format = "binary_big_endian"
	}
	buf.WriteString("ply\n")
	buf.WriteString("format " + format + " 1.0\n")
	buf.WriteString("comment Scene: Test Square\n")
	buf.WriteString("element vertex 4\n")
	buf.WriteString("property float x\n")
	buf.WriteString("property float y\n")
	buf.WriteString("property float z\n")
	if includeNormals {
		buf.WriteString("property float nx\n")
		buf.WriteString("property float ny\n")
		buf.WriteString("property float nz\n")
	}
	if includeColors {
		buf.WriteString("property uchar red\n")
		buf.WriteString("property uchar green\n")
		buf.WriteString("property uchar blue\n")
	}
	buf.WriteString("element face 2\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")

	for _, v := range squareVertices {
		require.NoError(t, binary.Write(&buf, order, [3]float32{v[0], v[1], v[2]}))
		if includeNormals {
			require.NoError(t, binary.Write(&buf, order, [3]float32{0, 0, 1}))
		}
		if includeColors {
			require.NoError(t, binary.Write(&buf, order, [3]uint8{255, 0, 0}))
		}
	}

	for _, f := range [][3]int32{{0, 1, 2}, {0, 2, 3}} {
		require.NoError(t, binary.Write(&buf, order, uint8(3)))
		require.NoError(t, binary.Write(&buf, order, f))
	}
	return buf.Bytes()
}

func TestReadPLY_Binary(t *testing.T) {
	tests := []struct {
		name    string
		order   binary.ByteOrder
		normals bool
		colors  bool
	}{
		{"little endian", binary.LittleEndian, false, false},
		{"with normals", binary.LittleEndian, true, false},
		{"with normals and colors", binary.LittleEndian, true, true},
		{"big endian", binary.BigEndian, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ReadPLY(bytes.NewReader(createTestPLY(t, tt.order, tt.normals, tt.colors)))
			require.NoError(t, err)

			assert.Equal(t, squareVertices, data.Vertices)
			assert.Equal(t, []int{0, 1, 2, 0, 2, 3}, data.Faces)
			assert.Equal(t, 2, data.NumTriangles())
			assert.Equal(t, []string{"Scene: Test Square"}, data.Comments)
		})
	}
}

func TestReadPLY_ASCIIFanTriangulation(t *testing.T) {
	src := `ply
format ascii 1.0
element vertex 5
property double x
property double y
property double z
element edge 1
property int vertex1
property int vertex2
element face 2
property uchar flags
property list uchar uint vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
-0.5 0.5 0
0 1
0 5 0 1 2 3 4
7 2 0 1
`
	data, err := ReadPLY(strings.NewReader(src))
	require.NoError(t, err)

	require.Len(t, data.Vertices, 5)
	assert.Equal(t, core.NewVec3(-0.5, 0.5, 0), data.Vertices[4])
	// the pentagon becomes a fan of three triangles, the degenerate face is dropped
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3, 0, 3, 4}, data.Faces)
}

func TestReadPLY_AllScalarTypes(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\nelement vertex 1\n")
	buf.WriteString("property char a\nproperty uchar b\nproperty short c\nproperty ushort d\n")
	buf.WriteString("property int e\nproperty uint f\nproperty double x\nproperty float y\nproperty int16 z\n")
	buf.WriteString("element face 0\nproperty list uchar int vertex_indices\nend_header\n")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int8(-1)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint8(2)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int16(-3)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(4)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(-5)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(6)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, float64(1.5)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, float32(-2.25)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int16(7)))

	data, err := ReadPLY(&buf)
	require.NoError(t, err)
	require.Len(t, data.Vertices, 1)
	assert.Equal(t, core.NewVec3(1.5, -2.25, 7), data.Vertices[0])
	assert.Empty(t, data.Faces)
}

func TestReadPLY_Errors(t *testing.T) {
	header := "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n"

	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"missing magic", "plx\nformat ascii 1.0\nend_header\n", ErrMalformed},
		{"missing end_header", "ply\nformat ascii 1.0\nelement vertex 0\n", ErrMalformed},
		{"missing format", "ply\nelement vertex 0\nend_header\n", ErrMalformed},
		{"unknown format", "ply\nformat binary_middle_endian 1.0\nend_header\n", ErrUnsupportedFormat},
		{"unknown type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty half x\nend_header\n", ErrUnsupportedFormat},
		{"property before element", "ply\nformat ascii 1.0\nproperty float x\nend_header\n", ErrMalformed},
		{"bad count", "ply\nformat ascii 1.0\nelement vertex many\nend_header\n", ErrMalformed},
		{"missing z", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nend_header\n0 0\n", ErrMalformed},
		{"truncated body", header + "0 0 0\n1 0 0\n", ErrMalformed},
		{"bad number", header + "0 0 0\n1 0 zero\n0 1 0\n3 0 1 2\n", ErrMalformed},
		{"index out of range", header + "0 0 0\n1 0 0\n0 1 0\n3 0 1 3\n", ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPLY(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadPLY_TruncatedBinary(t *testing.T) {
	full := createTestPLY(t, binary.LittleEndian, false, false)
	_, err := ReadPLY(bytes.NewReader(full[:len(full)-3]))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoadPLY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "square.ply")
	require.NoError(t, os.WriteFile(path, createTestPLY(t, binary.LittleEndian, true, false), 0644))

	data, err := LoadPLY(path)
	require.NoError(t, err)
	assert.Equal(t, 2, data.NumTriangles())

	_, err = LoadPLY(filepath.Join(t.TempDir(), "missing.ply"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
