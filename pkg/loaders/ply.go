package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-raycore/pkg/core"
)

var (
	// ErrUnsupportedFormat is returned for PLY encodings or property types
	// the reader does not handle
	ErrUnsupportedFormat = errors.New("unsupported PLY format")
	// ErrMalformed is returned when the file does not follow the PLY layout
	ErrMalformed = errors.New("malformed PLY file")
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "ascii", "binary_little_endian" or "binary_big_endian"
	Version  string // Usually "1.0"
	Comments []string
	Elements []PLYElement
}

// PLYElement is one element declaration with its properties in file order
type PLYElement struct {
	Name  string
	Count int
	Props []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// PLYData contains the geometry loaded from a PLY file
type PLYData struct {
	Vertices []core.Vec3 // Vertex positions (x, y, z)
	Faces    []int       // Triangle indices (3 per triangle)
	Comments []string    // Header comments, without the keyword
}

// NumTriangles returns the number of triangles after fan triangulation
func (d *PLYData) NumTriangles() int {
	return len(d.Faces) / 3
}

// LoadPLY loads a PLY file from disk
func LoadPLY(filename string) (*PLYData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return data, nil
}

// ReadPLY decodes a PLY stream. Polygon faces are fan triangulated; elements
// other than vertex and face are skipped.
func ReadPLY(r io.Reader) (*PLYData, error) {
	br := bufio.NewReaderSize(r, 1024*1024)

	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	var dec valueDecoder
	switch header.Format {
	case "ascii":
		dec = newASCIIDecoder(br)
	case "binary_little_endian":
		dec = &binaryDecoder{r: br, order: binary.LittleEndian}
	case "binary_big_endian":
		dec = &binaryDecoder{r: br, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, header.Format)
	}

	data := &PLYData{Comments: header.Comments}
	for _, elem := range header.Elements {
		switch elem.Name {
		case "vertex":
			err = readVertices(dec, elem, data)
		case "face":
			err = readFaces(dec, elem, data)
		default:
			err = skipElement(dec, elem)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s data: %w", elem.Name, err)
		}
	}

	for i, idx := range data.Faces {
		if idx < 0 || idx >= len(data.Vertices) {
			return nil, fmt.Errorf("%w: face index %d at %d out of range [0,%d)", ErrMalformed, idx, i, len(data.Vertices))
		}
	}
	return data, nil
}

// parsePLYHeader reads lines up to and including end_header
func parsePLYHeader(r *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	var current *PLYElement

	first := true
	for {
		line, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, fmt.Errorf("%w: missing end_header", ErrMalformed)
			}
			return nil, err
		}
		line = strings.TrimSpace(line)

		if first {
			if line != "ply" {
				return nil, fmt.Errorf("%w: missing ply magic", ErrMalformed)
			}
			first = false
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: invalid format line %q", ErrMalformed, line)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
			header.Comments = append(header.Comments, strings.TrimSpace(strings.TrimPrefix(line, parts[0])))
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: invalid element line %q", ErrMalformed, line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: invalid element count: %s", ErrMalformed, parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
			current = &header.Elements[len(header.Elements)-1]
		case "property":
			if current == nil {
				return nil, fmt.Errorf("%w: property before element", ErrMalformed)
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %w", err)
			}
			current.Props = append(current.Props, prop)
		default:
			return nil, fmt.Errorf("%w: unknown header keyword %q", ErrMalformed, parts[0])
		}
	}

	if header.Format == "" {
		return nil, fmt.Errorf("%w: missing format line", ErrMalformed)
	}
	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("%w: invalid property definition", ErrMalformed)
	}

	prop := PLYProperty{}
	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("%w: invalid list property definition", ErrMalformed)
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
		if getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0 {
			return PLYProperty{}, fmt.Errorf("%w: list %s %s", ErrUnsupportedFormat, prop.ListType, prop.DataType)
		}
		return prop, nil
	}

	prop.Type = parts[0]
	prop.Name = parts[1]
	if getTypeSize(prop.Type) == 0 {
		return PLYProperty{}, fmt.Errorf("%w: property type %s", ErrUnsupportedFormat, prop.Type)
	}
	return prop, nil
}

func readVertices(dec valueDecoder, elem PLYElement, data *PLYData) error {
	xyz := [3]int{-1, -1, -1}
	for i, prop := range elem.Props {
		switch prop.Name {
		case "x":
			xyz[0] = i
		case "y":
			xyz[1] = i
		case "z":
			xyz[2] = i
		}
	}
	if xyz[0] < 0 || xyz[1] < 0 || xyz[2] < 0 {
		return fmt.Errorf("%w: vertex element lacks x, y or z", ErrMalformed)
	}

	data.Vertices = make([]core.Vec3, 0, elem.Count)
	var v core.Vec3
	for n := 0; n < elem.Count; n++ {
		for i, prop := range elem.Props {
			if prop.IsList {
				if err := skipList(dec, prop); err != nil {
					return fmt.Errorf("vertex %d: %w", n, err)
				}
				continue
			}
			value, err := dec.next(prop.Type)
			if err != nil {
				return fmt.Errorf("vertex %d: %w", n, err)
			}
			for axis, idx := range xyz {
				if idx == i {
					v[axis] = float32(value)
				}
			}
		}
		data.Vertices = append(data.Vertices, v)
	}
	return nil
}

func readFaces(dec valueDecoder, elem PLYElement, data *PLYData) error {
	data.Faces = make([]int, 0, elem.Count*3)
	var polygon []int
	for n := 0; n < elem.Count; n++ {
		for _, prop := range elem.Props {
			if !prop.IsList || (prop.Name != "vertex_indices" && prop.Name != "vertex_index") {
				if err := skipProperty(dec, prop); err != nil {
					return fmt.Errorf("face %d: %w", n, err)
				}
				continue
			}

			count, err := dec.next(prop.ListType)
			if err != nil {
				return fmt.Errorf("face %d: %w", n, err)
			}
			polygon = polygon[:0]
			for k := 0; k < int(count); k++ {
				idx, err := dec.next(prop.DataType)
				if err != nil {
					return fmt.Errorf("face %d: %w", n, err)
				}
				polygon = append(polygon, int(idx))
			}
			data.Faces = appendFan(data.Faces, polygon)
		}
	}
	return nil
}

// appendFan triangulates polygon as a fan around its first vertex; polygons
// with fewer than three vertices contribute nothing
func appendFan(faces, polygon []int) []int {
	for k := 1; k+1 < len(polygon); k++ {
		faces = append(faces, polygon[0], polygon[k], polygon[k+1])
	}
	return faces
}

func skipElement(dec valueDecoder, elem PLYElement) error {
	for n := 0; n < elem.Count; n++ {
		for _, prop := range elem.Props {
			if err := skipProperty(dec, prop); err != nil {
				return err
			}
		}
	}
	return nil
}

func skipProperty(dec valueDecoder, prop PLYProperty) error {
	if prop.IsList {
		return skipList(dec, prop)
	}
	_, err := dec.next(prop.Type)
	return err
}

func skipList(dec valueDecoder, prop PLYProperty) error {
	count, err := dec.next(prop.ListType)
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err := dec.next(prop.DataType); err != nil {
			return err
		}
	}
	return nil
}

// getTypeSize returns the size in bytes of a PLY data type, 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

// valueDecoder yields the next scalar of the body, whatever its encoding
type valueDecoder interface {
	next(dataType string) (float64, error)
}

type binaryDecoder struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (d *binaryDecoder) next(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("%w: data type %s", ErrUnsupportedFormat, dataType)
	}
	b := d.buf[:size]
	if _, err := io.ReadFull(d.r, b); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch dataType {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(d.order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(d.order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(d.order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(d.order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(d.order.Uint32(b))), nil
	default:
		return math.Float64frombits(d.order.Uint64(b)), nil
	}
}

type asciiDecoder struct {
	scanner *bufio.Scanner
}

func newASCIIDecoder(r io.Reader) *asciiDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	return &asciiDecoder{scanner: scanner}
}

func (d *asciiDecoder) next(dataType string) (float64, error) {
	if getTypeSize(dataType) == 0 {
		return 0, fmt.Errorf("%w: data type %s", ErrUnsupportedFormat, dataType)
	}
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: unexpected end of data", ErrMalformed)
	}
	value, err := strconv.ParseFloat(d.scanner.Text(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return value, nil
}
