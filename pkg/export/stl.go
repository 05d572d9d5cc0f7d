package export

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chiselcad/qrelief/pkg/kernel"
)

// ErrExport is returned when serializing or writing an export file fails.
var ErrExport = errors.New("export failed")

// stlHeader is the fixed 80-byte binary STL header.
var stlHeader = func() [80]byte {
	var h [80]byte
	copy(h[:], "qrelief binary STL")
	return h
}()

// WriteSTL writes a mesh as binary STL to w.
func WriteSTL(w io.Writer, m *kernel.Mesh) error {
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("empty mesh: %w", ErrExport)
	}
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(stlHeader[:]); err != nil {
		return fmt.Errorf("stl header: %v: %w", err, ErrExport)
	}
	numTri := m.TriangleCount()
	if err := binary.Write(bw, binary.LittleEndian, uint32(numTri)); err != nil {
		return fmt.Errorf("stl triangle count: %v: %w", err, ErrExport)
	}

	// Each record: normal, three vertices, attribute byte count.
	var rec [12]float32
	for t := 0; t < numTri; t++ {
		i0 := m.Indices[t*3]
		rec[0] = m.Normals[i0*3]
		rec[1] = m.Normals[i0*3+1]
		rec[2] = m.Normals[i0*3+2]
		for v := 0; v < 3; v++ {
			idx := m.Indices[t*3+v]
			rec[3+v*3] = m.Vertices[idx*3]
			rec[3+v*3+1] = m.Vertices[idx*3+1]
			rec[3+v*3+2] = m.Vertices[idx*3+2]
		}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return fmt.Errorf("stl triangle %d: %v: %w", t, err, ErrExport)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(0)); err != nil {
			return fmt.Errorf("stl triangle %d: %v: %w", t, err, ErrExport)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("stl flush: %v: %w", err, ErrExport)
	}
	return nil
}

// SolidToSTL tessellates a solid with the given kernel and writes it as a
// binary STL file at path.
func SolidToSTL(k kernel.Kernel, s kernel.Solid, path string) error {
	mesh, err := k.ToMesh(s)
	if err != nil {
		return fmt.Errorf("tessellate for %s: %v: %w", path, err, ErrExport)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %v: %w", path, err, ErrExport)
	}
	defer f.Close()

	if err := WriteSTL(f, mesh); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %v: %w", path, err, ErrExport)
	}
	return nil
}
