package pipeline

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chiselcad/qrelief/pkg/geom"
	"github.com/chiselcad/qrelief/pkg/kernel"
	"github.com/chiselcad/qrelief/pkg/layout"
	"github.com/chiselcad/qrelief/pkg/qr"
	"github.com/chiselcad/qrelief/pkg/scene"
)

// --- Test doubles ---

// fakeSolid is a bounding-box-only solid.
type fakeSolid struct {
	min, max [3]float64
}

func (s *fakeSolid) BoundingBox() (min, max [3]float64) {
	return s.min, s.max
}

// fakeKernel implements kernel.Kernel over bounding boxes and returns a
// fixed single-triangle mesh from ToMesh.
type fakeKernel struct{}

var _ kernel.Kernel = (*fakeKernel)(nil)

func (k *fakeKernel) Box(w, d, h float64) (kernel.Solid, error) {
	return &fakeSolid{
		min: [3]float64{-w / 2, -d / 2, -h / 2},
		max: [3]float64{w / 2, d / 2, h / 2},
	}, nil
}

func (k *fakeKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	amin, amax := a.BoundingBox()
	bmin, bmax := b.BoundingBox()
	out := &fakeSolid{min: amin, max: amax}
	for i := 0; i < 3; i++ {
		out.min[i] = math.Min(out.min[i], bmin[i])
		out.max[i] = math.Max(out.max[i], bmax[i])
	}
	return out, nil
}

func (k *fakeKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	min, max := s.BoundingBox()
	d := [3]float64{x, y, z}
	for i := 0; i < 3; i++ {
		min[i] += d[i]
		max[i] += d[i]
	}
	return &fakeSolid{min: min, max: max}
}

func (k *fakeKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid { return s }

func (k *fakeKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	return &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}, nil
}

// fixedEncoder returns a canned matrix regardless of the message, or an
// error for designated failing messages.
type fixedEncoder struct {
	failOn map[string]bool
}

func (e *fixedEncoder) Encode(message string) (qr.Matrix, error) {
	if message == "" || e.failOn[message] {
		return qr.Matrix{}, fmt.Errorf("%q: %w", message, qr.ErrEncoding)
	}
	return qr.FromBools([][]bool{
		{true, false},
		{false, true},
	})
}

func worldAnchor() geom.Anchor {
	return geom.Anchor{
		Plane: &geom.PlanarContext{XDir: geom.Vec3{X: 1}, YDir: geom.Vec3{Y: 1}},
	}
}

func newTestRunner(t *testing.T, enc qr.Encoder) (*Runner, *scene.Document, string) {
	t.Helper()
	dir := t.TempDir()
	k := &fakeKernel{}
	doc := scene.NewDocument()
	r := NewRunner(enc, layout.NewEngine(k, nil), k, doc, dir, nil)
	return r, doc, dir
}

func baseRequest() Request {
	return Request{
		Message: "HELLO WORLD",
		Anchor:  worldAnchor(),
		Params:  layout.Params{OverallSize: 24, BlockHeight: 0.4, BaseHeight: 1},
	}
}

// --- Preview ---

func TestPreview(t *testing.T) {
	t.Run("builds without touching scene or disk", func(t *testing.T) {
		r, doc, dir := newTestRunner(t, &fixedEncoder{})

		res, err := r.Preview(baseRequest())
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		if res.Solid == nil {
			t.Fatal("Preview() returned nil solid")
		}
		if len(doc.Containers()) != 0 || len(doc.Features()) != 0 {
			t.Error("Preview() mutated the scene")
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Error("Preview() wrote files")
		}
	})

	t.Run("bad anchor", func(t *testing.T) {
		r, _, _ := newTestRunner(t, &fixedEncoder{})
		req := baseRequest()
		req.Anchor = geom.Anchor{}
		if _, err := r.Preview(req); !errors.Is(err, geom.ErrInvalidFrame) {
			t.Errorf("Preview() error = %v, want ErrInvalidFrame", err)
		}
	})
}

// --- GenerateOne ---

func TestGenerateOne(t *testing.T) {
	t.Run("commits and exports", func(t *testing.T) {
		r, doc, dir := newTestRunner(t, &fixedEncoder{})
		req := baseRequest()
		req.ExportSTL = true
		req.ExportDXF = true

		out, err := r.GenerateOne(req)
		if err != nil {
			t.Fatalf("GenerateOne() error = %v", err)
		}

		if out.Container == nil || out.Container.Name != "HELLO_WORLD" {
			t.Fatalf("container = %+v, want name HELLO_WORLD", out.Container)
		}
		if out.Feature == nil || out.Feature.Name != "HELLO_WORLD_relief" {
			t.Errorf("feature = %+v, want name HELLO_WORLD_relief", out.Feature)
		}
		if doc.FindContainer("HELLO_WORLD") == nil {
			t.Error("container not registered in the document")
		}
		if len(doc.Features()) != 1 {
			t.Errorf("Features() = %d, want 1", len(doc.Features()))
		}

		wantSTL := filepath.Join(dir, "HELLO_WORLD.stl")
		if out.STLPath != wantSTL {
			t.Errorf("STLPath = %q, want %q", out.STLPath, wantSTL)
		}
		if _, err := os.Stat(wantSTL); err != nil {
			t.Errorf("STL file missing: %v", err)
		}
		wantDXF := filepath.Join(dir, "HELLO_WORLD.dxf")
		if out.DXFPath != wantDXF {
			t.Errorf("DXFPath = %q, want %q", out.DXFPath, wantDXF)
		}
		if _, err := os.Stat(wantDXF); err != nil {
			t.Errorf("DXF file missing: %v", err)
		}
	})

	t.Run("no exports requested", func(t *testing.T) {
		r, _, dir := newTestRunner(t, &fixedEncoder{})

		out, err := r.GenerateOne(baseRequest())
		if err != nil {
			t.Fatalf("GenerateOne() error = %v", err)
		}
		if out.STLPath != "" || out.DXFPath != "" {
			t.Errorf("paths = %q, %q, want empty", out.STLPath, out.DXFPath)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Error("files written without export flags")
		}
	})

	t.Run("copies sibling bodies", func(t *testing.T) {
		r, doc, _ := newTestRunner(t, &fixedEncoder{})
		src, err := doc.CreateContainer("existing")
		if err != nil {
			t.Fatal(err)
		}
		doc.AddBody(src, "plate", &fakeSolid{})

		req := baseRequest()
		req.Sibling = src
		out, err := r.GenerateOne(req)
		if err != nil {
			t.Fatalf("GenerateOne() error = %v", err)
		}
		// Copied plate plus the committed relief body.
		if len(out.Container.Bodies) != 2 {
			t.Errorf("container bodies = %d, want 2", len(out.Container.Bodies))
		}
		if out.Container.Bodies[0].Name != "plate" {
			t.Errorf("first body = %q, want plate", out.Container.Bodies[0].Name)
		}
	})

	t.Run("encoding failure leaves scene untouched", func(t *testing.T) {
		r, doc, _ := newTestRunner(t, &fixedEncoder{})
		req := baseRequest()
		req.Message = ""

		_, err := r.GenerateOne(req)
		if !errors.Is(err, qr.ErrEncoding) {
			t.Fatalf("GenerateOne() error = %v, want ErrEncoding", err)
		}
		if len(doc.Containers()) != 0 {
			t.Error("failed generation created a container")
		}
	})
}

// --- RunBatch ---

func TestRunBatch(t *testing.T) {
	t.Run("continues past failing keys", func(t *testing.T) {
		r, doc, _ := newTestRunner(t, &fixedEncoder{failOn: map[string]bool{"BAD": true}})

		results := r.RunBatch([]string{"ONE", "BAD", "TWO"}, Request{
			Anchor: worldAnchor(),
			Params: layout.Params{OverallSize: 24, BlockHeight: 0.4},
		})
		if len(results) != 3 {
			t.Fatalf("results = %d, want 3", len(results))
		}
		if results[0].Err != nil || results[2].Err != nil {
			t.Errorf("good keys failed: %v, %v", results[0].Err, results[2].Err)
		}
		if results[1].Err == nil {
			t.Error("bad key did not record an error")
		}
		if results[1].Outcome != nil {
			t.Error("bad key has an outcome")
		}
		if len(doc.Containers()) != 2 {
			t.Errorf("containers = %d, want 2", len(doc.Containers()))
		}
	})

	t.Run("keys keep file order", func(t *testing.T) {
		r, _, _ := newTestRunner(t, &fixedEncoder{})
		results := r.RunBatch([]string{"A", "B", "C"}, Request{
			Anchor: worldAnchor(),
			Params: layout.Params{OverallSize: 24, BlockHeight: 0.4},
		})
		for i, want := range []string{"A", "B", "C"} {
			if results[i].Key != want {
				t.Errorf("results[%d].Key = %q, want %q", i, results[i].Key, want)
			}
		}
	})

	t.Run("empty key list", func(t *testing.T) {
		r, _, _ := newTestRunner(t, &fixedEncoder{})
		if results := r.RunBatch(nil, Request{}); len(results) != 0 {
			t.Errorf("results = %d, want 0", len(results))
		}
	})
}
