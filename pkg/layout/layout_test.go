package layout

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/chiselcad/qrelief/pkg/geom"
	"github.com/chiselcad/qrelief/pkg/kernel"
	"github.com/chiselcad/qrelief/pkg/qr"
)

const tol = 1e-9

// --- Test kernel ---

// boxSolid is a test solid tracking an axis-aligned bounding box.
type boxSolid struct {
	min, max [3]float64
}

func (s *boxSolid) BoundingBox() (min, max [3]float64) {
	return s.min, s.max
}

// recordingKernel implements kernel.Kernel over bounding boxes and records
// every created box. Failures can be injected per call index.
type recordingKernel struct {
	boxes      []boxSolid // translated boxes, in creation order
	unions     int
	rotations  [][3]float64
	translates [][3]float64 // orientation translates only, see Translate

	failBoxAt   int // 1-based creation index that fails; 0 disables
	failUnionAt int // 1-based union index that fails; 0 disables

	boxCalls   int
	unionCalls int
}

var _ kernel.Kernel = (*recordingKernel)(nil)

func (k *recordingKernel) Box(w, d, h float64) (kernel.Solid, error) {
	k.boxCalls++
	if k.failBoxAt > 0 && k.boxCalls == k.failBoxAt {
		return nil, fmt.Errorf("injected box failure %d", k.boxCalls)
	}
	return &boxSolid{
		min: [3]float64{-w / 2, -d / 2, -h / 2},
		max: [3]float64{w / 2, d / 2, h / 2},
	}, nil
}

func (k *recordingKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	k.unionCalls++
	if k.failUnionAt > 0 && k.unionCalls == k.failUnionAt {
		return nil, fmt.Errorf("injected union failure %d", k.unionCalls)
	}
	k.unions++
	amin, amax := a.BoundingBox()
	bmin, bmax := b.BoundingBox()
	out := &boxSolid{min: amin, max: amax}
	for i := 0; i < 3; i++ {
		out.min[i] = math.Min(out.min[i], bmin[i])
		out.max[i] = math.Max(out.max[i], bmax[i])
	}
	return out, nil
}

func (k *recordingKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	min, max := s.BoundingBox()
	d := [3]float64{x, y, z}
	for i := 0; i < 3; i++ {
		min[i] += d[i]
		max[i] += d[i]
	}
	moved := &boxSolid{min: min, max: max}
	// A primitive translate always follows its Box call directly; anything
	// after that is the orientation translate of the accumulated solid.
	if len(k.boxes) < k.boxCalls {
		k.boxes = append(k.boxes, *moved)
	} else {
		k.translates = append(k.translates, d)
	}
	return moved
}

func (k *recordingKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	k.rotations = append(k.rotations, [3]float64{x, y, z})
	return s
}

func (k *recordingKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	return &kernel.Mesh{}, nil
}

func mustMatrix(t *testing.T, rows [][]bool) qr.Matrix {
	t.Helper()
	m, err := qr.FromBools(rows)
	if err != nil {
		t.Fatalf("FromBools() error = %v", err)
	}
	return m
}

func identity() geom.Frame {
	return geom.WorldFrame()
}

// --- Params validation ---

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"valid", Params{OverallSize: 24, BlockHeight: 0.4, BaseHeight: 1}, false},
		{"zero base is valid", Params{OverallSize: 24, BlockHeight: 0.4}, false},
		{"zero size", Params{BlockHeight: 0.4}, true},
		{"negative size", Params{OverallSize: -1, BlockHeight: 0.4}, true},
		{"zero block height", Params{OverallSize: 24}, true},
		{"negative base", Params{OverallSize: 24, BlockHeight: 0.4, BaseHeight: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

// --- Build geometry ---

func TestBuildSingleCell(t *testing.T) {
	k := &recordingKernel{}
	e := NewEngine(k, nil)
	m := mustMatrix(t, [][]bool{{true}})
	p := Params{OverallSize: 10, BlockHeight: 2}

	res, err := e.Build(m, identity(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// One cell, no base: a single 10x10x2 box resting on z=0.
	min, max := res.Solid.BoundingBox()
	wantMin := [3]float64{-5, -5, 0}
	wantMax := [3]float64{5, 5, 2}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol || math.Abs(max[i]-wantMax[i]) > tol {
			t.Fatalf("BoundingBox() = %v, %v, want %v, %v", min, max, wantMin, wantMax)
		}
	}
	if k.unions != 0 {
		t.Errorf("unions = %d, want 0 for a single cell", k.unions)
	}
}

func TestBuildFootprintMatchesOverallSize(t *testing.T) {
	// Any pattern with on-cells in the first and last rows and columns must
	// fill the full footprint.
	k := &recordingKernel{}
	e := NewEngine(k, nil)
	m := mustMatrix(t, [][]bool{
		{true, false, true},
		{false, true, false},
		{true, false, true},
	})
	p := Params{OverallSize: 24, BlockHeight: 0.4}

	res, err := e.Build(m, identity(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	min, max := res.Solid.BoundingBox()
	if math.Abs(max[0]-min[0]-24) > tol || math.Abs(max[1]-min[1]-24) > tol {
		t.Errorf("footprint = %g x %g, want 24 x 24", max[0]-min[0], max[1]-min[1])
	}
	if math.Abs(min[0]+12) > tol || math.Abs(min[1]+12) > tol {
		t.Errorf("footprint not centered: min = %v", min)
	}
}

func TestBuildRowsAdvanceMinusY(t *testing.T) {
	// One on-cell per row, same column; successive rows must step -Y by one
	// cell side.
	k := &recordingKernel{}
	e := NewEngine(k, nil)
	m := mustMatrix(t, [][]bool{
		{true, false, false},
		{true, false, false},
		{true, false, false},
	})
	p := Params{OverallSize: 9, BlockHeight: 1}

	if _, err := e.Build(m, identity(), p); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(k.boxes) != 3 {
		t.Fatalf("created %d boxes, want 3", len(k.boxes))
	}
	side := 3.0
	for i := 1; i < len(k.boxes); i++ {
		prevY := (k.boxes[i-1].min[1] + k.boxes[i-1].max[1]) / 2
		curY := (k.boxes[i].min[1] + k.boxes[i].max[1]) / 2
		if math.Abs(prevY-curY-side) > tol {
			t.Errorf("row step %d: y %g -> %g, want -%g", i, prevY, curY, side)
		}
	}
}

func TestBuildColumnsAdvancePlusX(t *testing.T) {
	k := &recordingKernel{}
	e := NewEngine(k, nil)
	m := mustMatrix(t, [][]bool{
		{true, true, true},
		{false, false, false},
		{false, false, false},
	})
	p := Params{OverallSize: 9, BlockHeight: 1}

	if _, err := e.Build(m, identity(), p); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(k.boxes) != 3 {
		t.Fatalf("created %d boxes, want 3", len(k.boxes))
	}
	for i := 1; i < len(k.boxes); i++ {
		prevX := (k.boxes[i-1].min[0] + k.boxes[i-1].max[0]) / 2
		curX := (k.boxes[i].min[0] + k.boxes[i].max[0]) / 2
		if math.Abs(curX-prevX-3) > tol {
			t.Errorf("column step %d: x %g -> %g, want +3", i, prevX, curX)
		}
	}
}

func TestBuildBasePlate(t *testing.T) {
	t.Run("base plate extends footprint and height", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{
			{true, false},
			{false, false},
		})
		p := Params{OverallSize: 20, BlockHeight: 2, BaseHeight: 3}

		res, err := e.Build(m, identity(), p)
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		min, max := res.Solid.BoundingBox()
		if math.Abs(min[2]) > tol || math.Abs(max[2]-5) > tol {
			t.Errorf("z extent = [%g, %g], want [0, 5]", min[2], max[2])
		}
		// Base plate fills the footprint even with one on-cell.
		if math.Abs(max[0]-min[0]-20) > tol {
			t.Errorf("footprint = %g, want 20", max[0]-min[0])
		}
	})

	t.Run("cells span the full height over the base", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{{true}})
		p := Params{OverallSize: 10, BlockHeight: 2, BaseHeight: 3}

		if _, err := e.Build(m, identity(), p); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		// boxes[0] is the base, boxes[1] the cell.
		if len(k.boxes) != 2 {
			t.Fatalf("created %d boxes, want 2", len(k.boxes))
		}
		cell := k.boxes[1]
		if math.Abs(cell.min[2]) > tol || math.Abs(cell.max[2]-5) > tol {
			t.Errorf("cell z extent = [%g, %g], want [0, 5]", cell.min[2], cell.max[2])
		}
	})

	t.Run("tiny base height is treated as zero", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{{true}})
		p := Params{OverallSize: 10, BlockHeight: 2, BaseHeight: 1e-9}

		if _, err := e.Build(m, identity(), p); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if len(k.boxes) != 1 {
			t.Errorf("created %d boxes, want 1 (no base plate)", len(k.boxes))
		}
	})
}

func TestBuildEmpty(t *testing.T) {
	t.Run("all-off matrix without base", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{
			{false, false},
			{false, false},
		})
		_, err := e.Build(m, identity(), Params{OverallSize: 10, BlockHeight: 1})
		if !errors.Is(err, ErrEmptyMatrix) {
			t.Errorf("Build() error = %v, want ErrEmptyMatrix", err)
		}
	})

	t.Run("all-off matrix with base yields the plate", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{
			{false, false},
			{false, false},
		})
		res, err := e.Build(m, identity(), Params{OverallSize: 10, BlockHeight: 1, BaseHeight: 2})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		min, max := res.Solid.BoundingBox()
		if math.Abs(max[2]-min[2]-2) > tol {
			t.Errorf("z extent = %g, want 2 (plate only)", max[2]-min[2])
		}
	})

	t.Run("zero-size matrix", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		_, err := e.Build(qr.Matrix{}, identity(), Params{OverallSize: 10, BlockHeight: 1})
		if !errors.Is(err, ErrEmptyMatrix) {
			t.Errorf("Build() error = %v, want ErrEmptyMatrix", err)
		}
	})

	t.Run("invalid params", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{{true}})
		if _, err := e.Build(m, identity(), Params{}); err == nil {
			t.Error("Build() error = nil for invalid params")
		}
	})
}

// --- Failure policies ---

func TestBuildPrimitiveFailureAborts(t *testing.T) {
	t.Run("cell box failure", func(t *testing.T) {
		k := &recordingKernel{failBoxAt: 2}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{
			{true, true},
			{false, false},
		})
		_, err := e.Build(m, identity(), Params{OverallSize: 10, BlockHeight: 1})
		var pe *PrimitiveError
		if !errors.As(err, &pe) {
			t.Fatalf("Build() error = %v, want PrimitiveError", err)
		}
		if pe.Row != 0 || pe.Col != 1 {
			t.Errorf("failed cell = (%d,%d), want (0,1)", pe.Row, pe.Col)
		}
	})

	t.Run("base plate failure", func(t *testing.T) {
		k := &recordingKernel{failBoxAt: 1}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{{true}})
		_, err := e.Build(m, identity(), Params{OverallSize: 10, BlockHeight: 1, BaseHeight: 1})
		var pe *PrimitiveError
		if !errors.As(err, &pe) {
			t.Fatalf("Build() error = %v, want PrimitiveError", err)
		}
		if pe.Row != -1 || pe.Col != -1 {
			t.Errorf("failed cell = (%d,%d), want (-1,-1)", pe.Row, pe.Col)
		}
	})
}

func TestBuildUnionFailureIsLenient(t *testing.T) {
	k := &recordingKernel{failUnionAt: 1}
	e := NewEngine(k, nil)
	m := mustMatrix(t, [][]bool{
		{true, true},
		{true, false},
	})
	res, err := e.Build(m, identity(), Params{OverallSize: 10, BlockHeight: 1})
	if err != nil {
		t.Fatalf("Build() error = %v, want lenient success", err)
	}
	if len(res.SkippedCells) != 1 {
		t.Fatalf("SkippedCells = %d, want 1", len(res.SkippedCells))
	}
	if sc := res.SkippedCells[0]; sc.Row != 0 || sc.Col != 1 {
		t.Errorf("skipped cell = (%d,%d), want (0,1)", sc.Row, sc.Col)
	}
	// The remaining cells still merged.
	if res.Solid == nil {
		t.Fatal("Solid = nil after lenient build")
	}
}

// --- Orientation ---

func TestBuildOrientation(t *testing.T) {
	t.Run("identity frame skips transforms", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{{true}})
		if _, err := e.Build(m, identity(), Params{OverallSize: 10, BlockHeight: 1}); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if len(k.rotations) != 0 || len(k.translates) != 0 {
			t.Errorf("rotations = %d, translates = %d, want 0, 0", len(k.rotations), len(k.translates))
		}
	})

	t.Run("offset frame translates to origin", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{{true}})
		f := identity()
		f.Origin = geom.Vec3{X: 5, Y: -3, Z: 7}

		res, err := e.Build(m, f, Params{OverallSize: 10, BlockHeight: 2})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if len(k.rotations) != 0 {
			t.Errorf("rotations = %d, want 0 for axis-aligned frame", len(k.rotations))
		}
		min, _ := res.Solid.BoundingBox()
		want := [3]float64{0, -8, 7}
		for i := 0; i < 3; i++ {
			if math.Abs(min[i]-want[i]) > tol {
				t.Fatalf("min = %v, want %v", min, want)
			}
		}
	})

	t.Run("rotated frame applies one rotation", func(t *testing.T) {
		k := &recordingKernel{}
		e := NewEngine(k, nil)
		m := mustMatrix(t, [][]bool{{true}})
		f, err := geom.NewFrame(geom.Vec3{}, geom.Vec3{Y: 1}, geom.Vec3{X: -1})
		if err != nil {
			t.Fatalf("NewFrame() error = %v", err)
		}
		if _, err := e.Build(m, f, Params{OverallSize: 10, BlockHeight: 1}); err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if len(k.rotations) != 1 {
			t.Fatalf("rotations = %d, want 1", len(k.rotations))
		}
		got := k.rotations[0]
		if math.Abs(got[0]) > tol || math.Abs(got[1]) > tol || math.Abs(got[2]-90) > tol {
			t.Errorf("rotation = %v, want (0, 0, 90)", got)
		}
	})
}

func TestBuildDeterministic(t *testing.T) {
	m := mustMatrix(t, [][]bool{
		{true, false, true},
		{false, true, false},
		{true, false, true},
	})
	p := Params{OverallSize: 24, BlockHeight: 0.4, BaseHeight: 1}

	k1 := &recordingKernel{}
	r1, err := NewEngine(k1, nil).Build(m, identity(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	k2 := &recordingKernel{}
	r2, err := NewEngine(k2, nil).Build(m, identity(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(k1.boxes) != len(k2.boxes) {
		t.Fatalf("box counts differ: %d vs %d", len(k1.boxes), len(k2.boxes))
	}
	for i := range k1.boxes {
		if k1.boxes[i] != k2.boxes[i] {
			t.Errorf("box %d differs: %v vs %v", i, k1.boxes[i], k2.boxes[i])
		}
	}
	min1, max1 := r1.Solid.BoundingBox()
	min2, max2 := r2.Solid.BoundingBox()
	if min1 != min2 || max1 != max2 {
		t.Error("result bounds differ between identical builds")
	}
}

// --- Error formatting ---

func TestErrorMessages(t *testing.T) {
	base := errors.New("boom")

	t.Run("primitive cell", func(t *testing.T) {
		e := &PrimitiveError{Row: 2, Col: 3, Err: base}
		if got := e.Error(); got != "block construction failed at cell (2,3): boom" {
			t.Errorf("Error() = %q", got)
		}
		if !errors.Is(e, base) {
			t.Error("Unwrap() lost the cause")
		}
	})

	t.Run("primitive base", func(t *testing.T) {
		e := &PrimitiveError{Row: -1, Col: -1, Err: base}
		if got := e.Error(); got != "base plate construction failed: boom" {
			t.Errorf("Error() = %q", got)
		}
	})

	t.Run("union", func(t *testing.T) {
		e := &UnionError{Row: 1, Col: 0, Err: base}
		if got := e.Error(); got != "boolean union failed at cell (1,0): boom" {
			t.Errorf("Error() = %q", got)
		}
		if !errors.Is(e, base) {
			t.Error("Unwrap() lost the cause")
		}
	})
}
