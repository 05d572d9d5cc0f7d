// Package layout implements the solid layout engine: it maps a binary
// matrix, a placement frame, and sizing parameters onto a single manifold
// solid made of an optional base plate plus one extruded block per "on"
// cell, merged by iterative boolean union.
//
// Build is pure: it constructs geometry through the kernel and never touches
// scene state, so a preview build can be discarded at no cost.
package layout

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/chiselcad/qrelief/pkg/geom"
	"github.com/chiselcad/qrelief/pkg/kernel"
	"github.com/chiselcad/qrelief/pkg/qr"
)

// heightEpsilon is the tolerance below which a base height counts as zero.
const heightEpsilon = 1e-6

// ErrEmptyMatrix is returned when there is nothing to build: the matrix has
// no rows, or it has no "on" cells and no base plate was requested.
var ErrEmptyMatrix = errors.New("no geometry to build: empty matrix")

// PrimitiveError reports a failed box construction. Row and Col are -1 for
// the base plate. Primitive failures abort the build.
type PrimitiveError struct {
	Row, Col int
	Err      error
}

func (e *PrimitiveError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("base plate construction failed: %v", e.Err)
	}
	return fmt.Sprintf("block construction failed at cell (%d,%d): %v", e.Row, e.Col, e.Err)
}

func (e *PrimitiveError) Unwrap() error { return e.Err }

// UnionError reports a failed boolean union for one cell. Per the lenient
// policy the cell is skipped and the build continues; the error is recorded
// in the Result rather than returned.
type UnionError struct {
	Row, Col int
	Err      error
}

func (e *UnionError) Error() string {
	return fmt.Sprintf("boolean union failed at cell (%d,%d): %v", e.Row, e.Col, e.Err)
}

func (e *UnionError) Unwrap() error { return e.Err }

// Params are the sizing inputs for a relief build. All lengths share one
// modeling unit. The per-cell side length is always OverallSize/N, derived,
// never stored, so the pattern stays square and centered.
type Params struct {
	OverallSize float64 // side length of the full pattern footprint, > 0
	BlockHeight float64 // raised block height above the base, > 0
	BaseHeight  float64 // base plate height, >= 0 (0 disables the plate)
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.OverallSize <= 0 {
		return fmt.Errorf("overall size must be positive, got %g", p.OverallSize)
	}
	if p.BlockHeight <= 0 {
		return fmt.Errorf("block height must be positive, got %g", p.BlockHeight)
	}
	if p.BaseHeight < 0 {
		return fmt.Errorf("base height cannot be negative, got %g", p.BaseHeight)
	}
	return nil
}

// Primitive is an ephemeral frame-local box: the center is expressed in the
// placement frame's coordinates, with the anchor at the local origin.
type Primitive struct {
	Center geom.Vec3
	Width  float64
	Depth  float64
	Height float64
}

// Result is the output of a successful build.
type Result struct {
	// Solid is the merged world-space solid.
	Solid kernel.Solid
	// SkippedCells records cells dropped by failed unions (lenient policy).
	SkippedCells []UnionError
}

// Engine folds primitives into a single solid using a geometry kernel.
type Engine struct {
	kernel kernel.Kernel
	logger *log.Logger
}

// NewEngine returns an Engine over the given kernel. A nil logger falls
// back to the default logger.
func NewEngine(k kernel.Kernel, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{kernel: k, logger: logger}
}

// Build constructs the relief solid for matrix m placed on frame f.
//
// Geometry is built in frame-local coordinates (anchor at the origin, base
// resting on the anchor plane, blocks extending along +Z), then mapped into
// the world by one rotation and one translation.
//
// Cell boxes use the full-height convention: each spans [0, BaseHeight+
// BlockHeight], straddling both the base and block regions, which keeps
// every union a simple overlapping merge. The visible result is a base
// plate of BaseHeight with blocks of additional BlockHeight wherever a
// cell is on.
//
// Union failures are lenient: the offending cell is skipped, logged, and
// recorded in the Result. Primitive construction failures abort the build.
func (e *Engine) Build(m qr.Matrix, f geom.Frame, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	n := m.Size()
	if n == 0 {
		return nil, ErrEmptyMatrix
	}

	side := p.OverallSize / float64(n)
	res := &Result{}

	// Accumulator starts with the base plate when one is requested,
	// otherwise the first realized cell seeds it.
	var acc kernel.Solid
	if p.BaseHeight > heightEpsilon {
		base := Primitive{
			Center: geom.Vec3{Z: p.BaseHeight / 2},
			Width:  p.OverallSize,
			Depth:  p.OverallSize,
			Height: p.BaseHeight,
		}
		s, err := e.realize(base)
		if err != nil {
			return nil, &PrimitiveError{Row: -1, Col: -1, Err: err}
		}
		acc = s
	}

	// Center of cell (0,0): half a cell step in from the top-left corner.
	// Columns advance along +X, rows along -Y.
	x0 := -p.OverallSize/2 + side/2
	y0 := p.OverallSize/2 - side/2
	cellHeight := p.BaseHeight + p.BlockHeight

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if !m.On(row, col) {
				continue
			}
			block := Primitive{
				Center: geom.Vec3{
					X: x0 + float64(col)*side,
					Y: y0 - float64(row)*side,
					Z: cellHeight / 2,
				},
				Width:  side,
				Depth:  side,
				Height: cellHeight,
			}
			s, err := e.realize(block)
			if err != nil {
				return nil, &PrimitiveError{Row: row, Col: col, Err: err}
			}
			if acc == nil {
				acc = s
				continue
			}
			merged, err := e.kernel.Union(acc, s)
			if err != nil {
				ue := UnionError{Row: row, Col: col, Err: err}
				e.logger.Warn("skipping cell after failed union", "row", row, "col", col, "err", err)
				res.SkippedCells = append(res.SkippedCells, ue)
				continue
			}
			acc = merged
		}
	}

	if acc == nil {
		return nil, ErrEmptyMatrix
	}

	res.Solid = e.orient(acc, f)
	return res, nil
}

// realize turns a frame-local primitive into a kernel solid at its local
// position.
func (e *Engine) realize(p Primitive) (kernel.Solid, error) {
	s, err := e.kernel.Box(p.Width, p.Depth, p.Height)
	if err != nil {
		return nil, err
	}
	return e.kernel.Translate(s, p.Center.X, p.Center.Y, p.Center.Z), nil
}

// orient maps a frame-local solid into world coordinates: rotate about the
// local origin into the frame basis, then translate to the frame origin.
func (e *Engine) orient(s kernel.Solid, f geom.Frame) kernel.Solid {
	if f.IsIdentity() {
		return s
	}
	rx, ry, rz := f.EulerZYX()
	if rx != 0 || ry != 0 || rz != 0 {
		s = e.kernel.Rotate(s, rx, ry, rz)
	}
	if f.Origin != (geom.Vec3{}) {
		s = e.kernel.Translate(s, f.Origin.X, f.Origin.Y, f.Origin.Z)
	}
	return s
}
