package export

import (
	"fmt"

	"github.com/chiselcad/qrelief/pkg/layout"
	"github.com/chiselcad/qrelief/pkg/qr"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
	"github.com/yofu/dxf/table"
)

// WriteDXFFootprint writes a top-view drawing of the relief pattern: the
// overall plate outline plus one closed square per "on" cell, in the same
// frame-local coordinates the layout engine uses (anchor at the origin,
// rows advancing along -Y). The drawing is a machining/engraving aid; the
// solid itself is exported as STL.
func WriteDXFFootprint(path string, m qr.Matrix, p layout.Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("dxf footprint: %v: %w", err, ErrExport)
	}
	n := m.Size()
	if n == 0 {
		return fmt.Errorf("dxf footprint: empty matrix: %w", ErrExport)
	}

	d := dxf.NewDrawing()
	if _, err := d.AddLayer("RELIEF", color.Red, table.LT_CONTINUOUS, true); err != nil {
		return fmt.Errorf("dxf layer: %v: %w", err, ErrExport)
	}

	half := p.OverallSize / 2
	if err := addSquare(d, -half, -half, p.OverallSize); err != nil {
		return err
	}

	side := p.OverallSize / float64(n)
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if !m.On(row, col) {
				continue
			}
			// Min corner of the cell square.
			x := -half + float64(col)*side
			y := half - float64(row+1)*side
			if err := addSquare(d, x, y, side); err != nil {
				return err
			}
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("dxf save %s: %v: %w", path, err, ErrExport)
	}
	return nil
}

// addSquare draws an axis-aligned square of the given side with min corner
// at (x, y) on the Z=0 plane.
func addSquare(d *drawing.Drawing, x, y, side float64) error {
	pts := [5][2]float64{
		{x, y},
		{x + side, y},
		{x + side, y + side},
		{x, y + side},
		{x, y},
	}
	for i := 0; i < 4; i++ {
		if _, err := d.Line(pts[i][0], pts[i][1], 0, pts[i+1][0], pts[i+1][1], 0); err != nil {
			return fmt.Errorf("dxf line: %v: %w", err, ErrExport)
		}
	}
	return nil
}
