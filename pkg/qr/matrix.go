// Package qr provides the binary matrix type consumed by the layout engine
// and the message encoder that produces it. The QR symbology itself is
// delegated to github.com/skip2/go-qrcode; this package only normalizes its
// output into a validated square bit matrix.
package qr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyMatrix is returned when a matrix source contains no rows.
var ErrEmptyMatrix = errors.New("matrix has no rows")

// ErrRaggedMatrix is returned when matrix rows differ in length or the
// matrix is not square.
var ErrRaggedMatrix = errors.New("matrix is not square")

// Matrix is an immutable square N×N bit matrix. The zero value is empty;
// use one of the From constructors to build a validated instance.
type Matrix struct {
	cells [][]bool
}

// Size returns N, the side length of the matrix.
func (m Matrix) Size() int {
	return len(m.cells)
}

// On reports whether the cell at (row, col) is set. Out-of-range
// coordinates report false.
func (m Matrix) On(row, col int) bool {
	if row < 0 || row >= len(m.cells) || col < 0 || col >= len(m.cells[row]) {
		return false
	}
	return m.cells[row][col]
}

// OnCount returns the number of set cells.
func (m Matrix) OnCount() int {
	n := 0
	for _, row := range m.cells {
		for _, c := range row {
			if c {
				n++
			}
		}
	}
	return n
}

// validate checks squareness over a freshly built cell grid.
func validate(cells [][]bool) (Matrix, error) {
	if len(cells) == 0 {
		return Matrix{}, ErrEmptyMatrix
	}
	n := len(cells)
	for i, row := range cells {
		if len(row) != n {
			return Matrix{}, fmt.Errorf("row %d has %d cells, want %d: %w", i, len(row), n, ErrRaggedMatrix)
		}
	}
	return Matrix{cells: cells}, nil
}

// FromBools builds a Matrix from a bool grid. The grid is copied.
func FromBools(rows [][]bool) (Matrix, error) {
	cells := make([][]bool, len(rows))
	for i, row := range rows {
		cells[i] = append([]bool(nil), row...)
	}
	return validate(cells)
}

// FromBits builds a Matrix from integer rows; any nonzero value is "on".
func FromBits(rows [][]int) (Matrix, error) {
	cells := make([][]bool, len(rows))
	for i, row := range rows {
		cells[i] = make([]bool, len(row))
		for j, v := range row {
			cells[i][j] = v != 0
		}
	}
	return validate(cells)
}

// FromStrings builds a Matrix from string cells. A cell is "on" when its
// trimmed value is the literal "1"; "0" and empty are off. Anything else is
// rejected so a malformed grid file fails loudly instead of silently
// producing a wrong pattern.
func FromStrings(rows [][]string) (Matrix, error) {
	cells := make([][]bool, len(rows))
	for i, row := range rows {
		cells[i] = make([]bool, len(row))
		for j, v := range row {
			switch strings.TrimSpace(v) {
			case "1":
				cells[i][j] = true
			case "0", "":
				cells[i][j] = false
			default:
				return Matrix{}, fmt.Errorf("cell (%d,%d): %q is not a bit value", i, j, v)
			}
		}
	}
	return validate(cells)
}

// String renders the matrix as lines of # and . characters, handy in
// error messages and test failures.
func (m Matrix) String() string {
	var b strings.Builder
	for _, row := range m.cells {
		for _, c := range row {
			if c {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
