// File: internal/action/grid.go
package action

import (
	"errors"
	"fmt"
)

// ErrGridDisabled is returned when a directive uses cell coordinates while
// no grid overlay is active.
var ErrGridDisabled = errors.New("grid coordinates used but grid overlay is disabled")

// CellToPixel maps a cell index and a sub-cell offset to a pixel coordinate
// along one axis: pixel = cell*step + offset. Offsets are closed-open, so a
// value equal to step belongs to the next cell and is rejected here.
func CellToPixel(cell, offset, step int) (int, error) {
	if step <= 0 {
		return 0, fmt.Errorf("grid step must be positive, got %d", step)
	}
	if cell < 0 {
		return 0, fmt.Errorf("cell index must be non-negative, got %d", cell)
	}
	if offset < 0 || offset >= step {
		return 0, fmt.Errorf("cell offset %d outside [0, %d)", offset, step)
	}
	return cell*step + offset, nil
}

// PixelToCell is the inverse of CellToPixel for non-negative pixels.
func PixelToCell(pixel, step int) (cell, offset int) {
	if step <= 0 || pixel < 0 {
		return 0, 0
	}
	return pixel / step, pixel % step
}

// Grid describes the overlay drawn on screenshots. Cells are anchored at the
// screen origin and cover the bounds rectangle.
type Grid struct {
	Step   int
	Bounds Rect
}

// Columns is the number of cells per row, counting a trailing partial cell.
func (g Grid) Columns() int {
	return ceilDiv(g.Bounds.Max.X, g.Step)
}

// Rows is the number of cell rows, counting a trailing partial row.
func (g Grid) Rows() int {
	return ceilDiv(g.Bounds.Max.Y, g.Step)
}

// CellLabel returns the 1-based row-major label drawn in cell (col, row).
func (g Grid) CellLabel(col, row int) int {
	return row*g.Columns() + col + 1
}

// LabelCell converts an overlay label back to its (col, row) indices.
func (g Grid) LabelCell(label int) (col, row int, err error) {
	cols := g.Columns()
	if cols <= 0 {
		return 0, 0, fmt.Errorf("grid has no columns")
	}
	if label < 1 || label > cols*g.Rows() {
		return 0, 0, fmt.Errorf("cell label %d outside [1, %d]", label, cols*g.Rows())
	}
	return (label - 1) % cols, (label - 1) / cols, nil
}

// Point converts a cell reference to a pixel position.
func (g Grid) Point(col, row, offsetX, offsetY int) (Point, error) {
	x, err := CellToPixel(col, offsetX, g.Step)
	if err != nil {
		return Point{}, fmt.Errorf("column: %w", err)
	}
	y, err := CellToPixel(row, offsetY, g.Step)
	if err != nil {
		return Point{}, fmt.Errorf("row: %w", err)
	}
	return Point{X: x, Y: y}, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 || a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
