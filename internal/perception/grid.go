// internal/perception/grid.go
package perception

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/xkilldash9x/odin/internal/action"
)

var (
	gridLine  = color.NRGBA{R: 255, A: 128}
	labelText = color.NRGBA{R: 255, A: 220}
	labelBack = color.NRGBA{R: 255, G: 255, B: 255, A: 160}
)

// DrawGrid returns a copy of img with grid lines every step pixels and each
// cell's label in its top-left corner. Labels match action.Grid.CellLabel.
func DrawGrid(img image.Image, step int) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	if step <= 0 {
		return out
	}

	w, h := b.Dx(), b.Dy()
	line := image.NewUniform(gridLine)
	for x := 0; x < w; x += step {
		draw.Draw(out, image.Rect(x, 0, x+1, h), line, image.Point{}, draw.Over)
	}
	for y := 0; y < h; y += step {
		draw.Draw(out, image.Rect(0, y, w, y+1), line, image.Point{}, draw.Over)
	}

	grid := action.Grid{Step: step, Bounds: action.NewRect(0, 0, w, h)}
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: out, Src: image.NewUniform(labelText), Face: face}
	back := image.NewUniform(labelBack)
	for row := 0; row < grid.Rows(); row++ {
		for col := 0; col < grid.Columns(); col++ {
			label := strconv.Itoa(grid.CellLabel(col, row))
			x, y := col*step+2, row*step+2
			width := font.MeasureString(face, label).Ceil()
			draw.Draw(out, image.Rect(x, y, x+width+2, y+face.Height), back, image.Point{}, draw.Over)
			drawer.Dot = fixed.P(x+1, y+face.Ascent)
			drawer.DrawString(label)
		}
	}
	return out
}
